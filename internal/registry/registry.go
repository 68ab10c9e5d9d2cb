package registry

import (
	"SDNGuard/internal/model"
	"sort"
	"sync"
	"time"
)

// Switch is a connected datapath. The connection itself belongs to the
// transport; the registry only remembers that the switch exists.
type Switch struct {
	ID          model.DatapathID
	ConnectedAt time.Time
}

// MacTable maps learned MAC addresses to the port they were last seen on.
type MacTable struct {
	mu    sync.RWMutex
	ports map[string]model.PortNo
}

func newMacTable() *MacTable {
	return &MacTable{ports: make(map[string]model.PortNo)}
}

// Learn records that mac was seen on port, replacing any earlier port.
func (t *MacTable) Learn(mac string, port model.PortNo) {
	t.mu.Lock()
	t.ports[mac] = port
	t.mu.Unlock()
}

// Lookup returns the port mac was last seen on.
func (t *MacTable) Lookup(mac string) (model.PortNo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	port, ok := t.ports[mac]
	return port, ok
}

// Len returns the number of learned addresses.
func (t *MacTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ports)
}

// Registry tracks connected switches and their MAC tables.
// Entries are never removed: the transport reports no disconnects.
type Registry struct {
	mu       sync.RWMutex
	switches map[model.DatapathID]*Switch
	tables   map[model.DatapathID]*MacTable
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		switches: make(map[model.DatapathID]*Switch),
		tables:   make(map[model.DatapathID]*MacTable),
	}
}

// Add registers a switch and reports whether it was unknown until now.
// A reconnecting switch keeps its MAC table.
func (r *Registry) Add(id model.DatapathID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, known := r.switches[id]
	r.switches[id] = &Switch{ID: id, ConnectedAt: time.Now()}
	if _, ok := r.tables[id]; !ok {
		r.tables[id] = newMacTable()
	}
	return !known
}

// Get returns the registered switch.
func (r *Registry) Get(id model.DatapathID) (Switch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sw, ok := r.switches[id]
	if !ok {
		return Switch{}, false
	}
	return *sw, true
}

// Datapaths returns the registered switch IDs in ascending order.
func (r *Registry) Datapaths() []model.DatapathID {
	r.mu.RLock()
	ids := make([]model.DatapathID, 0, len(r.switches))
	for id := range r.switches {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of registered switches.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.switches)
}

// Table returns the MAC table of a switch, creating it if a frame arrives
// before the switch's connect event.
func (r *Registry) Table(id model.DatapathID) *MacTable {
	r.mu.RLock()
	t, ok := r.tables[id]
	r.mu.RUnlock()
	if ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok = r.tables[id]; !ok {
		t = newMacTable()
		r.tables[id] = t
	}
	return t
}
