// Package alertlog keeps the short newest-first list of recent alerts shown on
// the dashboard.
package alertlog

import "SDNGuard/internal/model"

// DefaultCapacity is the number of alerts the dashboard shows. It is also the
// largest capacity a log accepts.
const DefaultCapacity = 10

// Log is a bounded newest-first alert list. It is not safe for concurrent
// use; the mitigation engine guards it together with the blocked set.
type Log struct {
	capacity int
	entries  []model.Alert
}

// New creates a log holding at most capacity alerts. Values outside
// 1..DefaultCapacity fall back to DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 || capacity > DefaultCapacity {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity, entries: make([]model.Alert, 0, capacity)}
}

// Push inserts a at the front and drops the oldest entries beyond capacity.
// It returns false without changing the log when a has the same source as the
// current front entry. Older entries are not consulted.
func (l *Log) Push(a model.Alert) bool {
	if len(l.entries) > 0 && l.entries[0].SrcIP == a.SrcIP {
		return false
	}
	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, model.Alert{})
	}
	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = a
	return true
}

// Front returns the newest alert.
func (l *Log) Front() (model.Alert, bool) {
	if len(l.entries) == 0 {
		return model.Alert{}, false
	}
	return l.entries[0], true
}

// Entries returns a copy of the alerts, newest first.
func (l *Log) Entries() []model.Alert {
	out := make([]model.Alert, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of stored alerts.
func (l *Log) Len() int {
	return len(l.entries)
}
