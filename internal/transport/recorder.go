package transport

import (
	"SDNGuard/internal/model"
	"context"
	"log"
	"sync"
	"time"
)

// Sent is one command accepted by a Recorder.
type Sent struct {
	Datapath model.DatapathID
	Command  model.Command
}

// Recorder is an in-memory Sender. The agent uses it for dry runs; tests use
// it to inspect the commands a component issued and to inject failures.
type Recorder struct {
	mu      sync.Mutex
	sent    []Sent
	fail    map[model.DatapathID]error
	delay   map[model.DatapathID]time.Duration
	verbose bool
}

// NewRecorder creates an empty recorder. When verbose is set every command is logged.
func NewRecorder(verbose bool) *Recorder {
	return &Recorder{
		fail:    make(map[model.DatapathID]error),
		delay:   make(map[model.DatapathID]time.Duration),
		verbose: verbose,
	}
}

// FailFor makes every send to dpid return err.
func (r *Recorder) FailFor(dpid model.DatapathID, err error) {
	r.mu.Lock()
	r.fail[dpid] = err
	r.mu.Unlock()
}

// DelayFor makes sends to dpid block for d or until the context ends.
func (r *Recorder) DelayFor(dpid model.DatapathID, d time.Duration) {
	r.mu.Lock()
	r.delay[dpid] = d
	r.mu.Unlock()
}

// Send implements model.Sender.
func (r *Recorder) Send(ctx context.Context, dpid model.DatapathID, cmd model.Command) error {
	r.mu.Lock()
	delay := r.delay[dpid]
	err := r.fail[dpid]
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.sent = append(r.sent, Sent{Datapath: dpid, Command: cmd})
	r.mu.Unlock()
	if r.verbose {
		log.Printf("dry-run: %s -> switch %s (priority=%d match=%+v actions=%v)", cmd.Kind, dpid, cmd.Priority, cmd.Match, cmd.Actions)
	}
	return nil
}

// Sent returns a copy of all accepted commands in send order.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// Commands returns the accepted commands of one kind in send order.
func (r *Recorder) Commands(kind model.CommandKind) []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.Command.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// Reset forgets all recorded commands. Failures and delays stay configured.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}
