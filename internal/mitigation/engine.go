package mitigation

import (
	"SDNGuard/internal/alertlog"
	"SDNGuard/internal/config"
	"SDNGuard/internal/metrics"
	"SDNGuard/internal/model"
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

const (
	// DropPriority sits above the forwarding rules so blocked traffic never
	// reaches them.
	DropPriority uint16 = 2

	ActionBlocked = "Blocked"
	unknownDst    = "N/A"
)

// State is the mitigation state of one source address.
type State int

const (
	StateUnseen State = iota
	StateMonitored
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateMonitored:
		return "monitored"
	case StateBlocked:
		return "blocked"
	}
	return "unseen"
}

// Engine turns malicious verdicts into drop rules, blocked-set entries and
// alerts. The blocked set and the alert log are changed under one lock so a
// block is never visible without its alert or the other way round.
type Engine struct {
	sender   model.Sender
	notifier model.Notifier

	dropIdleTimeout uint16
	blockTTL        time.Duration
	attackType      string
	sendTimeout     time.Duration
	now             func() time.Time

	mu        sync.Mutex
	blocked   map[string]time.Time
	pending   map[string]struct{}
	monitored map[string]struct{}
	alerts    *alertlog.Log
}

// New creates an engine. notifier may be nil.
func New(sender model.Sender, notifier model.Notifier, cfg config.MitigationConfig) (*Engine, error) {
	idle, err := config.RuleTimeout(cfg.DropIdleTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid mitigation drop_idle_timeout: %w", err)
	}
	ttl, err := time.ParseDuration(cfg.BlockTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid mitigation block_ttl: %w", err)
	}
	sendTimeout, err := time.ParseDuration(cfg.SendTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid mitigation send_timeout: %w", err)
	}
	return &Engine{
		sender:          sender,
		notifier:        notifier,
		dropIdleTimeout: idle,
		blockTTL:        ttl,
		attackType:      cfg.AttackType,
		sendTimeout:     sendTimeout,
		now:             time.Now,
		blocked:         make(map[string]time.Time),
		pending:         make(map[string]struct{}),
		monitored:       make(map[string]struct{}),
		alerts:          alertlog.New(cfg.AlertCapacity),
	}, nil
}

// IsBlocked reports whether src is in the blocked set.
func (e *Engine) IsBlocked(src string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isBlockedLocked(src)
}

func (e *Engine) isBlockedLocked(src string) bool {
	since, ok := e.blocked[src]
	if !ok {
		return false
	}
	if e.blockTTL > 0 && e.now().Sub(since) >= e.blockTTL {
		delete(e.blocked, src)
		metrics.BlockedSources.Set(float64(len(e.blocked)))
		return false
	}
	return true
}

// State returns the mitigation state of src.
func (e *Engine) State(src string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isBlockedLocked(src) {
		return StateBlocked
	}
	if _, ok := e.monitored[src]; ok {
		return StateMonitored
	}
	return StateUnseen
}

// Apply acts on the verdict for a sample taken from switch dpid.
//
// A benign verdict only marks the source as monitored. A malicious one
// installs the drop rule first; if that fails nothing else changes and the
// error is returned. Otherwise the source is blocked, an alert is recorded
// and the priority-1 rule that produced the sample is deleted so any later
// traffic is seen again.
func (e *Engine) Apply(ctx context.Context, dpid model.DatapathID, sample model.FlowSample, verdict model.Verdict) error {
	src := sample.Match.IPv4Src
	if src == "" {
		return fmt.Errorf("sample has no ipv4 source")
	}

	if verdict != model.VerdictMalicious {
		e.mu.Lock()
		if !e.isBlockedLocked(src) {
			e.monitored[src] = struct{}{}
		}
		e.mu.Unlock()
		return nil
	}

	// The source is reserved while its drop rule is in flight so concurrent
	// verdicts for it install one rule and record one alert.
	e.mu.Lock()
	if _, busy := e.pending[src]; busy || e.isBlockedLocked(src) {
		e.mu.Unlock()
		return nil
	}
	e.pending[src] = struct{}{}
	e.mu.Unlock()

	drop := model.AddFlow(DropPriority, model.Match{EthType: model.EthTypeIPv4, IPv4Src: src}, nil, e.dropIdleTimeout)
	if err := e.send(ctx, dpid, drop); err != nil {
		e.mu.Lock()
		delete(e.pending, src)
		e.mu.Unlock()
		return fmt.Errorf("failed to install drop rule for %s on switch %s: %w", src, dpid, err)
	}
	metrics.FlowModsSent.WithLabelValues("drop").Inc()
	log.Printf("Warning: drop rule installed for %s on switch %s", src, dpid)

	alert := e.newAlert(sample)
	e.mu.Lock()
	delete(e.pending, src)
	e.blocked[src] = e.now()
	delete(e.monitored, src)
	added := e.alerts.Push(alert)
	blockedCount := len(e.blocked)
	e.mu.Unlock()

	metrics.BlockedSources.Set(float64(blockedCount))
	if added {
		metrics.AlertsRaised.Inc()
		if e.notifier != nil {
			go e.notify(alert)
		}
	}

	del := model.DeleteFlowStrict(sample.Priority, sample.Match)
	if err := e.send(ctx, dpid, del); err != nil {
		log.Printf("ERROR: failed to delete analysed rule for %s on switch %s: %v", src, dpid, err)
	} else {
		metrics.FlowModsSent.WithLabelValues("delete").Inc()
	}
	return nil
}

func (e *Engine) newAlert(sample model.FlowSample) model.Alert {
	dst := sample.Match.IPv4Dst
	if dst == "" {
		dst = unknownDst
	}
	return model.Alert{
		Timestamp:  e.now().Format("15:04:05"),
		SrcIP:      sample.Match.IPv4Src,
		DstIP:      dst,
		AttackType: e.attackType,
		Action:     ActionBlocked,
	}
}

func (e *Engine) notify(a model.Alert) {
	subject, body := FormatNotice(a)
	if err := e.notifier.Send(subject, body); err != nil {
		log.Printf("ERROR: Failed to send block notification: %v", err)
	}
}

// FormatNotice renders the notification for a block.
func FormatNotice(a model.Alert) (string, string) {
	subject := fmt.Sprintf("SDNGuard: %s blocked", a.SrcIP)
	body := "<h3>Source blocked</h3>" +
		"<ul>" +
		fmt.Sprintf("<li><b>Time:</b> <code>%s</code></li>", a.Timestamp) +
		fmt.Sprintf("<li><b>Source:</b> <code>%s</code></li>", a.SrcIP) +
		fmt.Sprintf("<li><b>Destination:</b> <code>%s</code></li>", a.DstIP) +
		fmt.Sprintf("<li><b>Attack type:</b> <code>%s</code></li>", a.AttackType) +
		fmt.Sprintf("<li><b>Action:</b> <code>%s</code></li>", a.Action) +
		"</ul>"
	return subject, body
}

// Alerts returns the recent alerts, newest first.
func (e *Engine) Alerts() []model.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alerts.Entries()
}

// Blocked returns the blocked sources in address order.
func (e *Engine) Blocked() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.blocked))
	for src := range e.blocked {
		if e.isBlockedLocked(src) {
			out = append(out, src)
		}
	}
	sort.Strings(out)
	return out
}

// Sweep drops blocked entries older than the block TTL and returns how many
// were removed. It does nothing when no TTL is configured.
func (e *Engine) Sweep() int {
	if e.blockTTL <= 0 {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := 0
	for src := range e.blocked {
		if !e.isBlockedLocked(src) {
			removed++
		}
	}
	return removed
}

func (e *Engine) send(ctx context.Context, dpid model.DatapathID, cmd model.Command) error {
	ctx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	defer cancel()
	return e.sender.Send(ctx, dpid, cmd)
}
