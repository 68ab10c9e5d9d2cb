package poller

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/model"
	"SDNGuard/internal/registry"
	"SDNGuard/internal/transport"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPoller(t *testing.T, cfg config.PollerConfig, ids ...model.DatapathID) (*Poller, *transport.Recorder) {
	t.Helper()
	reg := registry.New()
	for _, id := range ids {
		reg.Add(id)
	}
	rec := transport.NewRecorder(false)
	p, err := New(reg, rec, cfg)
	require.NoError(t, err)
	return p, rec
}

func TestTick_RequestsEverySwitch(t *testing.T) {
	p, rec := newPoller(t, config.Default().Poller, 1, 2, 3)

	assert.Equal(t, 0, p.TickAndWait())

	reqs := rec.Commands(model.CmdFlowStatsRequest)
	require.Len(t, reqs, 3)
	got := map[model.DatapathID]bool{}
	for _, r := range reqs {
		got[r.Datapath] = true
	}
	assert.Equal(t, map[model.DatapathID]bool{1: true, 2: true, 3: true}, got)
}

func TestTick_FailingSwitchDoesNotStopOthers(t *testing.T) {
	p, rec := newPoller(t, config.Default().Poller, 1, 2, 3)
	rec.FailFor(2, errors.New("connection refused"))

	assert.Equal(t, 1, p.TickAndWait())
	assert.Len(t, rec.Commands(model.CmdFlowStatsRequest), 2)
}

func TestTick_SlowSwitchIsBoundedByTimeout(t *testing.T) {
	cfg := config.PollerConfig{Interval: "5s", SendTimeout: "50ms"}
	p, rec := newPoller(t, cfg, 1, 2)
	rec.DelayFor(1, time.Hour)

	start := time.Now()
	assert.Equal(t, 1, p.TickAndWait())
	assert.Less(t, time.Since(start), 5*time.Second)

	reqs := rec.Commands(model.CmdFlowStatsRequest)
	require.Len(t, reqs, 1)
	assert.Equal(t, model.DatapathID(2), reqs[0].Datapath)
}

func TestTick_NoSwitches(t *testing.T) {
	p, rec := newPoller(t, config.Default().Poller)
	assert.Equal(t, 0, p.TickAndWait())
	assert.Empty(t, rec.Sent())
}

func TestStartStop(t *testing.T) {
	cfg := config.PollerConfig{Interval: "10ms", SendTimeout: "1s"}
	p, rec := newPoller(t, cfg, 7)

	p.Start()
	assert.Eventually(t, func() bool {
		return len(rec.Commands(model.CmdFlowStatsRequest)) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	p.Stop()
}

func TestNew_InvalidInterval(t *testing.T) {
	_, err := New(registry.New(), transport.NewRecorder(false), config.PollerConfig{Interval: "0s", SendTimeout: "1s"})
	assert.Error(t, err)
	_, err = New(registry.New(), transport.NewRecorder(false), config.PollerConfig{Interval: "soon", SendTimeout: "1s"})
	assert.Error(t, err)
}
