package telemetry

import (
	"SDNGuard/internal/model"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct{ snap model.Snapshot }

func (s staticSource) Snapshot() model.Snapshot { return s.snap }

type countingSweeper struct{ calls int32 }

func (s *countingSweeper) Sweep() int {
	atomic.AddInt32(&s.calls, 1)
	return 0
}

type failingWriter struct{ calls int32 }

func (w *failingWriter) Name() string { return "broken" }

func (w *failingWriter) Write(model.Snapshot) error {
	atomic.AddInt32(&w.calls, 1)
	return errors.New("disk full")
}

func sampleSnapshot() model.Snapshot {
	return model.Snapshot{
		TrafficStats: model.TrafficStats{BytesPerSec: 1250.5},
		Alerts: []model.Alert{{
			Timestamp:  "12:00:01",
			SrcIP:      "10.0.0.5",
			DstIP:      "10.0.0.2",
			AttackType: "DDoS/DoS",
			Action:     "Blocked",
		}},
	}
}

func TestFileWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard_data.json")
	w := NewFileWriter(path)

	require.NoError(t, w.Write(sampleSnapshot()))
	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestFileWriter_DocumentShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, NewFileWriter(path).Write(model.Snapshot{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"traffic_stats": {"bytes_per_sec": 0}, "alerts": []}`, string(data))
}

func TestLoadOrEmpty(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, model.EmptySnapshot(), LoadOrEmpty(filepath.Join(dir, "missing.json")))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"traffic_stats": {"bytes_per`), 0644))
	assert.Equal(t, model.EmptySnapshot(), LoadOrEmpty(bad))

	noAlerts := filepath.Join(dir, "partial.json")
	require.NoError(t, os.WriteFile(noAlerts, []byte(`{"traffic_stats": {"bytes_per_sec": 3}}`), 0644))
	snap := LoadOrEmpty(noAlerts)
	assert.Equal(t, 3.0, snap.TrafficStats.BytesPerSec)
	assert.NotNil(t, snap.Alerts)
}

func TestPublishOnce_SinkFailureDoesNotStopOthers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard_data.json")
	broken := &failingWriter{}
	sweeper := &countingSweeper{}
	p, err := NewPublisher(staticSource{sampleSnapshot()}, sweeper, []model.SnapshotWriter{broken, NewFileWriter(path)}, "1s")
	require.NoError(t, err)

	assert.Equal(t, 1, p.PublishOnce())
	assert.Equal(t, int32(1), atomic.LoadInt32(&sweeper.calls))

	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, 1250.5, got.TrafficStats.BytesPerSec)

	assert.Equal(t, 1, p.PublishOnce(), "the failed sink is retried next cycle")
	assert.Equal(t, int32(2), atomic.LoadInt32(&broken.calls))
}

func TestPublisher_StartStop(t *testing.T) {
	broken := &failingWriter{}
	p, err := NewPublisher(staticSource{}, nil, []model.SnapshotWriter{broken}, "10ms")
	require.NoError(t, err)

	p.Start()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&broken.calls) >= 2 }, 2*time.Second, 5*time.Millisecond)
	p.Stop()

	final := atomic.LoadInt32(&broken.calls)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, final, atomic.LoadInt32(&broken.calls), "no writes after Stop")
}

func TestNewPublisher_InvalidInterval(t *testing.T) {
	_, err := NewPublisher(staticSource{}, nil, nil, "never")
	assert.Error(t, err)
}
