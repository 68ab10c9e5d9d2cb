package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_ServesCollectors(t *testing.T) {
	Throughput.Set(1234)
	StatsRequests.Inc()

	srv := httptest.NewServer(NewRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "sdnguard_throughput_bytes_per_second 1234")
	assert.Contains(t, string(body), "sdnguard_stats_requests_total")
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(Classifications.WithLabelValues("malicious"))
	Classifications.WithLabelValues("malicious").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Classifications.WithLabelValues("malicious")))
}
