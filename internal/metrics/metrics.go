// Package metrics holds the agent's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PacketIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdnguard_packet_in_total",
			Help: "Frame-in events by outcome",
		},
		[]string{"result"},
	)

	FlowModsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdnguard_flow_mods_total",
			Help: "Flow rule changes sent to switches by reason",
		},
		[]string{"reason"},
	)

	StatsRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sdnguard_stats_requests_total",
			Help: "Flow stats requests sent",
		},
	)

	StatsRequestErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sdnguard_stats_request_errors_total",
			Help: "Flow stats requests that could not be sent",
		},
	)

	Classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdnguard_classifications_total",
			Help: "Flow samples classified by verdict",
		},
		[]string{"verdict"},
	)

	ClassificationErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sdnguard_classification_errors_total",
			Help: "Flow samples skipped because prediction failed",
		},
	)

	BlockedSources = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdnguard_blocked_sources",
			Help: "Source addresses currently in the blocked set",
		},
	)

	AlertsRaised = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sdnguard_alerts_total",
			Help: "Alerts appended to the alert log",
		},
	)

	Throughput = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdnguard_throughput_bytes_per_second",
			Help: "Aggregate byte rate derived from flow counters",
		},
	)

	Switches = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdnguard_switches",
			Help: "Switches that have connected since start",
		},
	)

	SnapshotWriteErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdnguard_snapshot_write_errors_total",
			Help: "Telemetry snapshot writes that failed by sink",
		},
		[]string{"sink"},
	)

	ExportedRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sdnguard_exported_records_total",
			Help: "Training records written by the exporter",
		},
	)
)

func init() {
	prometheus.MustRegister(
		PacketIns,
		FlowModsSent,
		StatsRequests,
		StatsRequestErrors,
		Classifications,
		ClassificationErrors,
		BlockedSources,
		AlertsRaised,
		Throughput,
		Switches,
		SnapshotWriteErrors,
		ExportedRecords,
	)
}

// NewRouter returns a router serving the default registry on /metrics.
func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}
