package config

import (
	"SDNGuard/internal/alertlog"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeIDS       = "ids"
	ModeCollector = "collector"
)

// AgentConfig selects which controller variant runs.
type AgentConfig struct {
	Mode string `yaml:"mode"`
}

// ForwarderConfig holds the learning forwarder settings.
type ForwarderConfig struct {
	IdleTimeout string `yaml:"idle_timeout"`
	SendTimeout string `yaml:"send_timeout"`
}

// PollerConfig holds the stats poller settings.
type PollerConfig struct {
	Interval    string `yaml:"interval"`
	SendTimeout string `yaml:"send_timeout"`
}

// MitigationConfig holds the block/alert state machine settings.
type MitigationConfig struct {
	DropIdleTimeout string `yaml:"drop_idle_timeout"`
	BlockTTL        string `yaml:"block_ttl"`
	AttackType      string `yaml:"attack_type"`
	AlertCapacity   int    `yaml:"alert_capacity"`
	SendTimeout     string `yaml:"send_timeout"`
}

// PredictorConfig selects and configures the predictor backend.
type PredictorConfig struct {
	Type         string `yaml:"type"`
	ArtifactPath string `yaml:"artifact_path"`
	ServiceURL   string `yaml:"service_url"`
	Timeout      string `yaml:"timeout"`
}

// FileSinkConfig configures the snapshot file writer.
type FileSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// NATSSinkConfig configures the snapshot NATS publisher.
type NATSSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	Subject string `yaml:"subject"`
}

// TelemetryConfig holds the snapshot publisher settings.
type TelemetryConfig struct {
	Interval string         `yaml:"interval"`
	File     FileSinkConfig `yaml:"file"`
	NATS     NATSSinkConfig `yaml:"nats"`
}

// TransportConfig holds the NATS bridge settings.
type TransportConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// CSVExportConfig configures the CSV training export.
type CSVExportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ClickHouseConfig holds the connection details for ClickHouse.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ExportConfig holds the training-record sinks used in collector mode.
type ExportConfig struct {
	CSV        CSVExportConfig  `yaml:"csv"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// SMTPConfig holds the e-mail notifier settings. An empty host disables it.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// ListenerConfig is shared by the metrics and health endpoints.
type ListenerConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// DashboardConfig holds the dashboard reader settings.
type DashboardConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	StaticDir  string `yaml:"static_dir"`
	DataFile   string `yaml:"data_file"`
}

// ReplayConfig holds the pcap replay settings.
type ReplayConfig struct {
	Datapath uint64 `yaml:"datapath"`
	Interval string `yaml:"interval"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Agent      AgentConfig      `yaml:"agent"`
	Forwarder  ForwarderConfig  `yaml:"forwarder"`
	Poller     PollerConfig     `yaml:"poller"`
	Mitigation MitigationConfig `yaml:"mitigation"`
	Predictor  PredictorConfig  `yaml:"predictor"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Transport  TransportConfig  `yaml:"transport"`
	Export     ExportConfig     `yaml:"export"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	Metrics    ListenerConfig   `yaml:"metrics"`
	Health     ListenerConfig   `yaml:"health"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Replay     ReplayConfig     `yaml:"replay"`
}

// Default returns the configuration the agent runs with when a field is left
// out of the YAML file.
func Default() *Config {
	return &Config{
		Agent:     AgentConfig{Mode: ModeIDS},
		Forwarder: ForwarderConfig{IdleTimeout: "15s", SendTimeout: "2s"},
		Poller:    PollerConfig{Interval: "5s", SendTimeout: "2s"},
		Mitigation: MitigationConfig{
			DropIdleTimeout: "60s",
			BlockTTL:        "0s",
			AttackType:      "DDoS/DoS",
			AlertCapacity:   alertlog.DefaultCapacity,
			SendTimeout:     "2s",
		},
		Predictor: PredictorConfig{Type: "forest", ArtifactPath: "model.json", Timeout: "2s"},
		Telemetry: TelemetryConfig{
			Interval: "2s",
			File:     FileSinkConfig{Enabled: true, Path: "dashboard_data.json"},
			NATS:     NATSSinkConfig{Subject: "sdnguard.telemetry"},
		},
		Transport: TransportConfig{NATSURL: "nats://127.0.0.1:4222", SubjectPrefix: "sdnguard"},
		Export: ExportConfig{
			CSV: CSVExportConfig{Path: "mininet_traffic.csv"},
		},
		Metrics:   ListenerConfig{ListenAddr: ":9100"},
		Health:    ListenerConfig{ListenAddr: ":9101"},
		Dashboard: DashboardConfig{ListenAddr: "127.0.0.1:5000", StaticDir: ".", DataFile: "dashboard_data.json"},
		Replay:    ReplayConfig{Datapath: 1, Interval: "1ms"},
	}
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
// Keys absent from the file keep the values from Default.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that have no usable fallback.
func (c *Config) Validate() error {
	switch c.Agent.Mode {
	case ModeIDS, ModeCollector:
	default:
		return fmt.Errorf("unknown agent mode: '%s'", c.Agent.Mode)
	}
	if c.Mitigation.AlertCapacity <= 0 || c.Mitigation.AlertCapacity > alertlog.DefaultCapacity {
		return fmt.Errorf("mitigation alert_capacity must be between 1 and %d, got %d",
			alertlog.DefaultCapacity, c.Mitigation.AlertCapacity)
	}
	if c.Transport.SubjectPrefix == "" {
		return fmt.Errorf("transport subject_prefix must not be empty")
	}
	return nil
}

// RuleTimeout parses a duration string into the whole seconds carried by a
// flow rule's idle timeout.
func RuleTimeout(value string) (uint16, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid rule timeout '%s': %w", value, err)
	}
	if d < 0 || d > time.Duration(math.MaxUint16)*time.Second {
		return 0, fmt.Errorf("rule timeout '%s' out of range", value)
	}
	return uint16(d / time.Second), nil
}
