package manager

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/controller"
	"SDNGuard/internal/export"
	"SDNGuard/internal/factory"
	"SDNGuard/internal/health"
	"SDNGuard/internal/metrics"
	"SDNGuard/internal/model"
	"SDNGuard/internal/notification"
	"SDNGuard/internal/poller"
	_ "SDNGuard/internal/predictor/forest" // Registers the forest predictor
	_ "SDNGuard/internal/predictor/remote" // Registers the http predictor
	"SDNGuard/internal/telemetry"
	"SDNGuard/internal/transport"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"
)

// Options change how the manager wires the agent.
type Options struct {
	// DryRun logs commands instead of publishing them. Events are still
	// consumed from the bridge.
	DryRun bool
	// Sender replaces the bridge entirely. Used by tests.
	Sender model.Sender
}

// Manager builds the agent from its configuration and runs its loops.
type Manager struct {
	cfg        *config.Config
	bridge     *transport.Bridge
	controller *controller.Controller
	poller     *poller.Poller
	publisher  *telemetry.Publisher
	exporter   model.Exporter
	health     *health.Server

	metricsServer *http.Server
	metricsAddr   net.Addr
}

// NewManager creates a new Manager.
func NewManager(cfg *config.Config, opts Options) (*Manager, error) {
	m := &Manager{cfg: cfg}

	sender := opts.Sender
	if sender == nil {
		bridge, err := transport.Connect(cfg.Transport)
		if err != nil {
			return nil, err
		}
		m.bridge = bridge
		sender = bridge
	}
	if opts.DryRun {
		log.Println("Dry run: commands are logged, not sent")
		sender = transport.NewRecorder(true)
	}

	deps := controller.Deps{
		Sender:   sender,
		Notifier: notification.NewEmailNotifier(cfg.SMTP),
	}
	switch cfg.Agent.Mode {
	case config.ModeIDS:
		p, err := factory.NewPredictor(cfg.Predictor)
		if err != nil {
			if errors.Is(err, model.ErrArtifactMissing) {
				log.Printf("Warning: %v; continuing without classification", err)
			} else {
				log.Printf("ERROR: failed to load predictor: %v; continuing without classification", err)
			}
		} else {
			deps.Predictor = p
		}
	case config.ModeCollector:
		exp, err := newExporter(cfg.Export)
		if err != nil {
			m.closeBridge()
			return nil, err
		}
		m.exporter = exp
		deps.Exporter = exp
	}

	ctrl, err := controller.New(cfg, deps)
	if err != nil {
		m.cleanup()
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}
	m.controller = ctrl

	m.poller, err = poller.New(ctrl.Registry(), sender, cfg.Poller)
	if err != nil {
		m.cleanup()
		return nil, err
	}

	var writers []model.SnapshotWriter
	if cfg.Telemetry.File.Enabled {
		writers = append(writers, telemetry.NewFileWriter(cfg.Telemetry.File.Path))
	}
	if cfg.Telemetry.NATS.Enabled {
		if m.bridge != nil {
			writers = append(writers, telemetry.NewNATSWriter(m.bridge.Conn(), cfg.Telemetry.NATS.Subject))
		} else {
			log.Println("Warning: NATS telemetry enabled but no bridge is connected, skipping")
		}
	}
	m.publisher, err = telemetry.NewPublisher(ctrl, ctrl, writers, cfg.Telemetry.Interval)
	if err != nil {
		m.cleanup()
		return nil, err
	}

	if cfg.Health.Enabled {
		m.health = health.New(!ctrl.Degraded())
	}
	return m, nil
}

func newExporter(cfg config.ExportConfig) (model.Exporter, error) {
	var multi export.Multi
	if cfg.CSV.Enabled {
		w, err := export.NewCSVWriter(cfg.CSV.Path)
		if err != nil {
			return nil, err
		}
		multi = append(multi, w)
	}
	if cfg.ClickHouse.Enabled {
		w, err := export.NewClickHouseWriter(cfg.ClickHouse)
		if err != nil {
			multi.Close()
			return nil, err
		}
		multi = append(multi, w)
	}
	if len(multi) == 0 {
		return nil, nil
	}
	return multi, nil
}

// Controller returns the controller the manager drives.
func (m *Manager) Controller() *controller.Controller {
	return m.controller
}

// MetricsAddr is the bound metrics address once started, or nil.
func (m *Manager) MetricsAddr() net.Addr {
	return m.metricsAddr
}

// Start binds the listeners, subscribes to switch events and starts the loops.
func (m *Manager) Start() error {
	if m.cfg.Metrics.Enabled {
		lis, err := net.Listen("tcp", m.cfg.Metrics.ListenAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", m.cfg.Metrics.ListenAddr, err)
		}
		m.metricsAddr = lis.Addr()
		m.metricsServer = &http.Server{Handler: metrics.NewRouter()}
		go func() {
			log.Printf("Metrics server starting on %s", lis.Addr())
			if err := m.metricsServer.Serve(lis); err != nil && err != http.ErrServerClosed {
				log.Printf("ERROR: metrics server error: %v", err)
			}
		}()
	}
	if m.health != nil {
		if err := m.health.Listen(m.cfg.Health.ListenAddr); err != nil {
			return err
		}
	}

	m.poller.Start()
	m.publisher.Start()

	if m.bridge != nil {
		if err := m.bridge.Start(m.controller); err != nil {
			return err
		}
	}
	log.Printf("Agent started in %s mode", m.cfg.Agent.Mode)
	return nil
}

// Stop shuts the agent down. The publisher writes its last snapshot before
// the bridge connection is drained.
func (m *Manager) Stop() {
	log.Println("Manager stopping...")
	m.poller.Stop()
	m.publisher.Stop()
	m.closeBridge()

	if m.exporter != nil {
		if err := m.exporter.Close(); err != nil {
			log.Printf("ERROR: failed to close exporter: %v", err)
		}
	}
	if m.health != nil {
		m.health.Stop()
	}
	if m.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.metricsServer.Shutdown(ctx)
	}
	log.Println("Manager stopped.")
}

func (m *Manager) closeBridge() {
	if m.bridge != nil {
		m.bridge.Close()
		m.bridge = nil
	}
}

func (m *Manager) cleanup() {
	m.closeBridge()
	if m.exporter != nil {
		m.exporter.Close()
	}
}
