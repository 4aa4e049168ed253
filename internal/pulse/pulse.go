// Package pulse probes configured targets on a fixed interval and keeps a
// rolling health record for each of them.
package pulse

import (
	"context"
	"time"

	"github.com/HerbHall/uptimewatch/internal/certinfo"
	"github.com/HerbHall/uptimewatch/internal/event"
	"github.com/HerbHall/uptimewatch/internal/oauth"
	"go.uber.org/zap"
)

// Monitor wires targets, checkers, the status store and the scheduler.
type Monitor struct {
	targets   []Target
	store     *StatusStore
	scheduler *Scheduler
	logger    *zap.Logger

	unsubscribe func()
}

// NewMonitor builds a Monitor for the targets described by cfg. Transition
// events are published on bus, which may be nil.
func NewMonitor(cfg MonitorConfig, bus *event.Bus, logger *zap.Logger) (*Monitor, error) {
	targets, err := BuildTargets(cfg)
	if err != nil {
		return nil, err
	}
	notifiers, err := buildNotifiers(cfg.Notifiers)
	if err != nil {
		return nil, err
	}

	store := NewStatusStore(targets, cfg.KeepHistory, cfg.MaxHistory, logger.Named("status"), bus)
	registry := DefaultRegistry(logger)
	m := &Monitor{
		targets:   targets,
		store:     store,
		scheduler: NewScheduler(targets, registry, store, cfg.Interval, logger.Named("scheduler")),
		logger:    logger,
	}
	if bus != nil && len(notifiers) > 0 {
		m.unsubscribe = NewNotificationDispatcher(notifiers, logger.Named("notify")).Subscribe(bus)
	}
	return m, nil
}

// DefaultRegistry returns a registry with a checker for every kind.
func DefaultRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry()
	r.Register(KindTCP, NewTCPChecker())
	r.Register(KindHTTP, NewHTTPChecker(oauth.NewCache(logger.Named("oauth")), certinfo.NewInspector(), logger.Named("http")))
	r.Register(KindPostgres, NewPostgresChecker())
	r.Register(KindRedis, NewRedisChecker())
	r.Register(KindRabbitMQ, NewRabbitMQChecker())
	r.Register(KindKafka, NewKafkaChecker())
	r.Register(KindMySQL, NewMySQLChecker())
	r.Register(KindMongoDB, NewMongoDBChecker())
	r.Register(KindElasticsearch, NewElasticsearchChecker())
	r.Register(KindICMP, NewICMPChecker(logger.Named("icmp")))
	return r
}

// Start begins probing every target.
func (m *Monitor) Start(ctx context.Context) error {
	if err := m.scheduler.Start(ctx); err != nil {
		return err
	}
	m.logger.Info("monitor started", zap.Int("targets", len(m.targets)))
	for _, t := range m.targets {
		m.logger.Debug("monitoring target",
			zap.String("alias", t.Alias),
			zap.String("kind", string(t.Kind())),
			zap.String("url", t.MonitorURL),
			zap.Duration("timeout", t.Timeout),
		)
	}
	return nil
}

// Stop cancels all probe loops and waits for them to exit.
func (m *Monitor) Stop() {
	start := time.Now()
	m.scheduler.Stop()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.logger.Info("monitor stopped", zap.Duration("took", time.Since(start)))
}

// Ready reports whether probe loops are running.
func (m *Monitor) Ready(context.Context) error {
	if !m.scheduler.Running() {
		return errNotRunning
	}
	return nil
}

// Store returns the status store.
func (m *Monitor) Store() *StatusStore { return m.store }

// Targets returns the configured targets in slot order.
func (m *Monitor) Targets() []Target { return m.targets }
