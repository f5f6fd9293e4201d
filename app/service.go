package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ngochaukiet2005/shuttle-dispatch/api/dispatch"
	"github.com/ngochaukiet2005/shuttle-dispatch/api/requests"
	"github.com/ngochaukiet2005/shuttle-dispatch/api/trips"
	"github.com/ngochaukiet2005/shuttle-dispatch/config"
	coredispatch "github.com/ngochaukiet2005/shuttle-dispatch/core/dispatch"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/dispatch/logging"
	coremetrics "github.com/ngochaukiet2005/shuttle-dispatch/core/metrics"
	coremon "github.com/ngochaukiet2005/shuttle-dispatch/core/monitoring"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/notify"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/scheduler"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/store"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/logger"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/metrics"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/monitoring"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/mqtt"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/postgres"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/routing"
	"github.com/ngochaukiet2005/shuttle-dispatch/internal/eventbus"
)

// Service wires the dispatch engine, persistence, notification and the
// HTTP surface together.
type Service struct {
	Engine *coredispatch.Engine
	Store  store.Store

	cfg      *config.Config
	bus      eventbus.EventBus
	log      logger.Logger
	monitor  coremon.Monitor
	logStore logging.LogStore
	closers  []func() error
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	monitor, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}

	svc := &Service{cfg: cfg, log: logg, monitor: monitor}

	st, err := svc.openStore()
	if err != nil {
		return nil, err
	}
	svc.Store = st

	provider, err := routing.New(cfg.Routing)
	if err != nil {
		svc.close()
		return nil, fmt.Errorf("routing provider: %w", err)
	}

	assembler, err := coredispatch.NewTripAssembler(provider.Geocoder, provider.Optimizer, cfg.Dispatch, logg)
	if err != nil {
		svc.close()
		return nil, fmt.Errorf("trip assembler: %w", err)
	}

	notifier, err := svc.openNotifier()
	if err != nil {
		svc.close()
		return nil, err
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Modules())
	if err != nil {
		svc.close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	bus := eventbus.New()
	svc.bus = bus
	ackTimeout := time.Duration(cfg.Dispatch.AckTimeoutSeconds) * time.Second
	engine, err := coredispatch.NewEngine(st, assembler, notifier, cfg.Slots, ackTimeout, sink, bus, logg)
	if err != nil {
		svc.close()
		return nil, fmt.Errorf("dispatch engine: %w", err)
	}
	svc.Engine = engine
	svc.closers = append(svc.closers, engine.Close)

	logStore, err := svc.openLogStore()
	if err != nil {
		svc.close()
		return nil, err
	}
	engine.SetLogStore(logStore)
	svc.logStore = logStore

	return svc, nil
}

func (s *Service) openStore() (store.Store, error) {
	switch s.cfg.Database.Backend {
	case "postgres":
		st, err := postgres.Open(s.cfg.Database.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		s.closers = append(s.closers, st.Close)
		return st, nil
	default:
		return store.NewMemoryStore(), nil
	}
}

// openNotifier connects to the MQTT broker; without a broker address
// the service falls back to the in-process mock so demo setups work.
func (s *Service) openNotifier() (notify.Notifier, error) {
	if s.cfg.MQTT.Broker == "" {
		s.log.Warnf("no mqtt broker configured, driver notifications are simulated")
		return mqtt.NewMockNotifier(), nil
	}
	n, err := mqtt.NewPahoNotifier(s.cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt notifier: %w", err)
	}
	s.closers = append(s.closers, func() error {
		n.Disconnect()
		return nil
	})
	return n, nil
}

func (s *Service) openLogStore() (logging.LogStore, error) {
	lc := s.cfg.Logging
	var (
		ls  logging.LogStore
		err error
	)
	switch lc.Backend {
	case "sqlite":
		ls, err = logging.NewSQLiteStore(lc.Path)
	case "rotating":
		ls, err = logging.NewRotatingJSONLStore(lc.Path, lc.MaxSizeMB, lc.MaxBackups, lc.MaxAgeDays)
	default:
		ls, err = logging.NewJSONLStore(lc.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("dispatch log store: %w", err)
	}
	s.closers = append(s.closers, ls.Close)
	return ls, nil
}

// Handler returns the HTTP routes of the service.
func (s *Service) Handler() http.Handler {
	token := s.cfg.API.Token
	reqHandler := requests.NewHandler(s.Store, s.cfg.Slots, s.Engine, s.cfg.Dispatch.EagerDispatch, token, s.log)

	mux := http.NewServeMux()
	mux.Handle("/api/dispatch", dispatch.NewDispatchHandler(s.Engine, token))
	mux.Handle("/api/dispatch/logs", dispatch.NewLogHandler(s.logStore, token))
	mux.Handle("/api/requests", reqHandler.Create())
	mux.Handle("/api/requests/", reqHandler.Cancel())
	mux.Handle("/api/trips/", trips.NewHandler(s.Store, token, s.log).Get())
	return mux
}

// Run serves the HTTP API and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	defer s.monitor.Recover()

	if s.cfg.Scheduler.Enabled {
		sched, err := scheduler.New(s.cfg.Scheduler, s.cfg.Slots, s.Engine, s.log)
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		go func() {
			if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Errorf("scheduler: %v", err)
			}
		}()
	}

	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              s.cfg.API.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("http api listening on %s", s.cfg.API.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http shutdown: %v", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			s.monitor.CaptureException(err, map[string]string{"component": "http"})
			return err
		}
		return nil
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.close()
	s.monitor.Flush(2 * time.Second)
	return nil
}

func (s *Service) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.log.Errorf("close: %v", err)
		}
	}
	s.closers = nil
}
