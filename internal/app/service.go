// Package service assembles the dashboard: it owns every domain component
// and exposes the operations the HTTP layer serves.
package service

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/aimboard/aimboard/internal/adapters/history"
	"github.com/aimboard/aimboard/internal/adapters/http/api"
	"github.com/aimboard/aimboard/internal/adapters/http/ws"
	"github.com/aimboard/aimboard/internal/adapters/ingest"
	"github.com/aimboard/aimboard/internal/adapters/repository"
	"github.com/aimboard/aimboard/internal/config"
	"github.com/aimboard/aimboard/internal/domain/bench"
	"github.com/aimboard/aimboard/internal/domain/estimate"
	"github.com/aimboard/aimboard/internal/domain/ranked"
	"github.com/aimboard/aimboard/internal/domain/session"
	"github.com/aimboard/aimboard/pkg/clock"
	"github.com/aimboard/aimboard/pkg/logger"
)

// shutdownGrace bounds how long Stop waits for an in-flight poll.
const shutdownGrace = 5 * time.Second

// stateFile is the bolt database inside the data dir.
const stateFile = "aimboard.db"

// historyFile is the default sqlite run log inside the data dir.
const historyFile = "history.db"

// Service wires the domain components together and carries the runtime
// lifecycle. The HTTP layer talks to it exclusively through the api
// dependency interfaces it implements.
type Service struct {
	cfg *config.Config
	clk clock.Clock
	log logger.Logger
	hub *ws.Hub

	mu      sync.Mutex
	started bool

	store   repository.Store
	catalog *bench.Catalog
	est     *estimate.Estimator
	sess    *session.Service
	ranked  *ranked.Service
	hist    *history.Log
	poller  *ingest.Poller

	unsubs []func()
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock replaces the wall clock every component is built on, mainly
// for tests.
func WithClock(clk clock.Clock) Option {
	return func(s *Service) {
		if clk != nil {
			s.clk = clk
		}
	}
}

// New constructs a Service around the given configuration. Nothing is
// opened until Start.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New(context.Background())
	}
	s := &Service{
		cfg:    cfg,
		clk:    clock.New(),
		log:    logger.Get().Named("app"),
		hub:    ws.NewHub(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the stores, builds the domain services, and launches the
// poller and the decay sweep.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.stopCh = make(chan struct{})

	s.log.Info(ctx, "starting dashboard service...")

	if err := os.MkdirAll(s.cfg.DataDir, 0o755); err != nil {
		return errors.Wrap(err, "create data dir")
	}
	store, err := repository.NewBoltStore(filepath.Join(s.cfg.DataDir, stateFile))
	if err != nil {
		return errors.Wrap(err, "open state store")
	}

	catalog := bench.Default()
	if s.cfg.BenchmarkFile != "" {
		catalog, err = bench.Load(s.cfg.BenchmarkFile)
		if err != nil {
			_ = store.Close()
			return errors.Wrap(err, "load benchmark catalog")
		}
	}

	s.store = store
	s.catalog = catalog
	s.est = estimate.New(store, catalog,
		estimate.WithPlayer(s.cfg.Player),
		estimate.WithClock(s.clk),
	)
	s.sess = session.New(catalog,
		session.WithTimeout(time.Duration(s.cfg.SessionTimeoutSeconds)*time.Second),
		session.WithClock(s.clk),
	)
	s.ranked = ranked.New(store, catalog, s.est, s.sess,
		ranked.WithPlayer(s.cfg.Player),
		ranked.WithGauntletLength(s.cfg.RankedLength),
		ranked.WithClock(s.clk),
	)

	db, err := history.Open(ctx, history.Driver(s.cfg.HistoryDriver), s.historyDSN())
	if err != nil {
		s.ranked.Close()
		_ = store.Close()
		return errors.Wrap(err, "open run history")
	}
	s.hist = history.NewLog(db,
		history.WithMaxLimit(s.cfg.MaxQueryLimit),
		history.WithClock(s.clk),
	)

	s.unsubs = append(s.unsubs,
		s.est.OnAnyEstimateUpdated(s.onEstimateUpdated),
		s.sess.OnSessionUpdated(s.onSessionUpdated),
		s.ranked.OnStateChanged(s.onRankedChanged),
	)

	// The poller and the sweep only see started=true once this method's
	// deferred unlock runs, so their first pass cannot race the wiring.
	s.started = true

	if s.cfg.StatsDir != "" {
		src := ingest.NewDirSource(s.cfg.StatsDir, ingest.WithPlayer(s.cfg.Player))
		s.poller = ingest.NewPoller(ingest.SinkFunc(s.Ingest), []ingest.Source{src},
			ingest.WithInterval(time.Duration(s.cfg.PollIntervalSeconds)*time.Second),
		)
		poller := s.poller
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			poller.Run(context.Background())
		}()
	}

	s.wg.Add(1)
	go s.sweepLoop()

	s.log.Info(ctx, "dashboard service started",
		logger.String("player", s.cfg.Player),
		logger.Int("catalog_scenarios", catalog.Size()),
		logger.Bool("polling", s.cfg.StatsDir != ""),
	)
	return nil
}

// Stop shuts the service down: the poller finishes its current poll, the
// sweep loop exits, clients are disconnected and the stores close.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	poller := s.poller
	stopCh := s.stopCh
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	ctx := context.Background()
	s.log.Info(ctx, "stopping dashboard service...")

	if poller != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
		if err := poller.Shutdown(shutdownCtx); err != nil {
			s.log.Warn(ctx, "poller did not stop cleanly", logger.Error(err))
		}
		cancel()
	}
	close(stopCh)
	s.wg.Wait()

	for _, unsub := range unsubs {
		unsub()
	}
	s.ranked.Close()
	s.hub.Close()
	if err := s.hist.Close(); err != nil {
		s.log.Warn(ctx, "close run history", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.log.Warn(ctx, "close state store", logger.Error(err))
	}
	s.log.Info(ctx, "dashboard service stopped")
}

// HandleWS serves the live update socket.
func (s *Service) HandleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.HandleWS(w, r)
}

// ready reports whether Start has completed and Stop has not begun.
func (s *Service) ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// historyDSN resolves the run-log DSN: an explicit one wins, otherwise the
// sqlite driver gets a file inside the data dir.
func (s *Service) historyDSN() string {
	if s.cfg.HistoryDSN != "" || history.Driver(s.cfg.HistoryDriver) != history.DriverSQLite {
		return s.cfg.HistoryDSN
	}
	path := filepath.Join(s.cfg.DataDir, historyFile)
	return "file:" + path + "?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
}

// sweepLoop applies inactivity decay and the daily penalty lift on a fixed
// cadence. The first sweep runs immediately so downtime is caught up on
// startup; both operations are same-day no-ops when re-run.
func (s *Service) sweepLoop() {
	defer s.wg.Done()
	stopCh := s.stopCh

	interval := time.Duration(s.cfg.DecaySweepMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := context.Background()
	s.sweep(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	if _, err := s.est.ApplyDailyDecay(ctx); err != nil {
		s.log.Warn(ctx, "decay sweep failed", logger.Error(err))
	}
	if _, err := s.est.ApplyPenaltyLift(ctx); err != nil {
		s.log.Warn(ctx, "penalty lift failed", logger.Error(err))
	}
}

// onEstimateUpdated bridges estimate evolutions onto the socket.
func (s *Service) onEstimateUpdated(scenario string, e estimate.ScenarioEstimate) {
	sc, err := s.catalog.Scenario(scenario)
	if err != nil {
		return
	}
	s.hub.Broadcast(context.Background(), ws.EventEstimateUpdated, api.EstimateView{
		Scenario:   scenario,
		Category:   sc.Category,
		Difficulty: sc.Difficulty,
		Estimate:   e,
		Display:    s.est.EstimateForValue(e.Effective(), sc.Difficulty),
	})
}

// onSessionUpdated bridges practice window changes onto the socket.
func (s *Service) onSessionUpdated(snap session.Snapshot) {
	s.hub.Broadcast(context.Background(), ws.EventSessionUpdated, snap)
}

// onRankedChanged bridges ranked state transitions onto the socket.
func (s *Service) onRankedChanged(st ranked.State) {
	s.hub.Broadcast(context.Background(), ws.EventRankedStateChanged, st)
}
