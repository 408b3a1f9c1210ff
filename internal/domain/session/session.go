// Package session tracks the current practice window: a contiguous burst of
// play where consecutive runs land no further apart than the inactivity
// timeout. It owns the per-window best scores and notifies observers when
// the window changes or lapses.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aimboard/aimboard/internal/domain/bench"
	"github.com/aimboard/aimboard/internal/domain/model"
	"github.com/aimboard/aimboard/internal/domain/rank"
	"github.com/aimboard/aimboard/pkg/clock"
	"github.com/aimboard/aimboard/pkg/logger"
	"github.com/aimboard/aimboard/pkg/metrics"
)

// defaultTimeout closes a window after ten minutes without a run.
const defaultTimeout = 10 * time.Minute

// Snapshot is a read-only view of the session state handed to observers.
type Snapshot struct {
	ID        string                       `json:"id"`
	Active    bool                         `json:"active"`
	LastRun   time.Time                    `json:"last_run"`
	Bests     map[string]model.ScenarioBest `json:"bests"`
	BestRanks map[string]rank.Result       `json:"best_ranks"`
}

// Service is the practice session state machine. All mutation happens under
// one mutex; expiry timers re-validate a generation counter before acting so
// a stale timer can never touch a superseded window.
type Service struct {
	catalog *bench.Catalog
	clk     clock.Clock
	log     logger.Logger

	mu         sync.Mutex
	timeout    time.Duration
	id         string
	lastRun    time.Time
	bests      map[string]model.ScenarioBest
	bestRanks  map[string]rank.Result
	generation uint64
	timer      clock.Timer
	subs       map[int]func(Snapshot)
	nextSub    int
}

// New creates a session service over the given benchmark catalog.
func New(catalog *bench.Catalog, opts ...Option) *Service {
	s := &Service{
		catalog:   catalog,
		clk:       clock.New(),
		log:       logger.Get().Named("session"),
		timeout:   defaultTimeout,
		bests:     make(map[string]model.ScenarioBest),
		bestRanks: make(map[string]rank.Result),
		subs:      make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRun folds a single run into the session window.
func (s *Service) RegisterRun(ctx context.Context, run model.Run) {
	s.RegisterRuns(ctx, []model.Run{run})
}

// RegisterRuns folds a batch of runs into the session window. A run arriving
// after the inactivity timeout implicitly resets the window first. Observers
// are notified at most once per batch, and not at all when the batch changes
// nothing.
func (s *Service) RegisterRuns(ctx context.Context, runs []model.Run) {
	if len(runs) == 0 {
		return
	}

	s.mu.Lock()
	changed := false
	for _, run := range runs {
		if !s.lastRun.IsZero() && run.PlayedAt.Sub(s.lastRun) > s.timeout {
			s.clearLocked()
		}
		if s.id == "" {
			s.id = uuid.NewString()
			changed = true
			metrics.RecordSessionOpened()
			s.log.Debug(ctx, "session window opened", logger.String("session_id", s.id))
		}
		if run.PlayedAt.After(s.lastRun) {
			s.lastRun = run.PlayedAt
			changed = true
		}
		if s.foldLocked(run) {
			changed = true
		}
	}
	if !changed {
		s.mu.Unlock()
		return
	}

	s.scheduleLocked()
	snap := s.snapshotLocked()
	fns := s.listenersLocked()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// foldLocked applies one run's score to the best maps. Callers must hold the
// lock.
func (s *Service) foldLocked(run model.Run) bool {
	changed := false

	var thresholds []bench.Threshold
	difficulty := ""
	if sc, err := s.catalog.Scenario(run.Scenario); err == nil {
		thresholds = sc.Thresholds
		difficulty = sc.Difficulty
	}
	result := rank.Calculate(run.Score, thresholds)

	cur, ok := s.bests[run.Scenario]
	if !ok || run.Score > cur.Score {
		s.bests[run.Scenario] = model.ScenarioBest{
			Scenario: run.Scenario,
			Score:    run.Score,
			Rank:     result.Rank,
			PlayedAt: run.PlayedAt,
		}
		changed = true
		metrics.RecordBestUpdate()
	}

	if difficulty != "" {
		if best, ok := s.bestRanks[difficulty]; !ok || result.Better(best) {
			s.bestRanks[difficulty] = result
			changed = true
		}
	}
	return changed
}

// Reset clears the window immediately and notifies observers.
func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	s.clearLocked()
	snap := s.snapshotLocked()
	fns := s.listenersLocked()
	s.mu.Unlock()

	metrics.RecordSessionReset()
	s.log.Debug(ctx, "session window reset")
	for _, fn := range fns {
		fn(snap)
	}
}

// clearLocked wipes window state and invalidates pending timers. Callers
// must hold the lock.
func (s *Service) clearLocked() {
	s.id = ""
	s.lastRun = time.Time{}
	s.bests = make(map[string]model.ScenarioBest)
	s.bestRanks = make(map[string]rank.Result)
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Active reports whether the window is live right now. The timeout is
// evaluated against the current configuration on every call, so raising it
// can bring a lapsed window back without a new run.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked(s.clk.Now())
}

func (s *Service) activeLocked(now time.Time) bool {
	return !s.lastRun.IsZero() && now.Sub(s.lastRun) <= s.timeout
}

// Best returns the session best for one scenario.
func (s *Service) Best(scenario string) (model.ScenarioBest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bests[scenario]
	return b, ok
}

// Snapshot returns a copy of the whole session state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() Snapshot {
	bests := make(map[string]model.ScenarioBest, len(s.bests))
	for k, v := range s.bests {
		bests[k] = v
	}
	ranks := make(map[string]rank.Result, len(s.bestRanks))
	for k, v := range s.bestRanks {
		ranks[k] = v
	}
	return Snapshot{
		ID:        s.id,
		Active:    s.activeLocked(s.clk.Now()),
		LastRun:   s.lastRun,
		Bests:     bests,
		BestRanks: ranks,
	}
}

// SetTimeout reconfigures the inactivity window and reschedules the pending
// expiry against it.
func (s *Service) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
	if !s.lastRun.IsZero() {
		s.scheduleLocked()
	}
}

// Timeout returns the configured inactivity window.
func (s *Service) Timeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

// OnSessionUpdated subscribes to window changes and expiries. The returned
// function removes the subscription.
func (s *Service) OnSessionUpdated(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Service) listenersLocked() []func(Snapshot) {
	if len(s.subs) == 0 {
		return nil
	}
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return fns
}

// scheduleLocked arms the passive expiry timer for the current window,
// superseding any earlier one. Callers must hold the lock.
func (s *Service) scheduleLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.generation++
	gen := s.generation
	delay := s.lastRun.Add(s.timeout).Sub(s.clk.Now())
	if delay < 0 {
		delay = 0
	}
	s.timer = s.clk.AfterFunc(delay, func() { s.expire(gen) })
}

// expire runs when the passive timer fires. The window state is kept so a
// later timeout increase can revive it; observers just learn the window
// lapsed.
func (s *Service) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	if s.activeLocked(s.clk.Now()) {
		// The timeout grew after this timer was armed. Re-arm for the
		// remainder instead of expiring a live window.
		s.scheduleLocked()
		s.mu.Unlock()
		return
	}
	s.timer = nil
	snap := s.snapshotLocked()
	fns := s.listenersLocked()
	s.mu.Unlock()

	metrics.RecordSessionExpired()
	for _, fn := range fns {
		fn(snap)
	}
}
