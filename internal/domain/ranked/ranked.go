// Package ranked drives the guided "ranked session" mode: a sequenced
// gauntlet of scenarios picked by the Strong-Weak-Weak heuristic, played
// inside one practice window. Ending the session is the only path that
// commits results into the persistent rank estimates; abandoning it leaves
// them untouched.
package ranked

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/aimboard/aimboard/internal/adapters/repository"
	"github.com/aimboard/aimboard/internal/domain/bench"
	"github.com/aimboard/aimboard/internal/domain/estimate"
	"github.com/aimboard/aimboard/internal/domain/model"
	"github.com/aimboard/aimboard/internal/domain/session"
	"github.com/aimboard/aimboard/pkg/clock"
	"github.com/aimboard/aimboard/pkg/logger"
	"github.com/aimboard/aimboard/pkg/metrics"
)

// stateKeyPrefix namespaces the persisted ranked-session document per player.
const stateKeyPrefix = "ranked_session_v1_"

// defaultGauntletSize is the number of scenarios in the initial sequence
// and in each extension unless an option overrides it.
const defaultGauntletSize = 3

// dayLayout identifies the UTC calendar day a session belongs to.
const dayLayout = "2006-01-02"

// Status is the ranked state machine phase.
type Status string

const (
	// StatusIdle means no ranked session exists.
	StatusIdle Status = "IDLE"
	// StatusActive means a sequence is being played.
	StatusActive Status = "ACTIVE"
	// StatusCompleted means every sequence entry has been played and the
	// player chooses between extending and ending.
	StatusCompleted Status = "COMPLETED"
	// StatusSummary means the session ended and its results were committed.
	StatusSummary Status = "SUMMARY"
)

// State is the ranked session document. It is persisted as-is so an
// interrupted session can resume on the same day.
type State struct {
	ID                 string             `json:"id"`
	Status             Status             `json:"status"`
	Difficulty         string             `json:"difficulty"`
	Sequence           []string           `json:"sequence"`
	Current            int                `json:"current"`
	InitialEstimates   map[string]float64 `json:"initial_estimates"`
	AccumulatedSeconds map[string]float64 `json:"accumulated_seconds"`
	Played             []string           `json:"played"`
	GauntletComplete   bool               `json:"gauntlet_complete"`
	StartedAt          time.Time          `json:"started_at"`
	Day                string             `json:"day"`
}

// CurrentScenario returns the sequence entry the player is on.
func (s State) CurrentScenario() (string, bool) {
	if s.Current < 0 || s.Current >= len(s.Sequence) {
		return "", false
	}
	return s.Sequence[s.Current], true
}

// Service is the ranked session state machine. All transitions happen under
// one mutex; session-update callbacks arrive from the session service and
// are ignored unless a sequence is live.
type Service struct {
	store    repository.Store
	catalog  *bench.Catalog
	est      *estimate.Estimator
	sess     *session.Service
	clk      clock.Clock
	log      logger.Logger
	player   string
	gauntlet int

	mu        sync.Mutex
	state     State
	sceneFrom time.Time // when the current scenario became current
	subs      map[int]func(State)
	nextSub   int
	stopSess  func()
}

// New creates a ranked session service. The session service may be nil, in
// which case played-scenario tracking and end-of-session bests are empty.
func New(store repository.Store, catalog *bench.Catalog, est *estimate.Estimator, sess *session.Service, opts ...Option) *Service {
	s := &Service{
		store:    store,
		catalog:  catalog,
		est:      est,
		sess:     sess,
		clk:      clock.New(),
		log:      logger.Get().Named("ranked"),
		player:   "local",
		gauntlet: defaultGauntletSize,
		state:    State{Status: StatusIdle},
		subs:     make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sess != nil {
		s.stopSess = s.sess.OnSessionUpdated(s.onSessionUpdate)
	}
	return s
}

// Close detaches the service from the session update feed.
func (s *Service) Close() {
	if s.stopSess != nil {
		s.stopSess()
		s.stopSess = nil
	}
}

func (s *Service) stateKey() string {
	return stateKeyPrefix + s.player
}

// StartSession begins a ranked session for the difficulty, resuming a
// same-day session of that difficulty if one was interrupted. An empty or
// unknown scenario pool leaves the state IDLE rather than failing.
func (s *Service) StartSession(ctx context.Context, difficulty string) (State, error) {
	s.mu.Lock()
	if s.state.Status == StatusActive || s.state.Status == StatusCompleted {
		st := s.copyStateLocked()
		s.mu.Unlock()
		return st, errors.Wrapf(ErrSessionInProgress, "difficulty %s", st.Difficulty)
	}

	now := s.clk.Now()
	today := now.UTC().Format(dayLayout)

	if prev, ok := s.loadPrevious(ctx, today, difficulty); ok {
		s.resumeLocked(prev)
		s.sceneFrom = now
		if err := s.persistLocked(ctx); err != nil {
			s.mu.Unlock()
			return State{}, err
		}
		st, fns := s.snapshotAndListenersLocked()
		s.mu.Unlock()

		metrics.RecordRankedStarted()
		s.log.Info(ctx, "ranked session resumed",
			logger.String("difficulty", difficulty),
			logger.Int("current", st.Current))
		notify(st, fns)
		return st, nil
	}

	sequence, initial := s.buildSequence(ctx, difficulty, nil, s.gauntlet)
	if len(sequence) == 0 {
		st := s.copyStateLocked()
		s.mu.Unlock()
		s.log.Warn(ctx, "no scenarios available for ranked session",
			logger.String("difficulty", difficulty))
		return st, nil
	}

	s.state = State{
		ID:                 uuid.NewString(),
		Status:             StatusActive,
		Difficulty:         difficulty,
		Sequence:           sequence,
		Current:            0,
		InitialEstimates:   initial,
		AccumulatedSeconds: make(map[string]float64),
		Played:             []string{},
		StartedAt:          now,
		Day:                today,
	}
	s.sceneFrom = now
	if err := s.persistLocked(ctx); err != nil {
		s.state = State{Status: StatusIdle}
		s.mu.Unlock()
		return State{}, err
	}
	st, fns := s.snapshotAndListenersLocked()
	s.mu.Unlock()

	metrics.RecordRankedStarted()
	s.log.Info(ctx, "ranked session started",
		logger.String("difficulty", difficulty),
		logger.Any("sequence", sequence))
	notify(st, fns)
	return st, nil
}

// loadPrevious fetches the persisted session if it can be resumed: same UTC
// day, same difficulty, and not already ended.
func (s *Service) loadPrevious(ctx context.Context, today, difficulty string) (State, bool) {
	var prev State
	if err := s.store.Get(ctx, s.stateKey(), &prev); err != nil {
		if !errors.Is(err, repository.ErrKeyNotFound) {
			s.log.Warn(ctx, "ranked state unreadable, starting fresh", logger.Error(err))
		}
		return State{}, false
	}
	if prev.Day != today || prev.Difficulty != difficulty || len(prev.Sequence) == 0 {
		return State{}, false
	}
	if prev.Status != StatusActive && prev.Status != StatusCompleted {
		return State{}, false
	}
	return prev, true
}

// resumeLocked restores a persisted session, recomputing the cursor as one
// past the last sequence entry that was already played. Callers must hold
// the lock.
func (s *Service) resumeLocked(prev State) {
	played := make(map[string]bool, len(prev.Played))
	for _, name := range prev.Played {
		played[name] = true
	}

	idx := 0
	for i := len(prev.Sequence) - 1; i >= 0; i-- {
		if played[prev.Sequence[i]] {
			idx = i + 1
			break
		}
	}
	allPlayed := idx >= len(prev.Sequence)
	if allPlayed {
		idx = len(prev.Sequence) - 1
	}
	prev.Current = idx

	n := min(s.gauntlet, len(prev.Sequence))
	complete := true
	for _, name := range prev.Sequence[:n] {
		if !played[name] {
			complete = false
			break
		}
	}
	prev.GauntletComplete = prev.GauntletComplete || complete

	if allPlayed {
		prev.Status = StatusCompleted
	} else {
		prev.Status = StatusActive
	}
	if prev.InitialEstimates == nil {
		prev.InitialEstimates = make(map[string]float64)
	}
	if prev.AccumulatedSeconds == nil {
		prev.AccumulatedSeconds = make(map[string]float64)
	}
	s.state = prev
}

// Advance moves the cursor to the next sequence entry, banking the elapsed
// time of the one being left. At the end of the sequence it is a no-op.
func (s *Service) Advance(ctx context.Context) (State, error) {
	return s.move(ctx, 1)
}

// Retreat moves the cursor back one entry. Time for the scenario being
// returned to keeps accumulating on top of its earlier visits.
func (s *Service) Retreat(ctx context.Context) (State, error) {
	return s.move(ctx, -1)
}

func (s *Service) move(ctx context.Context, delta int) (State, error) {
	s.mu.Lock()
	if s.state.Status != StatusActive && s.state.Status != StatusCompleted {
		s.mu.Unlock()
		return State{Status: StatusIdle}, ErrNoActiveSession
	}
	next := s.state.Current + delta
	if next < 0 || next >= len(s.state.Sequence) {
		st := s.copyStateLocked()
		s.mu.Unlock()
		return st, nil
	}
	s.bankElapsedLocked()
	s.state.Current = next
	if err := s.persistLocked(ctx); err != nil {
		s.mu.Unlock()
		return State{}, err
	}
	st, fns := s.snapshotAndListenersLocked()
	s.mu.Unlock()

	notify(st, fns)
	return st, nil
}

// bankElapsedLocked folds the live timer into the accumulated seconds for
// the current scenario and restarts it. Callers must hold the lock.
func (s *Service) bankElapsedLocked() {
	now := s.clk.Now()
	if name, ok := s.state.CurrentScenario(); ok && !s.sceneFrom.IsZero() {
		s.state.AccumulatedSeconds[name] += now.Sub(s.sceneFrom).Seconds()
	}
	s.sceneFrom = now
}

// ExtendSession appends another Strong-Weak-Weak round to the sequence once
// the initial gauntlet is done, returning the session to ACTIVE. When the
// pool has no scenario left to add, the state is returned unchanged.
func (s *Service) ExtendSession(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.state.Status != StatusActive && s.state.Status != StatusCompleted {
		s.mu.Unlock()
		return State{Status: StatusIdle}, ErrNoActiveSession
	}
	if !s.gauntletDoneLocked() {
		st := s.copyStateLocked()
		s.mu.Unlock()
		return st, ErrGauntletIncomplete
	}

	exclude := make(map[string]bool, len(s.state.Sequence))
	for _, name := range s.state.Sequence {
		exclude[name] = true
	}
	more, initial := s.buildSequence(ctx, s.state.Difficulty, exclude, s.gauntlet)
	if len(more) == 0 {
		st := s.copyStateLocked()
		s.mu.Unlock()
		s.log.Warn(ctx, "scenario pool exhausted, cannot extend ranked session",
			logger.String("difficulty", s.state.Difficulty))
		return st, nil
	}

	s.state.Sequence = append(s.state.Sequence, more...)
	for name, value := range initial {
		if _, ok := s.state.InitialEstimates[name]; !ok {
			s.state.InitialEstimates[name] = value
		}
	}
	s.state.GauntletComplete = true
	s.state.Status = StatusActive
	if err := s.persistLocked(ctx); err != nil {
		s.mu.Unlock()
		return State{}, err
	}
	st, fns := s.snapshotAndListenersLocked()
	s.mu.Unlock()

	metrics.RecordRankedExtended()
	s.log.Info(ctx, "ranked session extended", logger.Any("added", more))
	notify(st, fns)
	return st, nil
}

// gauntletDoneLocked reports whether the first gauntlet's entries have all
// been played. Callers must hold the lock.
func (s *Service) gauntletDoneLocked() bool {
	if s.state.GauntletComplete {
		return true
	}
	played := make(map[string]bool, len(s.state.Played))
	for _, name := range s.state.Played {
		played[name] = true
	}
	n := min(s.gauntlet, len(s.state.Sequence))
	for _, name := range s.state.Sequence[:n] {
		if !played[name] {
			return false
		}
	}
	return true
}

// EndSession commits the session: every scenario best recorded in the
// practice window is converted to a continuous value and evolved against
// the estimate frozen when the sequence was built. This is the only path
// that feeds ranked results into the persistent estimates.
func (s *Service) EndSession(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.state.Status != StatusActive && s.state.Status != StatusCompleted {
		s.mu.Unlock()
		return State{Status: StatusIdle}, ErrNoActiveSession
	}
	s.bankElapsedLocked()

	var bests map[string]model.ScenarioBest
	if s.sess != nil {
		bests = s.sess.Snapshot().Bests
	}

	var firstErr error
	evolved := 0
	for name, best := range bests {
		sc, err := s.catalog.Scenario(name)
		if err != nil {
			s.log.Debug(ctx, "skipping unknown scenario at session end",
				logger.String("scenario", name))
			continue
		}
		sessionRU := estimate.ContinuousValue(best.Score, sc.Thresholds)
		hint := s.state.InitialEstimates[name]
		if err := s.est.Evolve(ctx, name, sessionRU, hint); err != nil {
			s.log.Error(ctx, "estimate evolution failed",
				logger.String("scenario", name), logger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		evolved++
	}

	s.state.Status = StatusSummary
	if err := s.persistLocked(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	st, fns := s.snapshotAndListenersLocked()
	s.mu.Unlock()

	metrics.RecordRankedCompleted()
	s.log.Info(ctx, "ranked session ended",
		logger.String("difficulty", st.Difficulty),
		logger.Int("evolved", evolved))
	notify(st, fns)
	return st, firstErr
}

// Reset abandons the session and returns to IDLE without evolving any
// estimate. The persisted document is removed so it cannot resume.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Status == StatusIdle {
		s.mu.Unlock()
		return nil
	}
	abandoned := s.state.Status == StatusActive || s.state.Status == StatusCompleted
	s.state = State{Status: StatusIdle}
	s.sceneFrom = time.Time{}
	if err := s.store.Delete(ctx, s.stateKey()); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "clear ranked state")
	}
	st, fns := s.snapshotAndListenersLocked()
	s.mu.Unlock()

	if abandoned {
		metrics.RecordRankedAbandoned()
	}
	s.log.Info(ctx, "ranked session reset")
	notify(st, fns)
	return nil
}

// State returns a read-only snapshot with the live timer folded into the
// current scenario's accumulated seconds.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyStateLocked()
}

// OnStateChanged subscribes to ranked state transitions. The returned
// function removes the subscription.
func (s *Service) OnStateChanged(fn func(State)) func() {
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

// onSessionUpdate marks sequence entries as played when the practice window
// records a best for them. It flips the session to COMPLETED once the whole
// sequence has been played. COMPLETED sessions still accept updates so a
// skipped entry can be filled in before extending or ending.
func (s *Service) onSessionUpdate(snap session.Snapshot) {
	ctx := context.Background()

	s.mu.Lock()
	if s.state.Status != StatusActive && s.state.Status != StatusCompleted {
		s.mu.Unlock()
		return
	}

	played := make(map[string]bool, len(s.state.Played))
	for _, name := range s.state.Played {
		played[name] = true
	}
	changed := false
	for _, name := range s.state.Sequence {
		if _, ok := snap.Bests[name]; ok && !played[name] {
			s.state.Played = append(s.state.Played, name)
			played[name] = true
			changed = true
		}
	}
	if !changed {
		s.mu.Unlock()
		return
	}

	if !s.state.GauntletComplete && s.gauntletDoneLocked() {
		s.state.GauntletComplete = true
	}
	if len(s.state.Played) >= len(s.state.Sequence) {
		s.state.Status = StatusCompleted
	}
	if err := s.persistLocked(ctx); err != nil {
		s.log.Error(ctx, "persisting ranked progress failed", logger.Error(err))
	}
	st, fns := s.snapshotAndListenersLocked()
	s.mu.Unlock()

	notify(st, fns)
}

// copyStateLocked deep-copies the state and folds the live scenario timer
// into the copy. Callers must hold the lock.
func (s *Service) copyStateLocked() State {
	st := s.state
	st.Sequence = append([]string(nil), s.state.Sequence...)
	st.Played = append([]string(nil), s.state.Played...)
	st.InitialEstimates = make(map[string]float64, len(s.state.InitialEstimates))
	for k, v := range s.state.InitialEstimates {
		st.InitialEstimates[k] = v
	}
	st.AccumulatedSeconds = make(map[string]float64, len(s.state.AccumulatedSeconds))
	for k, v := range s.state.AccumulatedSeconds {
		st.AccumulatedSeconds[k] = v
	}
	if s.state.Status == StatusActive || s.state.Status == StatusCompleted {
		if name, ok := s.state.CurrentScenario(); ok && !s.sceneFrom.IsZero() {
			st.AccumulatedSeconds[name] += s.clk.Now().Sub(s.sceneFrom).Seconds()
		}
	}
	return st
}

func (s *Service) snapshotAndListenersLocked() (State, []func(State)) {
	st := s.copyStateLocked()
	if len(s.subs) == 0 {
		return st, nil
	}
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return st, fns
}

func (s *Service) persistLocked(ctx context.Context) error {
	if err := s.store.Put(ctx, s.stateKey(), s.state); err != nil {
		return errors.Wrap(err, "persist ranked state")
	}
	return nil
}

func notify(st State, fns []func(State)) {
	for _, fn := range fns {
		fn(st)
	}
}
