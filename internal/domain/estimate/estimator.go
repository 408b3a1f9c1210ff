package estimate

import (
	"context"
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/aimboard/aimboard/internal/adapters/repository"
	"github.com/aimboard/aimboard/internal/domain/bench"
	"github.com/aimboard/aimboard/pkg/clock"
	"github.com/aimboard/aimboard/pkg/logger"
	"github.com/aimboard/aimboard/pkg/metrics"
)

// stateKeyPrefix namespaces the persisted estimate map per player.
const stateKeyPrefix = "rank_state_v2_"

// Evolution constants. A session result moves the estimate halfway toward
// itself; a result more than two units above the current estimate anchors
// the estimate directly to sessionRank-2.
const (
	learningRate = 0.5
	anchorWindow = 2.0
)

// Estimator owns the per-player scenario estimate map: evolution, decay,
// penalties, and holistic aggregation. All read-modify-write sequences are
// serialized behind one mutex.
type Estimator struct {
	store   repository.Store
	catalog *bench.Catalog
	clk     clock.Clock
	log     logger.Logger
	player  string

	// mu serializes every read-modify-write against the persisted map.
	mu      sync.Mutex
	subs    map[string]map[int]func(ScenarioEstimate)
	allSubs map[int]func(string, ScenarioEstimate)
	nextSub int
}

// New creates an Estimator backed by the given store and benchmark catalog.
func New(store repository.Store, catalog *bench.Catalog, opts ...Option) *Estimator {
	e := &Estimator{
		store:   store,
		catalog: catalog,
		clk:     clock.New(),
		log:     logger.Get().Named("estimate"),
		player:  "local",
		subs:    make(map[string]map[int]func(ScenarioEstimate)),
		allSubs: make(map[int]func(string, ScenarioEstimate)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (est *Estimator) stateKey() string {
	return stateKeyPrefix + est.player
}

// load reads the estimate map, treating a missing or unreadable document as
// empty. Callers must hold the lock.
func (est *Estimator) load(ctx context.Context) map[string]ScenarioEstimate {
	m := make(map[string]ScenarioEstimate)
	err := est.store.Get(ctx, est.stateKey(), &m)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrKeyNotFound):
	default:
		est.log.Warn(ctx, "estimate state unreadable, starting empty", logger.Error(err))
		m = make(map[string]ScenarioEstimate)
	}
	if m == nil {
		m = make(map[string]ScenarioEstimate)
	}
	return m
}

// persist writes the estimate map back. Callers must hold the lock.
func (est *Estimator) persist(ctx context.Context, m map[string]ScenarioEstimate) error {
	if err := est.store.Put(ctx, est.stateKey(), m); err != nil {
		return errors.Wrap(err, "persist estimates")
	}
	metrics.UpdateTrackedScenarios(len(m))
	return nil
}

// Evolve folds a session result into a scenario's estimate. sessionRank is
// the rank-unit value of the session's best score. initialHint seeds the
// estimate when the scenario has never been tracked; pass 0 when unknown.
//
// The estimate is a ratchet: evolution never lowers it. A result far above
// the current estimate jumps it to sessionRank minus the anchor window
// instead of easing toward it.
func (est *Estimator) Evolve(ctx context.Context, scenario string, sessionRank, initialHint float64) error {
	est.mu.Lock()

	m := est.load(ctx)
	cur, ok := m[scenario]
	if !ok && initialHint > 0 {
		cur.ContinuousValue = initialHint
		cur.HighestAchieved = initialHint
	}

	anchorFloor := math.Max(0, sessionRank-anchorWindow)
	computed := cur.ContinuousValue
	if cur.ContinuousValue < anchorFloor {
		computed = anchorFloor
	} else {
		computed = cur.ContinuousValue + learningRate*(sessionRank-cur.ContinuousValue)
	}
	newValue := math.Max(cur.ContinuousValue, computed)

	cur.ContinuousValue = newValue
	cur.HighestAchieved = math.Max(cur.HighestAchieved, newValue)
	cur.LastUpdated = est.clk.Now()
	m[scenario] = cur

	if err := est.persist(ctx, m); err != nil {
		est.mu.Unlock()
		return err
	}
	fns := est.listeners(scenario)
	all := est.allListeners()
	est.mu.Unlock()

	est.log.Debug(ctx, "estimate evolved",
		logger.String("scenario", scenario),
		logger.Float64("session_rank", sessionRank),
		logger.Float64("value", cur.ContinuousValue))
	metrics.RecordRankEvolution()

	for _, fn := range fns {
		fn(cur)
	}
	for _, fn := range all {
		fn(scenario, cur)
	}
	return nil
}

// RecordPlay charges the overplay penalty for one play of a scenario: the
// penalty moves a tenth of the way toward its ceiling each time.
func (est *Estimator) RecordPlay(ctx context.Context, scenario string) error {
	est.mu.Lock()
	defer est.mu.Unlock()

	m := est.load(ctx)
	cur := m[scenario]
	cur.Penalty += (penaltyCeiling - cur.Penalty) * penaltyStep
	now := est.clk.Now()
	cur.LastPlayed = now
	cur.LastUpdated = now
	m[scenario] = cur

	return est.persist(ctx, m)
}

// Estimate returns the current estimate for a scenario. Unknown scenarios
// report a zero estimate and false.
func (est *Estimator) Estimate(ctx context.Context, scenario string) (ScenarioEstimate, bool) {
	est.mu.Lock()
	defer est.mu.Unlock()

	m := est.load(ctx)
	e, ok := m[scenario]
	return e, ok
}

// EstimateMap returns a copy of every tracked scenario estimate.
func (est *Estimator) EstimateMap(ctx context.Context) map[string]ScenarioEstimate {
	est.mu.Lock()
	defer est.mu.Unlock()

	return est.load(ctx)
}

// Count reports how many scenarios have a persisted estimate.
func (est *Estimator) Count(ctx context.Context) int {
	est.mu.Lock()
	defer est.mu.Unlock()

	return len(est.load(ctx))
}

// OnEstimateUpdated subscribes to evolution events for one scenario. The
// listener fires after the new value is persisted. The returned function
// removes the subscription.
func (est *Estimator) OnEstimateUpdated(scenario string, fn func(ScenarioEstimate)) func() {
	est.mu.Lock()
	defer est.mu.Unlock()

	if est.subs[scenario] == nil {
		est.subs[scenario] = make(map[int]func(ScenarioEstimate))
	}
	id := est.nextSub
	est.nextSub++
	est.subs[scenario][id] = fn

	return func() {
		est.mu.Lock()
		defer est.mu.Unlock()
		delete(est.subs[scenario], id)
	}
}

// OnAnyEstimateUpdated subscribes to evolution events for every scenario.
// The listener fires after the new value is persisted. The returned
// function removes the subscription.
func (est *Estimator) OnAnyEstimateUpdated(fn func(scenario string, e ScenarioEstimate)) func() {
	est.mu.Lock()
	defer est.mu.Unlock()

	id := est.nextSub
	est.nextSub++
	est.allSubs[id] = fn

	return func() {
		est.mu.Lock()
		defer est.mu.Unlock()
		delete(est.allSubs, id)
	}
}

// listeners snapshots the callbacks for a scenario. Callers must hold the
// lock.
func (est *Estimator) listeners(scenario string) []func(ScenarioEstimate) {
	if len(est.subs[scenario]) == 0 {
		return nil
	}
	fns := make([]func(ScenarioEstimate), 0, len(est.subs[scenario]))
	for _, fn := range est.subs[scenario] {
		fns = append(fns, fn)
	}
	return fns
}

// allListeners snapshots the any-scenario callbacks. Callers must hold
// the lock.
func (est *Estimator) allListeners() []func(string, ScenarioEstimate) {
	if len(est.allSubs) == 0 {
		return nil
	}
	fns := make([]func(string, ScenarioEstimate), 0, len(est.allSubs))
	for _, fn := range est.allSubs {
		fns = append(fns, fn)
	}
	return fns
}
