// Package ingest feeds trainer score runs into the dashboard.
//
// A Poller periodically asks every Source for new runs, drops anything it
// has already delivered, and hands the remainder to a Sink oldest first.
// Sources that keep failing are polled less and less often so a missing
// stats directory does not flood the log.
package ingest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/aimboard/aimboard/internal/domain/model"
	"github.com/aimboard/aimboard/pkg/logger"
	"github.com/aimboard/aimboard/pkg/metrics"
)

const (
	defaultInterval = 2 * time.Second

	// maxCooldownPolls caps the error backoff per source.
	maxCooldownPolls = 32

	// watermarkSlack is subtracted from each source cursor so a file the
	// trainer finished writing just after a newer run was ingested still
	// gets picked up. Re-fetched runs are absorbed by the seen-set.
	watermarkSlack = 30 * time.Second
)

// Sink receives batches of newly observed runs, oldest first.
type Sink interface {
	Ingest(ctx context.Context, runs []model.Run) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, runs []model.Run) error

// Ingest implements Sink.
func (f SinkFunc) Ingest(ctx context.Context, runs []model.Run) error { return f(ctx, runs) }

// Poller drives the ingestion loop across one or more sources.
type Poller struct {
	sink     Sink
	sources  []Source
	interval time.Duration
	seen     *SeenSet
	log      logger.Logger

	mu       sync.Mutex
	since    map[string]time.Time
	failures map[string]int
	cooldown map[string]int

	shutdown chan struct{}
	done     chan struct{}
}

// NewPoller creates a poller that delivers runs from sources to sink.
func NewPoller(sink Sink, sources []Source, opts ...Option) *Poller {
	p := &Poller{
		sink:     sink,
		sources:  sources,
		interval: defaultInterval,
		seen:     NewSeenSet(0),
		log:      logger.Get().Named("ingest"),
		since:    make(map[string]time.Time),
		failures: make(map[string]int),
		cooldown: make(map[string]int),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls on the configured interval until ctx is canceled or Shutdown
// is called. The first poll happens immediately.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Shutdown stops the polling loop and waits for any in-flight poll.
func (p *Poller) Shutdown(ctx context.Context) error {
	close(p.shutdown)

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.log.Warn(ctx, "poller shutdown timed out")
		return errors.Wrap(ctx.Err(), "poller shutdown")
	}
}

// fetchResult carries one source's successful fetch back to the poll loop.
type fetchResult struct {
	name string
	last time.Time
	runs []model.Run
}

// Poll fetches every due source once and delivers the new runs to the sink.
// It returns the number of runs delivered and may be called directly to
// force a sync outside the regular cadence.
func (p *Poller) Poll(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	var (
		mu      sync.Mutex
		results []fetchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range p.due() {
		g.Go(func() error {
			runs, err := src.Fetch(gctx, p.cursor(src.Name()))
			if err != nil {
				p.backOff(gctx, src.Name(), err)
				return nil // one broken source must not stop the others
			}
			p.clearBackoff(src.Name())
			if len(runs) == 0 {
				return nil
			}
			last := runs[0].PlayedAt
			for _, r := range runs[1:] {
				if r.PlayedAt.After(last) {
					last = r.PlayedAt
				}
			}
			mu.Lock()
			results = append(results, fetchResult{name: src.Name(), last: last, runs: runs})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	fresh := p.screen(ctx, results)
	if len(fresh) == 0 {
		p.advance(results)
		return 0
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].PlayedAt.Before(fresh[j].PlayedAt) })

	if err := p.sink.Ingest(ctx, fresh); err != nil {
		p.log.Error(ctx, "sink refused batch, will retry",
			logger.Int("runs", len(fresh)),
			logger.Error(err),
		)
		for _, r := range fresh {
			p.seen.Forget(ctx, r.ID)
		}
		return 0
	}

	p.advance(results)
	p.log.Debug(ctx, "delivered runs", logger.Int("runs", len(fresh)))
	return len(fresh)
}

// due decrements every cooling-down source by one poll and returns the
// sources that should be fetched this round.
func (p *Poller) due() []Source {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Source, 0, len(p.sources))
	for _, src := range p.sources {
		if cd := p.cooldown[src.Name()]; cd > 0 {
			p.cooldown[src.Name()] = cd - 1
			continue
		}
		out = append(out, src)
	}
	return out
}

// screen filters fetched runs through the seen-set, keeping only runs that
// have not been delivered before.
func (p *Poller) screen(ctx context.Context, results []fetchResult) []model.Run {
	var fresh []model.Run
	for _, res := range results {
		for _, r := range res.runs {
			if p.seen.Seen(ctx, r.ID) {
				metrics.RecordRunDuplicate()
				continue
			}
			fresh = append(fresh, r)
		}
	}
	return fresh
}

// cursor returns the fetch cursor for a source, pulled back by the slack
// window.
func (p *Poller) cursor(name string) time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.since[name]
	if !ok || w.IsZero() {
		return time.Time{}
	}
	return w.Add(-watermarkSlack)
}

// advance moves each source cursor to the newest run it returned. Cursors
// only move after the batch is in the sink so a refused batch is re-fetched.
func (p *Poller) advance(results []fetchResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, res := range results {
		if res.last.After(p.since[res.name]) {
			p.since[res.name] = res.last
		}
	}
}

// backOff stretches the polling interval for a failing source, doubling the
// skipped polls up to the cap.
func (p *Poller) backOff(ctx context.Context, name string, err error) {
	p.mu.Lock()
	p.failures[name]++
	polls := 1 << (p.failures[name] - 1)
	if polls > maxCooldownPolls {
		polls = maxCooldownPolls
	}
	p.cooldown[name] = polls
	p.mu.Unlock()

	p.log.Warn(ctx, "source fetch failed",
		logger.String("source", name),
		logger.Int("skip_polls", polls),
		logger.Error(err),
	)
}

// clearBackoff resets the failure count after a successful fetch.
func (p *Poller) clearBackoff(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failures, name)
}
