package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/aimboard/aimboard/internal/domain/model"
	"github.com/aimboard/aimboard/pkg/logger"
	"github.com/aimboard/aimboard/pkg/metrics"
)

// The trainer drops one file per finished run into its stats directory,
// named "<scenario> - <YYYY.MM.DD-HH.MM.SS> Stats.csv". The body is a list
// of "Label:,value" rows of which only Score and Duration matter here.
const (
	statsSuffix     = " Stats.csv"
	statsTimeLayout = "2006.01.02-15.04.05"
)

// Source supplies score runs observed after a given time.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Fetch returns runs that appeared after since, oldest first. Callers
	// must tolerate runs they have already ingested; the filter is only a
	// coarse cursor.
	Fetch(ctx context.Context, since time.Time) ([]model.Run, error)
}

// DirSource reads per-run stats files from the trainer's export directory.
// Files are filtered by modification time against the caller's cursor; the
// run ID is the file name, which stays stable across polls.
type DirSource struct {
	dir    string
	player string
	log    logger.Logger

	mu      sync.Mutex
	badName map[string]struct{}
}

// NewDirSource creates a stats-directory source rooted at dir.
func NewDirSource(dir string, opts ...DirOption) *DirSource {
	s := &DirSource{
		dir:     dir,
		player:  "local",
		log:     logger.Get().Named("statsdir"),
		badName: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Source.
func (s *DirSource) Name() string { return "statsdir" }

// Fetch implements Source. Files with unparseable names are rejected once
// and then ignored; files whose body cannot be read yet (the trainer may
// still be writing them) are skipped and picked up on a later poll.
func (s *DirSource) Fetch(ctx context.Context, since time.Time) ([]model.Run, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read stats dir %s", s.dir)
	}

	var runs []model.Run
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, statsSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().After(since) {
			continue
		}
		scenario, playedAt, ok := parseStatsName(name)
		if !ok {
			s.rejectName(ctx, name)
			continue
		}
		score, seconds, err := readStatsBody(filepath.Join(s.dir, name))
		if err != nil {
			s.log.Debug(ctx, "stats file not readable yet",
				logger.String("file", name),
				logger.Error(err),
			)
			continue
		}
		runs = append(runs, model.Run{
			ID:       name,
			Player:   s.player,
			Scenario: scenario,
			Score:    score,
			Seconds:  seconds,
			PlayedAt: playedAt,
		})
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].PlayedAt.Before(runs[j].PlayedAt) })
	return runs, nil
}

// rejectName warns about a malformed file name exactly once. The name never
// changes, so repeating the warning every poll would only drown the log.
func (s *DirSource) rejectName(ctx context.Context, name string) {
	s.mu.Lock()
	_, known := s.badName[name]
	if !known {
		s.badName[name] = struct{}{}
	}
	s.mu.Unlock()

	if known {
		return
	}
	metrics.RecordRunRejected()
	s.log.Warn(ctx, "ignoring stats file with unparseable name", logger.String("file", name))
}

// parseStatsName splits "<scenario> - <timestamp> Stats.csv" into its parts.
// Scenario names may themselves contain " - ", so the timestamp is taken
// from the last separated segment. The trainer writes local wall-clock
// stamps, so they are parsed in the local zone.
func parseStatsName(name string) (string, time.Time, bool) {
	base := strings.TrimSuffix(name, statsSuffix)
	idx := strings.LastIndex(base, " - ")
	if idx < 1 {
		return "", time.Time{}, false
	}
	playedAt, err := time.ParseInLocation(statsTimeLayout, base[idx+3:], time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return base[:idx], playedAt, true
}

// readStatsBody pulls the score and duration rows out of a stats file.
// A file without a score row is an error; the trainer writes the file in
// one go, so a missing row usually means the write has not finished.
func readStatsBody(path string) (score, seconds float64, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, errors.Wrap(err, "read stats file")
	}

	haveScore := false
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Score:,"):
			v, perr := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "Score:,")), 64)
			if perr != nil {
				return 0, 0, errors.Wrap(perr, "parse score row")
			}
			score = v
			haveScore = true
		case strings.HasPrefix(line, "Duration:,"):
			if v, perr := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "Duration:,")), 64); perr == nil {
				seconds = v
			}
		}
	}
	if !haveScore {
		return 0, 0, errors.New("no score row")
	}
	return score, seconds, nil
}
