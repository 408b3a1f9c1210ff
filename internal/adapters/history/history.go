// Package history keeps the append-only run log in SQL. Every accepted run
// lands here exactly once, keyed by its run id, so trainers that re-deliver
// stat files cannot double-count plays.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/aimboard/aimboard/internal/domain/model"
	"github.com/aimboard/aimboard/pkg/clock"
	"github.com/aimboard/aimboard/pkg/logger"
	"github.com/aimboard/aimboard/pkg/metrics"
)

// defaultQueryLimit caps query results when the caller does not.
const defaultQueryLimit = 500

// Entry is one logged run.
type Entry struct {
	ID         string    `json:"id"`
	Player     string    `json:"player"`
	Scenario   string    `json:"scenario"`
	Score      float64   `json:"score"`
	Seconds    float64   `json:"seconds"`
	Rank       string    `json:"rank"`
	SessionID  string    `json:"session_id"`
	PlayedAt   time.Time `json:"played_at"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Query filters the run log. Zero values mean "no filter"; Limit is clamped
// to the log's configured maximum.
type Query struct {
	Player   string
	Scenario string
	Since    time.Time
	Until    time.Time
	Limit    int
}

// Stats summarizes the logged runs of one scenario for one player.
type Stats struct {
	Scenario   string    `json:"scenario"`
	PlayCount  int64     `json:"play_count"`
	BestScore  float64   `json:"best_score"`
	AvgScore   float64   `json:"avg_score"`
	LastPlayed time.Time `json:"last_played"`
}

// Log is the SQL-backed run log.
type Log struct {
	db       *sql.DB
	clk      clock.Clock
	log      logger.Logger
	maxLimit int
}

// NewLog wraps an opened database.
func NewLog(db *sql.DB, opts ...Option) *Log {
	l := &Log{
		db:       db,
		clk:      clock.New(),
		log:      logger.Get().Named("history"),
		maxLimit: defaultQueryLimit,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Close releases the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Record appends one run. Re-recording an id already in the log is a silent
// no-op, which makes ingestion retries safe.
func (l *Log) Record(ctx context.Context, run model.Run, rank, sessionID string) error {
	res, err := l.db.ExecContext(ctx, `INSERT INTO runs
		(id, player, scenario, score, seconds, rank, session_id, played_at, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO NOTHING`,
		run.ID, run.Player, run.Scenario, run.Score, run.Seconds,
		rank, sessionID, run.PlayedAt.Unix(), l.clk.Now().Unix())
	if err != nil {
		return errors.Wrap(err, "record run")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		l.log.Debug(ctx, "run already logged", logger.String("run_id", run.ID))
		return nil
	}
	metrics.RecordHistoryInsert()
	return nil
}

// Runs returns logged runs matching the query, newest first.
func (l *Log) Runs(ctx context.Context, q Query) ([]Entry, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.Player != "" {
		add("player = $%d", q.Player)
	}
	if q.Scenario != "" {
		add("scenario = $%d", q.Scenario)
	}
	if !q.Since.IsZero() {
		add("played_at >= $%d", q.Since.Unix())
	}
	if !q.Until.IsZero() {
		add("played_at <= $%d", q.Until.Unix())
	}

	limit := q.Limit
	if limit <= 0 || limit > l.maxLimit {
		limit = l.maxLimit
	}

	query := `SELECT id, player, scenario, score, seconds, rank, session_id, played_at, recorded_at FROM runs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY played_at DESC LIMIT $%d", len(args))

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			played   int64
			recorded int64
		)
		if err := rows.Scan(&e.ID, &e.Player, &e.Scenario, &e.Score, &e.Seconds,
			&e.Rank, &e.SessionID, &played, &recorded); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		e.PlayedAt = time.Unix(played, 0).UTC()
		e.RecordedAt = time.Unix(recorded, 0).UTC()
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "iterate runs")
}

// ScenarioStats aggregates the log for one player and scenario. A scenario
// with no runs yields zero stats, not an error.
func (l *Log) ScenarioStats(ctx context.Context, player, scenario string) (Stats, error) {
	row := l.db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(score), AVG(score), MAX(played_at)
		FROM runs WHERE player = $1 AND scenario = $2`, player, scenario)

	var (
		st   = Stats{Scenario: scenario}
		best sql.NullFloat64
		avg  sql.NullFloat64
		last sql.NullInt64
	)
	if err := row.Scan(&st.PlayCount, &best, &avg, &last); err != nil {
		return Stats{}, errors.Wrap(err, "scan scenario stats")
	}
	st.BestScore = best.Float64
	st.AvgScore = avg.Float64
	if last.Valid {
		st.LastPlayed = time.Unix(last.Int64, 0).UTC()
	}
	return st, nil
}
