package trending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"polls/pkg/common"
)

// RunLog keeps the history of trending cycles in Postgres.
type RunLog struct {
	db      *sql.DB
	timeout time.Duration
}

// NewRunLog bounds every statement by timeout; zero leaves it to ctx.
func NewRunLog(db *sql.DB, timeout time.Duration) *RunLog {
	return &RunLog{db: db, timeout: timeout}
}

func (l *RunLog) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout > 0 {
		return context.WithTimeout(ctx, l.timeout)
	}
	return context.WithCancel(ctx)
}

// classify marks failures caused by the deadline or cancellation as
// ErrUnavailable, same as the document stores do.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return err
}

func (l *RunLog) EnsureSchema(ctx context.Context) error {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()
	_, err := l.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS trending_runs (
		id BIGSERIAL PRIMARY KEY,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		scanned INTEGER NOT NULL,
		updated INTEGER NOT NULL,
		failed INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("trending/runlog: failed creating table: %w", classify(ctx, err))
	}
	return nil
}

func (l *RunLog) Record(ctx context.Context, r Report) error {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO trending_runs(started_at, finished_at, scanned, updated, failed) VALUES($1, $2, $3, $4, $5)",
		r.StartedAt, r.FinishedAt, r.Scanned, r.Updated, r.Failed)
	if err != nil {
		return fmt.Errorf("trending/runlog: run wasn't recorded: %w", classify(ctx, err))
	}
	return nil
}

func (l *RunLog) Latest(ctx context.Context) (*Report, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()
	row := l.db.QueryRowContext(ctx,
		"SELECT started_at, finished_at, scanned, updated, failed FROM trending_runs ORDER BY started_at DESC LIMIT 1")
	r := new(Report)
	err := row.Scan(&r.StartedAt, &r.FinishedAt, &r.Scanned, &r.Updated, &r.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("trending/runlog: could not scan row: %w", classify(ctx, err))
	}
	return r, nil
}
