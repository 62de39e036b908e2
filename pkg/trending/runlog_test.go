package trending

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polls/pkg/common"
)

func TestRunLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("cant create mock: %s", err)
	}
	defer db.Close()

	runs := NewRunLog(db, time.Second)
	ctx := context.Background()
	rep := Report{StartedAt: now, FinishedAt: now, Scanned: 5, Updated: 4, Failed: 1}

	t.Run("should create table", func(t *testing.T) {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS trending_runs").
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.NoError(t, runs.EnsureSchema(ctx))
	})

	t.Run("should record run", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO trending_runs").
			WithArgs(rep.StartedAt, rep.FinishedAt, 5, 4, 1).
			WillReturnResult(sqlmock.NewResult(1, 1))
		assert.NoError(t, runs.Record(ctx, rep))
	})

	t.Run("should return DB error", func(t *testing.T) {
		expectedErr := fmt.Errorf("mock_db_error")
		mock.ExpectExec("INSERT INTO trending_runs").WillReturnError(expectedErr)
		assert.ErrorIs(t, runs.Record(ctx, rep), expectedErr)
	})

	t.Run("should return latest run", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"started_at", "finished_at", "scanned", "updated", "failed"}).
			AddRow(now, now, 5, 4, 1)
		mock.ExpectQuery("SELECT started_at, finished_at, scanned, updated, failed FROM trending_runs").
			WillReturnRows(rows)

		got, err := runs.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, &rep, got)
	})

	t.Run("should report no runs", func(t *testing.T) {
		mock.ExpectQuery("SELECT started_at").
			WillReturnRows(sqlmock.NewRows([]string{"started_at", "finished_at", "scanned", "updated", "failed"}))

		_, err := runs.Latest(ctx)
		assert.Equal(t, ErrNoRuns, err)
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations unfulfilled: %s", err)
	}
}

func TestRunLogTimeout(t *testing.T) {
	stalled := func(t *testing.T) (*RunLog, sqlmock.Sqlmock) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("cant create mock: %s", err)
		}
		t.Cleanup(func() { db.Close() })
		return NewRunLog(db, 20*time.Millisecond), mock
	}
	ctx := context.Background()

	t.Run("stalled insert", func(t *testing.T) {
		runs, mock := stalled(t)
		mock.ExpectExec("INSERT INTO trending_runs").
			WillDelayFor(time.Second).
			WillReturnResult(sqlmock.NewResult(1, 1))

		start := time.Now()
		err := runs.Record(ctx, Report{StartedAt: now, FinishedAt: now})
		assert.ErrorIs(t, err, common.ErrUnavailable)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("stalled query", func(t *testing.T) {
		runs, mock := stalled(t)
		mock.ExpectQuery("SELECT started_at").
			WillDelayFor(time.Second).
			WillReturnRows(sqlmock.NewRows([]string{"started_at", "finished_at", "scanned", "updated", "failed"}))

		_, err := runs.Latest(ctx)
		assert.ErrorIs(t, err, common.ErrUnavailable)
	})
}
