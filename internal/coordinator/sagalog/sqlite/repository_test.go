package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kyellog-silog/rustique-cafe/internal/coordinator/sagalog"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "saga.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func owned(e *sagalog.SagaLog, owner string) *sagalog.SagaLog {
	e.Owner = owner
	return e
}

func TestRepository_GetLatestReturnsLastTransition(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, owned(sagalog.NewEntry(ctx, "order-1", sagalog.StatusStarted, "", `{"items":1}`, nil), "acct-1")))
	require.NoError(t, repo.Save(ctx, owned(sagalog.NewEntry(ctx, "order-1", sagalog.StatusStepDone, "Insert_Order_Step", "", nil), "acct-1")))
	require.NoError(t, repo.Save(ctx, owned(sagalog.NewEntry(ctx, "order-1", sagalog.StatusCompleted, "", "", nil), "acct-1")))

	got, err := repo.GetLatest(ctx, "acct-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, sagalog.StatusCompleted, got.Status)
	assert.Equal(t, "acct-1", got.Owner)
	assert.Empty(t, got.Payload)
	assert.Equal(t, "[]", got.ErrorMessages)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestRepository_GetLatestUnknownSaga(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.GetLatest(context.Background(), "acct-1", "missing")
	assert.ErrorIs(t, err, sagalog.ErrNotFound)
}

func TestRepository_ListLatestByStatusIgnoresSupersededRows(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	save := func(id string, status sagalog.Status, errs []string) {
		require.NoError(t, repo.Save(ctx, owned(sagalog.NewEntry(ctx, id, status, "Insert_Line_Items_Step", "", errs), "acct-1")))
	}
	save("a", sagalog.StatusCompensating, []string{"items failed"})
	save("a", sagalog.StatusCompensationFailed, []string{"items failed", "delete failed"})
	save("b", sagalog.StatusCompensating, []string{"items failed"})
	save("b", sagalog.StatusFailed, []string{"items failed"})
	save("c", sagalog.StatusCompensationFailed, []string{"x", "y"})

	got, err := repo.ListLatestByStatus(ctx, "acct-1", sagalog.StatusCompensationFailed, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].SagaID)
	assert.Equal(t, "a", got[1].SagaID)
	assert.Equal(t, []string{"items failed", "delete failed"}, got[1].Errors())

	compensating, err := repo.ListLatestByStatus(ctx, "acct-1", sagalog.StatusCompensating, 10)
	require.NoError(t, err)
	assert.Empty(t, compensating)
}

func TestRepository_ReadsAreScopedToOwner(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, owned(sagalog.NewEntry(ctx, "order-1", sagalog.StatusCompensationFailed, "", "", []string{"x"}), "acct-1")))
	require.NoError(t, repo.Save(ctx, owned(sagalog.NewEntry(ctx, "order-2", sagalog.StatusCompensationFailed, "", "", []string{"y"}), "acct-2")))

	_, err := repo.GetLatest(ctx, "acct-2", "order-1")
	assert.ErrorIs(t, err, sagalog.ErrNotFound)

	mine, err := repo.ListLatestByStatus(ctx, "acct-2", sagalog.StatusCompensationFailed, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "order-2", mine[0].SagaID)

	none, err := repo.ListLatestByStatus(ctx, "acct-3", sagalog.StatusCompensationFailed, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOpen_AddsOwnerColumnToExistingLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saga.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE saga_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		saga_id TEXT NOT NULL,
		status TEXT NOT NULL,
		current_step TEXT NOT NULL DEFAULT '',
		payload TEXT,
		error_messages TEXT NOT NULL DEFAULT '[]',
		trace_id TEXT NOT NULL DEFAULT '',
		span_id TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, owned(sagalog.NewEntry(ctx, "order-1", sagalog.StatusCompleted, "", "", nil), "acct-1")))
	got, err := repo.GetLatest(ctx, "acct-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", got.Owner)
}
