package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/loopline/concierge/internal/store"
	"github.com/loopline/concierge/internal/store/model"
	"github.com/loopline/concierge/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) store.Repository {
	t.Helper()

	repo, err := sqlite.NewStorage("file:" + t.TempDir() + "/test.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func attempt(requestID, provider, outcome string) *model.AttemptLog {
	return &model.AttemptLog{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Provider:  provider,
		Model:     "test-model",
		Outcome:   outcome,
		LatencyMS: 42,
		CreatedAt: time.Now().UTC(),
	}
}

func TestAttemptRepo_LogAndFetchTrail(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Attempts().Log(ctx, attempt("req-1", "openrouter", "rate_limited")))
	require.NoError(t, repo.Attempts().Log(ctx, attempt("req-1", "sdkchat", "success")))
	require.NoError(t, repo.Attempts().Log(ctx, attempt("req-2", "openrouter", "success")))

	trail, err := repo.Attempts().GetByRequestID(ctx, "req-1")
	require.NoError(t, err)

	require.Len(t, trail, 2)
	assert.Equal(t, "openrouter", trail[0].Provider)
	assert.Equal(t, "sdkchat", trail[1].Provider)
}

func TestAttemptRepo_DailyStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Attempts().Log(ctx, attempt("req-1", "openrouter", "fatal")))
	require.NoError(t, repo.Attempts().Log(ctx, attempt("req-1", "sdkchat", "success")))

	stats, err := repo.Attempts().GetDailyStats(ctx, 7)
	require.NoError(t, err)

	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].TotalAttempts)
	assert.Equal(t, 1, stats[0].Successes)
}

func TestAttemptRepo_EmptyTrail(t *testing.T) {
	repo := newTestRepo(t)

	trail, err := repo.Attempts().GetByRequestID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, trail)
}
