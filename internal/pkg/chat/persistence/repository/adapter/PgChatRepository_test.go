package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"go-chatsync/internal/infrastructure/database"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
	"go-chatsync/internal/pkg/chat/persistence/repository/repotest"
)

// startPostgres runs a throwaway postgres with the schema migrated. Tests
// skip when no container runtime is reachable.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("chatsync"),
		postgres.WithUsername("chatsync"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	pool, err := database.Connect(connectCtx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applied, err := database.Migrate(ctx, pool)
	require.NoError(t, err)
	require.NotEmpty(t, applied)

	again, err := database.Migrate(ctx, pool)
	require.NoError(t, err)
	assert.Empty(t, again)
	return pool
}

func TestPgChatRepository(t *testing.T) {
	pool := startPostgres(t)
	repotest.Run(t, func(t *testing.T) repository.ChatRepository {
		return NewPgChatRepository(pool)
	})
}

func TestPgChatRepository_MalformedIDIsNotFound(t *testing.T) {
	pool := startPostgres(t)
	repo := NewPgChatRepository(pool)

	_, err := repo.GetConversationRecord(context.Background(), "not-a-uuid", "also-not")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPgChatRepository_NilPool(t *testing.T) {
	repo := NewPgChatRepository(nil)
	err := repo.WithinTx(context.Background(), func(tx repository.ChatTx) error { return nil })
	assert.Error(t, err)

	_, err = repo.ListConversationRecords(context.Background(), "u")
	assert.Error(t, err)
}
