package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("legendboard"),
		postgres.WithUsername("legendboard"),
		postgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := OpenMigrationDB(connString)
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, db, "up"))
	require.NoError(t, db.Close())

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return pool, cleanup
}

func TestPostgresRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewPostgresRepository(pool)

	t.Run("concurrent registration creates one account", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Create(ctx, NewAccount{Email: "race@x.com", Name: "Racer", PasswordHash: "h"})
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		created := 0
		for err := range results {
			if err == nil {
				created++
				continue
			}
			assert.ErrorIs(t, err, ErrEmailTaken)
		}
		assert.Equal(t, 1, created)
	})

	t.Run("federated account without password", func(t *testing.T) {
		a, err := repo.Create(ctx, NewAccount{Email: "fed@x.com", Name: "Fed", FederatedID: "g-123", Photo: "https://img"})
		require.NoError(t, err)
		assert.True(t, a.IsFederatedOnly())
		assert.Equal(t, "https://img", a.Photo)

		_, err = repo.Create(ctx, NewAccount{Email: "fed2@x.com", Name: "Fed", FederatedID: "g-123"})
		assert.ErrorIs(t, err, ErrFederatedIDTaken)
	})

	t.Run("reset token lifecycle", func(t *testing.T) {
		a, err := repo.Create(ctx, NewAccount{Email: "Reset@X.com", Name: "R", PasswordHash: "old"})
		require.NoError(t, err)

		now := time.Now()
		require.NoError(t, repo.SetResetToken(ctx, a.ID, "abc", now.Add(time.Hour)))

		found, err := repo.GetByResetTokenHash(ctx, "abc", now)
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)

		consumed, err := repo.ConsumeResetToken(ctx, "abc", now, "new")
		require.NoError(t, err)
		assert.Equal(t, "new", consumed.PasswordHash)
		assert.Equal(t, a.CredentialVersion+1, consumed.CredentialVersion)
		assert.Nil(t, consumed.ResetTokenExpiry)

		_, err = repo.ConsumeResetToken(ctx, "abc", now, "again")
		assert.ErrorIs(t, err, ErrResetTokenNotFound)

		require.NoError(t, repo.SetResetToken(ctx, a.ID, "old-token", now.Add(-time.Minute)))
		_, err = repo.GetByResetTokenHash(ctx, "old-token", now)
		assert.ErrorIs(t, err, ErrResetTokenNotFound)

		purged, err := repo.PurgeExpiredResetTokens(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), purged)
	})
}
