//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/fish-storefront/db"
	"github.com/xenking/fish-storefront/internal/domain/catalog"
	"github.com/xenking/fish-storefront/internal/storage"
	"github.com/xenking/fish-storefront/internal/storage/postgres"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:17-alpine",
		tcpostgres.WithDatabase("storefront_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.RunMigrations(ctx, pool))
	require.NoError(t, postgres.RunMigrations(ctx, pool), "migrations are idempotent")
	return pool
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := postgres.NewStore(newTestPool(t))
	require.NoError(t, s.Ping(ctx))

	scoped := storage.Scoped(s, "fish", "session-1")

	_, err := scoped.Get(ctx, storage.KeyCart)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, scoped.Set(ctx, storage.KeyCart, []byte(`[{"id":3,"quantity":2}]`)))
	require.NoError(t, scoped.Set(ctx, storage.KeyCart, []byte(`[{"id":3,"quantity":3}]`)))

	got, err := scoped.Get(ctx, storage.KeyCart)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":3,"quantity":3}]`, string(got))

	_, err = s.Get(ctx, "fish:session-2:cart")
	require.ErrorIs(t, err, storage.ErrNotFound, "sessions do not share keys")

	require.NoError(t, scoped.Delete(ctx, storage.KeyCart))
	require.NoError(t, scoped.Delete(ctx, storage.KeyCart), "deleting twice is fine")
	_, err = scoped.Get(ctx, storage.KeyCart)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCatalogRepository(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewCatalogRepository(newTestPool(t))

	items, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	seed, err := catalog.Decode(db.Catalog)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, seed))

	cat, err := catalog.Load(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, len(seed), cat.Len())

	it, ok := cat.Get(3)
	require.True(t, ok)
	assert.True(t, it.UnitPrice.Equal(decimal.NewFromInt(500)))

	seed[0].UnitPrice = decimal.RequireFromString("275.50")
	require.NoError(t, repo.Upsert(ctx, seed[:1]))

	items, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, len(seed))
	assert.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("275.5")))
}
