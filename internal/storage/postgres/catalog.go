package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/fish-storefront/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT id, name, description, price, image FROM products ORDER BY id`

	upsertProductSQL = `INSERT INTO products (id, name, description, price, image)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			image = EXCLUDED.image`
)

var _ catalog.Source = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Source on the products table.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns every product ordered by id.
func (r *CatalogRepository) List(ctx context.Context) ([]catalog.Item, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	return items, nil
}

// Upsert writes items in a single batch, replacing rows with the same id.
func (r *CatalogRepository) Upsert(ctx context.Context, items []catalog.Item) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(upsertProductSQL, it.ID, it.Name, it.Description, it.UnitPrice, it.ImageRef)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "upsert products")
	}
	return nil
}

func scanItem(row pgx.CollectableRow) (catalog.Item, error) {
	var it catalog.Item
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.UnitPrice, &it.ImageRef)
	return it, err
}
