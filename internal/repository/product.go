package repository

import (
	"context"
	"fmt"
	"time"

	"rewe/crawler/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const Schema = `
CREATE TABLE IF NOT EXISTS products (
	product_id TEXT PRIMARY KEY,
	store      TEXT NOT NULL,
	title      TEXT NOT NULL,
	link       TEXT NOT NULL,
	price      NUMERIC(12, 2) NOT NULL,
	old_price  NUMERIC(12, 2) NOT NULL,
	saved      NUMERIC(12, 2) NOT NULL,
	brand      TEXT NOT NULL DEFAULT '',
	picture    TEXT NOT NULL DEFAULT '',
	query      TEXT NOT NULL DEFAULT '',
	crawled_at TIMESTAMPTZ NOT NULL
)`

const upsertProduct = `
INSERT INTO products (product_id, store, title, link, price, old_price, saved, brand, picture, query, crawled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (product_id)
DO UPDATE SET store = $2, title = $3, link = $4, price = $5, old_price = $6,
	saved = $7, brand = $8, picture = $9, query = $10, crawled_at = $11`

type ProductRepository interface {
	SaveProducts(ctx context.Context, query string, products []domain.Product) error
}

type productRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewProductRepository(db *pgxpool.Pool) ProductRepository {
	return &productRepository{
		db:  db,
		now: time.Now,
	}
}

// Migrate creates the products table when it is missing.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create products table: %w", err)
	}
	return nil
}

// SaveProducts upserts products in one batch. Products without an id are
// skipped since they cannot be keyed.
func (r *productRepository) SaveProducts(ctx context.Context, query string, products []domain.Product) error {
	crawledAt := r.now().UTC()

	batch := &pgx.Batch{}
	for _, p := range products {
		if p.ProductID == "" {
			continue
		}
		batch.Queue(upsertProduct, upsertArgs(p, query, crawledAt)...)
	}
	if batch.Len() == 0 {
		return nil
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save %d products: %w", batch.Len(), err)
	}
	return nil
}

func upsertArgs(p domain.Product, query string, crawledAt time.Time) []any {
	return []any{
		p.ProductID,
		p.Store,
		p.Title,
		p.Link,
		p.Price.StringFixed(2),
		p.OldPrice.StringFixed(2),
		p.Saved.StringFixed(2),
		p.Brand,
		p.Picture,
		query,
		crawledAt,
	}
}
