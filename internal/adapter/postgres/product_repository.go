package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/liveshop/internal/domain"
)

// ProductRepo reads the product catalog. It is the ProductLookup of last
// resort behind the caches.
type ProductRepo struct {
	pool *pgxpool.Pool
}

var _ domain.ProductLookup = (*ProductRepo)(nil)

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

const getProductSQL = `
SELECT ref, name, description, price_cents, currency, image_url, stock
FROM products
WHERE ref = $1`

func (r *ProductRepo) GetProduct(ctx context.Context, ref string) (domain.ProductDetails, error) {
	var (
		p          domain.ProductDetails
		priceCents int64
		stock      int32
	)

	err := r.pool.QueryRow(ctx, getProductSQL, ref).
		Scan(&p.Ref, &p.Name, &p.Description, &priceCents, &p.Currency, &p.ImageURL, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProductDetails{}, fmt.Errorf("product %s: %w", ref, domain.ErrProductNotFound)
	}
	if err != nil {
		return domain.ProductDetails{}, fmt.Errorf("failed to get product %s: %w", ref, err)
	}

	p.Price = formatPrice(priceCents)
	p.InStock = stock > 0
	return p, nil
}

const upsertProductSQL = `
INSERT INTO products (ref, name, description, price_cents, currency, image_url, stock)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (ref) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    currency = EXCLUDED.currency,
    image_url = EXCLUDED.image_url,
    stock = EXCLUDED.stock,
    updated_at = now()`

// ProductRow is a catalog entry as stored.
type ProductRow struct {
	Ref         string `json:"ref"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
	ImageURL    string `json:"image_url"`
	Stock       int    `json:"stock"`
}

// Upsert inserts or replaces a catalog entry. The showrunner uses it to seed
// products for a show.
func (r *ProductRepo) Upsert(ctx context.Context, row ProductRow) error {
	if row.Currency == "" {
		row.Currency = "EUR"
	}
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		row.Ref, row.Name, row.Description, row.PriceCents, row.Currency, row.ImageURL, row.Stock)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", row.Ref, err)
	}
	return nil
}

func formatPrice(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
