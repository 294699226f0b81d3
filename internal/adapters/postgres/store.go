package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"giftdiscovery/internal/core/domain"
	"giftdiscovery/internal/core/ports"
)

// Store implements ports.ProductStore on top of a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// FetchCategory loads a gift category scoped to its owner. A missing row and
// an owner mismatch both surface as ports.ErrCategoryNotFound.
func (s *Store) FetchCategory(ctx context.Context, id, ownerID string) (*domain.Category, error) {
	const query = `
		SELECT id, owner_id, name, COALESCE(description, ''), created_at
		FROM gift_categories
		WHERE id = $1 AND owner_id = $2`

	var cat domain.Category
	err := s.pool.QueryRow(ctx, query, id, ownerID).Scan(
		&cat.ID, &cat.OwnerID, &cat.Name, &cat.Description, &cat.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to fetch category %s: %w", id, err)
	}
	return &cat, nil
}

// InsertProducts persists a batch of product records inside one transaction.
// Any row failure rolls the whole batch back and surfaces as a single error.
func (s *Store) InsertProducts(ctx context.Context, categoryID string, records []domain.ProductRecord) ([]domain.ProductRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO products (
			id, category_id, name, price_amount, price_currency,
			image_urls, description, product_url, availability, brand,
			rating, review_count, provider, provider_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	inserted := make([]domain.ProductRecord, 0, len(records))
	for _, record := range records {
		record.ID = uuid.New().String()

		var amount *string
		if record.Price.Amount != nil {
			s := record.Price.Amount.String()
			amount = &s
		}

		if _, err := tx.Exec(ctx, query,
			record.ID, categoryID, record.Name, amount, record.Price.Currency,
			record.ImageURLs, record.Description, record.ProductURL,
			nullable(record.Availability), nullable(record.Brand),
			record.Rating, record.ReviewCount,
			record.Provider, nullable(record.ProviderID),
		); err != nil {
			return nil, fmt.Errorf("failed to insert product %q: %w", record.Name, err)
		}
		inserted = append(inserted, record)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit product batch: %w", err)
	}
	return inserted, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
