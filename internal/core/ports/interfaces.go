package ports

import (
	"context"
	"errors"

	"giftdiscovery/internal/core/domain"
)

// ErrCategoryNotFound is returned by FetchCategory when the category does not
// exist or is not owned by the requesting user. The two cases are deliberately
// indistinguishable to callers.
var ErrCategoryNotFound = errors.New("gift category not found")

// SearchProvider is the contract for a web-search backend. Each concrete
// provider owns its own query-construction convention.
type SearchProvider interface {
	// Name identifies the provider in tagged results and logs.
	Name() string

	// Search returns candidate purchase locations for a product name.
	Search(ctx context.Context, productName string) ([]domain.SearchHit, error)
}

// MetadataProvider is the contract for a product-metadata extraction backend.
type MetadataProvider interface {
	Name() string

	// Extract fetches structured product metadata for a URL.
	Extract(ctx context.Context, url string) (domain.ProductRecord, error)
}

// RoutedMetadataProvider is a MetadataProvider that only functions for a
// restricted URL family and self-reports it via Accepts.
type RoutedMetadataProvider interface {
	MetadataProvider

	// Accepts reports whether the provider can handle the given URL.
	Accepts(url string) bool
}

// CompletionOptions tune a single text-completion call.
type CompletionOptions struct {
	// ResponseFormat is "json" or "text".
	ResponseFormat string
	Temperature    float64
}

// Completer is an opaque text-completion capability. It is treated as
// unreliable: it may be slow, fail outright, or return malformed content.
// Every call site must handle both the error and the malformed-content path.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// ProductStore is the persistence collaborator boundary.
type ProductStore interface {
	// FetchCategory loads a category scoped to its owner. Returns
	// ErrCategoryNotFound when absent or owned by someone else.
	FetchCategory(ctx context.Context, id, ownerID string) (*domain.Category, error)

	// InsertProducts persists a batch of records for a category. The batch is
	// transactional: a partial insert surfaces as a single failure, never as
	// silently missing rows. Returns the inserted records with IDs assigned.
	InsertProducts(ctx context.Context, categoryID string, records []domain.ProductRecord) ([]domain.ProductRecord, error)
}

// Notifier informs a user that discovery results are ready. Delivery is
// fire-and-forget; callers log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, ownerID string, event domain.DiscoveryEvent) error
}
