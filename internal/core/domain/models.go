package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobStatus represents the lifecycle state of a discovery job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one unit of trackable asynchronous discovery work.
type Job struct {
	ID        string           `json:"job_id"`
	Status    JobStatus        `json:"status"`
	Result    *DiscoveryResult `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// DiscoveryResult summarizes a completed discovery job.
type DiscoveryResult struct {
	CategoryID string   `json:"category_id"`
	Category   string   `json:"category"`
	Count      int      `json:"count"`
	ProductIDs []string `json:"product_ids"`
}

// Category is a fuzzy gift idea description owned by a user.
type Category struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SearchHit is a candidate purchase location surfaced by one search provider.
// Duplicate URLs across providers are expected; deduplication is left to the
// selection step.
type SearchHit struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Snippet       string `json:"snippet,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	Author        string `json:"author,omitempty"`

	// ProductName is the extracted product name this hit was searched for.
	// Set by the pipeline when pooling hits, empty at the provider layer.
	ProductName string `json:"product_name,omitempty"`
}

// Price holds a monetary amount and its ISO-4217 currency code. The fields
// are independent: a provider may report one without the other.
type Price struct {
	Amount   *decimal.Decimal `json:"amount"`
	Currency *string          `json:"currency"`
}

// UnknownProductName is the name sentinel applied when extraction could not
// recover a product name at all.
const UnknownProductName = "Unknown Product"

// ProductRecord is normalized product metadata regardless of origin provider.
type ProductRecord struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Price       Price    `json:"price"`
	ImageURLs   []string `json:"image_urls"`
	Description string   `json:"description"`

	// ProductURL is the canonical URL actually used for extraction; it may
	// differ from the requested URL if the provider resolved redirects.
	ProductURL string `json:"product_url"`

	Availability string   `json:"availability,omitempty"`
	Brand        string   `json:"brand,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	ReviewCount  *int     `json:"review_count,omitempty"`

	// ProviderID is a provider-specific identifier, e.g. an ASIN.
	ProviderID string `json:"provider_id,omitempty"`
	// Provider names the metadata provider that produced this record.
	Provider string `json:"provider,omitempty"`

	// ExtractionError marks the record as an error sentinel: extraction for
	// this URL faulted and no trustworthy data is present.
	ExtractionError string `json:"extraction_error,omitempty"`
}

// Failed reports whether the record is an error sentinel rather than data.
func (r ProductRecord) Failed() bool {
	return r.ExtractionError != ""
}

// ErrorRecord builds the sentinel ProductRecord for a failed extraction, so
// callers can tell "no data" apart from "crashed" without handling errors
// past the orchestrator boundary.
func ErrorRecord(url, provider string, err error) ProductRecord {
	msg := "extraction failed"
	if err != nil {
		msg = err.Error()
	}
	return ProductRecord{
		Name:            UnknownProductName,
		ImageURLs:       []string{},
		ProductURL:      url,
		Provider:        provider,
		ExtractionError: msg,
	}
}

// ProviderResult tags a provider's output with its originating provider name,
// enabling attribution when multiple providers run for the same input.
type ProviderResult[T any] struct {
	Provider string `json:"provider"`
	Value    T      `json:"value"`
	Err      error  `json:"-"`
}

// DiscoveryEvent is the payload delivered to notification channels when a
// discovery job finishes.
type DiscoveryEvent struct {
	JobID       string `json:"job_id"`
	OwnerID     string `json:"owner_id"`
	Category    string `json:"category"`
	ResultCount int    `json:"result_count"`
}
