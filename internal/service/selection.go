package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"giftdiscovery/internal/core/domain"
	"giftdiscovery/internal/core/ports"
)

// URLSelector ranks raw search hits for purchase-worthiness. Most hits are
// not purchase pages; the completer picks the ones that are.
type URLSelector struct {
	completer ports.Completer
	logger    *logrus.Logger
}

// NewURLSelector creates a URL selection step.
func NewURLSelector(completer ports.Completer, logger *logrus.Logger) *URLSelector {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &URLSelector{completer: completer, logger: logger}
}

// Select picks up to count hits that look like direct e-commerce purchase
// pages. A malformed or failed ranking response falls back to the first count
// hits in input order; selection never fails the job on its own.
func (s *URLSelector) Select(ctx context.Context, hits []domain.SearchHit, count int) []domain.SearchHit {
	if len(hits) == 0 {
		return nil
	}
	if count > len(hits) {
		count = len(hits)
	}

	indices, err := s.rank(ctx, hits, count)
	if err != nil {
		s.logger.WithError(err).Warn("URL ranking failed, falling back to input order")
		return hits[:count]
	}

	selected := make([]domain.SearchHit, 0, count)
	for _, idx := range indices {
		if idx < 0 || idx >= len(hits) {
			continue
		}
		if len(selected) == count {
			break
		}
		selected = append(selected, hits[idx])
	}
	if len(selected) == 0 {
		s.logger.Warn("URL ranking selected nothing usable, falling back to input order")
		return hits[:count]
	}
	return selected
}

func (s *URLSelector) rank(ctx context.Context, hits []domain.SearchHit, count int) ([]int, error) {
	raw, err := s.completer.Complete(ctx, buildSelectionPrompt(hits, count), ports.CompletionOptions{
		ResponseFormat: "json",
		Temperature:    0,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Indices []int `json:"indices"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("malformed selection response: %w", err)
	}
	return parsed.Indices, nil
}

func buildSelectionPrompt(hits []domain.SearchHit, count int) string {
	var b strings.Builder
	b.WriteString("You are given an indexed list of web search results:\n\n")
	for i, hit := range hits {
		fmt.Fprintf(&b, "%d. [%s] %s\n   %s\n", i, hit.ProductName, hit.Title, hit.URL)
	}
	fmt.Fprintf(&b, "\nSelect exactly %d indices pointing at direct e-commerce purchase pages ", count)
	b.WriteString("where the product can be bought. Exclude review sites, comparison sites, and editorial content. ")
	b.WriteString("When possible, prefer covering distinct product names over multiple pages for the same product.\n")
	b.WriteString(`Respond with JSON: {"indices": [0, ...]}`)
	return b.String()
}
