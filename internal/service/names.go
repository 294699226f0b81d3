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

// NameExtractor turns a fuzzy gift category into a list of concrete product
// names by searching the web and asking the completer to pull names out of
// the raw results.
type NameExtractor struct {
	search    *SearchOrchestrator
	completer ports.Completer
	logger    *logrus.Logger
}

// NewNameExtractor creates a name extraction step.
func NewNameExtractor(search *SearchOrchestrator, completer ports.Completer, logger *logrus.Logger) *NameExtractor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &NameExtractor{search: search, completer: completer, logger: logger}
}

// Extract returns up to count product names grounded in live search results
// for the category. Fewer than count names come back when the search pool
// does not ground more; the list is never padded. An empty pool short-circuits
// to an empty list without calling the completer.
func (e *NameExtractor) Extract(ctx context.Context, category string, count int) ([]string, error) {
	pool := e.collectPool(ctx, category, count)
	if len(pool) == 0 {
		e.logger.WithField("category", category).Warn("Search pool empty, skipping name extraction")
		return []string{}, nil
	}

	prompt := buildNamePrompt(category, count, pool)
	raw, err := e.completer.Complete(ctx, prompt, ports.CompletionOptions{
		ResponseFormat: "json",
		Temperature:    0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("name extraction completion failed: %w", err)
	}

	var parsed struct {
		Products []string `json:"products"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("malformed name extraction response: %w", err)
	}

	names := make([]string, 0, len(parsed.Products))
	for _, name := range parsed.Products {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// collectPool issues diversified queries through the search orchestrator and
// flattens the hits, oversampling to give the completer material to work with.
func (e *NameExtractor) collectPool(ctx context.Context, category string, count int) []domain.SearchHit {
	queries := []string{
		category,
		"best " + category,
		"top " + category,
	}

	perQuery := 2 * count
	if perQuery < 4 {
		perQuery = 4
	}

	var pool []domain.SearchHit
	for _, query := range queries {
		taken := 0
		for _, result := range e.search.FanOut(ctx, query) {
			for _, hit := range result.Value {
				if taken >= perQuery {
					break
				}
				pool = append(pool, hit)
				taken++
			}
		}
	}
	return pool
}

// buildNamePrompt renders the search pool verbatim and constrains the
// completer to names literally present in it. The grounding constraint lives
// in the prompt contract, not in post-hoc filtering.
func buildNamePrompt(category string, count int, pool []domain.SearchHit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are given raw web search results for the gift category %q.\n\n", category)
	for i, hit := range pool {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, hit.Title, hit.URL)
		if hit.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", hit.Snippet)
		}
	}
	fmt.Fprintf(&b, "\nExtract up to %d specific purchasable product names from the results above.\n", count)
	b.WriteString("Only include product names that literally appear in the supplied titles or snippets. ")
	b.WriteString("Do not invent, guess, or complete names that are not present in the text. ")
	b.WriteString("If fewer names are present, return fewer.\n")
	b.WriteString(`Respond with JSON: {"products": ["name", ...]}`)
	return b.String()
}
