package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"giftdiscovery/internal/core/domain"
	"giftdiscovery/internal/core/ports"
)

// SearchOrchestrator fans a query out to every configured search provider
// concurrently and collects results tagged by origin. Per-provider failures
// are isolated: a slow or broken provider yields an empty, error-tagged entry
// and never poisons its siblings.
//
// No total-timeout is enforced at this layer; individual providers own their
// own timeouts. Known limitation.
type SearchOrchestrator struct {
	providers []ports.SearchProvider
	logger    *logrus.Logger
}

// NewSearchOrchestrator creates an orchestrator over the given providers.
func NewSearchOrchestrator(logger *logrus.Logger, providers ...ports.SearchProvider) *SearchOrchestrator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SearchOrchestrator{providers: providers, logger: logger}
}

// FanOut invokes every provider concurrently and waits for all to settle.
// The result always has one entry per provider, in provider order.
func (o *SearchOrchestrator) FanOut(ctx context.Context, query string) []domain.ProviderResult[[]domain.SearchHit] {
	results := make([]domain.ProviderResult[[]domain.SearchHit], len(o.providers))

	var wg sync.WaitGroup
	for i, provider := range o.providers {
		wg.Add(1)
		go func(i int, provider ports.SearchProvider) {
			defer wg.Done()
			results[i] = o.searchOne(ctx, provider, query)
		}(i, provider)
	}
	wg.Wait()

	return results
}

// searchOne runs a single provider, converting any error or panic into an
// empty, error-tagged result.
func (o *SearchOrchestrator) searchOne(ctx context.Context, provider ports.SearchProvider, query string) (result domain.ProviderResult[[]domain.SearchHit]) {
	result = domain.ProviderResult[[]domain.SearchHit]{
		Provider: provider.Name(),
		Value:    []domain.SearchHit{},
	}

	defer func() {
		if r := recover(); r != nil {
			result.Value = []domain.SearchHit{}
			result.Err = fmt.Errorf("search provider %s panicked: %v", provider.Name(), r)
			o.logger.WithField("provider", provider.Name()).Errorf("Search provider panicked: %v", r)
		}
	}()

	hits, err := provider.Search(ctx, query)
	if err != nil {
		result.Err = err
		o.logger.WithError(err).WithFields(logrus.Fields{
			"provider": provider.Name(),
			"query":    query,
		}).Warn("Search provider failed")
		return result
	}

	if hits != nil {
		result.Value = hits
	}
	return result
}
