package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"giftdiscovery/internal/core/domain"
	"giftdiscovery/internal/core/ports"
)

// MetadataMode selects how the metadata orchestrator dispatches a URL.
type MetadataMode string

const (
	// ModeRouted sends each URL to exactly one provider chosen by its
	// Accepts predicate, falling back to the default provider when none
	// match. Production mode.
	ModeRouted MetadataMode = "routed"
	// ModeFanOut sends each URL to every provider in parallel, for offline
	// comparison of provider quality. Not production traffic.
	ModeFanOut MetadataMode = "fanout"
)

// MetadataOrchestrator dispatches product-metadata extraction across the
// configured providers. Extraction failure for a URL yields an error-sentinel
// ProductRecord; errors never propagate past this boundary.
type MetadataOrchestrator struct {
	providers    []ports.MetadataProvider
	defaultProv  ports.MetadataProvider
	mode         MetadataMode
	logger       *logrus.Logger
}

// NewMetadataOrchestrator creates an orchestrator. defaultProvider handles
// routed-mode URLs no specialized provider accepts and must be one of
// providers.
func NewMetadataOrchestrator(logger *logrus.Logger, mode MetadataMode, defaultProvider ports.MetadataProvider, providers ...ports.MetadataProvider) *MetadataOrchestrator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if mode != ModeFanOut {
		mode = ModeRouted
	}
	return &MetadataOrchestrator{
		providers:   providers,
		defaultProv: defaultProvider,
		mode:        mode,
		logger:      logger,
	}
}

// Extract runs extraction for one URL under the configured mode. Routed mode
// returns exactly one tagged result; fan-out mode returns one per provider.
func (o *MetadataOrchestrator) Extract(ctx context.Context, url string) []domain.ProviderResult[domain.ProductRecord] {
	if o.mode == ModeFanOut {
		return o.extractAll(ctx, url)
	}
	provider := o.route(url)
	return []domain.ProviderResult[domain.ProductRecord]{o.extractOne(ctx, provider, url)}
}

// route picks the single provider for a URL: first Accepts match wins, in
// provider order, else the default. Deterministic for a fixed URL and
// provider set. A routed extraction failure does not fall back to another
// provider; predictable provider-appropriate extraction is preferred over
// fail-over here.
func (o *MetadataOrchestrator) route(url string) ports.MetadataProvider {
	for _, provider := range o.providers {
		routed, ok := provider.(ports.RoutedMetadataProvider)
		if ok && routed.Accepts(url) {
			return provider
		}
	}
	return o.defaultProv
}

func (o *MetadataOrchestrator) extractAll(ctx context.Context, url string) []domain.ProviderResult[domain.ProductRecord] {
	results := make([]domain.ProviderResult[domain.ProductRecord], len(o.providers))

	var wg sync.WaitGroup
	for i, provider := range o.providers {
		wg.Add(1)
		go func(i int, provider ports.MetadataProvider) {
			defer wg.Done()
			results[i] = o.extractOne(ctx, provider, url)
		}(i, provider)
	}
	wg.Wait()

	return results
}

// extractOne wraps a single provider call, converting errors and panics into
// a sentinel record so callers can tell "no data" from "crashed".
func (o *MetadataOrchestrator) extractOne(ctx context.Context, provider ports.MetadataProvider, url string) (result domain.ProviderResult[domain.ProductRecord]) {
	result = domain.ProviderResult[domain.ProductRecord]{Provider: provider.Name()}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("metadata provider %s panicked: %v", provider.Name(), r)
			result.Value = domain.ErrorRecord(url, provider.Name(), err)
			result.Err = err
			o.logger.WithField("provider", provider.Name()).Errorf("Metadata provider panicked: %v", r)
		}
	}()

	record, err := provider.Extract(ctx, url)
	if err != nil {
		o.logger.WithError(err).WithFields(logrus.Fields{
			"provider": provider.Name(),
			"url":      url,
		}).Warn("Metadata extraction failed")
		result.Value = domain.ErrorRecord(url, provider.Name(), err)
		result.Err = err
		return result
	}

	if record.Name == "" {
		record.Name = domain.UnknownProductName
	}
	if record.ImageURLs == nil {
		record.ImageURLs = []string{}
	}
	if record.Provider == "" {
		record.Provider = provider.Name()
	}
	result.Value = record
	return result
}
