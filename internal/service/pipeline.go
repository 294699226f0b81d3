package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"giftdiscovery/internal/core/domain"
	"giftdiscovery/internal/core/ports"
	"giftdiscovery/internal/jobs"
)

// Pipeline sequences a discovery job: name extraction, per-name search
// fan-out, URL selection, metadata extraction, persistence, notification.
// Each job runs detached from the request that created it; the caller polls
// the registry for the outcome and never observes a raw error.
type Pipeline struct {
	registry  *jobs.Registry
	search    *SearchOrchestrator
	metadata  *MetadataOrchestrator
	names     *NameExtractor
	selector  *URLSelector
	store     ports.ProductStore
	notifier  ports.Notifier
	logger    *logrus.Logger

	// sem caps concurrently running jobs when non-nil. Nil means unbounded,
	// matching the historical behavior.
	sem chan struct{}
}

// PipelineConfig wires a Pipeline's collaborators.
type PipelineConfig struct {
	Registry *jobs.Registry
	Search   *SearchOrchestrator
	Metadata *MetadataOrchestrator
	Names    *NameExtractor
	Selector *URLSelector
	Store    ports.ProductStore
	Notifier ports.Notifier
	Logger   *logrus.Logger

	// MaxConcurrentJobs caps simultaneously running jobs. Zero or negative
	// means no cap.
	MaxConcurrentJobs int
}

// NewPipeline creates a discovery pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	p := &Pipeline{
		registry: cfg.Registry,
		search:   cfg.Search,
		metadata: cfg.Metadata,
		names:    cfg.Names,
		selector: cfg.Selector,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		logger:   logger,
	}
	if cfg.MaxConcurrentJobs > 0 {
		p.sem = make(chan struct{}, cfg.MaxConcurrentJobs)
	}
	return p
}

// Submit registers a new discovery job and starts it in the background,
// returning the job ID immediately.
func (p *Pipeline) Submit(ownerID, categoryID string, count int) string {
	jobID := p.registry.Create()

	p.logger.WithFields(logrus.Fields{
		"job_id":      jobID,
		"owner_id":    ownerID,
		"category_id": categoryID,
		"count":       count,
	}).Info("Discovery job submitted")

	go func() {
		if p.sem != nil {
			p.sem <- struct{}{}
			defer func() { <-p.sem }()
		}
		// Jobs outlive the submitting request, so they run on a fresh
		// context. There is no job-level cancellation.
		p.run(context.Background(), jobID, ownerID, categoryID, count)
	}()

	return jobID
}

// run drives one job through the registry state machine. Every failure path,
// including panics, terminates in a failed job; nothing escapes to the
// process-wide error channel.
func (p *Pipeline) run(ctx context.Context, jobID, ownerID, categoryID string, count int) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithField("job_id", jobID).Errorf("Discovery job panicked: %v", r)
			p.failJob(jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	running := domain.StatusRunning
	p.registry.Update(jobID, jobs.Update{Status: &running})

	log := p.logger.WithField("job_id", jobID)

	// Stage 1: the category must exist and belong to the requester.
	category, err := p.store.FetchCategory(ctx, categoryID, ownerID)
	if err != nil {
		log.WithError(err).Warn("Category lookup failed")
		p.failJob(jobID, err.Error())
		return
	}

	// Stage 2: turn the fuzzy category into concrete product names.
	log.WithField("category", category.Name).Info("Extracting product names")
	names, err := p.names.Extract(ctx, category.Name, count)
	if err != nil {
		p.failJob(jobID, fmt.Sprintf("product name extraction failed: %v", err))
		return
	}
	if len(names) == 0 {
		p.failJob(jobID, fmt.Sprintf("no products found for category %q", category.Name))
		return
	}

	// Stage 3: search every name across all providers concurrently and pool
	// the hits, each annotated with the name it was found for.
	pool := p.searchAllNames(ctx, names)
	if len(pool) == 0 {
		p.failJob(jobID, fmt.Sprintf("no search results for any product in category %q", category.Name))
		return
	}
	log.WithFields(logrus.Fields{"names": len(names), "hits": len(pool)}).Info("Pooled search hits")

	// Stage 4: pick the purchase pages.
	selected := p.selector.Select(ctx, pool, count)
	if len(selected) == 0 {
		p.failJob(jobID, fmt.Sprintf("no purchase pages selected for category %q", category.Name))
		return
	}

	// Stage 5: extract metadata for every selected URL concurrently. Failed
	// extractions stay visible as sentinels but are not persisted.
	records := p.extractAllURLs(ctx, selected)
	successes := make([]domain.ProductRecord, 0, len(records))
	for _, record := range records {
		if record.Failed() {
			log.WithFields(logrus.Fields{
				"url":      record.ProductURL,
				"provider": record.Provider,
			}).Warn("Extraction produced sentinel record, excluding from results")
			continue
		}
		successes = append(successes, record)
	}
	if len(successes) == 0 {
		p.failJob(jobID, "could not extract metadata for any product")
		return
	}

	// Stage 6: persist the batch.
	inserted, err := p.store.InsertProducts(ctx, category.ID, successes)
	if err != nil {
		p.failJob(jobID, fmt.Sprintf("failed to save products: %v", err))
		return
	}

	// Stage 7: terminal success.
	productIDs := make([]string, 0, len(inserted))
	for _, record := range inserted {
		productIDs = append(productIDs, record.ID)
	}
	result := &domain.DiscoveryResult{
		CategoryID: category.ID,
		Category:   category.Name,
		Count:      len(inserted),
		ProductIDs: productIDs,
	}
	completed := domain.StatusCompleted
	p.registry.Update(jobID, jobs.Update{Status: &completed, Result: result})
	log.WithField("count", result.Count).Info("Discovery job completed")

	// Stage 8: best-effort notification. A delivery failure never flips a
	// completed job.
	if p.notifier != nil {
		event := domain.DiscoveryEvent{
			JobID:       jobID,
			Category:    category.Name,
			ResultCount: result.Count,
		}
		if err := p.notifier.Notify(ctx, ownerID, event); err != nil {
			log.WithError(err).Warn("Completion notification failed")
		}
	}
}

// searchAllNames fans out across names, and within each name across
// providers, flattening everything into one annotated pool.
func (p *Pipeline) searchAllNames(ctx context.Context, names []string) []domain.SearchHit {
	perName := make([][]domain.SearchHit, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			var hits []domain.SearchHit
			for _, result := range p.search.FanOut(ctx, name) {
				for _, hit := range result.Value {
					hit.ProductName = name
					hits = append(hits, hit)
				}
			}
			perName[i] = hits
		}(i, name)
	}
	wg.Wait()

	var pool []domain.SearchHit
	for _, hits := range perName {
		pool = append(pool, hits...)
	}
	return pool
}

// extractAllURLs runs metadata extraction for every selected hit
// concurrently. One URL's failure never aborts its siblings.
func (p *Pipeline) extractAllURLs(ctx context.Context, selected []domain.SearchHit) []domain.ProductRecord {
	records := make([]domain.ProductRecord, len(selected))

	var wg sync.WaitGroup
	for i, hit := range selected {
		wg.Add(1)
		go func(i int, hit domain.SearchHit) {
			defer wg.Done()
			results := p.metadata.Extract(ctx, hit.URL)
			record := pickRecord(results)
			if record.Name == domain.UnknownProductName && hit.ProductName != "" && !record.Failed() {
				record.Name = hit.ProductName
			}
			records[i] = record
		}(i, hit)
	}
	wg.Wait()

	return records
}

// pickRecord reduces an orchestrator result set to one record: the first
// success, else the first sentinel. In routed mode there is exactly one.
func pickRecord(results []domain.ProviderResult[domain.ProductRecord]) domain.ProductRecord {
	if len(results) == 0 {
		return domain.ErrorRecord("", "", fmt.Errorf("no metadata providers configured"))
	}
	for _, result := range results {
		if !result.Value.Failed() {
			return result.Value
		}
	}
	return results[0].Value
}

func (p *Pipeline) failJob(jobID, message string) {
	failed := domain.StatusFailed
	p.registry.Update(jobID, jobs.Update{Status: &failed, Error: &message})
	p.logger.WithFields(logrus.Fields{
		"job_id": jobID,
		"error":  message,
	}).Warn("Discovery job failed")
}
