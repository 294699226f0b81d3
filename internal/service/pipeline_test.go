package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftdiscovery/internal/core/domain"
	"giftdiscovery/internal/core/ports"
	"giftdiscovery/internal/jobs"
)

const (
	testOwner    = "owner-1"
	testCategory = "cat-1"
)

type pipelineEnv struct {
	registry *jobs.Registry
	pipeline *Pipeline
	store    *fakeStore
	notifier *fakeNotifier
	search   *fakeSearchProvider
	metadata *fakeMetadataProvider
	complete *fakeCompleter
}

// newPipelineEnv wires a pipeline whose happy path discovers three fitness
// products. Individual tests override doubles before submitting.
func newPipelineEnv() *pipelineEnv {
	logger := testLogger()

	search := &fakeSearchProvider{
		name: "search",
		hitsFn: func(query string) []domain.SearchHit {
			return []domain.SearchHit{{
				Title: "Buy " + query,
				URL:   "https://store.example/" + strings.ReplaceAll(strings.ToLower(query), " ", "-"),
			}}
		},
	}
	metadata := &fakeMetadataProvider{
		name: "extractor",
		extractFn: func(url string) (domain.ProductRecord, error) {
			return domain.ProductRecord{Name: "Product at " + url, ProductURL: url}, nil
		},
	}
	// Keyed on prompt shape so interleaved calls from concurrent jobs each
	// get the right kind of answer.
	complete := &fakeCompleter{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, `"indices"`) {
			return `{"indices": [0, 1, 2]}`, nil
		}
		return `{"products": ["Fitbit Charge 6", "Theragun Mini", "Hydro Flask 32oz"]}`, nil
	}}
	store := &fakeStore{category: &domain.Category{
		ID:      testCategory,
		OwnerID: testOwner,
		Name:    "fitness gear",
	}}
	notifier := &fakeNotifier{}

	registry := jobs.NewRegistry(logger)
	searchOrch := NewSearchOrchestrator(logger, search)
	metadataOrch := NewMetadataOrchestrator(logger, ModeRouted, metadata, metadata)

	pipeline := NewPipeline(PipelineConfig{
		Registry: registry,
		Search:   searchOrch,
		Metadata: metadataOrch,
		Names:    NewNameExtractor(searchOrch, complete, logger),
		Selector: NewURLSelector(complete, logger),
		Store:    store,
		Notifier: notifier,
		Logger:   logger,
	})

	return &pipelineEnv{
		registry: registry,
		pipeline: pipeline,
		store:    store,
		notifier: notifier,
		search:   search,
		metadata: metadata,
		complete: complete,
	}
}

func awaitTerminal(t *testing.T, registry *jobs.Registry, jobID string) domain.Job {
	t.Helper()
	require.Eventually(t, func() bool {
		job, ok := registry.Get(jobID)
		return ok && job.Status.Terminal()
	}, 2*time.Second, 5*time.Millisecond, "job never reached a terminal state")

	job, ok := registry.Get(jobID)
	require.True(t, ok)
	return job
}

func TestPipelineSubmitReturnsImmediately(t *testing.T) {
	env := newPipelineEnv()

	jobID := env.pipeline.Submit(testOwner, testCategory, 3)
	require.NotEmpty(t, jobID)

	job, ok := env.registry.Get(jobID)
	require.True(t, ok)
	assert.Contains(t, []domain.JobStatus{
		domain.StatusPending, domain.StatusRunning,
		domain.StatusCompleted, domain.StatusFailed,
	}, job.Status)
}

func TestPipelineEndToEnd(t *testing.T) {
	env := newPipelineEnv()

	jobID := env.pipeline.Submit(testOwner, testCategory, 3)
	job := awaitTerminal(t, env.registry, jobID)

	require.Equal(t, domain.StatusCompleted, job.Status, "job error: %s", job.Error)
	require.NotNil(t, job.Result)
	assert.Equal(t, 3, job.Result.Count)
	assert.Equal(t, "fitness gear", job.Result.Category)
	assert.Len(t, job.Result.ProductIDs, 3)
	assert.Empty(t, job.Error)

	assert.Equal(t, 3, env.store.insertedCount())
	assert.Equal(t, 1, env.notifier.eventCount())
	require.Len(t, env.notifier.events, 1)
	assert.Equal(t, 3, env.notifier.events[0].ResultCount)
}

func TestPipelinePartialExtractionFailureStillCompletes(t *testing.T) {
	env := newPipelineEnv()
	env.metadata.extractFn = func(url string) (domain.ProductRecord, error) {
		if strings.Contains(url, "theragun") {
			return domain.ProductRecord{}, errors.New("scrape blocked")
		}
		return domain.ProductRecord{Name: "Product at " + url, ProductURL: url}, nil
	}

	jobID := env.pipeline.Submit(testOwner, testCategory, 3)
	job := awaitTerminal(t, env.registry, jobID)

	require.Equal(t, domain.StatusCompleted, job.Status, "job error: %s", job.Error)
	require.NotNil(t, job.Result)
	assert.Equal(t, 2, job.Result.Count, "partial success is not a job failure")
	assert.Equal(t, 2, env.store.insertedCount())
}

func TestPipelineAllExtractionsFail(t *testing.T) {
	env := newPipelineEnv()
	env.metadata.extractFn = func(url string) (domain.ProductRecord, error) {
		return domain.ProductRecord{}, errors.New("scrape blocked")
	}

	jobID := env.pipeline.Submit(testOwner, testCategory, 3)
	job := awaitTerminal(t, env.registry, jobID)

	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "could not extract metadata")
	assert.Equal(t, 0, env.store.insertedCount(), "no rows persisted on total extraction failure")
	assert.Nil(t, job.Result)
}

func TestPipelineCategoryNotFound(t *testing.T) {
	env := newPipelineEnv()

	jobID := env.pipeline.Submit(testOwner, "missing-category", 3)
	job := awaitTerminal(t, env.registry, jobID)

	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "not found")
	assert.Equal(t, 0, env.complete.callCount(), "no completion calls for an invalid category")
}

func TestPipelineOwnerMismatch(t *testing.T) {
	env := newPipelineEnv()

	jobID := env.pipeline.Submit("someone-else", testCategory, 3)
	job := awaitTerminal(t, env.registry, jobID)

	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "not found")
}

func TestPipelineNoNamesFound(t *testing.T) {
	env := newPipelineEnv()
	env.complete.respond = func(string) (string, error) {
		return `{"products": []}`, nil
	}

	jobID := env.pipeline.Submit(testOwner, testCategory, 3)
	job := awaitTerminal(t, env.registry, jobID)

	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "no products found")
}

func TestPipelineEmptySearchPool(t *testing.T) {
	env := newPipelineEnv()
	env.search.hitsFn = func(string) []domain.SearchHit { return nil }

	jobID := env.pipeline.Submit(testOwner, testCategory, 3)
	job := awaitTerminal(t, env.registry, jobID)

	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "no products found")
	assert.Equal(t, 0, env.complete.callCount(), "empty pool hard-stops before the completer")
}

func TestPipelinePersistenceFailure(t *testing.T) {
	env := newPipelineEnv()
	env.store.insertErr = errors.New("connection reset")

	jobID := env.pipeline.Submit(testOwner, testCategory, 3)
	job := awaitTerminal(t, env.registry, jobID)

	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "failed to save products")
	assert.Equal(t, 0, env.notifier.eventCount(), "failed jobs are not announced")
}

func TestPipelineNotificationFailureDoesNotFailJob(t *testing.T) {
	env := newPipelineEnv()
	env.notifier.err = errors.New("push gateway down")

	jobID := env.pipeline.Submit(testOwner, testCategory, 3)
	job := awaitTerminal(t, env.registry, jobID)

	assert.Equal(t, domain.StatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, 3, job.Result.Count)
}

func TestPipelineMalformedSelectionFallsBack(t *testing.T) {
	env := newPipelineEnv()
	env.complete.respond = func(prompt string) (string, error) {
		if strings.Contains(prompt, `"indices"`) {
			return "the model rambled instead of returning json", nil
		}
		return `{"products": ["Fitbit Charge 6", "Theragun Mini", "Hydro Flask 32oz"]}`, nil
	}

	jobID := env.pipeline.Submit(testOwner, testCategory, 3)
	job := awaitTerminal(t, env.registry, jobID)

	require.Equal(t, domain.StatusCompleted, job.Status, "job error: %s", job.Error)
	assert.Equal(t, 3, job.Result.Count)
}

func TestPipelineSurvivesPanickingProvider(t *testing.T) {
	env := newPipelineEnv()
	env.metadata.extractFn = func(url string) (domain.ProductRecord, error) {
		panic("nil map write")
	}

	jobID := env.pipeline.Submit(testOwner, testCategory, 3)
	job := awaitTerminal(t, env.registry, jobID)

	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.Equal(t, 0, env.store.insertedCount())
}

func TestPipelineConcurrentJobsIsolated(t *testing.T) {
	env := newPipelineEnv()

	ids := make([]string, 5)
	for i := range ids {
		ids[i] = env.pipeline.Submit(testOwner, testCategory, 3)
	}

	for _, id := range ids {
		job := awaitTerminal(t, env.registry, id)
		assert.Equal(t, domain.StatusCompleted, job.Status)
	}
	assert.Equal(t, 15, env.store.insertedCount())
}

func TestPipelineConcurrencyCap(t *testing.T) {
	env := newPipelineEnv()

	// Rebuild with a cap of 1; jobs still all finish.
	logger := testLogger()
	searchOrch := NewSearchOrchestrator(logger, env.search)
	metadataOrch := NewMetadataOrchestrator(logger, ModeRouted, env.metadata, env.metadata)
	capped := NewPipeline(PipelineConfig{
		Registry:          env.registry,
		Search:            searchOrch,
		Metadata:          metadataOrch,
		Names:             NewNameExtractor(searchOrch, env.complete, logger),
		Selector:          NewURLSelector(env.complete, logger),
		Store:             env.store,
		Notifier:          env.notifier,
		Logger:            logger,
		MaxConcurrentJobs: 1,
	})

	ids := make([]string, 3)
	for i := range ids {
		ids[i] = capped.Submit(testOwner, testCategory, 2)
	}
	for _, id := range ids {
		job := awaitTerminal(t, env.registry, id)
		assert.Equal(t, domain.StatusCompleted, job.Status, "job error: %s", job.Error)
	}
}

var (
	_ ports.ProductStore = (*fakeStore)(nil)
	_ ports.Notifier     = (*fakeNotifier)(nil)
)
