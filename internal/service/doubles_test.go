package service

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"giftdiscovery/internal/core/domain"
	"giftdiscovery/internal/core/ports"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type fakeSearchProvider struct {
	name   string
	hits   []domain.SearchHit
	hitsFn func(query string) []domain.SearchHit
	err    error
	panics bool

	mu    sync.Mutex
	calls int
}

func (f *fakeSearchProvider) Name() string { return f.name }

func (f *fakeSearchProvider) Search(ctx context.Context, productName string) ([]domain.SearchHit, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.panics {
		panic("search provider exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.hitsFn != nil {
		return f.hitsFn(productName), nil
	}
	return f.hits, nil
}

type fakeMetadataProvider struct {
	name      string
	record    domain.ProductRecord
	err       error
	accepts   func(url string) bool
	extractFn func(url string) (domain.ProductRecord, error)

	mu    sync.Mutex
	calls int
	urls  []string
}

func (f *fakeMetadataProvider) Name() string { return f.name }

func (f *fakeMetadataProvider) Accepts(url string) bool {
	if f.accepts == nil {
		return false
	}
	return f.accepts(url)
}

func (f *fakeMetadataProvider) Extract(ctx context.Context, url string) (domain.ProductRecord, error) {
	f.mu.Lock()
	f.calls++
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	if f.extractFn != nil {
		return f.extractFn(url)
	}
	if f.err != nil {
		return domain.ProductRecord{}, f.err
	}
	record := f.record
	if record.ProductURL == "" {
		record.ProductURL = url
	}
	return record, nil
}

func (f *fakeMetadataProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCompleter answers via respond when set, otherwise replays canned
// responses in order, repeating the last one.
type fakeCompleter struct {
	respond   func(prompt string) (string, error)
	responses []string
	err       error

	mu    sync.Mutex
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, opts ports.CompletionOptions) (string, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.respond != nil {
		return f.respond(prompt)
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStore struct {
	category  *domain.Category
	fetchErr  error
	insertErr error

	mu       sync.Mutex
	inserted []domain.ProductRecord
}

func (f *fakeStore) FetchCategory(ctx context.Context, id, ownerID string) (*domain.Category, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.category == nil || f.category.ID != id || f.category.OwnerID != ownerID {
		return nil, ports.ErrCategoryNotFound
	}
	return f.category, nil
}

func (f *fakeStore) InsertProducts(ctx context.Context, categoryID string, records []domain.ProductRecord) ([]domain.ProductRecord, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	out := make([]domain.ProductRecord, len(records))
	for i, record := range records {
		record.ID = record.Name + "-id"
		out[i] = record
	}
	f.mu.Lock()
	f.inserted = append(f.inserted, out...)
	f.mu.Unlock()
	return out, nil
}

func (f *fakeStore) insertedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

type fakeNotifier struct {
	err error

	mu     sync.Mutex
	events []domain.DiscoveryEvent
}

func (f *fakeNotifier) Notify(ctx context.Context, ownerID string, event domain.DiscoveryEvent) error {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
	return f.err
}

func (f *fakeNotifier) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}
