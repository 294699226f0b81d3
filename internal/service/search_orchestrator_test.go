package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftdiscovery/internal/core/domain"
)

func TestFanOutTagsResultsByProvider(t *testing.T) {
	a := &fakeSearchProvider{name: "alpha", hits: []domain.SearchHit{{Title: "A", URL: "https://a.example"}}}
	b := &fakeSearchProvider{name: "beta", hits: []domain.SearchHit{{Title: "B1", URL: "https://b1.example"}, {Title: "B2", URL: "https://b2.example"}}}

	o := NewSearchOrchestrator(testLogger(), a, b)
	results := o.FanOut(context.Background(), "headphones")

	require.Len(t, results, 2)
	assert.Equal(t, "alpha", results[0].Provider)
	assert.Len(t, results[0].Value, 1)
	assert.Equal(t, "beta", results[1].Provider)
	assert.Len(t, results[1].Value, 2)
}

func TestFanOutIsolatesFailingProvider(t *testing.T) {
	good := &fakeSearchProvider{name: "good", hits: []domain.SearchHit{{Title: "ok", URL: "https://ok.example"}}}
	bad := &fakeSearchProvider{name: "bad", err: errors.New("upstream 500")}

	o := NewSearchOrchestrator(testLogger(), good, bad)
	results := o.FanOut(context.Background(), "headphones")

	require.Len(t, results, 2)

	assert.NoError(t, results[0].Err)
	assert.Len(t, results[0].Value, 1)

	assert.Error(t, results[1].Err)
	assert.Empty(t, results[1].Value)
	assert.NotNil(t, results[1].Value, "failed provider must yield an empty slice, not nil")
}

func TestFanOutIsolatesPanickingProvider(t *testing.T) {
	good := &fakeSearchProvider{name: "good", hits: []domain.SearchHit{{Title: "ok", URL: "https://ok.example"}}}
	angry := &fakeSearchProvider{name: "angry", panics: true}

	o := NewSearchOrchestrator(testLogger(), good, angry)
	results := o.FanOut(context.Background(), "headphones")

	require.Len(t, results, 2)
	assert.Len(t, results[0].Value, 1)
	require.Error(t, results[1].Err)
	assert.Contains(t, results[1].Err.Error(), "panicked")
}

func TestFanOutNoProviders(t *testing.T) {
	o := NewSearchOrchestrator(testLogger())
	assert.Empty(t, o.FanOut(context.Background(), "anything"))
}
