package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftdiscovery/internal/core/domain"
)

func TestNameExtraction(t *testing.T) {
	provider := &fakeSearchProvider{name: "search", hits: []domain.SearchHit{
		{Title: "Fitbit Charge 6 Fitness Tracker", URL: "https://store.example/fitbit", Snippet: "Buy the Fitbit Charge 6"},
		{Title: "Theragun Mini review", URL: "https://blog.example/theragun"},
	}}
	completer := &fakeCompleter{responses: []string{`{"products": ["Fitbit Charge 6", "Theragun Mini"]}`}}

	e := NewNameExtractor(NewSearchOrchestrator(testLogger(), provider), completer, testLogger())

	names, err := e.Extract(context.Background(), "fitness gear", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fitbit Charge 6", "Theragun Mini"}, names)
	// One diversified query per variant: literal, "best", "top".
	assert.Equal(t, 3, provider.calls)
	assert.Equal(t, 1, completer.callCount())
}

func TestNameExtractionEmptyPoolSkipsCompleter(t *testing.T) {
	empty := &fakeSearchProvider{name: "empty"}
	completer := &fakeCompleter{responses: []string{`{"products": ["Should Never Appear"]}`}}

	e := NewNameExtractor(NewSearchOrchestrator(testLogger(), empty), completer, testLogger())

	names, err := e.Extract(context.Background(), "obscure thing", 3)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Equal(t, 0, completer.callCount(), "empty pool must not invoke the completer")
}

func TestNameExtractionMalformedResponse(t *testing.T) {
	provider := &fakeSearchProvider{name: "search", hits: []domain.SearchHit{
		{Title: "Something", URL: "https://store.example/x"},
	}}
	completer := &fakeCompleter{responses: []string{"I cannot answer in JSON, sorry"}}

	e := NewNameExtractor(NewSearchOrchestrator(testLogger(), provider), completer, testLogger())

	_, err := e.Extract(context.Background(), "fitness gear", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}

func TestNameExtractionTrimsBlankNames(t *testing.T) {
	provider := &fakeSearchProvider{name: "search", hits: []domain.SearchHit{
		{Title: "Hydro Flask 32oz", URL: "https://store.example/flask"},
	}}
	completer := &fakeCompleter{responses: []string{`{"products": ["  Hydro Flask 32oz  ", "", "   "]}`}}

	e := NewNameExtractor(NewSearchOrchestrator(testLogger(), provider), completer, testLogger())

	names, err := e.Extract(context.Background(), "hydration", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hydro Flask 32oz"}, names)
}
