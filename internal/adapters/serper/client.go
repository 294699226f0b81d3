package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"giftdiscovery/internal/core/domain"
)

const searchURL = "https://google.serper.dev/search"

// Client implements ports.SearchProvider against the Serper.dev Google SERP
// API.
type Client struct {
	apiKey string
	client *http.Client
}

// NewClient creates a Serper client. Reads the API key from the
// SERPER_API_KEY environment variable.
func NewClient() (*Client, error) {
	key := os.Getenv("SERPER_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("SERPER_API_KEY environment variable not set")
	}
	return &Client{
		apiKey: key,
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}, nil
}

// Name identifies the provider in tagged results.
func (c *Client) Name() string { return "serper" }

// Search queries Google for purchase locations of the given product.
func (c *Client) Search(ctx context.Context, productName string) ([]domain.SearchHit, error) {
	// Serper's query convention: steer the SERP toward storefronts.
	payload := map[string]interface{}{
		"q":   fmt.Sprintf("where to buy %s online", productName),
		"num": 10,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("serper returned status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
			Date    string `json:"date"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode serper response: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(result.Organic))
	for _, item := range result.Organic {
		if item.Link == "" {
			continue
		}
		hits = append(hits, domain.SearchHit{
			Title:         item.Title,
			URL:           item.Link,
			Snippet:       item.Snippet,
			PublishedDate: item.Date,
		})
	}
	return hits, nil
}
