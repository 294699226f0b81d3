package exa

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

const searchURL = "https://api.exa.ai/search"

// Client implements ports.SearchProvider against the Exa neural search API.
type Client struct {
	apiKey string
	client *http.Client
}

// NewClient creates an Exa client. Reads the API key from the EXA_API_KEY
// environment variable.
func NewClient() (*Client, error) {
	key := os.Getenv("EXA_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("EXA_API_KEY environment variable not set")
	}
	return &Client{
		apiKey: key,
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}, nil
}

// Name identifies the provider in tagged results.
func (c *Client) Name() string { return "exa" }

// Search runs a neural search for pages selling the given product.
func (c *Client) Search(ctx context.Context, productName string) ([]domain.SearchHit, error) {
	payload := map[string]interface{}{
		"query":      fmt.Sprintf("buy %s", productName),
		"numResults": 10,
		"type":       "neural",
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exa request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("exa returned status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Results []struct {
			Title         string `json:"title"`
			URL           string `json:"url"`
			PublishedDate string `json:"publishedDate"`
			Author        string `json:"author"`
			Text          string `json:"text"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode exa response: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(result.Results))
	for _, item := range result.Results {
		if item.URL == "" {
			continue
		}
		hits = append(hits, domain.SearchHit{
			Title:         item.Title,
			URL:           item.URL,
			Snippet:       item.Text,
			PublishedDate: item.PublishedDate,
			Author:        item.Author,
		})
	}
	return hits, nil
}
