package scrapingbee

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"giftdiscovery/internal/core/domain"
)

const apiBaseURL = "https://app.scrapingbee.com/api/v1/"

// extractRules ask ScrapingBee's AI extraction for normalized product fields.
var extractRules = map[string]string{
	"name":        "the product name",
	"price":       "the numeric product price, digits and decimal point only",
	"currency":    "the ISO 4217 currency code of the price",
	"description": "a short product description",
	"images":      "list of product image urls, main image first",
	"brand":       "the product brand",
	"in_stock":    "availability of the product, e.g. in stock",
}

// Client implements ports.MetadataProvider using ScrapingBee's AI extraction.
// It is the general-purpose extractor and serves as the routed-mode default
// for URLs no specialized provider accepts.
type Client struct {
	apiKey string
	client *http.Client
}

// NewClient creates a ScrapingBee client. Reads the API key from the
// SCRAPINGBEE_API_KEY environment variable.
func NewClient() (*Client, error) {
	key := os.Getenv("SCRAPINGBEE_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("SCRAPINGBEE_API_KEY environment variable not set")
	}
	return &Client{
		apiKey: key,
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
	}, nil
}

// Name identifies the provider in tagged results.
func (c *Client) Name() string { return "scrapingbee" }

// Extract scrapes a product page and normalizes the extracted fields.
func (c *Client) Extract(ctx context.Context, pageURL string) (domain.ProductRecord, error) {
	rules, _ := json.Marshal(extractRules)

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("url", pageURL)
	params.Set("ai_extract_rules", string(rules))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.ProductRecord{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.ProductRecord{}, fmt.Errorf("scrapingbee request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return domain.ProductRecord{}, fmt.Errorf("scrapingbee returned status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var extracted struct {
		Name        string   `json:"name"`
		Price       string   `json:"price"`
		Currency    string   `json:"currency"`
		Description string   `json:"description"`
		Images      []string `json:"images"`
		Brand       string   `json:"brand"`
		InStock     string   `json:"in_stock"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&extracted); err != nil {
		return domain.ProductRecord{}, fmt.Errorf("failed to decode scrapingbee response: %w", err)
	}

	record := domain.ProductRecord{
		Name:         extracted.Name,
		Price:        parsePrice(extracted.Price, extracted.Currency),
		ImageURLs:    extracted.Images,
		Description:  extracted.Description,
		ProductURL:   pageURL,
		Availability: extracted.InStock,
		Brand:        extracted.Brand,
		Provider:     c.Name(),
	}
	if record.Name == "" {
		record.Name = domain.UnknownProductName
	}
	if record.ImageURLs == nil {
		record.ImageURLs = []string{}
	}
	return record, nil
}

func parsePrice(amount, currency string) domain.Price {
	var price domain.Price
	if amount != "" {
		if d, err := decimal.NewFromString(amount); err == nil {
			price.Amount = &d
		}
	}
	if currency != "" {
		price.Currency = &currency
	}
	return price
}
