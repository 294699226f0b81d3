package rainforest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"giftdiscovery/internal/core/domain"
)

const apiBaseURL = "https://api.rainforestapi.com/request"

// Client implements ports.RoutedMetadataProvider against the Rainforest
// Amazon product API. It only functions for the Amazon URL family and
// self-reports that via Accepts.
type Client struct {
	apiKey string
	client *http.Client
}

// NewClient creates a Rainforest client. Reads the API key from the
// RAINFOREST_API_KEY environment variable.
func NewClient() (*Client, error) {
	key := os.Getenv("RAINFOREST_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("RAINFOREST_API_KEY environment variable not set")
	}
	return &Client{
		apiKey: key,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Name identifies the provider in tagged results.
func (c *Client) Name() string { return "rainforest" }

// Accepts reports whether the URL belongs to the Amazon family.
func (c *Client) Accepts(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "amzn.to" || host == "amzn.eu" {
		return true
	}
	return host == "amazon.com" || strings.HasPrefix(host, "amazon.")
}

// Extract fetches normalized Amazon product data for the URL.
func (c *Client) Extract(ctx context.Context, pageURL string) (domain.ProductRecord, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("type", "product")
	params.Set("url", pageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.ProductRecord{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.ProductRecord{}, fmt.Errorf("rainforest request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return domain.ProductRecord{}, fmt.Errorf("rainforest returned status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Product struct {
			Title        string  `json:"title"`
			ASIN         string  `json:"asin"`
			Link         string  `json:"link"`
			Brand        string  `json:"brand"`
			Description  string  `json:"description"`
			Rating       float64 `json:"rating"`
			RatingsTotal int     `json:"ratings_total"`
			MainImage    struct {
				Link string `json:"link"`
			} `json:"main_image"`
			Images []struct {
				Link string `json:"link"`
			} `json:"images"`
			BuyboxWinner struct {
				Availability struct {
					Type string `json:"type"`
				} `json:"availability"`
				Price struct {
					Value    float64 `json:"value"`
					Currency string  `json:"currency"`
				} `json:"price"`
			} `json:"buybox_winner"`
		} `json:"product"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.ProductRecord{}, fmt.Errorf("failed to decode rainforest response: %w", err)
	}

	p := result.Product
	if p.Title == "" && p.ASIN == "" {
		return domain.ProductRecord{}, fmt.Errorf("rainforest returned no product for %s", pageURL)
	}

	record := domain.ProductRecord{
		Name:        p.Title,
		Description: p.Description,
		ProductURL:  pageURL,
		Brand:       p.Brand,
		ProviderID:  p.ASIN,
		Provider:    c.Name(),
		ImageURLs:   []string{},
	}
	if p.Link != "" {
		record.ProductURL = p.Link
	}
	if p.Title == "" {
		record.Name = domain.UnknownProductName
	}
	if p.MainImage.Link != "" {
		record.ImageURLs = append(record.ImageURLs, p.MainImage.Link)
	}
	for _, img := range p.Images {
		if img.Link != "" && img.Link != p.MainImage.Link {
			record.ImageURLs = append(record.ImageURLs, img.Link)
		}
	}
	if p.BuyboxWinner.Price.Value > 0 {
		amount := decimal.NewFromFloat(p.BuyboxWinner.Price.Value)
		record.Price.Amount = &amount
	}
	if p.BuyboxWinner.Price.Currency != "" {
		currency := p.BuyboxWinner.Price.Currency
		record.Price.Currency = &currency
	}
	record.Availability = p.BuyboxWinner.Availability.Type
	if p.Rating > 0 {
		rating := p.Rating
		record.Rating = &rating
	}
	if p.RatingsTotal > 0 {
		reviews := p.RatingsTotal
		record.ReviewCount = &reviews
	}
	return record, nil
}
