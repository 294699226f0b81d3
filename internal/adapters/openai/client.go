package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"giftdiscovery/internal/core/ports"
)

const (
	completionsURL = "https://api.openai.com/v1/chat/completions"
	defaultModel   = "gpt-4o-mini"
)

// Client implements ports.Completer against the OpenAI chat completions API.
type Client struct {
	apiKey string
	model  string
	client *http.Client
}

// NewClient creates an OpenAI client. Reads the API key from the
// OPENAI_API_KEY environment variable; OPENAI_MODEL overrides the default
// model.
func NewClient() (*Client, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey: key,
		model:  model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Complete sends the prompt and returns the raw completion text. Callers own
// parsing; the content may be malformed even when no error is returned.
func (c *Client) Complete(ctx context.Context, prompt string, opts ports.CompletionOptions) (string, error) {
	payload := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": opts.Temperature,
	}
	if opts.ResponseFormat == "json" {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, completionsURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("completion returned status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}
