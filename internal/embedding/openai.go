// Package embedding provides an OpenAI-compatible embeddings client.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"ratsdok/internal/domain"
)

// Client talks to an OpenAI-compatible /embeddings endpoint. Requests are
// batched; vector dimensionality is discovered from the first response and
// falls back to a configured constant before that.
type Client struct {
	baseURL           string
	apiKey            string
	model             string
	client            *http.Client
	maxRetries        int
	dimension         int
	fallbackDimension int
}

var _ domain.Embedder = (*Client)(nil)

// Config configures the embeddings client.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	FallbackDimension int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing embeddings API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	fallback := cfg.FallbackDimension
	if fallback == 0 {
		fallback = 1024
	}
	return &Client{
		baseURL:           cfg.BaseURL,
		apiKey:            cfg.APIKey,
		model:             cfg.Model,
		client:            &http.Client{Timeout: t},
		maxRetries:        5,
		fallbackDimension: fallback,
	}, nil
}

// Dimension returns the dimensionality of produced vectors. Before the
// first successful call it returns the configured fallback, so a collection
// can be created ahead of embedding.
func (c *Client) Dimension() int {
	if c.dimension > 0 {
		return c.dimension
	}
	return c.fallbackDimension
}

// Embed returns one vector per input text, in order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	type reqBody struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	url := fmt.Sprintf("%s/embeddings", c.baseURL)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt - 1)):
			}
		}

		data, err := json.Marshal(reqBody{Input: texts, Model: c.model})
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("embeddings request failed: %s", resp.Status)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					_ = resp.Body.Close()
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(time.Duration(secs) * time.Second):
					}
					continue
				}
			}
			_ = resp.Body.Close()
			continue
		}

		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("embeddings request failed: %s", resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		vectors, err := decodeEmbeddings(payload, len(texts))
		if err != nil {
			return nil, err
		}
		if c.dimension == 0 && len(vectors) > 0 {
			c.dimension = len(vectors[0])
		}
		return vectors, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no embedding returned")
	}
	return nil, lastErr
}

func decodeEmbeddings(payload []byte, want int) ([][]float32, error) {
	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	if len(out.Data) != want {
		return nil, fmt.Errorf("expected %d embeddings, got %d", want, len(out.Data))
	}
	vectors := make([][]float32, want)
	for i, d := range out.Data {
		idx := d.Index
		if idx < 0 || idx >= want {
			idx = i
		}
		if len(d.Embedding) == 0 {
			return nil, errors.New("no embedding returned")
		}
		vectors[idx] = d.Embedding
	}
	return vectors, nil
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
