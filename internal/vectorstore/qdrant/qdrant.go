// Package qdrant is a minimal REST client to Qdrant, covering the handful
// of endpoints the ingestion pipeline and the retrieval tool need.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ratsdok/internal/domain"
)

// Storage talks to one Qdrant collection over its HTTP API.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

var _ domain.VectorStore = (*Storage)(nil)

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection with cosine distance if it does
// not exist yet. An existing collection is left untouched.
func (s *Storage) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil, nil)
	if err == nil && status == http.StatusOK {
		return nil
	}
	if err != nil && status != http.StatusNotFound {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert writes points idempotently; re-delivery of the same point id is safe.
func (s *Storage) Upsert(ctx context.Context, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]any{"points": points}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Scroll pages through the collection's stored points without vectors.
// offset is the opaque cursor from the previous page, empty to start; the
// returned cursor is empty on the last page.
func (s *Storage) Scroll(ctx context.Context, offset string, limit int, payloadFields []string) ([]domain.ScoredPoint, string, error) {
	if limit <= 0 {
		limit = 1000
	}
	body := map[string]any{
		"limit":       limit,
		"with_vector": false,
	}
	if len(payloadFields) > 0 {
		body["with_payload"] = payloadFields
	} else {
		body["with_payload"] = true
	}
	if offset != "" {
		body["offset"] = offset
	}
	var resp struct {
		Result struct {
			Points []struct {
				ID      any            `json:"id"`
				Payload domain.Payload `json:"payload"`
			} `json:"points"`
			NextPageOffset any `json:"next_page_offset"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/scroll"), body, &resp); err != nil {
		return nil, "", fmt.Errorf("scroll: %w", err)
	}
	points := make([]domain.ScoredPoint, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		points = append(points, domain.ScoredPoint{ID: idToString(p.ID), Payload: p.Payload})
	}
	return points, idToString(resp.Result.NextPageOffset), nil
}

// DeleteByFilename removes every point whose payload filename matches,
// regardless of which fingerprint wrote it.
func (s *Storage) DeleteByFilename(ctx context.Context, filename string) error {
	body := map[string]any{
		"filter": filterByFilename(filename),
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/delete?wait=true"), body, nil); err != nil {
		return fmt.Errorf("delete points for %s: %w", filename, err)
	}
	return nil
}

// Search runs a similarity query and returns ranked points with payloads.
func (s *Storage) Search(ctx context.Context, vector []float32, limit int) ([]domain.ScoredPoint, error) {
	if limit <= 0 {
		limit = 5
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload domain.Payload `json:"payload"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), body, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	results := make([]domain.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.ScoredPoint{ID: idToString(r.ID), Score: r.Score, Payload: r.Payload})
	}
	return results, nil
}

// FindChunk fetches a single chunk by exact (filename, page, chunk index)
// match. Returns nil without error when the chunk does not exist. This is a
// point-filter lookup, not a similarity search; callers assign score zero.
func (s *Storage) FindChunk(ctx context.Context, filename string, page, chunkIndex int) (*domain.ScoredPoint, error) {
	body := map[string]any{
		"limit":        1,
		"with_payload": true,
		"with_vector":  false,
		"filter": map[string]any{
			"must": []any{
				matchField("filename", filename),
				matchField("page", page),
				matchField("chunk_index", chunkIndex),
			},
		},
	}
	var resp struct {
		Result struct {
			Points []struct {
				ID      any            `json:"id"`
				Payload domain.Payload `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/scroll"), body, &resp); err != nil {
		return nil, fmt.Errorf("find chunk %s p%d c%d: %w", filename, page, chunkIndex, err)
	}
	if len(resp.Result.Points) == 0 {
		return nil, nil
	}
	p := resp.Result.Points[0]
	return &domain.ScoredPoint{ID: idToString(p.ID), Payload: p.Payload}, nil
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}

func filterByFilename(filename string) map[string]any {
	return map[string]any{
		"must": []any{matchField("filename", filename)},
	}
}

func matchField(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

// idToString normalises Qdrant ids and cursors, which may arrive as strings
// or numbers depending on the id type in use.
func idToString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
