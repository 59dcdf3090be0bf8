package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"ratsdok/internal/domain"
)

// noResultsMessage is returned to the model when a search yields nothing,
// so it can tell the user instead of hallucinating.
const noResultsMessage = "Keine relevanten Dokumente gefunden."

// Source is one cited chunk, surfaced to the user alongside the answer.
// Score zero marks neighboring chunks pulled in for context rather than
// ranked hits.
type Source struct {
	Filename   string
	Page       int
	ChunkIndex int
	Score      float64
	Text       string
	AccessURL  string
	EntityName string
	Date       string
}

type sourceKey struct {
	filename   string
	page       int
	chunkIndex int
}

func (s Source) key() sourceKey {
	return sourceKey{s.Filename, s.Page, s.ChunkIndex}
}

// Retriever executes searches on behalf of the model: embed the query,
// rank against the vector store, and optionally widen each hit with its
// neighboring chunks on the same page.
type Retriever struct {
	embedder     domain.Embedder
	store        domain.VectorStore
	logger       arbor.ILogger
	defaultLimit int
	maxLimit     int
	expand       bool
}

type RetrieverConfig struct {
	Embedder     domain.Embedder
	Store        domain.VectorStore
	Logger       arbor.ILogger
	DefaultLimit int
	MaxLimit     int
	Expand       bool
}

func NewRetriever(cfg RetrieverConfig) *Retriever {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 5
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 10
	}
	return &Retriever{
		embedder:     cfg.Embedder,
		store:        cfg.Store,
		logger:       cfg.Logger,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		expand:       cfg.Expand,
	}
}

// Search runs one semantic query and returns the formatted tool result
// plus the sources it is built from, in rank order with expansions
// following their hit.
func (r *Retriever) Search(ctx context.Context, query string, limit int) (string, []Source, error) {
	if limit <= 0 {
		limit = r.defaultLimit
	}
	if limit > r.maxLimit {
		limit = r.maxLimit
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return "", nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	hits, err := r.store.Search(ctx, vectors[0], limit)
	if err != nil {
		return "", nil, fmt.Errorf("vector search: %w", err)
	}
	r.logger.Debug().Str("query", query).Int("hits", len(hits)).Msg("Document search")

	if len(hits) == 0 {
		return noResultsMessage, nil, nil
	}

	seen := make(map[sourceKey]struct{})
	var sources []Source
	add := func(src Source) bool {
		if _, dup := seen[src.key()]; dup {
			return false
		}
		seen[src.key()] = struct{}{}
		sources = append(sources, src)
		return true
	}

	// Ranked hits register first so a neighbor that is itself a hit keeps
	// its ranked score instead of being shadowed by a zero-score expansion.
	for _, hit := range hits {
		add(toSource(hit.Payload, hit.Score))
	}
	if r.expand {
		for _, hit := range hits {
			r.addNeighbors(ctx, hit.Payload, add)
		}
	}

	return formatSources(sources), sources, nil
}

// addNeighbors fetches the chunks directly before and after a hit on the
// same page. Missing neighbors are normal at page edges.
func (r *Retriever) addNeighbors(ctx context.Context, p domain.Payload, add func(Source) bool) {
	for _, idx := range []int{p.ChunkIndex - 1, p.ChunkIndex + 1} {
		if idx < 0 {
			continue
		}
		neighbor, err := r.store.FindChunk(ctx, p.Filename, p.Page, idx)
		if err != nil {
			r.logger.Warn().Str("file", p.Filename).Int("page", p.Page).Int("chunk", idx).Err(err).Msg("Context expansion failed")
			continue
		}
		if neighbor != nil {
			add(toSource(neighbor.Payload, 0))
		}
	}
}

func toSource(p domain.Payload, score float64) Source {
	return Source{
		Filename:   p.Filename,
		Page:       p.Page,
		ChunkIndex: p.ChunkIndex,
		Score:      score,
		Text:       p.Text,
		AccessURL:  p.PDFAccessURL,
		EntityName: p.EntityName,
		Date:       p.Date,
	}
}

// formatSources renders the compact per-chunk blocks the model reads as
// the tool result.
func formatSources(sources []Source) string {
	var b strings.Builder
	for i, src := range sources {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if src.Score > 0 {
			fmt.Fprintf(&b, "%s (Seite %d, Score %.3f):\n%s", src.Filename, src.Page, src.Score, src.Text)
		} else {
			fmt.Fprintf(&b, "%s (Seite %d, Kontext):\n%s", src.Filename, src.Page, src.Text)
		}
	}
	return b.String()
}
