package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"ratsdok/internal/domain"
	"ratsdok/internal/vectorstore/memory"
)

// fixedEmbedder maps known texts to fixed vectors so search ranking is
// fully controlled by the seeded points.
type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, ok := f.vectors[text]
		if !ok {
			v = []float32{1, 0, 0}
		}
		out[i] = v
	}
	return out, nil
}

func (f *fixedEmbedder) Dimension() int { return 3 }

func seedChunk(t *testing.T, store *memory.Storage, filename string, page, chunk int, text string, vector []float32) {
	t.Helper()
	err := store.Upsert(context.Background(), []domain.Point{{
		ID:     fmt.Sprintf("%s-%d-%d", filename, page, chunk),
		Vector: vector,
		Payload: domain.Payload{
			Filename:   filename,
			FileHash:   "h",
			Page:       page,
			ChunkIndex: chunk,
			Text:       text,
		},
	}})
	require.NoError(t, err)
}

func newTestRetriever(t *testing.T, store *memory.Storage, expand bool) *Retriever {
	t.Helper()
	return NewRetriever(RetrieverConfig{
		Embedder:     &fixedEmbedder{vectors: map[string][]float32{}},
		Store:        store,
		Logger:       arbor.NewLogger(),
		DefaultLimit: 5,
		MaxLimit:     10,
		Expand:       expand,
	})
}

func TestRetrieverEmptyStoreReturnsSentinel(t *testing.T) {
	store := memory.NewStorage()
	r := newTestRetriever(t, store, false)

	text, sources, err := r.Search(context.Background(), "Haushalt", 5)
	require.NoError(t, err)
	assert.Equal(t, "Keine relevanten Dokumente gefunden.", text)
	assert.Empty(t, sources)
}

func TestRetrieverRanksAndFormats(t *testing.T) {
	store := memory.NewStorage()
	seedChunk(t, store, "vorlage.pdf", 2, 0, "Der Haushalt umfasst 12 Millionen Euro.", []float32{1, 0, 0})
	seedChunk(t, store, "protokoll.pdf", 5, 3, "Der Rat stimmte mehrheitlich zu.", []float32{0.5, 0, 0})
	r := newTestRetriever(t, store, false)

	text, sources, err := r.Search(context.Background(), "Haushalt", 5)
	require.NoError(t, err)

	require.Len(t, sources, 2)
	assert.Equal(t, "vorlage.pdf", sources[0].Filename)
	assert.Greater(t, sources[0].Score, sources[1].Score)
	assert.Contains(t, text, "vorlage.pdf (Seite 2, Score")
	assert.Contains(t, text, "Der Haushalt umfasst 12 Millionen Euro.")
	assert.Contains(t, text, "protokoll.pdf (Seite 5, Score")
}

func TestRetrieverLimitDefaultsAndCap(t *testing.T) {
	store := memory.NewStorage()
	for i := 0; i < 15; i++ {
		seedChunk(t, store, "doc.pdf", 1, i, fmt.Sprintf("Abschnitt %d", i), []float32{float32(15 - i), 0, 0})
	}
	r := newTestRetriever(t, store, false)

	_, sources, err := r.Search(context.Background(), "x", 0)
	require.NoError(t, err)
	assert.Len(t, sources, 5, "zero limit falls back to the default")

	_, sources, err = r.Search(context.Background(), "x", 50)
	require.NoError(t, err)
	assert.Len(t, sources, 10, "limit is capped")
}

func TestRetrieverExpandsWithNeighbors(t *testing.T) {
	store := memory.NewStorage()
	seedChunk(t, store, "vorlage.pdf", 2, 0, "Einleitung.", []float32{0, 1, 0})
	seedChunk(t, store, "vorlage.pdf", 2, 1, "Der Haushalt umfasst 12 Millionen Euro.", []float32{1, 0, 0})
	seedChunk(t, store, "vorlage.pdf", 2, 2, "Die Kreisumlage steigt.", []float32{0, 0, 1})
	r := newTestRetriever(t, store, true)

	_, sources, err := r.Search(context.Background(), "Haushalt", 1)
	require.NoError(t, err)

	require.Len(t, sources, 3)
	assert.Equal(t, 1, sources[0].ChunkIndex)
	assert.Positive(t, sources[0].Score)

	neighbors := map[int]bool{}
	for _, src := range sources[1:] {
		assert.Zero(t, src.Score, "expansion chunks carry score zero")
		neighbors[src.ChunkIndex] = true
	}
	assert.True(t, neighbors[0])
	assert.True(t, neighbors[2])
}

func TestRetrieverExpansionNeverShadowsRankedHit(t *testing.T) {
	store := memory.NewStorage()
	seedChunk(t, store, "vorlage.pdf", 2, 0, "Erster Abschnitt.", []float32{1, 0, 0})
	seedChunk(t, store, "vorlage.pdf", 2, 1, "Zweiter Abschnitt.", []float32{0.9, 0, 0})
	r := newTestRetriever(t, store, true)

	_, sources, err := r.Search(context.Background(), "x", 2)
	require.NoError(t, err)

	byChunk := map[int]Source{}
	for _, src := range sources {
		byChunk[src.ChunkIndex] = src
	}
	require.Len(t, sources, 2, "adjacent ranked hits must not duplicate")
	assert.Positive(t, byChunk[0].Score)
	assert.Positive(t, byChunk[1].Score, "ranked score wins over zero-score expansion")
}

func TestRetrieverExpansionSkipsPageStart(t *testing.T) {
	store := memory.NewStorage()
	seedChunk(t, store, "vorlage.pdf", 1, 0, "Einziger Abschnitt.", []float32{1, 0, 0})
	r := newTestRetriever(t, store, true)

	_, sources, err := r.Search(context.Background(), "x", 1)
	require.NoError(t, err)
	require.Len(t, sources, 1)
}

func TestFormatSourcesMarksContextChunks(t *testing.T) {
	text := formatSources([]Source{
		{Filename: "a.pdf", Page: 1, ChunkIndex: 1, Score: 0.91, Text: "Treffer"},
		{Filename: "a.pdf", Page: 1, ChunkIndex: 0, Score: 0, Text: "Nachbar"},
	})
	lines := strings.Split(text, "\n\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Score 0.910")
	assert.Contains(t, lines[1], "Kontext")
}
