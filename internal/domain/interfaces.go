package domain

import "context"

// Extractor converts a PDF file into an ordered sequence of non-empty pages.
// Implementations may fall back to a slow OCR path for scanned documents.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]PageText, error)
}

// Chunker splits page text into overlapping bounded-length segments.
// The output sequence must be deterministic for identical input.
type Chunker interface {
	Chunk(text string) []string
}

// Embedder converts text into vectors. Embed is batched; implementations
// must return one vector per input in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// VectorStore is the remote vector collection holding one point per chunk.
type VectorStore interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []Point) error
	Scroll(ctx context.Context, offset string, limit int, payloadFields []string) ([]ScoredPoint, string, error)
	DeleteByFilename(ctx context.Context, filename string) error
	Search(ctx context.Context, vector []float32, limit int) ([]ScoredPoint, error)
	FindChunk(ctx context.Context, filename string, page, chunkIndex int) (*ScoredPoint, error)
}
