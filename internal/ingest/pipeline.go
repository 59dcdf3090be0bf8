package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"ratsdok/internal/cache"
	"ratsdok/internal/domain"
	"ratsdok/internal/extract"
)

// Outcome is the terminal state of one document in a run.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeProcessed
	OutcomeFailed
)

// Summary tallies one pipeline run.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
}

func (s Summary) Total() int { return s.Processed + s.Skipped + s.Failed }

// Pipeline drives a full indexing run: discover PDFs under the corpus
// root, fingerprint each, reuse cached embeddings where the fingerprint
// matches, extract/chunk/embed the rest, and reconcile everything against
// the vector store. Documents fail independently; one broken PDF never
// stops the run.
type Pipeline struct {
	root      string
	extractor domain.Extractor
	chunker   domain.Chunker
	embedder  domain.Embedder
	cache     *cache.Store
	sync      *Sync
	batchSize int
	logger    arbor.ILogger
}

type PipelineConfig struct {
	Root      string
	Extractor domain.Extractor
	Chunker   domain.Chunker
	Embedder  domain.Embedder
	Cache     *cache.Store
	Sync      *Sync
	BatchSize int
	Logger    arbor.ILogger
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	return &Pipeline{
		root:      cfg.Root,
		extractor: cfg.Extractor,
		chunker:   cfg.Chunker,
		embedder:  cfg.Embedder,
		cache:     cfg.Cache,
		sync:      cfg.Sync,
		batchSize: cfg.BatchSize,
		logger:    cfg.Logger,
	}
}

// Run indexes every PDF under the corpus root and returns the tally.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	docs, err := p.discover()
	if err != nil {
		return Summary{}, err
	}
	p.logger.Info().Int("documents", len(docs)).Str("root", p.root).Msg("Starting indexing run")

	if err := p.sync.Init(ctx, p.embedder.Dimension()); err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		switch outcome, err := p.processOne(ctx, doc); outcome {
		case OutcomeProcessed:
			sum.Processed++
		case OutcomeSkipped:
			sum.Skipped++
		case OutcomeFailed:
			sum.Failed++
			p.logger.Warn().Str("file", doc.RelPath).Err(err).Msg("Document failed")
		}
	}

	p.logger.Info().
		Int("processed", sum.Processed).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Msg("Indexing run complete")
	return sum, nil
}

// discover walks the corpus root for PDFs and attaches the folder's entity
// metadata. Folders are annotated once, not per file.
func (p *Pipeline) discover() ([]domain.Document, error) {
	type folderInfo struct {
		entity domain.EntityMetadata
		files  []FileObject
	}
	folders := make(map[string]folderInfo)

	var docs []domain.Document
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}

		dir := filepath.Dir(path)
		info, ok := folders[dir]
		if !ok {
			entity, files := LoadFolderMetadata(dir)
			info = folderInfo{entity: entity, files: files}
			folders[dir] = info
		}

		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return err
		}

		docs = append(docs, domain.Document{
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			Entity:  annotate(info.entity, info.files, filepath.Base(path)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", p.root, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].RelPath < docs[j].RelPath })
	return docs, nil
}

// annotate merges the per-file object matching this PDF's name into the
// folder-level entity metadata.
func annotate(entity domain.EntityMetadata, files []FileObject, base string) domain.EntityMetadata {
	for _, f := range files {
		if FilenameFromURL(f.AccessURL) == base || FilenameFromURL(f.DownloadURL) == base {
			entity.FileType = f.FileType
			entity.FileID = f.FileID
			entity.AccessURL = f.AccessURL
			entity.DownloadURL = f.DownloadURL
			return entity
		}
	}
	return entity
}

func (p *Pipeline) processOne(ctx context.Context, doc domain.Document) (Outcome, error) {
	// Fingerprinting happens here, not in discover, so an unreadable file
	// fails alone instead of aborting the run.
	hash, err := FileHash(doc.Path)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("fingerprint: %w", err)
	}
	doc.Fingerprint = hash

	if records, ok := p.cache.Load(doc); ok {
		// Embeddings are current; the store may still be behind the cache.
		if _, err := p.sync.Reconcile(ctx, doc, records); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeSkipped, nil
	}

	pages, err := p.extractor.Extract(ctx, doc.Path)
	if err != nil {
		if errors.Is(err, extract.ErrNoText) {
			return OutcomeFailed, fmt.Errorf("no extractable text: %w", err)
		}
		return OutcomeFailed, fmt.Errorf("extract: %w", err)
	}

	records := p.chunkPages(pages)
	if len(records) == 0 {
		return OutcomeFailed, fmt.Errorf("no chunks produced from %d pages", len(pages))
	}

	if err := p.embedRecords(ctx, records); err != nil {
		return OutcomeFailed, fmt.Errorf("embed: %w", err)
	}

	if err := p.cache.Save(doc, records); err != nil {
		// A lost sidecar only costs a re-embed next run.
		p.logger.Warn().Str("file", doc.RelPath).Err(err).Msg("Failed to write embedding cache")
	}

	if _, err := p.sync.Reconcile(ctx, doc, records); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeProcessed, nil
}

// chunkPages splits each page independently; chunk indices restart at zero
// per page so ids stay stable when other pages change.
func (p *Pipeline) chunkPages(pages []domain.PageText) []domain.ChunkRecord {
	var records []domain.ChunkRecord
	for _, page := range pages {
		for i, text := range p.chunker.Chunk(page.Text) {
			records = append(records, domain.ChunkRecord{
				Page:       page.Page,
				ChunkIndex: i,
				Text:       text,
			})
		}
	}
	return records
}

func (p *Pipeline) embedRecords(ctx context.Context, records []domain.ChunkRecord) error {
	for start := 0; start < len(records); start += p.batchSize {
		end := start + p.batchSize
		if end > len(records) {
			end = len(records)
		}
		texts := make([]string, 0, end-start)
		for _, rec := range records[start:end] {
			texts = append(texts, rec.Text)
		}
		vectors, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
		}
		for i := range vectors {
			records[start+i].Vector = vectors[i]
		}
	}
	return nil
}
