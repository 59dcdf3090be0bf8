package ingest

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"ratsdok/internal/domain"
)

// Sync reconciles locally embedded chunks against the remote collection.
// It keeps an in-memory set of (filename, fingerprint) pairs already
// present remotely, rebuilt once at startup by paging the collection, so
// reconciling a large corpus costs no per-document round-trips.
type Sync struct {
	store           domain.VectorStore
	logger          arbor.ILogger
	refreshMetadata bool
	processed       map[processedKey]struct{}
}

type processedKey struct {
	filename string
	hash     string
}

func NewSync(store domain.VectorStore, logger arbor.ILogger, refreshMetadata bool) *Sync {
	return &Sync{
		store:           store,
		logger:          logger,
		refreshMetadata: refreshMetadata,
		processed:       make(map[processedKey]struct{}),
	}
}

// Init ensures the collection exists with the given dimensionality and
// rebuilds the processed set from the remote payload index.
func (s *Sync) Init(ctx context.Context, dimension int) error {
	if err := s.store.EnsureCollection(ctx, dimension); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	offset := ""
	for {
		points, next, err := s.store.Scroll(ctx, offset, 1000, []string{"filename", "file_hash"})
		if err != nil {
			return fmt.Errorf("rebuild processed set: %w", err)
		}
		for _, p := range points {
			if p.Payload.Filename == "" || p.Payload.FileHash == "" {
				continue
			}
			s.processed[processedKey{p.Payload.Filename, p.Payload.FileHash}] = struct{}{}
		}
		if next == "" {
			break
		}
		offset = next
	}

	s.logger.Info().Int("files", len(s.processed)).Msg("Loaded processed files from vector store")
	return nil
}

// HasCurrent reports whether the store already holds points for this
// document at its current fingerprint.
func (s *Sync) HasCurrent(doc domain.Document) bool {
	_, ok := s.processed[processedKey{doc.RelPath, doc.Fingerprint}]
	return ok
}

// Reconcile brings the remote collection in line with the document's
// current chunks. Unchanged documents are skipped. A changed fingerprint
// first deletes every point under the same path, so after a successful run
// at most one fingerprint's worth of points exists per path. In metadata
// refresh mode known documents are re-upserted without a delete, because
// only payload fields changed.
func (s *Sync) Reconcile(ctx context.Context, doc domain.Document, records []domain.ChunkRecord) (uploaded bool, err error) {
	known := s.HasCurrent(doc)
	if known && !s.refreshMetadata {
		return false, nil
	}

	if !known {
		if err := s.store.DeleteByFilename(ctx, doc.RelPath); err != nil {
			return false, fmt.Errorf("retire stale points for %s: %w", doc.RelPath, err)
		}
	}

	points := make([]domain.Point, 0, len(records))
	for _, rec := range records {
		points = append(points, domain.Point{
			ID:      PointID(doc.Fingerprint, rec.Page, rec.ChunkIndex),
			Vector:  rec.Vector,
			Payload: buildPayload(doc, rec),
		})
	}
	if err := s.store.Upsert(ctx, points); err != nil {
		return false, fmt.Errorf("upload points for %s: %w", doc.RelPath, err)
	}

	s.processed[processedKey{doc.RelPath, doc.Fingerprint}] = struct{}{}
	s.logger.Debug().Str("file", doc.RelPath).Int("points", len(points)).Bool("refresh", known).Msg("Reconciled document")
	return true, nil
}

func buildPayload(doc domain.Document, rec domain.ChunkRecord) domain.Payload {
	return domain.Payload{
		Filename:       doc.RelPath,
		FileHash:       doc.Fingerprint,
		Page:           rec.Page,
		ChunkIndex:     rec.ChunkIndex,
		Text:           rec.Text,
		Source:         doc.Entity.Source,
		EntityType:     string(doc.Entity.Type),
		EntityID:       doc.Entity.ID,
		EntityName:     doc.Entity.Name,
		Date:           doc.Entity.Date,
		FileType:       doc.Entity.FileType,
		FileID:         doc.Entity.FileID,
		PDFAccessURL:   doc.Entity.AccessURL,
		PDFDownloadURL: doc.Entity.DownloadURL,
		PaperReference: doc.Entity.PaperReference,
		PaperType:      doc.Entity.PaperType,
	}
}
