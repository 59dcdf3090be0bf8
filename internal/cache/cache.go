// Package cache persists embedded chunks next to their source document so
// unchanged files never go through extraction or embedding again.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"ratsdok/internal/domain"
)

// entry is the on-disk layout of a <stem>.embeddings.json sidecar file.
type entry struct {
	FileHash string               `json:"file_hash"`
	Filename string               `json:"filename"`
	Chunks   []domain.ChunkRecord `json:"chunks"`
}

// Store reads and writes embedding sidecar files.
type Store struct {
	logger arbor.ILogger
}

func NewStore(logger arbor.ILogger) *Store {
	return &Store{logger: logger}
}

// Load returns the cached chunk records for doc, or false when there is no
// valid entry. A mismatched fingerprint or filename, a missing file and a
// corrupt file are all plain misses, never errors: the caller re-embeds.
func (s *Store) Load(doc domain.Document) ([]domain.ChunkRecord, bool) {
	data, err := os.ReadFile(sidecarPath(doc.Path))
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		s.logger.Warn().Err(err).Str("file", doc.RelPath).Msg("Unreadable embeddings cache, treating as miss")
		return nil, false
	}
	if e.FileHash != doc.Fingerprint {
		return nil, false
	}
	if e.Filename != filepath.Base(doc.Path) {
		return nil, false
	}
	if len(e.Chunks) == 0 {
		return nil, false
	}
	return e.Chunks, true
}

// Save atomically replaces the sidecar for doc. The temp file lives in the
// same directory so the rename never crosses filesystems.
func (s *Store) Save(doc domain.Document, records []domain.ChunkRecord) error {
	e := entry{
		FileHash: doc.Fingerprint,
		Filename: filepath.Base(doc.Path),
		Chunks:   records,
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	target := sidecarPath(doc.Path)
	tmp, err := os.CreateTemp(filepath.Dir(target), ".embeddings-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// sidecarPath maps documents/x/y/report.pdf to documents/x/y/report.embeddings.json.
func sidecarPath(docPath string) string {
	stem := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	return filepath.Join(filepath.Dir(docPath), stem+".embeddings.json")
}
