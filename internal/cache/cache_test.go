package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"ratsdok/internal/domain"
)

func testDoc(t *testing.T, fingerprint string) domain.Document {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "protokoll.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 dummy"), 0o644))
	return domain.Document{
		Path:        path,
		RelPath:     "meetings/2024-01/protokoll.pdf",
		Fingerprint: fingerprint,
	}
}

func someRecords() []domain.ChunkRecord {
	return []domain.ChunkRecord{
		{Page: 1, ChunkIndex: 0, Text: "Der Rat tagte.", Vector: []float32{0.1, 0.2}},
		{Page: 2, ChunkIndex: 0, Text: "Haushalt 2024.", Vector: []float32{0.3, 0.4}},
	}
}

func TestSaveThenLoad(t *testing.T) {
	store := NewStore(arbor.NewLogger())
	doc := testDoc(t, "abc123")

	require.NoError(t, store.Save(doc, someRecords()))

	got, ok := store.Load(doc)
	require.True(t, ok)
	assert.Equal(t, someRecords(), got)

	// sidecar sits next to the document
	_, err := os.Stat(filepath.Join(filepath.Dir(doc.Path), "protokoll.embeddings.json"))
	assert.NoError(t, err)
}

func TestLoadMissingIsMiss(t *testing.T) {
	store := NewStore(arbor.NewLogger())
	doc := testDoc(t, "abc123")

	_, ok := store.Load(doc)

	assert.False(t, ok)
}

func TestLoadFingerprintMismatchIsMiss(t *testing.T) {
	store := NewStore(arbor.NewLogger())
	doc := testDoc(t, "abc123")
	require.NoError(t, store.Save(doc, someRecords()))

	changed := doc
	changed.Fingerprint = "def456"

	_, ok := store.Load(changed)

	assert.False(t, ok, "a stale fingerprint must never hit")
}

func TestLoadFilenameMismatchIsMiss(t *testing.T) {
	store := NewStore(arbor.NewLogger())
	doc := testDoc(t, "abc123")
	require.NoError(t, store.Save(doc, someRecords()))

	// same sidecar content, different document name
	renamed := filepath.Join(filepath.Dir(doc.Path), "umbenannt.pdf")
	require.NoError(t, os.Rename(doc.Path, renamed))
	sidecar := filepath.Join(filepath.Dir(doc.Path), "protokoll.embeddings.json")
	require.NoError(t, os.Rename(sidecar, filepath.Join(filepath.Dir(doc.Path), "umbenannt.embeddings.json")))
	doc.Path = renamed

	_, ok := store.Load(doc)

	assert.False(t, ok)
}

func TestLoadCorruptIsMiss(t *testing.T) {
	store := NewStore(arbor.NewLogger())
	doc := testDoc(t, "abc123")
	sidecar := filepath.Join(filepath.Dir(doc.Path), "protokoll.embeddings.json")
	require.NoError(t, os.WriteFile(sidecar, []byte("{not json"), 0o644))

	_, ok := store.Load(doc)

	assert.False(t, ok)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	store := NewStore(arbor.NewLogger())
	doc := testDoc(t, "abc123")
	require.NoError(t, store.Save(doc, someRecords()))

	updated := []domain.ChunkRecord{{Page: 1, ChunkIndex: 0, Text: "neu", Vector: []float32{1}}}
	require.NoError(t, store.Save(doc, updated))

	got, ok := store.Load(doc)
	require.True(t, ok)
	assert.Equal(t, updated, got)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(doc.Path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
