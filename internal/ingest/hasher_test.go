package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFileHashDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.pdf", []byte("council protocol contents"))

	h1, err := FileHash(path)
	require.NoError(t, err)
	h2, err := FileHash(path)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 32)
}

func TestFileHashDetectsSingleByteChange(t *testing.T) {
	dir := t.TempDir()
	data := make([]byte, 16*1024)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := writeFile(t, dir, "a.pdf", data)
	before, err := FileHash(path)
	require.NoError(t, err)

	data[12*1024] ^= 0x01
	writeFile(t, dir, "a.pdf", data)
	after, err := FileHash(path)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestFileHashMissingFile(t *testing.T) {
	_, err := FileHash(filepath.Join(t.TempDir(), "absent.pdf"))
	assert.Error(t, err)
}

func TestPointIDStableAndDistinct(t *testing.T) {
	id := PointID("d41d8cd98f00b204e9800998ecf8427e", 3, 1)
	assert.Equal(t, id, PointID("d41d8cd98f00b204e9800998ecf8427e", 3, 1))
	assert.Len(t, id, 36)

	assert.NotEqual(t, id, PointID("d41d8cd98f00b204e9800998ecf8427e", 3, 2))
	assert.NotEqual(t, id, PointID("d41d8cd98f00b204e9800998ecf8427e", 4, 1))
	assert.NotEqual(t, id, PointID("ffffffffffffffffffffffffffffffff", 3, 1))
}
