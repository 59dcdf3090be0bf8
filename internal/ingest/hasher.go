// Package ingest implements the incremental indexing pipeline: fingerprint,
// extract, chunk, embed, cache, reconcile with the vector store.
package ingest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// FileHash computes the MD5 fingerprint of a file, reading in 8 KiB blocks.
// MD5 is fine here: the digest detects content changes, nothing more.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, 8192)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PointID derives the stable point id for one chunk. The UUIDv5 over
// fingerprint, page and chunk index makes re-uploads idempotent: the same
// chunk always maps to the same id.
func PointID(fingerprint string, page, chunkIndex int) string {
	key := fmt.Sprintf("%s_%d_%d", fingerprint, page, chunkIndex)
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(key)).String()
}
