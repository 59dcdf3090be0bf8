// Package extract turns PDF files into ordered page text. The fast path
// reads embedded text with pdfcpu; scanned documents go through the OCR
// fallback.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"ratsdok/internal/domain"
)

// ErrNoText reports that no usable text could be obtained from a document.
var ErrNoText = fmt.Errorf("no text extracted")

// PDFExtractor extracts embedded text per page using pdfcpu.
type PDFExtractor struct {
	logger  arbor.ILogger
	tempDir string
}

var _ domain.Extractor = (*PDFExtractor)(nil)

func NewPDFExtractor(logger arbor.ILogger) *PDFExtractor {
	tempDir := filepath.Join(os.TempDir(), "ratsdok-pdf")
	os.MkdirAll(tempDir, 0755)
	return &PDFExtractor{logger: logger, tempDir: tempDir}
}

// Extract returns the non-empty pages of the PDF in order, 1-based.
func (e *PDFExtractor) Extract(ctx context.Context, path string) ([]domain.PageText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", filepath.Base(path), err)
	}
	pageCount := pdfCtx.PageCount

	outDir, err := os.MkdirTemp(e.tempDir, "pages_")
	if err != nil {
		return nil, fmt.Errorf("create extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("extract content from %s: %w", filepath.Base(path), err)
	}

	pageTexts := make(map[int]string, pageCount)
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("read extraction dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		pageNum, ok := pageNumberFromName(entry.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			e.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read extracted page content")
			continue
		}
		pageTexts[pageNum] = string(data)
	}

	pages := make([]domain.PageText, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text := cleanPageText(pageTexts[pageNum])
		if !usableText(text) {
			continue
		}
		pages = append(pages, domain.PageText{Page: pageNum, Text: text})
	}

	if len(pages) == 0 {
		return nil, ErrNoText
	}
	return pages, nil
}

// pageNumberFromName parses the page index out of pdfcpu's content file
// names, e.g. "doc_Content_page_3.txt" or "page_3.txt".
func pageNumberFromName(name string) (int, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	idx := strings.LastIndex(base, "page_")
	if idx < 0 {
		return 0, false
	}
	var pageNum int
	if _, err := fmt.Sscanf(base[idx:], "page_%d", &pageNum); err != nil {
		return 0, false
	}
	if pageNum < 1 {
		return 0, false
	}
	return pageNum, true
}

// cleanPageText normalises raw content-stream text into plain lines.
func cleanPageText(raw string) string {
	if raw == "" {
		return ""
	}
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}

// usableText filters out pages whose extraction produced only operators
// or binary garbage. Requires a minimum share of letters.
func usableText(text string) bool {
	if len(strings.TrimSpace(text)) < 10 {
		return false
	}
	letters := 0
	total := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total == 0 {
		return false
	}
	return float64(letters)/float64(total) > 0.5
}
