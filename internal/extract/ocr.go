package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"ratsdok/internal/domain"
)

// OCRExtractor is the slow fallback for scanned documents: pages are
// rasterized with pdftoppm and recognised with tesseract. Both binaries
// must be on PATH.
type OCRExtractor struct {
	logger    arbor.ILogger
	languages string
	dpi       int
}

var _ domain.Extractor = (*OCRExtractor)(nil)

func NewOCRExtractor(logger arbor.ILogger, languages string) *OCRExtractor {
	if languages == "" {
		languages = "deu+eng"
	}
	return &OCRExtractor{logger: logger, languages: languages, dpi: 300}
}

// Extract rasterizes every page and runs OCR on it. Pages where OCR fails
// are skipped rather than failing the document.
func (e *OCRExtractor) Extract(ctx context.Context, path string) ([]domain.PageText, error) {
	workDir, err := os.MkdirTemp("", "ratsdok-ocr-")
	if err != nil {
		return nil, fmt.Errorf("create ocr dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	prefix := filepath.Join(workDir, "page")
	rasterize := exec.CommandContext(ctx, "pdftoppm", "-r", strconv.Itoa(e.dpi), "-png", path, prefix)
	if out, err := rasterize.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm %s: %w: %s", filepath.Base(path), err, strings.TrimSpace(string(out)))
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(images) == 0 {
		return nil, ErrNoText
	}
	sort.Strings(images)

	pages := make([]domain.PageText, 0, len(images))
	for _, image := range images {
		pageNum, ok := pageNumberFromImage(image)
		if !ok {
			continue
		}
		recognise := exec.CommandContext(ctx, "tesseract", image, "stdout", "-l", e.languages)
		out, err := recognise.Output()
		if err != nil {
			e.logger.Warn().Err(err).Int("page", pageNum).Str("file", filepath.Base(path)).Msg("OCR failed for page")
			continue
		}
		text := strings.TrimSpace(string(out))
		if text == "" {
			continue
		}
		pages = append(pages, domain.PageText{Page: pageNum, Text: text})
	}

	if len(pages) == 0 {
		return nil, ErrNoText
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Page < pages[j].Page })
	return pages, nil
}

// pageNumberFromImage parses pdftoppm's "<prefix>-<n>.png" naming.
func pageNumberFromImage(path string) (int, bool) {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	idx := strings.LastIndex(base, "-")
	if idx < 0 {
		return 0, false
	}
	pageNum, err := strconv.Atoi(base[idx+1:])
	if err != nil || pageNum < 1 {
		return 0, false
	}
	return pageNum, true
}
