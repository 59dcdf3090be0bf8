package extract

import (
	"context"
	"errors"

	"github.com/ternarybob/arbor"

	"ratsdok/internal/domain"
)

// Composite tries the fast primary extractor first and falls back to the
// slow one when the primary fails or yields no usable pages.
type Composite struct {
	primary  domain.Extractor
	fallback domain.Extractor
	logger   arbor.ILogger
}

var _ domain.Extractor = (*Composite)(nil)

func NewComposite(primary, fallback domain.Extractor, logger arbor.ILogger) *Composite {
	return &Composite{primary: primary, fallback: fallback, logger: logger}
}

func (c *Composite) Extract(ctx context.Context, path string) ([]domain.PageText, error) {
	pages, err := c.primary.Extract(ctx, path)
	if err == nil && len(pages) > 0 {
		return pages, nil
	}
	if err != nil && !errors.Is(err, ErrNoText) {
		c.logger.Warn().Err(err).Str("path", path).Msg("Primary extraction failed, falling back to OCR")
	} else {
		c.logger.Debug().Str("path", path).Msg("No embedded text, falling back to OCR")
	}
	if c.fallback == nil {
		if err != nil {
			return nil, err
		}
		return nil, ErrNoText
	}
	return c.fallback.Extract(ctx, path)
}
