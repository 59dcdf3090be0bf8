package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"ratsdok/internal/domain"
)

type stubExtractor struct {
	pages []domain.PageText
	err   error
	calls int
}

func (s *stubExtractor) Extract(ctx context.Context, path string) ([]domain.PageText, error) {
	s.calls++
	return s.pages, s.err
}

func TestCompositeUsesPrimary(t *testing.T) {
	primary := &stubExtractor{pages: []domain.PageText{{Page: 1, Text: "Brandschutz"}}}
	fallback := &stubExtractor{}
	c := NewComposite(primary, fallback, arbor.NewLogger())

	pages, err := c.Extract(context.Background(), "a.pdf")

	require.NoError(t, err)
	assert.Len(t, pages, 1)
	assert.Equal(t, 0, fallback.calls)
}

func TestCompositeFallsBackOnNoText(t *testing.T) {
	primary := &stubExtractor{err: ErrNoText}
	fallback := &stubExtractor{pages: []domain.PageText{{Page: 1, Text: "gescannt"}}}
	c := NewComposite(primary, fallback, arbor.NewLogger())

	pages, err := c.Extract(context.Background(), "scan.pdf")

	require.NoError(t, err)
	assert.Equal(t, "gescannt", pages[0].Text)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestCompositeFallsBackOnError(t *testing.T) {
	primary := &stubExtractor{err: errors.New("corrupt xref")}
	fallback := &stubExtractor{err: ErrNoText}
	c := NewComposite(primary, fallback, arbor.NewLogger())

	_, err := c.Extract(context.Background(), "b.pdf")

	assert.ErrorIs(t, err, ErrNoText)
	assert.Equal(t, 1, fallback.calls)
}

func TestCompositeWithoutFallbackPropagates(t *testing.T) {
	primary := &stubExtractor{err: ErrNoText}
	c := NewComposite(primary, nil, arbor.NewLogger())

	_, err := c.Extract(context.Background(), "c.pdf")

	assert.ErrorIs(t, err, ErrNoText)
}

func TestPageNumberFromName(t *testing.T) {
	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"doc_Content_page_3.txt", 3, true},
		{"page_12.txt", 12, true},
		{"page_0.txt", 0, false},
		{"metadata.json", 0, false},
	}
	for _, tt := range tests {
		got, ok := pageNumberFromName(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		if ok {
			assert.Equal(t, tt.want, got, tt.name)
		}
	}
}

func TestUsableText(t *testing.T) {
	assert.True(t, usableText("Der Gemeinderat hat den Haushalt 2024 beschlossen."))
	assert.False(t, usableText("   "))
	assert.False(t, usableText("0 0 612 792 re W n q 0.1 0 0 0.1"))
	assert.False(t, usableText("kurz"))
}
