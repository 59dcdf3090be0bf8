package chunker

import (
	"strings"
	"unicode/utf8"
)

// defaultSeparators is the split priority: paragraph, line, sentence,
// word, character.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveChunker splits text into overlapping chunks of bounded size,
// preferring natural boundaries. Identical input always yields identical
// chunks; chunk indices derived from the output are stable across runs.
type RecursiveChunker struct {
	size       int
	overlap    int
	minLen     int
	separators []string
}

func NewRecursiveChunker(size, overlap, minLen int) *RecursiveChunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	if minLen < 0 {
		minLen = 0
	}
	return &RecursiveChunker{
		size:       size,
		overlap:    overlap,
		minLen:     minLen,
		separators: defaultSeparators,
	}
}

// Chunk splits text and drops whitespace-only pieces and pieces shorter
// than the minimum length. Very short chunks are retrieval noise (table
// fragments, page furniture).
func (c *RecursiveChunker) Chunk(text string) []string {
	pieces := c.split(text, c.separators)
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" || len(p) < c.minLen {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (c *RecursiveChunker) split(text string, seps []string) []string {
	if len(text) <= c.size {
		return []string{text}
	}

	// Earliest separator in priority order that occurs in the text wins.
	sep := ""
	var rest []string
	for i, s := range seps {
		if s == "" {
			sep = ""
			rest = nil
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}

	if sep == "" {
		return c.windows(text)
	}

	splits := strings.SplitAfter(text, sep)

	var final []string
	var good []string
	for _, s := range splits {
		if len(s) <= c.size {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.merge(good)...)
			good = nil
		}
		final = append(final, c.split(s, rest)...)
	}
	if len(good) > 0 {
		final = append(final, c.merge(good)...)
	}
	return final
}

// merge greedily joins consecutive splits into chunks no larger than size,
// retaining a trailing window of up to overlap bytes between neighbours.
func (c *RecursiveChunker) merge(splits []string) []string {
	var chunks []string
	var current []string
	total := 0
	for _, s := range splits {
		if total+len(s) > c.size && total > 0 {
			chunks = append(chunks, strings.Join(current, ""))
			for total > c.overlap || (total+len(s) > c.size && total > 0) {
				total -= len(current[0])
				current = current[1:]
			}
		}
		current = append(current, s)
		total += len(s)
	}
	if total > 0 {
		chunks = append(chunks, strings.Join(current, ""))
	}
	return chunks
}

// windows is the character-level fallback for text without any separator:
// fixed windows advancing by size-overlap, cut on rune boundaries.
func (c *RecursiveChunker) windows(text string) []string {
	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		chunks = append(chunks, text[start:end])
		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}
	return chunks
}
