// Package chunker splits normalized document text into overlapping
// fixed-size windows, the atomic units fed to the embedder and the vector
// index.
package chunker

import (
	"fmt"
	"strings"

	"ragineer/internal/models"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Span is one window of the source text. Start is the rune offset into the
// normalized text; spans are produced in order of strictly increasing Start.
type Span struct {
	Index int
	Start int
	Text  string
}

// Normalize canonicalizes raw document text before chunking: line endings
// become LF and outer whitespace is dropped.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// Split cuts text into windows of size runes, each window starting
// size-overlap runes after the previous one. The last windows are truncated
// to the remaining text, never padded. Empty normalized text yields
// models.ErrEmptyDocument rather than a single empty chunk.
func Split(text string, size, overlap int) ([]Span, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d", overlap)
	}

	runes := []rune(Normalize(text))
	if len(runes) == 0 {
		return nil, models.ErrEmptyDocument
	}

	step := size - overlap
	var spans []Span
	for start, idx := 0, 0; start < len(runes); start, idx = start+step, idx+1 {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		spans = append(spans, Span{Index: idx, Start: start, Text: string(runes[start:end])})
	}
	return spans, nil
}

// Reassemble stitches spans back into the normalized text they were cut
// from, dropping the overlapping prefix of each span.
func Reassemble(spans []Span) string {
	var b strings.Builder
	covered := 0
	for _, s := range spans {
		text := []rune(s.Text)
		if skip := covered - s.Start; skip > 0 {
			if skip >= len(text) {
				continue
			}
			text = text[skip:]
		}
		b.WriteString(string(text))
		covered = s.Start + len([]rune(s.Text))
	}
	return b.String()
}
