package splitter

import (
	"strings"

	"github.com/lorekeep/lorekeep/internal/domain"
)

// Splitter cuts text into overlapping windows of at most chunkSize
// runes, preferring paragraph breaks, then newlines, then spaces over
// hard cuts. Offsets are rune offsets into the original content.
type Splitter struct{}

func NewSplitter() *Splitter {
	return &Splitter{}
}

// Split implements domain.TextSplitter. It is deterministic and total:
// any input produces a finite chunk list, and every returned chunk has
// non-empty trimmed text. Chunk IDs and file references are left for
// the caller to assign.
func (s *Splitter) Split(content string, chunkSize int, chunkOverlap int) []domain.TextChunk {
	if content == "" {
		return nil
	}

	if chunkSize < 1 {
		chunkSize = domain.DefaultChunkSize
	}

	if chunkOverlap < 0 {
		chunkOverlap = 0
	}

	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}

	runes := []rune(content)
	total := len(runes)

	var chunks []domain.TextChunk

	index := 0
	start := 0

	for start < total {
		end := start + chunkSize

		if end >= total {
			// Remainder fits in one window, no boundary search.
			if chunk, ok := makeChunk(runes, index, start, total); ok {
				chunks = append(chunks, chunk)
			}

			break
		}

		if cut, ok := findBoundary(runes, start, end, chunkSize); ok {
			end = cut
		}

		if chunk, ok := makeChunk(runes, index, start, end); ok {
			chunks = append(chunks, chunk)
			index++
		}

		next := end - chunkOverlap
		if next <= start {
			next = start + 1
		}

		start = next
	}

	return chunks
}

// findBoundary looks for the best cut point inside the window
// [start, end). A candidate only wins if it sits strictly past the
// window's midpoint, so a break near the front cannot shrink the chunk
// below half its size. Returns the rune offset one past the boundary.
func findBoundary(runes []rune, start, end, chunkSize int) (int, bool) {
	// Paragraph break, both newlines inside the window.
	for i := end - 2; i > start; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			if 2*(i-start) > chunkSize {
				return i + 2, true
			}

			break
		}
	}

	// Single newline.
	for i := end - 1; i > start; i-- {
		if runes[i] == '\n' {
			if 2*(i-start) > chunkSize {
				return i + 1, true
			}

			break
		}
	}

	// Plain space.
	for i := end - 1; i > start; i-- {
		if runes[i] == ' ' {
			if 2*(i-start) > chunkSize {
				return i + 1, true
			}

			break
		}
	}

	return 0, false
}

// makeChunk trims the window's text and drops all-whitespace windows.
// The recorded span keeps the untrimmed offsets.
func makeChunk(runes []rune, index, start, end int) (domain.TextChunk, bool) {
	text := strings.TrimSpace(string(runes[start:end]))
	if text == "" {
		return domain.TextChunk{}, false
	}

	return domain.TextChunk{
		Index:      index,
		Text:       text,
		StartIndex: start,
		EndIndex:   end,
	}, true
}
