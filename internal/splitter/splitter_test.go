package splitter

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/lorekeep/lorekeep/internal/domain"
)

func TestSplit(t *testing.T) {
	s := NewSplitter()

	type span struct {
		text  string
		start int
		end   int
	}

	tests := []struct {
		name         string
		content      string
		chunkSize    int
		chunkOverlap int
		want         []span
	}{
		{
			name:         "empty content produces no chunks",
			content:      "",
			chunkSize:    8,
			chunkOverlap: 2,
			want:         nil,
		},
		{
			name:         "whitespace only content produces no chunks",
			content:      "   \n\n\t  ",
			chunkSize:    8,
			chunkOverlap: 2,
			want:         nil,
		},
		{
			name:         "content shorter than chunk size stays whole",
			content:      "hello world",
			chunkSize:    512,
			chunkOverlap: 64,
			want: []span{
				{text: "hello world", start: 0, end: 11},
			},
		},
		{
			name:         "surrounding whitespace is trimmed but the span is not",
			content:      "  hi  ",
			chunkSize:    512,
			chunkOverlap: 64,
			want: []span{
				{text: "hi", start: 0, end: 6},
			},
		},
		{
			name:         "paragraph breaks win over later spaces",
			content:      "abcde\n\nfg hi",
			chunkSize:    8,
			chunkOverlap: 0,
			want: []span{
				{text: "abcde", start: 0, end: 7},
				{text: "fg hi", start: 7, end: 12},
			},
		},
		{
			name:         "newline fallback when the paragraph break sits too early",
			content:      "AAAA\n\nBBBB\n\nCCCC",
			chunkSize:    8,
			chunkOverlap: 2,
			want: []span{
				{text: "AAAA", start: 0, end: 6},
				{text: "BBBB", start: 4, end: 12},
				{text: "CCCC", start: 10, end: 16},
			},
		},
		{
			name:         "newline wins over a later space",
			content:      "abcdef\ngh ij",
			chunkSize:    10,
			chunkOverlap: 0,
			want: []span{
				{text: "abcdef", start: 0, end: 7},
				{text: "gh ij", start: 7, end: 12},
			},
		},
		{
			name:         "space boundary in the second half",
			content:      "abcde fgh",
			chunkSize:    8,
			chunkOverlap: 0,
			want: []span{
				{text: "abcde", start: 0, end: 6},
				{text: "fgh", start: 6, end: 9},
			},
		},
		{
			name:         "boundary in the first half is rejected",
			content:      "ab cdefgh",
			chunkSize:    8,
			chunkOverlap: 0,
			want: []span{
				{text: "ab cdefg", start: 0, end: 8},
				{text: "h", start: 8, end: 9},
			},
		},
		{
			name:         "hard cuts with overlap",
			content:      "aaaaaaaaaa",
			chunkSize:    4,
			chunkOverlap: 1,
			want: []span{
				{text: "aaaa", start: 0, end: 4},
				{text: "aaaa", start: 3, end: 7},
				{text: "aaaa", start: 6, end: 10},
			},
		},
		{
			name:         "offsets count runes not bytes",
			content:      "你好世界你好世界",
			chunkSize:    3,
			chunkOverlap: 1,
			want: []span{
				{text: "你好世", start: 0, end: 3},
				{text: "世界你", start: 2, end: 5},
				{text: "你好世", start: 4, end: 7},
				{text: "世界", start: 6, end: 8},
			},
		},
		{
			name:         "overlap larger than size still makes progress",
			content:      "abcdefgh",
			chunkSize:    4,
			chunkOverlap: 9,
			want: []span{
				{text: "abcd", start: 0, end: 4},
				{text: "bcde", start: 1, end: 5},
				{text: "cdef", start: 2, end: 6},
				{text: "defg", start: 3, end: 7},
				{text: "efgh", start: 4, end: 8},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := s.Split(tt.content, tt.chunkSize, tt.chunkOverlap)

			require.Len(t, chunks, len(tt.want))

			for i, want := range tt.want {
				assert.Equal(t, want.text, chunks[i].Text, "chunk %d text", i)
				assert.Equal(t, want.start, chunks[i].StartIndex, "chunk %d start", i)
				assert.Equal(t, want.end, chunks[i].EndIndex, "chunk %d end", i)
				assert.Equal(t, i, chunks[i].Index, "chunk %d ordinal", i)
			}
		})
	}
}

func TestSplit_WindowsSkippedInsideWhitespaceRuns(t *testing.T) {
	s := NewSplitter()

	content := "aaaa" + strings.Repeat(" ", 8) + "bbbb"

	chunks := s.Split(content, 4, 0)

	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaa", chunks[0].Text)
	assert.Equal(t, "bbbb", chunks[1].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)
}

func TestSplit_NonPositiveChunkSizeUsesDefault(t *testing.T) {
	s := NewSplitter()

	content := strings.Repeat("a", domain.DefaultChunkSize+10)

	chunks := s.Split(content, 0, 0)

	require.NotEmpty(t, chunks)
	assert.Equal(t, domain.DefaultChunkSize, chunks[0].EndIndex-chunks[0].StartIndex)
}

func TestSplitProperties(t *testing.T) {
	s := NewSplitter()

	alphabet := []rune{'a', 'b', 'c', '世', '界', ' ', '\n', '\t'}

	rapid.Check(t, func(t *rapid.T) {
		contentRunes := rapid.SliceOfN(rapid.SampledFrom(alphabet), 0, 200).Draw(t, "content")
		content := string(contentRunes)
		chunkSize := rapid.IntRange(1, 32).Draw(t, "chunkSize")
		chunkOverlap := rapid.IntRange(0, 40).Draw(t, "chunkOverlap")

		chunks := s.Split(content, chunkSize, chunkOverlap)

		runes := []rune(content)
		covered := make([]bool, len(runes))

		prevStart := -1
		for i, chunk := range chunks {
			if chunk.Index != i {
				t.Fatalf("chunk %d has ordinal %d", i, chunk.Index)
			}

			if chunk.StartIndex <= prevStart {
				t.Fatalf("chunk %d start %d does not advance past %d", i, chunk.StartIndex, prevStart)
			}
			prevStart = chunk.StartIndex

			if chunk.StartIndex < 0 || chunk.EndIndex > len(runes) || chunk.StartIndex >= chunk.EndIndex {
				t.Fatalf("chunk %d has invalid span [%d, %d) for %d runes", i, chunk.StartIndex, chunk.EndIndex, len(runes))
			}

			if span := chunk.EndIndex - chunk.StartIndex; span > chunkSize {
				t.Fatalf("chunk %d span %d exceeds chunk size %d", i, span, chunkSize)
			}

			wantText := strings.TrimSpace(string(runes[chunk.StartIndex:chunk.EndIndex]))
			if chunk.Text != wantText {
				t.Fatalf("chunk %d text %q does not match trimmed span %q", i, chunk.Text, wantText)
			}

			if chunk.Text == "" {
				t.Fatalf("chunk %d has empty trimmed text", i)
			}

			for j := chunk.StartIndex; j < chunk.EndIndex; j++ {
				covered[j] = true
			}
		}

		for i, r := range runes {
			if !unicode.IsSpace(r) && !covered[i] {
				t.Fatalf("rune %d (%q) is not covered by any chunk", i, r)
			}
		}
	})
}

func TestSplitDeterministic(t *testing.T) {
	s := NewSplitter()

	content := "The quick brown fox.\n\nJumps over the lazy dog. Again and again until done."

	first := s.Split(content, 24, 6)
	second := s.Split(content, 24, 6)

	assert.Equal(t, first, second)
}
