package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medibot/internal/loader"
)

// reassemble undoes the declared overlap: the first part verbatim, then
// every later part minus its overlap prefix.
func reassemble(parts []string, overlap int) string {
	var b strings.Builder
	for i, p := range parts {
		if i == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(string([]rune(p)[overlap:]))
	}
	return b.String()
}

// sampleText builds n short paragraphs of sentence-shaped prose.
func sampleText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Paragraph %d begins here. It has a second sentence with more words. And a third one to pad things out a bit further.", i)
		if i < n-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func TestNewSplitterValidation(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		wantErr   bool
	}{
		{"valid", 1000, 150, false},
		{"zero overlap", 100, 0, false},
		{"zero size", 0, 0, true},
		{"negative size", -1, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 150, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.chunkSize, tt.overlap)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	s, err := NewSplitter(1000, 150)
	require.NoError(t, err)

	text := "A short page that fits in one chunk."
	parts := s.Split(text)

	require.Len(t, parts, 1)
	assert.Equal(t, text, parts[0])
}

func TestSplitIsDeterministic(t *testing.T) {
	s, err := NewSplitter(200, 40)
	require.NoError(t, err)

	text := sampleText(12)
	first := s.Split(text)
	second := s.Split(text)

	require.Equal(t, first, second)
}

func TestSplitReconstructsInput(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"paragraphs", sampleText(15)},
		{"single long line", strings.Repeat("word ", 400)},
		{"no whitespace at all", strings.Repeat("x", 1234)},
		{"unicode", strings.Repeat("α βγ δε. ", 200)},
	}

	s, err := NewSplitter(300, 60)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := s.Split(tt.text)
			require.NotEmpty(t, parts)
			assert.Equal(t, tt.text, reassemble(parts, 60))
		})
	}
}

func TestSplitRespectsSizeAndOverlap(t *testing.T) {
	const size, overlap = 300, 60
	s, err := NewSplitter(size, overlap)
	require.NoError(t, err)

	parts := s.Split(sampleText(20))
	require.Greater(t, len(parts), 1)

	for i, p := range parts {
		runes := []rune(p)
		assert.NotEmpty(t, runes, "chunk %d is empty", i)
		assert.LessOrEqual(t, len(runes), size, "chunk %d exceeds the size limit", i)

		if i > 0 {
			prev := []rune(parts[i-1])
			assert.Equal(t,
				string(prev[len(prev)-overlap:]),
				string(runes[:overlap]),
				"chunks %d and %d do not share the overlap window", i-1, i)
		}
	}
}

func TestSplitBlankTextYieldsNothing(t *testing.T) {
	s, err := NewSplitter(100, 20)
	require.NoError(t, err)

	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("   \n\n\t  "))
}

func TestSplitPagesKeepsProvenance(t *testing.T) {
	s, err := NewSplitter(1000, 150)
	require.NoError(t, err)

	pages := []loader.PageDocument{
		{Text: sampleText(25), Source: "book.pdf", Page: 0, PageLabel: "1"},
		{Text: sampleText(25), Source: "book.pdf", Page: 1, PageLabel: "2"},
		{Text: "  \n ", Source: "book.pdf", Page: 2, PageLabel: "3"},
	}

	chunks := s.SplitPages(pages)
	require.GreaterOrEqual(t, len(chunks), 4, "expected at least two chunks per non-empty page")

	perPage := make(map[int]int)
	for _, c := range chunks {
		perPage[c.Page]++
		assert.Equal(t, "book.pdf", c.Source)
		assert.LessOrEqual(t, len([]rune(c.Text)), 1000)
	}
	assert.GreaterOrEqual(t, perPage[0], 2)
	assert.GreaterOrEqual(t, perPage[1], 2)
	assert.Zero(t, perPage[2], "blank page must yield no chunks")

	// Consecutive chunks of the same page share at least the overlap.
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Page != chunks[i-1].Page {
			continue
		}
		prev := []rune(chunks[i-1].Text)
		curr := []rune(chunks[i].Text)
		assert.Equal(t, string(prev[len(prev)-150:]), string(curr[:150]))
	}
}
