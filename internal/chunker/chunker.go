package chunker

import (
	"fmt"
	"unicode"

	"medibot/internal/loader"
)

// Chunk is a bounded text segment carrying its source page's provenance.
type Chunk struct {
	Text      string
	Source    string
	Page      int
	PageLabel string
}

// Splitter cuts page text into overlapping windows of at most chunkSize
// runes, preferring paragraph, line, sentence, and word boundaries over
// hard cuts. Splitting is deterministic for fixed parameters.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter validates the parameters and returns a Splitter.
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got %d", overlap)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// SplitPages chunks each page independently so no chunk ever spans two
// pages. Whitespace-only pages yield no chunks.
func (s *Splitter) SplitPages(pages []loader.PageDocument) []Chunk {
	var chunks []Chunk
	for _, p := range pages {
		for _, part := range s.Split(p.Text) {
			chunks = append(chunks, Chunk{
				Text:      part,
				Source:    p.Source,
				Page:      p.Page,
				PageLabel: p.PageLabel,
			})
		}
	}
	return chunks
}

// Split cuts text into overlapping parts. Each part after the first
// starts exactly overlap runes before the previous part's end, so
// concatenating the first part with every later part minus its overlap
// prefix reconstructs the input verbatim.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if !hasContent(runes) {
		return nil
	}
	if len(runes) <= s.chunkSize {
		return []string{text}
	}

	var parts []string
	start := 0
	for {
		end := start + s.chunkSize
		if end >= len(runes) {
			parts = append(parts, string(runes[start:]))
			break
		}
		end = s.cutPoint(runes, start, end)
		parts = append(parts, string(runes[start:end]))
		start = end - s.overlap
	}
	return parts
}

// cutPoint moves end back to the best boundary inside the window.
// Boundaries are tried in order: paragraph break, line break, sentence
// end, whitespace. The cut never moves before floor, which guarantees
// forward progress and keeps chunks from degenerating.
func (s *Splitter) cutPoint(runes []rune, start, end int) int {
	floor := start + s.chunkSize/2
	if floor <= start+s.overlap {
		floor = start + s.overlap + 1
	}

	boundaries := []func(i int) bool{
		func(i int) bool { return runes[i] == '\n' && runes[i-1] == '\n' },
		func(i int) bool { return runes[i] == '\n' },
		func(i int) bool { return isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) },
		func(i int) bool { return unicode.IsSpace(runes[i]) },
	}

	for _, match := range boundaries {
		for i := end - 1; i >= floor; i-- {
			if i == 0 || i+1 >= len(runes) {
				continue
			}
			if match(i) {
				return i + 1
			}
		}
	}
	return end // hard cut
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func hasContent(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
