// Package textsplit splits long text into bounded, overlapping chunks.
//
// The splitter works recursively over a list of separators: text is cut on the
// first separator it contains, small pieces are merged back up to ChunkSize,
// and pieces that are still too large are split again with the remaining
// separators. Lengths are counted in runes.
package textsplit

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 50000
	DefaultChunkOverlap = 1000
)

// DefaultSeparators go from paragraph to single character.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

type RecursiveSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

func NewRecursiveSplitter(chunkSize, chunkOverlap int) *RecursiveSplitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &RecursiveSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
	}
}

func (s *RecursiveSplitter) Validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be in [0, %d)", s.ChunkOverlap, s.ChunkSize)
	}
	return nil
}

// SplitText returns the chunks of text in order. Empty or whitespace-only
// text yields no chunks.
func (s *RecursiveSplitter) SplitText(text string) []string {
	separators := s.Separators
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return s.split(text, separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var chunks []string
	var good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if length(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
			continue
		}
		chunks = append(chunks, s.split(piece, rest)...)
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}
	return chunks
}

// merge packs pieces into chunks of at most ChunkSize runes. When a chunk is
// emitted, pieces are dropped from its head until at most ChunkOverlap runes
// remain to seed the next chunk.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var chunks []string
	var current []string
	total := 0
	for _, piece := range pieces {
		n := length(piece)
		if total+n > s.ChunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for len(current) > 0 && (total > s.ChunkOverlap || total+n > s.ChunkSize) {
				total -= length(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepingSeparator cuts text on sep and glues each separator onto the
// start of the piece that follows it. An empty separator splits into runes.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	parts := strings.Split(text, sep)
	pieces := make([]string, 0, len(parts))
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, part := range parts[1:] {
		pieces = append(pieces, sep+part)
	}
	return pieces
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
