package textsplit

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextWordsWithOverlap(t *testing.T) {
	s := NewRecursiveSplitter(10, 5)

	chunks := s.SplitText("aaaa bbbb cccc dddd")

	assert.Equal(t, []string{"aaaa bbbb", "bbbb cccc", "cccc dddd"}, chunks)
}

func TestSplitTextCharacterFallback(t *testing.T) {
	s := NewRecursiveSplitter(5, 2)

	chunks := s.SplitText("abcdefghijkl")

	assert.Equal(t, []string{"abcde", "defgh", "ghijk", "jkl"}, chunks)
}

func TestSplitTextRecursesIntoOversizedPieces(t *testing.T) {
	s := NewRecursiveSplitter(5, 0)

	chunks := s.SplitText("aaaaaaaaaaaa bb")

	assert.Equal(t, []string{"aaaaa", "aaaaa", "aa", "bb"}, chunks)
}

func TestSplitTextKeepsSmallTextWhole(t *testing.T) {
	s := NewRecursiveSplitter(DefaultChunkSize, DefaultChunkOverlap)

	chunks := s.SplitText("para one\n\npara two\nline three")

	assert.Equal(t, []string{"para one\n\npara two\nline three"}, chunks)
}

func TestSplitTextEmpty(t *testing.T) {
	s := NewRecursiveSplitter(10, 2)

	assert.Empty(t, s.SplitText(""))
	assert.Empty(t, s.SplitText("   \n\n  "))
}

func TestSplitTextCountsRunes(t *testing.T) {
	s := NewRecursiveSplitter(3, 0)

	chunks := s.SplitText("ééééé")

	assert.Equal(t, []string{"ééé", "éé"}, chunks)
}

func TestSplitTextDeterministicAndBounded(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 400; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog.")
		if i%7 == 0 {
			b.WriteString("\n\n")
		} else {
			b.WriteString(" ")
		}
	}
	text := b.String()
	s := NewRecursiveSplitter(300, 50)

	first := s.SplitText(text)
	second := s.SplitText(text)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
	for _, chunk := range first {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 300)
		assert.NotEmpty(t, chunk)
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, NewRecursiveSplitter(10, 2).Validate())
	assert.Error(t, (&RecursiveSplitter{ChunkSize: 10, ChunkOverlap: 10}).Validate())
	assert.Error(t, (&RecursiveSplitter{ChunkSize: 0}).Validate())
}
