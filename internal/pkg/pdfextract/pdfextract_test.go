package pdfextract

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogniva-docs/internal/pkg/pdfextract/pdftest"
)

func TestExtractTextSinglePage(t *testing.T) {
	doc := pdftest.Build("The capital of France is Paris.")

	text, err := ExtractText(bytes.NewReader(doc))
	require.NoError(t, err)
	assert.Contains(t, text, "The capital of France is Paris.")
}

func TestExtractPagesKeepsOrder(t *testing.T) {
	doc := pdftest.Build("first page", "", "third page")

	pages, err := ExtractPages(bytes.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Contains(t, pages[0], "first page")
	assert.Empty(t, strings.TrimSpace(pages[1]))
	assert.Contains(t, pages[2], "third page")

	text, err := ExtractText(bytes.NewReader(doc))
	require.NoError(t, err)
	assert.Less(t, strings.Index(text, "first"), strings.Index(text, "third"))
}

func TestExtractTextEmptyInput(t *testing.T) {
	text, err := ExtractText(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractTextMalformed(t *testing.T) {
	_, err := ExtractText(strings.NewReader("definitely not a pdf"))
	assert.Error(t, err)
}
