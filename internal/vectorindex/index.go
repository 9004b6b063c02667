// Package vectorindex keeps chunk texts and their embeddings in a flat,
// single-directory index on local disk and answers cosine-similarity queries
// over it by brute force.
package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Meta describes one index build.
type Meta struct {
	BuildID        string    `json:"build_id"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	CreatedAt      time.Time `json:"created_at"`
}

type Entry struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

type Index struct {
	Meta    Meta    `json:"meta"`
	Entries []Entry `json:"entries"`
}

type Match struct {
	Position int     `json:"position"`
	Text     string  `json:"text"`
	Score    float32 `json:"score"`
}

// Build pairs texts with vectors. All vectors must share one dimension.
// A fresh build ID is assigned.
func Build(embeddingModel string, texts []string, vectors [][]float32) (*Index, error) {
	if len(texts) != len(vectors) {
		return nil, fmt.Errorf("texts and vectors length mismatch: %d vs %d", len(texts), len(vectors))
	}
	dim := 0
	entries := make([]Entry, len(texts))
	for i := range texts {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("empty vector at position %d", i)
		}
		if dim == 0 {
			dim = len(vectors[i])
		} else if len(vectors[i]) != dim {
			return nil, fmt.Errorf("vector dimension mismatch at position %d: %d vs %d", i, len(vectors[i]), dim)
		}
		entries[i] = Entry{Text: texts[i], Embedding: vectors[i]}
	}
	return &Index{
		Meta: Meta{
			BuildID:        uuid.NewString(),
			EmbeddingModel: embeddingModel,
			Dimension:      dim,
			CreatedAt:      time.Now().UTC(),
		},
		Entries: entries,
	}, nil
}

func (idx *Index) Len() int {
	return len(idx.Entries)
}

func (idx *Index) validate() error {
	if idx.Meta.BuildID == "" {
		return errors.New("index has no build id")
	}
	for i := range idx.Entries {
		if len(idx.Entries[i].Embedding) != idx.Meta.Dimension {
			return fmt.Errorf("entry %d has dimension %d, index declares %d", i, len(idx.Entries[i].Embedding), idx.Meta.Dimension)
		}
	}
	return nil
}

// Search returns up to k entries ordered by descending cosine similarity.
// Equal scores keep index order.
func (idx *Index) Search(query []float32, k int) []Match {
	if k <= 0 || len(idx.Entries) == 0 {
		return nil
	}
	matches := make([]Match, len(idx.Entries))
	for i := range idx.Entries {
		matches[i] = Match{
			Position: i,
			Text:     idx.Entries[i].Text,
			Score:    cosineSimilarity(query, idx.Entries[i].Embedding),
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
