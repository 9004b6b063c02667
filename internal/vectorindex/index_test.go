package vectorindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildValidatesInput(t *testing.T) {
	_, err := Build("m", []string{"a", "b"}, [][]float32{{1, 0}})
	assert.Error(t, err)

	_, err = Build("m", []string{"a", "b"}, [][]float32{{1, 0}, {1, 0, 0}})
	assert.Error(t, err)

	_, err = Build("m", []string{"a"}, [][]float32{{}})
	assert.Error(t, err)

	idx, err := Build("m", []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Meta.Dimension)
	assert.Equal(t, "m", idx.Meta.EmbeddingModel)
	assert.NotEmpty(t, idx.Meta.BuildID)
	assert.Equal(t, 2, idx.Len())
}

func TestSearchOrdersByCosine(t *testing.T) {
	idx, err := Build("m",
		[]string{"east", "north", "north-east"},
		[][]float32{{1, 0}, {0, 1}, {1, 1}},
	)
	require.NoError(t, err)

	matches := idx.Search([]float32{0.9, 0.1}, 2)
	require.Len(t, matches, 2)
	assert.Equal(t, "east", matches[0].Text)
	assert.Equal(t, 0, matches[0].Position)
	assert.Equal(t, "north-east", matches[1].Text)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestSearchBounds(t *testing.T) {
	idx, err := Build("m", []string{"a", "b"}, [][]float32{{1, 0}, {1, 0}})
	require.NoError(t, err)

	matches := idx.Search([]float32{1, 0}, 10)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Text, "ties keep index order")
	assert.Equal(t, "b", matches[1].Text)

	assert.Empty(t, idx.Search([]float32{1, 0}, 0))

	empty, err := Build("m", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Search([]float32{1, 0}, 4))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "faiss_index"))

	assert.False(t, store.Exists())
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSaveAndLoad(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested", "faiss_index"))
	idx, err := Build("m", []string{"alpha", "beta"}, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)

	require.NoError(t, store.Save(idx))
	assert.True(t, store.Exists())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, idx.Meta.BuildID, loaded.Meta.BuildID)
	assert.Equal(t, idx.Entries, loaded.Entries)
}

func TestStoreSaveReplacesPreviousIndex(t *testing.T) {
	root := t.TempDir()
	store := NewStore(filepath.Join(root, "faiss_index"))

	first, err := Build("m", []string{"old one", "old two"}, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	require.NoError(t, store.Save(first))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "stray.txt"), []byte("x"), 0o644))

	second, err := Build("m", []string{"new"}, [][]float32{{1, 1}})
	require.NoError(t, err)
	require.NoError(t, store.Save(second))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, second.Meta.BuildID, loaded.Meta.BuildID)
	require.Len(t, loaded.Entries, 1)
	assert.Equal(t, "new", loaded.Entries[0].Text)
	assert.NoFileExists(t, filepath.Join(store.Dir(), "stray.txt"))

	leftovers, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, leftovers, 1, "staging directories are cleaned up")
}

func TestStoreSaveEmptyIndex(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "faiss_index"))
	idx, err := Build("m", nil, nil)
	require.NoError(t, err)

	require.NoError(t, store.Save(idx))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Zero(t, loaded.Len())
}

func TestStoreLoadCorrupt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "faiss_index")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexFile), []byte("{not json"), 0o644))

	_, err := NewStore(dir).Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
