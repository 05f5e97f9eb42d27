package vectorindex

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragineer/internal/models"
)

func allCategories() map[models.Category]struct{} {
	set := make(map[models.Category]struct{})
	for _, c := range models.Categories() {
		set[c] = struct{}{}
	}
	return set
}

func only(cats ...models.Category) map[models.Category]struct{} {
	set := make(map[models.Category]struct{})
	for _, c := range cats {
		set[c] = struct{}{}
	}
	return set
}

func TestInsertFixesDimension(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert(Entry{ChunkID: "a:0", DocumentID: "a", Category: models.CategorySOP, Vector: []float32{1, 2, 3}}))
	assert.Equal(t, 3, ix.Dimension())

	err := ix.Insert(Entry{ChunkID: "a:1", DocumentID: "a", Category: models.CategorySOP, Vector: []float32{1, 2}})
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)
	assert.Equal(t, 1, ix.Len())
}

func TestInsertRejectsEmptyVector(t *testing.T) {
	ix := New()
	err := ix.Insert(Entry{ChunkID: "a:0", DocumentID: "a", Category: models.CategorySOP})
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)
}

func TestSearchDimensionMismatch(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert(Entry{ChunkID: "a:0", DocumentID: "a", Category: models.CategorySOP, Vector: []float32{1, 2, 3}}))

	_, err := ix.Search([]float32{1, 2}, 5, allCategories())
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)
}

func TestSearchOrdersByDistance(t *testing.T) {
	ix := New()
	vectors := [][]float32{{0, 5}, {0, 1}, {0, 3}, {0, 2}, {0, 4}}
	for i, v := range vectors {
		require.NoError(t, ix.Insert(Entry{
			ChunkID:    fmt.Sprintf("d:%d", i),
			DocumentID: "d",
			Category:   models.CategoryManual,
			Vector:     v,
		}))
	}

	hits, err := ix.Search([]float32{0, 0}, 10, allCategories())
	require.NoError(t, err)
	require.Len(t, hits, 5)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i].Distance, hits[i-1].Distance)
	}
	assert.Equal(t, "d:1", hits[0].ChunkID)
	assert.Equal(t, "d:0", hits[4].ChunkID)
}

func TestSearchTieBreaksByInsertionOrder(t *testing.T) {
	ix := New()
	// Same distance from the origin, inserted in a known order.
	require.NoError(t, ix.Insert(Entry{ChunkID: "first", DocumentID: "x", Category: models.CategorySOP, Vector: []float32{3, 4}}))
	require.NoError(t, ix.Insert(Entry{ChunkID: "second", DocumentID: "y", Category: models.CategorySOP, Vector: []float32{4, 3}}))
	require.NoError(t, ix.Insert(Entry{ChunkID: "third", DocumentID: "z", Category: models.CategorySOP, Vector: []float32{0, 5}}))

	hits, err := ix.Search([]float32{0, 0}, 3, allCategories())
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{hits[0].ChunkID, hits[1].ChunkID, hits[2].ChunkID})
}

func TestSearchFiltersCategories(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert(Entry{ChunkID: "m:0", DocumentID: "m", Category: models.CategoryManual, Vector: []float32{0, 1}}))
	require.NoError(t, ix.Insert(Entry{ChunkID: "s:0", DocumentID: "s", Category: models.CategorySOP, Vector: []float32{0, 9}}))

	// The manual chunk is closer but must not surface for an sop-only filter.
	hits, err := ix.Search([]float32{0, 0}, 10, only(models.CategorySOP))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "s:0", hits[0].ChunkID)

	hits, err = ix.Search([]float32{0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchTruncatesToK(t *testing.T) {
	ix := New()
	for i := 0; i < 20; i++ {
		require.NoError(t, ix.Insert(Entry{
			ChunkID:    fmt.Sprintf("d:%d", i),
			DocumentID: "d",
			Category:   models.CategoryOther,
			Vector:     []float32{float32(i), 0},
		}))
	}
	hits, err := ix.Search([]float32{0, 0}, 7, allCategories())
	require.NoError(t, err)
	assert.Len(t, hits, 7)
}

func TestRemoveDocument(t *testing.T) {
	ix := New()
	for i := 0; i < 3; i++ {
		require.NoError(t, ix.Insert(Entry{ChunkID: fmt.Sprintf("a:%d", i), DocumentID: "a", Category: models.CategorySOP, Vector: []float32{float32(i)}}))
	}
	require.NoError(t, ix.Insert(Entry{ChunkID: "b:0", DocumentID: "b", Category: models.CategorySOP, Vector: []float32{9}}))

	assert.Equal(t, 3, ix.RemoveDocument("a"))
	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, 0, ix.RemoveDocument("a"))

	hits, err := ix.Search([]float32{0}, 10, allCategories())
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "a", h.DocumentID)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ix := New()
	for i := 0; i < 10; i++ {
		require.NoError(t, ix.Insert(Entry{
			ChunkID:    fmt.Sprintf("doc:%d", i),
			DocumentID: "doc",
			Category:   models.Categories()[i%4],
			Text:       fmt.Sprintf("chunk %d", i),
			Vector:     []float32{float32(i), float32(10 - i), 0.5},
		}))
	}

	path := filepath.Join(t.TempDir(), "index.gob")
	require.NoError(t, ix.Save(path))

	restored, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ix.Dimension(), restored.Dimension())
	assert.Equal(t, ix.Len(), restored.Len())

	query := []float32{2.5, 7.5, 0.5}
	before, err := ix.Search(query, 10, allCategories())
	require.NoError(t, err)
	after, err := restored.Search(query, 10, allCategories())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLoadOrNewMissingSnapshot(t *testing.T) {
	ix, err := LoadOrNew(filepath.Join(t.TempDir(), "absent.gob"))
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
}

func TestConcurrentSearchAndInsert(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert(Entry{ChunkID: "seed", DocumentID: "seed", Category: models.CategorySOP, Vector: []float32{0, 0}}))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = ix.Insert(Entry{
					ChunkID:    fmt.Sprintf("w%d:%d", w, i),
					DocumentID: fmt.Sprintf("w%d", w),
					Category:   models.CategorySOP,
					Vector:     []float32{float32(w), float32(i)},
				})
			}
		}(w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := ix.Search([]float32{0, 0}, 5, allCategories())
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1+4*50, ix.Len())
}
