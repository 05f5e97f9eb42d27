// Package vectorindex is an in-process exact k-nearest-neighbor index over
// chunk embeddings. Distances are Euclidean; ties go to the earlier-inserted
// entry. The index is the one place categories are filtered at the vector
// layer, so search can never hand back an entry outside the caller's allowed
// set.
package vectorindex

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"ragineer/internal/models"
)

// Entry is the denormalized projection of a chunk kept in the index: the
// vector plus what retrieval needs without a store round-trip.
type Entry struct {
	ChunkID    string
	DocumentID string
	Category   models.Category
	Text       string
	Vector     []float32
}

// Hit is one search result, ordered by ascending Distance.
type Hit struct {
	ChunkID    string
	DocumentID string
	Category   models.Category
	Text       string
	Distance   float64
}

// Index supports concurrent searches; inserts and removals are exclusive
// with each other and with searches, so every search observes a consistent
// snapshot of the entries.
type Index struct {
	mu        sync.RWMutex
	dimension int
	entries   []Entry
}

func New() *Index { return &Index{} }

// Dimension is 0 until the first insert fixes it.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Insert adds one entry. The first insert fixes the index dimension; every
// later vector must match it exactly.
func (ix *Index) Insert(e Entry) error {
	if len(e.Vector) == 0 {
		return fmt.Errorf("%w: empty vector for chunk %s", models.ErrDimensionMismatch, e.ChunkID)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dimension == 0 {
		ix.dimension = len(e.Vector)
	} else if len(e.Vector) != ix.dimension {
		return fmt.Errorf("%w: index dimension %d, vector dimension %d", models.ErrDimensionMismatch, ix.dimension, len(e.Vector))
	}

	e.Vector = append([]float32(nil), e.Vector...)
	ix.entries = append(ix.entries, e)
	return nil
}

// RemoveDocument drops every entry belonging to the document and reports how
// many were removed. Removing an unknown document is a no-op.
func (ix *Index) RemoveDocument(documentID string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	kept := ix.entries[:0]
	for _, e := range ix.entries {
		if e.DocumentID != documentID {
			kept = append(kept, e)
		}
	}
	removed := len(ix.entries) - len(kept)
	ix.entries = kept
	return removed
}

// Search returns up to k hits whose category is in allowed, ordered by
// ascending Euclidean distance; equal distances keep insertion order.
func (ix *Index) Search(query []float32, k int, allowed map[models.Category]struct{}) ([]Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.dimension != 0 && len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: index dimension %d, query dimension %d", models.ErrDimensionMismatch, ix.dimension, len(query))
	}
	if k <= 0 || len(allowed) == 0 {
		return nil, nil
	}

	var hits []Hit
	for _, e := range ix.entries {
		if _, ok := allowed[e.Category]; !ok {
			continue
		}
		hits = append(hits, Hit{
			ChunkID:    e.ChunkID,
			DocumentID: e.DocumentID,
			Category:   e.Category,
			Text:       e.Text,
			Distance:   euclidean(query, e.Vector),
		})
	}

	// Stable sort keeps insertion order among equal distances.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
