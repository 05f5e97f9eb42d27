package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragineer/internal/models"
	"ragineer/internal/vectorindex"
)

// seedCorpus ingests one single-chunk document per category with a known
// vector, so tests control exactly which document is "closest".
func seedCorpus(t *testing.T, embedder *fakeEmbedder, index *vectorindex.Index, repo *memDocRepo) map[models.Category]string {
	t.Helper()
	ing := NewIngestor(embedder, index, repo, 1000, 200)

	texts := map[models.Category]string{
		models.CategorySOP:        "lockout tagout steps for the press line",
		models.CategoryManual:     "press line operating manual overview",
		models.CategoryCompliance: "osha compliance checklist for guarding",
	}
	vectors := map[models.Category][]float32{
		models.CategorySOP:        {0, 5},
		models.CategoryManual:     {0, 1}, // closest to the query at the origin
		models.CategoryCompliance: {0, 9},
	}

	ids := make(map[models.Category]string)
	for cat, text := range texts {
		embedder.set(text, vectors[cat])
		doc, err := ing.Ingest(context.Background(), uploader, UploadInput{
			Title:    string(cat) + " doc",
			Category: cat,
			Text:     text,
		})
		require.NoError(t, err)
		ids[cat] = doc.ID
	}
	return ids
}

func TestRetrieveRespectsRoleCategories(t *testing.T) {
	ctx := context.Background()
	embedder := newFakeEmbedder()
	embedder.set("query", []float32{0, 0})
	index := vectorindex.New()
	repo := newMemDocRepo()
	ids := seedCorpus(t, embedder, index, repo)
	r := NewRetriever(embedder, index, repo)

	// The manual chunk is nearest, but a technician may only see sop.
	res, err := r.Retrieve(ctx, "query", models.RoleTechnician, 5)
	require.NoError(t, err)
	require.Len(t, res.Citations, 1)
	assert.Equal(t, ids[models.CategorySOP], res.Citations[0].DocumentID)
	assert.Equal(t, models.CategorySOP, res.Citations[0].Category)

	// An engineer sees everything, nearest first.
	res, err = r.Retrieve(ctx, "query", models.RoleEngineer, 5)
	require.NoError(t, err)
	require.Len(t, res.Citations, 3)
	assert.Equal(t, ids[models.CategoryManual], res.Citations[0].DocumentID)
	assert.Equal(t, ids[models.CategorySOP], res.Citations[1].DocumentID)
	assert.Equal(t, ids[models.CategoryCompliance], res.Citations[2].DocumentID)

	// A viewer sees sop and manual only.
	res, err = r.Retrieve(ctx, "query", models.RoleViewer, 5)
	require.NoError(t, err)
	require.Len(t, res.Citations, 2)
	for _, c := range res.Citations {
		assert.Contains(t, []models.Category{models.CategorySOP, models.CategoryManual}, c.Category)
	}
}

func TestRetrieveScoresDescendingInRange(t *testing.T) {
	ctx := context.Background()
	embedder := newFakeEmbedder()
	embedder.set("query", []float32{0, 0})
	index := vectorindex.New()
	repo := newMemDocRepo()
	seedCorpus(t, embedder, index, repo)
	r := NewRetriever(embedder, index, repo)

	res, err := r.Retrieve(ctx, "query", models.RoleAdmin, 5)
	require.NoError(t, err)
	require.NotEmpty(t, res.Citations)
	for i, c := range res.Citations {
		assert.Greater(t, c.RelevanceScore, 0.0)
		assert.LessOrEqual(t, c.RelevanceScore, 1.0)
		if i > 0 {
			assert.LessOrEqual(t, c.RelevanceScore, res.Citations[i-1].RelevanceScore)
		}
	}
}

func TestRetrieveDeduplicatesByDocument(t *testing.T) {
	ctx := context.Background()
	embedder := newFakeEmbedder()
	embedder.set("query", []float32{0, 0})
	index := vectorindex.New()
	repo := newMemDocRepo()
	r := NewRetriever(embedder, index, repo)

	// One document whose two chunks both land in the top k.
	ing := NewIngestor(embedder, index, repo, 30, 0)
	text := "first half of the welding spec second half of the welding spec"
	doc, err := ing.Ingest(ctx, uploader, UploadInput{Title: "Welding Spec", Category: models.CategorySOP, Text: text})
	require.NoError(t, err)
	require.Greater(t, doc.ChunkCount, 1)

	res, err := r.Retrieve(ctx, "query", models.RoleAdmin, 10)
	require.NoError(t, err)
	require.Len(t, res.Citations, 1, "one citation per document")
	assert.Equal(t, doc.ID, res.Citations[0].DocumentID)
	assert.Len(t, res.Passages, doc.ChunkCount, "every retrieved chunk still reaches generation")
}

func TestRetrieveUnknownRoleFailsClosed(t *testing.T) {
	embedder := newFakeEmbedder()
	index := vectorindex.New()
	repo := newMemDocRepo()
	seedCorpus(t, embedder, index, repo)
	r := NewRetriever(embedder, index, repo)

	res, err := r.Retrieve(context.Background(), "query", "root", 5)
	assert.ErrorIs(t, err, models.ErrUnknownRole)
	assert.Nil(t, res)
}

func TestRetrieveIdempotent(t *testing.T) {
	ctx := context.Background()
	embedder := newFakeEmbedder()
	embedder.set("query", []float32{0, 0})
	index := vectorindex.New()
	repo := newMemDocRepo()
	seedCorpus(t, embedder, index, repo)
	r := NewRetriever(embedder, index, repo)

	first, err := r.Retrieve(ctx, "query", models.RoleViewer, 5)
	require.NoError(t, err)
	second, err := r.Retrieve(ctx, "query", models.RoleViewer, 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRetrieveTruncatesToK(t *testing.T) {
	ctx := context.Background()
	embedder := newFakeEmbedder()
	embedder.set("query", []float32{0, 0})
	index := vectorindex.New()
	repo := newMemDocRepo()
	seedCorpus(t, embedder, index, repo)
	r := NewRetriever(embedder, index, repo)

	res, err := r.Retrieve(ctx, "query", models.RoleAdmin, 1)
	require.NoError(t, err)
	assert.Len(t, res.Citations, 1)
	assert.Len(t, res.Passages, 1)
}
