package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"

	"ragineer/internal/models"
	"ragineer/internal/policy"
	"ragineer/internal/vectorindex"
)

// Result is what one retrieval produces: document-level citations for the
// requester, plus the chunk-level passages handed to answer generation.
type Result struct {
	Citations []models.Citation
	Passages  []models.Passage
}

// Retriever runs role-scoped similarity search over the vector index.
type Retriever struct {
	embedder embeddings.Embedder
	index    *vectorindex.Index
	docs     DocumentRepo
}

func NewRetriever(embedder embeddings.Embedder, index *vectorindex.Index, docs DocumentRepo) *Retriever {
	return &Retriever{embedder: embedder, index: index, docs: docs}
}

// Retrieve embeds the query, searches within the categories the role may
// see, and maps hits to citations. Citations are deduplicated per document,
// keeping the best-scoring chunk and preserving rank order; at most k are
// returned.
func (r *Retriever) Retrieve(ctx context.Context, query string, role models.Role, k int) (*Result, error) {
	allowed, err := policy.AllowedCategories(role)
	if err != nil {
		return nil, err
	}
	if len(allowed) == 0 {
		return &Result{}, nil
	}

	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.index.Search(queryVec, k, allowed)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	docsByID := make(map[string]*models.Document)
	for _, hit := range hits {
		doc, ok := docsByID[hit.DocumentID]
		if !ok {
			doc, err = r.docs.GetDocument(ctx, hit.DocumentID)
			if errors.Is(err, models.ErrNotFound) {
				// Index and document store can briefly disagree around a
				// delete; skip rather than cite a vanished document.
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("resolve document %s: %w", hit.DocumentID, err)
			}
			docsByID[hit.DocumentID] = doc
			res.Citations = append(res.Citations, models.Citation{
				DocumentID:     doc.ID,
				Title:          doc.Title,
				Category:       doc.Category,
				RelevanceScore: relevance(hit.Distance),
			})
		}
		res.Passages = append(res.Passages, models.Passage{
			DocumentTitle: doc.Title,
			Text:          hit.Text,
		})
	}
	return res, nil
}

// relevance maps a distance to a score in (0,1], monotonically decreasing so
// ordering by score matches ordering by distance.
func relevance(distance float64) float64 {
	return 1 / (1 + distance)
}
