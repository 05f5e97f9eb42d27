package rag

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"ragineer/internal/models"
)

// fakeEmbedder returns canned vectors for known texts and a deterministic
// hash-derived vector otherwise. It can be told to start failing after a
// number of calls to exercise mid-stream rollback.
type fakeEmbedder struct {
	vectors   map[string][]float32
	dim       int
	failAfter int
	calls     int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: make(map[string][]float32), dim: 3}
}

func (f *fakeEmbedder) set(text string, vec []float32) {
	f.vectors[text] = vec
	f.dim = len(vec)
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failAfter > 0 && f.calls >= f.failAfter {
		return nil, errors.New("embedding endpoint unavailable")
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32((seed>>(uint(i)*8))&0xff) / 255
	}
	return vec, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := f.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// memDocRepo is an in-memory DocumentRepo for tests.
type memDocRepo struct {
	mu        sync.Mutex
	docs      map[string]models.Document
	chunks    map[string][]models.Chunk
	insertErr error
}

func newMemDocRepo() *memDocRepo {
	return &memDocRepo{
		docs:   make(map[string]models.Document),
		chunks: make(map[string][]models.Chunk),
	}
}

func (r *memDocRepo) InsertDocument(_ context.Context, doc *models.Document, chunks []models.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.docs[doc.ID] = *doc
	r.chunks[doc.ID] = append([]models.Chunk(nil), chunks...)
	return nil
}

func (r *memDocRepo) GetDocument(_ context.Context, id string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	return &doc, nil
}

func (r *memDocRepo) ListDocuments(_ context.Context, categories []models.Category) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := make(map[models.Category]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	var out []models.Document
	for _, d := range r.docs {
		if _, ok := set[d.Category]; ok {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (r *memDocRepo) DeleteDocument(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	delete(r.docs, id)
	delete(r.chunks, id)
	return nil
}

func (r *memDocRepo) CountDocuments(_ context.Context) (int, map[models.Category]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byCategory := make(map[models.Category]int)
	for _, d := range r.docs {
		byCategory[d.Category]++
	}
	return len(r.docs), byCategory, nil
}

// fakeGenerator returns a fixed answer or a fixed error.
type fakeGenerator struct {
	answer string
	err    error

	lastQuery    string
	lastPassages []models.Passage
}

func (g *fakeGenerator) GenerateAnswer(_ context.Context, query string, passages []models.Passage) (string, error) {
	g.lastQuery = query
	g.lastPassages = passages
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}
