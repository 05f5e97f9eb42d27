package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"ragineer/internal/chunker"
	"ragineer/internal/embedding"
	"ragineer/internal/helper"
	"ragineer/internal/models"
	"ragineer/internal/vectorindex"
)

// DocumentRepo is the durable store for document and chunk records. The
// bun-backed implementation lives in internal/db.
type DocumentRepo interface {
	InsertDocument(ctx context.Context, doc *models.Document, chunks []models.Chunk) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, categories []models.Category) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	CountDocuments(ctx context.Context) (int, map[models.Category]int, error)
}

// UploadInput carries one already-extracted document into ingestion. Text is
// plain text; binary format extraction happens upstream.
type UploadInput struct {
	Title       string
	Description string
	Category    models.Category
	Text        string
	FileSize    int64
}

// Ingestor turns uploaded text into indexed, persisted chunks.
type Ingestor struct {
	embedder  embeddings.Embedder
	index     *vectorindex.Index
	docs      DocumentRepo
	chunkSize int
	overlap   int
}

func NewIngestor(embedder embeddings.Embedder, index *vectorindex.Index, docs DocumentRepo, chunkSize, overlap int) *Ingestor {
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultSize
		overlap = chunker.DefaultOverlap
	}
	return &Ingestor{
		embedder:  embedder,
		index:     index,
		docs:      docs,
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// Ingest chunks, embeds, and indexes one document, then persists its record.
// Empty text fails with models.ErrEmptyDocument before anything is created.
// Any mid-stream failure removes every entry already inserted for this
// document, so partial indexing is never visible, and surfaces
// models.ErrIndexation.
func (ing *Ingestor) Ingest(ctx context.Context, uploader models.Identity, in UploadInput) (*models.Document, error) {
	spans, err := chunker.Split(in.Text, ing.chunkSize, ing.overlap)
	if err != nil {
		return nil, err
	}

	docID, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}

	vectors, err := embedding.EmbedSpans(ctx, ing.embedder, spans)
	if err != nil {
		return nil, ing.rollback(docID, fmt.Errorf("embed chunks: %w", errors.Join(models.ErrIndexation, err)))
	}

	chunks := make([]models.Chunk, 0, len(spans))
	for i, span := range spans {
		chunkID := docID + ":" + strconv.Itoa(span.Index)
		if err := ing.index.Insert(vectorindex.Entry{
			ChunkID:    chunkID,
			DocumentID: docID,
			Category:   in.Category,
			Text:       span.Text,
			Vector:     vectors[i],
		}); err != nil {
			return nil, ing.rollback(docID, fmt.Errorf("index chunk %d: %w", span.Index, errors.Join(models.ErrIndexation, err)))
		}
		chunks = append(chunks, models.Chunk{
			ID:         chunkID,
			DocumentID: docID,
			Index:      span.Index,
			Text:       span.Text,
			Embedding:  vectors[i],
		})
	}

	doc := &models.Document{
		ID:             docID,
		Title:          in.Title,
		Description:    in.Description,
		Category:       in.Category,
		UploadedBy:     uploader.ID,
		UploadedByName: uploader.Name,
		FileSize:       in.FileSize,
		ChunkCount:     len(chunks),
		CreatedAt:      time.Now().UTC(),
	}
	if err := ing.docs.InsertDocument(ctx, doc, chunks); err != nil {
		return nil, ing.rollback(docID, fmt.Errorf("persist document: %w", errors.Join(models.ErrIndexation, err)))
	}

	log.Info().
		Str("document_id", docID).
		Str("category", string(in.Category)).
		Int("chunks", len(chunks)).
		Msg("document ingested")
	return doc, nil
}

func (ing *Ingestor) rollback(docID string, err error) error {
	removed := ing.index.RemoveDocument(docID)
	if removed > 0 {
		log.Warn().Str("document_id", docID).Int("removed", removed).Msg("rolled back partial indexation")
	}
	return err
}
