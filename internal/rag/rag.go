// Package rag wires chunking, embedding, the vector index, access policy,
// and the conversation store into the ingestion and question-answering flows.
package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"ragineer/internal/chat"
	"ragineer/internal/models"
	"ragineer/internal/policy"
	"ragineer/internal/vectorindex"
)

// Generator is the external answer-generation boundary. The llmservice
// client implements it; tests substitute fakes.
type Generator interface {
	GenerateAnswer(ctx context.Context, query string, passages []models.Passage) (string, error)
}

// Engine exposes the operations of the core: document upload, listing and
// deletion, and the chat turn.
type Engine struct {
	ingestor  *Ingestor
	retriever *Retriever
	index     *vectorindex.Index
	docs      DocumentRepo
	convo     *chat.Store
	generator Generator
	topK      int
}

func NewEngine(ingestor *Ingestor, retriever *Retriever, index *vectorindex.Index, docs DocumentRepo, convo *chat.Store, generator Generator, topK int) *Engine {
	if topK <= 0 {
		topK = 5
	}
	return &Engine{
		ingestor:  ingestor,
		retriever: retriever,
		index:     index,
		docs:      docs,
		convo:     convo,
		generator: generator,
		topK:      topK,
	}
}

// Answer is the outcome of one successful chat turn.
type Answer struct {
	SessionID string             `json:"session_id"`
	Message   models.ChatMessage `json:"message"`
	Citations []models.Citation  `json:"citations"`
}

// Ask runs one chat turn: retrieve passages scoped to the requester's role,
// record the user message (creating a session when sessionID is empty), call
// generation, and record the assistant message with its citations. When
// generation fails the turn fails with models.ErrGeneration; the user
// message stays and no assistant message is written.
func (e *Engine) Ask(ctx context.Context, requester models.Identity, sessionID, query string) (*Answer, error) {
	res, err := e.retriever.Retrieve(ctx, query, requester.Role, e.topK)
	if err != nil {
		return nil, err
	}

	sessionID, err = e.convo.AppendUserMessage(ctx, requester.ID, sessionID, query)
	if err != nil {
		return nil, err
	}

	answer, err := e.generator.GenerateAnswer(ctx, query, res.Passages)
	if err != nil {
		if !errors.Is(err, models.ErrGeneration) {
			err = fmt.Errorf("%w: %v", models.ErrGeneration, err)
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("answer generation failed")
		return nil, err
	}

	msg, err := e.convo.AppendAssistantMessage(ctx, requester.ID, sessionID, answer, res.Citations)
	if err != nil {
		return nil, err
	}

	return &Answer{
		SessionID: sessionID,
		Message:   *msg,
		Citations: res.Citations,
	}, nil
}

// UploadDocument ingests an already-extracted document for a requester that
// holds the upload permission.
func (e *Engine) UploadDocument(ctx context.Context, requester models.Identity, in UploadInput) (*models.Document, error) {
	if err := policy.Require(requester.Role, policy.PermUploadDocs); err != nil {
		return nil, err
	}
	return e.ingestor.Ingest(ctx, requester, in)
}

// DeleteDocument removes the document record, its chunk records, and every
// vector index entry belonging to it, so no later search can return one of
// its chunks.
func (e *Engine) DeleteDocument(ctx context.Context, requester models.Identity, documentID string) error {
	if err := policy.Require(requester.Role, policy.PermDeleteDocs); err != nil {
		return err
	}
	if _, err := e.docs.GetDocument(ctx, documentID); err != nil {
		return err
	}
	if err := e.docs.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	removed := e.index.RemoveDocument(documentID)
	log.Info().Str("document_id", documentID).Int("chunks_removed", removed).Msg("document deleted")
	return nil
}

// ListDocuments returns documents visible to the requester's role, optionally
// narrowed to one category. A category outside the role's allowed set yields
// an empty list, never a leak.
func (e *Engine) ListDocuments(ctx context.Context, requester models.Identity, category *models.Category) ([]models.Document, error) {
	allowed, err := policy.AllowedCategories(requester.Role)
	if err != nil {
		return nil, err
	}

	var cats []models.Category
	if category != nil {
		if _, ok := allowed[*category]; !ok {
			return nil, nil
		}
		cats = []models.Category{*category}
	} else {
		for _, c := range models.Categories() {
			if _, ok := allowed[c]; ok {
				cats = append(cats, c)
			}
		}
	}
	return e.docs.ListDocuments(ctx, cats)
}

// Stats summarizes the corpus and the requester's own sessions.
type Stats struct {
	TotalDocuments int                     `json:"total_documents"`
	ByCategory     map[models.Category]int `json:"doc_types"`
	MySessions     int                     `json:"my_sessions"`
}

func (e *Engine) Stats(ctx context.Context, requester models.Identity) (*Stats, error) {
	total, byCategory, err := e.docs.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := e.convo.CountSessions(ctx, requester.ID)
	if err != nil {
		return nil, err
	}
	return &Stats{TotalDocuments: total, ByCategory: byCategory, MySessions: sessions}, nil
}

// Conversations exposes the underlying conversation store for callers that
// list or delete sessions directly.
func (e *Engine) Conversations() *chat.Store { return e.convo }
