// Package chat owns chat sessions and their ordered message histories. A
// session belongs exclusively to its creator; every session-scoped call
// checks ownership before touching anything.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"ragineer/internal/helper"
	"ragineer/internal/models"
)

// Session titles are derived from the first query, cut to this many runes.
const sessionTitleLimit = 40

// Repository is the durable storage behind the store. The bun-backed
// implementation lives in internal/db; NewMemoryRepository serves tests and
// database-less runs.
type Repository interface {
	InsertSession(ctx context.Context, s *models.ChatSession) error
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
	TouchSession(ctx context.Context, id string, updatedAt time.Time, messageDelta int) error
	ListSessions(ctx context.Context, userID string) ([]models.ChatSession, error)
	CountSessions(ctx context.Context, userID string) (int, error)
	DeleteSession(ctx context.Context, id string) error
	InsertMessage(ctx context.Context, m *models.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
}

type Store struct {
	repo Repository
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// AppendUserMessage records a user turn. With an empty sessionID a new
// session is created for userID, titled from the message; otherwise the
// session must exist and belong to userID.
func (s *Store) AppendUserMessage(ctx context.Context, userID, sessionID, content string) (string, error) {
	now := time.Now().UTC()

	if sessionID == "" {
		id, err := helper.GenerateUUID()
		if err != nil {
			return "", err
		}
		sess := &models.ChatSession{
			ID:        id,
			UserID:    userID,
			Title:     sessionTitle(content),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.InsertSession(ctx, sess); err != nil {
			return "", err
		}
		sessionID = id
		log.Debug().Str("session_id", sessionID).Msg("created chat session")
	} else if err := s.authorize(ctx, userID, sessionID); err != nil {
		return "", err
	}

	if _, err := s.appendMessage(ctx, sessionID, models.MessageRoleUser, content, nil, now); err != nil {
		return "", err
	}
	return sessionID, nil
}

// AppendAssistantMessage records an assistant turn with its citations. It is
// only called after the generation call has succeeded, so a failed turn
// never leaves a dangling assistant message.
func (s *Store) AppendAssistantMessage(ctx context.Context, userID, sessionID, content string, citations []models.Citation) (*models.ChatMessage, error) {
	if err := s.authorize(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.appendMessage(ctx, sessionID, models.MessageRoleAssistant, content, citations, time.Now().UTC())
}

// ListMessages returns the session's messages in creation order.
func (s *Store) ListMessages(ctx context.Context, userID, sessionID string) ([]models.ChatMessage, error) {
	if err := s.authorize(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, sessionID)
}

// ListSessions returns the user's sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]models.ChatSession, error) {
	return s.repo.ListSessions(ctx, userID)
}

func (s *Store) CountSessions(ctx context.Context, userID string) (int, error) {
	return s.repo.CountSessions(ctx, userID)
}

// DeleteSession removes the session and all its messages.
func (s *Store) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if err := s.authorize(ctx, userID, sessionID); err != nil {
		return err
	}
	return s.repo.DeleteSession(ctx, sessionID)
}

func (s *Store) appendMessage(ctx context.Context, sessionID string, role models.MessageRole, content string, citations []models.Citation, now time.Time) (*models.ChatMessage, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	msg := &models.ChatMessage{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Citations: citations,
		CreatedAt: now,
	}
	if err := s.repo.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.repo.TouchSession(ctx, sessionID, now, 1); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Store) authorize(ctx context.Context, userID, sessionID string) error {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return fmt.Errorf("%w: session %s is not owned by %s", models.ErrForbidden, sessionID, userID)
	}
	return nil
}

func sessionTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= sessionTitleLimit {
		return content
	}
	return string(runes[:sessionTitleLimit]) + "..."
}
