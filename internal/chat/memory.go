package chat

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ragineer/internal/models"
)

// MemoryRepository keeps sessions and messages in process memory. It backs
// tests and runs without a database.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.ChatSession
	messages map[string][]models.ChatMessage
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]models.ChatSession),
		messages: make(map[string][]models.ChatMessage),
	}
}

func (r *MemoryRepository) InsertSession(_ context.Context, s *models.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	r.sessions[s.ID] = *s
	return nil
}

func (r *MemoryRepository) GetSession(_ context.Context, id string) (*models.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", models.ErrNotFound, id)
	}
	return &s, nil
}

func (r *MemoryRepository) TouchSession(_ context.Context, id string, updatedAt time.Time, messageDelta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: session %s", models.ErrNotFound, id)
	}
	s.UpdatedAt = updatedAt
	s.MessageCount += messageDelta
	r.sessions[id] = s
	return nil
}

func (r *MemoryRepository) ListSessions(_ context.Context, userID string) ([]models.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.ChatSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *MemoryRepository) CountSessions(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DeleteSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("%w: session %s", models.ErrNotFound, id)
	}
	delete(r.sessions, id)
	delete(r.messages, id)
	return nil
}

func (r *MemoryRepository) InsertMessage(_ context.Context, m *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[m.SessionID]; !ok {
		return fmt.Errorf("%w: session %s", models.ErrNotFound, m.SessionID)
	}
	r.messages[m.SessionID] = append(r.messages[m.SessionID], *m)
	return nil
}

func (r *MemoryRepository) ListMessages(_ context.Context, sessionID string) ([]models.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := r.messages[sessionID]
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}
