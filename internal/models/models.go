package models

import (
	"fmt"
	"time"
)

// Category classifies a document for access control purposes.
type Category string

const (
	CategorySOP        Category = "sop"
	CategoryManual     Category = "manual"
	CategoryCompliance Category = "compliance"
	CategoryOther      Category = "other"
)

// Categories returns every known document category.
func Categories() []Category {
	return []Category{CategorySOP, CategoryManual, CategoryCompliance, CategoryOther}
}

func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategorySOP, CategoryManual, CategoryCompliance, CategoryOther:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown document category %q", s)
}

// Role identifies the kind of requester. Access rules for each role live in
// the policy package.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleEngineer   Role = "engineer"
	RoleTechnician Role = "technician"
	RoleViewer     Role = "viewer"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleEngineer, RoleTechnician, RoleViewer:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Identity is an already-authenticated requester. Credential validation
// happens upstream; this core only consumes the result.
type Identity struct {
	ID   string
	Name string
	Role Role
}

// Document is the record created once a document is fully ingested.
// ChunkCount is fixed at creation.
type Document struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Category       Category  `json:"category"`
	UploadedBy     string    `json:"uploaded_by"`
	UploadedByName string    `json:"uploaded_by_name,omitempty"`
	FileSize       int64     `json:"file_size"`
	ChunkCount     int       `json:"chunk_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Chunk is the atomic retrieval unit: a contiguous span of a document's
// normalized text. Chunks are immutable and die with their document.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// Citation points an answer back at a source document. RelevanceScore is in
// [0,1], higher is more relevant; only the ordering is load-bearing.
type Citation struct {
	DocumentID     string   `json:"document_id"`
	Title          string   `json:"title"`
	Category       Category `json:"category"`
	RelevanceScore float64  `json:"relevance_score"`
}

// Passage is a retrieved chunk handed to answer generation together with the
// title of the document it came from.
type Passage struct {
	DocumentTitle string `json:"document_title"`
	Text          string `json:"text"`
}

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// ChatMessage is one turn in a session. Messages are append-only; Citations
// are set on assistant messages only.
type ChatMessage struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Citations []Citation  `json:"citations,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// ChatSession threads the messages of one user. Owned exclusively by its
// creator and mutated only by appending messages.
type ChatSession struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}
