// Package db persists documents, chunks, and chat history in Postgres
// through bun. The vector index keeps its own snapshot file; this layer owns
// the relational records.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"ragineer/internal/models"
)

type documentRecord struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID             string    `bun:"id,pk"`
	Title          string    `bun:"title,notnull"`
	Description    string    `bun:"description"`
	Category       string    `bun:"category,notnull"`
	UploadedBy     string    `bun:"uploaded_by,notnull"`
	UploadedByName string    `bun:"uploaded_by_name"`
	FileSize       int64     `bun:"file_size"`
	ChunkCount     int       `bun:"chunk_count,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

type chunkRecord struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`

	ID         string    `bun:"id,pk"`
	DocumentID string    `bun:"document_id,notnull"`
	Index      int       `bun:"idx,notnull"`
	Text       string    `bun:"text,notnull"`
	Embedding  []float32 `bun:"embedding,type:vector(768)"`
}

type sessionRecord struct {
	bun.BaseModel `bun:"table:chat_sessions,alias:s"`

	ID           string    `bun:"id,pk"`
	UserID       string    `bun:"user_id,notnull"`
	Title        string    `bun:"title,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
	MessageCount int       `bun:"message_count,notnull,default:0"`
}

type messageRecord struct {
	bun.BaseModel `bun:"table:chat_messages,alias:m"`

	ID        string            `bun:"id,pk"`
	SessionID string            `bun:"session_id,notnull"`
	Role      string            `bun:"role,notnull"`
	Content   string            `bun:"content,notnull"`
	Citations []models.Citation `bun:"citations,type:jsonb"`
	CreatedAt time.Time         `bun:"created_at,notnull"`
}

func NewDB(sqldb *sql.DB) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.FromEnv("BUNDEBUG")))
	return db
}

func ConnectDB(dsn, password string) (*sql.DB, error) {
	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if password != "" {
		opts = append(opts, pgdriver.WithPassword(password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	for _, model := range []interface{}{
		(*documentRecord)(nil),
		(*chunkRecord)(nil),
		(*sessionRecord)(nil),
		(*messageRecord)(nil),
	} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Store implements the document repository of the rag package and the chat
// repository of the chat package on one bun handle.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InsertDocument(ctx context.Context, doc *models.Document, chunks []models.Chunk) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		rec := &documentRecord{
			ID:             doc.ID,
			Title:          doc.Title,
			Description:    doc.Description,
			Category:       string(doc.Category),
			UploadedBy:     doc.UploadedBy,
			UploadedByName: doc.UploadedByName,
			FileSize:       doc.FileSize,
			ChunkCount:     doc.ChunkCount,
			CreatedAt:      doc.CreatedAt,
		}
		if _, err := tx.NewInsert().Model(rec).Exec(ctx); err != nil {
			return err
		}

		recs := make([]chunkRecord, 0, len(chunks))
		for _, c := range chunks {
			recs = append(recs, chunkRecord{
				ID:         c.ID,
				DocumentID: c.DocumentID,
				Index:      c.Index,
				Text:       c.Text,
				Embedding:  c.Embedding,
			})
		}
		if len(recs) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&recs).Exec(ctx)
		return err
	})
}

func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	rec := new(documentRecord)
	err := s.db.NewSelect().Model(rec).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return docFromRecord(rec), nil
}

func (s *Store) ListDocuments(ctx context.Context, categories []models.Category) ([]models.Document, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	cats := make([]string, 0, len(categories))
	for _, c := range categories {
		cats = append(cats, string(c))
	}

	var recs []documentRecord
	err := s.db.NewSelect().
		Model(&recs).
		Where("category IN (?)", bun.In(cats)).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]models.Document, 0, len(recs))
	for i := range recs {
		docs = append(docs, *docFromRecord(&recs[i]))
	}
	return docs, nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*chunkRecord)(nil)).Where("document_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*documentRecord)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
		}
		return nil
	})
}

func (s *Store) CountDocuments(ctx context.Context) (int, map[models.Category]int, error) {
	var rows []struct {
		Category string `bun:"category"`
		Count    int    `bun:"count"`
	}
	err := s.db.NewSelect().
		Model((*documentRecord)(nil)).
		ColumnExpr("category, count(*) AS count").
		Group("category").
		Scan(ctx, &rows)
	if err != nil {
		return 0, nil, err
	}
	total := 0
	byCategory := make(map[models.Category]int, len(rows))
	for _, r := range rows {
		total += r.Count
		byCategory[models.Category(r.Category)] = r.Count
	}
	return total, byCategory, nil
}

func (s *Store) InsertSession(ctx context.Context, sess *models.ChatSession) error {
	rec := &sessionRecord{
		ID:           sess.ID,
		UserID:       sess.UserID,
		Title:        sess.Title,
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
		MessageCount: sess.MessageCount,
	}
	_, err := s.db.NewInsert().Model(rec).Exec(ctx)
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	rec := new(sessionRecord)
	err := s.db.NewSelect().Model(rec).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &models.ChatSession{
		ID:           rec.ID,
		UserID:       rec.UserID,
		Title:        rec.Title,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
		MessageCount: rec.MessageCount,
	}, nil
}

func (s *Store) TouchSession(ctx context.Context, id string, updatedAt time.Time, messageDelta int) error {
	res, err := s.db.NewUpdate().
		Model((*sessionRecord)(nil)).
		Set("updated_at = ?", updatedAt).
		Set("message_count = message_count + ?", messageDelta).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: session %s", models.ErrNotFound, id)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context, userID string) ([]models.ChatSession, error) {
	var recs []sessionRecord
	err := s.db.NewSelect().
		Model(&recs).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	sessions := make([]models.ChatSession, 0, len(recs))
	for _, r := range recs {
		sessions = append(sessions, models.ChatSession{
			ID:           r.ID,
			UserID:       r.UserID,
			Title:        r.Title,
			CreatedAt:    r.CreatedAt,
			UpdatedAt:    r.UpdatedAt,
			MessageCount: r.MessageCount,
		})
	}
	return sessions, nil
}

func (s *Store) CountSessions(ctx context.Context, userID string) (int, error) {
	return s.db.NewSelect().
		Model((*sessionRecord)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*messageRecord)(nil)).Where("session_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*sessionRecord)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: session %s", models.ErrNotFound, id)
		}
		return nil
	})
}

func (s *Store) InsertMessage(ctx context.Context, m *models.ChatMessage) error {
	rec := &messageRecord{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      string(m.Role),
		Content:   m.Content,
		Citations: m.Citations,
		CreatedAt: m.CreatedAt,
	}
	_, err := s.db.NewInsert().Model(rec).Exec(ctx)
	return err
}

func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	var recs []messageRecord
	err := s.db.NewSelect().
		Model(&recs).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	msgs := make([]models.ChatMessage, 0, len(recs))
	for _, r := range recs {
		msgs = append(msgs, models.ChatMessage{
			ID:        r.ID,
			SessionID: r.SessionID,
			Role:      models.MessageRole(r.Role),
			Content:   r.Content,
			Citations: r.Citations,
			CreatedAt: r.CreatedAt,
		})
	}
	return msgs, nil
}

func docFromRecord(rec *documentRecord) *models.Document {
	return &models.Document{
		ID:             rec.ID,
		Title:          rec.Title,
		Description:    rec.Description,
		Category:       models.Category(rec.Category),
		UploadedBy:     rec.UploadedBy,
		UploadedByName: rec.UploadedByName,
		FileSize:       rec.FileSize,
		ChunkCount:     rec.ChunkCount,
		CreatedAt:      rec.CreatedAt,
	}
}
