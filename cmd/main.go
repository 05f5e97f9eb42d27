package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"ragineer/internal/chat"
	"ragineer/internal/config"
	"ragineer/internal/db"
	"ragineer/internal/embedding"
	"ragineer/internal/helper"
	"ragineer/internal/llmservice"
	"ragineer/internal/models"
	"ragineer/internal/rag"
	"ragineer/internal/vectorindex"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	filePath := flag.String("file", "", "Path to a plain-text document to ingest")
	title := flag.String("title", "", "Document title (defaults to the file name)")
	description := flag.String("description", "", "Document description")
	category := flag.String("category", "other", "Document category: sop, manual, compliance, other")
	query := flag.String("query", "", "Question to answer")
	session := flag.String("session", "", "Chat session to continue")
	deleteDoc := flag.String("delete", "", "Document ID to delete")
	listDocs := flag.Bool("list", false, "List documents visible to the role")
	stats := flag.Bool("stats", false, "Print corpus statistics")
	userID := flag.String("user", "local-admin", "Requester identity")
	userName := flag.String("name", "Local Admin", "Requester display name")
	roleFlag := flag.String("role", "admin", "Requester role: admin, engineer, technician, viewer")
	flag.Parse()

	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	role, err := models.ParseRole(*roleFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing role")
	}
	requester := models.Identity{ID: *userID, Name: *userName, Role: role}

	ctx := context.Background()
	engine, index := buildEngine(ctx, cfg)

	switch {
	case *filePath != "":
		ingestFile(ctx, engine, index, cfg, requester, *filePath, *title, *description, *category)
	case *query != "":
		ask(ctx, engine, requester, *session, *query)
	case *deleteDoc != "":
		removeDocument(ctx, engine, index, cfg, requester, *deleteDoc)
	case *listDocs:
		listDocuments(ctx, engine, requester)
	case *stats:
		printStats(ctx, engine, requester)
	default:
		log.Fatal().Msg("Please provide one of -file, -query, -delete, -list, or -stats")
	}
}

func buildEngine(ctx context.Context, cfg *config.Config) (*rag.Engine, *vectorindex.Index) {
	if cfg.DatabaseDSN == "" {
		log.Fatal().Msg("database_dsn is not configured")
	}
	sqldb, err := db.ConnectDB(cfg.DatabaseDSN, cfg.DatabasePassword)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	bundb := db.NewDB(sqldb)
	if err := db.InitDB(ctx, bundb); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}
	store := db.NewStore(bundb)

	index, err := vectorindex.LoadOrNew(cfg.Index.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading vector index snapshot")
	}
	log.Debug().Int("entries", index.Len()).Int("dimension", index.Dimension()).Msg("vector index ready")

	var embedder embeddings.Embedder
	if cfg.Embedding.Key != "" {
		embedder, err = embedding.NewEmbedder(&cfg.Embedding)
	} else {
		embedder, err = embedding.NewOllamaEmbedder(&cfg.Embedding)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating embedder")
	}

	ingestor := rag.NewIngestor(embedder, index, store, cfg.Chunking.Size, cfg.Chunking.Overlap)
	retriever := rag.NewRetriever(embedder, index, store)
	convo := chat.NewStore(store)
	generator := llmservice.NewClient(&cfg.Inference)

	return rag.NewEngine(ingestor, retriever, index, store, convo, generator, cfg.TopK), index
}

func ingestFile(ctx context.Context, engine *rag.Engine, index *vectorindex.Index, cfg *config.Config, requester models.Identity, path, title, description, category string) {
	cat, err := models.ParseCategory(category)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing category")
	}

	// Binary format extraction lives upstream; the CLI takes plain text.
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading document file")
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	doc, err := engine.UploadDocument(ctx, requester, rag.UploadInput{
		Title:       title,
		Description: description,
		Category:    cat,
		Text:        string(data),
		FileSize:    int64(len(data)),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting document")
	}
	if err := index.Save(cfg.Index.Path); err != nil {
		log.Fatal().Err(err).Msg("Error saving vector index snapshot")
	}

	log.Info().Str("document_id", doc.ID).Int("chunks", doc.ChunkCount).Msg("Document ingested")
	helper.PrettyPrint(doc)
}

func ask(ctx context.Context, engine *rag.Engine, requester models.Identity, sessionID, query string) {
	answer, err := engine.Ask(ctx, requester, sessionID, query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error answering query")
	}

	fmt.Println(answer.Message.Content)
	fmt.Println()
	for _, c := range answer.Citations {
		fmt.Printf("  [%s] %s (relevance %.2f)\n", c.Category, c.Title, c.RelevanceScore)
	}
	fmt.Printf("\nsession: %s\n", answer.SessionID)
}

func removeDocument(ctx context.Context, engine *rag.Engine, index *vectorindex.Index, cfg *config.Config, requester models.Identity, docID string) {
	if err := engine.DeleteDocument(ctx, requester, docID); err != nil {
		log.Fatal().Err(err).Msg("Error deleting document")
	}
	if err := index.Save(cfg.Index.Path); err != nil {
		log.Fatal().Err(err).Msg("Error saving vector index snapshot")
	}
	log.Info().Str("document_id", docID).Msg("Document deleted")
}

func listDocuments(ctx context.Context, engine *rag.Engine, requester models.Identity) {
	docs, err := engine.ListDocuments(ctx, requester, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing documents")
	}
	helper.PrettyPrint(docs)
}

func printStats(ctx context.Context, engine *rag.Engine, requester models.Identity) {
	stats, err := engine.Stats(ctx, requester)
	if err != nil {
		log.Fatal().Err(err).Msg("Error collecting stats")
	}
	helper.PrettyPrint(stats)
}
