// Package embedding constructs the embedder used by ingestion and
// retrieval. The embedder is a stateless handle created once at startup and
// shared by reference; both an OpenAI-compatible endpoint and a local Ollama
// server are supported.
package embedding

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"ragineer/internal/chunker"
	"ragineer/internal/config"
)

// NewEmbedder creates an embedder against an OpenAI-compatible API.
func NewEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().
		Str("base_url", cfg.BaseURL).
		Str("embedding_model", cfg.Model).
		Msg("creating openai embedder")

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

// NewOllamaEmbedder creates an embedder against a local Ollama server.
func NewOllamaEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().
		Str("base_url", cfg.BaseURL).
		Str("embedding_model", cfg.Model).
		Msg("creating ollama embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

// EmbedSpans embeds each chunk span in order. The returned slice is index
// aligned with spans; the first failure aborts the batch.
func EmbedSpans(ctx context.Context, embedder embeddings.Embedder, spans []chunker.Span) ([][]float32, error) {
	vectors := make([][]float32, 0, len(spans))
	for _, span := range spans {
		vec, err := embedder.EmbedQuery(ctx, span.Text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}
