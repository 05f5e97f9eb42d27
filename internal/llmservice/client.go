// Package llmservice wraps the external answer-generation call. The call is
// synchronous and never retried here; a failure surfaces as
// models.ErrGeneration and retry policy stays with the caller.
package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"ragineer/internal/config"
	"ragineer/internal/models"
)

const passageSeparator = "\n\n---\n\n"

const systemPrompt = `You are an industrial engineering QA assistant.
You help engineers, technicians, and operators find information in technical documentation including SOPs, manuals, and compliance documents.

Guidelines:
- Provide precise, technical answers based on the provided context
- Always cite which document your answer comes from
- If the context doesn't contain relevant information, clearly state that
- Use proper technical terminology
- Format responses clearly with bullet points or numbered steps when appropriate
- Highlight safety-critical information when relevant

Context from documents:
%s`

// Client generates grounded answers through an OpenAI-compatible chat API.
type Client struct {
	cfg *config.LLMConfig
}

func NewClient(cfg *config.LLMConfig) *Client {
	return &Client{cfg: cfg}
}

// GenerateAnswer turns the query and the retrieved passages into a single
// prose answer.
func (c *Client) GenerateAnswer(ctx context.Context, query string, passages []models.Passage) (string, error) {
	log.Debug().Str("model", c.cfg.Model).Int("passages", len(passages)).Msg("generating answer")

	llm, err := openai.New(
		openai.WithBaseURL(c.cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(c.cfg.Key, "Bearer ")),
		openai.WithModel(c.cfg.Model),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGeneration, err)
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: fmt.Sprintf(systemPrompt, buildContext(passages))}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: query}},
		},
	}

	resp, err := llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: model returned no choices", models.ErrGeneration)
	}
	return resp.Choices[0].Content, nil
}

func buildContext(passages []models.Passage) string {
	if len(passages) == 0 {
		return "No relevant documents found."
	}
	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		parts = append(parts, fmt.Sprintf("[From: %s]\n%s", p.DocumentTitle, p.Text))
	}
	return strings.Join(parts, passageSeparator)
}
