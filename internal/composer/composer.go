// Package composer phrases final answers: it formats ranked contexts,
// conversation history and the running summary into a chat completion
// request. It also hosts the ingestion-time table reformatting call.
package composer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"policy-rag/internal/config"
	"policy-rag/internal/models"
)

type Composer struct {
	llm            llms.Model
	maxContextDocs int
}

func New(llmConfig *config.LLMConfig, maxContextDocs int) (*Composer, error) {
	var model llms.Model
	var err error
	switch llmConfig.Provider {
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		model, err = ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}

	if maxContextDocs <= 0 {
		maxContextDocs = 10
	}
	return &Composer{llm: model, maxContextDocs: maxContextDocs}, nil
}

// Answer produces the cited natural-language answer for a question given
// ranked contexts, recent history and the running session summary. Empty
// contexts are valid: the model is then instructed by the system prompt to
// answer from general knowledge without citations.
func (c *Composer) Answer(ctx context.Context, question string, contexts []models.RetrievalResult, history []models.Turn, summary string) (string, error) {
	prompt := c.buildPrompt(question, contexts, history, summary)

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: models.AnswerSystemPrompt}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	resp, err := c.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// ReformatPage asks the model to rewrite any tables in the extracted page
// text as descriptive prose without altering facts. On failure the original
// text is returned so ingestion can proceed unformatted.
func (c *Composer) ReformatPage(ctx context.Context, pageNumber int, text string) (string, error) {
	prompt := fmt.Sprintf(models.ReformatPromptTemplate, pageNumber, pageNumber, text)

	resp, err := c.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	})
	if err != nil {
		log.Warn().Err(err).Int("page", pageNumber).Msg("LLM reformat failed, keeping extracted text")
		return text, err
	}
	if len(resp.Choices) == 0 {
		return text, fmt.Errorf("reformat returned no choices")
	}
	return resp.Choices[0].Content, nil
}

func (c *Composer) buildPrompt(question string, contexts []models.RetrievalResult, history []models.Turn, summary string) string {
	var sb strings.Builder

	sb.WriteString("CONTEXT:\n")
	sb.WriteString(c.formatContexts(contexts))
	sb.WriteString("\n\nSUMMARY:\n")
	sb.WriteString(summary)
	sb.WriteString("\n\nCHAT_HISTORY (most recent turns):\n")
	for _, turn := range history {
		sb.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Content))
	}
	sb.WriteString("\nUSER QUESTION:\n")
	sb.WriteString(question)
	sb.WriteString("\n\nIf multiple chunks contain parts of the same table, combine the information.\n")
	sb.WriteString("Write the best possible answer with citations to pages you used.\n")

	return sb.String()
}

// formatContexts renders ranked contexts as "[book_id, p.<page>] <text>"
// lines, capped to the configured maximum in caller-supplied order.
func (c *Composer) formatContexts(contexts []models.RetrievalResult) string {
	var lines []string
	for _, res := range contexts {
		if len(lines) >= c.maxContextDocs {
			break
		}
		text := strings.ReplaceAll(strings.TrimSpace(res.Text), "\n", " ")
		lines = append(lines, fmt.Sprintf("[%s, p.%d] %s", res.BookID, res.PageNumber, text))
	}
	return strings.Join(lines, "\n")
}
