// Package llm wraps the chat model used for career guidance answers.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/ashahq/sessionscout/internal/config"
	"github.com/ashahq/sessionscout/internal/models"
)

const advisorSystemPrompt = `You are a supportive career guidance assistant for women returning to or growing in their careers.
Give practical, encouraging, and concise advice. When relevant sessions are listed in the context, point the user at them by title.
Never invent sessions that are not in the context.`

// Model wraps a langchaingo chat model for advice generation.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates the chat model for the configured provider.
func NewModel(cfg config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: cfg.LLMModel,
	}, nil
}

// Generate generates text from a bare prompt.
func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return response, nil
}

// GenerateWithSystem generates text with a system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate with system: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return response.Choices[0].Content, nil
}

// Model returns the chat model name.
func (m *Model) Model() string {
	return m.modelName
}

// Advise answers a career question, grounding the answer in the given
// sessions when any are supplied.
func (m *Model) Advise(ctx context.Context, question string, sessions []models.Session) (string, error) {
	userPrompt := fmt.Sprintf("Question: %s\n\nAnswer:", question)
	if len(sessions) > 0 {
		userPrompt = fmt.Sprintf("Available sessions:\n%s\n\n%s", SessionContext(sessions), userPrompt)
	}
	return m.GenerateWithSystem(ctx, advisorSystemPrompt, userPrompt)
}

// SessionContext renders sessions as plain prompt context.
func SessionContext(sessions []models.Session) string {
	var b strings.Builder
	for _, s := range sessions {
		fmt.Fprintf(&b, "- %s", s.Title)
		if host := s.PrimaryHost(); host != "" {
			fmt.Fprintf(&b, " (hosted by %s)", host)
		}
		if s.Description != "" {
			fmt.Fprintf(&b, ": %s", shorten(s.Description, 200))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}
