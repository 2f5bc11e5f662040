package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashahq/sessionscout/internal/config"
	"github.com/ashahq/sessionscout/internal/models"
)

func TestNewModelRequiresAPIKeys(t *testing.T) {
	_, err := NewModel(config.Config{LLMProvider: config.ProviderOpenAI})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenAI API key")

	_, err = NewModel(config.Config{LLMProvider: config.ProviderAnthropic})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Anthropic API key")
}

func TestNewModelRejectsUnknownProvider(t *testing.T) {
	_, err := NewModel(config.Config{LLMProvider: "watsonx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}

func TestSessionContext(t *testing.T) {
	sessions := []models.Session{
		{
			Title:       "Salary Negotiation Workshop",
			Hosts:       []models.Host{{Name: "Priya Sharma"}},
			Description: strings.Repeat("negotiate well ", 30),
		},
		{Title: "Career Planning"},
	}

	out := SessionContext(sessions)
	assert.Contains(t, out, "- Salary Negotiation Workshop (hosted by Priya Sharma)")
	assert.Contains(t, out, "- Career Planning\n")
	assert.Contains(t, out, "...", "long descriptions are truncated")
}
