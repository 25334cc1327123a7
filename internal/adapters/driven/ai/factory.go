package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
)

// Provider names an embedding backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	// ProviderOllama speaks the OpenAI wire format on {host}/v1.
	ProviderOllama Provider = "ollama"
)

// DefaultOllamaURL is used when the ollama provider has no base URL.
const DefaultOllamaURL = "http://localhost:11434/v1"

// Settings configures the embedding service.
type Settings struct {
	Provider   Provider
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
	Timeout    time.Duration
}

// NewEmbeddingService creates an embedding service from settings
func NewEmbeddingService(s Settings) (driven.EmbeddingService, error) {
	switch Provider(strings.ToLower(string(s.Provider))) {
	case "", ProviderOpenAI:
		return NewOpenAIEmbedding(s)
	case ProviderOllama:
		if s.BaseURL == "" {
			s.BaseURL = DefaultOllamaURL
		}
		if s.Model == "" {
			s.Model = "nomic-embed-text"
		}
		if s.APIKey == "" {
			s.APIKey = "ollama"
		}
		return NewOpenAIEmbedding(s)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, s.Provider)
	}
}
