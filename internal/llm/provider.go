package llm

import (
	"context"
	"errors"

	"advisor-service/internal/models"
)

var (
	ErrBackendUnavailable       = models.ErrBackendUnavailable
	ErrBackendRequestFailed     = models.ErrBackendRequestFailed
	ErrBackendResponseMalformed = models.ErrBackendResponseMalformed
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	ProviderGemini     ProviderType = "gemini"
	ProviderOpenAI     ProviderType = "openai"
	ProviderGroq       ProviderType = "groq"
	ProviderOpenRouter ProviderType = "openrouter"
)

// Provider interface for any LLM provider
type Provider interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (*models.Completion, error)
	Close() error
	GetModelInfo() map[string]interface{}
}

// ErrorKind names the taxonomy bucket of a backend error
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBackendUnavailable):
		return "backend_unavailable"
	case errors.Is(err, ErrBackendResponseMalformed):
		return "backend_response_malformed"
	default:
		// timeouts and cancellations count as request failures
		return "backend_request_failed"
	}
}
