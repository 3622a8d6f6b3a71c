package llm

import (
	"context"
	"fmt"
	"strings"

	"advisor-service/internal/gemini"
	"advisor-service/internal/models"
	"advisor-service/internal/openai"
	"advisor-service/internal/openrouter"

	"go.uber.org/zap"
)

// ProviderConfig holds configuration for a single backend
type ProviderConfig struct {
	ID           string       `yaml:"id"`
	Type         ProviderType `yaml:"type"`
	DisplayName  string       `yaml:"display_name"`
	APIKey       string       `yaml:"api_key"`
	ModelName    string       `yaml:"model_name"`
	BaseURL      string       `yaml:"base_url"`
	Enabled      *bool        `yaml:"enabled"`
	Capabilities []string     `yaml:"capabilities"`
	Priority     *int         `yaml:"priority"`
}

// BackendID returns the configured id, falling back to the provider type
func (c ProviderConfig) BackendID() string {
	if id := strings.TrimSpace(c.ID); id != "" {
		return id
	}
	return string(c.Type)
}

// IsEnabled reports the registry enablement flag (default true)
func (c ProviderConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Descriptor converts the config into a registry descriptor
func (c ProviderConfig) Descriptor() models.ModelDescriptor {
	return models.ModelDescriptor{
		ID:           c.BackendID(),
		DisplayName:  c.DisplayName,
		Enabled:      c.IsEnabled(),
		Capabilities: c.Capabilities,
		Priority:     c.Priority,
	}
}

// NewProvider creates the adapter for one backend config
func NewProvider(ctx context.Context, cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Type {
	case ProviderGemini:
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:    cfg.APIKey,
			ModelName: cfg.ModelName,
		}, logger)
	case ProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:    cfg.APIKey,
			ModelName: cfg.ModelName,
			BaseURL:   cfg.BaseURL,
		}, logger)
	case ProviderGroq:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openai.GroqBaseURL
		}
		modelName := cfg.ModelName
		if modelName == "" {
			modelName = openai.GroqDefaultModel
		}
		return openai.NewClient(openai.Config{
			APIKey:       cfg.APIKey,
			ModelName:    modelName,
			BaseURL:      baseURL,
			ProviderName: string(ProviderGroq),
		}, logger)
	case ProviderOpenRouter:
		return openrouter.NewClient(openrouter.Config{
			APIKey:    cfg.APIKey,
			ModelName: cfg.ModelName,
			BaseURL:   cfg.BaseURL,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}

// NewRouterFromConfig builds a router with one provider per configured backend.
// Backends without credentials stay registered as unavailable.
func NewRouterFromConfig(ctx context.Context, providers []ProviderConfig, rc RouterConfig, logger *zap.Logger) (*Router, error) {
	router := NewRouter(rc, logger)

	for i, pc := range providers {
		id := pc.BackendID()
		if id == "" {
			return nil, fmt.Errorf("provider at index %d has neither id nor type", i)
		}

		if strings.TrimSpace(pc.APIKey) == "" {
			router.MarkUnavailable(id, "no credentials configured")
			logger.Warn("Backend has no credentials, marking unavailable",
				zap.String("backend", id),
				zap.String("type", string(pc.Type)))
			continue
		}

		provider, err := NewProvider(ctx, pc, logger)
		if err != nil {
			logger.Error("Failed to create provider",
				zap.String("backend", id),
				zap.String("type", string(pc.Type)),
				zap.Error(err))
			router.MarkUnavailable(id, err.Error())
			continue
		}

		router.Register(id, provider)
		logger.Info("Provider initialized",
			zap.String("backend", id),
			zap.String("type", string(pc.Type)),
			zap.String("model", pc.ModelName),
			zap.Int("index", i))
	}

	return router, nil
}
