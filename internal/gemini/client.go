package gemini

import (
	"context"
	"fmt"
	"strings"

	"advisor-service/internal/models"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model name is configured
const DefaultModel = "gemini-2.0-flash"

// Client wraps the Gemini API client
type Client struct {
	client    *genai.Client
	logger    *zap.Logger
	modelName string
}

// Config for Gemini client
type Config struct {
	APIKey    string
	ModelName string // Default: "gemini-2.0-flash"
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", models.ErrBackendUnavailable)
	}

	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info("Gemini client initialized",
		zap.String("model", cfg.ModelName))

	return &Client{
		client:    client,
		logger:    logger,
		modelName: cfg.ModelName,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	return c.client.Close()
}

// newModel builds a model handle carrying this call's system instruction
func (c *Client) newModel(systemPrompt string) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.modelName)

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopP:            genai.Ptr[float32](0.9),
		TopK:            genai.Ptr[int32](40),
		MaxOutputTokens: genai.Ptr[int32](1000),
	}

	return model
}

// Complete asks Gemini a single question. It never retries.
func (c *Client) Complete(ctx context.Context, systemPrompt, prompt string) (*models.Completion, error) {
	resp, err := c.newModel(systemPrompt).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.logger.Error("Gemini API error", zap.Error(err))
		return nil, fmt.Errorf("%w: gemini API error: %v", models.ErrBackendRequestFailed, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		c.logger.Error("Empty response from Gemini")
		return nil, fmt.Errorf("%w: empty response from gemini", models.ErrBackendResponseMalformed)
	}

	candidate := resp.Candidates[0]

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, fmt.Errorf("%w: gemini returned no text parts", models.ErrBackendResponseMalformed)
	}

	completion := &models.Completion{
		Text:         text,
		FinishReason: candidate.FinishReason.String(),
	}
	if resp.UsageMetadata != nil {
		completion.TokenCount = int(resp.UsageMetadata.TotalTokenCount)
	}

	c.logger.Debug("Gemini completion received",
		zap.String("model", c.modelName),
		zap.Int("total_tokens", completion.TokenCount))

	return completion, nil
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider": "gemini",
		"model":    c.modelName,
	}
}
