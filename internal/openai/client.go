package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"advisor-service/internal/models"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "gpt-4o-mini"
	GroqBaseURL      = "https://api.groq.com/openai/v1"
	GroqDefaultModel = "llama-3.3-70b-versatile"
)

// Client talks to any OpenAI-compatible chat completions endpoint
type Client struct {
	apiKey       string
	baseURL      string
	modelName    string
	providerName string
	httpClient   *http.Client
	logger       *zap.Logger
}

// Config for the chat completions client
type Config struct {
	APIKey       string
	ModelName    string // Default: "gpt-4o-mini"
	BaseURL      string // Default: OpenAI
	ProviderName string // Used in logs and model info, default "openai"
	HTTPClient   *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewClient creates a new chat completions client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", models.ErrBackendUnavailable)
	}

	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModel
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.ProviderName == "" {
		cfg.ProviderName = "openai"
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 90 * time.Second}
	}

	logger.Info("Chat completions client initialized",
		zap.String("provider", cfg.ProviderName),
		zap.String("model", cfg.ModelName))

	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		modelName:    cfg.ModelName,
		providerName: cfg.ProviderName,
		httpClient:   cfg.HTTPClient,
		logger:       logger,
	}, nil
}

// Close closes the client
func (c *Client) Close() error {
	return nil
}

// Complete sends one chat completion request. It never retries.
func (c *Client) Complete(ctx context.Context, systemPrompt, prompt string) (*models.Completion, error) {
	reqBody := chatRequest{
		Model: c.modelName,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream:      false,
		Temperature: 0.7,
		MaxTokens:   1000,
	}

	jsonData, err := sonic.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", models.ErrBackendRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", models.ErrBackendRequestFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Chat completions API error",
			zap.String("provider", c.providerName),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s API error: %v", models.ErrBackendRequestFailed, c.providerName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", models.ErrBackendRequestFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Chat completions API error",
			zap.String("provider", c.providerName),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("%w: %s API returned status %d: %s",
			models.ErrBackendRequestFailed, c.providerName, resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := sonic.Unmarshal(body, &chatResp); err != nil {
		c.logger.Error("Failed to parse JSON response",
			zap.String("provider", c.providerName),
			zap.Error(err),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("%w: failed to parse response: %v", models.ErrBackendResponseMalformed, err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response from %s", models.ErrBackendResponseMalformed, c.providerName)
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: %s returned no message content", models.ErrBackendResponseMalformed, c.providerName)
	}

	c.logger.Debug("Chat completion received",
		zap.String("provider", c.providerName),
		zap.Int("total_tokens", chatResp.Usage.TotalTokens))

	return &models.Completion{
		Text:         content,
		TokenCount:   chatResp.Usage.TotalTokens,
		FinishReason: chatResp.Choices[0].FinishReason,
	}, nil
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider": c.providerName,
		"model":    c.modelName,
		"base_url": c.baseURL,
	}
}
