package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"advisor-service/internal/models"
	"advisor-service/internal/prompt"

	"go.uber.org/zap"
)

// DefaultRequestTimeout bounds a single backend call
const DefaultRequestTimeout = 60 * time.Second

// Invoker performs one question/answer round-trip against one backend
type Invoker interface {
	Invoke(ctx context.Context, backendID, prompt string, wallet *models.WalletData) (*models.ModelResponse, error)
}

// RouterConfig configures a Router
type RouterConfig struct {
	Timeout time.Duration
	Now     func() time.Time
}

// Router dispatches invocations to the provider registered for a backend id
type Router struct {
	mu          sync.RWMutex
	providers   map[string]Provider
	unavailable map[string]string
	timeout     time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewRouter creates an empty router
func NewRouter(cfg RouterConfig, logger *zap.Logger) *Router {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Router{
		providers:   make(map[string]Provider),
		unavailable: make(map[string]string),
		timeout:     cfg.Timeout,
		now:         cfg.Now,
		logger:      logger,
	}
}

// Register binds a provider to a backend id
func (r *Router) Register(backendID string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[backendID] = p
	delete(r.unavailable, backendID)
}

// MarkUnavailable records a backend that cannot be called for the process lifetime
func (r *Router) MarkUnavailable(backendID, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, backendID)
	r.unavailable[backendID] = reason
}

// Available reports whether a provider is registered for the backend
func (r *Router) Available(backendID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[backendID]
	return ok
}

func (r *Router) provider(backendID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.providers[backendID]; ok {
		return p, nil
	}
	if reason, ok := r.unavailable[backendID]; ok {
		return nil, fmt.Errorf("%w: %s: %s", ErrBackendUnavailable, backendID, reason)
	}
	return nil, fmt.Errorf("%w: %s: not configured", ErrBackendUnavailable, backendID)
}

// Invoke sends the prompt, with the wallet-aware system prompt, to one backend.
// Errors always wrap one of the backend error sentinels.
func (r *Router) Invoke(ctx context.Context, backendID, userPrompt string, wallet *models.WalletData) (*models.ModelResponse, error) {
	p, err := r.provider(backendID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := r.now()
	completion, err := p.Complete(ctx, prompt.BuildSystemPrompt(wallet), userPrompt)
	elapsed := r.now().Sub(started)

	if err != nil {
		if !errors.Is(err, ErrBackendRequestFailed) && !errors.Is(err, ErrBackendResponseMalformed) {
			err = fmt.Errorf("%w: %v", ErrBackendRequestFailed, err)
		}
		r.logger.Warn("Backend call failed",
			zap.String("backend", backendID),
			zap.String("kind", ErrorKind(err)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}

	if completion == nil || strings.TrimSpace(completion.Text) == "" {
		return nil, fmt.Errorf("%w: %s returned an empty answer", ErrBackendResponseMalformed, backendID)
	}

	ms := elapsed.Milliseconds()
	meta := &models.ResponseMetadata{ProcessingTimeMs: &ms}
	if completion.TokenCount > 0 {
		tokens := completion.TokenCount
		meta.TokenCount = &tokens
	}

	r.logger.Debug("Backend call succeeded",
		zap.String("backend", backendID),
		zap.Duration("elapsed", elapsed),
		zap.Int("tokens", completion.TokenCount))

	return &models.ModelResponse{
		Source:    models.ModelSource(backendID),
		Content:   strings.TrimSpace(completion.Text),
		CreatedAt: r.now(),
		Metadata:  meta,
	}, nil
}

// Close closes all providers
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for id, p := range r.providers {
		if err := p.Close(); err != nil {
			r.logger.Error("Failed to close provider",
				zap.String("backend", id),
				zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

// GetProvidersInfo returns information about every configured backend
func (r *Router) GetProvidersInfo() map[string]map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info := make(map[string]map[string]interface{}, len(r.providers)+len(r.unavailable))
	for id, p := range r.providers {
		pi := p.GetModelInfo()
		pi["available"] = true
		info[id] = pi
	}
	for id, reason := range r.unavailable {
		info[id] = map[string]interface{}{
			"available": false,
			"reason":    reason,
		}
	}
	return info
}
