package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"advisor-service/internal/llm"
	"advisor-service/internal/models"
	"advisor-service/internal/registry"

	"go.uber.org/zap"
)

var (
	// ErrNoProvidersEnabled is returned before any backend call when no model is eligible
	ErrNoProvidersEnabled = errors.New("no providers available")
	ErrEmptyQuestion      = errors.New("question is empty")
	ErrUnknownMode        = errors.New("unknown chat mode")
	ErrChainNotFound      = registry.ErrChainNotFound
	ErrChainOverrideMode  = errors.New("chain override is only valid in chain mode")
)

// Request is everything the caller hands to the engine for one question
type Request struct {
	Question string
	Wallet   *models.WalletData
	Mode     models.ChatMode
	Filter   registry.Filter
	// ChainID restricts chain mode to a single chain. Empty runs every chain.
	ChainID string
}

// ChainOutcome is the result of one chain, successful or not
type ChainOutcome struct {
	Chain  models.ChainDescriptor      `json:"chain"`
	Result models.ChainExecutionResult `json:"result"`
}

// Result is shaped by the mode: Responses for the parallel branch, Chains for the chain branch
type Result struct {
	Mode      models.ChatMode        `json:"mode"`
	Responses []models.ModelResponse `json:"responses,omitempty"`
	Chains    []ChainOutcome         `json:"chains,omitempty"`
}

// Options wires the engine's collaborators
type Options struct {
	Registry  *registry.ModelRegistry
	Catalogue *registry.ChainCatalogue
	Invoker   llm.Invoker
	Logger    *zap.Logger
	Now       func() time.Time
}

// Engine drives backend calls for parallel, chain and universal modes
type Engine struct {
	registry  *registry.ModelRegistry
	catalogue *registry.ChainCatalogue
	invoker   llm.Invoker
	logger    *zap.Logger
	now       func() time.Time
}

// NewEngine creates an engine from explicit collaborators
func NewEngine(opts Options) (*Engine, error) {
	if opts.Registry == nil || opts.Catalogue == nil || opts.Invoker == nil {
		return nil, fmt.Errorf("engine requires registry, catalogue and invoker")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		registry:  opts.Registry,
		catalogue: opts.Catalogue,
		invoker:   opts.Invoker,
		logger:    opts.Logger,
		now:       opts.Now,
	}, nil
}

// Execute answers one question in the requested mode.
// Backend failures come back in-band; the returned error is reserved for
// invalid requests and ErrNoProvidersEnabled.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, ErrEmptyQuestion
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}
	if req.ChainID != "" && req.Mode != models.ModeChain {
		return nil, ErrChainOverrideMode
	}

	var eligible []models.ModelDescriptor
	if req.Mode.RunsParallel() {
		eligible = e.registry.Eligible(req.Filter)
		if len(eligible) == 0 {
			e.logger.Warn("No providers enabled for request",
				zap.String("mode", string(req.Mode)))
			return nil, ErrNoProvidersEnabled
		}
	}

	var chains []models.ChainDescriptor
	if req.Mode.RunsChains() {
		if req.ChainID != "" {
			ch, ok := e.catalogue.Resolve(req.ChainID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrChainNotFound, req.ChainID)
			}
			chains = []models.ChainDescriptor{ch}
		} else {
			chains = e.catalogue.List()
		}
	}

	started := e.now()
	result := &Result{Mode: req.Mode}

	var wg sync.WaitGroup
	if req.Mode.RunsParallel() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result.Responses = e.runParallel(ctx, eligible, req)
		}()
	}
	if req.Mode.RunsChains() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result.Chains = e.runChains(ctx, chains, req)
		}()
	}
	wg.Wait()

	e.logger.Info("Orchestration completed",
		zap.String("mode", string(req.Mode)),
		zap.Int("responses", len(result.Responses)),
		zap.Int("chains", len(result.Chains)),
		zap.Duration("elapsed", e.now().Sub(started)))

	return result, nil
}

// ExecuteChain runs only the named chain in chain mode
func (e *Engine) ExecuteChain(ctx context.Context, chainID string, req Request) (*Result, error) {
	if chainID == "" {
		return nil, fmt.Errorf("%w: empty chain id", ErrChainNotFound)
	}
	req.Mode = models.ModeChain
	req.ChainID = chainID
	return e.Execute(ctx, req)
}

// runParallel starts every call before waiting on any and keeps one entry per model
func (e *Engine) runParallel(ctx context.Context, eligible []models.ModelDescriptor, req Request) []models.ModelResponse {
	responses := make([]models.ModelResponse, len(eligible))

	var wg sync.WaitGroup
	for i, m := range eligible {
		wg.Add(1)
		go func(i int, m models.ModelDescriptor) {
			defer wg.Done()
			responses[i] = e.invokeModel(ctx, m, req)
		}(i, m)
	}
	wg.Wait()

	return responses
}

func (e *Engine) invokeModel(ctx context.Context, m models.ModelDescriptor, req Request) models.ModelResponse {
	resp, err := e.invoker.Invoke(ctx, m.ID, req.Question, req.Wallet)
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: %s returned no response", llm.ErrBackendResponseMalformed, m.ID)
	}
	if err != nil {
		e.logger.Warn("Model failed in parallel mode",
			zap.String("model", m.ID),
			zap.String("kind", llm.ErrorKind(err)),
			zap.Error(err))
		return e.errorResponse(m, err)
	}

	out := *resp
	out.Source = models.ModelSource(m.ID)
	return out
}

func (e *Engine) errorResponse(m models.ModelDescriptor, err error) models.ModelResponse {
	return models.ModelResponse{
		Source:    models.ModelSource(m.ID),
		Content:   fmt.Sprintf("%s could not answer: %v", m.DisplayName, err),
		CreatedAt: e.now(),
		Error:     llm.ErrorKind(err),
	}
}

// runChains runs chains concurrently with each other; each chain is sequential inside
func (e *Engine) runChains(ctx context.Context, chains []models.ChainDescriptor, req Request) []ChainOutcome {
	outcomes := make([]ChainOutcome, len(chains))

	var wg sync.WaitGroup
	for i, ch := range chains {
		wg.Add(1)
		go func(i int, ch models.ChainDescriptor) {
			defer wg.Done()
			outcomes[i] = e.settleChain(ctx, ch, req)
		}(i, ch)
	}
	wg.Wait()

	return outcomes
}

func (e *Engine) settleChain(ctx context.Context, ch models.ChainDescriptor, req Request) ChainOutcome {
	res, err := e.RunChain(ctx, ch, req)
	if err != nil {
		e.logger.Warn("Chain failed",
			zap.String("chain", ch.ID),
			zap.String("name", ch.Name),
			zap.Error(err))
		return ChainOutcome{Chain: ch, Result: e.failedChain(ch, err)}
	}
	return ChainOutcome{Chain: ch, Result: res}
}

func (e *Engine) failedChain(ch models.ChainDescriptor, err error) models.ChainExecutionResult {
	kind := llm.ErrorKind(err)
	if errors.Is(err, registry.ErrModelNotFound) ||
		errors.Is(err, registry.ErrModelDisabled) ||
		errors.Is(err, registry.ErrModelFiltered) {
		kind = "chain_unavailable"
	}
	return models.ChainExecutionResult{
		ChainID:       ch.ID,
		Steps:         []models.ChainStep{},
		FinalResponse: fmt.Sprintf("Chain %s failed: %v", ch.Name, err),
		TotalTimeMs:   0,
		Responses:     map[string]models.ModelResponse{},
		Error:         kind,
	}
}

// DisplayName returns the registry display name of a model, or its id
func (e *Engine) DisplayName(id string) string {
	if d, ok := e.registry.Get(id); ok && d.DisplayName != "" {
		return d.DisplayName
	}
	return id
}
