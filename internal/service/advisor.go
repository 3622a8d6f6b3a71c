package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"advisor-service/internal/models"
	"advisor-service/internal/orchestrator"
	"advisor-service/internal/registry"
	"advisor-service/internal/session"
	"advisor-service/internal/stats"
	"advisor-service/internal/training"

	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for unknown or expired session ids
var ErrSessionNotFound = errors.New("session not found")

// Options wires the advisor's collaborators
type Options struct {
	Engine    *orchestrator.Engine
	Registry  *registry.ModelRegistry
	Catalogue *registry.ChainCatalogue
	Sessions  *session.Cache
	Store     *training.Store
	Logger    *zap.Logger
	Now       func() time.Time
}

// Advisor handles the question, selection and training data flow
type Advisor struct {
	engine    *orchestrator.Engine
	registry  *registry.ModelRegistry
	catalogue *registry.ChainCatalogue
	sessions  *session.Cache
	store     *training.Store
	logger    *zap.Logger
	now       func() time.Time
}

// NewAdvisor creates a new advisor service
func NewAdvisor(opts Options) (*Advisor, error) {
	if opts.Engine == nil || opts.Registry == nil || opts.Catalogue == nil ||
		opts.Sessions == nil || opts.Store == nil {
		return nil, fmt.Errorf("advisor requires engine, registry, catalogue, sessions and store")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Advisor{
		engine:    opts.Engine,
		registry:  opts.Registry,
		catalogue: opts.Catalogue,
		sessions:  opts.Sessions,
		store:     opts.Store,
		logger:    opts.Logger,
		now:       opts.Now,
	}, nil
}

// Ask runs the question through the engine and opens a comparison session
func (a *Advisor) Ask(ctx context.Context, req models.AskRequest) (models.ComparisonSession, error) {
	engineReq := orchestrator.Request{
		Question: req.Question,
		Wallet:   req.Wallet,
		Mode:     req.Mode,
		Filter:   registry.Filter(req.EnabledModels),
		ChainID:  req.ChainID,
	}

	var res *orchestrator.Result
	var err error
	if req.ChainID != "" && req.Mode == models.ModeChain {
		res, err = a.engine.ExecuteChain(ctx, req.ChainID, engineReq)
	} else {
		res, err = a.engine.Execute(ctx, engineReq)
	}
	if err != nil {
		return models.ComparisonSession{}, err
	}

	s := session.New(req.Question, req.Wallet, req.Mode, a.now())
	if err := s.Populate(res); err != nil {
		return models.ComparisonSession{}, fmt.Errorf("failed to populate session: %w", err)
	}
	a.sessions.Put(s)

	a.logger.Info("Session opened",
		zap.String("session_id", s.ID()),
		zap.String("mode", string(req.Mode)),
		zap.Int("responses", len(res.Responses)),
		zap.Int("chains", len(res.Chains)))

	return s.Snapshot(), nil
}

// Session returns an open session
func (a *Advisor) Session(id string) (models.ComparisonSession, error) {
	s, ok := a.sessions.Get(id)
	if !ok {
		return models.ComparisonSession{}, ErrSessionNotFound
	}
	return s.Snapshot(), nil
}

// Select records the preferred option of an open session
func (a *Advisor) Select(id, option string) (models.ComparisonSession, error) {
	s, ok := a.sessions.Get(id)
	if !ok {
		return models.ComparisonSession{}, ErrSessionNotFound
	}

	src, err := s.Select(option)
	if err != nil {
		return models.ComparisonSession{}, err
	}

	a.logger.Info("Option selected",
		zap.String("session_id", id),
		zap.String("selected", src.String()))
	return s.Snapshot(), nil
}

// Save appends a selected session to the training data exactly once.
// A storage failure is logged and reported as not persisted; the session
// stays open so the caller can retry.
func (a *Advisor) Save(ctx context.Context, id string) (models.SaveResponse, error) {
	s, ok := a.sessions.Get(id)
	if !ok {
		return models.SaveResponse{}, ErrSessionNotFound
	}

	entry, err := s.BeginPersist()
	if err != nil {
		return models.SaveResponse{}, err
	}

	resp := models.SaveResponse{SessionID: id, Selected: *entry.SelectedOption}
	if err := a.store.Append(ctx, entry); err != nil {
		s.AbortPersist()
		a.logger.Error("Failed to persist session, continuing",
			zap.String("session_id", id),
			zap.Error(err))
		resp.Warning = "training data could not be saved"
		return resp, nil
	}

	s.MarkPersisted()
	a.sessions.Remove(id)
	resp.Persisted = true
	return resp, nil
}

// ListTraining returns every stored entry, newest first
func (a *Advisor) ListTraining(ctx context.Context) ([]models.TrainingEntry, error) {
	return a.store.ListAll(ctx)
}

// ClearTraining deletes all training data
func (a *Advisor) ClearTraining(ctx context.Context) error {
	return a.store.Clear(ctx)
}

// ExportJSON renders the selected entries for download
func (a *Advisor) ExportJSON(ctx context.Context) (string, error) {
	return a.store.ExportJSON(ctx)
}

// Stats recomputes the aggregate report from the stored entries
func (a *Advisor) Stats(ctx context.Context) (stats.Report, error) {
	entries, err := a.store.ListAll(ctx)
	if err != nil {
		return stats.Report{}, err
	}

	report := stats.Compute(entries)
	if report.Skipped > 0 {
		a.logger.Warn("Skipped malformed training entries",
			zap.Int("skipped", report.Skipped))
	}
	return report, nil
}

// Models lists the registry
func (a *Advisor) Models() []models.ModelDescriptor {
	return a.registry.List()
}

// Chains lists the catalogue with runnability under the given enablement
func (a *Advisor) Chains(enabled map[string]bool) []models.ChainInfo {
	chains := a.catalogue.List()
	out := make([]models.ChainInfo, 0, len(chains))
	for _, ch := range chains {
		info := models.ChainInfo{ChainDescriptor: ch, Runnable: true}
		if err := registry.Runnable(ch, a.registry, registry.Filter(enabled)); err != nil {
			info.Runnable = false
			info.Reason = err.Error()
		}
		out = append(out, info)
	}
	return out
}
