package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"advisor-service/internal/llm"
	"advisor-service/internal/models"
	"advisor-service/internal/orchestrator"
	"advisor-service/internal/registry"
	"advisor-service/internal/session"
	"advisor-service/internal/storage"
	"advisor-service/internal/training"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var clock = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

type echoInvoker struct {
	fail map[string]error
}

func (e echoInvoker) Invoke(_ context.Context, backendID, prompt string, _ *models.WalletData) (*models.ModelResponse, error) {
	if err := e.fail[backendID]; err != nil {
		return nil, err
	}
	return &models.ModelResponse{
		Source:    models.ModelSource(backendID),
		Content:   backendID + ": " + prompt,
		CreatedAt: clock,
	}, nil
}

type brokenKV struct {
	*storage.MemoryKV
}

func (brokenKV) Set(context.Context, string, []byte) error {
	return errors.New("read-only filesystem")
}

// slowKV widens the window between reading and writing the training data
type slowKV struct {
	*storage.MemoryKV
}

func (k slowKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	time.Sleep(2 * time.Millisecond)
	return k.MemoryKV.Get(ctx, key)
}

func newAdvisor(t *testing.T, inv llm.Invoker, kv storage.KV) *Advisor {
	t.Helper()
	reg, err := registry.NewModelRegistry([]models.ModelDescriptor{
		{ID: "openai", DisplayName: "OpenAI", Enabled: true},
		{ID: "gemini", DisplayName: "Gemini", Enabled: true},
	})
	require.NoError(t, err)
	cat, err := registry.NewChainCatalogue([]models.ChainDescriptor{
		{Name: "O→G", Models: []string{"openai", "gemini"}},
		{Name: "G→O", Models: []string{"gemini", "openai"}},
	})
	require.NoError(t, err)
	now := func() time.Time { return clock }
	eng, err := orchestrator.NewEngine(orchestrator.Options{Registry: reg, Catalogue: cat, Invoker: inv, Now: now})
	require.NoError(t, err)

	a, err := NewAdvisor(Options{
		Engine:    eng,
		Registry:  reg,
		Catalogue: cat,
		Sessions:  session.NewCache(8, time.Minute, zap.NewNop()),
		Store:     training.NewStore(kv, 10, zap.NewNop()),
		Now:       now,
	})
	require.NoError(t, err)
	return a
}

func TestAdvisor_AskSelectSave(t *testing.T) {
	ctx := context.Background()
	a := newAdvisor(t, echoInvoker{}, storage.NewMemoryKV())

	sess, err := a.Ask(ctx, models.AskRequest{Question: "is my wallet secure?", Mode: models.ModeUniversal})
	require.NoError(t, err)
	assert.Len(t, sess.Responses, 2)
	assert.Len(t, sess.ChainResponses, 2)
	assert.Equal(t, clock, sess.CreatedAt)

	_, err = a.Select(sess.ID, "chain_1")
	require.NoError(t, err)

	saved, err := a.Save(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, saved.Persisted)
	assert.Equal(t, models.ChainSource("chain_1"), saved.Selected)

	_, err = a.Session(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	entries, err := a.ListTraining(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, sess.ID, entries[0].ID)

	report, err := a.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, report.Chains, 2)
	assert.Equal(t, "chain_1", report.Chains[0].ID)
	assert.Equal(t, 1, report.Chains[0].Wins)

	require.NoError(t, a.ClearTraining(ctx))
	out, err := a.ExportJSON(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestAdvisor_SaveWithoutSelection(t *testing.T) {
	ctx := context.Background()
	a := newAdvisor(t, echoInvoker{}, storage.NewMemoryKV())

	sess, err := a.Ask(ctx, models.AskRequest{Question: "q", Mode: models.ModeParallel})
	require.NoError(t, err)

	_, err = a.Save(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrNoSelection)
}

func TestAdvisor_PersistenceFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	a := newAdvisor(t, echoInvoker{}, brokenKV{storage.NewMemoryKV()})

	sess, err := a.Ask(ctx, models.AskRequest{Question: "q", Mode: models.ModeParallel})
	require.NoError(t, err)
	_, err = a.Select(sess.ID, "gemini")
	require.NoError(t, err)

	saved, err := a.Save(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, saved.Persisted)
	assert.NotEmpty(t, saved.Warning)

	_, err = a.Session(sess.ID)
	assert.NoError(t, err)
}

func TestAdvisor_NoProviders(t *testing.T) {
	a := newAdvisor(t, echoInvoker{}, storage.NewMemoryKV())

	_, err := a.Ask(context.Background(), models.AskRequest{
		Question:      "q",
		Mode:          models.ModeParallel,
		EnabledModels: map[string]bool{"openai": false, "gemini": false},
	})
	assert.ErrorIs(t, err, orchestrator.ErrNoProvidersEnabled)
}

func TestAdvisor_ChainsRunnability(t *testing.T) {
	a := newAdvisor(t, echoInvoker{}, storage.NewMemoryKV())

	all := a.Chains(nil)
	require.Len(t, all, 2)
	assert.True(t, all[0].Runnable)
	assert.Equal(t, "chain_0", all[0].ID)

	limited := a.Chains(map[string]bool{"openai": true, "gemini": false})
	assert.False(t, limited[0].Runnable)
	assert.NotEmpty(t, limited[0].Reason)

	assert.Len(t, a.Models(), 2)
}

func TestAdvisor_UnknownSession(t *testing.T) {
	a := newAdvisor(t, echoInvoker{}, storage.NewMemoryKV())

	_, err := a.Select("nope", "openai")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = a.Save(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAdvisor_SingleChainOverride(t *testing.T) {
	a := newAdvisor(t, echoInvoker{}, storage.NewMemoryKV())

	sess, err := a.Ask(context.Background(), models.AskRequest{Question: "q", Mode: models.ModeChain, ChainID: "chain_1"})
	require.NoError(t, err)
	require.NotNil(t, sess.SelectedChain)
	assert.Equal(t, "chain_1", sess.SelectedChain.ID)
	assert.Len(t, sess.ChainResponses, 1)
}

func TestAdvisor_ConcurrentSaveAppendsOnce(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		a := newAdvisor(t, echoInvoker{}, slowKV{storage.NewMemoryKV()})
		sess, err := a.Ask(ctx, models.AskRequest{Question: "q", Mode: models.ModeParallel})
		require.NoError(t, err)
		_, err = a.Select(sess.ID, "gemini")
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make([]models.SaveResponse, 4)
		errs := make([]error, 4)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = a.Save(ctx, sess.ID)
			}(i)
		}
		wg.Wait()

		persisted := 0
		for i, err := range errs {
			if err != nil {
				assert.True(t, errors.Is(err, session.ErrAlreadyPersisted) || errors.Is(err, ErrSessionNotFound), err)
				continue
			}
			if results[i].Persisted {
				persisted++
			}
		}
		assert.Equal(t, 1, persisted)

		entries, err := a.ListTraining(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1, "round %d", round)
	}
}

func TestAdvisor_RetryAfterPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{MemoryKV: storage.NewMemoryKV(), failures: 1}
	a := newAdvisor(t, echoInvoker{}, kv)

	sess, err := a.Ask(ctx, models.AskRequest{Question: "q", Mode: models.ModeParallel})
	require.NoError(t, err)
	_, err = a.Select(sess.ID, "openai")
	require.NoError(t, err)

	saved, err := a.Save(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, saved.Persisted)

	saved, err = a.Save(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, saved.Persisted)

	entries, err := a.ListTraining(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// flakyKV fails the first writes then behaves
type flakyKV struct {
	*storage.MemoryKV
	mu       sync.Mutex
	failures int
}

func (k *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	k.mu.Lock()
	if k.failures > 0 {
		k.failures--
		k.mu.Unlock()
		return errors.New("temporarily unavailable")
	}
	k.mu.Unlock()
	return k.MemoryKV.Set(ctx, key, value)
}
