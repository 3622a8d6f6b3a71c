package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"advisor-service/internal/models"
	"advisor-service/internal/orchestrator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var created = time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

func universalResult() *orchestrator.Result {
	return &orchestrator.Result{
		Mode: models.ModeUniversal,
		Responses: []models.ModelResponse{
			{Source: models.ModelSource("openai"), Content: "err", Error: "backend_request_failed"},
			{Source: models.ModelSource("gemini"), Content: "Enable 2FA."},
		},
		Chains: []orchestrator.ChainOutcome{
			{
				Chain:  models.ChainDescriptor{ID: "chain_0", Name: "O→G", Models: []string{"openai", "gemini"}},
				Result: models.ChainExecutionResult{ChainID: "chain_0", Error: "backend_request_failed", Responses: map[string]models.ModelResponse{}},
			},
		},
	}
}

func TestSession_Lifecycle(t *testing.T) {
	wallet := &models.WalletData{
		Address:      "0xabc",
		Balance:      "10 SUI",
		Assets:       []models.Asset{{Symbol: "SUI"}, {Symbol: "USDC"}},
		Transactions: []models.Transaction{{Digest: "d1"}},
	}
	s := New("is my wallet secure?", wallet, models.ModeUniversal, created)

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, StateOpen, s.State())

	_, err := s.Select("gemini")
	assert.ErrorIs(t, err, ErrNothingToSelect)

	require.NoError(t, s.Populate(universalResult()))
	assert.Equal(t, StatePopulated, s.State())
	assert.ErrorIs(t, s.Populate(universalResult()), ErrAlreadyPopulated)

	_, err = s.Entry()
	assert.ErrorIs(t, err, ErrNoSelection)

	src, err := s.Select("gemini")
	require.NoError(t, err)
	assert.Equal(t, models.ModelSource("gemini"), src)

	src, err = s.Select("chain_0")
	require.NoError(t, err)
	assert.Equal(t, models.ChainSource("chain_0"), src)
	assert.Equal(t, StateSelected, s.State())

	_, err = s.Select("chain_7")
	assert.ErrorIs(t, err, ErrUnknownOption)

	entry, err := s.Entry()
	require.NoError(t, err)
	assert.Equal(t, s.ID(), entry.ID)
	assert.Equal(t, created, entry.CreatedAt)
	assert.Equal(t, models.ChainSource("chain_0"), *entry.SelectedOption)
	assert.True(t, entry.SelectionKnown())
	assert.Nil(t, entry.SelectedChain)
	require.NotNil(t, entry.Wallet)
	assert.Equal(t, 2, entry.Wallet.AssetCount)
	assert.Equal(t, 1, entry.Wallet.TransactionCount)

	s.MarkPersisted()
	_, err = s.Select("gemini")
	assert.ErrorIs(t, err, ErrAlreadyPersisted)
}

func TestSession_PersistClaim(t *testing.T) {
	s := New("q", nil, models.ModeUniversal, created)
	require.NoError(t, s.Populate(universalResult()))

	_, err := s.BeginPersist()
	assert.ErrorIs(t, err, ErrNoSelection)
	assert.Equal(t, StatePopulated, s.State())

	_, err = s.Select("gemini")
	require.NoError(t, err)

	entry, err := s.BeginPersist()
	require.NoError(t, err)
	assert.Equal(t, models.ModelSource("gemini"), *entry.SelectedOption)
	assert.Equal(t, StatePersisting, s.State())

	_, err = s.BeginPersist()
	assert.ErrorIs(t, err, ErrAlreadyPersisted)
	_, err = s.Select("chain_0")
	assert.ErrorIs(t, err, ErrAlreadyPersisted)

	s.AbortPersist()
	assert.Equal(t, StateSelected, s.State())

	_, err = s.BeginPersist()
	require.NoError(t, err)
	s.MarkPersisted()
	s.AbortPersist()
	assert.Equal(t, StatePersisted, s.State())
}

func TestSession_ConcurrentPersistClaim(t *testing.T) {
	s := New("q", nil, models.ModeUniversal, created)
	require.NoError(t, s.Populate(universalResult()))
	_, err := s.Select("gemini")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var won int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.BeginPersist(); err == nil {
				atomic.AddInt32(&won, 1)
			} else {
				assert.ErrorIs(t, err, ErrAlreadyPersisted)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won)
}

func TestSession_SingleChainReference(t *testing.T) {
	s := New("q", nil, models.ModeChain, created)
	res := &orchestrator.Result{
		Mode: models.ModeChain,
		Chains: []orchestrator.ChainOutcome{
			{Chain: models.ChainDescriptor{ID: "chain_1", Name: "G→O"}, Result: models.ChainExecutionResult{ChainID: "chain_1"}},
		},
	}
	require.NoError(t, s.Populate(res))

	snap := s.Snapshot()
	require.NotNil(t, snap.SelectedChain)
	assert.Equal(t, "chain_1", snap.SelectedChain.ID)
	assert.Nil(t, snap.Wallet)
	assert.Empty(t, snap.Responses)
}

func TestSession_ParallelHasNoChainMap(t *testing.T) {
	s := New("q", nil, models.ModeParallel, created)
	require.NoError(t, s.Populate(&orchestrator.Result{
		Mode:      models.ModeParallel,
		Responses: []models.ModelResponse{{Source: models.ModelSource("openai"), Content: "a"}},
	}))

	snap := s.Snapshot()
	assert.Nil(t, snap.ChainResponses)
	assert.Len(t, snap.Responses, 1)
}

func TestCache_PutGetRemove(t *testing.T) {
	c := NewCache(2, time.Minute, zap.NewNop())

	a := New("a", nil, models.ModeParallel, created)
	b := New("b", nil, models.ModeParallel, created)
	d := New("d", nil, models.ModeParallel, created)
	c.Put(a)
	c.Put(b)
	c.Put(d)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(a.ID())
	assert.False(t, ok, "oldest session evicted")

	got, ok := c.Get(d.ID())
	require.True(t, ok)
	assert.Same(t, d, got)

	c.Remove(d.ID())
	_, ok = c.Get(d.ID())
	assert.False(t, ok)
}
