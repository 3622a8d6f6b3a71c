package stats

import (
	"testing"
	"time"

	"advisor-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parallelEntry(id, question, selected string) models.TrainingEntry {
	sel := models.ModelSource(selected)
	return models.TrainingEntry{
		ID:        id,
		CreatedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Question:  question,
		Mode:      models.ModeParallel,
		Responses: map[string]models.ModelResponse{
			"openai": {Source: models.ModelSource("openai"), Content: "a"},
			"gemini": {Source: models.ModelSource("gemini"), Content: "b"},
		},
		SelectedOption: &sel,
	}
}

func universalEntry(id, question string, selected models.ResponseSource) models.TrainingEntry {
	e := parallelEntry(id, question, "openai")
	e.Mode = models.ModeUniversal
	e.ChainResponses = map[string]models.ChainComparison{
		"chain_0": {Chain: models.ChainDescriptor{ID: "chain_0"}},
		"chain_1": {Chain: models.ChainDescriptor{ID: "chain_1"}},
	}
	e.SelectedOption = &selected
	return e
}

func fixture() []models.TrainingEntry {
	return []models.TrainingEntry{
		parallelEntry("1", "Is my seed phrase safe?", "gemini"),
		parallelEntry("2", "What is the gas fee?", "gemini"),
		parallelEntry("3", "Tell me a joke", "openai"),
		universalEntry("4", "How do I stake?", models.ChainSource("chain_1")),
		universalEntry("5", "hello", models.ModelSource("gemini")),
	}
}

func find(t *testing.T, rows []Tally, id string) Tally {
	t.Helper()
	for _, r := range rows {
		if r.ID == id {
			return r
		}
	}
	require.Failf(t, "missing tally", "id %s", id)
	return Tally{}
}

func TestCompute_WinsAndParticipation(t *testing.T) {
	r := Compute(fixture())

	assert.Equal(t, 5, r.TotalEntries)
	assert.Equal(t, 5, r.Counted)
	assert.Zero(t, r.Skipped)
	assert.Equal(t, map[string]int{"parallel": 3, "universal": 2}, r.ByMode)

	gemini := find(t, r.Models, "gemini")
	assert.Equal(t, 3, gemini.Wins)
	assert.Equal(t, 5, gemini.Participations)
	assert.InDelta(t, 0.6, gemini.WinRate, 1e-9)
	assert.Equal(t, "gemini", r.Models[0].ID, "leaderboard sorted by wins")

	openai := find(t, r.Models, "openai")
	assert.Equal(t, 1, openai.Wins)

	c1 := find(t, r.Chains, "chain_1")
	assert.Equal(t, 1, c1.Wins)
	assert.Equal(t, 2, c1.Participations)
	c0 := find(t, r.Chains, "chain_0")
	assert.Zero(t, c0.Wins)
}

func TestCompute_ModeScoping(t *testing.T) {
	// a chain-mode entry never counts a model win even if it selects one
	sel := models.ModelSource("openai")
	e := parallelEntry("x", "q", "openai")
	e.Mode = models.ModeChain
	e.SelectedOption = &sel

	r := Compute([]models.TrainingEntry{e})
	assert.Zero(t, find(t, r.Models, "openai").Wins)
}

func TestCompute_Categories(t *testing.T) {
	r := Compute(fixture())
	require.Len(t, r.Categories, 3)

	byCat := map[Category]CategoryBreakdown{}
	for _, c := range r.Categories {
		byCat[c.Category] = c
	}
	assert.Equal(t, 1, byCat[CategorySecurity].Entries)
	assert.Equal(t, map[string]int{"model:gemini": 1}, byCat[CategorySecurity].Selections)
	assert.Equal(t, 2, byCat[CategoryTechnical].Entries)
	assert.Equal(t, 1, byCat[CategoryTechnical].Selections["chain:chain_1"])
	assert.Equal(t, 2, byCat[CategoryGeneral].Entries)
}

func TestCompute_SkipsMalformed(t *testing.T) {
	noID := parallelEntry("", "q", "gemini")
	badMode := parallelEntry("m", "q", "gemini")
	badMode.Mode = "broadcast"
	noSel := parallelEntry("n", "q", "gemini")
	noSel.SelectedOption = nil
	dangling := parallelEntry("d", "q", "claude")

	for _, e := range []models.TrainingEntry{noID, badMode, noSel, dangling} {
		assert.ErrorIs(t, Validate(e), ErrMalformedEntry)
	}

	entries := append(fixture(), noID, badMode, noSel, dangling)
	r := Compute(entries)
	assert.Equal(t, 9, r.TotalEntries)
	assert.Equal(t, 5, r.Counted)
	assert.Equal(t, 4, r.Skipped)
	assert.Equal(t, Compute(fixture()).Models, r.Models)
}

func TestCompute_Idempotent(t *testing.T) {
	entries := fixture()
	assert.Equal(t, Compute(entries), Compute(entries))
}

func TestCompute_Empty(t *testing.T) {
	r := Compute(nil)
	assert.Zero(t, r.TotalEntries)
	assert.Empty(t, r.Models)
	assert.Len(t, r.Categories, 3)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, CategorySecurity, Classify("Is this a SCAM token?"))
	assert.Equal(t, CategoryTechnical, Classify("why did my transaction fail"))
	assert.Equal(t, CategoryGeneral, Classify("good morning"))
}
