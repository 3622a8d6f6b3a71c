package stats

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"advisor-service/internal/models"
)

// ErrMalformedEntry marks a stored entry that cannot be aggregated
var ErrMalformedEntry = errors.New("malformed training entry")

// Category buckets a question by topic
type Category string

const (
	CategorySecurity  Category = "security"
	CategoryTechnical Category = "technical"
	CategoryGeneral   Category = "general"
)

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategorySecurity, []string{
		"secure", "security", "safe", "scam", "hack", "phishing", "2fa",
		"private key", "seed", "password", "risk", "protect",
	}},
	{CategoryTechnical, []string{
		"gas", "transaction", "contract", "token", "stake", "staking",
		"validator", "fee", "epoch", "rpc", "swap", "move",
	}},
}

// Classify assigns a question to a category by naive keyword match.
// Security wins over technical when both match.
func Classify(question string) Category {
	q := strings.ToLower(question)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(q, kw) {
				return c.category
			}
		}
	}
	return CategoryGeneral
}

// Tally is one leaderboard row
type Tally struct {
	ID             string  `json:"id"`
	Wins           int     `json:"wins"`
	Participations int     `json:"participations"`
	WinRate        float64 `json:"win_rate"`
}

// CategoryBreakdown counts selections inside one category
type CategoryBreakdown struct {
	Category   Category       `json:"category"`
	Entries    int            `json:"entries"`
	Selections map[string]int `json:"selections"`
}

// Report is the full aggregate over the training data
type Report struct {
	TotalEntries int                 `json:"total_entries"`
	Counted      int                 `json:"counted"`
	Skipped      int                 `json:"skipped"`
	ByMode       map[string]int      `json:"by_mode"`
	Models       []Tally             `json:"models"`
	Chains       []Tally             `json:"chains"`
	Categories   []CategoryBreakdown `json:"categories"`
}

// Validate checks that an entry can be aggregated
func Validate(e models.TrainingEntry) error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedEntry)
	}
	if !e.Mode.Valid() {
		return fmt.Errorf("%w: entry %s has unknown mode %q", ErrMalformedEntry, e.ID, e.Mode)
	}
	if !e.HasSelection() {
		return fmt.Errorf("%w: entry %s has no selection", ErrMalformedEntry, e.ID)
	}
	if !e.SelectionKnown() {
		return fmt.Errorf("%w: entry %s selects unknown option %s", ErrMalformedEntry, e.ID, e.SelectedOption)
	}
	return nil
}

type counter struct {
	wins           map[string]int
	participations map[string]int
}

func newCounter() counter {
	return counter{wins: map[string]int{}, participations: map[string]int{}}
}

func (c counter) tallies() []Tally {
	ids := make(map[string]struct{}, len(c.participations))
	for id := range c.participations {
		ids[id] = struct{}{}
	}
	for id := range c.wins {
		ids[id] = struct{}{}
	}

	out := make([]Tally, 0, len(ids))
	for id := range ids {
		t := Tally{ID: id, Wins: c.wins[id], Participations: c.participations[id]}
		if t.Participations > 0 {
			t.WinRate = float64(t.Wins) / float64(t.Participations)
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if out[i].WinRate != out[j].WinRate {
			return out[i].WinRate > out[j].WinRate
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Compute aggregates the entries. It keeps no state between calls, so the
// same input always gives an equal report. Malformed entries are skipped.
func Compute(entries []models.TrainingEntry) Report {
	report := Report{
		TotalEntries: len(entries),
		ByMode:       map[string]int{},
	}

	modelCounts := newCounter()
	chainCounts := newCounter()
	categories := map[Category]*CategoryBreakdown{}
	for _, c := range []Category{CategorySecurity, CategoryTechnical, CategoryGeneral} {
		categories[c] = &CategoryBreakdown{Category: c, Selections: map[string]int{}}
	}

	for _, e := range entries {
		if err := Validate(e); err != nil {
			report.Skipped++
			continue
		}
		report.Counted++
		report.ByMode[string(e.Mode)]++

		for id := range e.Responses {
			modelCounts.participations[id]++
		}
		for id := range e.ChainResponses {
			chainCounts.participations[id]++
		}

		sel := *e.SelectedOption
		switch {
		case sel.IsModel() && e.Mode.RunsParallel():
			modelCounts.wins[sel.ID]++
		case sel.IsChain() && e.Mode.RunsChains():
			chainCounts.wins[sel.ID]++
		}

		b := categories[Classify(e.Question)]
		b.Entries++
		b.Selections[sel.String()]++
	}

	report.Models = modelCounts.tallies()
	report.Chains = chainCounts.tallies()
	report.Categories = []CategoryBreakdown{
		*categories[CategorySecurity],
		*categories[CategoryTechnical],
		*categories[CategoryGeneral],
	}
	return report
}
