package models

// ModelDescriptor describes a backend model available to the orchestrator
type ModelDescriptor struct {
	ID           string   `json:"id" yaml:"id"`
	DisplayName  string   `json:"display_name" yaml:"display_name"`
	Enabled      bool     `json:"enabled" yaml:"enabled"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities"`
	Priority     *int     `json:"priority,omitempty" yaml:"priority"`
}

// ChainDescriptor is an ordered sequence of models where each step feeds the next
type ChainDescriptor struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Models      []string `json:"models" yaml:"models"`
}

// ChatMode selects how a question is dispatched to the backends
type ChatMode string

const (
	ModeParallel  ChatMode = "parallel"
	ModeChain     ChatMode = "chain"
	ModeUniversal ChatMode = "universal"
)

// Valid reports whether m is one of the known chat modes
func (m ChatMode) Valid() bool {
	switch m {
	case ModeParallel, ModeChain, ModeUniversal:
		return true
	}
	return false
}

// RunsParallel reports whether the mode includes the independent per-model branch
func (m ChatMode) RunsParallel() bool {
	return m == ModeParallel || m == ModeUniversal
}

// RunsChains reports whether the mode includes the chain branch
func (m ChatMode) RunsChains() bool {
	return m == ModeChain || m == ModeUniversal
}
