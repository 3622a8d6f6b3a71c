package models

import "time"

// ComparisonSession is one user question with every answer it received
type ComparisonSession struct {
	ID             string                     `json:"id"`
	CreatedAt      time.Time                  `json:"created_at"`
	Question       string                     `json:"question"`
	Wallet         *WalletSnapshot            `json:"wallet,omitempty"`
	Mode           ChatMode                   `json:"chat_mode"`
	SelectedChain  *ChainDescriptor           `json:"selected_chain,omitempty"`
	Responses      map[string]ModelResponse   `json:"responses"`
	ChainResponses map[string]ChainComparison `json:"chain_responses,omitempty"`
	SelectedOption *ResponseSource            `json:"selected_option"`
}

// TrainingEntry is the persisted form of a finalized comparison session
type TrainingEntry struct {
	ID             string                     `json:"id"`
	CreatedAt      time.Time                  `json:"created_at"`
	Question       string                     `json:"question"`
	Wallet         *WalletSnapshot            `json:"wallet,omitempty"`
	Mode           ChatMode                   `json:"chat_mode"`
	SelectedChain  *ChainDescriptor           `json:"selected_chain,omitempty"`
	Responses      map[string]ModelResponse   `json:"responses"`
	ChainResponses map[string]ChainComparison `json:"chain_responses,omitempty"`
	SelectedOption *ResponseSource            `json:"selected_option"`
}

// ExportEntry is the compact record written by the JSON export
type ExportEntry struct {
	ID             string                     `json:"id"`
	CreatedAt      time.Time                  `json:"created_at"`
	Question       string                     `json:"question"`
	Wallet         *WalletExport              `json:"wallet,omitempty"`
	Mode           ChatMode                   `json:"chat_mode"`
	Responses      map[string]ModelResponse   `json:"responses"`
	ChainResponses map[string]ChainComparison `json:"chain_responses,omitempty"`
	SelectedOption ResponseSource             `json:"selected_option"`
}

// HasSelection reports whether the user picked a preferred answer
func (e TrainingEntry) HasSelection() bool {
	return e.SelectedOption != nil
}

// SelectionKnown reports whether the selected option refers to a stored response
func (e TrainingEntry) SelectionKnown() bool {
	if e.SelectedOption == nil {
		return false
	}
	switch e.SelectedOption.Kind {
	case SourceModel:
		_, ok := e.Responses[e.SelectedOption.ID]
		return ok
	case SourceChain:
		_, ok := e.ChainResponses[e.SelectedOption.ID]
		return ok
	}
	return false
}

// Export projects the entry for the JSON export. Entries without a selection return false.
func (e TrainingEntry) Export() (ExportEntry, bool) {
	if e.SelectedOption == nil {
		return ExportEntry{}, false
	}
	return ExportEntry{
		ID:             e.ID,
		CreatedAt:      e.CreatedAt,
		Question:       e.Question,
		Wallet:         e.Wallet.Export(),
		Mode:           e.Mode,
		Responses:      e.Responses,
		ChainResponses: e.ChainResponses,
		SelectedOption: *e.SelectedOption,
	}, true
}
