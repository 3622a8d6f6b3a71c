package models

// AskRequest is the body of a question submission
type AskRequest struct {
	Question string      `json:"question" binding:"required"`
	Wallet   *WalletData `json:"wallet,omitempty"`
	Mode     ChatMode    `json:"mode" binding:"required"`
	// EnabledModels is the per-model enablement chosen by the user. Omitted means all enabled.
	EnabledModels map[string]bool `json:"enabled_models,omitempty"`
	ChainID       string          `json:"chain_id,omitempty"`
}

// SelectRequest records the preferred answer of a session
type SelectRequest struct {
	Option string `json:"option" binding:"required"`
}

// SaveResponse reports the outcome of a save
type SaveResponse struct {
	SessionID string         `json:"session_id"`
	Persisted bool           `json:"persisted"`
	Selected  ResponseSource `json:"selected_option"`
	Warning   string         `json:"warning,omitempty"`
}

// ChainInfo is a catalogue entry annotated with its runnability for a request
type ChainInfo struct {
	ChainDescriptor
	Runnable bool   `json:"runnable"`
	Reason   string `json:"reason,omitempty"`
}
