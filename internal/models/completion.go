package models

import "errors"

var (
	// ErrBackendUnavailable means no credentials are configured for the backend
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrBackendRequestFailed covers transport errors and non-success statuses
	ErrBackendRequestFailed = errors.New("backend request failed")
	// ErrBackendResponseMalformed means a success status without a usable answer
	ErrBackendResponseMalformed = errors.New("backend response malformed")
)

// Completion is the raw answer returned by an LLM provider
type Completion struct {
	Text         string `json:"text"`
	TokenCount   int    `json:"token_count,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}
