package models

import (
	"fmt"
	"time"
)

// SourceKind tells whether a response came from a single model or from a chain
type SourceKind string

const (
	SourceModel SourceKind = "model"
	SourceChain SourceKind = "chain"
)

// ResponseSource identifies who produced an answer: a model id or a chain id
type ResponseSource struct {
	Kind SourceKind `json:"kind"`
	ID   string     `json:"id"`
}

// ModelSource builds a source for a single model
func ModelSource(id string) ResponseSource {
	return ResponseSource{Kind: SourceModel, ID: id}
}

// ChainSource builds a source for a chain
func ChainSource(id string) ResponseSource {
	return ResponseSource{Kind: SourceChain, ID: id}
}

// IsModel reports whether the source is a single model
func (s ResponseSource) IsModel() bool { return s.Kind == SourceModel }

// IsChain reports whether the source is a chain
func (s ResponseSource) IsChain() bool { return s.Kind == SourceChain }

func (s ResponseSource) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}

// ResponseMetadata carries optional measurements reported for a response
type ResponseMetadata struct {
	TokenCount       *int     `json:"token_count,omitempty"`
	ProcessingTimeMs *int64   `json:"processing_time_ms,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`
}

// ModelResponse is the answer of one backend call.
// When Error is non-empty the call failed and Content holds readable error text.
type ModelResponse struct {
	Source    ResponseSource    `json:"source"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  *ResponseMetadata `json:"metadata,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Failed reports whether the response is an in-band error
func (r ModelResponse) Failed() bool {
	return r.Error != ""
}

// ChainStep is one hop of a chain execution
type ChainStep struct {
	Index          int           `json:"index"`
	ModelID        string        `json:"model_id"`
	Prompt         string        `json:"prompt"`
	EnhancedPrompt string        `json:"enhanced_prompt,omitempty"`
	Response       ModelResponse `json:"response"`
}

// ChainExecutionResult aggregates every step of one chain run.
// A failed chain carries no steps, zero elapsed time and the error text as FinalResponse.
type ChainExecutionResult struct {
	ChainID       string                   `json:"chain_id"`
	Steps         []ChainStep              `json:"steps"`
	FinalModel    string                   `json:"final_model,omitempty"`
	FinalResponse string                   `json:"final_response"`
	TotalTimeMs   int64                    `json:"total_time_ms"`
	Responses     map[string]ModelResponse `json:"responses"`
	Error         string                   `json:"error,omitempty"`
}

// Failed reports whether the chain aborted
func (r ChainExecutionResult) Failed() bool {
	return r.Error != ""
}

// ChainComparison is what a session keeps per chain
type ChainComparison struct {
	Chain     ChainDescriptor          `json:"chain"`
	Responses map[string]ModelResponse `json:"responses"`
	Result    ChainExecutionResult     `json:"result"`
}
