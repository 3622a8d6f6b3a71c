package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"advisor-service/internal/models"
	"advisor-service/internal/orchestrator"

	"github.com/google/uuid"
)

// State is the lifecycle position of a comparison session
type State string

const (
	StateOpen      State = "open"
	StatePopulated State = "populated"
	StateSelected   State = "selected"
	StatePersisting State = "persisting"
	StatePersisted  State = "persisted"
)

var (
	ErrNothingToSelect  = errors.New("session has no responses to select from")
	ErrUnknownOption    = errors.New("option does not match any response")
	ErrAlreadyPersisted = errors.New("session already persisted")
	ErrNoSelection      = errors.New("session has no selection")
	ErrAlreadyPopulated = errors.New("session already populated")
)

// Session is a comparison session plus its lifecycle state.
// It is safe for concurrent use.
type Session struct {
	mu    sync.Mutex
	data  models.ComparisonSession
	state State
}

// New opens a session for a freshly submitted question
func New(question string, wallet *models.WalletData, mode models.ChatMode, now time.Time) *Session {
	return &Session{
		data: models.ComparisonSession{
			ID:        uuid.New().String(),
			CreatedAt: now,
			Question:  question,
			Wallet:    wallet.Snapshot(),
			Mode:      mode,
			Responses: make(map[string]models.ModelResponse),
		},
		state: StateOpen,
	}
}

// ID returns the session id
func (s *Session) ID() string {
	return s.data.ID
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Populate merges the engine's results into the session
func (s *Session) Populate(res *orchestrator.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return ErrAlreadyPopulated
	}

	for _, r := range res.Responses {
		s.data.Responses[r.Source.ID] = r
	}

	if len(res.Chains) > 0 {
		s.data.ChainResponses = make(map[string]models.ChainComparison, len(res.Chains))
		for _, out := range res.Chains {
			s.data.ChainResponses[out.Chain.ID] = models.ChainComparison{
				Chain:     out.Chain,
				Responses: out.Result.Responses,
				Result:    out.Result,
			}
		}
	}

	// only a single-chain run keeps a chain reference
	if s.data.Mode == models.ModeChain && len(res.Chains) == 1 {
		ch := res.Chains[0].Chain
		s.data.SelectedChain = &ch
	}

	s.state = StatePopulated
	return nil
}

// Select records the user's preferred answer. The option is either a model id
// present in the parallel responses or a chain id present in the chain responses.
// Selecting again before persistence overwrites the previous choice.
func (s *Session) Select(option string) (models.ResponseSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StatePersisted || s.state == StatePersisting {
		return models.ResponseSource{}, ErrAlreadyPersisted
	}
	if len(s.data.Responses) == 0 && len(s.data.ChainResponses) == 0 {
		return models.ResponseSource{}, ErrNothingToSelect
	}

	var src models.ResponseSource
	if _, ok := s.data.Responses[option]; ok {
		src = models.ModelSource(option)
	} else if _, ok := s.data.ChainResponses[option]; ok {
		src = models.ChainSource(option)
	} else {
		return models.ResponseSource{}, fmt.Errorf("%w: %q", ErrUnknownOption, option)
	}

	s.data.SelectedOption = &src
	s.state = StateSelected
	return src, nil
}

// Entry freezes the session into a training entry
func (s *Session) Entry() (models.TrainingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entryLocked()
}

// BeginPersist claims the session for saving and returns its entry.
// Only one caller can hold the claim; others get ErrAlreadyPersisted until
// AbortPersist releases it or MarkPersisted makes it final.
func (s *Session) BeginPersist() (models.TrainingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StatePersisted || s.state == StatePersisting {
		return models.TrainingEntry{}, ErrAlreadyPersisted
	}
	entry, err := s.entryLocked()
	if err != nil {
		return models.TrainingEntry{}, err
	}
	s.state = StatePersisting
	return entry, nil
}

// AbortPersist releases a claim taken by BeginPersist after a failed save
func (s *Session) AbortPersist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StatePersisting {
		s.state = StateSelected
	}
}

func (s *Session) entryLocked() (models.TrainingEntry, error) {
	if s.data.SelectedOption == nil {
		return models.TrainingEntry{}, ErrNoSelection
	}

	d := s.data
	sel := *d.SelectedOption
	return models.TrainingEntry{
		ID:             d.ID,
		CreatedAt:      d.CreatedAt,
		Question:       d.Question,
		Wallet:         d.Wallet,
		Mode:           d.Mode,
		SelectedChain:  d.SelectedChain,
		Responses:      d.Responses,
		ChainResponses: d.ChainResponses,
		SelectedOption: &sel,
	}, nil
}

// MarkPersisted moves the session into its terminal state
func (s *Session) MarkPersisted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StatePersisted
}

// Snapshot returns a copy of the session data for rendering
func (s *Session) Snapshot() models.ComparisonSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.data
	if d.SelectedOption != nil {
		sel := *d.SelectedOption
		d.SelectedOption = &sel
	}
	return d
}
