package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"advisor-service/internal/models"
	"advisor-service/internal/storage"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const (
	// StorageKey is the single key the whole entry list is kept under
	StorageKey        = "training_data"
	DefaultMaxEntries = 1000
)

var (
	// ErrPersistence wraps any failure to read or write the durable store
	ErrPersistence = errors.New("training data persistence failed")
	ErrNoSelection = errors.New("entry has no selected option")
	// ErrCorruptLog means the stored value is not a JSON array and is left untouched
	ErrCorruptLog = errors.New("stored training data is not a JSON array")
)

// Store is the bounded, append-only log of judged comparison sessions.
// Entries are kept newest first; the oldest are evicted past MaxEntries.
type Store struct {
	mu         sync.Mutex
	kv         storage.KV
	maxEntries int
	logger     *zap.Logger
}

// NewStore creates a store over a key/value backend
func NewStore(kv storage.KV, maxEntries int, logger *zap.Logger) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{
		kv:         kv,
		maxEntries: maxEntries,
		logger:     logger,
	}
}

// MaxEntries returns the configured bound
func (s *Store) MaxEntries() int {
	return s.maxEntries
}

// load decodes the stored list record by record so one corrupt record does
// not hide the others
func (s *Store) load(ctx context.Context) ([]models.TrainingEntry, error) {
	data, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok || len(data) == 0 {
		return []models.TrainingEntry{}, nil
	}

	var raw []json.RawMessage
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrPersistence, ErrCorruptLog, err)
	}

	entries := make([]models.TrainingEntry, 0, len(raw))
	for i, r := range raw {
		var e models.TrainingEntry
		if err := sonic.Unmarshal(r, &e); err != nil {
			s.logger.Warn("Skipping undecodable training entry",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Store) save(ctx context.Context, entries []models.TrainingEntry) error {
	data, err := sonic.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := s.kv.Set(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// Append adds an entry and trims the log to MaxEntries.
// Append and trim happen under one lock so concurrent appends keep the bound.
// A corrupt stored value is never overwritten; Clear resets it.
func (s *Store) Append(ctx context.Context, entry models.TrainingEntry) error {
	if !entry.HasSelection() {
		return ErrNoSelection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		s.logger.Error("Failed to load training data", zap.Error(err))
		return err
	}

	entries = append([]models.TrainingEntry{entry}, entries...)
	if len(entries) > s.maxEntries {
		s.logger.Debug("Evicting oldest training entries",
			zap.Int("evicted", len(entries)-s.maxEntries))
		entries = entries[:s.maxEntries]
	}

	if err := s.save(ctx, entries); err != nil {
		s.logger.Error("Failed to save training entry",
			zap.String("session_id", entry.ID),
			zap.Error(err))
		return err
	}

	s.logger.Info("Training entry saved",
		zap.String("session_id", entry.ID),
		zap.String("selected", entry.SelectedOption.String()),
		zap.Int("total", len(entries)))
	return nil
}

// ListAll returns every entry, newest first. A corrupt stored value reads as empty.
func (s *Store) ListAll(ctx context.Context) ([]models.TrainingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if errors.Is(err, ErrCorruptLog) {
		s.logger.Error("Stored training data is corrupt, reading as empty", zap.Error(err))
		return []models.TrainingEntry{}, nil
	}
	return entries, err
}

// Count returns the number of stored entries
func (s *Store) Count(ctx context.Context) (int, error) {
	entries, err := s.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Clear removes every entry
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, StorageKey); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.logger.Info("Training data cleared")
	return nil
}

// ExportJSON renders the selected entries with the compact wallet projection
func (s *Store) ExportJSON(ctx context.Context) (string, error) {
	entries, err := s.ListAll(ctx)
	if err != nil {
		return "", err
	}

	out := make([]models.ExportEntry, 0, len(entries))
	for _, e := range entries {
		if ex, ok := e.Export(); ok {
			out = append(out, ex)
		}
	}

	data, err := sonic.ConfigStd.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode export: %w", err)
	}
	return string(data), nil
}
