package session

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	DefaultMaxOpen = 256
	DefaultTTL     = 30 * time.Minute
)

// Cache keeps sessions that are waiting for a selection.
// Sessions that expire or get evicted are dropped without being persisted.
type Cache struct {
	lru    *expirable.LRU[string, *Session]
	logger *zap.Logger
}

// NewCache creates a bounded, expiring session cache
func NewCache(maxOpen int, ttl time.Duration, logger *zap.Logger) *Cache {
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpen
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Cache{logger: logger}
	c.lru = expirable.NewLRU[string, *Session](maxOpen, func(id string, s *Session) {
		if st := s.State(); st != StatePersisted {
			c.logger.Debug("Discarding unsaved session",
				zap.String("session_id", id),
				zap.String("state", string(st)))
		}
	}, ttl)
	return c
}

// Put stores a session
func (c *Cache) Put(s *Session) {
	c.lru.Add(s.ID(), s)
}

// Get returns an open session by id
func (c *Cache) Get(id string) (*Session, bool) {
	return c.lru.Get(id)
}

// Remove drops a session
func (c *Cache) Remove(id string) {
	c.lru.Remove(id)
}

// Len returns the number of open sessions
func (c *Cache) Len() int {
	return c.lru.Len()
}
