package registry

import (
	"errors"
	"fmt"
	"strings"

	"advisor-service/internal/models"
)

var (
	ErrChainNotFound  = errors.New("chain not found")
	ErrEmptyChain     = errors.New("chain has no models")
	ErrDuplicateChain = errors.New("duplicate chain id")
)

// ChainID returns the positional id used for chains without an explicit one
func ChainID(index int) string {
	return fmt.Sprintf("chain_%d", index)
}

// ChainCatalogue is the ordered, read-only list of chains
type ChainCatalogue struct {
	chains []models.ChainDescriptor
	byID   map[string]int
}

// NewChainCatalogue assigns ids and validates the chains.
// Ids are fixed here and never recomputed from slice position later.
func NewChainCatalogue(chains []models.ChainDescriptor) (*ChainCatalogue, error) {
	c := &ChainCatalogue{
		chains: make([]models.ChainDescriptor, 0, len(chains)),
		byID:   make(map[string]int, len(chains)),
	}

	for i, ch := range chains {
		ch.ID = strings.TrimSpace(ch.ID)
		if ch.ID == "" {
			ch.ID = ChainID(i)
		}
		if len(ch.Models) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyChain, ch.ID)
		}
		if _, ok := c.byID[ch.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateChain, ch.ID)
		}
		if ch.Name == "" {
			ch.Name = strings.Join(ch.Models, " → ")
		}
		ch.Models = append([]string(nil), ch.Models...)

		c.byID[ch.ID] = len(c.chains)
		c.chains = append(c.chains, ch)
	}

	return c, nil
}

// List returns the chains in display order
func (c *ChainCatalogue) List() []models.ChainDescriptor {
	out := make([]models.ChainDescriptor, len(c.chains))
	for i, ch := range c.chains {
		ch.Models = append([]string(nil), ch.Models...)
		out[i] = ch
	}
	return out
}

// Resolve looks a chain up by id
func (c *ChainCatalogue) Resolve(id string) (models.ChainDescriptor, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.ChainDescriptor{}, false
	}
	ch := c.chains[i]
	ch.Models = append([]string(nil), ch.Models...)
	return ch, true
}

// Len returns the number of chains
func (c *ChainCatalogue) Len() int {
	return len(c.chains)
}

// Runnable checks that every model of the chain exists and is enabled for this request.
// It must be evaluated per request since the filter changes between requests.
func Runnable(chain models.ChainDescriptor, reg *ModelRegistry, filter Filter) error {
	if len(chain.Models) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyChain, chain.ID)
	}
	for _, id := range chain.Models {
		if err := reg.CheckUsable(id, filter); err != nil {
			return err
		}
	}
	return nil
}
