package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"advisor-service/internal/models"
)

var (
	ErrModelNotFound  = errors.New("model not found")
	ErrModelDisabled  = errors.New("model disabled")
	ErrModelFiltered  = errors.New("model not enabled for this request")
	ErrDuplicateModel = errors.New("duplicate model id")
)

// Filter holds per-request model enablement flags owned by the caller.
// A nil filter enables every model; otherwise a model must be present and true.
type Filter map[string]bool

// Allows reports whether the filter enables the model
func (f Filter) Allows(id string) bool {
	if f == nil {
		return true
	}
	return f[id]
}

// ModelRegistry is the read-only catalogue of backend models
type ModelRegistry struct {
	models map[string]models.ModelDescriptor
	order  []string
}

// NewModelRegistry validates descriptors and builds the registry
func NewModelRegistry(descs []models.ModelDescriptor) (*ModelRegistry, error) {
	r := &ModelRegistry{
		models: make(map[string]models.ModelDescriptor, len(descs)),
	}

	for i, d := range descs {
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" {
			return nil, fmt.Errorf("model at index %d has no id", i)
		}
		if _, ok := r.models[d.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateModel, d.ID)
		}
		if d.DisplayName == "" {
			d.DisplayName = d.ID
		}
		d.Capabilities = append([]string(nil), d.Capabilities...)
		if d.Priority != nil {
			p := *d.Priority
			d.Priority = &p
		}
		r.models[d.ID] = d
		r.order = append(r.order, d.ID)
	}

	sort.SliceStable(r.order, func(i, j int) bool {
		a, b := r.models[r.order[i]], r.models[r.order[j]]
		switch {
		case a.Priority != nil && b.Priority != nil && *a.Priority != *b.Priority:
			return *a.Priority < *b.Priority
		case a.Priority != nil && b.Priority == nil:
			return true
		case a.Priority == nil && b.Priority != nil:
			return false
		}
		return a.ID < b.ID
	})

	return r, nil
}

// List returns every model ordered by priority, then id
func (r *ModelRegistry) List() []models.ModelDescriptor {
	out := make([]models.ModelDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.models[id])
	}
	return out
}

// Get looks a model up by id. A miss means the model is unavailable.
func (r *ModelRegistry) Get(id string) (models.ModelDescriptor, bool) {
	d, ok := r.models[id]
	return d, ok
}

// Eligible returns the models that are enabled in the registry and by the filter
func (r *ModelRegistry) Eligible(filter Filter) []models.ModelDescriptor {
	var out []models.ModelDescriptor
	for _, d := range r.List() {
		if d.Enabled && filter.Allows(d.ID) {
			out = append(out, d)
		}
	}
	return out
}

// CheckUsable explains why a model cannot be used for a request, or returns nil
func (r *ModelRegistry) CheckUsable(id string, filter Filter) error {
	d, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	if !d.Enabled {
		return fmt.Errorf("%w: %s", ErrModelDisabled, id)
	}
	if !filter.Allows(id) {
		return fmt.Errorf("%w: %s", ErrModelFiltered, id)
	}
	return nil
}
