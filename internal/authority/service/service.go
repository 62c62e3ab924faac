// Package service implements the authority registry: the
// country→position→authority map with its uniqueness invariant and
// snapshot persistence on every mutation.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"summit/internal/authority/models"
	"summit/internal/kvstore"
	dErrors "summit/pkg/domain-errors"
	"summit/pkg/platform/sentinel"
)

// Registry owns the CountryAuthorities map. All mutations persist the
// whole map synchronously; a failed write leaves the in-memory state
// untouched.
type Registry struct {
	store     kvstore.Store
	logger    *slog.Logger
	positions []string

	mu        sync.RWMutex
	byCountry models.CountryAuthorities
}

// NewRegistry loads the persisted snapshot once at construction; an
// absent snapshot starts an empty registry.
func NewRegistry(ctx context.Context, store kvstore.Store, positions []string, logger *slog.Logger) (*Registry, error) {
	r := &Registry{
		store:     store,
		logger:    logger,
		positions: positions,
		byCountry: make(models.CountryAuthorities),
	}

	data, err := store.Get(ctx, kvstore.KeyAuthorities)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return r, nil
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load authorities snapshot")
	}

	if err := json.Unmarshal(data, &r.byCountry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode authorities snapshot")
	}
	logger.InfoContext(ctx, "authorities loaded", "countries", len(r.byCountry))
	return r, nil
}

// Register inserts an authority at (iso3, position). An occupied
// position fails with CodeConflict and leaves state and store
// untouched.
func (r *Registry) Register(ctx context.Context, iso3, position string, a models.Authority) error {
	if err := r.checkPosition(position); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byCountry[iso3][position]; taken {
		return dErrors.New(dErrors.CodeConflict, "position already has a registered authority")
	}

	next := r.byCountry.Clone()
	if next[iso3] == nil {
		next[iso3] = make(map[string]models.Authority)
	}
	next[iso3][position] = a

	if err := r.persist(ctx, next); err != nil {
		return err
	}
	r.byCountry = next
	r.logger.InfoContext(ctx, "authority registered", "iso3", iso3, "position", position)
	return nil
}

// Update overwrites whatever is at (iso3, position), existing or not.
// This is the escape hatch for correcting a registration.
func (r *Registry) Update(ctx context.Context, iso3, position string, a models.Authority) error {
	if err := r.checkPosition(position); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.byCountry.Clone()
	if next[iso3] == nil {
		next[iso3] = make(map[string]models.Authority)
	}
	next[iso3][position] = a

	if err := r.persist(ctx, next); err != nil {
		return err
	}
	r.byCountry = next
	r.logger.InfoContext(ctx, "authority updated", "iso3", iso3, "position", position)
	return nil
}

// Delete removes the authority at (iso3, position). A missing key is a
// silent no-op. Removing a country's last position removes the country
// entry entirely.
func (r *Registry) Delete(ctx context.Context, iso3, position string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byCountry[iso3][position]; !ok {
		return nil
	}

	next := r.byCountry.Clone()
	delete(next[iso3], position)
	if len(next[iso3]) == 0 {
		delete(next, iso3)
	}

	if err := r.persist(ctx, next); err != nil {
		return err
	}
	r.byCountry = next
	r.logger.InfoContext(ctx, "authority deleted", "iso3", iso3, "position", position)
	return nil
}

// AuthoritiesFor returns the position→authority assignments of one
// country, empty when none are registered.
func (r *Registry) AuthoritiesFor(iso3 string) map[string]models.Authority {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]models.Authority, len(r.byCountry[iso3]))
	for position, authority := range r.byCountry[iso3] {
		out[position] = authority
	}
	return out
}

// All returns a deep copy of the full mapping.
func (r *Registry) All() models.CountryAuthorities {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byCountry.Clone()
}

// Positions returns the fixed position set for this conference.
func (r *Registry) Positions() []string {
	out := make([]string, len(r.positions))
	copy(out, r.positions)
	return out
}

func (r *Registry) checkPosition(position string) error {
	if !lo.Contains(r.positions, position) {
		return dErrors.New(dErrors.CodeBadRequest, "unknown position: "+position)
	}
	return nil
}

// persist writes the candidate map; callers commit it to memory only on
// success.
func (r *Registry) persist(ctx context.Context, next models.CountryAuthorities) error {
	data, err := json.Marshal(next)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode authorities snapshot")
	}
	if err := r.store.Set(ctx, kvstore.KeyAuthorities, data); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "persist authorities snapshot")
	}
	return nil
}
