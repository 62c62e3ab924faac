// Package roster owns the filtered country list for the conference. It
// loads from the persisted store when a snapshot exists and only then
// falls back to the directory service; the snapshot is never
// invalidated by freshness. Staleness is tolerated by design.
package roster

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"summit/internal/directory"
	"summit/internal/kvstore"
	dErrors "summit/pkg/domain-errors"
)

// Cache holds the roster and its load state.
type Cache struct {
	client directory.Client
	store  kvstore.Store
	codes  []string
	logger *slog.Logger

	flight singleflight.Group

	mu        sync.RWMutex
	countries []directory.CountrySummary
	loaded    bool
	loading   bool
	lastErr   error
}

func NewCache(client directory.Client, store kvstore.Store, codes []string, logger *slog.Logger) *Cache {
	return &Cache{
		client: client,
		store:  store,
		codes:  codes,
		logger: logger,
	}
}

// Load populates the roster. The persisted snapshot takes precedence
// over the network; a missing snapshot triggers one bulk fetch whose
// result is stored and persisted. Concurrent calls collapse into a
// single flight, and a fetch that completes after the cache was
// populated another way is discarded rather than overwriting newer
// state.
func (c *Cache) Load(ctx context.Context) ([]directory.CountrySummary, error) {
	c.mu.RLock()
	if c.loaded {
		defer c.mu.RUnlock()
		return c.snapshot(), nil
	}
	c.mu.RUnlock()

	result, err, _ := c.flight.Do("load", func() (any, error) {
		return c.load(ctx)
	})

	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return result.([]directory.CountrySummary), nil
}

func (c *Cache) load(ctx context.Context) ([]directory.CountrySummary, error) {
	c.setLoading(true)
	defer c.setLoading(false)

	if cached, ok := c.fromStore(ctx); ok {
		c.adopt(cached, false)
		c.logger.InfoContext(ctx, "roster loaded from store", "countries", len(cached))
		return cached, nil
	}

	fetched, err := c.client.FetchRoster(ctx, c.codes)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load roster")
	}

	if adopted := c.adopt(fetched, true); !adopted {
		// Populated while the fetch was in flight; keep the newer state.
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.snapshot(), nil
	}

	if data, err := json.Marshal(fetched); err == nil {
		if err := c.store.Set(ctx, kvstore.KeyRoster, data); err != nil {
			c.logger.WarnContext(ctx, "persist roster failed", "error", err)
		}
	}

	c.logger.InfoContext(ctx, "roster loaded from directory", "countries", len(fetched))
	return fetched, nil
}

func (c *Cache) fromStore(ctx context.Context) ([]directory.CountrySummary, bool) {
	data, err := c.store.Get(ctx, kvstore.KeyRoster)
	if err != nil {
		return nil, false
	}
	var cached []directory.CountrySummary
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.WarnContext(ctx, "discarding unreadable roster snapshot", "error", err)
		return nil, false
	}
	return cached, true
}

// adopt installs the countries unless the cache was already populated
// and checkFirst asks for a check-before-overwrite.
func (c *Cache) adopt(countries []directory.CountrySummary, checkFirst bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if checkFirst && c.loaded {
		return false
	}
	c.countries = countries
	c.loaded = true
	return true
}

// Detail fetches the on-demand detail record for one country. It never
// mutates roster state and returns nil on failure, recording the error
// in the last-error slot for the caller to surface.
func (c *Cache) Detail(ctx context.Context, iso3 string) *directory.CountryDetail {
	detail, err := c.client.FetchDetail(ctx, iso3)

	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	if err != nil {
		c.logger.WarnContext(ctx, "detail fetch failed", "iso3", iso3, "error", err)
		return nil
	}
	return detail
}

// RegionFilter is a pure projection: an empty region set returns the
// full roster, otherwise entries whose region is in the set.
func (c *Cache) RegionFilter(regions []string) []directory.CountrySummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(regions) == 0 {
		return c.snapshot()
	}
	return lo.Filter(c.countries, func(country directory.CountrySummary, _ int) bool {
		return lo.Contains(regions, country.Region)
	})
}

// Countries returns the full roster.
func (c *Cache) Countries() []directory.CountrySummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot()
}

// Loading reports whether a load is in flight.
func (c *Cache) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// LastError returns the most recent load or detail failure, nil after a
// success.
func (c *Cache) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// snapshot copies the countries slice; callers must hold at least a
// read lock.
func (c *Cache) snapshot() []directory.CountrySummary {
	out := make([]directory.CountrySummary, len(c.countries))
	copy(out, c.countries)
	return out
}

func (c *Cache) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}
