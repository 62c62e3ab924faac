// Package conference exposes the command and query surface of the core
// as a single controller. All mutating commands run sequentially from
// one control flow; the directory fetches are the only suspending
// operations underneath.
package conference

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	authmodels "summit/internal/authority/models"
	authservice "summit/internal/authority/service"
	"summit/internal/conference/metrics"
	"summit/internal/directory"
	"summit/internal/roster"
	schedmodels "summit/internal/schedule/models"
	schedservice "summit/internal/schedule/service"
	dErrors "summit/pkg/domain-errors"
)

// AuthorityCommand is the input for authority registration and update.
type AuthorityCommand struct {
	ISO3                 string `json:"iso3"`
	Position             string `json:"position"`
	FullName             string `json:"full_name"`
	PoliticalAffiliation string `json:"political_affiliation,omitempty"`
	Email                string `json:"email"`
}

// ScheduleCommand is the input for slot registration. The authority and
// country names are resolved from the registry and roster.
type ScheduleCommand struct {
	ISO3     string `json:"iso3"`
	Position string `json:"position"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

// AuthorityView is the flattened projection consumed by list queries.
type AuthorityView struct {
	ISO3                 string `json:"iso3"`
	CountryName          string `json:"country_name"`
	Position             string `json:"position"`
	FullName             string `json:"full_name"`
	PoliticalAffiliation string `json:"political_affiliation,omitempty"`
	Email                string `json:"email"`
}

// Controller owns the roster cache, the two registries and the
// UI-session selection state, and notifies subscribers after every
// successful mutation.
type Controller struct {
	roster      *roster.Cache
	authorities *authservice.Registry
	schedules   *schedservice.Ledger
	logger      *slog.Logger
	metrics     *metrics.Metrics

	mu              sync.RWMutex
	selectedCountry string
	selectedRegions []string
	subscribers     map[int]func()
	nextSubscriber  int
}

func NewController(
	rosterCache *roster.Cache,
	authorities *authservice.Registry,
	schedules *schedservice.Ledger,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Controller {
	return &Controller{
		roster:      rosterCache,
		authorities: authorities,
		schedules:   schedules,
		logger:      logger,
		metrics:     m,
		subscribers: make(map[int]func()),
	}
}

// Subscribe registers a change notification callback and returns its
// unsubscribe function. Callbacks run synchronously after successful
// mutations; there is no implicit reactivity.
func (c *Controller) Subscribe(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubscriber
	c.nextSubscriber++
	c.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

func (c *Controller) notify() {
	c.mu.RLock()
	fns := make([]func(), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

// LoadRoster populates the roster cache (store first, then directory).
func (c *Controller) LoadRoster(ctx context.Context) ([]directory.CountrySummary, error) {
	start := time.Now()
	countries, err := c.roster.Load(ctx)
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.ObserveRosterLoad(start)
	}
	c.notify()
	return countries, nil
}

// FetchDetail returns the on-demand detail for one country, nil when
// the directory is unavailable (the error sits in the roster cache's
// last-error slot).
func (c *Controller) FetchDetail(ctx context.Context, iso3 string) *directory.CountryDetail {
	return c.roster.Detail(ctx, iso3)
}

// SelectCountry toggles the single-country drill-down: selecting the
// already-selected country (or passing an empty code) clears it.
func (c *Controller) SelectCountry(iso3 string) {
	c.mu.Lock()
	if iso3 == "" || iso3 == c.selectedCountry {
		c.selectedCountry = ""
	} else {
		c.selectedCountry = iso3
	}
	c.mu.Unlock()
	c.notify()
}

// ToggleRegion adds the region to the filter set if absent and removes
// it if present. An empty set means all regions.
func (c *Controller) ToggleRegion(region string) {
	c.mu.Lock()
	if lo.Contains(c.selectedRegions, region) {
		c.selectedRegions = lo.Without(c.selectedRegions, region)
	} else {
		c.selectedRegions = append(c.selectedRegions, region)
	}
	c.mu.Unlock()
	c.notify()
}

// SelectedCountry returns the current drill-down, empty when none.
func (c *Controller) SelectedCountry() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selectedCountry
}

// SelectedRegions returns the active region filter set.
func (c *Controller) SelectedRegions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.selectedRegions))
	copy(out, c.selectedRegions)
	return out
}

// VisibleCountries derives the currently relevant countries from the
// region filter.
func (c *Controller) VisibleCountries() []directory.CountrySummary {
	c.mu.RLock()
	regions := make([]string, len(c.selectedRegions))
	copy(regions, c.selectedRegions)
	c.mu.RUnlock()
	return c.roster.RegionFilter(regions)
}

// scopeCountries applies the drill-down precedence: the selected
// country when set, otherwise the region-filtered view.
func (c *Controller) scopeCountries() []directory.CountrySummary {
	selected := c.SelectedCountry()
	if selected == "" {
		return c.VisibleCountries()
	}
	return lo.Filter(c.roster.Countries(), func(country directory.CountrySummary, _ int) bool {
		return country.ISO3 == selected
	})
}

// VisibleAuthorities flattens the registry entries of the scoped
// countries.
func (c *Controller) VisibleAuthorities() []AuthorityView {
	views := make([]AuthorityView, 0)
	for _, country := range c.scopeCountries() {
		for position, authority := range c.authorities.AuthoritiesFor(country.ISO3) {
			views = append(views, AuthorityView{
				ISO3:                 country.ISO3,
				CountryName:          country.Name,
				Position:             position,
				FullName:             authority.FullName,
				PoliticalAffiliation: authority.PoliticalAffiliation,
				Email:                authority.Email,
			})
		}
	}
	return views
}

// AuthoritiesFor exposes the registry projection for one country.
func (c *Controller) AuthoritiesFor(iso3 string) map[string]authmodels.Authority {
	return c.authorities.AuthoritiesFor(iso3)
}

// VisibleSchedules projects the ledger onto the scoped countries.
func (c *Controller) VisibleSchedules() []schedmodels.Schedule {
	iso3Set := lo.Map(c.scopeCountries(), func(country directory.CountrySummary, _ int) string {
		return country.ISO3
	})
	return c.schedules.VisibleFor(iso3Set)
}

// RegisterAuthority runs the registration workflow: input shape check,
// TLD lookup through the directory, the domain validators, then the
// registry insert. On success the target country becomes the selected
// drill-down, mirroring the form flow this core was carved out of.
func (c *Controller) RegisterAuthority(ctx context.Context, cmd AuthorityCommand) error {
	if err := c.validateAuthority(ctx, cmd); err != nil {
		return err
	}

	err := c.authorities.Register(ctx, cmd.ISO3, cmd.Position, authmodels.Authority{
		FullName:             cmd.FullName,
		PoliticalAffiliation: cmd.PoliticalAffiliation,
		Email:                cmd.Email,
	})
	if err != nil {
		if c.metrics != nil && dErrors.HasCode(err, dErrors.CodeConflict) {
			c.metrics.DuplicateAuthorities.Inc()
		}
		return err
	}
	if c.metrics != nil {
		c.metrics.AuthoritiesRegistered.Inc()
	}

	c.mu.Lock()
	c.selectedCountry = cmd.ISO3
	c.mu.Unlock()
	c.notify()
	return nil
}

// UpdateAuthority validates like Register but overwrites
// unconditionally.
func (c *Controller) UpdateAuthority(ctx context.Context, cmd AuthorityCommand) error {
	if err := c.validateAuthority(ctx, cmd); err != nil {
		return err
	}

	err := c.authorities.Update(ctx, cmd.ISO3, cmd.Position, authmodels.Authority{
		FullName:             cmd.FullName,
		PoliticalAffiliation: cmd.PoliticalAffiliation,
		Email:                cmd.Email,
	})
	if err != nil {
		return err
	}
	c.notify()
	return nil
}

func (c *Controller) validateAuthority(ctx context.Context, cmd AuthorityCommand) error {
	a := authmodels.Authority{FullName: cmd.FullName, Email: cmd.Email}
	if err := authmodels.ValidateRegistration(cmd.ISO3, cmd.Position, a); err != nil {
		return err
	}
	if err := authmodels.ValidateFullName(cmd.FullName); err != nil {
		return err
	}

	detail := c.roster.Detail(ctx, cmd.ISO3)
	if detail == nil {
		return dErrors.New(dErrors.CodeUnavailable, "unable to validate country TLD")
	}
	return authmodels.ValidateEmailDomain(cmd.Email, detail.TLD)
}

// DeleteAuthority removes a registration; missing keys are a no-op.
func (c *Controller) DeleteAuthority(ctx context.Context, iso3, position string) error {
	if err := c.authorities.Delete(ctx, iso3, position); err != nil {
		return err
	}
	c.notify()
	return nil
}

// RegisterSchedule resolves the authority behind (iso3, position) and
// books a slot for it.
func (c *Controller) RegisterSchedule(ctx context.Context, cmd ScheduleCommand) (*schedmodels.Schedule, error) {
	authority, ok := c.authorities.AuthoritiesFor(cmd.ISO3)[cmd.Position]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "no authority registered for that country and position")
	}

	country, found := lo.Find(c.roster.Countries(), func(country directory.CountrySummary) bool {
		return country.ISO3 == cmd.ISO3
	})
	if !found {
		return nil, dErrors.New(dErrors.CodeNotFound, "country is not part of the conference roster")
	}

	slot, err := c.schedules.Register(ctx, schedmodels.Request{
		ISO3:          cmd.ISO3,
		CountryName:   country.Name,
		AuthorityName: authority.FullName,
		Position:      cmd.Position,
		Date:          cmd.Date,
		Time:          cmd.Time,
	})
	if err != nil {
		if c.metrics != nil && dErrors.HasCode(err, dErrors.CodeConflict) {
			c.metrics.ScheduleConflicts.Inc()
		}
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.SchedulesRegistered.Inc()
	}
	c.notify()
	return slot, nil
}

// DeleteSchedule removes a slot; a missing ID is a no-op.
func (c *Controller) DeleteSchedule(ctx context.Context, id int64) error {
	if err := c.schedules.Delete(ctx, id); err != nil {
		return err
	}
	c.notify()
	return nil
}

// Roster exposes the cache for read-only status queries.
func (c *Controller) Roster() *roster.Cache {
	return c.roster
}
