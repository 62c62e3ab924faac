// Package service implements the schedule ledger: the ordered sequence
// of presentation slots with the global minimum-separation invariant.
// The presentation stage is one shared resource, so separation applies
// across all countries, not per country.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"summit/internal/kvstore"
	"summit/internal/schedule/models"
	dErrors "summit/pkg/domain-errors"
	"summit/pkg/platform/sentinel"
)

// Ledger owns the slot sequence, kept sorted ascending by instant. All
// mutations persist the whole sequence synchronously; a failed write
// leaves the in-memory state untouched.
type Ledger struct {
	store        kvstore.Store
	logger       *slog.Logger
	allowedDates []string
	separation   time.Duration

	mu      sync.RWMutex
	entries []models.Schedule
	nextID  int64
}

// NewLedger loads the persisted snapshot once at construction; an
// absent snapshot starts an empty ledger. The next slot ID continues
// above the highest persisted one.
func NewLedger(ctx context.Context, store kvstore.Store, allowedDates []string, separation time.Duration, logger *slog.Logger) (*Ledger, error) {
	l := &Ledger{
		store:        store,
		logger:       logger,
		allowedDates: allowedDates,
		separation:   separation,
		nextID:       1,
	}

	data, err := store.Get(ctx, kvstore.KeySchedules)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return l, nil
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load schedules snapshot")
	}

	if err := json.Unmarshal(data, &l.entries); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode schedules snapshot")
	}
	sortByInstant(l.entries)
	for _, entry := range l.entries {
		if entry.ID >= l.nextID {
			l.nextID = entry.ID + 1
		}
	}
	logger.InfoContext(ctx, "schedules loaded", "slots", len(l.entries))
	return l, nil
}

// Conflicts reports whether a slot at (date, time) would violate the
// minimum separation against any existing slot. The exact collision
// conflicts; a gap of exactly the separation does not.
func (l *Ledger) Conflicts(date, clock string) bool {
	candidate, err := models.ParseInstant(date, clock)
	if err != nil {
		return false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.conflictsLocked(candidate)
}

func (l *Ledger) conflictsLocked(candidate time.Time) bool {
	for _, entry := range l.entries {
		existing, err := entry.Instant()
		if err != nil {
			continue
		}
		gap := candidate.Sub(existing)
		if gap < 0 {
			gap = -gap
		}
		if gap < l.separation {
			return true
		}
	}
	return false
}

// Register mints and inserts a slot. A date outside the conference-day
// whitelist or an unparsable time fails with CodeBadRequest; a
// separation violation fails with CodeConflict and inserts nothing. On
// success the sequence is re-sorted and persisted.
func (l *Ledger) Register(ctx context.Context, req models.Request) (*models.Schedule, error) {
	if !lo.Contains(l.allowedDates, req.Date) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "date is not a conference day: "+req.Date)
	}
	candidate, err := models.ParseInstant(req.Date, req.Time)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid slot time")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conflictsLocked(candidate) {
		return nil, dErrors.New(dErrors.CodeConflict, "slot is within the minimum separation of an existing presentation")
	}

	slot := models.Schedule{
		ID:            l.nextID,
		ISO3:          req.ISO3,
		CountryName:   req.CountryName,
		AuthorityName: req.AuthorityName,
		Position:      req.Position,
		Date:          req.Date,
		Time:          req.Time,
	}

	next := make([]models.Schedule, len(l.entries), len(l.entries)+1)
	copy(next, l.entries)
	next = append(next, slot)
	sortByInstant(next)

	if err := l.persist(ctx, next); err != nil {
		return nil, err
	}
	l.entries = next
	l.nextID++
	l.logger.InfoContext(ctx, "slot registered", "id", slot.ID, "iso3", slot.ISO3, "date", slot.Date, "time", slot.Time)
	return &slot, nil
}

// Delete removes the slot with the given ID and persists; a missing ID
// is a silent no-op.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	index := -1
	for i, entry := range l.entries {
		if entry.ID == id {
			index = i
			break
		}
	}
	if index == -1 {
		return nil
	}

	next := make([]models.Schedule, 0, len(l.entries)-1)
	next = append(next, l.entries[:index]...)
	next = append(next, l.entries[index+1:]...)

	if err := l.persist(ctx, next); err != nil {
		return err
	}
	l.entries = next
	l.logger.InfoContext(ctx, "slot deleted", "id", id)
	return nil
}

// VisibleFor projects the slots whose country is in the given set.
func (l *Ledger) VisibleFor(iso3Set []string) []models.Schedule {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.Filter(l.entries, func(entry models.Schedule, _ int) bool {
		return lo.Contains(iso3Set, entry.ISO3)
	})
}

// All returns the full sorted sequence.
func (l *Ledger) All() []models.Schedule {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Schedule, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) persist(ctx context.Context, next []models.Schedule) error {
	data, err := json.Marshal(next)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode schedules snapshot")
	}
	if err := l.store.Set(ctx, kvstore.KeySchedules, data); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "persist schedules snapshot")
	}
	return nil
}

func sortByInstant(entries []models.Schedule) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, errA := entries[i].Instant()
		b, errB := entries[j].Instant()
		if errA != nil || errB != nil {
			return entries[i].ID < entries[j].ID
		}
		if a.Equal(b) {
			return entries[i].ID < entries[j].ID
		}
		return a.Before(b)
	})
}
