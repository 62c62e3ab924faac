package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"summit/internal/kvstore"
	"summit/internal/schedule/models"
	dErrors "summit/pkg/domain-errors"
)

var testDates = []string{"2026-11-10", "2026-11-21"}

type LedgerSuite struct {
	suite.Suite
	ledger *Ledger
	store  *kvstore.Memory
	ctx    context.Context
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = kvstore.NewMemory()

	ledger, err := NewLedger(s.ctx, s.store, testDates, 15*time.Minute, slog.New(slog.DiscardHandler))
	s.Require().NoError(err)
	s.ledger = ledger
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) request(date, clock string) models.Request {
	return models.Request{
		ISO3:          "FRA",
		CountryName:   "France",
		AuthorityName: "Jacques Chirac",
		Position:      "Head of State",
		Date:          date,
		Time:          clock,
	}
}

func (s *LedgerSuite) TestMinimumSeparation() {
	s.Run("first slot books", func() {
		slot, err := s.ledger.Register(s.ctx, s.request("2026-11-10", "09:00"))
		s.Require().NoError(err)
		s.Equal(int64(1), slot.ID)
	})

	s.Run("slot 10 minutes later conflicts", func() {
		_, err := s.ledger.Register(s.ctx, s.request("2026-11-10", "09:10"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Len(s.ledger.All(), 1, "conflicting slot must not be inserted")
	})

	s.Run("conflict applies across countries", func() {
		req := s.request("2026-11-10", "09:05")
		req.ISO3 = "BRA"
		req.CountryName = "Brazil"

		_, err := s.ledger.Register(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict), "the stage is a global resource")
	})

	s.Run("exact collision conflicts", func() {
		_, err := s.ledger.Register(s.ctx, s.request("2026-11-10", "09:00"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("slot 20 minutes later books", func() {
		_, err := s.ledger.Register(s.ctx, s.request("2026-11-10", "09:20"))
		s.Require().NoError(err)
	})

	s.Run("a gap of exactly the separation books", func() {
		_, err := s.ledger.Register(s.ctx, s.request("2026-11-10", "09:35"))
		s.Require().NoError(err)
	})

	s.Run("same clock time on another conference day books", func() {
		_, err := s.ledger.Register(s.ctx, s.request("2026-11-21", "09:00"))
		s.Require().NoError(err, "instants on different days never conflict")
	})
}

func (s *LedgerSuite) TestDateWhitelist() {
	_, err := s.ledger.Register(s.ctx, s.request("2026-11-11", "09:00"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.ledger.Register(s.ctx, s.request("2026-11-10", "late morning"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *LedgerSuite) TestLedgerStaysSorted() {
	for _, clock := range []string{"14:00", "09:00", "11:30"} {
		_, err := s.ledger.Register(s.ctx, s.request("2026-11-10", clock))
		s.Require().NoError(err)
	}
	_, err := s.ledger.Register(s.ctx, s.request("2026-11-21", "08:00"))
	s.Require().NoError(err)

	entries := s.ledger.All()
	s.Require().Len(entries, 4)
	for i := 1; i < len(entries); i++ {
		prev, err := entries[i-1].Instant()
		s.Require().NoError(err)
		curr, err := entries[i].Instant()
		s.Require().NoError(err)
		s.True(prev.Before(curr), "entries must be ascending by instant")
	}
}

func (s *LedgerSuite) TestIDsAreMonotonic() {
	first, err := s.ledger.Register(s.ctx, s.request("2026-11-10", "09:00"))
	s.Require().NoError(err)
	second, err := s.ledger.Register(s.ctx, s.request("2026-11-10", "10:00"))
	s.Require().NoError(err)
	s.Greater(second.ID, first.ID)

	// Deleting does not recycle IDs.
	s.Require().NoError(s.ledger.Delete(s.ctx, second.ID))
	third, err := s.ledger.Register(s.ctx, s.request("2026-11-10", "11:00"))
	s.Require().NoError(err)
	s.Greater(third.ID, second.ID)
}

func (s *LedgerSuite) TestDelete() {
	slot, err := s.ledger.Register(s.ctx, s.request("2026-11-10", "09:00"))
	s.Require().NoError(err)

	s.Run("removes the matching entry", func() {
		s.Require().NoError(s.ledger.Delete(s.ctx, slot.ID))
		s.Empty(s.ledger.All())
	})

	s.Run("missing id is a silent no-op", func() {
		s.Require().NoError(s.ledger.Delete(s.ctx, 9999))
	})

	s.Run("frees the separation window", func() {
		_, err := s.ledger.Register(s.ctx, s.request("2026-11-10", "09:05"))
		s.Require().NoError(err)
	})
}

func (s *LedgerSuite) TestVisibleFor() {
	_, err := s.ledger.Register(s.ctx, s.request("2026-11-10", "09:00"))
	s.Require().NoError(err)

	braReq := s.request("2026-11-10", "10:00")
	braReq.ISO3 = "BRA"
	braReq.CountryName = "Brazil"
	_, err = s.ledger.Register(s.ctx, braReq)
	s.Require().NoError(err)

	s.Len(s.ledger.VisibleFor([]string{"FRA", "BRA"}), 2)

	onlyFra := s.ledger.VisibleFor([]string{"FRA"})
	s.Require().Len(onlyFra, 1)
	s.Equal("FRA", onlyFra[0].ISO3)

	s.Empty(s.ledger.VisibleFor(nil))
}

func (s *LedgerSuite) TestPersistenceRoundTrip() {
	_, err := s.ledger.Register(s.ctx, s.request("2026-11-10", "09:00"))
	s.Require().NoError(err)
	_, err = s.ledger.Register(s.ctx, s.request("2026-11-21", "16:45"))
	s.Require().NoError(err)

	reloaded, err := NewLedger(s.ctx, s.store, testDates, 15*time.Minute, slog.New(slog.DiscardHandler))
	s.Require().NoError(err)
	s.Equal(s.ledger.All(), reloaded.All())

	// The reloaded ledger keeps minting above the persisted maximum.
	slot, err := reloaded.Register(s.ctx, s.request("2026-11-21", "10:00"))
	s.Require().NoError(err)
	s.Equal(int64(3), slot.ID)
}

func (s *LedgerSuite) TestFailedPersistLeavesStateUntouched() {
	failing := &failingStore{Memory: s.store}
	ledger, err := NewLedger(s.ctx, failing, testDates, 15*time.Minute, slog.New(slog.DiscardHandler))
	s.Require().NoError(err)
	failing.fail = true

	_, err = ledger.Register(s.ctx, s.request("2026-11-10", "09:00"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Empty(ledger.All())
}

type failingStore struct {
	*kvstore.Memory
	fail bool
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return context.DeadlineExceeded
	}
	return f.Memory.Set(ctx, key, value)
}
