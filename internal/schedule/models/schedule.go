// Package models holds the schedule ledger's domain types.
package models

import (
	"fmt"
	"time"
)

// instantLayout parses the date and wall-clock time of a slot into an
// absolute instant. Conflict checks compare instants, not
// times-of-day: slots on different conference days never conflict.
const instantLayout = "2006-01-02 15:04"

// Schedule is one presentation slot. IDs are unique and assigned
// monotonically by the ledger.
type Schedule struct {
	ID            int64  `json:"id"`
	ISO3          string `json:"iso3"`
	CountryName   string `json:"country_name"`
	AuthorityName string `json:"authority_name"`
	Position      string `json:"position"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

// Instant returns the absolute start instant of the slot.
func (s Schedule) Instant() (time.Time, error) {
	return ParseInstant(s.Date, s.Time)
}

// ParseInstant combines a conference date (YYYY-MM-DD) and wall-clock
// time (HH:MM) into an instant.
func ParseInstant(date, clock string) (time.Time, error) {
	instant, err := time.Parse(instantLayout, date+" "+clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot instant: %w", err)
	}
	return instant, nil
}

// Request carries the fields the ledger needs to mint a new slot; the
// ID is assigned on insertion.
type Request struct {
	ISO3          string `json:"iso3"`
	CountryName   string `json:"country_name"`
	AuthorityName string `json:"authority_name"`
	Position      string `json:"position"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}
