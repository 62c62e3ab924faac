// Package models holds the authority registry's domain types.
//
// Invariants:
//   - At most one Authority per (iso3, position); a duplicate
//     registration fails without mutating state.
//   - CountryAuthorities never holds empty placeholder maps: deleting a
//     country's last position removes the country entry entirely.
package models

import (
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "summit/pkg/domain-errors"
)

// Authority is a diplomatic authority registered for one country and
// position.
type Authority struct {
	FullName             string `json:"full_name"`
	PoliticalAffiliation string `json:"political_affiliation,omitempty"`
	Email                string `json:"email"`
}

// CountryAuthorities maps iso3 to the position→authority assignments of
// that country.
type CountryAuthorities map[string]map[string]Authority

// Clone deep-copies the mapping so snapshots can be mutated safely.
func (c CountryAuthorities) Clone() CountryAuthorities {
	out := make(CountryAuthorities, len(c))
	for iso3, positions := range c {
		inner := make(map[string]Authority, len(positions))
		for position, authority := range positions {
			inner[position] = authority
		}
		out[iso3] = inner
	}
	return out
}

var validate = validator.New()

// registration is the validated input shape for register/update calls.
type registration struct {
	ISO3     string `validate:"required,len=3,alpha"`
	Position string `validate:"required"`
	FullName string `validate:"required"`
	Email    string `validate:"required,email"`
}

// ValidateRegistration checks the input shape: required fields, iso3
// format and a syntactically valid email.
func ValidateRegistration(iso3, position string, a Authority) error {
	input := registration{ISO3: iso3, Position: position, FullName: a.FullName, Email: a.Email}
	if err := validate.Struct(input); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid registration")
	}
	return nil
}

// ValidateFullName requires at least two space-separated tokens.
func ValidateFullName(name string) error {
	if len(strings.Fields(name)) < 2 {
		return dErrors.New(dErrors.CodeBadRequest, "full name must contain at least two words")
	}
	return nil
}

// ValidateEmailDomain requires the email to end with the country's TLD
// (case-insensitive). An unknown TLD cannot be validated and is
// rejected.
func ValidateEmailDomain(email, tld string) error {
	if tld == "" {
		return dErrors.New(dErrors.CodeBadRequest, "unable to validate country TLD")
	}
	if !strings.HasSuffix(strings.ToLower(email), strings.ToLower(tld)) {
		return dErrors.New(dErrors.CodeBadRequest, "email must end with "+tld)
	}
	return nil
}
