package models

import (
	"testing"

	"github.com/stretchr/testify/require"

	dErrors "summit/pkg/domain-errors"
)

func TestValidateFullName(t *testing.T) {
	require.NoError(t, ValidateFullName("Jacques Chirac"))
	require.NoError(t, ValidateFullName("Luiz Inácio Lula da Silva"))

	for _, name := range []string{"", "Madonna", "   ", "Prince "} {
		err := ValidateFullName(name)
		require.Error(t, err, "name %q", name)
		require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	}
}

func TestValidateEmailDomain(t *testing.T) {
	require.NoError(t, ValidateEmailDomain("president@elysee.fr", ".fr"))
	require.NoError(t, ValidateEmailDomain("PRESIDENT@ELYSEE.FR", ".fr"), "suffix match is case-insensitive")

	err := ValidateEmailDomain("president@elysee.com", ".fr")
	require.Error(t, err)
	require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	err = ValidateEmailDomain("president@elysee.fr", "")
	require.Error(t, err, "unknown TLD cannot be validated")
}

func TestValidateRegistration(t *testing.T) {
	valid := Authority{FullName: "Jacques Chirac", Email: "president@elysee.fr"}
	require.NoError(t, ValidateRegistration("FRA", "Head of State", valid))

	cases := []struct {
		name     string
		iso3     string
		position string
		a        Authority
	}{
		{"missing iso3", "", "Head of State", valid},
		{"iso3 too short", "FR", "Head of State", valid},
		{"iso3 not alphabetic", "F1A", "Head of State", valid},
		{"missing position", "FRA", "", valid},
		{"missing full name", "FRA", "Head of State", Authority{Email: "president@elysee.fr"}},
		{"missing email", "FRA", "Head of State", Authority{FullName: "Jacques Chirac"}},
		{"malformed email", "FRA", "Head of State", Authority{FullName: "Jacques Chirac", Email: "not-an-email"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRegistration(tc.iso3, tc.position, tc.a)
			require.Error(t, err)
			require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := CountryAuthorities{
		"FRA": {"Head of State": {FullName: "Jacques Chirac", Email: "president@elysee.fr"}},
	}

	clone := original.Clone()
	clone["FRA"]["Head of State"] = Authority{FullName: "Someone Else", Email: "other@elysee.fr"}
	clone["BRA"] = map[string]Authority{}

	require.Equal(t, "Jacques Chirac", original["FRA"]["Head of State"].FullName)
	require.NotContains(t, original, "BRA")
}
