package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Conference describes the conference instance: which countries take
// part, on which days presentations may be scheduled, which diplomatic
// positions exist, and the minimum separation between two presentation
// slots.
type Conference struct {
	CountryCodes         []string `yaml:"country_codes"`
	Dates                []string `yaml:"dates"`
	Positions            []string `yaml:"positions"`
	MinSeparationMinutes int      `yaml:"min_separation_minutes"`
}

// MinSeparation returns the slot separation as a duration.
func (c Conference) MinSeparation() time.Duration {
	return time.Duration(c.MinSeparationMinutes) * time.Minute
}

// DefaultConference returns the built-in conference descriptor.
func DefaultConference() Conference {
	return Conference{
		CountryCodes: []string{
			"ARG", "AUS", "BRA", "CAN", "CHE", "CHL", "CHN", "COL",
			"DEU", "EGY", "ESP", "FRA", "GBR", "IND", "IDN", "ITA",
			"JPN", "KEN", "KOR", "MEX", "NGA", "NLD", "NOR", "NZL",
			"PER", "PRT", "SWE", "TUR", "USA", "ZAF",
		},
		Dates:                []string{"2026-11-10", "2026-11-21"},
		Positions:            []string{"Head of State", "Minister of Foreign Affairs", "Minister of Environment"},
		MinSeparationMinutes: 15,
	}
}

// LoadConference reads a yaml descriptor from path, or returns the
// built-in descriptor when path is empty. Fields left empty in the file
// fall back to their defaults.
func LoadConference(path string) (Conference, error) {
	conf := DefaultConference()
	if path == "" {
		return conf, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Conference{}, fmt.Errorf("read conference file: %w", err)
	}

	var file Conference
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Conference{}, fmt.Errorf("parse conference file: %w", err)
	}

	if len(file.CountryCodes) > 0 {
		conf.CountryCodes = file.CountryCodes
	}
	if len(file.Dates) > 0 {
		conf.Dates = file.Dates
	}
	if len(file.Positions) > 0 {
		conf.Positions = file.Positions
	}
	if file.MinSeparationMinutes > 0 {
		conf.MinSeparationMinutes = file.MinSeparationMinutes
	}
	return conf, nil
}
