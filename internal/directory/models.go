package directory

// CountrySummary is the roster entry for one participating country.
// Immutable once fetched; iso3 is the primary key for every
// country-scoped entity in the system.
type CountrySummary struct {
	ISO3   string `json:"iso3"`
	Name   string `json:"name"`
	Flag   string `json:"flag,omitempty"`
	Region string `json:"region"`
}

// CountryDetail extends the summary with on-demand fields. Optional
// fields are empty strings when the upstream payload omits them; the
// record shape is total, never partial.
type CountryDetail struct {
	CountrySummary
	Capital  string `json:"capital,omitempty"`
	Language string `json:"language,omitempty"`
	TLD      string `json:"tld,omitempty"`
}
