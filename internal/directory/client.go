//go:generate go run go.uber.org/mock/mockgen -source=client.go -destination=../roster/mocks/mock_directory.go -package=mocks

// Package directory wraps the external country-directory HTTP service.
// It exposes two operations: a bulk roster fetch and a single-country
// detail fetch. Failures surface as CodeUnavailable domain errors and
// are never retried here; recovery is the caller's concern.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	dErrors "summit/pkg/domain-errors"
)

var fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "summit_directory_fetch_duration_seconds",
	Help:    "Duration of directory service fetches",
	Buckets: prometheus.DefBuckets,
}, []string{"operation"})

// Client is the directory service contract consumed by the roster
// cache.
type Client interface {
	FetchRoster(ctx context.Context, codes []string) ([]CountrySummary, error)
	FetchDetail(ctx context.Context, iso3 string) (*CountryDetail, error)
}

// countryPayload mirrors the slice of upstream fields we consume.
// Everything beyond name/cca3 is optional in source data.
type countryPayload struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	Flags struct {
		PNG string `json:"png"`
	} `json:"flags"`
	CCA3      string            `json:"cca3"`
	Region    string            `json:"region"`
	Capital   []string          `json:"capital"`
	Languages map[string]string `json:"languages"`
	TLD       []string          `json:"tld"`
}

// HTTPClient talks to a restcountries-shaped directory service.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		tracer:  otel.Tracer("summit/directory"),
	}
}

// FetchRoster fetches the summaries for the given iso3 codes in one
// bulk call.
func (c *HTTPClient) FetchRoster(ctx context.Context, codes []string) ([]CountrySummary, error) {
	ctx, span := c.tracer.Start(ctx, "directory.FetchRoster",
		trace.WithAttributes(attribute.Int("directory.codes", len(codes))))
	defer span.End()
	timer := prometheus.NewTimer(fetchDuration.WithLabelValues("roster"))
	defer timer.ObserveDuration()

	endpoint := fmt.Sprintf("%s/alpha?codes=%s", c.baseURL, url.QueryEscape(strings.Join(codes, ",")))
	payloads, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	summaries := make([]CountrySummary, 0, len(payloads))
	for _, p := range payloads {
		summaries = append(summaries, p.summary())
	}

	c.logger.InfoContext(ctx, "roster fetched", "countries", len(summaries))
	return summaries, nil
}

// FetchDetail fetches the detail record for a single country. Optional
// fields missing upstream come back as empty strings.
func (c *HTTPClient) FetchDetail(ctx context.Context, iso3 string) (*CountryDetail, error) {
	ctx, span := c.tracer.Start(ctx, "directory.FetchDetail",
		trace.WithAttributes(attribute.String("directory.iso3", iso3)))
	defer span.End()
	timer := prometheus.NewTimer(fetchDuration.WithLabelValues("detail"))
	defer timer.ObserveDuration()

	endpoint := fmt.Sprintf("%s/alpha/%s", c.baseURL, url.PathEscape(iso3))
	payloads, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, dErrors.New(dErrors.CodeUnavailable, "directory returned an empty payload")
	}

	detail := payloads[0].detail()
	return &detail, nil
}

func (c *HTTPClient) fetch(ctx context.Context, endpoint string) ([]countryPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build directory request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "directory request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, dErrors.New(dErrors.CodeUnavailable,
			fmt.Sprintf("directory responded with status %d", resp.StatusCode))
	}

	var payloads []countryPayload
	if err := json.NewDecoder(resp.Body).Decode(&payloads); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "decode directory response")
	}
	return payloads, nil
}

func (p countryPayload) summary() CountrySummary {
	return CountrySummary{
		ISO3:   p.CCA3,
		Name:   p.Name.Common,
		Flag:   p.Flags.PNG,
		Region: p.Region,
	}
}

func (p countryPayload) detail() CountryDetail {
	d := CountryDetail{CountrySummary: p.summary()}
	if len(p.Capital) > 0 {
		d.Capital = p.Capital[0]
	}
	if len(p.TLD) > 0 {
		d.TLD = p.TLD[0]
	}
	// Pick the first language in sorted key order so repeated fetches
	// are deterministic.
	if len(p.Languages) > 0 {
		keys := make([]string, 0, len(p.Languages))
		for k := range p.Languages {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d.Language = p.Languages[keys[0]]
	}
	return d
}
