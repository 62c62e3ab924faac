package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	authservice "summit/internal/authority/service"
	"summit/internal/conference"
	"summit/internal/conference/handler"
	"summit/internal/directory"
	"summit/internal/kvstore"
	"summit/internal/roster"
	"summit/internal/roster/mocks"
	schedservice "summit/internal/schedule/service"
)

type HandlerSuite struct {
	suite.Suite
	server *httptest.Server
	client *mocks.MockClient
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	log := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	s.client = mocks.NewMockClient(gomock.NewController(s.T()))
	store := kvstore.NewMemory()

	seed := []directory.CountrySummary{
		{ISO3: "FRA", Name: "France", Region: "Europe"},
		{ISO3: "BRA", Name: "Brazil", Region: "Americas"},
	}
	data, err := json.Marshal(seed)
	s.Require().NoError(err)
	s.Require().NoError(store.Set(ctx, kvstore.KeyRoster, data))

	cache := roster.NewCache(s.client, store, []string{"FRA", "BRA"}, log)
	authorities, err := authservice.NewRegistry(ctx, store,
		[]string{"Head of State", "Minister of Foreign Affairs", "Minister of Environment"}, log)
	s.Require().NoError(err)
	schedules, err := schedservice.NewLedger(ctx, store,
		[]string{"2026-11-10", "2026-11-21"}, 15*time.Minute, log)
	s.Require().NoError(err)

	controller := conference.NewController(cache, authorities, schedules, log, nil)

	router := chi.NewRouter()
	handler.New(controller, log).Register(router)
	s.server = httptest.NewServer(router)
	s.T().Cleanup(s.server.Close)

	resp, err := http.Post(s.server.URL+"/roster/load", "application/json", nil)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
}

func (s *HandlerSuite) expectFrenchDetail() {
	s.client.EXPECT().FetchDetail(gomock.Any(), "FRA").Return(&directory.CountryDetail{
		CountrySummary: directory.CountrySummary{ISO3: "FRA", Name: "France", Region: "Europe"},
		Capital:        "Paris",
		TLD:            ".fr",
	}, nil).AnyTimes()
}

func (s *HandlerSuite) do(method, path string, body any) *http.Response {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *HandlerSuite) decode(resp *http.Response, out any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
}

func (s *HandlerSuite) registerChirac() {
	resp := s.do(http.MethodPost, "/authorities", conference.AuthorityCommand{
		ISO3:     "FRA",
		Position: "Head of State",
		FullName: "Jacques Chirac",
		Email:    "president@elysee.fr",
	})
	resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
}

func (s *HandlerSuite) TestCountries() {
	resp := s.do(http.MethodGet, "/countries", nil)
	var countries []directory.CountrySummary
	s.decode(resp, &countries)
	s.Len(countries, 2)
}

func (s *HandlerSuite) TestCountryDetail() {
	s.expectFrenchDetail()

	resp := s.do(http.MethodGet, "/countries/FRA", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	var detail directory.CountryDetail
	s.decode(resp, &detail)
	s.Equal("Paris", detail.Capital)
}

func (s *HandlerSuite) TestRegionToggleScopesCountries() {
	resp := s.do(http.MethodPost, "/regions/Europe/toggle", nil)
	var toggled struct {
		SelectedRegions []string `json:"selected_regions"`
	}
	s.decode(resp, &toggled)
	s.Equal([]string{"Europe"}, toggled.SelectedRegions)

	resp = s.do(http.MethodGet, "/countries", nil)
	var countries []directory.CountrySummary
	s.decode(resp, &countries)
	s.Require().Len(countries, 1)
	s.Equal("FRA", countries[0].ISO3)
}

func (s *HandlerSuite) TestAuthorityLifecycle() {
	s.expectFrenchDetail()
	s.registerChirac()

	// Duplicate registration is a 409.
	resp := s.do(http.MethodPost, "/authorities", conference.AuthorityCommand{
		ISO3:     "FRA",
		Position: "Head of State",
		FullName: "Someone Else",
		Email:    "else@elysee.fr",
	})
	var envelope map[string]string
	s.decode(resp, &envelope)
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("conflict", envelope["error"])

	// Update always overwrites.
	resp = s.do(http.MethodPut, "/authorities", conference.AuthorityCommand{
		ISO3:     "FRA",
		Position: "Head of State",
		FullName: "Nicolas Sarkozy",
		Email:    "president@elysee.fr",
	})
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, "/countries/FRA/authorities", nil)
	var authorities map[string]struct {
		FullName string `json:"full_name"`
	}
	s.decode(resp, &authorities)
	s.Equal("Nicolas Sarkozy", authorities["Head of State"].FullName)

	// Delete, then the position is free again.
	resp = s.do(http.MethodDelete, "/countries/FRA/authorities/"+url.PathEscape("Head of State"), nil)
	resp.Body.Close()
	s.Equal(http.StatusNoContent, resp.StatusCode)
	s.registerChirac()
}

func (s *HandlerSuite) TestAuthorityValidationFailures() {
	s.expectFrenchDetail()

	resp := s.do(http.MethodPost, "/authorities", conference.AuthorityCommand{
		ISO3:     "FRA",
		Position: "Head of State",
		FullName: "Chirac",
		Email:    "president@elysee.fr",
	})
	resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	resp = s.do(http.MethodPost, "/authorities", conference.AuthorityCommand{
		ISO3:     "FRA",
		Position: "Head of State",
		FullName: "Jacques Chirac",
		Email:    "president@elysee.com",
	})
	resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *HandlerSuite) TestScheduleLifecycle() {
	s.expectFrenchDetail()
	s.registerChirac()
	// Clear the post-registration country selection.
	resp := s.do(http.MethodPost, "/countries/FRA/select", nil)
	resp.Body.Close()

	book := func(clock string) *http.Response {
		return s.do(http.MethodPost, "/schedules", conference.ScheduleCommand{
			ISO3:     "FRA",
			Position: "Head of State",
			Date:     "2026-11-10",
			Time:     clock,
		})
	}

	resp = book("09:00")
	resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp = book("09:10")
	resp.Body.Close()
	s.Equal(http.StatusConflict, resp.StatusCode)

	resp = book("09:20")
	var booked struct {
		ID int64 `json:"id"`
	}
	s.decode(resp, &booked)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp = s.do(http.MethodGet, "/schedules", nil)
	var schedules []json.RawMessage
	s.decode(resp, &schedules)
	s.Len(schedules, 2)

	resp = s.do(http.MethodDelete, "/schedules/"+strconv.FormatInt(booked.ID, 10), nil)
	resp.Body.Close()
	s.Equal(http.StatusNoContent, resp.StatusCode)

	resp = s.do(http.MethodGet, "/schedules", nil)
	s.decode(resp, &schedules)
	s.Len(schedules, 1)
}

func (s *HandlerSuite) TestScheduleRejectsOffCalendarDate() {
	s.expectFrenchDetail()
	s.registerChirac()

	resp := s.do(http.MethodPost, "/schedules", conference.ScheduleCommand{
		ISO3:     "FRA",
		Position: "Head of State",
		Date:     "2026-12-25",
		Time:     "09:00",
	})
	resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *HandlerSuite) TestHealth() {
	resp := s.do(http.MethodGet, "/healthz", nil)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}
