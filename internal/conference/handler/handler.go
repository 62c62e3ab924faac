// Package handler is the thin HTTP layer over the conference
// controller. It delegates to the controller without embedding business
// logic so transport concerns remain isolated.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"summit/internal/conference"
	"summit/internal/platform/middleware"
	dErrors "summit/pkg/domain-errors"
)

// Handler serves the conference command surface.
type Handler struct {
	controller *conference.Controller
	logger     *slog.Logger
}

func New(controller *conference.Controller, logger *slog.Logger) *Handler {
	return &Handler{controller: controller, logger: logger}
}

// Register mounts the conference routes with the platform middleware
// stack.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.ContentTypeJSON)

	router.Post("/roster/load", h.handleLoadRoster)
	router.Get("/countries", h.handleVisibleCountries)
	router.Get("/countries/{iso3}", h.handleCountryDetail)
	router.Post("/countries/{iso3}/select", h.handleSelectCountry)
	router.Post("/regions/{region}/toggle", h.handleToggleRegion)

	router.Get("/authorities", h.handleVisibleAuthorities)
	router.Get("/countries/{iso3}/authorities", h.handleAuthoritiesFor)
	router.Post("/authorities", h.handleRegisterAuthority)
	router.Put("/authorities", h.handleUpdateAuthority)
	router.Delete("/countries/{iso3}/authorities/{position}", h.handleDeleteAuthority)

	router.Get("/schedules", h.handleVisibleSchedules)
	router.Post("/schedules", h.handleRegisterSchedule)
	router.Delete("/schedules/{id}", h.handleDeleteSchedule)

	router.Get("/healthz", h.handleHealth)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Mount("/", router)
}

func (h *Handler) handleLoadRoster(w http.ResponseWriter, r *http.Request) {
	countries, err := h.controller.LoadRoster(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, countries)
}

func (h *Handler) handleVisibleCountries(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.VisibleCountries())
}

func (h *Handler) handleCountryDetail(w http.ResponseWriter, r *http.Request) {
	iso3 := chi.URLParam(r, "iso3")
	detail := h.controller.FetchDetail(r.Context(), iso3)
	if detail == nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeUnavailable, "country detail is unavailable"))
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleSelectCountry(w http.ResponseWriter, r *http.Request) {
	h.controller.SelectCountry(chi.URLParam(r, "iso3"))
	h.writeJSON(w, http.StatusOK, map[string]string{
		"selected_country": h.controller.SelectedCountry(),
	})
}

func (h *Handler) handleToggleRegion(w http.ResponseWriter, r *http.Request) {
	h.controller.ToggleRegion(chi.URLParam(r, "region"))
	h.writeJSON(w, http.StatusOK, map[string][]string{
		"selected_regions": h.controller.SelectedRegions(),
	})
}

func (h *Handler) handleVisibleAuthorities(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.VisibleAuthorities())
}

func (h *Handler) handleAuthoritiesFor(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.AuthoritiesFor(chi.URLParam(r, "iso3")))
}

func (h *Handler) handleRegisterAuthority(w http.ResponseWriter, r *http.Request) {
	var cmd conference.AuthorityCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.controller.RegisterAuthority(r.Context(), cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, cmd)
}

func (h *Handler) handleUpdateAuthority(w http.ResponseWriter, r *http.Request) {
	var cmd conference.AuthorityCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.controller.UpdateAuthority(r.Context(), cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cmd)
}

func (h *Handler) handleDeleteAuthority(w http.ResponseWriter, r *http.Request) {
	iso3 := chi.URLParam(r, "iso3")
	// Positions contain spaces, and chi leaves path escapes in place.
	position, err := url.PathUnescape(chi.URLParam(r, "position"))
	if err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid position"))
		return
	}
	if err := h.controller.DeleteAuthority(r.Context(), iso3, position); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleVisibleSchedules(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.VisibleSchedules())
}

func (h *Handler) handleRegisterSchedule(w http.ResponseWriter, r *http.Request) {
	var cmd conference.ScheduleCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	slot, err := h.controller.RegisterSchedule(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, slot)
}

func (h *Handler) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid slot id"))
		return
	}
	if err := h.controller.DeleteSchedule(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	cache := h.controller.Roster()
	body := map[string]any{
		"status":         "ok",
		"roster_size":    len(cache.Countries()),
		"roster_loading": cache.Loading(),
	}
	if err := cache.LastError(); err != nil {
		body["last_error"] = err.Error()
	}
	h.writeJSON(w, http.StatusOK, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

// writeError centralizes domain error translation to HTTP responses so
// every handler produces the same JSON error envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   string(code),
		"message": err.Error(),
	})
}
