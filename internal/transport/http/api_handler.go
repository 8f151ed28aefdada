package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"scripture-quiz-service/internal/app"
	"scripture-quiz-service/internal/domain"
)

// APIHandler serves the per-user JSON endpoints around the quiz sessions.
type APIHandler struct {
	service *app.QuizService
	log     zerolog.Logger
}

func NewAPIHandler(service *app.QuizService, log zerolog.Logger) *APIHandler {
	return &APIHandler{service: service, log: log.With().Str("component", "api").Logger()}
}

// Routes mounts under /api/users/{userID}.
func (h *APIHandler) Routes(r chi.Router) {
	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/profile", h.profile)
		r.Get("/history", h.history)
		r.Get("/stats", h.stats)
		r.Get("/achievements", h.achievements)
		r.Get("/last-result", h.lastResult)
		r.Get("/settings", h.settings)
		r.Put("/settings", h.saveSettings)
		r.Get("/theme", h.theme)
		r.Put("/theme", h.saveTheme)
		r.Get("/export", h.export)
		r.Post("/import", h.importBundle)
		r.Post("/reset", h.reset)
		r.Delete("/", h.deleteUser)
	})
}

type themeBody struct {
	Theme domain.Theme `json:"theme"`
}

func (h *APIHandler) profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Profile(r.Context(), userID(r)))
}

func (h *APIHandler) history(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.History(r.Context(), userID(r)))
}

func (h *APIHandler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Stats(r.Context(), userID(r)))
}

func (h *APIHandler) achievements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Achievements(r.Context(), userID(r)))
}

func (h *APIHandler) lastResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.LastResult(r.Context(), userID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) settings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Settings(r.Context(), userID(r)))
}

func (h *APIHandler) saveSettings(w http.ResponseWriter, r *http.Request) {
	var cfg domain.SessionConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.service.SaveSettings(r.Context(), userID(r), cfg); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *APIHandler) theme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, themeBody{Theme: h.service.Theme(r.Context(), userID(r))})
}

func (h *APIHandler) saveTheme(w http.ResponseWriter, r *http.Request) {
	var body themeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !body.Theme.Valid() {
		writeError(w, http.StatusBadRequest, "unknown theme")
		return
	}
	if err := h.service.SetTheme(r.Context(), userID(r), body.Theme); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *APIHandler) export(w http.ResponseWriter, r *http.Request) {
	typ := app.ExportType(r.URL.Query().Get("type"))
	if typ == "" {
		typ = app.ExportAll
	}
	bundle, err := h.service.Export(r.Context(), userID(r), typ)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (h *APIHandler) importBundle(w http.ResponseWriter, r *http.Request) {
	var bundle app.Bundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.service.Import(r.Context(), userID(r), bundle); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context(), userID(r)); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), userID(r)); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps domain errors to status codes.
func (h *APIHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrStateNotFound), errors.Is(err, domain.ErrProgressNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidConfig), errors.Is(err, domain.ErrInvalidImport):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func userID(r *http.Request) string {
	return chi.URLParam(r, "userID")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}
