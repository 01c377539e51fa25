// Package api serves content over HTTP from the session's service, so every
// request shares one cache for the lifetime of the process.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vietddude/noor/internal/content/resolver"
	"github.com/vietddude/noor/internal/content/service"
	"github.com/vietddude/noor/internal/core/errclass"
)

// Mux is where routes are registered; *http.ServeMux and the health server
// both satisfy it.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// Handler exposes the content service.
type Handler struct {
	service       *service.Service
	defaultMethod int
	log           *slog.Logger
}

// NewHandler creates a handler. defaultMethod applies to prayer requests
// without a method parameter.
func NewHandler(svc *service.Service, defaultMethod int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:       svc,
		defaultMethod: defaultMethod,
		log:           logger.With("component", "api"),
	}
}

// Register adds the content routes to mux.
func (h *Handler) Register(mux Mux) {
	mux.Handle("GET /prayer", http.HandlerFunc(h.handlePrayer))
	mux.Handle("GET /prayer/city", http.HandlerFunc(h.handlePrayerCity))
	mux.Handle("GET /chapter/{number}", http.HandlerFunc(h.handleChapter))
	mux.Handle("GET /commentary/{chapter}/{verse}", http.HandlerFunc(h.handleCommentary))
}

// Response is the body of every successful content reply.
type Response struct {
	Value    any             `json:"value"`
	Source   resolver.Source `json:"source"`
	Degraded bool            `json:"degraded"`
	Cause    *Cause          `json:"cause,omitempty"`
}

// Cause describes why content is degraded or unavailable.
type Cause struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func newCause(e *errclass.Error) *Cause {
	if e == nil {
		return nil
	}
	return &Cause{Kind: e.Kind.String(), Message: resolver.Message(e), Detail: e.Message}
}

func (h *Handler) handlePrayer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		h.badRequest(w, fmt.Errorf("lat: %w", err))
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		h.badRequest(w, fmt.Errorf("lng: %w", err))
		return
	}
	method, err := h.method(r)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	res, err := h.service.PrayerTimes(r.Context(), lat, lng, method)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.reply(w, res.Value, res.Source, res.Cause)
}

func (h *Handler) handlePrayerCity(w http.ResponseWriter, r *http.Request) {
	method, err := h.method(r)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	q := r.URL.Query()
	res, err := h.service.PrayerTimesByCity(r.Context(), q.Get("city"), q.Get("country"), method)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.reply(w, res.Value, res.Source, res.Cause)
}

func (h *Handler) handleChapter(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		h.badRequest(w, fmt.Errorf("chapter: %w", err))
		return
	}

	res, err := h.service.Chapter(r.Context(), number, r.URL.Query().Get("translation"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.reply(w, res.Value, res.Source, res.Cause)
}

func (h *Handler) handleCommentary(w http.ResponseWriter, r *http.Request) {
	chapter, err := strconv.Atoi(r.PathValue("chapter"))
	if err != nil {
		h.badRequest(w, fmt.Errorf("chapter: %w", err))
		return
	}
	verse, err := strconv.Atoi(r.PathValue("verse"))
	if err != nil {
		h.badRequest(w, fmt.Errorf("verse: %w", err))
		return
	}

	res, err := h.service.Commentary(r.Context(), chapter, verse)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.reply(w, res.Value, res.Source, res.Cause)
}

func (h *Handler) method(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("method")
	if raw == "" {
		return h.defaultMethod, nil
	}
	m, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("method: %w", err)
	}
	return m, nil
}

func (h *Handler) reply(w http.ResponseWriter, value any, source resolver.Source, cause *errclass.Error) {
	writeJSON(w, http.StatusOK, Response{
		Value:    value,
		Source:   source,
		Degraded: source != resolver.SourceNetwork,
		Cause:    newCause(cause),
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// Client went away.
		return
	}

	var ce *errclass.Error
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		h.badRequest(w, err)
	case errors.Is(err, service.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case errors.As(err, &ce):
		writeJSON(w, statusFor(ce.Kind), map[string]any{"error": err.Error(), "cause": newCause(ce)})
	default:
		h.log.Error("Request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func statusFor(kind errclass.Kind) int {
	switch kind {
	case errclass.KindNotFound:
		return http.StatusNotFound
	case errclass.KindNetwork:
		return http.StatusServiceUnavailable
	case errclass.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
