// Package api exposes the review service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/leadnews/newsreview/pkg/newsreview"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error  string                   `json:"error"`
	Code   string                   `json:"code"`
	Result *newsreview.ReviewResult `json:"result,omitempty"`
}

// DecisionRequest is the request body for a manual decision
type DecisionRequest struct {
	Decision newsreview.Decision `json:"decision"`
	Reason   string              `json:"reason,omitempty"`
}

// RefreshResponse reports the active dictionary size
type RefreshResponse struct {
	Terms int `json:"terms"`
}

// ReviewHandler handles HTTP requests for draft review
type ReviewHandler struct {
	service newsreview.Service
	logger  *slog.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service newsreview.Service, logger *slog.Logger) *ReviewHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{service: service, logger: logger.With("component", "api")}
}

// Routes returns the routes mounted under /api/v1
func (h *ReviewHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/drafts", h.ListDrafts)
	r.Get("/drafts/{id}", h.GetDraft)
	r.Post("/drafts/{id}/review", h.ReviewDraft)
	r.Post("/drafts/{id}/decision", h.DecideDraft)

	r.Post("/dictionary/refresh", h.RefreshDictionary)

	return r
}

// Health reports liveness
func Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// ReviewDraft runs the automatic review path for one draft
func (h *ReviewHandler) ReviewDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}

	result, err := h.service.ReviewArticle(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, result)
		return
	}
	render.JSON(w, r, result)
}

// DecideDraft applies a moderator verdict
func (h *ReviewHandler) DecideDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "invalid request body")
		return
	}

	result, err := h.service.DecideManually(r.Context(), newsreview.ManualDecisionRequest{
		DraftID:  id,
		Decision: req.Decision,
		Reason:   req.Reason,
	})
	if err != nil {
		h.writeError(w, r, err, result)
		return
	}
	render.JSON(w, r, result)
}

// GetDraft returns one draft with display URLs
func (h *ReviewHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}

	details, err := h.service.GetDraftDetails(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	render.JSON(w, r, details)
}

// ListDrafts lists drafts matching the query parameters
// status (repeatable or comma separated), title, user_id, limit, offset.
func (h *ReviewHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	drafts, err := h.service.ListDrafts(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	render.JSON(w, r, drafts)
}

// RefreshDictionary reloads the sensitive word dictionary
func (h *ReviewHandler) RefreshDictionary(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.RefreshDictionary(r.Context())
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	render.JSON(w, r, RefreshResponse{Terms: n})
}

func parseFilter(r *http.Request) (newsreview.DraftFilter, error) {
	q := r.URL.Query()
	filter := newsreview.DraftFilter{Title: q.Get("title")}

	for _, raw := range q["status"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.ParseInt(part, 10, 16)
			if err != nil {
				return filter, errors.New("invalid status: " + part)
			}
			filter.Statuses = append(filter.Statuses, newsreview.Status(n))
		}
	}

	ints := []struct {
		name string
		dst  func(int64)
	}{
		{"user_id", func(v int64) { filter.UserID = v }},
		{"limit", func(v int64) { filter.Limit = int(v) }},
		{"offset", func(v int64) { filter.Offset = int(v) }},
	}
	for _, p := range ints {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return filter, errors.New("invalid " + p.name + ": " + raw)
		}
		p.dst(v)
	}
	return filter, nil
}

func (h *ReviewHandler) draftID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(w, r, "invalid draft id: "+raw)
		return 0, false
	}
	return id, true
}

func (h *ReviewHandler) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: msg, Code: "bad_request"})
}

func (h *ReviewHandler) writeError(w http.ResponseWriter, r *http.Request, err error, result *newsreview.ReviewResult) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error(), Code: code, Result: result})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, newsreview.ErrPublicationFailed):
		return http.StatusBadGateway, "publication_failed"
	case errors.Is(err, newsreview.ErrDraftNotFound), errors.Is(err, newsreview.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, newsreview.ErrInvalidDecision):
		return http.StatusUnprocessableEntity, "invalid_decision"
	case errors.Is(err, newsreview.ErrMalformedBody):
		return http.StatusUnprocessableEntity, "malformed_body"
	case errors.Is(err, newsreview.ErrInvalidStatus):
		return http.StatusConflict, "invalid_status"
	case errors.Is(err, newsreview.ErrDictionaryUnavailable):
		return http.StatusServiceUnavailable, "dictionary_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
