package studio

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/walljourney/mindset/internal/ai"
	"github.com/walljourney/mindset/internal/compositor"
	"github.com/walljourney/mindset/internal/logger"
	"github.com/walljourney/mindset/internal/store"
)

const (
	// Compose and share bodies may carry a base64 image.
	maxBodyBytes = 40 << 20

	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type narrativeRequest struct {
	Quote string `json:"quote"`
	Mood  string `json:"mood"`
}

type visualRequest struct {
	Takeaway  string `json:"takeaway"`
	Mood      string `json:"mood"`
	HistoryID string `json:"historyId"`
}

type composeRequest struct {
	ImageURL    string `json:"imageUrl"`
	OverlayText string `json:"overlayText"`
}

// Handler serves the studio API.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers every endpoint and wraps them with request ids.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/narrative", h.handleNarrative)
	mux.HandleFunc("POST /api/visual", h.handleVisual)
	mux.HandleFunc("POST /api/compose", h.handleCompose)
	mux.HandleFunc("POST /api/share", h.handleShare)
	mux.HandleFunc("GET /api/history", h.handleHistory)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return withRequestID(mux)
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := logger.WithRequestID(r.Context(), id)
		logger.Debug(ctx, "Request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) handleNarrative(w http.ResponseWriter, r *http.Request) {
	var req narrativeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Narrative(r.Context(), req.Quote, req.Mood)
	if err != nil {
		h.fail(w, r, "Narrative generation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleVisual(w http.ResponseWriter, r *http.Request) {
	var req visualRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	imageURL, err := h.svc.Visual(r.Context(), req.Takeaway, req.Mood, req.HistoryID)
	if err != nil {
		h.fail(w, r, "Visual generation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"imageUrl": imageURL})
}

func (h *Handler) handleCompose(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Compose(r.Context(), req.ImageURL, req.OverlayText)
	if err != nil {
		h.fail(w, r, "Compose failed", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.PNG)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.PNG); err != nil {
		logger.Warn(r.Context(), "Failed to write image", "error", err)
	}
}

func (h *Handler) handleShare(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Share(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Share failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	items, err := h.svc.History(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "History lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Error(r.Context(), msg, "error", err, "status", code)
	} else {
		logger.Warn(r.Context(), msg, "error", err, "status", code)
	}
	writeError(w, code, err.Error())
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ai.ErrEmptyQuote):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, compositor.ErrDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ai.ErrNoImage):
		return http.StatusBadGateway
	case errors.Is(err, ErrSharingDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Warn(r.Context(), "Bad request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
