package calls

import (
	"log/slog"
	"net/http"
	"time"

	"ripple/cmd/internal/auth"
	"ripple/cmd/internal/httpx"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 16 << 10

// Handler exposes call history and explicit call logging over REST.
type Handler struct {
	log   *slog.Logger
	store Store
}

// NewHandler constructs the calls REST handler.
func NewHandler(log *slog.Logger, store Store) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, store: store}
}

// Register mounts the routes. The router is expected to already carry the
// auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/calls/history/{userID}", h.handleHistory)
	r.Post("/api/calls/log", h.handleLog)
}

type logRequest struct {
	CallerID   string `json:"caller_id"`
	ReceiverID string `json:"receiver_id"`
	CallType   string `json:"call_type"`
	Status     string `json:"status"`
}

type logResponse struct {
	ID         string     `json:"id"`
	CallerID   string     `json:"caller_id"`
	ReceiverID string     `json:"receiver_id"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// handleHistory returns the caller's call history, newest first.
// Callers may only read their own history.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if auth.UserID(r.Context()) != userID {
		httpx.WriteError(w, http.StatusForbidden, "unauthorized", "cannot read another user's call history")
		return
	}

	logs, err := h.store.HistoryFor(r.Context(), userID)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	out := make([]logResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, toLogResponse(l))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// handleLog appends a call log explicitly. The realtime relay writes most
// terminal outcomes; this endpoint covers client-side fallbacks.
func (h *Handler) handleLog(w http.ResponseWriter, r *http.Request) {
	var body logRequest
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	log, err := h.store.Append(r.Context(), AppendInput{
		CallerID:   body.CallerID,
		ReceiverID: body.ReceiverID,
		Kind:       body.CallType,
		Status:     body.Status,
	})
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toLogResponse(log))
}

func toLogResponse(l Log) logResponse {
	return logResponse{
		ID:         l.ID,
		CallerID:   l.CallerID,
		ReceiverID: l.ReceiverID,
		Kind:       l.Kind,
		Status:     l.Status,
		StartedAt:  l.StartedAt,
		EndedAt:    l.EndedAt,
	}
}
