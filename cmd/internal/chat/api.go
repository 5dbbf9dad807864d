package chat

import (
	"log/slog"
	"net/http"
	"time"

	"ripple/cmd/internal/auth"
	"ripple/cmd/internal/httpx"

	"github.com/go-chi/chi/v5"
)

// Handler exposes conversation history over REST.
type Handler struct {
	log   *slog.Logger
	store Store
}

// NewHandler constructs the chat REST handler.
func NewHandler(log *slog.Logger, store Store) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, store: store}
}

// Register mounts the routes. The router is expected to already carry the
// auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/chat/{otherUserID}", h.handleHistory)
}

type messageResponse struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	Kind       string    `json:"kind"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// handleHistory returns both directions of the conversation in creation order.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	other := chi.URLParam(r, "otherUserID")
	if other == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "missing other user id")
		return
	}

	msgs, err := h.store.History(r.Context(), auth.UserID(r.Context()), other)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{
			ID:         m.ID,
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Content:    m.Content,
			Kind:       m.Kind,
			IsRead:     m.IsRead,
			CreatedAt:  m.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
