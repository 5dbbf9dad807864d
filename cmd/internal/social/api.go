package social

import (
	"log/slog"
	"net/http"
	"time"

	"ripple/cmd/internal/auth"
	"ripple/cmd/internal/httpx"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 << 10

// Handler exposes the user and friend REST surface.
type Handler struct {
	log   *slog.Logger
	svc   *Service
	store Store
}

// NewHandler constructs the social REST handler.
func NewHandler(log *slog.Logger, svc *Service, store Store) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, svc: svc, store: store}
}

// Register mounts the routes. The router is expected to already carry the
// auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/users/sync", h.handleSync)
	r.Get("/api/users/search", h.handleSearch)
	r.Get("/api/users/me", h.handleMe)

	r.Get("/api/friends/requests", h.handlePendingRequests)
	r.Post("/api/friends/request", h.handleSendRequest)
	r.Post("/api/friends/accept", h.handleAccept)
	r.Post("/api/friends/reject", h.handleReject)
}

type syncRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type meResponse struct {
	User    userResponse   `json:"user"`
	Friends []userResponse `json:"friends"`
}

type friendRequestBody struct {
	ReceiverID string `json:"receiver_id"`
}

type requestActionBody struct {
	RequestID string `json:"request_id"`
}

type requestResponse struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type pendingRequestResponse struct {
	Request requestResponse `json:"request"`
	Sender  userResponse    `json:"sender"`
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	var body syncRequest
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	u, err := h.svc.SyncProfile(r.Context(), UpsertUserInput{
		ID:          auth.UserID(r.Context()),
		Email:       body.Email,
		DisplayName: body.DisplayName,
		AvatarURL:   body.AvatarURL,
	})
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		httpx.WriteJSON(w, http.StatusOK, []userResponse{})
		return
	}

	users, err := h.store.SearchUsers(r.Context(), auth.UserID(r.Context()), query, 10)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	u, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	friends, err := h.store.FriendsOf(r.Context(), userID)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	resp := meResponse{User: toUserResponse(u), Friends: make([]userResponse, 0, len(friends))}
	for _, f := range friends {
		resp.Friends = append(resp.Friends, toUserResponse(f))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePendingRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := h.store.PendingRequestsFor(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	out := make([]pendingRequestResponse, 0, len(pending))
	for _, p := range pending {
		out = append(out, pendingRequestResponse{
			Request: toRequestResponse(p.Request),
			Sender:  toUserResponse(p.Sender),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleSendRequest(w http.ResponseWriter, r *http.Request) {
	var body friendRequestBody
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	req, err := h.svc.SendRequest(r.Context(), auth.UserID(r.Context()), body.ReceiverID)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	var body requestActionBody
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	req, err := h.svc.AcceptRequest(r.Context(), auth.UserID(r.Context()), body.RequestID)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	var body requestActionBody
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	req, err := h.svc.RejectRequest(r.Context(), auth.UserID(r.Context()), body.RequestID)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRequestResponse(req))
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		CreatedAt:   u.CreatedAt,
	}
}

func toRequestResponse(req FriendRequest) requestResponse {
	return requestResponse{
		ID:         req.ID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Status:     req.Status,
		CreatedAt:  req.CreatedAt,
	}
}
