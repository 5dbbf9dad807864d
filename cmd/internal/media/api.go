package media

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ripple/cmd/internal/httpx"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the upload-signature endpoint.
type Handler struct {
	log    *slog.Logger
	signer *Signer
}

// NewHandler constructs the media REST handler. signer may be nil, in which
// case the endpoint responds 503 (media host not configured).
func NewHandler(log *slog.Logger, signer *Signer) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, signer: signer}
}

// Register mounts the routes. The router is expected to already carry the
// auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/media/sign", h.handleSign)
}

type signResponse struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	Folder    string `json:"folder"`
	CloudName string `json:"cloud_name"`
	APIKey    string `json:"api_key"`
}

func (h *Handler) handleSign(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "unconfigured", "media host not configured")
		return
	}

	ts := time.Now().Unix()
	sig := h.signer.Sign(map[string]string{
		"timestamp": strconv.FormatInt(ts, 10),
		"folder":    h.signer.folder,
	})

	httpx.WriteJSON(w, http.StatusOK, signResponse{
		Signature: sig,
		Timestamp: ts,
		Folder:    h.signer.folder,
		CloudName: h.signer.cloudName,
		APIKey:    h.signer.apiKey,
	})
}
