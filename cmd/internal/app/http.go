package app

import (
	"net/http"
	"time"

	"ripple/cmd/internal/calls"
	"ripple/cmd/internal/chat"
	"ripple/cmd/internal/media"
	"ripple/cmd/internal/realtime"
	"ripple/cmd/internal/social"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func registerHTTP(
	r chi.Router,
	log Logger,
	cfg Config,
	dbPool *pgxpool.Pool,
	dbEnabled bool,
	ws *realtime.Gateway,
	authMW func(http.Handler) http.Handler,
	socialH *social.Handler,
	chatH *chat.Handler,
	callsH *calls.Handler,
	mediaH *media.Handler,
) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if cfg.ReadinessRequireDB && !dbEnabled {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if dbEnabled && dbPool != nil {
			if err := PingDB(req.Context(), dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/ws", ws.HandleWS)

	// REST surface behind identity middleware. The websocket path carries its
	// own token handshake and stays outside this group.
	r.Group(func(r chi.Router) {
		r.Use(authMW)
		socialH.Register(r)
		chatH.Register(r)
		callsH.Register(r)
		mediaH.Register(r)
	})
}
