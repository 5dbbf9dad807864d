// Package app wires the ripple server runtime: config, logging, HTTP routes,
// persistence, and the realtime gateway.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ripple/cmd/internal/auth"
	"ripple/cmd/internal/calls"
	"ripple/cmd/internal/chat"
	"ripple/cmd/internal/media"
	"ripple/cmd/internal/realtime"
	"ripple/cmd/internal/social"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

// App is the ripple server runtime: it owns HTTP server wiring and realtime
// gateway dependencies.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	ws     *realtime.Gateway
	authMW func(http.Handler) http.Handler

	socialH *social.Handler
	chatH   *chat.Handler
	callsH  *calls.Handler
	mediaH  *media.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	st, stores, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	registry := realtime.NewRegistry(log)
	router := realtime.NewRouter(log, registry, stores.social)

	svc, err := social.NewService(log, stores.social, router)
	if err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}

	// Event handlers register themselves on the router.
	realtime.NewCallTracker(log, router, stores.calls)
	realtime.NewChatDelivery(log, router, stores.chat)

	var verifier auth.Verifier
	var authMW func(http.Handler) http.Handler
	if cfg.TokenSecret != "" {
		opts := []auth.JWTOption{}
		if cfg.TokenIssuer != "" {
			opts = append(opts, auth.WithIssuer(cfg.TokenIssuer))
		}
		v, err := auth.NewJWTVerifier(cfg.TokenSecret, opts...)
		if err != nil {
			_ = st.Close(context.Background())
			return nil, err
		}
		verifier = v
		authMW = auth.RequireAuth(v)
	} else {
		log.Warn("auth.disabled.dev_mode")
		authMW = auth.TrustHeader()
	}

	ws := realtime.NewGateway(log, router, verifier)

	var signer *media.Signer
	if cfg.MediaCloudName != "" && cfg.MediaAPIKey != "" && cfg.MediaAPISecret != "" {
		signer, err = media.NewSigner(cfg.MediaCloudName, cfg.MediaAPIKey, cfg.MediaAPISecret, cfg.MediaFolder)
		if err != nil {
			_ = st.Close(context.Background())
			return nil, err
		}
	} else {
		log.Warn("media.signing.disabled")
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    stores.pool,
		dbEnabled: stores.pool != nil,
		ws:        ws,
		authMW:    authMW,
		socialH:   social.NewHandler(log, svc, stores.social),
		chatH:     chat.NewHandler(log, stores.chat),
		callsH:    calls.NewHandler(log, stores.calls),
		mediaH:    media.NewHandler(log, signer),
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	r := chi.NewRouter()

	registerHTTP(r, a.log, a.cfg, a.dbPool, a.dbEnabled, a.ws, a.authMW,
		a.socialH, a.chatH, a.callsH, a.mediaH)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(r, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// storeSet bundles the per-domain stores built in a single mode decision.
type storeSet struct {
	pool   *pgxpool.Pool
	social social.Store
	chat   chat.Store
	calls  calls.Store
}

// newStores decides between Postgres-backed persistence and in-memory dev
// stores for the whole app at once. Mixed modes are not supported.
func newStores(ctx context.Context, cfg Config, log Logger) (Store, storeSet, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nopStore{}, storeSet{
			social: social.NewInMemoryStore(),
			chat:   chat.NewInMemoryStore(),
			calls:  calls.NewInMemoryStore(),
		}, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, storeSet{}, err
	}

	log.Info("db.enabled.postgres_store")

	// Ownership model:
	// - app owns pool lifecycle
	// - store Close() methods are no-ops
	socialStore, err := social.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, storeSet{}, err
	}
	chatStore, err := chat.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, storeSet{}, err
	}
	callStore, err := calls.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, storeSet{}, err
	}

	set := storeSet{
		pool:   pool,
		social: socialStore,
		chat:   chatStore,
		calls:  callStore,
	}
	return dbStore{set: set}, set, nil
}

type dbStore struct {
	set storeSet
}

func (s dbStore) Close(_ context.Context) error {
	_ = s.set.social.Close()
	_ = s.set.chat.Close()
	_ = s.set.calls.Close()
	if s.set.pool != nil {
		s.set.pool.Close()
	}
	return nil
}
