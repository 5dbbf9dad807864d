package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Identity verification. When TokenSecret is empty, bearer auth is
	// disabled and announced identities are trusted (dev mode only).
	TokenSecret string
	TokenIssuer string

	// Media host credentials for upload signing (all empty disables /api/media/sign).
	MediaCloudName string
	MediaAPIKey    string
	MediaAPISecret string
	MediaFolder    string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("RIPPLE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("RIPPLE_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("RIPPLE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("RIPPLE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("RIPPLE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("RIPPLE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("RIPPLE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("RIPPLE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("RIPPLE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("RIPPLE_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("RIPPLE_READINESS_REQUIRE_DB", false),

		TokenSecret: EnvString("RIPPLE_TOKEN_SECRET", ""),
		TokenIssuer: EnvString("RIPPLE_TOKEN_ISSUER", ""),

		MediaCloudName: EnvString("RIPPLE_MEDIA_CLOUD_NAME", ""),
		MediaAPIKey:    EnvString("RIPPLE_MEDIA_API_KEY", ""),
		MediaAPISecret: EnvString("RIPPLE_MEDIA_API_SECRET", ""),
		MediaFolder:    EnvString("RIPPLE_MEDIA_FOLDER", "ripple"),
	}
}
