package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the blog API.
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	MinIO     MinIOConfig
	Identity  IdentityConfig
	Upload    UploadConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Database      string
	SSLMode       string
	MigrationsDir string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries object-store connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// IdentityConfig groups settings for the external identity provider.
// Tokens are checked locally against PublicKeyPEM when provided, falling
// back to the provider's remote verification endpoint.
type IdentityConfig struct {
	PublicKeyPEM    string
	VerifyURL       string
	AuthorizedParty string
	AdminSubject    string
	RemoteTimeout   time.Duration
}

// UploadConfig bounds the asset ingest pipeline.
type UploadConfig struct {
	MaxUploadBytes int64
	MaxStoredBytes int64
	MinQuality     int
	MaxQuality     int
	Workers        int
	PresignTTL     time.Duration
	HTMLFetchBase  string
	ProxyTimeout   time.Duration
}

// CORSConfig lists the origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig bounds per-client request rates.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("BLOG_API_HOST", "0.0.0.0"),
			Port:         getInt("BLOG_API_PORT", 8080),
			ReadTimeout:  getDuration("BLOG_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("BLOG_API_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("BLOG_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:          getString("POSTGRES_HOST", "localhost"),
			Port:          getInt("POSTGRES_PORT", 5432),
			User:          getString("POSTGRES_USER", "blog_app"),
			Password:      getString("POSTGRES_PASSWORD", "change-me"),
			Database:      getString("POSTGRES_DB", "blogdb"),
			SSLMode:       strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
			MigrationsDir: getString("POSTGRES_MIGRATIONS_DIR", "migrations"),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "blog"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "blog-assets"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Identity: IdentityConfig{
			PublicKeyPEM:    getString("IDENTITY_JWT_PUBLIC_KEY", ""),
			VerifyURL:       getString("IDENTITY_VERIFY_URL", ""),
			AuthorizedParty: getString("IDENTITY_AUTHORIZED_PARTY", ""),
			AdminSubject:    getString("IDENTITY_ADMIN_SUBJECT", ""),
			RemoteTimeout:   getDuration("IDENTITY_REMOTE_TIMEOUT", 10*time.Second),
		},
		Upload: loadUploadConfig(),
		CORS: CORSConfig{
			AllowedOrigins: getStringSlice("BLOG_CORS_ORIGINS", []string{"http://localhost:5173"}),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getInt("BLOG_RATE_LIMIT_RPS", 20),
			Burst:             getInt("BLOG_RATE_LIMIT_BURST", 40),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("BLOG_METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

func loadUploadConfig() UploadConfig {
	minQ := getInt("UPLOAD_MIN_QUALITY", 5)
	maxQ := getInt("UPLOAD_MAX_QUALITY", 95)
	if minQ < 1 || maxQ > 100 || minQ > maxQ {
		minQ, maxQ = 5, 95
	}

	workers := getInt("UPLOAD_COMPRESS_WORKERS", 2)
	if workers < 1 {
		workers = 1
	}

	return UploadConfig{
		MaxUploadBytes: getInt64("UPLOAD_MAX_BYTES", 10*1024*1024),
		MaxStoredBytes: getInt64("UPLOAD_MAX_STORED_BYTES", 1*1024*1024),
		MinQuality:     minQ,
		MaxQuality:     maxQ,
		Workers:        workers,
		PresignTTL:     getDuration("UPLOAD_PRESIGN_TTL", time.Hour),
		HTMLFetchBase:  getString("UPLOAD_HTML_FETCH_BASE", ""),
		ProxyTimeout:   getDuration("UPLOAD_PROXY_TIMEOUT", 10*time.Second),
	}
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getStringSlice(key string, fallback []string) []string {
	if val, ok := os.LookupEnv(key); ok {
		var out []string
		for _, part := range strings.Split(val, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
