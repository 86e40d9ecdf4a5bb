// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Upload    UploadConfig
	Repair    RepairConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Retention RetentionConfig
	Storage   StorageConfig
	Payment   PaymentConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// BaseURL is the public URL used in checkout redirect links
	BaseURL string `env:"APP_BASE_URL" default:"http://127.0.0.1:8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. When empty, jobs are kept in memory.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds upload handling settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 20MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" envAlt:"CLEANCCSV_MAX_BYTES" default:"20971520"`

	// MaxConcurrent is the maximum number of repairs running at once (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for an upload slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single upload operation (default: 2m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"2m"`
}

// RepairConfig holds limits and thresholds for the repair pipeline.
type RepairConfig struct {
	// MaxRows is the maximum number of data rows, header excluded (default: 200000)
	MaxRows int `env:"REPAIR_MAX_ROWS" envAlt:"CLEANCCSV_MAX_ROWS" default:"200000"`

	// MaxCols is the maximum number of columns (default: 300)
	MaxCols int `env:"REPAIR_MAX_COLS" envAlt:"CLEANCCSV_MAX_COLS" default:"300"`

	// MaxPreambleDepth is the deepest line that may be chosen as header (default: 15)
	MaxPreambleDepth int `env:"REPAIR_MAX_PREAMBLE_DEPTH" default:"15"`

	// HeaderConfidenceGap is the minimum score lead needed to strip a preamble (default: 0.75)
	HeaderConfidenceGap float64 `env:"REPAIR_HEADER_CONFIDENCE_GAP" default:"0.75"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// UploadLimit is uploads allowed per IP within UploadWindow (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" envAlt:"CLEANCCSV_RATE_MAX_UPLOADS" default:"10"`

	// UploadWindow is the window for UploadLimit (default: 60s)
	UploadWindow time.Duration `env:"RATE_LIMIT_UPLOAD_WINDOW" default:"60s"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// APIKeys is a comma-separated list of keys accepted on /api routes.
	// When empty the JSON API is open.
	APIKeys []string `env:"API_KEYS"`
}

// RetentionConfig controls how long uploaded and cleaned files are kept.
type RetentionConfig struct {
	// TTL is how long a job is kept after upload (default: 30m)
	TTL time.Duration `env:"RETENTION_TTL" default:"30m"`

	// SweepSchedule is the cron spec for the eviction sweep (default: every minute)
	SweepSchedule string `env:"RETENTION_SWEEP_SCHEDULE" default:"@every 1m"`
}

// StorageConfig selects where file bytes are kept.
type StorageConfig struct {
	// Backend is "local" or "s3" (default: local)
	Backend string `env:"STORAGE_BACKEND" default:"local"`

	// Dir is the local storage directory
	Dir string `env:"STORAGE_DIR" envAlt:"CLEANCCSV_WORK_DIR" default:"/tmp/cleancsv"`

	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION" default:"us-east-1"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Prefix          string `env:"S3_PREFIX" default:"cleancsv/"`
}

// PaymentConfig holds Stripe checkout settings. Payments are enabled only
// when both the secret key and price are set.
type PaymentConfig struct {
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripePriceID       string `env:"STRIPE_PRICE_ID"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	// PriceLabel is the price shown next to download buttons (default: $5)
	PriceLabel string `env:"PAYMENT_PRICE_LABEL" default:"$5"`

	// SupportEmail is shown on the payment success page when set
	SupportEmail string `env:"SUPPORT_EMAIL"`
}

// Enabled reports whether downloads require payment.
func (p *PaymentConfig) Enabled() bool {
	return p.StripeSecretKey != "" && p.StripePriceID != ""
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" envAlt:"CLEANCCSV_LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: json)
	Format string `env:"LOG_FORMAT" default:"json"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
