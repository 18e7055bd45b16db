// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL the platform loads the widget from.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// SecretKey signs view-session tokens handed to the widget shell.
	SecretKey string

	// Monday holds the platform API and board layout settings.
	Monday MondayConfig

	// Widget holds view-session and rendering settings.
	Widget WidgetConfig

	// Database holds MariaDB connection settings for the audit trail.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Audit toggles the MariaDB save audit trail.
	AuditEnabled bool

	// MigrationsPath is the directory holding the golang-migrate SQL files.
	MigrationsPath string

	// TrustedProxies lists the CIDRs whose forwarding headers are honoured.
	TrustedProxies []string

	// FrameAncestors lists the origins allowed to embed the widget.
	FrameAncestors []string
}

// MondayConfig holds the platform API credentials and the board column
// identifiers the widget reads and writes. The column ids are deployment
// constants: a mismatch with the live board is a configuration error.
type MondayConfig struct {
	// APIURL is the GraphQL endpoint (default: "https://api.monday.com/v2").
	APIURL string

	// APIToken is sent as the Authorization header on every request.
	APIToken string

	// APIVersion pins the API-Version header.
	APIVersion string

	// ClientSecret verifies the host's sessionToken JWT. Empty disables
	// verification (development only).
	ClientSecret string

	// HTTPTimeout bounds a single request at the transport level.
	HTTPTimeout time.Duration

	// ParentColumnID is the timeline column on the parent item.
	ParentColumnID string

	// SubitemColumnID is the timeline column written on each subitem.
	SubitemColumnID string

	// SubitemBoardID disambiguates the write when set.
	SubitemBoardID string
}

// WidgetConfig holds widget behaviour settings.
type WidgetConfig struct {
	// DisplayTimezone is the IANA zone used when the host does not report one.
	DisplayTimezone string

	// StoreBackend selects where view state and selections live.
	StoreBackend string

	// ViewSessionTTL is how long an idle view session keeps its selections.
	ViewSessionTTL time.Duration

	// SaveRateLimit caps save requests per view session per minute. Zero
	// disables the limit.
	SaveRateLimit int
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so
// container orchestrators can manage each independently.
// If DATABASE_URL is set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username (default: "subtimeline").
	User string

	// Password is the MariaDB password (default: "subtimeline").
	Password string

	// Name is the database name (default: "subtimeline").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// LoadDotEnv loads any of the given .env files that exist. Values already
// present in the environment win. Returns the number of files loaded.
func LoadDotEnv(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Env:       getEnv("ENV", "development"),
		Port:      getEnvInt("PORT", 8080),
		BaseURL:   getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		SecretKey: getEnv("SECRET_KEY", ""),

		Monday: MondayConfig{
			APIURL:          getEnv("MONDAY_API_URL", "https://api.monday.com/v2"),
			APIToken:        getEnv("MONDAY_API_TOKEN", ""),
			APIVersion:      getEnv("MONDAY_API_VERSION", "2024-10"),
			ClientSecret:    getEnv("MONDAY_CLIENT_SECRET", ""),
			HTTPTimeout:     getEnvDuration("MONDAY_HTTP_TIMEOUT", 30*time.Second),
			ParentColumnID:  getEnv("PARENT_TIMELINE_COLUMN_ID", "timerange_mkzc2yy4"),
			SubitemColumnID: getEnv("SUBITEM_TIMELINE_COLUMN_ID", "timerange_mkzck13j"),
			SubitemBoardID:  getEnv("SUBITEM_BOARD_ID", ""),
		},

		Widget: WidgetConfig{
			DisplayTimezone: getEnv("DISPLAY_TIMEZONE", "UTC"),
			StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
			ViewSessionTTL:  getEnvDuration("VIEW_SESSION_TTL", 12*time.Hour),
			SaveRateLimit:   getEnvInt("SAVE_RATE_LIMIT", 60),
		},

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "subtimeline"),
			Password:        getEnv("DB_PASSWORD", "subtimeline"),
			Name:            getEnv("DB_NAME", "subtimeline"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		AuditEnabled:   getEnvBool("AUDIT_ENABLED", false),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES", []string{
			"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fd00::/8",
		}),
		FrameAncestors: getEnvList("FRAME_ANCESTORS", []string{
			"https://*.monday.com",
		}),
	}

	if cfg.Monday.ParentColumnID == "" || cfg.Monday.SubitemColumnID == "" {
		return nil, fmt.Errorf("PARENT_TIMELINE_COLUMN_ID and SUBITEM_TIMELINE_COLUMN_ID must not be empty")
	}

	switch cfg.Widget.StoreBackend {
	case StoreMemory, StoreRedis:
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreMemory, StoreRedis, cfg.Widget.StoreBackend)
	}

	if _, err := time.LoadLocation(cfg.Widget.DisplayTimezone); err != nil {
		return nil, fmt.Errorf("DISPLAY_TIMEZONE %q: %w", cfg.Widget.DisplayTimezone, err)
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Monday.APIToken == "" {
			return nil, fmt.Errorf("MONDAY_API_TOKEN is required in production")
		}
		if cfg.Monday.ClientSecret == "" {
			return nil, fmt.Errorf("MONDAY_CLIENT_SECRET is required in production")
		}
		if len(cfg.SecretKey) < 32 {
			return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
	}

	// Provide a dev-only default secret so local dev works without .env.
	if cfg.SecretKey == "" {
		cfg.SecretKey = "dev-secret-key-do-not-use-in-production!!"
	}
	if cfg.Monday.ClientSecret == "" {
		slog.Warn("MONDAY_CLIENT_SECRET not set; host session tokens will not be verified")
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvBool reads a boolean env var ("true", "1", ...) or returns the default.
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "720h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var or returns the default. An
// empty value yields an empty list.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	out := []string{}
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
