package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	// Storage: "postgres" (default) or "memory" for local runs without a database.
	StoreDriver string
	DBDSN       string

	// JWT verification for admin routes
	JWTSecret string
	JWTIssuer string

	// Redis (optional; empty address disables cache and redis rate limiting)
	RedisAddr     string
	RedisPass     string
	RedisDB       int
	EventCacheTTL time.Duration

	// Rate limit
	RLEnabled       bool
	RLLimit         int
	RLWindow        time.Duration
	RLRegisterLimit int

	// RabbitMQ
	RabbitURL      string
	RabbitExchange string
	OutboxEnabled  bool

	// Event policy
	EventTimezone   string
	RejectPastDates bool

	LogLevel string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":"+strconv.Itoa(getInt("PORT", 8080)))

	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", StorePostgres))

	// --- Postgres: prefer DATABASE_URL if present, else build from POSTGRES_*
	if dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL")); dbURL != "" {
		cfg.DBDSN = dbURL
	} else {
		host := getEnv("POSTGRES_HOST", "")
		if port := getEnv("POSTGRES_PORT", ""); host != "" && port != "" {
			host = host + ":" + port
		}
		cfg.DBDSN = buildPostgresURL(
			firstNonEmpty(getEnv("POSTGRES_ADDR", ""), host),
			getEnv("POSTGRES_USER", ""),
			getEnv("POSTGRES_PASSWORD", ""),
			getEnv("POSTGRES_DB", ""),
			getEnv("POSTGRES_SSLMODE", "disable"),
		)
	}

	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.JWTIssuer = getEnv("JWT_ISSUER", "")

	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPass = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getInt("REDIS_DB", 0)
	cfg.EventCacheTTL = getDuration("EVENT_CACHE_TTL", 5*time.Minute)

	cfg.RLEnabled = getBool("RL_ENABLED", true)
	cfg.RLLimit = getInt("RL_LIMIT", 100)
	cfg.RLWindow = getDuration("RL_WINDOW", time.Minute)
	cfg.RLRegisterLimit = getInt("RL_REGISTER_LIMIT", 10)

	cfg.RabbitURL = firstNonEmpty(
		strings.TrimSpace(os.Getenv("RABBITMQ_URL")),
		strings.TrimSpace(os.Getenv("RABBIT_URL")),
	)
	cfg.RabbitExchange = firstNonEmpty(
		strings.TrimSpace(os.Getenv("RABBITMQ_EXCHANGE")),
		strings.TrimSpace(os.Getenv("RABBIT_EXCHANGE")),
		"community.events",
	)
	cfg.OutboxEnabled = getBool("OUTBOX_ENABLED", true)

	cfg.EventTimezone = getEnv("EVENT_TIMEZONE", "Asia/Makassar")
	cfg.RejectPastDates = getBool("REJECT_PAST_DATES", false)

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StorePostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("missing database config: provide DATABASE_URL or POSTGRES_ADDR/POSTGRES_USER/POSTGRES_PASSWORD/POSTGRES_DB")
		}
	case StoreMemory:
		if c.AppEnv != "dev" && c.AppEnv != "test" {
			return fmt.Errorf("STORE_DRIVER=memory is only allowed when APP_ENV is dev or test")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q (want postgres or memory)", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("missing JWT_SECRET")
	}
	if c.RLEnabled && (c.RLLimit <= 0 || c.RLRegisterLimit <= 0 || c.RLWindow <= 0) {
		return fmt.Errorf("rate limit values must be positive")
	}
	// outbox relay needs a broker outside dev
	if c.AppEnv != "dev" && c.StoreDriver == StorePostgres && c.OutboxEnabled && c.RabbitURL == "" {
		return fmt.Errorf("missing RABBITMQ_URL (required when APP_ENV != dev and OUTBOX_ENABLED)")
	}
	return nil
}

// Location resolves EventTimezone. Without tzdata the WITA offset is used.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.EventTimezone); err == nil {
		return loc
	}
	return time.FixedZone("WITA", 8*60*60)
}

// buildPostgresURL builds a safe postgres URL DSN (handles special characters).
func buildPostgresURL(addr, user, pass, db, sslmode string) string {
	if strings.TrimSpace(addr) == "" || strings.TrimSpace(user) == "" || strings.TrimSpace(db) == "" {
		return ""
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   strings.TrimSpace(addr),
		Path:   "/" + strings.TrimPrefix(strings.TrimSpace(db), "/"),
	}
	if pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}

	q := url.Values{}
	if strings.TrimSpace(sslmode) != "" {
		q.Set("sslmode", strings.TrimSpace(sslmode))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		// prefer failing fast over silent misconfig
		panic(fmt.Errorf("invalid boolean env %s=%q", k, v))
	}
}

func getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
