package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Scrape   ScrapeConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration
}

// ScrapeConfig carries every pipeline tunable. The dedup window and default
// event duration are heuristic constants, exposed here rather than hard-coded.
type ScrapeConfig struct {
	WebRequestsPerMinute    int
	SocialRequestsPerMinute int
	SocialRequestsPerSecond int

	MaxAttempts       int
	InitialDelay      time.Duration
	BackoffMultiplier float64

	FetchTimeout     time.Duration
	PollTimeout      time.Duration
	InterSourceDelay time.Duration
	MaxConcurrent    int

	CacheTTL        time.Duration
	CacheMaxEntries int

	MinEventNameLen int
	MaxEventNameLen int
	MaxDescription  int

	DedupDayWindow       int
	DefaultEventDuration time.Duration
	DefaultVenueCapacity int

	ScheduleEnabled bool
	ScheduleSpec    string

	SourcesFile string

	SocialAPIBase  string
	SocialAPIToken string
}

var errMissingRequiredEnv = errors.New("missing required environment variables")

func Load() (Config, error) {
	cfg := Config{}

	var missing []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}

	cfg.App = AppConfig{
		AppName:     req("APP_NAME"),
		Environment: req("APP_ENV"),
		HTTPPort:    req("HTTP_PORT"),
	}

	cfg.Database = DatabaseConfig{
		DBHost:     opt("DB_HOST"),
		DBPort:     opt("DB_PORT"),
		DBName:     opt("DB_NAME"),
		DBUser:     opt("DB_USER"),
		DBPassword: opt("DB_PASSWORD"),
		DBSSLMode:  opt("DB_SSL_MODE"),

		ConnectTimeout:        optDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
		PoolMaxConns:          int32(optInt("DB_POOL_MAX_CONNS", 8)),
		PoolMinConns:          int32(optInt("DB_POOL_MIN_CONNS", 0)),
		PoolMaxConnLifetime:   optDuration("DB_POOL_MAX_CONN_LIFETIME", 30*time.Minute),
		PoolMaxConnIdleTime:   optDuration("DB_POOL_MAX_CONN_IDLE_TIME", 5*time.Minute),
		PoolHealthCheckPeriod: optDuration("DB_POOL_HEALTH_CHECK_PERIOD", time.Minute),
	}

	cfg.Scrape = ScrapeConfig{
		WebRequestsPerMinute:    optInt("SCRAPE_WEB_RPM", 10),
		SocialRequestsPerMinute: optInt("SCRAPE_SOCIAL_RPM", 30),
		SocialRequestsPerSecond: optInt("SCRAPE_SOCIAL_RPS", 1),

		MaxAttempts:       optInt("SCRAPE_MAX_ATTEMPTS", 3),
		InitialDelay:      optDuration("SCRAPE_INITIAL_DELAY", time.Second),
		BackoffMultiplier: optFloat("SCRAPE_BACKOFF_MULTIPLIER", 2.0),

		FetchTimeout:     optDuration("SCRAPE_FETCH_TIMEOUT", 30*time.Second),
		PollTimeout:      optDuration("SCRAPE_POLL_TIMEOUT", 60*time.Second),
		InterSourceDelay: optDuration("SCRAPE_INTER_SOURCE_DELAY", 2*time.Second),
		MaxConcurrent:    optInt("SCRAPE_MAX_CONCURRENT", 4),

		CacheTTL:        optDuration("SCRAPE_CACHE_TTL", 24*time.Hour),
		CacheMaxEntries: optInt("SCRAPE_CACHE_MAX_ENTRIES", 500),

		MinEventNameLen: optInt("SCRAPE_MIN_NAME_LEN", 3),
		MaxEventNameLen: optInt("SCRAPE_MAX_NAME_LEN", 200),
		MaxDescription:  optInt("SCRAPE_MAX_DESCRIPTION", 200),

		DedupDayWindow:       optInt("SCRAPE_DEDUP_DAY_WINDOW", 1),
		DefaultEventDuration: optDuration("SCRAPE_DEFAULT_EVENT_DURATION", 8*time.Hour),
		DefaultVenueCapacity: optInt("SCRAPE_DEFAULT_VENUE_CAPACITY", 100),

		ScheduleEnabled: optBool("SCRAPE_SCHEDULE_ENABLED", false),
		ScheduleSpec:    optDefault("SCRAPE_SCHEDULE", "0 */6 * * *"),

		SourcesFile: opt("SCRAPE_SOURCES_FILE"),

		SocialAPIBase:  opt("SOCIAL_API_BASE"),
		SocialAPIToken: opt("SOCIAL_API_TOKEN"),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}

	return cfg, nil
}

func optDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func optInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func optFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func optBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func optDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return v
}
