package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Render    RenderConfig
	Fetch     FetchConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// RenderConfig controls the browser-automation backend used by the service.
type RenderConfig struct {
	// Engine selects the backend: "webdriver" or "cdp".
	Engine string // default: "webdriver"

	// ChromedriverURL is the WebDriver endpoint requests fall back to.
	ChromedriverURL string // default: "http://127.0.0.1:4444"

	// CDPURL is the DevTools endpoint used by the "cdp" engine.
	CDPURL string // default: "http://127.0.0.1:9222"

	// AllowedEndpoints lists the automation endpoints API callers may pick
	// with chromedriver_url. The configured endpoint is always allowed.
	AllowedEndpoints []string

	// OutputDelay is the default time scripts get before the DOM is read.
	OutputDelay time.Duration // default: 2s

	// BrowserBin overrides the browser binary the backend launches.
	BrowserBin string

	// BrowserArgs are extra browser command-line switches.
	BrowserArgs []string

	// Stealth installs anti-detection evasions (cdp engine only).
	Stealth bool // default: false

	// RequestTimeout bounds one API request end to end.
	RequestTimeout time.Duration // default: 60s
}

// Endpoint returns the backend address for the selected engine.
func (c RenderConfig) Endpoint() string {
	if c.Engine == "cdp" {
		return c.CDPURL
	}
	return c.ChromedriverURL
}

// AllowsEndpoint reports whether an API caller may send renders to
// endpoint. Trailing slashes are ignored.
func (c RenderConfig) AllowsEndpoint(endpoint string) bool {
	want := strings.TrimRight(endpoint, "/")
	if want == strings.TrimRight(c.Endpoint(), "/") {
		return true
	}
	for _, allowed := range c.AllowedEndpoints {
		if want == strings.TrimRight(allowed, "/") {
			return true
		}
	}
	return false
}

// FetchConfig controls the upstream HTTP fetch used by /scrape.
type FetchConfig struct {
	// DefaultProxy is the default proxy URL for all fetches.
	DefaultProxy string

	// MaxBodyBytes caps how much of a fetched body is read.
	MaxBodyBytes int64 // default: 10 MiB

	// Timeout bounds the fetch alone.
	Timeout time.Duration // default: 30s
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 1000
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10

	// MaxInFlight caps concurrent requests per identity. Every render holds
	// one backend session for its whole duration. 0 disables the cap.
	MaxInFlight int // default: 4

	// MaxSessions caps renders in flight across all callers, matching the
	// backend's session slots. 0 disables the cap.
	MaxSessions int // default: 0
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PURIFY_HOST", "0.0.0.0"),
			Port: envIntOr("PURIFY_PORT", 8080),
			Mode: envOr("PURIFY_MODE", "release"),
		},
		Render: RenderConfig{
			Engine:           envOr("PURIFY_ENGINE", "webdriver"),
			ChromedriverURL:  envOr("PURIFY_CHROMEDRIVER_URL", "http://127.0.0.1:4444"),
			CDPURL:           envOr("PURIFY_CDP_URL", "http://127.0.0.1:9222"),
			AllowedEndpoints: envSliceOr("PURIFY_ALLOWED_ENDPOINTS", nil),
			OutputDelay:      envDurationOr("PURIFY_OUTPUT_DELAY", 2*time.Second),
			BrowserBin:       os.Getenv("PURIFY_BROWSER_BIN"),
			BrowserArgs:      envSliceOr("PURIFY_BROWSER_ARGS", nil),
			Stealth:          envBoolOr("PURIFY_STEALTH", false),
			RequestTimeout:   envDurationOr("PURIFY_RENDER_TIMEOUT", 60*time.Second),
		},
		Fetch: FetchConfig{
			DefaultProxy: os.Getenv("PURIFY_PROXY"),
			MaxBodyBytes: int64(envIntOr("PURIFY_MAX_BODY_BYTES", 10<<20)),
			Timeout:      envDurationOr("PURIFY_FETCH_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PURIFY_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PURIFY_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PURIFY_RATE_RPS", 5.0),
			Burst:             envIntOr("PURIFY_RATE_BURST", 10),
			MaxInFlight:       envIntOr("PURIFY_RATE_MAX_IN_FLIGHT", 4),
			MaxSessions:       envIntOr("PURIFY_MAX_SESSIONS", 0),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("PURIFY_LOG_LEVEL", "info"),
			Format: envOr("PURIFY_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
