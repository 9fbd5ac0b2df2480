package mdvserve

import (
	"log"
	"os"
	"strings"
	"time"
)

// Config holds all configuration for an mdvserve instance. Everything is
// read once at startup and never mutated afterwards.
type Config struct {
	Owner string // GitHub owner of the content repo
	Repo  string // GitHub repository name
	Token string // GitHub token; empty disables writes

	Addr          string // Listen address (default ":3001")
	AllowedOrigin string // CORS origin of the front end (default "http://localhost:3000")

	SiteName string // Site name for the feed
	SiteURL  string // Canonical site URL for feed/sitemap links

	AdminPassword string // Required: admin login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true behind HTTPS

	PostCacheTTL time.Duration // Post cache TTL (default 5min)

	AnalyticsEnabled      bool   // Enable the page-view counter (default true)
	AnalyticsDatabasePath string // Analytics SQLite path (default "data/analytics.db")
}

func (c *Config) setDefaults() {
	if c.Owner == "" {
		c.Owner = "ambigenius"
	}
	if c.Repo == "" {
		c.Repo = "mdvbackend"
	}
	if c.Addr == "" {
		c.Addr = ":3001"
	}
	if c.AllowedOrigin == "" {
		c.AllowedOrigin = "http://localhost:3000"
	}
	if c.SiteName == "" {
		c.SiteName = "mdv"
	}
	if c.SiteURL == "" {
		c.SiteURL = strings.TrimSuffix(c.AllowedOrigin, "/")
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("mdvserve: required environment variable %s is not set", key)
	}
	return v
}

// EnvBool parses a boolean environment variable; anything but "true"
// (case-insensitive) is false, and an unset variable yields fallback.
func EnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return strings.EqualFold(v, "true")
}
