package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ambigenius/mdvserve"
)

func main() {
	loadDotEnv()

	cfg := mdvserve.Config{
		Owner:         mdvserve.EnvOr("GITHUB_OWNER", "ambigenius"),
		Repo:          mdvserve.EnvOr("GITHUB_REPO", "mdvbackend"),
		Token:         os.Getenv("GITHUB_TOKEN"),
		Addr:          mdvserve.EnvOr("ADDR", ":3001"),
		AllowedOrigin: mdvserve.EnvOr("ALLOWED_ORIGIN", "http://localhost:3000"),
		SiteName:      mdvserve.EnvOr("SITE_NAME", "mdv"),
		SiteURL:       os.Getenv("SITE_URL"),
		AdminPassword: mdvserve.MustEnv("ADMIN_PASSWORD"),
		SessionSecret: mdvserve.MustEnv("ADMIN_SESSION_SECRET"),
		CookieSecure:  mdvserve.EnvBool("COOKIE_SECURE", false),

		AnalyticsEnabled:      mdvserve.EnvBool("ANALYTICS_ENABLED", true),
		AnalyticsDatabasePath: mdvserve.EnvOr("ANALYTICS_DATABASE_PATH", "data/analytics.db"),
	}
	if v := os.Getenv("POST_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid POST_CACHE_TTL %q: %v", v, err)
		}
		cfg.PostCacheTTL = ttl
	}

	app := mdvserve.New(cfg)
	defer app.Close()

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// loadDotEnv loads .env files with priority: .env.local > .env.
// godotenv.Load does not overwrite already-set env vars, so OS env vars
// always win.
func loadDotEnv() {
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}
