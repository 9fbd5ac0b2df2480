package mdvserve

import (
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.setDefaults()

	if cfg.Addr != ":3001" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.AllowedOrigin != "http://localhost:3000" {
		t.Errorf("AllowedOrigin = %q", cfg.AllowedOrigin)
	}
	if cfg.SiteURL != "http://localhost:3000" {
		t.Errorf("SiteURL should fall back to the allowed origin, got %q", cfg.SiteURL)
	}
	if cfg.PostCacheTTL != 5*time.Minute {
		t.Errorf("PostCacheTTL = %v", cfg.PostCacheTTL)
	}
}

func TestConfigDefaultsPreserveExplicitValues(t *testing.T) {
	cfg := Config{
		Addr:         ":9999",
		SiteURL:      "https://example.com",
		PostCacheTTL: time.Second,
	}
	cfg.setDefaults()

	if cfg.Addr != ":9999" || cfg.SiteURL != "https://example.com" || cfg.PostCacheTTL != time.Second {
		t.Errorf("explicit values were overwritten: %+v", cfg)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("MDV_TEST_SET", "value")
	if got := EnvOr("MDV_TEST_SET", "fallback"); got != "value" {
		t.Errorf("EnvOr set = %q", got)
	}
	if got := EnvOr("MDV_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("EnvOr unset = %q", got)
	}

	t.Setenv("MDV_TEST_BOOL", "TRUE")
	if !EnvBool("MDV_TEST_BOOL", false) {
		t.Error("EnvBool must accept TRUE case-insensitively")
	}
	t.Setenv("MDV_TEST_BOOL", "yes")
	if EnvBool("MDV_TEST_BOOL", true) {
		t.Error("EnvBool must treat non-true values as false")
	}
	if !EnvBool("MDV_TEST_BOOL_UNSET", true) {
		t.Error("EnvBool must fall back when unset")
	}
}
