// Package analytics is a small privacy-light page-view counter. IPs are
// hashed with a per-installation random salt before they touch disk; no
// cookies, no fingerprinting.
package analytics

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// salt holds the per-installation random salt for IP hashing, protected by
// sync.Once.
var salt struct {
	once  sync.Once
	value string
}

// InitSalt loads or generates a persistent salt for IP hashing. Must be
// called once at startup before any requests are served.
func InitSalt(store *Store) error {
	var initErr error
	salt.once.Do(func() {
		s, err := store.GetSetting("hash_salt")
		if err != nil {
			initErr = fmt.Errorf("read hash salt: %w", err)
			return
		}
		if s == "" {
			b := make([]byte, 32)
			if _, err := rand.Read(b); err != nil {
				initErr = fmt.Errorf("generate salt: %w", err)
				return
			}
			s = hex.EncodeToString(b)
			if err := store.SetSetting("hash_salt", s); err != nil {
				initErr = fmt.Errorf("store hash salt: %w", err)
				return
			}
		}
		salt.value = s
	})
	return initErr
}

// HashIP returns the salted hash stored in place of a visitor's IP.
func HashIP(ip string) string {
	sum := sha256.Sum256([]byte(salt.value + ip))
	return hex.EncodeToString(sum[:])
}

// Visit represents a single page view.
type Visit struct {
	ID        int64     `json:"-"`
	IPHash    string    `json:"-"`
	Path      string    `json:"path"`
	Referrer  string    `json:"referrer"`
	Timestamp time.Time `json:"timestamp"`
}

// PageStat represents page view statistics for one path.
type PageStat struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
}

// Stats holds aggregated analytics data for a period.
type Stats struct {
	Days           int        `json:"days"`
	TotalViews     int        `json:"total_views"`
	UniqueVisitors int        `json:"unique_visitors"`
	TopPages       []PageStat `json:"top_pages"`
}
