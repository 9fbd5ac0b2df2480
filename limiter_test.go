package mdvserve

import (
	"testing"
	"time"
)

func TestLoginLimiterAllowsUnderLimit(t *testing.T) {
	l := NewLoginLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
}

func TestLoginLimiterBlocksOverLimit(t *testing.T) {
	l := NewLoginLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		l.Allow("1.2.3.4")
	}
	if l.Allow("1.2.3.4") {
		t.Error("4th attempt should be blocked")
	}
	if !l.Allow("5.6.7.8") {
		t.Error("different IP should be allowed")
	}
}

func TestLoginLimiterWindowExpiry(t *testing.T) {
	l := NewLoginLimiter(2, 50*time.Millisecond)
	l.Allow("1.2.3.4")
	l.Allow("1.2.3.4")
	if l.Allow("1.2.3.4") {
		t.Error("3rd attempt inside window should be blocked")
	}
	time.Sleep(60 * time.Millisecond)
	if !l.Allow("1.2.3.4") {
		t.Error("attempt after window should be allowed")
	}
}
