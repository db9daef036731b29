package ratelimiter

import (
	"testing"
	"time"
)

func TestKeyedLimiterThrottlesPerKey(t *testing.T) {
	l := NewPerMinute(1, 2, time.Minute)
	now := time.Unix(1_700_000_000, 0)

	if !l.Allow("ada", now) || !l.Allow("ADA ", now) {
		t.Fatal("burst of two must be allowed")
	}
	if l.Allow("ada", now) {
		t.Fatal("third attempt inside the window must be throttled")
	}
	if !l.Allow("grace", now) {
		t.Fatal("other keys must not share the bucket")
	}
	if !l.Allow("ada", now.Add(time.Minute)) {
		t.Fatal("bucket must refill after a minute")
	}
}

func TestKeyedLimiterNilAllowsEverything(t *testing.T) {
	l := NewPerMinute(0, 1, 0)
	if l != nil {
		t.Fatal("non-positive rate must disable the limiter")
	}
	if !l.Allow("ada", time.Now()) {
		t.Fatal("nil limiter must allow")
	}
	if l.Len() != 0 {
		t.Fatal("nil limiter tracks nothing")
	}
}

func TestKeyedLimiterIgnoresBlankKeys(t *testing.T) {
	l := NewPerMinute(1, 1, time.Minute)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if !l.Allow("  ", now) {
			t.Fatal("blank key must not be throttled")
		}
	}
	if l.Len() != 0 {
		t.Fatalf("blank key must not be tracked, got=%d", l.Len())
	}
}

func TestKeyedLimiterEvictsIdleKeys(t *testing.T) {
	l := NewPerMinute(600, 1000, time.Second)
	start := time.Unix(1_700_000_000, 0)
	l.Allow("stale", start)
	later := start.Add(time.Hour)
	for i := 0; i < sweepEveryNthHit; i++ {
		l.Allow("fresh", later)
	}
	if l.Len() != 1 {
		t.Fatalf("expected idle key to be evicted, got=%d keys", l.Len())
	}
}
