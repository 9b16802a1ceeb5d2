package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestAllowRefills(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewWithClock(clock)

	for i := 0; i < 2; i++ {
		if !l.Allow("reddit", 2, 1) {
			t.Fatalf("call %d should be allowed", i)
		}
	}
	if l.Allow("reddit", 2, 1) {
		t.Fatal("bucket should be empty")
	}
	if !l.Allow("other", 1, 1) {
		t.Fatal("keys must not share a bucket")
	}

	clock.Advance(time.Second)
	if !l.Allow("reddit", 2, 1) {
		t.Fatal("bucket should have refilled one token")
	}
	if l.Allow("reddit", 2, 1) {
		t.Fatal("only one token should have refilled")
	}
}
