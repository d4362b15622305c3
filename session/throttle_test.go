package session

import (
	"testing"
	"time"
)

func TestLogThrottle(t *testing.T) {
	clock := time.Unix(1000, 0)
	th := newLogThrottle(time.Second)
	th.now = func() time.Time { return clock }

	if total, ok := th.Inc(); !ok || total != 1 {
		t.Fatalf("first Inc = %d,%v", total, ok)
	}
	if total, ok := th.Inc(); ok || total != 2 {
		t.Fatalf("second Inc inside interval = %d,%v", total, ok)
	}
	clock = clock.Add(time.Second)
	if total, ok := th.Inc(); !ok || total != 3 {
		t.Fatalf("Inc after interval = %d,%v", total, ok)
	}
}

func TestLogThrottleDisabled(t *testing.T) {
	th := newLogThrottle(0)
	for i := 0; i < 3; i++ {
		if _, ok := th.Inc(); !ok {
			t.Fatalf("disabled throttle suppressed event %d", i)
		}
	}
}
