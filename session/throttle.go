package session

import (
	"sync/atomic"
	"time"
)

// logThrottle counts repeated events and allows a log line at most once per
// interval, so a misbehaving host cannot flood the log.
type logThrottle struct {
	interval time.Duration
	now      func() time.Time
	lastLog  atomic.Int64
	total    atomic.Uint64
}

func newLogThrottle(interval time.Duration) *logThrottle {
	return &logThrottle{interval: interval, now: time.Now}
}

// Purpose: Count an event and decide whether to log it.
// Key aspects: ok is true at most once per interval; total keeps counting.
// Upstream: Client.handleChunk.
// Downstream: none.
func (t *logThrottle) Inc() (total uint64, ok bool) {
	total = t.total.Add(1)
	if t.interval <= 0 {
		return total, true
	}
	now := t.now().UnixNano()
	last := t.lastLog.Load()
	if last != 0 && now-last < t.interval.Nanoseconds() {
		return total, false
	}
	return total, t.lastLog.CompareAndSwap(last, now)
}
