package session

import (
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// Stats is a point-in-time copy of the session counters.
type Stats struct {
	BytesIn    uint64
	BytesOut   uint64
	RecordsIn  uint64
	RecordsOut uint64
	Reconnects uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("in %s (%s records) out %s (%s records) reconnects %d",
		humanize.Bytes(s.BytesIn), humanize.Comma(int64(s.RecordsIn)),
		humanize.Bytes(s.BytesOut), humanize.Comma(int64(s.RecordsOut)),
		s.Reconnects)
}

type counters struct {
	bytesIn    atomic.Uint64
	bytesOut   atomic.Uint64
	recordsIn  atomic.Uint64
	recordsOut atomic.Uint64
	reconnects atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		BytesIn:    c.bytesIn.Load(),
		BytesOut:   c.bytesOut.Load(),
		RecordsIn:  c.recordsIn.Load(),
		RecordsOut: c.recordsOut.Load(),
		Reconnects: c.reconnects.Load(),
	}
}
