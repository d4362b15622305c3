// Package session runs a 5250 session over TCP: it dials the host, feeds the
// socket through telnet negotiation and GDS framing into the decoder, and
// reconnects with backoff when the link drops.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"tn5250/emulator"
	"tn5250/gds"
	"tn5250/telnet"
)

var (
	// ErrStopped is returned by Connect after Stop.
	ErrStopped = errors.New("session: stopped")
	// ErrNotConnected is returned when a record is sent while the link is down.
	ErrNotConnected = errors.New("session: not connected")
)

// Direction tells a Tracer which way a record travelled.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "out"
	}
	return "in"
}

// Tracer receives a copy of every complete record.
type Tracer interface {
	TraceRecord(dir Direction, record []byte)
}

// Options configures a Client. Zero durations take the defaults below.
type Options struct {
	Address        string
	Port           int
	TerminalType   string
	DialTimeout    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Reconnect      bool
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Tracer         Tracer
	// OnStatus is told about connects and disconnects, for the status line.
	OnStatus func(string)
	Debug    bool
}

const (
	defaultDialTimeout    = 30 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultInitialBackoff = 5 * time.Second
	defaultMaxBackoff     = 60 * time.Second
	readBufferSize        = 8 * 1024
	errorLogInterval      = 10 * time.Second
)

// Client owns one host connection at a time and the decoder it drives.
type Client struct {
	opts    Options
	decoder *emulator.Decoder

	// mu serialises the read loop with keystrokes; it guards everything the
	// decoder and engine touch.
	mu        sync.Mutex
	conn      net.Conn
	engine    *telnet.Engine
	assembler gds.Assembler
	writer    *telnet.RecordWriter

	connected atomic.Bool
	stats     counters
	badInput  *logThrottle
	badRecord *logThrottle
	shutdown  chan struct{}
	reconnect chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	doneOnce  sync.Once
}

// NewClient wires decoder to a new client. The decoder's transport is
// replaced by the client.
func NewClient(opts Options, decoder *emulator.Decoder) *Client {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = max(defaultMaxBackoff, opts.InitialBackoff)
	}
	c := &Client{
		opts:      opts,
		decoder:   decoder,
		shutdown:  make(chan struct{}),
		reconnect: make(chan struct{}, 1),
		done:      make(chan struct{}),
		badInput:  newLogThrottle(errorLogInterval),
		badRecord: newLogThrottle(errorLogInterval),
	}
	decoder.SetTransport(emulator.TransportFunc(c.writeRecordLocked))
	return c
}

// Connect dials the host and starts the read loop. The first dial runs
// synchronously so failures reach the caller; later disconnects are handled
// by the reconnect supervisor until Stop or ctx ends.
func (c *Client) Connect(ctx context.Context) error {
	if c.isShutdown() {
		return ErrStopped
	}
	if err := c.establishConnection(ctx); err != nil {
		return err
	}
	go c.connectionSupervisor(ctx)
	return nil
}

func (c *Client) addr() string {
	return net.JoinHostPort(c.opts.Address, strconv.Itoa(c.opts.Port))
}

func (c *Client) establishConnection(ctx context.Context) error {
	addr := c.addr()
	log.Printf("Session: connecting to %s...", addr)
	c.status("connecting to " + addr)

	dialer := net.Dialer{Timeout: c.opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("session: connect to %s: %w", addr, err)
	}

	out := &deadlineWriter{conn: conn, timeout: c.opts.WriteTimeout, written: &c.stats.bytesOut}
	c.mu.Lock()
	c.conn = conn
	c.engine = telnet.NewEngine(out)
	c.engine.SetTerminalType(c.opts.TerminalType)
	c.engine.SetDebug(c.opts.Debug)
	c.assembler.Reset()
	c.writer = telnet.NewRecordWriter(out)
	c.mu.Unlock()
	c.connected.Store(true)

	log.Printf("Session: connection to %s established", addr)
	c.status("connected to " + addr)
	go c.readLoop(conn)
	return nil
}

// Purpose: Redial the host after a disconnect.
// Key aspects: Waits the backoff before each attempt, doubling up to
// MaxBackoff; counts successful reconnects; Stop or ctx end it.
// Upstream: Connect.
// Downstream: establishConnection.
func (c *Client) connectionSupervisor(ctx context.Context) {
	for {
		select {
		case <-c.shutdown:
			return
		case <-ctx.Done():
			c.Stop()
			return
		case <-c.reconnect:
			if c.isShutdown() {
				return
			}
			delay := c.opts.InitialBackoff
			for {
				timer := time.NewTimer(delay)
				select {
				case <-timer.C:
				case <-c.shutdown:
					timer.Stop()
					return
				case <-ctx.Done():
					timer.Stop()
					c.Stop()
					return
				}
				log.Printf("Session: attempting reconnect...")
				if err := c.establishConnection(ctx); err != nil {
					delay *= 2
					if delay > c.opts.MaxBackoff {
						delay = c.opts.MaxBackoff
					}
					log.Printf("Session: reconnect failed: %v (retry in %s)", err, delay)
					c.status("reconnect failed, retry in " + delay.String())
					continue
				}
				c.stats.reconnects.Add(1)
				break
			}
		}
	}
}

// Purpose: Pump socket reads into handleChunk.
// Key aspects: Applies the read deadline per read; on error drops the
// connection and asks the supervisor to reconnect.
// Upstream: establishConnection.
// Downstream: handleChunk, requestReconnect.
func (c *Client) readLoop(conn net.Conn) {
	buf := make([]byte, readBufferSize)
	for {
		if c.opts.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		}
		n, err := conn.Read(buf)
		if n > 0 {
			c.stats.bytesIn.Add(uint64(n))
			c.handleChunk(buf[:n])
		}
		if err != nil {
			c.dropConnection(conn)
			if c.isShutdown() {
				return
			}
			log.Printf("Session: read error: %v", err)
			c.status("disconnected: " + err.Error())
			c.requestReconnect(err)
			return
		}
	}
}

// Purpose: Run one socket read through negotiation, framing and the decoder.
// Key aspects: Holds c.mu so keystrokes never interleave with a record;
// bad input is logged through throttles.
// Upstream: readLoop.
// Downstream: telnet.Engine.Feed, gds.Assembler, emulator.Decoder.DataReceived.
func (c *Client) handleChunk(chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine == nil {
		return
	}
	data, err := c.engine.Feed(chunk)
	if err != nil {
		log.Printf("Session: negotiation reply failed: %v", err)
	}
	if len(data) == 0 {
		return
	}
	_, _ = c.assembler.Write(data)
	for {
		record, err := c.assembler.Next()
		if err != nil {
			if total, ok := c.badInput.Inc(); ok {
				log.Printf("Session: discarding input: %v (total %d)", err, total)
			}
			continue
		}
		if record == nil {
			return
		}
		c.stats.recordsIn.Add(1)
		if c.opts.Tracer != nil {
			c.opts.Tracer.TraceRecord(Inbound, record)
		}
		if err := c.decoder.DataReceived(record); err != nil {
			if total, ok := c.badRecord.Inc(); ok {
				log.Printf("Session: %v (total %d)", err, total)
			}
		}
	}
}

// SendKey applies a keystroke to the screen and sends any resulting record.
func (c *Client) SendKey(ev emulator.KeyEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decoder.HandleKey(ev)
}

// Snapshot returns the current screen as text rows.
func (c *Client) Snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decoder.Snapshot()
}

// writeRecordLocked is the decoder's transport. Callers hold c.mu.
func (c *Client) writeRecordLocked(record []byte) error {
	if c.writer == nil || !c.connected.Load() {
		return ErrNotConnected
	}
	if c.opts.Tracer != nil {
		c.opts.Tracer.TraceRecord(Outbound, record)
	}
	if err := c.writer.WriteRecord(record); err != nil {
		return err
	}
	c.stats.recordsOut.Add(1)
	return nil
}

func (c *Client) dropConnection(conn net.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.writer = nil
		c.connected.Store(false)
	}
	c.mu.Unlock()
	_ = conn.Close()
}

// IsConnected reports whether a host connection is up.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Stats returns the traffic counters.
func (c *Client) Stats() Stats {
	return c.stats.snapshot()
}

// Done is closed once the session has ended for good: after Stop, or after a
// disconnect when reconnecting is disabled.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Stop closes the connection and ends the supervisor. It is safe to call more
// than once.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		log.Printf("Session: stopping")
		close(c.shutdown)
	})
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	c.finish()
}

func (c *Client) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Client) isShutdown() bool {
	select {
	case <-c.shutdown:
		return true
	default:
		return false
	}
}

func (c *Client) requestReconnect(reason error) {
	if c.isShutdown() {
		return
	}
	if !c.opts.Reconnect {
		c.finish()
		return
	}
	if reason != nil {
		log.Printf("Session: scheduling reconnect after error: %v", reason)
	}
	select {
	case c.reconnect <- struct{}{}:
	default:
	}
}

func (c *Client) status(line string) {
	if c.opts.OnStatus != nil {
		c.opts.OnStatus(line)
	}
}

// deadlineWriter bounds each write to the host and counts bytes sent.
type deadlineWriter struct {
	conn    net.Conn
	timeout time.Duration
	written *atomic.Uint64
}

func (w *deadlineWriter) Write(p []byte) (int, error) {
	if w.timeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	}
	n, err := w.conn.Write(p)
	w.written.Add(uint64(n))
	return n, err
}
