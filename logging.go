package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tn5250/config"
)

const (
	logTimestampLayout = "2006/01/02 15:04:05"
	logFileDateLayout  = "02-Jan-2006"
	maxLogBufferBytes  = 16 * 1024
)

// protocolPrefixes mark per-command trace lines. They are kept off a
// full-screen console so the status bar stays readable.
var protocolPrefixes = []string{"Telnet: ", "Emulator: "}

type lineSink interface {
	WriteLine(line string, now time.Time)
	Close() error
}

// consoleSink writes lines to a terminal or the UI status writer.
type consoleSink struct {
	w             io.Writer
	withTimestamp bool
}

// Purpose: Write a log line to the console writer.
// Key aspects: Optional UTC timestamp prefix; always newline terminated.
// Upstream: logFanout.Write.
// Downstream: io.Writer.Write.
func (s *consoleSink) WriteLine(line string, now time.Time) {
	if s == nil || s.w == nil {
		return
	}
	if s.withTimestamp {
		line = formatLogTimestamp(now) + " " + line
	}
	_, _ = io.WriteString(s.w, line+"\n")
}

func (s *consoleSink) Close() error { return nil }

type rotateHook func(prevDate time.Time, prevPath, newPath string)

// dailyFileSink appends to DD-Mon-YYYY.log in dir, switching files at UTC
// midnight and pruning files older than the retention window.
type dailyFileSink struct {
	mu            sync.Mutex
	dir           string
	retentionDays int
	date          string
	path          string
	file          *os.File
	lastErrorAt   time.Time
	onRotate      rotateHook
}

// Purpose: Build the daily log file sink.
// Key aspects: Creates the directory and prunes files past retention.
// Upstream: setupLogging.
// Downstream: os.MkdirAll, cleanupOldLogs.
func newDailyFileSink(dir string, retentionDays int) (*dailyFileSink, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("log directory is empty")
	}
	if retentionDays <= 0 {
		retentionDays = 7
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", dir, err)
	}
	if err := cleanupOldLogs(dir, time.Now().UTC(), retentionDays); err != nil {
		fmt.Fprintf(os.Stderr, "Logging: cleanup failed for %s: %v\n", dir, err)
	}
	return &dailyFileSink{dir: dir, retentionDays: retentionDays}, nil
}

func (s *dailyFileSink) SetRotateHook(hook rotateHook) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.onRotate = hook
	s.mu.Unlock()
}

// Purpose: Append a timestamped line to today's log file.
// Key aspects: Rotates on UTC date change; the rotate hook runs after the
// lock is released so it may log.
// Upstream: logFanout.Write, logFanout.WriteFileOnlyLine.
// Downstream: openLocked, os.File.WriteString.
func (s *dailyFileSink) WriteLine(line string, now time.Time) {
	if s == nil {
		return
	}
	now = now.UTC()
	date := now.Format(logFileDateLayout)

	s.mu.Lock()
	var (
		hook     rotateHook
		prevDate time.Time
		prevPath string
	)
	if s.file == nil || s.date != date {
		if s.date != "" && s.date != date {
			prevDate, _ = time.ParseInLocation(logFileDateLayout, s.date, time.UTC)
			prevPath = s.path
			hook = s.onRotate
		}
		s.openLocked(date, now)
	}
	if s.file == nil {
		s.mu.Unlock()
		return
	}
	if _, err := s.file.WriteString(formatLogTimestamp(now) + " " + line + "\n"); err != nil {
		s.reportErrorLocked(now, fmt.Errorf("write failed: %w", err))
	}
	newPath := s.path
	s.mu.Unlock()

	if hook != nil && !prevDate.IsZero() {
		hook(prevDate, prevPath, newPath)
	}
}

func (s *dailyFileSink) openLocked(date string, now time.Time) {
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.reportErrorLocked(now, fmt.Errorf("failed to create log directory %q: %w", s.dir, err))
		return
	}
	path := filepath.Join(s.dir, logFileNameForDate(now))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		s.reportErrorLocked(now, fmt.Errorf("open failed for %s: %w", path, err))
		return
	}
	s.file, s.date, s.path = file, date, path
	if err := cleanupOldLogs(s.dir, now, s.retentionDays); err != nil {
		s.reportErrorLocked(now, fmt.Errorf("cleanup failed: %w", err))
	}
}

// reportErrorLocked prints sink failures to stderr at most once a minute.
func (s *dailyFileSink) reportErrorLocked(now time.Time, err error) {
	if !s.lastErrorAt.IsZero() && now.Sub(s.lastErrorAt) < time.Minute {
		return
	}
	s.lastErrorAt = now
	fmt.Fprintf(os.Stderr, "Logging: %v\n", err)
}

// Purpose: Close the open log file, if any.
// Key aspects: Safe for repeated calls and nil receivers.
// Upstream: logFanout.Close.
// Downstream: os.File.Close.
func (s *dailyFileSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file, s.date, s.path = nil, "", ""
	return err
}

// logFanout is the log package output: complete lines go to the console sink
// and the optional file sink.
type logFanout struct {
	mu            sync.Mutex
	buf           []byte
	console       lineSink
	file          lineSink
	quietProtocol bool
}

func newLogFanout(console, file lineSink) *logFanout {
	return &logFanout{console: console, file: file}
}

// setupLogging returns a fanout even when the file sink cannot be created,
// so logging keeps working on the console.
func setupLogging(cfg config.LoggingConfig, console io.Writer) (*logFanout, error) {
	fanout := newLogFanout(&consoleSink{w: console, withTimestamp: true}, nil)
	if !cfg.Enabled {
		return fanout, nil
	}
	sink, err := newDailyFileSink(cfg.Dir, cfg.RetentionDays)
	if err != nil {
		return fanout, err
	}
	fanout.SetFileSink(sink)
	return fanout, nil
}

// SetConsoleSink swaps the console writer, e.g. to the UI status bar. With
// quietProtocol set, protocol trace lines reach only the file sink.
func (f *logFanout) SetConsoleSink(w io.Writer, withTimestamp, quietProtocol bool) {
	if f == nil {
		return
	}
	var sink lineSink
	if w != nil {
		sink = &consoleSink{w: w, withTimestamp: withTimestamp}
	}
	f.mu.Lock()
	f.console = sink
	f.quietProtocol = quietProtocol
	f.mu.Unlock()
}

func (f *logFanout) SetFileSink(sink lineSink) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.file = sink
	f.mu.Unlock()
}

// SetRotateHook forwards to the file sink when it supports rotation hooks.
func (f *logFanout) SetRotateHook(hook rotateHook) {
	if f == nil {
		return
	}
	f.mu.Lock()
	sink := f.file
	f.mu.Unlock()
	if s, ok := sink.(*dailyFileSink); ok {
		s.SetRotateHook(hook)
	}
}

// Purpose: io.Writer target for the standard logger.
// Key aspects: Splits on newlines; protocol trace lines skip the console
// when quietProtocol is set.
// Upstream: log.Printf.
// Downstream: consoleSink and dailyFileSink WriteLine.
func (f *logFanout) Write(p []byte) (int, error) {
	if f == nil {
		return len(p), nil
	}
	f.mu.Lock()
	f.buf = append(f.buf, p...)
	data := f.buf
	var lines []string
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx == -1 {
			break
		}
		lines = append(lines, string(bytes.TrimRight(data[:idx], "\r")))
		data = data[idx+1:]
	}
	if len(data) > maxLogBufferBytes {
		if trimmed := string(bytes.TrimRight(data, "\r")); trimmed != "" {
			lines = append(lines, trimmed)
		}
		data = data[:0]
	}
	f.buf = data
	console, file, quiet := f.console, f.file, f.quietProtocol
	f.mu.Unlock()

	now := time.Now().UTC()
	for _, line := range lines {
		if console != nil && !(quiet && isProtocolLine(line)) {
			console.WriteLine(line, now)
		}
		if file != nil {
			file.WriteLine(line, now)
		}
	}
	return len(p), nil
}

// WriteFileOnlyLine writes straight to the file sink, skipping the console.
func (f *logFanout) WriteFileOnlyLine(line string, now time.Time) {
	if f == nil {
		return
	}
	f.mu.Lock()
	file := f.file
	f.mu.Unlock()
	if file != nil {
		file.WriteLine(line, now)
	}
}

func (f *logFanout) Close() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	console, file := f.console, f.file
	f.mu.Unlock()
	if console != nil {
		_ = console.Close()
	}
	if file != nil {
		return file.Close()
	}
	return nil
}

// isProtocolLine looks past the standard log prefix for a trace component.
func isProtocolLine(line string) bool {
	for _, p := range protocolPrefixes {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}

func formatLogTimestamp(now time.Time) string {
	return now.UTC().Format(logTimestampLayout)
}

func logFileNameForDate(now time.Time) string {
	return now.UTC().Format(logFileDateLayout) + ".log"
}

func parseLogFileDate(name string) (time.Time, bool) {
	if filepath.Ext(name) != ".log" {
		return time.Time{}, false
	}
	parsed, err := time.ParseInLocation(logFileDateLayout, strings.TrimSuffix(name, ".log"), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// Purpose: Remove daily log files older than the retention window.
// Key aspects: Only touches files named YYYY-MM-DD.log.
// Upstream: newDailyFileSink, dailyFileSink rotation.
// Downstream: os.ReadDir, os.Remove.
func cleanupOldLogs(dir string, now time.Time, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	y, m, d := now.UTC().Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(retentionDays - 1))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if date, ok := parseLogFileDate(entry.Name()); ok && date.Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, entry.Name()))
		}
	}
	return nil
}
