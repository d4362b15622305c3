package main

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tn5250/config"
)

func TestLogFileNameForDate(t *testing.T) {
	when := time.Date(2026, time.January, 22, 12, 0, 0, 0, time.UTC)
	if got := logFileNameForDate(when); got != "22-Jan-2026.log" {
		t.Fatalf("expected log filename to be 22-Jan-2026.log, got %q", got)
	}
}

func TestParseLogFileDate(t *testing.T) {
	parsed, ok := parseLogFileDate("22-Jan-2026.log")
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if parsed.Year() != 2026 || parsed.Month() != time.January || parsed.Day() != 22 {
		t.Fatalf("unexpected parsed date: %s", parsed.Format(time.RFC3339))
	}
	if _, ok := parseLogFileDate("notes.txt"); ok {
		t.Fatalf("expected non-log file to be rejected")
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"20-Jan-2026.log", "21-Jan-2026.log", "22-Jan-2026.log", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	now := time.Date(2026, time.January, 22, 12, 0, 0, 0, time.UTC)
	if err := cleanupOldLogs(dir, now, 2); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "20-Jan-2026.log")); !os.IsNotExist(err) {
		t.Fatalf("expected 20-Jan-2026.log to be removed, stat err=%v", err)
	}
	for _, name := range []string{"21-Jan-2026.log", "22-Jan-2026.log", "notes.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to remain: %v", name, err)
		}
	}
}

func TestDailyFileSinkRotates(t *testing.T) {
	dir := t.TempDir()
	sink, err := newDailyFileSink(dir, 7)
	if err != nil {
		t.Fatalf("newDailyFileSink: %v", err)
	}
	defer sink.Close()

	var prevPath, newPath string
	var prevDate time.Time
	sink.SetRotateHook(func(d time.Time, p, n string) {
		prevDate, prevPath, newPath = d, p, n
	})

	day1 := time.Date(2026, time.January, 22, 12, 0, 0, 0, time.UTC)
	sink.WriteLine("first", day1)
	sink.WriteLine("second", day1.Add(24*time.Hour))

	if prevDate.Day() != 22 {
		t.Fatalf("unexpected prev date: %s", prevDate.Format(time.RFC3339))
	}
	if filepath.Base(prevPath) != "22-Jan-2026.log" || filepath.Base(newPath) != "23-Jan-2026.log" {
		t.Fatalf("unexpected rotation paths %q -> %q", prevPath, newPath)
	}
	data, err := os.ReadFile(filepath.Join(dir, "22-Jan-2026.log"))
	if err != nil {
		t.Fatalf("read day 1: %v", err)
	}
	if string(data) != "2026/01/22 12:00:00 first\n" {
		t.Fatalf("unexpected day 1 contents %q", data)
	}
}

func TestRotateHookLoggingDoesNotDeadlock(t *testing.T) {
	sink, err := newDailyFileSink(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("newDailyFileSink: %v", err)
	}
	defer sink.Close()

	fanout := newLogFanout(nil, sink)
	logger := log.New(fanout, "", 0)

	now := time.Now().UTC()
	sink.WriteLine("prime", now)

	// Force the next write to rotate without waiting for midnight.
	sink.mu.Lock()
	sink.date = now.Add(-24 * time.Hour).Format(logFileDateLayout)
	sink.mu.Unlock()

	hookDone := make(chan struct{})
	var hookOnce sync.Once
	fanout.SetRotateHook(func(prevDate time.Time, prevPath, newPath string) {
		logger.Printf("Session: traffic for %s", prevDate.Format("2006-01-02"))
		hookOnce.Do(func() { close(hookDone) })
	})

	done := make(chan struct{})
	go func() {
		logger.Print("trigger rotation")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("logger.Print deadlocked during rotate hook logging")
	}
	select {
	case <-hookDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("rotate hook did not complete")
	}
}

func TestFanoutQuietsProtocolLinesOnConsole(t *testing.T) {
	dir := t.TempDir()
	fanout, err := setupLogging(config.LoggingConfig{Enabled: true, Dir: dir, RetentionDays: 1}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	defer fanout.Close()

	var console bytes.Buffer
	fanout.SetConsoleSink(&console, false, true)
	logger := log.New(fanout, "", log.LstdFlags)
	logger.Print("Telnet: recv DO TTYPE")
	logger.Print("Session: connected")
	fanout.WriteFileOnlyLine("Session: in 1 kB", time.Now())

	if got := console.String(); strings.Contains(got, "Telnet:") || !strings.Contains(got, "Session: connected") {
		t.Fatalf("unexpected console output %q", got)
	}
	data, err := os.ReadFile(filepath.Join(dir, logFileNameForDate(time.Now())))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{"Telnet: recv DO TTYPE", "Session: connected", "Session: in 1 kB"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("log file missing %q: %q", want, data)
		}
	}
}

func TestFanoutJoinsPartialWrites(t *testing.T) {
	var console bytes.Buffer
	fanout := newLogFanout(&consoleSink{w: &console}, nil)
	_, _ = fanout.Write([]byte("Session: con"))
	if console.Len() != 0 {
		t.Fatalf("partial line flushed early")
	}
	_, _ = fanout.Write([]byte("nected\r\n"))
	if console.String() != "Session: connected\n" {
		t.Fatalf("unexpected console output %q", console.String())
	}
}

func TestSetupLoggingDisabled(t *testing.T) {
	fanout, err := setupLogging(config.LoggingConfig{}, &bytes.Buffer{})
	if err != nil || fanout == nil {
		t.Fatalf("setupLogging disabled = %v, %v", fanout, err)
	}
	if fanout.file != nil {
		t.Fatalf("file sink installed while disabled")
	}
}
