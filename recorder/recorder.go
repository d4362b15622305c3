// Package recorder persists session traffic and rendered screens to SQLite
// so a session can be inspected or replayed after the fact.
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"tn5250/gds"
	"tn5250/session"

	_ "modernc.org/sqlite"
)

// Record is one stored data stream record.
type Record struct {
	ID        int64
	Direction session.Direction
	Opcode    byte
	Length    int
	Payload   []byte
	Hash      uint64
	Time      time.Time
}

// Screen is one stored screen image.
type Screen struct {
	ID          int64
	Fingerprint uint64
	Lines       []string
	Time        time.Time
}

// Recorder writes records and screens in arrival order. It implements
// session.Tracer.
type Recorder struct {
	db         *sql.DB
	mu         sync.Mutex
	lastScreen uint64
	haveScreen bool
	now        func() time.Time
}

// NewRecorder opens (or creates) the SQLite database at path and ensures schema exists.
// A damaged database is moved aside first.
func NewRecorder(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("recorder: ensure dir: %w", err)
	}
	if _, err := preflight(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: schema: %w", err)
	}
	return &Recorder{db: db, now: time.Now}, nil
}

// OpenReadOnly opens an existing trace for inspection. The file is never
// checked, moved or created, and writes through the returned Recorder fail.
func OpenReadOnly(path string) (*Recorder, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("recorder: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: open: %w", err)
	}
	return &Recorder{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    direction TEXT NOT NULL,
    opcode INTEGER,
    length INTEGER,
    payload BLOB,
    hash INTEGER,
    recorded_at INTEGER
);
CREATE TABLE IF NOT EXISTS screens (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fingerprint INTEGER,
    text TEXT,
    recorded_at INTEGER
);`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// TraceRecord stores one record. Failures are logged; tracing never stops
// the session.
func (r *Recorder) TraceRecord(dir session.Direction, record []byte) {
	if err := r.Insert(dir, record); err != nil {
		log.Printf("Recorder: failed to insert record: %v", err)
	}
}

// Insert stores one record.
func (r *Recorder) Insert(dir session.Direction, record []byte) error {
	if r == nil || r.db == nil {
		return nil
	}
	var opcode byte
	if h, ok := gds.ParseHeader(record); ok {
		opcode = h.Opcode
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(`
INSERT INTO records (direction, opcode, length, payload, hash, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		dir.String(),
		int(opcode),
		len(record),
		record,
		int64(xxh3.Hash(record)),
		r.now().UTC().UnixNano(),
	)
	return err
}

// RecordScreen stores a screen unless it matches the previous one. It reports
// whether a row was written.
func (r *Recorder) RecordScreen(lines []string) (bool, error) {
	if r == nil || r.db == nil {
		return false, nil
	}
	text := strings.Join(lines, "\n")
	fp := xxh3.HashString(text)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.haveScreen && fp == r.lastScreen {
		return false, nil
	}
	_, err := r.db.Exec(`INSERT INTO screens (fingerprint, text, recorded_at) VALUES (?, ?, ?)`,
		int64(fp), text, r.now().UTC().UnixNano())
	if err != nil {
		return false, err
	}
	r.lastScreen, r.haveScreen = fp, true
	return true, nil
}

// Records returns every stored record in arrival order.
func (r *Recorder) Records(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, direction, opcode, length, payload, hash, recorded_at
FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("recorder: query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			direction string
			opcode    int
			hash      int64
			at        int64
		)
		if err := rows.Scan(&rec.ID, &direction, &opcode, &rec.Length, &rec.Payload, &hash, &at); err != nil {
			return nil, fmt.Errorf("recorder: scan record: %w", err)
		}
		if direction == session.Outbound.String() {
			rec.Direction = session.Outbound
		}
		rec.Opcode = byte(opcode)
		rec.Hash = uint64(hash)
		rec.Time = time.Unix(0, at).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Screens returns every stored screen in order.
func (r *Recorder) Screens(ctx context.Context) ([]Screen, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, fingerprint, text, recorded_at FROM screens ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("recorder: query screens: %w", err)
	}
	defer rows.Close()

	var out []Screen
	for rows.Next() {
		var (
			s    Screen
			fp   int64
			text string
			at   int64
		)
		if err := rows.Scan(&s.ID, &fp, &text, &at); err != nil {
			return nil, fmt.Errorf("recorder: scan screen: %w", err)
		}
		s.Fingerprint = uint64(fp)
		s.Lines = strings.Split(text, "\n")
		s.Time = time.Unix(0, at).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
