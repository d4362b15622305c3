package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

const preflightTimeout = 2 * time.Second

var sidecarSuffixes = []string{"", "-wal", "-shm", "-journal"}

// Purpose: Check a trace database before opening it for writing.
// Key aspects: Checkpoints the WAL and runs quick_check; a failing file and
// its sidecars are moved aside and the new path is returned.
// Upstream: NewRecorder.
// Downstream: checkDatabase, quarantine.
func preflight(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("recorder: preflight stat: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), preflightTimeout)
	defer cancel()

	checkErr := checkDatabase(ctx, path)
	if checkErr == nil {
		return "", nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("recorder: preflight timed out after %s", preflightTimeout)
	}

	moved, err := quarantine(path, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("recorder: quarantine failed: %w (check: %v)", err, checkErr)
	}
	log.Printf("Recorder: trace database failed check (%v); moved to %s", checkErr, moved)
	return moved, nil
}

func checkDatabase(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, fmt.Sprintf("pragma busy_timeout=%d", preflightTimeout.Milliseconds())); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "pragma wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	rows, err := db.QueryContext(ctx, "pragma quick_check")
	if err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return err
		}
		if strings.TrimSpace(status) != "ok" {
			return fmt.Errorf("quick_check reported %q", status)
		}
	}
	return rows.Err()
}

func quarantine(path string, now time.Time) (string, error) {
	suffix := ".bad-" + now.Format("20060102T150405Z")
	for _, s := range sidecarSuffixes {
		src := path + s
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.Rename(src, src+suffix); err != nil {
			return "", err
		}
	}
	return path + suffix, nil
}
