// Command tracedump prints a recorded session: it replays the inbound records
// of a trace database through a headless emulator and shows each screen, or
// lists the stored screen snapshots.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"tn5250/codec"
	"tn5250/emulator"
	"tn5250/gds"
	"tn5250/recorder"
	"tn5250/session"
	"tn5250/ui"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type options struct {
	dbPath   string
	asJSON   bool
	screens  bool
	codePage string
}

// frame is one line of -json output.
type frame struct {
	ID        int64     `json:"id"`
	Direction string    `json:"direction"`
	Opcode    byte      `json:"opcode"`
	OpName    string    `json:"op_name,omitempty"`
	Length    int       `json:"length"`
	Hash      string    `json:"hash"`
	Time      time.Time `json:"time"`
	Screen    []string  `json:"screen,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func main() {
	var opts options
	flag.StringVar(&opts.dbPath, "db", "data/trace/session.db", "path to the trace database")
	flag.BoolVar(&opts.asJSON, "json", false, "emit one JSON object per record or screen")
	flag.BoolVar(&opts.screens, "screens", false, "print stored screen snapshots instead of replaying records")
	flag.StringVar(&opts.codePage, "codepage", codec.DefaultCodePage, "EBCDIC code page used for replay")
	flag.Parse()

	if err := run(context.Background(), os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "tracedump: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, opts options) error {
	rec, err := recorder.OpenReadOnly(opts.dbPath)
	if err != nil {
		return err
	}
	defer rec.Close()

	if opts.screens {
		return dumpScreens(ctx, w, rec, opts.asJSON)
	}
	return replay(ctx, w, rec, opts)
}

func dumpScreens(ctx context.Context, w io.Writer, rec *recorder.Recorder, asJSON bool) error {
	screens, err := rec.Screens(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, s := range screens {
		if asJSON {
			if err := enc.Encode(frame{
				ID:     s.ID,
				Hash:   fmt.Sprintf("%016x", s.Fingerprint),
				Time:   s.Time,
				Screen: s.Lines,
			}); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(w, "== screen %d at %s ==\n", s.ID, s.Time.Format(time.RFC3339))
		fmt.Fprintln(w, strings.Join(s.Lines, "\n"))
	}
	return nil
}

// replay feeds inbound records to a fresh decoder. Outbound records are
// listed but not sent anywhere.
func replay(ctx context.Context, w io.Writer, rec *recorder.Recorder, opts options) error {
	cp, err := codec.Lookup(opts.codePage)
	if err != nil {
		return err
	}
	records, err := rec.Records(ctx)
	if err != nil {
		return err
	}
	grid := ui.NewGrid(80, 25)
	dec := emulator.New(emulator.Options{
		Display:   grid,
		Codec:     cp,
		Transport: emulator.TransportFunc(func([]byte) error { return nil }),
	})

	enc := json.NewEncoder(w)
	for _, r := range records {
		f := frame{
			ID:        r.ID,
			Direction: r.Direction.String(),
			Opcode:    r.Opcode,
			OpName:    gds.OpcodeName(r.Opcode),
			Length:    r.Length,
			Hash:      fmt.Sprintf("%016x", r.Hash),
			Time:      r.Time,
		}
		if r.Direction == session.Inbound {
			if err := dec.DataReceived(r.Payload); err != nil {
				f.Error = err.Error()
			}
			f.Screen = trimTrailingBlank(grid.Lines())
		}
		if opts.asJSON {
			if err := enc.Encode(f); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(w, "== #%d %s opcode=%#04x %s len=%d %s ==\n", f.ID, f.Direction, f.Opcode, f.OpName, f.Length, f.Time.Format(time.RFC3339Nano))
		if f.Error != "" {
			fmt.Fprintf(w, "error: %s\n", f.Error)
		}
		if len(f.Screen) > 0 {
			fmt.Fprintln(w, strings.Join(f.Screen, "\n"))
		}
	}
	return nil
}

func trimTrailingBlank(lines []string) []string {
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
