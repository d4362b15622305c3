// Program tn5250 is a 5250 terminal client: it connects to an IBM i host over
// telnet, renders the host screens and sends keystrokes back.
//
// Usage: tn5250 [host[:port]]
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	"tn5250/codec"
	"tn5250/config"
	"tn5250/emulator"
	"tn5250/recorder"
	"tn5250/session"
	"tn5250/ui"
)

// Version is reported at startup.
const Version = "0.3.0"

const statsInterval = time.Minute

func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func isStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// loadConfig reads the configuration from TN5250_CONFIG, tn5250.yaml or the
// built-in defaults, then applies the optional host[:port] argument.
func loadConfig(args []string) (*config.Config, error) {
	var cfg *config.Config
	if path := config.Resolve(); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	if len(args) > 0 {
		host, port, err := parseHostArg(args[0], cfg.Host.Port)
		if err != nil {
			return nil, err
		}
		cfg.Host.Address, cfg.Host.Port = host, port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseHostArg splits "host" or "host:port"; IPv6 literals need brackets.
func parseHostArg(arg string, defaultPort int) (string, int, error) {
	arg = strings.TrimSpace(arg)
	host, portStr, err := net.SplitHostPort(arg)
	if err != nil {
		return strings.Trim(arg, "[]"), defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}

// newDecoder builds the emulator for the configured device. Explicit
// machine_type/model win over the values parsed from terminal.type.
func newDecoder(cfg *config.Config, display emulator.Display) (*emulator.Decoder, error) {
	cp, err := codec.Lookup(cfg.Terminal.CodePage)
	if err != nil {
		return nil, err
	}
	machine, model, _ := emulator.ParseTerminalType(cfg.Terminal.Type)
	if cfg.Terminal.MachineType != "" {
		machine = cfg.Terminal.MachineType
	}
	if cfg.Terminal.Model != "" {
		model = cfg.Terminal.Model
	}
	return emulator.New(emulator.Options{
		Display:     display,
		Codec:       cp,
		MachineType: machine,
		Model:       model,
		Debug:       cfg.Logging.ProtocolDebug,
	}), nil
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	fanout, err := setupLogging(cfg.Logging, os.Stdout)
	if err != nil {
		log.Printf("Logging: file sink disabled: %v", err)
	}
	log.SetOutput(fanout)
	log.SetFlags(0)
	defer fanout.Close()

	grid := ui.NewGrid(80, 25)
	decoder, err := newDecoder(cfg, grid)
	if err != nil {
		log.Fatalf("Error creating emulator: %v", err)
	}

	var trace *recorder.Recorder
	if cfg.Trace.Enabled {
		trace, err = recorder.NewRecorder(cfg.Trace.Path)
		if err != nil {
			log.Printf("Recorder: disabled: %v", err)
		} else {
			defer trace.Close()
			log.Printf("Recorder: tracing to %s", cfg.Trace.Path)
		}
	}

	var tracer session.Tracer
	if trace != nil {
		tracer = trace
	}
	relay := &statusRelay{}
	client, sendKey := newSession(cfg, decoder, tracer, relay)

	surface, quit := startSurface(cfg, grid, sendKey, fanout)
	if surface != nil {
		defer surface.Stop()
		relay.Attach(surface)
	} else {
		cfg.Print()
	}

	if trace != nil && cfg.Trace.Snapshots {
		grid.OnChange(func() {
			if _, err := trace.RecordScreen(grid.Lines()); err != nil {
				log.Printf("Recorder: failed to store screen: %v", err)
			}
		})
	}
	if cfg.UI.Mode == config.UIModeHeadless {
		logScreens(grid)
	}

	fanout.SetRotateHook(func(prevDate time.Time, _, _ string) {
		log.Printf("Session: traffic through %s: %s", prevDate.Format("2006-01-02"), client.Stats())
	})

	log.Printf("tn5250 v%s starting...", Version)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		log.Printf("Session: %v", err)
		return
	}
	defer client.Stop()
	go logStats(ctx, client, fanout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case <-quit:
		log.Printf("UI closed")
	case <-client.Done():
		log.Printf("Session ended")
	}
	log.Printf("Final traffic: %s", client.Stats())
}

// statusRelay hands session status lines to the surface once it is up.
type statusRelay struct {
	mu      sync.Mutex
	surface ui.Surface
}

func (r *statusRelay) Attach(s ui.Surface) {
	r.mu.Lock()
	r.surface = s
	r.mu.Unlock()
}

func (r *statusRelay) SetStatus(line string) {
	r.mu.Lock()
	s := r.surface
	r.mu.Unlock()
	if s != nil {
		s.SetStatus(line)
	}
}

// newSession builds the client before any UI goroutine can deliver keys, so
// sendKey never observes a half-built session.
func newSession(cfg *config.Config, decoder *emulator.Decoder, tracer session.Tracer, relay *statusRelay) (*session.Client, func(emulator.KeyEvent)) {
	client := session.NewClient(session.Options{
		Address:        cfg.Host.Address,
		Port:           cfg.Host.Port,
		TerminalType:   cfg.Terminal.Type,
		DialTimeout:    cfg.DialTimeout(),
		ReadTimeout:    cfg.ReadTimeout(),
		Reconnect:      cfg.Session.Reconnect,
		InitialBackoff: cfg.InitialBackoff(),
		MaxBackoff:     cfg.MaxBackoff(),
		Tracer:         tracer,
		OnStatus:       relay.SetStatus,
		Debug:          cfg.Logging.ProtocolDebug,
	}, decoder)
	sendKey := func(ev emulator.KeyEvent) {
		if err := client.SendKey(ev); err != nil {
			log.Printf("Session: %v", err)
		}
	}
	return client, sendKey
}

// startSurface brings up the configured front end. It falls back to headless
// when stdout is not a terminal. quit is closed when the user leaves the UI.
func startSurface(cfg *config.Config, grid *ui.Grid, sendKey func(emulator.KeyEvent), fanout *logFanout) (ui.Surface, <-chan struct{}) {
	mode := cfg.UI.Mode
	if mode != config.UIModeHeadless && !isStdoutTTY() {
		log.Printf("UI disabled (%s requires an interactive console)", mode)
		cfg.UI.Mode = config.UIModeHeadless
		return nil, nil
	}
	switch mode {
	case config.UIModeTview:
		t := ui.NewTerminal(grid, sendKey, cfg.UI.Color, cfg.Refresh())
		t.WaitReady()
		fanout.SetConsoleSink(t.SystemWriter(), false, true)
		return t, t.Done()
	case config.UIModeANSI:
		r := ui.NewANSIRenderer(grid, os.Stdout, cfg.UI.Color, cfg.Refresh())
		fanout.SetConsoleSink(r.SystemWriter(), false, true)
		return r, readKeys(os.Stdin, sendKey)
	default:
		log.Printf("UI disabled (mode=headless)")
		return nil, nil
	}
}

// readKeys puts stdin in raw mode and feeds key presses to sendKey until
// Ctrl-C or end of input.
func readKeys(in *os.File, sendKey func(emulator.KeyEvent)) <-chan struct{} {
	quit := make(chan struct{})
	if !isStdinTTY() {
		return quit
	}
	state, err := term.MakeRaw(int(in.Fd()))
	if err != nil {
		log.Printf("UI: keyboard unavailable: %v", err)
		return quit
	}
	go func() {
		defer close(quit)
		defer term.Restore(int(in.Fd()), state)
		var dec ui.InputDecoder
		buf := make([]byte, 64)
		for {
			n, err := in.Read(buf)
			events, done := dec.Feed(buf[:n])
			for _, ev := range events {
				sendKey(ev)
			}
			if done || err != nil {
				if err != nil && err != io.EOF {
					log.Printf("UI: keyboard read failed: %v", err)
				}
				return
			}
		}
	}()
	return quit
}

// logScreens prints each new screen when no UI is attached.
func logScreens(grid *ui.Grid) {
	var last uint64
	grid.OnChange(func() {
		fp := grid.Fingerprint()
		if fp == last {
			return
		}
		last = fp
		lines := grid.Lines()
		for len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		log.Printf("Screen:\n%s", strings.Join(lines, "\n"))
	})
}

func logStats(ctx context.Context, client *session.Client, fanout *logFanout) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fanout.WriteFileOnlyLine("Session: "+client.Stats().String(), now)
		}
	}
}
