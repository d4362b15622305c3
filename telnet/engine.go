package telnet

import (
	"io"
	"log"
	"strings"
)

// DefaultTerminalType is stated until SetTerminalType is called.
const DefaultTerminalType = "UNKNOWN"

const maxPendingBytes = 64 * 1024

// Engine is the negotiation state machine for one connection. Feed it raw
// socket bytes; it returns the host data and writes replies to the
// transport. Engine is not safe for concurrent use.
type Engine struct {
	out          io.Writer
	terminalType string
	modes        map[byte]bool
	pending      []byte
	records      uint64
	debug        bool
}

// NewEngine returns an engine that writes its replies to out.
func NewEngine(out io.Writer) *Engine {
	return &Engine{
		out:          out,
		terminalType: DefaultTerminalType,
		modes:        make(map[byte]bool),
	}
}

func (e *Engine) SetTerminalType(terminalType string) {
	terminalType = strings.TrimSpace(terminalType)
	if terminalType == "" {
		terminalType = DefaultTerminalType
	}
	e.terminalType = terminalType
}

func (e *Engine) TerminalType() string { return e.terminalType }

// SetDebug enables per-command logging.
func (e *Engine) SetDebug(enabled bool) { e.debug = enabled }

// Mode reports the last acknowledged DO (true) or DONT (false) for opt.
func (e *Engine) Mode(opt byte) bool { return e.modes[opt] }

// Enabled reports whether opt is supported and the host asked for it.
func (e *Engine) Enabled(opt byte) bool { return IsOptionSupported(opt) && e.modes[opt] }

// Records counts the IAC EOR markers seen so far.
func (e *Engine) Records() uint64 { return e.records }

// Pending is the number of bytes held back waiting for the rest of a command.
func (e *Engine) Pending() int { return len(e.pending) }

// Reset forgets negotiated modes and buffered bytes, e.g. after a reconnect.
func (e *Engine) Reset() {
	e.modes = make(map[byte]bool)
	e.pending = e.pending[:0]
	e.records = 0
}

// Feed consumes one chunk from the transport and returns the data bytes it
// carried with doubled IACs collapsed. A command cut off at the end of the
// chunk is kept and completed by the next call. The error is the first reply
// write that failed; parsing continues regardless.
func (e *Engine) Feed(chunk []byte) ([]byte, error) {
	e.pending = append(e.pending, chunk...)
	buf := e.pending
	data := make([]byte, 0, len(buf))
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	i := 0
scan:
	for i < len(buf) {
		if buf[i] != IAC {
			next := indexIAC(buf, i)
			data = append(data, buf[i:next]...)
			i = next
			continue
		}
		if i+1 >= len(buf) {
			break
		}
		cmd := buf[i+1]
		switch cmd {
		case IAC:
			data = append(data, IAC)
			i += 2
		case DO, DONT, WILL, WONT:
			if i+2 >= len(buf) {
				break scan
			}
			keep(e.handleOption(cmd, buf[i+2]))
			i += 3
		case SB:
			end := findSubnegotiationEnd(buf, i+2)
			if end < 0 {
				break scan
			}
			keep(e.handleSubnegotiation(UnescapeIAC(buf[i+2 : end])))
			i = end + 2
		default:
			e.handleCommand(cmd)
			i += 2
		}
	}

	rest := copy(e.pending, buf[i:])
	e.pending = e.pending[:rest]
	if len(e.pending) > maxPendingBytes {
		log.Printf("Telnet: dropping %d bytes of unterminated command", len(e.pending))
		e.pending = e.pending[:0]
	}
	return data, firstErr
}

// handleOption answers DO/DONT/WILL/WONT. A DO or DONT that asks for the
// mode already in effect is not acknowledged and leaves the table alone.
func (e *Engine) handleOption(cmd, opt byte) error {
	if e.debug {
		log.Printf("Telnet: recv %s %s", commandName(cmd), optionName(opt))
	}
	if cmd == DO && e.modes[opt] {
		return nil
	}
	if cmd == DONT && !e.modes[opt] {
		return nil
	}
	reply := replyFor(cmd, IsOptionSupported(opt))
	err := e.send([]byte{IAC, reply, opt})
	switch cmd {
	case DO:
		e.modes[opt] = true
	case DONT:
		e.modes[opt] = false
	}
	if e.debug {
		log.Printf("Telnet: sent %s %s", commandName(reply), optionName(opt))
	}
	return err
}

// handleSubnegotiation answers TERMINAL-TYPE SEND. Other sub-negotiations are
// ignored. params holds the option byte, the sub-command and its arguments.
func (e *Engine) handleSubnegotiation(params []byte) error {
	if len(params) < 2 {
		return nil
	}
	opt, sub := params[0], params[1]
	if e.debug {
		log.Printf("Telnet: recv SB %s %d (%d parameter bytes)", optionName(opt), sub, len(params)-2)
	}
	if opt != OptTerminalType || sub != SubSEND {
		return nil
	}
	reply := make([]byte, 0, len(e.terminalType)+6)
	reply = append(reply, IAC, SB, OptTerminalType, SubIS)
	reply = append(reply, EscapeIAC([]byte(e.terminalType))...)
	reply = append(reply, IAC, SE)
	if e.debug {
		log.Printf("Telnet: sent SB TERMINAL-TYPE IS %s", e.terminalType)
	}
	return e.send(reply)
}

// handleCommand drops two-byte commands without reply.
func (e *Engine) handleCommand(cmd byte) {
	if cmd == EOR {
		e.records++
	}
	if e.debug && cmd != EOR {
		log.Printf("Telnet: recv %s (ignored)", commandName(cmd))
	}
}

func (e *Engine) send(p []byte) error {
	if e.out == nil {
		return nil
	}
	_, err := e.out.Write(p)
	return err
}

func indexIAC(buf []byte, from int) int {
	for j := from; j < len(buf); j++ {
		if buf[j] == IAC {
			return j
		}
	}
	return len(buf)
}

// findSubnegotiationEnd returns the index of the IAC in the closing IAC SE,
// skipping doubled IACs, or -1 when the terminator has not arrived.
func findSubnegotiationEnd(buf []byte, from int) int {
	for j := from; j < len(buf); j++ {
		if buf[j] != IAC {
			continue
		}
		if j+1 >= len(buf) {
			return -1
		}
		switch buf[j+1] {
		case SE:
			return j
		case IAC:
			j++
		}
	}
	return -1
}
