package cmd

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"wsmux/internal/metrics"
	"wsmux/internal/mux"
	"wsmux/internal/session"
)

const replCommands = `  open <id> <url>       open a session (ws:// or wss://)
  send <id> <text>      send the rest of the line as a text frame
  sendhex <id> <hex>    send decoded bytes as a binary frame
  close <id>            close a session
  stats                 print counters
  help                  show this help
  quit                  close every session and exit
`

// submitter is the part of the dispatcher the console drives.
type submitter interface {
	Submit(ctx context.Context, cmd mux.Command) error
}

// errQuit ends the console loop without an error.
var errQuit = errors.New("quit")

// console reads line commands and turns them into dispatcher commands.
type console struct {
	d       submitter
	out     io.Writer
	metrics *metrics.Collector
}

// run processes lines from in until EOF, quit, or ctx ends.  The
// scanner runs on its own goroutine so a blocked terminal read never
// holds up shutdown.
func (c *console) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 64*1024), 1<<20)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			err := c.exec(ctx, line)
			switch {
			case errors.Is(err, errQuit), errors.Is(err, mux.ErrStopped), ctx.Err() != nil:
				return nil
			case err != nil:
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
		}
	}
}

// exec applies one console line.
func (c *console) exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimLeft(rest, " ")

	switch strings.ToLower(verb) {
	case "open":
		id, addr, err := splitID(rest)
		if err != nil {
			return err
		}
		addr = strings.TrimSpace(addr)
		if addr == "" {
			return fmt.Errorf("usage: open <id> <url>")
		}
		return c.d.Submit(ctx, mux.OpenSession{ID: id, Address: addr})

	case "send":
		id, text, err := splitID(rest)
		if err != nil {
			return err
		}
		return c.d.Submit(ctx, mux.SendMessage{ID: id, Payload: session.Text(text)})

	case "sendhex":
		id, h, err := splitID(rest)
		if err != nil {
			return err
		}
		data, err := hex.DecodeString(strings.ReplaceAll(h, " ", ""))
		if err != nil {
			return fmt.Errorf("sendhex: %w", err)
		}
		return c.d.Submit(ctx, mux.SendMessage{ID: id, Payload: session.Frame{Data: data, Binary: true}})

	case "close":
		id, _, err := splitID(rest)
		if err != nil {
			return err
		}
		return c.d.Submit(ctx, mux.CloseSession{ID: id})

	case "stats":
		printStats(c.out, c.metrics.Snapshot())
		return nil

	case "help", "?":
		fmt.Fprint(c.out, "Commands:\n"+replCommands)
		return nil

	case "quit", "exit":
		return errQuit

	default:
		return fmt.Errorf("unknown command %q (try help)", verb)
	}
}

// splitID parses the leading session id and returns the remainder of
// the line untouched.
func splitID(s string) (session.ID, string, error) {
	field, rest, _ := strings.Cut(s, " ")
	if field == "" {
		return 0, "", fmt.Errorf("missing session id")
	}
	id, err := session.ParseID(field)
	if err != nil {
		return 0, "", fmt.Errorf("invalid session id %q", field)
	}
	return id, rest, nil
}

// ── Event output ─────────────────────────────────────────────────────

// printEvents writes one line per event until the mailbox closes.
func printEvents(w io.Writer, events <-chan mux.Event) {
	for ev := range events {
		fmt.Fprintln(w, formatEvent(ev))
	}
}

func formatEvent(ev mux.Event) string {
	switch e := ev.(type) {
	case mux.SessionOpened:
		return fmt.Sprintf("[%d] opened", e.ID)
	case mux.SessionFailed:
		if e.Reason == mux.ConnectError && e.Err != nil {
			return fmt.Sprintf("[%d] failed: %s: %v", e.ID, e.Reason, e.Err)
		}
		return fmt.Sprintf("[%d] failed: %s", e.ID, e.Reason)
	case mux.MessageReceived:
		if e.Payload.IsText() {
			return fmt.Sprintf("[%d] <- %s (%d bytes)", e.ID, printable(e.Payload.Data), e.ByteCount)
		}
		return fmt.Sprintf("[%d] <- 0x%x (%d bytes, binary)", e.ID, e.Payload.Data, e.ByteCount)
	case mux.SessionClosed:
		if e.Err != nil {
			return fmt.Sprintf("[%d] closed: %s: %v", e.ID, e.Reason, e.Err)
		}
		return fmt.Sprintf("[%d] closed: %s", e.ID, e.Reason)
	default:
		return fmt.Sprintf("[%d] %T", ev.SessionID(), ev)
	}
}

// printable keeps each event on one line.
func printable(b []byte) string {
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		switch r {
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
		b = b[size:]
	}
	return sb.String()
}

func printStats(w io.Writer, s metrics.Snapshot) {
	fmt.Fprintf(w, "uptime %s  sessions %d active / %d opened / %d failed\n",
		s.Uptime, s.SessionsActive, s.SessionsTotal, s.OpenFailures)
	fmt.Fprintf(w, "frames %d in / %d out  bytes %d in / %d out  errors %d\n",
		s.FramesIn, s.FramesOut, s.BytesIn, s.BytesOut, s.ErrorsTotal)
	for _, ss := range s.Sessions {
		fmt.Fprintf(w, "[%d] %d B out / %d B in  (%d / %d frames)\n",
			ss.ID, ss.BytesOut, ss.BytesIn, ss.FramesOut, ss.FramesIn)
	}
	if s.LastErrorMessage != "" {
		fmt.Fprintf(w, "last error %s: %s\n", s.LastError, s.LastErrorMessage)
	}
}
