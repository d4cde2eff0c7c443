// Package transport carries protocol bytes between a client and a
// session.Session: newline-delimited JSON over stdio, or NDJSON streamed
// over HTTP.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/session"
)

// MaxMessageSize bounds one framed message.
const MaxMessageSize = 1 << 20

// Stdio serves a single session over newline-delimited JSON. Nothing else
// may write to out while Serve runs.
type Stdio struct {
	session *session.Session
	in      io.Reader
	logger  *slog.Logger

	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdio creates a stdio transport for sess.
func NewStdio(sess *session.Session, in io.Reader, out io.Writer) *Stdio {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	return &Stdio{
		session: sess,
		in:      in,
		logger:  slog.Default(),
		enc:     enc,
	}
}

// Emit writes one frame as a line. It implements session.Sink.
func (t *Stdio) Emit(f session.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enc.Encode(f)
}

// Serve reads messages until EOF, context cancellation or session close.
// EOF counts as transport closure: in-flight searches are dropped silently.
func (t *Stdio) Serve(ctx context.Context) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(t.in)
		scanner.Buffer(make([]byte, 64*1024), MaxMessageSize)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			msg := make([]byte, len(line))
			copy(msg, line)
			select {
			case lines <- msg:
			case <-ctx.Done():
				return
			case <-t.session.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	t.logger.Info("stdio_transport_started", slog.String("session_id", t.session.ID()))

	for {
		select {
		case <-ctx.Done():
			_ = t.session.Close()
			return ctx.Err()
		case <-t.session.Done():
			t.logger.Info("stdio_transport_stopped", slog.String("reason", "session_closed"))
			return nil
		case msg, ok := <-lines:
			if !ok {
				_ = t.session.Close()
				var err error
				select {
				case err = <-readErr:
				default:
				}
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read stdin: %w", err)
				}
				t.logger.Info("stdio_transport_stopped", slog.String("reason", "eof"))
				return nil
			}
			t.session.Handle(ctx, msg, t)
		}
	}
}
