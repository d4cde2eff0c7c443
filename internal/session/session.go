// Package session implements the protocol session: a state machine that
// validates framed JSON-RPC messages, enforces the lifecycle
// (Uninitialized, Negotiating, Ready, Closing, Closed) and dispatches
// searches onto a bounded worker pool, streaming ranked results back
// through a Sink.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/jsonrpc"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/metrics"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/search"
)

// Searcher is the part of search.Engine the session needs.
type Searcher interface {
	ParseQuery(text string, sourceTypes []string, limit int) (search.Query, error)
	Search(ctx context.Context, q search.Query) (*search.Response, error)
}

// Config configures a Session.
type Config struct {
	ServerName     string
	ServerVersion  string
	MaxConcurrency int
	ShutdownGrace  time.Duration

	// Streaming is the server default; a client can opt out at initialize.
	Streaming bool
}

// DefaultConfig returns streaming on, 8 concurrent searches and a 10s grace.
func DefaultConfig() Config {
	return Config{
		ServerName:     "loadermcp",
		ServerVersion:  "dev",
		MaxConcurrency: 8,
		ShutdownGrace:  10 * time.Second,
		Streaming:      true,
	}
}

// call tracks one in-flight search.
type call struct {
	id     jsonrpc.ID
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// silenced stops further frames for this request.
	silenced atomic.Bool
	// forced marks cancellation by shutdown, which still gets an error frame.
	forced atomic.Bool
}

// Session is one client's protocol session. All lifecycle transitions are
// serialized by mu; searches run concurrently on the pool.
type Session struct {
	id      string
	cfg     Config
	engine  Searcher
	metrics *metrics.Metrics
	logger  *slog.Logger
	pool    *ants.Pool

	ctx       context.Context
	cancelAll context.CancelFunc

	mu        sync.Mutex
	state     State
	streaming bool
	client    Implementation
	inflight  map[jsonrpc.ID]*call
	requests  uint64

	wg        sync.WaitGroup
	closed    chan struct{}
	closeOnce sync.Once
}

// Option configures optional Session behavior.
type Option func(*Session)

// WithMetrics records transitions, frames and in-flight counts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New creates a session in the Uninitialized state.
func New(engine Searcher, cfg Config, opts ...Option) (*Session, error) {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultConfig().ShutdownGrace
	}

	pool, err := ants.NewPool(cfg.MaxConcurrency)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		engine:    engine,
		logger:    slog.Default(),
		pool:      pool,
		ctx:       ctx,
		cancelAll: cancel,
		state:     StateUninitialized,
		streaming: cfg.Streaming,
		inflight:  make(map[jsonrpc.ID]*call),
		closed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("session_id", s.id))
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Streaming reports whether searches are streamed as partial frames.
func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// RequestCount returns the number of requests (messages with an id) received.
func (s *Session) RequestCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// InFlight returns the number of searches not yet finished.
func (s *Session) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Done is closed when the session reaches Closed.
func (s *Session) Done() <-chan struct{} { return s.closed }

// transition must be called with mu held.
func (s *Session) transition(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.metrics.SessionTransition(from.String(), to.String())
	s.logger.Info("session_state_changed",
		slog.String("from", from.String()),
		slog.String("to", to.String()))
	if to == StateClosed {
		s.closeOnce.Do(func() { close(s.closed) })
	}
}

// Close handles transport closure: every in-flight search is cancelled
// without further frames and the session moves to Closed. It waits for the
// workers to return and is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	for _, c := range s.inflight {
		c.silenced.Store(true)
	}
	s.transition(StateClosed)
	s.mu.Unlock()

	s.cancelAll()
	s.wg.Wait()
	s.pool.Release()
	return nil
}

func (s *Session) emit(sink Sink, f Frame) error {
	if err := sink.Emit(f); err != nil {
		s.logger.Warn("frame_emit_failed",
			slog.String("request_id", f.RequestID.String()),
			slog.String("kind", string(f.Kind)),
			slog.String("error", err.Error()))
		return err
	}
	s.metrics.FrameEmitted(string(f.Kind))
	return nil
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Client returns the client identity sent at initialize.
func (s *Session) Client() Implementation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}
