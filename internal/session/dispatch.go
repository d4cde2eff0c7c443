package session

import (
	"context"
	"log/slog"
	"slices"
	"time"

	lerrors "github.com/martin-papy/qdrant-loader-mcp-server/internal/errors"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/jsonrpc"
)

// Handle processes one framed message. Frames produced for it go to sink.
// The returned channel is closed once the last frame for this message has
// been emitted; for notifications and synchronous methods it is already
// closed on return.
func (s *Session) Handle(ctx context.Context, data []byte, sink Sink) <-chan struct{} {
	req, rpcErr := jsonrpc.Parse(data)
	if rpcErr != nil {
		s.logger.Debug("request_rejected",
			slog.Int("code", rpcErr.Code),
			slog.String("message", rpcErr.Message))
		_ = s.emit(sink, errorFrame(req.ID, rpcErr))
		return closedChan()
	}

	if req.HasID {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()
	}

	state := s.State()
	ok, known := permits(req.Method, state)
	switch {
	case !known:
		if req.IsNotification() {
			s.logger.Debug("notification_ignored", slog.String("method", req.Method))
			return closedChan()
		}
		_ = s.emit(sink, errorFrame(req.ID, jsonrpc.MethodNotFound(req.Method)))
		return closedChan()
	case !ok:
		s.logger.Warn("method_not_allowed",
			slog.String("method", req.Method),
			slog.String("state", state.String()))
		if req.IsNotification() {
			return closedChan()
		}
		err := lerrors.InvalidSessionState(req.Method, state.String())
		_ = s.emit(sink, errorFrame(req.ID, jsonrpc.FromError(err)))
		return closedChan()
	}

	switch req.Method {
	case jsonrpc.MethodInitialize:
		s.handleInitialize(req, sink)
	case jsonrpc.MethodInitialized, jsonrpc.MethodInitializedNotify:
		s.handleInitialized(req, sink)
	case jsonrpc.MethodPing:
		s.reply(req, sink, struct{}{})
	case jsonrpc.MethodToolsList:
		s.reply(req, sink, map[string]any{"tools": []Tool{SearchTool}})
	case jsonrpc.MethodCancelRequest, jsonrpc.MethodCancelled:
		s.handleCancel(req, sink)
	case jsonrpc.MethodExit:
		s.handleExit(req, sink)
	case jsonrpc.MethodShutdown:
		return s.handleShutdown(req, sink)
	case jsonrpc.MethodSearch:
		return s.handleSearch(ctx, req, sink)
	}
	return closedChan()
}

// reply answers a request; notifications get nothing.
func (s *Session) reply(req jsonrpc.Request, sink Sink, result any) {
	if req.IsNotification() {
		return
	}
	_ = s.emit(sink, resultFrame(req.ID, result))
}

func (s *Session) fail(req jsonrpc.Request, sink Sink, err error) {
	if req.IsNotification() {
		return
	}
	_ = s.emit(sink, errorFrame(req.ID, jsonrpc.FromError(err)))
}

func (s *Session) handleInitialize(req jsonrpc.Request, sink Sink) {
	var p InitializeParams
	if rpcErr := jsonrpc.DecodeParams(req.Params, &p); rpcErr != nil {
		s.fail(req, sink, rpcErr)
		return
	}
	if !slices.Contains(SupportedProtocolVersions, p.ProtocolVersion) {
		err := lerrors.New(lerrors.ErrCodeUnsupportedVersion, "unsupported protocol version", nil).
			WithDetail("requested", p.ProtocolVersion).
			WithDetail("supported", SupportedProtocolVersions[0])
		s.fail(req, sink, err)
		return
	}

	s.mu.Lock()
	if s.state != StateUninitialized {
		state := s.state
		s.mu.Unlock()
		s.fail(req, sink, lerrors.InvalidSessionState(req.Method, state.String()))
		return
	}
	s.streaming = s.cfg.Streaming && (p.Capabilities.Streaming == nil || *p.Capabilities.Streaming)
	s.client = p.ClientInfo
	result := InitializeResult{
		ProtocolVersion: p.ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools:     map[string]any{},
			Streaming: s.streaming,
		},
		ServerInfo: Implementation{Name: s.cfg.ServerName, Version: s.cfg.ServerVersion},
		SessionID:  s.id,
	}
	s.transition(StateNegotiating)
	s.mu.Unlock()

	s.logger.Info("session_initialized",
		slog.String("client", p.ClientInfo.Name),
		slog.String("client_version", p.ClientInfo.Version),
		slog.String("protocol_version", p.ProtocolVersion),
		slog.Bool("streaming", result.Capabilities.Streaming))
	s.reply(req, sink, result)
}

func (s *Session) handleInitialized(req jsonrpc.Request, sink Sink) {
	s.mu.Lock()
	if s.state == StateNegotiating {
		s.transition(StateReady)
	}
	s.mu.Unlock()
	s.reply(req, sink, struct{}{})
}

func (s *Session) handleCancel(req jsonrpc.Request, sink Sink) {
	var p CancelParams
	if rpcErr := jsonrpc.DecodeParams(req.Params, &p); rpcErr != nil {
		s.fail(req, sink, rpcErr)
		return
	}
	target := p.ID
	if target == nil {
		target = p.RequestID
	}
	if target == nil {
		s.fail(req, sink, jsonrpc.InvalidParams("id or requestId is required"))
		return
	}

	found := s.Cancel(*target)
	s.logger.Debug("cancel_requested",
		slog.String("request_id", target.String()),
		slog.Bool("found", found),
		slog.String("reason", p.Reason))
	s.reply(req, sink, struct{}{})
}

func (s *Session) handleExit(req jsonrpc.Request, sink Sink) {
	s.reply(req, sink, struct{}{})
	go func() { _ = s.Close() }()
}

// Cancel stops the in-flight search with the given id. No further frames
// are emitted for it. It reports whether such a search was running.
func (s *Session) Cancel(id jsonrpc.ID) bool {
	s.mu.Lock()
	c, ok := s.inflight[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	c.silenced.Store(true)
	c.cancel()
	return true
}

// handleShutdown moves Ready to Closing, waits up to ShutdownGrace for
// in-flight searches, force-cancels the rest, then responds and closes.
func (s *Session) handleShutdown(req jsonrpc.Request, sink Sink) <-chan struct{} {
	s.mu.Lock()
	if s.state != StateReady {
		state := s.state
		s.mu.Unlock()
		s.fail(req, sink, lerrors.InvalidSessionState(req.Method, state.String()))
		return closedChan()
	}
	s.transition(StateClosing)
	pending := len(s.inflight)
	s.mu.Unlock()

	s.logger.Info("session_draining",
		slog.Int("in_flight", pending),
		slog.Duration("grace", s.cfg.ShutdownGrace))

	done := make(chan struct{})
	go func() {
		defer close(done)

		drained := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(drained)
		}()

		select {
		case <-drained:
		case <-time.After(s.cfg.ShutdownGrace):
			forced := s.forceCancel()
			s.logger.Warn("session_drain_timeout", slog.Int("cancelled", forced))
			<-drained
		}

		s.reply(req, sink, struct{}{})

		s.mu.Lock()
		s.transition(StateClosed)
		s.mu.Unlock()
		s.cancelAll()
		s.pool.Release()
	}()
	return done
}

// forceCancel cancels every in-flight search; each still gets a cancelled
// error frame.
func (s *Session) forceCancel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.inflight {
		c.forced.Store(true)
		c.cancel()
	}
	return len(s.inflight)
}
