package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	lerrors "github.com/martin-papy/qdrant-loader-mcp-server/internal/errors"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/jsonrpc"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/search"
)

// handleSearch validates params before dispatch, then runs the search on
// the pool. Frames for the request are emitted by the worker only.
func (s *Session) handleSearch(ctx context.Context, req jsonrpc.Request, sink Sink) <-chan struct{} {
	var p SearchParams
	if rpcErr := jsonrpc.DecodeParams(req.Params, &p); rpcErr != nil {
		s.fail(req, sink, lerrors.ValidationError(
			"search params must be an object with a string query, a string array source_types and an integer limit", nil).
			WithDetail("reason", rpcErr.Message))
		return closedChan()
	}

	limit := 0
	if p.Limit != nil {
		if *p.Limit <= 0 {
			s.fail(req, sink, lerrors.New(lerrors.ErrCodeLimitOutOfRange,
				fmt.Sprintf("limit must be between 1 and %d", search.MaxLimitBound), nil).
				WithDetail("limit", fmt.Sprint(*p.Limit)))
			return closedChan()
		}
		limit = *p.Limit
	}

	q, err := s.engine.ParseQuery(p.Query, p.SourceTypes, limit)
	if err != nil {
		s.fail(req, sink, err)
		return closedChan()
	}

	if req.IsNotification() {
		s.logger.Debug("search_notification_ignored")
		return closedChan()
	}

	c, err := s.register(ctx, req.ID)
	if err != nil {
		s.fail(req, sink, err)
		return closedChan()
	}

	// Submit blocks while the pool is saturated; the caller must not.
	go func() {
		if err := s.pool.Submit(func() { s.runSearch(c, q, sink) }); err != nil {
			defer s.finish(c)
			c.cancel()
			// The pool is only released by Close; a closed transport gets no frame.
			if errors.Is(err, ants.ErrPoolClosed) || s.State() == StateClosed {
				c.silenced.Store(true)
			}
			s.searchFailed(c, sink, lerrors.InternalError("search pool unavailable", err))
		}
	}()
	return c.done
}

// register records an in-flight search. It rechecks the state so no search
// starts once shutdown has begun.
func (s *Session) register(parent context.Context, id jsonrpc.ID) (*call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		return nil, lerrors.InvalidSessionState(jsonrpc.MethodSearch, s.state.String())
	}
	if _, dup := s.inflight[id]; dup {
		return nil, jsonrpc.InvalidRequest("request id already in flight")
	}

	ctx, cancel := context.WithCancel(s.ctx)
	if parent != nil {
		stop := context.AfterFunc(parent, cancel)
		prev := cancel
		cancel = func() {
			stop()
			prev()
		}
	}

	c := &call{id: id, cancel: cancel, done: make(chan struct{}), ctx: ctx}
	s.inflight[id] = c
	s.wg.Add(1)
	s.metrics.InFlight(1)
	return c, nil
}

func (s *Session) finish(c *call) {
	s.mu.Lock()
	delete(s.inflight, c.id)
	s.mu.Unlock()

	s.metrics.InFlight(-1)
	close(c.done)
	s.wg.Done()
}

func (s *Session) runSearch(c *call, q search.Query, sink Sink) {
	defer s.finish(c)
	defer c.cancel()

	start := time.Now()
	resp, err := s.safeSearch(c.ctx, q)
	if err != nil {
		s.searchFailed(c, sink, err)
		return
	}
	if c.silenced.Load() {
		return
	}

	if s.Streaming() {
		for i, r := range resp.Results {
			if c.silenced.Load() || c.ctx.Err() != nil {
				s.searchFailed(c, sink, context.Canceled)
				return
			}
			if err := s.emit(sink, partialFrame(c.id, PartialParams{ID: c.id, Rank: i + 1, Result: r})); err != nil {
				c.silenced.Store(true)
				return
			}
		}
		_ = s.emit(sink, resultFrame(c.id, Completion{
			Count:     len(resp.Results),
			Truncated: resp.Truncated,
			Degraded:  resp.Degraded,
		}))
	} else {
		_ = s.emit(sink, resultFrame(c.id, SearchResponse{
			Results:   resp.Results,
			Count:     len(resp.Results),
			Truncated: resp.Truncated,
			Degraded:  resp.Degraded,
		}))
	}

	s.logger.Debug("search_streamed",
		slog.String("request_id", c.id.String()),
		slog.Int("count", len(resp.Results)),
		slog.Duration("duration", time.Since(start)))
}

// safeSearch turns a panic in scoring or ranking into an internal error so
// the session stays Ready.
func (s *Session) safeSearch(ctx context.Context, q search.Query) (resp *search.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("search_panic", slog.Any("panic", r))
			resp, err = nil, lerrors.InternalError("search aborted", fmt.Errorf("panic: %v", r))
		}
	}()
	resp, err = s.engine.Search(ctx, q)
	if err == nil && resp == nil {
		err = lerrors.InternalError("search returned no response", nil)
	}
	return resp, err
}

// searchFailed emits the terminal error frame unless the client cancelled.
func (s *Session) searchFailed(c *call, sink Sink, err error) {
	if c.silenced.Load() {
		return
	}
	if c.forced.Load() || (c.ctx.Err() != nil && errors.Is(err, context.Canceled)) {
		err = context.Canceled
	}
	_ = s.emit(sink, errorFrame(c.id, jsonrpc.FromError(err)))
}
