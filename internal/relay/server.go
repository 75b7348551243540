// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/toeirei/waymaster/internal/graph"
	"github.com/toeirei/waymaster/internal/logging"
	"github.com/toeirei/waymaster/internal/model"
	"github.com/toeirei/waymaster/internal/wire"
)

// frameReadTimeout bounds how long the relay waits for the next request
// frame on an idle vehicle connection.
const frameReadTimeout = 2 * time.Minute

// TopologyCache is the read-through cache the relay consults before the
// fetcher. Get returns ErrCacheMiss when nothing usable is cached.
type TopologyCache interface {
	Get(ctx context.Context) ([]model.Edge, error)
	Put(ctx context.Context, edges []model.Edge) error
}

// Server answers vehicle route requests.
type Server struct {
	fetcher WeightsFetcher
	cache   TopologyCache // nil when caching is disabled
}

// NewServer returns a relay Server. cache may be nil to always fetch the
// topology directly from the fetcher.
func NewServer(fetcher WeightsFetcher, cache TopologyCache) *Server {
	return &Server{fetcher: fetcher, cache: cache}
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("relay: failed to listen on %s: %w", addr, err)
	}
	logging.Infof("relay: listening on %s", ln.Addr())
	return s.Serve(ctx, ln)
}

// Serve accepts vehicle connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil // shutdown requested
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Warnf("relay: accept failed: %v", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

// resolveTopology returns the current edge set: cache first, cloud server on
// miss. Cache failures are logged and never fail a request.
func (s *Server) resolveTopology(ctx context.Context) ([]model.Edge, error) {
	if s.cache != nil {
		edges, err := s.cache.Get(ctx)
		if err == nil {
			logging.Debugf("relay: topology served from cache (%d edges)", len(edges))
			return edges, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			logging.Warnf("relay: cache read failed: %v", err)
		}
	}

	edges, err := s.fetcher.FetchWeights(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, edges); err != nil {
			logging.Warnf("relay: cache write failed: %v", err)
		}
	}
	return edges, nil
}

// handleConn runs the connectivity test, then answers route requests until
// the vehicle hangs up.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr()
	logging.Debugf("relay: connection from %s", remote)

	_ = conn.SetReadDeadline(time.Now().Add(frameReadTimeout))
	if _, err := wire.AnswerHandshake(conn); err != nil {
		logging.Warnf("relay: connectivity test with %s failed: %v", remote, err)
		return
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(frameReadTimeout))
		env, err := wire.ReadEnvelope(conn)
		if err != nil {
			if err == io.EOF {
				logging.Debugf("relay: %s disconnected", remote)
			} else {
				logging.Warnf("relay: read from %s failed: %v", remote, err)
			}
			return
		}
		if env.Type != wire.TypeRouteRequest {
			logging.Warnf("relay: unexpected %s frame from %s", env.Type, remote)
			_ = wire.WriteMessage(conn, wire.TypeError, wire.ErrorResponse{
				Code:    wire.CodeBadRequest,
				Message: fmt.Sprintf("unexpected frame type %q", env.Type),
			})
			continue
		}

		var req wire.RouteRequest
		if err := wire.ReadPayload(env, &req); err != nil {
			_ = wire.WriteMessage(conn, wire.TypeError, wire.ErrorResponse{
				Code:    wire.CodeBadRequest,
				Message: "malformed route request",
			})
			continue
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}

		resp, errResp := s.answer(ctx, req)
		if errResp != nil {
			logging.Infof("relay: request %s %s->%s from %s failed: %s", req.ID, req.Source, req.Destination, remote, errResp.Code)
			if err := wire.WriteMessage(conn, wire.TypeError, *errResp); err != nil {
				return
			}
			continue
		}
		logging.Infof("relay: request %s %s->%s from %s answered (cost %d, %d hops)", req.ID, req.Source, req.Destination, remote, resp.Cost, len(resp.Hops))
		if err := wire.WriteMessage(conn, wire.TypeRouteResponse, *resp); err != nil {
			return
		}
	}
}

// answer resolves the topology and computes the route for a single request.
func (s *Server) answer(ctx context.Context, req wire.RouteRequest) (*wire.RouteResponse, *wire.ErrorResponse) {
	if req.Source == "" || req.Destination == "" {
		return nil, &wire.ErrorResponse{
			ID:      req.ID,
			Code:    wire.CodeBadRequest,
			Message: "source and destination must not be empty",
		}
	}

	edges, err := s.resolveTopology(ctx)
	if err != nil {
		logging.Errorf("relay: failed to resolve topology: %v", err)
		return nil, &wire.ErrorResponse{
			ID:      req.ID,
			Code:    wire.CodeInternal,
			Message: "topology unavailable",
		}
	}

	route, err := graph.Build(edges).ShortestPath(req.Source, req.Destination)
	switch {
	case errors.Is(err, graph.ErrUnknownWaypoint):
		return nil, &wire.ErrorResponse{
			ID:      req.ID,
			Code:    wire.CodeUnknownWaypoint,
			Message: fmt.Sprintf("unknown waypoint in %s -> %s", req.Source, req.Destination),
		}
	case errors.Is(err, graph.ErrNoRoute):
		return nil, &wire.ErrorResponse{
			ID:      req.ID,
			Code:    wire.CodeNoRoute,
			Message: fmt.Sprintf("no route from %s to %s", req.Source, req.Destination),
		}
	case err != nil:
		return nil, &wire.ErrorResponse{
			ID:      req.ID,
			Code:    wire.CodeInternal,
			Message: "route computation failed",
		}
	}

	return &wire.RouteResponse{ID: req.ID, Hops: route.Hops, Cost: route.Cost}, nil
}
