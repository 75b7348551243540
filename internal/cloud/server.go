// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// package cloud implements the topology server: it owns nothing but a view
// of the edge store and hands the current edge weights to any relay that
// asks. Relays do the actual route computation.
package cloud // import "github.com/toeirei/waymaster/internal/cloud"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/toeirei/waymaster/internal/logging"
	"github.com/toeirei/waymaster/internal/model"
	"github.com/toeirei/waymaster/internal/wire"
)

// frameReadTimeout bounds how long the server waits for the next request
// frame on an idle connection.
const frameReadTimeout = 2 * time.Minute

// TopologySource supplies the current edge weights. *db.SqliteStore et al.
// satisfy this; tests plug in fakes.
type TopologySource interface {
	GetAllEdges() ([]model.Edge, error)
}

// Server serves topology weights over TCP.
type Server struct {
	source TopologySource
}

// NewServer returns a Server reading weights from source.
func NewServer(source TopologySource) *Server {
	return &Server{source: source}
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("cloud: failed to listen on %s: %w", addr, err)
	}
	logging.Infof("cloud: topology server listening on %s", ln.Addr())
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. Each connection is
// handled on its own goroutine.
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
			logging.Warnf("cloud: accept failed: %v", err)
			continue
		}
		go s.handleConn(conn)
	}
}

// handleConn runs the connectivity test, then answers weight requests until
// the peer hangs up.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr()
	logging.Debugf("cloud: connection from %s", remote)

	_ = conn.SetReadDeadline(time.Now().Add(frameReadTimeout))
	token, err := wire.AnswerHandshake(conn)
	if err != nil {
		logging.Warnf("cloud: connectivity test with %s failed: %v", remote, err)
		return
	}
	logging.Debugf("cloud: connectivity test with %s completed (session %s)", remote, token)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(frameReadTimeout))
		env, err := wire.ReadEnvelope(conn)
		if err != nil {
			if err == io.EOF {
				logging.Debugf("cloud: %s disconnected", remote)
			} else {
				logging.Warnf("cloud: read from %s failed: %v", remote, err)
			}
			return
		}

		switch env.Type {
		case wire.TypeWeightsRequest:
			edges, err := s.source.GetAllEdges()
			if err != nil {
				logging.Errorf("cloud: failed to load edge weights: %v", err)
				_ = wire.WriteMessage(conn, wire.TypeError, wire.ErrorResponse{
					Code:    wire.CodeInternal,
					Message: "failed to load edge weights",
				})
				continue
			}
			logging.Infof("cloud: sending %d edge weights to %s", len(edges), remote)
			if err := wire.WriteMessage(conn, wire.TypeWeightsResponse, wire.WeightsResponse{Edges: edges}); err != nil {
				logging.Warnf("cloud: failed to send weights to %s: %v", remote, err)
				return
			}
		default:
			logging.Warnf("cloud: unexpected %s frame from %s", env.Type, remote)
			_ = wire.WriteMessage(conn, wire.TypeError, wire.ErrorResponse{
				Code:    wire.CodeBadRequest,
				Message: fmt.Sprintf("unexpected frame type %q", env.Type),
			})
		}
	}
}
