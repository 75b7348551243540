// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package vehicle

import (
	"context"
	"errors"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/toeirei/waymaster/internal/wire"
)

// fakeRelay accepts one connection, answers the handshake, and lets the
// handler produce the response to a single route request.
func fakeRelay(t *testing.T, handler func(conn net.Conn, req wire.RouteRequest)) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := wire.AnswerHandshake(conn); err != nil {
			return
		}
		var req wire.RouteRequest
		if err := wire.ReadMessage(conn, wire.TypeRouteRequest, &req); err != nil {
			return
		}
		handler(conn, req)
	}()

	return ln.Addr().String()
}

func TestRequestRoute_Success(t *testing.T) {
	addr := fakeRelay(t, func(conn net.Conn, req wire.RouteRequest) {
		_ = wire.WriteMessage(conn, wire.TypeRouteResponse, wire.RouteResponse{
			ID:   req.ID,
			Hops: []string{req.Source, "M", req.Destination},
			Cost: 12,
		})
	})

	client := &Client{Addr: addr}
	route, err := client.RequestRoute(context.Background(), "A", "E")
	if err != nil {
		t.Fatalf("RequestRoute failed: %v", err)
	}

	wantHops := []string{"A", "M", "E"}
	if !reflect.DeepEqual(route.Hops, wantHops) {
		t.Errorf("hops = %v, want %v", route.Hops, wantHops)
	}
	if route.Cost != 12 {
		t.Errorf("cost = %d, want 12", route.Cost)
	}
}

func TestRequestRoute_RemoteErrorPassthrough(t *testing.T) {
	addr := fakeRelay(t, func(conn net.Conn, req wire.RouteRequest) {
		_ = wire.WriteMessage(conn, wire.TypeError, wire.ErrorResponse{
			ID:      req.ID,
			Code:    wire.CodeUnknownWaypoint,
			Message: "unknown waypoint",
		})
	})

	client := &Client{Addr: addr}
	_, err := client.RequestRoute(context.Background(), "A", "Z")

	var remote *wire.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %v, want *wire.RemoteError", err)
	}
	if remote.Code != wire.CodeUnknownWaypoint {
		t.Errorf("code = %q, want %q", remote.Code, wire.CodeUnknownWaypoint)
	}
}

func TestRequestRoute_RejectsMismatchedResponseID(t *testing.T) {
	addr := fakeRelay(t, func(conn net.Conn, req wire.RouteRequest) {
		_ = wire.WriteMessage(conn, wire.TypeRouteResponse, wire.RouteResponse{
			ID:   "someone-else",
			Hops: []string{"A", "B"},
			Cost: 1,
		})
	})

	client := &Client{Addr: addr}
	if _, err := client.RequestRoute(context.Background(), "A", "B"); err == nil {
		t.Fatalf("expected error for mismatched response ID, got nil")
	}
}

func TestRequestRoute_DialFailure(t *testing.T) {
	// Grab a port and close it again so the dial is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	client := &Client{Addr: addr, Timeout: 2 * time.Second}
	if _, err := client.RequestRoute(context.Background(), "A", "B"); err == nil {
		t.Fatalf("expected dial error, got nil")
	}
}
