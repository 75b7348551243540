// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package cloud

import (
	"context"
	"errors"
	"net"
	"reflect"
	"testing"

	"github.com/toeirei/waymaster/internal/testutil"
	"github.com/toeirei/waymaster/internal/wire"
)

// startServer runs a Server on a loopback listener and returns its address.
// The server is shut down when the test ends.
func startServer(t *testing.T, source TopologySource) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = NewServer(source).Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return ln.Addr().String()
}

// dialServer connects and completes the connectivity test.
func dialServer(t *testing.T, addr string) net.Conn {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to dial server: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if _, err := wire.Handshake(conn); err != nil {
		t.Fatalf("connectivity test failed: %v", err)
	}
	return conn
}

func TestServer_ServesWeights(t *testing.T) {
	source := &testutil.StaticTopology{}
	source.Edges = append(source.Edges,
		testutil.Edge("A", "B", 1),
		testutil.Edge("B", "C", 2),
	)

	addr := startServer(t, source)
	conn := dialServer(t, addr)

	if err := wire.WriteMessage(conn, wire.TypeWeightsRequest, wire.WeightsRequest{}); err != nil {
		t.Fatalf("failed to send weights request: %v", err)
	}

	var resp wire.WeightsResponse
	if err := wire.ReadMessage(conn, wire.TypeWeightsResponse, &resp); err != nil {
		t.Fatalf("failed to read weights response: %v", err)
	}
	if !reflect.DeepEqual(resp.Edges, source.Edges) {
		t.Errorf("edges = %v, want %v", resp.Edges, source.Edges)
	}
}

func TestServer_AnswersMultipleRequestsPerConnection(t *testing.T) {
	src := &testutil.StaticTopology{}
	src.Edges = append(src.Edges, testutil.Edge("A", "B", 1))

	addr := startServer(t, src)
	conn := dialServer(t, addr)

	for i := 0; i < 3; i++ {
		if err := wire.WriteMessage(conn, wire.TypeWeightsRequest, wire.WeightsRequest{}); err != nil {
			t.Fatalf("request %d: failed to send: %v", i, err)
		}
		var resp wire.WeightsResponse
		if err := wire.ReadMessage(conn, wire.TypeWeightsResponse, &resp); err != nil {
			t.Fatalf("request %d: failed to read: %v", i, err)
		}
		if len(resp.Edges) != 1 {
			t.Fatalf("request %d: got %d edges, want 1", i, len(resp.Edges))
		}
	}

	if got := src.FetchCount(); got != 3 {
		t.Errorf("FetchCount() = %d, want 3", got)
	}
}

func TestServer_SourceFailureYieldsInternalError(t *testing.T) {
	source := &testutil.StaticTopology{Err: errors.New("boom")}

	addr := startServer(t, source)
	conn := dialServer(t, addr)

	if err := wire.WriteMessage(conn, wire.TypeWeightsRequest, wire.WeightsRequest{}); err != nil {
		t.Fatalf("failed to send weights request: %v", err)
	}

	var resp wire.WeightsResponse
	err := wire.ReadMessage(conn, wire.TypeWeightsResponse, &resp)

	var remote *wire.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %v, want *wire.RemoteError", err)
	}
	if remote.Code != wire.CodeInternal {
		t.Errorf("code = %q, want %q", remote.Code, wire.CodeInternal)
	}
}

func TestServer_UnexpectedFrameYieldsBadRequest(t *testing.T) {
	addr := startServer(t, &testutil.StaticTopology{})
	conn := dialServer(t, addr)

	// A route request belongs on the relay leg, not here.
	if err := wire.WriteMessage(conn, wire.TypeRouteRequest, wire.RouteRequest{Source: "A", Destination: "B"}); err != nil {
		t.Fatalf("failed to send frame: %v", err)
	}

	var resp wire.WeightsResponse
	err := wire.ReadMessage(conn, wire.TypeWeightsResponse, &resp)

	var remote *wire.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %v, want *wire.RemoteError", err)
	}
	if remote.Code != wire.CodeBadRequest {
		t.Errorf("code = %q, want %q", remote.Code, wire.CodeBadRequest)
	}
}
