// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// package vehicle is the low-power node's client library: connect to a
// relay, ask for a route, disconnect.
package vehicle // import "github.com/toeirei/waymaster/internal/vehicle"

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/toeirei/waymaster/internal/model"
	"github.com/toeirei/waymaster/internal/wire"
)

// DefaultRequestTimeout bounds a whole route request: dial, connectivity
// test and answer.
const DefaultRequestTimeout = 10 * time.Second

// Client asks a relay for routes. The zero value is not usable; set Addr.
type Client struct {
	// Addr is the relay address (host:port).
	Addr string
	// Timeout bounds each request. Zero means DefaultRequestTimeout.
	Timeout time.Duration
}

// RequestRoute connects to the relay and asks for the shortest path from
// source to destination. Typed relay failures are returned as a
// *wire.RemoteError so callers can inspect the code.
func (c *Client) RequestRoute(ctx context.Context, source, destination string) (model.Route, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return model.Route{}, fmt.Errorf("vehicle: failed to connect to relay %s: %w", c.Addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := wire.Handshake(conn); err != nil {
		return model.Route{}, fmt.Errorf("vehicle: relay %s: %w", c.Addr, err)
	}

	req := wire.RouteRequest{
		ID:          uuid.NewString(),
		Source:      source,
		Destination: destination,
	}
	if err := wire.WriteMessage(conn, wire.TypeRouteRequest, req); err != nil {
		return model.Route{}, err
	}

	var resp wire.RouteResponse
	if err := wire.ReadMessage(conn, wire.TypeRouteResponse, &resp); err != nil {
		var remote *wire.RemoteError
		if errors.As(err, &remote) {
			return model.Route{}, remote
		}
		return model.Route{}, fmt.Errorf("vehicle: failed to receive route from %s: %w", c.Addr, err)
	}
	if resp.ID != req.ID {
		return model.Route{}, fmt.Errorf("vehicle: relay answered request %q, expected %q", resp.ID, req.ID)
	}

	return model.Route{Hops: resp.Hops, Cost: resp.Cost}, nil
}
