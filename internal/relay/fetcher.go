// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// package relay implements the high-power node: it accepts route requests
// from vehicles, pulls edge weights from the cloud server (through an
// optional Redis cache) and answers with Dijkstra-computed shortest paths.
package relay // import "github.com/toeirei/waymaster/internal/relay"

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/toeirei/waymaster/internal/logging"
	"github.com/toeirei/waymaster/internal/model"
	"github.com/toeirei/waymaster/internal/wire"
)

// WeightsFetcher supplies the current topology from wherever it
// authoritatively lives.
type WeightsFetcher interface {
	FetchWeights(ctx context.Context) ([]model.Edge, error)
}

// CloudFetcher fetches edge weights from the cloud server over TCP.
type CloudFetcher struct {
	// Addr is the cloud server address (host:port).
	Addr string
	// Timeout bounds the whole fetch: dial, connectivity test and transfer.
	// Zero means DefaultFetchTimeout.
	Timeout time.Duration
}

// DefaultFetchTimeout is used when CloudFetcher.Timeout is zero.
const DefaultFetchTimeout = 10 * time.Second

// FetchWeights dials the cloud server, runs the connectivity test and
// requests the full set of edge weights.
func (f *CloudFetcher) FetchWeights(ctx context.Context) ([]model.Edge, error) {
	timeout := f.Timeout
	if timeout == 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", f.Addr)
	if err != nil {
		return nil, fmt.Errorf("relay: failed to connect to cloud server %s: %w", f.Addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := wire.Handshake(conn); err != nil {
		return nil, fmt.Errorf("relay: cloud server %s: %w", f.Addr, err)
	}

	if err := wire.WriteMessage(conn, wire.TypeWeightsRequest, wire.WeightsRequest{}); err != nil {
		return nil, err
	}
	var resp wire.WeightsResponse
	if err := wire.ReadMessage(conn, wire.TypeWeightsResponse, &resp); err != nil {
		return nil, fmt.Errorf("relay: failed to receive weights from %s: %w", f.Addr, err)
	}

	logging.Debugf("relay: received %d edge weights from cloud server", len(resp.Edges))
	return resp.Edges, nil
}
