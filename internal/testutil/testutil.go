// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// package testutil provides shared test doubles for the network and
// topology layers.
package testutil

import (
	"context"
	"sync"

	"github.com/toeirei/waymaster/internal/model"
)

// StaticTopology is a test double serving a fixed edge set. It satisfies
// both cloud.TopologySource and relay.WeightsFetcher.
type StaticTopology struct {
	mu    sync.Mutex
	Edges []model.Edge
	// Err, if set, is returned by every call.
	Err error
	// Fetches counts how often the topology was read.
	Fetches int
}

// GetAllEdges implements cloud.TopologySource.
func (s *StaticTopology) GetAllEdges() ([]model.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fetches++
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]model.Edge(nil), s.Edges...), nil
}

// FetchWeights implements relay.WeightsFetcher.
func (s *StaticTopology) FetchWeights(ctx context.Context) ([]model.Edge, error) {
	return s.GetAllEdges()
}

// FetchCount returns how often the topology was read.
func (s *StaticTopology) FetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Fetches
}

// Edge is a convenience constructor for test topologies.
func Edge(from, to string, weight int) model.Edge {
	return model.Edge{From: from, To: to, Weight: weight}
}
