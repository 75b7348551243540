// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// package graph builds an in-memory adjacency view of the road topology and
// computes shortest paths with Dijkstra's algorithm. Edges are treated as
// bidirectional, matching how the topology is maintained.
package graph // import "github.com/toeirei/waymaster/internal/graph"

import (
	"container/heap"
	"errors"

	"github.com/toeirei/waymaster/internal/model"
)

// ErrUnknownWaypoint is returned when the source or destination waypoint
// does not appear in any edge of the topology.
var ErrUnknownWaypoint = errors.New("unknown waypoint")

// ErrNoRoute is returned when the source and destination are both known
// but no sequence of edges connects them.
var ErrNoRoute = errors.New("no route between waypoints")

type neighbor struct {
	waypoint string
	weight   int
}

// Graph is an adjacency-list view over a set of undirected weighted edges.
// It is immutable after Build and safe for concurrent readers.
type Graph struct {
	adj map[string][]neighbor
}

// Build constructs a Graph from topology edges. Every edge contributes both
// directions. Edges with non-positive weights are skipped; the store rejects
// them on write, so seeing one here means the topology predates validation.
func Build(edges []model.Edge) *Graph {
	g := &Graph{adj: make(map[string][]neighbor, len(edges)*2)}
	for _, e := range edges {
		if e.Weight <= 0 || e.From == "" || e.To == "" {
			continue
		}
		g.adj[e.From] = append(g.adj[e.From], neighbor{waypoint: e.To, weight: e.Weight})
		g.adj[e.To] = append(g.adj[e.To], neighbor{waypoint: e.From, weight: e.Weight})
	}
	return g
}

// Has reports whether the waypoint appears in the topology.
func (g *Graph) Has(waypoint string) bool {
	_, ok := g.adj[waypoint]
	return ok
}

// Waypoints returns the number of distinct waypoints in the topology.
func (g *Graph) Waypoints() int {
	return len(g.adj)
}

// queueItem is a pending visit in the Dijkstra priority queue.
type queueItem struct {
	waypoint string
	dist     int
}

type priorityQueue []queueItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(queueItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// ShortestPath computes the minimum-cost path between two waypoints.
// If source equals destination, the route is the single waypoint with
// cost zero. Returns ErrUnknownWaypoint if either endpoint is not part
// of the topology, and ErrNoRoute if the endpoints are disconnected.
func (g *Graph) ShortestPath(source, destination string) (model.Route, error) {
	if !g.Has(source) || !g.Has(destination) {
		return model.Route{}, ErrUnknownWaypoint
	}
	if source == destination {
		return model.Route{Hops: []string{source}, Cost: 0}, nil
	}

	dist := map[string]int{source: 0}
	prev := map[string]string{}

	pq := &priorityQueue{{waypoint: source, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(queueItem)

		// Stale entry: a shorter path to this waypoint was already settled.
		if d, ok := dist[cur.waypoint]; ok && cur.dist > d {
			continue
		}

		if cur.waypoint == destination {
			return model.Route{Hops: reconstruct(prev, source, destination), Cost: cur.dist}, nil
		}

		for _, nb := range g.adj[cur.waypoint] {
			candidate := cur.dist + nb.weight
			if d, ok := dist[nb.waypoint]; !ok || candidate < d {
				dist[nb.waypoint] = candidate
				prev[nb.waypoint] = cur.waypoint
				heap.Push(pq, queueItem{waypoint: nb.waypoint, dist: candidate})
			}
		}
	}

	return model.Route{}, ErrNoRoute
}

// reconstruct walks the predecessor map backwards from destination to source.
func reconstruct(prev map[string]string, source, destination string) []string {
	hops := []string{destination}
	for cur := destination; cur != source; {
		cur = prev[cur]
		hops = append(hops, cur)
	}
	// Reverse in place so hops run source -> destination.
	for i, j := 0, len(hops)-1; i < j; i, j = i+1, j-1 {
		hops[i], hops[j] = hops[j], hops[i]
	}
	return hops
}
