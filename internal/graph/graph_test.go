// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package graph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/toeirei/waymaster/internal/model"
)

func edge(from, to string, weight int) model.Edge {
	return model.Edge{From: from, To: to, Weight: weight}
}

// The sample topology:
//
//	A --1-- B --2-- C
//	 \             /
//	  4---- D --1-+
//
// so A->C is cheaper via B (3) than via D (5).
func sampleEdges() []model.Edge {
	return []model.Edge{
		edge("A", "B", 1),
		edge("B", "C", 2),
		edge("A", "D", 4),
		edge("D", "C", 1),
	}
}

func TestShortestPath_PicksCheapestRoute(t *testing.T) {
	g := Build(sampleEdges())

	route, err := g.ShortestPath("A", "C")
	if err != nil {
		t.Fatalf("ShortestPath failed: %v", err)
	}

	wantHops := []string{"A", "B", "C"}
	if !reflect.DeepEqual(route.Hops, wantHops) {
		t.Errorf("hops = %v, want %v", route.Hops, wantHops)
	}
	if route.Cost != 3 {
		t.Errorf("cost = %d, want 3", route.Cost)
	}
}

func TestShortestPath_IsBidirectional(t *testing.T) {
	g := Build(sampleEdges())

	route, err := g.ShortestPath("C", "A")
	if err != nil {
		t.Fatalf("ShortestPath failed: %v", err)
	}

	wantHops := []string{"C", "B", "A"}
	if !reflect.DeepEqual(route.Hops, wantHops) {
		t.Errorf("hops = %v, want %v", route.Hops, wantHops)
	}
	if route.Cost != 3 {
		t.Errorf("cost = %d, want 3", route.Cost)
	}
}

func TestShortestPath_SameSourceAndDestination(t *testing.T) {
	g := Build(sampleEdges())

	route, err := g.ShortestPath("B", "B")
	if err != nil {
		t.Fatalf("ShortestPath failed: %v", err)
	}
	if len(route.Hops) != 1 || route.Hops[0] != "B" {
		t.Errorf("hops = %v, want [B]", route.Hops)
	}
	if route.Cost != 0 {
		t.Errorf("cost = %d, want 0", route.Cost)
	}
}

func TestShortestPath_UnknownWaypoint(t *testing.T) {
	g := Build(sampleEdges())

	if _, err := g.ShortestPath("A", "Z"); !errors.Is(err, ErrUnknownWaypoint) {
		t.Errorf("destination Z: err = %v, want ErrUnknownWaypoint", err)
	}
	if _, err := g.ShortestPath("Z", "A"); !errors.Is(err, ErrUnknownWaypoint) {
		t.Errorf("source Z: err = %v, want ErrUnknownWaypoint", err)
	}
}

func TestShortestPath_NoRoute(t *testing.T) {
	// Two disconnected components.
	g := Build([]model.Edge{
		edge("A", "B", 1),
		edge("X", "Y", 1),
	})

	if _, err := g.ShortestPath("A", "Y"); !errors.Is(err, ErrNoRoute) {
		t.Errorf("err = %v, want ErrNoRoute", err)
	}
}

func TestBuild_SkipsNonPositiveWeights(t *testing.T) {
	g := Build([]model.Edge{
		edge("A", "B", 0),
		edge("B", "C", -3),
		edge("C", "D", 1),
	})

	// A and B only appeared on invalid edges, so they are not in the graph.
	if g.Has("A") || g.Has("B") {
		t.Errorf("waypoints from non-positive edges should be absent")
	}
	if !g.Has("C") || !g.Has("D") {
		t.Errorf("waypoints from valid edges should be present")
	}
	if g.Waypoints() != 2 {
		t.Errorf("Waypoints() = %d, want 2", g.Waypoints())
	}
}

func TestShortestPath_EmptyGraph(t *testing.T) {
	g := Build(nil)

	if _, err := g.ShortestPath("A", "B"); !errors.Is(err, ErrUnknownWaypoint) {
		t.Errorf("err = %v, want ErrUnknownWaypoint", err)
	}
}

func TestRouteString(t *testing.T) {
	r := model.Route{Hops: []string{"A", "D", "E"}, Cost: 7}
	if got := r.String(); got != "A -> D -> E" {
		t.Errorf("String() = %q, want %q", got, "A -> D -> E")
	}
}
