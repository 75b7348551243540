// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the core data structures shared across Waymaster:
// fleet nodes, topology edges, computed routes and the audit trail.
package model // import "github.com/toeirei/waymaster/internal/model"

import (
	"fmt"
	"time"
)

// NodeClass distinguishes the two roles a fleet node can play in the network.
type NodeClass string

const (
	// NodeClassRelay is a high-power node that serves route requests.
	NodeClassRelay NodeClass = "relay"
	// NodeClassVehicle is a low-power node that only asks for routes.
	NodeClassVehicle NodeClass = "vehicle"
)

// Node represents a managed machine in the fleet (e.g. deploy@relay-01).
// It is the target of agent deployments over SSH.
type Node struct {
	ID       int
	Username string
	Hostname string
	Class    NodeClass
	Label    string
	Tags     string
	Serial   int
	IsActive bool
}

// String returns the user@host representation.
func (n Node) String() string {
	return fmt.Sprintf("%s@%s", n.Username, n.Hostname)
}

// Edge is a weighted, undirected road segment between two waypoints.
// The store canonicalizes the endpoint order so (A,B) and (B,A) are the
// same edge.
type Edge struct {
	ID        int       `json:"-"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Weight    int       `json:"weight"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// String returns the A--B(w) representation used in logs and CLI output.
func (e Edge) String() string {
	return fmt.Sprintf("%s--%s(%d)", e.From, e.To, e.Weight)
}

// Route is a computed shortest path. Hops[0] is the source and
// Hops[len(Hops)-1] is the destination; Cost is the sum of the edge
// weights along the way.
type Route struct {
	Hops []string
	Cost int
}

// String renders the route the way vehicle operators see it: A -> D -> E.
func (r Route) String() string {
	out := ""
	for i, hop := range r.Hops {
		if i > 0 {
			out += " -> "
		}
		out += hop
	}
	return out
}

// SystemKey is the managed deploy keypair used to authenticate against
// fleet nodes. Only one key is active at a time; older serials are kept
// so nodes that were last deployed with them can still be reached.
type SystemKey struct {
	ID         int
	Serial     int
	PublicKey  string
	PrivateKey string
	IsActive   bool
}

// KnownHost pins the SSH host key for a fleet node's hostname.
type KnownHost struct {
	Hostname string
	Key      string
}

// AuditLogEntry records a single mutating action against the database,
// attributed to the OS user who ran it.
type AuditLogEntry struct {
	ID        int
	Timestamp string
	Username  string
	Action    string
	Details   string
}

// BackupData is the full, consistent snapshot written by `waymaster backup`
// and consumed by `waymaster restore`.
type BackupData struct {
	Version    int             `json:"version"`
	ExportedAt time.Time       `json:"exported_at"`
	Nodes      []Node          `json:"nodes"`
	Edges      []Edge          `json:"edges"`
	SystemKeys []SystemKey     `json:"system_keys"`
	KnownHosts []KnownHost     `json:"known_hosts"`
	AuditLog   []AuditLogEntry `json:"audit_log"`
}
