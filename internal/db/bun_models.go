// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"database/sql"
	"time"

	"github.com/toeirei/waymaster/internal/model"
	"github.com/uptrace/bun"
)

// NodeModel maps the `nodes` table for Bun queries.
type NodeModel struct {
	bun.BaseModel `bun:"table:nodes"`
	ID            int            `bun:"id,pk,autoincrement"`
	Username      string         `bun:"username"`
	Hostname      string         `bun:"hostname"`
	Class         string         `bun:"class"`
	Label         sql.NullString `bun:"label"`
	Tags          sql.NullString `bun:"tags"`
	Serial        int            `bun:"serial"`
	IsActive      bool           `bun:"is_active"`
}

// EdgeModel maps the `edges` table for Bun queries.
type EdgeModel struct {
	bun.BaseModel `bun:"table:edges"`
	ID            int          `bun:"id,pk,autoincrement"`
	FromWaypoint  string       `bun:"from_waypoint"`
	ToWaypoint    string       `bun:"to_waypoint"`
	Weight        int          `bun:"weight"`
	UpdatedAt     sql.NullTime `bun:"updated_at"`
}

// SystemKeyModel maps the `system_keys` table for Bun queries.
type SystemKeyModel struct {
	bun.BaseModel `bun:"table:system_keys"`
	ID            int    `bun:"id,pk,autoincrement"`
	Serial        int    `bun:"serial"`
	PublicKey     string `bun:"public_key"`
	PrivateKey    string `bun:"private_key"`
	IsActive      bool   `bun:"is_active"`
}

// KnownHostModel maps the `known_hosts` table for Bun queries.
type KnownHostModel struct {
	bun.BaseModel `bun:"table:known_hosts"`
	Hostname      string `bun:"hostname,pk"`
	Key           string `bun:"key"`
}

// AuditLogModel maps the `audit_log` table for Bun queries.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int            `bun:"id,pk,autoincrement"`
	Timestamp     string         `bun:"timestamp"`
	Username      sql.NullString `bun:"username"`
	Action        string         `bun:"action"`
	Details       sql.NullString `bun:"details"`
}

func nodeModelToModel(m NodeModel) model.Node {
	return model.Node{
		ID:       m.ID,
		Username: m.Username,
		Hostname: m.Hostname,
		Class:    model.NodeClass(m.Class),
		Label:    m.Label.String,
		Tags:     m.Tags.String,
		Serial:   m.Serial,
		IsActive: m.IsActive,
	}
}

func edgeModelToModel(m EdgeModel) model.Edge {
	e := model.Edge{
		ID:     m.ID,
		From:   m.FromWaypoint,
		To:     m.ToWaypoint,
		Weight: m.Weight,
	}
	if m.UpdatedAt.Valid {
		e.UpdatedAt = m.UpdatedAt.Time
	}
	return e
}

func systemKeyModelToModel(m SystemKeyModel) model.SystemKey {
	return model.SystemKey{
		ID:         m.ID,
		Serial:     m.Serial,
		PublicKey:  m.PublicKey,
		PrivateKey: m.PrivateKey,
		IsActive:   m.IsActive,
	}
}

func auditLogModelToModel(m AuditLogModel) model.AuditLogEntry {
	return model.AuditLogEntry{
		ID:        m.ID,
		Timestamp: m.Timestamp,
		Username:  m.Username.String,
		Action:    m.Action,
		Details:   m.Details.String,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
