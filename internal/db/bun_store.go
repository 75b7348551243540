// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the shared Bun-backed implementation of the Store
// interface. The per-dialect store types embed bunStore and only override
// behavior where the engines genuinely differ.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os/user"
	"strings"
	"time"

	"github.com/toeirei/waymaster/internal/model"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// bunStore implements Store on top of a *bun.DB. All methods use short-lived
// background contexts; callers needing cancellation use the network layers,
// not the store.
type bunStore struct {
	bun *bun.DB
}

// validateWaypoint checks the waypoint naming invariant: a non-empty token
// without whitespace.
func validateWaypoint(name string) error {
	if name == "" {
		return errors.New("waypoint name must not be empty")
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return fmt.Errorf("waypoint name %q must not contain whitespace", name)
	}
	return nil
}

// canonicalPair orders an edge's endpoints so (A,B) and (B,A) address the
// same row.
func canonicalPair(from, to string) (string, string) {
	if from > to {
		return to, from
	}
	return from, to
}

// --- Node methods ---

func (s *bunStore) AddNode(username, hostname string, class model.NodeClass, label, tags string) (int, error) {
	if username == "" || hostname == "" {
		return 0, errors.New("username and hostname must not be empty")
	}
	if class != model.NodeClassRelay && class != model.NodeClassVehicle {
		return 0, fmt.Errorf("unknown node class %q", class)
	}
	ctx := context.Background()
	m := &NodeModel{
		Username: username,
		Hostname: hostname,
		Class:    string(class),
		Label:    nullString(label),
		Tags:     nullString(tags),
		Serial:   0,
		IsActive: true,
	}
	if _, err := s.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		return 0, MapDBError(err)
	}
	_ = s.LogAction("ADD_NODE", fmt.Sprintf("node: %s@%s, class: %s", username, hostname, class))
	return m.ID, nil
}

func (s *bunStore) GetAllNodes() ([]model.Node, error) {
	ctx := context.Background()
	var ms []NodeModel
	if err := s.bun.NewSelect().Model(&ms).Order("hostname ASC", "username ASC").Scan(ctx); err != nil {
		return nil, err
	}
	nodes := make([]model.Node, 0, len(ms))
	for _, m := range ms {
		nodes = append(nodes, nodeModelToModel(m))
	}
	return nodes, nil
}

func (s *bunStore) GetAllActiveNodes() ([]model.Node, error) {
	ctx := context.Background()
	var ms []NodeModel
	if err := s.bun.NewSelect().Model(&ms).Where("is_active = ?", true).Order("hostname ASC", "username ASC").Scan(ctx); err != nil {
		return nil, err
	}
	nodes := make([]model.Node, 0, len(ms))
	for _, m := range ms {
		nodes = append(nodes, nodeModelToModel(m))
	}
	return nodes, nil
}

func (s *bunStore) GetNodeByID(id int) (*model.Node, error) {
	ctx := context.Background()
	var m NodeModel
	err := s.bun.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	n := nodeModelToModel(m)
	return &n, nil
}

func (s *bunStore) GetNodeByAddress(username, hostname string) (*model.Node, error) {
	ctx := context.Background()
	var m NodeModel
	err := s.bun.NewSelect().Model(&m).
		Where("username = ?", username).
		Where("hostname = ?", hostname).
		Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	n := nodeModelToModel(m)
	return &n, nil
}

func (s *bunStore) DeleteNode(id int) error {
	ctx := context.Background()
	// Get node details before deleting for logging.
	details := fmt.Sprintf("id: %d", id)
	if n, err := s.GetNodeByID(id); err == nil {
		details = fmt.Sprintf("node: %s", n.String())
	}
	res, err := s.bun.NewDelete().Model((*NodeModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrNotFound
	}
	_ = s.LogAction("DELETE_NODE", details)
	return nil
}

func (s *bunStore) ToggleNodeStatus(id int) error {
	ctx := context.Background()
	n, err := s.GetNodeByID(id)
	if err != nil {
		return err // If we can't find it, we can't toggle it.
	}
	_, err = s.bun.NewUpdate().Model((*NodeModel)(nil)).
		Set("is_active = ?", !n.IsActive).
		Where("id = ?", id).Exec(ctx)
	if err == nil {
		_ = s.LogAction("TOGGLE_NODE_STATUS", fmt.Sprintf("node: %s, new_status: %t", n.String(), !n.IsActive))
	}
	return err
}

func (s *bunStore) UpdateNodeLabel(id int, label string) error {
	ctx := context.Background()
	_, err := s.bun.NewUpdate().Model((*NodeModel)(nil)).
		Set("label = ?", nullString(label)).
		Where("id = ?", id).Exec(ctx)
	if err == nil {
		_ = s.LogAction("UPDATE_NODE_LABEL", fmt.Sprintf("node_id: %d, new_label: '%s'", id, label))
	}
	return err
}

func (s *bunStore) UpdateNodeTags(id int, tags string) error {
	ctx := context.Background()
	_, err := s.bun.NewUpdate().Model((*NodeModel)(nil)).
		Set("tags = ?", nullString(tags)).
		Where("id = ?", id).Exec(ctx)
	if err == nil {
		_ = s.LogAction("UPDATE_NODE_TAGS", fmt.Sprintf("node_id: %d, new_tags: '%s'", id, tags))
	}
	return err
}

func (s *bunStore) UpdateNodeSerial(id, serial int) error {
	ctx := context.Background()
	// This is called during deployment, which is logged at a higher level.
	_, err := s.bun.NewUpdate().Model((*NodeModel)(nil)).
		Set("serial = ?", serial).
		Where("id = ?", id).Exec(ctx)
	return err
}

// --- Edge methods ---

func (s *bunStore) UpsertEdge(from, to string, weight int) error {
	if err := validateWaypoint(from); err != nil {
		return err
	}
	if err := validateWaypoint(to); err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("edge endpoints must differ, got %q twice", from)
	}
	if weight <= 0 {
		return fmt.Errorf("edge weight must be positive, got %d", weight)
	}

	ctx := context.Background()
	from, to = canonicalPair(from, to)
	m := &EdgeModel{
		FromWaypoint: from,
		ToWaypoint:   to,
		Weight:       weight,
		UpdatedAt:    nullTime(time.Now().UTC()),
	}

	q := s.bun.NewInsert().Model(m)
	if s.bun.Dialect().Name() == dialect.MySQL {
		q = q.On("DUPLICATE KEY UPDATE").
			Set("weight = VALUES(weight)").
			Set("updated_at = VALUES(updated_at)")
	} else {
		q = q.On("CONFLICT (from_waypoint, to_waypoint) DO UPDATE").
			Set("weight = EXCLUDED.weight").
			Set("updated_at = EXCLUDED.updated_at")
	}
	if _, err := q.Exec(ctx); err != nil {
		return MapDBError(err)
	}
	_ = s.LogAction("SET_EDGE", fmt.Sprintf("edge: %s--%s, weight: %d", from, to, weight))
	return nil
}

func (s *bunStore) DeleteEdge(from, to string) error {
	ctx := context.Background()
	from, to = canonicalPair(from, to)
	res, err := s.bun.NewDelete().Model((*EdgeModel)(nil)).
		Where("from_waypoint = ?", from).
		Where("to_waypoint = ?", to).Exec(ctx)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrNotFound
	}
	_ = s.LogAction("DELETE_EDGE", fmt.Sprintf("edge: %s--%s", from, to))
	return nil
}

func (s *bunStore) GetAllEdges() ([]model.Edge, error) {
	ctx := context.Background()
	var ms []EdgeModel
	if err := s.bun.NewSelect().Model(&ms).Order("from_waypoint ASC", "to_waypoint ASC").Scan(ctx); err != nil {
		return nil, err
	}
	edges := make([]model.Edge, 0, len(ms))
	for _, m := range ms {
		edges = append(edges, edgeModelToModel(m))
	}
	return edges, nil
}

// --- Host key methods ---

func (s *bunStore) GetKnownHostKey(hostname string) (string, error) {
	ctx := context.Background()
	var m KnownHostModel
	err := s.bun.NewSelect().Model(&m).Where("hostname = ?", hostname).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil // No key found is not an error, it's a state.
		}
		return "", err
	}
	return m.Key, nil
}

func (s *bunStore) AddKnownHostKey(hostname, key string) error {
	ctx := context.Background()
	// Upsert so a legitimately re-provisioned host can be re-trusted.
	m := &KnownHostModel{Hostname: hostname, Key: key}
	q := s.bun.NewInsert().Model(m)
	if s.bun.Dialect().Name() == dialect.MySQL {
		q = q.On("DUPLICATE KEY UPDATE").Set("`key` = VALUES(`key`)")
	} else {
		q = q.On("CONFLICT (hostname) DO UPDATE").Set("key = EXCLUDED.key")
	}
	_, err := q.Exec(ctx)
	if err == nil {
		_ = s.LogAction("TRUST_NODE", fmt.Sprintf("hostname: %s", hostname))
	}
	return err
}

// --- Deploy key methods ---

func (s *bunStore) CreateSystemKey(publicKey, privateKey string) (int, error) {
	ctx := context.Background()

	var max sql.NullInt64
	if err := s.bun.NewRaw("SELECT MAX(serial) FROM system_keys").Scan(ctx, &max); err != nil {
		return 0, err
	}
	newSerial := 1
	if max.Valid {
		newSerial = int(max.Int64) + 1
	}

	_, err := s.bun.NewInsert().Model(&SystemKeyModel{
		Serial:     newSerial,
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		IsActive:   true,
	}).Exec(ctx)
	if err != nil {
		return 0, err
	}
	_ = s.LogAction("CREATE_DEPLOY_KEY", fmt.Sprintf("serial: %d", newSerial))
	return newSerial, nil
}

// RotateSystemKey deactivates existing keys and inserts a new active key
// within a single transaction.
func (s *bunStore) RotateSystemKey(publicKey, privateKey string) (int, error) {
	ctx := context.Background()

	tx, err := s.bun.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	// Deactivate existing keys. Use a raw UPDATE because Bun requires a WHERE
	// clause for Update/Delete queries to prevent accidental full-table updates.
	if _, err := tx.NewRaw("UPDATE system_keys SET is_active = FALSE").Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to deactivate old deploy keys: %w", err)
	}

	var max sql.NullInt64
	if err := tx.NewRaw("SELECT MAX(serial) FROM system_keys").Scan(ctx, &max); err != nil {
		return 0, err
	}
	newSerial := 1
	if max.Valid {
		newSerial = int(max.Int64) + 1
	}

	if _, err := tx.NewInsert().Model(&SystemKeyModel{
		Serial:     newSerial,
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		IsActive:   true,
	}).Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to insert new deploy key: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	_ = s.LogAction("ROTATE_DEPLOY_KEY", fmt.Sprintf("new_serial: %d", newSerial))
	return newSerial, nil
}

func (s *bunStore) GetActiveSystemKey() (*model.SystemKey, error) {
	ctx := context.Background()
	var m SystemKeyModel
	err := s.bun.NewSelect().Model(&m).Where("is_active = ?", true).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	k := systemKeyModelToModel(m)
	return &k, nil
}

func (s *bunStore) GetSystemKeyBySerial(serial int) (*model.SystemKey, error) {
	ctx := context.Background()
	var m SystemKeyModel
	err := s.bun.NewSelect().Model(&m).Where("serial = ?", serial).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No key found with that serial.
		}
		return nil, err
	}
	k := systemKeyModelToModel(m)
	return &k, nil
}

func (s *bunStore) HasSystemKeys() (bool, error) {
	ctx := context.Background()
	count, err := s.bun.NewSelect().Model((*SystemKeyModel)(nil)).Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// --- Audit log methods ---

func (s *bunStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	ctx := context.Background()
	var ms []AuditLogModel
	if err := s.bun.NewSelect().Model(&ms).Order("id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	entries := make([]model.AuditLogEntry, 0, len(ms))
	for _, m := range ms {
		entries = append(entries, auditLogModelToModel(m))
	}
	return entries, nil
}

func (s *bunStore) LogAction(action string, details string) error {
	ctx := context.Background()
	username := ""
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	_, err := s.bun.NewInsert().Model(&AuditLogModel{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Username:  nullString(username),
		Action:    action,
		Details:   nullString(details),
	}).Exec(ctx)
	return err
}

// --- Backup methods ---

// ExportDataForBackup retrieves all data from the database for a backup.
// It uses a transaction to ensure a consistent snapshot of the data.
func (s *bunStore) ExportDataForBackup() (*model.BackupData, error) {
	ctx := context.Background()

	tx, err := s.bun.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		// Some engines (MySQL with certain isolation setups) reject read-only
		// transactions; retry without the option.
		tx, err = s.bun.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
	}
	defer func() { _ = tx.Rollback() }()

	backup := &model.BackupData{Version: 1, ExportedAt: time.Now().UTC()}

	var nodes []NodeModel
	if err := tx.NewSelect().Model(&nodes).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	for _, m := range nodes {
		backup.Nodes = append(backup.Nodes, nodeModelToModel(m))
	}

	var edges []EdgeModel
	if err := tx.NewSelect().Model(&edges).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	for _, m := range edges {
		backup.Edges = append(backup.Edges, edgeModelToModel(m))
	}

	var keys []SystemKeyModel
	if err := tx.NewSelect().Model(&keys).Order("serial ASC").Scan(ctx); err != nil {
		return nil, err
	}
	for _, m := range keys {
		backup.SystemKeys = append(backup.SystemKeys, systemKeyModelToModel(m))
	}

	var hosts []KnownHostModel
	if err := tx.NewSelect().Model(&hosts).Order("hostname ASC").Scan(ctx); err != nil {
		return nil, err
	}
	for _, m := range hosts {
		backup.KnownHosts = append(backup.KnownHosts, model.KnownHost{Hostname: m.Hostname, Key: m.Key})
	}

	var audit []AuditLogModel
	if err := tx.NewSelect().Model(&audit).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	for _, m := range audit {
		backup.AuditLog = append(backup.AuditLog, auditLogModelToModel(m))
	}

	return backup, nil
}

// ImportDataFromBackup restores the database from a backup data structure.
// It performs a full wipe-and-replace within a single transaction to ensure
// atomicity.
func (s *bunStore) ImportDataFromBackup(backup *model.BackupData) error {
	if backup == nil {
		return errors.New("backup data is nil")
	}
	ctx := context.Background()

	tx, err := s.bun.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"audit_log", "known_hosts", "system_keys", "edges", "nodes"} {
		if _, err := tx.NewRaw(fmt.Sprintf("DELETE FROM %s", table)).Exec(ctx); err != nil {
			return fmt.Errorf("failed to wipe %s: %w", table, err)
		}
	}

	for _, n := range backup.Nodes {
		m := &NodeModel{
			Username: n.Username,
			Hostname: n.Hostname,
			Class:    string(n.Class),
			Label:    nullString(n.Label),
			Tags:     nullString(n.Tags),
			Serial:   n.Serial,
			IsActive: n.IsActive,
		}
		if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
			return fmt.Errorf("failed to restore node %s: %w", n.String(), err)
		}
	}
	for _, e := range backup.Edges {
		from, to := canonicalPair(e.From, e.To)
		m := &EdgeModel{
			FromWaypoint: from,
			ToWaypoint:   to,
			Weight:       e.Weight,
			UpdatedAt:    nullTime(e.UpdatedAt),
		}
		if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
			return fmt.Errorf("failed to restore edge %s: %w", e.String(), err)
		}
	}
	for _, k := range backup.SystemKeys {
		m := &SystemKeyModel{
			Serial:     k.Serial,
			PublicKey:  k.PublicKey,
			PrivateKey: k.PrivateKey,
			IsActive:   k.IsActive,
		}
		if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
			return fmt.Errorf("failed to restore deploy key serial %d: %w", k.Serial, err)
		}
	}
	for _, h := range backup.KnownHosts {
		m := &KnownHostModel{Hostname: h.Hostname, Key: h.Key}
		if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
			return fmt.Errorf("failed to restore known host %s: %w", h.Hostname, err)
		}
	}
	for _, a := range backup.AuditLog {
		m := &AuditLogModel{
			Timestamp: a.Timestamp,
			Username:  nullString(a.Username),
			Action:    a.Action,
			Details:   nullString(a.Details),
		}
		if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
			return fmt.Errorf("failed to restore audit entry %d: %w", a.ID, err)
		}
	}

	return tx.Commit()
}
