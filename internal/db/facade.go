// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// Package-level convenience wrappers around the initialized store. Callers
// that hold no Store of their own (CLI commands, the deploy layer) go
// through these after InitDB has run.
package db

import (
	"errors"

	"github.com/toeirei/waymaster/internal/model"
)

// ErrNotInitialized is returned when a package-level helper is called
// before InitDB.
var ErrNotInitialized = errors.New("database has not been initialized")

// GetStore returns the package-level store, or nil before InitDB.
func GetStore() Store {
	return store
}

// SetStore overrides the package-level store. Intended for tests that need
// to inject a fake.
func SetStore(s Store) {
	store = s
}

func AddNode(username, hostname string, class model.NodeClass, label, tags string) (int, error) {
	if store == nil {
		return 0, ErrNotInitialized
	}
	return store.AddNode(username, hostname, class, label, tags)
}

func GetAllNodes() ([]model.Node, error) {
	if store == nil {
		return nil, ErrNotInitialized
	}
	return store.GetAllNodes()
}

func GetAllActiveNodes() ([]model.Node, error) {
	if store == nil {
		return nil, ErrNotInitialized
	}
	return store.GetAllActiveNodes()
}

func GetNodeByID(id int) (*model.Node, error) {
	if store == nil {
		return nil, ErrNotInitialized
	}
	return store.GetNodeByID(id)
}

func GetNodeByAddress(username, hostname string) (*model.Node, error) {
	if store == nil {
		return nil, ErrNotInitialized
	}
	return store.GetNodeByAddress(username, hostname)
}

func DeleteNode(id int) error {
	if store == nil {
		return ErrNotInitialized
	}
	return store.DeleteNode(id)
}

func ToggleNodeStatus(id int) error {
	if store == nil {
		return ErrNotInitialized
	}
	return store.ToggleNodeStatus(id)
}

func UpdateNodeLabel(id int, label string) error {
	if store == nil {
		return ErrNotInitialized
	}
	return store.UpdateNodeLabel(id, label)
}

func UpdateNodeTags(id int, tags string) error {
	if store == nil {
		return ErrNotInitialized
	}
	return store.UpdateNodeTags(id, tags)
}

func UpdateNodeSerial(id, serial int) error {
	if store == nil {
		return ErrNotInitialized
	}
	return store.UpdateNodeSerial(id, serial)
}

func UpsertEdge(from, to string, weight int) error {
	if store == nil {
		return ErrNotInitialized
	}
	return store.UpsertEdge(from, to, weight)
}

func DeleteEdge(from, to string) error {
	if store == nil {
		return ErrNotInitialized
	}
	return store.DeleteEdge(from, to)
}

func GetAllEdges() ([]model.Edge, error) {
	if store == nil {
		return nil, ErrNotInitialized
	}
	return store.GetAllEdges()
}

func GetKnownHostKey(hostname string) (string, error) {
	if store == nil {
		return "", ErrNotInitialized
	}
	return store.GetKnownHostKey(hostname)
}

func AddKnownHostKey(hostname, key string) error {
	if store == nil {
		return ErrNotInitialized
	}
	return store.AddKnownHostKey(hostname, key)
}

func CreateSystemKey(publicKey, privateKey string) (int, error) {
	if store == nil {
		return 0, ErrNotInitialized
	}
	return store.CreateSystemKey(publicKey, privateKey)
}

func RotateSystemKey(publicKey, privateKey string) (int, error) {
	if store == nil {
		return 0, ErrNotInitialized
	}
	return store.RotateSystemKey(publicKey, privateKey)
}

func GetActiveSystemKey() (*model.SystemKey, error) {
	if store == nil {
		return nil, ErrNotInitialized
	}
	return store.GetActiveSystemKey()
}

func GetSystemKeyBySerial(serial int) (*model.SystemKey, error) {
	if store == nil {
		return nil, ErrNotInitialized
	}
	return store.GetSystemKeyBySerial(serial)
}

func HasSystemKeys() (bool, error) {
	if store == nil {
		return false, ErrNotInitialized
	}
	return store.HasSystemKeys()
}

func GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	if store == nil {
		return nil, ErrNotInitialized
	}
	return store.GetAllAuditLogEntries()
}

func LogAction(action, details string) error {
	if store == nil {
		return ErrNotInitialized
	}
	return store.LogAction(action, details)
}

func ExportDataForBackup() (*model.BackupData, error) {
	if store == nil {
		return nil, ErrNotInitialized
	}
	return store.ExportDataForBackup()
}

func ImportDataFromBackup(backup *model.BackupData) error {
	if store == nil {
		return ErrNotInitialized
	}
	return store.ImportDataFromBackup(backup)
}
