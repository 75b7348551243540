// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"github.com/toeirei/waymaster/internal/model"
)

// Store defines the interface for all database operations in Waymaster.
// This allows for multiple database backends to be implemented.
type Store interface {
	// Node methods
	AddNode(username, hostname string, class model.NodeClass, label, tags string) (int, error)
	GetAllNodes() ([]model.Node, error)
	GetAllActiveNodes() ([]model.Node, error)
	GetNodeByID(id int) (*model.Node, error)
	GetNodeByAddress(username, hostname string) (*model.Node, error)
	DeleteNode(id int) error
	ToggleNodeStatus(id int) error
	UpdateNodeLabel(id int, label string) error
	UpdateNodeTags(id int, tags string) error
	UpdateNodeSerial(id, serial int) error

	// Edge methods
	UpsertEdge(from, to string, weight int) error
	DeleteEdge(from, to string) error
	GetAllEdges() ([]model.Edge, error)

	// Host Key methods
	GetKnownHostKey(hostname string) (string, error)
	AddKnownHostKey(hostname, key string) error

	// Deploy Key methods
	CreateSystemKey(publicKey, privateKey string) (int, error)
	RotateSystemKey(publicKey, privateKey string) (int, error)
	GetActiveSystemKey() (*model.SystemKey, error)
	GetSystemKeyBySerial(serial int) (*model.SystemKey, error)
	HasSystemKeys() (bool, error)

	// Audit Log methods
	GetAllAuditLogEntries() ([]model.AuditLogEntry, error)
	LogAction(action string, details string) error

	// Backup methods
	ExportDataForBackup() (*model.BackupData, error)
	ImportDataFromBackup(backup *model.BackupData) error
}
