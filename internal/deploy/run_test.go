// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"strings"
	"testing"

	"github.com/toeirei/waymaster/internal/db"
	"github.com/toeirei/waymaster/internal/model"
)

func TestConnectForNode_NoBootstrapKey(t *testing.T) {
	newTestDB(t)

	node := model.Node{ID: 1, Username: "deploy", Hostname: "veh-01", Serial: 0}
	_, err := connectForNode(node)
	if err == nil {
		t.Fatalf("expected error when no deploy key exists")
	}
	if !strings.Contains(err.Error(), "keygen") {
		t.Errorf("error should point at keygen, got: %v", err)
	}
}

func TestRunChmodForNode_NoBootstrapKey(t *testing.T) {
	newTestDB(t)

	node := model.Node{ID: 1, Username: "deploy", Hostname: "veh-01", Serial: 0}
	err := RunChmodForNode(node, "/opt/waymaster/agent", 0o755)
	if err == nil {
		t.Fatalf("expected error when no deploy key exists")
	}
	if !strings.Contains(err.Error(), "keygen") {
		t.Errorf("error should point at keygen, got: %v", err)
	}
}

func TestConnectForNode_MissingSerialKey(t *testing.T) {
	newTestDB(t)

	if _, err := db.CreateSystemKey("pub-1", "priv-1"); err != nil {
		t.Fatalf("CreateSystemKey failed: %v", err)
	}

	// The node was last deployed with a serial that no longer exists.
	node := model.Node{ID: 1, Username: "deploy", Hostname: "veh-01", Serial: 7}
	_, err := connectForNode(node)
	if err == nil {
		t.Fatalf("expected error for missing serial key")
	}
	if !strings.Contains(err.Error(), "7") {
		t.Errorf("error should name the missing serial, got: %v", err)
	}
}
