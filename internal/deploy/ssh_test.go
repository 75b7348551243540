// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/toeirei/waymaster/internal/db"
	"github.com/toeirei/waymaster/internal/sshkey"
)

func newTestDB(t *testing.T) {
	t.Helper()
	dsn := "file:test_deploy_" + t.Name() + "?mode=memory&cache=shared"
	if err := db.InitDB("sqlite", dsn); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { db.SetStore(nil) })
}

func testHostKey(t *testing.T) (ssh.PublicKey, string) {
	t.Helper()
	pub, _, err := sshkey.GenerateEd25519Key("test-host", "")
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}
	parsed, _, _, _, err := ssh.ParseAuthorizedKey([]byte(pub))
	if err != nil {
		t.Fatalf("failed to parse test key: %v", err)
	}
	return parsed, string(ssh.MarshalAuthorizedKey(parsed))
}

func TestHostKeyCallback_UnknownHostRejected(t *testing.T) {
	newTestDB(t)
	key, _ := testHostKey(t)

	err := hostKeyCallback("relay-01:22", nil, key)
	if err == nil {
		t.Fatalf("expected error for unpinned host")
	}
	if !strings.Contains(err.Error(), "trust-node") {
		t.Errorf("error should point at trust-node, got: %v", err)
	}
}

func TestHostKeyCallback_PinnedKeyAccepted(t *testing.T) {
	newTestDB(t)
	key, marshaled := testHostKey(t)

	if err := db.AddKnownHostKey("relay-01", marshaled); err != nil {
		t.Fatalf("AddKnownHostKey failed: %v", err)
	}

	// The callback receives host:port; pinning is by bare hostname.
	if err := hostKeyCallback("relay-01:22", nil, key); err != nil {
		t.Errorf("pinned key rejected: %v", err)
	}
	if err := hostKeyCallback("relay-01", nil, key); err != nil {
		t.Errorf("pinned key rejected without port: %v", err)
	}
}

func TestHostKeyCallback_MismatchRejected(t *testing.T) {
	newTestDB(t)
	key, _ := testHostKey(t)
	_, otherMarshaled := testHostKey(t)

	if err := db.AddKnownHostKey("relay-01", otherMarshaled); err != nil {
		t.Fatalf("AddKnownHostKey failed: %v", err)
	}

	err := hostKeyCallback("relay-01:22", nil, key)
	if err == nil {
		t.Fatalf("expected error for mismatched host key")
	}
	if !strings.Contains(err.Error(), "MISMATCH") {
		t.Errorf("error should flag the mismatch, got: %v", err)
	}
}

func TestShellQuote(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"python3 app", "'python3 app'"},
		{"echo 'hi'", `'echo '\''hi'\'''`},
		{"", "''"},
	}
	for _, c := range cases {
		if got := shellQuote(c.in); got != c.want {
			t.Errorf("shellQuote(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}
