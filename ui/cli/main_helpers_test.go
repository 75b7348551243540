// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"os"
	"runtime/debug"
	"testing"

	"github.com/spf13/cobra"

	"github.com/toeirei/waymaster/internal/db"
	"github.com/toeirei/waymaster/internal/model"
	"github.com/toeirei/waymaster/internal/state"
)

func newTestDB(t *testing.T) {
	t.Helper()
	dsn := "file:test_cli_" + t.Name() + "?mode=memory&cache=shared"
	if err := db.InitDB("sqlite", dsn); err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { db.SetStore(nil) })
}

func TestResolveBuildVersion_MainVersion(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/toeirei/waymaster", Version: "v1.2.3"},
	}
	v, c, d := resolveBuildVersion(info)
	if v != "v1.2.3" {
		t.Fatalf("expected v1.2.3 got %s", v)
	}
	if c != gitCommit {
		t.Fatalf("expected commit to equal package gitCommit (default) got %s", c)
	}
	if d != buildDate {
		t.Fatalf("expected date to equal package buildDate (default) got %s", d)
	}
}

func TestResolveBuildVersion_VCSSettings(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/toeirei/waymaster", Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "deadbeef"},
			{Key: "vcs.time", Value: "2026-08-01T12:00:00Z"},
		},
	}
	v, c, d := resolveBuildVersion(info)
	if v != version {
		t.Fatalf("expected (devel) to keep package version %q, got %s", version, v)
	}
	if c != "deadbeef" {
		t.Fatalf("expected vcs.revision got %s", c)
	}
	if d != "2026-08-01T12:00:00Z" {
		t.Fatalf("expected vcs.time got %s", d)
	}
}

func TestHasTag(t *testing.T) {
	if !hasTag("highway, downtown", "downtown") {
		t.Fatalf("expected tag with surrounding space to match")
	}
	if hasTag("highway, downtown", "town") {
		t.Fatalf("expected partial tag not to match")
	}
	if hasTag("", "anything") {
		t.Fatalf("expected no match on empty tags")
	}
}

func TestParseFileMode(t *testing.T) {
	cases := []struct {
		in      string
		want    os.FileMode
		wantErr bool
	}{
		{"+x", 0o755, false},
		{"755", 0o755, false},
		{"0644", 0o644, false},
		{"4755", 0o4755, false},
		{"abc", 0, true},
		{"", 0, true},
		{"777777", 0, true},
	}
	for _, c := range cases {
		got, err := parseFileMode(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("parseFileMode(%q) = %v, want error", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseFileMode(%q) failed: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("parseFileMode(%q) = %o, want %o", c.in, got, c.want)
		}
	}
}

func TestMaybePromptPassphrase_EnvSource(t *testing.T) {
	t.Cleanup(state.PassphraseCache.Clear)
	t.Setenv(passphraseEnvVar, "open-sesame")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().BoolP("passphrase", "p", false, "")

	if err := maybePromptPassphrase(cmd); err != nil {
		t.Fatalf("maybePromptPassphrase failed: %v", err)
	}
	if got := state.PassphraseCache.Get(); string(got) != "open-sesame" {
		t.Errorf("cached passphrase = %q, want env value", got)
	}
}

func TestMaybePromptPassphrase_NoSources(t *testing.T) {
	t.Cleanup(state.PassphraseCache.Clear)
	t.Setenv(passphraseEnvVar, "")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().BoolP("passphrase", "p", false, "")

	if err := maybePromptPassphrase(cmd); err != nil {
		t.Fatalf("maybePromptPassphrase failed: %v", err)
	}
	if got := state.PassphraseCache.Get(); got != nil {
		t.Errorf("cached passphrase = %q, want none", got)
	}
}

func TestFindDeployTarget(t *testing.T) {
	newTestDB(t)

	id, err := db.AddNode("deploy", "relay-01", model.NodeClassRelay, "", "")
	if err != nil {
		t.Fatalf("failed to seed node: %v", err)
	}

	node, err := findDeployTarget("deploy@relay-01")
	if err != nil {
		t.Fatalf("user@host lookup failed: %v", err)
	}
	if node.ID != id {
		t.Fatalf("expected node %d, got %d", id, node.ID)
	}

	node, err = findDeployTarget("relay-01")
	if err != nil {
		t.Fatalf("hostname lookup failed: %v", err)
	}
	if node.ID != id {
		t.Fatalf("expected node %d, got %d", id, node.ID)
	}

	if _, err := findDeployTarget("other@relay-01"); err == nil {
		t.Fatalf("expected error for wrong username")
	}
}
