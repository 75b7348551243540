// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package backup

import (
	"bytes"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/toeirei/waymaster/internal/model"
)

func sampleData() *model.BackupData {
	return &model.BackupData{
		Version:    1,
		ExportedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Nodes: []model.Node{
			{ID: 1, Username: "deploy", Hostname: "relay-01", Class: model.NodeClassRelay, Serial: 2, IsActive: true},
		},
		Edges: []model.Edge{
			{From: "A", To: "B", Weight: 3},
		},
		SystemKeys: []model.SystemKey{
			{ID: 1, Serial: 2, PublicKey: "pub", PrivateKey: "priv", IsActive: true},
		},
		KnownHosts: []model.KnownHost{
			{Hostname: "relay-01", Key: "ssh-ed25519 AAAA"},
		},
	}
}

func TestWriteReadRoundtrip(t *testing.T) {
	want := sampleData()

	var buf bytes.Buffer
	if err := Write(&buf, want); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// zstd frames start with the magic number 0x28B52FFD (little-endian).
	magic := []byte{0x28, 0xb5, 0x2f, 0xfd}
	if !bytes.HasPrefix(buf.Bytes(), magic) {
		t.Errorf("output is not zstd compressed (prefix %x)", buf.Bytes()[:4])
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("roundtrip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestFileRoundtrip(t *testing.T) {
	want := sampleData()
	path := filepath.Join(t.TempDir(), "snapshot.zst")

	if err := WriteFile(path, want); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("roundtrip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestRead_RejectsGarbage(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("definitely not zstd"))); err == nil {
		t.Fatalf("expected error for non-zstd input")
	}
}
