// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// package backup writes and reads zstd-compressed JSON snapshots of the
// Waymaster database.
package backup // import "github.com/toeirei/waymaster/internal/backup"

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/toeirei/waymaster/internal/model"
)

// Write serializes the backup as JSON and compresses it with zstd.
func Write(w io.Writer, data *model.BackupData) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("backup: failed to create zstd writer: %w", err)
	}

	if err := json.NewEncoder(enc).Encode(data); err != nil {
		_ = enc.Close()
		return fmt.Errorf("backup: failed to encode backup data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("backup: failed to flush compressed stream: %w", err)
	}
	return nil
}

// Read decompresses and deserializes a backup stream.
func Read(r io.Reader) (*model.BackupData, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("backup: failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	var data model.BackupData
	if err := json.NewDecoder(dec.IOReadCloser()).Decode(&data); err != nil {
		return nil, fmt.Errorf("backup: failed to decode backup data: %w", err)
	}
	return &data, nil
}

// WriteFile writes a backup to path, replacing any existing file.
func WriteFile(path string, data *model.BackupData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("backup: failed to create %s: %w", path, err)
	}
	if err := Write(f, data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads a backup from path.
func ReadFile(path string) (*model.BackupData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("backup: failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
