// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// package db provides the data access layer for Waymaster.
// This file contains the SQLite flavor of the database store.
package db // import "github.com/toeirei/waymaster/internal/db"

import (
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SqliteStore is the SQLite implementation of the Store interface. The
// shared Bun implementation covers everything; the type exists so engine
// specific behavior has a home when it diverges.
type SqliteStore struct {
	bunStore
}
