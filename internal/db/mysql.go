// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// package db provides the data access layer for Waymaster.
// This file contains the MySQL flavor of the database store.
package db

import (
	_ "github.com/go-sql-driver/mysql" // MySQL database/sql driver
)

// MySQLStore is the MySQL implementation of the Store interface.
type MySQLStore struct {
	bunStore
}
