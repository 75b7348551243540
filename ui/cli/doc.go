// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for Waymaster using Cobra.
// It wires configuration and default services, runs the cloud and relay
// daemons, and provides the fleet management commands. CLI code is kept thin
// and delegates business logic to the internal packages.
package cli
