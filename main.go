// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Waymaster.
//
// Usage:
//
//	go run . [flags]
//	./waymaster [flags]
//
// This launches the Waymaster CLI. See --help for options.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/toeirei/waymaster/ui/cli"
)

// version is set at build time using -ldflags, e.g.:
// go build -ldflags "-X main.version=1.2.3"
var version = "dev"

// main is the entrypoint for the Waymaster CLI.
func main() {
	if os.Getenv("WAYMASTER_SHOW_VERSION") == "1" {
		fmt.Fprintf(os.Stderr, "Waymaster version: %s\n", version)
	}

	if err := cli.Execute(); err != nil {
		log.Printf("Waymaster CLI error: %v", err)
		os.Exit(1)
	}
}
