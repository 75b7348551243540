// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface (CLI) for the Waymaster
// application using the Cobra library. It defines the root command,
// subcommands (like cloud, relay, deploy), flags, and the main entry
// point for execution.

package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toeirei/waymaster/internal/config"
	"github.com/toeirei/waymaster/internal/db"
	"github.com/toeirei/waymaster/internal/i18n"
	"github.com/toeirei/waymaster/internal/logging"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)

var cfgFile string
var verbose bool

var appConfig config.Config

// configDefaults are the baseline values used when neither flag, env nor
// config file provides one.
var configDefaults = map[string]any{
	"database.type":    "sqlite",
	"database.dsn":     "./waymaster.db",
	"language":         "en",
	"cloud.listen":     ":12000",
	"relay.listen":     ":12001",
	"relay.cloud_addr": "127.0.0.1:12000",
	"relay.cache.addr": "",
	"relay.cache.ttl":  "30s",
}

// setupDefaultServices loads the configuration, initializes i18n and opens
// the database. It runs as the root command's PersistentPreRunE.
func setupDefaultServices(cmd *cobra.Command, args []string) error {
	logging.SetVerbose(verbose)
	if verbose {
		db.SetDebug(true)
	}

	// Load optional config file argument from cli
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, configDefaults, optionalConfigPath)
	// A "file not found" error is expected on first run, so we handle it
	// specifically. Other errors during loading are fatal.
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		// This is the first run, or the config file was deleted. Create a default one.
		if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			// Log a warning but don't fail, as the app can run on defaults.
			logging.Warnf("could not write default config file: %v", writeErr)
		}
	} else if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	// If no config file was used, write a default config for the user so
	// subsequent runs have a persisted file to inspect.
	if config.ConfigFileUsed() == "" {
		if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			logging.Warnf("could not write default config file: %v", writeErr)
		} else {
			logging.Infof("wrote default config to user config path")
		}
	}

	// Post-process config to ensure critical values are not empty, falling
	// back to defaults. This handles config files with empty values for
	// these fields.
	if appConfig.Database.Type == "" {
		appConfig.Database.Type = configDefaults["database.type"].(string)
	}
	if appConfig.Database.Dsn == "" {
		appConfig.Database.Dsn = configDefaults["database.dsn"].(string)
	}
	if appConfig.Language == "" {
		appConfig.Language = configDefaults["language"].(string)
	}

	i18n.SetLang(appConfig.Language)

	// Initialize the database if not already initialized by tests or earlier setup.
	if !db.IsInitialized() {
		if err := db.InitDB(appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
			return fmt.Errorf("%s: %w", i18n.T("main.error_db_init"), err)
		}
	}

	return nil
}

// Execute runs the CLI entrypoint. The root main package should call this
// function and handle process exit.
func Execute() error {
	rootCmd := NewRootCmd()
	return rootCmd.Execute()
}

func applyDefaultFlags(cmd *cobra.Command) {
	// Avoid redefining flags if they already exist (NewRootCmd may be called
	// multiple times in tests which creates a new root but uses package-level
	// subcommands). pflag will panic on duplicate flag definitions, so check
	// first.
	if cmd.Flags().Lookup("database.type") == nil {
		cmd.Flags().String("database.type", "sqlite", "Database type (e.g., sqlite, postgres, mysql)")
	}
	if cmd.Flags().Lookup("database.dsn") == nil {
		cmd.Flags().String("database.dsn", "./waymaster.db", "Database connection string (DSN)")
	}
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if cmd.Flags().Changed("config") {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			// This is unlikely if Changed() is true, but good practice.
			return nil, fmt.Errorf("could not read --config flag: %w", err)
		}

		// If the flag is set but the value is empty, do nothing.
		if path == "" {
			return nil, nil
		}

		// Make sure the user-provided file exists to avoid unwanted behavior.
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
		}
		return &path, nil // Return the valid path
	}
	return nil, nil
}

// NewRootCmd creates and configures a new root cobra command.
// This function is used to create the main application command as well as
// fresh instances for isolated testing.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waymaster",
		Short: "Waymaster coordinates routing in a vehicular ad-hoc network.",
		Long: `Waymaster runs the coordination plane of a vehicular ad-hoc network:
a cloud server that owns the road topology, relays that compute shortest
paths for low-power vehicles, and the fleet tooling to push agent
artifacts onto nodes over SSH. A database is the source of truth for
topology and fleet state.`,
		PersistentPreRunE: setupDefaultServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = compositeVersion()

	// Define flags
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (debug logs, DB tracing)")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("language", "en", `CLI language ("en", "de")`)
	applyDefaultFlags(cmd)

	// Add subcommand flags
	applyDefaultFlags(cloudCmd)
	applyDefaultFlags(relayCmd)
	applyDefaultFlags(routeCmd)
	applyDefaultFlags(auditCmd)
	applyDefaultFlags(dbMaintainCmd)
	applyDefaultFlags(backupCmd)
	applyDefaultFlags(restoreCmd)
	if keygenCmd.Flags().Lookup("passphrase") == nil {
		keygenCmd.Flags().BoolP("passphrase", "p", false, "Prompt for a passphrase to encrypt the new private key")
	}
	if rotateKeyCmd.Flags().Lookup("passphrase") == nil {
		rotateKeyCmd.Flags().BoolP("passphrase", "p", false, "Prompt for a passphrase to encrypt the new private key")
	}
	if restoreCmd.Flags().Lookup("full") == nil {
		restoreCmd.Flags().BoolVar(&fullRestore, "full", false, "Perform a full, destructive restore (wipes all existing data first)")
	}
	if dbMaintainCmd.Flags().Lookup("timeout") == nil {
		dbMaintainCmd.Flags().Int("timeout", 0, "Timeout in seconds for maintenance (0 means no timeout)")
	}

	registerNodeCommands()
	registerEdgeCommands()
	registerDeployCommands()

	// Add subcommands to the newly created root command.
	cmd.AddCommand(
		cloudCmd,
		relayCmd,
		routeCmd,
		nodeCmd,
		edgeCmd,
		deployCmd,
		trustNodeCmd,
		keygenCmd,
		rotateKeyCmd,
		auditCmd,
		backupCmd,
		restoreCmd,
		dbMaintainCmd,
		newVersionCmd(),
	)

	return cmd
}

// newVersionCmd builds the `waymaster version` subcommand so users and CI
// can inspect build provenance.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			fmt.Printf("version: %s\n", v)
			fmt.Printf("commit: %s\n", c)
			if d != "" {
				fmt.Printf("built: %s\n", d)
			}
		},
	}
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	composite := v
	if c != "" && c != "dev" {
		composite = composite + " (" + c + ")"
	}
	if d != "" {
		composite = composite + " built: " + d
	}
	return composite
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If `info` is nil, it reads build info from
// the runtime. This helper is separated to make unit testing straightforward.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := version
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if infoLocal, found := debug.ReadBuildInfo(); found {
			info = infoLocal
		}
	}

	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	return resolvedVersion, resolvedCommit, resolvedDate
}
