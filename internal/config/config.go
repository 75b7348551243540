// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// package config loads and persists the Waymaster configuration. Values are
// resolved by viper from (in order of precedence) CLI flags, environment
// variables with the WAYMASTER_ prefix and waymaster.yaml search locations.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Language string         `mapstructure:"language" yaml:"language"`
	Cloud    CloudConfig    `mapstructure:"cloud" yaml:"cloud"`
	Relay    RelayConfig    `mapstructure:"relay" yaml:"relay"`
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

// CloudConfig configures the topology server.
type CloudConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// RelayConfig configures the relay daemon.
type RelayConfig struct {
	Listen    string      `mapstructure:"listen" yaml:"listen"`
	CloudAddr string      `mapstructure:"cloud_addr" yaml:"cloud_addr"`
	Cache     CacheConfig `mapstructure:"cache" yaml:"cache"`
}

// CacheConfig configures the optional Redis weight cache in front of the
// cloud server. An empty Addr disables caching.
type CacheConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// getConfigPath returns the full path for the configuration file.
func getConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		// System-wide configuration paths
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Waymaster")
		default: // Linux, macOS, etc.
			configDir = "/etc/waymaster"
		}
	} else {
		// User-specific configuration paths
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "waymaster")
	}

	return filepath.Join(configDir, "waymaster.yaml"), nil
}

// LoadConfig resolves the configuration for a command: defaults, config file
// (explicit --config path or the standard search locations), environment
// variables and bound CLI flags, in ascending precedence.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, additionalConfigFilePath *string) (T, error) {
	var c T
	v := viper.New()

	// 1. Set defaults
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// 2. Set up file search (waymaster.yaml)
	v.SetConfigName("waymaster")
	v.SetConfigType("yaml")

	// 3. An explicit --config path has the highest precedence for
	// file-based configuration.
	if additionalConfigFilePath != nil {
		v.SetConfigFile(*additionalConfigFilePath)
	}

	// 4. Standard config locations
	if userConfigPath, err := getConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := getConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".") // Look for waymaster.yaml in current dir

	// 5. Read in the primary config file.
	if err := v.ReadInConfig(); err != nil {
		// It's okay if the file is not found, but other errors are fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}
	lastConfigFileUsed = v.ConfigFileUsed()

	// 6. Read from environment variables
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("waymaster")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 7. Bind CLI flags
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return c, err
	}

	// parse config
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, nil
}

// WriteConfigFile persists the configuration as YAML to the user (or system)
// config path, creating the directory if necessary.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := getConfigPath(system)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("could not write config file %s: %w", path, err)
	}
	return nil
}

var lastConfigFileUsed string

// ConfigFileUsed reports the file the last LoadConfig call read, if any.
func ConfigFileUsed() string {
	return lastConfigFileUsed
}
