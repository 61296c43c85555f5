// Config loading for the shelf CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/shelf/pkg/sqlite"
)

// Keys recognized in config.yaml.
const (
	cfgKeyDataDir  = "data_dir"
	cfgKeyDataFile = "data_file"
	cfgKeyAuditLog = "audit_log"
	cfgKeyTypes    = "types"
)

// configFileName is the base name viper resolves inside the config dir.
const configFileName = "config"

// defaultConfigYAML seeds config.yaml on shelf init.
const defaultConfigYAML = `# Shelf configuration.
#
# Types listed here are available to every shelf command. Guarded fields
# accept writes without announcing them; relations name other types from
# this file.

types:
  - name: note

# Directory holding the database. Overridden by --data-dir and
# SHELF_DATA_DIR; defaults to .shelf-db under the working directory.
#data_dir: /var/lib/shelf

# Database file name inside the data directory.
#data_file: shelf.db

# Append every lifecycle event to this JSON lines file. Relative paths
# land inside the data directory.
#audit_log: audit.jsonl
`

// typeSpec is one entry under the types key.
type typeSpec struct {
	Name      string   `mapstructure:"name"`
	Guarded   []string `mapstructure:"guarded"`
	Relations []string `mapstructure:"relations"`
}

// loadConfig reads config.yaml from configDir. A missing file is not an
// error; defaults apply and the types list stays empty until shelf init
// writes one.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyDataFile, sqlite.DefaultFile)
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config in %s: %w", configDir, err)
		}
	}
	return v, nil
}

// loadTypes parses and validates the configured type list.
func loadTypes(cfg *viper.Viper) ([]typeSpec, error) {
	var specs []typeSpec
	if err := cfg.UnmarshalKey(cfgKeyTypes, &specs); err != nil {
		return nil, fmt.Errorf("parsing types config: %w", err)
	}
	if len(specs) == 0 {
		return nil, errors.New(`no types configured; run "shelf init" or add a types entry to config.yaml`)
	}
	for _, ts := range specs {
		if ts.Name == "" {
			return nil, errors.New("types entry missing a name")
		}
	}
	return specs, nil
}

func ensureConfigDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	return nil
}

// ensureDefaultConfigFile writes the default config.yaml unless one
// already exists. Reports the path and whether it wrote the file.
func ensureDefaultConfigFile(dir string) (string, bool, error) {
	path := filepath.Join(dir, configFileName+".yaml")
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, fmt.Errorf("checking %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return "", false, fmt.Errorf("writing %s: %w", path, err)
	}
	return path, true, nil
}
