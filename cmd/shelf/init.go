// Init command scaffolding the config and data directories.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/paths"
	"github.com/mesh-intelligence/shelf/pkg/sqlite"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config directory and an empty database",
	Long: `Init writes a default config.yaml to the shelf config directory, creates
the data directory, and initializes the database with a table for every
configured type. Running it again is safe; existing files are kept.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, _ []string) error {
	configDir, err := paths.ResolveConfigDir(flagConfigDir)
	if err != nil {
		return fmt.Errorf("resolving config dir: %w", err)
	}
	if err := ensureConfigDir(configDir); err != nil {
		return err
	}
	cfgPath, created, err := ensureDefaultConfigFile(configDir)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	specs, err := loadTypes(cfg)
	if err != nil {
		return err
	}
	dataDir, err := paths.ResolveDataDir(flagDataDir, cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return fmt.Errorf("resolving data dir: %w", err)
	}

	st := sqlite.NewStore()
	if err := st.Attach(sqlite.Config{DataDir: dataDir, File: cfg.GetString(cfgKeyDataFile)}); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer st.Detach()
	for _, ts := range specs {
		if _, err := st.Service(ts.Name); err != nil {
			return fmt.Errorf("creating table for %q: %w", ts.Name, err)
		}
	}
	if err := st.Detach(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	if flagJSON {
		return printJSON(map[string]any{
			"config_dir": configDir,
			"config":     cfgPath,
			"data_dir":   dataDir,
			"created":    created,
		})
	}
	if created {
		fmt.Println("wrote", cfgPath)
	} else {
		fmt.Println("config kept at", cfgPath)
	}
	fmt.Println("data directory", dataDir)
	return nil
}
