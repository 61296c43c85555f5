// Root command wiring for the shelf CLI: global flags, store attach,
// and type registration shared by every subcommand.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/shelf/internal/paths"
	"github.com/mesh-intelligence/shelf/pkg/audit"
	"github.com/mesh-intelligence/shelf/pkg/logging"
	"github.com/mesh-intelligence/shelf/pkg/model"
	"github.com/mesh-intelligence/shelf/pkg/sqlite"
)

// Exit codes. Usage mistakes (bad flags, unknown type, malformed
// payload) exit 2; failed operations exit 1.
const (
	exitSuccess = 0
	exitError   = 1
	exitUsage   = 2
)

// Global flags, bound in init.
var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
	flagVerbose   bool
)

// Command state, populated by setup and released by teardown.
var (
	registry        *model.Registry
	store           *sqlite.Store
	auditFile       *audit.FileRecorder
	configuredTypes []typeSpec
	logger          = logging.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "shelf",
	Short: "Typed records over an embedded SQLite store",
	Long: `Shelf stores typed records in a SQLite database and reads them back.

Types are declared in config.yaml under the shelf config directory; run
"shelf init" once to scaffold it. Records are free-form JSON objects
keyed by a numeric id that the store assigns on first save.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: config data_dir, then ./.shelf-db)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log lifecycle events to stderr")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{msg: err.Error()}
	})
	rootCmd.AddCommand(initCmd, setCmd, getCmd, listCmd, deleteCmd, existsCmd, typesCmd, versionCmd)
}

// setup resolves directories, loads config, attaches the store, and
// defines the configured types. Commands that never touch the store
// skip all of it.
func setup(cmd *cobra.Command, _ []string) error {
	switch cmd.Name() {
	case "version", "init", "help", "completion", cobra.ShellCompRequestCmd:
		return nil
	}
	if flagVerbose {
		logger = logging.New(logging.Config{Level: "debug", Format: logging.FormatText, Output: os.Stderr})
	}

	configDir, err := paths.ResolveConfigDir(flagConfigDir)
	if err != nil {
		return fmt.Errorf("resolving config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	dataDir, err := paths.ResolveDataDir(flagDataDir, cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return fmt.Errorf("resolving data dir: %w", err)
	}

	store = sqlite.NewStore()
	if err := store.Attach(sqlite.Config{DataDir: dataDir, File: cfg.GetString(cfgKeyDataFile)}); err != nil {
		store = nil
		return fmt.Errorf("attaching store at %s: %w", dataDir, err)
	}
	logger.Debug("store attached", "dir", dataDir)

	if err := wire(cfg, dataDir); err != nil {
		_ = teardown(cmd, nil)
		return err
	}
	return nil
}

// wire builds the registry from config and hooks up event recorders.
// The store is already attached; setup rolls it back on error.
func wire(cfg *viper.Viper, dataDir string) error {
	specs, err := loadTypes(cfg)
	if err != nil {
		return err
	}
	registry = model.NewRegistry()
	for _, ts := range specs {
		typ, err := registry.Define(ts.Name, ts.Guarded...)
		if err != nil {
			return fmt.Errorf("defining type %q: %w", ts.Name, err)
		}
		svc, err := store.Service(ts.Name)
		if err != nil {
			return fmt.Errorf("opening service for %q: %w", ts.Name, err)
		}
		if err := typ.Bind(svc); err != nil {
			return fmt.Errorf("binding %q: %w", ts.Name, err)
		}
		logger.Debug("type defined", "name", typ.Name())
	}
	// Relations resolve in a second pass so declaration order in the
	// config file does not matter.
	for _, ts := range specs {
		if len(ts.Relations) == 0 {
			continue
		}
		typ, err := registry.Lookup(ts.Name)
		if err != nil {
			return err
		}
		for _, target := range ts.Relations {
			tt, err := registry.Lookup(target)
			if err != nil {
				return fmt.Errorf("type %q relates to unconfigured type %q", ts.Name, target)
			}
			if err := typ.Relate(tt); err != nil {
				return fmt.Errorf("relating %q to %q: %w", ts.Name, target, err)
			}
		}
	}
	configuredTypes = specs

	if path := cfg.GetString(cfgKeyAuditLog); path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(dataDir, path)
		}
		rec, err := audit.NewFileRecorder(path)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		auditFile = rec
		for _, typ := range registry.Types() {
			audit.Observe(typ, rec)
		}
	}
	if flagVerbose {
		rec := audit.NewLogRecorder(logger)
		for _, typ := range registry.Types() {
			audit.Observe(typ, rec)
		}
	}
	return nil
}

// teardown closes the audit log and detaches the store. Safe to call
// more than once.
func teardown(*cobra.Command, []string) error {
	if auditFile != nil {
		rec := auditFile
		auditFile = nil
		if err := rec.Close(); err != nil {
			return fmt.Errorf("closing audit log: %w", err)
		}
	}
	if store != nil {
		st := store
		store = nil
		if err := st.Detach(); err != nil {
			return fmt.Errorf("detaching store: %w", err)
		}
	}
	return nil
}
