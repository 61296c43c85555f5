// Command shelf manages typed records in an embedded SQLite database.
//
// Types come from config.yaml in the shelf config directory; run
// "shelf init" once to scaffold it. Each subcommand operates on one
// configured type: set writes a record from a JSON payload, get and
// list read records back, delete and exists round out the lifecycle.
// All commands accept --json for machine-readable output.
package main

import (
	"errors"
	"os"
)

func main() {
	err := rootCmd.Execute()
	// Cobra skips PersistentPostRunE when a command fails, so release
	// the store here as well. teardown tolerates repeated calls.
	_ = teardown(rootCmd, nil)
	if err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			os.Exit(exitUsage)
		}
		os.Exit(exitError)
	}
}
