// Types command listing the configured entity types.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List configured types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagJSON {
			rows := make([]map[string]any, 0, len(configuredTypes))
			for _, ts := range configuredTypes {
				row := map[string]any{"name": ts.Name}
				if len(ts.Guarded) > 0 {
					row["guarded"] = ts.Guarded
				}
				if len(ts.Relations) > 0 {
					row["relations"] = ts.Relations
				}
				rows = append(rows, row)
			}
			return printJSON(rows)
		}
		for _, ts := range configuredTypes {
			line := ts.Name
			if len(ts.Guarded) > 0 {
				line += " (guarded: " + strings.Join(ts.Guarded, ", ") + ")"
			}
			if len(ts.Relations) > 0 {
				line += " (relates: " + strings.Join(ts.Relations, ", ") + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}
