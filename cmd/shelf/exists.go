// Exists command reporting record presence.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var existsCmd = &cobra.Command{
	Use:   "exists <type> <id>",
	Short: "Report whether a record is present",
	Long: `Exists prints true or false. The exit code is 0 either way; a present
record and an absent one are both successful answers.`,
	Args: exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := lookupType(args[0])
		if err != nil {
			return err
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		ok, err := typ.Exists(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("checking %s %d: %w", typ.Name(), id, err)
		}
		if flagJSON {
			return printJSON(map[string]any{"type": typ.Name(), "id": id, "exists": ok})
		}
		fmt.Println(ok)
		return nil
	},
}
