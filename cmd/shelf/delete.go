// Delete command removing one record by id.
package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/pkg/model"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <type> <id>",
	Short: "Remove a record by id",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := lookupType(args[0])
		if err != nil {
			return err
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		e, err := typ.Find(cmd.Context(), id)
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("no %s with id %d", typ.Name(), id)
		}
		if err != nil {
			return fmt.Errorf("fetching %s %d: %w", typ.Name(), id, err)
		}
		if err := e.Delete(cmd.Context()); err != nil {
			return fmt.Errorf("deleting %s %d: %w", typ.Name(), id, err)
		}
		if flagJSON {
			return printJSON(map[string]any{"type": typ.Name(), "id": id, "deleted": true})
		}
		fmt.Printf("deleted %s %d\n", typ.Name(), id)
		return nil
	},
}
