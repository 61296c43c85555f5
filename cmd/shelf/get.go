// Get command fetching one record by id.
package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/pkg/model"
)

var getCmd = &cobra.Command{
	Use:   "get <type> <id>",
	Short: "Fetch a record by id",
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
		return printRecord(e)
	},
}
