// List command querying records with an optional filter.
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/pkg/model"
)

var listCmd = &cobra.Command{
	Use:   "list <type> [field=value]",
	Short: "List records with an optional field filter",
	Long: `List prints every record of the given type, oldest first. With a
field=value filter only records whose field equals the value are
printed. The value is read as a JSON literal when possible, so done=false
matches the boolean while title=groceries matches the string.

Example:
  shelf list note
  shelf list note done=false
  shelf list note owner=null`,
	Args: rangeArgs(1, 2),
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	typ, err := lookupType(args[0])
	if err != nil {
		return err
	}
	entities, err := fetchList(cmd.Context(), typ, args)
	if err != nil {
		return fmt.Errorf("listing %s: %w", typ.Name(), err)
	}
	return printRecords(entities)
}

// fetchList runs All or Where depending on whether a filter was given.
func fetchList(ctx context.Context, typ *model.Type, args []string) ([]*model.Entity, error) {
	if len(args) < 2 {
		return typ.All(ctx)
	}
	field, value, err := parseFilter(args[1])
	if err != nil {
		return nil, err
	}
	return typ.Where(ctx, field, value)
}
