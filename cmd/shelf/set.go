// Set command writing one record from a JSON payload.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <type> <json>",
	Short: "Create or update a record",
	Long: `Set writes one record of the given type from a JSON object.

A payload without an id creates a record and the store assigns the next
id. A payload with a numeric id writes that record, replacing any
existing fields.

Example:
  shelf set note '{"title":"groceries","done":false}'
  shelf set note '{"id":3,"title":"groceries","done":true}'`,
	Args: exactArgs(2),
	RunE: runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	typ, err := lookupType(args[0])
	if err != nil {
		return err
	}
	fields, err := parseFieldsJSON(args[1])
	if err != nil {
		return err
	}
	e := typ.New(fields)
	if err := e.Save(cmd.Context()); err != nil {
		return fmt.Errorf("saving %s: %w", typ.Name(), err)
	}
	return printRecord(e)
}
