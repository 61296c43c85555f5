// Shared helpers for shelf subcommands.
package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/pkg/model"
)

// usageError marks a bad invocation. main exits with exitUsage when the
// command error matches it.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// exactArgs is cobra.ExactArgs with the usage exit code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("%s expects %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

// rangeArgs is cobra.RangeArgs with the usage exit code.
func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < lo || len(args) > hi {
			return usagef("%s expects between %d and %d arguments, got %d", cmd.Name(), lo, hi, len(args))
		}
		return nil
	}
}

// lookupType resolves a configured type by name.
func lookupType(name string) (*model.Type, error) {
	typ, err := registry.Lookup(name)
	if err != nil {
		names := make([]string, 0, len(registry.Types()))
		for _, t := range registry.Types() {
			names = append(names, t.Name())
		}
		return nil, usagef("unknown type %q (configured: %s)", name, strings.Join(names, ", "))
	}
	return typ, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, usagef("invalid id %q", arg)
	}
	return id, nil
}

// parseFieldsJSON decodes a record payload. Numbers stay json.Number so
// large ids survive the trip to the store.
func parseFieldsJSON(payload string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, usagef("invalid JSON payload: %v", err)
	}
	return fields, nil
}

// parseFilter splits a field=value argument. The value is tried as a
// JSON literal first, so numbers, booleans, and null keep their types;
// anything else is a plain string.
func parseFilter(arg string) (string, any, error) {
	field, raw, ok := strings.Cut(arg, "=")
	if !ok || field == "" {
		return "", nil, usagef("invalid filter %q (expected field=value)", arg)
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}
	return field, value, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// printRecord writes one record, as JSON or as sorted key: value lines.
func printRecord(e *model.Entity) error {
	if flagJSON {
		return printJSON(e.Fields())
	}
	fields := e.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s: %v\n", k, fields[k])
	}
	return nil
}

// printRecords writes a result set, as a JSON array or as blank-line
// separated blocks.
func printRecords(entities []*model.Entity) error {
	if flagJSON {
		rows := make([]map[string]any, 0, len(entities))
		for _, e := range entities {
			rows = append(rows, e.Fields())
		}
		return printJSON(rows)
	}
	for i, e := range entities {
		if i > 0 {
			fmt.Println()
		}
		if err := printRecord(e); err != nil {
			return err
		}
	}
	return nil
}
