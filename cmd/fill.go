// -- cmd/fill.go --
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/domq/api/schemas"
	"github.com/xkilldash9x/domq/pkg/query"
)

func newFillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fill URL CONTAINER NAME=VALUE...",
		Short: "Fill named inputs under a container element",
		Long: `Fill sets the value of each input whose name attribute matches NAME
under the CONTAINER selector and dispatches input and change events.
Fields without a matching input are reported and the command exits non-zero.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args[2:])
			if err != nil {
				return err
			}
			return runQuery(cmd, "fill", args[0], args[1], func(ctx context.Context, h *query.Helpers, res *schemas.QueryResult) error {
				report, err := h.Fill(ctx, res.Selector, fields)
				if report != nil {
					res.Found = report.OK()
					res.Fields = fieldOutcomes(report)
				}
				return err
			})
		},
	}
}

// parseFields turns NAME=VALUE pairs into a field map. Values may contain '='.
func parseFields(pairs []string) (map[string]string, error) {
	fields := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q: expected NAME=VALUE", pair)
		}
		if _, dup := fields[name]; dup {
			return nil, fmt.Errorf("field %q given more than once", name)
		}
		fields[name] = value
	}
	return fields, nil
}

func fieldOutcomes(report *query.FillReport) []schemas.FieldOutcome {
	out := make([]schemas.FieldOutcome, len(report.Fields))
	for i, f := range report.Fields {
		out[i] = schemas.FieldOutcome{Name: f.Name, Selector: f.Selector, Filled: f.Filled}
		if f.Err != nil {
			out[i].Error = f.Err.Error()
		}
	}
	return out
}
