// -- cmd/query.go --
package cmd

import (
	"context"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/domq/api/schemas"
	"github.com/xkilldash9x/domq/internal/observability"
	"github.com/xkilldash9x/domq/pkg/query"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const shutdownTimeout = 10 * time.Second

// queryFunc performs one command against a loaded page and fills res.
type queryFunc func(ctx context.Context, h *query.Helpers, res *schemas.QueryResult) error

// runQuery launches the configured engine, loads url in a fresh page, runs fn
// under the query timeout and prints the result. The result is printed even
// when fn fails so callers always receive a JSON document.
func runQuery(cmd *cobra.Command, command, url, selector string, fn queryFunc) error {
	ctx := cmd.Context()
	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}
	logger := observability.GetLogger().With(zap.String("command", command))

	eng, err := launchEngine(ctx, cfg.Browser(), logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := eng.Close(sctx); err != nil {
			logger.Warn("Browser shutdown failed.", zap.Error(err))
		}
	}()

	page, err := eng.NewPage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Debug("Page close failed.", zap.Error(err))
		}
	}()

	navCtx, cancelNav := context.WithTimeout(ctx, cfg.Query().NavigationTimeout)
	err = page.Navigate(navCtx, url)
	cancelNav()
	if err != nil {
		return err
	}

	qctx, cancel := context.WithTimeout(ctx, cfg.Query().Timeout)
	defer cancel()

	res := &schemas.QueryResult{Command: command, URL: url, Selector: selector}
	h := page.Query(query.WithLogger(logger), query.WithConcurrency(cfg.Query().Concurrency))
	runErr := fn(qctx, h, res)
	if runErr != nil {
		res.Error = runErr.Error()
	}
	if err := writeResult(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	return runErr
}

func writeResult(w io.Writer, res *schemas.QueryResult) error {
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

func attrOrNil(v query.AttrValue) interface{} {
	if !v.Present {
		return nil
	}
	return v.Value
}

func newExistsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists URL SELECTOR",
		Short: "Report whether any element matches the selector",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, "exists", args[0], args[1], func(ctx context.Context, h *query.Helpers, res *schemas.QueryResult) error {
				ok, err := h.Exists(ctx, res.Selector)
				res.Found = ok
				res.Value = ok
				return err
			})
		},
	}
}

func newVisibleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "visible URL SELECTOR",
		Short: "Report whether the first matching element is rendered",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, "visible", args[0], args[1], func(ctx context.Context, h *query.Helpers, res *schemas.QueryResult) error {
				visible, found, err := h.Q(res.Selector).IsVisible(ctx)
				res.Found = found
				if found {
					res.Value = visible
				}
				return err
			})
		},
	}
}

func newAttrCmd() *cobra.Command {
	var resolved bool
	cmd := &cobra.Command{
		Use:   "attr URL SELECTOR NAME",
		Short: "Print an attribute of the first matching element",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[2]
			return runQuery(cmd, "attr", args[0], args[1], func(ctx context.Context, h *query.Helpers, res *schemas.QueryResult) error {
				if !resolved {
					v, found, err := h.Q(res.Selector).Attr(ctx, name)
					res.Found = found
					res.Value = attrOrNil(v)
					return err
				}
				handle, found, err := h.Q(res.Selector).Handle(ctx)
				res.Found = found
				if err != nil || !found {
					return err
				}
				v, err := handle.Attribute(ctx, name)
				res.Value = attrOrNil(v)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&resolved, "resolved", false, "report src as the absolute URL the browser loaded")
	return cmd
}

func newTextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "text URL SELECTOR",
		Short: "Print the rendered text of the first matching element",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, "text", args[0], args[1], func(ctx context.Context, h *query.Helpers, res *schemas.QueryResult) error {
				text, found, err := h.Q(res.Selector).Text(ctx)
				res.Found = found
				if found && err == nil {
					res.Value = text
				}
				return err
			})
		},
	}
}

func newHTMLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "html URL SELECTOR",
		Short: "Print the inner HTML of the first matching element",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, "html", args[0], args[1], func(ctx context.Context, h *query.Helpers, res *schemas.QueryResult) error {
				html, found, err := h.Q(res.Selector).HTML(ctx)
				res.Found = found
				if found && err == nil {
					res.Value = html
				}
				return err
			})
		},
	}
}

func newPropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prop URL SELECTOR NAME",
		Short: "Print a DOM property of the first matching element",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[2]
			return runQuery(cmd, "prop", args[0], args[1], func(ctx context.Context, h *query.Helpers, res *schemas.QueryResult) error {
				v, found, err := h.Q(res.Selector).Prop(ctx, name)
				res.Found = found
				if found && err == nil {
					res.Value = v
				}
				return err
			})
		},
	}
}

func newAttrsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attrs URL SELECTOR NAME",
		Short: "Print an attribute of every matching element in document order",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[2]
			return runQuery(cmd, "attrs", args[0], args[1], func(ctx context.Context, h *query.Helpers, res *schemas.QueryResult) error {
				values, err := h.ElementsAttribute(ctx, res.Selector, name)
				if err != nil {
					return err
				}
				res.Found = len(values) > 0
				res.Values = make([]interface{}, len(values))
				for i, v := range values {
					res.Values[i] = attrOrNil(v)
				}
				return nil
			})
		},
	}
}
