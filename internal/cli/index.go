package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Jerry0022/PYCO/internal/app"
)

// NewIndexCommand creates the index command group.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage full-text indexes over articles",
	}
	cmd.AddCommand(newIndexCreateCommand(rootOpts))
	cmd.AddCommand(newIndexDropCommand(rootOpts))
	return cmd
}

func newIndexCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> <field>...",
		Short: "Create or redefine a full-text index",
		Long: `Create a full-text index over one or more text fields. Creating an
index that already exists replaces its fields and rebuilds it.

Example:
  pyco index create text title body`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, fields := args[0], args[1:]
			f := rootOpts.formatter(cmd)
			return withArticles(cmd, rootOpts, func(ctx context.Context, _ *app.App, c *articles) error {
				if err := c.CreateFullTextIndex(ctx, name, fields...); err != nil {
					return WrapExitError(ExitCommandError, "create index failed", err)
				}
				result := map[string]any{"index": name, "fields": fields}
				return f.Success(result, func(w io.Writer) {
					fmt.Fprintf(w, "index %s on %s\n", name, strings.Join(fields, ", "))
				})
			})
		},
	}
}

func newIndexDropCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <name>",
		Short: "Drop a full-text index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			f := rootOpts.formatter(cmd)
			return withArticles(cmd, rootOpts, func(ctx context.Context, _ *app.App, c *articles) error {
				if err := c.DeleteFullTextIndex(ctx, name); err != nil {
					return WrapExitError(ExitFailure, "drop index failed", err)
				}
				return f.Success(map[string]string{"dropped": name}, func(w io.Writer) {
					fmt.Fprintf(w, "dropped index %s\n", name)
				})
			})
		},
	}
}
