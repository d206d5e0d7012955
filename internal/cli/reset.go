package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Jerry0022/PYCO/internal/article"
)

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		partition string
		yes       bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every document and index of a partition",
		Long: `Delete every document and full-text index of a partition.

This cannot be undone and is not replicated: the remote peer keeps its copy
and a later "pyco replicate" pulls it back. Requires --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "reset is destructive: pass --yes to confirm")
			}

			a, err := rootOpts.openApp()
			if err != nil {
				return err
			}
			defer closeApp(a)

			if err := a.Store.Reset(commandContext(cmd), partition); err != nil {
				return WrapExitError(ExitFailure, "reset failed", err)
			}
			return rootOpts.formatter(cmd).Success(map[string]string{"reset": partition}, func(w io.Writer) {
				fmt.Fprintf(w, "reset %s\n", partition)
			})
		},
	}

	cmd.Flags().StringVar(&partition, "partition", article.Partition, "partition to wipe")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")

	return cmd
}
