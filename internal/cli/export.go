package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Jerry0022/PYCO/internal/article"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var out, partition string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a partition as canonical JSON lines",
		Long: `Write every live document of a partition to a file, one canonical JSON
object per line, in storage order. The file is replaced atomically.

Example:
  pyco export --out articles.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp()
			if err != nil {
				return err
			}
			defer closeApp(a)

			n, err := a.Store.Export(commandContext(cmd), partition, out)
			if err != nil {
				return WrapExitError(ExitFailure, "export failed", err)
			}
			result := map[string]any{"partition": partition, "path": out, "documents": n}
			return rootOpts.formatter(cmd).Success(result, func(w io.Writer) {
				fmt.Fprintf(w, "exported %d documents from %s to %s\n", n, partition, out)
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (required)")
	cmd.Flags().StringVar(&partition, "partition", article.Partition, "partition to export")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
