package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Jerry0022/PYCO/internal/app"
	"github.com/Jerry0022/PYCO/internal/replication"
)

// ReplicateOptions holds flags for the replicate command.
type ReplicateOptions struct {
	*RootOptions
	Endpoint   string
	Continuous bool
}

// replicateResult is the printed outcome of a replication run.
type replicateResult struct {
	Endpoint string `json:"endpoint"`
	Status   string `json:"status"`
	Pushed   int    `json:"pushed"`
	Pulled   int    `json:"pulled"`
}

// NewReplicateCommand creates the replicate command.
func NewReplicateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplicateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replicate",
		Short: "Replicate the local store with the configured peer",
		Long: `Push local changes to the replication endpoint and pull remote ones.

Without --continuous the command returns once both directions have caught
up. With it, replication keeps running until interrupted. When the flag is
not given, replication.continuous from the configuration decides.

Example:
  pyco replicate --continuous=false
  pyco replicate --endpoint ws://localhost:4984 --continuous`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplicate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "replication endpoint (overrides replication.endpoint)")
	cmd.Flags().BoolVar(&opts.Continuous, "continuous", false, "keep replicating until interrupted")

	return cmd
}

func runReplicate(opts *ReplicateOptions, cmd *cobra.Command) error {
	a, err := opts.openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	if opts.Endpoint != "" {
		a.Config.Replication.Endpoint = opts.Endpoint
	}
	continuous := a.Config.Replication.Continuous
	if cmd.Flags().Changed("continuous") {
		continuous = opts.Continuous
	}

	ctx, stop := withSignals(commandContext(cmd))
	defer stop()

	r, err := a.StartReplication(ctx, continuous)
	if errors.Is(err, app.ErrReplicationDisabled) {
		return WrapExitError(ExitCommandError, "nothing to do", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid replication endpoint", err)
	}

	f := opts.formatter(cmd)
	f.VerboseLog("replicating with %s (continuous=%v)", r.URL(), continuous)

	select {
	case <-r.Done():
	case <-ctx.Done():
		r.Stop()
	}

	stats := r.Stats()
	result := replicateResult{
		Endpoint: r.URL(),
		Status:   r.Status().String(),
		Pushed:   stats.Pushed,
		Pulled:   stats.Pulled,
	}
	if r.Status() == replication.StatusError {
		if f.Format == "json" {
			f.Error("E_REPLICATION", r.Err().Error(), result)
		}
		return WrapExitError(ExitFailure, "replication failed", r.Err())
	}
	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "replication %s: pushed %d, pulled %d\n", result.Status, result.Pushed, result.Pulled)
	})
}
