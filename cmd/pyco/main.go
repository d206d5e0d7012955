// Command pyco manages articles in a local document store and replicates
// them with a remote peer.
package main

import (
	"fmt"
	"os"

	"github.com/Jerry0022/PYCO/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
