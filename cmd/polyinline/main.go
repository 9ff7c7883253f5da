// Command polyinline runs the call-site inlining heuristic over scenario
// graphs and journals its decisions.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/polyinline/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
