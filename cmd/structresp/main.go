// Command structresp validates generated answers from the command line:
// it reads one raw response, runs it through the full engine (cache,
// fallback chain, validation) and prints the tagged outcome as JSON.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:     "structresp",
		Short:   "structresp is a structured response validation engine",
		Version: fmt.Sprintf("%s (%s)", version, gitCommit),
	}

	root.AddCommand(
		newParseCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
