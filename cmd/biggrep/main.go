//go:build unix

package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "biggrep",
		Short:   "Search byte-n-gram indices for content matches",
		Version: version + " (" + commit + ")",
	}

	root.AddCommand(newSearchCmd())
	root.AddCommand(newFileidmapCmd())

	if err := root.Execute(); err != nil {
		return exitCodeFor(err)
	}
	return 0
}

// exitCodeFor unwraps the sentinel used by the search subcommand to
// carry a specific process exit code (e.g. 2 for candidate limit
// exceeded) through cobra's plain error-returning RunE contract.
func exitCodeFor(err error) int {
	var ec exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return 1
}
