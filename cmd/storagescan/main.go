// Command storagescan walks a directory tree and streams per-entry
// metadata into a columnar (Parquet) table for storage-footprint
// analytics.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is the build version reported by the version subcommand. It is
// overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "storagescan",
		Short:   "High-throughput filesystem scanner for storage analytics",
		Version: version,
	}

	root.AddCommand(newScanCmd())
	root.AddCommand(newAggregateCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
