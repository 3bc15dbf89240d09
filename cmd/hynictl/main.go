// Command hynictl is a small operator tool around the hyni library: it
// validates and lists provider schemas, manages a local credential vault,
// and lets you inspect the exact request body a schema would build for a
// message without spending an API call.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hynictl",
		Short: "hynictl inspects hyni provider schemas and manages local credentials",
	}
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newCredCmd())
	root.AddCommand(newSnapshotCmd())
	root.AddCommand(newVersionCmd())
	return root
}
