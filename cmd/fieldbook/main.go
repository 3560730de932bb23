package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fieldbook",
		Short:         "Availability scanning and slot holds for field-service booking",
		Version:       fmt.Sprintf("%s (commit=%s)", Version, CommitSHA),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newEstimateCmd())

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
