// Package cli wires the kestrel diagnostic commands: running the
// synthetic cache workload, printing reports and browsing recorded
// snapshots.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	DBPath     string
}

// NewRootCommand creates the root command for the kestrel CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "kestrel",
		Short: "kestrel - baseline-tier cache diagnostics",
		Long:  "Inspect and benchmark the inline-cache subsystem of the kestrel baseline tier.",
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML cache config (defaults apply when empty)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "kestrel.db", "path to the telemetry database")

	cmd.AddCommand(NewBenchCommand(opts))
	cmd.AddCommand(NewSnapshotsCommand(opts))

	return cmd
}
