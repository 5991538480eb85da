package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kestrel/internal/telemetry"
)

// NewSnapshotsCommand creates the snapshots command. Without arguments
// it lists recorded snapshots; with a snapshot id it prints that
// snapshot's per-cache rows.
func NewSnapshotsCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots [snapshot-id]",
		Short: "List recorded telemetry snapshots",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := telemetry.Open(root.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()

			if len(args) == 1 {
				rows, err := store.CacheRows(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Fprintf(out, "no caches recorded for snapshot %s\n", args[0])
					return nil
				}
				for _, row := range rows {
					fmt.Fprintf(out, "%-40s %-12s entries=%-3d lookups=%-6d hits=%-6d misses=%d\n",
						row.CacheID, row.CacheType, row.EntryCount,
						row.Stats.Lookups, row.Stats.Hits, row.Stats.Misses)
				}
				return nil
			}

			snaps, err := store.Snapshots(cmd.Context())
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Fprintln(out, "no snapshots recorded")
				return nil
			}
			for _, snap := range snaps {
				label := snap.Label
				if label == "" {
					label = "-"
				}
				rate := 0.0
				if snap.Stats.Lookups > 0 {
					rate = float64(snap.Stats.Hits) / float64(snap.Stats.Lookups) * 100
				}
				fmt.Fprintf(out, "%s  %s  caches=%-4d lookups=%-8d hit rate=%6.2f%%  %s\n",
					snap.ID, snap.TakenAt.UTC().Format(time.RFC3339), snap.CacheCount,
					snap.Stats.Lookups, rate, label)
			}
			return nil
		},
	}
}
