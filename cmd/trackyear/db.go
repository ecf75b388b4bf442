package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newDBCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(newDBBackupCommand(cc), newDBOptimizeCommand(cc), newDBStatusCommand(cc))
	return cmd
}

func newDBBackupCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a snapshot and prune old ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			snap, err := a.maint.Backup(ctx)
			if err != nil {
				return err
			}
			removed, err := a.maint.Prune()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s), pruned %d\n",
				snap.Filename, humanize.IBytes(uint64(snap.Size)), removed) //nolint:gosec // G115: file sizes are non-negative
			return nil
		},
	}
}

func newDBOptimizeCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Run PRAGMA optimize and truncate the WAL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.maint.Optimize(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "optimized")
			return nil
		},
	}
}

func newDBStatusCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database size and snapshot count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			st, err := a.maint.Status(ctx)
			if err != nil {
				return err
			}
			last := "never"
			if !st.LastOptimizeAt.IsZero() {
				last = humanize.Time(st.LastOptimizeAt)
			}
			rows := [][]string{
				{"Database", humanize.IBytes(uint64(st.DBFileSize))}, //nolint:gosec // G115: file sizes are non-negative
				{"WAL", humanize.IBytes(uint64(st.WALFileSize))},     //nolint:gosec // G115: file sizes are non-negative
				{"Pages", strconv.FormatInt(st.PageCount, 10)},
				{"Page size", strconv.FormatInt(st.PageSize, 10)},
				{"Snapshots", strconv.Itoa(st.Snapshots)},
				{"Last optimize", last},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}
