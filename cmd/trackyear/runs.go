package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sydlexius/trackyear/internal/analyzer"
	"github.com/sydlexius/trackyear/internal/review"
)

func newRunsCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			runs, err := a.runs.List(ctx)
			if err != nil {
				return a.explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Playlist", "Status", "Created", "Tracks", "Verified"},
				runRows(runs),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.AddCommand(newShowCommand(cc), newDeleteCommand(cc))
	return cmd
}

func runRows(runs []review.RunInfo) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.PlaylistName,
			r.Status,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(r.Summary.Total),
			strconv.Itoa(r.Summary.Verified),
		})
	}
	return rows
}

func newShowCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the tracks of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			run, err := a.runs.Get(ctx, args[0])
			if err != nil {
				return a.explain(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s, %s)\n", run.PlaylistName, run.Status, run.ID)
			fmt.Fprintln(out, renderTable(trackHeaders, trackRows(run.Tracks), trackAligns))
			return nil
		},
	}
}

func newDeleteCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.runs.Delete(ctx, args[0]); err != nil {
				return a.explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newApproveCommand(cc *commandContext) *cobra.Command {
	var (
		source string
		green  bool
	)

	cmd := &cobra.Command{
		Use:   "approve <run-id> [<track-id> <year>]",
		Short: "Approve a track's year, or every green track with --green",
		Args: func(cmd *cobra.Command, args []string) error {
			if green {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			if green {
				n, err := a.runs.ApproveAllGreen(ctx, args[0])
				if err != nil {
					return a.explain(err)
				}
				fmt.Fprintf(out, "approved %d green tracks\n", n)
				return nil
			}

			year, err := strconv.Atoi(args[2])
			if err != nil {
				return a.explain(fmt.Errorf("year %q: %w", args[2], analyzer.ErrInvalidYear))
			}
			at, err := a.runs.Approve(ctx, args[0], args[1], year, source)
			if err != nil {
				return a.explain(err)
			}
			fmt.Fprintf(out, "%s - %s: %d\n", at.Artist, at.Title, at.FinalYear())
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "manual", "Where the approved year came from")
	cmd.Flags().BoolVar(&green, "green", false, "Approve every green track of the run")
	return cmd
}
