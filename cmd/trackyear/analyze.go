package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/sydlexius/trackyear/internal/export"
	"github.com/sydlexius/trackyear/internal/review"
)

func newAnalyzeCommand(cc *commandContext) *cobra.Command {
	var (
		approveGreen bool
		outPath      string
		format       string
		quiet        bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <playlist>",
		Short: "Analyze a Spotify playlist and store the run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			runner, err := a.newRunner(ctx)
			if err != nil {
				return a.explain(err)
			}

			var bar *progressbar.ProgressBar
			onProgress := func(p review.Progress) {
				if quiet {
					return
				}
				if bar == nil {
					bar = progressbar.NewOptions(p.Total,
						progressbar.OptionSetWriter(cmd.ErrOrStderr()),
						progressbar.OptionSetTheme(progressbar.ThemeASCII),
						progressbar.OptionFullWidth(),
						progressbar.OptionShowCount(),
						progressbar.OptionSetDescription("Analyzing tracks..."),
					)
				}
				_ = bar.Set(p.Done)
			}

			run, runErr := runner.Run(ctx, args[0], onProgress)
			if bar != nil {
				_ = bar.Finish()
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			if run == nil {
				return a.explain(runErr)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", run.PlaylistName, run.ID)
			fmt.Fprintln(out, renderTable(trackHeaders, trackRows(run.Tracks), trackAligns))
			s := run.Summary()
			fmt.Fprintf(out, "%d tracks: %d green, %d yellow, %d red, %d errors\n",
				s.Total, s.Green, s.Yellow, s.Red, s.Errors)
			if runErr != nil {
				return a.explain(runErr)
			}

			if approveGreen {
				n, err := a.runs.ApproveAllGreen(ctx, run.ID)
				if err != nil {
					return a.explain(err)
				}
				fmt.Fprintf(out, "approved %d green tracks\n", n)
			}
			if outPath != "" {
				data, err := a.runs.Export(ctx, run.ID, format)
				if err != nil {
					return a.explain(err)
				}
				if err := export.WriteFile(outPath, data); err != nil {
					return fmt.Errorf("writing export: %w", err)
				}
				fmt.Fprintf(out, "exported to %s\n", outPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&approveGreen, "approve-green", false, "Approve every green track after the run")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the verified tracks to this file")
	cmd.Flags().StringVar(&format, "format", export.FormatSongs, "Export format (songs or game)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")
	return cmd
}
