package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sydlexius/trackyear/internal/export"
)

func newExportCommand(cc *commandContext) *cobra.Command {
	var format, outPath string

	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export the verified tracks of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			data, err := a.runs.Export(ctx, args[0], format)
			if err != nil {
				return a.explain(err)
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := export.WriteFile(outPath, data); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", export.FormatSongs, "Export format (songs or game)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default stdout)")
	return cmd
}
