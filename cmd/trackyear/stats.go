package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sydlexius/trackyear/internal/stats"
)

func newStatsCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show statistics over every analyzed playlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			st, err := a.stats.Get(ctx)
			if err != nil {
				return a.explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, statsRows(st), []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func statsRows(st stats.Stats) [][]string {
	rows := [][]string{
		{"Playlists", strconv.Itoa(st.Playlists)},
		{"Tracks", strconv.Itoa(st.Tracks)},
		{"Green", strconv.Itoa(st.Green)},
		{"Yellow", strconv.Itoa(st.Yellow)},
		{"Red", strconv.Itoa(st.Red)},
		{"Errors", strconv.Itoa(st.Errors)},
		{"Verified", strconv.Itoa(st.Verified)},
		{"Compilations", strconv.Itoa(st.Compilations)},
		{"Avg confidence", strconv.FormatFloat(st.AvgConfidenceScore, 'f', 2, 64)},
		{"Avg year difference", strconv.FormatFloat(st.AvgYearDiff, 'f', 2, 64)},
	}
	for _, k := range slices.Sorted(maps.Keys(st.ByConfidence)) {
		rows = append(rows, []string{"Confidence " + k, strconv.Itoa(st.ByConfidence[k])})
	}
	for _, k := range slices.Sorted(maps.Keys(st.ByFlag)) {
		rows = append(rows, []string{"Flag " + k, strconv.Itoa(st.ByFlag[k])})
	}
	if st.LastPlaylist != "" {
		rows = append(rows, []string{"Last playlist", st.LastPlaylist})
	}
	return rows
}
