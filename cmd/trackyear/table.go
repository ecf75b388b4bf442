package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sydlexius/trackyear/internal/analyzer"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// trackRows lists one row per analyzed track in playlist order.
func trackRows(tracks []analyzer.AnalyzedTrack) [][]string {
	rows := make([][]string, 0, len(tracks))
	for i := range tracks {
		at := &tracks[i]
		status := string(at.Status)
		if at.Failed() {
			status = "error"
		}
		if at.Verified {
			status += " ✓"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			at.Title,
			at.Artist,
			yearCell(at.Year),
			yearCell(at.Recommendation.BestYear),
			string(at.Recommendation.Confidence),
			status,
			flagCell(at.Flags),
		})
	}
	return rows
}

var trackHeaders = []string{"#", "Title", "Artist", "Catalog", "Best", "Confidence", "Status", "Flags"}

var trackAligns = []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight}

func yearCell(y int) string {
	if y <= 0 {
		return "-"
	}
	return strconv.Itoa(y)
}

func flagCell(flags []analyzer.Flag) string {
	out := ""
	for i, f := range flags {
		if i > 0 {
			out += ", "
		}
		out += string(f.Type)
	}
	return out
}
