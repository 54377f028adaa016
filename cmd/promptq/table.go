package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderTable renders a rounded-style table. Columns are left-aligned;
// numericCols lists zero-based column indices to right-align (counts,
// sequence numbers). Short rows are padded with empty cells.
func renderTable(headers []string, rows [][]string, numericCols ...int) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, cells := range rows {
		row := make(table.Row, len(headers))
		for i := range row {
			if i < len(cells) {
				row[i] = cells[i]
			} else {
				row[i] = ""
			}
		}
		tw.AppendRow(row)
	}

	if len(numericCols) > 0 {
		configs := make([]table.ColumnConfig, 0, len(numericCols))
		for _, col := range numericCols {
			configs = append(configs, table.ColumnConfig{
				Number:      col + 1,
				Align:       text.AlignRight,
				AlignHeader: text.AlignLeft,
			})
		}
		tw.SetColumnConfigs(configs)
	}

	return tw.Render()
}
