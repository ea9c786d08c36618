package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

type column struct {
	header string
	align  columnAlignment
}

// tableOptions tunes a rendered listing. highlight picks rows to paint
// (qualifying comparison results); it only applies when colorize is set.
type tableOptions struct {
	footer    []string
	highlight func(row []string) bool
	colorize  bool
}

var highlightColors = text.Colors{text.FgGreen, text.Bold}

func renderTable(columns []column, rows [][]string, opts tableOptions) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault

	tw.AppendHeader(padRow(headers(columns), len(columns)))
	for _, row := range rows {
		tw.AppendRow(padRow(row, len(columns)))
	}
	if len(opts.footer) > 0 {
		tw.AppendFooter(padRow(opts.footer, len(columns)))
	}

	if opts.colorize && opts.highlight != nil {
		tw.SetRowPainter(table.RowPainter(func(row table.Row) text.Colors {
			cells := make([]string, len(row))
			for i, cell := range row {
				cells[i], _ = cell.(string)
			}
			if opts.highlight(cells) {
				return highlightColors
			}
			return nil
		}))
	}

	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		align := text.AlignLeft
		if c.align == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render() + "\n"
}

func headers(columns []column) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.header
	}
	return out
}

func padRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
