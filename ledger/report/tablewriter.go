/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// column is a table header. Counts and durations are numeric and are
// right aligned so their digits line up.
type column struct {
	name    string
	numeric bool
}

func text(name string) column { return column{name: name} }
func number(name string) column { return column{name: name, numeric: true} }

// table collects the rows of one markdown table.
type table struct {
	columns []column
	rows    [][]string
}

func newTable(columns ...column) *table {
	return &table{columns: columns}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

// markdown renders the collected rows. A row whose width does not match
// the header is an error rather than a shifted table.
func (t *table) markdown() (string, error) {
	headers := make([]string, len(t.columns))
	align := make([]tw.Align, len(t.columns))
	for i, c := range t.columns {
		headers[i] = c.name
		align[i] = tw.AlignLeft
		if c.numeric {
			align[i] = tw.AlignRight
		}
	}
	for i, row := range t.rows {
		if len(row) != len(t.columns) {
			return "", fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.columns))
		}
	}

	var buf bytes.Buffer
	tbl := tablewriter.NewTable(&buf,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{PerColumn: align},
			},
		}),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Right: tw.On, Top: tw.Off, Bottom: tw.Off},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
	if err := tbl.Bulk(t.rows); err != nil {
		return "", fmt.Errorf("add rows: %w", err)
	}
	if err := tbl.Render(); err != nil {
		return "", fmt.Errorf("render table: %w", err)
	}
	return buf.String(), nil
}
