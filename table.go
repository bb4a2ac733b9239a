package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pptlabs/pastelink/internal/bundle"
	"github.com/pptlabs/pastelink/internal/scenario"
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
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// writeResult prints the steps and final slides of one replay. Failed steps
// are highlighted when color is set.
func writeResult(w io.Writer, res *scenario.Result, color bool) error {
	title := res.Name
	if title == "" {
		title = "scenario"
	}
	if _, err := fmt.Fprintln(w, keyword(title)); err != nil {
		return err
	}

	steps := make([][]string, 0, len(res.Steps))
	for _, st := range res.Steps {
		outcome := st.Outcome
		if st.Err != "" {
			outcome += ": " + st.Err
			if color {
				outcome = failed(outcome)
			}
		}
		steps = append(steps, []string{
			strconv.Itoa(st.Index),
			st.Action,
			st.Window,
			outcome,
			count(st.Matched),
			count(st.Renamed),
			count(st.Propagated),
		})
	}
	if _, err := fmt.Fprintln(w, renderTable(
		[]string{"#", "Action", "Window", "Outcome", "Matched", "Renamed", "Propagated"},
		steps,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)); err != nil {
		return err
	}

	slides := make([][]string, 0, len(res.Slides))
	for _, sl := range res.Slides {
		slides = append(slides, []string{
			sl.Document,
			strconv.Itoa(sl.Index),
			strconv.Itoa(sl.ID),
			shapeNames(sl.Shapes),
			count(len(sl.Scripts)),
			humanize.Bytes(uint64(sl.AudioBytes)), //nolint:gosec
		})
	}
	if _, err := fmt.Fprintln(w, renderTable(
		[]string{"Document", "Slide", "ID", "Shapes", "Scripts", "Audio"},
		slides,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignRight, alignRight},
	)); err != nil {
		return err
	}

	s := res.Stats
	_, err := fmt.Fprintf(w, "%d copies, %d pastes, %d correlated, %d renamed, %d propagated, %d stale, %d failures\n",
		s.Copies, s.Pastes, s.Correlated, s.Renamed, s.Propagated, s.Stale, res.Failures)
	return err
}

// shapeNames lists shapes bottom to top, marking unreadable ones.
func shapeNames(shapes []scenario.ShapeState) string {
	names := make([]string, 0, len(shapes))
	for _, sh := range shapes {
		name := sh.Name
		if !sh.Readable {
			name += " (corrupt)"
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func count(n int) string {
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

func clipSummary(s bundle.Stats) string {
	return fmt.Sprintf("clips: %d stored, %s of %s, %d hits, %d misses, %d rejected",
		s.ItemCount, humanize.Bytes(uint64(s.Size)), humanize.Bytes(uint64(s.Capacity)), //nolint:gosec
		s.Hits, s.Misses, s.Rejected)
}
