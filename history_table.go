package bfasm

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
)

const historySourceWidth = 40

// RenderHistory prints entries as a table, one row per compilation.
func RenderHistory(w io.Writer, entries []*Compilation) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "When", "Mode", "Status", "Labels", "Exit", "Source", "Error"})
	for _, e := range entries {
		exit := ""
		if e.ExitCode != nil {
			exit = fmt.Sprint(*e.ExitCode)
		}
		msg := ""
		if e.Error != nil {
			msg = firstLine(*e.Error)
		}
		t.AppendRow(table.Row{
			e.ID,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Mode,
			e.Status,
			e.Labels,
			exit,
			shorten(e.Source),
			msg,
		})
	}
	t.Render()
}

// RenderMetrics prints the aggregate counts of the history.
func RenderMetrics(w io.Writer, m *HistoryMetrics) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("History")
	t.AppendHeader(table.Row{"Metric", "Count"})
	t.AppendRow(table.Row{"total", m.Total})
	t.AppendRow(table.Row{"distinct sources", m.DistinctSrcs})
	for _, s := range m.Statuses() {
		t.AppendRow(table.Row{"status " + string(s), m.ByStatus[s]})
	}
	for _, k := range []ErrorKind{BracketMismatch, UnterminatedLoop, UnsupportedInstruction, FormattingFailure} {
		if n, ok := m.ByErrorKind[k.String()]; ok {
			t.AppendRow(table.Row{k.String(), n})
		}
	}
	t.Render()
}

func shorten(src string) string {
	src = strings.Join(strings.Fields(src), " ")
	return runewidth.Truncate(src, historySourceWidth, "...")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
