package metrics

import (
	"context"
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SummaryTable renders the epoch means of mode as a text table, one row per epoch.
func SummaryTable(ctx context.Context, store *Store, mode Mode) (string, error) {
	names, err := store.Metrics(ctx, mode)
	if err != nil {
		return "", err
	}
	summaries, err := store.Summaries(ctx, mode)
	if err != nil {
		return "", err
	}

	t := table.NewWriter()
	t.SetTitle("%s summary", mode)
	t.Style().Format.Header = text.FormatDefault
	header := table.Row{"Epoch"}
	for _, name := range names {
		header = append(header, name)
	}
	t.AppendHeader(header)
	for _, es := range summaries {
		row := table.Row{es.Epoch}
		for _, name := range names {
			st, ok := es.Summary.Get(name)
			if !ok || math.IsNaN(st.Mean) {
				row = append(row, "-")
				continue
			}
			row = append(row, fmt.Sprintf("%.4f", st.Mean))
		}
		t.AppendRow(row)
	}
	return t.Render(), nil
}
