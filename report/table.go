package report

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog"

	"github.com/perfgo/citriage/model"
)

// SummaryTable renders one row per test summary.
func SummaryTable(logger zerolog.Logger, w io.Writer, title string, summaries []*model.TestSummary, now time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Test", "Runs", "Passed", "Failed", "Skipped", "Success", "Last Failure"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Runs", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Success", Align: text.AlignRight},
	})

	var total, passed, failed, skipped int
	for _, s := range summaries {
		counts := make(map[model.Status]int)
		lastFailure := "-"
		for _, run := range s.Results {
			counts[run.Status]++
			if run.IsFailure() {
				lastFailure = run.WhenAt(now)
			}
		}
		total += len(s.Results)
		passed += counts[model.StatusPass]
		failed += counts[model.StatusFail]
		skipped += counts[model.StatusSkip]
		t.AppendRow(table.Row{
			s.Name,
			len(s.Results),
			counts[model.StatusPass],
			counts[model.StatusFail],
			counts[model.StatusSkip],
			s.SuccessRateHuman(logger),
			lastFailure,
		})
	}

	if failed > 0 {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}
	t.AppendFooter(table.Row{"Total", total, passed, failed, skipped, "", ""})
	t.Render()
}
