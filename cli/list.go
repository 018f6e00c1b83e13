package cli

// This file contains the list command for displaying previous triage runs.

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/citriage/history"
	"github.com/perfgo/citriage/model"
	"github.com/perfgo/citriage/report"
)

func (a *App) list(ctx *cli.Context) error {
	filterJob := ctx.String("job")
	onlyFailed := ctx.Bool("failed")
	limit := ctx.Int("limit")

	root, err := a.historyRoot()
	if err != nil {
		return err
	}

	// Load all history entries, newest first
	historyEntries, err := history.LoadEntries(a.logger, root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	var filteredEntries []history.Entry
	for _, entry := range historyEntries {
		h := entry.History
		if onlyFailed && len(h.Failures) == 0 {
			continue
		}
		if filterJob != "" && (h.Job == nil || !strings.Contains(h.Job.Name, filterJob)) {
			continue
		}
		filteredEntries = append(filteredEntries, entry)
	}

	if len(filteredEntries) == 0 {
		if filterJob != "" {
			fmt.Printf("No history entries found matching job: %s\n", filterJob)
		} else {
			fmt.Println("No history entries found")
		}
		return nil
	}

	displayRuns := filteredEntries
	if limit > 0 && limit < len(displayRuns) {
		displayRuns = displayRuns[:limit]
	}

	fmt.Printf("\n=== History (%d total) ===\n\n", len(filteredEntries))

	for _, entry := range displayRuns {
		h := entry.History
		timestamp := h.Timestamp.Format("2006-01-02 15:04:05")

		status := "✓"
		if len(h.Failures) > 0 {
			status = "✗"
		}

		var counts []string
		for _, s := range model.Statuses {
			if n := h.Counts[s]; n > 0 {
				counts = append(counts, fmt.Sprintf("%s=%d", s, n))
			}
		}

		fmt.Printf("%s  %s  [%s]  id=%s\n", status, timestamp, strings.Join(counts, " "), h.ID[:min(8, len(h.ID))])
		if h.Job != nil {
			fmt.Printf("   Job: %s\n", report.FormatJob(h.Job))
			if h.Job.HTMLURL != "" {
				fmt.Printf("   URL: %s\n", h.Job.HTMLURL)
			}
		}
		if h.LogFile != "" {
			fmt.Printf("   Log: %s\n", h.LogFile)
		}
		if h.Git != nil && h.Git.Commit != "" {
			fmt.Printf("   Commit: %s", h.Git.Commit[:min(8, len(h.Git.Commit))])
			if h.Git.Branch != "" {
				fmt.Printf(" (%s)", h.Git.Branch)
			}
			fmt.Println()
		}
		for _, failure := range h.Failures {
			fmt.Printf("   FAIL %s %v\n", failure.Name, failure.Classifications)
		}
		if len(h.Unfinished) > 0 {
			fmt.Printf("   Unfinished: %s\n", strings.Join(h.Unfinished, ", "))
		}
		fmt.Printf("   %s\n", entry.FullPath)
		fmt.Println()
	}

	fmt.Printf("View failures: %s view <ID>\n", AppName)
	fmt.Printf("View durations: %s view <ID> -- -top\n", AppName)

	return nil
}
