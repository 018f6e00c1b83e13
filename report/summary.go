package report

// This file contains the per test markdown summaries built across many jobs.

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/perfgo/citriage/model"
)

const dayFormat = "2006-01-02"

// Summaries groups runs by test name, ordered by success rate then name.
func Summaries(runs []*model.TestRun) []*model.TestSummary {
	byName := make(map[string]*model.TestSummary)
	for _, run := range runs {
		s, ok := byName[run.Name]
		if !ok {
			s = &model.TestSummary{Name: run.Name}
			byName[run.Name] = s
		}
		s.Results = append(s.Results, run)
	}
	summaries := slices.Collect(maps.Values(byName))
	for _, s := range summaries {
		model.SortRuns(s.Results)
	}
	slices.SortFunc(summaries, model.CompareSummaries)
	return summaries
}

// FormatTestOneline renders a run as a markdown link, e.g. "[PASS 7 minutes](url)".
func FormatTestOneline(run *model.TestRun) string {
	return fmt.Sprintf("[%s %s](%s)", run.Status, run.RuntimeHuman(), run.URL())
}

// TimelineLines lists one line per UTC day from start to end inclusive.
// Days without runs are reported as MISSING.
func TimelineLines(summary *model.TestSummary, start, end time.Time) []string {
	var lines []string
	first := truncateDay(start)
	last := truncateDay(end)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		active := summary.SelectTests(day)
		if len(active) == 0 {
			lines = append(lines, fmt.Sprintf("%s: MISSING", day.Format(dayFormat)))
			continue
		}
		links := make([]string, 0, len(active))
		for _, run := range active {
			links = append(links, FormatTestOneline(run))
		}
		lines = append(lines, fmt.Sprintf("%s: %s", day.Format(dayFormat), strings.Join(links, ", ")))
	}
	return lines
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FailureDetails renders a section per failed result.
func FailureDetails(summary *model.TestSummary, now time.Time) []string {
	lines := []string{"## Failures"}
	for _, run := range summary.Results {
		if !run.IsFailure() {
			continue
		}
		lines = append(lines,
			fmt.Sprintf("### %s %s", run.WhenAt(now), FormatTestOneline(run)),
			run.FinishSummary(),
			"",
		)
	}
	return lines
}

// SummaryLines renders the full markdown document of one test.
func SummaryLines(logger zerolog.Logger, summary *model.TestSummary, start, end, now time.Time) string {
	lines := []string{
		"## " + summary.Name,
		"Success rate: " + summary.SuccessRateHuman(logger),
		"",
		"### Timeline",
	}
	lines = append(lines, TimelineLines(summary, start, end)...)
	lines = append(lines, "")
	lines = append(lines, FailureDetails(summary, now)...)
	return strings.Join(lines, "\n")
}

// LastPassHuman describes when the test last passed.
func LastPassHuman(summary *model.TestSummary, now time.Time) string {
	for i := len(summary.Results) - 1; i >= 0; i-- {
		if run := summary.Results[i]; run.Status == model.StatusPass {
			return "Passed " + run.WhenAt(now)
		}
	}
	return "never passed"
}

// Detailed is the multi document summary over a date range.
type Detailed struct {
	// Top level markdown lines, one bullet per test
	Index []string
	// Per test markdown keyed by file name
	Files map[string]string
}

// DetailedSummary builds the index and one markdown document per test that
// has non skipped results. Names in expected that produced no summary are
// listed as skipped.
func DetailedSummary(logger zerolog.Logger, runs []*model.TestRun, start, end, now time.Time, expected []string) *Detailed {
	detailed := &Detailed{
		Index: []string{"# SUMMARY OF ALL TESTS name (success rate)"},
		Files: make(map[string]string),
	}

	var summaries []*model.TestSummary
	present := make(map[string]bool)
	for _, s := range Summaries(runs) {
		if s.IsSkipped() {
			continue
		}
		summaries = append(summaries, s)
		present[s.Name] = true
	}

	var skipped []string
	for _, name := range expected {
		if !present[name] {
			skipped = append(skipped, name)
		}
	}
	if len(skipped) > 0 {
		slices.Sort(skipped)
		logger.Warn().Strs("tests", skipped).Msg("Expected tests without results")
		detailed.Index = append(detailed.Index, "Skipped tests: "+strings.Join(skipped, ", "))
	}

	for _, s := range summaries {
		rate := s.SuccessRateHuman(logger)
		file := fmt.Sprintf("%s_%s.md", rate, s.Name)
		detailed.Files[file] = SummaryLines(logger, s, start, end, now)
		detailed.Index = append(detailed.Index,
			fmt.Sprintf("- %s (%s) (%s) ('%s')", s.Name, rate, LastPassHuman(s, now), file))
	}
	return detailed
}

// ShortSummary lists every failure of the named tests with a deep link.
func ShortSummary(runs []*model.TestRun, failing []string, now time.Time) []string {
	byName := make(map[string][]*model.TestRun)
	for _, run := range runs {
		if run.IsFailure() {
			byName[run.Name] = append(byName[run.Name], run)
		}
	}
	lines := []string{"# SUMMARY OF FAILING TESTS"}
	for _, name := range failing {
		failures := byName[name]
		lines = append(lines, fmt.Sprintf("- %s has %d failures:", name, len(failures)))
		for _, run := range failures {
			lines = append(lines, fmt.Sprintf("  - [%s failed in %s](%s)", run.WhenAt(now), run.RuntimeHuman(), run.URL()))
		}
	}
	return lines
}
