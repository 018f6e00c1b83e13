package model

import (
	"cmp"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// TestSummary aggregates the runs of one test across jobs.
type TestSummary struct {
	Name    string
	Results []*TestRun
}

// SuccessRate returns the fraction of results that passed.
func (s *TestSummary) SuccessRate(logger zerolog.Logger) float64 {
	if len(s.Results) == 0 {
		logger.Warn().Str("test", s.Name).Msg("No results to calculate success rate for")
		return 0
	}
	passed := 0
	for _, r := range s.Results {
		if r.Status == StatusPass {
			passed++
		}
	}
	return float64(passed) / float64(len(s.Results))
}

// SuccessRateHuman formats the success rate as a percentage, e.g. "66.67%".
func (s *TestSummary) SuccessRateHuman(logger zerolog.Logger) string {
	return fmt.Sprintf("%.2f%%", s.SuccessRate(logger)*100)
}

// IsSkipped reports whether every result was skipped.
func (s *TestSummary) IsSkipped() bool {
	for _, r := range s.Results {
		if r.Status != StatusSkip {
			return false
		}
	}
	return true
}

// SelectTests returns the results that started on the given UTC day.
func (s *TestSummary) SelectTests(day time.Time) []*TestRun {
	y, m, d := day.UTC().Date()
	var selected []*TestRun
	for _, r := range s.Results {
		ry, rm, rd := r.StartTS.UTC().Date()
		if ry == y && rm == m && rd == d {
			selected = append(selected, r)
		}
	}
	return selected
}

// CompareSummaries orders summaries by success rate, then name.
func CompareSummaries(a, b *TestSummary) int {
	nop := zerolog.Nop()
	if c := cmp.Compare(a.SuccessRate(nop), b.SuccessRate(nop)); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}
