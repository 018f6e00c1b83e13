package classify

// This file contains the triage rules applied to completed test runs.

import (
	"regexp"
	"slices"
	"strings"

	"github.com/perfgo/citriage/model"
)

// History answers whether a failure signature is already known.
type History interface {
	// Seen reports whether the signature was recorded by an earlier triage.
	Seen(signature string) bool
	// Legit reports whether the signature matches a known legitimate error.
	Legit(signature string) bool
}

var (
	hexIDPattern  = regexp.MustCompile(`\b[0-9a-fA-F]{24,}\b`)
	uuidPattern   = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)
	numberPattern = regexp.MustCompile(`\d+`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// Signature identifies a failure independent of project IDs, timings and
// counters, so that the same error seen in different runs compares equal.
func Signature(run *model.TestRun) string {
	return run.Name + ": " + normalize(errorLine(run.ContextLines))
}

// errorLine picks the first "Error:" line, falling back to the first non-blank line.
func errorLine(lines []string) string {
	first := ""
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "Error:") {
			return trimmed
		}
		if first == "" {
			first = trimmed
		}
	}
	return first
}

func normalize(line string) string {
	line = uuidPattern.ReplaceAllString(line, "<id>")
	line = hexIDPattern.ReplaceAllString(line, "<id>")
	line = numberPattern.ReplaceAllString(line, "N")
	return spacePattern.ReplaceAllString(line, " ")
}

// Classify returns the sorted triage tags of a run. Only failures are tagged.
func Classify(run *model.TestRun, history History) []model.Classification {
	if !run.IsFailure() {
		return nil
	}

	var tags []model.Classification
	context := run.ContextText()
	if strings.Contains(context, "panic:") {
		tags = append(tags, model.ClassificationPanic)
	}
	if strings.Contains(context, string(model.ClassificationOutOfCapacity)) {
		tags = append(tags, model.ClassificationOutOfCapacity)
	}

	signature := Signature(run)
	switch {
	case history.Legit(signature):
		tags = append(tags, model.ClassificationLegitError)
	case !history.Seen(signature):
		tags = append(tags, model.ClassificationFirstTimeError)
	}

	slices.Sort(tags)
	return slices.Compact(tags)
}

// Apply classifies every run in place.
func Apply(runs []*model.TestRun, history History) {
	for _, run := range runs {
		run.Classifications = Classify(run, history)
	}
}

// NoHistory knows no signatures. Every failure is a first time error.
type NoHistory struct{}

func (NoHistory) Seen(string) bool  { return false }
func (NoHistory) Legit(string) bool { return false }
