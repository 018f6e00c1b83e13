package model

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Status is the go test status token found on a status line
type Status string

const (
	StatusRun  Status = "RUN"
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusSkip Status = "SKIP"
)

// Statuses lists every status in the order they are reported.
var Statuses = []Status{StatusFail, StatusPass, StatusRun, StatusSkip}

// IsTerminal reports whether the status ends a test run.
func (s Status) IsTerminal() bool {
	return s == StatusPass || s == StatusFail || s == StatusSkip
}

// Classification is a triage tag attached to a completed test run
type Classification string

const (
	ClassificationOutOfCapacity  Classification = "OUT_OF_CAPACITY"
	ClassificationFirstTimeError Classification = "FIRST_TIME_ERROR"
	ClassificationLegitError     Classification = "LEGIT_ERROR"
	ClassificationPanic          Classification = "PANIC"
)

// UnknownRuntime is returned by RuntimeHuman when no duration was captured.
const UnknownRuntime = "unknown"

// LineInfo identifies one physical line of a log.
type LineInfo struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Job references the CI job a log belongs to. It is owned by the CI provider.
type Job struct {
	// GitHub job ID
	ID int64 `json:"id"`
	// Workflow run ID the job is part of
	RunID int64 `json:"run_id,omitempty"`
	// Job name as shown in the workflow UI
	Name string `json:"name"`
	// Workflow name (e.g., "Test Suite")
	WorkflowName string `json:"workflow_name,omitempty"`
	// Browser URL of the job, used to build deep links
	HTMLURL string `json:"html_url"`
	// When the job was created
	CreatedAt time.Time `json:"created_at"`
	// When the job completed (zero while running)
	CompletedAt time.Time `json:"completed_at,omitempty"`
	// Attempt number of the workflow run
	RunAttempt int `json:"run_attempt,omitempty"`
}

// TestRun is a single test lifecycle reconstructed from a CI log.
type TestRun struct {
	// Test function name
	Name string `json:"name"`
	// Last observed status, RUN until a terminal line is seen
	Status Status `json:"status"`
	// Line that created the run
	StartLine LineInfo `json:"start_line"`
	// Line that terminated the run
	FinishLine *LineInfo `json:"finish_line,omitempty"`
	// Timestamp of the start line
	StartTS time.Time `json:"start_ts"`
	// Timestamp of the finish line
	FinishTS *time.Time `json:"finish_ts,omitempty"`
	// Duration reported by go test
	RunSeconds *float64 `json:"run_seconds,omitempty"`
	// CI job the log belongs to
	Job *Job `json:"job,omitempty"`
	// Index of the log step within the job
	TestStep int `json:"test_step"`
	// Diagnostic lines captured from the NAME block of the test
	ContextLines []string `json:"context_lines,omitempty"`
	// Triage tags, sorted and without duplicates
	Classifications []Classification `json:"classifications,omitempty"`
}

// IsFailure reports whether the run failed.
func (r *TestRun) IsFailure() bool {
	return r.Status == StatusFail
}

// When returns the time since the run started in human form, e.g. "3 hours ago".
func (r *TestRun) When() string {
	return r.WhenAt(time.Now())
}

// WhenAt is When relative to now.
func (r *TestRun) WhenAt(now time.Time) string {
	return humanize.RelTime(r.StartTS, now, "ago", "from now")
}

// RuntimeHuman returns the duration in human form or UnknownRuntime.
func (r *TestRun) RuntimeHuman() string {
	if r.RunSeconds == nil || *r.RunSeconds == 0 {
		return UnknownRuntime
	}
	return HumanDuration(time.Duration(*r.RunSeconds * float64(time.Second)))
}

// Runtime returns the reported duration, zero when unknown.
func (r *TestRun) Runtime() time.Duration {
	if r.RunSeconds == nil {
		return 0
	}
	return time.Duration(*r.RunSeconds * float64(time.Second))
}

// ContextText joins the context lines.
func (r *TestRun) ContextText() string {
	return strings.Join(r.ContextLines, "\n")
}

// Line returns the most specific line known for the run.
func (r *TestRun) Line() LineInfo {
	if r.FinishLine != nil {
		return *r.FinishLine
	}
	return r.StartLine
}

// URL links to the run's line inside the job's log step.
func (r *TestRun) URL() string {
	htmlURL := ""
	if r.Job != nil {
		htmlURL = r.Job.HTMLURL
	}
	return fmt.Sprintf("%s#step:%d:%d", htmlURL, r.TestStep, r.Line().Number)
}

// FinishSummary combines the most specific line, the deep link and the context.
func (r *TestRun) FinishSummary() string {
	lines := []string{r.Line().Text, r.URL()}
	return strings.Join(append(lines, r.ContextLines...), "\n")
}

// HasClassification reports whether the run carries the tag.
func (r *TestRun) HasClassification(c Classification) bool {
	return slices.Contains(r.Classifications, c)
}

// CompareRuns orders runs by start timestamp, then name.
func CompareRuns(a, b *TestRun) int {
	if c := a.StartTS.Compare(b.StartTS); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

// SortRuns sorts runs in presentation order.
func SortRuns(runs []*TestRun) {
	slices.SortStableFunc(runs, CompareRuns)
}

// HumanDuration formats a duration like "7 minutes".
func HumanDuration(d time.Duration) string {
	base := time.Unix(0, 0)
	return strings.TrimSpace(humanize.RelTime(base, base.Add(d), "", ""))
}
