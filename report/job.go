package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/perfgo/citriage/model"
)

// jobDateFormat is filename safe, e.g. 2024-06-26T04-41.
const jobDateFormat = "2006-01-02T15-04"

// FormatJob renders a job header such as
// "2024-06-26T04-10_Test Suite_attempt1_ (31 minutes)".
func FormatJob(job *model.Job) string {
	execTime := "0s"
	if !job.CompletedAt.IsZero() {
		execTime = model.HumanDuration(job.CompletedAt.Sub(job.CreatedAt))
	}
	return fmt.Sprintf("%s_%s_attempt%d_ (%s)", job.CreatedAt.Format(jobDateFormat), job.WorkflowName, job.RunAttempt, execTime)
}

// JobSummary counts the runs of one job per status. The runs must belong to
// the same job and must not be empty.
func JobSummary(runs []*model.TestRun) (*model.Job, string) {
	counts := make(map[model.Status]int)
	for _, run := range runs {
		counts[run.Status]++
	}
	var parts []string
	for _, status := range model.Statuses {
		if n, ok := counts[status]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", status, n))
		}
	}
	job := runs[0].Job
	header := ""
	if job != nil {
		header = FormatJob(job)
	}
	return job, header + ":" + strings.Join(parts, ",")
}

// FailTestSummary joins the finish summaries of the failed runs.
func FailTestSummary(runs []*model.TestRun) string {
	var details []string
	for _, run := range runs {
		if run.IsFailure() {
			details = append(details, run.FinishSummary())
		}
	}
	return strings.Join(details, "\n")
}

// FailedNames returns the sorted distinct names of failed runs.
func FailedNames(runs []*model.TestRun) []string {
	var names []string
	for _, run := range runs {
		if run.IsFailure() {
			names = append(names, run.Name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}
