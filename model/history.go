package model

import "time"

// History represents a single triaged log step.
// It is what gets persisted so later invocations can tell known failures from new ones.
type History struct {
	// Unique ID for this entry (16 random bytes, hex encoded)
	ID string `json:"id"`
	// Timestamp when the log was triaged
	Timestamp time.Time `json:"timestamp"`
	// CI job the log belongs to
	Job *Job `json:"job,omitempty"`
	// Index of the log step within the job
	TestStep int `json:"test_step"`
	// Log file that was parsed
	LogFile string `json:"log_file,omitempty"`
	// Number of completed runs per status
	Counts map[Status]int `json:"counts"`
	// Failed runs with their signatures
	Failures []Failure `json:"failures,omitempty"`
	// Names of runs that never completed
	Unfinished []string `json:"unfinished,omitempty"`
	// Local checkout the triage was run from
	Git *Git `json:"git,omitempty"`
}

type Git struct {
	Commit string `json:"commit"`
	Branch string `json:"branch"`
	// Fetch URL of the upstream remote
	Remote string `json:"remote,omitempty"`
}

// Failure is the persisted form of a failed test run.
type Failure struct {
	// Test function name
	Name string `json:"name"`
	// Normalised failure signature (see classify.Signature)
	Signature string `json:"signature"`
	// Triage tags assigned when the failure was recorded
	Classifications []Classification `json:"classifications,omitempty"`
	// Deep link to the failure line
	URL string `json:"url"`
}
