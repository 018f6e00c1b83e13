package history

// This file contains the triage history store: recording parsed log steps
// and loading them back to recognise failures seen before.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/perfgo/citriage/classify"
	"github.com/perfgo/citriage/model"
)

// DirName is the history directory created at the repository root.
const DirName = ".citriage"

const (
	historyFile = "history.json"
	summaryFile = "summary.txt"
	// ProfileFile holds the pprof duration profile of the recorded runs.
	ProfileFile = "durations.pb.gz"
)

// ErrNoHistory is returned when the history directory does not exist yet.
var ErrNoHistory = errors.New("no triage history found")

type Entry struct {
	History  model.History
	FullPath string
}

// SummaryPath returns the path of the failure summary stored next to the entry.
func (e Entry) SummaryPath() string {
	return filepath.Join(e.FullPath, summaryFile)
}

// ProfilePath returns the path of the duration profile stored next to the entry.
func (e Entry) ProfilePath() string {
	return filepath.Join(e.FullPath, ProfileFile)
}

// Root returns dir when set, otherwise the .citriage directory at the git repository root.
func Root(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not in a git repository: %w", err)
	}
	repoRoot := strings.TrimSpace(string(output))
	return filepath.Join(repoRoot, DirName), nil
}

// NewRecord builds the persisted form of a parsed log step. Runs are expected
// to be classified already.
func NewRecord(job *model.Job, step int, logFile string, runs []*model.TestRun, unfinished []string) *model.History {
	h := &model.History{
		ID:         strings.ReplaceAll(uuid.NewString(), "-", ""),
		Timestamp:  time.Now(),
		Job:        job,
		TestStep:   step,
		LogFile:    logFile,
		Counts:     make(map[model.Status]int),
		Unfinished: slices.Clone(unfinished),
	}
	for _, run := range runs {
		h.Counts[run.Status]++
		if !run.IsFailure() {
			continue
		}
		h.Failures = append(h.Failures, model.Failure{
			Name:            run.Name,
			Signature:       classify.Signature(run),
			Classifications: run.Classifications,
			URL:             run.URL(),
		})
	}
	return h
}

// Record writes the entry to <root>/history/<timestamp>-<job>-<id>/ and returns that directory.
// A non-empty summary is stored alongside as summary.txt.
func Record(logger zerolog.Logger, root string, h *model.History, summary string) (string, error) {
	timestamp := h.Timestamp.Format("20060102-150405")
	jobID := "local"
	if h.Job != nil && h.Job.ID != 0 {
		jobID = fmt.Sprintf("%d", h.Job.ID)
	}
	shortID := h.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	runDir := filepath.Join(root, "history", fmt.Sprintf("%s-%s-%s", timestamp, jobID, shortID))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create history directory: %w", err)
	}

	if summary != "" {
		if err := os.WriteFile(filepath.Join(runDir, summaryFile), []byte(summary), 0644); err != nil {
			return "", fmt.Errorf("failed to write summary: %w", err)
		}
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, historyFile), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write history: %w", err)
	}

	logger.Debug().Str("dir", runDir).Str("id", h.ID).Msg("Recorded triage history")
	return runDir, nil
}

// LoadEntries loads all history entries below root, newest first.
func LoadEntries(logger zerolog.Logger, root string) ([]Entry, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w in %s", ErrNoHistory, root)
	}

	var entries []Entry
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			historyPath := filepath.Join(path, historyFile)
			if _, err := os.Stat(historyPath); err == nil {
				history, err := parseHistoryJSON(historyPath)
				if err != nil {
					logger.Warn().Err(err).Str("path", historyPath).Msg("Failed to parse history.json")
					return nil
				}

				entries = append(entries, Entry{
					History:  history,
					FullPath: path,
				})
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history directory: %w", err)
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return b.History.Timestamp.Compare(a.History.Timestamp)
	})
	return entries, nil
}

// parseHistoryJSON parses a history.json file.
func parseHistoryJSON(historyPath string) (model.History, error) {
	data, err := os.ReadFile(historyPath)
	if err != nil {
		return model.History{}, err
	}

	var history model.History
	if err := json.Unmarshal(data, &history); err != nil {
		return model.History{}, err
	}

	return history, nil
}
