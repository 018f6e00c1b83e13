package cli

// This file contains the view command for displaying triage runs from history.

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/citriage/history"
	"github.com/perfgo/citriage/model"
	"github.com/perfgo/citriage/report"
)

func removeFirstDashDash(in []string) []string {
	if len(in) > 0 && in[0] == "--" {
		return in[1:]
	}
	return in
}

func parseViewArgs(in []string) (idArg string, pprofArgs []string) {
	if len(in) == 0 {
		return "0", nil
	}

	// If first arg is "--", use default "0" and rest are pprof args
	if in[0] == "--" {
		return "0", in[1:]
	}

	// A negative index is: "-" followed by only digits (e.g., "-1", "-2")
	// A pprof flag is: "-" followed by non-digit or equals (e.g., "-http=:8080", "-top")
	if len(in[0]) > 1 && in[0][0] == '-' {
		if _, err := strconv.ParseInt(in[0], 10, 64); err != nil {
			return "0", in
		}
	}

	// First arg is the ID/index, rest are pprof args (with optional "--" removed)
	return in[0], removeFirstDashDash(in[1:])
}

// selectEntry resolves an index (0 for the newest, -1 for the one before, ...)
// or a hex ID prefix. Entries must be sorted newest first.
func selectEntry(entries []history.Entry, arg string) (*history.Entry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no history entries found")
	}
	if parsed, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if parsed > 0 {
			return nil, fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, -2 for third-to-last, etc.)", arg)
		}
		index := int(-parsed)
		if index >= len(entries) {
			return nil, fmt.Errorf("index %s out of range (only %d history entries)", arg, len(entries))
		}
		return &entries[index], nil
	}

	hexID := strings.ToLower(arg)
	for i := range entries {
		if strings.HasPrefix(strings.ToLower(entries[i].History.ID), hexID) {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("no history entry found matching ID: %s", arg)
}

func (a *App) view(ctx *cli.Context) error {
	arg, pprofArgs := parseViewArgs(ctx.Args().Slice())

	root, err := a.historyRoot()
	if err != nil {
		return err
	}
	historyEntries, err := history.LoadEntries(a.logger, root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	targetEntry, err := selectEntry(historyEntries, arg)
	if err != nil {
		return err
	}
	return a.displayHistoryEntry(targetEntry, pprofArgs)
}

func (a *App) displayHistoryEntry(entry *history.Entry, pprofArgs []string) error {
	h := entry.History

	if len(pprofArgs) > 0 {
		return a.displayProfile(entry.ProfilePath(), pprofArgs)
	}

	fmt.Printf("=== Triage Run: %s ===\n", h.ID[:min(8, len(h.ID))])
	fmt.Printf("Time: %s\n", h.Timestamp.Format("2006-01-02 15:04:05"))
	if h.Job != nil {
		fmt.Printf("Job: %s\n", report.FormatJob(h.Job))
	}
	if h.LogFile != "" {
		fmt.Printf("Log: %s (step %d)\n", h.LogFile, h.TestStep)
	}
	if h.Git != nil && h.Git.Commit != "" {
		fmt.Printf("Git Commit: %s", h.Git.Commit[:min(8, len(h.Git.Commit))])
		if h.Git.Branch != "" {
			fmt.Printf(" (%s)", h.Git.Branch)
		}
		fmt.Println()
		if h.Git.Remote != "" {
			fmt.Printf("Git Remote: %s\n", h.Git.Remote)
		}
	}
	for _, s := range model.Statuses {
		if n := h.Counts[s]; n > 0 {
			fmt.Printf("%s: %d\n", s, n)
		}
	}
	fmt.Println()

	if len(h.Failures) == 0 && len(h.Unfinished) == 0 {
		fmt.Println("No failures recorded")
		fmt.Printf("History directory: %s\n", entry.FullPath)
		return nil
	}

	for _, failure := range h.Failures {
		fmt.Printf("FAIL %s %v\n  %s\n  %s\n", failure.Name, failure.Classifications, failure.Signature, failure.URL)
	}
	for _, name := range h.Unfinished {
		fmt.Printf("UNFINISHED %s\n", name)
	}

	data, err := os.ReadFile(entry.SummaryPath())
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to read summary: %w", err)
	}
	fmt.Printf("\nFailure details: %s\n", entry.SummaryPath())
	fmt.Println(string(data))
	return nil
}

func (a *App) displayProfile(profilePath string, pprofArgs []string) error {
	info, err := os.Stat(profilePath)
	if err != nil {
		return fmt.Errorf("no duration profile recorded: %w", err)
	}
	fmt.Printf("Profile: %s (%.1f KB)\n", profilePath, float64(info.Size())/1024)

	args := []string{"tool", "pprof"}
	args = append(args, pprofArgs...)
	args = append(args, profilePath)

	cmd := exec.Command("go", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
