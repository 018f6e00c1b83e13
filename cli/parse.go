package cli

// This file contains the parse command for triaging local log files.

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/citriage/classify"
	"github.com/perfgo/citriage/gotestlog"
	"github.com/perfgo/citriage/history"
	"github.com/perfgo/citriage/metrics"
	"github.com/perfgo/citriage/model"
	"github.com/perfgo/citriage/report"
)

// https://github.com/<owner>/<repo>/actions/runs/<run>/job/<job>
var jobURLPattern = regexp.MustCompile(`/actions/runs/(?P<run>\d+)/job/(?P<job>\d+)`)

func jobFromURL(jobURL, name string) (*model.Job, error) {
	m := jobURLPattern.FindStringSubmatch(jobURL)
	if m == nil {
		return nil, fmt.Errorf("invalid job url: %s", jobURL)
	}
	runID, err := strconv.ParseInt(m[jobURLPattern.SubexpIndex("run")], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid run id in %s: %w", jobURL, err)
	}
	jobID, err := strconv.ParseInt(m[jobURLPattern.SubexpIndex("job")], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid job id in %s: %w", jobURL, err)
	}
	return &model.Job{
		ID:      jobID,
		RunID:   runID,
		Name:    name,
		HTMLURL: strings.TrimRight(jobURL, "/"),
	}, nil
}

// loadIndex builds the classification history. Without any recorded history
// every failure is new.
func (a *App) loadIndex() (classify.History, error) {
	root, err := a.historyRoot()
	if err != nil {
		a.logger.Warn().Err(err).Msg("History unavailable, classifying without it")
		return classify.NoHistory{}, nil
	}
	entries, err := history.LoadEntries(a.logger, root)
	if errors.Is(err, history.ErrNoHistory) {
		a.logger.Debug().Str("root", root).Msg("No triage history yet")
		entries = nil
	} else if err != nil {
		return nil, err
	}
	index, err := history.NewIndex(entries, a.cfg.LegitErrors)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Int("signatures", index.Len()).Msg("Loaded triage history")
	return index, nil
}

type parsedLog struct {
	path   string
	job    *model.Job
	step   int
	result *gotestlog.Result
}

func (a *App) parse(ctx *cli.Context) error {
	files := ctx.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("no log file specified")
	}

	var job *model.Job
	if jobURL := ctx.String("job-url"); jobURL != "" {
		var err error
		job, err = jobFromURL(jobURL, ctx.String("job-name"))
		if err != nil {
			return err
		}
	} else if name := ctx.String("job-name"); name != "" {
		job = &model.Job{Name: name}
	}
	step := ctx.Int("step")

	index, err := a.loadIndex()
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	var logs []parsedLog
	var all []*model.TestRun
	for _, path := range files {
		result, err := gotestlog.ParseFile(a.logger.With().Str("file", path).Logger(), path, job, step)
		if err != nil {
			return err
		}
		classify.Apply(result.Runs, index)
		recorder.ObserveLog(result.Runs, result.Unfinished)
		logs = append(logs, parsedLog{path: path, job: job, step: step, result: result})
		all = append(all, result.Runs...)
	}
	model.SortRuns(all)

	if len(all) == 0 {
		a.logger.Warn().Strs("files", files).Msg("No test runs found")
	} else {
		_, summary := report.JobSummary(all)
		fmt.Println(summary)
	}
	for _, run := range all {
		if run.IsFailure() {
			fmt.Printf("%s %v\n", run.FinishSummary(), run.Classifications)
		}
	}
	if failed := report.FailedNames(all); len(failed) > 0 {
		fmt.Printf("\nRerun failed tests:\n  %s\n", report.RerunCommand(all, ctx.String("package")))
	}

	if path := ctx.String("metrics"); path != "" {
		if err := recorder.WriteTextfile(path); err != nil {
			return err
		}
	}
	if path := ctx.String("profile"); path != "" {
		if err := writeProfile(path, all); err != nil {
			return err
		}
	}
	if ctx.Bool("record") {
		return a.record(logs)
	}
	return nil
}

func writeProfile(path string, runs []*model.TestRun) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	if err := report.WriteDurationProfile(f, runs, timeNow()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *App) record(logs []parsedLog) error {
	root, err := a.historyRoot()
	if err != nil {
		return err
	}

	git, err := a.checkout()
	if err != nil {
		a.logger.Debug().Err(err).Msg("Recording without git checkout info")
	}

	for _, l := range logs {
		h := history.NewRecord(l.job, l.step, l.path, l.result.Runs, l.result.Unfinished)
		h.Git = git
		dir, err := history.Record(a.logger, root, h, report.FailTestSummary(l.result.Runs))
		if err != nil {
			return err
		}
		if len(l.result.Runs) > 0 {
			entry := history.Entry{History: *h, FullPath: dir}
			if err := writeProfile(entry.ProfilePath(), l.result.Runs); err != nil {
				a.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to record duration profile")
			}
		}
		a.logger.Info().Str("id", h.ID[:8]).Str("dir", dir).Int("failures", len(h.Failures)).Msg("Recorded triage")
	}
	return nil
}
