package cli

// This file contains the summary command aggregating downloaded logs.

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/urfave/cli/v2"

	"github.com/perfgo/citriage/classify"
	"github.com/perfgo/citriage/ghlogs"
	"github.com/perfgo/citriage/gotestlog"
	"github.com/perfgo/citriage/metrics"
	"github.com/perfgo/citriage/model"
	"github.com/perfgo/citriage/report"
)

var timeNow = time.Now

const indexFile = "SUMMARY.md"

// parseStepLogs parses the logs concurrently. Runs started before since are dropped.
func (a *App) parseStepLogs(logs []ghlogs.StepLog, since time.Time) ([]parsedLog, error) {
	p := pool.NewWithResults[parsedLog]().
		WithErrors().
		WithMaxGoroutines(a.cfg.Concurrency)
	for _, log := range logs {
		p.Go(func() (parsedLog, error) {
			logger := a.logger.With().Str("file", log.Path).Logger()
			result, err := gotestlog.ParseFile(logger, log.Path, log.Job, log.Step)
			if err != nil {
				return parsedLog{}, err
			}
			kept := result.Runs[:0]
			for _, run := range result.Runs {
				if !run.StartTS.Before(since) {
					kept = append(kept, run)
				}
			}
			result.Runs = kept
			return parsedLog{path: log.Path, job: log.Job, step: log.Step, result: result}, nil
		})
	}
	return p.Wait()
}

func (a *App) summary(ctx *cli.Context) error {
	now := timeNow()
	start := now.Add(-ctx.Duration("since"))

	if ctx.Bool("fetch") {
		f, err := a.fetcher(0)
		if err != nil {
			return err
		}
		if _, err := f.Download(ctx.Context, start); err != nil {
			return err
		}
	}

	logsDir, err := a.logsDir()
	if err != nil {
		return err
	}
	stepName := a.cfg.StepName
	if name := ctx.String("step-name"); name != "" {
		stepName = name
	}
	stepLogs, err := ghlogs.LoadStepLogs(logsDir, stepName)
	if err != nil {
		return err
	}
	a.logger.Info().Int("logs", len(stepLogs)).Str("step", stepName).Msg("Parsing step logs")

	parsed, err := a.parseStepLogs(stepLogs, start)
	if err != nil {
		return err
	}

	index, err := a.loadIndex()
	if err != nil {
		return err
	}
	recorder := metrics.NewRecorder()
	var runs []*model.TestRun
	for _, l := range parsed {
		classify.Apply(l.result.Runs, index)
		recorder.ObserveLog(l.result.Runs, l.result.Unfinished)
		runs = append(runs, l.result.Runs...)
	}
	model.SortRuns(runs)

	title := fmt.Sprintf("%s %s..%s", stepName, start.UTC().Format(time.DateOnly), now.UTC().Format(time.DateOnly))
	report.SummaryTable(a.logger, os.Stdout, title, report.Summaries(runs), now)

	failing := report.FailedNames(runs)
	if len(failing) > 0 {
		fmt.Println()
		fmt.Println(strings.Join(report.ShortSummary(runs, failing, now), "\n"))
	}

	if dir := ctx.String("output"); dir != "" {
		detailed := report.DetailedSummary(a.logger, runs, start, now, now, ctx.StringSlice("expected"))
		if err := writeDetailed(dir, detailed); err != nil {
			return err
		}
		a.logger.Info().Str("dir", dir).Int("tests", len(detailed.Files)).Msg("Wrote detailed summary")
	}

	if path := ctx.String("metrics"); path != "" {
		return recorder.WriteTextfile(path)
	}
	return nil
}

func writeDetailed(dir string, detailed *report.Detailed) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create summary directory: %w", err)
	}
	index := strings.Join(detailed.Index, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, indexFile), []byte(index), 0644); err != nil {
		return fmt.Errorf("failed to write summary index: %w", err)
	}
	for name, content := range detailed.Files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
