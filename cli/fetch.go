package cli

// This file contains the fetch command for downloading GitHub Actions logs.

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/citriage/ghlogs"
)

func (a *App) fetcher(maxDownloads int) (*ghlogs.Fetcher, error) {
	gh := a.cfg.GitHub
	if gh.Owner == "" || gh.Repo == "" {
		return nil, fmt.Errorf("github owner and repo must be configured")
	}
	if gh.Token == "" {
		a.logger.Warn().Msg("No GitHub token set, requests are unauthenticated and log downloads will fail")
	}
	logsDir, err := a.logsDir()
	if err != nil {
		return nil, err
	}
	if maxDownloads <= 0 {
		maxDownloads = a.cfg.MaxDownloads
	}
	return ghlogs.NewGitHubFetcher(a.logger, gh.Token, ghlogs.Options{
		Owner:        gh.Owner,
		Repo:         gh.Repo,
		Branch:       gh.Branch,
		Workflows:    gh.Workflows,
		LogsDir:      logsDir,
		MaxDownloads: maxDownloads,
		Concurrency:  a.cfg.Concurrency,
	}), nil
}

func (a *App) fetch(ctx *cli.Context) error {
	f, err := a.fetcher(ctx.Int("max-downloads"))
	if err != nil {
		return err
	}
	since := timeNow().Add(-ctx.Duration("since"))
	start := time.Now()
	dirs, err := f.Download(ctx.Context, since)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		fmt.Println(dir)
	}
	a.logger.Info().
		Int("runs", len(dirs)).
		Dur("took", time.Since(start)).
		Msg("Fetch complete")
	return nil
}
