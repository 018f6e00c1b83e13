package ghlogs

// This file contains the download of GitHub Actions run logs.

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/go-github/v59/github"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/perfgo/citriage/model"
)

const (
	perPage = 100
	// RunMetadataFile holds the jobs of a downloaded run.
	RunMetadataFile = "run.json"
	maxRedirects    = 3
)

// ErrLogsNotFound is returned when GitHub no longer has the logs of a run.
var ErrLogsNotFound = errors.New("run logs not found")

// ActionsService defines the GitHub Actions operations used by the fetcher.
// This allows for mocking in tests.
type ActionsService interface {
	ListWorkflowRunsByFileName(ctx context.Context, owner, repo, workflowFileName string, opts *github.ListWorkflowRunsOptions) (*github.WorkflowRuns, *github.Response, error)
	ListWorkflowJobs(ctx context.Context, owner, repo string, runID int64, opts *github.ListWorkflowJobsOptions) (*github.Jobs, *github.Response, error)
	GetWorkflowRunLogs(ctx context.Context, owner, repo string, runID int64, maxRedirects int) (*url.URL, *github.Response, error)
}

// Options configure a Fetcher.
type Options struct {
	Owner  string
	Repo   string
	Branch string
	// Workflow files to download, e.g. "test-suite" or "test-suite.yml".
	// A name without extension is taken as a .yml file.
	Workflows    []string
	LogsDir      string
	MaxDownloads int
	Concurrency  int
}

// Fetcher downloads the logs of workflow runs into a local directory tree:
// <logs>/<YYYY-MM-DD>/<runID>_<workflow stem>/<job>/<n>_<step>.txt
type Fetcher struct {
	logger  zerolog.Logger
	actions ActionsService
	client  *http.Client
	opts    Options
}

// NewFetcher creates a fetcher with custom services.
func NewFetcher(logger zerolog.Logger, actions ActionsService, client *http.Client, opts Options) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Fetcher{logger: logger, actions: actions, client: client, opts: opts}
}

// NewGitHubFetcher creates a fetcher backed by the GitHub API. An empty token
// uses unauthenticated requests.
func NewGitHubFetcher(logger zerolog.Logger, token string, opts Options) *Fetcher {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return NewFetcher(logger, client.Actions, &http.Client{Timeout: 60 * time.Second}, opts)
}

type selectedRun struct {
	id        int64
	stem      string
	createdAt time.Time
}

// ErrNoWorkflows is returned by Download when no workflow file is configured.
var ErrNoWorkflows = errors.New("no workflows configured")

// WorkflowFileName returns the file name runs of workflow are listed by.
func WorkflowFileName(workflow string) string {
	base := path.Base(workflow)
	if path.Ext(base) == "" {
		return base + ".yml"
	}
	return base
}

// StemName returns the file stem of a workflow path, e.g. "test-suite" for
// ".github/workflows/test-suite.yml".
func StemName(workflowPath string) string {
	base := path.Base(workflowPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// RunDir returns the directory a run's logs are extracted to.
func RunDir(logsDir string, createdAt time.Time, runID int64, stem string) string {
	return filepath.Join(logsDir, createdAt.UTC().Format("2006-01-02"), fmt.Sprintf("%d_%s", runID, stem))
}

// Download fetches the logs of the configured workflows created after since.
// It returns the directories written by this call.
func (f *Fetcher) Download(ctx context.Context, since time.Time) ([]string, error) {
	runs, err := f.selectRuns(ctx, since)
	if err != nil {
		return nil, err
	}

	var completed int32
	p := pool.NewWithResults[string]().
		WithErrors().
		WithMaxGoroutines(f.opts.Concurrency).
		WithContext(ctx)
	for _, run := range runs {
		p.Go(func(ctx context.Context) (string, error) {
			dir, err := f.downloadRun(ctx, run)
			if errors.Is(err, ErrLogsNotFound) {
				f.logger.Warn().Int64("run", run.id).Msg("Logs no longer available")
				return "", nil
			}
			if err != nil {
				return "", fmt.Errorf("failed to download run %d: %w", run.id, err)
			}
			f.logger.Info().
				Int64("run", run.id).
				Int32("completed", atomic.AddInt32(&completed, 1)).
				Int("total", len(runs)).
				Msg("Downloaded run logs")
			return dir, nil
		})
	}
	dirs, err := p.Wait()
	var written []string
	for _, dir := range dirs {
		if dir != "" {
			written = append(written, dir)
		}
	}
	return written, err
}

// selectRuns lists the runs of every configured workflow file, in
// configuration order, until MaxDownloads runs are selected.
func (f *Fetcher) selectRuns(ctx context.Context, since time.Time) ([]selectedRun, error) {
	if len(f.opts.Workflows) == 0 {
		return nil, ErrNoWorkflows
	}

	var selected []selectedRun
	for _, workflow := range f.opts.Workflows {
		fileName := WorkflowFileName(workflow)
		stem := StemName(fileName)
		opts := &github.ListWorkflowRunsOptions{
			Branch:              f.opts.Branch,
			Created:             ">" + since.UTC().Format("2006-01-02"),
			ExcludePullRequests: true,
			ListOptions:         github.ListOptions{PerPage: perPage},
		}
		for {
			runs, resp, err := f.actions.ListWorkflowRunsByFileName(ctx, f.opts.Owner, f.opts.Repo, fileName, opts)
			if err != nil {
				return nil, fmt.Errorf("failed to list runs of %s: %w", fileName, err)
			}
			for _, run := range runs.WorkflowRuns {
				f.logger.Debug().Int64("run", run.GetID()).Str("workflow", stem).Msg("Found workflow run")
				selected = append(selected, selectedRun{id: run.GetID(), stem: stem, createdAt: run.GetCreatedAt().Time})
				if f.opts.MaxDownloads > 0 && len(selected) >= f.opts.MaxDownloads {
					f.logger.Warn().Int("max", f.opts.MaxDownloads).Msg("Reached max downloads")
					return selected, nil
				}
			}
			if resp == nil || resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
	}
	return selected, nil
}

func (f *Fetcher) downloadRun(ctx context.Context, run selectedRun) (string, error) {
	dir := RunDir(f.opts.LogsDir, run.createdAt, run.id, run.stem)
	if _, err := os.Stat(dir); err == nil {
		f.logger.Info().Str("dir", dir).Msg("Skipping logs, already downloaded")
		return "", nil
	}

	jobs, err := f.listJobs(ctx, run.id)
	if err != nil {
		return "", err
	}

	logsURL, resp, err := f.actions.GetWorkflowRunLogs(ctx, f.opts.Owner, f.opts.Repo, run.id, maxRedirects)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return "", ErrLogsNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get logs url: %w", err)
	}

	data, err := f.fetch(ctx, logsURL.String())
	if err != nil {
		return "", err
	}
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open logs archive: %w", err)
	}

	if err := install(dir, func(tmp string) error {
		if err := extract(reader, tmp); err != nil {
			return err
		}
		return writeJobs(tmp, jobs)
	}); err != nil {
		return "", err
	}
	return dir, nil
}

// install fills a temporary sibling of dir and renames it into place, so
// dir only ever exists complete.
func install(dir string, fill func(tmp string) error) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	if err := fill(tmp); err != nil {
		os.RemoveAll(tmp)
		return err
	}
	if err := os.Rename(tmp, dir); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("failed to move run directory into place: %w", err)
	}
	return nil
}

func (f *Fetcher) listJobs(ctx context.Context, runID int64) ([]model.Job, error) {
	opts := &github.ListWorkflowJobsOptions{
		Filter:      "all",
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	var jobs []model.Job
	for {
		page, resp, err := f.actions.ListWorkflowJobs(ctx, f.opts.Owner, f.opts.Repo, runID, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list jobs of run %d: %w", runID, err)
		}
		for _, j := range page.Jobs {
			jobs = append(jobs, model.Job{
				ID:           j.GetID(),
				RunID:        j.GetRunID(),
				Name:         j.GetName(),
				WorkflowName: j.GetWorkflowName(),
				HTMLURL:      j.GetHTMLURL(),
				CreatedAt:    j.GetCreatedAt().Time,
				CompletedAt:  j.GetCompletedAt().Time,
				RunAttempt:   int(j.GetRunAttempt()),
			})
		}
		if resp == nil || resp.NextPage == 0 {
			return jobs, nil
		}
		opts.Page = resp.NextPage
	}
}

func (f *Fetcher) fetch(ctx context.Context, logsURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download logs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrLogsNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download logs: unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read logs: %w", err)
	}
	return data, nil
}

func extract(reader *zip.Reader, dir string) error {
	root := filepath.Clean(dir) + string(os.PathSeparator)
	for _, file := range reader.File {
		target := filepath.Join(dir, filepath.FromSlash(file.Name))
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("invalid path in logs archive: %s", file.Name)
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}
		if err := extractFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to extract %s: %w", file.Name, err)
	}
	return dst.Close()
}

func writeJobs(dir string, jobs []model.Job) error {
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal jobs: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, RunMetadataFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write jobs: %w", err)
	}
	return nil
}
