package ghlogs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/perfgo/citriage/model"
)

// StepLog is one extracted step log file of a downloaded run.
type StepLog struct {
	Path string
	Job  *model.Job
	Step int
}

var stepFilePattern = regexp.MustCompile(`^(?P<step>\d+)_(?P<name>.+)\.txt$`)

// SanitizeName mirrors how GitHub names job directories and step files in
// run log archives.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, r) {
			return -1
		}
		return r
	}, name)
}

// LoadStepLogs finds the step log files named stepName in every run below logsDir.
// Runs without run metadata still yield logs with a job carrying only the name.
func LoadStepLogs(logsDir, stepName string) ([]StepLog, error) {
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrLogsNotFound, logsDir)
	}
	wantStep := SanitizeName(stepName)

	var logs []StepLog
	jobsByDir := make(map[string]map[string]*model.Job)
	err := filepath.WalkDir(logsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// unfinished downloads
			if path != logsDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		m := stepFilePattern.FindStringSubmatch(d.Name())
		if m == nil || m[stepFilePattern.SubexpIndex("name")] != wantStep {
			return nil
		}
		jobDir := filepath.Dir(path)
		runDir := filepath.Dir(jobDir)
		jobs, ok := jobsByDir[runDir]
		if !ok {
			if jobs, err = loadJobs(runDir); err != nil {
				return err
			}
			jobsByDir[runDir] = jobs
		}
		job, ok := jobs[filepath.Base(jobDir)]
		if !ok {
			job = &model.Job{Name: filepath.Base(jobDir)}
		}
		step, _ := strconv.Atoi(m[stepFilePattern.SubexpIndex("step")])
		logs = append(logs, StepLog{Path: path, Job: job, Step: step})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk logs directory: %w", err)
	}
	slices.SortFunc(logs, func(a, b StepLog) int {
		return strings.Compare(a.Path, b.Path)
	})
	return logs, nil
}

// loadJobs indexes the jobs of a run by their directory name.
func loadJobs(runDir string) (map[string]*model.Job, error) {
	data, err := os.ReadFile(filepath.Join(runDir, RunMetadataFile))
	if os.IsNotExist(err) {
		return map[string]*model.Job{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run metadata: %w", err)
	}
	var jobs []model.Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse run metadata %s: %w", runDir, err)
	}
	byDir := make(map[string]*model.Job, len(jobs))
	for i := range jobs {
		byDir[SanitizeName(jobs[i].Name)] = &jobs[i]
	}
	return byDir, nil
}
