package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/citriage/history"
	"github.com/perfgo/citriage/model"
)

const failingLog = `2024-06-26T00:50:00.0000000Z === RUN   TestAccBackupRSOnlineArchive
2024-06-26T00:50:00.1000000Z === RUN   TestAccProjectRS_basic
2024-06-26T00:58:20.7916997Z === NAME  TestAccBackupRSOnlineArchive
2024-06-26T00:58:20.7918346Z     resource_online_archive_test.go:32: Step 2/7 error: Error running apply: exit status 1
2024-06-26T00:58:20.7920573Z         Error: error creating MongoDB Atlas Online Archive:: undefined response type
2024-06-26T00:58:20.7925000Z --- FAIL: TestAccBackupRSOnlineArchive (500.26s)
2024-06-26T00:58:21.0000000Z --- PASS: TestAccProjectRS_basic (501.00s)
`

func TestParseRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	historyDir := filepath.Join(dir, "history")
	configPath := filepath.Join(dir, "citriage.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("history_dir: "+historyDir+"\n"), 0644))
	logPath := filepath.Join(dir, "5_Acceptance Tests.txt")
	require.NoError(t, os.WriteFile(logPath, []byte(failingLog), 0644))
	metricsPath := filepath.Join(dir, "citriage.prom")

	run := func() {
		app := New()
		app.logger = zerolog.Nop()
		require.NoError(t, app.Run([]string{
			AppName, "--config", configPath,
			"parse",
			"--job-url", "https://github.com/o/r/actions/runs/1/job/2",
			"--step", "5",
			"--record",
			"--metrics", metricsPath,
			logPath,
		}))
	}

	run()
	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	require.Contains(t, string(metrics), `citriage_test_runs_total{status="FAIL"} 1`)
	require.Contains(t, string(metrics), `citriage_classifications_total{classification="FIRST_TIME_ERROR"} 1`)

	run()
	entries, err := history.LoadEntries(zerolog.Nop(), historyDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		h := entry.History
		require.Equal(t, int64(2), h.Job.ID)
		require.Equal(t, 1, h.Counts[model.StatusPass])
		require.Len(t, h.Failures, 1)
		require.Equal(t, "https://github.com/o/r/actions/runs/1/job/2#step:5:5", h.Failures[0].URL)
		require.FileExists(t, entry.ProfilePath())
		require.FileExists(t, entry.SummaryPath())
	}
	// the second triage knows the failure from the first one
	require.Empty(t, entries[0].History.Failures[0].Classifications)
	require.Equal(t, []model.Classification{model.ClassificationFirstTimeError}, entries[1].History.Failures[0].Classifications)
}

func TestParseRequiresFiles(t *testing.T) {
	app := New()
	app.logger = zerolog.Nop()
	err := app.Run([]string{AppName, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "parse"})
	require.Error(t, err)
}
