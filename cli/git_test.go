package cli

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func gitRun(t *testing.T, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-c", "user.name=ci", "-c", "user.email=ci@example.com"}, args...)...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func TestCheckout(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Chdir(t.TempDir())
	gitRun(t, "init", "-q", "-b", "master")
	gitRun(t, "commit", "-q", "--allow-empty", "-m", "init")

	app := &App{logger: zerolog.Nop()}
	git, err := app.checkout()
	require.NoError(t, err)
	require.Len(t, git.Commit, 40)
	require.Equal(t, "master", git.Branch)
	require.Empty(t, git.Remote)

	gitRun(t, "remote", "add", "origin", "https://github.com/mongodb/terraform-provider-mongodbatlas.git")
	git, err = app.checkout()
	require.NoError(t, err)
	require.Equal(t, "https://github.com/mongodb/terraform-provider-mongodbatlas.git", git.Remote)
}

func TestCheckoutOutsideRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
	app := &App{logger: zerolog.Nop()}
	_, err := app.checkout()
	require.Error(t, err)
}
