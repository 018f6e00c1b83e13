package copyhook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCopyAndClean(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "citriage.yaml"), "step: x\n")
	writeFile(t, filepath.Join(src, "tf", "main.tf"), "variable \"a\" {}\n")
	writeFile(t, filepath.Join(src, "tf", "modules", "cfn", "roles.yaml"), "roles: []\n")
	writeFile(t, filepath.Join(src, "tf", ".git", "HEAD"), "ref\n")
	writeFile(t, filepath.Join(dst, "keep.txt"), "keep\n")

	paths := []string{"citriage.yaml", "tf"}
	logger := zerolog.Nop()
	require.NoError(t, Copy(logger, src, dst, paths))

	data, err := os.ReadFile(filepath.Join(dst, "tf", "modules", "cfn", "roles.yaml"))
	require.NoError(t, err)
	require.Equal(t, "roles: []\n", string(data))
	require.FileExists(t, filepath.Join(dst, "citriage.yaml"))
	require.NoDirExists(t, filepath.Join(dst, "tf", ".git"))

	require.NoError(t, Clean(logger, dst, paths))
	require.NoFileExists(t, filepath.Join(dst, "citriage.yaml"))
	require.NoDirExists(t, filepath.Join(dst, "tf"))
	require.FileExists(t, filepath.Join(dst, "keep.txt"))

	// cleaning twice is a no-op
	require.NoError(t, Clean(logger, dst, paths))
}

func TestCopyErrors(t *testing.T) {
	logger := zerolog.Nop()
	require.ErrorIs(t, Copy(logger, t.TempDir(), t.TempDir(), []string{"../etc"}), ErrOutsideRoot)
	require.ErrorIs(t, Clean(logger, t.TempDir(), []string{"/etc"}), ErrOutsideRoot)
	require.Error(t, Copy(logger, t.TempDir(), t.TempDir(), []string{"missing.yaml"}))
}
