package copyhook

// This file contains the build hook that copies shared configuration files
// into a package tree before it is built, and removes them again afterwards.

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	cp "github.com/otiai10/copy"
	"github.com/rs/zerolog"
)

// ErrOutsideRoot is returned for relative paths escaping their root.
var ErrOutsideRoot = errors.New("path escapes root directory")

// Copy copies every relative path from srcRoot to the same relative path below
// dstRoot. Directories are copied recursively, without VCS metadata.
func Copy(logger zerolog.Logger, srcRoot, dstRoot string, relPaths []string) error {
	opts := cp.Options{
		Skip: func(_ os.FileInfo, src, _ string) (bool, error) {
			return filepath.Base(src) == ".git", nil
		},
		PreserveTimes: true,
	}
	for _, rel := range relPaths {
		src, err := join(srcRoot, rel)
		if err != nil {
			return err
		}
		dst, err := join(dstRoot, rel)
		if err != nil {
			return err
		}
		if err := cp.Copy(src, dst, opts); err != nil {
			return fmt.Errorf("failed to copy %s: %w", rel, err)
		}
		logger.Debug().Str("src", src).Str("dst", dst).Msg("Copied")
	}
	logger.Info().Int("paths", len(relPaths)).Str("dst", dstRoot).Msg("Copy complete")
	return nil
}

// Clean removes the paths Copy created below dstRoot. Missing paths are skipped.
func Clean(logger zerolog.Logger, dstRoot string, relPaths []string) error {
	for _, rel := range relPaths {
		dst, err := join(dstRoot, rel)
		if err != nil {
			return err
		}
		if _, err := os.Lstat(dst); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		logger.Warn().Str("path", rel).Msg("Removing copied path")
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("failed to remove %s: %w", rel, err)
		}
	}
	logger.Info().Str("dst", dstRoot).Msg("Clean complete")
	return nil
}

func join(root, rel string) (string, error) {
	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return filepath.Join(root, clean), nil
}
