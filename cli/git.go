package cli

// This file contains the lookup of the checkout a triage is recorded from.

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/perfgo/citriage/model"
)

// gitOutput runs git with args in the working directory and returns its trimmed output.
func gitOutput(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// checkout describes the local checkout. The remote is the fetch URL of the
// branch upstream, falling back to origin, and stays empty for local-only repositories.
func (a *App) checkout() (*model.Git, error) {
	commit, err := gitOutput("rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	branch, err := gitOutput("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, err
	}
	git := &model.Git{Commit: commit, Branch: branch}

	remote := "origin"
	if upstream, err := gitOutput("rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{upstream}"); err == nil {
		if name, _, ok := strings.Cut(upstream, "/"); ok {
			remote = name
		}
	}
	if url, err := gitOutput("remote", "get-url", remote); err == nil {
		git.Remote = url
	} else {
		a.logger.Debug().Err(err).Str("remote", remote).Msg("No git remote")
	}
	return git, nil
}
