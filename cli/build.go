package cli

// This file contains the build hook commands copying shared files into a
// package tree.

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/citriage/copyhook"
)

func buildFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "src",
			Usage: "Root the paths are copied from",
			Value: ".",
		},
		&cli.StringFlag{
			Name:     "dst",
			Usage:    "Root the paths are copied to",
			Required: true,
		},
	}
}

// copyPaths prefers the paths given on the command line over the configured ones.
func (a *App) copyPaths(ctx *cli.Context) ([]string, error) {
	paths := ctx.Args().Slice()
	if len(paths) == 0 {
		paths = a.cfg.CopyFiles
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths to copy: pass them as arguments or set copy_files")
	}
	return paths, nil
}

func (a *App) buildCopy(ctx *cli.Context) error {
	paths, err := a.copyPaths(ctx)
	if err != nil {
		return err
	}
	return copyhook.Copy(a.logger, ctx.String("src"), ctx.String("dst"), paths)
}

func (a *App) buildClean(ctx *cli.Context) error {
	paths, err := a.copyPaths(ctx)
	if err != nil {
		return err
	}
	return copyhook.Clean(a.logger, ctx.String("dst"), paths)
}
