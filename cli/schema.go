package cli

// This file contains the Terraform schema and HCL commands.

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/perfgo/citriage/hclpatch"
	"github.com/perfgo/citriage/schemaspec"
)

func (a *App) schemaApply(ctx *cli.Context) error {
	cfg, err := schemaspec.LoadConfig(ctx.String("schema-config"))
	if err != nil {
		return err
	}
	specPath := ctx.String("spec")
	spec, err := schemaspec.LoadCodeSpec(specPath)
	if err != nil {
		return err
	}
	if err := schemaspec.Apply(a.logger, cfg, spec); err != nil {
		return err
	}
	data, err := spec.Marshal()
	if err != nil {
		return err
	}

	output := ctx.String("output")
	if output == "" {
		output = specPath
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write spec: %w", err)
	}
	a.logger.Info().Str("spec", output).Int("resources", len(cfg.Resources)).Msg("Applied schema extensions")

	if path := ctx.String("generator-config"); path != "" {
		generator, err := schemaspec.GeneratorConfig(cfg, ctx.String("provider"))
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, generator, 0644); err != nil {
			return fmt.Errorf("failed to write generator config: %w", err)
		}
	}
	return nil
}

func (a *App) hclDescribe(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected exactly one terraform file, got %d", ctx.NArg())
	}
	path := ctx.Args().First()

	raw, err := os.ReadFile(ctx.String("descriptions"))
	if err != nil {
		return fmt.Errorf("failed to read descriptions: %w", err)
	}
	var descriptions map[string]string
	if err := yaml.Unmarshal(raw, &descriptions); err != nil {
		return fmt.Errorf("failed to parse descriptions: %w", err)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	out, existing, err := hclpatch.UpdateDescriptions(a.logger, src, path, descriptions)
	if err != nil {
		return err
	}

	if existingPath := ctx.String("existing"); existingPath != "" {
		data, err := yaml.Marshal(existing)
		if err != nil {
			return fmt.Errorf("failed to marshal existing descriptions: %w", err)
		}
		if err := os.WriteFile(existingPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write existing descriptions: %w", err)
		}
	}

	if !ctx.Bool("write") {
		_, err := os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	a.logger.Info().Str("file", path).Msg("Updated variable descriptions")
	return nil
}
