package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/flowlens/flowlens/pkg/config"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Write a flowlens config file with default settings",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Value:   "flowlens.yaml",
				Usage:   "Where to write the config file",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config file",
			},
		},
		Action: runInitCmd,
	}
}

func runInitCmd(c *cli.Context) error {
	outputPath := c.String("path")
	force := c.Bool("force")

	if _, err := os.Stat(outputPath); err == nil && !force {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := generateDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.Green("Created %s", outputPath)
	fmt.Println("Edit this file to customize analysis settings.")
	return nil
}

// generateDefaultConfig renders the default configuration as YAML.
// Keys mirror the names the config loader reads back.
func generateDefaultConfig() (string, error) {
	cfg := config.DefaultConfig()

	doc := map[string]any{
		"analysis": map[string]any{
			"unknown_calls":    cfg.Analysis.UnknownCalls,
			"report_synthetic": cfg.Analysis.ReportSynthetic,
			"min_blocks":       cfg.Analysis.MinBlocks,
		},
		"exclude": map[string]any{
			"patterns":  cfg.Exclude.Patterns,
			"dirs":      cfg.Exclude.Dirs,
			"gitignore": cfg.Exclude.Gitignore,
		},
		"cache": map[string]any{
			"enabled": cfg.Cache.Enabled,
			"dir":     cfg.Cache.Dir,
			"ttl":     cfg.Cache.TTL,
		},
		"output": map[string]any{
			"format":  cfg.Output.Format,
			"color":   cfg.Output.Color,
			"verbose": cfg.Output.Verbose,
		},
	}

	content, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# Flowlens configuration\n")
	buf.WriteString("# Documentation: https://github.com/flowlens/flowlens\n\n")
	buf.Write(content)

	return buf.String(), nil
}
