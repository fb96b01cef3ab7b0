package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/flowlens/flowlens/internal/analyzer"
	"github.com/flowlens/flowlens/internal/output"
	"github.com/flowlens/flowlens/internal/progress"
	"github.com/urfave/cli/v2"
)

func cfgCmd() *cli.Command {
	return &cli.Command{
		Name:      "cfg",
		Aliases:   []string{"summary"},
		Usage:     "Summarize control flow graph shape per function",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "min-blocks",
				Usage: "Skip functions with fewer basic blocks",
			},
		},
		Action: runCFGCmd,
	}
}

func runCFGCmd(c *cli.Context) error {
	paths := getPaths(c)
	cfg := loadConfig(c)

	files, err := collectFiles(cfg, paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		color.Yellow("No Rust files found")
		return nil
	}

	minBlocks := c.Int("min-blocks")
	if minBlocks == 0 {
		minBlocks = cfg.Analysis.MinBlocks
	}

	tracker := progress.NewTracker("Building control flow graphs...", len(files))

	cfgAnalyzer := analyzer.NewCFG(
		analyzer.WithMinBlocks(minBlocks),
		analyzer.WithCFGProgress(tracker.Tick),
	)
	defer cfgAnalyzer.Close()

	analysis, err := cfgAnalyzer.Analyze(c.Context, files)
	if err != nil {
		tracker.FinishError(err)
		return fmt.Errorf("analysis failed: %w", err)
	}
	tracker.FinishSuccess()

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	var rows [][]string
	for _, fn := range analysis.Functions {
		rows = append(rows, []string{
			fmt.Sprintf("%s:%d", fn.File, fn.Line),
			fn.Name,
			fmt.Sprintf("%d", fn.Blocks),
			fmt.Sprintf("%d", fn.Edges),
			fmt.Sprintf("%d", fn.Variables),
			fmt.Sprintf("%d", fn.Definitions),
			fmt.Sprintf("%d", fn.Captures),
		})
	}

	table := output.NewTable(
		"Control Flow Summary",
		[]string{"Location", "Function", "Blocks", "Edges", "Variables", "Definitions", "Captures"},
		rows,
		[]string{
			fmt.Sprintf("Functions: %d", analysis.Summary.TotalFunctions),
			fmt.Sprintf("Blocks: %d", analysis.Summary.TotalBlocks),
			fmt.Sprintf("Edges: %d", analysis.Summary.TotalEdges),
			fmt.Sprintf("Files: %d", analysis.Summary.TotalFilesAnalyzed),
			"", "", "",
		},
		analysis,
	)

	return formatter.Output(table)
}
