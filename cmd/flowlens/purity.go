package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/flowlens/flowlens/internal/analyzer"
	"github.com/flowlens/flowlens/internal/output"
	"github.com/flowlens/flowlens/internal/progress"
	"github.com/flowlens/flowlens/pkg/cfg"
	"github.com/urfave/cli/v2"
)

func purityCmd() *cli.Command {
	return &cli.Command{
		Name:      "purity",
		Aliases:   []string{"pure"},
		Usage:     "Classify functions as pure, locally impure, or impure",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "unknown-calls",
				Usage: "Treatment of unclassified calls: assume-impure, assume-pure",
			},
			&cli.BoolFlag{
				Name:  "impure-only",
				Usage: "Show only functions that are not pure",
			},
		},
		Action: runPurityCmd,
	}
}

func runPurityCmd(c *cli.Context) error {
	paths := getPaths(c)
	cfg2 := loadConfig(c)

	files, err := collectFiles(cfg2, paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		color.Yellow("No Rust files found")
		return nil
	}

	behaviorStr := c.String("unknown-calls")
	if behaviorStr == "" {
		behaviorStr = cfg2.Analysis.UnknownCalls
	}
	behavior, ok := cfg.ParseUnknownCallBehavior(behaviorStr)
	if !ok {
		return fmt.Errorf("invalid unknown-calls value %q (want assume-impure or assume-pure)", behaviorStr)
	}

	tracker := progress.NewTracker("Classifying purity...", len(files))

	pAnalyzer := analyzer.NewPurity(
		analyzer.WithUnknownCalls(behavior),
		analyzer.WithPurityProgress(tracker.Tick),
	)
	defer pAnalyzer.Close()

	analysis, err := pAnalyzer.Analyze(c.Context, files)
	if err != nil {
		tracker.FinishError(err)
		return fmt.Errorf("analysis failed: %w", err)
	}
	tracker.FinishSuccess()

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), cfg2.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	impureOnly := c.Bool("impure-only")

	var rows [][]string
	for _, fn := range analysis.Functions {
		if impureOnly && fn.Level == "pure" {
			continue
		}
		reason := ""
		if len(fn.Reasons) > 0 {
			reason = truncate(strings.Join(fn.Reasons, "; "), 60)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%s:%d", fn.File, fn.Line),
			fn.Name,
			output.VerdictColor(string(fn.Level), string(fn.Level)),
			reason,
		})
	}

	table := output.NewTable(
		"Function Purity",
		[]string{"Location", "Function", "Verdict", "Reason"},
		rows,
		[]string{
			fmt.Sprintf("Total: %d", analysis.Summary.TotalFunctions),
			fmt.Sprintf("Pure: %d", analysis.Summary.Pure),
			fmt.Sprintf("Locally Impure: %d", analysis.Summary.LocallyImpure),
			fmt.Sprintf("Impure: %d", analysis.Summary.Impure),
		},
		analysis,
	)

	return formatter.Output(table)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
