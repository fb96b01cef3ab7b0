package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/flowlens/flowlens/internal/analyzer"
	"github.com/flowlens/flowlens/internal/cache"
	"github.com/flowlens/flowlens/internal/output"
	"github.com/flowlens/flowlens/internal/progress"
	"github.com/urfave/cli/v2"
)

func deadstoreCmd() *cli.Command {
	return &cli.Command{
		Name:      "deadstore",
		Aliases:   []string{"ds"},
		Usage:     "Find assignments whose values are never read",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "synthetic",
				Usage: "Include compiler-introduced temporaries",
			},
		},
		Action: runDeadStoreCmd,
	}
}

func runDeadStoreCmd(c *cli.Context) error {
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

	opts := []analyzer.DeadStoreOption{}
	if c.Bool("synthetic") {
		opts = append(opts, analyzer.WithSyntheticVars())
	}
	if cfg.Analysis.ReportSynthetic {
		opts = append(opts, analyzer.WithSyntheticVars())
	}

	resultCache, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled && !c.Bool("no-cache"))
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	opts = append(opts, analyzer.WithDeadStoreCache(resultCache))

	tracker := progress.NewTracker("Finding dead stores...", len(files))
	opts = append(opts, analyzer.WithDeadStoreProgress(tracker.Tick))

	dsAnalyzer := analyzer.NewDeadStore(opts...)
	defer dsAnalyzer.Close()

	analysis, err := dsAnalyzer.Analyze(c.Context, files)
	if err != nil {
		tracker.FinishError(err)
		return fmt.Errorf("analysis failed: %w", err)
	}
	tracker.FinishCached(dsAnalyzer.CacheHits(), len(files))

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if len(analysis.Stores) == 0 {
		if formatter.Format() == output.FormatText {
			color.Green("No dead stores found across %d files", analysis.Summary.TotalFilesAnalyzed)
		}
		return formatter.Output(analysis)
	}

	var rows [][]string
	for _, store := range analysis.Stores {
		rows = append(rows, []string{
			fmt.Sprintf("%s:%d", store.File, store.Line),
			store.Function,
			output.VerdictColor("dead", store.Variable),
			store.Kind,
		})
	}

	table := output.NewTable(
		"Dead Stores",
		[]string{"Location", "Function", "Variable", "Kind"},
		rows,
		[]string{
			fmt.Sprintf("Total: %d", analysis.Summary.TotalDeadStores),
			fmt.Sprintf("Functions: %d", analysis.Summary.TotalFunctions),
			fmt.Sprintf("Files: %d", analysis.Summary.TotalFilesAnalyzed),
			"",
		},
		analysis,
	)

	return formatter.Output(table)
}
