package analyzer

import (
	"context"
	"fmt"
	"sort"

	"github.com/flowlens/flowlens/internal/fileproc"
	"github.com/flowlens/flowlens/pkg/cfg"
	"github.com/flowlens/flowlens/pkg/models"
	"github.com/flowlens/flowlens/pkg/parser"
)

// PurityAnalyzer classifies functions as pure, locally impure, or
// impure. A function is impure when it performs calls classified as
// impure or mutably captures outer state; locally impure when its only
// mutation is reassignment of its own locals; pure otherwise.
type PurityAnalyzer struct {
	behavior   cfg.UnknownCallBehavior
	onProgress func()
}

// PurityOption configures a PurityAnalyzer.
type PurityOption func(*PurityAnalyzer)

// WithUnknownCalls sets the policy for calls the classifier cannot
// resolve. The default assumes they are impure.
func WithUnknownCalls(b cfg.UnknownCallBehavior) PurityOption {
	return func(a *PurityAnalyzer) {
		a.behavior = b
	}
}

// WithPurityProgress sets a callback invoked once per processed file.
func WithPurityProgress(fn func()) PurityOption {
	return func(a *PurityAnalyzer) {
		a.onProgress = fn
	}
}

// NewPurity creates a purity analyzer.
func NewPurity(opts ...PurityOption) *PurityAnalyzer {
	a := &PurityAnalyzer{behavior: cfg.AssumeImpure}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze classifies every function in the given files.
func (a *PurityAnalyzer) Analyze(ctx context.Context, files []string) (*models.PurityAnalysis, error) {
	analysis := &models.PurityAnalysis{
		Functions: make([]models.FunctionPurity, 0),
	}

	results, errs := fileproc.MapFilesWithContext(ctx, files, func(psr *parser.Parser, path string) ([]models.FunctionPurity, error) {
		return a.analyzeFile(psr, path)
	}, a.onProgress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_ = errs

	for _, fns := range results {
		analysis.Functions = append(analysis.Functions, fns...)
		analysis.Summary.TotalFilesAnalyzed++
	}
	for _, fn := range analysis.Functions {
		analysis.Summary.Add(fn)
	}

	sort.Slice(analysis.Functions, func(i, j int) bool {
		a, b := analysis.Functions[i], analysis.Functions[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})

	return analysis, nil
}

func (a *PurityAnalyzer) analyzeFile(psr *parser.Parser, path string) ([]models.FunctionPurity, error) {
	result, err := psr.ParseFile(path)
	if err != nil {
		return nil, err
	}

	fns := make([]models.FunctionPurity, 0)
	for _, fn := range parser.GetFunctions(result) {
		fns = append(fns, a.classifyFunction(fn, result.Source, path))
	}
	return fns, nil
}

func (a *PurityAnalyzer) classifyFunction(fn parser.FunctionNode, source []byte, path string) models.FunctionPurity {
	g := cfg.Build(fn, source)
	rd := cfg.ComputeReachingDefinitions(g)

	verdict := models.FunctionPurity{
		Name:  fn.Name,
		File:  path,
		Line:  fn.StartLine,
		Level: models.PurityPure,
	}

	for _, id := range g.BlockOrder() {
		for i, stmt := range g.Blocks[id].Statements {
			at := cfg.ProgramPoint{Block: id, Stmt: i}
			switch s := stmt.(type) {
			case cfg.Call:
				switch a.behavior.Resolve(s.Purity) {
				case cfg.PurityImpure:
					verdict.Level = models.PurityImpure
					if s.Purity == cfg.PurityUnknown {
						verdict.Reasons = append(verdict.Reasons,
							fmt.Sprintf("call to %s assumed impure (line %d)", s.Callee, s.Line))
					} else {
						verdict.Reasons = append(verdict.Reasons,
							fmt.Sprintf("calls impure function %s (line %d)", s.Callee, s.Line))
					}
				}
			case cfg.Assign:
				if isReassignment(g, rd, s, at) {
					if verdict.Level == models.PurityPure {
						verdict.Level = models.PurityLocallyImpure
					}
					verdict.Reasons = append(verdict.Reasons,
						fmt.Sprintf("reassigns %s (line %d)", g.VarName(s.Target), s.Line))
				}
			}
		}
	}

	for _, cap := range g.Captured {
		if cap.Mode == cfg.CaptureByMutRef {
			verdict.Level = models.PurityImpure
			verdict.Reasons = append(verdict.Reasons,
				fmt.Sprintf("closure mutates captured variable %s", g.VarName(cap.Var)))
		}
	}

	return verdict
}

// isReassignment reports whether the assignment overwrites a value the
// variable already holds. Assignments that initialize a variable
// declared without an initializer are the lowered form of
// control-flow initializers and do not count. Parameter declarations
// do count: writing over a parameter is mutation even on the first
// assignment.
func isReassignment(g *cfg.ControlFlowGraph, rd *cfg.ReachingDefinitions, s cfg.Assign, at cfg.ProgramPoint) bool {
	for _, def := range rd.ReachingAt(at, s.Target) {
		stmt := rd.StatementAt(def.Point)
		if decl, ok := stmt.(cfg.Declare); ok && decl.Init == nil {
			if def.Point.Block == g.Entry && inDeclarePrefix(g, def.Point) {
				return true
			}
			continue
		}
		return true
	}
	return false
}

// Close releases analyzer resources.
func (a *PurityAnalyzer) Close() {}
