package analyzer

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/flowlens/flowlens/internal/cache"
	"github.com/flowlens/flowlens/internal/fileproc"
	"github.com/flowlens/flowlens/pkg/cfg"
	"github.com/flowlens/flowlens/pkg/models"
	"github.com/flowlens/flowlens/pkg/parser"
	"github.com/vmihailenco/msgpack/v5"
)

// DeadStoreAnalyzer finds definitions whose values are never read.
// It builds a control flow graph per function, runs reaching
// definitions over it, and reports every definition with an empty
// def-use chain. Closure captures count as reads, so a variable that
// is only captured is not reported.
type DeadStoreAnalyzer struct {
	reportSynthetic bool
	cache           *cache.Cache
	onProgress      func()
	cacheHits       atomic.Int64
}

// DeadStoreOption configures a DeadStoreAnalyzer.
type DeadStoreOption func(*DeadStoreAnalyzer)

// WithSyntheticVars includes compiler-introduced temporaries in the
// report. Off by default since temporaries carry no source-level name.
func WithSyntheticVars() DeadStoreOption {
	return func(a *DeadStoreAnalyzer) {
		a.reportSynthetic = true
	}
}

// WithDeadStoreCache enables per-file result caching keyed by content hash.
func WithDeadStoreCache(c *cache.Cache) DeadStoreOption {
	return func(a *DeadStoreAnalyzer) {
		a.cache = c
	}
}

// WithDeadStoreProgress sets a callback invoked once per processed file.
func WithDeadStoreProgress(fn func()) DeadStoreOption {
	return func(a *DeadStoreAnalyzer) {
		a.onProgress = fn
	}
}

// NewDeadStore creates a dead store analyzer.
func NewDeadStore(opts ...DeadStoreOption) *DeadStoreAnalyzer {
	a := &DeadStoreAnalyzer{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// fileDeadStores is the per-file result, also the cache entry payload.
type fileDeadStores struct {
	Path      string
	Stores    []models.DeadStore
	Functions int
}

// Analyze detects dead stores across the given files.
func (a *DeadStoreAnalyzer) Analyze(ctx context.Context, files []string) (*models.DeadStoreAnalysis, error) {
	a.cacheHits.Store(0)
	analysis := &models.DeadStoreAnalysis{
		Stores:  make([]models.DeadStore, 0),
		Summary: models.NewDeadStoreSummary(),
	}

	results, errs := fileproc.MapFilesWithContext(ctx, files, func(psr *parser.Parser, path string) (fileDeadStores, error) {
		return a.analyzeFile(psr, path)
	}, a.onProgress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Unparseable files are skipped, not fatal.
	_ = errs

	for _, fds := range results {
		analysis.Stores = append(analysis.Stores, fds.Stores...)
		analysis.Summary.TotalFunctions += fds.Functions
		analysis.Summary.TotalFilesAnalyzed++
	}
	for _, d := range analysis.Stores {
		analysis.Summary.Add(d)
	}
	analysis.Summary.TotalDeadStores = len(analysis.Stores)

	sort.Slice(analysis.Stores, func(i, j int) bool {
		a, b := analysis.Stores[i], analysis.Stores[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Variable < b.Variable
	})

	return analysis, nil
}

func (a *DeadStoreAnalyzer) analyzeFile(psr *parser.Parser, path string) (fileDeadStores, error) {
	var hash string
	cacheKey := "deadstore:" + path
	if a.cache != nil {
		if h, err := cache.HashFile(path); err == nil {
			hash = h
			if data, ok := a.cache.GetWithHash(cacheKey, hash); ok {
				var cached fileDeadStores
				if err := msgpack.Unmarshal(data, &cached); err == nil {
					a.cacheHits.Add(1)
					return cached, nil
				}
			}
		}
	}

	result, err := psr.ParseFile(path)
	if err != nil {
		return fileDeadStores{}, err
	}

	fds := fileDeadStores{Path: path, Stores: make([]models.DeadStore, 0)}
	for _, fn := range parser.GetFunctions(result) {
		fds.Functions++
		fds.Stores = append(fds.Stores, a.functionDeadStores(fn, result.Source, path)...)
	}

	if a.cache != nil && hash != "" {
		if data, err := msgpack.Marshal(&fds); err == nil {
			_ = a.cache.SetWithHash(cacheKey, hash, data)
		}
	}
	return fds, nil
}

func (a *DeadStoreAnalyzer) functionDeadStores(fn parser.FunctionNode, source []byte, path string) []models.DeadStore {
	g := cfg.Build(fn, source)
	rd := cfg.ComputeReachingDefinitions(g)

	var stores []models.DeadStore
	for def, uses := range rd.DefUseChains() {
		if len(uses) > 0 {
			continue
		}
		if g.IsSynthetic(def.Var) && !a.reportSynthetic {
			continue
		}
		name := g.VarName(def.Var)
		// Leading underscore marks an intentionally unused binding.
		if name == "self" || strings.HasPrefix(name, "_") {
			continue
		}

		stmt := rd.StatementAt(def.Point)
		if stmt == nil {
			continue
		}
		stores = append(stores, models.DeadStore{
			Variable: name,
			Function: fn.Name,
			File:     path,
			Line:     statementLine(stmt),
			Kind:     storeKind(g, def, stmt),
		})
	}

	sort.Slice(stores, func(i, j int) bool {
		if stores[i].Line != stores[j].Line {
			return stores[i].Line < stores[j].Line
		}
		return stores[i].Variable < stores[j].Variable
	})
	return stores
}

// storeKind labels a dead definition by the statement that produced it.
// Uninitialized declares at the head of the entry block are parameters.
func storeKind(g *cfg.ControlFlowGraph, def cfg.Definition, stmt cfg.Statement) string {
	switch s := stmt.(type) {
	case cfg.Declare:
		if s.Init == nil && def.Point.Block == g.Entry && inDeclarePrefix(g, def.Point) {
			return "parameter"
		}
		return "declaration"
	case cfg.Assign:
		return "assignment"
	case cfg.Call:
		return "call-result"
	}
	return "declaration"
}

// inDeclarePrefix reports whether every statement before the point in
// its block is an uninitialized Declare, the shape parameter lowering
// produces.
func inDeclarePrefix(g *cfg.ControlFlowGraph, p cfg.ProgramPoint) bool {
	block := g.Blocks[p.Block]
	for i := 0; i < p.Stmt && i < len(block.Statements); i++ {
		d, ok := block.Statements[i].(cfg.Declare)
		if !ok || d.Init != nil {
			return false
		}
	}
	return true
}

func statementLine(stmt cfg.Statement) uint32 {
	switch s := stmt.(type) {
	case cfg.Declare:
		return uint32(s.Line)
	case cfg.Assign:
		return uint32(s.Line)
	case cfg.Call:
		return uint32(s.Line)
	}
	return 0
}

// CacheHits returns how many files were served from the cache during
// the last Analyze call.
func (a *DeadStoreAnalyzer) CacheHits() int {
	return int(a.cacheHits.Load())
}

// Close releases analyzer resources.
func (a *DeadStoreAnalyzer) Close() {}
