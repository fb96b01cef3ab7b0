package analyzer

import (
	"context"
	"testing"

	"github.com/flowlens/flowlens/pkg/models"
)

func analyzeCFG(t *testing.T, src string, opts ...CFGOption) *models.CFGAnalysis {
	t.Helper()
	path := writeRustFile(t, "fixture.rs", src)

	a := NewCFG(opts...)
	defer a.Close()

	result, err := a.Analyze(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	return result
}

func TestCFGAnalyzer(t *testing.T) {
	result := analyzeCFG(t, `
fn classify(x: i32) -> i32 {
    if x > 0 {
        1
    } else {
        0
    }
}
`)

	if len(result.Functions) != 1 {
		t.Fatalf("found %d functions, want 1", len(result.Functions))
	}
	f := result.Functions[0]
	if f.Name != "classify" {
		t.Errorf("Name = %q, want %q", f.Name, "classify")
	}
	if f.Blocks < 4 {
		t.Errorf("Blocks = %d, want at least 4 for a branch", f.Blocks)
	}
	if f.Edges < f.Blocks-1 {
		t.Errorf("Edges = %d, too few for %d blocks", f.Edges, f.Blocks)
	}
	// The named variables are the parameter x and nothing else.
	if f.Variables != 1 {
		t.Errorf("Variables = %d, want 1", f.Variables)
	}
	if f.Definitions == 0 {
		t.Error("Definitions = 0, want at least the parameter")
	}
}

func TestCFGMinBlocksFilter(t *testing.T) {
	src := `
fn trivial(a: i32) -> i32 {
    a + 1
}

fn branchy(x: i32) -> i32 {
    if x > 0 {
        x
    } else {
        -x
    }
}
`

	all := analyzeCFG(t, src)
	if len(all.Functions) != 2 {
		t.Fatalf("unfiltered: found %d functions, want 2", len(all.Functions))
	}

	filtered := analyzeCFG(t, src, WithMinBlocks(4))
	if len(filtered.Functions) != 1 {
		t.Fatalf("filtered: found %d functions, want 1: %+v", len(filtered.Functions), filtered.Functions)
	}
	if filtered.Functions[0].Name != "branchy" {
		t.Errorf("filtered function = %q, want %q", filtered.Functions[0].Name, "branchy")
	}
}

func TestCFGCaptureCount(t *testing.T) {
	result := analyzeCFG(t, `
fn closing() -> i32 {
    let base = 10;
    let add = move |x: i32| x + base;
    add(1)
}
`)

	if len(result.Functions) != 1 {
		t.Fatalf("found %d functions, want 1", len(result.Functions))
	}
	if result.Functions[0].Captures != 1 {
		t.Errorf("Captures = %d, want 1", result.Functions[0].Captures)
	}
}

func TestCFGSummaryTotals(t *testing.T) {
	result := analyzeCFG(t, `
fn one() -> i32 { 1 }

fn loopy(n: i32) -> i32 {
    let mut acc = 0;
    while acc < n {
        acc = acc + 1;
    }
    acc
}
`)

	if result.Summary.TotalFunctions != 2 {
		t.Errorf("TotalFunctions = %d, want 2", result.Summary.TotalFunctions)
	}
	if result.Summary.TotalFilesAnalyzed != 1 {
		t.Errorf("TotalFilesAnalyzed = %d, want 1", result.Summary.TotalFilesAnalyzed)
	}

	var blocks, edges int
	for _, f := range result.Functions {
		blocks += f.Blocks
		edges += f.Edges
	}
	if result.Summary.TotalBlocks != blocks {
		t.Errorf("TotalBlocks = %d, want %d", result.Summary.TotalBlocks, blocks)
	}
	if result.Summary.TotalEdges != edges {
		t.Errorf("TotalEdges = %d, want %d", result.Summary.TotalEdges, edges)
	}
}
