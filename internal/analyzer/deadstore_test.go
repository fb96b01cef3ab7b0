package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/flowlens/flowlens/internal/cache"
)

func writeRustFile(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestDeadStoreAnalyzer(t *testing.T) {
	src := `
fn compute(x: i32) -> i32 {
    let unused = x + 1;
    let y = 2;
    y
}
`
	path := writeRustFile(t, "compute.rs", src)

	a := NewDeadStore()
	defer a.Close()

	result, err := a.Analyze(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	if result.Summary.TotalFilesAnalyzed != 1 {
		t.Errorf("TotalFilesAnalyzed = %d, want 1", result.Summary.TotalFilesAnalyzed)
	}
	if result.Summary.TotalFunctions != 1 {
		t.Errorf("TotalFunctions = %d, want 1", result.Summary.TotalFunctions)
	}

	if len(result.Stores) != 1 {
		t.Fatalf("found %d dead stores, want 1: %+v", len(result.Stores), result.Stores)
	}
	store := result.Stores[0]
	if store.Variable != "unused" {
		t.Errorf("Variable = %q, want %q", store.Variable, "unused")
	}
	if store.Function != "compute" {
		t.Errorf("Function = %q, want %q", store.Function, "compute")
	}
	if store.Kind != "declaration" {
		t.Errorf("Kind = %q, want %q", store.Kind, "declaration")
	}
	if store.Line != 3 {
		t.Errorf("Line = %d, want 3", store.Line)
	}
}

func TestDeadStoreUnusedParameter(t *testing.T) {
	src := `
fn pick(a: i32, b: i32) -> i32 {
    a
}
`
	path := writeRustFile(t, "pick.rs", src)

	a := NewDeadStore()
	defer a.Close()

	result, err := a.Analyze(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	if len(result.Stores) != 1 {
		t.Fatalf("found %d dead stores, want 1: %+v", len(result.Stores), result.Stores)
	}
	if result.Stores[0].Variable != "b" {
		t.Errorf("Variable = %q, want %q", result.Stores[0].Variable, "b")
	}
	if result.Stores[0].Kind != "parameter" {
		t.Errorf("Kind = %q, want %q", result.Stores[0].Kind, "parameter")
	}
}

func TestDeadStoreOverwrittenValue(t *testing.T) {
	src := `
fn counter() -> i32 {
    let mut x = 1;
    x = 2;
    x
}
`
	path := writeRustFile(t, "counter.rs", src)

	a := NewDeadStore()
	defer a.Close()

	result, err := a.Analyze(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	// The initial value of x is overwritten before it is ever read.
	if len(result.Stores) != 1 {
		t.Fatalf("found %d dead stores, want 1: %+v", len(result.Stores), result.Stores)
	}
	if result.Stores[0].Variable != "x" {
		t.Errorf("Variable = %q, want %q", result.Stores[0].Variable, "x")
	}
	if result.Stores[0].Kind != "declaration" {
		t.Errorf("Kind = %q, want %q", result.Stores[0].Kind, "declaration")
	}
}

func TestDeadStoreSkipsUnderscorePrefix(t *testing.T) {
	src := `
fn run(x: i32) -> i32 {
    let _ignored = x + 1;
    x
}
`
	path := writeRustFile(t, "run.rs", src)

	a := NewDeadStore()
	defer a.Close()

	result, err := a.Analyze(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	if len(result.Stores) != 0 {
		t.Errorf("found %d dead stores, want 0: %+v", len(result.Stores), result.Stores)
	}
}

func TestDeadStoreCaptureCountsAsUse(t *testing.T) {
	src := `
fn wrap() -> i32 {
    let v = 1;
    let add = move |x: i32| x + v;
    add(2)
}
`
	path := writeRustFile(t, "wrap.rs", src)

	a := NewDeadStore()
	defer a.Close()

	result, err := a.Analyze(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	for _, s := range result.Stores {
		if s.Variable == "v" {
			t.Errorf("captured variable v reported as dead store")
		}
		if s.Variable == "add" {
			t.Errorf("called closure add reported as dead store")
		}
	}
}

func TestDeadStoreCaching(t *testing.T) {
	src := `
fn stale() {
    let dead = 42;
}
`
	path := writeRustFile(t, "stale.rs", src)

	c, err := cache.New(filepath.Join(t.TempDir(), "cache"), 1, true)
	if err != nil {
		t.Fatalf("cache.New() error: %v", err)
	}

	a := NewDeadStore(WithDeadStoreCache(c))
	defer a.Close()

	first, err := a.Analyze(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("first Analyze() error: %v", err)
	}

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.Entries == 0 {
		t.Error("expected cache entries after first run")
	}

	second, err := a.Analyze(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("second Analyze() error: %v", err)
	}

	if len(first.Stores) != len(second.Stores) {
		t.Errorf("cached result differs: %d vs %d stores", len(first.Stores), len(second.Stores))
	}
	if len(second.Stores) != 1 || second.Stores[0].Variable != "dead" {
		t.Errorf("cached stores = %+v, want one store of dead", second.Stores)
	}
}

func TestDeadStoreNoFiles(t *testing.T) {
	a := NewDeadStore()
	defer a.Close()

	result, err := a.Analyze(context.Background(), nil)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	if len(result.Stores) != 0 {
		t.Errorf("found %d dead stores for no files", len(result.Stores))
	}
	if result.Summary.TotalFilesAnalyzed != 0 {
		t.Errorf("TotalFilesAnalyzed = %d, want 0", result.Summary.TotalFilesAnalyzed)
	}
}
