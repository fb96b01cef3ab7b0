// Package cfg builds per-function control flow graphs from Rust syntax
// trees and runs reaching-definitions data flow analysis over them.
//
// The pipeline is strictly bottom-up: a caller parses a function with
// pkg/parser, lowers its body into a ControlFlowGraph with a Builder, and
// hands the frozen graph to ComputeReachingDefinitions. Nothing in this
// package performs I/O; every entry point is a pure computation over the
// input tree, so independent functions can be analyzed concurrently
// without shared state.
//
// The graph keeps a single synthetic exit block. Every return terminator
// records an edge to it, so the graph always has one distinguished entry
// and one distinguished exit regardless of how many returns the source
// function contains.
package cfg

import "sort"

// VarID identifies a local variable within one function's graph.
// IDs are interned on first binding and never reused across functions.
type VarID uint32

// NoVar marks the absence of a variable (e.g. a bare return).
const NoVar VarID = ^VarID(0)

// BlockID is an opaque handle to a basic block, unique within a graph.
type BlockID uint32

// ProgramPoint addresses a position within a block. Stmt is the statement
// index; a point past the last statement addresses the terminator.
type ProgramPoint struct {
	Block BlockID
	Stmt  int
}

// TerminatorPoint returns the program point of b's terminator.
func TerminatorPoint(b *BasicBlock) ProgramPoint {
	return ProgramPoint{Block: b.ID, Stmt: len(b.Statements)}
}

// Definition records a single assignment or declaration event.
type Definition struct {
	Var   VarID
	Point ProgramPoint
}

// Use records a single read event.
type Use struct {
	Var   VarID
	Point ProgramPoint
}

// CaptureMode describes how a closure captures an outer variable.
type CaptureMode uint8

const (
	// CaptureByValue moves the variable into the closure.
	CaptureByValue CaptureMode = iota
	// CaptureByRef borrows the variable immutably.
	CaptureByRef
	// CaptureByMutRef borrows the variable mutably.
	CaptureByMutRef
)

func (m CaptureMode) String() string {
	switch m {
	case CaptureByValue:
		return "by-value"
	case CaptureByRef:
		return "by-ref"
	case CaptureByMutRef:
		return "by-mut-ref"
	}
	return "unknown"
}

// CapturedVar records that a closure literal captures an outer variable.
// The capture counts as a use of the variable at the closure's point but
// does not otherwise affect the enclosing function's data flow.
type CapturedVar struct {
	Var     VarID
	Mode    CaptureMode
	Mutated bool
}

// BinOp is a binary operator in an Rvalue.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpAnd
	OpOr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
)

// UnOp is a unary operator in an Rvalue.
type UnOp uint8

const (
	OpNeg UnOp = iota
	OpNot
	OpDeref
)

// Rvalue is the right-hand side of a definition.
type Rvalue interface {
	// UsedVars returns the variables the rvalue reads.
	UsedVars() []VarID
}

// UseVar is a bare variable read.
type UseVar struct {
	Var VarID
}

// Const is a literal constant. Text keeps the source spelling for
// diagnostics; it carries no data-flow information.
type Const struct {
	Text string
}

// BinaryOp applies Op to two variables.
type BinaryOp struct {
	Op    BinOp
	Left  VarID
	Right VarID
}

// UnaryOp applies Op to one variable.
type UnaryOp struct {
	Op      UnOp
	Operand VarID
}

// FieldAccess reads a sub-value of Base described by Path. It exists to
// preserve provenance when a pattern destructures a compound value: each
// binding extracted from a pattern is initialized with the access path
// that reaches its slot in the scrutinee.
type FieldAccess struct {
	Base VarID
	Path AccessPath
}

// Ref takes a reference to a variable.
type Ref struct {
	Var     VarID
	Mutable bool
}

func (r UseVar) UsedVars() []VarID      { return []VarID{r.Var} }
func (Const) UsedVars() []VarID         { return nil }
func (r BinaryOp) UsedVars() []VarID    { return []VarID{r.Left, r.Right} }
func (r UnaryOp) UsedVars() []VarID     { return []VarID{r.Operand} }
func (r FieldAccess) UsedVars() []VarID { return []VarID{r.Base} }
func (r Ref) UsedVars() []VarID         { return []VarID{r.Var} }

// Statement is one non-branching instruction in a basic block. All
// control transfer is expressed by terminators.
type Statement interface {
	// DefinedVar returns the variable the statement defines, if any.
	DefinedVar() (VarID, bool)
	// UsedVars returns the variables the statement reads, including
	// closure captures.
	UsedVars() []VarID
}

// Declare introduces a variable with an optional initializer.
type Declare struct {
	Var  VarID
	Init Rvalue // nil when declared without an initializer
	Line int
	// Captures is non-empty only when the initializer is a closure
	// literal; see CapturedVar.
	Captures []CapturedVar
}

// Assign overwrites an existing variable.
type Assign struct {
	Target   VarID
	Source   Rvalue
	Line     int
	Captures []CapturedVar
}

// Call invokes a callee, optionally binding its result. Purity carries
// the classifier's verdict for consumption by downstream analyses; it
// does not alter the shape of the graph.
type Call struct {
	Result   VarID // NoVar when the result is discarded
	Callee   string
	Args     []VarID
	Purity   CallPurity
	Line     int
	Captures []CapturedVar
}

func (s Declare) DefinedVar() (VarID, bool) { return s.Var, true }
func (s Assign) DefinedVar() (VarID, bool)  { return s.Target, true }
func (s Call) DefinedVar() (VarID, bool) {
	if s.Result == NoVar {
		return NoVar, false
	}
	return s.Result, true
}

func (s Declare) UsedVars() []VarID {
	var vars []VarID
	if s.Init != nil {
		vars = append(vars, s.Init.UsedVars()...)
	}
	return appendCaptureUses(vars, s.Captures)
}

func (s Assign) UsedVars() []VarID {
	vars := append([]VarID(nil), s.Source.UsedVars()...)
	return appendCaptureUses(vars, s.Captures)
}

func (s Call) UsedVars() []VarID {
	vars := append([]VarID(nil), s.Args...)
	return appendCaptureUses(vars, s.Captures)
}

func appendCaptureUses(vars []VarID, captures []CapturedVar) []VarID {
	for _, c := range captures {
		vars = append(vars, c.Var)
	}
	return vars
}

// Terminator is the single control transfer ending a basic block.
type Terminator interface {
	// Successors returns the blocks control may transfer to.
	Successors() []BlockID
	// UsedVars returns the variables the terminator reads.
	UsedVars() []VarID
}

// Goto transfers unconditionally.
type Goto struct {
	Target BlockID
}

// Branch transfers to Then or Else depending on Cond.
type Branch struct {
	Cond VarID
	Then BlockID
	Else BlockID
}

// Return leaves the function, optionally with a value.
type Return struct {
	Value VarID // NoVar for a bare return
}

// FallThrough marks the last block on a path with no explicit return;
// control falls through to the graph exit.
type FallThrough struct{}

func (t Goto) Successors() []BlockID   { return []BlockID{t.Target} }
func (t Branch) Successors() []BlockID { return []BlockID{t.Then, t.Else} }
func (Return) Successors() []BlockID   { return nil }
func (FallThrough) Successors() []BlockID {
	return nil
}

func (Goto) UsedVars() []VarID     { return nil }
func (t Branch) UsedVars() []VarID { return []VarID{t.Cond} }
func (t Return) UsedVars() []VarID {
	if t.Value == NoVar {
		return nil
	}
	return []VarID{t.Value}
}
func (FallThrough) UsedVars() []VarID { return nil }

// EdgeKind classifies a control flow edge.
type EdgeKind uint8

const (
	EdgeSeq EdgeKind = iota
	EdgeBranchTrue
	EdgeBranchFalse
	EdgeLoopBack
	EdgeBreak
	EdgeContinue
	EdgeReturn
)

// Edge is a directed control flow edge to another block.
type Edge struct {
	To   BlockID
	Kind EdgeKind
}

// BasicBlock is an ordered sequence of statements closed by exactly one
// terminator. Term is nil only transiently while the builder still has
// the block open.
type BasicBlock struct {
	ID         BlockID
	Statements []Statement
	Term       Terminator
}

// ControlFlowGraph owns all blocks of one function, keyed by BlockID.
// It is populated by a single Builder pass and then treated as
// immutable; the reaching-definitions solver never mutates it.
type ControlFlowGraph struct {
	Blocks map[BlockID]*BasicBlock
	Entry  BlockID
	Exit   BlockID
	Edges  map[BlockID][]Edge

	// Names maps VarID to source-level name.
	Names []string
	// Captured lists every closure capture seen during the build.
	Captured []CapturedVar

	preds map[BlockID][]BlockID
}

// VarName returns the source name for a variable, or "" for NoVar.
func (g *ControlFlowGraph) VarName(v VarID) string {
	if v == NoVar || int(v) >= len(g.Names) {
		return ""
	}
	return g.Names[v]
}

// VarCount returns the number of interned variables.
func (g *ControlFlowGraph) VarCount() int { return len(g.Names) }

// BlockOrder returns all block ids in ascending order. Iterating the
// Blocks map directly is not deterministic; analyses use this instead.
func (g *ControlFlowGraph) BlockOrder() []BlockID {
	ids := make([]BlockID, 0, len(g.Blocks))
	for id := range g.Blocks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Successors returns the target blocks of b's outgoing edges.
func (g *ControlFlowGraph) Successors(b BlockID) []BlockID {
	edges := g.Edges[b]
	out := make([]BlockID, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.To)
	}
	return out
}

// Predecessors returns the blocks with an edge into b. The relation is
// computed once on first query and cached.
func (g *ControlFlowGraph) Predecessors(b BlockID) []BlockID {
	if g.preds == nil {
		g.preds = make(map[BlockID][]BlockID, len(g.Blocks))
		for _, from := range g.BlockOrder() {
			for _, e := range g.Edges[from] {
				g.preds[e.To] = append(g.preds[e.To], from)
			}
		}
	}
	return g.preds[b]
}

// EdgeCount returns the total number of edges in the graph.
func (g *ControlFlowGraph) EdgeCount() int {
	n := 0
	for _, edges := range g.Edges {
		n += len(edges)
	}
	return n
}
