package cfg

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/flowlens/flowlens/pkg/parser"
)

// Build lowers a parsed Rust function into a control flow graph.
// Function parameters are declared in the entry block so that their
// uses resolve like any other definition; parameters that destructure
// introduce one declaration per binding.
func Build(fn parser.FunctionNode, source []byte) *ControlFlowGraph {
	b := newBuilder(source)
	if fn.Params != nil {
		b.declareParams(fn.Params)
	}
	b.lowerFunctionBody(fn.Body)
	return b.finalize()
}

// BuildFromBody lowers a bare block node, e.g. a function body obtained
// without its signature. No parameters are declared; uses with no
// reaching definition are treated by downstream analyses as
// parameter-equivalent.
func BuildFromBody(body *sitter.Node, source []byte) *ControlFlowGraph {
	b := newBuilder(source)
	b.lowerFunctionBody(body)
	return b.finalize()
}

type loopFrame struct {
	continueTo BlockID
	breakTo    BlockID
}

type builder struct {
	source   []byte
	blocks   []*BasicBlock
	edges    map[BlockID][]Edge
	cur      *BasicBlock // nil after a terminator until the next block opens
	names    []string
	ids      map[string]VarID
	captured []CapturedVar
	loops    []loopFrame
	temps    int
}

func newBuilder(source []byte) *builder {
	b := &builder{
		source: source,
		edges:  make(map[BlockID][]Edge),
		ids:    make(map[string]VarID),
	}
	b.openBlock() // entry
	return b
}

func (b *builder) openBlock() BlockID {
	id := BlockID(len(b.blocks))
	blk := &BasicBlock{ID: id}
	b.blocks = append(b.blocks, blk)
	b.cur = blk
	return id
}

// block ensures a current block exists; code after a return or break is
// unreachable but still lowered into a block of its own.
func (b *builder) block() *BasicBlock {
	if b.cur == nil {
		b.openBlock()
	}
	return b.cur
}

func (b *builder) append(s Statement) {
	blk := b.block()
	blk.Statements = append(blk.Statements, s)
}

func (b *builder) addEdge(from, to BlockID, kind EdgeKind) {
	b.edges[from] = append(b.edges[from], Edge{To: to, Kind: kind})
}

// close seals the current block with term. Edges are recorded by the
// caller since their kinds depend on context.
func (b *builder) close(term Terminator) BlockID {
	blk := b.block()
	blk.Term = term
	b.cur = nil
	return blk.ID
}

// resume makes an already created block current for appending.
func (b *builder) resume(id BlockID) {
	b.cur = b.blocks[id]
}

// newDetached creates a block without making it current.
func (b *builder) newDetached() BlockID {
	id := BlockID(len(b.blocks))
	b.blocks = append(b.blocks, &BasicBlock{ID: id})
	return id
}

func (b *builder) varID(name string) VarID {
	if id, ok := b.ids[name]; ok {
		return id
	}
	id := VarID(len(b.names))
	b.names = append(b.names, name)
	b.ids[name] = id
	return id
}

// knownVar reports whether name was already interned, without interning.
func (b *builder) knownVar(name string) (VarID, bool) {
	id, ok := b.ids[name]
	return id, ok
}

func (b *builder) temp() VarID {
	name := fmt.Sprintf("%%t%d", b.temps)
	b.temps++
	return b.varID(name)
}

func (b *builder) text(n *sitter.Node) string {
	return parser.GetNodeText(n, b.source)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func (b *builder) finalize() *ControlFlowGraph {
	exit := b.newDetached()
	b.blocks[exit].Term = FallThrough{}

	for _, blk := range b.blocks {
		if blk.ID == exit {
			continue
		}
		switch blk.Term.(type) {
		case nil:
			blk.Term = FallThrough{}
			b.addEdge(blk.ID, exit, EdgeSeq)
		case Return:
			b.addEdge(blk.ID, exit, EdgeReturn)
		}
	}

	g := &ControlFlowGraph{
		Blocks:   make(map[BlockID]*BasicBlock, len(b.blocks)),
		Entry:    0,
		Exit:     exit,
		Edges:    b.edges,
		Names:    b.names,
		Captured: b.captured,
	}
	for _, blk := range b.blocks {
		g.Blocks[blk.ID] = blk
	}
	return g
}

// IsSynthetic reports whether v is a compiler-introduced temporary
// rather than a source-level variable.
func (g *ControlFlowGraph) IsSynthetic(v VarID) bool {
	return strings.HasPrefix(g.VarName(v), "%")
}

func (b *builder) declareParams(params *sitter.Node) {
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		var pat *sitter.Node
		switch p.Type() {
		case "parameter":
			pat = p.ChildByFieldName("pattern")
		case "self_parameter":
			b.append(Declare{Var: b.varID("self"), Line: line(p)})
			continue
		}
		if pat == nil {
			continue
		}
		for _, bind := range ExtractBindings(pat, b.source) {
			b.append(Declare{Var: b.varID(bind.Name), Line: line(pat)})
		}
	}
}

// lowerFunctionBody lowers the top-level block. A trailing expression
// is the function's return value.
func (b *builder) lowerFunctionBody(body *sitter.Node) {
	if body == nil {
		return
	}
	tail := b.lowerBlockContents(body)
	if b.cur == nil {
		return // every path already returned or diverged
	}
	if tail != NoVar {
		b.close(Return{Value: tail})
		return
	}
	// implicit unit return, finalize adds the fall-through edge
}

// lowerBlockContents lowers the statements of a block node and returns
// the operand of its trailing expression, or NoVar when the block ends
// with a statement.
func (b *builder) lowerBlockContents(blockNode *sitter.Node) VarID {
	n := int(blockNode.NamedChildCount())
	for i := 0; i < n; i++ {
		child := blockNode.NamedChild(i)
		isLast := i == n-1
		if isLast && isExpressionNode(child.Type()) {
			return b.lowerOperand(child)
		}
		b.lowerStatement(child)
		if b.cur == nil && isLast {
			return NoVar
		}
	}
	return NoVar
}

// isExpressionNode reports whether a block child is a trailing value
// expression rather than a statement.
func isExpressionNode(typ string) bool {
	switch typ {
	case "let_declaration", "expression_statement", "empty_statement",
		"function_item", "struct_item", "enum_item", "impl_item",
		"use_declaration", "line_comment", "block_comment",
		"macro_definition", "type_item", "const_item", "static_item",
		"mod_item", "trait_item", "attribute_item":
		return false
	}
	return true
}

func (b *builder) lowerStatement(n *sitter.Node) {
	switch n.Type() {
	case "let_declaration":
		b.lowerLet(n)
	case "expression_statement":
		if expr := n.NamedChild(0); expr != nil {
			b.lowerExpressionForEffect(expr)
		}
	case "empty_statement", "line_comment", "block_comment",
		"function_item", "struct_item", "enum_item", "impl_item",
		"use_declaration", "macro_definition", "type_item",
		"const_item", "static_item", "mod_item", "trait_item",
		"attribute_item":
		// no data flow at this level
	default:
		// bare expressions inside statement position
		b.lowerExpressionForEffect(n)
	}
}

func (b *builder) lowerLet(n *sitter.Node) {
	pat := n.ChildByFieldName("pattern")
	value := n.ChildByFieldName("value")
	if pat == nil {
		return
	}

	// let x = <expr> with a plain identifier target
	if pat.Type() == "identifier" || pat.Type() == "mut_pattern" {
		target := pat
		if pat.Type() == "mut_pattern" {
			if inner := pat.NamedChild(int(pat.NamedChildCount()) - 1); inner != nil && inner.Type() == "identifier" {
				target = inner
			} else {
				b.lowerLetDestructure(pat, value, line(n))
				return
			}
		}
		v := b.varID(b.text(target))
		if value == nil {
			b.append(Declare{Var: v, Line: line(n)})
			return
		}
		if b.lowerControlFlowInit(v, value, true) {
			return
		}
		if value.Type() == "call_expression" || value.Type() == "macro_invocation" {
			b.lowerCall(value, v)
			return
		}
		rv, caps := b.lowerRvalue(value)
		b.append(Declare{Var: v, Init: rv, Line: line(n), Captures: caps})
		return
	}

	b.lowerLetDestructure(pat, value, line(n))
}

// lowerLetDestructure declares one variable per pattern binding, each
// initialized with the access path that reaches its slot.
func (b *builder) lowerLetDestructure(pat, value *sitter.Node, ln int) {
	binds := ExtractBindings(pat, b.source)
	if value == nil {
		for _, bind := range binds {
			b.append(Declare{Var: b.varID(bind.Name), Line: ln})
		}
		return
	}
	scrut := b.lowerOperand(value)
	for _, bind := range binds {
		v := b.varID(bind.Name)
		var init Rvalue
		if len(bind.Path) == 0 {
			init = UseVar{Var: scrut}
		} else {
			init = FieldAccess{Base: scrut, Path: bind.Path}
		}
		b.append(Declare{Var: v, Init: init, Line: ln})
	}
}

// lowerControlFlowInit handles let/assign targets whose initializer is
// itself control flow, e.g. let x = if c { 1 } else { 2 }. The target
// is declared up front and assigned in each arm so that the arms'
// definitions converge at the join block. Returns false when the
// initializer is an ordinary expression.
func (b *builder) lowerControlFlowInit(target VarID, value *sitter.Node, declare bool) bool {
	switch value.Type() {
	case "if_expression", "if_let_expression":
		if declare {
			b.append(Declare{Var: target, Line: line(value)})
		}
		b.lowerIf(value, target)
		return true
	case "match_expression":
		if declare {
			b.append(Declare{Var: target, Line: line(value)})
		}
		b.lowerMatch(value, target)
		return true
	case "block":
		if declare {
			b.append(Declare{Var: target, Line: line(value)})
		}
		tail := b.lowerBlockContents(value)
		if b.cur != nil && tail != NoVar {
			b.append(Assign{Target: target, Source: UseVar{Var: tail}, Line: line(value)})
		}
		return true
	}
	return false
}

// lowerExpressionForEffect lowers an expression appearing in statement
// position.
func (b *builder) lowerExpressionForEffect(n *sitter.Node) {
	switch n.Type() {
	case "assignment_expression":
		b.lowerAssignment(n)
	case "compound_assignment_expr", "compound_assignment_expression":
		b.lowerCompoundAssignment(n)
	case "if_expression", "if_let_expression":
		b.lowerIf(n, NoVar)
	case "match_expression":
		b.lowerMatch(n, NoVar)
	case "while_expression", "while_let_expression":
		b.lowerWhile(n)
	case "loop_expression":
		b.lowerLoop(n)
	case "for_expression":
		b.lowerFor(n)
	case "return_expression":
		b.lowerReturn(n)
	case "break_expression":
		b.lowerBreak(n)
	case "continue_expression":
		b.lowerContinue(n)
	case "block":
		b.lowerBlockContents(n)
	case "call_expression", "macro_invocation":
		b.lowerCall(n, NoVar)
	case "unsafe_block":
		if inner := n.NamedChild(0); inner != nil && inner.Type() == "block" {
			b.lowerBlockContents(inner)
		}
	default:
		// evaluate for its uses, discard the value
		b.lowerOperand(n)
	}
}

func (b *builder) lowerAssignment(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil || right == nil {
		return
	}
	target := b.assignTarget(left)
	if target == NoVar {
		// unrecognized target, still evaluate the right side
		b.lowerOperand(right)
		return
	}
	if b.lowerControlFlowInit(target, right, false) {
		return
	}
	if right.Type() == "call_expression" || right.Type() == "macro_invocation" {
		b.lowerCall(right, target)
		return
	}
	rv, caps := b.lowerRvalue(right)
	b.append(Assign{Target: target, Source: rv, Line: line(n), Captures: caps})
}

func (b *builder) lowerCompoundAssignment(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil || right == nil {
		return
	}
	target := b.assignTarget(left)
	if target == NoVar {
		b.lowerOperand(right)
		return
	}
	op := compoundOp(b.opText(n))
	rhs := b.lowerOperand(right)
	b.append(Assign{
		Target: target,
		Source: BinaryOp{Op: op, Left: target, Right: rhs},
		Line:   line(n),
	})
}

// assignTarget resolves the variable defined by an assignment's left
// side. Writes through fields, indexes and derefs count as definitions
// of the root variable; the analysis tracks whole variables, not
// places.
func (b *builder) assignTarget(n *sitter.Node) VarID {
	switch n.Type() {
	case "identifier":
		return b.varID(b.text(n))
	case "field_expression":
		if v := n.ChildByFieldName("value"); v != nil {
			return b.assignTarget(v)
		}
	case "index_expression":
		if v := n.NamedChild(0); v != nil {
			// the index operand is still a read
			if idx := n.NamedChild(1); idx != nil {
				b.lowerOperand(idx)
			}
			return b.assignTarget(v)
		}
	case "unary_expression":
		if v := n.NamedChild(0); v != nil {
			return b.assignTarget(v)
		}
	case "parenthesized_expression":
		if v := n.NamedChild(0); v != nil {
			return b.assignTarget(v)
		}
	case "tuple_expression":
		// (a, b) = ... defines each element; approximate with the first
		if v := n.NamedChild(0); v != nil {
			return b.assignTarget(v)
		}
	}
	return NoVar
}

func (b *builder) opText(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return b.text(op)
	}
	return ""
}

func compoundOp(s string) BinOp {
	switch strings.TrimSuffix(s, "=") {
	case "+":
		return OpAdd
	case "-":
		return OpSub
	case "*":
		return OpMul
	case "/":
		return OpDiv
	case "%":
		return OpRem
	case "&":
		return OpBitAnd
	case "|":
		return OpBitOr
	case "^":
		return OpBitXor
	case "<<":
		return OpShl
	case ">>":
		return OpShr
	}
	return OpAdd
}

func binOp(s string) (BinOp, bool) {
	switch s {
	case "+":
		return OpAdd, true
	case "-":
		return OpSub, true
	case "*":
		return OpMul, true
	case "/":
		return OpDiv, true
	case "%":
		return OpRem, true
	case "==":
		return OpEq, true
	case "!=":
		return OpNe, true
	case "<":
		return OpLt, true
	case ">":
		return OpGt, true
	case "<=":
		return OpLe, true
	case ">=":
		return OpGe, true
	case "&&":
		return OpAnd, true
	case "||":
		return OpOr, true
	case "&":
		return OpBitAnd, true
	case "|":
		return OpBitOr, true
	case "^":
		return OpBitXor, true
	case "<<":
		return OpShl, true
	case ">>":
		return OpShr, true
	}
	return OpAdd, false
}

// lowerIf lowers an if or if-let. When result is a valid variable the
// arm values are assigned to it before control converges.
func (b *builder) lowerIf(n *sitter.Node, result VarID) {
	cond := n.ChildByFieldName("condition")
	consequence := n.ChildByFieldName("consequence")

	var condVar VarID
	var letBinds []PatternBinding
	if cond != nil && cond.Type() == "let_condition" {
		// if let PAT = EXPR
		scrut := cond.ChildByFieldName("value")
		pat := cond.ChildByFieldName("pattern")
		condVar = b.lowerOperand(scrut)
		if pat != nil {
			letBinds = ExtractBindings(pat, b.source)
		}
	} else if cond != nil {
		condVar = b.lowerOperand(cond)
	} else {
		condVar = b.temp()
	}

	thenBlk := b.newDetached()
	elseBlk := b.newDetached()
	condBlk := b.close(Branch{Cond: condVar, Then: thenBlk, Else: elseBlk})
	b.addEdge(condBlk, thenBlk, EdgeBranchTrue)
	b.addEdge(condBlk, elseBlk, EdgeBranchFalse)

	join := b.newDetached()
	joinReached := false

	// then arm
	b.resume(thenBlk)
	for _, bind := range letBinds {
		v := b.varID(bind.Name)
		var init Rvalue
		if len(bind.Path) == 0 {
			init = UseVar{Var: condVar}
		} else {
			init = FieldAccess{Base: condVar, Path: bind.Path}
		}
		b.append(Declare{Var: v, Init: init, Line: line(n)})
	}
	if consequence != nil {
		tail := b.lowerBlockContents(consequence)
		if b.cur != nil && result != NoVar && tail != NoVar {
			b.append(Assign{Target: result, Source: UseVar{Var: tail}, Line: line(consequence)})
		}
	}
	if b.cur != nil {
		from := b.close(Goto{Target: join})
		b.addEdge(from, join, EdgeSeq)
		joinReached = true
	}

	// else arm
	b.resume(elseBlk)
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		// else_clause wraps either a block or another if
		inner := alt.NamedChild(0)
		if inner != nil {
			switch inner.Type() {
			case "block":
				tail := b.lowerBlockContents(inner)
				if b.cur != nil && result != NoVar && tail != NoVar {
					b.append(Assign{Target: result, Source: UseVar{Var: tail}, Line: line(inner)})
				}
			case "if_expression", "if_let_expression":
				b.lowerIf(inner, result)
			default:
				b.lowerExpressionForEffect(inner)
			}
		}
	}
	if b.cur != nil {
		from := b.close(Goto{Target: join})
		b.addEdge(from, join, EdgeSeq)
		joinReached = true
	}

	if joinReached {
		b.resume(join)
	}
	// when neither arm reaches the join, the detached join block stays
	// empty and finalize closes it; nothing flows through it
}

// lowerMatch lowers a match as a cascade of branches. Each test reads
// the scrutinee; each arm declares its pattern bindings before its
// body runs.
func (b *builder) lowerMatch(n *sitter.Node, result VarID) {
	value := n.ChildByFieldName("value")
	scrut := b.lowerOperand(value)

	bodyNode := n.ChildByFieldName("body")
	if bodyNode == nil {
		return
	}

	var arms []*sitter.Node
	for i := 0; i < int(bodyNode.NamedChildCount()); i++ {
		child := bodyNode.NamedChild(i)
		if child.Type() == "match_arm" {
			arms = append(arms, child)
		}
	}
	if len(arms) == 0 {
		return
	}

	join := b.newDetached()
	joinReached := false

	for i, arm := range arms {
		armBlk := b.newDetached()
		if i == len(arms)-1 {
			from := b.close(Goto{Target: armBlk})
			b.addEdge(from, armBlk, EdgeSeq)
			b.resume(armBlk)
			b.lowerMatchArm(arm, scrut, result, join, &joinReached)
			continue
		}

		next := b.newDetached()
		from := b.close(Branch{Cond: scrut, Then: armBlk, Else: next})
		b.addEdge(from, armBlk, EdgeBranchTrue)
		b.addEdge(from, next, EdgeBranchFalse)
		b.resume(armBlk)
		b.lowerMatchArm(arm, scrut, result, join, &joinReached)
		b.resume(next)
	}

	if joinReached {
		b.resume(join)
	}
}

func (b *builder) lowerMatchArm(arm *sitter.Node, scrut, result VarID, join BlockID, joinReached *bool) {
	if pat := arm.ChildByFieldName("pattern"); pat != nil {
		for _, bind := range ExtractBindings(pat, b.source) {
			v := b.varID(bind.Name)
			var init Rvalue
			if len(bind.Path) == 0 {
				init = UseVar{Var: scrut}
			} else {
				init = FieldAccess{Base: scrut, Path: bind.Path}
			}
			b.append(Declare{Var: v, Init: init, Line: line(pat)})
		}
		// the guard reads its variables after the pattern binds; the
		// read is materialized so bare identifier guards count as uses
		if cond := pat.ChildByFieldName("condition"); cond != nil {
			g := b.lowerOperand(cond)
			if g != NoVar {
				b.append(Declare{Var: b.temp(), Init: UseVar{Var: g}, Line: line(cond)})
			}
		}
	}

	if val := arm.ChildByFieldName("value"); val != nil {
		switch val.Type() {
		case "block":
			tail := b.lowerBlockContents(val)
			if b.cur != nil && result != NoVar && tail != NoVar {
				b.append(Assign{Target: result, Source: UseVar{Var: tail}, Line: line(val)})
			}
		case "return_expression":
			b.lowerReturn(val)
		case "break_expression":
			b.lowerBreak(val)
		case "continue_expression":
			b.lowerContinue(val)
		default:
			v := b.lowerOperand(val)
			if b.cur != nil && result != NoVar && v != NoVar {
				b.append(Assign{Target: result, Source: UseVar{Var: v}, Line: line(val)})
			}
		}
	}

	if b.cur != nil {
		from := b.close(Goto{Target: join})
		b.addEdge(from, join, EdgeSeq)
		*joinReached = true
	}
}

func (b *builder) lowerWhile(n *sitter.Node) {
	header := b.newDetached()
	from := b.close(Goto{Target: header})
	b.addEdge(from, header, EdgeSeq)

	b.resume(header)
	cond := n.ChildByFieldName("condition")

	var condVar VarID
	var letBinds []PatternBinding
	if cond != nil && cond.Type() == "let_condition" {
		condVar = b.lowerOperand(cond.ChildByFieldName("value"))
		if pat := cond.ChildByFieldName("pattern"); pat != nil {
			letBinds = ExtractBindings(pat, b.source)
		}
	} else if cond != nil {
		condVar = b.lowerOperand(cond)
	} else {
		condVar = b.temp()
	}

	bodyBlk := b.newDetached()
	exitBlk := b.newDetached()
	headEnd := b.close(Branch{Cond: condVar, Then: bodyBlk, Else: exitBlk})
	b.addEdge(headEnd, bodyBlk, EdgeBranchTrue)
	b.addEdge(headEnd, exitBlk, EdgeBranchFalse)

	b.loops = append(b.loops, loopFrame{continueTo: header, breakTo: exitBlk})
	b.resume(bodyBlk)
	for _, bind := range letBinds {
		v := b.varID(bind.Name)
		var init Rvalue
		if len(bind.Path) == 0 {
			init = UseVar{Var: condVar}
		} else {
			init = FieldAccess{Base: condVar, Path: bind.Path}
		}
		b.append(Declare{Var: v, Init: init, Line: line(n)})
	}
	if body := n.ChildByFieldName("body"); body != nil {
		b.lowerBlockContents(body)
	}
	if b.cur != nil {
		from := b.close(Goto{Target: header})
		b.addEdge(from, header, EdgeLoopBack)
	}
	b.loops = b.loops[:len(b.loops)-1]

	b.resume(exitBlk)
}

func (b *builder) lowerLoop(n *sitter.Node) {
	header := b.newDetached()
	from := b.close(Goto{Target: header})
	b.addEdge(from, header, EdgeSeq)

	exitBlk := b.newDetached()
	b.loops = append(b.loops, loopFrame{continueTo: header, breakTo: exitBlk})

	b.resume(header)
	if body := n.ChildByFieldName("body"); body != nil {
		b.lowerBlockContents(body)
	}
	if b.cur != nil {
		from := b.close(Goto{Target: header})
		b.addEdge(from, header, EdgeLoopBack)
	}
	b.loops = b.loops[:len(b.loops)-1]

	// reachable only through break edges
	b.resume(exitBlk)
}

func (b *builder) lowerFor(n *sitter.Node) {
	iter := b.lowerOperand(n.ChildByFieldName("value"))

	header := b.newDetached()
	from := b.close(Goto{Target: header})
	b.addEdge(from, header, EdgeSeq)

	b.resume(header)
	bodyBlk := b.newDetached()
	exitBlk := b.newDetached()
	headEnd := b.close(Branch{Cond: iter, Then: bodyBlk, Else: exitBlk})
	b.addEdge(headEnd, bodyBlk, EdgeBranchTrue)
	b.addEdge(headEnd, exitBlk, EdgeBranchFalse)

	b.loops = append(b.loops, loopFrame{continueTo: header, breakTo: exitBlk})
	b.resume(bodyBlk)
	if pat := n.ChildByFieldName("pattern"); pat != nil {
		for _, bind := range ExtractBindings(pat, b.source) {
			v := b.varID(bind.Name)
			var init Rvalue
			if len(bind.Path) == 0 {
				init = UseVar{Var: iter}
			} else {
				init = FieldAccess{Base: iter, Path: bind.Path}
			}
			b.append(Declare{Var: v, Init: init, Line: line(pat)})
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		b.lowerBlockContents(body)
	}
	if b.cur != nil {
		from := b.close(Goto{Target: header})
		b.addEdge(from, header, EdgeLoopBack)
	}
	b.loops = b.loops[:len(b.loops)-1]

	b.resume(exitBlk)
}

func (b *builder) lowerReturn(n *sitter.Node) {
	val := NoVar
	if v := n.NamedChild(0); v != nil {
		val = b.lowerOperand(v)
	}
	b.close(Return{Value: val})
	// the edge to the exit block is added by finalize
}

func (b *builder) lowerBreak(n *sitter.Node) {
	if v := n.NamedChild(0); v != nil && v.Type() != "loop_label" {
		b.lowerOperand(v)
	}
	if len(b.loops) == 0 {
		b.close(Return{Value: NoVar})
		return
	}
	target := b.loops[len(b.loops)-1].breakTo
	from := b.close(Goto{Target: target})
	b.addEdge(from, target, EdgeBreak)
}

func (b *builder) lowerContinue(n *sitter.Node) {
	if len(b.loops) == 0 {
		b.close(Return{Value: NoVar})
		return
	}
	target := b.loops[len(b.loops)-1].continueTo
	from := b.close(Goto{Target: target})
	b.addEdge(from, target, EdgeContinue)
}
