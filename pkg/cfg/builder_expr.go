package cfg

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/flowlens/flowlens/pkg/parser"
)

// lowerOperand reduces an expression to a variable, materializing
// temporaries for anything that is not already a bare identifier.
func (b *builder) lowerOperand(n *sitter.Node) VarID {
	if n == nil {
		return b.temp()
	}

	switch n.Type() {
	case "identifier":
		return b.varID(b.text(n))

	case "self":
		return b.varID("self")

	case "parenthesized_expression", "try_expression", "await_expression":
		if inner := n.NamedChild(0); inner != nil {
			return b.lowerOperand(inner)
		}
		return b.temp()

	case "if_expression", "if_let_expression":
		t := b.temp()
		b.append(Declare{Var: t, Line: line(n)})
		b.lowerIf(n, t)
		return t

	case "match_expression":
		t := b.temp()
		b.append(Declare{Var: t, Line: line(n)})
		b.lowerMatch(n, t)
		return t

	case "block":
		t := b.temp()
		b.append(Declare{Var: t, Line: line(n)})
		tail := b.lowerBlockContents(n)
		if b.cur != nil && tail != NoVar {
			b.append(Assign{Target: t, Source: UseVar{Var: tail}, Line: line(n)})
		}
		return t
	}

	rv, caps := b.lowerRvalue(n)
	if uv, ok := rv.(UseVar); ok && len(caps) == 0 {
		return uv.Var
	}
	t := b.temp()
	b.append(Declare{Var: t, Init: rv, Line: line(n), Captures: caps})
	return t
}

// lowerRvalue translates an expression into a right-hand side. Calls
// and closures emit statements as a side effect; the returned rvalue
// then refers to their result.
func (b *builder) lowerRvalue(n *sitter.Node) (Rvalue, []CapturedVar) {
	switch n.Type() {
	case "identifier":
		return UseVar{Var: b.varID(b.text(n))}, nil

	case "self":
		return UseVar{Var: b.varID("self")}, nil

	case "integer_literal", "float_literal", "string_literal",
		"raw_string_literal", "char_literal", "boolean_literal",
		"unit_expression", "tuple_expression", "array_expression",
		"struct_expression":
		// compound literals read their element expressions
		if uses := b.literalElementUses(n); uses != nil {
			return uses, nil
		}
		return Const{Text: b.text(n)}, nil

	case "parenthesized_expression", "try_expression", "await_expression":
		if inner := n.NamedChild(0); inner != nil {
			return b.lowerRvalue(inner)
		}
		return Const{}, nil

	case "binary_expression":
		op, ok := binOp(b.opText(n))
		left := b.lowerOperand(n.ChildByFieldName("left"))
		right := b.lowerOperand(n.ChildByFieldName("right"))
		if !ok {
			op = OpAdd
		}
		return BinaryOp{Op: op, Left: left, Right: right}, nil

	case "unary_expression":
		op := OpNeg
		switch {
		case strings.HasPrefix(b.text(n), "!"):
			op = OpNot
		case strings.HasPrefix(b.text(n), "*"):
			op = OpDeref
		}
		return UnaryOp{Op: op, Operand: b.lowerOperand(n.NamedChild(0))}, nil

	case "reference_expression":
		mutable := false
		for i := 0; i < int(n.ChildCount()); i++ {
			if n.Child(i).Type() == "mutable_specifier" {
				mutable = true
			}
		}
		return Ref{Var: b.lowerOperand(n.ChildByFieldName("value")), Mutable: mutable}, nil

	case "field_expression":
		base := b.lowerOperand(n.ChildByFieldName("value"))
		field := n.ChildByFieldName("field")
		step := AccessStep{Kind: AccessNamedField, Field: b.text(field)}
		if idx, err := strconv.Atoi(b.text(field)); err == nil {
			step = AccessStep{Kind: AccessTupleIndex, Index: idx}
		}
		return FieldAccess{Base: base, Path: AccessPath{step}}, nil

	case "index_expression":
		base := b.lowerOperand(n.NamedChild(0))
		idxNode := n.NamedChild(1)
		step := AccessStep{Kind: AccessArrayIndex}
		if idxNode != nil {
			if idx, err := strconv.Atoi(b.text(idxNode)); err == nil {
				step.Index = idx
			} else {
				// a dynamic index is still a read of its operands
				idxVar := b.lowerOperand(idxNode)
				t := b.temp()
				b.append(Declare{Var: t, Init: UseVar{Var: idxVar}, Line: line(n)})
			}
		}
		return FieldAccess{Base: base, Path: AccessPath{step}}, nil

	case "call_expression", "macro_invocation":
		t := b.temp()
		b.lowerCall(n, t)
		return UseVar{Var: t}, nil

	case "closure_expression":
		caps := b.lowerClosure(n)
		return Const{Text: "<closure>"}, caps

	case "range_expression":
		// a..b reads both endpoints
		lo := n.NamedChild(0)
		hi := n.NamedChild(1)
		if lo != nil && hi != nil {
			return BinaryOp{Op: OpSub, Left: b.lowerOperand(lo), Right: b.lowerOperand(hi)}, nil
		}
		if lo != nil {
			return UseVar{Var: b.lowerOperand(lo)}, nil
		}
		return Const{Text: b.text(n)}, nil

	case "type_cast_expression":
		return UseVar{Var: b.lowerOperand(n.NamedChild(0))}, nil
	}

	// unknown expression forms contribute no reads
	return Const{Text: b.text(n)}, nil
}

// literalElementUses folds the variable reads of a compound literal
// into a chain rvalue, or returns nil when no element reads a variable.
func (b *builder) literalElementUses(n *sitter.Node) Rvalue {
	switch n.Type() {
	case "tuple_expression", "array_expression", "struct_expression":
	default:
		return nil
	}
	var vars []VarID
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "identifier":
			vars = append(vars, b.varID(b.text(child)))
		case "field_initializer":
			if v := child.ChildByFieldName("value"); v != nil {
				vars = append(vars, b.lowerOperand(v))
			}
		case "shorthand_field_initializer":
			if id := child.NamedChild(0); id != nil {
				vars = append(vars, b.varID(b.text(id)))
			}
		case "field_initializer_list":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				b.collectInitializerUse(child.NamedChild(j), &vars)
			}
		case "integer_literal", "float_literal", "string_literal",
			"char_literal", "boolean_literal", "type_identifier",
			"scoped_type_identifier":
			// no reads
		default:
			vars = append(vars, b.lowerOperand(child))
		}
	}
	switch len(vars) {
	case 0:
		return nil
	case 1:
		return UseVar{Var: vars[0]}
	default:
		// fold pairwise so every element stays visible as a use
		rv := BinaryOp{Op: OpAdd, Left: vars[0], Right: vars[1]}
		for _, v := range vars[2:] {
			t := b.temp()
			b.append(Declare{Var: t, Init: rv, Line: line(n)})
			rv = BinaryOp{Op: OpAdd, Left: t, Right: v}
		}
		return rv
	}
}

func (b *builder) collectInitializerUse(n *sitter.Node, vars *[]VarID) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "field_initializer":
		if v := n.ChildByFieldName("value"); v != nil {
			*vars = append(*vars, b.lowerOperand(v))
		}
	case "shorthand_field_initializer":
		if id := n.NamedChild(0); id != nil {
			*vars = append(*vars, b.varID(b.text(id)))
		}
	}
}

// lowerCall emits a Call statement for a call or macro invocation,
// binding its result to result when it is a valid variable.
func (b *builder) lowerCall(n *sitter.Node, result VarID) {
	var callee string
	var args []VarID

	switch n.Type() {
	case "call_expression":
		fn := n.ChildByFieldName("function")
		callee, args = b.lowerCallee(fn)
		if argsNode := n.ChildByFieldName("arguments"); argsNode != nil {
			for i := 0; i < int(argsNode.NamedChildCount()); i++ {
				args = append(args, b.lowerOperand(argsNode.NamedChild(i)))
			}
		}

	case "macro_invocation":
		if macro := n.ChildByFieldName("macro"); macro != nil {
			callee = b.text(macro)
		}
		// identifiers inside the token tree are reads
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() != "token_tree" {
				continue
			}
			parser.Walk(child, b.source, func(tok *sitter.Node, _ []byte) bool {
				if tok.Type() == "identifier" {
					if v, ok := b.knownVar(b.text(tok)); ok {
						args = append(args, v)
					}
				}
				return true
			})
		}

	default:
		return
	}

	b.append(Call{
		Result: result,
		Callee: callee,
		Args:   args,
		Purity: Classify(callee),
		Line:   line(n),
	})
}

// lowerCallee resolves the callee name and, for method calls, lowers
// the receiver as the implicit first argument.
func (b *builder) lowerCallee(fn *sitter.Node) (string, []VarID) {
	if fn == nil {
		return "", nil
	}
	switch fn.Type() {
	case "identifier":
		// Calling a local (a closure or function value) reads it.
		name := b.text(fn)
		if v, ok := b.knownVar(name); ok {
			return name, []VarID{v}
		}
		return name, nil
	case "scoped_identifier":
		return b.text(fn), nil
	case "field_expression":
		recv := b.lowerOperand(fn.ChildByFieldName("value"))
		return b.text(fn.ChildByFieldName("field")), []VarID{recv}
	case "generic_function":
		return b.lowerCallee(fn.ChildByFieldName("function"))
	}
	return b.text(fn), nil
}

// lowerClosure analyzes a closure literal's free variables. The body is
// not lowered into the enclosing graph; only the capture set crosses
// the boundary, each capture counting as a use at the closure's point.
func (b *builder) lowerClosure(n *sitter.Node) []CapturedVar {
	isMove := false
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "move" {
			isMove = true
		}
	}

	locals := make(map[string]struct{})
	if params := n.ChildByFieldName("parameters"); params != nil {
		b.collectClosureLocals(params, locals)
	}
	body := n.ChildByFieldName("body")
	if body != nil {
		b.collectClosureLocals(body, locals)
	}

	order := []VarID{}
	found := make(map[VarID]*CapturedVar)
	record := func(v VarID, mutated bool) {
		c, ok := found[v]
		if !ok {
			mode := CaptureByRef
			if isMove {
				mode = CaptureByValue
			}
			c = &CapturedVar{Var: v, Mode: mode}
			found[v] = c
			order = append(order, v)
		}
		if mutated {
			c.Mutated = true
			if c.Mode == CaptureByRef {
				c.Mode = CaptureByMutRef
			}
		}
	}

	parser.Walk(body, b.source, func(node *sitter.Node, _ []byte) bool {
		switch node.Type() {
		case "assignment_expression", "compound_assignment_expr", "compound_assignment_expression":
			if left := node.ChildByFieldName("left"); left != nil {
				if v, ok := b.outerVar(rootIdentifier(left), locals); ok {
					record(v, true)
				}
			}
		case "reference_expression":
			mutable := false
			for i := 0; i < int(node.ChildCount()); i++ {
				if node.Child(i).Type() == "mutable_specifier" {
					mutable = true
				}
			}
			if mutable {
				if v, ok := b.outerVar(rootIdentifier(node.ChildByFieldName("value")), locals); ok {
					record(v, true)
				}
			}
		case "call_expression":
			if fn := node.ChildByFieldName("function"); fn != nil && fn.Type() == "field_expression" {
				method := parser.GetNodeText(fn.ChildByFieldName("field"), b.source)
				if Classify(method) == PurityImpure {
					if v, ok := b.outerVar(rootIdentifier(fn.ChildByFieldName("value")), locals); ok {
						record(v, true)
					}
				}
			}
		case "identifier":
			if v, ok := b.outerVar(node, locals); ok {
				record(v, false)
			}
		}
		return true
	})

	caps := make([]CapturedVar, 0, len(order))
	for _, v := range order {
		caps = append(caps, *found[v])
	}
	b.captured = append(b.captured, caps...)
	return caps
}

// collectClosureLocals gathers names the closure binds itself, which
// shadow the enclosing scope and are never captures.
func (b *builder) collectClosureLocals(n *sitter.Node, locals map[string]struct{}) {
	parser.Walk(n, b.source, func(node *sitter.Node, _ []byte) bool {
		switch node.Type() {
		case "closure_parameters":
			for i := 0; i < int(node.NamedChildCount()); i++ {
				p := node.NamedChild(i)
				pat := p
				if p.Type() == "parameter" {
					if inner := p.ChildByFieldName("pattern"); inner != nil {
						pat = inner
					}
				}
				for _, bind := range ExtractBindings(pat, b.source) {
					locals[bind.Name] = struct{}{}
				}
			}
		case "let_declaration", "for_expression", "match_arm":
			pat := node.ChildByFieldName("pattern")
			for _, bind := range ExtractBindings(pat, b.source) {
				locals[bind.Name] = struct{}{}
			}
		}
		return true
	})
}

// outerVar resolves an identifier node to an already interned enclosing
// variable, skipping closure locals.
func (b *builder) outerVar(id *sitter.Node, locals map[string]struct{}) (VarID, bool) {
	if id == nil || id.Type() != "identifier" {
		return NoVar, false
	}
	name := b.text(id)
	if _, shadowed := locals[name]; shadowed {
		return NoVar, false
	}
	return b.knownVar(name)
}

// rootIdentifier peels field, index, deref and paren layers off an
// lvalue expression, returning the underlying identifier node.
func rootIdentifier(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "identifier":
			return n
		case "field_expression":
			n = n.ChildByFieldName("value")
		case "index_expression", "unary_expression", "parenthesized_expression", "reference_expression":
			n = n.NamedChild(0)
		default:
			return nil
		}
	}
	return nil
}
