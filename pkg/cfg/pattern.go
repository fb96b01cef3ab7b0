package cfg

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/flowlens/flowlens/pkg/parser"
)

// AccessKind identifies one step of an access path into a compound
// value.
type AccessKind uint8

const (
	// AccessTupleIndex selects a positional tuple or tuple-struct slot.
	AccessTupleIndex AccessKind = iota
	// AccessNamedField selects a struct field by name.
	AccessNamedField
	// AccessArrayIndex selects a positional slice or array element.
	AccessArrayIndex
	// AccessSliceRest selects the tail of a slice after fixed elements.
	AccessSliceRest
)

// AccessStep is a single projection. Index is set for tuple, array and
// rest steps; Field for named fields.
type AccessStep struct {
	Kind  AccessKind
	Index int
	Field string
}

// AccessPath describes how a binding's slot is reached from the root of
// the matched value, outermost step first. Nested destructuring is
// expressed by path length; an empty path binds the whole value.
type AccessPath []AccessStep

// Clone returns an independent copy of the path.
func (p AccessPath) Clone() AccessPath {
	return append(AccessPath(nil), p...)
}

func (p AccessPath) push(step AccessStep) AccessPath {
	return append(p.Clone(), step)
}

// PatternBinding is one variable introduced by a pattern, together with
// the path from the scrutinee to its slot.
type PatternBinding struct {
	Name    string
	Path    AccessPath // nil binds the whole value
	Mutable bool       // bound with mut
	ByRef   bool       // bound with ref
}

// ExtractBindings walks a Rust pattern node and returns every variable
// it introduces, in source order. Wildcards and bare rest patterns
// introduce nothing. Pattern forms the walker does not recognize also
// yield nothing rather than failing; callers see fewer bindings, never
// wrong ones. Or-patterns are resolved to their first alternative,
// which by Rust's own rules binds the same names as every other
// alternative.
func ExtractBindings(pattern *sitter.Node, source []byte) []PatternBinding {
	var out []PatternBinding
	collectBindings(pattern, source, nil, false, false, &out)
	return out
}

func collectBindings(node *sitter.Node, source []byte, path AccessPath, mut, byRef bool, out *[]PatternBinding) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "identifier", "shorthand_field_identifier":
		*out = append(*out, PatternBinding{
			Name:    parser.GetNodeText(node, source),
			Path:    path.Clone(),
			Mutable: mut,
			ByRef:   byRef,
		})

	case "wildcard_pattern", "_", "rest_pattern", "remaining_field_pattern":
		// introduces nothing

	case "mut_pattern":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			collectBindings(node.NamedChild(i), source, path, true, byRef, out)
		}

	case "ref_pattern":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			collectBindings(node.NamedChild(i), source, path, mut, true, out)
		}

	case "reference_pattern":
		// &pat matches through the reference without adding a step
		for i := 0; i < int(node.NamedChildCount()); i++ {
			collectBindings(node.NamedChild(i), source, path, mut, byRef, out)
		}

	case "tuple_pattern":
		idx := 0
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if isRestPattern(child) {
				idx++
				continue
			}
			step := AccessStep{Kind: AccessTupleIndex, Index: idx}
			collectBindings(child, source, path.push(step), mut, byRef, out)
			idx++
		}

	case "tuple_struct_pattern":
		// named child 0 is the constructor path, the rest are slots
		idx := 0
		for i := 1; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if isRestPattern(child) {
				idx++
				continue
			}
			step := AccessStep{Kind: AccessTupleIndex, Index: idx}
			collectBindings(child, source, path.push(step), mut, byRef, out)
			idx++
		}

	case "struct_pattern":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "field_pattern":
				collectFieldPattern(child, source, path, mut, byRef, out)
			case "shorthand_field_identifier":
				name := parser.GetNodeText(child, source)
				step := AccessStep{Kind: AccessNamedField, Field: name}
				*out = append(*out, PatternBinding{
					Name:    name,
					Path:    path.push(step),
					Mutable: mut,
					ByRef:   byRef,
				})
			case "remaining_field_pattern":
				// ..
			}
		}

	case "slice_pattern":
		sawRest := false
		idx := 0
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if isRestPattern(child) {
				sawRest = true
				continue
			}
			step := AccessStep{Kind: AccessArrayIndex, Index: idx}
			if sawRest {
				// positions after .. count from the end; keep the
				// positional index, the rest marker already shifted it
				step = AccessStep{Kind: AccessSliceRest, Index: idx}
			}
			collectBindings(child, source, path.push(step), mut, byRef, out)
			idx++
		}

	case "captured_pattern":
		// name @ subpattern binds name to the whole slot and also
		// applies the subpattern
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if i == 0 && child.Type() == "identifier" {
				inner := node.NamedChild(1)
				p := path.Clone()
				if inner != nil && isRestPattern(inner) {
					p = path.push(AccessStep{Kind: AccessSliceRest})
				}
				*out = append(*out, PatternBinding{
					Name:    parser.GetNodeText(child, source),
					Path:    p,
					Mutable: mut,
					ByRef:   byRef,
				})
				continue
			}
			collectBindings(child, source, path, mut, byRef, out)
		}

	case "or_pattern":
		// every alternative binds the same names; the first is enough
		if node.NamedChildCount() > 0 {
			collectBindings(node.NamedChild(0), source, path, mut, byRef, out)
		}

	case "match_pattern":
		// match arms wrap the pattern and an optional guard condition;
		// the guard is an expression, so its identifiers are uses, not
		// bindings
		cond := node.ChildByFieldName("condition")
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if cond != nil && child.Equal(cond) {
				continue
			}
			collectBindings(child, source, path, mut, byRef, out)
		}

	default:
		// unrecognized forms introduce no bindings
	}
}

// isRestPattern reports whether a node is a .. marker. The grammar
// names it remaining_field_pattern in every position; rest_pattern is
// kept for newer grammar revisions that split the two.
func isRestPattern(n *sitter.Node) bool {
	t := n.Type()
	return t == "rest_pattern" || t == "remaining_field_pattern"
}

func collectFieldPattern(node *sitter.Node, source []byte, path AccessPath, mut, byRef bool, out *[]PatternBinding) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	field := parser.GetNodeText(nameNode, source)
	step := AccessStep{Kind: AccessNamedField, Field: field}

	patNode := node.ChildByFieldName("pattern")
	if patNode == nil {
		// shorthand Point { x } or Point { ref mut x }
		hasMut, hasRef := mut, byRef
		for i := 0; i < int(node.ChildCount()); i++ {
			switch node.Child(i).Type() {
			case "mutable_specifier":
				hasMut = true
			case "ref":
				hasRef = true
			}
		}
		*out = append(*out, PatternBinding{
			Name:    field,
			Path:    path.push(step),
			Mutable: hasMut,
			ByRef:   hasRef,
		})
		return
	}
	collectBindings(patNode, source, path.push(step), mut, byRef, out)
}
