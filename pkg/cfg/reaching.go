package cfg

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// ReachingDefinitions holds the fixpoint solution of the forward
// may-analysis over one graph: for every block, the set of definitions
// that may reach its entry and exit. Definitions are interned as dense
// indices so the per-block sets are compressed bitmaps.
//
// The solution is computed once and then read-only; concurrent queries
// are safe.
type ReachingDefinitions struct {
	g *ControlFlowGraph

	defs     []Definition
	defAt    map[ProgramPoint]uint32
	varDefs  map[VarID]*roaring.Bitmap
	gen      map[BlockID]*roaring.Bitmap
	kill     map[BlockID]*roaring.Bitmap
	reachIn  map[BlockID]*roaring.Bitmap
	reachOut map[BlockID]*roaring.Bitmap
}

// ComputeReachingDefinitions runs the worklist fixpoint over g. The
// iteration order is deterministic, so two runs over the same graph
// produce identical solutions. GEN and KILL never change during the
// iteration and the transfer function is monotone over a finite
// lattice, so the loop always terminates.
func ComputeReachingDefinitions(g *ControlFlowGraph) *ReachingDefinitions {
	rd := &ReachingDefinitions{
		g:        g,
		defAt:    make(map[ProgramPoint]uint32),
		varDefs:  make(map[VarID]*roaring.Bitmap),
		gen:      make(map[BlockID]*roaring.Bitmap),
		kill:     make(map[BlockID]*roaring.Bitmap),
		reachIn:  make(map[BlockID]*roaring.Bitmap),
		reachOut: make(map[BlockID]*roaring.Bitmap),
	}

	order := g.BlockOrder()

	// number every definition in block/statement order
	for _, id := range order {
		blk := g.Blocks[id]
		for i, s := range blk.Statements {
			v, ok := s.DefinedVar()
			if !ok {
				continue
			}
			idx := uint32(len(rd.defs))
			point := ProgramPoint{Block: id, Stmt: i}
			rd.defs = append(rd.defs, Definition{Var: v, Point: point})
			rd.defAt[point] = idx
			set, ok := rd.varDefs[v]
			if !ok {
				set = roaring.New()
				rd.varDefs[v] = set
			}
			set.Add(idx)
		}
	}

	// GEN keeps the downward-exposed definition per variable; KILL is
	// every other definition of a variable the block defines
	for _, id := range order {
		blk := g.Blocks[id]
		gen := roaring.New()
		lastDef := make(map[VarID]uint32)
		for i, s := range blk.Statements {
			v, ok := s.DefinedVar()
			if !ok {
				continue
			}
			lastDef[v] = rd.defAt[ProgramPoint{Block: id, Stmt: i}]
		}
		kill := roaring.New()
		for v, idx := range lastDef {
			gen.Add(idx)
			kill.Or(rd.varDefs[v])
		}
		kill.AndNot(gen)
		rd.gen[id] = gen
		rd.kill[id] = kill
		rd.reachIn[id] = roaring.New()
		rd.reachOut[id] = gen.Clone()
	}

	// worklist fixpoint: IN = union of predecessor OUT,
	// OUT = GEN + (IN - KILL)
	queued := make(map[BlockID]bool, len(order))
	queue := append([]BlockID(nil), order...)
	for _, id := range order {
		queued[id] = true
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false

		in := roaring.New()
		for _, pred := range g.Predecessors(id) {
			in.Or(rd.reachOut[pred])
		}
		rd.reachIn[id] = in

		out := in.Clone()
		out.AndNot(rd.kill[id])
		out.Or(rd.gen[id])
		if out.Equals(rd.reachOut[id]) {
			continue
		}
		rd.reachOut[id] = out
		for _, succ := range g.Successors(id) {
			if !queued[succ] {
				queued[succ] = true
				queue = append(queue, succ)
			}
		}
	}

	return rd
}

// Graph returns the graph the solution was computed over.
func (rd *ReachingDefinitions) Graph() *ControlFlowGraph { return rd.g }

// Definitions returns every definition in the graph in numbering order.
func (rd *ReachingDefinitions) Definitions() []Definition {
	return rd.defs
}

// ReachIn returns the definitions that may reach the entry of a block.
func (rd *ReachingDefinitions) ReachIn(b BlockID) []Definition {
	return rd.toDefs(rd.reachIn[b])
}

// ReachOut returns the definitions that may reach the exit of a block.
func (rd *ReachingDefinitions) ReachOut(b BlockID) []Definition {
	return rd.toDefs(rd.reachOut[b])
}

func (rd *ReachingDefinitions) toDefs(set *roaring.Bitmap) []Definition {
	if set == nil {
		return nil
	}
	out := make([]Definition, 0, set.GetCardinality())
	it := set.Iterator()
	for it.HasNext() {
		out = append(out, rd.defs[it.Next()])
	}
	return out
}

// ReachingAt returns the definitions of v that may reach the given
// point. Within a block the answer is refined statement by statement:
// a definition of v earlier in the same block shadows everything
// arriving from outside, and the latest one wins.
func (rd *ReachingDefinitions) ReachingAt(p ProgramPoint, v VarID) []Definition {
	blk := rd.g.Blocks[p.Block]
	if blk == nil {
		return nil
	}

	// most recent definition before p inside the block
	limit := p.Stmt
	if limit > len(blk.Statements) {
		limit = len(blk.Statements)
	}
	for i := limit - 1; i >= 0; i-- {
		dv, ok := blk.Statements[i].DefinedVar()
		if !ok || dv != v {
			continue
		}
		idx := rd.defAt[ProgramPoint{Block: p.Block, Stmt: i}]
		return []Definition{rd.defs[idx]}
	}

	in := rd.reachIn[p.Block]
	vset := rd.varDefs[v]
	if in == nil || vset == nil {
		return nil
	}
	both := roaring.And(in, vset)
	return rd.toDefs(both)
}

// Uses returns every read event in the graph, in block and statement
// order. Terminator reads are reported at the point one past the last
// statement of their block.
func (rd *ReachingDefinitions) Uses() []Use {
	var uses []Use
	for _, id := range rd.g.BlockOrder() {
		blk := rd.g.Blocks[id]
		for i, s := range blk.Statements {
			for _, v := range s.UsedVars() {
				uses = append(uses, Use{Var: v, Point: ProgramPoint{Block: id, Stmt: i}})
			}
		}
		if blk.Term != nil {
			for _, v := range blk.Term.UsedVars() {
				uses = append(uses, Use{Var: v, Point: TerminatorPoint(blk)})
			}
		}
	}
	return uses
}

// UseDefChains maps every use to the definitions that may flow into
// it. A use with no entry reads a variable with no definition in the
// function, e.g. a parameter of a graph built without its signature.
func (rd *ReachingDefinitions) UseDefChains() map[Use][]Definition {
	chains := make(map[Use][]Definition)
	for _, u := range rd.Uses() {
		defs := rd.ReachingAt(u.Point, u.Var)
		if len(defs) > 0 {
			chains[u] = defs
		}
	}
	return chains
}

// DefUseChains maps every definition to the uses it may flow into.
// Definitions that reach no use have an entry with a nil slice, so
// callers can distinguish "never used" from "not a definition".
func (rd *ReachingDefinitions) DefUseChains() map[Definition][]Use {
	chains := make(map[Definition][]Use, len(rd.defs))
	for _, d := range rd.defs {
		chains[d] = nil
	}
	for u, defs := range rd.UseDefChains() {
		for _, d := range defs {
			chains[d] = append(chains[d], u)
		}
	}
	for d, uses := range chains {
		sort.Slice(uses, func(i, j int) bool {
			if uses[i].Point.Block != uses[j].Point.Block {
				return uses[i].Point.Block < uses[j].Point.Block
			}
			if uses[i].Point.Stmt != uses[j].Point.Stmt {
				return uses[i].Point.Stmt < uses[j].Point.Stmt
			}
			return uses[i].Var < uses[j].Var
		})
		chains[d] = uses
	}
	return chains
}

// IsDeadDefinition reports whether a definition flows into no use.
func (rd *ReachingDefinitions) IsDeadDefinition(d Definition) bool {
	return len(rd.DefUseChains()[d]) == 0
}

// StatementAt returns the statement a definition was produced by.
func (rd *ReachingDefinitions) StatementAt(p ProgramPoint) Statement {
	blk := rd.g.Blocks[p.Block]
	if blk == nil || p.Stmt >= len(blk.Statements) {
		return nil
	}
	return blk.Statements[p.Stmt]
}
