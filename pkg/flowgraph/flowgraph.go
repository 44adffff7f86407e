// Package flowgraph maintains the per-function control-flow graph: the
// predecessor and successor sets of every basic block. After a pass
// mutates a block's branches or splits it, the affected blocks' edges
// are rebuilt wholesale rather than patched incrementally.
package flowgraph

import (
	"sort"

	"github.com/xplshn/glir/pkg/ir"
)

type edgeSet map[ir.Block]struct{}

type ControlFlowGraph struct {
	preds map[ir.Block]edgeSet
	succs map[ir.Block]edgeSet
}

func New() *ControlFlowGraph {
	return &ControlFlowGraph{
		preds: make(map[ir.Block]edgeSet),
		succs: make(map[ir.Block]edgeSet),
	}
}

// Compute rebuilds the whole graph from the function's layout.
func (c *ControlFlowGraph) Compute(f *ir.Function) {
	c.preds = make(map[ir.Block]edgeSet)
	c.succs = make(map[ir.Block]edgeSet)
	for _, b := range f.Blocks() {
		c.computeBlock(f, b)
	}
}

// RecomputeBlock rebuilds the successor edges of b and the matching
// predecessor entries after b's instructions were mutated. It is
// idempotent; recomputing an unchanged block is a no-op.
func (c *ControlFlowGraph) RecomputeBlock(f *ir.Function, b ir.Block) {
	c.invalidateBlockSuccs(b)
	c.computeBlock(f, b)
}

func (c *ControlFlowGraph) computeBlock(f *ir.Function, b ir.Block) {
	for _, i := range f.BlockInsts(b) {
		d := f.Inst(i)
		if d.Op.IsBranch() {
			c.addEdge(b, d.Dest)
		}
		if d.Op.IsTerminator() {
			break
		}
	}
}

func (c *ControlFlowGraph) invalidateBlockSuccs(b ir.Block) {
	for s := range c.succs[b] {
		delete(c.preds[s], b)
	}
	delete(c.succs, b)
}

func (c *ControlFlowGraph) addEdge(from, to ir.Block) {
	if c.succs[from] == nil {
		c.succs[from] = make(edgeSet)
	}
	if c.preds[to] == nil {
		c.preds[to] = make(edgeSet)
	}
	c.succs[from][to] = struct{}{}
	c.preds[to][from] = struct{}{}
}

// Succs returns the successors of b in ascending block order.
func (c *ControlFlowGraph) Succs(b ir.Block) []ir.Block { return sorted(c.succs[b]) }

// Preds returns the predecessors of b in ascending block order.
func (c *ControlFlowGraph) Preds(b ir.Block) []ir.Block { return sorted(c.preds[b]) }

func sorted(s edgeSet) []ir.Block {
	out := make([]ir.Block, 0, len(s))
	for b := range s {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
