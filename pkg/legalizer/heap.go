// Package legalizer rewrites abstract, target-independent instructions
// into sequences valid for final code generation. This file handles the
// heap_addr instruction: computing and bounds-checking an address inside
// a sandboxed linear heap. A heap_addr must never be lowered into an
// address computation that can escape the heap's bound without the
// program trapping first.
package legalizer

import (
	"fmt"

	"github.com/xplshn/glir/pkg/config"
	"github.com/xplshn/glir/pkg/flowgraph"
	"github.com/xplshn/glir/pkg/ir"
)

// ExpandHeapAddr rewrites a heap_addr instruction according to the
// declared style of the heap it references. The instruction is consumed
// exactly once; its result value keeps its identity.
func ExpandHeapAddr(inst ir.Inst, fn *ir.Function, cfg *flowgraph.ControlFlowGraph, conf *config.Config) {
	d := fn.Inst(inst)
	if d.Op != ir.OpHeapAddr {
		panic(fmt.Sprintf("wanted heap_addr: %s", fn.FormatInst(inst)))
	}
	heap, offset, accessSize := d.Heap, d.Args[0], uint64(d.Imm)

	style := fn.Heaps[heap].Style
	switch style.Kind {
	case ir.HeapDynamic:
		dynamicAddr(inst, heap, offset, accessSize, style.BoundGV, fn)
	case ir.HeapStatic:
		staticAddr(inst, heap, offset, accessSize, style.Bound, fn, cfg, conf)
	}
}

// dynamicAddr expands a heap_addr for a heap whose bound is loaded at
// the target program's runtime. All comparisons are unsigned, in the
// offset's type. Trap if offset + accessSize > bound.
func dynamicAddr(inst ir.Inst, heap ir.Heap, offset ir.Value, accessSize uint64, boundGV ir.GlobalValue, fn *ir.Function) {
	offsetTy := fn.ValueType(offset)
	addrTy := fn.ValueType(fn.FirstResult(inst))
	minSize := fn.Heaps[heap].MinSize
	pos := ir.NewCursor(fn).AtInst(inst)

	bound := pos.Ins().GlobalValue(offsetTy, boundGV)
	var oob ir.Value
	switch {
	case accessSize == 1:
		// offset > bound - 1 is the same as offset >= bound.
		oob = pos.Ins().Icmp(ir.CCUge, offset, bound)
	case accessSize <= minSize:
		// bound >= minSize >= accessSize, so bound - accessSize cannot
		// wrap and offset > bound - accessSize is safe to compute.
		adjBound := pos.Ins().IaddImm(bound, -int64(accessSize))
		oob = pos.Ins().Icmp(ir.CCUgt, offset, adjBound)
	default:
		// The adjusted offset itself can overflow the offset type, so
		// trap on the carry before comparing anything against it.
		sizeVal := pos.Ins().Iconst(offsetTy, int64(accessSize))
		adjOffset, overflow := pos.Ins().IaddCout(offset, sizeVal)
		pos.Ins().Trapnz(overflow, ir.TrapHeapOutOfBounds)
		oob = pos.Ins().Icmp(ir.CCUgt, adjOffset, bound)
	}
	pos.Ins().Trapnz(oob, ir.TrapHeapOutOfBounds)

	computeAddr(inst, heap, addrTy, offset, offsetTy, fn)
}

// staticAddr expands a heap_addr for a heap whose bound is a
// compile-time constant.
func staticAddr(inst ir.Inst, heap ir.Heap, offset ir.Value, accessSize, bound uint64, fn *ir.Function, cfg *flowgraph.ControlFlowGraph, conf *config.Config) {
	offsetTy := fn.ValueType(offset)
	addrTy := fn.ValueType(fn.FirstResult(inst))
	pos := ir.NewCursor(fn).AtInst(inst)

	if accessSize > bound {
		// Every offset is out of bounds since offset >= 0. The trap is a
		// terminator, so the rest of the block has to move into a block
		// of its own.
		conf.Warnf(config.WarnOOBConst, "%d-byte access to %s (bound %d) is always out of bounds", accessSize, heap, bound)
		pos.Ins().Trap(ir.TrapHeapOutOfBounds)
		fn.Replace(inst).Iconst(addrTy, 0)

		curr, ok := pos.CurrentBlock()
		if !ok {
			panic("cursor is not in a block")
		}
		tail := fn.SplitBlockBefore(inst)
		cfg.RecomputeBlock(fn, curr)
		cfg.RecomputeBlock(fn, tail)
		return
	}

	// Check offset > limit, which is now known non-negative.
	limit := bound - accessSize

	// A 32-bit offset cannot reach past a 4 GB limit, so the check can
	// be omitted entirely.
	elide := offsetTy == ir.TypeI32 && limit >= 0xffff_ffff && conf.IsFeatureEnabled(config.FeatStaticElision)
	if !elide {
		var oob ir.Value
		if limit&1 == 1 && conf.IsFeatureEnabled(config.FeatEvenImm) {
			// offset >= limit - 1 rejects the same offsets as
			// offset > limit for odd limits, and the even immediate
			// encodes more cheaply on several register machines.
			oob = pos.Ins().IcmpImm(ir.CCUge, offset, int64(limit-1))
		} else {
			oob = pos.Ins().IcmpImm(ir.CCUgt, offset, int64(limit))
		}
		pos.Ins().Trapnz(oob, ir.TrapHeapOutOfBounds)
	}

	computeAddr(inst, heap, addrTy, offset, offsetTy, fn)
}

// computeAddr replaces a heap_addr with the base + offset computation,
// widening the offset to the address type first when needed. Runs after
// the bounds check has been emitted, so the address arithmetic is
// unconditionally safe.
func computeAddr(inst ir.Inst, heap ir.Heap, addrTy ir.Type, offset ir.Value, offsetTy ir.Type, fn *ir.Function) {
	pos := ir.NewCursor(fn).AtInst(inst)

	if offsetTy != addrTy {
		offset = pos.Ins().Uextend(addrTy, offset)
	}

	baseGV := fn.Heaps[heap].Base
	base := pos.Ins().GlobalValue(addrTy, baseGV)
	fn.Replace(inst).Iadd(base, offset)
}
