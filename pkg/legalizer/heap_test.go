package legalizer

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xplshn/glir/pkg/config"
	"github.com/xplshn/glir/pkg/flowgraph"
	"github.com/xplshn/glir/pkg/ir"
)

type heapCase struct {
	dynamic    bool
	bound      uint64 // static style only
	minSize    uint64
	accessSize uint32
	offsetTy   ir.Type
}

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.SetTarget("linux", "amd64", "amd64_sysv")
	cfg.SetWarning(config.WarnOOBConst, false)
	return cfg
}

// buildCase constructs a one-block function holding a single heap_addr
// of the block's offset parameter: gv0 = vmctx, gv1 = heap base,
// gv2 = dynamic bound (when present), v0 = offset, v1 = the address.
func buildCase(c heapCase) (*ir.Function, ir.Inst) {
	fn := ir.NewFunction("demo")
	vmctx := fn.CreateGlobalValue(ir.VMContextData())
	base := fn.CreateGlobalValue(ir.LoadData(vmctx, 0, ir.TypeI64))

	var style ir.HeapStyle
	if c.dynamic {
		boundGV := fn.CreateGlobalValue(ir.LoadData(vmctx, 8, c.offsetTy))
		style = ir.DynamicStyle(boundGV)
	} else {
		style = ir.StaticStyle(c.bound)
	}
	heap := fn.CreateHeap(ir.HeapData{Style: style, Base: base, MinSize: c.minSize})

	blk := fn.MakeBlock()
	fn.AppendBlock(blk)
	offset := fn.AppendBlockParam(blk, c.offsetTy)

	pos := ir.NewCursor(fn).AtBottom(blk)
	addr := pos.Ins().HeapAddr(ir.TypeI64, heap, offset, c.accessSize)
	pos.Ins().Return()
	return fn, fn.ValueDef(addr)
}

func expand(t *testing.T, c heapCase) (*ir.Function, ir.Inst, *flowgraph.ControlFlowGraph) {
	t.Helper()
	fn, inst := buildCase(c)
	graph := flowgraph.New()
	graph.Compute(fn)
	ExpandHeapAddr(inst, fn, graph, testConfig())
	return fn, inst, graph
}

// blockOps lists the opcodes of a block in program order.
func blockOps(fn *ir.Function, b ir.Block) []ir.Opcode {
	var ops []ir.Opcode
	for _, i := range fn.BlockInsts(b) {
		ops = append(ops, fn.Inst(i).Op)
	}
	return ops
}

func TestStaticSmallBound(t *testing.T) {
	// bound 65536, access 4: limit 65532 is even, so the check compares
	// directly against it.
	fn, _, _ := expand(t, heapCase{bound: 0x10000, accessSize: 4, offsetTy: ir.TypeI32})

	want := `function %demo(i32) {
    gv0 = vmctx
    gv1 = load.i64 notrap aligned gv0
    heap0 = static gv1, min 0, bound 65536

block0(v0: i32):
    v2 = icmp_imm ugt v0, 65532
    trapnz v2, heap_oob
    v3 = uextend.i64 v0
    v4 = global_value.i64 gv1
    v1 = iadd v4, v3
    return
}
`
	if diff := cmp.Diff(want, fn.String()); diff != "" {
		t.Errorf("legalized dump mismatch (-want +got):\n%s", diff)
	}
}

func TestStaticCheckNotElidedBelow4GB(t *testing.T) {
	// bound 70000, access 8: limit 69992 is far below 2^32-1, so the
	// check must be emitted even though it is even.
	fn, _, _ := expand(t, heapCase{bound: 70000, accessSize: 8, offsetTy: ir.TypeI32})

	dump := fn.String()
	if !strings.Contains(dump, "icmp_imm ugt v0, 69992") {
		t.Errorf("expected direct check against 69992, got:\n%s", dump)
	}
	if !strings.Contains(dump, "trapnz v2, heap_oob") {
		t.Errorf("expected conditional heap_oob trap, got:\n%s", dump)
	}
}

func TestStaticOddLimitTieBreak(t *testing.T) {
	// bound 65537, access 4: limit 65533 is odd; offset >= 65532 rejects
	// exactly the offsets that offset > 65533 rejects, with an even
	// immediate.
	fn, _, _ := expand(t, heapCase{bound: 65537, accessSize: 4, offsetTy: ir.TypeI32})

	dump := fn.String()
	if !strings.Contains(dump, "icmp_imm uge v0, 65532") {
		t.Errorf("expected uge check against 65532, got:\n%s", dump)
	}
	if strings.Contains(dump, "ugt") {
		t.Errorf("odd limit must not use ugt, got:\n%s", dump)
	}
}

func TestStaticOddLimitDirectWhenDisabled(t *testing.T) {
	fn, inst := buildCase(heapCase{bound: 65537, accessSize: 4, offsetTy: ir.TypeI32})
	graph := flowgraph.New()
	graph.Compute(fn)
	cfg := testConfig()
	cfg.SetFeature(config.FeatEvenImm, false)
	ExpandHeapAddr(inst, fn, graph, cfg)

	if !strings.Contains(fn.String(), "icmp_imm ugt v0, 65533") {
		t.Errorf("expected direct ugt check with even-imm disabled, got:\n%s", fn.String())
	}
}

func TestStaticElision(t *testing.T) {
	// A 32-bit offset into a 4 GB heap cannot go out of bounds; no check
	// at all is emitted.
	fn, inst, _ := expand(t, heapCase{bound: 1 << 32, accessSize: 1, offsetTy: ir.TypeI32})

	blk := fn.InstBlock(inst)
	want := []ir.Opcode{ir.OpUextend, ir.OpGlobalValue, ir.OpIadd, ir.OpReturn}
	if diff := cmp.Diff(want, blockOps(fn, blk)); diff != "" {
		t.Errorf("elided expansion mismatch (-want +got):\n%s", diff)
	}
}

func TestStaticNoElisionFor64BitOffsets(t *testing.T) {
	// The elision argument only holds for 32-bit offsets.
	fn, inst, _ := expand(t, heapCase{bound: 1 << 32, accessSize: 1, offsetTy: ir.TypeI64})

	blk := fn.InstBlock(inst)
	ops := blockOps(fn, blk)
	if ops[0] != ir.OpIcmpImm {
		t.Errorf("64-bit offset expansion must keep the check, got ops %v", ops)
	}
}

func TestStaticElisionDisabled(t *testing.T) {
	fn, inst := buildCase(heapCase{bound: 1 << 32, accessSize: 1, offsetTy: ir.TypeI32})
	graph := flowgraph.New()
	graph.Compute(fn)
	cfg := testConfig()
	cfg.SetFeature(config.FeatStaticElision, false)
	ExpandHeapAddr(inst, fn, graph, cfg)

	blk := fn.InstBlock(inst)
	if ops := blockOps(fn, blk); ops[0] != ir.OpIcmpImm {
		t.Errorf("expansion with static-elision disabled must keep the check, got ops %v", ops)
	}
}

func TestStaticAlwaysOutOfBounds(t *testing.T) {
	// bound 16, access 32: offset >= 0 means every access traps. The
	// trap terminates the original block; the stranded remainder moves
	// into a fresh block where the address becomes a zero constant.
	fn, inst, graph := expand(t, heapCase{bound: 16, accessSize: 32, offsetTy: ir.TypeI32})

	want := `function %demo(i32) {
    gv0 = vmctx
    gv1 = load.i64 notrap aligned gv0
    heap0 = static gv1, min 0, bound 16

block0(v0: i32):
    trap heap_oob

block1:
    v1 = iconst.i64 0
    return
}
`
	if diff := cmp.Diff(want, fn.String()); diff != "" {
		t.Errorf("always-oob dump mismatch (-want +got):\n%s", diff)
	}

	blocks := fn.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks after split, got %d", len(blocks))
	}
	if n := len(graph.Succs(blocks[0])); n != 0 {
		t.Errorf("trapping block has %d successors, want 0", n)
	}
	if n := len(graph.Preds(blocks[1])); n != 0 {
		t.Errorf("unreachable tail block has %d predecessors, want 0", n)
	}

	// The original result value survived as the zero constant.
	addr := fn.FirstResult(inst)
	if fn.ValueType(addr) != ir.TypeI64 {
		t.Errorf("replacement constant has type %s, want i64", fn.ValueType(addr))
	}
	if d := fn.Inst(inst); d.Op != ir.OpIconst || d.Imm != 0 {
		t.Errorf("replacement is %s %d, want iconst 0", d.Op, d.Imm)
	}
}

func TestDynamicByteAccess(t *testing.T) {
	// access 1: offset >= bound is the whole check.
	fn, _, _ := expand(t, heapCase{dynamic: true, minSize: 0x10000, accessSize: 1, offsetTy: ir.TypeI32})

	want := `function %demo(i32) {
    gv0 = vmctx
    gv1 = load.i64 notrap aligned gv0
    gv2 = load.i32 notrap aligned gv0+8
    heap0 = dynamic gv1, min 65536, bound gv2

block0(v0: i32):
    v2 = global_value.i32 gv2
    v3 = icmp uge v0, v2
    trapnz v3, heap_oob
    v4 = uextend.i64 v0
    v5 = global_value.i64 gv1
    v1 = iadd v5, v4
    return
}
`
	if diff := cmp.Diff(want, fn.String()); diff != "" {
		t.Errorf("dynamic byte-access dump mismatch (-want +got):\n%s", diff)
	}
}

func TestDynamicAccessWithinMinSize(t *testing.T) {
	// access == min_size: bound - access cannot underflow, so the bound
	// is adjusted instead of the offset and no overflow check appears.
	fn, inst, _ := expand(t, heapCase{dynamic: true, minSize: 0x10000, accessSize: 0x10000, offsetTy: ir.TypeI32})

	blk := fn.InstBlock(inst)
	want := []ir.Opcode{
		ir.OpGlobalValue, // bound
		ir.OpIaddImm,     // bound - access_size
		ir.OpIcmp,        // offset > adjusted bound
		ir.OpTrapnz,
		ir.OpUextend,
		ir.OpGlobalValue, // base
		ir.OpIadd,
		ir.OpReturn,
	}
	if diff := cmp.Diff(want, blockOps(fn, blk)); diff != "" {
		t.Errorf("adjusted-bound expansion mismatch (-want +got):\n%s", diff)
	}

	insts := fn.BlockInsts(blk)
	if d := fn.Inst(insts[1]); d.Imm != -0x10000 {
		t.Errorf("adjusted bound immediate = %d, want %d", d.Imm, -0x10000)
	}
	if d := fn.Inst(insts[2]); d.Cond != ir.CCUgt {
		t.Errorf("adjusted bound condition = %s, want ugt", d.Cond)
	}
}

func TestDynamicOverflowCheckedFirst(t *testing.T) {
	// access > min_size: the adjusted offset may wrap, so the expansion
	// must trap on the carry before any bound comparison.
	fn, inst, _ := expand(t, heapCase{dynamic: true, minSize: 16, accessSize: 32, offsetTy: ir.TypeI32})

	blk := fn.InstBlock(inst)
	want := []ir.Opcode{
		ir.OpGlobalValue, // bound
		ir.OpIconst,      // access size
		ir.OpIaddCout,    // offset + access size, with carry
		ir.OpTrapnz,      // carry -> trap, before the comparison
		ir.OpIcmp,        // adjusted offset > bound
		ir.OpTrapnz,
		ir.OpUextend,
		ir.OpGlobalValue, // base
		ir.OpIadd,
		ir.OpReturn,
	}
	if diff := cmp.Diff(want, blockOps(fn, blk)); diff != "" {
		t.Errorf("overflow-checked expansion mismatch (-want +got):\n%s", diff)
	}

	insts := fn.BlockInsts(blk)
	overflowTrap := fn.Inst(insts[3])
	if overflowTrap.Trap != ir.TrapHeapOutOfBounds {
		t.Errorf("overflow trap code = %s, want heap_oob", overflowTrap.Trap)
	}
	// The carry bit being tested is the second result of the iadd_cout.
	carry := fn.InstResults(insts[2])[1]
	if overflowTrap.Args[0] != carry {
		t.Errorf("overflow trap tests %s, want carry %s", overflowTrap.Args[0], carry)
	}
}

func TestAddressIdentityPreserved(t *testing.T) {
	fn, inst := buildCase(heapCase{bound: 0x10000, accessSize: 4, offsetTy: ir.TypeI32})
	addrBefore := fn.FirstResult(inst)

	graph := flowgraph.New()
	graph.Compute(fn)
	ExpandHeapAddr(inst, fn, graph, testConfig())

	addrAfter := fn.FirstResult(inst)
	if addrAfter != addrBefore {
		t.Fatalf("result value renumbered: %s -> %s", addrBefore, addrAfter)
	}
	d := fn.Inst(inst)
	if d.Op != ir.OpIadd {
		t.Fatalf("final operation is %s, want iadd", d.Op)
	}

	// base + zero-extended offset, in that order.
	base, ext := d.Args[0], d.Args[1]
	baseDef := fn.Inst(fn.ValueDef(base))
	if baseDef.Op != ir.OpGlobalValue || baseDef.GV != fn.Heaps[0].Base {
		t.Errorf("first operand resolves %s, want the heap base", baseDef.Op)
	}
	extDef := fn.Inst(fn.ValueDef(ext))
	if extDef.Op != ir.OpUextend || extDef.Typ != ir.TypeI64 {
		t.Errorf("second operand is %s.%s, want uextend.i64", extDef.Op, extDef.Typ)
	}
}

func TestNoExtensionForPointerWideOffsets(t *testing.T) {
	fn, inst, _ := expand(t, heapCase{bound: 0x10000, accessSize: 4, offsetTy: ir.TypeI64})

	if strings.Contains(fn.String(), "uextend") {
		t.Errorf("i64 offset must not be extended, got:\n%s", fn.String())
	}
	d := fn.Inst(inst)
	if d.Op != ir.OpIadd || d.Args[1] != fn.BlockParams(fn.Blocks()[0])[0] {
		t.Errorf("address must add the raw offset, got %s of %v", d.Op, d.Args)
	}
}

func TestExpandWantsHeapAddr(t *testing.T) {
	fn, inst := buildCase(heapCase{bound: 0x10000, accessSize: 4, offsetTy: ir.TypeI32})
	blk := fn.InstBlock(inst)
	ret := fn.BlockInsts(blk)[1]

	defer func() {
		if recover() == nil {
			t.Fatal("expanding a return instruction did not panic")
		}
	}()
	graph := flowgraph.New()
	graph.Compute(fn)
	ExpandHeapAddr(ret, fn, graph, testConfig())
}
