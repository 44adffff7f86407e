package ir

import "fmt"

type valueData struct {
	typ Type
	def Inst  // defining instruction, NoInst for block params
	num uint8 // result index within def
	blk Block // owning block for params
}

type blockData struct {
	params []Value
	insts  []Inst
}

// Function owns every IR entity through index-addressed tables. Handles
// handed out to callers stay valid across in-place rewrites; only the
// record behind them changes.
type Function struct {
	Name         string
	GlobalValues []GlobalValueData
	Heaps        []HeapData

	blocks  []blockData
	order   []Block // layout order of placed blocks
	insts   []instData
	results [][]Value // per-instruction result values
	values  []valueData
	instBlk []Block // owning block per instruction
}

func NewFunction(name string) *Function { return &Function{Name: name} }

func (f *Function) CreateGlobalValue(d GlobalValueData) GlobalValue {
	f.GlobalValues = append(f.GlobalValues, d)
	return GlobalValue(len(f.GlobalValues) - 1)
}

func (f *Function) CreateHeap(d HeapData) Heap {
	f.Heaps = append(f.Heaps, d)
	return Heap(len(f.Heaps) - 1)
}

// MakeBlock creates a new, unplaced block. Use AppendBlock or a split to
// place it in the layout.
func (f *Function) MakeBlock() Block {
	f.blocks = append(f.blocks, blockData{})
	return Block(len(f.blocks) - 1)
}

func (f *Function) AppendBlock(b Block) { f.order = append(f.order, b) }

// insertBlockAfter places b in the layout directly after pos.
func (f *Function) insertBlockAfter(b, pos Block) {
	for i, ob := range f.order {
		if ob == pos {
			f.order = append(f.order, NoBlock)
			copy(f.order[i+2:], f.order[i+1:])
			f.order[i+1] = b
			return
		}
	}
	panic(fmt.Sprintf("%s is not in the layout", pos))
}

// Blocks returns the blocks in layout order.
func (f *Function) Blocks() []Block { return f.order }

func (f *Function) AppendBlockParam(b Block, typ Type) Value {
	v := f.makeValue(valueData{typ: typ, def: NoInst, blk: b})
	f.blocks[b].params = append(f.blocks[b].params, v)
	return v
}

func (f *Function) BlockParams(b Block) []Value { return f.blocks[b].params }
func (f *Function) BlockInsts(b Block) []Inst   { return f.blocks[b].insts }

func (f *Function) makeValue(d valueData) Value {
	f.values = append(f.values, d)
	return Value(len(f.values) - 1)
}

func (f *Function) ValueType(v Value) Type { return f.values[v].typ }

// ValueDef returns the instruction defining v, or NoInst for block params.
func (f *Function) ValueDef(v Value) Inst { return f.values[v].def }

// Inst returns a read-only view of the instruction's stored operation.
func (f *Function) Inst(i Inst) Instruction {
	d := &f.insts[i]
	return Instruction{
		Op:   d.op,
		Typ:  d.typ,
		Args: append([]Value(nil), d.args[:d.nargs]...),
		Imm:  d.imm,
		Cond: d.cond,
		Trap: d.trap,
		GV:   d.gv,
		Heap: d.heap,
		Dest: d.dest,
	}
}

func (f *Function) InstResults(i Inst) []Value { return f.results[i] }

// FirstResult returns the instruction's first result value.
func (f *Function) FirstResult(i Inst) Value {
	rs := f.results[i]
	if len(rs) == 0 {
		panic(fmt.Sprintf("%s has no results", i))
	}
	return rs[0]
}

// InstBlock returns the block an instruction currently lives in.
func (f *Function) InstBlock(i Inst) Block { return f.instBlk[i] }

// insertInst creates a new instruction and places it in block b before
// position idx, creating its result values.
func (f *Function) insertInst(b Block, idx int, d instData) Inst {
	i := Inst(len(f.insts))
	f.insts = append(f.insts, d)
	f.instBlk = append(f.instBlk, b)

	n := d.numResults()
	rs := make([]Value, n)
	for k := 0; k < n; k++ {
		rs[k] = f.makeValue(valueData{typ: f.insts[i].resultType(f, k), def: i, num: uint8(k)})
	}
	f.results = append(f.results, rs)

	blk := &f.blocks[b]
	blk.insts = append(blk.insts, NoInst)
	copy(blk.insts[idx+1:], blk.insts[idx:])
	blk.insts[idx] = i
	return i
}

// instPos locates an instruction within its block's instruction list.
func (f *Function) instPos(i Inst) (Block, int) {
	b := f.instBlk[i]
	for idx, bi := range f.blocks[b].insts {
		if bi == i {
			return b, idx
		}
	}
	panic(fmt.Sprintf("%s is not placed in %s", i, b))
}

// replaceInst overwrites the stored operation behind an existing handle.
// The first result value keeps its identity; its type is updated to the
// new operation's result type. The new operation must define at least as
// few results as the old one had.
func (f *Function) replaceInst(i Inst, d instData) Value {
	n := d.numResults()
	if n == 0 || n > len(f.results[i]) {
		panic(fmt.Sprintf("cannot replace %s: result arity mismatch", i))
	}
	f.insts[i] = d
	f.results[i] = f.results[i][:n]
	for k, v := range f.results[i] {
		f.values[v].typ = f.insts[i].resultType(f, k)
		f.values[v].def = i
		f.values[v].num = uint8(k)
	}
	return f.results[i][0]
}

// SplitBlockBefore moves i and every later instruction of its block into
// a fresh block placed directly after it in the layout, and returns the
// new block. Used when a newly inserted terminator strands the remainder
// of a block.
func (f *Function) SplitBlockBefore(i Inst) Block {
	b, idx := f.instPos(i)
	nb := f.MakeBlock()
	f.insertBlockAfter(nb, b)

	tail := f.blocks[b].insts[idx:]
	moved := append([]Inst(nil), tail...)
	f.blocks[b].insts = f.blocks[b].insts[:idx]
	f.blocks[nb].insts = moved
	for _, mi := range moved {
		f.instBlk[mi] = nb
	}
	return nb
}
