package ir

// Cursor is an insertion point inside a function: a block plus an index
// into its instruction list. Ins() inserts before the point, so a cursor
// parked at an instruction keeps pointing at it while code is emitted in
// front of it.
type Cursor struct {
	F   *Function
	blk Block
	idx int
}

func NewCursor(f *Function) *Cursor { return &Cursor{F: f, blk: NoBlock} }

// AtInst positions the cursor at an existing instruction.
func (c *Cursor) AtInst(i Inst) *Cursor {
	c.blk, c.idx = c.F.instPos(i)
	return c
}

// AtBottom positions the cursor after the last instruction of b.
func (c *Cursor) AtBottom(b Block) *Cursor {
	c.blk, c.idx = b, len(c.F.blocks[b].insts)
	return c
}

// CurrentBlock returns the block the cursor is in, if any.
func (c *Cursor) CurrentBlock() (Block, bool) {
	if c.blk == NoBlock {
		return NoBlock, false
	}
	return c.blk, true
}

// Ins returns a builder that inserts new instructions at the cursor.
func (c *Cursor) Ins() InsBuilder { return InsBuilder{c} }

type InsBuilder struct{ c *Cursor }

func (b InsBuilder) insert(d instData) Inst {
	c := b.c
	if c.blk == NoBlock {
		panic("cursor is not in a block")
	}
	i := c.F.insertInst(c.blk, c.idx, d)
	c.idx++
	return i
}

func (b InsBuilder) Iconst(typ Type, imm int64) Value {
	i := b.insert(instData{op: OpIconst, typ: typ, imm: imm})
	return b.c.F.FirstResult(i)
}

func (b InsBuilder) Iadd(x, y Value) Value {
	i := b.insert(instData{op: OpIadd, args: [2]Value{x, y}, nargs: 2})
	return b.c.F.FirstResult(i)
}

func (b InsBuilder) IaddImm(x Value, imm int64) Value {
	i := b.insert(instData{op: OpIaddImm, args: [2]Value{x}, nargs: 1, imm: imm})
	return b.c.F.FirstResult(i)
}

// IaddCout adds two values and also returns the carry-out bit, so the
// caller can detect unsigned overflow of the sum.
func (b InsBuilder) IaddCout(x, y Value) (Value, Value) {
	i := b.insert(instData{op: OpIaddCout, args: [2]Value{x, y}, nargs: 2})
	rs := b.c.F.InstResults(i)
	return rs[0], rs[1]
}

func (b InsBuilder) Icmp(cond IntCC, x, y Value) Value {
	i := b.insert(instData{op: OpIcmp, cond: cond, args: [2]Value{x, y}, nargs: 2})
	return b.c.F.FirstResult(i)
}

func (b InsBuilder) IcmpImm(cond IntCC, x Value, imm int64) Value {
	i := b.insert(instData{op: OpIcmpImm, cond: cond, args: [2]Value{x}, nargs: 1, imm: imm})
	return b.c.F.FirstResult(i)
}

func (b InsBuilder) Uextend(typ Type, x Value) Value {
	i := b.insert(instData{op: OpUextend, typ: typ, args: [2]Value{x}, nargs: 1})
	return b.c.F.FirstResult(i)
}

func (b InsBuilder) GlobalValue(typ Type, gv GlobalValue) Value {
	i := b.insert(instData{op: OpGlobalValue, typ: typ, gv: gv})
	return b.c.F.FirstResult(i)
}

func (b InsBuilder) HeapAddr(typ Type, heap Heap, offset Value, accessSize uint32) Value {
	i := b.insert(instData{op: OpHeapAddr, typ: typ, heap: heap, args: [2]Value{offset}, nargs: 1, imm: int64(accessSize)})
	return b.c.F.FirstResult(i)
}

func (b InsBuilder) Trap(code TrapCode) {
	b.insert(instData{op: OpTrap, trap: code})
}

func (b InsBuilder) Trapnz(c Value, code TrapCode) {
	b.insert(instData{op: OpTrapnz, trap: code, args: [2]Value{c}, nargs: 1})
}

func (b InsBuilder) Jump(dest Block) {
	b.insert(instData{op: OpJump, dest: dest})
}

func (b InsBuilder) Brnz(c Value, dest Block) {
	b.insert(instData{op: OpBrnz, dest: dest, args: [2]Value{c}, nargs: 1})
}

func (b InsBuilder) Return() {
	b.insert(instData{op: OpReturn})
}

// Replace returns a builder that rewrites an existing instruction in
// place, preserving the identity of its first result value. Every use of
// that value observes the new definition without renumbering.
func (f *Function) Replace(i Inst) ReplaceBuilder { return ReplaceBuilder{f, i} }

type ReplaceBuilder struct {
	f *Function
	i Inst
}

func (b ReplaceBuilder) Iconst(typ Type, imm int64) Value {
	return b.f.replaceInst(b.i, instData{op: OpIconst, typ: typ, imm: imm})
}

func (b ReplaceBuilder) Iadd(x, y Value) Value {
	return b.f.replaceInst(b.i, instData{op: OpIadd, args: [2]Value{x, y}, nargs: 2})
}
