package ir

import (
	"fmt"
	"strings"
)

type Opcode uint8

const (
	OpInvalid Opcode = iota
	OpIconst
	OpIadd
	OpIaddImm
	OpIaddCout
	OpIcmp
	OpIcmpImm
	OpUextend
	OpGlobalValue
	OpHeapAddr
	OpTrap
	OpTrapnz
	OpJump
	OpBrnz
	OpReturn
)

var opcodeNames = [...]string{
	OpInvalid:     "invalid",
	OpIconst:      "iconst",
	OpIadd:        "iadd",
	OpIaddImm:     "iadd_imm",
	OpIaddCout:    "iadd_cout",
	OpIcmp:        "icmp",
	OpIcmpImm:     "icmp_imm",
	OpUextend:     "uextend",
	OpGlobalValue: "global_value",
	OpHeapAddr:    "heap_addr",
	OpTrap:        "trap",
	OpTrapnz:      "trapnz",
	OpJump:        "jump",
	OpBrnz:        "brnz",
	OpReturn:      "return",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "??"
}

// IsTerminator reports whether the opcode ends its block. A conditional
// trap is not a terminator; an unconditional one is.
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpTrap, OpJump, OpReturn:
		return true
	}
	return false
}

// IsBranch reports whether the opcode transfers control to another block.
func (op Opcode) IsBranch() bool {
	switch op {
	case OpJump, OpBrnz:
		return true
	}
	return false
}

// instData is the stored form of one instruction. Replacing an
// instruction overwrites this record at a fixed index; handles held
// elsewhere stay valid.
type instData struct {
	op    Opcode
	typ   Type // controlling/result type
	args  [2]Value
	nargs uint8
	imm   int64
	cond  IntCC
	trap  TrapCode
	gv    GlobalValue
	heap  Heap
	dest  Block
}

// Instruction is a read-only view of one instruction, for callers that
// need to inspect operands (the legalizer, the flow graph, tests).
type Instruction struct {
	Op   Opcode
	Typ  Type
	Args []Value
	Imm  int64
	Cond IntCC
	Trap TrapCode
	GV   GlobalValue
	Heap Heap
	Dest Block
}

// numResults returns how many result values the instruction defines.
func (d *instData) numResults() int {
	switch d.op {
	case OpTrap, OpTrapnz, OpJump, OpBrnz, OpReturn:
		return 0
	case OpIaddCout:
		return 2
	}
	return 1
}

// resultType returns the type of the n'th result.
func (d *instData) resultType(f *Function, n int) Type {
	switch d.op {
	case OpIcmp, OpIcmpImm:
		return TypeB1
	case OpIaddCout:
		if n == 1 {
			return TypeB1
		}
		return f.ValueType(d.args[0])
	case OpIadd:
		return f.ValueType(d.args[0])
	case OpIaddImm:
		return f.ValueType(d.args[0])
	}
	return d.typ
}

// FormatInst renders one instruction in the canonical textual form.
func (f *Function) FormatInst(i Inst) string {
	d := &f.insts[i]
	var sb strings.Builder

	if rs := f.results[i]; len(rs) > 0 {
		names := make([]string, len(rs))
		for k, v := range rs {
			names[k] = v.String()
		}
		fmt.Fprintf(&sb, "%s = ", strings.Join(names, ", "))
	}

	switch d.op {
	case OpIconst:
		fmt.Fprintf(&sb, "iconst.%s %d", d.typ, d.imm)
	case OpIadd:
		fmt.Fprintf(&sb, "iadd %s, %s", d.args[0], d.args[1])
	case OpIaddImm:
		fmt.Fprintf(&sb, "iadd_imm %s, %d", d.args[0], d.imm)
	case OpIaddCout:
		fmt.Fprintf(&sb, "iadd_cout %s, %s", d.args[0], d.args[1])
	case OpIcmp:
		fmt.Fprintf(&sb, "icmp %s %s, %s", d.cond, d.args[0], d.args[1])
	case OpIcmpImm:
		fmt.Fprintf(&sb, "icmp_imm %s %s, %d", d.cond, d.args[0], d.imm)
	case OpUextend:
		fmt.Fprintf(&sb, "uextend.%s %s", d.typ, d.args[0])
	case OpGlobalValue:
		fmt.Fprintf(&sb, "global_value.%s %s", d.typ, d.gv)
	case OpHeapAddr:
		fmt.Fprintf(&sb, "heap_addr.%s %s, %s, %d", d.typ, d.heap, d.args[0], d.imm)
	case OpTrap:
		fmt.Fprintf(&sb, "trap %s", d.trap)
	case OpTrapnz:
		fmt.Fprintf(&sb, "trapnz %s, %s", d.args[0], d.trap)
	case OpJump:
		fmt.Fprintf(&sb, "jump %s", d.dest)
	case OpBrnz:
		fmt.Fprintf(&sb, "brnz %s, %s", d.args[0], d.dest)
	case OpReturn:
		sb.WriteString("return")
	default:
		sb.WriteString("??")
	}
	return sb.String()
}
