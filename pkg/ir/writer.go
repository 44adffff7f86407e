package ir

import (
	"fmt"
	"strings"
)

// String renders the function in its canonical textual form: a preamble
// of global-value and heap declarations, then each block in layout order.
func (f *Function) String() string {
	var sb strings.Builder

	var params []string
	if len(f.order) > 0 {
		for _, v := range f.blocks[f.order[0]].params {
			params = append(params, f.ValueType(v).String())
		}
	}
	fmt.Fprintf(&sb, "function %%%s(%s) {\n", f.Name, strings.Join(params, ", "))

	for gv, d := range f.GlobalValues {
		fmt.Fprintf(&sb, "    %s = %s\n", GlobalValue(gv), d)
	}
	for h, d := range f.Heaps {
		fmt.Fprintf(&sb, "    %s = %s\n", Heap(h), d)
	}

	for _, b := range f.order {
		sb.WriteString("\n")
		sb.WriteString(f.formatBlockHeader(b))
		sb.WriteString(":\n")
		for _, i := range f.blocks[b].insts {
			fmt.Fprintf(&sb, "    %s\n", f.FormatInst(i))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func (f *Function) formatBlockHeader(b Block) string {
	if len(f.blocks[b].params) == 0 {
		return b.String()
	}
	var ps []string
	for _, v := range f.blocks[b].params {
		ps = append(ps, fmt.Sprintf("%s: %s", v, f.ValueType(v)))
	}
	return fmt.Sprintf("%s(%s)", b, strings.Join(ps, ", "))
}
