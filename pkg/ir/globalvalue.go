package ir

import (
	"fmt"
	"strings"
)

// TargetIsa is the slice of the target description this package needs:
// the width of a pointer on the machine being compiled for.
type TargetIsa interface {
	PointerType() Type
}

type GlobalValueKind uint8

const (
	// GVVMContext is the address of the embedder-provided VM context struct.
	GVVMContext GlobalValueKind = iota
	// GVLoad is a value read from memory at Base + Offset. Base must hold
	// a pointer; the address must be accessible and naturally aligned.
	GVLoad
	// GVIAddImm is a constant offset added to another global value.
	GVIAddImm
	// GVSymbol is a name resolved to an actual value later, e.g. by
	// linking. The compiler does not interpret the name itself.
	GVSymbol
)

// GlobalValueData describes how a function-scoped address-like value is
// computed. One record per GlobalValue handle, stored on the Function.
type GlobalValueData struct {
	Kind   GlobalValueKind
	Base   GlobalValue // GVLoad, GVIAddImm
	Offset int64       // byte offset (GVLoad, GVIAddImm, GVSymbol)
	Typ    Type        // GVLoad, GVIAddImm; VMContext/Symbol are pointer-typed
	Name   string      // GVSymbol
	// Colocated means the symbol is guaranteed to be defined a fixed,
	// near distance away after linking, so references can skip the GOT.
	Colocated bool
}

func VMContextData() GlobalValueData { return GlobalValueData{Kind: GVVMContext} }

func LoadData(base GlobalValue, offset int64, typ Type) GlobalValueData {
	return GlobalValueData{Kind: GVLoad, Base: base, Offset: offset, Typ: typ}
}

func IAddImmData(base GlobalValue, offset int64, typ Type) GlobalValueData {
	return GlobalValueData{Kind: GVIAddImm, Base: base, Offset: offset, Typ: typ}
}

func SymbolData(name string, offset int64, colocated bool) GlobalValueData {
	return GlobalValueData{Kind: GVSymbol, Name: name, Offset: offset, Colocated: colocated}
}

// SymbolName assumes the data is a GVSymbol and returns its name.
// Calling it on any other kind is a bug in the caller.
func (d *GlobalValueData) SymbolName() string {
	if d.Kind != GVSymbol {
		panic("only symbols have names")
	}
	return d.Name
}

// GlobalType returns the type of the computed value. VM context pointers
// and symbols are always pointer-sized on the target.
func (d *GlobalValueData) GlobalType(isa TargetIsa) Type {
	switch d.Kind {
	case GVVMContext, GVSymbol:
		return isa.PointerType()
	default:
		return d.Typ
	}
}

func (d GlobalValueData) String() string {
	switch d.Kind {
	case GVVMContext:
		return "vmctx"
	case GVLoad:
		return fmt.Sprintf("load.%s notrap aligned %s%s", d.Typ, d.Base, offsetSuffix(d.Offset))
	case GVIAddImm:
		return fmt.Sprintf("iadd_imm.%s %s, %d", d.Typ, d.Base, d.Offset)
	case GVSymbol:
		var sb strings.Builder
		if d.Colocated {
			sb.WriteString("colocated ")
		}
		fmt.Fprintf(&sb, "symbol %s", d.Name)
		if d.Offset > 0 {
			sb.WriteString("+")
		}
		if d.Offset != 0 {
			fmt.Fprintf(&sb, "%d", d.Offset)
		}
		return sb.String()
	}
	return "??"
}

// offsetSuffix renders a signed byte offset the way the textual IR wants
// it: elided when zero, explicitly signed otherwise.
func offsetSuffix(off int64) string {
	if off == 0 {
		return ""
	}
	if off > 0 {
		return fmt.Sprintf("+%d", off)
	}
	return fmt.Sprintf("%d", off)
}
