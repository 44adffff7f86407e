package ir

import "fmt"

type HeapStyleKind uint8

const (
	// HeapDynamic heaps have a bound that is only known at the target
	// program's runtime, loaded through a global value.
	HeapDynamic HeapStyleKind = iota
	// HeapStatic heaps have a bound fixed at compile time.
	HeapStatic
)

type HeapStyle struct {
	Kind    HeapStyleKind
	BoundGV GlobalValue // HeapDynamic
	Bound   uint64      // HeapStatic
}

func DynamicStyle(boundGV GlobalValue) HeapStyle {
	return HeapStyle{Kind: HeapDynamic, BoundGV: boundGV}
}

func StaticStyle(bound uint64) HeapStyle {
	return HeapStyle{Kind: HeapStatic, Bound: bound}
}

// HeapData declares one linear heap. MinSize must be a sound lower bound
// on the heap's actual size at every point the bound may be observed;
// the dynamic expansion derives underflow-free checks from it.
type HeapData struct {
	Style   HeapStyle
	Base    GlobalValue
	MinSize uint64
}

func (h HeapData) String() string {
	switch h.Style.Kind {
	case HeapDynamic:
		return fmt.Sprintf("dynamic %s, min %d, bound %s", h.Base, h.MinSize, h.Style.BoundGV)
	case HeapStatic:
		return fmt.Sprintf("static %s, min %d, bound %d", h.Base, h.MinSize, h.Style.Bound)
	}
	return "??"
}
