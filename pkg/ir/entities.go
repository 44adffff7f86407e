package ir

import "fmt"

// Entity handles. Everything a Function owns lives in index-addressed
// tables; a handle is a stable index into one of them.

type Value uint32
type Inst uint32
type Block uint32
type GlobalValue uint32
type Heap uint32

const (
	NoValue Value = ^Value(0)
	NoInst  Inst  = ^Inst(0)
	NoBlock Block = ^Block(0)
)

func (v Value) String() string        { return fmt.Sprintf("v%d", uint32(v)) }
func (i Inst) String() string         { return fmt.Sprintf("inst%d", uint32(i)) }
func (b Block) String() string        { return fmt.Sprintf("block%d", uint32(b)) }
func (gv GlobalValue) String() string { return fmt.Sprintf("gv%d", uint32(gv)) }
func (h Heap) String() string         { return fmt.Sprintf("heap%d", uint32(h)) }
