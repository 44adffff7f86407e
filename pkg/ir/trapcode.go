package ir

// TrapCode tags a trap instruction with its cause. The code is carried
// through to the generated program and interpreted by its embedder; it
// is not a compiler error of any kind.
type TrapCode uint8

const (
	TrapHeapOutOfBounds TrapCode = iota
	TrapIntegerOverflow
	TrapUnreachable
	TrapUser
)

func (tc TrapCode) String() string {
	switch tc {
	case TrapHeapOutOfBounds:
		return "heap_oob"
	case TrapIntegerOverflow:
		return "int_ovf"
	case TrapUnreachable:
		return "unreachable"
	case TrapUser:
		return "user"
	}
	return "??"
}
