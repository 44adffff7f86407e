package ir

type Type uint8

const (
	TypeInvalid Type = iota
	TypeB1           // boolean (comparison and carry results)
	TypeI8
	TypeI16
	TypeI32
	TypeI64
)

func (t Type) String() string {
	switch t {
	case TypeB1:
		return "b1"
	case TypeI8:
		return "i8"
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	}
	return "invalid"
}

func (t Type) Bits() int {
	switch t {
	case TypeB1:
		return 1
	case TypeI8:
		return 8
	case TypeI16:
		return 16
	case TypeI32:
		return 32
	case TypeI64:
		return 64
	}
	return 0
}

func (t Type) Bytes() int { return (t.Bits() + 7) / 8 }
