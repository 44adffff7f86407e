package ir

// IntCC is an integer comparison condition. The unsigned orderings are
// the ones the legalizer cares about; heap offsets are never signed.
type IntCC uint8

const (
	CCEq IntCC = iota
	CCNe
	CCSlt
	CCSle
	CCSgt
	CCSge
	CCUlt
	CCUle
	CCUgt
	CCUge
)

func (cc IntCC) String() string {
	switch cc {
	case CCEq:
		return "eq"
	case CCNe:
		return "ne"
	case CCSlt:
		return "slt"
	case CCSle:
		return "sle"
	case CCSgt:
		return "sgt"
	case CCSge:
		return "sge"
	case CCUlt:
		return "ult"
	case CCUle:
		return "ule"
	case CCUgt:
		return "ugt"
	case CCUge:
		return "uge"
	}
	return "??"
}
