package expr

// Op is a unary or binary operator.
type Op int

const (
	OpInvalid Op = iota

	// unary
	OpNot
	OpNeg

	// comparison
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// arithmetic (OpAdd concatenates strings)
	OpAdd
	OpSub
	OpMul
	OpDiv

	// logical
	OpAnd
	OpOr
)

// String returns the operator token.
func (o Op) String() string {
	switch o {
	case OpNot:
		return "!"
	case OpNeg:
		return "-"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return "?"
	}
}

// IsComparison reports whether the operator yields a bool from two operands
// of the same type.
func (o Op) IsComparison() bool {
	switch o {
	default:
		return false
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
}

// IsArithmetic reports whether the operator is +, -, * or /.
func (o Op) IsArithmetic() bool {
	switch o {
	default:
		return false
	case OpAdd, OpSub, OpMul, OpDiv:
		return true
	}
}

// IsLogical reports whether the operator is && or ||.
func (o Op) IsLogical() bool {
	return o == OpAnd || o == OpOr
}
