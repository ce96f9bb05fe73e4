// Package bytecode defines the linear instruction stream the Rayvn
// compiler emits and the VM consumes: a discriminated OpCode with an
// optional operand, and the Chunk that packages an instruction stream
// together with the function table the compiler built for it.
package bytecode

// OpCode is one bytecode operation, one opcode per row, nothing added
// or renamed beyond what the VM actually dispatches on.
type OpCode int

const (
	PushConst OpCode = iota
	Pop

	LoadVar
	StoreVar

	Add
	Sub
	Mul
	Div
	Neg

	Eq
	Neq
	Gt
	Gte
	Lt
	Lte

	Not
	And
	Or

	Jump
	JumpIfFalse
	JumpIfTrue

	Call
	Return

	IterInit
	IterNext
	IterEnd

	BuildArray
	BuildRange
	IndexGet
	IndexSet

	Print

	Halt
)

var names = map[OpCode]string{
	PushConst:   "PUSH_CONST",
	Pop:         "POP",
	LoadVar:     "LOAD_VAR",
	StoreVar:    "STORE_VAR",
	Add:         "ADD",
	Sub:         "SUB",
	Mul:         "MUL",
	Div:         "DIV",
	Neg:         "NEG",
	Eq:          "EQ",
	Neq:         "NEQ",
	Gt:          "GT",
	Gte:         "GTE",
	Lt:          "LT",
	Lte:         "LTE",
	Not:         "NOT",
	And:         "AND",
	Or:          "OR",
	Jump:        "JUMP",
	JumpIfFalse: "JUMP_IF_FALSE",
	JumpIfTrue:  "JUMP_IF_TRUE",
	Call:        "CALL",
	Return:      "RETURN",
	IterInit:    "ITER_INIT",
	IterNext:    "ITER_NEXT",
	IterEnd:     "ITER_END",
	BuildArray:  "BUILD_ARRAY",
	BuildRange:  "BUILD_RANGE",
	IndexGet:    "INDEX_GET",
	IndexSet:    "INDEX_SET",
	Print:       "PRINT",
	Halt:        "HALT",
}

func (op OpCode) String() string {
	if n, ok := names[op]; ok {
		return n
	}
	return "UNKNOWN"
}
