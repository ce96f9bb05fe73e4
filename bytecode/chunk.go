package bytecode

import (
	"fmt"

	"github.com/Ravyn-Coding-Language/Rayvn/value"
)

// Instruction is one (OpCode, Operand) pair. Operand reuses the
// value.Value union: Int carries jump targets and BUILD_ARRAY
// element counts; the PUSH_CONST operand is the literal
// itself; Str carries a LOAD_VAR/STORE_VAR variable name; FnRef
// carries a CALL target. Instructions with no operand leave it nil.
type Instruction struct {
	Op      OpCode
	Operand value.Value
}

// Chunk is everything the VM needs to run a compiled program: the
// instruction stream (indices are stable and are the unit jump
// targets address) and the function table built
// during compilation.
type Chunk struct {
	Instructions []Instruction
	Functions    map[string]value.FnRef
}

// Int reads an integer operand, panicking if the instruction wasn't
// emitted with one — a compiler bug, not a runtime-recoverable fault.
func (ins Instruction) Int() int {
	v, ok := ins.Operand.(value.Int)
	if !ok {
		panic(fmt.Sprintf("%s: operand is not an int: %#v", ins.Op, ins.Operand))
	}
	return int(v.Val)
}

// Name reads a variable-name operand.
func (ins Instruction) Name() string {
	v, ok := ins.Operand.(value.Str)
	if !ok {
		panic(fmt.Sprintf("%s: operand is not a name: %#v", ins.Op, ins.Operand))
	}
	return v.Val
}

// FnRef reads a function-handle operand.
func (ins Instruction) FnRef() value.FnRef {
	v, ok := ins.Operand.(value.FnRef)
	if !ok {
		panic(fmt.Sprintf("%s: operand is not a function reference: %#v", ins.Op, ins.Operand))
	}
	return v
}
