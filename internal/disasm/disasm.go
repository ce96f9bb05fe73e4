// Package disasm renders a compiled bytecode.Chunk as a human-readable
// listing: one row per instruction, offset first, operand rendered
// for humans rather than the raw encoded form.
package disasm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Ravyn-Coding-Language/Rayvn/bytecode"
)

// Format renders chunk as a full disassembly listing: the function
// table followed by the flat instruction stream, jump targets
// annotated with the instruction they land on.
func Format(chunk *bytecode.Chunk) string {
	var b strings.Builder

	fmt.Fprintln(&b, "FUNCTIONS:")
	fmt.Fprintln(&b, strings.Repeat("-", 40))
	names := make([]string, 0, len(chunk.Functions))
	for name := range chunk.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fn := chunk.Functions[name]
		fmt.Fprintf(&b, "  %-20s entry=%04d params=%v\n", fn.Name, fn.Entry, fn.Params)
	}

	fmt.Fprintln(&b, "\nINSTRUCTIONS:")
	fmt.Fprintln(&b, strings.Repeat("-", 40))
	for i, ins := range chunk.Instructions {
		operand := ""
		if ins.Operand != nil {
			operand = ins.Operand.String()
		}
		comment := jumpComment(ins.Op, operand)
		line := fmt.Sprintf("  %04d: %-16s", i, ins.Op.String())
		if operand != "" {
			line += fmt.Sprintf(" %-10s", operand)
		} else {
			line += strings.Repeat(" ", 11)
		}
		if comment != "" {
			line += comment
		}
		fmt.Fprintln(&b, line)
	}

	return b.String()
}

func jumpComment(op bytecode.OpCode, operand string) string {
	switch op {
	case bytecode.Jump, bytecode.JumpIfFalse, bytecode.JumpIfTrue:
		return "-> " + operand
	default:
		return ""
	}
}
