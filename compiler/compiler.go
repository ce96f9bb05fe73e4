// Package compiler walks a Rayvn ast.Program and emits a bytecode.Chunk:
// a linear instruction stream with jump targets resolved to concrete
// instruction indices, and a function table mapping names to FnRefs.
//
// The compiler never executes anything, it only emits. Its mutable
// state is the growing instruction list, a stack of active-loop fixup
// records for break/continue patching, and the function table (with
// the counter that numbers its entries).
package compiler

import (
	"fmt"

	"github.com/Ravyn-Coding-Language/Rayvn/ast"
	"github.com/Ravyn-Coding-Language/Rayvn/bytecode"
	"github.com/Ravyn-Coding-Language/Rayvn/value"
)

// CompileError reports a fatal compile-time failure: an unknown AST
// node, or break/continue used outside a loop, or a call to a
// function not yet defined (forward references are rejected at
// compile time).
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string { return "compile error: " + e.Message }

// loopFixup is a compile-time-only record tracking the patch sites a
// nested break/continue needs resolved once the loop's bounds are
// known. It is never part of the emitted program.
type loopFixup struct {
	start     int
	breaks    []int
	continues []int
}

// Compiler holds the mutable state used while emitting one program.
type Compiler struct {
	instructions []bytecode.Instruction
	functions    map[string]value.FnRef
	loops        []*loopFixup
	nextFnID     int
}

// New creates an empty Compiler.
func New() *Compiler {
	return &Compiler{functions: make(map[string]value.FnRef)}
}

// Compile compiles a parsed program into a bytecode.Chunk in one shot.
func Compile(prog *ast.Program) (*bytecode.Chunk, error) {
	c := New()
	if err := c.compileProgram(prog); err != nil {
		return nil, err
	}
	return &bytecode.Chunk{Instructions: c.instructions, Functions: c.functions}, nil
}

// emit appends one instruction and returns its index, usable later as
// a jump patch site.
func (c *Compiler) emit(op bytecode.OpCode, operand value.Value) int {
	c.instructions = append(c.instructions, bytecode.Instruction{Op: op, Operand: operand})
	return len(c.instructions) - 1
}

// patch rewrites the operand of a previously emitted instruction
// without moving it, used once a jump's true target is known.
func (c *Compiler) patch(site int, target int) {
	c.instructions[site].Operand = value.Int{Val: int64(target)}
}

func (c *Compiler) here() int { return len(c.instructions) }

func (c *Compiler) compileProgram(prog *ast.Program) error {
	for _, stmt := range prog.Statements {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	c.emit(bytecode.Halt, nil)
	return nil
}

func (c *Compiler) compileStmt(stmt ast.Stmt) error {
	switch n := stmt.(type) {
	case ast.LetStmt:
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
		c.emit(bytecode.StoreVar, value.Str{Val: n.Name})
		return nil

	case ast.AssignStmt:
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
		c.emit(bytecode.StoreVar, value.Str{Val: n.Name})
		return nil

	case ast.PrintStmt:
		if err := c.compileExpr(n.Expr); err != nil {
			return err
		}
		c.emit(bytecode.Print, nil)
		return nil

	case ast.ExprStmt:
		if err := c.compileExpr(n.Expr); err != nil {
			return err
		}
		c.emit(bytecode.Pop, nil)
		return nil

	case ast.IfChain:
		return c.compileIfChain(n)

	case ast.WhileStmt:
		return c.compileWhile(n)

	case ast.ForInLoop:
		return c.compileForIn(n)

	case ast.FunctionDef:
		return c.compileFunctionDef(n)

	case ast.ReturnStmt:
		if n.Value != nil {
			if err := c.compileExpr(n.Value); err != nil {
				return err
			}
		} else {
			c.emit(bytecode.PushConst, value.Nil{})
		}
		c.emit(bytecode.Return, nil)
		return nil

	case ast.BreakStmt:
		if len(c.loops) == 0 {
			return &CompileError{Message: "'break' outside loop"}
		}
		site := c.emit(bytecode.Jump, nil)
		top := c.loops[len(c.loops)-1]
		top.breaks = append(top.breaks, site)
		return nil

	case ast.ContinueStmt:
		if len(c.loops) == 0 {
			return &CompileError{Message: "'continue' outside loop"}
		}
		site := c.emit(bytecode.Jump, nil)
		top := c.loops[len(c.loops)-1]
		top.continues = append(top.continues, site)
		return nil

	case ast.IndexAssign:
		if err := c.compileExpr(n.Array); err != nil {
			return err
		}
		if err := c.compileExpr(n.Index); err != nil {
			return err
		}
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
		c.emit(bytecode.IndexSet, nil)
		return nil

	default:
		return &CompileError{Message: fmt.Sprintf("unknown statement node: %T", stmt)}
	}
}

func (c *Compiler) compileIfChain(n ast.IfChain) error {
	var endJumps []int

	for _, branch := range n.Branches {
		if err := c.compileExpr(branch.Cond); err != nil {
			return err
		}
		falseJump := c.emit(bytecode.JumpIfFalse, nil)

		for _, s := range branch.Body {
			if err := c.compileStmt(s); err != nil {
				return err
			}
		}

		endJumps = append(endJumps, c.emit(bytecode.Jump, nil))
		c.patch(falseJump, c.here())
	}

	for _, s := range n.Else {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}

	for _, j := range endJumps {
		c.patch(j, c.here())
	}
	return nil
}

func (c *Compiler) compileWhile(n ast.WhileStmt) error {
	start := c.here()

	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	exitJump := c.emit(bytecode.JumpIfFalse, nil)

	loop := &loopFixup{start: start}
	c.loops = append(c.loops, loop)

	for _, s := range n.Body {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}

	c.emit(bytecode.Jump, value.Int{Val: int64(start)})

	c.loops = c.loops[:len(c.loops)-1]
	end := c.here()

	c.patch(exitJump, end)
	for _, br := range loop.breaks {
		c.patch(br, end)
	}
	for _, ct := range loop.continues {
		c.patch(ct, start)
	}
	return nil
}

func (c *Compiler) compileForIn(n ast.ForInLoop) error {
	if err := c.compileExpr(n.Iterable); err != nil {
		return err
	}
	c.emit(bytecode.IterInit, nil)

	start := c.here()
	c.emit(bytecode.IterNext, nil)
	exitJump := c.emit(bytecode.JumpIfFalse, nil)
	c.emit(bytecode.StoreVar, value.Str{Val: n.Var})

	loop := &loopFixup{start: start}
	c.loops = append(c.loops, loop)

	for _, s := range n.Body {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}

	c.emit(bytecode.Jump, value.Int{Val: int64(start)})

	c.loops = c.loops[:len(c.loops)-1]
	end := c.here()

	c.patch(exitJump, end)
	for _, br := range loop.breaks {
		c.patch(br, end)
	}
	for _, ct := range loop.continues {
		c.patch(ct, start)
	}

	c.emit(bytecode.IterEnd, nil)
	return nil
}

func (c *Compiler) compileFunctionDef(n ast.FunctionDef) error {
	skipJump := c.emit(bytecode.Jump, nil)

	entry := c.here()
	id := c.nextFnID
	c.nextFnID++
	c.functions[n.Name] = value.FnRef{ID: id, Name: n.Name, Entry: entry, Params: n.Params}

	for _, s := range n.Body {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}

	c.emit(bytecode.PushConst, value.Nil{})
	c.emit(bytecode.Return, nil)

	c.patch(skipJump, c.here())
	return nil
}

func (c *Compiler) compileExpr(expr ast.Expr) error {
	switch n := expr.(type) {
	case ast.Number:
		c.emit(bytecode.PushConst, value.Int{Val: n.Value})
		return nil

	case ast.Boolean:
		c.emit(bytecode.PushConst, value.Bool{Val: n.Value})
		return nil

	case ast.String:
		c.emit(bytecode.PushConst, value.Str{Val: n.Value})
		return nil

	case ast.Var:
		c.emit(bytecode.LoadVar, value.Str{Val: n.Name})
		return nil

	case ast.Unary:
		if err := c.compileExpr(n.Expr); err != nil {
			return err
		}
		c.emit(bytecode.Neg, nil)
		return nil

	case ast.Not:
		if err := c.compileExpr(n.Expr); err != nil {
			return err
		}
		c.emit(bytecode.Not, nil)
		return nil

	case ast.Binary:
		if err := c.compileExpr(n.Left); err != nil {
			return err
		}
		if err := c.compileExpr(n.Right); err != nil {
			return err
		}
		op, err := binOpcode(n.Op)
		if err != nil {
			return err
		}
		c.emit(op, nil)
		return nil

	case ast.RangeExpr:
		if err := c.compileExpr(n.Start); err != nil {
			return err
		}
		if err := c.compileExpr(n.End); err != nil {
			return err
		}
		if n.Step != nil {
			if err := c.compileExpr(n.Step); err != nil {
				return err
			}
		} else {
			c.emit(bytecode.PushConst, value.Int{Val: 1})
		}
		c.emit(bytecode.BuildRange, nil)
		return nil

	case ast.CallExpr:
		for _, arg := range n.Args {
			if err := c.compileExpr(arg); err != nil {
				return err
			}
		}
		fn, ok := c.functions[n.Name]
		if !ok {
			return &CompileError{Message: fmt.Sprintf("call to undefined function %q (functions must be defined before use)", n.Name)}
		}
		c.emit(bytecode.Call, fn)
		return nil

	case ast.ArrayLiteral:
		for _, e := range n.Elements {
			if err := c.compileExpr(e); err != nil {
				return err
			}
		}
		c.emit(bytecode.BuildArray, value.Int{Val: int64(len(n.Elements))})
		return nil

	case ast.IndexExpr:
		if err := c.compileExpr(n.Array); err != nil {
			return err
		}
		if err := c.compileExpr(n.Index); err != nil {
			return err
		}
		c.emit(bytecode.IndexGet, nil)
		return nil

	default:
		return &CompileError{Message: fmt.Sprintf("unknown expression node: %T", expr)}
	}
}

// CompileStatements appends stmts to the running chunk without a
// trailing Halt, returning the instruction index the batch starts at.
// The REPL uses this to grow one chunk across many lines of input.
func (c *Compiler) CompileStatements(stmts []ast.Stmt) (start int, err error) {
	start = c.here()
	for _, s := range stmts {
		if err := c.compileStmt(s); err != nil {
			return start, err
		}
	}
	return start, nil
}

// CompileExpr appends a bare expression with no trailing Pop, so the
// VM's operand stack is left holding the value — the REPL's way of
// showing the result of an expression the user typed.
func (c *Compiler) CompileExpr(e ast.Expr) (start int, err error) {
	start = c.here()
	if err := c.compileExpr(e); err != nil {
		return start, err
	}
	return start, nil
}

// Snapshot returns a Chunk over everything compiled so far.
func (c *Compiler) Snapshot() *bytecode.Chunk {
	return &bytecode.Chunk{Instructions: c.instructions, Functions: c.functions}
}

func binOpcode(op ast.BinOp) (bytecode.OpCode, error) {
	switch op {
	case ast.OpAdd:
		return bytecode.Add, nil
	case ast.OpSub:
		return bytecode.Sub, nil
	case ast.OpMul:
		return bytecode.Mul, nil
	case ast.OpDiv:
		return bytecode.Div, nil
	case ast.OpGt:
		return bytecode.Gt, nil
	case ast.OpGte:
		return bytecode.Gte, nil
	case ast.OpLt:
		return bytecode.Lt, nil
	case ast.OpLte:
		return bytecode.Lte, nil
	case ast.OpEq:
		return bytecode.Eq, nil
	case ast.OpNeq:
		return bytecode.Neq, nil
	case ast.OpAnd:
		return bytecode.And, nil
	case ast.OpOr:
		return bytecode.Or, nil
	default:
		return 0, &CompileError{Message: fmt.Sprintf("unknown binary operator: %v", op)}
	}
}
