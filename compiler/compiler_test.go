package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ravyn-Coding-Language/Rayvn/ast"
	"github.com/Ravyn-Coding-Language/Rayvn/bytecode"
	"github.com/Ravyn-Coding-Language/Rayvn/value"
)

func ops(chunk *bytecode.Chunk) []bytecode.OpCode {
	out := make([]bytecode.OpCode, len(chunk.Instructions))
	for i, ins := range chunk.Instructions {
		out[i] = ins.Op
	}
	return out
}

func TestCompileLetStmt(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		ast.LetStmt{Name: "x", Value: ast.Number{Value: 5}},
	}}
	chunk, err := Compile(prog)
	require.NoError(t, err)
	assert.Equal(t, []bytecode.OpCode{bytecode.PushConst, bytecode.StoreVar, bytecode.Halt}, ops(chunk))
	assert.Equal(t, value.Str{Val: "x"}, chunk.Instructions[1].Operand)
}

func TestCompileExprStmtEmitsPop(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		ast.ExprStmt{Expr: ast.Number{Value: 1}},
	}}
	chunk, err := Compile(prog)
	require.NoError(t, err)
	assert.Equal(t, []bytecode.OpCode{bytecode.PushConst, bytecode.Pop, bytecode.Halt}, ops(chunk))
}

func TestCompileIndexAssignLeavesValueOnStack(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		ast.IndexAssign{Array: ast.Var{Name: "a"}, Index: ast.Number{Value: 0}, Value: ast.Number{Value: 9}},
	}}
	chunk, err := Compile(prog)
	require.NoError(t, err)
	assert.Equal(t, []bytecode.OpCode{bytecode.LoadVar, bytecode.PushConst, bytecode.PushConst, bytecode.IndexSet, bytecode.Halt}, ops(chunk))
}

func TestCompileIfChainPatchesJumps(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		ast.IfChain{
			Branches: []ast.IfBranch{
				{Cond: ast.Boolean{Value: true}, Body: []ast.Stmt{ast.PrintStmt{Expr: ast.Number{Value: 1}}}},
			},
			Else: []ast.Stmt{ast.PrintStmt{Expr: ast.Number{Value: 2}}},
		},
	}}
	chunk, err := Compile(prog)
	require.NoError(t, err)

	falseJumpIdx := -1
	for i, ins := range chunk.Instructions {
		if ins.Op == bytecode.JumpIfFalse {
			falseJumpIdx = i
		}
	}
	require.GreaterOrEqual(t, falseJumpIdx, 0)
	target := chunk.Instructions[falseJumpIdx].Int()
	assert.True(t, target > falseJumpIdx && target < len(chunk.Instructions))
}

func TestCompileWhileLoopBreakContinue(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		ast.WhileStmt{
			Cond: ast.Boolean{Value: true},
			Body: []ast.Stmt{
				ast.BreakStmt{},
				ast.ContinueStmt{},
			},
		},
	}}
	chunk, err := Compile(prog)
	require.NoError(t, err)

	// break and continue both compile to Jump, patched once the loop's
	// bounds are known; verify no unpatched nil operand survives.
	for _, ins := range chunk.Instructions {
		if ins.Op == bytecode.Jump {
			_, ok := ins.Operand.(value.Int)
			assert.True(t, ok, "unpatched jump found")
		}
	}
}

func TestCompileBreakOutsideLoopFails(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{ast.BreakStmt{}}}
	_, err := Compile(prog)
	assert.Error(t, err)
}

func TestCompileContinueOutsideLoopFails(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{ast.ContinueStmt{}}}
	_, err := Compile(prog)
	assert.Error(t, err)
}

func TestCompileForInLoop(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		ast.ForInLoop{
			Var:      "i",
			Iterable: ast.RangeExpr{Start: ast.Number{Value: 0}, End: ast.Number{Value: 3}},
			Body:     []ast.Stmt{ast.PrintStmt{Expr: ast.Var{Name: "i"}}},
		},
	}}
	chunk, err := Compile(prog)
	require.NoError(t, err)
	got := ops(chunk)
	assert.Contains(t, got, bytecode.IterInit)
	assert.Contains(t, got, bytecode.IterNext)
	assert.Contains(t, got, bytecode.IterEnd)
}

func TestCompileFunctionDefSkipsBodyAndRegistersFnRef(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		ast.FunctionDef{Name: "add", Params: []string{"a", "b"},
			Body: []ast.Stmt{ast.ReturnStmt{Value: ast.Binary{Left: ast.Var{Name: "a"}, Op: ast.OpAdd, Right: ast.Var{Name: "b"}}}},
		},
		ast.ExprStmt{Expr: ast.CallExpr{Name: "add", Args: []ast.Expr{ast.Number{Value: 1}, ast.Number{Value: 2}}}},
	}}
	chunk, err := Compile(prog)
	require.NoError(t, err)

	require.Contains(t, chunk.Functions, "add")
	fn := chunk.Functions["add"]
	assert.Equal(t, []string{"a", "b"}, fn.Params)

	assert.Equal(t, bytecode.Jump, chunk.Instructions[0].Op)
	entryOp := chunk.Instructions[fn.Entry].Op
	assert.Equal(t, bytecode.LoadVar, entryOp)
}

func TestCompileCallToUndefinedFunctionFails(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		ast.ExprStmt{Expr: ast.CallExpr{Name: "missing", Args: nil}},
	}}
	_, err := Compile(prog)
	assert.Error(t, err)
}

func TestCompileBareReturnPushesNil(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		ast.FunctionDef{Name: "f", Body: []ast.Stmt{ast.ReturnStmt{}}},
	}}
	chunk, err := Compile(prog)
	require.NoError(t, err)
	fn := chunk.Functions["f"]
	assert.Equal(t, bytecode.PushConst, chunk.Instructions[fn.Entry].Op)
	assert.Equal(t, value.Nil{}, chunk.Instructions[fn.Entry].Operand)
}

func TestCompileRangeWithoutStepDefaultsToOne(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		ast.ExprStmt{Expr: ast.RangeExpr{Start: ast.Number{Value: 0}, End: ast.Number{Value: 5}}},
	}}
	chunk, err := Compile(prog)
	require.NoError(t, err)
	// Start, End, implicit step-1 const, BuildRange, Pop, Halt
	assert.Equal(t, []bytecode.OpCode{bytecode.PushConst, bytecode.PushConst, bytecode.PushConst, bytecode.BuildRange, bytecode.Pop, bytecode.Halt}, ops(chunk))
	assert.Equal(t, value.Int{Val: 1}, chunk.Instructions[2].Operand)
}

func TestCompileArrayLiteral(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		ast.ExprStmt{Expr: ast.ArrayLiteral{Elements: []ast.Expr{ast.Number{Value: 1}, ast.Number{Value: 2}}}},
	}}
	chunk, err := Compile(prog)
	require.NoError(t, err)
	got := ops(chunk)
	assert.Contains(t, got, bytecode.BuildArray)
}

func TestCompileUnknownStatementNodeFails(t *testing.T) {
	c := New()
	err := c.compileStmt(unknownStmt{})
	assert.Error(t, err)
}

func TestCompileStatementsAndExprForREPL(t *testing.T) {
	c := New()
	start, err := c.CompileStatements([]ast.Stmt{ast.LetStmt{Name: "x", Value: ast.Number{Value: 1}}})
	require.NoError(t, err)
	assert.Equal(t, 0, start)

	exprStart, err := c.CompileExpr(ast.Var{Name: "x"})
	require.NoError(t, err)
	assert.True(t, exprStart > start)

	snap := c.Snapshot()
	assert.Equal(t, bytecode.LoadVar, snap.Instructions[len(snap.Instructions)-1].Op)
	// CompileExpr must not append a trailing Pop or Halt.
	assert.NotEqual(t, bytecode.Halt, snap.Instructions[len(snap.Instructions)-1].Op)
}

type unknownStmt struct{}

func (unknownStmt) stmtNode() {}
