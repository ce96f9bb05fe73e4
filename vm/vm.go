// Package vm executes a bytecode.Chunk on a stack machine: one operand
// stack, one flat variable environment per call frame, and an
// instruction pointer that jump opcodes set directly to an
// instruction index (jump targets are instruction
// indices, never byte offsets).
//
// Faults surface as Go's explicit error returns rather than panics,
// except for the Instruction accessor methods in bytecode, where a
// type mismatch means the compiler itself is broken.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/Ravyn-Coding-Language/Rayvn/bytecode"
	"github.com/Ravyn-Coding-Language/Rayvn/value"
)

// RuntimeError reports a fault raised while executing an instruction:
// a type mismatch, an out-of-range index, division by zero, or a
// malformed stack. The IP is the instruction that faulted.
type RuntimeError struct {
	IP      int
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at instruction %d: %s", e.IP, e.Message)
}

func (vm *VM) fault(format string, args ...any) error {
	// Every fault is raised after the dispatch loop advanced ip past
	// the instruction being executed and before any jump moves it.
	return &RuntimeError{IP: vm.ip - 1, Message: fmt.Sprintf(format, args...)}
}

// frame is a saved call site: where to resume and which environment
// to restore, pushed on CALL and popped on RETURN.
type frame struct {
	returnIP int
	savedEnv map[string]value.Value
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithOutput redirects PRINT output away from os.Stdout, useful for
// the REPL and for tests.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithStrictVariables makes reading an unbound variable a RuntimeError
// instead of silently yielding Int(0) (see SPEC_FULL.md Open
// Question resolutions).
func WithStrictVariables(strict bool) Option {
	return func(vm *VM) { vm.strictVars = strict }
}

// MetricsSink receives dispatch-loop telemetry. It is satisfied by
// *metrics.Metrics without the VM importing that package directly —
// the dispatch loop is a leaf, the Prometheus wiring is an ambient
// concern layered on top of it.
type MetricsSink interface {
	// RecordDispatch is called once per instruction the loop executes,
	// named after the opcode dispatched (e.g. "ADD", "CALL").
	RecordDispatch(opcode string)
	// RecordHalt is called exactly once when a run ends, named after
	// why it ended: "halt", "return", "end-of-stream", or "error".
	RecordHalt(cause string)
}

// WithMetrics wires a MetricsSink into the dispatch loop so
// instructions-by-opcode and halts-by-cause are observable while the
// VM runs, not just counted in bulk after the fact.
func WithMetrics(m MetricsSink) Option {
	return func(vm *VM) { vm.metrics = m }
}

// VM is one execution of a single Chunk. It is not safe to share
// across goroutines and is not reentrant (one VM, one
// program, one goroutine).
type VM struct {
	chunk      *bytecode.Chunk
	stack      []value.Value
	env        map[string]value.Value
	callStack  []frame
	ip         int
	out        io.Writer
	strictVars bool
	metrics    MetricsSink
}

// New builds a VM ready to run chunk.
func New(chunk *bytecode.Chunk, opts ...Option) *VM {
	vm := &VM{
		chunk: chunk,
		env:   make(map[string]value.Value),
		out:   os.Stdout,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() (value.Value, error) {
	if len(vm.stack) == 0 {
		return nil, vm.fault("operand stack underflow")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

// Run executes the chunk to completion, returning the value of the
// top-level RETURN or HALT (Nil if the program never pushed one).
func (vm *VM) Run() (value.Value, error) {
	return vm.run()
}

// RunFrom resumes execution at ip, keeping this VM's environment and
// operand stack from any prior run — the REPL compiles one line at a
// time onto a growing chunk and calls RunFrom(start) to execute just
// the newly compiled suffix without losing bound variables.
func (vm *VM) RunFrom(ip int) (value.Value, error) {
	vm.ip = ip
	return vm.run()
}

// SetChunk points the VM at a newer chunk with more instructions
// appended, used by the REPL after each incremental compile.
func (vm *VM) SetChunk(chunk *bytecode.Chunk) { vm.chunk = chunk }

func (vm *VM) run() (result value.Value, err error) {
	var cause string
	if vm.metrics != nil {
		defer func() {
			c := cause
			switch {
			case err != nil:
				c = "error"
			case c == "":
				c = "halt"
			}
			vm.metrics.RecordHalt(c)
		}()
	}

	for {
		if vm.ip >= len(vm.chunk.Instructions) {
			cause = "end-of-stream"
			if len(vm.stack) > 0 {
				return vm.stack[len(vm.stack)-1], nil
			}
			return value.Nil{}, nil
		}
		ins := vm.chunk.Instructions[vm.ip]
		vm.ip++

		if vm.metrics != nil {
			vm.metrics.RecordDispatch(ins.Op.String())
		}

		switch ins.Op {
		case bytecode.PushConst:
			vm.push(ins.Operand)

		case bytecode.Pop:
			if _, err := vm.pop(); err != nil {
				return nil, err
			}

		case bytecode.LoadVar:
			name := ins.Name()
			v, ok := vm.env[name]
			if !ok {
				if vm.strictVars {
					return nil, vm.fault("undefined variable %q", name)
				}
				v = value.Int{Val: 0}
			}
			vm.push(v)

		case bytecode.StoreVar:
			v, err := vm.pop()
			if err != nil {
				return nil, err
			}
			vm.env[ins.Name()] = v

		case bytecode.Add, bytecode.Sub, bytecode.Mul, bytecode.Div:
			if err := vm.execArith(ins.Op); err != nil {
				return nil, err
			}

		case bytecode.Neg:
			v, err := vm.pop()
			if err != nil {
				return nil, err
			}
			switch x := v.(type) {
			case value.Int:
				vm.push(value.Int{Val: -x.Val})
			case value.Float:
				vm.push(value.Float{Val: -x.Val})
			default:
				return nil, vm.fault("cannot negate a %s", v.Type())
			}

		case bytecode.Eq, bytecode.Neq:
			b, err := vm.pop()
			if err != nil {
				return nil, err
			}
			a, err := vm.pop()
			if err != nil {
				return nil, err
			}
			eq := value.Equal(a, b)
			if ins.Op == bytecode.Neq {
				eq = !eq
			}
			vm.push(value.Bool{Val: eq})

		case bytecode.Gt, bytecode.Gte, bytecode.Lt, bytecode.Lte:
			if err := vm.execCompare(ins.Op); err != nil {
				return nil, err
			}

		case bytecode.Not:
			v, err := vm.pop()
			if err != nil {
				return nil, err
			}
			vm.push(value.Bool{Val: !value.Truthy(v)})

		case bytecode.And, bytecode.Or:
			b, err := vm.pop()
			if err != nil {
				return nil, err
			}
			a, err := vm.pop()
			if err != nil {
				return nil, err
			}
			// Strict: both operands are always evaluated before this
			// opcode runs (emitted after both operand subexpressions
			// compile), so there is no short-circuiting here.
			var result bool
			if ins.Op == bytecode.And {
				result = value.Truthy(a) && value.Truthy(b)
			} else {
				result = value.Truthy(a) || value.Truthy(b)
			}
			vm.push(value.Bool{Val: result})

		case bytecode.Jump:
			vm.ip = ins.Int()

		case bytecode.JumpIfFalse:
			v, err := vm.pop()
			if err != nil {
				return nil, err
			}
			if !value.Truthy(v) {
				vm.ip = ins.Int()
			}

		case bytecode.JumpIfTrue:
			v, err := vm.pop()
			if err != nil {
				return nil, err
			}
			if value.Truthy(v) {
				vm.ip = ins.Int()
			}

		case bytecode.Call:
			if err := vm.execCall(ins.FnRef()); err != nil {
				return nil, err
			}

		case bytecode.Return:
			ret, rerr := vm.execReturn()
			if rerr != nil {
				return nil, rerr
			}
			if ret != nil {
				cause = "return"
				return ret, nil
			}

		case bytecode.IterInit:
			v, err := vm.pop()
			if err != nil {
				return nil, err
			}
			it, ok := value.NewIterator(v)
			if !ok {
				return nil, vm.fault("%s is not iterable", v.Type())
			}
			vm.push(it)

		case bytecode.IterNext:
			v, err := vm.pop()
			if err != nil {
				return nil, err
			}
			it, ok := v.(value.Iterator)
			if !ok {
				return nil, vm.fault("ITER_NEXT on a non-iterator %s", v.Type())
			}
			if item, ok := it.Next(); ok {
				vm.push(it)
				vm.push(item)
				vm.push(value.Bool{Val: true})
			} else {
				vm.push(value.Bool{Val: false})
			}

		case bytecode.IterEnd:
			// no-op: the iterator value is simply left unreferenced.

		case bytecode.BuildArray:
			n := ins.Int()
			if len(vm.stack) < n {
				return nil, vm.fault("BUILD_ARRAY needs %d elements, found %d", n, len(vm.stack))
			}
			elems := make([]value.Value, n)
			copy(elems, vm.stack[len(vm.stack)-n:])
			vm.stack = vm.stack[:len(vm.stack)-n]
			vm.push(value.NewArray(elems))

		case bytecode.BuildRange:
			if err := vm.execBuildRange(); err != nil {
				return nil, err
			}

		case bytecode.IndexGet:
			if err := vm.execIndexGet(); err != nil {
				return nil, err
			}

		case bytecode.IndexSet:
			if err := vm.execIndexSet(); err != nil {
				return nil, err
			}

		case bytecode.Print:
			v, err := vm.pop()
			if err != nil {
				return nil, err
			}
			fmt.Fprintln(vm.out, v.String())

		case bytecode.Halt:
			cause = "halt"
			if len(vm.stack) > 0 {
				top := vm.stack[len(vm.stack)-1]
				return top, nil
			}
			return value.Nil{}, nil

		default:
			return nil, vm.fault("unknown opcode %s", ins.Op)
		}
	}
}

func (vm *VM) execArith(op bytecode.OpCode) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}

	if op == bytecode.Add {
		if as, ok := a.(value.Str); ok {
			bs, ok := b.(value.Str)
			if !ok {
				return vm.fault("cannot add %s to a string", b.Type())
			}
			vm.push(value.Str{Val: as.Val + bs.Val})
			return nil
		}
		if aa, ok := a.(value.Array); ok {
			ba, ok := b.(value.Array)
			if !ok {
				return vm.fault("cannot add %s to an array", b.Type())
			}
			merged := make([]value.Value, 0, aa.Len()+ba.Len())
			for i := 0; i < aa.Len(); i++ {
				merged = append(merged, aa.Get(i))
			}
			for i := 0; i < ba.Len(); i++ {
				merged = append(merged, ba.Get(i))
			}
			vm.push(value.NewArray(merged))
			return nil
		}
	}

	af, aIsNum := asFloat(a)
	bf, bIsNum := asFloat(b)
	if !aIsNum || !bIsNum {
		return vm.fault("unsupported operand types for arithmetic: %s and %s", a.Type(), b.Type())
	}

	if op == bytecode.Div {
		if bf == 0 {
			return vm.fault("division by zero")
		}
		// Unconditional real division, matching the reference VM's
		// `a / b` (Python true division, which is always a float even
		// when the quotient is exact, e.g. 8/2 == 4.0).
		vm.push(value.Float{Val: af / bf})
		return nil
	}

	ai, aIsInt := a.(value.Int)
	bi, bIsInt := b.(value.Int)
	if aIsInt && bIsInt {
		switch op {
		case bytecode.Add:
			vm.push(value.Int{Val: ai.Val + bi.Val})
		case bytecode.Sub:
			vm.push(value.Int{Val: ai.Val - bi.Val})
		case bytecode.Mul:
			vm.push(value.Int{Val: ai.Val * bi.Val})
		}
		return nil
	}

	switch op {
	case bytecode.Add:
		vm.push(value.Float{Val: af + bf})
	case bytecode.Sub:
		vm.push(value.Float{Val: af - bf})
	case bytecode.Mul:
		vm.push(value.Float{Val: af * bf})
	}
	return nil
}

func asFloat(v value.Value) (float64, bool) {
	switch x := v.(type) {
	case value.Int:
		return float64(x.Val), true
	case value.Float:
		return x.Val, true
	default:
		return 0, false
	}
}

func (vm *VM) execCompare(op bytecode.OpCode) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	af, aIsNum := asFloat(a)
	bf, bIsNum := asFloat(b)
	if !aIsNum || !bIsNum {
		return vm.fault("cannot compare %s and %s", a.Type(), b.Type())
	}
	var result bool
	switch op {
	case bytecode.Gt:
		result = af > bf
	case bytecode.Gte:
		result = af >= bf
	case bytecode.Lt:
		result = af < bf
	case bytecode.Lte:
		result = af <= bf
	}
	vm.push(value.Bool{Val: result})
	return nil
}

func (vm *VM) execCall(fn value.FnRef) error {
	argc := len(fn.Params)
	if len(vm.stack) < argc {
		return vm.fault("calling %s needs %d arguments, found %d on the stack", fn.Name, argc, len(vm.stack))
	}
	args := make([]value.Value, argc)
	copy(args, vm.stack[len(vm.stack)-argc:])
	vm.stack = vm.stack[:len(vm.stack)-argc]

	vm.callStack = append(vm.callStack, frame{returnIP: vm.ip, savedEnv: vm.env})

	newEnv := make(map[string]value.Value, argc)
	for i, name := range fn.Params {
		newEnv[name] = args[i]
	}
	vm.env = newEnv
	vm.ip = fn.Entry
	return nil
}

// execReturn pops the call stack and resumes the caller, returning a
// non-nil value only when the call stack was already empty — i.e.
// this RETURN ends the whole program.
func (vm *VM) execReturn() (value.Value, error) {
	var ret value.Value = value.Nil{}
	if len(vm.stack) > 0 {
		v, err := vm.pop()
		if err != nil {
			return nil, err
		}
		ret = v
	}

	if len(vm.callStack) == 0 {
		return ret, nil
	}

	top := vm.callStack[len(vm.callStack)-1]
	vm.callStack = vm.callStack[:len(vm.callStack)-1]
	vm.ip = top.returnIP
	vm.env = top.savedEnv
	vm.push(ret)
	return nil, nil
}

func (vm *VM) execBuildRange() error {
	step, err := vm.pop()
	if err != nil {
		return err
	}
	end, err := vm.pop()
	if err != nil {
		return err
	}
	start, err := vm.pop()
	if err != nil {
		return err
	}
	si, ok := start.(value.Int)
	if !ok {
		return vm.fault("range() start must be an int, got %s", start.Type())
	}
	ei, ok := end.(value.Int)
	if !ok {
		return vm.fault("range() end must be an int, got %s", end.Type())
	}
	sti, ok := step.(value.Int)
	if !ok {
		return vm.fault("range() step must be an int, got %s", step.Type())
	}
	vm.push(value.Range{Start: si.Val, End: ei.Val, Step: sti.Val})
	return nil
}

// pythonIndex resolves a (possibly negative) index against a sequence
// of the given length the way a dynamically-typed host
// language indexing does: -1 is the last element, and the result must
// still land in range.
func pythonIndex(length, idx int) (int, bool) {
	if idx < 0 {
		idx += length
	}
	if idx < 0 || idx >= length {
		return 0, false
	}
	return idx, true
}

func (vm *VM) execIndexGet() error {
	idxV, err := vm.pop()
	if err != nil {
		return err
	}
	target, err := vm.pop()
	if err != nil {
		return err
	}
	idxInt, ok := idxV.(value.Int)
	if !ok {
		return vm.fault("index must be an int, got %s", idxV.Type())
	}
	idx := int(idxInt.Val)

	switch t := target.(type) {
	case value.Array:
		i, ok := pythonIndex(t.Len(), idx)
		if !ok {
			return vm.fault("array index %d out of range (length %d)", idx, t.Len())
		}
		vm.push(t.Get(i))
	case value.Str:
		i, ok := pythonIndex(len(t.Val), idx)
		if !ok {
			return vm.fault("string index %d out of range (length %d)", idx, len(t.Val))
		}
		vm.push(value.Str{Val: string(t.Val[i])})
	case value.Int:
		digits := value.DigitsOf(t.Val)
		i, ok := pythonIndex(len(digits), idx)
		if !ok {
			return vm.fault("digit index %d out of range (length %d)", idx, len(digits))
		}
		vm.push(value.Int{Val: int64(digits[i] - '0')})
	default:
		return vm.fault("cannot index a %s", target.Type())
	}
	return nil
}

func (vm *VM) execIndexSet() error {
	val, err := vm.pop()
	if err != nil {
		return err
	}
	idxV, err := vm.pop()
	if err != nil {
		return err
	}
	target, err := vm.pop()
	if err != nil {
		return err
	}
	idxInt, ok := idxV.(value.Int)
	if !ok {
		return vm.fault("index must be an int, got %s", idxV.Type())
	}

	arr, ok := target.(value.Array)
	if !ok {
		return vm.fault("index assignment is only supported on arrays, got %s", target.Type())
	}
	i, ok := pythonIndex(arr.Len(), int(idxInt.Val))
	if !ok {
		return vm.fault("array index %d out of range (length %d)", idxInt.Val, arr.Len())
	}
	arr.Set(i, val)
	vm.push(val)
	return nil
}
