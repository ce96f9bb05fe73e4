// Package replloop implements Rayvn's interactive Read-Eval-Print
// Loop: a bufio reader, a balanced-bracket multi-line input buffer,
// and an input-type detector that routes a line to statement or
// expression handling before compiling and executing it.
//
// Each complete input is compiled onto the same growing bytecode.Chunk
// and only the newly compiled suffix is run, so variables and loaded
// functions persist across turns the same way the VM's environment
// map persists within a single program.
package replloop

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Ravyn-Coding-Language/Rayvn/ast"
	"github.com/Ravyn-Coding-Language/Rayvn/bytecode"
	"github.com/Ravyn-Coding-Language/Rayvn/compiler"
	"github.com/Ravyn-Coding-Language/Rayvn/internal/disasm"
	"github.com/Ravyn-Coding-Language/Rayvn/lexer"
	"github.com/Ravyn-Coding-Language/Rayvn/parser"
	"github.com/Ravyn-Coding-Language/Rayvn/vm"
)

func formatListing(chunk *bytecode.Chunk) string {
	return disasm.Format(chunk)
}

// REPL is an interactive Rayvn session: one compiler building one
// chunk, and one VM executing it incrementally.
type REPL struct {
	reader      *bufio.Reader
	writer      io.Writer
	version     string
	comp        *compiler.Compiler
	machine     *vm.VM
	running     bool
	inputBuffer strings.Builder
	lineNumber  int
}

// New creates a REPL reading from r and writing prompts/results to w.
func New(r io.Reader, w io.Writer, version string, opts ...vm.Option) *REPL {
	comp := compiler.New()
	machine := vm.New(comp.Snapshot(), opts...)
	return &REPL{
		reader:     bufio.NewReader(r),
		writer:     w,
		version:    version,
		comp:       comp,
		machine:    machine,
		lineNumber: 1,
	}
}

// Start runs the loop until EOF or a :quit command.
func (r *REPL) Start() error {
	r.running = true
	r.printWelcome()

	for r.running {
		r.printPrompt()
		line, err := r.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" && r.inputBuffer.Len() == 0 {
			continue
		}
		if err := r.processLine(line); err != nil {
			fmt.Fprintf(r.writer, "error: %v\n", err)
		}
	}

	r.printGoodbye()
	return nil
}

func (r *REPL) processLine(line string) error {
	if strings.HasPrefix(line, ":") && r.inputBuffer.Len() == 0 {
		return r.executeCommand(line)
	}

	if r.inputBuffer.Len() > 0 {
		r.inputBuffer.WriteString("\n")
	}
	r.inputBuffer.WriteString(line)

	input := r.inputBuffer.String()
	if !isInputComplete(input) {
		return nil
	}
	r.inputBuffer.Reset()
	r.lineNumber++

	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	return r.evaluate(input)
}

func (r *REPL) executeCommand(line string) error {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch {
	case cmd == ":help" || cmd == ":h":
		fmt.Fprint(r.writer, "commands: :help :quit :reset :list\n")
	case cmd == ":quit" || cmd == ":q" || cmd == ":exit":
		r.running = false
	case cmd == ":reset":
		r.comp = compiler.New()
		r.machine = vm.New(r.comp.Snapshot())
		fmt.Fprintln(r.writer, "session reset")
	case cmd == ":list":
		fmt.Fprint(r.writer, formatListing(r.comp.Snapshot()))
	default:
		fmt.Fprintf(r.writer, "unknown command %q\n", line)
	}
	return nil
}

// evaluate decides whether input is a bare expression (kept on the
// operand stack for display) or one or more statements, compiles it
// onto the running chunk, and executes just that suffix.
func (r *REPL) evaluate(input string) error {
	toks, err := lexer.New(input).Tokenize()
	if err != nil {
		return fmt.Errorf("syntax error: %w", err)
	}

	if looksLikeBareExpr(input) {
		if expr, exprErr := parser.New(toks).ParseExpression(); exprErr == nil {
			return r.runExpr(expr)
		}
	}

	stmts, err := parser.New(toks).ParseStatements()
	if err != nil {
		return fmt.Errorf("syntax error: %w", err)
	}
	return r.runStatements(stmts)
}

func (r *REPL) runExpr(expr ast.Expr) error {
	start, err := r.comp.CompileExpr(expr)
	if err != nil {
		return fmt.Errorf("compile error: %w", err)
	}
	r.machine.SetChunk(r.comp.Snapshot())
	result, err := r.machine.RunFrom(start)
	if err != nil {
		return fmt.Errorf("runtime error: %w", err)
	}
	fmt.Fprintf(r.writer, "=> %s\n", result.String())
	return nil
}

func (r *REPL) runStatements(stmts []ast.Stmt) error {
	start, err := r.comp.CompileStatements(stmts)
	if err != nil {
		return fmt.Errorf("compile error: %w", err)
	}
	r.machine.SetChunk(r.comp.Snapshot())
	if _, err := r.machine.RunFrom(start); err != nil {
		return fmt.Errorf("runtime error: %w", err)
	}
	return nil
}

// looksLikeBareExpr reports whether input does not begin with a
// keyword that starts a statement; such input is tried as an
// expression first.
func looksLikeBareExpr(input string) bool {
	trimmed := strings.TrimSpace(input)
	for _, kw := range []string{"let ", "fn ", "if ", "while ", "for ", "return", "break", "continue", "log "} {
		if strings.HasPrefix(trimmed, kw) {
			return false
		}
	}
	return true
}

func (r *REPL) printWelcome() {
	fmt.Fprintf(r.writer, "Rayvn REPL %s\n", r.version)
	fmt.Fprintln(r.writer, "Type :help for commands, :quit to exit.")
}

func (r *REPL) printGoodbye() {
	fmt.Fprintln(r.writer, "goodbye")
}

func (r *REPL) printPrompt() {
	if r.inputBuffer.Len() > 0 {
		fmt.Fprint(r.writer, "... ")
		return
	}
	fmt.Fprint(r.writer, "rayvn> ")
}

// isInputComplete reports whether input has balanced brackets outside
// of string literals, used to decide whether to keep reading
// continuation lines.
func isInputComplete(input string) bool {
	depth := 0
	inString := false
	var quote byte
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if ch == '"' || ch == '\'' {
			if !inString {
				inString, quote = true, ch
			} else if ch == quote && (i == 0 || input[i-1] != '\\') {
				inString = false
			}
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		}
	}
	return depth <= 0 && !inString
}
