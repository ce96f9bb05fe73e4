package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Ravyn-Coding-Language/Rayvn/bytecode"
	"github.com/Ravyn-Coding-Language/Rayvn/compiler"
	"github.com/Ravyn-Coding-Language/Rayvn/internal/config"
	"github.com/Ravyn-Coding-Language/Rayvn/internal/diagnostics"
	"github.com/Ravyn-Coding-Language/Rayvn/internal/disasm"
	"github.com/Ravyn-Coding-Language/Rayvn/internal/logging"
	"github.com/Ravyn-Coding-Language/Rayvn/internal/metrics"
	"github.com/Ravyn-Coding-Language/Rayvn/internal/replloop"
	"github.com/Ravyn-Coding-Language/Rayvn/lexer"
	"github.com/Ravyn-Coding-Language/Rayvn/parser"
	"github.com/Ravyn-Coding-Language/Rayvn/vm"
)

// errOffset recovers the byte offset a front-end error carries, if
// any. lexer.LexError and parser.SyntaxError both track where in the
// source they occurred; the compiler has no per-statement source
// positions to report (the AST never carried any, matching spec's
// core non-goal of source locations), so compile-stage errors locate
// to offset 0.
func errOffset(err error) int {
	switch e := err.(type) {
	case *lexer.LexError:
		return e.Offset
	case *parser.SyntaxError:
		return e.Offset
	default:
		return 0
	}
}

func compileFile(path string) (*bytecode.Chunk, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fail("failed to read file: %w", err)
	}
	toks, err := lexer.New(string(source)).Tokenize()
	if err != nil {
		return nil, diagnostics.Locate("syntax", err.Error(), errOffset(err), string(source)).WithFileName(path)
	}
	prog, err := parser.New(toks).ParseProgram()
	if err != nil {
		return nil, diagnostics.Locate("syntax", err.Error(), errOffset(err), string(source)).WithFileName(path)
	}
	chunk, err := compiler.Compile(prog)
	if err != nil {
		return nil, diagnostics.Locate("compile", err.Error(), errOffset(err), string(source)).WithFileName(path)
	}
	return chunk, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	output, _ := cmd.Flags().GetString("output")

	printInfo(fmt.Sprintf("Compiling %s...", filePath))
	start := time.Now()

	chunk, err := compileFile(filePath)
	if err != nil {
		return err
	}
	encoded, err := bytecode.Encode(chunk)
	if err != nil {
		return fail("failed to encode bytecode: %w", err)
	}

	if output == "" {
		output = changeExtension(filePath, config.DefaultBytecodeExt)
	}
	if err := os.WriteFile(output, encoded, 0600); err != nil {
		return fail("failed to write output: %w", err)
	}

	printSuccess(fmt.Sprintf("Compiled to %s in %s (%d bytes)", output, time.Since(start), len(encoded)))
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	asBytecode, _ := cmd.Flags().GetBool("bytecode")
	strict, _ := cmd.Flags().GetBool("strict-vars")
	configPath, _ := cmd.Flags().GetString("config")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	logFormat, _ := cmd.Flags().GetString("log-format")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fail("failed to load config: %w", err)
	}
	if strict {
		cfg.StrictVariables = true
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	format := logging.Text
	if cfg.LogFormat == "json" {
		format = logging.JSON
	}
	logger := logging.New(logging.Config{MinLevel: logging.Info, Format: format, Output: os.Stderr, BufferSize: 64})
	defer logger.Close()

	mtr := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", mtr.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				printWarning(fmt.Sprintf("metrics server stopped: %v", err))
			}
		}()
		printInfo(fmt.Sprintf("serving metrics on %s", cfg.MetricsAddr))
	}

	var chunk *bytecode.Chunk
	if asBytecode {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return fail("failed to read file: %w", err)
		}
		chunk, err = bytecode.Decode(data)
		if err != nil {
			return fail("failed to decode bytecode: %w", err)
		}
	} else {
		compileStart := time.Now()
		chunk, err = compileFile(filePath)
		mtr.RecordCompile(err == nil, time.Since(compileStart))
		if err != nil {
			return err
		}
	}

	logger.Info("run started", map[string]any{"file": filePath})
	runStart := time.Now()
	machine := vm.New(chunk, vm.WithStrictVariables(cfg.StrictVariables), vm.WithMetrics(mtr))
	result, err := machine.Run()
	mtr.RecordRun(err == nil, time.Since(runStart))
	if err != nil {
		logger.Error("run failed", map[string]any{"error": err.Error()})
		return err
	}
	logger.Info("run finished", map[string]any{"result": result.String()})
	return nil
}

func runDisasm(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	asBytecode, _ := cmd.Flags().GetBool("bytecode")

	var chunk *bytecode.Chunk
	var err error
	if asBytecode {
		data, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return fail("failed to read file: %w", readErr)
		}
		chunk, err = bytecode.Decode(data)
	} else {
		chunk, err = compileFile(filePath)
	}
	if err != nil {
		return err
	}
	fmt.Print(disasm.Format(chunk))
	return nil
}

func runRepl(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict-vars")
	r := replloop.New(os.Stdin, os.Stdout, version, vm.WithStrictVariables(strict))
	return r.Start()
}

func runWatch(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	runOnce := func() {
		printInfo(fmt.Sprintf("running %s", filePath))
		chunk, err := compileFile(filePath)
		if err != nil {
			printError(err)
			return
		}
		machine := vm.New(chunk)
		if _, err := machine.Run(); err != nil {
			printError(err)
			return
		}
		printSuccess("run complete")
	}
	runOnce()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fail("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filePath); err != nil {
		return fail("failed to watch file: %w", err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				runOnce()
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			printWarning(fmt.Sprintf("watcher error: %v", watchErr))
		}
	}
}
