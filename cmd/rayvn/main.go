package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Ravyn-Coding-Language/Rayvn/internal/diagnostics"
)

var version = "0.1.0"

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

func printInfo(msg string)    { infoColor.Printf("[INFO] %s\n", msg) }
func printSuccess(msg string) { successColor.Printf("[OK] %s\n", msg) }
func printWarning(msg string) { warningColor.Printf("[WARN] %s\n", msg) }

// printError renders a *diagnostics.SourceError as a colored
// source-snippet-and-caret block; any other error just prints its
// message the way the other print* helpers do.
func printError(err error) {
	if src, ok := err.(*diagnostics.SourceError); ok {
		palette := diagnostics.Colored
		if color.NoColor {
			palette = diagnostics.NoColor
		}
		fmt.Fprint(os.Stderr, src.Render(palette))
		return
	}
	errorColor.Printf("[ERROR] %s\n", err.Error())
}

func main() {
	rootCmd := &cobra.Command{
		Use:     "rayvn",
		Short:   "Rayvn bytecode compiler and VM",
		Long:    `Rayvn compiles a small dynamically-typed scripting language to bytecode and runs it on a stack VM.`,
		Version: version,
	}
	rootCmd.SetVersionTemplate("rayvn v{{.Version}}\n")

	var buildCmd = &cobra.Command{
		Use:   "build <file>",
		Short: "Compile a .rvn source file to a .rvnc bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBuild,
	}
	buildCmd.Flags().StringP("output", "o", "", "output file (default: replace extension with .rvnc)")

	var runCmd = &cobra.Command{
		Use:   "run <file>",
		Short: "Compile and run a .rvn source file, or execute a compiled .rvnc chunk",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().Bool("bytecode", false, "treat <file> as an already-compiled .rvnc chunk")
	runCmd.Flags().Bool("strict-vars", false, "fault on reading an unbound variable instead of returning 0")
	runCmd.Flags().String("config", "", "path to a rayvn.yaml project config file")
	runCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	runCmd.Flags().String("log-format", "", "override the configured log format: text or json")

	var disasmCmd = &cobra.Command{
		Use:   "disasm <file>",
		Short: "Compile (or load) a program and print its instruction listing",
		Args:  cobra.ExactArgs(1),
		RunE:  runDisasm,
	}
	disasmCmd.Flags().Bool("bytecode", false, "treat <file> as an already-compiled .rvnc chunk")

	var replCmd = &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive REPL session",
		RunE:  runRepl,
	}
	replCmd.Flags().Bool("strict-vars", false, "fault on reading an unbound variable instead of returning 0")

	var watchCmd = &cobra.Command{
		Use:   "watch <file>",
		Short: "Recompile and rerun a .rvn file whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}

	rootCmd.AddCommand(buildCmd, runCmd, disasmCmd, replCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func changeExtension(path, newExt string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[:i] + newExt
		}
	}
	return path + newExt
}

func fail(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
