// Command relq is the interpreter's command-line front end: script
// runner, REPL, and flag surface (spec.md §6's "CLI: a non-core
// collaborator"). Flag/command shape follows the teacher's own cobra
// usage in demo/cmd/main.go (root command plus Flags().*VarP wiring),
// translated from that demo's subcommand style into relq's flat,
// single-command CLI since spec.md's flags are all top-level options
// rather than verbs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const version = "0.1.0"

// cliFlags mirrors spec.md §6's flag list verbatim.
type cliFlags struct {
	file            string
	module          string
	interactive     bool
	configPath      string
	printSQL        bool
	timeStatements  bool
	pythonTraceback bool
	showVersion     bool
	installJupyter  bool
}

func main() {
	f := &cliFlags{}
	root := &cobra.Command{
		Use:   "relq [DB_URI]",
		Short: "relq: a typed relational query interpreter",
		Long:  "relq interprets a small statically-typed query language and pushes it down to a SQL database.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCLI(f, args)
		},
	}
	root.Flags().StringVarP(&f.file, "file", "f", "", "run script FILE")
	root.Flags().StringVarP(&f.module, "module", "m", "", "import and run MOD")
	root.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "drop into the REPL after the script finishes")
	root.Flags().StringVarP(&f.configPath, "config", "c", "", "load a JSON config file (default ~/.relq_conf.json)")
	root.Flags().BoolVar(&f.printSQL, "print-sql", false, "print generated SQL before executing it")
	root.Flags().BoolVar(&f.timeStatements, "time", false, "log per-statement latency")
	root.Flags().BoolVar(&f.pythonTraceback, "python-traceback", false, "print the full error stacktrace on an uncaught error")
	root.Flags().BoolVar(&f.showVersion, "version", false, "print the version and exit")
	root.Flags().BoolVar(&f.installJupyter, "install-jupyter", false, "install the Jupyter kernel (not supported by relq)")
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}

// newLogger builds the zap.SugaredLogger threaded through state.State,
// multiplexing a human-readable console core with a rotating file core
// (SPEC_FULL.md §4.5: "go.uber.org/zap, with
// gopkg.in/natefinch/lumberjack.v2 as the rotating file sink").
func newLogger(debug bool) *zap.SugaredLogger {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stderr), level)

	logPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		logPath = home + "/.relq.log"
	}
	var core zapcore.Core = consoleCore
	if logPath != "" {
		fileSink := &lumberjack.Logger{Filename: logPath, MaxSize: 10, MaxBackups: 3, MaxAge: 28}
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(fileSink), level)
		core = zapcore.NewTee(consoleCore, fileCore)
	}
	return zap.New(core).Sugar()
}
