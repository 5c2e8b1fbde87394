package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/relq-lang/relq/config"
	"github.com/relq-lang/relq/db"
	"github.com/relq-lang/relq/eval"
	"github.com/relq-lang/relq/exec"
	"github.com/relq-lang/relq/lang/parser"
	"github.com/relq-lang/relq/object"
	"github.com/relq-lang/relq/rqerr"
	"github.com/relq-lang/relq/sqlir"
	"github.com/relq-lang/relq/state"
)

// runCLI wires config, logger, database and executor together and
// dispatches to script/module/REPL execution per the flags parsed by
// cobra, matching spec.md §6's CLI contract.
func runCLI(f *cliFlags, args []string) error {
	if f.showVersion {
		fmt.Println("relq", version)
		return nil
	}
	if f.installJupyter {
		return rqerr.NewNotImplemented(rqerr.Span{}, "relq has no Jupyter kernel")
	}

	cfgPath := f.configPath
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.Debug)
	defer logger.Sync()

	dbURI := "sqlite://:memory:"
	if len(args) > 0 {
		dbURI = args[0]
	}
	database, err := db.Open(dbURI, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	st := state.New(logger)
	st.PrintSQL = f.printSQL
	executor := exec.New(database, database.Dialect())

	interactive := f.interactive || (f.file == "" && f.module == "")

	switch {
	case f.file != "":
		src, err := os.ReadFile(f.file)
		if err != nil {
			return err
		}
		if err := runSource(st, executor, f, f.file, string(src), false); err != nil {
			reportError(f, f.file, string(src), err)
			if !interactive {
				return errExitCode
			}
		}
	case f.module != "":
		path := f.module + ".preql"
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("importing module %q: %w", f.module, err)
		}
		if err := runSource(st, executor, f, path, string(src), false); err != nil {
			reportError(f, path, string(src), err)
			if !interactive {
				return errExitCode
			}
		}
	}

	if interactive {
		return runREPL(st, executor, f, cfg)
	}
	return nil
}

// errExitCode is a sentinel returned from runCLI to signal "exit -1",
// per spec.md §6: "-1 on a user-language error when not in interactive
// mode" — distinguished from a Go-level failure so main doesn't print
// it a second time (reportError already printed the formatted error).
var errExitCode = fmt.Errorf("")

// runSource parses and executes every top-level statement in src in
// order, matching spec.md §5's "statement execution is sequential and
// side-effect-ordered". When echo is true (REPL/auto-run mode) the
// localized value of a bare expression statement is printed, matching
// the "end-to-end scenarios" transcripts of spec.md §8 showing a bare
// expression's result as the visible output of a line.
func runSource(st *state.State, ex *exec.Executor, f *cliFlags, name, src string, echo bool) error {
	stmts, err := parser.Parse(src)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		start := time.Now()
		inst, err := ex.Execute(st, stmt)
		if f.timeStatements {
			st.Logger.Infow("statement", "file", name, "took", time.Since(start))
		}
		if err != nil {
			return err
		}
		if f.printSQL {
			if _, ok := inst.(*object.ValueInstance); !ok && inst != object.Null {
				text, _ := sqlir.Render(ex.Dialect, inst.Subqueries(), inst.Code())
				fmt.Fprintln(os.Stderr, "--", text)
			}
		}
		if echo && inst != object.Null {
			v, lerr := eval.Localize(st, inst, ex.DB, ex.Dialect)
			if lerr != nil {
				return lerr
			}
			printValue(v)
		}
	}
	return nil
}

func printValue(v any) {
	switch rows := v.(type) {
	case []map[string]any:
		fmt.Println(rows)
	case nil:
	default:
		fmt.Println(v)
	}
}

// reportError formats a user-language error in context: the error
// message, its source location, and the offending line with a caret —
// spec.md §7's propagation contract ("format the source location in
// context (surrounding line(s), caret, source range)"). With
// --python-traceback, the wrapped cause chain (Unwrap cause-by-cause)
// is printed after that summary, one "caused by" line per cause.
func reportError(f *cliFlags, name, src string, err error) {
	e, ok := rqerr.AsError(err)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", name, e.Error())
	if e.Span.StartLine > 0 {
		lines := strings.Split(src, "\n")
		if e.Span.StartLine-1 < len(lines) {
			line := lines[e.Span.StartLine-1]
			fmt.Fprintln(os.Stderr, line)
			col := e.Span.StartColumn
			if col < 1 {
				col = 1
			}
			fmt.Fprintln(os.Stderr, strings.Repeat(" ", col-1)+"^")
		}
	}
	if f.pythonTraceback {
		cause := e.Cause
		for cause != nil {
			fmt.Fprintf(os.Stderr, "  caused by: %v\n", cause)
			cause = errorsUnwrap(cause)
		}
	}
}

func errorsUnwrap(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return nil
}
