package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/relq-lang/relq/config"
	"github.com/relq-lang/relq/exec"
	"github.com/relq-lang/relq/state"
)

// runREPL auto-runs the nearest ancestor .preql file (spec.md §6:
// "Auto-run file: at REPL start, the nearest .preql file in any
// ancestor of the working directory is executed in the default
// namespace"), then drops into an interactive chzyer/readline loop,
// printing the localized value of every bare expression statement.
func runREPL(st *state.State, ex *exec.Executor, f *cliFlags, cfg *config.Config) error {
	if path, ok := findAncestorPreqlFile("."); ok {
		src, err := os.ReadFile(path)
		if err == nil {
			if rerr := runSource(st, ex, f, path, string(src), false); rerr != nil {
				reportError(f, path, string(src), rerr)
			}
		}
	}

	rl, err := readline.New("relq> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// KeyboardInterrupt aborts the current statement, keeps REPL
			// state (spec.md §5's cancellation contract).
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := runSource(st, ex, f, "<stdin>", line, true); err != nil {
			reportError(f, "<stdin>", line, err)
		}
	}
}

// findAncestorPreqlFile walks from dir upward to the filesystem root
// looking for the first directory containing a *.preql file, matching
// spec.md §6's auto-run rule.
func findAncestorPreqlFile(dir string) (string, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		entries, err := os.ReadDir(abs)
		if err == nil {
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".preql") {
					return filepath.Join(abs, e.Name()), true
				}
			}
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", false
		}
		abs = parent
	}
}
