package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/pyscope-dev/pyscope/internal/diagnostics"
)

// colorEnabled mirrors the teacher's own internal/evaluator/builtins_term.go
// convention: only emit ANSI when stdout is a real terminal.
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiReset  = "\x1b[0m"
)

func severityColor(s diagnostics.Severity) string {
	switch s {
	case diagnostics.Error:
		return ansiRed
	case diagnostics.Warning:
		return ansiYellow
	default:
		return ansiBlue
	}
}

// printDiagnostics renders a batch of diagnostics one per line, colorized
// when w is a terminal, and returns the count of Error-severity entries.
func printDiagnostics(w io.Writer, qualifier string, ds []diagnostics.Diagnostic) int {
	color := colorEnabled(w)
	errors := 0
	for _, d := range ds {
		if d.Severity == diagnostics.Error {
			errors++
		}
		loc := d.Location
		path := loc.Path
		if path == "" {
			path = qualifier
		}
		if color {
			fmt.Fprintf(w, "%s:%d:%d: %s[%d]%s %s\n",
				path, loc.Line, loc.Col, severityColor(d.Severity), d.Code, ansiReset, d.Message)
			continue
		}
		fmt.Fprintf(w, "%s:%d:%d: %s[%d] %s\n", path, loc.Line, loc.Col, d.Severity, d.Code, d.Message)
	}
	return errors
}
