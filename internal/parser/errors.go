package parser

import (
	"fmt"

	"github.com/pyscope-dev/pyscope/internal/ast"
)

// Error is a located, recoverable parse error (spec §7 "Parse errors").
// The parser accumulates these rather than stopping at the first one, so a
// module with one bad statement still yields an AST for everything else.
type Error struct {
	File    string
	Pos     ast.Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Pos.Line, e.Pos.Column, e.Message)
}
