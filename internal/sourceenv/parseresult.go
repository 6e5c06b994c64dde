package sourceenv

import (
	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/diagnostics"
)

// ParseResult is the un-preprocessed outcome of parsing one module: either
// a Program or a located ParseError, never both (§3 "ParseResult").
type ParseResult struct {
	Program *ast.Program
	Err     *diagnostics.ParseError
}

// OK reports whether parsing produced a usable Program.
func (r *ParseResult) OK() bool { return r != nil && r.Err == nil && r.Program != nil }

// Source is the preprocessed view `get` hands to callers: the raw Program
// plus the ModulePath and strictness Mode it was parsed under, and the
// qualifiers its wildcard imports name.
type Source struct {
	Path      ModulePath
	Program   *ast.Program
	Mode      ast.Mode
	Wildcards []string // qualifiers named by a `from q import *` in this module
}
