package config

// Version is the current pyscope version.
// Set at build time via -ldflags or by writing to this file.
var Version = "0.1.0"

const SourceFileExt = ".pys"

// StubFileExt marks a typed stub module (declaration-only, no executable bodies).
const StubFileExt = ".pysi"

// SourceFileExtensions are all recognized source file extensions, stubs first
// so stub detection by suffix match never has to special-case ordering.
var SourceFileExtensions = []string{StubFileExt, SourceFileExt}

// TrimSourceExt removes any recognized source extension from a filename.
// Returns the original string if no extension matches.
func TrimSourceExt(name string) string {
	for _, ext := range SourceFileExtensions {
		if len(name) >= len(ext) && name[len(name)-len(ext):] == ext {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// HasSourceExt returns true if the path ends with any recognized source extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// IsStubPath returns true if the path carries the stub-module extension.
func IsStubPath(path string) bool {
	return len(path) >= len(StubFileExt) && path[len(path)-len(StubFileExt):] == StubFileExt
}

// IsTestMode indicates if the program is running under `go test`.
// Set once at startup so type-variable names normalize deterministically
// in golden output (see typesystem.TVar.String).
var IsTestMode = false

// IsServerMode indicates the process is running the long-lived `server`
// command instead of a one-shot CLI invocation.
var IsServerMode = false

// InitKeyword is the qualifier-bearing file stem mapped to a package's
// directory qualifier, mirroring the target language's `__init__`.
const InitKeyword = "__init__"

// GetAttrKeyword is the module-level callable consulted when a module fails
// to parse; see sourceenv.ParseResult failure semantics.
const GetAttrKeyword = "__getattr__"

// ListTypeName is the type constructor name for the builtin homogeneous
// sequence type ("list" annotations and `List[T]` subscripts both resolve
// here — see typeenv's annotation-to-Type translation).
const ListTypeName = "list"
