// Package diagnostics defines the wire shape the analyzer reports through:
// type-check diagnostics, parse errors, and taint issues all flatten to the
// same Diagnostic record (§6 "Diagnostics out").
package diagnostics

// Severity classifies a Diagnostic for exit-code and display purposes.
type Severity string

const (
	Error   Severity = "Error"
	Warning Severity = "Warning"
	Info    Severity = "Info"
)

// Location is a source span, end-inclusive per the wire format.
type Location struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	EndLine int    `json:"end_line"`
	EndCol  int    `json:"end_col"`
}

// TraceStep is one hop of a taint_trace: the breadcrumb path from a source
// to the sink that fired.
type TraceStep struct {
	Location    Location `json:"location"`
	Description string   `json:"description"`
}

// Diagnostic is the flat record every analyzer phase emits, matching §6's
// `{ code, severity, location, message, taint_trace? }`.
type Diagnostic struct {
	Code       int         `json:"code"`
	Severity   Severity    `json:"severity"`
	Location   Location    `json:"location"`
	Message    string      `json:"message"`
	TaintTrace []TraceStep `json:"taint_trace,omitempty"`
}

// Type-check diagnostic codes (§6).
const (
	CodeIncompatibleAssignment    = 3
	CodeIncompatibleReturn        = 5
	CodeIncompatibleParameter     = 6
	CodeMissingAttribute          = 7
	CodeUndefinedName             = 8
	CodeInvalidTypeAnnotation     = 9
	CodeCallableArityMismatch     = 11
	CodeTooManyArguments          = 14
	CodeTooFewArguments           = 15
	CodeUnexpectedKeyword         = 16
	CodeInconsistentOverride      = 18
	CodeRedeclaredName            = 24
	CodeInvalidInheritance        = 31
	CodeUnsupportedOperand        = 34
	CodeIncompatibleVariableType  = 36
	CodeRevealedType              = 37
	CodeUnawaitedAwaitable        = 1001
	CodeParseError                = 404
)

// Set merges zero-code taint-rule identifiers above 2000 into the same
// space by convention; the analyzer assigns them from a rule's own
// declared code at registration time, so no constant lives here.
