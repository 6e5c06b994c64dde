package typeenv

// builtinNames are resolvable without any import, the way the target
// language's prelude is always in scope.
var builtinNames = map[string]bool{
	"print": true, "len": true, "range": true, "str": true, "int": true,
	"float": true, "bool": true, "list": true, "dict": true, "set": true,
	"tuple": true, "isinstance": true, "None": true, "True": true, "False": true,
	"super": true, "object": true, "type": true, "self": true, "cls": true,
	"Exception": true, "ValueError": true, "TypeError": true, "KeyError": true,
	"AttributeError": true, "StopIteration": true, "RuntimeError": true,
	"Any": true, "Optional": true, "Union": true, "Callable": true,

	// pass/break/continue parse as bare identifier expression statements
	// (internal/parser has no dedicated node for them); listing them here
	// keeps checkExpr's undefined-name check from flagging them.
	"pass": true, "break": true, "continue": true,
}
