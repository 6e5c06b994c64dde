// Package calltarget defines Target, the callable identity used as the key
// into every shared-memory table the fixpoint driver touches (§3 "Target").
package calltarget

// Kind distinguishes a plain callable from a property setter, which the
// type environment and the taint model both need to treat differently at
// assignment sites.
type Kind int

const (
	Normal Kind = iota
	PropertySetter
)

func (k Kind) String() string {
	if k == PropertySetter {
		return "PropertySetter"
	}
	return "Normal"
}

// Target is a callable identity: a module-level Function, a Method or its
// Override on a specific class, or an Object standing in for a global or
// field. All four variants are plain comparable structs so a Target value
// is directly usable as a map key — the "stable hashable representation"
// §3 requires.
type Target interface {
	isTarget()
	String() string
}

// Function is a module-level callable. Targets built from the project's own
// modules carry the bare def name; model-DSL declarations carry the dotted
// qualifier.name form.
type Function struct {
	Name string
	Kind Kind
}

func (Function) isTarget()      {}
func (f Function) String() string { return "Function(" + f.Name + ")" }

// Method is a callable declared directly on Class; it does not include
// overrides declared in subclasses.
type Method struct {
	Class string
	Name  string
	Kind  Kind
}

func (Method) isTarget() {}
func (m Method) String() string { return "Method(" + m.Class + "." + m.Name + ")" }

// Override is one subclass's re-declaration of an inherited Method. The
// override graph (§4.F) maps a Method to its set of Overrides.
type Override struct {
	Class string
	Name  string
	Kind  Kind
}

func (Override) isTarget() {}
func (o Override) String() string { return "Override(" + o.Class + "." + o.Name + ")" }

// Object stands for a global variable or a class field — anything that
// carries taint but is never called.
type Object struct {
	Name string
}

func (Object) isTarget() {}
func (o Object) String() string { return "Object(" + o.Name + ")" }
