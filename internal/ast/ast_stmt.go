package ast

// Identifier is a bare name reference.
type Identifier struct {
	Value    string
	From, To Position
}

func (i *Identifier) Pos() Position     { return i.From }
func (i *Identifier) End() Position     { return i.To }
func (i *Identifier) expressionNode()   {}

// ImportStatement is `import a.b.c` or `import a.b.c as alias`.
type ImportStatement struct {
	Qualifier string
	Alias     *Identifier // nil if not aliased
	From, To  Position
}

func (s *ImportStatement) Pos() Position    { return s.From }
func (s *ImportStatement) End() Position    { return s.To }
func (s *ImportStatement) statementNode()   {}

// ImportFromStatement is `from a.b import x, y as z` or, when Wildcard is
// set, `from a.b import *` — the form the Source Environment's
// WildcardImport dependency key tracks (§4.C).
type ImportFromStatement struct {
	Qualifier string
	Names     []ImportedName
	Wildcard  bool
	From, To  Position
}

// ImportedName is one `x` or `x as y` clause of an ImportFromStatement.
type ImportedName struct {
	Name  string
	Alias string // empty if not aliased
}

func (s *ImportFromStatement) Pos() Position  { return s.From }
func (s *ImportFromStatement) End() Position  { return s.To }
func (s *ImportFromStatement) statementNode() {}

// Parameter is one function parameter, with optional type annotation and
// default value (§4.I "default parameter values must be written as ...").
type Parameter struct {
	Name       string
	Annotation Expression // nil if unannotated — gradual typing treats it as Any
	Default    Expression // nil if required
	Variadic   bool       // *args
	KeywordAll bool       // **kwargs
}

// FunctionDef is `def name(params) -> ret: body`.
type FunctionDef struct {
	Name       string
	Parameters []Parameter
	Returns    Expression // nil if unannotated
	Body       []Statement
	Decorators []*Decorator
	IsAsync    bool
	From, To   Position
}

func (f *FunctionDef) Pos() Position  { return f.From }
func (f *FunctionDef) End() Position  { return f.To }
func (f *FunctionDef) statementNode() {}

// ClassDef is `class Name(Base1, Base2): body`.
type ClassDef struct {
	Name       string
	Bases      []Expression
	Body       []Statement
	Decorators []*Decorator
	From, To   Position
}

func (c *ClassDef) Pos() Position  { return c.From }
func (c *ClassDef) End() Position  { return c.To }
func (c *ClassDef) statementNode() {}

// AssignStatement is `target = value` or, when Annotation is set,
// `target: Annotation = value`.
type AssignStatement struct {
	Targets    []Expression
	Annotation Expression // nil unless this is an annotated assignment
	Value      Expression
	From, To   Position
}

func (a *AssignStatement) Pos() Position  { return a.From }
func (a *AssignStatement) End() Position  { return a.To }
func (a *AssignStatement) statementNode() {}

// ReturnStatement is `return value` (Value is nil for a bare `return`).
type ReturnStatement struct {
	Value    Expression
	From, To Position
}

func (r *ReturnStatement) Pos() Position  { return r.From }
func (r *ReturnStatement) End() Position  { return r.To }
func (r *ReturnStatement) statementNode() {}

// ExpressionStatement wraps an expression used for its side effects.
type ExpressionStatement struct {
	Expr     Expression
	From, To Position
}

func (e *ExpressionStatement) Pos() Position  { return e.From }
func (e *ExpressionStatement) End() Position  { return e.To }
func (e *ExpressionStatement) statementNode() {}

// IfStatement is `if cond: body else: orelse`.
type IfStatement struct {
	Condition Expression
	Body      []Statement
	Orelse    []Statement
	From, To  Position
}

func (s *IfStatement) Pos() Position  { return s.From }
func (s *IfStatement) End() Position  { return s.To }
func (s *IfStatement) statementNode() {}

// ForStatement is `for target in iterable: body`.
type ForStatement struct {
	Target   Expression
	Iterable Expression
	Body     []Statement
	From, To Position
}

func (s *ForStatement) Pos() Position  { return s.From }
func (s *ForStatement) End() Position  { return s.To }
func (s *ForStatement) statementNode() {}

// WhileStatement is `while cond: body`.
type WhileStatement struct {
	Condition Expression
	Body      []Statement
	From, To  Position
}

func (s *WhileStatement) Pos() Position  { return s.From }
func (s *WhileStatement) End() Position  { return s.To }
func (s *WhileStatement) statementNode() {}

// TryStatement is `try: body except E as n: handler finally: final`.
type TryStatement struct {
	Body     []Statement
	Handlers []ExceptHandler
	Finally  []Statement
	From, To Position
}

// ExceptHandler is one `except Type as name: body` clause.
type ExceptHandler struct {
	Type *Identifier // nil for a bare `except:`
	Name string
	Body []Statement
}

func (s *TryStatement) Pos() Position  { return s.From }
func (s *TryStatement) End() Position  { return s.To }
func (s *TryStatement) statementNode() {}

// GlobalStatement is `global x, y`.
type GlobalStatement struct {
	Names    []string
	From, To Position
}

func (s *GlobalStatement) Pos() Position  { return s.From }
func (s *GlobalStatement) End() Position  { return s.To }
func (s *GlobalStatement) statementNode() {}

// RaiseStatement is `raise expr`.
type RaiseStatement struct {
	Value    Expression // nil for a bare re-raise
	From, To Position
}

func (s *RaiseStatement) Pos() Position  { return s.From }
func (s *RaiseStatement) End() Position  { return s.To }
func (s *RaiseStatement) statementNode() {}
