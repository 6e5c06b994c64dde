package sourceenv

import (
	"sync"

	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/config"
	"github.com/pyscope-dev/pyscope/internal/depgraph"
	"github.com/pyscope-dev/pyscope/internal/diagnostics"
	"github.com/pyscope-dev/pyscope/internal/parser"
)

// cacheRaw and cacheSource name the two (cache, slot) namespaces this
// package registers with the shared Tracker.
const (
	cacheRaw    = "sourceenv.raw"
	cacheSource = "sourceenv.source"
)

// Loader reads the textual content backing a ModulePath. FileSystemLoader
// is the production implementation; tests can substitute an in-memory one.
type Loader interface {
	Read(path ModulePath) (string, error)
}

// Environment is the Source Environment of §4.C: it owns the qualifier →
// ModulePath registry, parses on demand, and records dependency reads
// against the shared Tracker so a later Update can report who to re-run.
type Environment struct {
	mu     sync.RWMutex
	loader Loader
	tracker *depgraph.Tracker

	paths     map[string]ModulePath
	raw       map[string]*ParseResult
	processed map[string]*Source
}

// New constructs an empty Environment backed by loader, sharing tracker
// with whatever other layers (§4.E) read through this one.
func New(loader Loader, tracker *depgraph.Tracker) *Environment {
	return &Environment{
		loader:    loader,
		tracker:   tracker,
		paths:     make(map[string]ModulePath),
		raw:       make(map[string]*ParseResult),
		processed: make(map[string]*Source),
	}
}

// PathFor returns the ModulePath registered for qualifier, if any. Overlay
// uses this to resolve a path for overlaid content it has no path for
// itself.
func (e *Environment) PathFor(qualifier string) (ModulePath, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.paths[qualifier]
	return p, ok
}

// RegisterPath records (or replaces) the ModulePath backing qualifier
// directly, without a FileEvent and regardless of Priority.
func (e *Environment) RegisterPath(qualifier string, path ModulePath) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paths[qualifier] = path
}

// GetRaw returns the un-preprocessed ParseResult for qualifier, parsing
// and caching it on first access. Returns nil if qualifier names no known
// ModulePath.
func (e *Environment) GetRaw(qualifier string) *ParseResult {
	e.mu.RLock()
	if r, ok := e.raw[qualifier]; ok {
		e.mu.RUnlock()
		return r
	}
	path, known := e.paths[qualifier]
	e.mu.RUnlock()
	if !known {
		return nil
	}

	result := e.parse(qualifier, path)

	e.mu.Lock()
	e.raw[qualifier] = result
	e.mu.Unlock()
	return result
}

func (e *Environment) parse(qualifier string, path ModulePath) *ParseResult {
	content, err := e.loader.Read(path)
	if err != nil {
		return &ParseResult{Err: &diagnostics.ParseError{Path: path.RelPath, Line: 1, Col: 1, Message: err.Error()}}
	}
	prog, errs := parser.Parse(path.RelPath, content)
	if len(errs) > 0 {
		first := errs[0]
		return &ParseResult{Err: &diagnostics.ParseError{
			Path: first.File, Line: first.Pos.Line, Col: first.Pos.Column, Message: first.Message,
		}}
	}
	return &ParseResult{Program: prog}
}

// Get returns the preprocessed Source for qualifier, registering dependency
// as a reader when non-nil. A parse failure is represented as a stub module
// exporting __getattr__, per §4.C's failure semantics, rather than nil.
func (e *Environment) Get(qualifier string, dependency *depgraph.Registered) *Source {
	if dependency != nil {
		e.tracker.Read(cacheSource, qualifier, *dependency)
	}

	e.mu.RLock()
	if s, ok := e.processed[qualifier]; ok {
		e.mu.RUnlock()
		return s
	}
	e.mu.RUnlock()

	raw := e.GetRaw(qualifier)
	var source *Source
	if raw == nil {
		return nil
	}
	if !raw.OK() {
		source = anyGetattrStub(qualifier)
	} else {
		e.mu.RLock()
		path := e.paths[qualifier]
		e.mu.RUnlock()
		source = preprocessProgram(path, raw.Program)
	}

	e.mu.Lock()
	e.processed[qualifier] = source
	e.mu.Unlock()
	return source
}

// anyGetattrStub synthesizes the Source a consumer sees for a qualifier
// whose parse failed: a module exporting `def __getattr__(name: str) ->
// Any`, the failure-tolerant placeholder named in §4.C.
func anyGetattrStub(qualifier string) *Source {
	getattr := &ast.FunctionDef{
		Name: config.GetAttrKeyword,
		Parameters: []ast.Parameter{
			{Name: "name", Annotation: &ast.Identifier{Value: "str"}},
		},
		Returns: &ast.Identifier{Value: "Any"},
	}
	return &Source{
		Path:    ModulePath{Qualifier: qualifier},
		Program: &ast.Program{Statements: []ast.Statement{getattr}},
	}
}

// Update applies a batch of FileEvents: it replaces or drops the affected
// ModulePath entries, drops their cached raw/processed results, and
// reports every dependency that must now re-run, always including
// WildcardImport(qualifier) regardless of whether the re-parse actually
// changes exported names (the conservative choice §4.C permits).
func (e *Environment) Update(events []FileEvent) UpdateResult {
	e.mu.Lock()
	var invalidated []string
	var slots []string
	for _, ev := range events {
		qualifier := ev.Path.Qualifier
		invalidated = append(invalidated, qualifier)
		slots = append(slots, qualifier)
		switch ev.Kind {
		case Deleted:
			if existing, ok := e.paths[qualifier]; ok && existing.Priority == ev.Path.Priority {
				delete(e.paths, qualifier)
			}
		default:
			if existing, ok := e.paths[qualifier]; !ok || ev.Path.Priority <= existing.Priority {
				e.paths[qualifier] = ev.Path
			}
		}
		delete(e.raw, qualifier)
		delete(e.processed, qualifier)
	}
	e.mu.Unlock()

	wildcardKeys := make([]depgraph.Registered, 0, len(invalidated))
	for _, qualifier := range invalidated {
		wildcardKeys = append(wildcardKeys, e.tracker.Register(depgraph.Key{Kind: depgraph.WildcardImport, Name: qualifier}))
	}

	triggeredSet := make(map[depgraph.Registered]struct{})
	for _, r := range e.tracker.Invalidate(cacheRaw, slots) {
		triggeredSet[r] = struct{}{}
	}
	for _, r := range e.tracker.Invalidate(cacheSource, slots) {
		triggeredSet[r] = struct{}{}
	}
	for _, r := range wildcardKeys {
		triggeredSet[r] = struct{}{}
	}
	triggered := make([]depgraph.Registered, 0, len(triggeredSet))
	for r := range triggeredSet {
		triggered = append(triggered, r)
	}

	var syntaxErrors []*ParseResult
	for _, qualifier := range invalidated {
		if r := e.GetRaw(qualifier); r != nil && !r.OK() {
			syntaxErrors = append(syntaxErrors, r)
		}
	}

	return UpdateResult{
		InvalidatedModules:    invalidated,
		TriggeredDependencies: triggered,
		SyntaxErrors:          syntaxErrors,
	}
}
