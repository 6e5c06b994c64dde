package sourceenv

import (
	"sync"

	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/depgraph"
	"github.com/pyscope-dev/pyscope/internal/diagnostics"
	"github.com/pyscope-dev/pyscope/internal/parser"
)

// Overlay layers in-memory content over a parent Environment (§4.C
// "Overlay"). Queries for a qualifier with overlaid content are served
// entirely from the overlay's own cache; everything else falls through to
// parent. The overlay keeps its own Tracker so that updating overlaid code
// never invalidates readers of the parent's un-overlaid results.
type Overlay struct {
	parent  *Environment
	tracker *depgraph.Tracker

	mu        sync.RWMutex
	code      map[string]string
	raw       map[string]*ParseResult
	processed map[string]*Source
}

// NewOverlay constructs an Overlay with no content yet supplied; every
// query falls through to parent until UpdateOverlaidCode is called.
func NewOverlay(parent *Environment) *Overlay {
	return &Overlay{
		parent:    parent,
		tracker:   depgraph.NewTracker(),
		code:      make(map[string]string),
		raw:       make(map[string]*ParseResult),
		processed: make(map[string]*Source),
	}
}

func (o *Overlay) isOverlaid(qualifier string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.code[qualifier]
	return ok
}

// GetRaw returns the overlaid parse of qualifier if present, else falls
// through to the parent Environment.
func (o *Overlay) GetRaw(qualifier string) *ParseResult {
	if !o.isOverlaid(qualifier) {
		return o.parent.GetRaw(qualifier)
	}
	o.mu.RLock()
	if r, ok := o.raw[qualifier]; ok {
		o.mu.RUnlock()
		return r
	}
	content := o.code[qualifier]
	o.mu.RUnlock()

	path, _ := o.parent.PathFor(qualifier)
	result := parseContent(qualifier, path, content)

	o.mu.Lock()
	o.raw[qualifier] = result
	o.mu.Unlock()
	return result
}

func parseContent(qualifier string, path ModulePath, content string) *ParseResult {
	prog, errs := parser.Parse(path.RelPath, content)
	if len(errs) > 0 {
		first := errs[0]
		return &ParseResult{Err: &diagnostics.ParseError{
			Path: first.File, Line: first.Pos.Line, Col: first.Pos.Column, Message: first.Message,
		}}
	}
	return &ParseResult{Program: prog}
}

// Get returns the preprocessed Source for qualifier, reading through the
// overlay's own view when overlaid content exists and through the parent
// otherwise. Dependencies registered while reading overlaid content are
// recorded against the overlay's own Tracker, never the parent's.
func (o *Overlay) Get(qualifier string, dependency *depgraph.Registered) *Source {
	if !o.isOverlaid(qualifier) {
		return o.parent.Get(qualifier, dependency)
	}

	if dependency != nil {
		o.tracker.Read(cacheSource, qualifier, *dependency)
	}

	o.mu.RLock()
	if s, ok := o.processed[qualifier]; ok {
		o.mu.RUnlock()
		return s
	}
	o.mu.RUnlock()

	raw := o.GetRaw(qualifier)
	var source *Source
	if !raw.OK() {
		source = anyGetattrStub(qualifier)
	} else {
		path, _ := o.parent.PathFor(qualifier)
		source = preprocessProgram(path, raw.Program)
	}

	o.mu.Lock()
	o.processed[qualifier] = source
	o.mu.Unlock()
	return source
}

func preprocessProgram(path ModulePath, prog *ast.Program) *Source {
	var wildcards []string
	for _, stmt := range prog.Statements {
		if imp, ok := stmt.(*ast.ImportFromStatement); ok && imp.Wildcard {
			wildcards = append(wildcards, imp.Qualifier)
		}
	}
	return &Source{Path: path, Program: prog, Mode: prog.Mode, Wildcards: wildcards}
}

// UpdateOverlaidCode supplies in-memory content for a subset of qualifiers
// and invalidates anything the overlay's own Tracker recorded as having
// read the prior overlaid value (§4.C "update_overlaid_code").
func (o *Overlay) UpdateOverlaidCode(codeUpdates map[string]string) UpdateResult {
	o.mu.Lock()
	var invalidated []string
	var slots []string
	for qualifier, content := range codeUpdates {
		o.code[qualifier] = content
		delete(o.raw, qualifier)
		delete(o.processed, qualifier)
		invalidated = append(invalidated, qualifier)
		slots = append(slots, qualifier)
	}
	o.mu.Unlock()

	wildcardKeys := make([]depgraph.Registered, 0, len(invalidated))
	for _, qualifier := range invalidated {
		wildcardKeys = append(wildcardKeys, o.tracker.Register(depgraph.Key{Kind: depgraph.WildcardImport, Name: qualifier}))
	}

	triggeredSet := make(map[depgraph.Registered]struct{})
	for _, r := range o.tracker.Invalidate(cacheRaw, slots) {
		triggeredSet[r] = struct{}{}
	}
	for _, r := range o.tracker.Invalidate(cacheSource, slots) {
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
		if r := o.GetRaw(qualifier); r != nil && !r.OK() {
			syntaxErrors = append(syntaxErrors, r)
		}
	}

	return UpdateResult{InvalidatedModules: invalidated, TriggeredDependencies: triggered, SyntaxErrors: syntaxErrors}
}
