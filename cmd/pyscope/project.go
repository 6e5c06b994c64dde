package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/callgraph"
	"github.com/pyscope-dev/pyscope/internal/calltarget"
	"github.com/pyscope-dev/pyscope/internal/config"
	"github.com/pyscope-dev/pyscope/internal/depgraph"
	"github.com/pyscope-dev/pyscope/internal/filetracker"
	"github.com/pyscope-dev/pyscope/internal/modeldsl"
	"github.com/pyscope-dev/pyscope/internal/sourceenv"
	"github.com/pyscope-dev/pyscope/internal/typeenv"
)

// multiRootLoader reads ModulePath content relative to whichever search
// root registered it (tracked via ModulePath.Priority, the root's index),
// so one sourceenv.Environment can span every root in settings.SearchRoots
// the way internal/filetracker's batches expect.
type multiRootLoader struct {
	roots []string
}

func (l multiRootLoader) Read(path sourceenv.ModulePath) (string, error) {
	root := "."
	if path.Priority >= 0 && path.Priority < len(l.roots) {
		root = l.roots[path.Priority]
	}
	full := path.RelPath
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, path.RelPath)
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// project bundles every layer a CLI command reads from, built once per
// invocation over the project's configured search roots.
type project struct {
	settings   *config.Settings
	source     *sourceenv.Environment
	types      *typeenv.Environment
	graph      *callgraph.Graph
	programs   map[string]*ast.Program
	qualifiers []string
}

// loadProject walks every search root, parses every module it finds, and
// wires the layered source/type/call-graph environments over them.
func loadProject(settings *config.Settings) (*project, error) {
	tracker := depgraph.NewTracker()
	loader := multiRootLoader{roots: settings.SearchRoots}
	source := sourceenv.New(loader, tracker)

	watcher, err := filetracker.New(settings.SearchRoots)
	if err != nil {
		return nil, fmt.Errorf("starting file tracker: %w", err)
	}
	defer watcher.Close()

	events, err := watcher.Scan()
	if err != nil {
		return nil, fmt.Errorf("scanning search roots: %w", err)
	}

	types := typeenv.New(source, tracker)
	types.Update(events)

	programs := make(map[string]*ast.Program, len(events))
	qualifiers := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.Kind == sourceenv.Deleted {
			continue
		}
		q := ev.Path.Qualifier
		src := source.Get(q, nil)
		if src == nil || src.Program == nil {
			continue
		}
		programs[q] = src.Program
		qualifiers = append(qualifiers, q)
	}

	builder := callgraph.NewBuilder()
	for q, prog := range programs {
		builder.Add(q, prog)
	}
	builder.ResolveOverrides()

	return &project{
		settings:   settings,
		source:     source,
		types:      types,
		graph:      builder.Graph(),
		programs:   programs,
		qualifiers: qualifiers,
	}, nil
}

// targets enumerates every module-level Function and every class's
// directly-declared Method across the project's modules, the work list a
// fixpoint run starts from. Override targets are not enumerated, so a run
// started from this list computes no Override model.
func (p *project) targets() []calltarget.Target {
	var out []calltarget.Target
	for _, prog := range p.programs {
		for _, stmt := range prog.Statements {
			switch n := stmt.(type) {
			case *ast.FunctionDef:
				out = append(out, calltarget.Function{Name: n.Name})
			case *ast.ClassDef:
				for _, s := range n.Body {
					if fn, ok := s.(*ast.FunctionDef); ok {
						out = append(out, calltarget.Method{Class: n.Name, Name: fn.Name})
					}
				}
			}
		}
	}
	return out
}

// loadTaintRules parses every configured `.pysa`-style document, combines
// their models/globals/queries/skip-overrides, then evaluates every parsed
// ModelQuery against candidates and folds the generated SignatureModels
// into the combined result — so a query rule seeds models the same way a
// hand-written `def` declaration would (§4.I case 3).
func loadTaintRules(settings *config.Settings, candidates []modeldsl.Candidate) (*modeldsl.ParseResult, error) {
	combined := &modeldsl.ParseResult{}
	for _, path := range settings.TaintModelPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading taint model %s: %w", path, err)
		}
		result := modeldsl.Parse(path, string(data))
		combined.Models = append(combined.Models, result.Models...)
		combined.Globals = append(combined.Globals, result.Globals...)
		combined.Queries = append(combined.Queries, result.Queries...)
		combined.SkipOverrides = append(combined.SkipOverrides, result.SkipOverrides...)
		combined.Errors = append(combined.Errors, result.Errors...)
	}
	combined.Models = append(combined.Models, modeldsl.EvaluateQueries(combined.Queries, candidates)...)

	if len(settings.RuleFilter) > 0 {
		rules := selectRules(defaultRules(), settings.RuleFilter)
		keepSources, keepSinks := kindSets(rules)
		combined = modeldsl.FilterKinds(combined, keepSources, keepSinks)
	}
	return combined, nil
}

// collectCandidates enumerates every function/method defined across the
// project's modules as a modeldsl.Candidate, the work list ModelQuery
// matching runs against. It walks the same FunctionDef/ClassDef shapes
// targets() does, adding the annotation/decorator/base detail constraint
// matching needs.
func (p *project) collectCandidates() []modeldsl.Candidate {
	var out []modeldsl.Candidate
	for _, prog := range p.programs {
		for _, stmt := range prog.Statements {
			switch n := stmt.(type) {
			case *ast.FunctionDef:
				out = append(out, candidateFromFunction(n, "functions", ""))
			case *ast.ClassDef:
				var bases []string
				for _, b := range n.Bases {
					if name, ok := identifierName(b); ok {
						bases = append(bases, name)
					}
				}
				for _, s := range n.Body {
					if fn, ok := s.(*ast.FunctionDef); ok {
						c := candidateFromFunction(fn, "methods", n.Name)
						c.Target = n.Name + "." + fn.Name
						c.Bases = bases
						out = append(out, c)
					}
				}
			}
		}
	}
	return out
}

func candidateFromFunction(fn *ast.FunctionDef, kind, class string) modeldsl.Candidate {
	c := modeldsl.Candidate{Target: fn.Name, Kind: kind, Class: class}
	for _, p := range fn.Parameters {
		param := modeldsl.CandidateParam{Name: p.Name}
		if name, ok := identifierName(p.Annotation); ok {
			param.Annotation = name
		}
		c.Parameters = append(c.Parameters, param)
	}
	if name, ok := identifierName(fn.Returns); ok {
		c.Returns = name
	}
	for _, d := range fn.Decorators {
		c.Decorators = append(c.Decorators, d.Name)
	}
	return c
}

// identifierName reduces an annotation/base expression to its leaf name —
// the common `str`, `int`, `SomeClass` case constraint matching cares
// about; anything compound (subscripted generics, attribute chains) has
// no single leaf name and is left unmatched.
func identifierName(e ast.Expression) (string, bool) {
	id, ok := e.(*ast.Identifier)
	if !ok {
		return "", false
	}
	return id.Value, true
}
