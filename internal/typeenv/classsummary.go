package typeenv

import (
	"sync"

	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/depgraph"
	"github.com/pyscope-dev/pyscope/internal/typesystem"
)

const cacheClassSummary = "typeenv.class"

// MethodSig is a method's declared parameter and return types.
type MethodSig struct {
	Params []typesystem.Type
	Return typesystem.Type
}

// ClassSummary is everything the layers above need about one class
// without re-walking its AST: its base qualifiers (unresolved; the
// attribute resolver walks them), field annotations, and method
// signatures.
type ClassSummary struct {
	Bases   []string
	Fields  map[string]typesystem.Type
	Methods map[string]MethodSig
}

// ClassSummaryLayer is the second of the five layers (§4.E).
type ClassSummaryLayer struct {
	env     Source
	alias   *AliasLayer
	tracker *depgraph.Tracker

	mu    sync.RWMutex
	cache map[string]*ClassSummary // "qualifier.ClassName" -> summary
	keyOf map[string]depgraph.Registered
}

func NewClassSummaryLayer(env Source, alias *AliasLayer, tracker *depgraph.Tracker) *ClassSummaryLayer {
	return &ClassSummaryLayer{
		env: env, alias: alias, tracker: tracker,
		cache: make(map[string]*ClassSummary), keyOf: make(map[string]depgraph.Registered),
	}
}

// Get returns the ClassSummary for qualifier.className, or nil if no such
// class is declared in that module.
func (l *ClassSummaryLayer) Get(qualifier, className string, dependency *depgraph.Registered) *ClassSummary {
	slot := qualifier + "." + className
	selfKey := l.tracker.Register(depgraph.Key{Kind: depgraph.ClassSummary, Name: slot})
	l.tracker.Read(cacheClassSummary, slot, selfKey)
	if dependency != nil {
		l.tracker.Read(cacheClassSummary, slot, *dependency)
	}

	l.mu.RLock()
	if s, ok := l.cache[slot]; ok {
		l.mu.RUnlock()
		return s
	}
	l.mu.RUnlock()

	source := l.env.Get(qualifier, &selfKey)
	var summary *ClassSummary
	if source != nil {
		for _, stmt := range source.Program.Statements {
			cls, ok := stmt.(*ast.ClassDef)
			if !ok || cls.Name != className {
				continue
			}
			summary = l.summarize(cls)
			break
		}
	}

	l.mu.Lock()
	l.cache[slot] = summary
	l.keyOf[slot] = selfKey
	l.mu.Unlock()
	return summary
}

func (l *ClassSummaryLayer) summarize(cls *ast.ClassDef) *ClassSummary {
	summary := &ClassSummary{Fields: make(map[string]typesystem.Type), Methods: make(map[string]MethodSig)}
	for _, base := range cls.Bases {
		if ident, ok := base.(*ast.Identifier); ok {
			summary.Bases = append(summary.Bases, ident.Value)
		}
	}
	for _, stmt := range cls.Body {
		switch n := stmt.(type) {
		case *ast.FunctionDef:
			var params []typesystem.Type
			for i, p := range n.Parameters {
				if i == 0 && p.Name == "self" {
					continue
				}
				params = append(params, AnnotationToType(p.Annotation))
			}
			summary.Methods[n.Name] = MethodSig{Params: params, Return: AnnotationToType(n.Returns)}
		case *ast.AssignStatement:
			if n.Annotation == nil {
				continue
			}
			for _, target := range n.Targets {
				if ident, ok := target.(*ast.Identifier); ok {
					summary.Fields[ident.Value] = AnnotationToType(n.Annotation)
				}
			}
		}
	}
	return summary
}

// Update mirrors AliasLayer.Update: drop entries dependent on a triggered
// key, report the union of this layer's own readers upward.
func (l *ClassSummaryLayer) Update(triggered []depgraph.Registered) []depgraph.Registered {
	triggeredSet := make(map[depgraph.Registered]struct{}, len(triggered))
	for _, r := range triggered {
		triggeredSet[r] = struct{}{}
	}

	l.mu.Lock()
	var slots []string
	for slot, key := range l.keyOf {
		if _, hit := triggeredSet[key]; hit {
			delete(l.cache, slot)
			delete(l.keyOf, slot)
			slots = append(slots, slot)
		}
	}
	l.mu.Unlock()

	return l.tracker.Invalidate(cacheClassSummary, slots)
}
