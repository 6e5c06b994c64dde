package typeenv

import (
	"sync"

	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/depgraph"
	"github.com/pyscope-dev/pyscope/internal/typesystem"
)

const cacheAnnotatedGlobal = "typeenv.annotated"

// AnnotatedGlobalLayer is the fourth of the five layers (§4.E): the
// declared type of every module-level name that carries an explicit
// annotation (`x: int = ...`). Unannotated globals are left to the
// type-check layer's own local inference over literals.
type AnnotatedGlobalLayer struct {
	env     Source
	tracker *depgraph.Tracker

	mu    sync.RWMutex
	cache map[string]map[string]typesystem.Type // qualifier -> name -> type
	keyOf map[string]depgraph.Registered
}

func NewAnnotatedGlobalLayer(env Source, tracker *depgraph.Tracker) *AnnotatedGlobalLayer {
	return &AnnotatedGlobalLayer{
		env: env, tracker: tracker,
		cache: make(map[string]map[string]typesystem.Type), keyOf: make(map[string]depgraph.Registered),
	}
}

// Get returns the annotated-global table for qualifier.
func (l *AnnotatedGlobalLayer) Get(qualifier string, dependency *depgraph.Registered) map[string]typesystem.Type {
	selfKey := l.tracker.Register(depgraph.Key{Kind: depgraph.AnnotatedGlobal, Name: qualifier})
	l.tracker.Read(cacheAnnotatedGlobal, qualifier, selfKey)
	if dependency != nil {
		l.tracker.Read(cacheAnnotatedGlobal, qualifier, *dependency)
	}

	l.mu.RLock()
	if t, ok := l.cache[qualifier]; ok {
		l.mu.RUnlock()
		return t
	}
	l.mu.RUnlock()

	source := l.env.Get(qualifier, &selfKey)
	table := make(map[string]typesystem.Type)
	if source != nil {
		for _, stmt := range source.Program.Statements {
			assign, ok := stmt.(*ast.AssignStatement)
			if !ok || assign.Annotation == nil {
				continue
			}
			for _, target := range assign.Targets {
				if ident, ok := target.(*ast.Identifier); ok {
					table[ident.Value] = AnnotationToType(assign.Annotation)
				}
			}
		}
	}

	l.mu.Lock()
	l.cache[qualifier] = table
	l.keyOf[qualifier] = selfKey
	l.mu.Unlock()
	return table
}

// Update mirrors the lower layers.
func (l *AnnotatedGlobalLayer) Update(triggered []depgraph.Registered) []depgraph.Registered {
	triggeredSet := make(map[depgraph.Registered]struct{}, len(triggered))
	for _, r := range triggered {
		triggeredSet[r] = struct{}{}
	}

	l.mu.Lock()
	var slots []string
	for qualifier, key := range l.keyOf {
		if _, hit := triggeredSet[key]; hit {
			delete(l.cache, qualifier)
			delete(l.keyOf, qualifier)
			slots = append(slots, qualifier)
		}
	}
	l.mu.Unlock()

	return l.tracker.Invalidate(cacheAnnotatedGlobal, slots)
}
