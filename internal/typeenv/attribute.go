package typeenv

import (
	"sync"

	"github.com/pyscope-dev/pyscope/internal/depgraph"
	"github.com/pyscope-dev/pyscope/internal/typesystem"
)

const cacheAttribute = "typeenv.attr"

// Attribute is the result of resolving obj.attr: which class declared it
// and what type it carries. Found is false if no class in the hierarchy
// declares attr.
type Attribute struct {
	DeclaringClass string
	Type           typesystem.Type
	Found          bool
}

// AttributeResolverLayer is the third of the five layers (§4.E): it walks
// a class's declared bases, depth-first, to find the nearest declaration
// of an attribute — a simplified stand-in for full MRO linearization. When
// several bases declare the attribute, the first one found depth-first in
// declaration order wins; no layer reports such ambiguity as a diagnostic.
type AttributeResolverLayer struct {
	classes *ClassSummaryLayer
	tracker *depgraph.Tracker

	mu    sync.RWMutex
	cache map[string]Attribute
	keyOf map[string]depgraph.Registered
}

func NewAttributeResolverLayer(classes *ClassSummaryLayer, tracker *depgraph.Tracker) *AttributeResolverLayer {
	return &AttributeResolverLayer{
		classes: classes, tracker: tracker,
		cache: make(map[string]Attribute), keyOf: make(map[string]depgraph.Registered),
	}
}

// Get resolves className.attr within qualifier, searching declared bases
// (assumed to live in the same module) when the class itself doesn't
// declare it.
func (l *AttributeResolverLayer) Get(qualifier, className, attr string, dependency *depgraph.Registered) Attribute {
	slot := qualifier + "." + className + "." + attr
	selfKey := l.tracker.Register(depgraph.Key{Kind: depgraph.AttributeResolve, Name: slot})
	l.tracker.Read(cacheAttribute, slot, selfKey)
	if dependency != nil {
		l.tracker.Read(cacheAttribute, slot, *dependency)
	}

	l.mu.RLock()
	if a, ok := l.cache[slot]; ok {
		l.mu.RUnlock()
		return a
	}
	l.mu.RUnlock()

	result := l.resolve(qualifier, className, attr, &selfKey, make(map[string]bool))

	l.mu.Lock()
	l.cache[slot] = result
	l.keyOf[slot] = selfKey
	l.mu.Unlock()
	return result
}

func (l *AttributeResolverLayer) resolve(qualifier, className, attr string, dependency *depgraph.Registered, visited map[string]bool) Attribute {
	if visited[className] {
		return Attribute{}
	}
	visited[className] = true

	summary := l.classes.Get(qualifier, className, dependency)
	if summary == nil {
		return Attribute{}
	}
	if t, ok := summary.Fields[attr]; ok {
		return Attribute{DeclaringClass: className, Type: t, Found: true}
	}
	if sig, ok := summary.Methods[attr]; ok {
		return Attribute{DeclaringClass: className, Type: methodType(sig), Found: true}
	}
	for _, base := range summary.Bases {
		if a := l.resolve(qualifier, base, attr, dependency, visited); a.Found {
			return a
		}
	}
	return Attribute{}
}

func methodType(sig MethodSig) typesystem.Type {
	return typesystem.TFunc{Params: sig.Params, ReturnType: sig.Return}
}

// Update mirrors the lower layers.
func (l *AttributeResolverLayer) Update(triggered []depgraph.Registered) []depgraph.Registered {
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

	return l.tracker.Invalidate(cacheAttribute, slots)
}
