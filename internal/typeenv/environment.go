package typeenv

import (
	"github.com/pyscope-dev/pyscope/internal/depgraph"
	"github.com/pyscope-dev/pyscope/internal/diagnostics"
	"github.com/pyscope-dev/pyscope/internal/sourceenv"
)

// sourceUpdater is satisfied by *sourceenv.Environment and *sourceenv.Overlay:
// both can apply a FileEvent batch and report what it triggered.
type sourceUpdater interface {
	Update(events []sourceenv.FileEvent) sourceenv.UpdateResult
}

// Environment wires the five layers of §4.E together, bottom to top, over
// a shared source environment and dependency tracker.
type Environment struct {
	source  Source
	updater sourceUpdater
	tracker *depgraph.Tracker

	Alias     *AliasLayer
	Classes   *ClassSummaryLayer
	Attrs     *AttributeResolverLayer
	Globals   *AnnotatedGlobalLayer
	TypeCheck *TypeCheckLayer
}

// New constructs a layered Environment over src (also usable for Update),
// sharing tracker with whatever else reads through the same source
// environment.
func New(src interface {
	Source
	sourceUpdater
}, tracker *depgraph.Tracker) *Environment {
	alias := NewAliasLayer(src, tracker)
	classes := NewClassSummaryLayer(src, alias, tracker)
	attrs := NewAttributeResolverLayer(classes, tracker)
	globals := NewAnnotatedGlobalLayer(src, tracker)
	typecheck := NewTypeCheckLayer(src, globals, classes, tracker)
	return &Environment{
		source: src, updater: src, tracker: tracker,
		Alias: alias, Classes: classes, Attrs: attrs, Globals: globals, TypeCheck: typecheck,
	}
}

// Diagnostics returns the type-check diagnostics for qualifier, the
// primary read path most callers want.
func (e *Environment) Diagnostics(qualifier string) []diagnostics.Diagnostic {
	return e.TypeCheck.Get(qualifier, nil)
}

// Update applies a batch of source events through every layer in order,
// propagating each layer's newly-triggered dependency keys to the layer
// above, exactly as §4.E's "uniform update" contract describes. Every
// layer that reads the source environment directly also re-subscribes to
// it on every Get, so a raw source change reaches that layer both via the
// layer below it and via result.TriggeredDependencies directly — both are
// merged into what each Update call sees.
func (e *Environment) Update(events []sourceenv.FileEvent) sourceenv.UpdateResult {
	result := e.updater.Update(events)
	base := result.TriggeredDependencies

	aliasOut := e.Alias.Update(base)
	classesOut := e.Classes.Update(mergeRegistered(base, aliasOut))
	attrsOut := e.Attrs.Update(classesOut)
	globalsOut := e.Globals.Update(base)
	e.TypeCheck.Update(mergeRegistered(base, attrsOut, globalsOut))

	return result
}

func mergeRegistered(sets ...[]depgraph.Registered) []depgraph.Registered {
	seen := make(map[depgraph.Registered]struct{})
	for _, set := range sets {
		for _, r := range set {
			seen[r] = struct{}{}
		}
	}
	out := make([]depgraph.Registered, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	return out
}
