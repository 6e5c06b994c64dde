package typeenv

import (
	"sync"

	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/depgraph"
	"github.com/pyscope-dev/pyscope/internal/sourceenv"
)

const cacheAlias = "typeenv.alias"

// AliasLayer is the bottommost of the five layers (§4.E): it maps every
// name a module's `import`/`from import` statements bind to the qualifier
// it actually resolves to.
type AliasLayer struct {
	env     Source
	tracker *depgraph.Tracker

	mu    sync.RWMutex
	cache map[string]map[string]string // qualifier -> local name -> resolved qualifier
	keyOf map[string]depgraph.Registered
}

// Source is the subset of sourceenv.Environment/Overlay this layer (and
// every layer above it) reads through.
type Source interface {
	Get(qualifier string, dependency *depgraph.Registered) *sourceenv.Source
}

func NewAliasLayer(env Source, tracker *depgraph.Tracker) *AliasLayer {
	return &AliasLayer{env: env, tracker: tracker, cache: make(map[string]map[string]string), keyOf: make(map[string]depgraph.Registered)}
}

// Get returns the alias table for qualifier, computing it on first access.
func (l *AliasLayer) Get(qualifier string, dependency *depgraph.Registered) map[string]string {
	selfKey := l.tracker.Register(depgraph.Key{Kind: depgraph.AliasRegister, Name: qualifier})
	l.tracker.Read(cacheAlias, qualifier, selfKey)
	if dependency != nil {
		l.tracker.Read(cacheAlias, qualifier, *dependency)
	}

	l.mu.RLock()
	if t, ok := l.cache[qualifier]; ok {
		l.mu.RUnlock()
		return t
	}
	l.mu.RUnlock()

	source := l.env.Get(qualifier, &selfKey)
	table := make(map[string]string)
	if source != nil {
		for _, stmt := range source.Program.Statements {
			switch imp := stmt.(type) {
			case *ast.ImportStatement:
				local := imp.Qualifier
				if imp.Alias != nil {
					local = imp.Alias.Value
				}
				table[local] = imp.Qualifier
			case *ast.ImportFromStatement:
				for _, n := range imp.Names {
					local := n.Name
					if n.Alias != "" {
						local = n.Alias
					}
					table[local] = imp.Qualifier + "." + n.Name
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

// Update drops the alias table for any qualifier whose dependency key is
// in triggered, and returns this layer's own readers of those entries —
// the set the class-summary layer above must, in turn, recompute.
func (l *AliasLayer) Update(triggered []depgraph.Registered) []depgraph.Registered {
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

	return l.tracker.Invalidate(cacheAlias, slots)
}
