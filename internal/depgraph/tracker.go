package depgraph

import "sync"

// CacheSlot identifies the (cache, key) pair a reader depended on — e.g.
// ("alias-resolver", "pkg.mod.Foo"). It is distinct from Key: a Key is the
// *reason* a read happened, CacheSlot is *what* was read.
type CacheSlot struct {
	Cache string
	Slot  string
}

// Tracker is the process-wide dependency tracker. Every public method is
// safe for concurrent use; §4.D requires that an invalidation batch is
// computed atomically before any recomputation starts (§5), which the
// caller achieves by calling Invalidate once per batch and only then
// re-running the returned dependents.
type Tracker struct {
	mu       sync.Mutex
	interned map[Key]Registered
	byID     []Key
	readers  map[CacheSlot]map[Registered]struct{}
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		interned: make(map[Key]Registered),
		readers:  make(map[CacheSlot]map[Registered]struct{}),
	}
}

// Register interns key, returning a stable handle. Calling Register twice
// with an equal Key returns the same handle.
func (t *Tracker) Register(key Key) Registered {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.interned[key]; ok {
		return r
	}
	r := Registered(len(t.byID))
	t.byID = append(t.byID, key)
	t.interned[key] = r
	return r
}

// Key resolves a Registered handle back to its Key.
func (t *Tracker) Key(r Registered) Key {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byID[r]
}

// Read records dependency as a reader of (cache, slot).
func (t *Tracker) Read(cache, slot string, dependency Registered) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cs := CacheSlot{Cache: cache, Slot: slot}
	set, ok := t.readers[cs]
	if !ok {
		set = make(map[Registered]struct{})
		t.readers[cs] = set
	}
	set[dependency] = struct{}{}
}

// Invalidate returns the union of readers recorded against every (cache,
// slot) pair named by slots, then clears them — so a dependent re-executes
// at most once per invalidation batch and must re-Read to stay subscribed.
func (t *Tracker) Invalidate(cache string, slots []string) []Registered {
	t.mu.Lock()
	defer t.mu.Unlock()

	union := make(map[Registered]struct{})
	for _, slot := range slots {
		cs := CacheSlot{Cache: cache, Slot: slot}
		for r := range t.readers[cs] {
			union[r] = struct{}{}
		}
		delete(t.readers, cs)
	}
	out := make([]Registered, 0, len(union))
	for r := range union {
		out = append(out, r)
	}
	return out
}
