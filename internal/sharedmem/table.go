// Package sharedmem implements the keyed shared-memory table of spec §4.B:
// a process-wide, sharded mapping supporting the oldify/remove_old protocol
// that gives fixpoint workers a consistent per-key view while a new value
// is computed (§3 "Oldify").
package sharedmem

import (
	"fmt"
	"hash/fnv"
	"sync"
)

const shardCount = 32

type entry[V any] struct {
	value   V
	present bool
}

type shard[K comparable, V any] struct {
	mu  sync.RWMutex
	cur map[K]entry[V]
	old map[K]entry[V]
}

// Table is a sharded Key->Value store. Each shard serializes writes to its
// own keys; readers across shards never block each other.
type Table[K comparable, V any] struct {
	shards [shardCount]*shard[K, V]
	keyOf  func(K) uint64
}

// New creates a Table. keyOf hashes a key to pick its shard; pass nil to
// use a generic hash of k's String() form, or of fmt.Sprintf("%v", k) for
// keys without a String method (slower, but keys rarely need
// a custom hash outside hot loops).
func New[K comparable, V any](keyOf func(K) uint64) *Table[K, V] {
	t := &Table[K, V]{keyOf: keyOf}
	for i := range t.shards {
		t.shards[i] = &shard[K, V]{cur: make(map[K]entry[V]), old: make(map[K]entry[V])}
	}
	return t
}

func (t *Table[K, V]) shardFor(k K) *shard[K, V] {
	var h uint64
	if t.keyOf != nil {
		h = t.keyOf(k)
	} else {
		hh := fnv.New64a()
		_, _ = hh.Write([]byte(anyToString(k)))
		h = hh.Sum64()
	}
	return t.shards[h%shardCount]
}

func anyToString(k any) string {
	type stringer interface{ String() string }
	if s, ok := k.(stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", k)
}

// Add inserts or overwrites k's current value. Per §5, each key is written
// by at most one worker per iteration, so this never races within a single
// fixpoint pass; cross-iteration callers must synchronize externally if
// that invariant doesn't hold for their use.
func (t *Table[K, V]) Add(k K, v V) {
	s := t.shardFor(k)
	s.mu.Lock()
	s.cur[k] = entry[V]{value: v, present: true}
	s.mu.Unlock()
}

// Get returns the current value for k, if any.
func (t *Table[K, V]) Get(k K) (V, bool) {
	s := t.shardFor(k)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.cur[k]
	if !ok || !e.present {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetOld returns the previous-iteration value for k, if any.
func (t *Table[K, V]) GetOld(k K) (V, bool) {
	s := t.shardFor(k)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.old[k]
	if !ok || !e.present {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetOrOld returns the current value if present, falling back to the old
// value otherwise — the read mode workers use while a sibling worker's
// write for the same key is still in flight (§4.B).
func (t *Table[K, V]) GetOrOld(k K) (V, bool) {
	if v, ok := t.Get(k); ok {
		return v, true
	}
	return t.GetOld(k)
}

// RemoveBatch deletes keys from the current slot.
func (t *Table[K, V]) RemoveBatch(keys []K) {
	byShard := t.groupByShard(keys)
	for s, ks := range byShard {
		s.mu.Lock()
		for _, k := range ks {
			delete(s.cur, k)
		}
		s.mu.Unlock()
	}
}

// OldifyBatch atomically moves each key's current entry into the old slot.
// After this call Get(k) sees nothing for a key that was not re-Add()ed yet,
// while GetOld(k) yields exactly what Get(k) returned before the call.
func (t *Table[K, V]) OldifyBatch(keys []K) {
	byShard := t.groupByShard(keys)
	for s, ks := range byShard {
		s.mu.Lock()
		for _, k := range ks {
			s.old[k] = s.cur[k]
			delete(s.cur, k)
		}
		s.mu.Unlock()
	}
}

// RemoveOldBatch discards the old slot for keys, freeing the snapshot once
// every reader of this iteration has moved on.
func (t *Table[K, V]) RemoveOldBatch(keys []K) {
	byShard := t.groupByShard(keys)
	for s, ks := range byShard {
		s.mu.Lock()
		for _, k := range ks {
			delete(s.old, k)
		}
		s.mu.Unlock()
	}
}

// Snapshot returns every current (non-old) key/value pair. internal/persist
// uses this to serialize the shared-memory heap between runs; it is not
// used on the driver's own hot path.
func (t *Table[K, V]) Snapshot() map[K]V {
	out := make(map[K]V)
	for _, s := range t.shards {
		s.mu.RLock()
		for k, e := range s.cur {
			if e.present {
				out[k] = e.value
			}
		}
		s.mu.RUnlock()
	}
	return out
}

// LoadSnapshot installs every pair of snapshot as a current entry,
// overwriting whatever a key already held. Used to restore a persisted
// heap before a fixpoint run starts.
func (t *Table[K, V]) LoadSnapshot(snapshot map[K]V) {
	for k, v := range snapshot {
		t.Add(k, v)
	}
}

func (t *Table[K, V]) groupByShard(keys []K) map[*shard[K, V]][]K {
	out := make(map[*shard[K, V]][]K)
	for _, k := range keys {
		s := t.shardFor(k)
		out[s] = append(out[s], k)
	}
	return out
}
