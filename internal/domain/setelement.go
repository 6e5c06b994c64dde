package domain

// StringSet is a reference Element: a finite powerset lattice over string
// labels. It is used by this package's own tests and is a convenient base
// for product elements elsewhere (see internal/taint) that need "a set of
// names" as one lattice factor.
type StringSet map[string]struct{}

// NewStringSet builds a StringSet from the given members.
func NewStringSet(members ...string) StringSet {
	s := make(StringSet, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

func (s StringSet) IsBottom() bool { return len(s) == 0 }

func (s StringSet) Join(other Element) Element {
	o, ok := other.(StringSet)
	if !ok || o == nil {
		return s
	}
	out := make(StringSet, len(s)+len(o))
	for k := range s {
		out[k] = struct{}{}
	}
	for k := range o {
		out[k] = struct{}{}
	}
	return out
}

// Widen delegates to Join: StringSet has finite height bounded by the
// number of distinct labels ever introduced, so no separate widening
// combinator is required.
func (s StringSet) Widen(other Element) Element { return s.Join(other) }

func (s StringSet) LessOrEqual(other Element) bool {
	o, ok := other.(StringSet)
	if !ok {
		return s.IsBottom()
	}
	for k := range s {
		if _, found := o[k]; !found {
			return false
		}
	}
	return true
}

func (s StringSet) Subtract(other Element) Element {
	o, ok := other.(StringSet)
	if !ok || o == nil {
		return s
	}
	out := make(StringSet)
	for k := range s {
		if _, found := o[k]; !found {
			out[k] = struct{}{}
		}
	}
	return out
}

func (s StringSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}
