package tainted

// Rule is one user-configured taint rule (§1 "security issues according
// to user-configured rules"): a source-kind/sink-kind pairing that fires
// a diagnostic with Code when a tainted value reaches a matching sink.
// Rule codes live above 2000 by convention, per diagnostics.go's note
// that taint-rule codes are assigned at a rule's own registration rather
// than living alongside the fixed type-check code constants.
type Rule struct {
	Name        string
	Code        int
	Message     string
	SourceKinds map[string]struct{}
	SinkKinds   map[string]struct{}
}

// NewRule builds a Rule from plain kind-name lists.
func NewRule(name string, code int, message string, sources, sinks []string) Rule {
	r := Rule{
		Name: name, Code: code, Message: message,
		SourceKinds: make(map[string]struct{}, len(sources)),
		SinkKinds:   make(map[string]struct{}, len(sinks)),
	}
	for _, s := range sources {
		r.SourceKinds[s] = struct{}{}
	}
	for _, s := range sinks {
		r.SinkKinds[s] = struct{}{}
	}
	return r
}

// Matches reports whether some source kind and some sink kind named by
// the rule both appear in the given sets.
func (r Rule) Matches(sourceKinds, sinkKinds map[string]struct{}) bool {
	for k := range sourceKinds {
		if _, ok := r.SourceKinds[k]; !ok {
			continue
		}
		for j := range sinkKinds {
			if _, ok := r.SinkKinds[j]; ok {
				return true
			}
		}
	}
	return false
}
