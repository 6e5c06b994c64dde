package modeldsl

// FilterKinds implements §4.I's "Filtering": once a rule_filter narrows
// which rules are of interest, any source/sink kind no remaining rule
// pairs against is dropped from every parsed model/global at registration
// time, rather than carried forward only to never match a rule during
// analysis. keepSources/keepSinks are the union of the remaining rules'
// own kind vocabularies; a nil map keeps every kind for that role (the
// no-filter-configured case, so callers can pass the zero value when
// RuleFilter is empty instead of special-casing the call).
func FilterKinds(result *ParseResult, keepSources, keepSinks map[string]bool) *ParseResult {
	out := &ParseResult{
		Queries:       result.Queries,
		SkipOverrides: result.SkipOverrides,
		Errors:        result.Errors,
	}
	for _, m := range result.Models {
		m.Parameters = filterParams(m.Parameters, keepSources, keepSinks)
		if m.Return != nil {
			ret := filterAnnotation(*m.Return, keepSources, keepSinks)
			m.Return = &ret
		}
		out.Models = append(out.Models, m)
	}
	for _, g := range result.Globals {
		g.Taint = filterAnnotation(g.Taint, keepSources, keepSinks)
		out.Globals = append(out.Globals, g)
	}
	return out
}

func filterParams(params []ParamAnnotation, keepSources, keepSinks map[string]bool) []ParamAnnotation {
	if len(params) == 0 {
		return params
	}
	out := make([]ParamAnnotation, len(params))
	for i, p := range params {
		p.Taint = filterAnnotation(p.Taint, keepSources, keepSinks)
		out[i] = p
	}
	return out
}

// filterAnnotation narrows ann.Kinds to whichever keep set applies to its
// role(s), clearing IsSource/IsSink when nothing survives. TaintInTaintOut
// annotations carry no Kinds vocabulary and pass through untouched.
func filterAnnotation(ann TaintAnnotation, keepSources, keepSinks map[string]bool) TaintAnnotation {
	if !ann.IsSource && !ann.IsSink {
		return ann
	}
	var keep map[string]bool
	switch {
	case ann.IsSource && ann.IsSink:
		keep = unionKeep(keepSources, keepSinks)
	case ann.IsSource:
		keep = keepSources
	default:
		keep = keepSinks
	}
	ann.Kinds = keepKinds(ann.Kinds, keep)
	if len(ann.Kinds) == 0 {
		ann.IsSource = false
		ann.IsSink = false
	}
	return ann
}

func keepKinds(kinds []string, keep map[string]bool) []string {
	if keep == nil {
		return kinds
	}
	out := kinds[:0:0]
	for _, k := range kinds {
		if keep[k] {
			out = append(out, k)
		}
	}
	return out
}

func unionKeep(a, b map[string]bool) map[string]bool {
	if a == nil && b == nil {
		return nil
	}
	out := make(map[string]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}
