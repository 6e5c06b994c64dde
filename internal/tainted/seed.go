package tainted

import (
	"strings"

	"github.com/pyscope-dev/pyscope/internal/calltarget"
	"github.com/pyscope-dev/pyscope/internal/domain"
	"github.com/pyscope-dev/pyscope/internal/modeldsl"
	"github.com/pyscope-dev/pyscope/internal/taint"
)

// TargetFor converts a parsed model's dotted name into the fixpoint
// Target it seeds. "Class.method" becomes calltarget.Method{Class,Name}
// — matching internal/callgraph's own class-name-only resolution (no
// cross-module qualifier on methods, per the same-module-only
// simplification already adopted there). A bare name becomes
// calltarget.Function{Name: qualifier+"."+target} so an external stub
// declaration (e.g. `os.system`) is addressable by the same dotted name
// internal/tainted's call-site fallback builds from the AST (see
// dottedCallName in analyzer.go).
func TargetFor(qualifier, target string) calltarget.Target {
	if idx := strings.LastIndex(target, "."); idx >= 0 {
		return calltarget.Method{Class: target[:idx], Name: target[idx+1:]}
	}
	full := target
	if qualifier != "" {
		full = qualifier + "." + target
	}
	return calltarget.Function{Name: full}
}

// Seed builds the initial per-target models the fixpoint driver requires
// before Run (every reachable target must have a seeded model or the
// driver raises MissingInitialModelError). Signature models populate
// declared parameter sources/sinks/TITO and a declared return source;
// global models populate a single Object target's root taint. The second
// return value gives each signature-modeled target's parameter names in
// declaration order — the only place that ordering survives, since a stub
// declared purely in the model DSL (e.g. `os.system`) has no backing AST
// for Analyzer.paramNames to fall back to.
func Seed(result *modeldsl.ParseResult) (map[calltarget.Target]*taint.Model, map[calltarget.Target][]string) {
	out := make(map[calltarget.Target]*taint.Model)
	signatures := make(map[calltarget.Target][]string)
	skip := make(map[string]bool, len(result.SkipOverrides))
	for _, s := range result.SkipOverrides {
		skip[s] = true
	}

	for _, m := range result.Models {
		full := m.Target
		if m.Qualifier != "" {
			full = m.Qualifier + "." + m.Target
		}
		target := TargetFor(m.Qualifier, m.Target)
		model := taint.EmptyModel()
		model.Mode = m.Mode

		names := make([]string, len(m.Parameters))
		for i, p := range m.Parameters {
			names[i] = p.Name
			seedParamAnnotation(model, p.Name, p.Taint)
		}
		if m.Return != nil && m.Return.IsSource {
			elem := taint.NewElement(taint.Declaration{LeafNameProvided: len(m.Return.Kinds) > 0}, m.Return.Kinds...)
			model.Forward = domain.Assign(model.Forward, returnPath(), &domain.Tree{Element: elem}, false)
		}
		out[target] = model
		signatures[target] = names

		if skip[full] {
			if method, ok := target.(calltarget.Method); ok {
				override := calltarget.Override{Class: method.Class, Name: method.Name, Kind: method.Kind}
				out[override] = model
				signatures[override] = names
			}
		}
	}

	for _, g := range result.Globals {
		target := calltarget.Object{Name: g.Qualifier + "." + g.Name}
		model := taint.EmptyModel()
		if g.Taint.IsSource {
			model.Forward = &domain.Tree{Element: taint.NewElement(taint.Declaration{}, g.Taint.Kinds...)}
		}
		if g.Taint.IsSink {
			model.Backward.SinkTree = &domain.Tree{Element: taint.NewElement(taint.Declaration{}, g.Taint.Kinds...)}
		}
		out[target] = model
	}

	return out, signatures
}

func seedParamAnnotation(model *taint.Model, name string, t modeldsl.TaintAnnotation) {
	if t.IsSource {
		elem := taint.NewElement(taint.ParameterSource{Name: name}, t.Kinds...)
		model.Forward = domain.Assign(model.Forward, paramPath(name), &domain.Tree{Element: elem}, false)
	}
	if t.IsSink {
		elem := taint.NewElement(taint.Declaration{LeafNameProvided: true}, t.Kinds...)
		model.Backward.SinkTree = domain.Assign(model.Backward.SinkTree, paramPath(name), &domain.Tree{Element: elem}, false)
	}
	if t.IsTito {
		var tags []taint.TitoTag
		if t.LocalReturn {
			tags = append(tags, taint.TitoTag{Kind: taint.LocalReturn})
		}
		for _, idx := range t.TitoUpdates {
			tags = append(tags, taint.TitoTag{Kind: taint.ParameterUpdate, ParamIndex: idx})
		}
		if len(tags) > 0 {
			te := taint.NewTitoElement(tags...)
			model.Backward.TitoTree = domain.Assign(model.Backward.TitoTree, paramPath(name), &domain.Tree{Element: te}, false)
		}
	}
}
