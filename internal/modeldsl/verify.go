package modeldsl

import "github.com/pyscope-dev/pyscope/internal/diagnostics"

// SignatureEnv is the subset of the type environment §4.I's parser checks
// a signature model against: does the dotted target exist, and if so what
// are its declared parameter names in order. internal/typeenv's layers
// satisfy this with a thin adapter; modeldsl itself never imports typeenv
// so a DSL document can be parsed and unit-tested with no environment at
// all (Parse) and verified against one only when a caller wants that
// (Verify), matching §4.I's two-stage description (parse, then check
// against the environment).
type SignatureEnv interface {
	Lookup(qualifier, target string) (params []string, ok bool)
}

// Verify checks every parsed SignatureModel and GlobalModel against env,
// appending a *diagnostics.ModelVerificationError to result.Errors for
// each problem found. It never removes a model from result — a batch
// with an invalid rule still registers every other rule (§8 S6).
func Verify(result *ParseResult, env SignatureEnv) {
	for _, m := range result.Models {
		verifySignatureModel(result, m, env)
	}
	for _, g := range result.Globals {
		if env == nil {
			continue
		}
		if _, ok := env.Lookup(g.Qualifier, g.Name); !ok {
			result.Errors = append(result.Errors, &diagnostics.ModelVerificationError{
				Kind:     diagnostics.NotInEnvironment,
				Target:   g.Qualifier + "." + g.Name,
				Location: g.Loc,
				Detail:   "no global or attribute named " + g.Name + " in " + g.Qualifier,
			})
		}
	}
}

func verifySignatureModel(result *ParseResult, m SignatureModel, env SignatureEnv) {
	if env == nil {
		return
	}
	target := m.Target
	if m.Qualifier != "" {
		target = m.Qualifier + "." + m.Target
	}
	params, ok := env.Lookup(m.Qualifier, m.Target)
	if !ok {
		result.Errors = append(result.Errors, &diagnostics.ModelVerificationError{
			Kind:     diagnostics.NotInEnvironment,
			Target:   target,
			Location: m.Loc,
			Detail:   "no function or method named " + m.Target + " in " + m.Qualifier,
		})
		return
	}

	declared := make(map[string]bool, len(params))
	for _, p := range params {
		declared[p] = true
	}
	for _, pm := range m.Parameters {
		if !declared[pm.Name] {
			result.Errors = append(result.Errors, &diagnostics.ModelVerificationError{
				Kind:     diagnostics.ParameterMismatch,
				Reason:   diagnostics.UnexpectedKeyword,
				Target:   target,
				Location: pm.Loc,
				Detail:   "no parameter named " + pm.Name + " on " + target,
			})
		}
	}
}
