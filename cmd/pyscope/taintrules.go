package main

import (
	"strconv"

	"github.com/pyscope-dev/pyscope/internal/tainted"
)

// defaultRules is the built-in source-kind/sink-kind pairing set analyze
// checks argument taint against, narrowed only by rule_filter — the same
// handful of canonical rule shapes Pysa ships by default (command
// injection, SQL injection, SSRF).
func defaultRules() []tainted.Rule {
	return []tainted.Rule{
		tainted.NewRule(
			"UserControlledCommandExecution", 5001,
			"user-controlled value flows into an OS command",
			[]string{"UserControlled"}, []string{"OSCommandInjection"},
		),
		tainted.NewRule(
			"UserControlledSQL", 5002,
			"user-controlled value flows into a SQL query",
			[]string{"UserControlled"}, []string{"SQLInjection"},
		),
		tainted.NewRule(
			"UserControlledRequest", 5003,
			"user-controlled value flows into an outbound network request",
			[]string{"UserControlled"}, []string{"SSRF"},
		),
	}
}

// selectRules narrows rules to those named in filter, by rule name or by
// numeric code (§4.I "Filtering", `pyscope.yaml`'s rule_filter setting);
// an empty filter keeps every rule.
func selectRules(rules []tainted.Rule, filter []string) []tainted.Rule {
	if len(filter) == 0 {
		return rules
	}
	keep := make(map[string]bool, len(filter))
	for _, f := range filter {
		keep[f] = true
	}
	var out []tainted.Rule
	for _, r := range rules {
		if keep[r.Name] || keep[strconv.Itoa(r.Code)] {
			out = append(out, r)
		}
	}
	return out
}

// kindSets collects the union of rules' source/sink kind vocabularies —
// the kinds a filtered rule set can still reach, everything else being
// dead weight on a parsed model per §4.I.
func kindSets(rules []tainted.Rule) (sources, sinks map[string]bool) {
	sources = make(map[string]bool)
	sinks = make(map[string]bool)
	for _, r := range rules {
		for k := range r.SourceKinds {
			sources[k] = true
		}
		for k := range r.SinkKinds {
			sinks[k] = true
		}
	}
	return sources, sinks
}
