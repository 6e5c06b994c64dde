package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRulesCoverCanonicalSourcesAndSinks(t *testing.T) {
	rules := defaultRules()
	assert.Len(t, rules, 3)

	codes := make(map[int]bool)
	for _, r := range rules {
		codes[r.Code] = true
		assert.NotEmpty(t, r.Name)
		assert.NotEmpty(t, r.SourceKinds)
		assert.NotEmpty(t, r.SinkKinds)
		assert.Contains(t, r.SourceKinds, "UserControlled")
	}
	assert.True(t, codes[5001])
	assert.True(t, codes[5002])
	assert.True(t, codes[5003])
}

func TestSelectRulesNarrowsByName(t *testing.T) {
	filtered := selectRules(defaultRules(), []string{"UserControlledSQL"})
	require.Len(t, filtered, 1)
	assert.Equal(t, 5002, filtered[0].Code)
}

func TestSelectRulesEmptyFilterKeepsAll(t *testing.T) {
	assert.Len(t, selectRules(defaultRules(), nil), 3)
}

func TestKindSetsUnionsAcrossRules(t *testing.T) {
	sources, sinks := kindSets(selectRules(defaultRules(), []string{"UserControlledSQL", "UserControlledRequest"}))
	assert.Contains(t, sources, "UserControlled")
	assert.Contains(t, sinks, "SQLInjection")
	assert.Contains(t, sinks, "SSRF")
	assert.NotContains(t, sinks, "OSCommandInjection")
}
