package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyscope-dev/pyscope/internal/config"
)

func TestCacheEpochIgnoresSearchRoots(t *testing.T) {
	a := &config.Settings{SearchRoots: []string{"/one"}}
	b := &config.Settings{SearchRoots: []string{"/two"}}
	assert.Equal(t, cacheEpoch(a), cacheEpoch(b))
}

func TestLoadTaintRulesWithNoModelPathsReturnsEmptyResult(t *testing.T) {
	settings := &config.Settings{}
	result, err := loadTaintRules(settings, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Models)
	assert.Empty(t, result.Globals)
	assert.Empty(t, result.Queries)
	assert.Empty(t, result.Errors)
}

func TestLoadTaintRulesParsesConfiguredFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "rules.pysa", `def os.system(command: TaintSink[OSCommandInjection]): ...`)

	settings := &config.Settings{TaintModelPaths: []string{root + "/rules.pysa"}}
	result, err := loadTaintRules(settings, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Models)
}

func TestLoadTaintRulesEvaluatesModelQueriesAgainstCandidates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "rules.pysa", `ModelQuery(
	name = "handlers_return_user_controlled",
	find = "functions",
	where = [NameConstraint(regex = "^handle_.*")],
	model = [Returns(TaintSource[UserControlled])]
)`)
	writeFile(t, root, "app.pys", "def handle_one():\n    return 1\n\ndef handle_two():\n    return 2\n\ndef other():\n    return 3\n")

	settings := &config.Settings{SearchRoots: []string{root}, TaintModelPaths: []string{root + "/rules.pysa"}}
	proj, err := loadProject(settings)
	require.NoError(t, err)

	result, err := loadTaintRules(settings, proj.collectCandidates())
	require.NoError(t, err)
	require.Len(t, result.Queries, 1)

	matched := 0
	for _, m := range result.Models {
		if m.Target == "handle_one" || m.Target == "handle_two" {
			matched++
			require.NotNil(t, m.Return)
			assert.True(t, m.Return.IsSource)
			assert.Contains(t, m.Return.Kinds, "UserControlled")
		}
	}
	assert.Equal(t, 2, matched)
}
