package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pyscope-dev/pyscope/internal/calltarget"
	"github.com/pyscope-dev/pyscope/internal/config"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func testSettings(root string) *config.Settings {
	return &config.Settings{
		SearchRoots:   []string{root},
		MaxIterations: 10,
		WorkerChunks:  1,
	}
}

func TestLoadProjectDiscoversModulesAndBuildsGraph(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.pys", "def greet(name):\n    return name\n")
	writeFile(t, root, "pkg/__init__.pys", "")
	writeFile(t, root, "pkg/util.pys", "def helper():\n    return 1\n")

	proj, err := loadProject(testSettings(root))
	require.NoError(t, err)

	require.Contains(t, proj.qualifiers, "app")
	require.Contains(t, proj.qualifiers, "pkg")
	require.Contains(t, proj.qualifiers, "pkg.util")

	targets := proj.targets()
	require.NotEmpty(t, targets)
	found := false
	for _, tg := range targets {
		if fn, ok := tg.(calltarget.Function); ok && fn.Name == "greet" {
			found = true
		}
	}
	require.True(t, found, "expected greet to be enumerated as a call target")
}

func TestLoadProjectReportsTypeCheckDiagnostics(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "bad.pys", "def f():\n    return undefined_thing\n")

	proj, err := loadProject(testSettings(root))
	require.NoError(t, err)

	diags := proj.types.Diagnostics("bad")
	require.NotEmpty(t, diags)
}
