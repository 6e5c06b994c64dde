package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pyscope-dev/pyscope/internal/depgraph"
	"github.com/pyscope-dev/pyscope/internal/diagnostics"
	"github.com/pyscope-dev/pyscope/internal/sourceenv"
	"github.com/pyscope-dev/pyscope/internal/typeenv"
)

func TestHandleRPCDidOpenThenCheckQualifier(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.pys", "def f():\n    return 1\n")

	proj, err := loadProject(testSettings(root))
	require.NoError(t, err)

	overlay := sourceenv.NewOverlay(proj.source)
	adapter := newOverlayAdapter(overlay)
	types := typeenv.New(adapter, depgraph.NewTracker())

	openResp := handleRPC(adapter, types, rpcRequest{
		ID:     1,
		Method: "didOpen",
		Params: map[string]string{"qualifier": "app", "content": "def f():\n    return undefined_thing\n"},
	})
	require.Empty(t, openResp.Error)

	checkResp := handleRPC(adapter, types, rpcRequest{
		ID:     2,
		Method: "checkQualifier",
		Params: map[string]string{"qualifier": "app"},
	})
	require.Empty(t, checkResp.Error)

	ds, ok := checkResp.Result.([]diagnostics.Diagnostic)
	require.True(t, ok)
	require.NotEmpty(t, ds, "overlaid edit introducing an undefined name should surface a diagnostic")
}

func TestHandleRPCUnknownMethod(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.pys", "def f():\n    return 1\n")

	proj, err := loadProject(testSettings(root))
	require.NoError(t, err)

	overlay := sourceenv.NewOverlay(proj.source)
	adapter := newOverlayAdapter(overlay)
	types := typeenv.New(adapter, depgraph.NewTracker())

	resp := handleRPC(adapter, types, rpcRequest{ID: 3, Method: "frobnicate"})
	require.NotEmpty(t, resp.Error)
}
