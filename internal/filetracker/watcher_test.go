package filetracker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyscope-dev/pyscope/internal/sourceenv"
)

func TestScanFindsSourceFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.pys"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "__init__.pys"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("ignored"), 0o644))

	w, err := New([]string{root})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	events, err := w.Scan()
	require.NoError(t, err)
	require.Len(t, events, 2)

	byQualifier := map[string]sourceenv.FileEvent{}
	for _, ev := range events {
		byQualifier[ev.Path.Qualifier] = ev
	}
	assert.Contains(t, byQualifier, "app")
	assert.Contains(t, byQualifier, "pkg")
	assert.True(t, byQualifier["pkg"].Path.IsInit)
}

func TestWatcherReportsCreatedFile(t *testing.T) {
	root := t.TempDir()

	w, err := New([]string{root})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { w.Close() })

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.pys"), []byte("y = 2\n"), 0o644))

	select {
	case batch := <-w.Events():
		require.Len(t, batch, 1)
		assert.Equal(t, "new", batch[0].Path.Qualifier)
		assert.Equal(t, sourceenv.CreatedOrChanged, batch[0].Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watcher event")
	}
}
