package ml

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestArtifactWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	writeTestArtifacts(t, dir)
	clfPath := filepath.Join(dir, DefaultClassifierFile)

	changed := make(chan string, 8)
	w, err := WatchArtifacts([]string{clfPath, filepath.Join(dir, DefaultVectorizerFile)}, zap.NewNop(),
		func(path string, _ fsnotify.Op) { changed <- path })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(clfPath, []byte("{}"), 0o600))

	select {
	case path := <-changed:
		require.Equal(t, clfPath, path)
	case <-time.After(5 * time.Second):
		t.Fatal("expected change notification")
	}
}

func TestArtifactWatcherClose(t *testing.T) {
	dir := t.TempDir()
	w, err := WatchArtifacts([]string{filepath.Join(dir, DefaultClassifierFile)}, zap.NewNop(), nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
