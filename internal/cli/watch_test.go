package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/textfsm/internal/testutil"
)

func TestFileWatcher_ReportsWatchedFile(t *testing.T) {
	dir := t.TempDir()
	watched := testutil.WriteFile(t, dir, "show.textfsm", "Start\n")
	other := filepath.Join(dir, "notes.txt")

	w, err := newFileWatcher([]string{watched}, testutil.DiscardLogger())
	require.NoError(t, err)
	defer w.Close()

	changed := make(chan string, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(path string) {
			select {
			case changed <- path:
			default:
			}
		})
	}()

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(watched, []byte("Start\n  ^x -> Record\n"), 0o644))

	select {
	case path := <-changed:
		abs, err := filepath.Abs(watched)
		require.NoError(t, err)
		assert.Equal(t, abs, path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFileWatcher_MissingDirectory(t *testing.T) {
	_, err := newFileWatcher([]string{filepath.Join(t.TempDir(), "none", "x.textfsm")}, testutil.DiscardLogger())
	require.Error(t, err)
}
