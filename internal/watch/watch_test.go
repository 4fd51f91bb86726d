package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websublime/vite-open-api-server-sub004/pkg/logging"
)

func startWatcher(t *testing.T, dir string) *Watcher {
	t.Helper()
	w, err := New(50*time.Millisecond, logging.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Add(dir))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Close()
	})
	go w.Run(ctx)
	return w
}

func awaitBatch(t *testing.T, w *Watcher) []Event {
	t.Helper()
	select {
	case batch := <-w.Events():
		return batch
	case <-time.After(3 * time.Second):
		t.Fatal("no batch received")
		return nil
	}
}

func TestCreateAndWrite(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	path := filepath.Join(dir, "pets.handler.js")
	require.NoError(t, os.WriteFile(path, []byte("exports.a = 1"), 0o644))

	batch := awaitBatch(t, w)
	require.NotEmpty(t, batch)
	assert.Equal(t, path, batch[0].Path)
	assert.Equal(t, Add, batch[0].Type)
}

func TestDebounceCoalesces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.seed.js")
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o644))

	w := startWatcher(t, dir)

	// A burst of writes to the same file collapses into one event.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	batch := awaitBatch(t, w)
	require.Len(t, batch, 1)
	assert.Equal(t, Change, batch[0].Type)
}

func TestUnlink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.handler.js")
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o644))

	w := startWatcher(t, dir)
	require.NoError(t, os.Remove(path))

	batch := awaitBatch(t, w)
	found := false
	for _, e := range batch {
		if e.Path == path && e.Type == Unlink {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCoalesce(t *testing.T) {
	add := Event{Path: "a", Type: Add}
	change := Event{Path: "a", Type: Change}
	unlink := Event{Path: "a", Type: Unlink}

	// A create followed by writes inside the window is still an add.
	assert.Equal(t, Add, coalesce(add, change).Type)
	assert.Equal(t, Change, coalesce(change, change).Type)
	assert.Equal(t, Unlink, coalesce(add, unlink).Type)
	assert.Equal(t, Add, coalesce(Event{}, add).Type)
}

func TestAddMissingPathIgnored(t *testing.T) {
	w, err := New(0, logging.Nop())
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	assert.NoError(t, w.Add(filepath.Join(t.TempDir(), "does-not-exist")))
	assert.NoError(t, w.Add(""))
}
