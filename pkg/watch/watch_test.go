package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
}

func TestNew_SkipsVendorDirs(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "lib/deep", "node_modules/x", ".git/objects", "test")

	w, err := New(root, Options{})
	require.NoError(t, err)
	defer w.Close()

	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "lib"),
		filepath.Join(root, "lib", "deep"),
		filepath.Join(root, "test"),
	}, w.WatchList())
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), Options{})
	assert.Error(t, err)
}

func TestRelevant(t *testing.T) {
	w, err := New(t.TempDir(), Options{Files: []string{".eslintrc.json"}, Extensions: []string{".js", ".mjs"}})
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.Relevant("/p/package.json"))
	assert.True(t, w.Relevant("/p/.eslintrc.json"))
	assert.True(t, w.Relevant("/p/lib/a.mjs"))
	assert.False(t, w.Relevant("/p/README.md"))
	assert.False(t, w.Relevant("/p/data.json"))
}

func TestRun_DebouncesChanges(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, Options{Debounce: 100 * time.Millisecond})
	require.NoError(t, err)
	defer w.Close()

	var (
		mu    sync.Mutex
		calls [][]string
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, changed []string) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, changed)
		})
	}()

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.js"), []byte("require('a')"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte("{}"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{filepath.Join(root, "a.js"), filepath.Join(root, "package.json")}, calls[0])
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, Options{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	defer w.Close()

	changed := make(chan []string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = w.Run(ctx, func(_ context.Context, c []string) { changed <- c })
	}()

	mkdirs(t, root, "lib")
	require.Eventually(t, func() bool {
		for _, d := range w.WatchList() {
			if d == filepath.Join(root, "lib") {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "lib", "x.js"), []byte(""), 0o644))
	select {
	case c := <-changed:
		assert.Contains(t, c, filepath.Join(root, "lib", "x.js"))
	case <-time.After(3 * time.Second):
		t.Fatal("no change delivered for file in new directory")
	}
}

func TestRun_RecoversHandlerPanic(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	defer w.Close()

	calls := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = w.Run(ctx, func(context.Context, []string) {
			calls <- struct{}{}
			panic("handler failed")
		})
	}()

	for i := 0; i < 2; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.js"), []byte{byte('a' + i)}, 0o644))
		select {
		case <-calls:
		case <-time.After(3 * time.Second):
			t.Fatalf("handler not called for change %d", i)
		}
	}
}
