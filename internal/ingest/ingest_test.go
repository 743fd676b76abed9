package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/deck-anonymizer/internal/testutil"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func isAnon(p string) bool { return strings.HasSuffix(p, ".anon.pptx") }

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.pptx"))
	touch(t, filepath.Join(root, "sub", "B.PPTX"))
	touch(t, filepath.Join(root, "a.anon.pptx"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "~$a.pptx"))
	touch(t, filepath.Join(root, ".hidden", "c.pptx"))

	paths, stats, err := ScanDirectory(root, ScanOptions{SkipHidden: true, Ignore: isAnon})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.pptx"),
		filepath.Join(root, "sub", "B.PPTX"),
	}, paths)
	assert.Equal(t, uint32(2), stats.Matched)
	assert.Equal(t, uint32(2), stats.Skipped)

	all, _, err := ScanDirectory(root, ScanOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestScanDirectoryErrors(t *testing.T) {
	_, _, err := ScanDirectory("  ", ScanOptions{})
	require.Error(t, err)

	_, _, err = ScanDirectory(filepath.Join(t.TempDir(), "missing"), ScanOptions{})
	require.Error(t, err)
}

func TestBatchRun(t *testing.T) {
	var (
		mu      sync.Mutex
		running = map[string]bool{}
		active  atomic.Int32
		maxSeen atomic.Int32
	)
	fn := func(ctx context.Context, p string) error {
		mu.Lock()
		assert.False(t, running[p], "path processed concurrently: %s", p)
		running[p] = true
		mu.Unlock()

		n := active.Add(1)
		for {
			m := maxSeen.Load()
			if n <= m || maxSeen.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)

		mu.Lock()
		running[p] = false
		mu.Unlock()
		if p == "bad" {
			return errors.New("boom")
		}
		return nil
	}

	paths := []string{"a", "b", "bad", "c", "a", "d"}
	results, stats := Batch{Workers: 2, Logger: testutil.DiscardLogger()}.Run(context.Background(), paths, fn)

	require.Len(t, results, len(paths))
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 4, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Skipped)
	assert.EqualError(t, results[2].Err, "boom")
	assert.ErrorIs(t, results[4].Err, errDuplicate)
	assert.NoError(t, results[5].Err)
	assert.LessOrEqual(t, maxSeen.Load(), int32(2))
}

func TestBatchRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	_, stats := Batch{Workers: 1, Logger: testutil.DiscardLogger()}.Run(ctx, []string{"a", "b"}, func(context.Context, string) error {
		calls.Add(1)
		return nil
	})
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 2, stats.Skipped)
}

func TestWatcherEmitsDebouncedPaths(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "old.pptx")
	touch(t, existing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	evCh, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    50 * time.Millisecond,
		Ignore:      isAnon,
		Logger:      testutil.DiscardLogger(),
	})
	require.NoError(t, err)

	select {
	case p := <-evCh:
		assert.Equal(t, existing, p)
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan not emitted")
	}

	fresh := filepath.Join(root, "new.pptx")
	touch(t, filepath.Join(root, "new.anon.pptx"))
	touch(t, filepath.Join(root, "ignored.txt"))
	for i := 0; i < 3; i++ {
		touch(t, fresh)
	}

	select {
	case p := <-evCh:
		assert.Equal(t, fresh, p)
	case <-time.After(3 * time.Second):
		t.Fatal("change not emitted")
	}

	select {
	case p := <-evCh:
		t.Fatalf("unexpected extra event %s", p)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	for range evCh {
	}
}

func TestWatcherRequiresRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{Logger: testutil.DiscardLogger()})
	require.Error(t, err)
}
