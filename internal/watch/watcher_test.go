package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, files []string, fn ChangeFunc, opts ...Option) context.CancelFunc {
	t.Helper()
	w, err := New(files, fn, opts...)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "hierbuild.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("v0"), 0o644))

	var calls atomic.Int32
	startWatcher(t, []string{manifest}, func(context.Context) error {
		calls.Add(1)
		return nil
	}, WithDebounce(200*time.Millisecond))

	for i := range 5 {
		require.NoError(t, os.WriteFile(manifest, []byte{byte('a' + i)}, 0o644))
	}

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "hierbuild.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("v0"), 0o644))

	var calls atomic.Int32
	startWatcher(t, []string{manifest}, func(context.Context) error {
		calls.Add(1)
		return nil
	}, WithDebounce(50*time.Millisecond))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)

	assert.Zero(t, calls.Load())
}

func TestWatcherContinuesAfterCallbackError(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "hierbuild.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("v0"), 0o644))

	var calls atomic.Int32
	w, err := New([]string{manifest}, func(context.Context) error {
		calls.Add(1)
		return errors.New("run failed")
	})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	w.Trigger()
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	w.Trigger()
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestNewFailsForMissingDirectory(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "missing", "hierbuild.yaml")}, func(context.Context) error { return nil })
	assert.Error(t, err)
}
