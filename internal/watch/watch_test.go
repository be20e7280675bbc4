package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// relocations records callback invocations thread-safely.
type relocations struct {
	mu    sync.Mutex
	calls []string
}

func (r *relocations) record(path, group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, group+":"+filepath.Base(path))

	return nil
}

func (r *relocations) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

func TestNew_RejectsMissingInbox(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), time.Second, nil, testLogger(t))
	require.Error(t, err)
}

func TestSettledFileIsRelocated(t *testing.T) {
	inbox := filepath.Join(t.TempDir(), "Inbox")
	require.NoError(t, os.MkdirAll(inbox, 0o755))

	rec := &relocations{}

	w, err := New(inbox, 30*time.Millisecond, rec.record, testLogger(t))
	require.NoError(t, err)

	path := filepath.Join(inbox, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w.Touch(path)

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The group label is the inbox folder name.
	assert.Equal(t, []string{"Inbox:a.txt"}, rec.snapshot())
}

func TestRewriteRestartsSettleTimer(t *testing.T) {
	inbox := t.TempDir()

	rec := &relocations{}

	w, err := New(inbox, 80*time.Millisecond, rec.record, testLogger(t))
	require.NoError(t, err)

	path := filepath.Join(inbox, "big.bin")
	require.NoError(t, os.WriteFile(path, []byte("partial"), 0o644))

	// Keep touching the file faster than the settle delay; it must not fire.
	for range 4 {
		w.Touch(path)
		time.Sleep(30 * time.Millisecond)
	}

	assert.Empty(t, rec.snapshot())

	// Once the writes stop, it settles exactly once.
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestVanishedFileIsSkipped(t *testing.T) {
	inbox := t.TempDir()

	rec := &relocations{}

	w, err := New(inbox, 20*time.Millisecond, rec.record, testLogger(t))
	require.NoError(t, err)

	// Touch a path that never exists on disk: the settle fires but the
	// stat fails, so the callback is never invoked.
	w.Touch(filepath.Join(inbox, "never-written.txt"))

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestScheduleExistingQueuesStartupContents(t *testing.T) {
	inbox := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "old.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(inbox, "subdir"), 0o755))

	rec := &relocations{}

	w, err := New(inbox, 20*time.Millisecond, rec.record, testLogger(t))
	require.NoError(t, err)

	require.NoError(t, w.scheduleExisting())

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Hidden files and directories are not relocated.
	assert.Equal(t, []string{filepath.Base(inbox) + ":old.txt"}, rec.snapshot())
}
