package registry

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filesweep/filesweep/internal/bookmark"
	"github.com/filesweep/filesweep/internal/provider"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// openTestRegistry returns a loaded registry over a fresh database plus
// the store, so tests can reopen the same state.
func openTestRegistry(t *testing.T) (*Registry, *Store) {
	t.Helper()

	store, err := OpenStore(filepath.Join(t.TempDir(), "registry.db"), testLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg := New(store, bookmark.NewFileStore(testLogger(t)), testLogger(t))
	require.NoError(t, reg.Load())

	return reg, store
}

func TestAdd_FirstDestinationBecomesActive(t *testing.T) {
	reg, _ := openTestRegistry(t)

	first, err := reg.Add("First", t.TempDir(), provider.Custom)
	require.NoError(t, err)

	second, err := reg.Add("Second", t.TempDir(), provider.Custom)
	require.NoError(t, err)

	require.NotNil(t, reg.Active())
	assert.Equal(t, first.ID, reg.Active().ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotNil(t, first.Bookmark)
}

func TestRemove_PromotesFirstRemaining(t *testing.T) {
	reg, _ := openTestRegistry(t)

	a, err := reg.Add("A", t.TempDir(), provider.Custom)
	require.NoError(t, err)
	b, err := reg.Add("B", t.TempDir(), provider.Custom)
	require.NoError(t, err)
	c, err := reg.Add("C", t.TempDir(), provider.Custom)
	require.NoError(t, err)

	// Removing the active destination promotes the first remaining one.
	require.NoError(t, reg.Remove(a.ID))
	require.NotNil(t, reg.Active())
	assert.Equal(t, b.ID, reg.Active().ID)

	// Removing a non-active destination leaves the selection alone.
	require.NoError(t, reg.Remove(c.ID))
	assert.Equal(t, b.ID, reg.Active().ID)

	// Removing the last destination empties the selection.
	require.NoError(t, reg.Remove(b.ID))
	assert.Nil(t, reg.Active())
	assert.Empty(t, reg.Destinations())
}

func TestSetActive_UnknownIDMakesActiveNil(t *testing.T) {
	reg, _ := openTestRegistry(t)

	_, err := reg.Add("A", t.TempDir(), provider.Custom)
	require.NoError(t, err)

	require.NoError(t, reg.SetActive("no-such-id"))
	assert.Nil(t, reg.Active())
}

func TestLoad_RoundTripsState(t *testing.T) {
	reg, store := openTestRegistry(t)

	dir := t.TempDir()
	a, err := reg.Add("Archive", dir, provider.Custom)
	require.NoError(t, err)
	b, err := reg.Add("Backup", t.TempDir(), provider.Custom)
	require.NoError(t, err)
	require.NoError(t, reg.SetActive(b.ID))

	// A fresh registry over the same store sees identical state.
	reloaded := New(store, bookmark.NewFileStore(testLogger(t)), testLogger(t))
	require.NoError(t, reloaded.Load())

	require.Len(t, reloaded.Destinations(), 2)
	assert.Equal(t, a.ID, reloaded.Destinations()[0].ID)
	assert.Equal(t, dir, reloaded.Destinations()[0].Path)
	assert.Equal(t, provider.Custom, reloaded.Destinations()[0].Provider)
	assert.Equal(t, a.Bookmark, reloaded.Destinations()[0].Bookmark)

	require.NotNil(t, reloaded.Active())
	assert.Equal(t, b.ID, reloaded.Active().ID)
}

func TestLoad_MigratesGoogleAccountRoot(t *testing.T) {
	reg, store := openTestRegistry(t)

	// Simulate a legacy registration at the account root, with the content
	// folder present on disk.
	accountRoot := filepath.Join(t.TempDir(), "Library", "CloudStorage", "GoogleDrive-alice@x.com")
	contentDir := filepath.Join(accountRoot, "My Drive")
	require.NoError(t, os.MkdirAll(contentDir, 0o755))

	legacy, err := reg.Add("GoogleDrive-alice@x.com", accountRoot, provider.GoogleDrive)
	require.NoError(t, err)

	reloaded := New(store, bookmark.NewFileStore(testLogger(t)), testLogger(t))
	require.NoError(t, reloaded.Load())

	migrated := reloaded.Get(legacy.ID)
	require.NotNil(t, migrated)
	assert.Equal(t, contentDir, migrated.Path)
	assert.Equal(t, "My Drive", migrated.Name)

	// The migration persisted; a second load finds nothing to rewrite.
	again := New(store, bookmark.NewFileStore(testLogger(t)), testLogger(t))
	require.NoError(t, again.Load())
	assert.Equal(t, contentDir, again.Get(legacy.ID).Path)
}

func TestLoad_HealsStaleToken(t *testing.T) {
	reg, store := openTestRegistry(t)

	dir := t.TempDir()
	d, err := reg.Add("Vault", dir, provider.Custom)
	require.NoError(t, err)

	other, err := reg.Add("Other", t.TempDir(), provider.Custom)
	require.NoError(t, err)
	require.NoError(t, reg.SetActive(other.ID))

	// Persist a legacy-format token: it resolves but reports stale.
	d.Bookmark = []byte(`{"v":1,"path":` + quote(dir) + `,"minted_at":1}`)
	require.NoError(t, reg.SetActive(other.ID))

	// Load alone heals the stored token — no relocation needed.
	reloaded := New(store, bookmark.NewFileStore(testLogger(t)), testLogger(t))
	require.NoError(t, reloaded.Load())

	healed := reloaded.Get(d.ID)
	require.NotNil(t, healed)
	require.NotNil(t, healed.Bookmark)

	path, stale, resolveErr := bookmark.NewFileStore(testLogger(t)).Resolve(healed.Bookmark)
	require.NoError(t, resolveErr)
	assert.Equal(t, dir, path)
	assert.False(t, stale)

	// The healing write preserved the active selection.
	require.NotNil(t, reloaded.Active())
	assert.Equal(t, other.ID, reloaded.Active().ID)

	// The heal persisted: a further load sees the fresh token directly.
	again := New(store, bookmark.NewFileStore(testLogger(t)), testLogger(t))
	require.NoError(t, again.Load())
	assert.Equal(t, healed.Bookmark, again.Get(d.ID).Bookmark)
}

func TestResolvedPath_HealsStaleToken(t *testing.T) {
	reg, _ := openTestRegistry(t)

	dir := t.TempDir()
	d, err := reg.Add("Vault", dir, provider.Custom)
	require.NoError(t, err)

	// Replace the stored token with a legacy-format blob: it resolves
	// but reports stale.
	legacy := []byte(`{"v":1,"path":` + quote(dir) + `,"minted_at":1}`)
	d.Bookmark = legacy

	resolved := reg.ResolvedPath(d)
	assert.Equal(t, dir, resolved)

	// One resolution replaced the token, and the replacement is fresh.
	require.NotNil(t, d.Bookmark)
	assert.NotEqual(t, legacy, d.Bookmark)

	tokens := bookmark.NewFileStore(testLogger(t))
	path, stale, resolveErr := tokens.Resolve(d.Bookmark)
	require.NoError(t, resolveErr)
	assert.Equal(t, dir, path)
	assert.False(t, stale)
}

func TestResolvedPath_FallsBackOnInvalidToken(t *testing.T) {
	reg, store := openTestRegistry(t)

	dir := t.TempDir()
	d, err := reg.Add("Vault", dir, provider.Custom)
	require.NoError(t, err)

	d.Bookmark = []byte("corrupt garbage")

	resolved := reg.ResolvedPath(d)
	assert.Equal(t, dir, resolved)

	// The corrupt token was dropped, re-minted for the fallback path, and
	// the healed state persisted.
	reloaded := New(store, bookmark.NewFileStore(testLogger(t)), testLogger(t))
	require.NoError(t, reloaded.Load())

	healed := reloaded.Get(d.ID)
	require.NotNil(t, healed)
	require.NotNil(t, healed.Bookmark)

	path, stale, resolveErr := bookmark.NewFileStore(testLogger(t)).Resolve(healed.Bookmark)
	require.NoError(t, resolveErr)
	assert.Equal(t, dir, path)
	assert.False(t, stale)
}

func TestResolvedPath_NoTokenUsesStoredPath(t *testing.T) {
	reg, _ := openTestRegistry(t)

	dir := t.TempDir()
	d, err := reg.Add("Plain", dir, provider.Custom)
	require.NoError(t, err)

	d.Bookmark = nil
	assert.Equal(t, dir, reg.ResolvedPath(d))

	// Both token and path gone: unresolvable.
	d.Path = filepath.Join(dir, "vanished")
	assert.Empty(t, reg.ResolvedPath(d))
}

func TestValidateWritable(t *testing.T) {
	reg, _ := openTestRegistry(t)

	dir := t.TempDir()
	require.NoError(t, reg.ValidateWritable(dir, "Filesweep"))

	// The application folder now exists.
	info, err := os.Stat(filepath.Join(dir, "Filesweep"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	err = reg.ValidateWritable(filepath.Join(dir, "missing"), "Filesweep")
	require.ErrorIs(t, err, ErrNotWritable)
}

func TestFindDestination(t *testing.T) {
	reg, _ := openTestRegistry(t)

	dir := t.TempDir()
	d, err := reg.Add("Root", dir, provider.Custom)
	require.NoError(t, err)

	found := reg.FindDestination(filepath.Join(dir, "Filesweep", "Unsorted", "a.txt"))
	require.NotNil(t, found)
	assert.Equal(t, d.ID, found.ID)

	assert.Nil(t, reg.FindDestination(dir+"-sibling/a.txt"))
	assert.Nil(t, reg.FindDestination("/somewhere/else"))
}

func quote(s string) string {
	return `"` + s + `"`
}
