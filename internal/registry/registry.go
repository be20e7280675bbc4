package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/filesweep/filesweep/internal/bookmark"
	"github.com/filesweep/filesweep/internal/provider"
)

// Registry owns the ordered list of registered destinations and the active
// selection. It is constructed once at startup and handed to consumers by
// reference; it is not safe for concurrent use — callers serialize access.
type Registry struct {
	store  *Store
	tokens bookmark.Store
	logger *slog.Logger

	destinations []*Destination
	activeID     string
}

// New creates a Registry backed by the given store and token store. Call
// Load before using it.
func New(store *Store, tokens bookmark.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

// Load reads persisted state, runs the one-time Google Drive structural
// migration, then runs the token state machine over every destination so
// stale or invalid stored tokens heal at launch, not just when a
// relocation first touches them. The structural migration runs first —
// destinations registered at an account root whose "My Drive" subfolder
// exists on disk are rewritten to point at the subfolder — and persists
// immediately so it never repeats.
func (r *Registry) Load() error {
	data, err := r.store.Get(keyDestinations)
	if err != nil {
		return err
	}

	r.destinations = nil

	if data != nil {
		var records []record
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("registry: decoding destinations: %w", err)
		}

		for _, rec := range records {
			d, err := fromRecord(rec)
			if err != nil {
				return fmt.Errorf("registry: destination %s: %w", rec.ID, err)
			}

			r.destinations = append(r.destinations, d)
		}
	}

	// Restore the active selection before any pass that persists:
	// persist writes the whole state through, active key included.
	active, err := r.store.Get(keyActive)
	if err != nil {
		return err
	}

	r.activeID = string(active)

	migrated := false

	for _, d := range r.destinations {
		if r.migrateAccountRoot(d) {
			migrated = true
		}
	}

	if migrated {
		if err := r.persist(); err != nil {
			return err
		}
	}

	// Healing pass: resolving each token re-mints stale or invalid ones
	// and persists the replacement, so one launch repairs the stored
	// state for all future launches.
	for _, d := range r.destinations {
		if d.Bookmark != nil {
			r.ResolvedPath(d)
		}
	}

	r.logger.Info("registry loaded",
		slog.Int("destinations", len(r.destinations)),
		slog.Bool("migrated", migrated),
	)

	return nil
}

// migrateAccountRoot rewrites one Google Drive destination still pointing
// at its account root, provided the content subfolder actually exists.
// Returns true when the destination was rewritten.
func (r *Registry) migrateAccountRoot(d *Destination) bool {
	if d.Provider != provider.GoogleDrive || !provider.IsAccountRoot(d.Path) {
		return false
	}

	content := filepath.Join(d.Path, provider.ContentFolderName)

	info, err := os.Stat(content)
	if err != nil || !info.IsDir() {
		return false
	}

	r.logger.Info("migrating account-root destination to content folder",
		slog.String("id", d.ID),
		slog.String("from", d.Path),
		slog.String("to", content),
	)

	d.Name = provider.ContentFolderName
	d.Path = content
	d.Bookmark = r.tokens.Mint(content)

	return true
}

// Add registers a new destination for the already-canonicalized path,
// minting a token for it. The first destination added becomes active.
func (r *Registry) Add(name, path string, p provider.Provider) (*Destination, error) {
	d := &Destination{
		ID:       uuid.NewString(),
		Name:     name,
		Path:     path,
		Bookmark: r.tokens.Mint(path),
		Provider: p,
	}

	r.destinations = append(r.destinations, d)

	if len(r.destinations) == 1 {
		r.activeID = d.ID
	}

	if err := r.persist(); err != nil {
		return nil, err
	}

	r.logger.Info("destination added",
		slog.String("id", d.ID),
		slog.String("path", d.Path),
		slog.String("provider", d.Provider.String()),
		slog.Bool("bookmarked", d.Bookmark != nil),
	)

	return d, nil
}

// Remove deletes the destination with the given id. If it was active, the
// first remaining destination is promoted; an empty registry has no active
// destination.
func (r *Registry) Remove(id string) error {
	kept := r.destinations[:0]

	for _, d := range r.destinations {
		if d.ID != id {
			kept = append(kept, d)
		}
	}

	r.destinations = kept

	if r.activeID == id {
		r.activeID = ""
		if len(r.destinations) > 0 {
			r.activeID = r.destinations[0].ID
		}
	}

	return r.persist()
}

// SetActive reassigns the active selection. The id is not validated; an
// unknown id simply makes Active return nil until corrected.
func (r *Registry) SetActive(id string) error {
	r.activeID = id
	return r.persist()
}

// Active returns the active destination: the one matching the stored
// selection, or the first destination when no selection is stored, or nil
// when the registry is empty.
func (r *Registry) Active() *Destination {
	for _, d := range r.destinations {
		if d.ID == r.activeID {
			return d
		}
	}

	if r.activeID == "" && len(r.destinations) > 0 {
		return r.destinations[0]
	}

	return nil
}

// Destinations returns the registered destinations in insertion order.
// The slice is shared; callers must not mutate it.
func (r *Registry) Destinations() []*Destination {
	return r.destinations
}

// Get returns the destination with the given id, or nil.
func (r *Registry) Get(id string) *Destination {
	for _, d := range r.destinations {
		if d.ID == id {
			return d
		}
	}

	return nil
}

// ResolvedPath runs the token state machine for d and returns a usable
// directory path, healing stored state along the way:
//
//  1. token resolves fresh — use the resolved path as-is.
//  2. token resolves stale — re-mint for the resolved path, persist the
//     replacement if minting succeeded, use the resolved path regardless.
//  3. resolution fails — drop the token, re-mint for the stored canonical
//     path, persist whatever minting produced, use the canonical path.
//
// Every transition persists immediately, so one successful resolution
// heals the stored token for all future launches. Returns "" only when
// both the token and the canonical-path fallback are unusable.
func (r *Registry) ResolvedPath(d *Destination) string {
	if d.Bookmark == nil {
		return usableDir(d.Path)
	}

	path, stale, err := r.tokens.Resolve(d.Bookmark)
	if err != nil {
		r.logger.Warn("token resolution failed, falling back to stored path",
			slog.String("id", d.ID),
			slog.String("path", d.Path),
			slog.String("error", err.Error()),
		)

		d.Bookmark = r.tokens.Mint(d.Path)

		if perr := r.persist(); perr != nil {
			r.logger.Warn("persisting healed token failed", slog.String("error", perr.Error()))
		}

		return usableDir(d.Path)
	}

	if stale {
		if fresh := r.tokens.Mint(path); fresh != nil {
			d.Bookmark = fresh

			if perr := r.persist(); perr != nil {
				r.logger.Warn("persisting refreshed token failed", slog.String("error", perr.Error()))
			}
		}
	}

	return path
}

// ValidateWritable confirms the root at path accepts writes by creating
// (or confirming) the application folder inside it, under a scoped access
// window. Success implies relocations into this root can proceed.
func (r *Registry) ValidateWritable(path, appFolder string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrNotWritable, path)
	}

	release, err := r.tokens.BeginAccess(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, path, err)
	}
	defer release()

	if err := os.MkdirAll(filepath.Join(path, appFolder), 0o755); err != nil {
		return fmt.Errorf("%w: creating %s in %s: %v", ErrNotWritable, appFolder, path, err)
	}

	return nil
}

// FindDestination attributes an arbitrary path back to a registered root:
// it returns the destination whose canonical path is a prefix of the given
// path, or nil. Comparison is NFC-normalized and case-insensitive, matching
// how synced filesystems report paths.
func (r *Registry) FindDestination(path string) *Destination {
	needle := comparablePath(path)

	for _, d := range r.destinations {
		root := comparablePath(d.Path)
		if needle == root || strings.HasPrefix(needle, root+"/") {
			return d
		}
	}

	return nil
}

// persist writes the full registry state through to the store. Called on
// every mutation — there is no dirty buffering.
func (r *Registry) persist() error {
	records := make([]record, 0, len(r.destinations))
	for _, d := range r.destinations {
		records = append(records, toRecord(d))
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("registry: encoding destinations: %w", err)
	}

	if err := r.store.Set(keyDestinations, data); err != nil {
		return err
	}

	if r.activeID == "" {
		return r.store.Delete(keyActive)
	}

	return r.store.Set(keyActive, []byte(r.activeID))
}

// usableDir returns path when it exists as a directory, else "".
func usableDir(path string) string {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return ""
	}

	return path
}

// comparablePath normalizes a path for prefix attribution: slash-separated,
// cleaned, NFC-normalized, lowercased.
func comparablePath(path string) string {
	return strings.ToLower(norm.NFC.String(filepath.ToSlash(filepath.Clean(path))))
}
