// Package relocate moves accepted files into an organized subtree of a
// registered cloud destination using copy-then-delete semantics. The core
// safety invariant: a source file is never deleted unless the copy to the
// target already reported success, so no failure mode loses data.
package relocate

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/filesweep/filesweep/internal/bookmark"
	"github.com/filesweep/filesweep/internal/registry"
)

// UnsortedFolderName is the grouping subfolder used when no source group
// label is provided.
const UnsortedFolderName = "Unsorted"

// Relocation failure sentinels.
var (
	// ErrNoDestination is returned when no destination was given and the
	// registry has none active.
	ErrNoDestination = errors.New("relocate: no destination available")

	// ErrUnresolvableDestination is returned when neither the stored
	// token nor the canonical-path fallback yields a usable directory.
	ErrUnresolvableDestination = errors.New("relocate: destination unresolvable")

	// ErrCopyFailed is returned when the copy step fails. The source file
	// is guaranteed intact and no target file exists.
	ErrCopyFailed = errors.New("relocate: copy failed")

	// ErrDeleteFailed is returned when the copy succeeded but the source
	// could not be removed. The relocation is a partial success: the file
	// now exists at both locations and the returned path is valid.
	ErrDeleteFailed = errors.New("relocate: source delete failed")
)

// File is the minimal file model the engine consumes from the review layer.
type File struct {
	Path string
	Name string
	Size int64
}

// FileFromPath builds a File by statting path.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("relocate: statting %s: %w", path, err)
	}

	return File{
		Path: path,
		Name: info.Name(),
		Size: info.Size(),
	}, nil
}

// Engine relocates files into destination roots. It is safe to call from
// any single goroutine; concurrent relocations into the same destination
// are not serialized here — callers relocate one file at a time per
// destination.
type Engine struct {
	registry  *registry.Registry
	tokens    bookmark.Store
	appFolder string
	logger    *slog.Logger

	// copyFunc and removeFunc perform the copy and source-delete steps;
	// both are injectable for failure testing. copyFunc must not leave a
	// partial target behind on error.
	copyFunc   func(src, dst string) error
	removeFunc func(path string) error
}

// NewEngine creates an Engine writing under appFolder inside each
// destination root.
func NewEngine(reg *registry.Registry, tokens bookmark.Store, appFolder string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		registry:   reg,
		tokens:     tokens,
		appFolder:  appFolder,
		logger:     logger,
		copyFunc:   copyFile,
		removeFunc: os.Remove,
	}
}

// Relocate moves file into dest (or the registry's active destination when
// dest is nil), grouped under groupLabel (or "Unsorted" when the label is
// empty or whitespace-only). Returns the final target path.
//
// On ErrDeleteFailed the returned path is still valid — the file was
// copied, only the source removal failed.
func (e *Engine) Relocate(file File, groupLabel string, dest *registry.Destination) (string, error) {
	if dest == nil {
		dest = e.registry.Active()
	}

	if dest == nil {
		return "", ErrNoDestination
	}

	root := e.registry.ResolvedPath(dest)
	if root == "" {
		return "", fmt.Errorf("%w: %s", ErrUnresolvableDestination, dest.Path)
	}

	release, err := e.tokens.BeginAccess(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnresolvableDestination, root, err)
	}
	defer release()

	group := strings.TrimSpace(groupLabel)
	if group == "" {
		group = UnsortedFolderName
	}

	groupDir := filepath.Join(root, e.appFolder, group)
	if err := os.MkdirAll(groupDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", registry.ErrNotWritable, groupDir, err)
	}

	target, err := availableTarget(groupDir, file.Name)
	if err != nil {
		return "", fmt.Errorf("%w: probing target name in %s: %v", registry.ErrNotWritable, groupDir, err)
	}

	if err := e.copyFunc(file.Path, target); err != nil {
		return "", fmt.Errorf("%w: %s -> %s: %v", ErrCopyFailed, file.Path, target, err)
	}

	if err := e.removeFunc(file.Path); err != nil {
		e.logger.Warn("copied but source removal failed",
			slog.String("source", file.Path),
			slog.String("target", target),
			slog.String("error", err.Error()),
		)

		return target, fmt.Errorf("%w: %s: %v", ErrDeleteFailed, file.Path, err)
	}

	e.logger.Info("relocated file",
		slog.String("source", file.Path),
		slog.String("target", target),
		slog.Int64("bytes", file.Size),
	)

	return target, nil
}

// availableTarget returns the first free path for name inside dir. On
// collision a numeric suffix starting at 2 is appended before the
// extension ("report 2.pdf", "report 3.pdf", ...), matching Finder
// behavior. The destination tree is owned by this engine by convention,
// so check-then-create does not need to be atomic. A stat failure other
// than "does not exist" (permission loss, a path component replaced by a
// file) is returned as an error — treating it as a collision would loop
// forever.
func availableTarget(dir, name string) (string, error) {
	name = norm.NFC.String(name)

	free, err := nameFree(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}

	if free {
		return filepath.Join(dir, name), nil
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 2; ; i++ {
		candidate := filepath.Join(dir, stem+" "+strconv.Itoa(i)+ext)

		free, err := nameFree(candidate)
		if err != nil {
			return "", err
		}

		if free {
			return candidate, nil
		}
	}
}

// nameFree reports whether no file exists at path, propagating any stat
// failure that is not plain non-existence.
func nameFree(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}

	if os.IsNotExist(err) {
		return true, nil
	}

	return false, err
}

// copyFile streams src to a newly-created dst and flushes it to stable
// storage. dst must not already exist. Any failure removes the partial
// target so a failed relocation leaves no trace at the destination.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating target: %w", err)
	}

	// Clean up the partial target on any error path.
	success := false
	defer func() {
		if !success {
			out.Close()
			_ = os.Remove(dst)
		}
	}()

	if _, err := out.ReadFrom(in); err != nil {
		return fmt.Errorf("copying: %w", err)
	}

	// Flush before reporting success: the source is deleted on return, so
	// the copy must actually be on disk.
	if err := out.Sync(); err != nil {
		return fmt.Errorf("syncing target: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("closing target: %w", err)
	}

	success = true

	return nil
}
