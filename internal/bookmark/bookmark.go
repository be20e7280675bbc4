// Package bookmark issues and resolves opaque access tokens that grant
// renewed permission to a directory subtree across process restarts. On a
// sandboxed platform these correspond to security-scoped bookmarks; the
// portable implementation in this package emulates the same contract
// (opaque blob, staleness signal, scoped begin/end access) so every caller
// is written against the Store interface and never against a platform API.
package bookmark

// Store mints opaque tokens for directories and resolves them back to
// usable paths. Implementations must fail closed: Mint returns nil on any
// underlying permission error and never panics or errors.
type Store interface {
	// Mint produces a token granting future access to the directory at
	// path. Returns nil when the token cannot be produced; callers fall
	// back to plain path access.
	Mint(path string) []byte

	// Resolve converts a token back to a directory path. stale=true means
	// the token still works but should be re-minted; it is advisory, not
	// blocking. A non-nil error means the token is corrupt or revoked and
	// the caller must fall back to its stored path.
	Resolve(token []byte) (path string, stale bool, err error)

	// BeginAccess opens a scoped access window on path. The returned
	// release function must be called exactly once, on every exit path —
	// callers defer it immediately. release is never nil on success.
	BeginAccess(path string) (release func(), err error)
}
