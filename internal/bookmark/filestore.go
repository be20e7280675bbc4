package bookmark

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// tokenFormatVersion is bumped whenever the blob layout changes. Tokens
// carrying an older version still resolve but report stale, which routes
// them through the caller's re-mint path — the self-healing migration for
// legacy token formats.
const tokenFormatVersion = 2

// defaultTokenTTL is how long a token stays fresh. Past the TTL it still
// resolves (stale) so a single successful use refreshes it.
const defaultTokenTTL = 30 * 24 * time.Hour

// ErrTokenInvalid is returned by Resolve when a token cannot be decoded or
// no longer points at an existing directory. Callers drop the token and
// fall back to their stored path.
var ErrTokenInvalid = errors.New("bookmark: token invalid")

// tokenBlob is the wire format inside the opaque token. Callers never see
// this structure; the blob round-trips through the registry as raw bytes.
type tokenBlob struct {
	Version  int    `json:"v"`
	Path     string `json:"path"`
	MintedAt int64  `json:"minted_at"`
}

// FileStore is the portable Store implementation. Tokens carry the target
// path, a format version, and a mint timestamp; scoped access is an open
// directory handle held for the duration of the window.
type FileStore struct {
	ttl    time.Duration
	logger *slog.Logger

	// nowFunc is injectable for staleness tests.
	nowFunc func() time.Time
}

// NewFileStore creates a FileStore with the default TTL.
func NewFileStore(logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &FileStore{
		ttl:     defaultTokenTTL,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Mint produces a token for the directory at path. Fails closed: any stat
// error or a non-directory target yields nil, logged at debug only —
// callers degrade to plain path access rather than surfacing an error.
func (s *FileStore) Mint(path string) []byte {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		s.logger.Debug("bookmark mint failed, falling back to path access",
			slog.String("path", path))
		return nil
	}

	blob := tokenBlob{
		Version:  tokenFormatVersion,
		Path:     path,
		MintedAt: s.nowFunc().Unix(),
	}

	data, err := json.Marshal(blob)
	if err != nil {
		return nil
	}

	return data
}

// Resolve converts a token back to its directory path. Stale when the
// format version is old or the token has outlived its TTL. Invalid when
// the blob does not decode or the directory is gone.
func (s *FileStore) Resolve(token []byte) (string, bool, error) {
	var blob tokenBlob
	if err := json.Unmarshal(token, &blob); err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if blob.Path == "" {
		return "", false, fmt.Errorf("%w: empty path", ErrTokenInvalid)
	}

	info, err := os.Stat(blob.Path)
	if err != nil || !info.IsDir() {
		return "", false, fmt.Errorf("%w: target %s is not an accessible directory",
			ErrTokenInvalid, blob.Path)
	}

	stale := blob.Version < tokenFormatVersion ||
		s.nowFunc().Sub(time.Unix(blob.MintedAt, 0)) > s.ttl

	return blob.Path, stale, nil
}

// BeginAccess opens the directory and holds the handle until release is
// called, verifying up front that the path is accessible.
func (s *FileStore) BeginAccess(path string) (func(), error) {
	dir, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bookmark: opening access scope for %s: %w", path, err)
	}

	return func() { _ = dir.Close() }, nil
}
