package bookmark

// NoopStore is the Store for targets without sandbox restrictions: no
// tokens are ever minted and every path is directly usable. Registered
// destinations carry no bookmarkData and resolve through their stored
// canonical path.
type NoopStore struct{}

// NewNoopStore returns the shared no-op store.
func NewNoopStore() *NoopStore { return &NoopStore{} }

// Mint always declines to produce a token.
func (*NoopStore) Mint(string) []byte { return nil }

// Resolve treats the token contents as a path and reports it fresh. In
// practice callers never hold tokens from this store (Mint returns nil),
// but a registry populated on a sandboxed platform may carry them.
func (*NoopStore) Resolve(token []byte) (string, bool, error) {
	if len(token) == 0 {
		return "", false, ErrTokenInvalid
	}

	return string(token), false, nil
}

// BeginAccess is a no-op window.
func (*NoopStore) BeginAccess(string) (func(), error) {
	return func() {}, nil
}
