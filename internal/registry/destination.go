// Package registry is the durable collection of named cloud destinations:
// which roots the user has registered, which one is active, and the access
// token that re-grants write permission to each root across launches. All
// mutations are write-through — every operation persists before it returns,
// so a crash never loses a registration or a healed token.
package registry

import (
	"errors"

	"github.com/filesweep/filesweep/internal/provider"
)

// Selection and validation sentinels, surfaced at registration time before
// any state is mutated.
var (
	// ErrNotACloudDirectory is returned when a selected folder is not
	// inside any recognized cloud container.
	ErrNotACloudDirectory = errors.New("registry: not a cloud directory")

	// ErrNotWritable is returned when a destination root does not exist
	// as a directory or the application folder cannot be created in it.
	ErrNotWritable = errors.New("registry: destination not writable")
)

// Destination is one user-registered cloud root. Created only by explicit
// folder selection, destroyed only by explicit removal; mutated in place
// when its token or path is refreshed or healed.
type Destination struct {
	// ID is assigned at creation and never reused.
	ID string

	// Name is the stored human label. Display code derives the final
	// label from it (see provider.DisplayName) rather than reading it
	// verbatim.
	Name string

	// Path is the last-known canonical filesystem path of the root,
	// used as the fallback when token resolution fails.
	Path string

	// Bookmark is the opaque access token, nil when the destination is
	// reachable through Path alone.
	Bookmark []byte

	// Provider selects canonicalization and display rules.
	Provider provider.Provider
}

// DisplayName returns the label shown to the user for this destination.
func (d *Destination) DisplayName() string {
	return provider.DisplayName(d.Name, d.Path, d.Provider)
}

// record is the persisted JSON shape of a Destination. Field names are the
// on-disk contract — see the registry store's "destinations" key.
type record struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Bookmark []byte `json:"bookmarkData,omitempty"`
	Provider string `json:"provider"`
}

func toRecord(d *Destination) record {
	return record{
		ID:       d.ID,
		Name:     d.Name,
		Path:     d.Path,
		Bookmark: d.Bookmark,
		Provider: d.Provider.String(),
	}
}

func fromRecord(r record) (*Destination, error) {
	p, err := provider.Parse(r.Provider)
	if err != nil {
		return nil, err
	}

	return &Destination{
		ID:       r.ID,
		Name:     r.Name,
		Path:     r.Path,
		Bookmark: r.Bookmark,
		Provider: p,
	}, nil
}
