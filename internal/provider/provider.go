// Package provider classifies user-picked folders as belonging to a known
// cloud-sync provider family and canonicalizes raw selections to the actual
// writable content root. It is a leaf package of pure string functions —
// no I/O, no errors — so both the registry and the CLI can depend on it
// without pulling in filesystem concerns.
package provider

import "fmt"

// Provider identifies the cloud-sync family a destination root belongs to.
// The string value is the persisted label — it appears verbatim in the
// registry's JSON records, so renaming a constant is a data migration.
type Provider string

// The closed set of recognized provider families.
const (
	ICloud      Provider = "iCloud Drive"
	GoogleDrive Provider = "Google Drive"
	Custom      Provider = "Custom"
)

// validProviders enumerates accepted persisted labels.
var validProviders = map[Provider]bool{
	ICloud:      true,
	GoogleDrive: true,
	Custom:      true,
}

// Parse converts a persisted label back to a Provider. Unknown labels are
// rejected rather than mapped to Custom — a label we don't recognize means
// the stored record was written by a newer version or corrupted, and
// silently downgrading it would change canonicalization behavior.
func Parse(label string) (Provider, error) {
	p := Provider(label)
	if !validProviders[p] {
		return "", fmt.Errorf("provider: unknown label %q", label)
	}

	return p, nil
}

// Icon returns the symbol identifier the UI layer uses for this provider.
func (p Provider) Icon() string {
	switch p {
	case ICloud:
		return "icloud"
	case GoogleDrive:
		return "g.circle"
	default:
		return "folder.badge.gearshape"
	}
}

// String returns the persisted label.
func (p Provider) String() string {
	return string(p)
}
