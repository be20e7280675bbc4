package provider

import (
	"path/filepath"
	"strings"
)

// Well-known sandbox mount markers. Matching is case-insensitive because
// the picker can hand back paths with differing case on case-insensitive
// filesystems.
const (
	// iCloudMarker is the path fragment of the OS iCloud document container.
	iCloudMarker = "mobile documents/com~apple~clouddocs"

	// cloudStorageMarker is the path fragment of the generic third-party
	// cloud-storage container that synced providers mount under.
	cloudStorageMarker = "library/cloudstorage"

	// googleMarker distinguishes Google Drive mounts inside the
	// cloud-storage container.
	googleMarker = "googledrive"
)

// Classify inspects a folder path and reports which provider family it
// belongs to. The second return is false when the path is not inside any
// recognized cloud container — callers must reject such a selection before
// registering a destination.
func Classify(path string) (Provider, bool) {
	lower := strings.ToLower(filepath.ToSlash(path))

	if strings.Contains(lower, iCloudMarker) {
		return ICloud, true
	}

	if strings.Contains(lower, cloudStorageMarker) {
		if strings.Contains(lower, googleMarker) {
			return GoogleDrive, true
		}

		return Custom, true
	}

	return "", false
}
