package provider

import (
	"path/filepath"
	"strings"
)

// Google Drive mount structure inside the cloud-storage container. Each
// signed-in account gets a folder named "GoogleDrive-<account>"; the only
// writable location under it is its "My Drive" subfolder.
const (
	// accountRootPrefix marks a per-account Google Drive mount folder.
	accountRootPrefix = "GoogleDrive-"

	// ContentFolderName is the writable content subfolder under a Google
	// Drive account root.
	ContentFolderName = "My Drive"
)

// Canonicalize rewrites a raw folder selection to the writable content root
// for the given provider. Identity for iCloud and Custom. For Google Drive,
// a selection of the account root itself (users naturally pick the folder
// the picker shows) is redirected to its "My Drive" subfolder — writing
// directly under the account root fails, and redirecting here avoids a
// confusing failure later. Idempotent: a path already pointing at content
// is returned unchanged.
func Canonicalize(path string, p Provider) string {
	if p != GoogleDrive {
		return path
	}

	base := filepath.Base(path)

	// The container root itself is never writable; return it unchanged and
	// let writability validation reject it.
	if strings.EqualFold(base, "CloudStorage") {
		return path
	}

	if isAccountRoot(base) {
		return filepath.Join(path, ContentFolderName)
	}

	return path
}

// IsAccountRoot reports whether the last segment of path is a Google Drive
// per-account mount folder.
func IsAccountRoot(path string) bool {
	return isAccountRoot(filepath.Base(path))
}

func isAccountRoot(segment string) bool {
	return len(segment) > len(accountRootPrefix) &&
		strings.EqualFold(segment[:len(accountRootPrefix)], accountRootPrefix)
}

// AccountSuffix extracts the account identifier (typically an email address)
// from the account-root segment of a Google Drive path. Returns "" when the
// path contains no account-root segment.
func AccountSuffix(path string) string {
	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if isAccountRoot(segment) {
			return segment[len(accountRootPrefix):]
		}
	}

	return ""
}
