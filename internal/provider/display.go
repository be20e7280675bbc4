package provider

import "fmt"

// DisplayName computes the human-facing label for a registered destination.
// iCloud destinations always show the fixed product name. Google Drive
// destinations get the signed-in account appended so two accounts with the
// same folder name ("My Drive", invariably) stay distinguishable. Custom
// destinations show whatever the user named them.
func DisplayName(name, path string, p Provider) string {
	switch p {
	case ICloud:
		return string(ICloud)
	case GoogleDrive:
		if account := AccountSuffix(path); account != "" {
			return fmt.Sprintf("%s (%s)", name, account)
		}

		return name
	default:
		return name
	}
}
