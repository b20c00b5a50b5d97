package paths

import (
	"fmt"
	"path"
	"strings"
)

// Apps is the directory under the storage root that holds one workspace
// per app.
const Apps = "/apps"

// AppRoot returns the workspace directory of an app.
func AppRoot(appID string) string {
	return path.Join(Apps, appID)
}

// ValidateAppID checks if an app ID is valid for path construction
func ValidateAppID(appID string) error {
	if appID == "" {
		return fmt.Errorf("app ID cannot be empty")
	}
	if strings.ContainsAny(appID, `/\`) {
		return fmt.Errorf("app ID cannot contain path separators")
	}
	if appID == "." || appID == ".." {
		return fmt.Errorf("app ID contains invalid path components")
	}
	return nil
}

// Resolve maps a caller path to a storage path.
//
// Without an app, every path is taken relative to the storage root. With
// an app, relative paths resolve inside the app's workspace and may not
// climb out of it; absolute paths are used as given.
func Resolve(p string, appID string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("path contains invalid characters")
	}

	p = strings.ReplaceAll(p, `\`, "/")
	if appID == "" || path.IsAbs(p) {
		return path.Clean("/" + p), nil
	}

	if err := ValidateAppID(appID); err != nil {
		return "", err
	}
	root := AppRoot(appID)
	resolved := path.Join(root, p)
	if resolved != root && !strings.HasPrefix(resolved, root+"/") {
		return "", fmt.Errorf("path %s escapes the workspace of app %s", p, appID)
	}
	return resolved, nil
}
