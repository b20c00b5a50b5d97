package filesystem

import (
	"fmt"

	"github.com/GriffinCanCode/fsorch/internal/shared/paths"
	"github.com/GriffinCanCode/fsorch/internal/shared/types"
	"github.com/GriffinCanCode/fsorch/internal/shared/utils"
)

// resolvePath resolves a caller path to a storage path.
// Relative paths are scoped to the app's workspace when the call carries
// an app id, and to the storage root otherwise.
func resolvePath(p string, appCtx *types.Context) (string, error) {
	if err := utils.ValidatePath(p, "path"); err != nil {
		return "", err
	}
	appID := ""
	if appCtx != nil && appCtx.AppID != nil {
		appID = *appCtx.AppID
	}
	resolved, err := paths.Resolve(p, appID)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	return resolved, nil
}
