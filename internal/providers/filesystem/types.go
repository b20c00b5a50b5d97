package filesystem

import (
	"github.com/GriffinCanCode/fsorch/internal/shared/types"
)

// Success helper
func Success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}

// Failure helper
func Failure(message string) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Error: &msg}, nil
}

// FailureWith reports a failure carrying structured detail, e.g. the step
// of a failed commit.
func FailureWith(message string, data map[string]interface{}) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Error: &msg, Data: data}, nil
}
