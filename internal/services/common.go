package services

import (
	"errors"
	"fmt"

	"github.com/synergysphere/api/internal/authz"
	"github.com/synergysphere/api/internal/models"
)

// ErrPermissionDenied wraps every authorization denial; the denial reason
// rides along in the error message.
var ErrPermissionDenied = errors.New("permission denied")

// authorize runs the engine and converts a denial into an error carrying
// its reason.
func authorize(engine *authz.Engine, actor *models.User, op authz.Operation, target any, fields authz.FieldSet) error {
	decision, err := engine.Authorize(actor, op, target, fields)
	if err != nil {
		return fmt.Errorf("authorization check failed: %w", err)
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, decision.Reason)
	}
	return nil
}
