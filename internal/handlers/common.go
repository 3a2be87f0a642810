package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	apierrors "github.com/synergysphere/api/internal/errors"
	"github.com/synergysphere/api/internal/services"
)

// respondServiceError translates service-layer sentinel errors into the
// API envelope. Invariant violations answer 400 with a conflict code.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPermissionDenied):
		apierrors.Forbidden(c, err.Error())

	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrDiscussionNotFound),
		errors.Is(err, services.ErrReplyNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrInvitationNotFound),
		errors.Is(err, services.ErrNotificationNotFound):
		apierrors.NotFound(c, err.Error())

	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrCannotRemoveOwner),
		errors.Is(err, services.ErrLastAdmin),
		errors.Is(err, services.ErrLastPlatformAdmin),
		errors.Is(err, services.ErrAlreadyInvited),
		errors.Is(err, services.ErrInvitationNotPending),
		errors.Is(err, services.ErrInvitationExpired),
		errors.Is(err, services.ErrTerminalTaskStatus),
		errors.Is(err, services.ErrDependencyCycle):
		apierrors.Conflict(c, err.Error())

	case errors.Is(err, services.ErrProjectImmutable):
		apierrors.ImmutableField(c, err.Error())

	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidRefreshToken),
		errors.Is(err, services.ErrRevokedRefreshToken),
		errors.Is(err, services.ErrAccountDisabled):
		apierrors.Unauthorized(c, err.Error())

	case errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrPasswordMismatch),
		errors.Is(err, services.ErrWrongPassword),
		errors.Is(err, services.ErrTaskTitleRequired),
		errors.Is(err, services.ErrInvalidTaskStatus),
		errors.Is(err, services.ErrInvalidTaskPriority),
		errors.Is(err, services.ErrInvalidAssignee),
		errors.Is(err, services.ErrDependencyCrossProject),
		errors.Is(err, services.ErrProjectNameRequired),
		errors.Is(err, services.ErrInvalidProjectStatus),
		errors.Is(err, services.ErrInvalidMemberRole),
		errors.Is(err, services.ErrInvalidUserRole),
		errors.Is(err, services.ErrInvitationWrongInvitee),
		errors.Is(err, services.ErrDiscussionTitleMissing),
		errors.Is(err, services.ErrDiscussionBodyMissing),
		errors.Is(err, services.ErrInvalidCategory),
		errors.Is(err, services.ErrDiscussionLocked),
		errors.Is(err, services.ErrInvalidVote):
		apierrors.BadRequest(c, err.Error())

	default:
		apierrors.InternalError(c, "")
	}
}
