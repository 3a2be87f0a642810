package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/synergysphere/api/internal/constants"
	"github.com/synergysphere/api/internal/database"
	apierrors "github.com/synergysphere/api/internal/errors"
	"github.com/synergysphere/api/internal/models"
)

// RequireProjectAccess resolves the project named in the URL and checks
// the caller may see it: platform admins always, members always, anyone
// for public projects. Non-members of private projects get 404 so
// project existence does not leak.
func RequireProjectAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "invalid project ID")
			c.Abort()
			return
		}

		user, ok := GetUser(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var project models.Project
		if err := database.GetDB().Scopes(database.NotDeleted).First(&project, projectID).Error; err != nil {
			apierrors.NotFound(c, "project not found")
			c.Abort()
			return
		}

		var member models.ProjectMember
		memberErr := database.GetDB().
			Where("project_id = ? AND user_id = ? AND is_active = ?", projectID, user.ID, true).
			First(&member).Error
		if memberErr == nil {
			c.Set(constants.ContextKeyProjectMember, member)
		} else if !user.IsAdminUser() && !project.IsPublic {
			apierrors.NotFound(c, "project not found")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyProject, project)
		c.Next()
	}
}

// GetProject retrieves the project loaded by RequireProjectAccess
func GetProject(c *gin.Context) (*models.Project, bool) {
	value, exists := c.Get(constants.ContextKeyProject)
	if !exists {
		return nil, false
	}
	project, ok := value.(models.Project)
	if !ok {
		return nil, false
	}
	return &project, true
}

// GetProjectMember retrieves the caller's membership, when they have one
func GetProjectMember(c *gin.Context) (*models.ProjectMember, bool) {
	value, exists := c.Get(constants.ContextKeyProjectMember)
	if !exists {
		return nil, false
	}
	member, ok := value.(models.ProjectMember)
	if !ok {
		return nil, false
	}
	return &member, true
}
