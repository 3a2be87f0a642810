package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/synergysphere/api/internal/constants"
	"github.com/synergysphere/api/internal/database"
	apierrors "github.com/synergysphere/api/internal/errors"
	"github.com/synergysphere/api/internal/models"
)

// RequireTaskAccess resolves the task named in the URL and checks the
// caller can see its project. Like projects, hidden tasks answer 404.
func RequireTaskAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "invalid task ID")
			c.Abort()
			return
		}

		user, ok := GetUser(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var task models.Task
		if err := database.GetDB().Scopes(database.NotDeleted).First(&task, taskID).Error; err != nil {
			apierrors.NotFound(c, "task not found")
			c.Abort()
			return
		}

		if !user.IsAdminUser() {
			var member models.ProjectMember
			err := database.GetDB().
				Where("project_id = ? AND user_id = ? AND is_active = ?", task.ProjectID, user.ID, true).
				First(&member).Error
			if err != nil {
				apierrors.NotFound(c, "task not found")
				c.Abort()
				return
			}
			c.Set(constants.ContextKeyProjectMember, member)
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask retrieves the task loaded by RequireTaskAccess
func GetTask(c *gin.Context) (*models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := value.(models.Task)
	if !ok {
		return nil, false
	}
	return &task, true
}
