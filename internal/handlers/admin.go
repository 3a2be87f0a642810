package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/synergysphere/api/internal/dto"
	apierrors "github.com/synergysphere/api/internal/errors"
	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
	"github.com/synergysphere/api/internal/services"
	"github.com/synergysphere/api/internal/utils"
)

// AdminHandler serves the platform administration endpoints. All of its
// routes sit behind the admin middleware.
type AdminHandler struct {
	userService *services.UserService
}

func NewAdminHandler(userService *services.UserService) *AdminHandler {
	return &AdminHandler{userService: userService}
}

// ListUsers returns all platform users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := repository.UserFilter{
		Search:   c.Query("search"),
		Page:     params.Page,
		PageSize: params.Limit,
	}
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}
	if raw := c.Query("is_active"); raw != "" {
		active := raw == "true"
		filter.IsActive = &active
	}

	users, total, err := h.userService.ListUsers(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserListResponse(users, params.Page, params.Limit, total))
}

// GetUser returns one user's profile
func (h *AdminHandler) GetUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid user ID")
		return
	}

	user, err := h.userService.GetUser(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProfileDTO(*user))
}

// SetRole changes a user's platform role
func (h *AdminHandler) SetRole(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid user ID")
		return
	}

	type SetRoleRequest struct {
		Role models.UserRole `json:"role" binding:"required"`
	}

	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.SetRole(userID, req.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// SetActive enables or disables a user account
func (h *AdminHandler) SetActive(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid user ID")
		return
	}

	type SetActiveRequest struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.SetActive(userID, *req.IsActive)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// Promote grants a user the platform admin role
func (h *AdminHandler) Promote(c *gin.Context) {
	h.setRoleFromPath(c, models.UserRoleAdmin)
}

// Demote returns a user to the regular role
func (h *AdminHandler) Demote(c *gin.Context) {
	h.setRoleFromPath(c, models.UserRoleMember)
}

// Activate re-enables a user account
func (h *AdminHandler) Activate(c *gin.Context) {
	h.setActiveFromPath(c, true)
}

// Deactivate disables a user account
func (h *AdminHandler) Deactivate(c *gin.Context) {
	h.setActiveFromPath(c, false)
}

func (h *AdminHandler) setRoleFromPath(c *gin.Context, role models.UserRole) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid user ID")
		return
	}

	user, err := h.userService.SetRole(userID, role)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func (h *AdminHandler) setActiveFromPath(c *gin.Context, active bool) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid user ID")
		return
	}

	user, err := h.userService.SetActive(userID, active)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// Dashboard returns platform-wide counts
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.userService.Dashboard()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
