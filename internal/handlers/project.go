package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/synergysphere/api/internal/dto"
	apierrors "github.com/synergysphere/api/internal/errors"
	"github.com/synergysphere/api/internal/middleware"
	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
	"github.com/synergysphere/api/internal/services"
	"github.com/synergysphere/api/internal/utils"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// CreateProject creates a project owned by the caller
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateProjectRequest struct {
		Name        string               `json:"name" binding:"required"`
		Description string               `json:"description"`
		Status      models.ProjectStatus `json:"status"`
		Priority    models.Priority      `json:"priority"`
		StartDate   *time.Time           `json:"start_date"`
		EndDate     *time.Time           `json:"end_date"`
		IsPublic    bool                 `json:"is_public"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.CreateProject(user, services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// ListProjects returns projects visible to the caller
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	filter := repository.ProjectFilter{
		Search:   c.Query("search"),
		Page:     params.Page,
		PageSize: params.Limit,
	}
	if status := c.Query("status"); status != "" {
		s := models.ProjectStatus(status)
		filter.Status = &s
	}
	if priority := c.Query("priority"); priority != "" {
		p := models.Priority(priority)
		filter.Priority = &p
	}

	projects, total, err := h.projectService.ListProjects(user, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectListResponse(projects, params.Page, params.Limit, total))
}

// GetProject returns one project with its members
func (h *ProjectHandler) GetProject(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.NotFound(c, "project not found")
		return
	}

	full, err := h.projectService.GetProject(user, project.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectDTO(*full))
}

// UpdateProject applies a partial update to a project
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.NotFound(c, "project not found")
		return
	}

	type UpdateProjectRequest struct {
		Name        *string               `json:"name"`
		Description *string               `json:"description"`
		Status      *models.ProjectStatus `json:"status"`
		Priority    *models.Priority      `json:"priority"`
		StartDate   *time.Time            `json:"start_date"`
		EndDate     *time.Time            `json:"end_date"`
		IsPublic    *bool                 `json:"is_public"`
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.projectService.UpdateProject(user, project.ID, services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectDTO(*updated))
}

// DeleteProject marks a project as deleted
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.NotFound(c, "project not found")
		return
	}

	if err := h.projectService.DeleteProject(user, project.ID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}

// ListMembers returns a project's active members
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.NotFound(c, "project not found")
		return
	}

	members, err := h.projectService.ListMembers(user, project.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]dto.ProjectMemberDTO, len(members))
	for i, member := range members {
		items[i] = dto.ToProjectMemberDTO(member)
	}
	c.JSON(http.StatusOK, gin.H{"members": items})
}

// AddMember adds a user to the project, reactivating old memberships
func (h *ProjectHandler) AddMember(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.NotFound(c, "project not found")
		return
	}

	type AddMemberRequest struct {
		UserID uint64            `json:"user_id" binding:"required"`
		Role   models.MemberRole `json:"role"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.projectService.AddMember(c.Request.Context(), user, project.ID, services.AddMemberInput{
		UserID: req.UserID,
		Role:   req.Role,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToProjectMemberDTO(*member))
}

// RemoveMember deactivates a membership
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.NotFound(c, "project not found")
		return
	}

	memberID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid user ID")
		return
	}

	if err := h.projectService.RemoveMember(user, project.ID, memberID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// ChangeMemberRole changes a member's project role
func (h *ProjectHandler) ChangeMemberRole(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.NotFound(c, "project not found")
		return
	}

	memberID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid user ID")
		return
	}

	type ChangeRoleRequest struct {
		Role models.MemberRole `json:"role" binding:"required"`
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.projectService.ChangeMemberRole(user, project.ID, memberID, req.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectMemberDTO(*member))
}

// Invite issues an email invitation to the project
func (h *ProjectHandler) Invite(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.NotFound(c, "project not found")
		return
	}

	type InviteRequest struct {
		Email   string            `json:"email" binding:"required,email"`
		Role    models.MemberRole `json:"role"`
		Message string            `json:"message"`
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	inv, err := h.projectService.Invite(c.Request.Context(), user, project.ID, services.InviteInput{
		Email:   req.Email,
		Role:    req.Role,
		Message: req.Message,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToInvitationDTO(*inv))
}

// ListInvitations lists a project's invitations
func (h *ProjectHandler) ListInvitations(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.NotFound(c, "project not found")
		return
	}

	invitations, err := h.projectService.ListInvitations(user, project.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]dto.InvitationDTO, len(invitations))
	for i, inv := range invitations {
		items[i] = dto.ToInvitationDTO(inv)
	}
	c.JSON(http.StatusOK, gin.H{"invitations": items})
}

// AcceptInvitation turns an invitation token into a membership
func (h *ProjectHandler) AcceptInvitation(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	member, err := h.projectService.AcceptInvitation(user, c.Param("token"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectMemberDTO(*member))
}

// DeclineInvitation declines an invitation token
func (h *ProjectHandler) DeclineInvitation(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	if err := h.projectService.DeclineInvitation(user, c.Param("token")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation declined"})
}
