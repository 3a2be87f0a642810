package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/synergysphere/api/internal/dto"
	apierrors "github.com/synergysphere/api/internal/errors"
	"github.com/synergysphere/api/internal/middleware"
	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
	"github.com/synergysphere/api/internal/services"
	"github.com/synergysphere/api/internal/utils"
)

type DiscussionHandler struct {
	discussionService *services.DiscussionService
}

func NewDiscussionHandler(discussionService *services.DiscussionService) *DiscussionHandler {
	return &DiscussionHandler{discussionService: discussionService}
}

// ListDiscussions returns discussions visible to the caller
func (h *DiscussionHandler) ListDiscussions(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	filter := repository.DiscussionFilter{
		Search:   c.Query("search"),
		Page:     params.Page,
		PageSize: params.Limit,
	}
	if raw := c.Query("project_id"); raw != "" {
		projectID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "invalid project ID")
			return
		}
		filter.ProjectID = &projectID
	}
	if category := c.Query("category"); category != "" {
		cat := models.DiscussionCategory(category)
		filter.Category = &cat
	}

	discussions, total, err := h.discussionService.ListDiscussions(user, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDiscussionListResponse(discussions, params.Page, params.Limit, total))
}

// CreateDiscussion starts a new thread
func (h *DiscussionHandler) CreateDiscussion(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateDiscussionRequest struct {
		Title     string                    `json:"title" binding:"required"`
		Content   string                    `json:"content" binding:"required"`
		Category  models.DiscussionCategory `json:"category"`
		ProjectID *uint64                   `json:"project_id"`
	}

	var req CreateDiscussionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	discussion, err := h.discussionService.CreateDiscussion(user, services.CreateDiscussionInput{
		Title:     req.Title,
		Content:   req.Content,
		Category:  req.Category,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToDiscussionDTO(*discussion))
}

// GetDiscussion returns one discussion and bumps its view count
func (h *DiscussionHandler) GetDiscussion(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	discussionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid discussion ID")
		return
	}

	discussion, err := h.discussionService.GetDiscussion(user, discussionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDiscussionDTO(*discussion))
}

// UpdateDiscussion applies a partial update to a discussion
func (h *DiscussionHandler) UpdateDiscussion(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	discussionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid discussion ID")
		return
	}

	type UpdateDiscussionRequest struct {
		Title    *string                    `json:"title"`
		Content  *string                    `json:"content"`
		Category *models.DiscussionCategory `json:"category"`
		IsPinned *bool                      `json:"is_pinned"`
		IsLocked *bool                      `json:"is_locked"`
	}

	var req UpdateDiscussionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	discussion, err := h.discussionService.UpdateDiscussion(user, discussionID, services.UpdateDiscussionInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		IsPinned: req.IsPinned,
		IsLocked: req.IsLocked,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDiscussionDTO(*discussion))
}

// DeleteDiscussion marks a discussion as deleted
func (h *DiscussionHandler) DeleteDiscussion(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	discussionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid discussion ID")
		return
	}

	if err := h.discussionService.DeleteDiscussion(user, discussionID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Discussion deleted"})
}

// Join adds the caller to a discussion's participants
func (h *DiscussionHandler) Join(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	discussionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid discussion ID")
		return
	}

	if err := h.discussionService.Join(user, discussionID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Joined discussion"})
}

// Leave removes the caller from a discussion's participants
func (h *DiscussionHandler) Leave(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	discussionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid discussion ID")
		return
	}

	if err := h.discussionService.Leave(user, discussionID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left discussion"})
}

// CreateReply posts a reply, optionally nested under another reply
func (h *DiscussionHandler) CreateReply(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	discussionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid discussion ID")
		return
	}

	type CreateReplyRequest struct {
		Content       string  `json:"content" binding:"required"`
		ParentReplyID *uint64 `json:"parent_reply_id"`
	}

	var req CreateReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	reply, err := h.discussionService.CreateReply(c.Request.Context(), user, discussionID, req.Content, req.ParentReplyID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToDiscussionReplyDTO(*reply))
}

// ListReplies returns a discussion's replies, oldest first
func (h *DiscussionHandler) ListReplies(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	discussionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid discussion ID")
		return
	}

	params := utils.GetPaginationParams(c)
	replies, total, err := h.discussionService.ListReplies(user, discussionID, params.Page, params.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDiscussionReplyListResponse(replies, params.Page, params.Limit, total))
}

// Vote records an up or down vote on a discussion
func (h *DiscussionHandler) Vote(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	discussionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid discussion ID")
		return
	}

	type VoteRequest struct {
		VoteType models.VoteType `json:"vote_type" binding:"required"`
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.discussionService.Vote(user, discussionID, req.VoteType); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vote recorded"})
}

// Unvote removes the caller's vote on a discussion
func (h *DiscussionHandler) Unvote(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	discussionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid discussion ID")
		return
	}

	if err := h.discussionService.Unvote(user, discussionID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vote removed"})
}

// VoteCounts returns a discussion's up and down vote totals
func (h *DiscussionHandler) VoteCounts(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	discussionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid discussion ID")
		return
	}

	up, down, err := h.discussionService.VoteCounts(user, discussionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.VoteCountsDTO{Up: up, Down: down})
}
