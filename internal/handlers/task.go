package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/synergysphere/api/internal/authz"
	"github.com/synergysphere/api/internal/dto"
	apierrors "github.com/synergysphere/api/internal/errors"
	"github.com/synergysphere/api/internal/middleware"
	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/services"
	"github.com/synergysphere/api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// ListTasks returns tasks visible to the caller, optionally filtered
func (h *TaskHandler) ListTasks(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		AssignedToMe: c.Query("assigned_to_me") == "true" || c.Query("mine") == "true",
		DueToday:     c.Query("due_today") == "true",
		Search:       c.Query("search"),
		Page:         params.Page,
		PageSize:     params.Limit,
	}
	if raw := c.Query("project_id"); raw != "" {
		projectID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "invalid project ID")
			return
		}
		input.ProjectID = &projectID
	}
	if status := c.Query("status"); status != "" {
		s := models.TaskStatus(status)
		input.Status = &s
	}
	if priority := c.Query("priority"); priority != "" {
		p := models.Priority(priority)
		input.Priority = &p
	}

	tasks, total, err := h.taskService.ListTasks(user, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total))
}

// CreateTask creates a task in a project
func (h *TaskHandler) CreateTask(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateTaskRequest struct {
		ProjectID      uint64            `json:"project_id" binding:"required"`
		Title          string            `json:"title" binding:"required"`
		Description    string            `json:"description"`
		Status         models.TaskStatus `json:"status"`
		Priority       models.Priority   `json:"priority"`
		AssigneeID     *uint64           `json:"assignee_id"`
		DueDate        *time.Time        `json:"due_date"`
		StartDate      *time.Time        `json:"start_date"`
		EstimatedHours *float64          `json:"estimated_hours"`
		ParentTaskID   *uint64           `json:"parent_task_id"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), user, services.CreateTaskInput{
		ProjectID:      req.ProjectID,
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		AssigneeID:     req.AssigneeID,
		DueDate:        req.DueDate,
		StartDate:      req.StartDate,
		EstimatedHours: req.EstimatedHours,
		ParentTaskID:   req.ParentTaskID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GetTask returns a single task
func (h *TaskHandler) GetTask(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.NotFound(c, "task not found")
		return
	}

	full, err := h.taskService.GetTask(user, task.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*full))
}

// UpdateTask applies a partial update. The raw payload is decoded twice:
// once into a map so authorization sees the exact key set, and once into
// the typed request. A key present with a null value clears that field.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.NotFound(c, "task not found")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	type UpdateTaskRequest struct {
		ProjectID      *uint64            `json:"project_id"`
		Title          *string            `json:"title"`
		Description    *string            `json:"description"`
		Status         *models.TaskStatus `json:"status"`
		Priority       *models.Priority   `json:"priority"`
		AssigneeID     *uint64            `json:"assignee_id"`
		DueDate        *time.Time         `json:"due_date"`
		StartDate      *time.Time         `json:"start_date"`
		EstimatedHours *float64           `json:"estimated_hours"`
		ActualHours    *float64           `json:"actual_hours"`
		Progress       *int               `json:"progress"`
	}

	var req UpdateTaskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Fields:         authz.FieldsFromPayload(payload),
		ProjectID:      req.ProjectID,
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		AssigneeID:     req.AssigneeID,
		DueDate:        req.DueDate,
		StartDate:      req.StartDate,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
		Progress:       req.Progress,
	}
	if v, present := payload["assignee_id"]; present && v == nil {
		input.ClearAssignee = true
	}
	if v, present := payload["due_date"]; present && v == nil {
		input.ClearDueDate = true
	}

	updated, err := h.taskService.UpdateTask(c.Request.Context(), user, task.ID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// UpdateStatus changes only a task's status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.NotFound(c, "task not found")
		return
	}

	type UpdateStatusRequest struct {
		Status models.TaskStatus `json:"status" binding:"required"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.taskService.UpdateStatus(c.Request.Context(), user, task.ID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask marks a task as deleted
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.NotFound(c, "task not found")
		return
	}

	if err := h.taskService.DeleteTask(user, task.ID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

// AddDependency records that this task depends on another
func (h *TaskHandler) AddDependency(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.NotFound(c, "task not found")
		return
	}

	type AddDependencyRequest struct {
		DependsOnID uint64 `json:"depends_on_id" binding:"required"`
	}

	var req AddDependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.taskService.AddDependency(user, task.ID, req.DependsOnID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Dependency added"})
}

// RemoveDependency removes a dependency edge
func (h *TaskHandler) RemoveDependency(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.NotFound(c, "task not found")
		return
	}

	dependsOnID, err := strconv.ParseUint(c.Param("depends_on_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid task ID")
		return
	}

	if err := h.taskService.RemoveDependency(user, task.ID, dependsOnID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dependency removed"})
}

// ListActivities returns a task's activity log, newest first
func (h *TaskHandler) ListActivities(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.NotFound(c, "task not found")
		return
	}

	params := utils.GetPaginationParams(c)
	activities, total, err := h.taskService.ListActivities(user, task.ID, params.Page, params.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskActivityListResponse(activities, params.Page, params.Limit, total))
}
