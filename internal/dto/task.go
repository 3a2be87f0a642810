package dto

import (
	"time"

	"github.com/synergysphere/api/internal/constants"
	"github.com/synergysphere/api/internal/models"
)

// TaskDTO represents a task in API responses. IsOverdue and IsDueSoon are
// derived from the due date at response time.
type TaskDTO struct {
	ID             uint64            `json:"id"`
	ProjectID      uint64            `json:"project_id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Status         models.TaskStatus `json:"status"`
	Priority       models.Priority   `json:"priority"`
	AssigneeID     *uint64           `json:"assignee_id"`
	Assignee       *UserDTO          `json:"assignee,omitempty"`
	DueDate        *time.Time        `json:"due_date"`
	StartDate      *time.Time        `json:"start_date"`
	CompletedAt    *time.Time        `json:"completed_at"`
	EstimatedHours *float64          `json:"estimated_hours"`
	ActualHours    *float64          `json:"actual_hours"`
	Progress       int               `json:"progress"`
	ParentTaskID   *uint64           `json:"parent_task_id"`
	CreatedByID    *uint64           `json:"created_by_id"`
	IsOverdue      bool              `json:"is_overdue"`
	IsDueSoon      bool              `json:"is_due_soon"`
	DependsOnIDs   []uint64          `json:"depends_on_ids,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}

// TaskActivityDTO represents one audit entry in API responses
type TaskActivityDTO struct {
	ID          uint64            `json:"id"`
	TaskID      uint64            `json:"task_id"`
	UserID      uint64            `json:"user_id"`
	User        *UserDTO          `json:"user,omitempty"`
	Action      models.TaskAction `json:"action"`
	Description string            `json:"description"`
	OldValue    string            `json:"old_value,omitempty"`
	NewValue    string            `json:"new_value,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// TaskActivityListResponse represents a paginated activity trail
type TaskActivityListResponse struct {
	Activities []TaskActivityDTO `json:"activities"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int64             `json:"total_count"`
	TotalPages int               `json:"total_pages"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	now := time.Now()
	d := TaskDTO{
		ID:             task.ID,
		ProjectID:      task.ProjectID,
		Title:          task.Title,
		Description:    task.Description,
		Status:         task.Status,
		Priority:       task.Priority,
		AssigneeID:     task.AssigneeID,
		DueDate:        task.DueDate,
		StartDate:      task.StartDate,
		CompletedAt:    task.CompletedAt,
		EstimatedHours: task.EstimatedHours,
		ActualHours:    task.ActualHours,
		Progress:       task.Progress,
		ParentTaskID:   task.ParentTaskID,
		CreatedByID:    task.CreatedByID,
		IsOverdue:      task.IsOverdue(now),
		IsDueSoon:      task.IsDueSoon(now, constants.DueSoonDays),
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}
	if task.Assignee != nil {
		assignee := ToUserDTO(*task.Assignee)
		d.Assignee = &assignee
	}
	for _, dep := range task.DependsOn {
		d.DependsOnIDs = append(d.DependsOnIDs, dep.DependsOnID)
	}
	return d
}

// ToTaskListResponse builds the paginated task list payload
func ToTaskListResponse(tasks []models.Task, page, pageSize int, total int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages(total, pageSize),
	}
}

// ToTaskActivityDTO converts a TaskActivity model to TaskActivityDTO
func ToTaskActivityDTO(activity models.TaskActivity) TaskActivityDTO {
	d := TaskActivityDTO{
		ID:          activity.ID,
		TaskID:      activity.TaskID,
		UserID:      activity.UserID,
		Action:      activity.Action,
		Description: activity.Description,
		OldValue:    activity.OldValue,
		NewValue:    activity.NewValue,
		CreatedAt:   activity.CreatedAt,
	}
	if activity.User.ID != 0 {
		user := ToUserDTO(activity.User)
		d.User = &user
	}
	return d
}

// ToTaskActivityListResponse builds the paginated activity payload
func ToTaskActivityListResponse(activities []models.TaskActivity, page, pageSize int, total int64) TaskActivityListResponse {
	items := make([]TaskActivityDTO, len(activities))
	for i, activity := range activities {
		items[i] = ToTaskActivityDTO(activity)
	}
	return TaskActivityListResponse{
		Activities: items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages(total, pageSize),
	}
}
