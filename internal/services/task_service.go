package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/synergysphere/api/internal/authz"
	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrTaskTitleRequired      = errors.New("title is required")
	ErrInvalidTaskStatus      = errors.New("invalid task status")
	ErrInvalidTaskPriority    = errors.New("invalid task priority")
	ErrTerminalTaskStatus     = errors.New("task is in a terminal status")
	ErrProjectImmutable       = errors.New("a task cannot move to another project")
	ErrInvalidAssignee        = errors.New("assignee must be an active member of the project")
	ErrDependencyCycle        = errors.New("dependency would create a cycle")
	ErrDependencyCrossProject = errors.New("dependencies must stay within one project")
)

// ProgressEnqueuer schedules a background progress recompute for one
// project.
type ProgressEnqueuer interface {
	EnqueueProgressRecompute(projectID uint64) error
}

// TaskService handles task business logic
type TaskService struct {
	engine      *authz.Engine
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	notifSvc    *NotificationService
	progress    ProgressEnqueuer
	strict      bool
	logger      *zap.SugaredLogger
}

// NewTaskService creates a new TaskService. strictTransitions locks
// terminal statuses against further changes; progress may be nil to skip
// background recomputes.
func NewTaskService(engine *authz.Engine, taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, notifSvc *NotificationService, progress ProgressEnqueuer, strictTransitions bool, logger *zap.SugaredLogger) *TaskService {
	return &TaskService{
		engine:      engine,
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		notifSvc:    notifSvc,
		progress:    progress,
		strict:      strictTransitions,
		logger:      logger,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ProjectID      uint64
	Title          string
	Description    string
	Status         models.TaskStatus
	Priority       models.Priority
	AssigneeID     *uint64
	DueDate        *time.Time
	StartDate      *time.Time
	EstimatedHours *float64
	ParentTaskID   *uint64
}

// UpdateTaskInput represents input for updating a task. Nil pointers mean
// the field was absent from the payload; Fields carries the payload's key
// set so authorization sees exactly what the caller tried to touch.
type UpdateTaskInput struct {
	Fields authz.FieldSet

	ProjectID      *uint64
	Title          *string
	Description    *string
	Status         *models.TaskStatus
	Priority       *models.Priority
	AssigneeID     *uint64
	ClearAssignee  bool
	DueDate        *time.Time
	ClearDueDate   bool
	StartDate      *time.Time
	EstimatedHours *float64
	ActualHours    *float64
	Progress       *int
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	ProjectID    *uint64
	Status       *models.TaskStatus
	Priority     *models.Priority
	AssignedToMe bool
	DueToday     bool
	Search       string
	Page         int
	PageSize     int
}

// CreateTask creates a new task in a project. Only platform admins may
// create tasks.
func (s *TaskService) CreateTask(ctx context.Context, actor *models.User, input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTaskTitleRequired
	}
	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !models.ValidTaskStatus(input.Status) {
		return nil, ErrInvalidTaskStatus
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(input.Priority) {
		return nil, ErrInvalidTaskPriority
	}

	project, err := s.projectRepo.FindByID(input.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	task := &models.Task{
		ProjectID:      project.ID,
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		Status:         input.Status,
		Priority:       input.Priority,
		AssigneeID:     input.AssigneeID,
		DueDate:        input.DueDate,
		StartDate:      input.StartDate,
		EstimatedHours: input.EstimatedHours,
		ParentTaskID:   input.ParentTaskID,
	}
	task.CreatedByID = &actor.ID

	if err := authorize(s.engine, actor, authz.OpCreate, task, nil); err != nil {
		return nil, err
	}

	if task.AssigneeID != nil {
		if err := s.checkAssignee(project.ID, *task.AssigneeID); err != nil {
			return nil, err
		}
	}
	if task.Status == models.TaskStatusCompleted {
		now := time.Now()
		task.CompletedAt = &now
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.recordActivity(task.ID, actor.ID, models.TaskActionCreated, "task created", "", string(task.Status))

	if task.AssigneeID != nil && *task.AssigneeID != actor.ID {
		s.notifyAssigned(ctx, actor, task)
	}
	s.enqueueProgress(task.ProjectID)

	return task, nil
}

// GetTask returns a task with related data
func (s *TaskService) GetTask(actor *models.User, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Assignee", "Project", "DependsOn")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpRead, task, nil); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns tasks in projects the actor can see
func (s *TaskService) ListTasks(actor *models.User, input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		ProjectID: input.ProjectID,
		Status:    input.Status,
		Priority:  input.Priority,
		Search:    input.Search,
		Page:      input.Page,
		PageSize:  input.PageSize,
	}

	if input.ProjectID != nil {
		// A concrete project: run the ordinary read check against it.
		project, err := s.projectRepo.FindByID(*input.ProjectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, ErrProjectNotFound
			}
			return nil, 0, fmt.Errorf("failed to find project: %w", err)
		}
		if err := authorize(s.engine, actor, authz.OpRead, &models.Task{ProjectID: project.ID}, nil); err != nil {
			return nil, 0, err
		}
	} else if !actor.IsAdminUser() {
		projectIDs, err := s.projectRepo.ListProjectIDsForUser(actor.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to resolve memberships: %w", err)
		}
		if len(projectIDs) == 0 {
			return []models.Task{}, 0, nil
		}
		filter.ProjectIDs = projectIDs
	}

	if input.AssignedToMe {
		filter.AssigneeID = &actor.ID
	}
	if input.DueToday {
		now := time.Now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		endOfDay := startOfDay.Add(24 * time.Hour)
		filter.DueAfter = &startOfDay
		filter.DueBefore = &endOfDay
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// UpdateTask applies a partial update to a task. Authorization sees the
// payload's exact field set, so an assignee may flip status while any
// other field denies the whole request.
func (s *TaskService) UpdateTask(ctx context.Context, actor *models.User, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpUpdate, task, input.Fields); err != nil {
		return nil, err
	}

	// The project relation is immutable for everyone, admins included.
	if input.ProjectID != nil && *input.ProjectID != task.ProjectID {
		return nil, ErrProjectImmutable
	}

	fields := make(map[string]any)
	oldStatus := task.Status
	assigneeChanged := false

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrTaskTitleRequired
		}
		fields["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Priority != nil {
		if !models.ValidPriority(*input.Priority) {
			return nil, ErrInvalidTaskPriority
		}
		fields["priority"] = *input.Priority
	}
	if input.DueDate != nil {
		fields["due_date"] = *input.DueDate
	} else if input.ClearDueDate {
		fields["due_date"] = nil
	}
	if input.StartDate != nil {
		fields["start_date"] = *input.StartDate
	}
	if input.EstimatedHours != nil {
		fields["estimated_hours"] = *input.EstimatedHours
	}
	if input.ActualHours != nil {
		fields["actual_hours"] = *input.ActualHours
	}
	if input.Progress != nil {
		fields["progress"] = *input.Progress
	}

	if input.AssigneeID != nil {
		if task.AssigneeID == nil || *task.AssigneeID != *input.AssigneeID {
			if err := s.checkAssignee(task.ProjectID, *input.AssigneeID); err != nil {
				return nil, err
			}
			fields["assignee_id"] = *input.AssigneeID
			assigneeChanged = true
		}
	} else if input.ClearAssignee && task.AssigneeID != nil {
		fields["assignee_id"] = nil
		assigneeChanged = true
	}

	if input.Status != nil && *input.Status != task.Status {
		if !models.ValidTaskStatus(*input.Status) {
			return nil, ErrInvalidTaskStatus
		}
		if s.strict && models.TerminalTaskStatus(task.Status) {
			return nil, ErrTerminalTaskStatus
		}
		fields["status"] = *input.Status

		// Completion time is stamped once and survives repeated
		// completions; leaving the completed status clears it.
		if *input.Status == models.TaskStatusCompleted {
			if task.CompletedAt == nil {
				fields["completed_at"] = time.Now()
			}
		} else if task.Status == models.TaskStatusCompleted {
			fields["completed_at"] = nil
		}
	}

	if len(fields) > 0 {
		fields["updated_by_id"] = actor.ID
		if err := s.taskRepo.UpdateFields(task.ID, fields); err != nil {
			return nil, fmt.Errorf("failed to update task: %w", err)
		}
	}

	updated, err := s.taskRepo.FindByID(task.ID, "Assignee", "Project")
	if err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}

	if updated.Status != oldStatus {
		action := models.TaskActionStatusChanged
		if updated.Status == models.TaskStatusCompleted {
			action = models.TaskActionCompleted
		}
		s.recordActivity(updated.ID, actor.ID, action, "status changed", string(oldStatus), string(updated.Status))
		if updated.Status == models.TaskStatusCompleted {
			s.notifyCompleted(ctx, actor, updated)
		}
		s.enqueueProgress(updated.ProjectID)
	}
	if assigneeChanged {
		s.recordActivity(updated.ID, actor.ID, models.TaskActionAssigned, "assignee changed", "", "")
		if updated.AssigneeID != nil && *updated.AssigneeID != actor.ID {
			s.notifyAssigned(ctx, actor, updated)
		}
	}
	if updated.Status == oldStatus && !assigneeChanged && len(fields) > 0 {
		s.recordActivity(updated.ID, actor.ID, models.TaskActionUpdated, "task updated", "", "")
	}

	return updated, nil
}

// UpdateStatus is the status-only update path used by assignees
func (s *TaskService) UpdateStatus(ctx context.Context, actor *models.User, taskID uint64, status models.TaskStatus) (*models.Task, error) {
	return s.UpdateTask(ctx, actor, taskID, UpdateTaskInput{
		Fields: authz.Fields("status"),
		Status: &status,
	})
}

// DeleteTask marks a task as deleted
func (s *TaskService) DeleteTask(actor *models.User, taskID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpDelete, task, nil); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(task.ID, actor.ID, time.Now()); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.recordActivity(task.ID, actor.ID, models.TaskActionDeleted, "task deleted", string(task.Status), "")
	s.enqueueProgress(task.ProjectID)
	return nil
}

// AddDependency records that a task depends on another task in the same
// project, rejecting edges that would close a cycle
func (s *TaskService) AddDependency(actor *models.User, taskID, dependsOnID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpUpdate, task, nil); err != nil {
		return err
	}

	dependsOn, err := s.taskRepo.FindByID(dependsOnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find dependency: %w", err)
	}
	if dependsOn.ProjectID != task.ProjectID {
		return ErrDependencyCrossProject
	}

	if taskID == dependsOnID {
		return ErrDependencyCycle
	}
	reachable, err := s.dependencyReaches(dependsOnID, taskID)
	if err != nil {
		return err
	}
	if reachable {
		return ErrDependencyCycle
	}

	if err := s.taskRepo.AddDependency(taskID, dependsOnID); err != nil {
		return fmt.Errorf("failed to add dependency: %w", err)
	}
	return nil
}

// RemoveDependency removes a dependency edge
func (s *TaskService) RemoveDependency(actor *models.User, taskID, dependsOnID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpUpdate, task, nil); err != nil {
		return err
	}
	return s.taskRepo.RemoveDependency(taskID, dependsOnID)
}

// ListActivities returns a task's audit trail, newest first
func (s *TaskService) ListActivities(actor *models.User, taskID uint64, page, pageSize int) ([]models.TaskActivity, int64, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrTaskNotFound
		}
		return nil, 0, fmt.Errorf("failed to find task: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpRead, task, nil); err != nil {
		return nil, 0, err
	}
	return s.taskRepo.ListActivities(taskID, page, pageSize)
}

// RecomputeProjectProgress recomputes a project's progress from its live
// tasks and persists the value only when it changed
func (s *TaskService) RecomputeProjectProgress(projectID uint64) error {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	total, completed, err := s.taskRepo.CountByProject(projectID)
	if err != nil {
		return fmt.Errorf("failed to count tasks: %w", err)
	}
	// A project with no live tasks keeps its stored progress.
	if total == 0 {
		return nil
	}

	progress := int(completed * 100 / total)
	if progress == project.Progress {
		return nil
	}
	if err := s.projectRepo.UpdateProgress(projectID, progress); err != nil {
		return fmt.Errorf("failed to persist progress: %w", err)
	}
	return nil
}

// RecomputeAllProgress recomputes every live project's progress. One
// broken project never stops the sweep.
func (s *TaskService) RecomputeAllProgress() error {
	ids, err := s.projectRepo.ListActiveIDs()
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	for _, id := range ids {
		if err := s.RecomputeProjectProgress(id); err != nil {
			s.logger.Errorw("progress recompute failed", "project_id", id, "error", err)
		}
	}
	return nil
}

func (s *TaskService) checkAssignee(projectID, userID uint64) error {
	member, err := s.projectRepo.ActiveMember(projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to check assignee membership: %w", err)
	}
	if member == nil {
		return ErrInvalidAssignee
	}
	return nil
}

func (s *TaskService) dependencyReaches(from, target uint64) (bool, error) {
	visited := map[uint64]bool{from: true}
	queue := []uint64{from}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == target {
			return true, nil
		}

		next, err := s.taskRepo.DependsOnIDs(current)
		if err != nil {
			return false, fmt.Errorf("failed to walk dependencies: %w", err)
		}
		for _, id := range next {
			if !visited[id] {
				visited[id] = true
				queue = append(queue, id)
			}
		}
	}
	return false, nil
}

func (s *TaskService) recordActivity(taskID, userID uint64, action models.TaskAction, description, oldValue, newValue string) {
	activity := &models.TaskActivity{
		TaskID:      taskID,
		UserID:      userID,
		Action:      action,
		Description: description,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
	if err := s.taskRepo.CreateActivity(activity); err != nil {
		s.logger.Errorw("failed to record task activity", "task_id", taskID, "action", action, "error", err)
	}
}

func (s *TaskService) notifyAssigned(ctx context.Context, actor *models.User, task *models.Task) {
	if s.notifSvc == nil || task.AssigneeID == nil {
		return
	}
	n := &models.Notification{
		RecipientID: *task.AssigneeID,
		SenderID:    &actor.ID,
		Type:        models.NotificationTaskAssigned,
		Title:       "Task assigned to you",
		Message:     fmt.Sprintf("%s assigned you the task %q", actor.FullName(), task.Title),
		Priority:    models.PriorityMedium,
		ProjectID:   &task.ProjectID,
		TaskID:      &task.ID,
		ActionURL:   fmt.Sprintf("/tasks/%d", task.ID),
	}
	if err := s.notifSvc.Dispatch(ctx, n); err != nil {
		s.logger.Errorw("failed to dispatch assignment notification", "task_id", task.ID, "error", err)
	}
}

func (s *TaskService) notifyCompleted(ctx context.Context, actor *models.User, task *models.Task) {
	if s.notifSvc == nil {
		return
	}

	recipients := make(map[uint64]bool)
	if creator, ok := task.OwnedBy(); ok && creator != actor.ID {
		recipients[creator] = true
	}
	if task.AssigneeID != nil && *task.AssigneeID != actor.ID {
		recipients[*task.AssigneeID] = true
	}

	for recipientID := range recipients {
		n := &models.Notification{
			RecipientID: recipientID,
			SenderID:    &actor.ID,
			Type:        models.NotificationTaskCompleted,
			Title:       "Task completed",
			Message:     fmt.Sprintf("The task %q was completed", task.Title),
			Priority:    models.PriorityLow,
			ProjectID:   &task.ProjectID,
			TaskID:      &task.ID,
			ActionURL:   fmt.Sprintf("/tasks/%d", task.ID),
		}
		if err := s.notifSvc.Dispatch(ctx, n); err != nil {
			s.logger.Errorw("failed to dispatch completion notification", "task_id", task.ID, "error", err)
		}
	}
}

func (s *TaskService) enqueueProgress(projectID uint64) {
	if s.progress == nil {
		return
	}
	if err := s.progress.EnqueueProgressRecompute(projectID); err != nil {
		s.logger.Warnw("failed to enqueue progress recompute", "project_id", projectID, "error", err)
	}
}
