package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/synergysphere/api/internal/database"
	"github.com/synergysphere/api/internal/models"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a live task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.Scopes(database.NotDeleted)
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{}).Scopes(database.NotDeleted)

	if filter.ProjectID != nil {
		query = query.Where("tasks.project_id = ?", *filter.ProjectID)
	}
	if len(filter.ProjectIDs) > 0 {
		query = query.Where("tasks.project_id IN ?", filter.ProjectIDs)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.DueBefore != nil {
		query = query.Where("tasks.due_date < ?", *filter.DueBefore)
	}
	if filter.DueAfter != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueAfter)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("tasks.title LIKE ? OR tasks.description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END, tasks.due_date ASC, tasks.created_at DESC")
	query = query.Scopes(database.Paginate(filter.Page, filter.PageSize))

	if err := query.Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Update saves the full task record
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// UpdateFields applies a partial update to a task
func (r *GormTaskRepository) UpdateFields(id uint64, fields map[string]any) error {
	return r.db.Model(&models.Task{}).Where("id = ?", id).Updates(fields).Error
}

// Delete marks a task as deleted and drops its dependency edges
func (r *GormTaskRepository) Delete(id uint64, actorID uint64, at time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ? OR depends_on_id = ?", id, id).
			Delete(&models.TaskDependency{}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Task{}).Where("id = ?", id).Updates(map[string]any{
			"is_deleted":    true,
			"deleted_at":    at,
			"deleted_by_id": actorID,
		}).Error
	})
}

// CountByProject returns the live task total and how many of them are
// completed
func (r *GormTaskRepository) CountByProject(projectID uint64) (total, completed int64, err error) {
	base := r.db.Model(&models.Task{}).
		Scopes(database.NotDeleted).
		Where("project_id = ?", projectID)

	if err = base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = base.Session(&gorm.Session{}).
		Where("status = ?", models.TaskStatusCompleted).
		Count(&completed).Error; err != nil {
		return 0, 0, err
	}
	return total, completed, nil
}

// CountByStatus returns live task counts grouped by status
func (r *GormTaskRepository) CountByStatus() (map[models.TaskStatus]int64, error) {
	var rows []struct {
		Status models.TaskStatus
		Total  int64
	}
	err := r.db.Model(&models.Task{}).
		Scopes(database.NotDeleted).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// AddDependency records that taskID depends on dependsOnID
func (r *GormTaskRepository) AddDependency(taskID, dependsOnID uint64) error {
	return r.db.Create(&models.TaskDependency{TaskID: taskID, DependsOnID: dependsOnID}).Error
}

// RemoveDependency removes a dependency edge
func (r *GormTaskRepository) RemoveDependency(taskID, dependsOnID uint64) error {
	return r.db.Where("task_id = ? AND depends_on_id = ?", taskID, dependsOnID).
		Delete(&models.TaskDependency{}).Error
}

// DependsOnIDs returns the IDs a task directly depends on
func (r *GormTaskRepository) DependsOnIDs(taskID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.Model(&models.TaskDependency{}).
		Where("task_id = ?", taskID).
		Pluck("depends_on_id", &ids).Error
	return ids, err
}

// CreateActivity appends a task activity record
func (r *GormTaskRepository) CreateActivity(activity *models.TaskActivity) error {
	return r.db.Create(activity).Error
}

// ListActivities lists a task's activity records, newest first
func (r *GormTaskRepository) ListActivities(taskID uint64, page, pageSize int) ([]models.TaskActivity, int64, error) {
	var activities []models.TaskActivity

	query := r.db.Model(&models.TaskActivity{}).Where("task_id = ?", taskID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC")
	query = query.Scopes(database.Paginate(page, pageSize))

	if err := query.Preload("User").Find(&activities).Error; err != nil {
		return nil, 0, err
	}
	return activities, total, nil
}

// DueBetween lists live, unfinished tasks due inside a window
func (r *GormTaskRepository) DueBetween(from, to time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.Scopes(database.NotDeleted).
		Where("due_date >= ? AND due_date < ?", from, to).
		Where("status NOT IN ?", []models.TaskStatus{models.TaskStatusCompleted, models.TaskStatusCancelled}).
		Preload("Assignee").
		Find(&tasks).Error
	return tasks, err
}

// Count returns the number of live tasks
func (r *GormTaskRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Task{}).Scopes(database.NotDeleted).Count(&count).Error
	return count, err
}
