package models

import "time"

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// ValidTaskStatus reports whether s is one of the known task statuses.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview,
		TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// TerminalTaskStatus reports whether s expects no further transitions.
func TerminalTaskStatus(s TaskStatus) bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

type Task struct {
	ID uint64 `gorm:"primarykey" json:"id"`

	// ProjectID is immutable after creation.
	ProjectID uint64 `gorm:"not null;index" json:"project_id"`

	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      TaskStatus `gorm:"type:varchar(20);not null;default:'todo';index" json:"status"`
	Priority    Priority   `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`

	AssigneeID *uint64 `gorm:"index" json:"assignee_id"`

	DueDate     *time.Time `gorm:"index" json:"due_date"`
	StartDate   *time.Time `json:"start_date"`
	CompletedAt *time.Time `json:"completed_at"`

	EstimatedHours *float64 `json:"estimated_hours"`
	ActualHours    *float64 `json:"actual_hours"`
	Progress       int      `gorm:"not null;default:0" json:"progress"`

	ParentTaskID *uint64 `json:"parent_task_id"`

	Tracking
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Project    Project          `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Assignee   *User            `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	ParentTask *Task            `gorm:"foreignKey:ParentTaskID" json:"parent_task,omitempty"`
	DependsOn  []TaskDependency `gorm:"foreignKey:TaskID" json:"depends_on,omitempty"`
}

// IsOverdue reports whether the task is past due and not terminal.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || TerminalTaskStatus(t.Status) {
		return false
	}
	return now.After(*t.DueDate)
}

// IsDueSoon reports whether the task is due within dueSoonDays days and
// not terminal.
func (t *Task) IsDueSoon(now time.Time, dueSoonDays int) bool {
	if t.DueDate == nil || TerminalTaskStatus(t.Status) {
		return false
	}
	until := t.DueDate.Sub(now)
	return until >= 0 && until <= time.Duration(dueSoonDays)*24*time.Hour
}

// TaskDependency is one edge of the task dependency graph: TaskID depends
// on DependsOnID. The graph is kept acyclic at insertion time.
type TaskDependency struct {
	TaskID      uint64    `gorm:"primarykey" json:"task_id"`
	DependsOnID uint64    `gorm:"primarykey" json:"depends_on_id"`
	CreatedAt   time.Time `json:"created_at"`

	// Relations
	Task      Task `gorm:"foreignKey:TaskID" json:"-"`
	DependsOn Task `gorm:"foreignKey:DependsOnID" json:"-"`
}

type TaskAction string

const (
	TaskActionCreated       TaskAction = "created"
	TaskActionUpdated       TaskAction = "updated"
	TaskActionStatusChanged TaskAction = "status_changed"
	TaskActionAssigned      TaskAction = "assigned"
	TaskActionCompleted     TaskAction = "completed"
	TaskActionDeleted       TaskAction = "deleted"
)

// TaskActivity is the audit record emitted for every task mutation.
type TaskActivity struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	TaskID      uint64     `gorm:"not null;index" json:"task_id"`
	UserID      uint64     `gorm:"not null" json:"user_id"`
	Action      TaskAction `gorm:"type:varchar(20);not null" json:"action"`
	Description string     `gorm:"type:text" json:"description"`
	OldValue    string     `gorm:"type:text" json:"old_value"`
	NewValue    string     `gorm:"type:text" json:"new_value"`
	CreatedAt   time.Time  `json:"created_at"`

	// Relations
	Task Task `gorm:"foreignKey:TaskID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
