package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/synergysphere/api/internal/authz"
	"github.com/synergysphere/api/internal/database"
	"github.com/synergysphere/api/internal/logger"
	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
)

// TaskServiceTestSuite defines the test suite for TaskService
type TaskServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	notifRepo   repository.NotificationRepository
	service     *TaskService
}

// SetupTest runs before each test
func (suite *TaskServiceTestSuite) SetupTest() {
	var err error
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = database.MigrateDB(suite.db)
	suite.Require().NoError(err)

	suite.taskRepo = repository.NewTaskRepository(suite.db)
	suite.projectRepo = repository.NewProjectRepository(suite.db)
	suite.notifRepo = repository.NewNotificationRepository(suite.db)

	engine := authz.NewEngine(suite.projectRepo)
	notifSvc := NewNotificationService(suite.notifRepo, nil, nil, logger.NewNop())
	suite.service = NewTaskService(engine, suite.taskRepo, suite.projectRepo, notifSvc, nil, false, logger.NewNop())
}

// TearDownTest runs after each test
func (suite *TaskServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskServiceTestSuite) createUser(email string, role models.UserRole) *models.User {
	user := &models.User{
		Email:        email,
		Username:     email,
		PasswordHash: "hashedpassword",
		Role:         role,
		IsActive:     true,
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *TaskServiceTestSuite) createProject(name string, owner *models.User) *models.Project {
	project := &models.Project{
		Name:   name,
		Status: models.ProjectStatusActive,
	}
	project.CreatedByID = &owner.ID
	member := &models.ProjectMember{
		UserID:   owner.ID,
		Role:     models.MemberRoleAdmin,
		IsActive: true,
		JoinedAt: time.Now(),
	}
	suite.Require().NoError(suite.projectRepo.CreateWithOwnerMember(project, member))
	return project
}

func (suite *TaskServiceTestSuite) addMember(projectID uint64, user *models.User, role models.MemberRole) {
	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      role,
		IsActive:  true,
		JoinedAt:  time.Now(),
	}
	suite.Require().NoError(suite.projectRepo.UpsertMember(member))
}

func (suite *TaskServiceTestSuite) TestCreateTaskIsAdminOnly() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	member := suite.createUser("member@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", admin)
	suite.addMember(project.ID, member, models.MemberRoleMember)

	_, err := suite.service.CreateTask(context.Background(), member, CreateTaskInput{
		ProjectID: project.ID,
		Title:     "Draft roadmap",
	})
	suite.ErrorIs(err, ErrPermissionDenied)

	task, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID: project.ID,
		Title:     "Draft roadmap",
	})
	suite.NoError(err)
	suite.Equal(models.TaskStatusTodo, task.Status)
	suite.Equal(project.ID, task.ProjectID)
}

func (suite *TaskServiceTestSuite) TestAssigneeCanOnlyTouchStatus() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	assignee := suite.createUser("dev@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", admin)
	suite.addMember(project.ID, assignee, models.MemberRoleMember)

	task, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID:  project.ID,
		Title:      "Build pipeline",
		AssigneeID: &assignee.ID,
	})
	suite.Require().NoError(err)

	updated, err := suite.service.UpdateStatus(context.Background(), assignee, task.ID, models.TaskStatusInProgress)
	suite.NoError(err)
	suite.Equal(models.TaskStatusInProgress, updated.Status)

	// The same actor cannot reassign the task.
	other := suite.createUser("other@example.com", models.UserRoleMember)
	suite.addMember(project.ID, other, models.MemberRoleMember)
	_, err = suite.service.UpdateTask(context.Background(), assignee, task.ID, UpdateTaskInput{
		Fields:     authz.Fields("assignee_id"),
		AssigneeID: &other.ID,
	})
	suite.ErrorIs(err, ErrPermissionDenied)
}

func (suite *TaskServiceTestSuite) TestNonAssigneeMemberCannotChangeStatus() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	assignee := suite.createUser("dev@example.com", models.UserRoleMember)
	bystander := suite.createUser("bystander@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", admin)
	suite.addMember(project.ID, assignee, models.MemberRoleMember)
	suite.addMember(project.ID, bystander, models.MemberRoleMember)

	task, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID:  project.ID,
		Title:      "Build pipeline",
		AssigneeID: &assignee.ID,
	})
	suite.Require().NoError(err)

	_, err = suite.service.UpdateStatus(context.Background(), bystander, task.ID, models.TaskStatusReview)
	suite.ErrorIs(err, ErrPermissionDenied)
}

func (suite *TaskServiceTestSuite) TestCompletedAtStampedOnceAndCleared() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	project := suite.createProject("Apollo", admin)

	task, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID: project.ID,
		Title:     "Ship it",
	})
	suite.Require().NoError(err)

	completed, err := suite.service.UpdateStatus(context.Background(), admin, task.ID, models.TaskStatusCompleted)
	suite.Require().NoError(err)
	suite.Require().NotNil(completed.CompletedAt)
	first := *completed.CompletedAt

	// Repeating the same status is accepted and does not restamp.
	again, err := suite.service.UpdateStatus(context.Background(), admin, task.ID, models.TaskStatusCompleted)
	suite.NoError(err)
	suite.Require().NotNil(again.CompletedAt)
	suite.WithinDuration(first, *again.CompletedAt, time.Second)

	// Leaving the completed status clears the stamp.
	reopened, err := suite.service.UpdateStatus(context.Background(), admin, task.ID, models.TaskStatusInProgress)
	suite.NoError(err)
	suite.Nil(reopened.CompletedAt)
}

func (suite *TaskServiceTestSuite) TestStrictModeLocksTerminalStatuses() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	project := suite.createProject("Apollo", admin)

	engine := authz.NewEngine(suite.projectRepo)
	strict := NewTaskService(engine, suite.taskRepo, suite.projectRepo, nil, nil, true, logger.NewNop())

	task, err := strict.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID: project.ID,
		Title:     "One way door",
		Status:    models.TaskStatusCompleted,
	})
	suite.Require().NoError(err)

	_, err = strict.UpdateStatus(context.Background(), admin, task.ID, models.TaskStatusInProgress)
	suite.ErrorIs(err, ErrTerminalTaskStatus)
}

func (suite *TaskServiceTestSuite) TestProjectRelationIsImmutable() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	project := suite.createProject("Apollo", admin)
	otherProject := suite.createProject("Zephyr", admin)

	task, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID: project.ID,
		Title:     "Pinned down",
	})
	suite.Require().NoError(err)

	_, err = suite.service.UpdateTask(context.Background(), admin, task.ID, UpdateTaskInput{
		Fields:    authz.Fields("project_id"),
		ProjectID: &otherProject.ID,
	})
	suite.ErrorIs(err, ErrProjectImmutable)
}

func (suite *TaskServiceTestSuite) TestAssigneeMustBeProjectMember() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	outsider := suite.createUser("outsider@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", admin)

	_, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID:  project.ID,
		Title:      "Orphan work",
		AssigneeID: &outsider.ID,
	})
	suite.ErrorIs(err, ErrInvalidAssignee)
}

func (suite *TaskServiceTestSuite) TestDependencyCyclesAreRejected() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	project := suite.createProject("Apollo", admin)

	var tasks []*models.Task
	for _, title := range []string{"a", "b", "c"} {
		task, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
			ProjectID: project.ID,
			Title:     title,
		})
		suite.Require().NoError(err)
		tasks = append(tasks, task)
	}

	suite.NoError(suite.service.AddDependency(admin, tasks[0].ID, tasks[1].ID))
	suite.NoError(suite.service.AddDependency(admin, tasks[1].ID, tasks[2].ID))

	err := suite.service.AddDependency(admin, tasks[2].ID, tasks[0].ID)
	suite.ErrorIs(err, ErrDependencyCycle)

	err = suite.service.AddDependency(admin, tasks[0].ID, tasks[0].ID)
	suite.ErrorIs(err, ErrDependencyCycle)
}

func (suite *TaskServiceTestSuite) TestDependenciesStayWithinProject() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	project := suite.createProject("Apollo", admin)
	otherProject := suite.createProject("Zephyr", admin)

	task, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID: project.ID,
		Title:     "Local",
	})
	suite.Require().NoError(err)
	foreign, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID: otherProject.ID,
		Title:     "Foreign",
	})
	suite.Require().NoError(err)

	err = suite.service.AddDependency(admin, task.ID, foreign.ID)
	suite.ErrorIs(err, ErrDependencyCrossProject)
}

func (suite *TaskServiceTestSuite) TestProgressRecompute() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	project := suite.createProject("Apollo", admin)

	var tasks []*models.Task
	for _, title := range []string{"a", "b", "c", "d"} {
		task, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
			ProjectID: project.ID,
			Title:     title,
		})
		suite.Require().NoError(err)
		tasks = append(tasks, task)
	}

	_, err := suite.service.UpdateStatus(context.Background(), admin, tasks[0].ID, models.TaskStatusCompleted)
	suite.Require().NoError(err)

	suite.NoError(suite.service.RecomputeProjectProgress(project.ID))
	reloaded, err := suite.projectRepo.FindByID(project.ID)
	suite.Require().NoError(err)
	suite.Equal(25, reloaded.Progress)

	for _, task := range tasks[1:] {
		_, err := suite.service.UpdateStatus(context.Background(), admin, task.ID, models.TaskStatusCompleted)
		suite.Require().NoError(err)
	}
	suite.NoError(suite.service.RecomputeProjectProgress(project.ID))
	reloaded, err = suite.projectRepo.FindByID(project.ID)
	suite.Require().NoError(err)
	suite.Equal(100, reloaded.Progress)
}

func (suite *TaskServiceTestSuite) TestProgressKeptWhenProjectHasNoTasks() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	project := suite.createProject("Apollo", admin)
	suite.Require().NoError(suite.db.Model(&models.Project{}).
		Where("id = ?", project.ID).Update("progress", 100).Error)

	suite.NoError(suite.service.RecomputeProjectProgress(project.ID))

	reloaded, err := suite.projectRepo.FindByID(project.ID)
	suite.Require().NoError(err)
	suite.Equal(100, reloaded.Progress)
}

func (suite *TaskServiceTestSuite) TestDependencyEditsAreAdminOnly() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	assignee := suite.createUser("dev@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", admin)
	suite.addMember(project.ID, assignee, models.MemberRoleMember)

	first, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID:  project.ID,
		Title:      "Design",
		AssigneeID: &assignee.ID,
	})
	suite.Require().NoError(err)
	second, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID: project.ID,
		Title:     "Build",
	})
	suite.Require().NoError(err)

	err = suite.service.AddDependency(assignee, first.ID, second.ID)
	suite.ErrorIs(err, ErrPermissionDenied)

	suite.NoError(suite.service.AddDependency(admin, first.ID, second.ID))

	err = suite.service.RemoveDependency(assignee, first.ID, second.ID)
	suite.ErrorIs(err, ErrPermissionDenied)

	suite.NoError(suite.service.RemoveDependency(admin, first.ID, second.ID))
}

func (suite *TaskServiceTestSuite) TestAssignmentDispatchesNotification() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	assignee := suite.createUser("dev@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", admin)
	suite.addMember(project.ID, assignee, models.MemberRoleMember)

	task, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID:  project.ID,
		Title:      "Handed off",
		AssigneeID: &assignee.ID,
	})
	suite.Require().NoError(err)

	var notifications []models.Notification
	err = suite.db.Where("recipient_id = ?", assignee.ID).Find(&notifications).Error
	suite.Require().NoError(err)
	suite.Require().Len(notifications, 1)
	suite.Equal(models.NotificationTaskAssigned, notifications[0].Type)
	suite.Equal(task.ID, *notifications[0].TaskID)
}

func (suite *TaskServiceTestSuite) TestStatusChangeRecordsActivity() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	project := suite.createProject("Apollo", admin)

	task, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID: project.ID,
		Title:     "Audited",
	})
	suite.Require().NoError(err)

	_, err = suite.service.UpdateStatus(context.Background(), admin, task.ID, models.TaskStatusInProgress)
	suite.Require().NoError(err)

	activities, total, err := suite.service.ListActivities(admin, task.ID, 1, 20)
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	// Newest first: the status change precedes the creation record.
	suite.Equal(models.TaskActionStatusChanged, activities[0].Action)
	suite.Equal(string(models.TaskStatusTodo), activities[0].OldValue)
	suite.Equal(string(models.TaskStatusInProgress), activities[0].NewValue)
}

func (suite *TaskServiceTestSuite) TestDeletedTasksDisappear() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	project := suite.createProject("Apollo", admin)

	task, err := suite.service.CreateTask(context.Background(), admin, CreateTaskInput{
		ProjectID: project.ID,
		Title:     "Short lived",
	})
	suite.Require().NoError(err)

	suite.NoError(suite.service.DeleteTask(admin, task.ID))

	_, err = suite.service.GetTask(admin, task.ID)
	suite.True(errors.Is(err, ErrTaskNotFound))
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
