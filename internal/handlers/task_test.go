package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/synergysphere/api/internal/authz"
	"github.com/synergysphere/api/internal/constants"
	"github.com/synergysphere/api/internal/database"
	"github.com/synergysphere/api/internal/logger"
	"github.com/synergysphere/api/internal/middleware"
	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
	"github.com/synergysphere/api/internal/services"
)

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db          *gorm.DB
	projectRepo repository.ProjectRepository
	router      *gin.Engine
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	var err error
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = database.MigrateDB(suite.db)
	suite.Require().NoError(err)

	// Set the test DB as the default database
	database.SetDB(suite.db)

	taskRepo := repository.NewTaskRepository(suite.db)
	suite.projectRepo = repository.NewProjectRepository(suite.db)
	engine := authz.NewEngine(suite.projectRepo)
	service := services.NewTaskService(engine, taskRepo, suite.projectRepo, nil, nil, false, logger.NewNop())

	handler := NewTaskHandler(service)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()

	// Stand-in for the token middleware: the authenticated user ID
	// arrives in a test header.
	suite.router.Use(func(c *gin.Context) {
		userID, err := strconv.ParseUint(c.GetHeader("X-Test-User"), 10, 64)
		if err != nil {
			c.Next()
			return
		}
		var user models.User
		if err := suite.db.First(&user, userID).Error; err != nil {
			c.Next()
			return
		}
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUser, user)
		c.Next()
	})

	tasks := suite.router.Group("/api/tasks")
	{
		tasks.GET("", handler.ListTasks)
		tasks.POST("", handler.CreateTask)
		tasks.GET("/:id", middleware.RequireTaskAccess(), handler.GetTask)
		tasks.PATCH("/:id", middleware.RequireTaskAccess(), handler.UpdateTask)
		tasks.PATCH("/:id/update_status", middleware.RequireTaskAccess(), handler.UpdateStatus)
	}
}

// TearDownTest runs after each test
func (suite *TaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskHandlerTestSuite) createUser(email string, role models.UserRole) *models.User {
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

func (suite *TaskHandlerTestSuite) createProject(name string, owner *models.User) *models.Project {
	project := &models.Project{Name: name, Status: models.ProjectStatusActive}
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

func (suite *TaskHandlerTestSuite) addMember(projectID uint64, user *models.User, role models.MemberRole) {
	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      role,
		IsActive:  true,
		JoinedAt:  time.Now(),
	}
	suite.Require().NoError(suite.projectRepo.UpsertMember(member))
}

func (suite *TaskHandlerTestSuite) request(user *models.User, method, url string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	req.Header.Set("X-Test-User", strconv.FormatUint(user.ID, 10))
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *TaskHandlerTestSuite) createTask(admin *models.User, projectID uint64, payload gin.H) int {
	payload["project_id"] = projectID
	body, err := json.Marshal(payload)
	suite.Require().NoError(err)

	w := suite.request(admin, http.MethodPost, "/api/tasks", body)
	suite.Require().Equal(http.StatusCreated, w.Code)

	var created map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	return int(created["id"].(float64))
}

func (suite *TaskHandlerTestSuite) TestCreateTask() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	project := suite.createProject("Apollo", admin)

	body, _ := json.Marshal(gin.H{"project_id": project.ID, "title": "First task"})
	w := suite.request(admin, http.MethodPost, "/api/tasks", body)
	suite.Equal(http.StatusCreated, w.Code)

	var resp map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("First task", resp["title"])
	suite.Equal("todo", resp["status"])
}

func (suite *TaskHandlerTestSuite) TestCreateTaskRejectsNonAdmins() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	member := suite.createUser("member@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", admin)
	suite.addMember(project.ID, member, models.MemberRoleMember)

	body, _ := json.Marshal(gin.H{"project_id": project.ID, "title": "Denied"})
	w := suite.request(member, http.MethodPost, "/api/tasks", body)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestHiddenTasksAnswerNotFound() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	outsider := suite.createUser("outsider@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", admin)

	taskID := suite.createTask(admin, project.ID, gin.H{"title": "Hidden"})

	// Non-members get a 404, not a 403, so task existence never leaks.
	w := suite.request(outsider, http.MethodGet, fmt.Sprintf("/api/tasks/%d", taskID), nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestAssigneeStatusOnlyUpdate() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	assignee := suite.createUser("dev@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", admin)
	suite.addMember(project.ID, assignee, models.MemberRoleMember)

	taskID := suite.createTask(admin, project.ID, gin.H{"title": "Assigned", "assignee_id": assignee.ID})

	// Status-only is allowed for the assignee.
	body, _ := json.Marshal(gin.H{"status": "in_progress"})
	w := suite.request(assignee, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", taskID), body)
	suite.Equal(http.StatusOK, w.Code)

	// Mixing in an admin-only field denies the whole request.
	body, _ = json.Marshal(gin.H{"status": "review", "assignee_id": admin.ID})
	w = suite.request(assignee, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", taskID), body)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestUpdateStatusEndpoint() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	assignee := suite.createUser("dev@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", admin)
	suite.addMember(project.ID, assignee, models.MemberRoleMember)

	taskID := suite.createTask(admin, project.ID, gin.H{"title": "Flipped", "assignee_id": assignee.ID})

	body, _ := json.Marshal(gin.H{"status": "completed"})
	w := suite.request(assignee, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/update_status", taskID), body)
	suite.Equal(http.StatusOK, w.Code)

	var resp map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("completed", resp["status"])
	suite.NotNil(resp["completed_at"])
}

func (suite *TaskHandlerTestSuite) TestProjectFieldIsImmutable() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	project := suite.createProject("Apollo", admin)
	other := suite.createProject("Zephyr", admin)

	taskID := suite.createTask(admin, project.ID, gin.H{"title": "Stuck"})

	body, _ := json.Marshal(gin.H{"project_id": other.ID})
	w := suite.request(admin, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", taskID), body)
	suite.Equal(http.StatusBadRequest, w.Code)

	var resp map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("IMMUTABLE_FIELD", resp["code"])
}

func (suite *TaskHandlerTestSuite) TestNullAssigneeClearsAssignment() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	assignee := suite.createUser("dev@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", admin)
	suite.addMember(project.ID, assignee, models.MemberRoleMember)

	taskID := suite.createTask(admin, project.ID, gin.H{"title": "Unassign me", "assignee_id": assignee.ID})

	// An explicit null clears the field; an absent key leaves it alone.
	w := suite.request(admin, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", taskID), []byte(`{"assignee_id": null}`))
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Nil(resp["assignee_id"])
}

func (suite *TaskHandlerTestSuite) TestListTasksScopedToMemberships() {
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	member := suite.createUser("member@example.com", models.UserRoleMember)
	mine := suite.createProject("Mine", admin)
	theirs := suite.createProject("Theirs", admin)
	suite.addMember(mine.ID, member, models.MemberRoleMember)

	suite.createTask(admin, mine.ID, gin.H{"title": "Visible"})
	suite.createTask(admin, theirs.ID, gin.H{"title": "Invisible"})

	w := suite.request(member, http.MethodGet, "/api/tasks", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp struct {
		Tasks      []map[string]any `json:"tasks"`
		TotalCount int64            `json:"total_count"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(int64(1), resp.TotalCount)
	suite.Require().Len(resp.Tasks, 1)
	suite.Equal("Visible", resp.Tasks[0]["title"])
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
