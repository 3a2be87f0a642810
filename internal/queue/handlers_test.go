package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/synergysphere/api/internal/database"
	"github.com/synergysphere/api/internal/logger"
	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
	"github.com/synergysphere/api/internal/services"
)

type recordingMailer struct {
	sent []string
}

func (m *recordingMailer) Send(to, subject, body string) error {
	m.sent = append(m.sent, to)
	return nil
}

type recordingSMSSender struct {
	sent []string
}

func (s *recordingSMSSender) Send(to, message string) error {
	s.sent = append(s.sent, to)
	return nil
}

// HandlersTestSuite defines the test suite for the background handlers
type HandlersTestSuite struct {
	suite.Suite
	db        *gorm.DB
	notifRepo repository.NotificationRepository
	mailer    *recordingMailer
	sms       *recordingSMSSender
	handlers  *Handlers
}

// SetupTest runs before each test
func (suite *HandlersTestSuite) SetupTest() {
	var err error
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = database.MigrateDB(suite.db)
	suite.Require().NoError(err)

	suite.notifRepo = repository.NewNotificationRepository(suite.db)
	userRepo := repository.NewUserRepository(suite.db)
	taskRepo := repository.NewTaskRepository(suite.db)

	notifSvc := services.NewNotificationService(suite.notifRepo, nil, nil, logger.NewNop())
	suite.mailer = &recordingMailer{}
	suite.sms = &recordingSMSSender{}
	suite.handlers = NewHandlers(
		suite.notifRepo, userRepo, taskRepo,
		nil, nil, notifSvc,
		suite.mailer, suite.sms, logger.NewNop(),
	)
}

// TearDownTest runs after each test
func (suite *HandlersTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *HandlersTestSuite) createUser(email string) *models.User {
	user := &models.User{
		Email:        email,
		Username:     email,
		PasswordHash: "hashedpassword",
		Role:         models.UserRoleMember,
		IsActive:     true,
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *HandlersTestSuite) createNotification(recipientID uint64, priority models.Priority) *models.Notification {
	notification := &models.Notification{
		RecipientID: recipientID,
		Type:        models.NotificationSystem,
		Title:       "Heads up",
		Message:     "Something happened",
		Priority:    priority,
	}
	suite.Require().NoError(suite.notifRepo.Create(notification))
	return notification
}

func (suite *HandlersTestSuite) deliveryTask(taskType string, notificationID uint64) *asynq.Task {
	payload, err := json.Marshal(DeliveryPayload{NotificationID: notificationID})
	suite.Require().NoError(err)
	return asynq.NewTask(taskType, payload)
}

func (suite *HandlersTestSuite) reload(id uint64) *models.Notification {
	notification, err := suite.notifRepo.FindByID(id)
	suite.Require().NoError(err)
	return notification
}

func (suite *HandlersTestSuite) TestEmailDeliverySendsOnce() {
	user := suite.createUser("ada@example.com")
	notification := suite.createNotification(user.ID, models.PriorityMedium)
	task := suite.deliveryTask(TypeEmailDelivery, notification.ID)

	suite.NoError(suite.handlers.HandleEmailDelivery(context.Background(), task))
	suite.NoError(suite.handlers.HandleEmailDelivery(context.Background(), task))

	suite.Equal([]string{"ada@example.com"}, suite.mailer.sent)
	suite.True(suite.reload(notification.ID).EmailSent)
}

func (suite *HandlersTestSuite) TestEmailDeliveryRespectsOptOut() {
	user := suite.createUser("quiet@example.com")
	suite.Require().NoError(suite.db.Model(user).Update("email_notifications", false).Error)
	notification := suite.createNotification(user.ID, models.PriorityMedium)
	task := suite.deliveryTask(TypeEmailDelivery, notification.ID)

	suite.NoError(suite.handlers.HandleEmailDelivery(context.Background(), task))

	suite.Empty(suite.mailer.sent)
	suite.True(suite.reload(notification.ID).EmailSent)
}

func (suite *HandlersTestSuite) TestEmailDeliveryDropsMissingRows() {
	task := suite.deliveryTask(TypeEmailDelivery, 9999)

	suite.NoError(suite.handlers.HandleEmailDelivery(context.Background(), task))
	suite.Empty(suite.mailer.sent)
}

func (suite *HandlersTestSuite) TestSMSDeliverySkipsLowPriority() {
	user := suite.createUser("bob@example.com")
	suite.Require().NoError(suite.db.Model(user).Update("phone_number", "+15551230001").Error)
	notification := suite.createNotification(user.ID, models.PriorityMedium)
	task := suite.deliveryTask(TypeSMSDelivery, notification.ID)

	suite.NoError(suite.handlers.HandleSMSDelivery(context.Background(), task))

	suite.Empty(suite.sms.sent)
	suite.True(suite.reload(notification.ID).SMSSent)
}

func (suite *HandlersTestSuite) TestSMSDeliverySendsHighPriorityOnce() {
	user := suite.createUser("carol@example.com")
	suite.Require().NoError(suite.db.Model(user).Update("phone_number", "+15551230002").Error)
	notification := suite.createNotification(user.ID, models.PriorityCritical)
	task := suite.deliveryTask(TypeSMSDelivery, notification.ID)

	suite.NoError(suite.handlers.HandleSMSDelivery(context.Background(), task))
	suite.NoError(suite.handlers.HandleSMSDelivery(context.Background(), task))

	suite.Equal([]string{"+15551230002"}, suite.sms.sent)
	suite.True(suite.reload(notification.ID).SMSSent)
}

func (suite *HandlersTestSuite) TestSMSDeliveryWithoutPhoneMarksSent() {
	user := suite.createUser("nophone@example.com")
	notification := suite.createNotification(user.ID, models.PriorityHigh)
	task := suite.deliveryTask(TypeSMSDelivery, notification.ID)

	suite.NoError(suite.handlers.HandleSMSDelivery(context.Background(), task))

	suite.Empty(suite.sms.sent)
	suite.True(suite.reload(notification.ID).SMSSent)
}

func (suite *HandlersTestSuite) TestPushDeliveryMarksOnce() {
	user := suite.createUser("dora@example.com")
	notification := suite.createNotification(user.ID, models.PriorityMedium)
	task := suite.deliveryTask(TypePushDelivery, notification.ID)

	suite.NoError(suite.handlers.HandlePushDelivery(context.Background(), task))
	suite.True(suite.reload(notification.ID).PushSent)

	suite.NoError(suite.handlers.HandlePushDelivery(context.Background(), task))
}

func (suite *HandlersTestSuite) TestEmailBatchDrainsPending() {
	subscribed := suite.createUser("eve@example.com")
	optedOut := suite.createUser("frank@example.com")
	suite.Require().NoError(suite.db.Model(optedOut).Update("email_notifications", false).Error)

	first := suite.createNotification(subscribed.ID, models.PriorityMedium)
	second := suite.createNotification(optedOut.ID, models.PriorityMedium)
	task := asynq.NewTask(TypeEmailBatch, nil)

	suite.NoError(suite.handlers.HandleEmailBatch(context.Background(), task))

	suite.Equal([]string{"eve@example.com"}, suite.mailer.sent)
	suite.True(suite.reload(first.ID).EmailSent)
	suite.True(suite.reload(second.ID).EmailSent)

	suite.NoError(suite.handlers.HandleEmailBatch(context.Background(), task))
	suite.Len(suite.mailer.sent, 1)
}

func (suite *HandlersTestSuite) TestDailyDigestNotifiesAssignees() {
	owner := suite.createUser("owner@example.com")
	assignee := suite.createUser("grace@example.com")

	projectRepo := repository.NewProjectRepository(suite.db)
	project := &models.Project{Name: "Apollo", Status: models.ProjectStatusActive}
	project.CreatedByID = &owner.ID
	member := &models.ProjectMember{
		UserID:   owner.ID,
		Role:     models.MemberRoleAdmin,
		IsActive: true,
		JoinedAt: time.Now(),
	}
	suite.Require().NoError(projectRepo.CreateWithOwnerMember(project, member))

	due := time.Now().Add(24 * time.Hour)
	dueTask := &models.Task{
		ProjectID:  project.ID,
		Title:      "Ship release",
		Status:     models.TaskStatusInProgress,
		Priority:   models.PriorityHigh,
		AssigneeID: &assignee.ID,
		DueDate:    &due,
	}
	dueTask.CreatedByID = &owner.ID
	suite.Require().NoError(suite.db.Create(dueTask).Error)

	suite.NoError(suite.handlers.HandleDailyDigest(context.Background(), asynq.NewTask(TypeDailyDigest, nil)))

	var notifications []models.Notification
	suite.Require().NoError(suite.db.Where("recipient_id = ?", assignee.ID).Find(&notifications).Error)
	suite.Require().Len(notifications, 1)
	suite.Equal(models.NotificationTaskDue, notifications[0].Type)
	suite.Equal(fmt.Sprintf("/tasks/%d", dueTask.ID), notifications[0].ActionURL)
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
