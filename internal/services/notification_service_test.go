package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/synergysphere/api/internal/database"
	"github.com/synergysphere/api/internal/logger"
	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
)

// NotificationServiceTestSuite defines the test suite for NotificationService
type NotificationServiceTestSuite struct {
	suite.Suite
	db        *gorm.DB
	notifRepo repository.NotificationRepository
	service   *NotificationService
}

// SetupTest runs before each test
func (suite *NotificationServiceTestSuite) SetupTest() {
	var err error
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = database.MigrateDB(suite.db)
	suite.Require().NoError(err)

	suite.notifRepo = repository.NewNotificationRepository(suite.db)
	suite.service = NewNotificationService(suite.notifRepo, nil, nil, logger.NewNop())
}

// TearDownTest runs after each test
func (suite *NotificationServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *NotificationServiceTestSuite) createNotification(recipientID uint64) *models.Notification {
	notification := &models.Notification{
		RecipientID: recipientID,
		Type:        models.NotificationSystem,
		Title:       "Heads up",
		Message:     "Something happened",
		Priority:    models.PriorityMedium,
	}
	suite.Require().NoError(suite.notifRepo.Create(notification))
	return notification
}

func (suite *NotificationServiceTestSuite) TestMarkReadIsRecipientScoped() {
	notification := suite.createNotification(7)

	err := suite.service.MarkRead(context.Background(), notification.ID, 8)
	suite.ErrorIs(err, ErrNotificationNotFound)

	reloaded, err := suite.notifRepo.FindByID(notification.ID)
	suite.Require().NoError(err)
	suite.False(reloaded.IsRead)

	suite.NoError(suite.service.MarkRead(context.Background(), notification.ID, 7))
	reloaded, err = suite.notifRepo.FindByID(notification.ID)
	suite.Require().NoError(err)
	suite.True(reloaded.IsRead)
	suite.NotNil(reloaded.ReadAt)
}

func (suite *NotificationServiceTestSuite) TestMarkReadIsIdempotentForOwner() {
	notification := suite.createNotification(7)

	suite.NoError(suite.service.MarkRead(context.Background(), notification.ID, 7))
	suite.NoError(suite.service.MarkRead(context.Background(), notification.ID, 7))
}

func (suite *NotificationServiceTestSuite) TestMarkReadMissingRowAnswersNotFound() {
	err := suite.service.MarkRead(context.Background(), 9999, 7)
	suite.ErrorIs(err, ErrNotificationNotFound)
}

func (suite *NotificationServiceTestSuite) TestMarkAllReadCountsTouchedRows() {
	suite.createNotification(7)
	suite.createNotification(7)
	foreign := suite.createNotification(8)

	count, err := suite.service.MarkAllRead(context.Background(), 7)
	suite.Require().NoError(err)
	suite.Equal(int64(2), count)

	reloaded, err := suite.notifRepo.FindByID(foreign.ID)
	suite.Require().NoError(err)
	suite.False(reloaded.IsRead)
}

func TestNotificationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceTestSuite))
}
