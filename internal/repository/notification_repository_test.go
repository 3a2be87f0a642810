package repository

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func newMockedRepo(t *testing.T) (NotificationRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)

	return NewNotificationRepository(db), mock
}

func TestMarkReadScopesToRecipient(t *testing.T) {
	repo, mock := newMockedRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `notifications` SET")).
		WithArgs(true, sqlmock.AnyArg(), sqlmock.AnyArg(), 42, 7, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.MarkRead(42, 7, time.Now())
	assert.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadReportsNoChangeForForeignRows(t *testing.T) {
	repo, mock := newMockedRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `notifications` SET")).
		WithArgs(true, sqlmock.AnyArg(), sqlmock.AnyArg(), 42, 999, false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.MarkRead(42, 999, time.Now())
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnreadCountFiltersReadRows(t *testing.T) {
	repo, mock := newMockedRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `notifications`")).
		WithArgs(7, false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.UnreadCount(7)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEmailSentBatch(t *testing.T) {
	repo, mock := newMockedRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `notifications` SET `email_sent`=?")).
		WithArgs(true, sqlmock.AnyArg(), 1, 2, 3).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.MarkEmailSent([]uint64{1, 2, 3})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEmailSentSkipsEmptyBatch(t *testing.T) {
	repo, mock := newMockedRepo(t)

	// No SQL should run for an empty batch.
	err := repo.MarkEmailSent(nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
