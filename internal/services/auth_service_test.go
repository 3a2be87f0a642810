package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/synergysphere/api/internal/auth"
	"github.com/synergysphere/api/internal/database"
	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
)

// AuthServiceTestSuite defines the test suite for AuthService
type AuthServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *AuthService
}

// SetupTest runs before each test
func (suite *AuthServiceTestSuite) SetupTest() {
	var err error
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = database.MigrateDB(suite.db)
	suite.Require().NoError(err)

	userRepo := repository.NewUserRepository(suite.db)
	tokens := auth.NewManager("test-secret", 15*time.Minute, 7*24*time.Hour)
	suite.service = NewAuthService(userRepo, tokens, auth.NewMemoryDenylist())
}

// TearDownTest runs after each test
func (suite *AuthServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *AuthServiceTestSuite) register(email, password string) *models.User {
	user, err := suite.service.Register(RegisterInput{
		Email:           email,
		Username:        email,
		Password:        password,
		ConfirmPassword: password,
	})
	suite.Require().NoError(err)
	return user
}

func (suite *AuthServiceTestSuite) TestRegisterNormalizesEmailAndHashesPassword() {
	user := suite.register("New.User@Example.COM", "s3cretpass")

	suite.Equal("new.user@example.com", user.Email)
	suite.Equal(models.UserRoleMember, user.Role)
	suite.True(user.IsActive)
	suite.NotEqual("s3cretpass", user.PasswordHash)
}

func (suite *AuthServiceTestSuite) TestRegisterRejectsDuplicates() {
	suite.register("dup@example.com", "s3cretpass")

	_, err := suite.service.Register(RegisterInput{
		Email:           "DUP@example.com",
		Username:        "someone_else",
		Password:        "s3cretpass",
		ConfirmPassword: "s3cretpass",
	})
	suite.ErrorIs(err, ErrEmailTaken)

	_, err = suite.service.Register(RegisterInput{
		Email:           "fresh@example.com",
		Username:        "dup@example.com",
		Password:        "s3cretpass",
		ConfirmPassword: "s3cretpass",
	})
	suite.ErrorIs(err, ErrUsernameTaken)
}

func (suite *AuthServiceTestSuite) TestRegisterValidatesPassword() {
	_, err := suite.service.Register(RegisterInput{
		Email:           "short@example.com",
		Password:        "tiny",
		ConfirmPassword: "tiny",
	})
	suite.ErrorIs(err, ErrPasswordTooShort)

	_, err = suite.service.Register(RegisterInput{
		Email:           "mismatch@example.com",
		Password:        "s3cretpass",
		ConfirmPassword: "different1",
	})
	suite.ErrorIs(err, ErrPasswordMismatch)
}

func (suite *AuthServiceTestSuite) TestLoginIssuesTokenPair() {
	suite.register("login@example.com", "s3cretpass")

	user, pair, err := suite.service.Login("login@example.com", "s3cretpass")
	suite.Require().NoError(err)
	suite.NotEmpty(pair.AccessToken)
	suite.NotEmpty(pair.RefreshToken)
	suite.Require().NotNil(user)

	reloaded, err := suite.service.GetProfile(user.ID)
	suite.Require().NoError(err)
	suite.NotNil(reloaded.LastLoginAt)
}

func (suite *AuthServiceTestSuite) TestLoginRejectsBadCredentials() {
	suite.register("victim@example.com", "s3cretpass")

	_, _, err := suite.service.Login("victim@example.com", "wrongpass1")
	suite.ErrorIs(err, ErrInvalidCredentials)

	_, _, err = suite.service.Login("nobody@example.com", "s3cretpass")
	suite.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLoginRejectsDisabledAccounts() {
	user := suite.register("disabled@example.com", "s3cretpass")
	suite.Require().NoError(suite.db.Model(user).Update("is_active", false).Error)

	_, _, err := suite.service.Login("disabled@example.com", "s3cretpass")
	suite.ErrorIs(err, ErrAccountDisabled)
}

func (suite *AuthServiceTestSuite) TestRefreshRotatesAndRevokes() {
	suite.register("rotate@example.com", "s3cretpass")
	_, pair, err := suite.service.Login("rotate@example.com", "s3cretpass")
	suite.Require().NoError(err)

	fresh, err := suite.service.Refresh(context.Background(), pair.RefreshToken)
	suite.Require().NoError(err)
	suite.NotEmpty(fresh.AccessToken)

	// The consumed refresh token cannot be replayed.
	_, err = suite.service.Refresh(context.Background(), pair.RefreshToken)
	suite.ErrorIs(err, ErrRevokedRefreshToken)
}

func (suite *AuthServiceTestSuite) TestRefreshRejectsGarbageTokens() {
	_, err := suite.service.Refresh(context.Background(), "not-a-token")
	suite.ErrorIs(err, ErrInvalidRefreshToken)
}

func (suite *AuthServiceTestSuite) TestLogoutRevokesRefreshToken() {
	suite.register("leaver@example.com", "s3cretpass")
	_, pair, err := suite.service.Login("leaver@example.com", "s3cretpass")
	suite.Require().NoError(err)

	suite.NoError(suite.service.Logout(context.Background(), pair.RefreshToken))

	_, err = suite.service.Refresh(context.Background(), pair.RefreshToken)
	suite.ErrorIs(err, ErrRevokedRefreshToken)

	// Logging out with a garbage token is a quiet no-op.
	suite.NoError(suite.service.Logout(context.Background(), "not-a-token"))
}

func (suite *AuthServiceTestSuite) TestChangePassword() {
	user := suite.register("rotator@example.com", "s3cretpass")

	err := suite.service.ChangePassword(user.ID, "wrongpass1", "n3wpassword", "n3wpassword")
	suite.ErrorIs(err, ErrWrongPassword)

	err = suite.service.ChangePassword(user.ID, "s3cretpass", "n3wpassword", "n3wpassword")
	suite.Require().NoError(err)

	_, _, err = suite.service.Login("rotator@example.com", "n3wpassword")
	suite.NoError(err)
	_, _, err = suite.service.Login("rotator@example.com", "s3cretpass")
	suite.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestUpdateProfileIsPartial() {
	user := suite.register("profile@example.com", "s3cretpass")

	firstName := "Ada"
	notifications := false
	updated, err := suite.service.UpdateProfile(user.ID, UpdateProfileInput{
		FirstName:          &firstName,
		EmailNotifications: &notifications,
	})
	suite.Require().NoError(err)
	suite.Equal("Ada", updated.FirstName)
	suite.False(updated.EmailNotifications)
	suite.Equal(user.Email, updated.Email)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
