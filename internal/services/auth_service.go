package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/synergysphere/api/internal/auth"
	"github.com/synergysphere/api/internal/constants"
	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
)

var (
	ErrEmailTaken           = errors.New("a user with this email already exists")
	ErrUsernameTaken        = errors.New("a user with this username already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountDisabled      = errors.New("account is disabled")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrWrongPassword        = errors.New("current password is incorrect")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrRevokedRefreshToken  = errors.New("refresh token has been revoked")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles registration, login and token lifecycle
type AuthService struct {
	userRepo repository.UserRepository
	tokens   *auth.Manager
	denylist auth.Denylist
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, tokens *auth.Manager, denylist auth.Denylist) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		denylist: denylist,
	}
}

// RegisterInput represents input for registering a user
type RegisterInput struct {
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
}

// UpdateProfileInput represents input for updating the caller's profile
type UpdateProfileInput struct {
	FirstName          *string
	LastName           *string
	PhoneNumber        *string
	Timezone           *string
	EmailNotifications *bool
	PushNotifications  *bool
}

// Register creates a new member account
func (s *AuthService) Register(input RegisterInput) (*models.User, error) {
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if input.Password != input.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	if input.Username != "" {
		if _, err := s.userRepo.FindByUsername(input.Username); err == nil {
			return nil, ErrUsernameTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Email:        email,
		Username:     input.Username,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: string(hash),
		Role:         models.UserRoleMember,
		IsActive:     true,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and issues a token pair
func (s *AuthService) Login(email, password string) (*models.User, auth.TokenPair, error) {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.TokenPair{}, ErrInvalidCredentials
		}
		return nil, auth.TokenPair{}, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, auth.TokenPair{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, auth.TokenPair{}, ErrAccountDisabled
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID)
	if err != nil {
		return nil, auth.TokenPair{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(user.ID, time.Now()); err != nil {
		return nil, auth.TokenPair{}, fmt.Errorf("failed to stamp login: %w", err)
	}
	return user, pair, nil
}

// Refresh rotates a refresh token into a fresh token pair. The old
// refresh token is revoked so it cannot be replayed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return auth.TokenPair{}, ErrInvalidRefreshToken
	}

	revoked, err := s.denylist.IsRevoked(ctx, refreshToken)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return auth.TokenPair{}, ErrRevokedRefreshToken
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auth.TokenPair{}, ErrInvalidRefreshToken
		}
		return auth.TokenPair{}, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.IsActive {
		return auth.TokenPair{}, ErrAccountDisabled
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	if err := s.denylist.Revoke(ctx, refreshToken, s.tokens.RefreshTTL()); err != nil {
		return auth.TokenPair{}, fmt.Errorf("failed to revoke old token: %w", err)
	}
	return pair, nil
}

// Logout revokes a refresh token. Already-invalid tokens are treated as
// logged out.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if _, err := s.tokens.ParseRefreshToken(refreshToken); err != nil {
		return nil
	}
	return s.denylist.Revoke(ctx, refreshToken, s.tokens.RefreshTTL())
}

// GetProfile returns a user's profile
func (s *AuthService) GetProfile(userID uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies a partial update to the caller's own profile
func (s *AuthService) UpdateProfile(userID uint64, input UpdateProfileInput) (*models.User, error) {
	fields := make(map[string]any)
	if input.FirstName != nil {
		fields["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		fields["last_name"] = *input.LastName
	}
	if input.PhoneNumber != nil {
		fields["phone_number"] = *input.PhoneNumber
	}
	if input.Timezone != nil {
		fields["timezone"] = *input.Timezone
	}
	if input.EmailNotifications != nil {
		fields["email_notifications"] = *input.EmailNotifications
	}
	if input.PushNotifications != nil {
		fields["push_notifications"] = *input.PushNotifications
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(userID, fields); err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}
	return s.GetProfile(userID)
}

// ChangePassword rotates the caller's password after verifying the
// current one
func (s *AuthService) ChangePassword(userID uint64, current, newPassword, confirm string) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrWrongPassword
	}
	if len(newPassword) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}
	if newPassword != confirm {
		return ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrFailedToHashPassword
	}
	return s.userRepo.UpdateFields(userID, map[string]any{"password_hash": string(hash)})
}
