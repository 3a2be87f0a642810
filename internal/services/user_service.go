package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
)

var (
	ErrInvalidUserRole   = errors.New("invalid user role")
	ErrLastPlatformAdmin = errors.New("the platform must keep at least one active admin")
)

// UserService handles platform-level user administration
type UserService struct {
	userRepo       repository.UserRepository
	projectRepo    repository.ProjectRepository
	taskRepo       repository.TaskRepository
	discussionRepo repository.DiscussionRepository
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, projectRepo repository.ProjectRepository, taskRepo repository.TaskRepository, discussionRepo repository.DiscussionRepository) *UserService {
	return &UserService{
		userRepo:       userRepo,
		projectRepo:    projectRepo,
		taskRepo:       taskRepo,
		discussionRepo: discussionRepo,
	}
}

// DashboardStats is the platform-wide counters block served to admins
type DashboardStats struct {
	Users         int64                       `json:"users"`
	Projects      int64                       `json:"projects"`
	Tasks         int64                       `json:"tasks"`
	Discussions   int64                       `json:"discussions"`
	TasksByStatus map[models.TaskStatus]int64 `json:"tasks_by_status"`
}

// GetUser returns one user
func (s *UserService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ListUsers retrieves users with filtering and pagination
func (s *UserService) ListUsers(filter repository.UserFilter) ([]models.User, int64, error) {
	users, total, err := s.userRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// SetRole changes a user's platform role. Demoting the last active admin
// fails no matter who asks.
func (s *UserService) SetRole(id uint64, role models.UserRole) (*models.User, error) {
	if !models.ValidUserRole(role) {
		return nil, ErrInvalidUserRole
	}

	if err := s.userRepo.SetRole(id, role); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrLastPlatformAdmin):
			return nil, ErrLastPlatformAdmin
		}
		return nil, fmt.Errorf("failed to change role: %w", err)
	}
	return s.GetUser(id)
}

// SetActive activates or deactivates a user. Deactivating the last active
// admin fails.
func (s *UserService) SetActive(id uint64, active bool) (*models.User, error) {
	if err := s.userRepo.SetActive(id, active); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrLastPlatformAdmin):
			return nil, ErrLastPlatformAdmin
		}
		return nil, fmt.Errorf("failed to change active flag: %w", err)
	}
	return s.GetUser(id)
}

// Dashboard returns platform-wide counters
func (s *UserService) Dashboard() (*DashboardStats, error) {
	stats := &DashboardStats{}

	var err error
	if stats.Users, err = s.userRepo.Count(); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if stats.Projects, err = s.projectRepo.Count(); err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}
	if stats.Tasks, err = s.taskRepo.Count(); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	if stats.Discussions, err = s.discussionRepo.Count(); err != nil {
		return nil, fmt.Errorf("failed to count discussions: %w", err)
	}
	if stats.TasksByStatus, err = s.taskRepo.CountByStatus(); err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	return stats, nil
}
