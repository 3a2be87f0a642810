package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/synergysphere/api/internal/authz"
	"github.com/synergysphere/api/internal/constants"
	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
	"github.com/synergysphere/api/internal/utils"
)

var (
	ErrProjectNotFound        = errors.New("project not found")
	ErrProjectNameRequired    = errors.New("project name cannot be empty")
	ErrInvalidProjectStatus   = errors.New("invalid project status")
	ErrInvalidMemberRole      = errors.New("invalid member role")
	ErrMemberNotFound         = errors.New("project member not found")
	ErrCannotRemoveOwner      = errors.New("the project owner cannot be removed")
	ErrLastAdmin              = errors.New("a project must keep at least one admin")
	ErrInvitationNotFound     = errors.New("invitation not found")
	ErrInvitationExpired      = errors.New("invitation has expired")
	ErrInvitationNotPending   = errors.New("invitation has already been answered")
	ErrInvitationWrongInvitee = errors.New("invitation was issued to a different user")
	ErrAlreadyInvited         = errors.New("a pending invitation already exists for this email")
)

// ProjectService handles project and membership business logic
type ProjectService struct {
	engine      *authz.Engine
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	notifSvc    *NotificationService
	logger      *zap.SugaredLogger
}

// NewProjectService creates a new ProjectService
func NewProjectService(engine *authz.Engine, projectRepo repository.ProjectRepository, userRepo repository.UserRepository, notifSvc *NotificationService, logger *zap.SugaredLogger) *ProjectService {
	return &ProjectService{
		engine:      engine,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		notifSvc:    notifSvc,
		logger:      logger,
	}
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	Name        string
	Description string
	Status      models.ProjectStatus
	Priority    models.Priority
	StartDate   *time.Time
	EndDate     *time.Time
	IsPublic    bool
}

// UpdateProjectInput represents input for updating a project
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Status      *models.ProjectStatus
	Priority    *models.Priority
	StartDate   *time.Time
	EndDate     *time.Time
	IsPublic    *bool
}

// AddMemberInput represents input for adding a project member
type AddMemberInput struct {
	UserID uint64
	Role   models.MemberRole
}

// InviteInput represents input for inviting someone by email
type InviteInput struct {
	Email   string
	Role    models.MemberRole
	Message string
}

// CreateProject creates a project; the creator becomes its first admin
// member in the same transaction
func (s *ProjectService) CreateProject(actor *models.User, input CreateProjectInput) (*models.Project, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrProjectNameRequired
	}
	if input.Status == "" {
		input.Status = models.ProjectStatusPlanning
	}
	if !models.ValidProjectStatus(input.Status) {
		return nil, ErrInvalidProjectStatus
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(input.Priority) {
		return nil, ErrInvalidTaskPriority
	}

	project := &models.Project{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		IsPublic:    input.IsPublic,
	}
	project.CreatedByID = &actor.ID

	member := &models.ProjectMember{
		UserID:   actor.ID,
		Role:     models.MemberRoleAdmin,
		IsActive: true,
		JoinedAt: time.Now(),
	}

	if err := s.projectRepo.CreateWithOwnerMember(project, member); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

// GetProject returns a project the actor may read
func (s *ProjectService) GetProject(actor *models.User, projectID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID, "Members", "Members.User")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpRead, project, nil); err != nil {
		return nil, err
	}
	return project, nil
}

// ListProjects returns projects visible to the actor
func (s *ProjectService) ListProjects(actor *models.User, filter repository.ProjectFilter) ([]models.Project, int64, error) {
	if !actor.IsAdminUser() {
		filter.UserID = actor.ID
	}
	projects, total, err := s.projectRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

// UpdateProject applies a partial update to a project
func (s *ProjectService) UpdateProject(actor *models.User, projectID uint64, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpUpdate, project, nil); err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrProjectNameRequired
		}
		fields["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Status != nil {
		if !models.ValidProjectStatus(*input.Status) {
			return nil, ErrInvalidProjectStatus
		}
		fields["status"] = *input.Status
	}
	if input.Priority != nil {
		if !models.ValidPriority(*input.Priority) {
			return nil, ErrInvalidTaskPriority
		}
		fields["priority"] = *input.Priority
	}
	if input.StartDate != nil {
		fields["start_date"] = *input.StartDate
	}
	if input.EndDate != nil {
		fields["end_date"] = *input.EndDate
	}
	if input.IsPublic != nil {
		fields["is_public"] = *input.IsPublic
	}

	if len(fields) > 0 {
		fields["updated_by_id"] = actor.ID
		if err := s.projectRepo.UpdateFields(project.ID, fields); err != nil {
			return nil, fmt.Errorf("failed to update project: %w", err)
		}
	}
	return s.projectRepo.FindByID(project.ID)
}

// DeleteProject marks a project as deleted
func (s *ProjectService) DeleteProject(actor *models.User, projectID uint64) error {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpDelete, project, nil); err != nil {
		return err
	}
	return s.projectRepo.Delete(project.ID, actor.ID, time.Now())
}

// ListMembers lists a project's active members
func (s *ProjectService) ListMembers(actor *models.User, projectID uint64) ([]models.ProjectMember, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpRead, project, nil); err != nil {
		return nil, err
	}
	return s.projectRepo.ListMembers(projectID)
}

// AddMember adds a user to a project or reactivates their old membership.
// Adding someone who is already an active member is a no-op with their
// role refreshed, never a duplicate row.
func (s *ProjectService) AddMember(ctx context.Context, actor *models.User, projectID uint64, input AddMemberInput) (*models.ProjectMember, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if err := s.requireMemberManager(actor, project); err != nil {
		return nil, err
	}

	if input.Role == "" {
		input.Role = models.MemberRoleMember
	}
	if !models.ValidMemberRole(input.Role) {
		return nil, ErrInvalidMemberRole
	}

	user, err := s.userRepo.FindByID(input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	member := &models.ProjectMember{
		ProjectID: project.ID,
		UserID:    user.ID,
		Role:      input.Role,
		IsActive:  true,
		JoinedAt:  time.Now(),
	}
	if err := s.projectRepo.UpsertMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	if user.ID != actor.ID {
		s.notifyProject(ctx, actor, project, user.ID, models.NotificationProjectUpdate,
			"Added to project", fmt.Sprintf("%s added you to the project %q", actor.FullName(), project.Name))
	}

	return s.projectRepo.FindMember(project.ID, user.ID)
}

// RemoveMember deactivates a membership. The project owner can never be
// removed, and neither can the last remaining admin.
func (s *ProjectService) RemoveMember(actor *models.User, projectID, userID uint64) error {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	if err := s.requireMemberManager(actor, project); err != nil {
		return err
	}

	if owner, ok := project.OwnedBy(); ok && owner == userID {
		return ErrCannotRemoveOwner
	}

	if err := s.projectRepo.DeactivateMember(projectID, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrMemberNotFound):
			return ErrMemberNotFound
		case errors.Is(err, repository.ErrLastProjectAdmin):
			return ErrLastAdmin
		}
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// ChangeMemberRole changes a member's project role. Demoting the last
// admin fails, platform admins included.
func (s *ProjectService) ChangeMemberRole(actor *models.User, projectID, userID uint64, role models.MemberRole) (*models.ProjectMember, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if err := s.requireMemberManager(actor, project); err != nil {
		return nil, err
	}

	if !models.ValidMemberRole(role) {
		return nil, ErrInvalidMemberRole
	}

	if err := s.projectRepo.ChangeMemberRole(projectID, userID, role); err != nil {
		switch {
		case errors.Is(err, repository.ErrMemberNotFound):
			return nil, ErrMemberNotFound
		case errors.Is(err, repository.ErrLastProjectAdmin):
			return nil, ErrLastAdmin
		}
		return nil, fmt.Errorf("failed to change member role: %w", err)
	}
	return s.projectRepo.FindMember(projectID, userID)
}

// Invite issues an email invitation to join a project
func (s *ProjectService) Invite(ctx context.Context, actor *models.User, projectID uint64, input InviteInput) (*models.ProjectInvitation, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if err := s.requireMemberManager(actor, project); err != nil {
		return nil, err
	}

	if input.Role == "" {
		input.Role = models.MemberRoleMember
	}
	if !models.ValidMemberRole(input.Role) {
		return nil, ErrInvalidMemberRole
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.projectRepo.FindPendingInvitation(project.ID, email); err == nil {
		return nil, ErrAlreadyInvited
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check invitations: %w", err)
	}

	token, err := utils.GenerateInvitationToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation token: %w", err)
	}

	inv := &models.ProjectInvitation{
		ProjectID:    project.ID,
		InviterID:    actor.ID,
		InviteeEmail: email,
		Role:         input.Role,
		Status:       models.InvitationStatusPending,
		Message:      input.Message,
		Token:        token,
		ExpiresAt:    time.Now().AddDate(0, 0, constants.InvitationTTLDays),
	}

	// Link the invitee when they already have an account, so accepting
	// can verify identity and we can notify them in-app.
	if invitee, err := s.userRepo.FindByEmail(email); err == nil {
		inv.InviteeID = &invitee.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find invitee: %w", err)
	}

	if err := s.projectRepo.CreateInvitation(inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	if inv.InviteeID != nil {
		s.notifyProject(ctx, actor, project, *inv.InviteeID, models.NotificationProjectInvitation,
			"Project invitation", fmt.Sprintf("%s invited you to join %q", actor.FullName(), project.Name))
	}
	return inv, nil
}

// AcceptInvitation turns a pending invitation into a membership
func (s *ProjectService) AcceptInvitation(actor *models.User, token string) (*models.ProjectMember, error) {
	inv, err := s.loadAnswerableInvitation(actor, token)
	if err != nil {
		return nil, err
	}

	member := &models.ProjectMember{
		ProjectID: inv.ProjectID,
		UserID:    actor.ID,
		Role:      inv.Role,
		IsActive:  true,
		JoinedAt:  time.Now(),
	}
	if err := s.projectRepo.UpsertMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	now := time.Now()
	inv.Status = models.InvitationStatusAccepted
	inv.InviteeID = &actor.ID
	inv.RespondedAt = &now
	if err := s.projectRepo.UpdateInvitation(inv); err != nil {
		return nil, fmt.Errorf("failed to update invitation: %w", err)
	}

	return s.projectRepo.FindMember(inv.ProjectID, actor.ID)
}

// DeclineInvitation marks a pending invitation as declined
func (s *ProjectService) DeclineInvitation(actor *models.User, token string) error {
	inv, err := s.loadAnswerableInvitation(actor, token)
	if err != nil {
		return err
	}

	now := time.Now()
	inv.Status = models.InvitationStatusDeclined
	inv.InviteeID = &actor.ID
	inv.RespondedAt = &now
	if err := s.projectRepo.UpdateInvitation(inv); err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	return nil
}

// ListInvitations lists a project's invitations
func (s *ProjectService) ListInvitations(actor *models.User, projectID uint64) ([]models.ProjectInvitation, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if err := s.requireMemberManager(actor, project); err != nil {
		return nil, err
	}
	return s.projectRepo.ListInvitations(projectID)
}

// SweepExpiredInvitations expires pending invitations past their TTL and
// returns how many were touched
func (s *ProjectService) SweepExpiredInvitations() (int64, error) {
	count, err := s.projectRepo.ExpireInvitationsBefore(time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire invitations: %w", err)
	}
	return count, nil
}

func (s *ProjectService) loadAnswerableInvitation(actor *models.User, token string) (*models.ProjectInvitation, error) {
	inv, err := s.projectRepo.FindInvitationByToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}

	if inv.Status != models.InvitationStatusPending {
		return nil, ErrInvitationNotPending
	}
	if inv.IsExpired(time.Now()) {
		inv.Status = models.InvitationStatusExpired
		if err := s.projectRepo.UpdateInvitation(inv); err != nil {
			s.logger.Warnw("failed to persist invitation expiry", "invitation_id", inv.ID, "error", err)
		}
		return nil, ErrInvitationExpired
	}
	if !strings.EqualFold(inv.InviteeEmail, actor.Email) {
		return nil, ErrInvitationWrongInvitee
	}
	return inv, nil
}

// requireMemberManager admits platform admins and members whose project
// role can manage the roster.
func (s *ProjectService) requireMemberManager(actor *models.User, project *models.Project) error {
	if actor.IsAdminUser() {
		return nil
	}
	member, err := s.projectRepo.ActiveMember(project.ID, actor.ID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if member == nil {
		return fmt.Errorf("%w: not a project member", ErrPermissionDenied)
	}
	if !member.CanManageMembers() {
		return fmt.Errorf("%w: only project admins and managers can manage members", ErrPermissionDenied)
	}
	return nil
}

func (s *ProjectService) notifyProject(ctx context.Context, actor *models.User, project *models.Project, recipientID uint64, notifType models.NotificationType, title, message string) {
	if s.notifSvc == nil {
		return
	}
	n := &models.Notification{
		RecipientID: recipientID,
		SenderID:    &actor.ID,
		Type:        notifType,
		Title:       title,
		Message:     message,
		Priority:    models.PriorityMedium,
		ProjectID:   &project.ID,
		ActionURL:   fmt.Sprintf("/projects/%d", project.ID),
	}
	if err := s.notifSvc.Dispatch(ctx, n); err != nil {
		s.logger.Errorw("failed to dispatch project notification", "project_id", project.ID, "error", err)
	}
}
