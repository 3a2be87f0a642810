package services

import (
	"context"
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

// ProjectServiceTestSuite defines the test suite for ProjectService
type ProjectServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	service     *ProjectService
}

// SetupTest runs before each test
func (suite *ProjectServiceTestSuite) SetupTest() {
	var err error
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = database.MigrateDB(suite.db)
	suite.Require().NoError(err)

	suite.projectRepo = repository.NewProjectRepository(suite.db)
	suite.userRepo = repository.NewUserRepository(suite.db)
	notifRepo := repository.NewNotificationRepository(suite.db)

	engine := authz.NewEngine(suite.projectRepo)
	notifSvc := NewNotificationService(notifRepo, nil, nil, logger.NewNop())
	suite.service = NewProjectService(engine, suite.projectRepo, suite.userRepo, notifSvc, logger.NewNop())
}

// TearDownTest runs after each test
func (suite *ProjectServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *ProjectServiceTestSuite) createUser(email string, role models.UserRole) *models.User {
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

func (suite *ProjectServiceTestSuite) createProject(name string, owner *models.User) *models.Project {
	project, err := suite.service.CreateProject(owner, CreateProjectInput{Name: name})
	suite.Require().NoError(err)
	return project
}

func (suite *ProjectServiceTestSuite) TestCreatorBecomesAdminMember() {
	owner := suite.createUser("owner@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", owner)

	member, err := suite.projectRepo.FindMember(project.ID, owner.ID)
	suite.Require().NoError(err)
	suite.Equal(models.MemberRoleAdmin, member.Role)
	suite.True(member.IsActive)
	suite.True(member.CanDeleteProject())
}

func (suite *ProjectServiceTestSuite) TestNonMemberCannotReadPrivateProject() {
	owner := suite.createUser("owner@example.com", models.UserRoleMember)
	outsider := suite.createUser("outsider@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", owner)

	_, err := suite.service.GetProject(outsider, project.ID)
	suite.ErrorIs(err, ErrPermissionDenied)
}

func (suite *ProjectServiceTestSuite) TestPublicProjectIsReadableByAnyone() {
	owner := suite.createUser("owner@example.com", models.UserRoleMember)
	outsider := suite.createUser("outsider@example.com", models.UserRoleMember)
	project, err := suite.service.CreateProject(owner, CreateProjectInput{
		Name:     "Open",
		IsPublic: true,
	})
	suite.Require().NoError(err)

	got, err := suite.service.GetProject(outsider, project.ID)
	suite.NoError(err)
	suite.Equal(project.ID, got.ID)
}

func (suite *ProjectServiceTestSuite) TestListProjectsScopesToMembership() {
	owner := suite.createUser("owner@example.com", models.UserRoleMember)
	other := suite.createUser("other@example.com", models.UserRoleMember)
	suite.createProject("Mine", owner)
	suite.createProject("Theirs", other)

	projects, total, err := suite.service.ListProjects(owner, repository.ProjectFilter{Page: 1, PageSize: 20})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Require().Len(projects, 1)
	suite.Equal("Mine", projects[0].Name)
}

func (suite *ProjectServiceTestSuite) TestAddMemberReactivatesInsteadOfDuplicating() {
	owner := suite.createUser("owner@example.com", models.UserRoleMember)
	joiner := suite.createUser("joiner@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", owner)

	_, err := suite.service.AddMember(context.Background(), owner, project.ID, AddMemberInput{
		UserID: joiner.ID,
		Role:   models.MemberRoleMember,
	})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.RemoveMember(owner, project.ID, joiner.ID))
	removed, err := suite.projectRepo.FindMember(project.ID, joiner.ID)
	suite.Require().NoError(err)
	suite.False(removed.IsActive)

	// Re-adding reactivates the same row with the new role.
	_, err = suite.service.AddMember(context.Background(), owner, project.ID, AddMemberInput{
		UserID: joiner.ID,
		Role:   models.MemberRoleManager,
	})
	suite.Require().NoError(err)

	var count int64
	suite.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", project.ID, joiner.ID).
		Count(&count)
	suite.Equal(int64(1), count)

	member, err := suite.projectRepo.FindMember(project.ID, joiner.ID)
	suite.Require().NoError(err)
	suite.True(member.IsActive)
	suite.Equal(models.MemberRoleManager, member.Role)
}

func (suite *ProjectServiceTestSuite) TestPlainMembersCannotManageRoster() {
	owner := suite.createUser("owner@example.com", models.UserRoleMember)
	member := suite.createUser("member@example.com", models.UserRoleMember)
	target := suite.createUser("target@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", owner)

	_, err := suite.service.AddMember(context.Background(), owner, project.ID, AddMemberInput{UserID: member.ID})
	suite.Require().NoError(err)

	_, err = suite.service.AddMember(context.Background(), member, project.ID, AddMemberInput{UserID: target.ID})
	suite.ErrorIs(err, ErrPermissionDenied)
}

func (suite *ProjectServiceTestSuite) TestOwnerCannotBeRemoved() {
	owner := suite.createUser("owner@example.com", models.UserRoleMember)
	admin := suite.createUser("admin@example.com", models.UserRoleAdmin)
	project := suite.createProject("Apollo", owner)

	err := suite.service.RemoveMember(admin, project.ID, owner.ID)
	suite.ErrorIs(err, ErrCannotRemoveOwner)
}

func (suite *ProjectServiceTestSuite) TestLastAdminCannotBeDemoted() {
	owner := suite.createUser("owner@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", owner)

	_, err := suite.service.ChangeMemberRole(owner, project.ID, owner.ID, models.MemberRoleMember)
	suite.ErrorIs(err, ErrLastAdmin)

	// With a second admin in place the demotion goes through and the
	// capability flags drop.
	second := suite.createUser("second@example.com", models.UserRoleMember)
	_, err = suite.service.AddMember(context.Background(), owner, project.ID, AddMemberInput{
		UserID: second.ID,
		Role:   models.MemberRoleAdmin,
	})
	suite.Require().NoError(err)

	demoted, err := suite.service.ChangeMemberRole(owner, project.ID, owner.ID, models.MemberRoleMember)
	suite.Require().NoError(err)
	suite.Equal(models.MemberRoleMember, demoted.Role)
	suite.False(demoted.CanManageMembers())
	suite.False(demoted.CanDeleteProject())
}

func (suite *ProjectServiceTestSuite) TestInvitationLifecycle() {
	owner := suite.createUser("owner@example.com", models.UserRoleMember)
	invitee := suite.createUser("invitee@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", owner)

	inv, err := suite.service.Invite(context.Background(), owner, project.ID, InviteInput{
		Email: "Invitee@Example.com",
		Role:  models.MemberRoleMember,
	})
	suite.Require().NoError(err)
	suite.Equal(models.InvitationStatusPending, inv.Status)
	suite.Regexp(`^[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}$`, inv.Token)
	suite.Require().NotNil(inv.InviteeID)
	suite.Equal(invitee.ID, *inv.InviteeID)

	// Duplicate pending invitations are rejected.
	_, err = suite.service.Invite(context.Background(), owner, project.ID, InviteInput{
		Email: "invitee@example.com",
	})
	suite.ErrorIs(err, ErrAlreadyInvited)

	member, err := suite.service.AcceptInvitation(invitee, inv.Token)
	suite.Require().NoError(err)
	suite.True(member.IsActive)
	suite.Equal(models.MemberRoleMember, member.Role)

	// A settled invitation cannot be answered again.
	_, err = suite.service.AcceptInvitation(invitee, inv.Token)
	suite.ErrorIs(err, ErrInvitationNotPending)
}

func (suite *ProjectServiceTestSuite) TestInvitationRejectsWrongInvitee() {
	owner := suite.createUser("owner@example.com", models.UserRoleMember)
	interloper := suite.createUser("interloper@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", owner)

	inv, err := suite.service.Invite(context.Background(), owner, project.ID, InviteInput{
		Email: "someone@example.com",
	})
	suite.Require().NoError(err)

	_, err = suite.service.AcceptInvitation(interloper, inv.Token)
	suite.ErrorIs(err, ErrInvitationWrongInvitee)
}

func (suite *ProjectServiceTestSuite) TestExpiredInvitationCannotBeAccepted() {
	owner := suite.createUser("owner@example.com", models.UserRoleMember)
	invitee := suite.createUser("late@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", owner)

	inv, err := suite.service.Invite(context.Background(), owner, project.ID, InviteInput{
		Email: "late@example.com",
	})
	suite.Require().NoError(err)

	err = suite.db.Model(&models.ProjectInvitation{}).
		Where("id = ?", inv.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error
	suite.Require().NoError(err)

	_, err = suite.service.AcceptInvitation(invitee, inv.Token)
	suite.ErrorIs(err, ErrInvitationExpired)

	// The lapse is persisted as a status change.
	reloaded, err := suite.projectRepo.FindInvitationByToken(inv.Token)
	suite.Require().NoError(err)
	suite.Equal(models.InvitationStatusExpired, reloaded.Status)
}

func (suite *ProjectServiceTestSuite) TestSweepExpiresPendingInvitations() {
	owner := suite.createUser("owner@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", owner)

	inv, err := suite.service.Invite(context.Background(), owner, project.ID, InviteInput{
		Email: "lapsed@example.com",
	})
	suite.Require().NoError(err)

	err = suite.db.Model(&models.ProjectInvitation{}).
		Where("id = ?", inv.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error
	suite.Require().NoError(err)

	count, err := suite.service.SweepExpiredInvitations()
	suite.Require().NoError(err)
	suite.Equal(int64(1), count)
}

func (suite *ProjectServiceTestSuite) TestDeletedProjectsDisappear() {
	owner := suite.createUser("owner@example.com", models.UserRoleMember)
	project := suite.createProject("Apollo", owner)

	suite.Require().NoError(suite.service.DeleteProject(owner, project.ID))

	_, err := suite.service.GetProject(owner, project.ID)
	suite.ErrorIs(err, ErrProjectNotFound)
}

func TestProjectServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectServiceTestSuite))
}
