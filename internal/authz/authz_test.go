package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synergysphere/api/internal/models"
)

// fakeMembers resolves memberships from a fixed map keyed by project then
// user.
type fakeMembers struct {
	members map[uint64]map[uint64]*models.ProjectMember
}

func (f *fakeMembers) ActiveMember(projectID, userID uint64) (*models.ProjectMember, error) {
	byUser, ok := f.members[projectID]
	if !ok {
		return nil, nil
	}
	return byUser[userID], nil
}

func newTestEngine() (*Engine, *fakeMembers) {
	fm := &fakeMembers{members: make(map[uint64]map[uint64]*models.ProjectMember)}
	return NewEngine(fm), fm
}

func (f *fakeMembers) add(projectID, userID uint64, role models.MemberRole) {
	if f.members[projectID] == nil {
		f.members[projectID] = make(map[uint64]*models.ProjectMember)
	}
	f.members[projectID][userID] = &models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		IsActive:  true,
	}
}

func member(id uint64) *models.User {
	return &models.User{ID: id, Role: models.UserRoleMember, IsActive: true}
}

func admin(id uint64) *models.User {
	return &models.User{ID: id, Role: models.UserRoleAdmin, IsActive: true}
}

func taskIn(projectID uint64, assigneeID, creatorID *uint64) *models.Task {
	t := &models.Task{ID: 1, ProjectID: projectID, AssigneeID: assigneeID}
	t.CreatedByID = creatorID
	return t
}

func ptr(v uint64) *uint64 { return &v }

func TestPublicResourcesAreReadableByAnyone(t *testing.T) {
	engine, _ := newTestEngine()

	publicDiscussion := &models.Discussion{ID: 1}
	d, err := engine.Authorize(member(9), OpRead, publicDiscussion, nil)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	publicProject := &models.Project{ID: 1, IsPublic: true}
	d, err = engine.Authorize(member(9), OpRead, publicProject, nil)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Writes to public resources still go through membership.
	d, err = engine.Authorize(member(9), OpUpdate, publicProject, nil)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestAdminsBypassMembership(t *testing.T) {
	engine, _ := newTestEngine()

	task := taskIn(5, nil, nil)
	d, err := engine.Authorize(admin(1), OpUpdate, task, Fields("assignee_id", "title"))
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Legacy staff flag escalates like the admin role.
	staff := &models.User{ID: 2, Role: models.UserRoleMember, IsStaff: true, IsActive: true}
	d, err = engine.Authorize(staff, OpCreate, task, nil)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestNonMembersAreDenied(t *testing.T) {
	engine, _ := newTestEngine()

	task := taskIn(5, nil, nil)
	d, err := engine.Authorize(member(9), OpRead, task, nil)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "not a project member", d.Reason)
}

func TestAssigneeStatusOnlyUpdate(t *testing.T) {
	engine, fm := newTestEngine()
	fm.add(5, 9, models.MemberRoleMember)
	fm.add(5, 10, models.MemberRoleMember)

	assigned := taskIn(5, ptr(9), nil)

	// Assignee updating only status is allowed.
	d, err := engine.Authorize(member(9), OpUpdate, assigned, Fields("status"))
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Any extra field breaks the status-only path.
	d, err = engine.Authorize(member(9), OpUpdate, assigned, Fields("status", "title"))
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	// A member who is not the assignee cannot update status.
	d, err = engine.Authorize(member(10), OpUpdate, assigned, Fields("status"))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestAdminOnlyTaskFields(t *testing.T) {
	engine, fm := newTestEngine()
	fm.add(5, 9, models.MemberRoleMember)

	task := taskIn(5, ptr(9), nil)

	for _, field := range []string{"assignee", "assignee_id", "project", "project_id"} {
		d, err := engine.Authorize(member(9), OpUpdate, task, Fields(field, "status"))
		require.NoError(t, err)
		assert.False(t, d.Allowed, "field %s must be admin-only", field)
		assert.Contains(t, d.Reason, "forbidden field")
	}
}

func TestTaskCreationIsAdminOnly(t *testing.T) {
	engine, fm := newTestEngine()
	fm.add(5, 9, models.MemberRoleMember)

	task := taskIn(5, nil, nil)
	d, err := engine.Authorize(member(9), OpCreate, task, nil)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = engine.Authorize(admin(1), OpCreate, task, nil)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestProjectRoleCapabilities(t *testing.T) {
	engine, fm := newTestEngine()
	fm.add(5, 9, models.MemberRoleMember)
	fm.add(5, 10, models.MemberRoleManager)
	fm.add(5, 11, models.MemberRoleAdmin)

	project := &models.Project{ID: 5}

	d, _ := engine.Authorize(member(9), OpUpdate, project, nil)
	assert.False(t, d.Allowed)

	d, _ = engine.Authorize(member(10), OpUpdate, project, nil)
	assert.True(t, d.Allowed)

	// Managers may edit but not delete.
	d, _ = engine.Authorize(member(10), OpDelete, project, nil)
	assert.False(t, d.Allowed)

	d, _ = engine.Authorize(member(11), OpDelete, project, nil)
	assert.True(t, d.Allowed)
}

func TestUnscopedEntitiesFallBackToOwnership(t *testing.T) {
	engine, _ := newTestEngine()

	// A discussion without a project has no membership requirement; the
	// owner may edit, everyone else may only read.
	d := &models.Discussion{ID: 3}
	d.CreatedByID = ptr(9)

	dec, err := engine.Authorize(member(9), OpUpdate, d, nil)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	dec, err = engine.Authorize(member(10), OpUpdate, d, nil)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)

	dec, err = engine.Authorize(member(10), OpRead, d, nil)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestInactiveActorsAreDenied(t *testing.T) {
	engine, _ := newTestEngine()

	inactive := &models.User{ID: 9, Role: models.UserRoleAdmin, IsActive: false}
	d, err := engine.Authorize(inactive, OpRead, &models.Project{ID: 1, IsPublic: true}, nil)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}
