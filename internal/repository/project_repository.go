package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/synergysphere/api/internal/database"
	"github.com/synergysphere/api/internal/models"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// CreateWithOwnerMember creates a project and its creator's admin
// membership in one transaction
func (r *GormProjectRepository) CreateWithOwnerMember(project *models.Project, member *models.ProjectMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}

		member.ProjectID = project.ID
		return tx.Create(member).Error
	})
}

// FindByID finds a live project by ID with optional preloading
func (r *GormProjectRepository) FindByID(id uint64, preload ...string) (*models.Project, error) {
	var project models.Project
	query := r.db.Scopes(database.NotDeleted)
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List retrieves projects visible to a user with filtering and pagination
func (r *GormProjectRepository) List(filter ProjectFilter) ([]models.Project, int64, error) {
	var projects []models.Project

	query := r.db.Model(&models.Project{}).Scopes(database.NotDeleted)

	if filter.UserID != 0 {
		memberSubQuery := r.db.Model(&models.ProjectMember{}).
			Select("1").
			Where("project_members.project_id = projects.id").
			Where("project_members.user_id = ?", filter.UserID).
			Where("project_members.is_active = ?", true)
		query = query.Where("projects.is_public = ? OR EXISTS (?)", true, memberSubQuery)
	}
	if filter.Status != nil {
		query = query.Where("projects.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("projects.priority = ?", *filter.Priority)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("projects.name LIKE ? OR projects.description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("projects.created_at DESC")
	query = query.Scopes(database.Paginate(filter.Page, filter.PageSize))

	if err := query.Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// Update saves the full project record
func (r *GormProjectRepository) Update(project *models.Project) error {
	return r.db.Save(project).Error
}

// UpdateFields applies a partial update to a project
func (r *GormProjectRepository) UpdateFields(id uint64, fields map[string]any) error {
	return r.db.Model(&models.Project{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateProgress persists a recomputed progress value
func (r *GormProjectRepository) UpdateProgress(id uint64, progress int) error {
	return r.db.Model(&models.Project{}).Where("id = ?", id).Update("progress", progress).Error
}

// Delete marks a project as deleted
func (r *GormProjectRepository) Delete(id uint64, actorID uint64, at time.Time) error {
	return r.db.Model(&models.Project{}).Where("id = ?", id).Updates(map[string]any{
		"is_deleted":    true,
		"deleted_at":    at,
		"deleted_by_id": actorID,
	}).Error
}

// ListActiveIDs returns the IDs of all live projects
func (r *GormProjectRepository) ListActiveIDs() ([]uint64, error) {
	var ids []uint64
	err := r.db.Model(&models.Project{}).
		Scopes(database.NotDeleted).
		Pluck("id", &ids).Error
	return ids, err
}

// UpsertMember inserts a membership row or reactivates an existing one
// for the same (project, user) pair. Rejoining never creates a duplicate
// row; the old row takes the new role and a fresh joined_at.
func (r *GormProjectRepository) UpsertMember(member *models.ProjectMember) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "is_active", "joined_at"}),
	}).Create(member).Error
}

// FindMember finds a membership row regardless of its active flag
func (r *GormProjectRepository) FindMember(projectID, userID uint64) (*models.ProjectMember, error) {
	var member models.ProjectMember
	if err := r.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ActiveMember returns the active membership row, or nil when none exists
func (r *GormProjectRepository) ActiveMember(projectID, userID uint64) (*models.ProjectMember, error) {
	var member models.ProjectMember
	err := r.db.Where("project_id = ? AND user_id = ? AND is_active = ?", projectID, userID, true).
		First(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// ListMembers lists the active members of a project
func (r *GormProjectRepository) ListMembers(projectID uint64) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	if err := r.db.Preload("User").
		Where("project_id = ? AND is_active = ?", projectID, true).
		Order("joined_at ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ListMemberIDs returns the user IDs of a project's active members
func (r *GormProjectRepository) ListMemberIDs(projectID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND is_active = ?", projectID, true).
		Pluck("user_id", &ids).Error
	return ids, err
}

// ListProjectIDsForUser returns the IDs of projects the user is an
// active member of
func (r *GormProjectRepository) ListProjectIDsForUser(userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.Model(&models.ProjectMember{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Pluck("project_id", &ids).Error
	return ids, err
}

// ChangeMemberRole changes a member's project role inside a transaction
// so the last-admin count stays consistent under concurrent demotions.
func (r *GormProjectRepository) ChangeMemberRole(projectID, userID uint64, role models.MemberRole) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var member models.ProjectMember
		err := tx.Where("project_id = ? AND user_id = ? AND is_active = ?", projectID, userID, true).
			First(&member).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrMemberNotFound
			}
			return err
		}

		if member.Role == models.MemberRoleAdmin && role != models.MemberRoleAdmin {
			count, err := countActiveProjectAdmins(tx, projectID)
			if err != nil {
				return err
			}
			if count <= 1 {
				return ErrLastProjectAdmin
			}
		}

		return tx.Model(&member).Update("role", role).Error
	})
}

// DeactivateMember removes a member by flipping their active flag
func (r *GormProjectRepository) DeactivateMember(projectID, userID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var member models.ProjectMember
		err := tx.Where("project_id = ? AND user_id = ? AND is_active = ?", projectID, userID, true).
			First(&member).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrMemberNotFound
			}
			return err
		}

		if member.Role == models.MemberRoleAdmin {
			count, err := countActiveProjectAdmins(tx, projectID)
			if err != nil {
				return err
			}
			if count <= 1 {
				return ErrLastProjectAdmin
			}
		}

		return tx.Model(&member).Update("is_active", false).Error
	})
}

// CountActiveAdmins counts the active admins of a project
func (r *GormProjectRepository) CountActiveAdmins(projectID uint64) (int64, error) {
	return countActiveProjectAdmins(r.db, projectID)
}

func countActiveProjectAdmins(tx *gorm.DB, projectID uint64) (int64, error) {
	var count int64
	err := tx.Model(&models.ProjectMember{}).
		Where("project_id = ? AND role = ? AND is_active = ?", projectID, models.MemberRoleAdmin, true).
		Count(&count).Error
	return count, err
}

// Count returns the number of live projects
func (r *GormProjectRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Project{}).Scopes(database.NotDeleted).Count(&count).Error
	return count, err
}

// CreateInvitation creates a project invitation
func (r *GormProjectRepository) CreateInvitation(inv *models.ProjectInvitation) error {
	return r.db.Create(inv).Error
}

// FindInvitationByToken finds an invitation by its token
func (r *GormProjectRepository) FindInvitationByToken(token string) (*models.ProjectInvitation, error) {
	var inv models.ProjectInvitation
	if err := r.db.Preload("Project").Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// FindPendingInvitation finds a pending invitation for an email
func (r *GormProjectRepository) FindPendingInvitation(projectID uint64, email string) (*models.ProjectInvitation, error) {
	var inv models.ProjectInvitation
	err := r.db.Where("project_id = ? AND invitee_email = ? AND status = ?",
		projectID, email, models.InvitationStatusPending).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpdateInvitation saves the full invitation record
func (r *GormProjectRepository) UpdateInvitation(inv *models.ProjectInvitation) error {
	return r.db.Save(inv).Error
}

// ListInvitations lists a project's invitations
func (r *GormProjectRepository) ListInvitations(projectID uint64) ([]models.ProjectInvitation, error) {
	var invitations []models.ProjectInvitation
	if err := r.db.Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

// ExpireInvitationsBefore marks pending invitations past their expiry as
// expired and returns how many were touched
func (r *GormProjectRepository) ExpireInvitationsBefore(now time.Time) (int64, error) {
	result := r.db.Model(&models.ProjectInvitation{}).
		Where("status = ? AND expires_at < ?", models.InvitationStatusPending, now).
		Update("status", models.InvitationStatusExpired)
	return result.RowsAffected, result.Error
}
