package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/synergysphere/api/internal/database"
	"github.com/synergysphere/api/internal/models"
)

// GormDiscussionRepository is a GORM implementation of DiscussionRepository
type GormDiscussionRepository struct {
	db *gorm.DB
}

// NewDiscussionRepository creates a new DiscussionRepository
func NewDiscussionRepository(db *gorm.DB) DiscussionRepository {
	return &GormDiscussionRepository{db: db}
}

// Create creates a new discussion
func (r *GormDiscussionRepository) Create(discussion *models.Discussion) error {
	return r.db.Create(discussion).Error
}

// FindByID finds a live discussion by ID with optional preloading
func (r *GormDiscussionRepository) FindByID(id uint64, preload ...string) (*models.Discussion, error) {
	var discussion models.Discussion
	query := r.db.Scopes(database.NotDeleted)
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&discussion, id).Error; err != nil {
		return nil, err
	}
	return &discussion, nil
}

// List retrieves discussions visible to a user with filtering and
// pagination. Visible means public (no project) or inside a project the
// user is an active member of.
func (r *GormDiscussionRepository) List(filter DiscussionFilter) ([]models.Discussion, int64, error) {
	var discussions []models.Discussion

	query := r.db.Model(&models.Discussion{}).Scopes(database.NotDeleted)

	if filter.UserID != 0 {
		memberSubQuery := r.db.Model(&models.ProjectMember{}).
			Select("1").
			Where("project_members.project_id = discussions.project_id").
			Where("project_members.user_id = ?", filter.UserID).
			Where("project_members.is_active = ?", true)
		query = query.Where("discussions.project_id IS NULL OR EXISTS (?)", memberSubQuery)
	}
	if filter.ProjectID != nil {
		query = query.Where("discussions.project_id = ?", *filter.ProjectID)
	}
	if filter.Category != nil {
		query = query.Where("discussions.category = ?", *filter.Category)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("discussions.title LIKE ? OR discussions.content LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("discussions.is_pinned DESC, discussions.created_at DESC")
	query = query.Scopes(database.Paginate(filter.Page, filter.PageSize))

	if err := query.Find(&discussions).Error; err != nil {
		return nil, 0, err
	}
	return discussions, total, nil
}

// Update saves the full discussion record
func (r *GormDiscussionRepository) Update(discussion *models.Discussion) error {
	return r.db.Save(discussion).Error
}

// UpdateFields applies a partial update to a discussion
func (r *GormDiscussionRepository) UpdateFields(id uint64, fields map[string]any) error {
	return r.db.Model(&models.Discussion{}).Where("id = ?", id).Updates(fields).Error
}

// Delete marks a discussion as deleted
func (r *GormDiscussionRepository) Delete(id uint64, actorID uint64, at time.Time) error {
	return r.db.Model(&models.Discussion{}).Where("id = ?", id).Updates(map[string]any{
		"is_deleted":    true,
		"deleted_at":    at,
		"deleted_by_id": actorID,
	}).Error
}

// IncrementViewCount bumps the discussion's view counter
func (r *GormDiscussionRepository) IncrementViewCount(id uint64) error {
	return r.db.Model(&models.Discussion{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// AddParticipant joins a user to a discussion, idempotently
func (r *GormDiscussionRepository) AddParticipant(discussionID, userID uint64) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.DiscussionParticipant{DiscussionID: discussionID, UserID: userID}).Error
}

// RemoveParticipant removes a user from a discussion
func (r *GormDiscussionRepository) RemoveParticipant(discussionID, userID uint64) error {
	return r.db.Where("discussion_id = ? AND user_id = ?", discussionID, userID).
		Delete(&models.DiscussionParticipant{}).Error
}

// ListParticipantIDs returns the user IDs joined to a discussion
func (r *GormDiscussionRepository) ListParticipantIDs(discussionID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.Model(&models.DiscussionParticipant{}).
		Where("discussion_id = ?", discussionID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// CreateReply creates a reply in a discussion
func (r *GormDiscussionRepository) CreateReply(reply *models.DiscussionReply) error {
	return r.db.Create(reply).Error
}

// FindReplyByID finds a live reply by ID
func (r *GormDiscussionRepository) FindReplyByID(id uint64) (*models.DiscussionReply, error) {
	var reply models.DiscussionReply
	if err := r.db.Scopes(database.NotDeleted).First(&reply, id).Error; err != nil {
		return nil, err
	}
	return &reply, nil
}

// ListReplies lists a discussion's live replies, oldest first
func (r *GormDiscussionRepository) ListReplies(discussionID uint64, page, pageSize int) ([]models.DiscussionReply, int64, error) {
	var replies []models.DiscussionReply

	query := r.db.Model(&models.DiscussionReply{}).
		Scopes(database.NotDeleted).
		Where("discussion_id = ?", discussionID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at ASC")
	query = query.Scopes(database.Paginate(page, pageSize))

	if err := query.Find(&replies).Error; err != nil {
		return nil, 0, err
	}
	return replies, total, nil
}

// DeleteReply marks a reply as deleted
func (r *GormDiscussionRepository) DeleteReply(id uint64, actorID uint64, at time.Time) error {
	return r.db.Model(&models.DiscussionReply{}).Where("id = ?", id).Updates(map[string]any{
		"is_deleted":    true,
		"deleted_at":    at,
		"deleted_by_id": actorID,
	}).Error
}

// UpsertVote records a user's vote, replacing any previous vote on the
// same target
func (r *GormDiscussionRepository) UpsertVote(vote *models.DiscussionVote) error {
	var conflict clause.OnConflict
	if vote.DiscussionID != nil {
		conflict.Columns = []clause.Column{{Name: "user_id"}, {Name: "discussion_id"}}
	} else {
		conflict.Columns = []clause.Column{{Name: "user_id"}, {Name: "reply_id"}}
	}
	conflict.DoUpdates = clause.AssignmentColumns([]string{"vote_type"})

	return r.db.Clauses(conflict).Create(vote).Error
}

// RemoveVote withdraws a user's vote on a discussion or reply
func (r *GormDiscussionRepository) RemoveVote(userID uint64, discussionID, replyID *uint64) error {
	query := r.db.Where("user_id = ?", userID)
	if discussionID != nil {
		query = query.Where("discussion_id = ?", *discussionID)
	}
	if replyID != nil {
		query = query.Where("reply_id = ?", *replyID)
	}
	return query.Delete(&models.DiscussionVote{}).Error
}

// VoteCounts returns the up and down vote totals for a discussion
func (r *GormDiscussionRepository) VoteCounts(discussionID uint64) (up, down int64, err error) {
	base := r.db.Model(&models.DiscussionVote{}).Where("discussion_id = ?", discussionID)

	if err = base.Session(&gorm.Session{}).
		Where("vote_type = ?", models.VoteTypeUp).
		Count(&up).Error; err != nil {
		return 0, 0, err
	}
	if err = base.Session(&gorm.Session{}).
		Where("vote_type = ?", models.VoteTypeDown).
		Count(&down).Error; err != nil {
		return 0, 0, err
	}
	return up, down, nil
}

// Count returns the number of live discussions
func (r *GormDiscussionRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Discussion{}).Scopes(database.NotDeleted).Count(&count).Error
	return count, err
}
