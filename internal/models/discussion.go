package models

import "time"

type DiscussionCategory string

const (
	DiscussionCategoryGeneral      DiscussionCategory = "general"
	DiscussionCategoryProject      DiscussionCategory = "project"
	DiscussionCategoryTechnical    DiscussionCategory = "technical"
	DiscussionCategoryAnnouncement DiscussionCategory = "announcement"
	DiscussionCategoryQuestion     DiscussionCategory = "question"
	DiscussionCategoryFeedback     DiscussionCategory = "feedback"
)

// ValidDiscussionCategory reports whether c is one of the known categories.
func ValidDiscussionCategory(c DiscussionCategory) bool {
	switch c {
	case DiscussionCategoryGeneral, DiscussionCategoryProject,
		DiscussionCategoryTechnical, DiscussionCategoryAnnouncement,
		DiscussionCategoryQuestion, DiscussionCategoryFeedback:
		return true
	}
	return false
}

// Discussion is a forum thread. A nil ProjectID makes it public; otherwise
// it is visible to project members only.
type Discussion struct {
	ID        uint64             `gorm:"primarykey" json:"id"`
	Title     string             `gorm:"type:varchar(255);not null" json:"title"`
	Content   string             `gorm:"type:text;not null" json:"content"`
	Category  DiscussionCategory `gorm:"type:varchar(20);not null;default:'general'" json:"category"`
	ProjectID *uint64            `gorm:"index" json:"project_id"`
	IsPinned  bool               `gorm:"not null;default:false" json:"is_pinned"`
	IsLocked  bool               `gorm:"not null;default:false" json:"is_locked"`
	ViewCount int                `gorm:"not null;default:0" json:"view_count"`

	Tracking
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Project      *Project                `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Replies      []DiscussionReply       `gorm:"foreignKey:DiscussionID" json:"replies,omitempty"`
	Participants []DiscussionParticipant `gorm:"foreignKey:DiscussionID" json:"participants,omitempty"`
}

// IsPublic reports whether the discussion has no project scope.
func (d *Discussion) IsPublic() bool {
	return d.ProjectID == nil
}

type DiscussionParticipant struct {
	DiscussionID uint64    `gorm:"primarykey" json:"discussion_id"`
	UserID       uint64    `gorm:"primarykey" json:"user_id"`
	JoinedAt     time.Time `json:"joined_at"`

	// Relations
	Discussion Discussion `gorm:"foreignKey:DiscussionID" json:"-"`
	User       User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// DiscussionReply is one message in a discussion; ParentReplyID forms the
// reply tree.
type DiscussionReply struct {
	ID            uint64  `gorm:"primarykey" json:"id"`
	DiscussionID  uint64  `gorm:"not null;index" json:"discussion_id"`
	Content       string  `gorm:"type:text;not null" json:"content"`
	ParentReplyID *uint64 `json:"parent_reply_id"`

	Tracking
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Discussion  Discussion       `gorm:"foreignKey:DiscussionID" json:"-"`
	ParentReply *DiscussionReply `gorm:"foreignKey:ParentReplyID" json:"-"`
}

type VoteType string

const (
	VoteTypeUp   VoteType = "up"
	VoteTypeDown VoteType = "down"
)

// DiscussionVote records one user's vote on a discussion or a reply.
// Exactly one of DiscussionID and ReplyID is set.
type DiscussionVote struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	UserID       uint64    `gorm:"not null;uniqueIndex:idx_vote_discussion;uniqueIndex:idx_vote_reply" json:"user_id"`
	DiscussionID *uint64   `gorm:"uniqueIndex:idx_vote_discussion" json:"discussion_id"`
	ReplyID      *uint64   `gorm:"uniqueIndex:idx_vote_reply" json:"reply_id"`
	VoteType     VoteType  `gorm:"type:varchar(10);not null" json:"vote_type"`
	CreatedAt    time.Time `json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}
