package dto

import (
	"time"

	"github.com/synergysphere/api/internal/models"
)

// DiscussionDTO represents a discussion thread in API responses
type DiscussionDTO struct {
	ID          uint64                    `json:"id"`
	Title       string                    `json:"title"`
	Content     string                    `json:"content"`
	Category    models.DiscussionCategory `json:"category"`
	ProjectID   *uint64                   `json:"project_id"`
	IsPublic    bool                      `json:"is_public"`
	IsPinned    bool                      `json:"is_pinned"`
	IsLocked    bool                      `json:"is_locked"`
	ViewCount   int                       `json:"view_count"`
	CreatedByID *uint64                   `json:"created_by_id"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
	Replies     []DiscussionReplyDTO      `json:"replies,omitempty"`
}

// DiscussionReplyDTO represents one reply in API responses
type DiscussionReplyDTO struct {
	ID            uint64    `json:"id"`
	DiscussionID  uint64    `json:"discussion_id"`
	Content       string    `json:"content"`
	ParentReplyID *uint64   `json:"parent_reply_id"`
	CreatedByID   *uint64   `json:"created_by_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// DiscussionListResponse represents a paginated list of discussions
type DiscussionListResponse struct {
	Discussions []DiscussionDTO `json:"discussions"`
	Page        int             `json:"page"`
	PageSize    int             `json:"page_size"`
	TotalCount  int64           `json:"total_count"`
	TotalPages  int             `json:"total_pages"`
}

// DiscussionReplyListResponse represents a paginated list of replies
type DiscussionReplyListResponse struct {
	Replies    []DiscussionReplyDTO `json:"replies"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalCount int64                `json:"total_count"`
	TotalPages int                  `json:"total_pages"`
}

// VoteCountsDTO carries a discussion's vote totals
type VoteCountsDTO struct {
	Up   int64 `json:"up"`
	Down int64 `json:"down"`
}

// ToDiscussionDTO converts a Discussion model to DiscussionDTO
func ToDiscussionDTO(discussion models.Discussion) DiscussionDTO {
	d := DiscussionDTO{
		ID:          discussion.ID,
		Title:       discussion.Title,
		Content:     discussion.Content,
		Category:    discussion.Category,
		ProjectID:   discussion.ProjectID,
		IsPublic:    discussion.IsPublic(),
		IsPinned:    discussion.IsPinned,
		IsLocked:    discussion.IsLocked,
		ViewCount:   discussion.ViewCount,
		CreatedByID: discussion.CreatedByID,
		CreatedAt:   discussion.CreatedAt,
		UpdatedAt:   discussion.UpdatedAt,
	}
	for _, reply := range discussion.Replies {
		if !reply.IsDeleted {
			d.Replies = append(d.Replies, ToDiscussionReplyDTO(reply))
		}
	}
	return d
}

// ToDiscussionReplyDTO converts a DiscussionReply model to its DTO
func ToDiscussionReplyDTO(reply models.DiscussionReply) DiscussionReplyDTO {
	return DiscussionReplyDTO{
		ID:            reply.ID,
		DiscussionID:  reply.DiscussionID,
		Content:       reply.Content,
		ParentReplyID: reply.ParentReplyID,
		CreatedByID:   reply.CreatedByID,
		CreatedAt:     reply.CreatedAt,
	}
}

// ToDiscussionListResponse builds the paginated discussion list payload
func ToDiscussionListResponse(discussions []models.Discussion, page, pageSize int, total int64) DiscussionListResponse {
	items := make([]DiscussionDTO, len(discussions))
	for i, discussion := range discussions {
		items[i] = ToDiscussionDTO(discussion)
	}
	return DiscussionListResponse{
		Discussions: items,
		Page:        page,
		PageSize:    pageSize,
		TotalCount:  total,
		TotalPages:  totalPages(total, pageSize),
	}
}

// ToDiscussionReplyListResponse builds the paginated reply payload
func ToDiscussionReplyListResponse(replies []models.DiscussionReply, page, pageSize int, total int64) DiscussionReplyListResponse {
	items := make([]DiscussionReplyDTO, len(replies))
	for i, reply := range replies {
		items[i] = ToDiscussionReplyDTO(reply)
	}
	return DiscussionReplyListResponse{
		Replies:    items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages(total, pageSize),
	}
}
