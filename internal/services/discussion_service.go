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
	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
)

var (
	ErrDiscussionNotFound     = errors.New("discussion not found")
	ErrReplyNotFound          = errors.New("reply not found")
	ErrDiscussionTitleMissing = errors.New("title is required")
	ErrDiscussionBodyMissing  = errors.New("content is required")
	ErrInvalidCategory        = errors.New("invalid discussion category")
	ErrDiscussionLocked       = errors.New("discussion is locked")
	ErrInvalidVote            = errors.New("invalid vote type")
)

// DiscussionService handles discussion business logic
type DiscussionService struct {
	engine         *authz.Engine
	discussionRepo repository.DiscussionRepository
	notifSvc       *NotificationService
	logger         *zap.SugaredLogger
}

// NewDiscussionService creates a new DiscussionService
func NewDiscussionService(engine *authz.Engine, discussionRepo repository.DiscussionRepository, notifSvc *NotificationService, logger *zap.SugaredLogger) *DiscussionService {
	return &DiscussionService{
		engine:         engine,
		discussionRepo: discussionRepo,
		notifSvc:       notifSvc,
		logger:         logger,
	}
}

// CreateDiscussionInput represents input for creating a discussion
type CreateDiscussionInput struct {
	Title     string
	Content   string
	Category  models.DiscussionCategory
	ProjectID *uint64
}

// UpdateDiscussionInput represents input for updating a discussion
type UpdateDiscussionInput struct {
	Title    *string
	Content  *string
	Category *models.DiscussionCategory
	IsPinned *bool
	IsLocked *bool
}

// CreateDiscussion starts a thread, public or project-scoped
func (s *DiscussionService) CreateDiscussion(actor *models.User, input CreateDiscussionInput) (*models.Discussion, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrDiscussionTitleMissing
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrDiscussionBodyMissing
	}
	if input.Category == "" {
		input.Category = models.DiscussionCategoryGeneral
	}
	if !models.ValidDiscussionCategory(input.Category) {
		return nil, ErrInvalidCategory
	}

	discussion := &models.Discussion{
		Title:     strings.TrimSpace(input.Title),
		Content:   input.Content,
		Category:  input.Category,
		ProjectID: input.ProjectID,
	}
	discussion.CreatedByID = &actor.ID

	if err := authorize(s.engine, actor, authz.OpCreate, discussion, nil); err != nil {
		return nil, err
	}

	if err := s.discussionRepo.Create(discussion); err != nil {
		return nil, fmt.Errorf("failed to create discussion: %w", err)
	}

	// The author follows their own thread.
	if err := s.discussionRepo.AddParticipant(discussion.ID, actor.ID); err != nil {
		s.logger.Warnw("failed to join author to discussion", "discussion_id", discussion.ID, "error", err)
	}
	return discussion, nil
}

// GetDiscussion returns a discussion the actor may read and counts the
// view
func (s *DiscussionService) GetDiscussion(actor *models.User, discussionID uint64) (*models.Discussion, error) {
	discussion, err := s.discussionRepo.FindByID(discussionID, "Replies")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDiscussionNotFound
		}
		return nil, fmt.Errorf("failed to find discussion: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpRead, discussion, nil); err != nil {
		return nil, err
	}

	if err := s.discussionRepo.IncrementViewCount(discussion.ID); err != nil {
		s.logger.Warnw("failed to bump view count", "discussion_id", discussion.ID, "error", err)
	}
	return discussion, nil
}

// ListDiscussions returns discussions visible to the actor
func (s *DiscussionService) ListDiscussions(actor *models.User, filter repository.DiscussionFilter) ([]models.Discussion, int64, error) {
	if !actor.IsAdminUser() {
		filter.UserID = actor.ID
	}
	discussions, total, err := s.discussionRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list discussions: %w", err)
	}
	return discussions, total, nil
}

// UpdateDiscussion applies a partial update. Pinning and locking stay
// admin-only through the engine's ownership rule plus the handler's guard.
func (s *DiscussionService) UpdateDiscussion(actor *models.User, discussionID uint64, input UpdateDiscussionInput) (*models.Discussion, error) {
	discussion, err := s.discussionRepo.FindByID(discussionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDiscussionNotFound
		}
		return nil, fmt.Errorf("failed to find discussion: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpUpdate, discussion, nil); err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrDiscussionTitleMissing
		}
		fields["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Content != nil {
		fields["content"] = *input.Content
	}
	if input.Category != nil {
		if !models.ValidDiscussionCategory(*input.Category) {
			return nil, ErrInvalidCategory
		}
		fields["category"] = *input.Category
	}
	if input.IsPinned != nil {
		if !actor.IsAdminUser() {
			return nil, fmt.Errorf("%w: only admins can pin discussions", ErrPermissionDenied)
		}
		fields["is_pinned"] = *input.IsPinned
	}
	if input.IsLocked != nil {
		if !actor.IsAdminUser() {
			return nil, fmt.Errorf("%w: only admins can lock discussions", ErrPermissionDenied)
		}
		fields["is_locked"] = *input.IsLocked
	}

	if len(fields) > 0 {
		fields["updated_by_id"] = actor.ID
		if err := s.discussionRepo.UpdateFields(discussion.ID, fields); err != nil {
			return nil, fmt.Errorf("failed to update discussion: %w", err)
		}
	}
	return s.discussionRepo.FindByID(discussion.ID)
}

// DeleteDiscussion marks a discussion as deleted
func (s *DiscussionService) DeleteDiscussion(actor *models.User, discussionID uint64) error {
	discussion, err := s.discussionRepo.FindByID(discussionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDiscussionNotFound
		}
		return fmt.Errorf("failed to find discussion: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpDelete, discussion, nil); err != nil {
		return err
	}
	return s.discussionRepo.Delete(discussion.ID, actor.ID, time.Now())
}

// Join subscribes the actor to a discussion
func (s *DiscussionService) Join(actor *models.User, discussionID uint64) error {
	discussion, err := s.discussionRepo.FindByID(discussionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDiscussionNotFound
		}
		return fmt.Errorf("failed to find discussion: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpRead, discussion, nil); err != nil {
		return err
	}
	return s.discussionRepo.AddParticipant(discussion.ID, actor.ID)
}

// Leave unsubscribes the actor from a discussion
func (s *DiscussionService) Leave(actor *models.User, discussionID uint64) error {
	return s.discussionRepo.RemoveParticipant(discussionID, actor.ID)
}

// CreateReply posts a message in a discussion and notifies the other
// participants
func (s *DiscussionService) CreateReply(ctx context.Context, actor *models.User, discussionID uint64, content string, parentReplyID *uint64) (*models.DiscussionReply, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrDiscussionBodyMissing
	}

	discussion, err := s.discussionRepo.FindByID(discussionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDiscussionNotFound
		}
		return nil, fmt.Errorf("failed to find discussion: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpRead, discussion, nil); err != nil {
		return nil, err
	}
	if discussion.IsLocked && !actor.IsAdminUser() {
		return nil, ErrDiscussionLocked
	}

	if parentReplyID != nil {
		parent, err := s.discussionRepo.FindReplyByID(*parentReplyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrReplyNotFound
			}
			return nil, fmt.Errorf("failed to find parent reply: %w", err)
		}
		if parent.DiscussionID != discussion.ID {
			return nil, ErrReplyNotFound
		}
	}

	reply := &models.DiscussionReply{
		DiscussionID:  discussion.ID,
		Content:       content,
		ParentReplyID: parentReplyID,
	}
	reply.CreatedByID = &actor.ID

	if err := s.discussionRepo.CreateReply(reply); err != nil {
		return nil, fmt.Errorf("failed to create reply: %w", err)
	}

	if err := s.discussionRepo.AddParticipant(discussion.ID, actor.ID); err != nil {
		s.logger.Warnw("failed to join replier to discussion", "discussion_id", discussion.ID, "error", err)
	}

	s.notifyReply(ctx, actor, discussion)
	return reply, nil
}

// ListReplies lists a discussion's replies, oldest first
func (s *DiscussionService) ListReplies(actor *models.User, discussionID uint64, page, pageSize int) ([]models.DiscussionReply, int64, error) {
	discussion, err := s.discussionRepo.FindByID(discussionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrDiscussionNotFound
		}
		return nil, 0, fmt.Errorf("failed to find discussion: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpRead, discussion, nil); err != nil {
		return nil, 0, err
	}
	return s.discussionRepo.ListReplies(discussionID, page, pageSize)
}

// Vote casts or replaces the actor's vote on a discussion
func (s *DiscussionService) Vote(actor *models.User, discussionID uint64, voteType models.VoteType) error {
	if voteType != models.VoteTypeUp && voteType != models.VoteTypeDown {
		return ErrInvalidVote
	}

	discussion, err := s.discussionRepo.FindByID(discussionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDiscussionNotFound
		}
		return fmt.Errorf("failed to find discussion: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpRead, discussion, nil); err != nil {
		return err
	}

	vote := &models.DiscussionVote{
		UserID:       actor.ID,
		DiscussionID: &discussion.ID,
		VoteType:     voteType,
	}
	return s.discussionRepo.UpsertVote(vote)
}

// Unvote withdraws the actor's vote on a discussion
func (s *DiscussionService) Unvote(actor *models.User, discussionID uint64) error {
	return s.discussionRepo.RemoveVote(actor.ID, &discussionID, nil)
}

// VoteCounts returns the up and down totals for a discussion
func (s *DiscussionService) VoteCounts(actor *models.User, discussionID uint64) (up, down int64, err error) {
	discussion, err := s.discussionRepo.FindByID(discussionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, ErrDiscussionNotFound
		}
		return 0, 0, fmt.Errorf("failed to find discussion: %w", err)
	}

	if err := authorize(s.engine, actor, authz.OpRead, discussion, nil); err != nil {
		return 0, 0, err
	}
	return s.discussionRepo.VoteCounts(discussionID)
}

func (s *DiscussionService) notifyReply(ctx context.Context, actor *models.User, discussion *models.Discussion) {
	if s.notifSvc == nil {
		return
	}

	participantIDs, err := s.discussionRepo.ListParticipantIDs(discussion.ID)
	if err != nil {
		s.logger.Warnw("failed to list participants", "discussion_id", discussion.ID, "error", err)
		return
	}

	for _, recipientID := range participantIDs {
		if recipientID == actor.ID {
			continue
		}
		n := &models.Notification{
			RecipientID:  recipientID,
			SenderID:     &actor.ID,
			Type:         models.NotificationDiscussionReply,
			Title:        "New reply",
			Message:      fmt.Sprintf("%s replied in %q", actor.FullName(), discussion.Title),
			Priority:     models.PriorityLow,
			DiscussionID: &discussion.ID,
			ActionURL:    fmt.Sprintf("/discussions/%d", discussion.ID),
		}
		if err := s.notifSvc.Dispatch(ctx, n); err != nil {
			s.logger.Errorw("failed to dispatch reply notification", "discussion_id", discussion.ID, "error", err)
		}
	}
}
