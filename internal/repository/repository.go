package repository

import (
	"errors"
	"time"

	"github.com/synergysphere/api/internal/models"
)

// Sentinel errors surfaced from transactional guards so services can map
// them onto API responses with errors.Is.
var (
	ErrLastProjectAdmin  = errors.New("project must keep at least one active admin")
	ErrLastPlatformAdmin = errors.New("platform must keep at least one active admin")
	ErrMemberNotFound    = errors.New("project member not found")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// List retrieves users with filtering and pagination
	List(filter UserFilter) ([]models.User, int64, error)

	// Update saves the full user record
	Update(user *models.User) error

	// UpdateFields applies a partial update to a user
	UpdateFields(id uint64, fields map[string]any) error

	// SetRole changes a user's platform role. Demoting the last active
	// admin fails with ErrLastPlatformAdmin.
	SetRole(id uint64, role models.UserRole) error

	// SetActive activates or deactivates a user. Deactivating the last
	// active admin fails with ErrLastPlatformAdmin.
	SetActive(id uint64, active bool) error

	// UpdateLastLogin stamps the user's last login time
	UpdateLastLogin(id uint64, at time.Time) error

	// Count returns the total number of users
	Count() (int64, error)

	// CountActiveAdmins returns the number of active platform admins
	CountActiveAdmins() (int64, error)
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	Role     *models.UserRole
	IsActive *bool
	Search   string
	Page     int
	PageSize int
}

// ProjectRepository defines the interface for project and membership data
// access
type ProjectRepository interface {
	// CreateWithOwnerMember creates a project and its creator's admin
	// membership in one transaction
	CreateWithOwnerMember(project *models.Project, member *models.ProjectMember) error

	// FindByID finds a live project by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Project, error)

	// List retrieves projects visible to a user with filtering and
	// pagination
	List(filter ProjectFilter) ([]models.Project, int64, error)

	// Update saves the full project record
	Update(project *models.Project) error

	// UpdateFields applies a partial update to a project
	UpdateFields(id uint64, fields map[string]any) error

	// UpdateProgress persists a recomputed progress value
	UpdateProgress(id uint64, progress int) error

	// Delete marks a project as deleted
	Delete(id uint64, actorID uint64, at time.Time) error

	// ListActiveIDs returns the IDs of all live projects
	ListActiveIDs() ([]uint64, error)

	// UpsertMember inserts a membership row or reactivates an existing
	// one for the same (project, user) pair
	UpsertMember(member *models.ProjectMember) error

	// FindMember finds a membership row regardless of its active flag
	FindMember(projectID, userID uint64) (*models.ProjectMember, error)

	// ActiveMember returns the active membership row, or nil when none
	// exists
	ActiveMember(projectID, userID uint64) (*models.ProjectMember, error)

	// ListMembers lists the active members of a project
	ListMembers(projectID uint64) ([]models.ProjectMember, error)

	// ListMemberIDs returns the user IDs of a project's active members
	ListMemberIDs(projectID uint64) ([]uint64, error)

	// ListProjectIDsForUser returns the IDs of projects the user is an
	// active member of
	ListProjectIDsForUser(userID uint64) ([]uint64, error)

	// ChangeMemberRole changes a member's project role. Demoting the
	// last active project admin fails with ErrLastProjectAdmin.
	ChangeMemberRole(projectID, userID uint64, role models.MemberRole) error

	// DeactivateMember removes a member by flipping their active flag.
	// Removing the last active project admin fails with
	// ErrLastProjectAdmin.
	DeactivateMember(projectID, userID uint64) error

	// CountActiveAdmins counts the active admins of a project
	CountActiveAdmins(projectID uint64) (int64, error)

	// Count returns the number of live projects
	Count() (int64, error)

	// CreateInvitation creates a project invitation
	CreateInvitation(inv *models.ProjectInvitation) error

	// FindInvitationByToken finds an invitation by its token
	FindInvitationByToken(token string) (*models.ProjectInvitation, error)

	// FindPendingInvitation finds a pending invitation for an email
	FindPendingInvitation(projectID uint64, email string) (*models.ProjectInvitation, error)

	// UpdateInvitation saves the full invitation record
	UpdateInvitation(inv *models.ProjectInvitation) error

	// ListInvitations lists a project's invitations
	ListInvitations(projectID uint64) ([]models.ProjectInvitation, error)

	// ExpireInvitationsBefore marks pending invitations past their
	// expiry as expired and returns how many were touched
	ExpireInvitationsBefore(now time.Time) (int64, error)
}

// ProjectFilter holds filtering options for listing projects
type ProjectFilter struct {
	// UserID scopes the listing to projects the user may see: public
	// ones plus those they are an active member of. Zero means no
	// visibility scoping (admin listings).
	UserID   uint64
	Status   *models.ProjectStatus
	Priority *models.Priority
	Search   string
	Page     int
	PageSize int
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a live task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update saves the full task record
	Update(task *models.Task) error

	// UpdateFields applies a partial update to a task
	UpdateFields(id uint64, fields map[string]any) error

	// Delete marks a task as deleted
	Delete(id uint64, actorID uint64, at time.Time) error

	// CountByProject returns the live task total and how many of them
	// are completed
	CountByProject(projectID uint64) (total, completed int64, err error)

	// CountByStatus returns live task counts grouped by status
	CountByStatus() (map[models.TaskStatus]int64, error)

	// AddDependency records that taskID depends on dependsOnID
	AddDependency(taskID, dependsOnID uint64) error

	// RemoveDependency removes a dependency edge
	RemoveDependency(taskID, dependsOnID uint64) error

	// DependsOnIDs returns the IDs a task directly depends on
	DependsOnIDs(taskID uint64) ([]uint64, error)

	// CreateActivity appends a task activity record
	CreateActivity(activity *models.TaskActivity) error

	// ListActivities lists a task's activity records, newest first
	ListActivities(taskID uint64, page, pageSize int) ([]models.TaskActivity, int64, error)

	// DueBetween lists live, unfinished tasks due inside a window
	DueBetween(from, to time.Time) ([]models.Task, error)

	// Count returns the number of live tasks
	Count() (int64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectID  *uint64
	ProjectIDs []uint64
	Status     *models.TaskStatus
	Priority   *models.Priority
	AssigneeID *uint64
	DueBefore  *time.Time
	DueAfter   *time.Time
	Search     string
	Page       int
	PageSize   int
}

// DiscussionRepository defines the interface for discussion data access
type DiscussionRepository interface {
	// Create creates a new discussion
	Create(discussion *models.Discussion) error

	// FindByID finds a live discussion by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Discussion, error)

	// List retrieves discussions visible to a user with filtering and
	// pagination
	List(filter DiscussionFilter) ([]models.Discussion, int64, error)

	// Update saves the full discussion record
	Update(discussion *models.Discussion) error

	// UpdateFields applies a partial update to a discussion
	UpdateFields(id uint64, fields map[string]any) error

	// Delete marks a discussion as deleted
	Delete(id uint64, actorID uint64, at time.Time) error

	// IncrementViewCount bumps the discussion's view counter
	IncrementViewCount(id uint64) error

	// AddParticipant joins a user to a discussion, idempotently
	AddParticipant(discussionID, userID uint64) error

	// RemoveParticipant removes a user from a discussion
	RemoveParticipant(discussionID, userID uint64) error

	// ListParticipantIDs returns the user IDs joined to a discussion
	ListParticipantIDs(discussionID uint64) ([]uint64, error)

	// CreateReply creates a reply in a discussion
	CreateReply(reply *models.DiscussionReply) error

	// FindReplyByID finds a live reply by ID
	FindReplyByID(id uint64) (*models.DiscussionReply, error)

	// ListReplies lists a discussion's live replies, oldest first
	ListReplies(discussionID uint64, page, pageSize int) ([]models.DiscussionReply, int64, error)

	// DeleteReply marks a reply as deleted
	DeleteReply(id uint64, actorID uint64, at time.Time) error

	// UpsertVote records a user's vote, replacing any previous vote on
	// the same target
	UpsertVote(vote *models.DiscussionVote) error

	// RemoveVote withdraws a user's vote on a discussion or reply
	RemoveVote(userID uint64, discussionID, replyID *uint64) error

	// VoteCounts returns the up and down vote totals for a discussion
	VoteCounts(discussionID uint64) (up, down int64, err error)

	// Count returns the number of live discussions
	Count() (int64, error)
}

// DiscussionFilter holds filtering options for listing discussions
type DiscussionFilter struct {
	// UserID scopes the listing to discussions the user may see: public
	// ones plus those in projects they are an active member of. Zero
	// means no visibility scoping.
	UserID    uint64
	ProjectID *uint64
	Category  *models.DiscussionCategory
	Search    string
	Page      int
	PageSize  int
}

// NotificationRepository defines the interface for notification data
// access
type NotificationRepository interface {
	// Create creates a notification
	Create(notification *models.Notification) error

	// FindByID finds a notification by ID
	FindByID(id uint64) (*models.Notification, error)

	// List retrieves a recipient's notifications, newest first
	List(filter NotificationFilter) ([]models.Notification, int64, error)

	// MarkRead marks one of the recipient's notifications as read and
	// reports whether a row changed
	MarkRead(id, recipientID uint64, at time.Time) (bool, error)

	// MarkAllRead marks all of the recipient's unread notifications as
	// read and returns how many were touched
	MarkAllRead(recipientID uint64, at time.Time) (int64, error)

	// UnreadCount counts the recipient's unread notifications
	UnreadCount(recipientID uint64) (int64, error)

	// PendingEmail lists notifications not yet delivered by email
	PendingEmail(limit int) ([]models.Notification, error)

	// MarkEmailSent flips the email delivery marker
	MarkEmailSent(ids []uint64) error

	// MarkSMSSent flips the SMS delivery marker
	MarkSMSSent(id uint64) error

	// MarkPushSent flips the push delivery marker
	MarkPushSent(id uint64) error
}

// NotificationFilter holds filtering options for listing notifications
type NotificationFilter struct {
	RecipientID uint64
	UnreadOnly  bool
	Type        *models.NotificationType
	Page        int
	PageSize    int
}
