package constants

// Context keys
const (
	ContextKeyUserID        = "user_id"
	ContextKeyUser          = "user"
	ContextKeyProject       = "project"
	ContextKeyProjectMember = "project_member"
	ContextKeyTask          = "task"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Auth
const (
	MinPasswordLength = 8
)

// Background processing
const (
	// NotificationEmailBatchSize limits how many pending notification
	// emails a single batch run picks up.
	NotificationEmailBatchSize = 100
)

// Invitations
const (
	// InvitationTTLDays is how long a project invitation stays acceptable.
	InvitationTTLDays = 7
)

// DueSoonDays is the window within which a task counts as due soon.
const DueSoonDays = 3
