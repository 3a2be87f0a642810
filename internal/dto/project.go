package dto

import (
	"time"

	"github.com/synergysphere/api/internal/models"
)

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Status      models.ProjectStatus `json:"status"`
	Priority    models.Priority      `json:"priority"`
	StartDate   *time.Time           `json:"start_date"`
	EndDate     *time.Time           `json:"end_date"`
	Progress    int                  `json:"progress"`
	IsPublic    bool                 `json:"is_public"`
	CreatedByID *uint64              `json:"created_by_id"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Members     []ProjectMemberDTO   `json:"members,omitempty"`
}

// ProjectMemberDTO represents a membership in API responses. The
// capability flags are derived from the role when the response is built,
// never read from storage.
type ProjectMemberDTO struct {
	ID               uint64            `json:"id"`
	UserID           uint64            `json:"user_id"`
	Role             models.MemberRole `json:"role"`
	JoinedAt         time.Time         `json:"joined_at"`
	User             *UserDTO          `json:"user,omitempty"`
	CanEditProject   bool              `json:"can_edit_project"`
	CanManageMembers bool              `json:"can_manage_members"`
	CanDeleteProject bool              `json:"can_delete_project"`
}

// ProjectListResponse represents a paginated list of projects
type ProjectListResponse struct {
	Projects   []ProjectDTO `json:"projects"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalCount int64        `json:"total_count"`
	TotalPages int          `json:"total_pages"`
}

// InvitationDTO represents a project invitation in API responses
type InvitationDTO struct {
	ID           uint64                  `json:"id"`
	ProjectID    uint64                  `json:"project_id"`
	InviteeEmail string                  `json:"invitee_email"`
	Role         models.MemberRole       `json:"role"`
	Status       models.InvitationStatus `json:"status"`
	Message      string                  `json:"message,omitempty"`
	ExpiresAt    time.Time               `json:"expires_at"`
	RespondedAt  *time.Time              `json:"responded_at"`
	CreatedAt    time.Time               `json:"created_at"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	d := ProjectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Status:      project.Status,
		Priority:    project.Priority,
		StartDate:   project.StartDate,
		EndDate:     project.EndDate,
		Progress:    project.Progress,
		IsPublic:    project.IsPublic,
		CreatedByID: project.CreatedByID,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
	for _, member := range project.Members {
		if member.IsActive {
			d.Members = append(d.Members, ToProjectMemberDTO(member))
		}
	}
	return d
}

// ToProjectMemberDTO converts a ProjectMember model to ProjectMemberDTO
func ToProjectMemberDTO(member models.ProjectMember) ProjectMemberDTO {
	d := ProjectMemberDTO{
		ID:               member.ID,
		UserID:           member.UserID,
		Role:             member.Role,
		JoinedAt:         member.JoinedAt,
		CanEditProject:   member.CanEditProject(),
		CanManageMembers: member.CanManageMembers(),
		CanDeleteProject: member.CanDeleteProject(),
	}
	if member.User.ID != 0 {
		user := ToUserDTO(member.User)
		d.User = &user
	}
	return d
}

// ToProjectListResponse builds the paginated project list payload
func ToProjectListResponse(projects []models.Project, page, pageSize int, total int64) ProjectListResponse {
	items := make([]ProjectDTO, len(projects))
	for i, project := range projects {
		items[i] = ToProjectDTO(project)
	}
	return ProjectListResponse{
		Projects:   items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages(total, pageSize),
	}
}

// ToInvitationDTO converts a ProjectInvitation model to InvitationDTO
func ToInvitationDTO(inv models.ProjectInvitation) InvitationDTO {
	return InvitationDTO{
		ID:           inv.ID,
		ProjectID:    inv.ProjectID,
		InviteeEmail: inv.InviteeEmail,
		Role:         inv.Role,
		Status:       inv.Status,
		Message:      inv.Message,
		ExpiresAt:    inv.ExpiresAt,
		RespondedAt:  inv.RespondedAt,
		CreatedAt:    inv.CreatedAt,
	}
}
