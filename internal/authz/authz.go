// Package authz is the single authorization engine. Every operation on a
// protected entity is checked here before any state-changing component
// runs; overlapping legacy permission checks collapse into the ordered
// rule list below, resolving conflicts toward the most restrictive rule.
package authz

import (
	"fmt"

	"github.com/synergysphere/api/internal/models"
)

type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Decision is the engine's verdict. Reason is set only on denial.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// ProjectScoped is implemented by entities that may belong to a project.
// The second return value is false when the entity carries no project
// relation, in which case ownership rules govern instead of membership.
type ProjectScoped interface {
	ProjectScope() (uint64, bool)
}

// Owned is implemented by entities that record their creator.
type Owned interface {
	OwnedBy() (uint64, bool)
}

// PubliclyReadable is implemented by entities that any authenticated user
// may read.
type PubliclyReadable interface {
	ReadableByAnyone() bool
}

// MembershipResolver looks up active project membership rows.
type MembershipResolver interface {
	ActiveMember(projectID, userID uint64) (*models.ProjectMember, error)
}

// FieldSet is the set of field names present in an update payload.
type FieldSet map[string]struct{}

// Fields builds a FieldSet from field names.
func Fields(names ...string) FieldSet {
	fs := make(FieldSet, len(names))
	for _, n := range names {
		fs[n] = struct{}{}
	}
	return fs
}

// FieldsFromPayload builds a FieldSet from the keys of a decoded JSON body.
func FieldsFromPayload(payload map[string]any) FieldSet {
	fs := make(FieldSet, len(payload))
	for k := range payload {
		fs[k] = struct{}{}
	}
	return fs
}

func (f FieldSet) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Only reports whether the set is a subset of the given names.
func (f FieldSet) Only(names ...string) bool {
	allowed := Fields(names...)
	for k := range f {
		if !allowed.Has(k) {
			return false
		}
	}
	return true
}

// Fields only admins may touch on a task update.
var taskAdminOnlyFields = []string{"project", "project_id", "assignee", "assignee_id"}

// Engine evaluates authorization decisions.
type Engine struct {
	members MembershipResolver
}

func NewEngine(members MembershipResolver) *Engine {
	return &Engine{members: members}
}

// Authorize decides whether actor may perform op on target. Rules are
// evaluated in order; the first matching rule wins. fields is the update
// payload's field set and may be nil for non-update operations.
func (e *Engine) Authorize(actor *models.User, op Operation, target any, fields FieldSet) (Decision, error) {
	if actor == nil || !actor.IsActive {
		return Deny("authentication required"), nil
	}

	// Rule 1: safe reads on public resources.
	if op == OpRead {
		if pr, ok := target.(PubliclyReadable); ok && pr.ReadableByAnyone() {
			return Allow(), nil
		}
	}

	// Rule 2: platform admins may do everything. Invariants that even
	// admins cannot break (last-admin protection) are enforced by the
	// membership and user managers, not here.
	if actor.IsAdminUser() {
		return Allow(), nil
	}

	// Rule 3: project-scoped entities require an active membership.
	var member *models.ProjectMember
	if ps, ok := target.(ProjectScoped); ok {
		if projectID, scoped := ps.ProjectScope(); scoped {
			m, err := e.members.ActiveMember(projectID, actor.ID)
			if err != nil {
				return Decision{}, fmt.Errorf("membership lookup: %w", err)
			}
			if m == nil {
				return Deny("not a project member"), nil
			}
			member = m
		} else {
			// No project relation at all: ownership rules govern.
			return e.authorizeUnscoped(actor, op, target), nil
		}
	} else {
		return e.authorizeUnscoped(actor, op, target), nil
	}

	switch t := target.(type) {
	case *models.Task:
		return e.authorizeTask(actor, op, t, fields), nil
	case *models.Project:
		return authorizeProject(actor, op, member), nil
	case *models.Discussion:
		return authorizeOwnedInScope(actor, op, t), nil
	default:
		return authorizeOwnedInScope(actor, op, target), nil
	}
}

func (e *Engine) authorizeTask(actor *models.User, op Operation, task *models.Task, fields FieldSet) Decision {
	switch op {
	case OpRead:
		return Allow()

	case OpCreate:
		// Rule 5: task creation is admin-only; rule 2 already admitted
		// admins.
		return Deny("only admins can create tasks")

	case OpUpdate:
		// Rule 4: the assignee may perform status-only updates. An empty
		// field set is not a status update; dependency edits come through
		// here with no fields and stay admin-only.
		if task.AssigneeID != nil && *task.AssigneeID == actor.ID && fields.Has("status") && fields.Only("status") {
			return Allow()
		}
		// Rule 6: admin-only fields deny the whole update, even when the
		// rest of it would have been permitted.
		for _, f := range taskAdminOnlyFields {
			if fields.Has(f) {
				return Deny(fmt.Sprintf("forbidden field: %s", f))
			}
		}
		return Deny("only admins or the assignee (status only) can update tasks")

	case OpDelete:
		if owner, ok := task.OwnedBy(); ok && owner == actor.ID {
			return Allow()
		}
		return Deny("only admins or the task creator can delete tasks")
	}
	return Deny("unknown operation")
}

func authorizeProject(actor *models.User, op Operation, member *models.ProjectMember) Decision {
	switch op {
	case OpRead:
		return Allow()
	case OpUpdate:
		if member.CanEditProject() {
			return Allow()
		}
		return Deny("requires manager or admin role in the project")
	case OpDelete:
		if member.CanDeleteProject() {
			return Allow()
		}
		return Deny("requires admin role in the project")
	case OpCreate:
		return Allow()
	}
	return Deny("unknown operation")
}

// authorizeOwnedInScope allows reads to members and writes to the owner.
func authorizeOwnedInScope(actor *models.User, op Operation, target any) Decision {
	if op == OpRead {
		return Allow()
	}
	if op == OpCreate {
		return Allow()
	}
	if owned, ok := target.(Owned); ok {
		if owner, has := owned.OwnedBy(); has && owner == actor.ID {
			return Allow()
		}
	}
	return Deny("only the owner can modify this resource")
}

// authorizeUnscoped applies rule 7: entities without a project relation
// are governed by ownership; safe reads extend to public targets.
func (e *Engine) authorizeUnscoped(actor *models.User, op Operation, target any) Decision {
	if op == OpRead {
		if pr, ok := target.(PubliclyReadable); ok && pr.ReadableByAnyone() {
			return Allow()
		}
	}
	if op == OpCreate {
		return Allow()
	}
	if owned, ok := target.(Owned); ok {
		if owner, has := owned.OwnedBy(); has && owner == actor.ID {
			return Allow()
		}
		return Deny("only the owner can modify this resource")
	}
	if op == OpRead {
		return Allow()
	}
	return Deny("not permitted")
}
