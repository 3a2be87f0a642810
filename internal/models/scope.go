package models

// Authorization target accessors. The authorization engine works against
// small structural interfaces; these methods satisfy them without the
// models package knowing about the engine.

// OwnedBy returns the creating user, when one was recorded.
func (t Tracking) OwnedBy() (uint64, bool) {
	if t.CreatedByID == nil {
		return 0, false
	}
	return *t.CreatedByID, true
}

// ProjectScope returns the project a task belongs to. Tasks are always
// project-scoped.
func (t *Task) ProjectScope() (uint64, bool) {
	return t.ProjectID, true
}

// ProjectScope returns the project itself; operating on a project requires
// membership in that project.
func (p *Project) ProjectScope() (uint64, bool) {
	return p.ID, true
}

// ReadableByAnyone reports whether any authenticated user may read the
// project.
func (p *Project) ReadableByAnyone() bool {
	return p.IsPublic
}

// ProjectScope returns the discussion's project. Public discussions carry
// no project scope.
func (d *Discussion) ProjectScope() (uint64, bool) {
	if d.ProjectID == nil {
		return 0, false
	}
	return *d.ProjectID, true
}

// ReadableByAnyone reports whether any authenticated user may read the
// discussion.
func (d *Discussion) ReadableByAnyone() bool {
	return d.ProjectID == nil
}
