// Package permission resolves the fixed capability set granted to each role.
package permission

import (
	"fmt"

	"github.com/example/training-scheduler/internal/application"
)

// ErrUnknownRole is returned for roles outside the closed enumeration. Callers
// must treat it as an authentication fault rather than as "no permissions".
var ErrUnknownRole = application.ErrUnknownRole

// Permission is the capability record derived from a role.
type Permission struct {
	ViewSchedules           bool `json:"viewSchedules"`
	EditSchedules           bool `json:"editSchedules"`
	DeleteSchedules         bool `json:"deleteSchedules"`
	ViewSessions            bool `json:"viewSessions"`
	EditSessions            bool `json:"editSessions"`
	DeleteSessions          bool `json:"deleteSessions"`
	ApplyToSessions         bool `json:"applyToSessions"`
	ViewTeamLeaderSchedules bool `json:"viewTeamLeaderSchedules"`
}

// Capability names a single flag of Permission.
type Capability string

const (
	ViewSchedules           Capability = "viewSchedules"
	EditSchedules           Capability = "editSchedules"
	DeleteSchedules         Capability = "deleteSchedules"
	ViewSessions            Capability = "viewSessions"
	EditSessions            Capability = "editSessions"
	DeleteSessions          Capability = "deleteSessions"
	ApplyToSessions         Capability = "applyToSessions"
	ViewTeamLeaderSchedules Capability = "viewTeamLeaderSchedules"
)

// Capabilities lists every capability in declaration order.
func Capabilities() []Capability {
	return []Capability{
		ViewSchedules, EditSchedules, DeleteSchedules,
		ViewSessions, EditSessions, DeleteSessions,
		ApplyToSessions, ViewTeamLeaderSchedules,
	}
}

// Allows reports whether the capability is granted. Unknown capabilities are denied.
func (p Permission) Allows(c Capability) bool {
	switch c {
	case ViewSchedules:
		return p.ViewSchedules
	case EditSchedules:
		return p.EditSchedules
	case DeleteSchedules:
		return p.DeleteSchedules
	case ViewSessions:
		return p.ViewSessions
	case EditSessions:
		return p.EditSessions
	case DeleteSessions:
		return p.DeleteSessions
	case ApplyToSessions:
		return p.ApplyToSessions
	case ViewTeamLeaderSchedules:
		return p.ViewTeamLeaderSchedules
	}
	return false
}

var (
	manager = Permission{
		ViewSchedules:           true,
		EditSchedules:           true,
		DeleteSchedules:         true,
		ViewSessions:            true,
		EditSessions:            true,
		DeleteSessions:          true,
		ApplyToSessions:         false,
		ViewTeamLeaderSchedules: true,
	}
	teacher = Permission{
		ViewSchedules:           true,
		EditSchedules:           false,
		DeleteSchedules:         false,
		ViewSessions:            true,
		EditSessions:            false,
		DeleteSessions:          false,
		ApplyToSessions:         true,
		ViewTeamLeaderSchedules: false,
	}
)

// Resolve maps a role to its capability set. Every member of
// application.AllRoles has a case; a role added without one fails the
// exhaustiveness test in this package.
func Resolve(role application.Role) (Permission, error) {
	switch role {
	case application.RoleAdmin:
		return manager, nil
	case application.RoleTeamLeader:
		return manager, nil
	case application.RoleInstructor:
		return teacher, nil
	case application.RoleStudent:
		return teacher, nil
	case application.RoleRegular:
		return teacher, nil
	case application.RoleNew:
		return teacher, nil
	}
	return Permission{}, fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
}

// Can reports whether role holds capability c.
func Can(role application.Role, c Capability) (bool, error) {
	p, err := Resolve(role)
	if err != nil {
		return false, err
	}
	return p.Allows(c), nil
}
