// Package policy maps roles to the actions the client exposes.
//
// The table is fixed and evaluated on every check; nothing is cached
// between calls, so a role change takes effect as soon as the session's
// identity is replaced.
package policy

import (
	"strconv"
	"strings"

	"github.com/dmitrijs2005/taskdesk/internal/client/identity"
)

// Action is a single gated operation.
type Action uint32

const (
	ListUsers Action = 1 << iota
	CreateUser
	EditUser
	DeleteUser
	ViewTasks
	CreateTask
	EditTask
	DeleteTask
	AssignTask
	ChangeTaskStatus
	// ChangeOwnTaskStatus allows status changes on tasks assigned to the caller.
	ChangeOwnTaskStatus
)

var actionNames = []struct {
	action Action
	name   string
}{
	{ListUsers, "list-users"},
	{CreateUser, "create-user"},
	{EditUser, "edit-user"},
	{DeleteUser, "delete-user"},
	{ViewTasks, "view-tasks"},
	{CreateTask, "create-task"},
	{EditTask, "edit-task"},
	{DeleteTask, "delete-task"},
	{AssignTask, "assign-task"},
	{ChangeTaskStatus, "change-task-status"},
	{ChangeOwnTaskStatus, "change-own-task-status"},
}

func (a Action) String() string {
	for _, n := range actionNames {
		if n.action == a {
			return n.name
		}
	}
	return "action(" + strconv.FormatUint(uint64(a), 10) + ")"
}

// ActionSet is a set of actions.
type ActionSet uint32

// NewActionSet builds a set from the given actions.
func NewActionSet(actions ...Action) ActionSet {
	var s ActionSet
	for _, a := range actions {
		s |= ActionSet(a)
	}
	return s
}

func (s ActionSet) Has(a Action) bool {
	return s&ActionSet(a) == ActionSet(a) && a != 0
}

// Contains reports whether every action of other is in s.
func (s ActionSet) Contains(other ActionSet) bool {
	return s&other == other
}

// Actions lists the members in declaration order.
func (s ActionSet) Actions() []Action {
	var out []Action
	for _, n := range actionNames {
		if s.Has(n.action) {
			out = append(out, n.action)
		}
	}
	return out
}

func (s ActionSet) String() string {
	actions := s.Actions()
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.String()
	}
	return "{" + strings.Join(names, ", ") + "}"
}

var (
	adminActions = NewActionSet(
		ListUsers, CreateUser, EditUser, DeleteUser,
		ViewTasks, CreateTask, EditTask, DeleteTask,
		AssignTask, ChangeTaskStatus,
	)
	supervisorActions = NewActionSet(ViewTasks, AssignTask, ChangeTaskStatus)
	regularActions    = NewActionSet(ViewTasks, ChangeOwnTaskStatus)
)

// PermittedActions returns what role may do. Unknown roles get the regular
// tier.
func PermittedActions(role identity.Role) ActionSet {
	switch role {
	case identity.RoleAdmin:
		return adminActions
	case identity.RoleSupervisor:
		return supervisorActions
	default:
		return regularActions
	}
}

// ForName is PermittedActions for a raw role tag.
func ForName(role string) ActionSet {
	return PermittedActions(identity.ParseRole(role))
}

func Allows(role identity.Role, a Action) bool {
	return PermittedActions(role).Has(a)
}

// CanChangeStatus decides the status action for a concrete task: either
// the role may change any task's status, or it may change its own and the
// task is assigned to id.
func CanChangeStatus(id identity.Identity, assignedUserID int) bool {
	actions := PermittedActions(id.Role)
	if actions.Has(ChangeTaskStatus) {
		return true
	}
	if !actions.Has(ChangeOwnTaskStatus) || id.ID == "" {
		return false
	}
	return id.ID == strconv.Itoa(assignedUserID)
}
