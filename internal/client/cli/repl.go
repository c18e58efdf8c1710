package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/taskdesk/internal/client/api"
	"github.com/dmitrijs2005/taskdesk/internal/client/policy"
	"github.com/dmitrijs2005/taskdesk/internal/client/services"
	"github.com/dmitrijs2005/taskdesk/internal/client/session"
)

// command is one REPL verb.
type command struct {
	name    string
	usage   string
	summary string

	// public commands run without a session.
	public bool
	// anonymousOnly commands are hidden once signed in.
	anonymousOnly bool
	// anyOf gates the command on the role holding at least one of these
	// actions. Zero means every signed-in role.
	anyOf policy.ActionSet

	run func(ctx context.Context, args []string) error
}

func (a *App) commands() []command {
	return []command{
		{name: "help", summary: "show available commands", public: true, run: a.help},
		{name: "login", summary: "sign in", public: true, anonymousOnly: true, run: a.Login},
		{name: "whoami", summary: "show the signed-in user", run: a.WhoAmI},
		{name: "stats", summary: "task and user counts", anyOf: policy.NewActionSet(policy.ViewTasks), run: a.Stats},

		{name: "users", summary: "list users", anyOf: policy.NewActionSet(policy.ListUsers), run: a.ListUsers},
		{name: "useradd", summary: "create a user", anyOf: policy.NewActionSet(policy.CreateUser), run: a.AddUser},
		{name: "useredit", usage: "<id>", summary: "edit a user", anyOf: policy.NewActionSet(policy.EditUser), run: a.EditUser},
		{name: "userdel", usage: "<id>", summary: "delete a user", anyOf: policy.NewActionSet(policy.DeleteUser), run: a.DeleteUser},

		{name: "tasks", usage: "[mine|pending|inprogress|completed]", summary: "list tasks", anyOf: policy.NewActionSet(policy.ViewTasks), run: a.ListTasks},
		{name: "taskadd", summary: "create a task", anyOf: policy.NewActionSet(policy.CreateTask), run: a.AddTask},
		{name: "taskedit", usage: "<id>", summary: "edit a task", anyOf: policy.NewActionSet(policy.EditTask), run: a.EditTask},
		{name: "taskdel", usage: "<id>", summary: "delete a task", anyOf: policy.NewActionSet(policy.DeleteTask), run: a.DeleteTask},
		{name: "assign", usage: "<task-id> <user-id>", summary: "assign a task", anyOf: policy.NewActionSet(policy.AssignTask), run: a.AssignTask},
		{
			name: "status", usage: "<task-id> [status]", summary: "change a task's status",
			anyOf: policy.NewActionSet(policy.ChangeTaskStatus, policy.ChangeOwnTaskStatus),
			run:   a.ChangeStatus,
		},

		{name: "logout", summary: "sign out", run: a.Logout},
		{name: "exit", summary: "leave the program", public: true},
	}
}

// visible reports whether c is usable in snap.
func visible(c command, snap session.Session) bool {
	if snap.Authenticated && c.anonymousOnly {
		return false
	}
	if c.public {
		return true
	}
	if !snap.Authenticated {
		return false
	}
	if c.anyOf == 0 {
		return true
	}
	permitted := policy.PermittedActions(snap.Role())
	for _, act := range c.anyOf.Actions() {
		if permitted.Has(act) {
			return true
		}
	}
	return false
}

func (a *App) help(context.Context, []string) error {
	snap := a.store.Current()

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, c := range a.commands() {
		if !visible(c, snap) {
			continue
		}
		name := c.name
		if c.usage != "" {
			name += " " + c.usage
		}
		fmt.Fprintf(&b, "  %-42s %s\n", name, c.summary)
	}
	a.printf("%s", b.String())
	return nil
}

// dispatch runs one input line. It returns false when the REPL should stop.
func (a *App) dispatch(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	name, args := strings.ToLower(parts[0]), parts[1:]

	if name == "exit" || name == "quit" {
		a.println("Bye!")
		return false
	}

	var cmd *command
	for _, c := range a.commands() {
		if c.name == name {
			cmd = &c
			break
		}
	}
	if cmd == nil {
		a.println("Unknown command:", name)
		return true
	}

	snap := a.store.Current()
	switch {
	case snap.Loading && !cmd.public:
		a.println("Session is still loading, try again.")
		return true
	case !snap.Authenticated && !cmd.public:
		a.println("Please log in first.")
		return true
	case !visible(*cmd, snap):
		if cmd.anonymousOnly {
			a.println("Already logged in as", snap.Identity.DisplayName()+". Use logout first.")
		} else {
			a.println("Access denied.")
		}
		return true
	}

	if err := cmd.run(ctx, args); err != nil {
		a.report(ctx, name, err)
	}
	return true
}

// usageError is returned by handlers that got bad arguments.
type usageError struct {
	usage string
}

func (e *usageError) Error() string { return "Usage: " + e.usage }

func parseID(args []string, i int, usage string) (int, error) {
	if len(args) <= i {
		return 0, &usageError{usage: usage}
	}
	id, err := strconv.Atoi(args[i])
	if err != nil || id <= 0 {
		return 0, &usageError{usage: usage}
	}
	return id, nil
}

// report prints err in user terms. A token the backend no longer accepts
// ends the session.
func (a *App) report(ctx context.Context, cmd string, err error) {
	var (
		usage *usageError
		verr  *services.ValidationError
	)

	switch {
	case errors.As(err, &usage):
		a.println(usage.Error())
	case errors.As(err, &verr):
		a.println("Invalid input:")
		for _, line := range strings.Split(strings.TrimPrefix(verr.Error(), "validation failed: "), "; ") {
			a.println("  " + line)
		}
	case errors.Is(err, services.ErrNotAuthenticated):
		a.println("Please log in first.")
	case errors.Is(err, services.ErrForbidden), errors.Is(err, api.ErrForbidden):
		a.println("Access denied.")
	case errors.Is(err, services.ErrStatusUnchanged):
		a.println("Task already has this status.")
	case errors.Is(err, api.ErrUnauthorized):
		a.store.Logout(ctx)
		a.println("Your session is no longer valid. Please log in again.")
	case errors.Is(err, api.ErrNotFound):
		a.println("Not found:", api.Message(err))
	case errors.Is(err, api.ErrUnavailable):
		a.println("Server unavailable:", api.Message(err))
	case errors.Is(err, api.ErrBadRequest):
		a.println("Rejected by server:", api.Message(err))
	default:
		a.println("Error:", err.Error())
	}

	a.logger.Debug(ctx, "command failed", "command", cmd, "error", err.Error())
}
