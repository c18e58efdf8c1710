package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/taskdesk/internal/client/api"
	"github.com/dmitrijs2005/taskdesk/internal/client/services"
)

// ListTasks prints the task table. "mine" keeps the caller's tasks, a
// status name keeps tasks in that status.
func (a *App) ListTasks(ctx context.Context, args []string) error {
	tasks, err := a.tasks.List(ctx)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		filter := strings.ToLower(args[0])
		keep := func(api.Task) bool { return true }

		if filter == "mine" {
			id, err := a.signedIn()
			if err != nil {
				return err
			}
			me := id.ID
			keep = func(t api.Task) bool { return strconv.Itoa(t.AssignedUserID) == me }
		} else {
			status, err := api.ParseTaskStatus(filter)
			if err != nil {
				return &usageError{usage: "tasks [mine|pending|inprogress|completed]"}
			}
			keep = func(t api.Task) bool { return t.Status == status }
		}

		filtered := tasks[:0]
		for _, t := range tasks {
			if keep(t) {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	if len(tasks) == 0 {
		a.println("No tasks.")
		return nil
	}
	a.println(renderTasks(tasks))
	return nil
}

func (a *App) AddTask(ctx context.Context, _ []string) error {
	f, err := a.promptTask(services.TaskForm{})
	if err != nil {
		return err
	}
	if err := a.tasks.Create(ctx, f); err != nil {
		return err
	}
	a.println("Task created.")
	return nil
}

func (a *App) EditTask(ctx context.Context, args []string) error {
	id, err := parseID(args, 0, "taskedit <id>")
	if err != nil {
		return err
	}

	current, err := a.tasks.Get(ctx, id)
	if err != nil {
		return err
	}

	f, err := a.promptTask(services.FormFromTask(current))
	if err != nil {
		return err
	}
	if err := a.tasks.Update(ctx, id, f); err != nil {
		return err
	}
	a.println("Task updated.")
	return nil
}

func (a *App) DeleteTask(ctx context.Context, args []string) error {
	id, err := parseID(args, 0, "taskdel <id>")
	if err != nil {
		return err
	}

	ok, err := Confirm(a.reader, fmt.Sprintf("Delete task %d?", id), a.prompter())
	if err != nil || !ok {
		return err
	}

	if err := a.tasks.Delete(ctx, id); err != nil {
		return err
	}
	a.println("Task deleted.")
	return nil
}

func (a *App) AssignTask(ctx context.Context, args []string) error {
	const usage = "assign <task-id> <user-id>"
	id, err := parseID(args, 0, usage)
	if err != nil {
		return err
	}
	userID, err := parseID(args, 1, usage)
	if err != nil {
		return err
	}

	if err := a.tasks.Assign(ctx, id, userID); err != nil {
		return err
	}
	a.printf("Task %d assigned to user %d.\n", id, userID)
	return nil
}

// ChangeStatus sets a task's status. Without a status argument it offers
// the statuses the task is not in.
func (a *App) ChangeStatus(ctx context.Context, args []string) error {
	const usage = "status <task-id> [pending|inprogress|completed]"
	id, err := parseID(args, 0, usage)
	if err != nil {
		return err
	}

	var status api.TaskStatus
	if len(args) > 1 {
		if status, err = api.ParseTaskStatus(strings.Join(args[1:], " ")); err != nil {
			return &usageError{usage: usage}
		}
	} else {
		task, err := a.tasks.Get(ctx, id)
		if err != nil {
			return err
		}
		if status, err = a.promptStatus(task.Status); err != nil {
			return err
		}
	}

	if err := a.tasks.ChangeStatus(ctx, id, status); err != nil {
		return err
	}
	a.printf("Task %d is now %s.\n", id, status)
	return nil
}

func (a *App) promptStatus(current api.TaskStatus) (api.TaskStatus, error) {
	var options []string
	for _, s := range api.AllStatuses() {
		if s != current {
			options = append(options, s.String())
		}
	}

	for {
		v, err := getSimpleText(a.reader, fmt.Sprintf("New status (%s)", strings.Join(options, ", ")), a.prompter())
		if err != nil {
			return 0, err
		}
		s, err := api.ParseTaskStatus(v)
		if err == nil && s != current {
			return s, nil
		}
		a.println("Pick one of:", strings.Join(options, ", "))
	}
}

// promptTask asks for every task field, offering def's values as
// defaults. Validation is left to the service.
func (a *App) promptTask(def services.TaskForm) (services.TaskForm, error) {
	var (
		f   services.TaskForm
		err error
	)

	if f.Title, err = GetTextWithDefault(a.reader, "Title", def.Title, a.prompter()); err != nil {
		return f, err
	}

	prompt := "Description"
	if def.Description != "" {
		prompt += " (empty keeps the current one)"
	}
	if f.Description, err = GetMultiline(a.reader, prompt, a.prompter()); err != nil {
		return f, err
	}
	if f.Description == "" {
		f.Description = def.Description
	}

	if f.DueDate, err = GetTextWithDefault(a.reader, "Due date (YYYY-MM-DD)", def.DueDate, a.prompter()); err != nil {
		return f, err
	}

	defAssignee := ""
	if def.AssignedUserID != 0 {
		defAssignee = strconv.Itoa(def.AssignedUserID)
	}
	assignee, err := GetTextWithDefault(a.reader, "Assignee user id", defAssignee, a.prompter())
	if err != nil {
		return f, err
	}
	// A non-numeric id stays 0 and is reported by validation.
	f.AssignedUserID, _ = strconv.Atoi(assignee)

	status, err := GetTextWithDefault(a.reader, "Status (Pending, InProgress, Completed)", def.Status.String(), a.prompter())
	if err != nil {
		return f, err
	}
	if f.Status, err = api.ParseTaskStatus(status); err != nil {
		f.Status = api.TaskStatus(-1)
	}

	return f, nil
}
