package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/taskdesk/internal/client/api"
	"github.com/dmitrijs2005/taskdesk/internal/client/policy"
	validation "github.com/go-ozzo/ozzo-validation"
)

// TasksAPI is the part of api.Client used by TaskService.
type TasksAPI interface {
	ListTasks(ctx context.Context) ([]api.Task, error)
	CountTasks(ctx context.Context) (int, error)
	CreateTask(ctx context.Context, in api.TaskInput) error
	UpdateTask(ctx context.Context, id int, in api.TaskInput) error
	DeleteTask(ctx context.Context, id int) error
	AssignTask(ctx context.Context, id, userID int) error
	ChangeTaskStatus(ctx context.Context, id int, status api.TaskStatus) error
}

// TaskForm is the task editor's payload. DueDate is YYYY-MM-DD.
type TaskForm struct {
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	DueDate        string         `json:"dueDate"`
	Status         api.TaskStatus `json:"status"`
	AssignedUserID int            `json:"assignedUserId"`
}

// trimmed drops surrounding blanks from the text fields.
func (f TaskForm) trimmed() TaskForm {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.DueDate = strings.TrimSpace(f.DueDate)
	return f
}

func (f TaskForm) validate() error {
	f = f.trimmed()
	return validation.ValidateStruct(&f,
		validation.Field(&f.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&f.Description, validation.Length(0, 2000)),
		validation.Field(&f.DueDate, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&f.Status, validation.In(api.StatusPending, api.StatusInProgress, api.StatusCompleted)),
		validation.Field(&f.AssignedUserID, validation.Required, validation.Min(1)),
	)
}

func (f TaskForm) input() api.TaskInput {
	f = f.trimmed()
	return api.TaskInput{
		Title:          f.Title,
		Description:    f.Description,
		DueDate:        f.DueDate,
		Status:         f.Status,
		AssignedUserID: f.AssignedUserID,
	}
}

// FormFromTask prefills the editor with t.
func FormFromTask(t api.Task) TaskForm {
	return TaskForm{
		Title:          t.Title,
		Description:    t.Description,
		DueDate:        t.DueDay(),
		Status:         t.Status,
		AssignedUserID: t.AssignedUserID,
	}
}

type TaskService struct {
	api     TasksAPI
	session SessionReader
}

func NewTaskService(a TasksAPI, s SessionReader) *TaskService {
	return &TaskService{api: a, session: s}
}

func (s *TaskService) List(ctx context.Context) ([]api.Task, error) {
	if _, err := authorize(s.session, policy.ViewTasks); err != nil {
		return nil, err
	}
	tasks, err := s.api.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Get looks a task up by id. The backend has no single-task route, so
// this scans the list.
func (s *TaskService) Get(ctx context.Context, id int) (api.Task, error) {
	tasks, err := s.List(ctx)
	if err != nil {
		return api.Task{}, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return api.Task{}, fmt.Errorf("task %d: %w", id, api.ErrNotFound)
}

func (s *TaskService) Count(ctx context.Context) (int, error) {
	if _, err := authorize(s.session, policy.ViewTasks); err != nil {
		return 0, err
	}
	n, err := s.api.CountTasks(ctx)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

func (s *TaskService) Create(ctx context.Context, f TaskForm) error {
	if _, err := authorize(s.session, policy.CreateTask); err != nil {
		return err
	}
	if err := validationError(f.validate()); err != nil {
		return err
	}
	if err := s.api.CreateTask(ctx, f.input()); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *TaskService) Update(ctx context.Context, id int, f TaskForm) error {
	if _, err := authorize(s.session, policy.EditTask); err != nil {
		return err
	}
	if err := validationError(f.validate()); err != nil {
		return err
	}
	if err := s.api.UpdateTask(ctx, id, f.input()); err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	return nil
}

func (s *TaskService) Delete(ctx context.Context, id int) error {
	if _, err := authorize(s.session, policy.DeleteTask); err != nil {
		return err
	}
	if err := s.api.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}

func (s *TaskService) Assign(ctx context.Context, id, userID int) error {
	if _, err := authorize(s.session, policy.AssignTask); err != nil {
		return err
	}
	if userID <= 0 {
		return &ValidationError{Fields: validation.Errors{"userId": fmt.Errorf("must be a positive id")}}
	}
	if err := s.api.AssignTask(ctx, id, userID); err != nil {
		return fmt.Errorf("assign task %d: %w", id, err)
	}
	return nil
}

// ChangeStatus moves task id to status. Roles limited to their own tasks
// are refused for tasks assigned to someone else.
func (s *TaskService) ChangeStatus(ctx context.Context, id int, status api.TaskStatus) error {
	if !status.Valid() {
		return &ValidationError{Fields: validation.Errors{"status": fmt.Errorf("unknown status %d", int(status))}}
	}

	task, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	snap := s.session.Current()
	if snap.Identity == nil || !policy.CanChangeStatus(*snap.Identity, task.AssignedUserID) {
		return fmt.Errorf("%w: %s", ErrForbidden, policy.ChangeTaskStatus)
	}
	if task.Status == status {
		return ErrStatusUnchanged
	}

	if err := s.api.ChangeTaskStatus(ctx, id, status); err != nil {
		return fmt.Errorf("change status of task %d: %w", id, err)
	}
	return nil
}
