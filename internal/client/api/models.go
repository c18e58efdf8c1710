package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// User is a backend account as listed by /api/Users.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserInput is the create/update payload. Role uses the numeric codes of
// identity.Role.Code. Password may be empty on update to keep the current one.
type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Role     int    `json:"role"`
}

// TaskStatus is the workflow state of a task. The backend reads it as an
// integer and reports it as a name.
type TaskStatus int

const (
	StatusPending TaskStatus = iota
	StatusInProgress
	StatusCompleted
)

var taskStatusNames = [...]string{"Pending", "InProgress", "Completed"}

// AllStatuses lists the valid statuses in workflow order.
func AllStatuses() []TaskStatus {
	return []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}
}

func (s TaskStatus) Valid() bool {
	return s >= StatusPending && s <= StatusCompleted
}

func (s TaskStatus) String() string {
	if s.Valid() {
		return taskStatusNames[s]
	}
	return "TaskStatus(" + strconv.Itoa(int(s)) + ")"
}

// ParseTaskStatus accepts a status name (case-insensitive, "in progress"
// and "in_progress" included) or its numeric code.
func ParseTaskStatus(s string) (TaskStatus, error) {
	norm := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.TrimSpace(s)))
	for i, name := range taskStatusNames {
		if strings.ToLower(name) == norm {
			return TaskStatus(i), nil
		}
	}
	if n, err := strconv.Atoi(norm); err == nil && TaskStatus(n).Valid() {
		return TaskStatus(n), nil
	}
	return 0, fmt.Errorf("unknown task status %q", s)
}

// MarshalJSON writes the numeric code, which is what write endpoints expect.
func (s TaskStatus) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(s))), nil
}

// UnmarshalJSON accepts either the name or the numeric code.
func (s *TaskStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		parsed, err := ParseTaskStatus(name)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}

	var code int
	if err := json.Unmarshal(b, &code); err != nil {
		return fmt.Errorf("task status: %w", err)
	}
	if !TaskStatus(code).Valid() {
		return fmt.Errorf("unknown task status %d", code)
	}
	*s = TaskStatus(code)
	return nil
}

// Task is a backend task as listed by /api/Tasks.
type Task struct {
	ID               int        `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	DueDate          string     `json:"dueDate"`
	Status           TaskStatus `json:"status"`
	AssignedUserID   int        `json:"assignedUserId"`
	AssignedUserName string     `json:"assignedUserName"`
}

// DueDay is DueDate without its time part.
func (t Task) DueDay() string {
	day, _, _ := strings.Cut(t.DueDate, "T")
	return day
}

// TaskInput is the create/update payload. DueDate is YYYY-MM-DD.
type TaskInput struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	DueDate        string     `json:"dueDate"`
	Status         TaskStatus `json:"status"`
	AssignedUserID int        `json:"assignedUserId"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type statusRequest struct {
	Status TaskStatus `json:"status"`
}
