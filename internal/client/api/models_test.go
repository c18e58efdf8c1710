package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    TaskStatus
		wantErr bool
	}{
		{in: "Pending", want: StatusPending},
		{in: "pending", want: StatusPending},
		{in: "InProgress", want: StatusInProgress},
		{in: "in progress", want: StatusInProgress},
		{in: "in_progress", want: StatusInProgress},
		{in: "COMPLETED", want: StatusCompleted},
		{in: "2", want: StatusCompleted},
		{in: "3", wantErr: true},
		{in: "done", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTaskStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaskStatus_JSON(t *testing.T) {
	// Reads carry the name, writes carry the code.
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"status":"InProgress","dueDate":"2025-01-31T00:00:00"}`), &task))
	assert.Equal(t, StatusInProgress, task.Status)
	assert.Equal(t, "2025-01-31", task.DueDay())

	require.NoError(t, json.Unmarshal([]byte(`{"status":2}`), &task))
	assert.Equal(t, StatusCompleted, task.Status)

	assert.Error(t, json.Unmarshal([]byte(`{"status":9}`), &task))
	assert.Error(t, json.Unmarshal([]byte(`{"status":"Archived"}`), &task))

	out, err := json.Marshal(statusRequest{Status: StatusCompleted})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":2}`, string(out))
}

func TestTaskStatus_String(t *testing.T) {
	assert.Equal(t, "InProgress", StatusInProgress.String())
	assert.Equal(t, "TaskStatus(7)", TaskStatus(7).String())
	assert.Len(t, AllStatuses(), 3)
}

func TestUserInput_OmitsEmptyPassword(t *testing.T) {
	out, err := json.Marshal(UserInput{Name: "Ann", Email: "ann@example.com", Role: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ann","email":"ann@example.com","role":2}`, string(out))
}
