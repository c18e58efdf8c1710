// Package services contains the application services behind the CLI
// commands. Each operation checks the session and the role policy before
// it reaches the backend, so a refused action never produces a request.
package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/taskdesk/internal/client/policy"
	"github.com/dmitrijs2005/taskdesk/internal/client/session"
	"github.com/dmitrijs2005/taskdesk/internal/common"
	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	ErrNotAuthenticated = common.ErrNotAuthenticated
	ErrForbidden        = common.ErrForbidden
	ErrSessionLoading   = errors.New("session is still loading")
	ErrValidation       = errors.New("validation failed")
	ErrStatusUnchanged  = errors.New("task already has this status")
)

// SessionReader is the read side of session.Store.
type SessionReader interface {
	Current() session.Session
}

// ValidationError lists the offending fields of a form.
type ValidationError struct {
	Fields validation.Errors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// validationError turns the result of validation.ValidateStruct into a
// *ValidationError. Internal rule failures pass through unchanged.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		return &ValidationError{Fields: fields}
	}
	return err
}

// authorize returns the current session when it is authenticated and its
// role allows a.
func authorize(sr SessionReader, a policy.Action) (session.Session, error) {
	snap := sr.Current()
	switch {
	case snap.Loading:
		return snap, ErrSessionLoading
	case !snap.Authenticated:
		return snap, ErrNotAuthenticated
	case !policy.Allows(snap.Role(), a):
		return snap, fmt.Errorf("%w: %s", ErrForbidden, a)
	}
	return snap, nil
}
