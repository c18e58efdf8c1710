package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/taskdesk/internal/client/api"
	"github.com/dmitrijs2005/taskdesk/internal/client/identity"
	"github.com/dmitrijs2005/taskdesk/internal/client/policy"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// UsersAPI is the part of api.Client used by UserService.
type UsersAPI interface {
	ListUsers(ctx context.Context) ([]api.User, error)
	CountUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, in api.UserInput) error
	UpdateUser(ctx context.Context, id int, in api.UserInput) error
	DeleteUser(ctx context.Context, id int) error
}

// UserForm is the account editor's payload. Password may stay empty on
// update to keep the current one.
type UserForm struct {
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Role     identity.Role `json:"role"`
}

func (f UserForm) trimmed() UserForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	return f
}

func (f UserForm) validate(requirePassword bool) error {
	f = f.trimmed()
	passwordRules := []validation.Rule{validation.Length(1, 100)}
	if requirePassword {
		passwordRules = append([]validation.Rule{validation.Required}, passwordRules...)
	}

	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&f.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&f.Password, passwordRules...),
		validation.Field(&f.Role, validation.By(knownRole)),
	)
}

func knownRole(v interface{}) error {
	r, ok := v.(identity.Role)
	if !ok || !r.IsKnown() {
		return errors.New("must be Admin, Supervisor or Employee")
	}
	return nil
}

func (f UserForm) input() api.UserInput {
	f = f.trimmed()
	return api.UserInput{
		Name:     f.Name,
		Email:    f.Email,
		Password: f.Password,
		Role:     f.Role.Code(),
	}
}

type UserService struct {
	api     UsersAPI
	session SessionReader
}

func NewUserService(a UsersAPI, s SessionReader) *UserService {
	return &UserService{api: a, session: s}
}

func (s *UserService) List(ctx context.Context) ([]api.User, error) {
	if _, err := authorize(s.session, policy.ListUsers); err != nil {
		return nil, err
	}
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Count(ctx context.Context) (int, error) {
	if _, err := authorize(s.session, policy.ListUsers); err != nil {
		return 0, err
	}
	n, err := s.api.CountUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *UserService) Create(ctx context.Context, f UserForm) error {
	if _, err := authorize(s.session, policy.CreateUser); err != nil {
		return err
	}
	if err := validationError(f.validate(true)); err != nil {
		return err
	}
	if err := s.api.CreateUser(ctx, f.input()); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserService) Update(ctx context.Context, id int, f UserForm) error {
	if _, err := authorize(s.session, policy.EditUser); err != nil {
		return err
	}
	if err := validationError(f.validate(false)); err != nil {
		return err
	}
	if err := s.api.UpdateUser(ctx, id, f.input()); err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}
	return nil
}

func (s *UserService) Delete(ctx context.Context, id int) error {
	if _, err := authorize(s.session, policy.DeleteUser); err != nil {
		return err
	}
	if err := s.api.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}
