package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/taskdesk/internal/client/api"
	"github.com/dmitrijs2005/taskdesk/internal/client/identity"
	"github.com/dmitrijs2005/taskdesk/internal/client/services"
	"github.com/dmitrijs2005/taskdesk/internal/common"
)

func (a *App) ListUsers(ctx context.Context, _ []string) error {
	users, err := a.users.List(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		a.println("No users.")
		return nil
	}
	a.println(renderUsers(users))
	return nil
}

// AddUser prompts for the fields of a new account.
func (a *App) AddUser(ctx context.Context, _ []string) error {
	var f services.UserForm
	var err error

	if f.Name, err = getSimpleText(a.reader, "Name", a.prompter()); err != nil {
		return err
	}
	if f.Email, err = getSimpleText(a.reader, "Email", a.prompter()); err != nil {
		return err
	}

	password, err := getPassword(a.prompter())
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	f.Password = string(password)

	if f.Role, err = a.promptRole(identity.RoleEmployee); err != nil {
		return err
	}

	if err := a.users.Create(ctx, f); err != nil {
		return err
	}
	a.println("User created.")
	return nil
}

// EditUser prompts for new values, prefilled from the current account.
// An empty password keeps the old one.
func (a *App) EditUser(ctx context.Context, args []string) error {
	id, err := parseID(args, 0, "useredit <id>")
	if err != nil {
		return err
	}

	current, err := a.findUser(ctx, id)
	if err != nil {
		return err
	}

	f := services.UserForm{}
	if f.Name, err = GetTextWithDefault(a.reader, "Name", current.Name, a.prompter()); err != nil {
		return err
	}
	if f.Email, err = GetTextWithDefault(a.reader, "Email", current.Email, a.prompter()); err != nil {
		return err
	}

	a.println("New password (leave empty to keep the current one)")
	password, err := getPassword(a.prompter())
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	f.Password = string(password)

	if f.Role, err = a.promptRole(identity.ParseRole(current.Role)); err != nil {
		return err
	}

	if err := a.users.Update(ctx, id, f); err != nil {
		return err
	}
	a.println("User updated.")
	return nil
}

func (a *App) DeleteUser(ctx context.Context, args []string) error {
	id, err := parseID(args, 0, "userdel <id>")
	if err != nil {
		return err
	}

	ok, err := Confirm(a.reader, fmt.Sprintf("Delete user %d?", id), a.prompter())
	if err != nil || !ok {
		return err
	}

	if err := a.users.Delete(ctx, id); err != nil {
		return err
	}
	a.println("User deleted.")
	return nil
}

func (a *App) findUser(ctx context.Context, id int) (api.User, error) {
	users, err := a.users.List(ctx)
	if err != nil {
		return api.User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return api.User{}, fmt.Errorf("user %d: %w", id, api.ErrNotFound)
}

// promptRole asks for a role tag until a known one (or the default) is
// given.
func (a *App) promptRole(def identity.Role) (identity.Role, error) {
	if !def.IsKnown() {
		def = identity.RoleEmployee
	}
	for {
		v, err := GetTextWithDefault(a.reader, "Role (Admin, Supervisor, Employee)", def.String(), a.prompter())
		if err != nil {
			return identity.RoleUnknown, err
		}
		if r := identity.ParseRole(v); r.IsKnown() {
			return r, nil
		}
		a.println("Unknown role:", v)
	}
}
