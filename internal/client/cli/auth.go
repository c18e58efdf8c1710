package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/identity"
	"github.com/dmitrijs2005/taskdesk/internal/client/services"
	"github.com/dmitrijs2005/taskdesk/internal/client/session"
	"github.com/dmitrijs2005/taskdesk/internal/common"
)

// Login prompts for email and password and hands them to the session
// store. The password is wiped before returning.
func (a *App) Login(ctx context.Context, _ []string) error {
	email, err := getSimpleText(a.reader, "Enter email", a.prompter())
	if err != nil {
		return err
	}

	password, err := getPassword(a.prompter())
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if !a.store.Login(ctx, session.Credentials{Email: email, Password: password}) {
		a.println("Invalid credentials. Please try again.")
		return nil
	}

	id, err := a.signedIn()
	if err != nil {
		return err
	}
	a.printf("Welcome, %s! You are signed in as %s.\n", id.DisplayName(), id.Role)
	return nil
}

// Logout ends the session and removes the stored credential.
func (a *App) Logout(ctx context.Context, _ []string) error {
	a.store.Logout(ctx)
	a.println("Logged out.")
	return nil
}

// WhoAmI prints the claims of the current session.
func (a *App) WhoAmI(ctx context.Context, _ []string) error {
	id, err := a.signedIn()
	if err != nil {
		return err
	}

	role := id.Role.String()
	if id.RoleName != "" && !id.Role.IsKnown() {
		role += " (" + id.RoleName + ")"
	}

	expires := "never"
	if id.HasExpiry() {
		expires = id.Expiry.Local().Format(time.DateTime)
		if left := id.Expiry.Sub(a.now()).Round(time.Second); left > 0 {
			expires += " (in " + left.String() + ")"
		}
	}

	rows := [][]string{
		{"Name", orDash(id.Name)},
		{"Email", orDash(id.Email)},
		{"ID", orDash(id.ID)},
		{"Role", role},
		{"Expires", expires},
	}

	if a.creds != nil {
		if savedAt, err := a.creds.SavedAt(ctx); err == nil {
			rows = append(rows, []string{"Signed in", savedAt.Local().Format(time.DateTime)})
		}
	}

	a.println(renderKV(rows))
	return nil
}

// signedIn returns the identity of the current session. The session may
// have ended since the command was dispatched.
func (a *App) signedIn() (*identity.Identity, error) {
	snap := a.store.Current()
	if !snap.Authenticated || snap.Identity == nil {
		return nil, services.ErrNotAuthenticated
	}
	return snap.Identity, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
