package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
)

func (a *App) getStatus() string {
	snap := a.store.Current()
	if !snap.Authenticated {
		return ""
	}
	return fmt.Sprintf("(%s, %s)", snap.Identity.DisplayName(), snap.Role())
}

// Root runs the REPL on a.reader until EOF, "exit" or ctx cancellation.
func (a *App) Root(ctx context.Context) {
	a.println("Welcome to taskdesk (type 'help' for commands)")
	if snap := a.store.Current(); snap.Authenticated {
		a.println("Signed in as", snap.Identity.DisplayName())
	}

	for ctx.Err() == nil {
		status := a.getStatus()
		if status != "" {
			status = " " + status
		}
		a.printf("taskdesk%s> ", status)

		line, err := a.reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			a.println()
			return
		}
		if !a.dispatch(ctx, line) {
			return
		}
	}
}
