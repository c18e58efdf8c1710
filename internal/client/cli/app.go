package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/api"
	"github.com/dmitrijs2005/taskdesk/internal/client/config"
	"github.com/dmitrijs2005/taskdesk/internal/client/services"
	"github.com/dmitrijs2005/taskdesk/internal/client/session"
	"github.com/dmitrijs2005/taskdesk/internal/client/storage"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	store *session.Store
	creds *session.SQLCredentialStore
	users *services.UserService
	tasks *services.TaskService

	reader *bufio.Reader

	outMu sync.Mutex
	out   io.Writer

	now func() time.Time
}

// NewApp opens the local database, builds the API client and the session
// store, and wires them together. The session is not restored yet; Run
// does that.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := storage.Open(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err.Error())
		return nil, err
	}

	apiClient, err := api.New(c.BaseURL, api.WithTimeout(c.RequestTimeout), api.WithLogger(logger))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	creds := session.NewSQLCredentialStore(db)
	store := session.NewStore(apiClient, creds, logger, session.WithExpiryEnforcement(c.EnforceExpiry))
	apiClient.SetTokenSource(store)

	a := newApp(c, logger, apiClient, store, os.Stdin, os.Stdout)
	a.db = db
	a.creds = creds
	return a, nil
}

// backend is what App needs from api.Client.
type backend interface {
	services.UsersAPI
	services.TasksAPI
}

func newApp(c *config.Config, logger logging.Logger, b backend, store *session.Store, in io.Reader, out io.Writer) *App {
	return &App{
		config: c,
		logger: logger.With("module", "cli"),
		store:  store,
		users:  services.NewUserService(b, store),
		tasks:  services.NewTaskService(b, store),
		reader: bufio.NewReader(in),
		out:    out,
		now:    time.Now,
	}
}

// Run restores the persisted session, starts the session watcher and
// blocks in the REPL until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	if a.db != nil {
		defer a.db.Close()
	}

	a.store.Restore(ctx)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartSessionWatcher(watchCtx, a.config.WatchInterval)

	a.Root(ctx)
}

func (a *App) println(args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

// prompter is the writer handed to input helpers. Prompts share the
// output lock with the watcher.
func (a *App) prompter() io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		a.outMu.Lock()
		defer a.outMu.Unlock()
		return a.out.Write(p)
	})
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

// StartSessionWatcher checks the session every interval and tells the
// user when the token has run out. The store does the actual logout as
// part of Check.
func (a *App) StartSessionWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkSession(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// checkSession is one watcher tick. It reports whether this tick ended
// the session. A logout done elsewhere, including an expiry noticed by a
// command, is not announced.
func (a *App) checkSession(ctx context.Context) bool {
	if _, expired := a.store.Check(); !expired {
		return false
	}
	a.logger.Info(ctx, "session expired")
	a.println()
	a.println("Session expired. Please log in again.")
	return true
}
