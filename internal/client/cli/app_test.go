package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/api"
	"github.com/dmitrijs2005/taskdesk/internal/client/api/apitest"
	"github.com/dmitrijs2005/taskdesk/internal/client/config"
	"github.com/dmitrijs2005/taskdesk/internal/client/identity"
	"github.com/dmitrijs2005/taskdesk/internal/client/session"
	"github.com/dmitrijs2005/taskdesk/internal/client/storage"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

// syncBuffer is a bytes.Buffer safe for the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// stubPasswords makes getPassword return pws in order, then empty ones.
func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := getPassword
	var mu sync.Mutex
	getPassword = func(io.Writer) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(pws) == 0 {
			return []byte{}, nil
		}
		pw := []byte(pws[0])
		pws = pws[1:]
		return pw, nil
	}
	t.Cleanup(func() { getPassword = orig })
}

type harness struct {
	srv             *apitest.Server
	admin, sup, emp api.User
	creds           *session.SQLCredentialStore
	client          *api.Client
	store           *session.Store
	app             *App
	out             *syncBuffer
	storeOpts       []session.Option
}

func newHarness(t *testing.T, opts ...session.Option) *harness {
	t.Helper()

	srv := apitest.NewServer(t)
	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{
		srv:       srv,
		admin:     srv.AddUser("Ada", "ada@example.com", "adapw", identity.RoleAdmin),
		sup:       srv.AddUser("Sam", "sam@example.com", "sampw", identity.RoleSupervisor),
		emp:       srv.AddUser("Eve", "eve@example.com", "evepw", identity.RoleEmployee),
		creds:     session.NewSQLCredentialStore(db),
		out:       &syncBuffer{},
		storeOpts: opts,
	}
	h.restart(t)
	return h
}

// restart builds a fresh client, store and app over the same database,
// as a new process would.
func (h *harness) restart(t *testing.T) {
	t.Helper()
	h.client = h.srv.NewClient(t)
	h.store = session.NewStore(h.client, h.creds, logging.Discard(), h.storeOpts...)
	h.client.SetTokenSource(h.store)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	h.app = newApp(cfg, logging.Discard(), h.client, h.store, strings.NewReader(""), h.out)
	h.app.creds = h.creds
	h.store.Restore(context.Background())
}

// run feeds lines to the REPL and returns what it printed.
func (h *harness) run(lines ...string) string {
	h.out.Reset()
	h.app.reader = bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	h.app.Root(context.Background())
	return h.out.String()
}

func (h *harness) login(t *testing.T, u api.User, password string) {
	t.Helper()
	stubPasswords(t, password)
	out := h.run("login", u.Email)
	require.Contains(t, out, "Welcome, "+u.Name)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}
