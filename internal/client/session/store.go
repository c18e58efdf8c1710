package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/identity"
	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
)

// Store is safe for concurrent use. State changes are committed whole
// under a lock, the last commit wins.
type Store struct {
	gw     Gateway
	creds  CredentialStore
	logger logging.Logger

	now           func() time.Time
	decode        func(string) (identity.Identity, error)
	enforceExpiry bool

	// persistMu orders durable writes with the in-memory commit that
	// goes with them.
	persistMu sync.Mutex

	mu      sync.RWMutex
	token   string
	id      *identity.Identity
	loading bool

	ready     chan struct{}
	readyOnce sync.Once
}

type Option func(*Store)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithExpiryEnforcement controls whether an expired identity ends the
// session. Enabled by default.
func WithExpiryEnforcement(on bool) Option {
	return func(s *Store) { s.enforceExpiry = on }
}

// WithDecoder replaces identity.Decode.
func WithDecoder(decode func(string) (identity.Identity, error)) Option {
	return func(s *Store) { s.decode = decode }
}

// NewStore returns a store in the loading state. Call Restore once the
// program starts.
func NewStore(gw Gateway, creds CredentialStore, logger logging.Logger, opts ...Option) *Store {
	s := &Store{
		gw:            gw,
		creds:         creds,
		logger:        logger.With("module", "session"),
		now:           time.Now,
		decode:        identity.Decode,
		enforceExpiry: true,
		loading:       true,
		ready:         make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ready is closed when the first Restore has finished.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Restore rebuilds the session from the durable credential. A credential
// that does not decode, or that has expired, is evicted. Restore never
// fails; storage errors are logged and leave the session signed out.
func (s *Store) Restore(ctx context.Context) {
	defer s.finishLoading()

	token, err := s.creds.Load(ctx)
	switch {
	case errors.Is(err, common.ErrorNotFound) || (err == nil && token == ""):
		s.commit("", nil)
		return
	case err != nil:
		s.logger.Error(ctx, "failed to read stored credential", "error", err.Error())
		s.commit("", nil)
		return
	}

	id, err := s.decode(token)
	if err != nil {
		s.logger.Warn(ctx, "stored credential does not decode, discarding", "error", err.Error())
		s.evict(ctx)
		s.commit("", nil)
		return
	}

	if s.enforceExpiry && id.Expired(s.now()) {
		s.logger.Info(ctx, "stored credential has expired, discarding", "expiry", id.Expiry)
		s.evict(ctx)
		s.commit("", nil)
		return
	}

	s.commit(token, &id)
	s.logger.Info(ctx, "session restored", "user", id.Email, "role", id.Role.String())
}

// Login authenticates against the gateway. It reports whether the session
// is now authenticated. On failure the in-memory session is cleared but
// the durable credential is left alone.
func (s *Store) Login(ctx context.Context, c Credentials) bool {
	token, err := s.gw.Login(ctx, c.Email, string(c.Password))
	if err != nil {
		s.logger.Info(ctx, "login rejected", "email", c.Email, "error", err.Error())
		s.commit("", nil)
		return false
	}

	id, err := s.decode(token)
	if err != nil {
		s.logger.Warn(ctx, "login returned an undecodable credential", "error", err.Error())
		s.commit("", nil)
		return false
	}

	if s.enforceExpiry && id.Expired(s.now()) {
		s.logger.Warn(ctx, "login returned an expired credential", "expiry", id.Expiry)
		s.commit("", nil)
		return false
	}

	s.persistMu.Lock()
	s.commit(token, &id)
	if err := s.creds.Save(ctx, token); err != nil {
		s.logger.Error(ctx, "failed to persist credential", "error", err.Error())
	}
	s.persistMu.Unlock()

	s.logger.Info(ctx, "logged in", "user", id.Email, "role", id.Role.String())
	return true
}

// Logout clears the session and evicts the durable credential.
func (s *Store) Logout(ctx context.Context) {
	s.persistMu.Lock()
	s.commit("", nil)
	s.evict(ctx)
	s.persistMu.Unlock()
	s.logger.Info(ctx, "logged out")
}

// Current returns a snapshot. With expiry enforcement on, an expired
// session is logged out first and the snapshot is unauthenticated.
func (s *Store) Current() Session {
	snap, _ := s.Check()
	return snap
}

// Check is Current that also reports whether this call ended the session
// because its credential expired.
func (s *Store) Check() (Session, bool) {
	s.mu.RLock()
	snap := s.snapshotLocked()
	s.mu.RUnlock()

	if !s.enforceExpiry || snap.Identity == nil || !snap.Identity.Expired(s.now()) {
		return snap, false
	}
	return s.expire(snap)
}

// expire ends the session only if it still holds the credential seen in
// snap. A login committed after snap was taken is kept.
func (s *Store) expire(snap Session) (Session, bool) {
	ctx := context.Background()

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	if s.token != snap.Credential {
		cur := s.snapshotLocked()
		s.mu.Unlock()
		return cur, false
	}
	s.token, s.id = "", nil
	cur := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info(ctx, "session expired", "user", snap.Identity.Email)
	s.evict(ctx)
	return cur, true
}

// Token returns the current credential, or "" when signed out.
func (s *Store) Token() string {
	return s.Current().Credential
}

func (s *Store) snapshotLocked() Session {
	snap := Session{
		Credential:    s.token,
		Authenticated: s.token != "" && s.id != nil,
		Loading:       s.loading,
	}
	if s.id != nil {
		id := *s.id
		snap.Identity = &id
	}
	return snap
}

func (s *Store) commit(token string, id *identity.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.id = token, id
}

func (s *Store) finishLoading() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Store) evict(ctx context.Context) {
	if err := s.creds.Evict(ctx); err != nil {
		s.logger.Error(ctx, "failed to evict stored credential", "error", err.Error())
	}
}
