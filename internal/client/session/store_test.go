package session

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/api"
	"github.com/dmitrijs2005/taskdesk/internal/client/api/apitest"
	"github.com/dmitrijs2005/taskdesk/internal/client/identity"
	"github.com/dmitrijs2005/taskdesk/internal/client/storage"
	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func makeToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func adminClaims(exp time.Time) jwt.MapClaims {
	c := jwt.MapClaims{
		identity.ClaimNameIdentifier: "7",
		identity.ClaimName:           "Ada",
		identity.ClaimEmail:          "ada@example.com",
		identity.ClaimRole:           "Admin",
	}
	if !exp.IsZero() {
		c[identity.ClaimExpiry] = exp.Unix()
	}
	return c
}

func setupCreds(t *testing.T) (*SQLCredentialStore, *sql.DB) {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLCredentialStore(db), db
}

func fixedGateway(token string, err error) GatewayFunc {
	return func(context.Context, string, string) (string, error) { return token, err }
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newStore(gw Gateway, creds CredentialStore, opts ...Option) *Store {
	return NewStore(gw, creds, logging.Discard(), opts...)
}

func stored(t *testing.T, creds CredentialStore) (string, bool) {
	t.Helper()
	tok, err := creds.Load(context.Background())
	if errors.Is(err, common.ErrorNotFound) {
		return "", false
	}
	require.NoError(t, err)
	return tok, true
}

func TestStore_InitialState(t *testing.T) {
	creds, _ := setupCreds(t)
	s := newStore(fixedGateway("", nil), creds)

	snap := s.Current()
	assert.True(t, snap.Loading)
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.Identity)

	select {
	case <-s.Ready():
		t.Fatal("ready before restore")
	default:
	}

	s.Restore(context.Background())

	select {
	case <-s.Ready():
	default:
		t.Fatal("not ready after restore")
	}
	assert.False(t, s.Current().Loading)
}

func TestStore_LoginRoundTrip(t *testing.T) {
	creds, _ := setupCreds(t)
	exp := epoch.Add(time.Hour)
	token := makeToken(t, adminClaims(exp))
	s := newStore(fixedGateway(token, nil), creds, WithClock(func() time.Time { return epoch }))
	ctx := context.Background()
	s.Restore(ctx)

	require.True(t, s.Login(ctx, Credentials{Email: "ada@example.com", Password: []byte("pw")}))

	snap := s.Current()
	require.True(t, snap.Authenticated)
	assert.Equal(t, token, snap.Credential)
	assert.Equal(t, token, s.Token())

	want := identity.Identity{
		ID:       "7",
		Name:     "Ada",
		Email:    "ada@example.com",
		Role:     identity.RoleAdmin,
		RoleName: "Admin",
		Expiry:   time.Unix(exp.Unix(), 0),
	}
	if diff := cmp.Diff(want, *snap.Identity); diff != "" {
		t.Errorf("identity mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, identity.RoleAdmin, snap.Role())

	got, ok := stored(t, creds)
	require.True(t, ok)
	assert.Equal(t, token, got)

	savedAt, err := creds.SavedAt(ctx)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), savedAt, time.Minute)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	creds, _ := setupCreds(t)
	s := newStore(fixedGateway(makeToken(t, adminClaims(time.Time{})), nil), creds)
	require.True(t, s.Login(context.Background(), Credentials{}))

	snap := s.Current()
	snap.Identity.Role = identity.RoleEmployee
	assert.Equal(t, identity.RoleAdmin, s.Current().Role())
}

func TestStore_RestoreIdempotent(t *testing.T) {
	creds, _ := setupCreds(t)
	ctx := context.Background()
	token := makeToken(t, adminClaims(time.Time{}))
	require.NoError(t, creds.Save(ctx, token))

	s := newStore(fixedGateway("", nil), creds)
	s.Restore(ctx)
	first := s.Current()
	s.Restore(ctx)
	second := s.Current()

	require.True(t, first.Authenticated)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second restore changed the session (-first +second):\n%s", diff)
	}
}

func TestStore_RestoreNothingStored(t *testing.T) {
	creds, _ := setupCreds(t)
	s := newStore(fixedGateway("", nil), creds)
	s.Restore(context.Background())

	snap := s.Current()
	assert.False(t, snap.Authenticated)
	assert.Empty(t, snap.Credential)
	assert.False(t, snap.Loading)
}

func TestStore_RestoreUndecodableEvicts(t *testing.T) {
	for _, raw := range []string{"garbage", "a.b", "a.!!!.c", "a.bnVsbA.c"} {
		t.Run(raw, func(t *testing.T) {
			creds, _ := setupCreds(t)
			ctx := context.Background()
			require.NoError(t, creds.Save(ctx, raw))

			s := newStore(fixedGateway("", nil), creds)
			s.Restore(ctx)

			assert.False(t, s.Current().Authenticated)
			_, ok := stored(t, creds)
			assert.False(t, ok, "undecodable credential must be evicted")
		})
	}
}

func TestStore_MissingClaimsArePermissive(t *testing.T) {
	creds, _ := setupCreds(t)
	token := makeToken(t, jwt.MapClaims{identity.ClaimRole: "Supervisor"})
	s := newStore(fixedGateway(token, nil), creds)

	require.True(t, s.Login(context.Background(), Credentials{}))

	snap := s.Current()
	require.True(t, snap.Authenticated)
	assert.Equal(t, identity.RoleSupervisor, snap.Identity.Role)
	assert.Empty(t, snap.Identity.ID)
	assert.Empty(t, snap.Identity.Email)
	assert.False(t, snap.Identity.HasExpiry())
}

func TestStore_LoginFailureLeavesStorage(t *testing.T) {
	creds, _ := setupCreds(t)
	ctx := context.Background()
	previous := makeToken(t, adminClaims(time.Time{}))
	require.NoError(t, creds.Save(ctx, previous))

	tests := []struct {
		name string
		gw   Gateway
	}{
		{"gateway error", fixedGateway("", &api.Error{StatusCode: 401, Err: api.ErrUnauthorized})},
		{"unavailable", fixedGateway("", api.ErrUnavailable)},
		{"undecodable token", fixedGateway("not-a-token", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(tt.gw, creds)
			s.Restore(ctx)
			require.True(t, s.Current().Authenticated)

			assert.False(t, s.Login(ctx, Credentials{Email: "x@example.com", Password: []byte("bad")}))

			snap := s.Current()
			assert.False(t, snap.Authenticated)
			assert.Nil(t, snap.Identity)
			assert.Empty(t, snap.Credential)

			got, ok := stored(t, creds)
			require.True(t, ok)
			assert.Equal(t, previous, got)
		})
	}
}

func TestStore_Logout(t *testing.T) {
	creds, _ := setupCreds(t)
	ctx := context.Background()
	s := newStore(fixedGateway(makeToken(t, adminClaims(time.Time{})), nil), creds)
	s.Restore(ctx)
	require.True(t, s.Login(ctx, Credentials{}))

	s.Logout(ctx)

	snap := s.Current()
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.Identity)
	_, ok := stored(t, creds)
	assert.False(t, ok)
	_, err := creds.SavedAt(ctx)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	s2 := newStore(fixedGateway("", nil), creds)
	s2.Restore(ctx)
	assert.False(t, s2.Current().Authenticated)
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: epoch}
	token := makeToken(t, adminClaims(epoch.Add(time.Minute)))

	t.Run("current logs out once expired", func(t *testing.T) {
		creds, _ := setupCreds(t)
		s := newStore(fixedGateway(token, nil), creds, WithClock(clk.Now))
		require.True(t, s.Login(ctx, Credentials{}))
		assert.True(t, s.Current().Authenticated)

		clk.Advance(time.Minute)
		defer clk.Advance(-time.Minute)

		assert.False(t, s.Current().Authenticated)
		assert.Empty(t, s.Token())
		_, ok := stored(t, creds)
		assert.False(t, ok)
	})

	t.Run("check reports the expiry once", func(t *testing.T) {
		creds, _ := setupCreds(t)
		s := newStore(fixedGateway(token, nil), creds, WithClock(clk.Now))
		require.True(t, s.Login(ctx, Credentials{}))

		_, expired := s.Check()
		assert.False(t, expired)

		clk.Advance(time.Minute)
		defer clk.Advance(-time.Minute)

		snap, expired := s.Check()
		assert.True(t, expired)
		assert.False(t, snap.Authenticated)

		_, expired = s.Check()
		assert.False(t, expired, "already signed out")
	})

	t.Run("restore evicts an expired credential", func(t *testing.T) {
		creds, _ := setupCreds(t)
		require.NoError(t, creds.Save(ctx, token))

		s := newStore(fixedGateway("", nil), creds, WithClock(func() time.Time { return epoch.Add(time.Hour) }))
		s.Restore(ctx)

		assert.False(t, s.Current().Authenticated)
		_, ok := stored(t, creds)
		assert.False(t, ok)
	})

	t.Run("login rejects an already expired credential", func(t *testing.T) {
		creds, _ := setupCreds(t)
		s := newStore(fixedGateway(token, nil), creds, WithClock(func() time.Time { return epoch.Add(time.Hour) }))

		assert.False(t, s.Login(ctx, Credentials{}))
		_, ok := stored(t, creds)
		assert.False(t, ok)
	})

	t.Run("enforcement off keeps the session", func(t *testing.T) {
		creds, _ := setupCreds(t)
		require.NoError(t, creds.Save(ctx, token))

		s := newStore(fixedGateway("", nil), creds,
			WithExpiryEnforcement(false),
			WithClock(func() time.Time { return epoch.Add(time.Hour) }))
		s.Restore(ctx)

		snap := s.Current()
		assert.True(t, snap.Authenticated)
		assert.True(t, snap.Identity.Expired(epoch.Add(time.Hour)))
	})
}

func TestStore_ExpiryKeepsNewerLogin(t *testing.T) {
	ctx := context.Background()
	creds, _ := setupCreds(t)

	old := makeToken(t, adminClaims(epoch.Add(time.Second)))
	fresh := makeToken(t, adminClaims(epoch.Add(2*time.Hour)))
	tokens := []string{old, fresh}
	gw := GatewayFunc(func(context.Context, string, string) (string, error) {
		tok := tokens[0]
		tokens = tokens[1:]
		return tok, nil
	})

	now := epoch
	var beforeCheck func()
	var s *Store
	s = newStore(gw, creds, WithClock(func() time.Time {
		if hook := beforeCheck; hook != nil {
			beforeCheck = nil
			hook()
		}
		return now
	}))

	require.True(t, s.Login(ctx, Credentials{}))

	// A second login lands while Check is deciding the old token expired.
	now = epoch.Add(time.Minute)
	beforeCheck = func() { require.True(t, s.Login(ctx, Credentials{})) }

	snap, expired := s.Check()

	assert.False(t, expired)
	assert.True(t, snap.Authenticated)
	assert.Equal(t, fresh, snap.Credential)
	assert.Equal(t, fresh, s.Token())
	got, ok := stored(t, creds)
	require.True(t, ok)
	assert.Equal(t, fresh, got)
}

type brokenCreds struct {
	loadErr, saveErr, evictErr error
	evicted                    int
}

func (b *brokenCreds) Load(context.Context) (string, error) { return "", b.loadErr }
func (b *brokenCreds) Save(context.Context, string) error   { return b.saveErr }
func (b *brokenCreds) Evict(context.Context) error {
	b.evicted++
	return b.evictErr
}

func TestStore_StorageErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk on fire")

	t.Run("load error reads as signed out", func(t *testing.T) {
		creds := &brokenCreds{loadErr: boom}
		s := newStore(fixedGateway("", nil), creds)
		s.Restore(ctx)

		assert.False(t, s.Current().Authenticated)
		assert.False(t, s.Current().Loading)
		assert.Zero(t, creds.evicted)
	})

	t.Run("save error keeps the in-memory session", func(t *testing.T) {
		creds := &brokenCreds{saveErr: boom, evictErr: boom}
		s := newStore(fixedGateway(makeToken(t, adminClaims(time.Time{})), nil), creds)

		assert.True(t, s.Login(ctx, Credentials{}))
		assert.True(t, s.Current().Authenticated)

		s.Logout(ctx)
		assert.False(t, s.Current().Authenticated)
		assert.Equal(t, 1, creds.evicted)
	})
}

func TestStore_CustomDecoder(t *testing.T) {
	creds, _ := setupCreds(t)
	decode := func(string) (identity.Identity, error) {
		return identity.Identity{ID: "42", Role: identity.RoleEmployee}, nil
	}
	s := newStore(fixedGateway("opaque", nil), creds, WithDecoder(decode))

	require.True(t, s.Login(context.Background(), Credentials{}))
	assert.Equal(t, "42", s.Current().Identity.ID)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	creds, _ := setupCreds(t)
	token := makeToken(t, adminClaims(time.Time{}))
	s := newStore(fixedGateway(token, nil), creds)
	ctx := context.Background()
	s.Restore(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				snap := s.Current()
				if snap.Authenticated != (snap.Credential != "" && snap.Identity != nil) {
					t.Error("torn snapshot")
				}
			}
		}()
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				s.Login(ctx, Credentials{})
			} else {
				s.Logout(ctx)
			}
		}(i)
	}
	wg.Wait()
}

func TestStore_AgainstBackend(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser("Sam", "sam@example.com", "pw", identity.RoleSupervisor)

	client := srv.NewClient(t)
	creds, _ := setupCreds(t)
	s := newStore(client, creds)
	client.SetTokenSource(s)
	ctx := context.Background()
	s.Restore(ctx)

	assert.False(t, s.Login(ctx, Credentials{Email: "sam@example.com", Password: []byte("nope")}))
	require.True(t, s.Login(ctx, Credentials{Email: "sam@example.com", Password: []byte("pw")}))

	snap := s.Current()
	assert.Equal(t, identity.RoleSupervisor, snap.Role())
	assert.Equal(t, "Sam", snap.Identity.Name)

	_, err := client.ListTasks(ctx)
	require.NoError(t, err)
	_, _, h := srv.LastRequest()
	assert.Equal(t, "Bearer "+snap.Credential, h.Get("Authorization"))
}
