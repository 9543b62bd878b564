package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIdP struct {
	srv         *httptest.Server
	tokenCalls  atomic.Int32
	groupsCalls atomic.Int32
	groupsBody  string
	tokenStatus int
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	f := &fakeIdP{
		tokenStatus: http.StatusOK,
		groupsBody:  `[{"id":"1","name":"ACME","path":"/customers/ACME"},{"id":"2","name":"staff"}]`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/dockly/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" ||
			r.PostForm.Get("client_id") != "svc" || r.PostForm.Get("client_secret") != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(f.tokenStatus)
		_, _ = w.Write([]byte(`{"access_token":"svc-token","expires_in":300}`))
	})
	mux.HandleFunc("/admin/realms/dockly/users/u-1/groups", func(w http.ResponseWriter, r *http.Request) {
		f.groupsCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer svc-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.groupsBody))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIdP) config() Config {
	return Config{
		Issuer:       f.srv.URL + "/realms/dockly",
		ClientID:     "svc",
		ClientSecret: "s3cret",
		Timeout:      time.Second,
	}
}

func TestUserGroups(t *testing.T) {
	idp := newFakeIdP(t)
	c := New(idp.config(), nil, zap.NewNop().Sugar())

	groups := c.UserGroups(context.Background(), "u-1")
	assert.Equal(t, []string{"/customers/ACME", "/staff"}, groups)
	assert.EqualValues(t, 1, idp.tokenCalls.Load())
}

func TestUserGroupsFailsOpen(t *testing.T) {
	idp := newFakeIdP(t)
	log := zap.NewNop().Sugar()

	t.Run("missing secret", func(t *testing.T) {
		cfg := idp.config()
		cfg.ClientSecret = ""
		assert.Nil(t, New(cfg, nil, log).UserGroups(context.Background(), "u-1"))
	})
	t.Run("token rejected", func(t *testing.T) {
		cfg := idp.config()
		cfg.ClientSecret = "wrong"
		assert.Nil(t, New(cfg, nil, log).UserGroups(context.Background(), "u-1"))
	})
	t.Run("unknown user", func(t *testing.T) {
		assert.Nil(t, New(idp.config(), nil, log).UserGroups(context.Background(), "u-404"))
	})
	t.Run("issuer without realm", func(t *testing.T) {
		cfg := idp.config()
		cfg.Issuer = idp.srv.URL
		assert.Nil(t, New(cfg, nil, log).UserGroups(context.Background(), "u-1"))
	})
	t.Run("unreachable", func(t *testing.T) {
		cfg := idp.config()
		cfg.Issuer = "http://127.0.0.1:1/realms/dockly"
		cfg.Timeout = 100 * time.Millisecond
		assert.Nil(t, New(cfg, nil, log).UserGroups(context.Background(), "u-1"))
	})
	t.Run("garbage body", func(t *testing.T) {
		idp.groupsBody = `{"not":"a list"`
		defer func() { idp.groupsBody = `[]` }()
		assert.Nil(t, New(idp.config(), nil, log).UserGroups(context.Background(), "u-1"))
	})
	t.Run("nil client", func(t *testing.T) {
		var c *Client
		assert.Nil(t, c.UserGroups(context.Background(), "u-1"))
	})
}

func TestUserGroupsTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer slow.Close()

	c := New(Config{
		Issuer:       slow.URL + "/realms/dockly",
		ClientID:     "svc",
		ClientSecret: "s3cret",
		Timeout:      30 * time.Millisecond,
	}, nil, zap.NewNop().Sugar())

	start := time.Now()
	assert.Nil(t, c.UserGroups(context.Background(), "u-1"))
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestAdminBase(t *testing.T) {
	cases := []struct {
		issuer, override, want string
	}{
		{"https://kc.example.com/realms/dockly", "", "https://kc.example.com/admin/realms/dockly"},
		{"https://kc.example.com/auth/realms/dockly/", "", "https://kc.example.com/auth/admin/realms/dockly"},
		{"https://kc.example.com/realms/dockly", "https://admin.example.com/realms/dockly/", "https://admin.example.com/realms/dockly"},
		{"https://login.example.com", "", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AdminBase(tc.issuer, tc.override), tc.issuer)
	}
}

func TestMask(t *testing.T) {
	in := `{"access_token":"eyJabc.def","refresh_token":"r1","token_type":"Bearer"} Authorization: Bearer eyJabc.def client_secret=s3cret&grant_type=client_credentials`
	out := Mask(in)
	assert.NotContains(t, out, "eyJabc.def")
	assert.NotContains(t, out, "r1")
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, `"access_token":"***"`)
	assert.Contains(t, out, "Bearer ***")
	assert.Contains(t, out, "grant_type=client_credentials")
}

func TestRedisTokenCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	idp := newFakeIdP(t)
	c := New(idp.config(), NewRedisTokenCache(rdb), zap.NewNop().Sugar())

	require.NotNil(t, c.UserGroups(context.Background(), "u-1"))
	require.NotNil(t, c.UserGroups(context.Background(), "u-1"))
	assert.EqualValues(t, 1, idp.tokenCalls.Load())
	assert.EqualValues(t, 2, idp.groupsCalls.Load())

	key := "directory:svc-token:" + idp.config().Issuer + ":svc"
	v, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "svc-token", v)
	assert.Equal(t, 270*time.Second, mr.TTL(key))

	// expired cache entry forces a fresh exchange
	mr.FastForward(271 * time.Second)
	require.NotNil(t, c.UserGroups(context.Background(), "u-1"))
	assert.EqualValues(t, 2, idp.tokenCalls.Load())
}

func TestRedisTokenCacheDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	idp := newFakeIdP(t)
	c := New(idp.config(), NewRedisTokenCache(rdb), zap.NewNop().Sugar())
	assert.NotNil(t, c.UserGroups(context.Background(), "u-1"))
}

func TestNewRedisTokenCacheNil(t *testing.T) {
	assert.Nil(t, NewRedisTokenCache(nil))
}
