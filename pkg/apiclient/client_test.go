package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"branchops-backend/pkg/authstate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is an httptest-backed stand-in for the server, just enough surface
// for the Backend contract.
type fakeAPI struct {
	mu       sync.Mutex
	token    string
	user     authstate.User
	profiles map[string]authstate.Profile
	revoked  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		token:    "test-token",
		user:     authstate.User{ID: "u-1", Email: "a@corp.test"},
		profiles: map[string]authstate.Profile{},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.revoked && r.Header.Get("Authorization") == "Bearer "+f.token
}

// requireMethod restricts a handler to one HTTP method; Go 1.21's ServeMux
// has no method-aware patterns, so this mirrors the 1.22+ "METHOD /path"
// registration semantics.
func requireMethod(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/login", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "correct-horse" {
			writeErr(w, http.StatusUnauthorized, "invalid email or password", "INVALID_CREDENTIALS")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": f.token, "user": f.user})
	}))

	mux.HandleFunc("/api/auth/session", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeErr(w, http.StatusUnauthorized, "invalid or expired token", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": f.user})
	}))

	mux.HandleFunc("/api/auth/logout", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeErr(w, http.StatusUnauthorized, "invalid or expired token", "")
			return
		}
		f.mu.Lock()
		f.revoked = true
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))

	mux.HandleFunc("/api/profiles/", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeErr(w, http.StatusUnauthorized, "invalid or expired token", "")
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/profiles/")
		f.mu.Lock()
		p, ok := f.profiles[id]
		f.mu.Unlock()
		if !ok {
			writeErr(w, http.StatusNotFound, "profile not found", "PROFILE_NOT_FOUND")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}))

	mux.HandleFunc("/api/profiles", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeErr(w, http.StatusUnauthorized, "invalid or expired token", "")
			return
		}
		var p authstate.Profile
		_ = json.NewDecoder(r.Body).Decode(&p)
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, exists := f.profiles[p.ID]; exists {
			writeErr(w, http.StatusConflict, "profile already exists", "PROFILE_EXISTS")
			return
		}
		f.profiles[p.ID] = p
		writeJSON(w, http.StatusCreated, p)
	}))

	return mux
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return New(srv.URL, opts...)
}

func TestGetSession_NoTokenMeansNoSession(t *testing.T) {
	c := newTestClient(t, newFakeAPI())

	sess, err := c.GetSession(context.Background())

	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestGetSession_ValidToken(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, WithToken("test-token"))

	sess, err := c.GetSession(context.Background())

	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "u-1", sess.User.ID)
}

func TestGetSession_RevokedTokenIsNoSession(t *testing.T) {
	api := newFakeAPI()
	api.revoked = true
	c := newTestClient(t, api, WithToken("test-token"))

	sess, err := c.GetSession(context.Background())

	require.NoError(t, err, "an expired session is not a transport error")
	assert.Nil(t, sess)
	assert.Empty(t, c.Token(), "dead token must be dropped")
}

func TestSignIn(t *testing.T) {
	t.Run("success stores token", func(t *testing.T) {
		c := newTestClient(t, newFakeAPI())

		sess, err := c.SignIn(context.Background(), "a@corp.test", "correct-horse")

		require.NoError(t, err)
		assert.Equal(t, "test-token", sess.Token)
		assert.Equal(t, "test-token", c.Token())
	})

	t.Run("bad credentials map to sentinel", func(t *testing.T) {
		c := newTestClient(t, newFakeAPI())

		_, err := c.SignIn(context.Background(), "a@corp.test", "wrong")

		assert.ErrorIs(t, err, authstate.ErrInvalidCredentials)
		assert.Empty(t, c.Token())
	})
}

func TestFetchProfile_NotFoundSentinel(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, WithToken("test-token"))

	_, err := c.FetchProfile(context.Background(), "u-1")

	assert.ErrorIs(t, err, authstate.ErrProfileNotFound)
}

func TestCreateProfile_ConflictSentinel(t *testing.T) {
	api := newFakeAPI()
	api.profiles["u-1"] = authstate.Profile{ID: "u-1", Role: authstate.RoleAdmin}
	c := newTestClient(t, api, WithToken("test-token"))

	err := c.CreateProfile(context.Background(), &authstate.Profile{ID: "u-1", Role: authstate.RoleAdmin})

	assert.ErrorIs(t, err, authstate.ErrProfileExists)
}

func TestSignOut_DropsTokenAndRevokes(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, WithToken("test-token"))

	require.NoError(t, c.SignOut(context.Background()))

	assert.Empty(t, c.Token())
	assert.True(t, api.revoked)
}

// The full pipeline: controller bootstrap over HTTP, get-or-create included.
func TestControllerBootstrapOverHTTP(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, WithToken("test-token"))

	ctrl := authstate.New(c)
	ctrl.Start(context.Background())

	snap := ctrl.Snapshot()
	assert.Equal(t, authstate.ShowContent, authstate.Decide(snap))
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "u-1", snap.Profile.ID)
	assert.Equal(t, authstate.RoleAdmin, snap.Profile.Role)

	// the profile was created server-side exactly once
	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Len(t, api.profiles, 1)
}
