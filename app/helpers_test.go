package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"bitwise74/todo-api/config"
	"bitwise74/todo-api/db/dbtest"
	"bitwise74/todo-api/internal"
	"bitwise74/todo-api/pkg/security"
	"bitwise74/todo-api/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const strongPassword = "correct-horse-battery"

func init() {
	gin.SetMode(gin.TestMode)
}

type mailbox struct {
	mu    sync.Mutex
	links map[string]string
}

func (m *mailbox) Send(_ context.Context, _, to string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.links[to] = data["Link"].(string)
	return nil
}

// link returns the path and query of the last link mailed to addr
func (m *mailbox) link(t *testing.T, addr string) string {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.links[addr]
	require.True(t, ok, "no mail sent to %s", addr)

	u, err := url.Parse(raw)
	require.NoError(t, err)

	return u.RequestURI()
}

type testApp struct {
	router *gin.Engine
	deps   *internal.Deps
	mail   *mailbox
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := &config.Config{
		App:  config.App{Env: "local", LogLevel: "info"},
		Host: config.Host{Port: 8080, Domain: "localhost", CORSOrigins: []string{"http://localhost:5173"}},
		JWT:  config.JWT{Secret: "test-secret", AccessTTL: time.Hour, RefreshTTL: 2 * time.Hour},
		Tokens: config.Tokens{
			ActivationTTL: time.Hour,
			ResetTTL:      30 * time.Minute,
			CleanupAfter:  time.Hour,
		},
		Accounts: config.Accounts{UnverifiedTTL: 24 * time.Hour},
		Storage:  config.Storage{Type: "local", LocalDir: t.TempDir(), PublicURL: "/media"},
		Upload:   config.Upload{MaxImageSize: 1 << 20},
		Security: config.Security{RateLimit: 1000, BodyLimit: 1 << 20},
		Tasks:    config.Tasks{PageSize: 7},
	}

	images, err := storage.NewLocal(cfg.Storage.LocalDir, cfg.Storage.PublicURL)
	require.NoError(t, err)

	blacklist := security.NewMemoryBlacklist()
	t.Cleanup(func() { blacklist.Close() })

	mail := &mailbox{links: map[string]string{}}
	hasher := &security.ArgonHash{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	d := internal.NewDeps(cfg, dbtest.New(t), hasher, blacklist, mail, images)

	router, err := NewRouter(d)
	require.NoError(t, err)

	return &testApp{router: router, deps: d, mail: mail}
}

func (a *testApp) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) form(t *testing.T, path string, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(t *testing.T, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// account registers and activates email, then logs in
func (a *testApp) account(t *testing.T, email string) (access, refresh string) {
	t.Helper()

	w := a.do(t, http.MethodPost, "/accounts/register", gin.H{
		"email": email, "password": strongPassword, "password1": strongPassword,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodGet, a.mail.link(t, email), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/accounts/token", gin.H{"email": email, "password": strongPassword}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pair struct{ Access, Refresh string }
	decode(t, w, &pair)

	return pair.Access, pair.Refresh
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
