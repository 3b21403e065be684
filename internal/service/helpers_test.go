package service

import (
	"context"
	"io"
	"net/url"
	"sync"
	"testing"
	"time"

	"bitwise74/todo-api/db/dbtest"
	"bitwise74/todo-api/internal/model"
	"bitwise74/todo-api/pkg/security"
	"bitwise74/todo-api/pkg/validators"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const strongPassword = "correct-horse-battery"

type sentMail struct {
	template string
	to       string
	data     map[string]any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, template, to string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.sent = append(f.sent, sentMail{template: template, to: to, data: data})
	return nil
}

// lastToken pulls the raw token out of the link of the last mail
func (f *fakeNotifier) lastToken(t *testing.T) string {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.sent, "no mail was sent")

	u, err := url.Parse(f.sent[len(f.sent)-1].data["Link"].(string))
	require.NoError(t, err)

	return u.Query().Get("token")
}

type memImages struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemImages() *memImages {
	return &memImages{objects: map[string][]byte{}}
}

func (m *memImages) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.objects[key] = b
	m.mu.Unlock()

	return nil
}

func (m *memImages) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.objects, k)
	}

	return nil
}

func (m *memImages) URL(key string) string {
	return "/media/" + key
}

func (m *memImages) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.objects[key]
	return ok
}

type env struct {
	db        *gorm.DB
	hasher    *security.ArgonHash
	signer    *security.Signer
	blacklist *security.MemoryBlacklist
	notifier  *fakeNotifier
	images    *memImages

	gateway   *Gateway
	lifecycle *Lifecycle
	profiles  *Profiles
	tasks     *Tasks
	cleaner   *Cleaner
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		db:        dbtest.New(t),
		hasher:    &security.ArgonHash{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		signer:    security.NewSigner("test-secret", time.Hour, 2*time.Hour),
		blacklist: security.NewMemoryBlacklist(),
		notifier:  &fakeNotifier{},
		images:    newMemImages(),
	}
	t.Cleanup(func() { e.blacklist.Close() })

	e.gateway = NewGateway(e.db, e.hasher, e.signer, e.blacklist, false)
	e.lifecycle = NewLifecycle(e.db, e.hasher, validators.DefaultPasswordPolicy(), e.notifier, LifecycleOptions{
		BaseURL:       "http://localhost:8080",
		ActivationTTL: 24 * time.Hour,
		ResetTTL:      30 * time.Minute,
		CleanupAfter:  24 * time.Hour,
		UnverifiedTTL: 7 * 24 * time.Hour,
	})
	e.profiles = NewProfiles(e.db, e.images, 1<<10)
	e.tasks = NewTasks(e.db)
	e.cleaner = NewCleaner(e.db, e.images)

	return e
}

// seedAccount stores an account and its profile directly
func (e *env) seedAccount(t *testing.T, id, email string, verified bool) *model.Account {
	t.Helper()

	hash, err := e.hasher.Hash(strongPassword)
	require.NoError(t, err)

	acc := &model.Account{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		IsVerified:   verified,
		Profile:      model.Profile{AccountID: id},
	}
	require.NoError(t, e.db.Create(acc).Error)

	return acc
}
