package app

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"bitwise74/todo-api/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterActivateAndLogin(t *testing.T) {
	a := newTestApp(t)

	w := a.do(t, http.MethodPost, "/accounts/register", gin.H{
		"email": "ada@example.com", "password": strongPassword, "password1": strongPassword,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Email  string `json:"email"`
		UserID string `json:"user_id"`
	}
	decode(t, w, &created)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Len(t, created.UserID, 16)

	w = a.do(t, http.MethodPost, "/accounts/token", gin.H{"email": "ada@example.com", "password": strongPassword}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "user is not verified")

	link := a.mail.link(t, "ada@example.com")
	assert.True(t, strings.HasPrefix(link, "/accounts/activation/confirm?token="))

	w = a.do(t, http.MethodGet, link, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	// Links work once
	w = a.do(t, http.MethodGet, link, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, "/accounts/token", gin.H{"email": "ada@example.com", "password": "nope-nope-nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/accounts/token", gin.H{"email": "ada@example.com", "password": strongPassword}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var pair struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
		Email   string `json:"email"`
		UserID  string `json:"user_id"`
	}
	decode(t, w, &pair)
	assert.Equal(t, created.UserID, pair.UserID)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
}

func TestRegisterErrors(t *testing.T) {
	a := newTestApp(t)
	a.account(t, "taken@example.com")

	tests := []struct {
		name  string
		body  gin.H
		field string
		msg   string
	}{
		{"missing confirmation", gin.H{"email": "a@example.com", "password": strongPassword}, "password1", "This field is required."},
		{"mismatch", gin.H{"email": "a@example.com", "password": strongPassword, "password1": "something-else-1"}, "detail", "passwords don't match"},
		{"weak", gin.H{"email": "a@example.com", "password": "12345678", "password1": "12345678"}, "password", ""},
		{"bad email", gin.H{"email": "nope", "password": strongPassword, "password1": strongPassword}, "email", ""},
		{"taken", gin.H{"email": "taken@example.com", "password": strongPassword, "password1": strongPassword}, "email", "user with this email already exists."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(t, http.MethodPost, "/accounts/register", tt.body, "")
			require.Equal(t, http.StatusBadRequest, w.Code)

			var res struct {
				Errors    map[string][]string `json:"errors"`
				RequestID string              `json:"requestID"`
			}
			decode(t, w, &res)

			require.Contains(t, res.Errors, tt.field)
			assert.NotEmpty(t, res.RequestID)
			if tt.msg != "" {
				assert.Contains(t, res.Errors[tt.field], tt.msg)
			}
		})
	}
}

func TestTokenRefreshVerifyBlacklist(t *testing.T) {
	a := newTestApp(t)
	access, refresh := a.account(t, "ada@example.com")

	w := a.do(t, http.MethodPost, "/accounts/token/verify", gin.H{"token": access}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodPost, "/accounts/token/verify", gin.H{"token": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/accounts/token/refresh", gin.H{"refresh": refresh}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access"`)

	w = a.do(t, http.MethodPost, "/accounts/token/refresh", gin.H{"refresh": access}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/accounts/token/blacklist", gin.H{"refresh": refresh}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodPost, "/accounts/token/refresh", gin.H{"refresh": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActivationResend(t *testing.T) {
	a := newTestApp(t)

	w := a.do(t, http.MethodPost, "/accounts/register", gin.H{
		"email": "ada@example.com", "password": strongPassword, "password1": strongPassword,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	first := a.mail.link(t, "ada@example.com")

	w = a.do(t, http.MethodPost, "/accounts/activation/resend", gin.H{"email": "ada@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	second := a.mail.link(t, "ada@example.com")
	assert.NotEqual(t, first, second)

	// The older link was revoked by the resend
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, first, nil, "").Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, second, nil, "").Code)

	w = a.do(t, http.MethodPost, "/accounts/activation/resend", gin.H{"email": "ada@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, "/accounts/activation/resend", gin.H{"email": "ghost@example.com"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "User with this email doesn't exist")
}

func TestOversizedBodyWithoutLength(t *testing.T) {
	a := newTestApp(t)

	body := `{"email":"ada@example.com","password":"` + strings.Repeat("x", 2<<20) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/accounts/token", io.NopCloser(strings.NewReader(body)))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "exceeds limit")
}

func TestActivationPageForBrowsers(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/accounts/activation/confirm?token=bogus", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Activation failed")
}

func TestPasswordReset(t *testing.T) {
	a := newTestApp(t)
	a.account(t, "ada@example.com")

	w := a.do(t, http.MethodPost, "/accounts/reset-password", gin.H{"email": "ghost@example.com"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodPost, "/accounts/reset-password", gin.H{"email": "ada@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	link, err := url.Parse(a.mail.link(t, "ada@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "/accounts/reset-password/confirm", link.Path)
	token := link.Query().Get("token")

	w = a.do(t, http.MethodPost, "/accounts/reset-password/confirm", gin.H{
		"token": token, "password": "brand-new-secret-9", "password1": "brand-new-secret-9",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/accounts/reset-password/confirm", gin.H{
		"token": token, "password": "another-secret-99", "password1": "another-secret-99",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, "/accounts/token", gin.H{"email": "ada@example.com", "password": "brand-new-secret-9"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChangePassword(t *testing.T) {
	a := newTestApp(t)
	access, _ := a.account(t, "ada@example.com")

	w := a.do(t, http.MethodPut, "/accounts/change-password", gin.H{
		"old_password": "wrong-password", "new_password": "brand-new-secret-9", "new_password1": "brand-new-secret-9",
	}, access)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "old_password")

	w = a.do(t, http.MethodPut, "/accounts/change-password", gin.H{
		"old_password": strongPassword, "new_password": "brand-new-secret-9", "new_password1": "brand-new-secret-9",
	}, access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/accounts/token", gin.H{"email": "ada@example.com", "password": "brand-new-secret-9"}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodPut, "/accounts/change-password", gin.H{}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfile(t *testing.T) {
	a := newTestApp(t)
	access, _ := a.account(t, "ada@example.com")

	w := a.do(t, http.MethodGet, "/accounts/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPatch, "/accounts/profile", gin.H{
		"first_name": "Ada", "description": "likes lists", "email": "evil@example.com",
	}, access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodGet, "/accounts/profile", nil, access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"email": "ada@example.com",
		"first_name": "Ada",
		"last_name": "",
		"image": "",
		"description": "likes lists"
	}`, w.Body.String())

	w = a.do(t, http.MethodPatch, "/accounts/profile", gin.H{"last_name": strings.Repeat("x", 151)}, access)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (a *testApp) patchProfileForm(t *testing.T, access string, fields map[string]string, name string, image []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	if image != nil {
		fw, err := mw.CreateFormFile("image", name)
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/accounts/profile", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+access)

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

var tinyPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestProfileImageUpload(t *testing.T) {
	a := newTestApp(t)
	access, _ := a.account(t, "ada@example.com")

	w := a.patchProfileForm(t, access, map[string]string{"last_name": "Lovelace"}, "me.png", tinyPNG)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var prof struct {
		LastName string `json:"last_name"`
		Image    string `json:"image"`
	}
	decode(t, w, &prof)
	assert.Equal(t, "Lovelace", prof.LastName)
	require.True(t, strings.HasPrefix(prof.Image, "/media/profiles/"), prof.Image)

	w = a.get(t, prof.Image)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tinyPNG, w.Body.Bytes())
}

func TestProfileRejectedImageChangesNothing(t *testing.T) {
	a := newTestApp(t)
	access, _ := a.account(t, "ada@example.com")

	w := a.patchProfileForm(t, access, map[string]string{"first_name": "Mallory"}, "me.png", []byte("just some text"))
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"image"`)

	w = a.do(t, http.MethodGet, "/accounts/profile", nil, access)
	require.Equal(t, http.StatusOK, w.Code)

	var prof struct {
		FirstName string `json:"first_name"`
		Image     string `json:"image"`
	}
	decode(t, w, &prof)
	assert.Empty(t, prof.FirstName)
	assert.Empty(t, prof.Image)
}

func TestTaskAPI(t *testing.T) {
	a := newTestApp(t)
	owner, _ := a.account(t, "owner@example.com")
	other, _ := a.account(t, "other@example.com")

	w := a.do(t, http.MethodPost, "/todo/api/v1/tasks", gin.H{"title": "Buy milk"}, owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var task model.Task
	decode(t, w, &task)
	assert.Equal(t, "Buy milk", task.Title)
	assert.False(t, task.Complete)

	w = a.do(t, http.MethodPost, "/todo/api/v1/tasks", gin.H{"title": "   "}, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"title"`)

	w = a.do(t, http.MethodGet, "/todo/api/v1/tasks", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Count   int          `json:"count"`
		Results []model.Task `json:"results"`
	}
	decode(t, w, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, task.ID, list.Results[0].ID)

	path := fmt.Sprintf("/todo/api/v1/tasks/%d", task.ID)

	// Someone else's task doesn't exist as far as they can tell
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, path, nil, other).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPatch, path, gin.H{"title": "mine"}, other).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPost, path+"/complete", nil, other).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodDelete, path, nil, other).Code)

	for range 2 {
		w = a.do(t, http.MethodPost, path+"/complete", nil, owner)
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &task)
		assert.True(t, task.Complete)
	}

	w = a.do(t, http.MethodPatch, path, gin.H{"title": "Buy oat milk", "complete": false}, owner)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &task)
	assert.Equal(t, "Buy oat milk", task.Title)
	assert.False(t, task.Complete)

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, path, nil, owner).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, path, nil, owner).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/todo/api/v1/tasks/abc", nil, owner).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/todo/api/v1/tasks", nil, "").Code)
}

func TestTaskAPIPaging(t *testing.T) {
	a := newTestApp(t)
	access, _ := a.account(t, "ada@example.com")

	for i := range 10 {
		w := a.do(t, http.MethodPost, "/todo/api/v1/tasks", gin.H{"title": fmt.Sprintf("task %d", i)}, access)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := a.do(t, http.MethodGet, "/todo/api/v1/tasks?page=last", nil, access)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Count      int          `json:"count"`
		Results    []model.Task `json:"results"`
		Pagination struct {
			Pages   []int `json:"pages"`
			Current int   `json:"current"`
		} `json:"pagination"`
	}
	decode(t, w, &res)
	assert.Equal(t, 10, res.Count)
	assert.Len(t, res.Results, 3)
	assert.Equal(t, 2, res.Pagination.Current)
	assert.Equal(t, []int{1, 2}, res.Pagination.Pages)

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/todo/api/v1/tasks?page=3", nil, access).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/todo/api/v1/tasks?page=x", nil, access).Code)
}

func TestHeartbeatAndMetrics(t *testing.T) {
	a := newTestApp(t)

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/heartbeat", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "todo_http_requests_total")
}
