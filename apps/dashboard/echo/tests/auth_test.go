package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core/lms"
)

func TestHome(t *testing.T) {
	f := setup(t)
	rec := f.serve(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo Admin!", rec.Body.String())
}

func TestLogin(t *testing.T) {
	f := setup(t)
	f.fake.AddUser(admin, adminPassword)

	tests := []httpTest{
		{
			name:     "empty",
			method:   http.MethodPost,
			path:     "/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "this field is required", "password": "this field is required"}`),
		},
		{
			name:     "invalid email",
			method:   http.MethodPost,
			path:     "/login",
			body:     []byte(`{"email": "admin", "password": "pwd"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "email must be a valid email address"}`),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/login",
			body:     []byte(`{"email": "admin@masomo.cd", "password": "wrong"}`),
			wantCode: http.StatusUnauthorized,
			wantData: errBody(t, "No active account found with the given credentials"),
		},
		{
			name:     "malformed body",
			method:   http.MethodPost,
			path:     "/login",
			body:     []byte(`{"email": `),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, f, "")
		})
	}

	t.Run("success", func(t *testing.T) {
		rec := f.serve(http.MethodPost, "/login", "", []byte(`{"email": " Admin@Masomo.CD ", "password": "correct horse"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var data struct {
			User     lms.User `json:"user"`
			Redirect string   `json:"redirect"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
		assert.Equal(t, admin.Email, data.User.Email)
		assert.Equal(t, "/dashboard", data.Redirect)
		assert.NotEmpty(t, sessionCookie(rec))
		assert.Len(t, f.logger.Level("info"), 1)
	})
}

func TestLoginPage(t *testing.T) {
	f := setup(t)

	rec := f.serve(http.MethodGet, "/login", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"app": "Masomo Admin"}`, rec.Body.String())

	sid := f.signIn(t)
	rec = f.serve(http.MethodGet, "/login", sid)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestGuard(t *testing.T) {
	f := setup(t)
	sid := f.signIn(t)

	tests := []struct {
		name         string
		sid          string
		wantCode     int
		wantLocation string
	}{
		{name: "no cookie", sid: "", wantCode: http.StatusFound, wantLocation: "/login"},
		{name: "unknown session", sid: uuid.NewString(), wantCode: http.StatusFound, wantLocation: "/login"},
		{name: "malformed cookie", sid: "not-a-uuid", wantCode: http.StatusFound, wantLocation: "/login"},
		{name: "signed in", sid: sid, wantCode: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.serve(http.MethodGet, "/categories", tc.sid)
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantLocation, rec.Header().Get("Location"))
			if tc.wantCode == http.StatusFound {
				assert.Empty(t, rec.Body.String(), "redirects carry no message")
			}
		})
	}
}

func TestGuard_refreshesExpiringSession(t *testing.T) {
	f := setup(t)
	f.fake.AccessTTL = time.Minute // within the refresh margin
	sid := f.signIn(t)
	f.fake.AccessTTL = time.Hour

	rec := f.serve(http.MethodGet, "/categories", sid)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, f.fake.RequestsTo(http.MethodPost, "auth/refresh/"), 1)

	rec = f.serve(http.MethodGet, "/categories", sid)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.fake.RequestsTo(http.MethodPost, "auth/refresh/"), 1, "the refreshed token is kept in the session")
}

func TestSessionExpiredRedirectsToLogin(t *testing.T) {
	f := setup(t)
	sid := f.signIn(t)
	f.fake.Fail(http.MethodGet, "lms/categories/", http.StatusUnauthorized, 0)
	f.fake.Fail(http.MethodPost, "auth/refresh/", http.StatusUnauthorized, 0)

	rec := f.serve(http.MethodGet, "/categories", sid)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = f.serve(http.MethodGet, "/login", sid)
	assert.Equal(t, http.StatusOK, rec.Code, "the session was cleared")
}

func TestLogout(t *testing.T) {
	f := setup(t)
	sid := f.signIn(t)

	rec := f.serve(http.MethodPost, "/logout", sid)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.serve(http.MethodGet, "/categories", sid)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestForgotPassword(t *testing.T) {
	f := setup(t)

	tests := []httpTest{
		{
			name:     "invalid email",
			method:   http.MethodPost,
			path:     "/forgot-password",
			body:     []byte(`{"email": "nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "email must be a valid email address"}`),
		},
		{
			name:     "valid",
			method:   http.MethodPost,
			path:     "/forgot-password",
			body:     []byte(`{"email": "Admin@Masomo.cd"}`),
			wantCode: http.StatusNoContent,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, f, "")
		})
	}
	assert.Equal(t, []string{"admin@masomo.cd"}, f.fake.ForgottenEmails())
}

func TestResetPassword(t *testing.T) {
	f := setup(t)

	tests := []httpTest{
		{
			name:     "passwords differ",
			method:   http.MethodPost,
			path:     "/reset-password",
			body:     []byte(`{"uid": "MQ", "token": "reset-token", "password": "new password", "password_confirm": "other password"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password_confirm": "password_confirm must be equal to Password"}`),
		},
		{
			name:     "invalid token",
			method:   http.MethodPost,
			path:     "/reset-password",
			body:     []byte(`{"uid": "MQ", "token": "stale", "password": "new password", "password_confirm": "new password"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"token": "Invalid or expired token."}`),
		},
		{
			name:     "valid",
			method:   http.MethodPost,
			path:     "/reset-password",
			body:     []byte(`{"uid": "MQ", "token": "reset-token", "password": "new password", "password_confirm": "new password"}`),
			wantCode: http.StatusNoContent,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, f, "")
		})
	}
}
