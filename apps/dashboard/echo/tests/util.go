package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/masomo-admin/apps/dashboard/echo"
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/lms"
	"github.com/trezcool/masomo-admin/storage/inmem"
	testutil "github.com/trezcool/masomo-admin/tests"
)

const (
	cookieName    = "masomo_sid"
	adminPassword = "correct horse"
)

var admin = lms.User{Email: "admin@masomo.cd", FirstName: "Ada", LastName: "Lovelace", IsSuperuser: true}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
	extra    interface{}
}

type fixture struct {
	app     Server
	fake    *testutil.FakeLMS
	storage *inmem.Storage
	logger  *testutil.RecordingLogger
	user    lms.User // set by signIn
}

func newConfig(apiURL string) *core.Config {
	return &core.Config{
		Env:      "TEST",
		TestMode: true,
		AppName:  "Masomo Admin",
		API:      core.APIConfig{BaseURL: apiURL, Timeout: 5 * time.Second},
		Guard:    core.GuardConfig{Timeout: 5 * time.Second, LoginPath: "/login", HomePath: "/dashboard"},
		Server:   core.ServerConfig{CookieName: cookieName, MaxUploadSize: 1 << 20},
	}
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		fake:    testutil.NewFakeLMS(t),
		storage: inmem.New(),
		logger:  new(testutil.RecordingLogger),
	}
	f.app = NewServer(
		&Options{
			DisableReqLogs: true,
			Config:         newConfig(f.fake.URL()),
			Storage:        f.storage,
			Logger:         f.logger,
		},
	)
	return f
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func newRequest(method, path, sid string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: sid})
	}
	return req, httptest.NewRecorder()
}

func (f *fixture) serve(method, path, sid string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, sid, data...)
	f.app.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c.Value
		}
	}
	return ""
}

// signIn signs the admin in through the login endpoint and returns the session id.
func (f *fixture) signIn(t *testing.T) string {
	t.Helper()
	f.user = f.fake.AddUser(admin, adminPassword)
	rec := f.serve(http.MethodPost, "/login", "", mustJSON(t, lms.SignIn{Email: admin.Email, Password: adminPassword}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sid := sessionCookie(rec)
	require.NotEmpty(t, sid)
	return sid
}

// run serves tc with the session `sid` and checks the status and, if set, the JSON body.
func (tc httpTest) run(t *testing.T, f *fixture, sid string) *httptest.ResponseRecorder {
	t.Helper()
	rec := f.serve(tc.method, tc.path, sid, tc.body)
	if assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String()) && tc.wantData != nil {
		assert.JSONEq(t, string(tc.wantData), rec.Body.String())
	}
	return rec
}

func errBody(t *testing.T, msg string) []byte {
	return mustJSON(t, httpErr{Error: msg})
}
