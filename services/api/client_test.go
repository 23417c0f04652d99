package apisvc

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/lms"
	"github.com/trezcool/masomo-admin/core/session"
	"github.com/trezcool/masomo-admin/storage/inmem"
	testutil "github.com/trezcool/masomo-admin/tests"
)

const (
	routeCategories = "lms/categories/"
	routeRefresh    = "auth/refresh/"
)

var admin = lms.User{Email: "admin@masomo.cd", FirstName: "Ada", IsSuperuser: true}

func newClient(t *testing.T, fake *testutil.FakeLMS) (*Client, *session.Store) {
	t.Helper()
	sess, err := session.NewStore(context.Background(), inmem.New())
	require.NoError(t, err)
	c, err := New(fake.URL(), sess)
	require.NoError(t, err)
	return c, sess
}

// expiredClient returns a client whose access token is expired but whose refresh token is valid.
func expiredClient(t *testing.T, fake *testutil.FakeLMS) (*Client, *session.Store) {
	t.Helper()
	c, sess := newClient(t, fake)
	tokens := fake.IssueTokens(t, fake.AddUser(admin, "secret"))
	tokens.Access = testutil.MintToken(t, time.Now().Add(-time.Minute))
	require.NoError(t, sess.SetAuth(context.Background(), tokens))
	return c, sess
}

func TestNew(t *testing.T) {
	for _, base := range []string{"", "api.masomo.cd", "://bad"} {
		_, err := New(base, nil)
		assert.Error(t, err, "base %q", base)
	}
	c, err := New("https://api.masomo.cd/api", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.masomo.cd/api/", c.base.String())
}

func TestClient_SignInAndBearer(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeLMS(t)
	fake.AddUser(admin, "secret")
	c, sess := newClient(t, fake)

	_, err := c.SignIn(ctx, lms.SignIn{Email: " Admin@Masomo.cd ", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, "No active account found with the given credentials", core.ErrorMessage(err))
	assert.Empty(t, fake.RequestsTo(http.MethodPost, routeRefresh), "sign in is never refreshed")

	_, err = c.SignIn(ctx, lms.SignIn{Email: "not-an-email", Password: "secret"})
	require.Error(t, err)
	assert.IsType(t, &core.ValidationError{}, errors.Cause(err))

	tokens, err := c.SignIn(ctx, lms.SignIn{Email: " Admin@Masomo.cd ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, tokens.Access, sess.Token())
	assert.Equal(t, tokens.Refresh, sess.RefreshToken())
	assert.True(t, sess.IsAuthenticated())
	assert.True(t, sess.IsSuperuser())

	_, err = c.Categories(ctx)
	require.NoError(t, err)
	reqs := fake.RequestsTo(http.MethodGet, routeCategories)
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer "+tokens.Access, reqs[0].Authorization)
}

func TestClient_RefreshesAndRetriesOnce(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeLMS(t)
	fake.AddCategory(lms.Category{Name: "Maths"})
	c, sess := expiredClient(t, fake)
	expired := sess.Token()

	cats, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)

	reqs := fake.RequestsTo(http.MethodGet, routeCategories)
	require.Len(t, reqs, 2)
	assert.Equal(t, "Bearer "+expired, reqs[0].Authorization)
	assert.Equal(t, "Bearer "+sess.Token(), reqs[1].Authorization)
	assert.NotEqual(t, expired, sess.Token(), "refreshed token persisted")
	assert.Len(t, fake.RequestsTo(http.MethodPost, routeRefresh), 1)
}

func TestClient_NeverRetriesTwice(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeLMS(t)
	c, _ := expiredClient(t, fake)
	fake.Fail(http.MethodGet, routeCategories, http.StatusUnauthorized, 0)

	_, err := c.Categories(ctx)
	require.Error(t, err)
	apiErr, ok := errors.Cause(err).(*core.APIError)
	require.True(t, ok, "error is %T", errors.Cause(err))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Len(t, fake.RequestsTo(http.MethodGet, routeCategories), 2)
	assert.Len(t, fake.RequestsTo(http.MethodPost, routeRefresh), 1)
}

func TestClient_RefreshFailureClearsSession(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh rejected", func(t *testing.T) {
		fake := testutil.NewFakeLMS(t)
		c, sess := expiredClient(t, fake)
		fake.Fail(http.MethodPost, routeRefresh, http.StatusUnauthorized, 1)

		_, err := c.Categories(ctx)
		assert.Equal(t, ErrSessionExpired, errors.Cause(err))
		assert.Empty(t, sess.Token())
		assert.Empty(t, sess.RefreshToken())
		assert.Nil(t, sess.User())
		assert.Len(t, fake.RequestsTo(http.MethodGet, routeCategories), 1)
	})

	t.Run("no refresh token", func(t *testing.T) {
		fake := testutil.NewFakeLMS(t)
		c, sess := newClient(t, fake)
		require.NoError(t, sess.SetToken(ctx, testutil.MintToken(t, time.Now().Add(-time.Minute))))

		_, err := c.Categories(ctx)
		assert.Equal(t, ErrSessionExpired, errors.Cause(err))
		assert.Empty(t, sess.Token())
		assert.Empty(t, fake.RequestsTo(http.MethodPost, routeRefresh))
	})
}

func TestClient_ConcurrentUnauthorizedRefreshOnce(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeLMS(t)
	c, _ := expiredClient(t, fake)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Categories(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, fake.RequestsTo(http.MethodPost, routeRefresh), 1)
}

func TestClient_ErrorMessages(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeLMS(t)
	c, _ := newClient(t, fake)

	err := c.ResetPassword(ctx, lms.ResetPassword{UID: "MQ", Token: "bad", Password: "p4ssw0rd!", PasswordConfirm: "p4ssw0rd!"})
	require.Error(t, err)
	assert.Equal(t, "token: Invalid or expired token.", core.ErrorMessage(err))

	err = c.ResetPassword(ctx, lms.ResetPassword{UID: "MQ", Token: "bad", Password: "p4ssw0rd!", PasswordConfirm: "other"})
	require.Error(t, err)
	assert.Equal(t, "password_confirm: password_confirm must be equal to Password", core.ErrorMessage(err))

	require.NoError(t, c.ResetPassword(ctx, lms.ResetPassword{UID: "MQ", Token: fake.ResetToken, Password: "p4ssw0rd!", PasswordConfirm: "p4ssw0rd!"}))

	fake.FailWith(http.MethodPost, "auth/forgot-password/", http.StatusServiceUnavailable, "", 1)
	err = c.ForgotPassword(ctx, lms.ForgotPassword{Email: "admin@masomo.cd"})
	require.Error(t, err)
	assert.Equal(t, core.GenericErrorMessage, core.ErrorMessage(err))

	require.NoError(t, c.ForgotPassword(ctx, lms.ForgotPassword{Email: "Admin@masomo.cd"}))
	assert.Equal(t, []string{"admin@masomo.cd"}, fake.ForgottenEmails())
}

func TestClient_Pagination(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeLMS(t)
	c, sess := newClient(t, fake)
	require.NoError(t, sess.SetAuth(ctx, fake.IssueTokens(t, fake.AddUser(admin, "secret"))))

	fake.SetPageSize(2)
	for i := 0; i < 5; i++ {
		fake.AddLesson(lms.Lesson{Title: "Lesson", Course: 1, Order: i})
	}
	fake.AddCourse(lms.Course{Title: "Algebra", Category: 1})

	lessons, err := c.Lessons(ctx)
	require.NoError(t, err)
	assert.Len(t, lessons, 5)
	assert.Len(t, fake.RequestsTo(http.MethodGet, "lms/lessons/"), 3)

	page, err := c.LessonsPage(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Count)
	assert.Len(t, page.Results, 2)
	assert.True(t, page.HasNext())

	courses, err := c.Courses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Algebra", courses[0].Title)

	cats, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.NotNil(t, cats)
	assert.Empty(t, cats)
}

func TestClient_Resources(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeLMS(t)
	c, sess := newClient(t, fake)
	require.NoError(t, sess.SetAuth(ctx, fake.IssueTokens(t, fake.AddUser(admin, "secret"))))

	cat, err := c.CreateCategory(ctx, lms.NewCategory{Name: "  Sciences Naturelles "})
	require.NoError(t, err)
	assert.Equal(t, "Sciences Naturelles", cat.Name)
	assert.Equal(t, "sciences-naturelles", cat.Slug)

	_, err = c.CreateCategory(ctx, lms.NewCategory{Name: " "})
	assert.Equal(t, "name: this field cannot be blank", core.ErrorMessage(err))

	name := "Biologie"
	cat, err = c.UpdateCategory(ctx, cat.ID, lms.UpdateCategory{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Biologie", cat.Name)
	assert.Equal(t, "sciences-naturelles", cat.Slug, "patch sends provided fields only")

	course, err := c.CreateCourse(ctx, lms.NewCourse{Title: "Cells", Category: cat.ID})
	require.NoError(t, err)
	published := true
	course, err = c.UpdateCourse(ctx, course.ID, lms.UpdateCourse{IsPublished: &published})
	require.NoError(t, err)
	assert.True(t, course.IsPublished)
	assert.Equal(t, "Cells", course.Title)

	lesson, err := c.CreateLesson(ctx, lms.NewLesson{Title: "The cell", Course: course.ID})
	require.NoError(t, err)
	order := 3
	lesson, err = c.UpdateLesson(ctx, lesson.ID, lms.UpdateLesson{Order: &order})
	require.NoError(t, err)
	assert.Equal(t, 3, lesson.Order)

	require.NoError(t, c.DeleteLesson(ctx, lesson.ID))
	require.NoError(t, c.DeleteCourse(ctx, course.ID))
	require.NoError(t, c.DeleteCategory(ctx, cat.ID))
	assert.Empty(t, fake.Lessons())
	assert.Empty(t, fake.Courses())
	assert.Empty(t, fake.Categories())

	err = c.DeleteCategory(ctx, cat.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestClient_UploadVideo(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeLMS(t)
	c, _ := expiredClient(t, fake) // the upload is re-sent after a refresh

	data := bytes.Repeat([]byte("masomo"), 50_000)
	var progress []int
	v, err := c.UploadVideo(ctx,
		lms.VideoUpload{Title: " Intro ", Filename: "intro.mp4", Size: int64(len(data))},
		bytes.NewReader(data),
		func(pct int) { progress = append(progress, pct) },
	)
	require.NoError(t, err)
	assert.Equal(t, "Intro", v.Title)
	assert.True(t, strings.HasSuffix(v.File, "intro.mp4"))
	assert.Equal(t, data, fake.Upload(v.ID))

	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])
	for _, pct := range progress {
		assert.True(t, pct >= 0 && pct <= 100, "progress %d", pct)
	}

	videos, err := c.Videos(ctx)
	require.NoError(t, err)
	assert.Len(t, videos, 1)
	require.NoError(t, c.DeleteVideo(ctx, v.ID))
	assert.Empty(t, fake.Videos())

	_, err = c.UploadVideo(ctx, lms.VideoUpload{Title: "Empty", Filename: "empty.mp4"}, bytes.NewReader(nil), nil)
	assert.Equal(t, "size: size must be greater than 0", core.ErrorMessage(err))
}
