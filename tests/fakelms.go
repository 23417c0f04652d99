package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-admin/core/lms"
)

const apiPrefix = "/api/"

// Request is one request received by a FakeLMS.
type Request struct {
	Method        string
	Route         string // matched route relative to the API root, eg. "lms/problems/:id/"
	Path          string // eg. "lms/problems/7/"
	Query         url.Values
	Body          []byte
	Authorization string
}

type failure struct {
	status int
	detail string
	times  int // <= 0: always
}

type fakeUser struct {
	user     lms.User
	password string
}

// FakeLMS is an in-memory fake of the LMS REST API served over httptest.
// Authenticated routes accept any unexpired token signed by MintToken.
type FakeLMS struct {
	Server *httptest.Server

	// AccessTTL is the lifetime of the access tokens issued by sign in and refresh.
	AccessTTL time.Duration
	// ResetToken is the only token reset-password accepts.
	ResetToken string

	mu         sync.Mutex
	pageSize   int
	nextID     int
	users      map[string]fakeUser
	refreshes  map[string]lms.User
	revoked    map[string]bool
	categories map[int]lms.Category
	courses    map[int]lms.Course
	lessons    map[int]lms.Lesson
	blocks     map[int]lms.ContentBlock
	problems   map[int]lms.Problem
	videos     map[int]lms.Video
	uploads    map[int][]byte
	forgotten  []string
	failures   map[string]*failure
	requests   []Request
}

// NewFakeLMS starts a FakeLMS closed at the end of the test.
func NewFakeLMS(t *testing.T) *FakeLMS {
	t.Helper()
	f := &FakeLMS{
		AccessTTL:  time.Hour,
		ResetToken: "reset-token",
		nextID:     1,
		users:      make(map[string]fakeUser),
		refreshes:  make(map[string]lms.User),
		revoked:    make(map[string]bool),
		categories: make(map[int]lms.Category),
		courses:    make(map[int]lms.Course),
		lessons:    make(map[int]lms.Lesson),
		blocks:     make(map[int]lms.ContentBlock),
		problems:   make(map[int]lms.Problem),
		videos:     make(map[int]lms.Video),
		uploads:    make(map[int][]byte),
		failures:   make(map[string]*failure),
	}
	f.Server = httptest.NewServer(f.router())
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the API base URL.
func (f *FakeLMS) URL() string {
	return f.Server.URL + apiPrefix
}

func (f *FakeLMS) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(f.record, f.inject)

	api := e.Group("/api")
	api.POST("/auth/signin/", f.signIn)
	api.POST("/auth/refresh/", f.refresh)
	api.POST("/auth/forgot-password/", f.forgotPassword)
	api.POST("/auth/reset-password/", f.resetPassword)

	g := api.Group("/lms", f.authenticate)
	g.GET("/categories/", f.listCategories)
	g.POST("/categories/", f.createCategory)
	g.PATCH("/categories/:id/", f.patchCategory)
	g.DELETE("/categories/:id/", f.deleteCategory)

	g.GET("/courses/", f.listCourses)
	g.POST("/courses/", f.createCourse)
	g.PATCH("/courses/:id/", f.patchCourse)
	g.DELETE("/courses/:id/", f.deleteCourse)

	g.GET("/lessons/", f.listLessons)
	g.POST("/lessons/", f.createLesson)
	g.PATCH("/lessons/:id/", f.patchLesson)
	g.DELETE("/lessons/:id/", f.deleteLesson)

	g.GET("/lesson-content-blocks/", f.listBlocks)
	g.POST("/lesson-content-blocks/", f.createBlock)
	g.POST("/lesson-content-blocks/reorder/", f.reorderBlocks)
	g.PUT("/lesson-content-blocks/:id/", f.replaceBlock)
	g.DELETE("/lesson-content-blocks/:id/", f.deleteBlock)

	g.POST("/problems/", f.createProblem)
	g.GET("/problems/:id/", f.getProblem)
	g.PUT("/problems/:id/", f.replaceProblem)
	g.DELETE("/problems/:id/", f.deleteProblem)

	g.GET("/videos/", f.listVideos)
	g.POST("/videos/", f.uploadVideo)
	g.DELETE("/videos/:id/", f.deleteVideo)
	return e
}

func route(c echo.Context) string {
	return strings.TrimPrefix(c.Path(), apiPrefix)
}

func (f *FakeLMS) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		var body []byte
		if req.Body != nil {
			body, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewReader(body))
		}
		f.mu.Lock()
		f.requests = append(f.requests, Request{
			Method:        req.Method,
			Route:         route(c),
			Path:          strings.TrimPrefix(req.URL.Path, apiPrefix),
			Query:         req.URL.Query(),
			Body:          body,
			Authorization: req.Header.Get(echo.HeaderAuthorization),
		})
		f.mu.Unlock()
		return next(c)
	}
}

func (f *FakeLMS) inject(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Method + " " + route(c)
		f.mu.Lock()
		fl, ok := f.failures[key]
		if ok && fl.times > 0 {
			fl.times--
			if fl.times == 0 {
				delete(f.failures, key)
			}
		}
		f.mu.Unlock()
		if ok {
			return detail(c, fl.status, fl.detail)
		}
		return next(c)
	}
}

func (f *FakeLMS) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		token := strings.TrimPrefix(auth, "Bearer ")
		if token == "" || token == auth {
			return detail(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
		}
		f.mu.Lock()
		revoked := f.revoked[token]
		f.mu.Unlock()
		if _, err := parseToken(token); err != nil || revoked {
			return detail(c, http.StatusUnauthorized, "Given token not valid for any token type")
		}
		return next(c)
	}
}

func detail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"detail": msg})
}

func fieldError(c echo.Context, field, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string][]string{field: {msg}})
}

func notFound(c echo.Context) error {
	return detail(c, http.StatusNotFound, "Not found.")
}

// Fail makes the next `times` requests to `method route` fail with `status`
// (every request when times <= 0). Routes are relative to the API root, eg. "lms/problems/:id/".
func (f *FakeLMS) Fail(method, route string, status, times int) {
	f.FailWith(method, route, status, http.StatusText(status), times)
}

func (f *FakeLMS) FailWith(method, route string, status int, detail string, times int) {
	f.mu.Lock()
	f.failures[method+" "+route] = &failure{status: status, detail: detail, times: times}
	f.mu.Unlock()
}

// Requests returns the received requests, in order.
func (f *FakeLMS) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// RequestsTo returns the received requests matching `method route`.
func (f *FakeLMS) RequestsTo(method, route string) []Request {
	var reqs []Request
	for _, r := range f.Requests() {
		if r.Method == method && r.Route == route {
			reqs = append(reqs, r)
		}
	}
	return reqs
}

func (f *FakeLMS) ResetRequests() {
	f.mu.Lock()
	f.requests = nil
	f.mu.Unlock()
}

// Revoke makes `token` rejected from now on.
func (f *FakeLMS) Revoke(token string) {
	f.mu.Lock()
	f.revoked[token] = true
	f.mu.Unlock()
}

// ForgottenEmails returns the emails a password reset was requested for.
func (f *FakeLMS) ForgottenEmails() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.forgotten...)
}

func (f *FakeLMS) id() int {
	id := f.nextID
	f.nextID++
	return id
}

// AddUser registers a user able to sign in with `password`.
func (f *FakeLMS) AddUser(u lms.User, password string) lms.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == 0 {
		u.ID = f.id()
	}
	f.users[strings.ToLower(u.Email)] = fakeUser{user: u, password: password}
	return u
}

// IssueTokens returns tokens as sign in would.
func (f *FakeLMS) IssueTokens(t *testing.T, u lms.User) lms.AuthTokens {
	t.Helper()
	tokens, err := f.issue(u)
	if err != nil {
		t.Fatalf("IssueTokens() failed: %v", err)
	}
	return tokens
}

func (f *FakeLMS) issue(u lms.User) (lms.AuthTokens, error) {
	access, err := mintToken(time.Now().Add(f.AccessTTL), strconv.Itoa(u.ID))
	if err != nil {
		return lms.AuthTokens{}, err
	}
	refresh, err := mintToken(time.Now().Add(24*time.Hour), strconv.Itoa(u.ID))
	if err != nil {
		return lms.AuthTokens{}, err
	}
	f.mu.Lock()
	f.refreshes[refresh] = u
	f.mu.Unlock()
	return lms.AuthTokens{Access: access, Refresh: refresh, User: u}, nil
}

func (f *FakeLMS) signIn(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	f.mu.Lock()
	u, ok := f.users[strings.ToLower(body.Email)]
	f.mu.Unlock()
	if !ok || u.password != body.Password {
		return detail(c, http.StatusUnauthorized, "No active account found with the given credentials")
	}
	tokens, err := f.issue(u.user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokens)
}

func (f *FakeLMS) refresh(c echo.Context) error {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := c.Bind(&body); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	f.mu.Lock()
	u, ok := f.refreshes[body.Refresh]
	f.mu.Unlock()
	if !ok {
		if _, err := parseToken(body.Refresh); err != nil || body.Refresh == "" {
			return detail(c, http.StatusUnauthorized, "Token is invalid or expired")
		}
	}
	access, err := mintToken(time.Now().Add(f.AccessTTL), strconv.Itoa(u.ID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"access": access})
}

func (f *FakeLMS) forgotPassword(c echo.Context) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&body); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	f.mu.Lock()
	f.forgotten = append(f.forgotten, body.Email)
	f.mu.Unlock()
	return detail(c, http.StatusOK, "Password reset e-mail has been sent.")
}

func (f *FakeLMS) resetPassword(c echo.Context) error {
	var body struct {
		UID      string `json:"uid"`
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	if body.Token != f.ResetToken {
		return fieldError(c, "token", "Invalid or expired token.")
	}
	return detail(c, http.StatusOK, "Password has been reset with the new password.")
}

func pathID(c echo.Context) int {
	id, _ := strconv.Atoi(c.Param("id"))
	return id
}

// patch overlays the JSON object `body` on `v`.
func patch[T any](v T, body []byte) (T, error) {
	base, err := json.Marshal(v)
	if err != nil {
		return v, err
	}
	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &merged); err != nil {
		return v, err
	}
	changes := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &changes); err != nil {
		return v, err
	}
	for k, val := range changes {
		if k != "id" {
			merged[k] = val
		}
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return v, err
	}
	var out T
	err = json.Unmarshal(data, &out)
	return out, err
}

func readBody(c echo.Context) ([]byte, error) {
	return io.ReadAll(c.Request().Body)
}

func sortedValues[T any](m map[int]T) []T {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	vals := make([]T, len(ids))
	for i, id := range ids {
		vals[i] = m[id]
	}
	return vals
}

// categories

func (f *FakeLMS) AddCategory(cat lms.Category) lms.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cat.ID == 0 {
		cat.ID = f.id()
	}
	f.categories[cat.ID] = cat
	return cat
}

func (f *FakeLMS) Categories() []lms.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedValues(f.categories)
}

func (f *FakeLMS) listCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, f.Categories())
}

func (f *FakeLMS) createCategory(c echo.Context) error {
	var cat lms.Category
	if err := c.Bind(&cat); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(cat.Name) == "" {
		return fieldError(c, "name", "This field may not be blank.")
	}
	cat.ID = 0
	return c.JSON(http.StatusCreated, f.AddCategory(cat))
}

func (f *FakeLMS) patchCategory(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cat, ok := f.categories[pathID(c)]
	if !ok {
		return notFound(c)
	}
	if cat, err = patch(cat, body); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	f.categories[cat.ID] = cat
	return c.JSON(http.StatusOK, cat)
}

func (f *FakeLMS) deleteCategory(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[pathID(c)]; !ok {
		return notFound(c)
	}
	delete(f.categories, pathID(c))
	return c.NoContent(http.StatusNoContent)
}

// courses are listed in a single page envelope

func (f *FakeLMS) AddCourse(course lms.Course) lms.Course {
	f.mu.Lock()
	defer f.mu.Unlock()
	if course.ID == 0 {
		course.ID = f.id()
	}
	f.courses[course.ID] = course
	return course
}

func (f *FakeLMS) Courses() []lms.Course {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedValues(f.courses)
}

func (f *FakeLMS) listCourses(c echo.Context) error {
	courses := f.Courses()
	return c.JSON(http.StatusOK, lms.Page[lms.Course]{Count: len(courses), Results: courses})
}

func (f *FakeLMS) createCourse(c echo.Context) error {
	var course lms.Course
	if err := c.Bind(&course); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(course.Title) == "" {
		return fieldError(c, "title", "This field may not be blank.")
	}
	course.ID = 0
	return c.JSON(http.StatusCreated, f.AddCourse(course))
}

func (f *FakeLMS) patchCourse(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	course, ok := f.courses[pathID(c)]
	if !ok {
		return notFound(c)
	}
	if course, err = patch(course, body); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	f.courses[course.ID] = course
	return c.JSON(http.StatusOK, course)
}

func (f *FakeLMS) deleteCourse(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.courses[pathID(c)]; !ok {
		return notFound(c)
	}
	delete(f.courses, pathID(c))
	return c.NoContent(http.StatusNoContent)
}

// lessons are paginated when PageSize > 0, listed as a bare array otherwise

func (f *FakeLMS) AddLesson(lesson lms.Lesson) lms.Lesson {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lesson.ID == 0 {
		lesson.ID = f.id()
	}
	f.lessons[lesson.ID] = lesson
	return lesson
}

func (f *FakeLMS) Lessons() []lms.Lesson {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedValues(f.lessons)
}

// SetPageSize paginates the lesson list by `n` lessons, or disables pagination when n <= 0.
func (f *FakeLMS) SetPageSize(n int) {
	f.mu.Lock()
	f.pageSize = n
	f.mu.Unlock()
}

func (f *FakeLMS) listLessons(c echo.Context) error {
	lessons := f.Lessons()
	f.mu.Lock()
	size := f.pageSize
	f.mu.Unlock()
	if size <= 0 {
		return c.JSON(http.StatusOK, lessons)
	}
	page := 1
	if p := c.QueryParam("page"); p != "" {
		var err error
		if page, err = strconv.Atoi(p); err != nil || page < 1 {
			return notFound(c)
		}
	}
	start := (page - 1) * size
	if start > 0 && start >= len(lessons) {
		return detail(c, http.StatusNotFound, "Invalid page.")
	}
	end := min(start+size, len(lessons))
	resp := lms.Page[lms.Lesson]{Count: len(lessons), Results: lessons[start:end]}
	if end < len(lessons) {
		next := fmt.Sprintf("%s%slms/lessons/?page=%d", f.Server.URL, apiPrefix, page+1)
		resp.Next = &next
	}
	if page > 1 {
		prev := fmt.Sprintf("%s%slms/lessons/?page=%d", f.Server.URL, apiPrefix, page-1)
		resp.Previous = &prev
	}
	return c.JSON(http.StatusOK, resp)
}

func (f *FakeLMS) createLesson(c echo.Context) error {
	var lesson lms.Lesson
	if err := c.Bind(&lesson); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(lesson.Title) == "" {
		return fieldError(c, "title", "This field may not be blank.")
	}
	lesson.ID = 0
	return c.JSON(http.StatusCreated, f.AddLesson(lesson))
}

func (f *FakeLMS) patchLesson(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lesson, ok := f.lessons[pathID(c)]
	if !ok {
		return notFound(c)
	}
	if lesson, err = patch(lesson, body); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	f.lessons[lesson.ID] = lesson
	return c.JSON(http.StatusOK, lesson)
}

func (f *FakeLMS) deleteLesson(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.lessons[pathID(c)]; !ok {
		return notFound(c)
	}
	delete(f.lessons, pathID(c))
	return c.NoContent(http.StatusNoContent)
}

// content blocks are listed by id, not by order

func (f *FakeLMS) AddBlock(b lms.ContentBlock) lms.ContentBlock {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == 0 {
		b.ID = f.id()
	}
	if b.Content == nil {
		b.Content = json.RawMessage(`{}`)
	}
	f.blocks[b.ID] = b
	return b
}

// Blocks returns the blocks of `lessonID` sorted by order.
func (f *FakeLMS) Blocks(lessonID int) []lms.ContentBlock {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lessonBlocks(lessonID, true)
}

func (f *FakeLMS) lessonBlocks(lessonID int, byOrder bool) []lms.ContentBlock {
	var blocks []lms.ContentBlock
	for _, b := range sortedValues(f.blocks) {
		if lessonID == 0 || b.Lesson == lessonID {
			blocks = append(blocks, b)
		}
	}
	if byOrder {
		sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Order < blocks[j].Order })
	}
	if blocks == nil {
		blocks = []lms.ContentBlock{}
	}
	return blocks
}

func (f *FakeLMS) listBlocks(c echo.Context) error {
	lessonID, _ := strconv.Atoi(c.QueryParam("lesson"))
	f.mu.Lock()
	defer f.mu.Unlock()
	return c.JSON(http.StatusOK, f.lessonBlocks(lessonID, false))
}

func (f *FakeLMS) checkBlock(c echo.Context, in lms.ContentBlockInput) error {
	if in.Lesson == 0 {
		return fieldError(c, "lesson", "This field is required.")
	}
	if in.BlockType == "" {
		return fieldError(c, "block_type", "This field is required.")
	}
	if in.BlockType == lms.BlockTypeProblem {
		if in.Problem == nil {
			return fieldError(c, "problem", "A problem block must reference a problem.")
		}
		if _, ok := f.problems[*in.Problem]; !ok {
			return fieldError(c, "problem", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *in.Problem))
		}
	}
	return nil
}

func (f *FakeLMS) createBlock(c echo.Context) error {
	var in lms.ContentBlockInput
	if err := c.Bind(&in); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkBlock(c, in); err != nil || c.Response().Committed {
		return err
	}
	b := lms.ContentBlock{
		ID:        f.id(),
		BlockType: in.BlockType,
		Content:   in.Content,
		Order:     in.Order,
		Lesson:    in.Lesson,
		Problem:   in.Problem,
	}
	f.blocks[b.ID] = b
	return c.JSON(http.StatusCreated, b)
}

func (f *FakeLMS) replaceBlock(c echo.Context) error {
	var in lms.ContentBlockInput
	if err := c.Bind(&in); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := pathID(c)
	if _, ok := f.blocks[id]; !ok {
		return notFound(c)
	}
	if err := f.checkBlock(c, in); err != nil || c.Response().Committed {
		return err
	}
	b := lms.ContentBlock{
		ID:        id,
		BlockType: in.BlockType,
		Content:   in.Content,
		Order:     in.Order,
		Lesson:    in.Lesson,
		Problem:   in.Problem,
	}
	f.blocks[id] = b
	return c.JSON(http.StatusOK, b)
}

func (f *FakeLMS) deleteBlock(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.blocks[pathID(c)]; !ok {
		return notFound(c)
	}
	delete(f.blocks, pathID(c))
	return c.NoContent(http.StatusNoContent)
}

func (f *FakeLMS) reorderBlocks(c echo.Context) error {
	var body struct {
		LessonID   int   `json:"lesson_id"`
		BlockOrder []int `json:"block_order"`
	}
	if err := c.Bind(&body); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range body.BlockOrder {
		if b, ok := f.blocks[id]; !ok || b.Lesson != body.LessonID {
			return fieldError(c, "block_order", fmt.Sprintf("Block %d does not belong to lesson %d.", id, body.LessonID))
		}
	}
	for i, id := range body.BlockOrder {
		b := f.blocks[id]
		b.Order = i
		f.blocks[id] = b
	}
	return detail(c, http.StatusOK, "Blocks reordered.")
}

// problems

func (f *FakeLMS) AddProblem(p lms.Problem) lms.Problem {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == 0 {
		p.ID = f.id()
	}
	f.problems[p.ID] = p
	return p
}

func (f *FakeLMS) Problems() []lms.Problem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedValues(f.problems)
}

func (f *FakeLMS) Problem(id int) (lms.Problem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.problems[id]
	return p, ok
}

func problemFrom(id int, in lms.ProblemInput) lms.Problem {
	return lms.Problem{
		ID:            id,
		Which:         in.Which,
		QuestionText:  in.QuestionText,
		QuestionType:  in.QuestionType,
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Explanation:   in.Explanation,
		XP:            in.XP,
		DiagramConfig: in.DiagramConfig,
	}
}

func (f *FakeLMS) createProblem(c echo.Context) error {
	var in lms.ProblemInput
	if err := c.Bind(&in); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(in.QuestionText) == "" {
		return fieldError(c, "question_text", "This field may not be blank.")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := problemFrom(f.id(), in)
	f.problems[p.ID] = p
	return c.JSON(http.StatusCreated, p)
}

func (f *FakeLMS) getProblem(c echo.Context) error {
	p, ok := f.Problem(pathID(c))
	if !ok {
		return notFound(c)
	}
	return c.JSON(http.StatusOK, p)
}

func (f *FakeLMS) replaceProblem(c echo.Context) error {
	var in lms.ProblemInput
	if err := c.Bind(&in); err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := pathID(c)
	if _, ok := f.problems[id]; !ok {
		return notFound(c)
	}
	p := problemFrom(id, in)
	f.problems[id] = p
	return c.JSON(http.StatusOK, p)
}

func (f *FakeLMS) deleteProblem(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.problems[pathID(c)]; !ok {
		return notFound(c)
	}
	delete(f.problems, pathID(c))
	return c.NoContent(http.StatusNoContent)
}

// videos

func (f *FakeLMS) AddVideo(v lms.Video) lms.Video {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v.ID == 0 {
		v.ID = f.id()
	}
	f.videos[v.ID] = v
	return v
}

func (f *FakeLMS) Videos() []lms.Video {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedValues(f.videos)
}

// Upload returns the uploaded bytes of video `id`.
func (f *FakeLMS) Upload(id int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads[id]
}

func (f *FakeLMS) listVideos(c echo.Context) error {
	return c.JSON(http.StatusOK, f.Videos())
}

func (f *FakeLMS) uploadVideo(c echo.Context) error {
	title := c.FormValue("title")
	fh, err := c.FormFile("file")
	if err != nil {
		return fieldError(c, "file", "No file was submitted.")
	}
	file, err := fh.Open()
	if err != nil {
		return err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	duration, _ := strconv.Atoi(c.FormValue("duration"))

	f.mu.Lock()
	defer f.mu.Unlock()
	v := lms.Video{
		ID:        f.id(),
		Title:     title,
		File:      "/media/videos/" + fh.Filename,
		Duration:  duration,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	f.videos[v.ID] = v
	f.uploads[v.ID] = data
	return c.JSON(http.StatusCreated, v)
}

func (f *FakeLMS) deleteVideo(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.videos[pathID(c)]; !ok {
		return notFound(c)
	}
	delete(f.videos, pathID(c))
	return c.NoContent(http.StatusNoContent)
}
