package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/analytics"
	"github.com/trezcool/masomo-admin/core/lms"
)

func TestCategories(t *testing.T) {
	f := setup(t)
	sid := f.signIn(t)
	science := f.fake.AddCategory(lms.Category{Name: "Science", Slug: "science"})
	arts := f.fake.AddCategory(lms.Category{Name: "Arts", Slug: "arts"})

	tests := []httpTest{
		{
			name:     "list",
			method:   http.MethodGet,
			path:     "/categories",
			wantCode: http.StatusOK,
			wantData: mustJSON(t, []lms.Category{science, arts}),
		},
		{
			name:     "create blank name",
			method:   http.MethodPost,
			path:     "/categories",
			body:     []byte(`{"name": "   "}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "this field cannot be blank"}`),
		},
		{
			name:     "update",
			method:   http.MethodPatch,
			path:     fmt.Sprintf("/categories/%d", arts.ID),
			body:     []byte(`{"name": "Fine Arts"}`),
			wantCode: http.StatusOK,
			wantData: mustJSON(t, lms.Category{ID: arts.ID, Name: "Fine Arts", Slug: "arts"}),
		},
		{
			name:     "update trailing slash",
			method:   http.MethodPatch,
			path:     fmt.Sprintf("/categories/%d/", arts.ID),
			body:     []byte(`{"slug": "Fine Arts"}`),
			wantCode: http.StatusOK,
			wantData: mustJSON(t, lms.Category{ID: arts.ID, Name: "Fine Arts", Slug: "fine-arts"}),
		},
		{
			name:     "update unknown",
			method:   http.MethodPatch,
			path:     "/categories/999",
			body:     []byte(`{"name": "Nope"}`),
			wantCode: http.StatusNotFound,
			wantData: errBody(t, "Not found."),
		},
		{
			name:     "bad id",
			method:   http.MethodDelete,
			path:     "/categories/abc",
			wantCode: http.StatusNotFound,
			wantData: errBody(t, "not found"),
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/categories/%d", science.ID),
			wantCode: http.StatusNoContent,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, f, sid)
		})
	}

	t.Run("create", func(t *testing.T) {
		rec := f.serve(http.MethodPost, "/categories", sid, []byte(`{"name": "  Applied   Maths "}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var cat lms.Category
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cat))
		assert.NotZero(t, cat.ID)
		assert.Equal(t, "applied-maths", cat.Slug)
	})

	cats := f.fake.Categories()
	require.Len(t, cats, 2)
	assert.Equal(t, "Fine Arts", cats[0].Name)
}

func TestCategories_apiErrors(t *testing.T) {
	f := setup(t)
	sid := f.signIn(t)
	cat := f.fake.AddCategory(lms.Category{Name: "Science"})

	f.fake.Fail(http.MethodGet, "lms/categories/", http.StatusInternalServerError, 1)
	f.fake.FailWith(http.MethodDelete, "lms/categories/:id/", http.StatusForbidden, "You do not have permission to perform this action.", 1)

	tests := []httpTest{
		{
			name:     "server error",
			method:   http.MethodGet,
			path:     "/categories",
			wantCode: http.StatusBadGateway,
			wantData: errBody(t, core.GenericErrorMessage),
		},
		{
			name:     "forbidden",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/categories/%d", cat.ID),
			wantCode: http.StatusForbidden,
			wantData: errBody(t, "You do not have permission to perform this action."),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, f, sid)
		})
	}

	errs := f.logger.Level("error")
	require.Len(t, errs, 1, "only the server error is reported")
	assert.Contains(t, errs[0].Args, f.user, "the user is reported")
	assert.Len(t, f.fake.Categories(), 1)
}

func TestCourses(t *testing.T) {
	f := setup(t)
	sid := f.signIn(t)
	cat := f.fake.AddCategory(lms.Category{Name: "Maths"})
	course := f.fake.AddCourse(lms.Course{Title: "Algebra", Slug: "algebra", Category: cat.ID})

	tests := []httpTest{
		{
			name:     "list",
			method:   http.MethodGet,
			path:     "/courses",
			wantCode: http.StatusOK,
			wantData: mustJSON(t, []lms.Course{course}),
		},
		{
			name:     "create without category",
			method:   http.MethodPost,
			path:     "/courses",
			body:     []byte(`{"title": "Geometry"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"category": "category must be greater than 0"}`),
		},
		{
			name:     "publish",
			method:   http.MethodPatch,
			path:     fmt.Sprintf("/courses/%d", course.ID),
			body:     []byte(`{"is_published": true}`),
			wantCode: http.StatusOK,
			wantData: mustJSON(t, lms.Course{ID: course.ID, Title: "Algebra", Slug: "algebra", Category: cat.ID, IsPublished: true}),
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/courses/%d", course.ID),
			wantCode: http.StatusNoContent,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, f, sid)
		})
	}

	rec := f.serve(http.MethodPost, "/courses", sid, mustJSON(t, lms.NewCourse{Title: "Geometry", Category: cat.ID}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	courses := f.fake.Courses()
	require.Len(t, courses, 1)
	assert.Equal(t, "geometry", courses[0].Slug)
}

func TestLessons(t *testing.T) {
	f := setup(t)
	sid := f.signIn(t)
	f.fake.SetPageSize(2)
	for i := 0; i < 3; i++ {
		f.fake.AddLesson(lms.Lesson{Title: fmt.Sprintf("Lesson %d", i+1), Course: 1, Order: i})
	}

	t.Run("every page", func(t *testing.T) {
		rec := f.serve(http.MethodGet, "/lessons", sid)
		require.Equal(t, http.StatusOK, rec.Code)
		var lessons []lms.Lesson
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lessons))
		assert.Len(t, lessons, 3)
	})

	t.Run("one page", func(t *testing.T) {
		rec := f.serve(http.MethodGet, "/lessons?page=1", sid)
		require.Equal(t, http.StatusOK, rec.Code)
		var page lms.Page[lms.Lesson]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, 3, page.Count)
		assert.Len(t, page.Results, 2)
		assert.True(t, page.HasNext())
	})

	tests := []httpTest{
		{
			name:     "bad page",
			method:   http.MethodGet,
			path:     "/lessons?page=zero",
			wantCode: http.StatusBadRequest,
			wantData: errBody(t, "invalid page"),
		},
		{
			name:     "create negative order",
			method:   http.MethodPost,
			path:     "/lessons",
			body:     []byte(`{"title": "Lesson 4", "course": 1, "order": -1}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"order": "order must be 0 or greater"}`),
		},
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/lessons",
			body:     []byte(`{"title": "Lesson 4", "course": 1, "order": 3}`),
			wantCode: http.StatusCreated,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, f, sid)
		})
	}

	lessons := f.fake.Lessons()
	require.Len(t, lessons, 4)
	last := lessons[3]

	rec := f.serve(http.MethodPatch, fmt.Sprintf("/lessons/%d", last.ID), sid, []byte(`{"title": "Revision"}`))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.serve(http.MethodDelete, fmt.Sprintf("/lessons/%d", lessons[0].ID), sid)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	titles := make([]string, 0, 3)
	for _, l := range f.fake.Lessons() {
		titles = append(titles, l.Title)
	}
	assert.ElementsMatch(t, []string{"Lesson 2", "Lesson 3", "Revision"}, titles)
}

func TestDashboard(t *testing.T) {
	f := setup(t)
	sid := f.signIn(t)
	cat := f.fake.AddCategory(lms.Category{Name: "Maths"})
	course := f.fake.AddCourse(lms.Course{Title: "Algebra", Category: cat.ID, IsPublished: true})
	f.fake.AddCourse(lms.Course{Title: "Draft"})
	lesson := f.fake.AddLesson(lms.Lesson{Title: "Fractions", Course: course.ID})
	f.fake.AddBlock(lms.ContentBlock{Lesson: lesson.ID, BlockType: lms.BlockTypeText})
	f.fake.AddVideo(lms.Video{Title: "Intro", Duration: 125})

	rec := f.serve(http.MethodGet, "/dashboard", sid)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		User    lms.User          `json:"user"`
		Summary analytics.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	assert.Equal(t, admin.Email, data.User.Email)
	assert.Equal(t, analytics.Totals{
		Categories:       1,
		Courses:          2,
		PublishedCourses: 1,
		Lessons:          1,
		ContentBlocks:    1,
		Videos:           1,
		VideoSeconds:     125,
	}, data.Summary.Totals)
}
