package apisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/lms"
)

// list decodes either a bare JSON array or a page envelope.
func list[T any](ctx context.Context, c *Client, path string, query url.Values) (lms.Page[T], error) {
	var raw json.RawMessage
	if err := c.get(ctx, path, query, &raw); err != nil {
		return lms.Page[T]{}, err
	}
	var page lms.Page[T]
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &page.Results); err != nil {
			return page, errors.Wrapf(err, "decoding %s", path)
		}
		page.Count = len(page.Results)
	} else if err := json.Unmarshal(raw, &page); err != nil {
		return page, errors.Wrapf(err, "decoding %s", path)
	}
	if page.Results == nil {
		page.Results = []T{}
	}
	return page, nil
}

// listAll follows the pages of `path` until the last.
func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var all []T
	for n := 1; ; n++ {
		query := url.Values{}
		if n > 1 {
			query.Set("page", strconv.Itoa(n))
		}
		page, err := list[T](ctx, c, path, query)
		if err != nil {
			return nil, errors.Wrapf(err, "page %d", n)
		}
		all = append(all, page.Results...)
		if !page.HasNext() {
			break
		}
	}
	if all == nil {
		all = []T{}
	}
	return all, nil
}

// categories

func (c *Client) Categories(ctx context.Context) ([]lms.Category, error) {
	cats, err := listAll[lms.Category](ctx, c, resourcePath("categories"))
	return cats, errors.Wrap(err, "listing categories")
}

func (c *Client) CreateCategory(ctx context.Context, nc lms.NewCategory) (lms.Category, error) {
	var cat lms.Category
	if err := nc.Validate(); err != nil {
		return cat, err
	}
	err := c.post(ctx, resourcePath("categories"), nc, &cat)
	return cat, errors.Wrap(err, "creating category")
}

func (c *Client) UpdateCategory(ctx context.Context, id int, uc lms.UpdateCategory) (lms.Category, error) {
	var cat lms.Category
	if err := uc.Validate(); err != nil {
		return cat, err
	}
	err := c.patch(ctx, resourcePath("categories", id), uc, &cat)
	return cat, errors.Wrapf(err, "updating category %d", id)
}

func (c *Client) DeleteCategory(ctx context.Context, id int) error {
	return errors.Wrapf(c.delete(ctx, resourcePath("categories", id)), "deleting category %d", id)
}

// courses

func (c *Client) Courses(ctx context.Context) ([]lms.Course, error) {
	courses, err := listAll[lms.Course](ctx, c, resourcePath("courses"))
	return courses, errors.Wrap(err, "listing courses")
}

func (c *Client) CreateCourse(ctx context.Context, nc lms.NewCourse) (lms.Course, error) {
	var course lms.Course
	if err := nc.Validate(); err != nil {
		return course, err
	}
	err := c.post(ctx, resourcePath("courses"), nc, &course)
	return course, errors.Wrap(err, "creating course")
}

func (c *Client) UpdateCourse(ctx context.Context, id int, uc lms.UpdateCourse) (lms.Course, error) {
	var course lms.Course
	if err := uc.Validate(); err != nil {
		return course, err
	}
	err := c.patch(ctx, resourcePath("courses", id), uc, &course)
	return course, errors.Wrapf(err, "updating course %d", id)
}

func (c *Client) DeleteCourse(ctx context.Context, id int) error {
	return errors.Wrapf(c.delete(ctx, resourcePath("courses", id)), "deleting course %d", id)
}

// lessons

// LessonsPage returns page `n` (1-based) of the lessons.
func (c *Client) LessonsPage(ctx context.Context, n int) (lms.Page[lms.Lesson], error) {
	query := url.Values{}
	if n > 1 {
		query.Set("page", strconv.Itoa(n))
	}
	page, err := list[lms.Lesson](ctx, c, resourcePath("lessons"), query)
	return page, errors.Wrapf(err, "listing lessons page %d", n)
}

// Lessons returns the lessons of every page.
func (c *Client) Lessons(ctx context.Context) ([]lms.Lesson, error) {
	lessons, err := listAll[lms.Lesson](ctx, c, resourcePath("lessons"))
	return lessons, errors.Wrap(err, "listing lessons")
}

func (c *Client) CreateLesson(ctx context.Context, nl lms.NewLesson) (lms.Lesson, error) {
	var lesson lms.Lesson
	if err := nl.Validate(); err != nil {
		return lesson, err
	}
	err := c.post(ctx, resourcePath("lessons"), nl, &lesson)
	return lesson, errors.Wrap(err, "creating lesson")
}

func (c *Client) UpdateLesson(ctx context.Context, id int, ul lms.UpdateLesson) (lms.Lesson, error) {
	var lesson lms.Lesson
	if err := ul.Validate(); err != nil {
		return lesson, err
	}
	err := c.patch(ctx, resourcePath("lessons", id), ul, &lesson)
	return lesson, errors.Wrapf(err, "updating lesson %d", id)
}

func (c *Client) DeleteLesson(ctx context.Context, id int) error {
	return errors.Wrapf(c.delete(ctx, resourcePath("lessons", id)), "deleting lesson %d", id)
}

// content blocks

func (c *Client) ListContentBlocks(ctx context.Context, lessonID int) ([]lms.ContentBlock, error) {
	page, err := list[lms.ContentBlock](ctx, c, resourcePath("lesson-content-blocks"), url.Values{
		"lesson": {strconv.Itoa(lessonID)},
	})
	return page.Results, errors.Wrapf(err, "listing blocks of lesson %d", lessonID)
}

func (c *Client) CreateContentBlock(ctx context.Context, in lms.ContentBlockInput) (lms.ContentBlock, error) {
	var b lms.ContentBlock
	err := c.post(ctx, resourcePath("lesson-content-blocks"), in, &b)
	return b, err
}

func (c *Client) ReplaceContentBlock(ctx context.Context, id int, in lms.ContentBlockInput) (lms.ContentBlock, error) {
	var b lms.ContentBlock
	err := c.put(ctx, resourcePath("lesson-content-blocks", id), in, &b)
	return b, err
}

func (c *Client) DeleteContentBlock(ctx context.Context, id int) error {
	return c.delete(ctx, resourcePath("lesson-content-blocks", id))
}

func (c *Client) ReorderContentBlocks(ctx context.Context, lessonID int, blockIDs []int) error {
	body := struct {
		LessonID   int   `json:"lesson_id"`
		BlockOrder []int `json:"block_order"`
	}{lessonID, blockIDs}
	return c.post(ctx, resourcePath("lesson-content-blocks")+"reorder/", body, nil)
}

// problems

func (c *Client) CreateProblem(ctx context.Context, in lms.ProblemInput) (lms.Problem, error) {
	var p lms.Problem
	err := c.post(ctx, resourcePath("problems"), in, &p)
	return p, err
}

func (c *Client) ReplaceProblem(ctx context.Context, id int, in lms.ProblemInput) (lms.Problem, error) {
	var p lms.Problem
	err := c.put(ctx, resourcePath("problems", id), in, &p)
	return p, err
}

func (c *Client) DeleteProblem(ctx context.Context, id int) error {
	return c.delete(ctx, resourcePath("problems", id))
}

func (c *Client) GetProblem(ctx context.Context, id int) (lms.Problem, error) {
	var p lms.Problem
	err := c.get(ctx, resourcePath("problems", id), nil, &p)
	return p, err
}

// auth

// SignIn authenticates the user and stores the obtained tokens in the session.
func (c *Client) SignIn(ctx context.Context, si lms.SignIn) (lms.AuthTokens, error) {
	var tokens lms.AuthTokens
	if err := si.Validate(); err != nil {
		return tokens, err
	}
	req := &request{method: http.MethodPost, path: "auth/signin/", body: jsonBody(si), noAuth: true}
	if err := c.do(ctx, req, &tokens); err != nil {
		return tokens, errors.Wrap(err, "signing in")
	}
	if c.session != nil {
		if err := c.session.SetAuth(ctx, tokens); err != nil {
			return tokens, err
		}
	}
	return tokens, nil
}

func (c *Client) ForgotPassword(ctx context.Context, fp lms.ForgotPassword) error {
	if err := fp.Validate(); err != nil {
		return err
	}
	req := &request{method: http.MethodPost, path: "auth/forgot-password/", body: jsonBody(fp), noAuth: true}
	return errors.Wrap(c.do(ctx, req, nil), "requesting password reset")
}

func (c *Client) ResetPassword(ctx context.Context, rp lms.ResetPassword) error {
	if err := rp.Validate(); err != nil {
		return err
	}
	req := &request{method: http.MethodPost, path: "auth/reset-password/", body: jsonBody(rp), noAuth: true}
	return errors.Wrap(c.do(ctx, req, nil), "resetting password")
}
