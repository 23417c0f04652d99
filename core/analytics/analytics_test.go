package analytics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core/lms"
)

type stubSource struct {
	cats    []lms.Category
	courses []lms.Course
	lessons []lms.Lesson
	videos  []lms.Video
	blocks  map[int][]lms.ContentBlock
	err     error

	inFlight, maxInFlight int32
	mu                    sync.Mutex
}

func (s *stubSource) Categories(context.Context) ([]lms.Category, error) { return s.cats, nil }
func (s *stubSource) Courses(context.Context) ([]lms.Course, error)      { return s.courses, nil }
func (s *stubSource) Lessons(context.Context) ([]lms.Lesson, error)      { return s.lessons, nil }
func (s *stubSource) Videos(context.Context) ([]lms.Video, error)        { return s.videos, s.err }

func (s *stubSource) ListContentBlocks(_ context.Context, lessonID int) ([]lms.ContentBlock, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	s.mu.Lock()
	if n > s.maxInFlight {
		s.maxInFlight = n
	}
	s.mu.Unlock()
	time.Sleep(time.Millisecond)
	return s.blocks[lessonID], nil
}

func problemID(id int) *int { return &id }

func TestBuild(t *testing.T) {
	src := &stubSource{
		cats: []lms.Category{{ID: 1, Name: "Maths"}, {ID: 2, Name: "Sciences"}, {ID: 3, Name: "Arts"}},
		courses: []lms.Course{
			{ID: 10, Title: "Algebra", Category: 1, IsPublished: true},
			{ID: 11, Title: "Geometry", Category: 1},
			{ID: 12, Title: "Biology", Category: 2, IsPublished: true},
			{ID: 13, Title: "Orphan", Category: 99},
		},
		lessons: []lms.Lesson{
			{ID: 100, Course: 10}, {ID: 101, Course: 10}, {ID: 102, Course: 10},
			{ID: 103, Course: 12}, {ID: 104, Course: 12},
			{ID: 105, Course: 11},
		},
		videos: []lms.Video{{ID: 1, Duration: 90}, {ID: 2, Duration: 30}},
		blocks: map[int][]lms.ContentBlock{
			100: {{BlockType: lms.BlockTypeText}, {BlockType: lms.BlockTypeVideo}},
			101: {{BlockType: lms.BlockTypeText}, {BlockType: lms.BlockTypeProblem, Problem: problemID(5)}},
			103: {{BlockType: lms.BlockTypeQuiz}, {BlockType: lms.BlockTypeProblem, Problem: problemID(6)}, {BlockType: lms.BlockTypeText}},
		},
	}

	got, err := Build(context.Background(), src, 2)
	require.NoError(t, err)

	assert.Equal(t, Totals{
		Categories:       3,
		Courses:          4,
		PublishedCourses: 2,
		Lessons:          6,
		ContentBlocks:    7,
		Problems:         2,
		Videos:           2,
		VideoSeconds:     120,
	}, got.Totals)
	assert.Equal(t, []Point{
		{ID: 1, Label: "Maths", Value: 2},
		{ID: 2, Label: "Sciences", Value: 1},
		{Label: "Uncategorized", Value: 1},
		{ID: 3, Label: "Arts", Value: 0},
	}, got.CoursesPerCategory)
	assert.Equal(t, []Point{
		{ID: 10, Label: "Algebra", Value: 3},
		{ID: 12, Label: "Biology", Value: 2},
		{ID: 11, Label: "Geometry", Value: 1},
		{ID: 13, Label: "Orphan", Value: 0},
	}, got.LessonsPerCourse)
	assert.Equal(t, []Point{
		{Label: "text", Value: 3},
		{Label: "problem", Value: 2},
		{Label: "quiz", Value: 1},
		{Label: "video", Value: 1},
	}, got.BlocksPerType)
	assert.LessOrEqual(t, src.maxInFlight, int32(2))
}

func TestBuild_DuplicateNames(t *testing.T) {
	src := &stubSource{
		cats: []lms.Category{{ID: 1, Name: "Maths"}, {ID: 2, Name: "Maths"}},
		courses: []lms.Course{
			{ID: 10, Title: "Intro", Category: 1},
			{ID: 11, Title: "Intro", Category: 2},
			{ID: 12, Title: "Fractions", Category: 2},
		},
		lessons: []lms.Lesson{{ID: 100, Course: 10}, {ID: 101, Course: 11}, {ID: 102, Course: 11}},
	}

	got, err := Build(context.Background(), src, 0)
	require.NoError(t, err)
	assert.Equal(t, []Point{
		{ID: 2, Label: "Maths", Value: 2},
		{ID: 1, Label: "Maths", Value: 1},
	}, got.CoursesPerCategory)
	assert.Equal(t, []Point{
		{ID: 11, Label: "Intro", Value: 2},
		{ID: 10, Label: "Intro", Value: 1},
		{ID: 12, Label: "Fractions", Value: 0},
	}, got.LessonsPerCourse)
}

func TestBuild_Empty(t *testing.T) {
	got, err := Build(context.Background(), &stubSource{}, 0)
	require.NoError(t, err)
	assert.Equal(t, Totals{}, got.Totals)
	assert.Empty(t, got.CoursesPerCategory)
	assert.Empty(t, got.BlocksPerType)
}

func TestBuild_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := Build(context.Background(), &stubSource{err: boom}, 0)
	assert.ErrorIs(t, err, boom)
}
