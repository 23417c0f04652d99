// Package analytics computes the figures of the dashboard home page.
package analytics

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/masomo-admin/core/lms"
)

// Source is the part of the LMS API analytics are built from.
type Source interface {
	Categories(ctx context.Context) ([]lms.Category, error)
	Courses(ctx context.Context) ([]lms.Course, error)
	Lessons(ctx context.Context) ([]lms.Lesson, error)
	Videos(ctx context.Context) ([]lms.Video, error)
	ListContentBlocks(ctx context.Context, lessonID int) ([]lms.ContentBlock, error)
}

// Point is one bar of a chart. ID is the category or course id, if any.
type Point struct {
	ID    int    `json:"id,omitempty"`
	Label string `json:"label"`
	Value int    `json:"value"`
}

type Totals struct {
	Categories       int `json:"categories"`
	Courses          int `json:"courses"`
	PublishedCourses int `json:"published_courses"`
	Lessons          int `json:"lessons"`
	ContentBlocks    int `json:"content_blocks"`
	Problems         int `json:"problems"`
	Videos           int `json:"videos"`
	VideoSeconds     int `json:"video_seconds"`
}

type Summary struct {
	Totals             Totals  `json:"totals"`
	CoursesPerCategory []Point `json:"courses_per_category"`
	LessonsPerCourse   []Point `json:"lessons_per_course"`
	BlocksPerType      []Point `json:"blocks_per_type"`
}

// DefaultConcurrency bounds the content block requests in flight.
const DefaultConcurrency = 4

// Build fetches everything from `src` and computes the Summary.
// Series are sorted by decreasing value, then label.
func Build(ctx context.Context, src Source, concurrency int) (Summary, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var (
		cats    []lms.Category
		courses []lms.Course
		lessons []lms.Lesson
		videos  []lms.Video
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { cats, err = src.Categories(gctx); return })
	g.Go(func() (err error) { courses, err = src.Courses(gctx); return })
	g.Go(func() (err error) { lessons, err = src.Lessons(gctx); return })
	g.Go(func() (err error) { videos, err = src.Videos(gctx); return })
	if err := g.Wait(); err != nil {
		return Summary{}, errors.Wrap(err, "building analytics")
	}

	var (
		mu            sync.Mutex
		blocksPerType = make(map[string]int)
		totalBlocks   int
		problems      int
	)
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, lesson := range lessons {
		lessonID := lesson.ID
		g.Go(func() error {
			blocks, err := src.ListContentBlocks(gctx, lessonID)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, b := range blocks {
				blocksPerType[string(b.BlockType)]++
				if b.BlockType == lms.BlockTypeProblem && b.Problem != nil {
					problems++
				}
			}
			totalBlocks += len(blocks)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, errors.Wrap(err, "building analytics")
	}

	return summarize(cats, courses, lessons, videos, blocksPerType, totalBlocks, problems), nil
}

func summarize(
	cats []lms.Category,
	courses []lms.Course,
	lessons []lms.Lesson,
	videos []lms.Video,
	blocksPerType map[string]int,
	totalBlocks, problems int,
) Summary {
	s := Summary{
		Totals: Totals{
			Categories:    len(cats),
			Courses:       len(courses),
			Lessons:       len(lessons),
			ContentBlocks: totalBlocks,
			Problems:      problems,
			Videos:        len(videos),
		},
	}
	for _, v := range videos {
		s.Totals.VideoSeconds += v.Duration
	}

	// keyed by id: names and titles are not unique
	perCategory := make(map[int]*Point, len(cats))
	for _, cat := range cats {
		perCategory[cat.ID] = &Point{ID: cat.ID, Label: cat.Name}
	}
	perCourse := make(map[int]*Point, len(courses))
	for _, course := range courses {
		if course.IsPublished {
			s.Totals.PublishedCourses++
		}
		p, ok := perCategory[course.Category]
		if !ok {
			if p, ok = perCategory[0]; !ok {
				p = &Point{Label: "Uncategorized"}
				perCategory[0] = p
			}
		}
		p.Value++
		perCourse[course.ID] = &Point{ID: course.ID, Label: course.Title}
	}
	for _, lesson := range lessons {
		if p, ok := perCourse[lesson.Course]; ok {
			p.Value++
		}
	}

	perType := make(map[string]*Point, len(blocksPerType))
	for t, n := range blocksPerType {
		perType[t] = &Point{Label: t, Value: n}
	}

	s.CoursesPerCategory = series(perCategory)
	s.LessonsPerCourse = series(perCourse)
	s.BlocksPerType = series(perType)
	return s
}

func series[K comparable](m map[K]*Point) []Point {
	points := make([]Point, 0, len(m))
	for _, p := range m {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.ID < b.ID
	})
	return points
}
