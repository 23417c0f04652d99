package main

import (
	"context"
	"fmt"

	"github.com/trezcool/masomo-admin/core/analytics"
)

func (cli *commandLine) analytics(ctx context.Context, args []string) error {
	fs := cli.flagSet("analytics")
	concurrency := fs.Int("concurrency", analytics.DefaultConcurrency, "The maximum number of lessons fetched at once.")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	s, err := analytics.Build(ctx, cli.api, *concurrency)
	if err != nil {
		return err
	}

	w := cli.table()
	fmt.Fprintf(w, "categories\t%d\n", s.Totals.Categories)
	fmt.Fprintf(w, "courses\t%d (%d published)\n", s.Totals.Courses, s.Totals.PublishedCourses)
	fmt.Fprintf(w, "lessons\t%d\n", s.Totals.Lessons)
	fmt.Fprintf(w, "content blocks\t%d (%d problems)\n", s.Totals.ContentBlocks, s.Totals.Problems)
	fmt.Fprintf(w, "videos\t%d (%s)\n", s.Totals.Videos, formatSeconds(s.Totals.VideoSeconds))
	if err := w.Flush(); err != nil {
		return err
	}

	for _, chart := range []struct {
		title  string
		points []analytics.Point
	}{
		{"Courses per category", s.CoursesPerCategory},
		{"Lessons per course", s.LessonsPerCourse},
		{"Content blocks per type", s.BlocksPerType},
	} {
		fmt.Fprintf(cli.out, "\n%s\n", chart.title)
		w := cli.table()
		for _, p := range chart.points {
			fmt.Fprintf(w, "  %s\t%d\n", p.Label, p.Value)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}
