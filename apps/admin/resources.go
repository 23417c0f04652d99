package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/trezcool/masomo-admin/core/lms"
)

func requireID(fs *flag.FlagSet, id int) error {
	if id <= 0 {
		fs.Usage()
		return errHelp
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// categories

func (cli *commandLine) categories(ctx context.Context, args []string) error {
	sub, args, err := cli.subcommand("categories", args, "list", "create", "update", "delete")
	if err != nil {
		return err
	}

	fs := cli.flagSet("categories " + sub)
	id := fs.Int("id", 0, "The category id.")
	name := fs.String("name", "", "The category name.")
	slug := fs.String("slug", "", "The category slug, derived from the name if empty.")
	desc := fs.String("description", "", "The category description.")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	switch sub {
	case "list":
		cats, err := cli.api.Categories(ctx)
		if err != nil {
			return err
		}
		w := cli.table()
		fmt.Fprintln(w, "ID\tNAME\tSLUG")
		for _, c := range cats {
			fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.Name, c.Slug)
		}
		return w.Flush()
	case "create":
		cat, err := cli.api.CreateCategory(ctx, lms.NewCategory{Name: *name, Slug: *slug, Description: *desc})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Created category %d (%s).\n", cat.ID, cat.Slug)
		return nil
	case "update":
		if err := requireID(fs, *id); err != nil {
			return err
		}
		var uc lms.UpdateCategory
		set := visited(fs)
		if set["name"] {
			uc.Name = name
		}
		if set["slug"] {
			uc.Slug = slug
		}
		if set["description"] {
			uc.Description = desc
		}
		cat, err := cli.api.UpdateCategory(ctx, *id, uc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Updated category %d.\n", cat.ID)
		return nil
	default:
		if err := requireID(fs, *id); err != nil {
			return err
		}
		if err := cli.api.DeleteCategory(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Deleted category %d.\n", *id)
		return nil
	}
}

// courses

func (cli *commandLine) courses(ctx context.Context, args []string) error {
	sub, args, err := cli.subcommand("courses", args, "list", "create", "update", "delete")
	if err != nil {
		return err
	}

	fs := cli.flagSet("courses " + sub)
	id := fs.Int("id", 0, "The course id.")
	title := fs.String("title", "", "The course title.")
	slug := fs.String("slug", "", "The course slug, derived from the title if empty.")
	desc := fs.String("description", "", "The course description.")
	category := fs.Int("category", 0, "The id of the course category.")
	published := fs.Bool("published", false, "Whether the course is visible to students.")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	switch sub {
	case "list":
		courses, err := cli.api.Courses(ctx)
		if err != nil {
			return err
		}
		w := cli.table()
		fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tPUBLISHED")
		for _, c := range courses {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", c.ID, c.Title, c.Category, yesNo(c.IsPublished))
		}
		return w.Flush()
	case "create":
		course, err := cli.api.CreateCourse(ctx, lms.NewCourse{
			Title:       *title,
			Slug:        *slug,
			Description: *desc,
			Category:    *category,
			IsPublished: *published,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Created course %d (%s).\n", course.ID, course.Slug)
		return nil
	case "update":
		if err := requireID(fs, *id); err != nil {
			return err
		}
		var uc lms.UpdateCourse
		set := visited(fs)
		if set["title"] {
			uc.Title = title
		}
		if set["slug"] {
			uc.Slug = slug
		}
		if set["description"] {
			uc.Description = desc
		}
		if set["category"] {
			uc.Category = category
		}
		if set["published"] {
			uc.IsPublished = published
		}
		course, err := cli.api.UpdateCourse(ctx, *id, uc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Updated course %d.\n", course.ID)
		return nil
	default:
		if err := requireID(fs, *id); err != nil {
			return err
		}
		if err := cli.api.DeleteCourse(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Deleted course %d.\n", *id)
		return nil
	}
}

// lessons

func (cli *commandLine) lessons(ctx context.Context, args []string) error {
	sub, args, err := cli.subcommand("lessons", args, "list", "create", "update", "delete")
	if err != nil {
		return err
	}

	fs := cli.flagSet("lessons " + sub)
	id := fs.Int("id", 0, "The lesson id.")
	page := fs.Int("page", 0, "The page to list, every page if 0.")
	title := fs.String("title", "", "The lesson title.")
	desc := fs.String("description", "", "The lesson description.")
	course := fs.Int("course", 0, "The id of the lesson course.")
	order := fs.Int("order", 0, "The position of the lesson in its course.")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	switch sub {
	case "list":
		var lessons []lms.Lesson
		footer := ""
		if *page > 0 {
			p, err := cli.api.LessonsPage(ctx, *page)
			if err != nil {
				return err
			}
			lessons = p.Results
			footer = "page " + strconv.Itoa(*page) + ", " + strconv.Itoa(p.Count) + " lessons in total"
			if p.HasNext() {
				footer += ", next: -page " + strconv.Itoa(*page+1)
			}
		} else if lessons, err = cli.api.Lessons(ctx); err != nil {
			return err
		}
		w := cli.table()
		fmt.Fprintln(w, "ID\tTITLE\tCOURSE\tORDER")
		for _, l := range lessons {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", l.ID, l.Title, l.Course, l.Order)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if footer != "" {
			fmt.Fprintln(cli.out, footer)
		}
		return nil
	case "create":
		lesson, err := cli.api.CreateLesson(ctx, lms.NewLesson{
			Title:       *title,
			Description: *desc,
			Course:      *course,
			Order:       *order,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Created lesson %d.\n", lesson.ID)
		return nil
	case "update":
		if err := requireID(fs, *id); err != nil {
			return err
		}
		var ul lms.UpdateLesson
		set := visited(fs)
		if set["title"] {
			ul.Title = title
		}
		if set["description"] {
			ul.Description = desc
		}
		if set["course"] {
			ul.Course = course
		}
		if set["order"] {
			ul.Order = order
		}
		lesson, err := cli.api.UpdateLesson(ctx, *id, ul)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Updated lesson %d.\n", lesson.ID)
		return nil
	default:
		if err := requireID(fs, *id); err != nil {
			return err
		}
		if err := cli.api.DeleteLesson(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Deleted lesson %d.\n", *id)
		return nil
	}
}
