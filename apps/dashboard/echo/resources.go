package echodash

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/analytics"
	"github.com/trezcool/masomo-admin/core/lms"
)

func registerDashboardAPI(g *echo.Group, s *server) {
	g.GET(homePath(s), dashboard)
}

func homePath(s *server) string {
	if p := s.opts.Config.Guard.HomePath; p != "" {
		return p
	}
	return "/dashboard"
}

func dashboard(ctx echo.Context) error {
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	summary, err := analytics.Build(ctx.Request().Context(), client, analytics.DefaultConcurrency)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"user": client.Session().User(), "summary": summary})
}

func registerResourcesAPI(g *echo.Group) {
	cg := g.Group("/categories")
	cg.GET("", listCategories)
	cg.POST("", createCategory)
	cg.PATCH("/:id", updateCategory)
	cg.DELETE("/:id", deleteCategory)

	crg := g.Group("/courses")
	crg.GET("", listCourses)
	crg.POST("", createCourse)
	crg.PATCH("/:id", updateCourse)
	crg.DELETE("/:id", deleteCourse)

	lg := g.Group("/lessons")
	lg.GET("", listLessons)
	lg.POST("", createLesson)
	lg.PATCH("/:id", updateLesson)
	lg.DELETE("/:id", deleteLesson)
}

// pathID returns the positive integer path parameter `name`.
func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// categories

func listCategories(ctx echo.Context) error {
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	cats, err := client.Categories(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cats)
}

func createCategory(ctx echo.Context) error {
	var data lms.NewCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCategory")
	}
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	cat, err := client.CreateCategory(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cat)
}

func updateCategory(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data lms.UpdateCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCategory")
	}
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	cat, err := client.UpdateCategory(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cat)
}

func deleteCategory(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	if err := client.DeleteCategory(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// courses

func listCourses(ctx echo.Context) error {
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	courses, err := client.Courses(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func createCourse(ctx echo.Context) error {
	var data lms.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	course, err := client.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, course)
}

func updateCourse(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data lms.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	course, err := client.UpdateCourse(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, course)
}

func deleteCourse(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	if err := client.DeleteCourse(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// lessons

// listLessons returns every lesson, or the `page` query page as is when set.
func listLessons(ctx echo.Context) error {
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	if p := ctx.QueryParam("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
		}
		page, err := client.LessonsPage(ctx.Request().Context(), n)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, page)
	}
	lessons, err := client.Lessons(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func createLesson(ctx echo.Context) error {
	var data lms.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	lesson, err := client.CreateLesson(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, lesson)
}

func updateLesson(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data lms.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	lesson, err := client.UpdateLesson(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lesson)
}

func deleteLesson(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	if err := client.DeleteLesson(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
