package echodash

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/lms"
)

type videosApi struct {
	logger core.Logger
}

func registerVideosAPI(g *echo.Group, logger core.Logger, limit echo.MiddlewareFunc) {
	api := videosApi{logger: logger}

	vg := g.Group("/videos")
	vg.GET("", api.list)
	vg.POST("", api.upload, limit)
	vg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *videosApi) list(ctx echo.Context) error {
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	videos, err := client.Videos(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, videos)
}

// upload relays the multipart `file` to the LMS; `title` defaults to the file name.
func (api *videosApi) upload(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		switch {
		case err == http.ErrMissingFile:
			return errFileRequired
		case errors.Is(err, echo.ErrStatusRequestEntityTooLarge):
			return echo.ErrStatusRequestEntityTooLarge
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form").SetInternal(err)
	}
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	name := filepath.Base(fh.Filename)
	title := core.FirstNonBlank(ctx.FormValue("title"), strings.TrimSuffix(name, filepath.Ext(name)))
	vu := lms.VideoUpload{Title: title, Filename: fh.Filename, Size: fh.Size}

	last := -1
	progress := func(percent int) {
		if step := percent / 25; step > last {
			last = step
			api.logger.Debug(fmt.Sprintf("uploading %s: %d%%", fh.Filename, percent))
		}
	}
	v, err := client.UploadVideo(ctx.Request().Context(), vu, f, progress)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *videosApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	if err := client.DeleteVideo(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
