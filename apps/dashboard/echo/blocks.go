package echodash

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/block"
	"github.com/trezcool/masomo-admin/core/lms"
)

type blocksApi struct {
	logger core.Logger
}

// blockView is a content block with its editable type and display title.
type blockView struct {
	lms.ContentBlock
	Type  block.Type `json:"type,omitempty"`
	Title string     `json:"title"`
}

type moveBlock struct {
	To int `json:"to"`
}

func registerBlocksAPI(g *echo.Group, logger core.Logger) {
	api := blocksApi{logger: logger}

	bg := g.Group("/lessons/:id/blocks")
	bg.GET("", api.list)
	bg.POST("", api.add)
	bg.GET("/:blockID/draft", api.draft)
	bg.PUT("/:blockID", api.update)
	bg.DELETE("/:blockID", api.destroy)
	bg.POST("/:blockID/move", api.move)
}

// controller returns the loaded block controller of the lesson in path.
func (api *blocksApi) controller(ctx echo.Context) (*block.Controller, error) {
	lessonID, err := pathID(ctx, "id")
	if err != nil {
		return nil, err
	}
	client, err := getAPI(ctx)
	if err != nil {
		return nil, err
	}
	ctrl := block.NewController(client, lessonID, api.logger)
	if err := ctrl.Load(ctx.Request().Context()); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func bindDraft(ctx echo.Context) (block.Draft, error) {
	data, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading draft")
	}
	d, err := block.DecodeDraft(data)
	if err != nil {
		return nil, errors.Wrap(errInvalidDraft, err.Error())
	}
	return d, nil
}

func views(blocks []lms.ContentBlock) []blockView {
	vs := make([]blockView, 0, len(blocks))
	for _, b := range blocks {
		t, _ := block.ContentType(b)
		vs = append(vs, blockView{ContentBlock: b, Type: t, Title: block.Title(b)})
	}
	return vs
}

// Handlers

func (api *blocksApi) list(ctx echo.Context) error {
	ctrl, err := api.controller(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, views(ctrl.Blocks()))
}

func (api *blocksApi) add(ctx echo.Context) error {
	d, err := bindDraft(ctx)
	if err != nil {
		return err
	}
	ctrl, err := api.controller(ctx)
	if err != nil {
		return err
	}
	if err := ctrl.OpenAddForm(d.Type()); err != nil {
		return err
	}
	created, err := ctrl.Add(ctx.Request().Context(), d, false)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, views([]lms.ContentBlock{created})[0])
}

func (api *blocksApi) draft(ctx echo.Context) error {
	blockID, err := pathID(ctx, "blockID")
	if err != nil {
		return err
	}
	ctrl, err := api.controller(ctx)
	if err != nil {
		return err
	}
	d, err := ctrl.EditDraft(ctx.Request().Context(), blockID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *blocksApi) update(ctx echo.Context) error {
	blockID, err := pathID(ctx, "blockID")
	if err != nil {
		return err
	}
	d, err := bindDraft(ctx)
	if err != nil {
		return err
	}
	ctrl, err := api.controller(ctx)
	if err != nil {
		return err
	}
	updated, err := ctrl.Update(ctx.Request().Context(), blockID, d)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, views([]lms.ContentBlock{updated})[0])
}

func (api *blocksApi) destroy(ctx echo.Context) error {
	blockID, err := pathID(ctx, "blockID")
	if err != nil {
		return err
	}
	ctrl, err := api.controller(ctx)
	if err != nil {
		return err
	}
	if err := ctrl.Delete(ctx.Request().Context(), blockID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// move answers the blocks in their new order. An out of range position leaves them unchanged.
func (api *blocksApi) move(ctx echo.Context) error {
	blockID, err := pathID(ctx, "blockID")
	if err != nil {
		return err
	}
	var data moveBlock
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to moveBlock")
	}
	ctrl, err := api.controller(ctx)
	if err != nil {
		return err
	}
	if err := ctrl.Reorder(ctx.Request().Context(), blockID, data.To); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, views(ctrl.Blocks()))
}
