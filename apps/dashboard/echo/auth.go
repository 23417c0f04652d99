package echodash

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/auth"
	"github.com/trezcool/masomo-admin/core/lms"
)

type authApi struct {
	server *server
}

func registerAuthAPI(g *echo.Group, s *server) {
	api := authApi{server: s}

	g.GET(s.loginPath(), api.loginPage)
	g.POST(s.loginPath(), api.login)
	g.POST("/logout", api.logout)
	g.POST("/forgot-password", api.forgotPassword)
	g.POST("/reset-password", api.resetPassword)
}

// Handlers

func (api *authApi) loginPage(ctx echo.Context) error {
	guard, err := getGuard(ctx)
	if err != nil {
		return err
	}
	if d := guard.Check(ctx.Request().Context(), guard.LoginPath); d.State == auth.StateRedirecting {
		return ctx.Redirect(http.StatusFound, d.RedirectTo)
	}
	return ctx.JSON(http.StatusOK, echo.Map{"app": api.server.opts.Config.AppName})
}

func (api *authApi) login(ctx echo.Context) error {
	var data lms.SignIn
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignIn")
	}
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	guard, err := getGuard(ctx)
	if err != nil {
		return err
	}

	tokens, err := client.SignIn(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	api.server.opts.Logger.Info("signed in", tokens.User)
	return ctx.JSON(http.StatusOK, echo.Map{"user": tokens.User, "redirect": guard.HomePath})
}

func (api *authApi) logout(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	if err := sess.Clear(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "clearing session")
	}
	ctx.SetCookie(&http.Cookie{
		Name:     api.server.cookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   api.server.opts.Config.Server.CookieSecure,
	})
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) forgotPassword(ctx echo.Context) error {
	var data lms.ForgotPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ForgotPassword")
	}
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	if err := client.ForgotPassword(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data lms.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	client, err := getAPI(ctx)
	if err != nil {
		return err
	}
	if err := client.ResetPassword(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
