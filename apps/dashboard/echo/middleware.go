package echodash

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/auth"
	"github.com/trezcool/masomo-admin/core/session"
	apisvc "github.com/trezcool/masomo-admin/services/api"
)

const (
	contextSessionKey = "session"
	contextAPIKey     = "api"
	contextGuardKey   = "guard"

	sessionNamespace = "session:"
)

// sessionMiddleware loads the browser session named by the session cookie, issuing a new
// cookie when there is none, and puts the session, its API client and guard in the context.
func (s *server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		conf := s.opts.Config
		sid := s.sessionID(ctx)

		storage := core.NamespacedStorage(s.opts.Storage, sessionNamespace+sid)
		sess, err := session.NewStore(ctx.Request().Context(), storage, session.WithRefreshMargin(conf.Session.RefreshMargin))
		if err != nil {
			return errors.Wrap(err, "loading session")
		}
		api, err := apisvc.New(conf.API.BaseURL, sess, apisvc.WithHTTPClient(s.http), apisvc.WithLogger(s.opts.Logger))
		if err != nil {
			return errors.Wrap(err, "creating API client")
		}

		ctx.Set(contextSessionKey, sess)
		ctx.Set(contextAPIKey, api)
		ctx.Set(contextGuardKey, auth.NewGuardFromConfig(conf, sess, api, s.opts.Logger))
		return next(ctx)
	}
}

func (s *server) sessionID(ctx echo.Context) string {
	name := s.cookieName()
	if cookie, err := ctx.Cookie(name); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return id.String()
		}
	}
	sid := uuid.NewString()
	ctx.SetCookie(&http.Cookie{
		Name:     name,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Config.Server.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

func (s *server) cookieName() string {
	if name := s.opts.Config.Server.CookieName; name != "" {
		return name
	}
	return "masomo_sid"
}

func (s *server) loginPath() string {
	if p := s.opts.Config.Guard.LoginPath; p != "" {
		return p
	}
	return auth.DefaultLoginPath
}

// guardMiddleware lets authenticated sessions through and redirects the others.
func (s *server) guardMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		guard, err := getGuard(ctx)
		if err != nil {
			return err
		}
		d := guard.Check(ctx.Request().Context(), ctx.Path())
		switch d.State {
		case auth.StateAuthenticated:
			return next(ctx)
		case auth.StateRedirecting:
			return ctx.Redirect(http.StatusFound, d.RedirectTo)
		default: // the client went away
			return errReqCancelled
		}
	}
}

func getSession(ctx echo.Context) (*session.Store, error) {
	if sess, ok := ctx.Get(contextSessionKey).(*session.Store); ok {
		return sess, nil
	}
	return nil, errNoSessionInCtx
}

func getAPI(ctx echo.Context) (*apisvc.Client, error) {
	if api, ok := ctx.Get(contextAPIKey).(*apisvc.Client); ok {
		return api, nil
	}
	return nil, errNoSessionInCtx
}

func getGuard(ctx echo.Context) (*auth.Guard, error) {
	if guard, ok := ctx.Get(contextGuardKey).(*auth.Guard); ok {
		return guard, nil
	}
	return nil, errNoSessionInCtx
}
