package echodash

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/masomo-admin/core"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		Config         *core.Config
		Storage        core.Storage // browser sessions
		Logger         core.Logger
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
		http *http.Client // shared by the API clients of every session
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(opts.Config, "Config"),
		vala.IsNotNil(opts.Storage, "Storage"),
		vala.IsNotNil(opts.Logger, "Logger"),
	).CheckAndPanic()

	s := &server{
		opts: opts,
		app:  echo.New(),
		http: &http.Client{Timeout: opts.Config.API.Timeout},
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Config

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.loginPath())
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	g := s.app.Group("", s.sessionMiddleware)
	registerAuthAPI(g, s)

	guarded := g.Group("", s.guardMiddleware)
	registerDashboardAPI(guarded, s)
	registerResourcesAPI(guarded)
	registerBlocksAPI(guarded, s.opts.Logger)
	registerVideosAPI(guarded, s.opts.Logger, bodyLimit(conf.Server.MaxUploadSize))
}

// bodyLimit returns the BodyLimit middleware for `size` bytes, or a no-op when size is not set.
func bodyLimit(size int64) echo.MiddlewareFunc {
	if size <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.BodyLimit(strconv.FormatInt(size, 10))
}

func (s *server) Start() error {
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Config.AppName+"!")
}
