// Package auth gates routes behind a valid session.
package auth

import (
	"context"
	"time"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/session"
)

type State string

const (
	StateChecking      State = "checking"
	StateAuthenticated State = "authenticated"
	StateRedirecting   State = "redirecting"
)

// Decision is the outcome of a route check. RedirectTo is set when State is StateRedirecting.
type Decision struct {
	State      State
	RedirectTo string
}

// Refresher exchanges the refresh token of the session for a new access token.
type Refresher interface {
	RefreshSession(ctx context.Context) error
}

const (
	DefaultTimeout   = 5 * time.Second
	DefaultLoginPath = "/login"
	DefaultHomePath  = "/dashboard"
)

type Guard struct {
	session   *session.Store
	refresher Refresher
	logger    core.Logger

	Timeout   time.Duration
	LoginPath string
	HomePath  string
}

func NewGuard(sess *session.Store, refresher Refresher, logger core.Logger) *Guard {
	return &Guard{
		session:   sess,
		refresher: refresher,
		logger:    logger,
		Timeout:   DefaultTimeout,
		LoginPath: DefaultLoginPath,
		HomePath:  DefaultHomePath,
	}
}

// NewGuardFromConfig returns a Guard using the paths and timeout of `conf`.
func NewGuardFromConfig(conf *core.Config, sess *session.Store, refresher Refresher, logger core.Logger) *Guard {
	g := NewGuard(sess, refresher, logger)
	if conf.Guard.Timeout > 0 {
		g.Timeout = conf.Guard.Timeout
	}
	if conf.Guard.LoginPath != "" {
		g.LoginPath = conf.Guard.LoginPath
	}
	if conf.Guard.HomePath != "" {
		g.HomePath = conf.Guard.HomePath
	}
	return g
}

func (g *Guard) authenticated() Decision {
	return Decision{State: StateAuthenticated}
}

func (g *Guard) redirect(to string) Decision {
	return Decision{State: StateRedirecting, RedirectTo: to}
}

// Check decides whether `path` may be shown.
//
// The login page is always shown, except to authenticated users who are sent home.
// Other paths require a valid access token; an expired one is refreshed once and
// the session is cleared if that fails. A check lasting longer than Timeout redirects
// to the login page. If `ctx` is cancelled first the result is discarded and the
// returned state is StateChecking.
func (g *Guard) Check(ctx context.Context, path string) Decision {
	if path == g.LoginPath {
		if g.session.IsAuthenticated() {
			return g.redirect(g.HomePath)
		}
		return g.authenticated()
	}

	if g.session.IsAuthenticated() {
		return g.authenticated()
	}

	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.Timeout)
	defer cancel()

	result := make(chan Decision, 1)
	go func() { result <- g.check(checkCtx) }()

	select {
	case d := <-result:
		if ctx.Err() != nil {
			return Decision{State: StateChecking}
		}
		return d
	case <-checkCtx.Done():
		g.logger.Warn("auth check timed out, redirecting to login", map[string]interface{}{"path": path})
		return g.redirect(g.LoginPath)
	case <-ctx.Done():
		return Decision{State: StateChecking}
	}
}

func (g *Guard) check(ctx context.Context) Decision {
	if g.session.Token() == "" && g.session.RefreshToken() == "" {
		g.clearSession(ctx)
		return g.redirect(g.LoginPath)
	}
	if err := g.refresher.RefreshSession(ctx); err != nil {
		g.logger.Info("session refresh failed", err)
		g.clearSession(ctx)
		return g.redirect(g.LoginPath)
	}
	if !g.session.IsAuthenticated() {
		// the refreshed token is already too close to its expiry
		g.clearSession(ctx)
		return g.redirect(g.LoginPath)
	}
	return g.authenticated()
}

func (g *Guard) clearSession(ctx context.Context) {
	if err := g.session.Clear(ctx); err != nil {
		g.logger.Error("clearing session failed", err)
	}
}
