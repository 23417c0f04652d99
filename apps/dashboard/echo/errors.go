package echodash

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/block"
	apisvc "github.com/trezcool/masomo-admin/services/api"
)

var (
	errHttpNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")
	errFileRequired   = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "this field is required"})
	errInvalidDraft   = echo.NewHTTPError(http.StatusBadRequest, "invalid content block draft")
	errReqCancelled   = echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled")
	errNoSessionInCtx = errors.New("session not found in echo.Context")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// An expired session redirects to `loginPath`.
func newAppHTTPErrorHandler(logger core.Logger, loginPath string) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch cause {
		case apisvc.ErrSessionExpired:
			if !ctx.Response().Committed {
				if rErr := ctx.Redirect(http.StatusFound, loginPath); rErr != nil {
					ctx.Echo().Logger.Error(rErr)
				}
			}
			return
		case block.ErrBlockNotFound:
			cause = errHttpNotFound
		}

		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.ArgumentError:
			code = http.StatusBadRequest
			message = origErr.Error()
		case *core.APIError:
			if origErr.Status >= 400 && origErr.Status < 500 {
				code = origErr.Status
				message = apiErrorMessage(origErr)
				break
			}
			code = http.StatusBadGateway
			message = core.GenericErrorMessage
			logger.Error("LMS API error", append([]interface{}{err}, contextUser(ctx)...)...)
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, append([]interface{}{errors.Wrap(err, msg)}, contextUser(ctx)...)...)
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// apiErrorMessage is the server `detail`, else the map of server field errors.
func apiErrorMessage(err *core.APIError) interface{} {
	if err.Detail != "" || len(err.Fields) == 0 {
		return core.ErrorMessage(err)
	}
	fldErrs := make(map[string]string, len(err.Fields))
	for fld, msgs := range err.Fields {
		fldErrs[fld] = strings.Join(msgs, " ")
	}
	return fldErrs
}

// contextUser returns the signed in user as logger args, if any.
func contextUser(ctx echo.Context) []interface{} {
	sess, err := getSession(ctx)
	if err != nil {
		return nil
	}
	if usr := sess.User(); usr != nil {
		return []interface{}{*usr}
	}
	return nil
}
