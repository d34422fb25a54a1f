package web

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errNoRole       = echo.NewHTTPError(http.StatusForbidden, "your account has no role yet, please contact the administrator")
	errBadUpload    = core.NewValidationError(errors.New("please choose a file to upload"))
)

// errorHandler knows how to handle our errors: pages get an HTML error page, JSON clients a JSON body.
// Shutdown errors ask main to stop the server gracefully.
func (s *Server) errorHandler(err error, ctx echo.Context) {
	var code int
	var message interface{}

	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr.Internal != nil {
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
		}
		code = origErr.Code
		message = origErr.Message
	case *core.ValidationError:
		code = http.StatusBadRequest
		if flds := core.FieldErrors(origErr); flds != nil {
			message = flds
		} else {
			message = origErr.Error()
		}
	default:
		if core.FieldErrors(err) != nil {
			code = http.StatusBadRequest
			message = core.FieldErrors(err)
			break
		}
		if core.IsNotFound(err) {
			code = http.StatusNotFound
			message = http.StatusText(http.StatusNotFound)
			break
		}

		// any other error is a server error
		code = http.StatusInternalServerError
		msg := http.StatusText(http.StatusInternalServerError)
		message = msg

		acc, _ := contextAccount(ctx)
		s.deps.Logger.Error(msg, errors.Wrap(err, msg), acc)

		// shutting down...
		if core.IsShutdown(err) {
			s.SignalShutdown()
		}
	}

	if ctx.Echo().Debug {
		message = err.Error()
	}

	// Send response
	if ctx.Response().Committed {
		return
	}
	switch {
	case ctx.Request().Method == http.MethodHead:
		err = ctx.NoContent(code)
	case wantsJSON(ctx):
		if m, ok := message.(string); ok {
			err = ctx.JSON(code, echo.Map{"error": m})
		} else {
			err = ctx.JSON(code, message)
		}
	case code == http.StatusNotFound:
		err = ctx.Render(code, "notfound", s.page(ctx, "Page not found", nil))
	default:
		text, ok := message.(string)
		if !ok {
			text = core.ErrorMessage(err)
		}
		err = ctx.Render(code, "error", s.page(ctx, http.StatusText(code), errorView{Code: code, Message: text}))
	}
	if err != nil {
		ctx.Echo().Logger.Error(err)
	}
}

type errorView struct {
	Code    int
	Message string
}
