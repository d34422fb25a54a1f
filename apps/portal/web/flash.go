package web

import (
	"encoding/gob"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

const flashSession = "schoolhub_flash"

// Flash kinds
const (
	flashSuccess     = "success"
	flashDestructive = "destructive"
)

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Kind    string
	Title   string
	Message string
}

func init() {
	gob.Register(Flash{})
}

func (s *Server) addFlash(ctx echo.Context, f Flash) {
	sess, _ := s.flashes.Get(ctx.Request(), flashSession) // a fresh session is returned on decoding errors
	sess.AddFlash(f)
	if err := sess.Save(ctx.Request(), ctx.Response()); err != nil {
		s.deps.Logger.Warn(fmt.Sprintf("saving flash: %v", err), err)
	}
}

// popFlashes returns the pending flashes and clears them.
func (s *Server) popFlashes(ctx echo.Context) []Flash {
	sess, _ := s.flashes.Get(ctx.Request(), flashSession)
	vals := sess.Flashes()
	if len(vals) == 0 {
		return nil
	}
	if err := sess.Save(ctx.Request(), ctx.Response()); err != nil {
		s.deps.Logger.Warn(fmt.Sprintf("clearing flashes: %v", err), err)
	}
	fs := make([]Flash, 0, len(vals))
	for _, v := range vals {
		if f, ok := v.(Flash); ok {
			fs = append(fs, f)
		}
	}
	return fs
}

// done flashes a success title and redirects (POST-redirect-GET).
func (s *Server) done(ctx echo.Context, to, title string, msg ...string) error {
	f := Flash{Kind: flashSuccess, Title: title}
	if len(msg) > 0 {
		f.Message = msg[0]
	}
	s.addFlash(ctx, f)
	return ctx.Redirect(http.StatusSeeOther, to)
}

// fail flashes the error of a mutation under title and redirects.
// Errors that are not the user's fault are logged.
func (s *Server) fail(ctx echo.Context, to, title string, err error) error {
	if core.FieldErrors(err) == nil && !isUserError(err) {
		acc, _ := contextAccount(ctx)
		s.deps.Logger.Error(title, errors.Wrap(err, title), acc)
	}
	s.addFlash(ctx, Flash{Kind: flashDestructive, Title: title, Message: core.ErrorMessage(err)})
	return ctx.Redirect(http.StatusSeeOther, to)
}

func isUserError(err error) bool {
	switch errors.Cause(err).(type) {
	case *core.ValidationError, core.BackendError, *core.BackendError:
		return true
	}
	return core.IsNotFound(err)
}
