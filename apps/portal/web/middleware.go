package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhub/core/user"
)

// requireRoles lets through the users having any of roles (everyone when roles is empty).
// Other users land on their own home page.
func (s *Server) requireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			acc, ok := contextAccount(ctx)
			if !ok {
				return errUnauthorized
			}
			if len(roles) == 0 || acc.HasRole(roles...) {
				return next(ctx)
			}
			if acc.Role == "" {
				return errNoRole
			}
			return ctx.Redirect(http.StatusSeeOther, user.HomePath(acc.Role))
		}
	}
}

// noSniff keeps browsers from guessing another type than the one served.
func noSniff(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ctx.Response().Header().Set(echo.HeaderXContentTypeOptions, "nosniff")
		return next(ctx)
	}
}

func wantsJSON(ctx echo.Context) bool {
	return ctx.Request().Header.Get(echo.HeaderAccept) == echo.MIMEApplicationJSON
}
