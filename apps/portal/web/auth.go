package web

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/user"
)

type authView struct {
	Mode   string // signin | signup
	Email  string
	Roles  []user.Role
	Errors map[string]string
}

func (s *Server) authPage(ctx echo.Context) error {
	if cookie, err := ctx.Cookie(sessionCookie); err == nil {
		if claims, err := s.parseToken(cookie.Value); err == nil && claims.Role != "" {
			return ctx.Redirect(http.StatusSeeOther, user.HomePath(claims.Role))
		}
	}
	mode := ctx.QueryParam("mode")
	if mode != "signup" {
		mode = "signin"
	}
	return ctx.Render(http.StatusOK, "auth", s.page(ctx, "Sign in", authView{Mode: mode, Roles: user.Roles}))
}

func (s *Server) signIn(ctx echo.Context) error {
	var data user.SignIn
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, "/auth", "Sign in failed", err)
	}

	acc, err := s.deps.Users.SignIn(ctx.Request().Context(), data)
	if err != nil {
		if flds := core.FieldErrors(err); flds != nil {
			return ctx.Render(http.StatusBadRequest, "auth", s.page(ctx, "Sign in", authView{
				Mode: "signin", Email: data.Email, Roles: user.Roles, Errors: flds,
			}))
		}
		if errors.Cause(err) == user.ErrInvalidCredentials {
			s.addFlash(ctx, Flash{Kind: flashDestructive, Title: "Sign in failed", Message: user.ErrInvalidCredentials.Error()})
			return ctx.Redirect(http.StatusSeeOther, "/auth")
		}
		return s.fail(ctx, "/auth", "Error", err)
	}

	if err := s.startSession(ctx, acc); err != nil {
		return errors.Wrap(err, "starting session")
	}
	return s.done(ctx, user.HomePath(acc.Role), "Welcome back!", "Redirecting to dashboard...")
}

func (s *Server) signUp(ctx echo.Context) error {
	var data user.SignUp
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, "/auth?mode=signup", "Sign up failed", err)
	}

	acc, err := s.deps.Users.SignUp(ctx.Request().Context(), data)
	if err != nil {
		if flds := core.FieldErrors(err); flds != nil {
			return ctx.Render(http.StatusBadRequest, "auth", s.page(ctx, "Sign up", authView{
				Mode: "signup", Email: data.Email, Roles: user.Roles, Errors: flds,
			}))
		}
		if errors.Cause(err) == user.ErrAccountExists {
			s.addFlash(ctx, Flash{Kind: flashDestructive, Title: "Account exists", Message: user.ErrAccountExists.Error()})
			return ctx.Redirect(http.StatusSeeOther, "/auth")
		}
		return s.fail(ctx, "/auth?mode=signup", "Sign up failed", err)
	}

	if err := s.startSession(ctx, acc); err != nil {
		return errors.Wrap(err, "starting session")
	}
	return s.done(ctx, user.HomePath(acc.Role), "Account created!", "Welcome to "+s.deps.Conf.AppName+"!")
}

func (s *Server) signOut(ctx echo.Context) error {
	if cookie, err := ctx.Cookie(sessionCookie); err == nil {
		if claims, err := s.parseToken(cookie.Value); err == nil {
			if err := s.deps.Users.SignOut(ctx.Request().Context(), claims.Account()); err != nil {
				s.deps.Logger.Warn("signing out of the backend", err, claims.Account())
			}
		}
	}
	s.endSession(ctx)
	return ctx.Redirect(http.StatusSeeOther, "/auth")
}
