package web

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/portal"
)

type studentPortalView struct {
	portal.StudentPage
	Linked bool
	Today  string
}

func (s *Server) studentPortal(ctx echo.Context) error {
	acc := account(ctx)
	pg, err := s.deps.Portal.StudentPage(reqCtx(ctx), acc.ID)
	v := studentPortalView{StudentPage: pg, Linked: true, Today: core.Today()}
	if err != nil {
		if errors.Cause(err) != portal.ErrNotLinked {
			return err
		}
		v.Linked = false
	}
	return ctx.Render(http.StatusOK, "studentportal", s.page(ctx, "Student Portal", v))
}

func (s *Server) submitHomework(ctx echo.Context) error {
	c := reqCtx(ctx)
	st, err := s.deps.Students.ForUser(c, account(ctx).ID)
	if err != nil {
		return s.fail(ctx, "/student-portal", "Failed to submit homework", portal.ErrNotLinked)
	}
	if _, err := s.deps.Grades.Submit(c, ctx.Param("id"), st.ID); err != nil {
		return s.fail(ctx, "/student-portal", "Failed to submit homework", err)
	}
	return s.done(ctx, "/student-portal", "Homework submitted")
}

func (s *Server) parentPortal(ctx echo.Context) error {
	pg, err := s.deps.Portal.ParentPage(reqCtx(ctx), account(ctx).ID, ctx.QueryParam("child"))
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "parentportal", s.page(ctx, "Parent Portal", pg))
}
