package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhub/core/gradelevel"
)

type gradeLevelsView struct {
	Search string
	Total  int
	Levels []gradelevel.GradeLevel
	EditID string
	Form   gradelevel.Form
}

func (s *Server) gradeLevelsPage(ctx echo.Context) error {
	levels, err := s.deps.Levels.Query(reqCtx(ctx))
	if err != nil {
		return err
	}
	v := gradeLevelsView{
		Search: ctx.QueryParam("q"),
		Total:  len(levels),
	}
	v.Levels = gradelevel.Filter(levels, v.Search)
	for _, gl := range levels {
		if gl.ID == ctx.QueryParam("edit") {
			v.EditID = gl.ID
			v.Form = gradelevel.Form{Name: gl.Name, Description: gl.Description.String}
		}
	}
	return ctx.Render(http.StatusOK, "gradelevels", s.page(ctx, "Grade Levels", v))
}

func (s *Server) createGradeLevel(ctx echo.Context) error {
	var data gradelevel.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, "/grade-levels", "Failed to create grade level", err)
	}
	if _, err := s.deps.Levels.Create(reqCtx(ctx), data); err != nil {
		return s.fail(ctx, "/grade-levels", "Failed to create grade level", err)
	}
	return s.done(ctx, "/grade-levels", "Grade level created successfully")
}

func (s *Server) updateGradeLevel(ctx echo.Context) error {
	var data gradelevel.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, "/grade-levels", "Failed to update grade level", err)
	}
	if _, err := s.deps.Levels.Update(reqCtx(ctx), ctx.Param("id"), data); err != nil {
		return s.fail(ctx, "/grade-levels", "Failed to update grade level", err)
	}
	return s.done(ctx, "/grade-levels", "Grade level updated successfully")
}

func (s *Server) deleteGradeLevel(ctx echo.Context) error {
	if err := s.deps.Levels.Delete(reqCtx(ctx), ctx.Param("id")); err != nil {
		return s.fail(ctx, "/grade-levels", "Failed to delete grade level", err)
	}
	return s.done(ctx, "/grade-levels", "Grade level deleted")
}
