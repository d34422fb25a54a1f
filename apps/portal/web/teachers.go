package web

import (
	"net/http"
	"path"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhub/core/teacher"
)

type teachersView struct {
	Search   string
	Total    int
	Active   int
	Teachers []teacher.Teacher
	EditID   string
	Form     teacher.Form
}

func (s *Server) teachersPage(ctx echo.Context) error {
	teachers, err := s.deps.Teachers.Query(reqCtx(ctx))
	if err != nil {
		return err
	}
	v := teachersView{Search: ctx.QueryParam("q"), Total: len(teachers)}
	for _, t := range teachers {
		if t.IsActive() {
			v.Active++
		}
		if t.ID == ctx.QueryParam("edit") {
			v.EditID, v.Form = t.ID, teacher.FormOf(t)
		}
	}
	v.Teachers = teacher.Filter(teachers, v.Search)
	return ctx.Render(http.StatusOK, "teachers", s.page(ctx, "Teachers", v))
}

func (s *Server) createTeacher(ctx echo.Context) error {
	var data teacher.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, "/teachers", "Failed to add teacher", err)
	}
	if _, err := s.deps.Teachers.Create(reqCtx(ctx), data); err != nil {
		return s.fail(ctx, "/teachers", "Failed to add teacher", err)
	}
	return s.done(ctx, "/teachers", "Teacher added successfully")
}

func (s *Server) updateTeacher(ctx echo.Context) error {
	var data teacher.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, "/teachers", "Failed to update teacher", err)
	}
	if _, err := s.deps.Teachers.Update(reqCtx(ctx), ctx.Param("id"), data); err != nil {
		return s.fail(ctx, "/teachers", "Failed to update teacher", err)
	}
	return s.done(ctx, "/teachers", "Teacher updated successfully")
}

func (s *Server) deleteTeacher(ctx echo.Context) error {
	if err := s.deps.Teachers.Delete(reqCtx(ctx), ctx.Param("id")); err != nil {
		return s.fail(ctx, "/teachers", "Failed to remove teacher", err)
	}
	return s.done(ctx, "/teachers", "Teacher removed")
}

func (s *Server) teacherAvatar(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := s.deps.Teachers.Get(reqCtx(ctx), id); err != nil {
		return s.fail(ctx, "/teachers", "Failed to update teacher", err)
	}
	url, err := s.upload(ctx, "avatar", path.Join("avatars", "teachers", id))
	if err != nil {
		return s.fail(ctx, "/teachers", "Failed to update teacher", err)
	}
	if _, err := s.deps.Teachers.SetAvatar(reqCtx(ctx), id, url); err != nil {
		return s.fail(ctx, "/teachers", "Failed to update teacher", err)
	}
	return s.done(ctx, "/teachers", "Teacher updated successfully")
}
