package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhub/core/grade"
	"github.com/trezcool/schoolhub/core/settings"
)

type settingsView struct {
	Form     settings.Form
	Subjects []grade.Subject
}

func (s *Server) settingsPage(ctx echo.Context) error {
	c := reqCtx(ctx)
	st, err := s.deps.Settings.Get(c)
	if err != nil {
		return err
	}
	subjects, err := s.deps.Grades.Subjects(c)
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "settings", s.page(ctx, "Settings", settingsView{
		Form:     settings.FormOf(st),
		Subjects: subjects,
	}))
}

func (s *Server) saveSettings(ctx echo.Context) error {
	var data settings.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, "/settings", "Failed to save settings", err)
	}
	if _, err := s.deps.Settings.Save(reqCtx(ctx), data); err != nil {
		return s.fail(ctx, "/settings", "Failed to save settings", err)
	}
	return s.done(ctx, "/settings", "Settings saved successfully")
}

func (s *Server) createSubject(ctx echo.Context) error {
	var data grade.SubjectForm
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, "/settings", "Failed to add subject", err)
	}
	if _, err := s.deps.Grades.CreateSubject(reqCtx(ctx), data); err != nil {
		return s.fail(ctx, "/settings", "Failed to add subject", err)
	}
	return s.done(ctx, "/settings", "Subject added")
}
