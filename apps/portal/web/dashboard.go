package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/dashboard"
)

type dashboardView struct {
	dashboard.Overview
	Greeting string
	Today    string
}

func (s *Server) dashboardPage(ctx echo.Context) error {
	ov, err := s.deps.Dashboard.Overview(reqCtx(ctx), account(ctx).ID)
	if err != nil {
		return err
	}
	now := core.NowFunc()
	return ctx.Render(http.StatusOK, "dashboard", s.page(ctx, "Dashboard", dashboardView{
		Overview: ov,
		Greeting: dashboard.Greeting(now),
		Today:    now.Format("Monday, January 2, 2006"),
	}))
}
