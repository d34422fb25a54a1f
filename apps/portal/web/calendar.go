package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhub/core/calendar"
)

type calendarView struct {
	Grid     calendar.Grid
	Weekdays []string
	Events   []calendar.Event
	EditID   string
	Form     calendar.Form
	Types    []string
}

func (s *Server) calendarPage(ctx echo.Context) error {
	year, month := calendar.ParseMonth(ctx.QueryParam("month"))
	events, err := s.deps.Calendar.Query(reqCtx(ctx), year, month)
	if err != nil {
		return err
	}
	v := calendarView{
		Grid:     calendar.Month(year, month, events),
		Weekdays: []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		Events:   events,
		Types:    calendar.EventTypes,
	}
	for _, e := range events {
		if e.ID == ctx.QueryParam("edit") {
			v.EditID, v.Form = e.ID, calendar.FormOf(e)
		}
	}
	return ctx.Render(http.StatusOK, "calendar", s.page(ctx, "Calendar", v))
}

// calendarBack returns to the month of the posted event date.
func calendarBack(ctx echo.Context) string {
	if d := ctx.FormValue("event_date"); len(d) >= 7 {
		return "/calendar?month=" + d[:7]
	}
	return "/calendar"
}

func (s *Server) createEvent(ctx echo.Context) error {
	to := calendarBack(ctx)
	var data calendar.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, to, "Failed to add event", err)
	}
	if _, err := s.deps.Calendar.Create(reqCtx(ctx), data); err != nil {
		return s.fail(ctx, to, "Failed to add event", err)
	}
	return s.done(ctx, to, "Event added successfully")
}

func (s *Server) updateEvent(ctx echo.Context) error {
	to := calendarBack(ctx)
	var data calendar.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, to, "Failed to update event", err)
	}
	if _, err := s.deps.Calendar.Update(reqCtx(ctx), ctx.Param("id"), data); err != nil {
		return s.fail(ctx, to, "Failed to update event", err)
	}
	return s.done(ctx, to, "Event updated successfully")
}

func (s *Server) deleteEvent(ctx echo.Context) error {
	to := calendarBack(ctx)
	if err := s.deps.Calendar.Delete(reqCtx(ctx), ctx.Param("id")); err != nil {
		return s.fail(ctx, to, "Failed to delete event", err)
	}
	s.addFlash(ctx, Flash{Kind: flashDestructive, Title: "Event deleted"})
	return ctx.Redirect(http.StatusSeeOther, to)
}
