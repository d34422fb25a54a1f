package web

import (
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/attendance"
	"github.com/trezcool/schoolhub/core/class"
	"github.com/trezcool/schoolhub/core/gradelevel"
	"github.com/trezcool/schoolhub/core/student"
)

type (
	attendanceRow struct {
		attendance.Record
		StudentName string
		GradeName   string
	}

	attendanceView struct {
		Date     string
		ClassID  string
		Search   string
		Status   string
		Stats    attendance.Stats
		Rows     []attendanceRow
		Students []student.Student
		Classes  []class.Class
		Statuses []string
	}
)

// attendanceFilters reads the date (today by default), class, search and status query params.
func attendanceFilters(ctx echo.Context) (date, classID, search, status string) {
	date = ctx.QueryParam("date")
	if _, err := time.Parse(core.DateLayout, date); err != nil {
		date = core.Today()
	}
	status = ctx.QueryParam("status")
	if status == "" {
		status = attendance.StatusAll
	}
	return date, ctx.QueryParam("class"), ctx.QueryParam("q"), status
}

func (s *Server) attendanceData(ctx echo.Context) (attendanceView, map[string]string, map[string]string, error) {
	c := reqCtx(ctx)
	var v attendanceView
	v.Date, v.ClassID, v.Search, v.Status = attendanceFilters(ctx)
	v.Statuses = []string{attendance.StatusAll, attendance.StatusPresent, attendance.StatusAbsent, attendance.StatusLate}

	records, err := s.deps.Attendance.Query(c, v.Date, v.ClassID)
	if err != nil {
		return v, nil, nil, err
	}
	students, err := s.deps.Students.Query(c)
	if err != nil {
		return v, nil, nil, err
	}
	levels, err := s.deps.Levels.Query(c)
	if err != nil {
		return v, nil, nil, err
	}
	if v.Classes, err = s.deps.Classes.Query(c); err != nil {
		return v, nil, nil, err
	}

	names := student.Names(students)
	grades := make(map[string]string, len(students))
	for _, st := range students {
		grades[st.ID] = gradelevel.Name(levels, st.GradeLevelID)
		if st.IsActive() {
			v.Students = append(v.Students, st)
		}
	}

	v.Stats = attendance.StatsOf(records)
	for _, r := range attendance.Filter(records, names, v.Search, v.Status) {
		v.Rows = append(v.Rows, attendanceRow{Record: r, StudentName: names[r.StudentID], GradeName: grades[r.StudentID]})
	}
	return v, names, grades, nil
}

func (s *Server) attendancePage(ctx echo.Context) error {
	v, _, _, err := s.attendanceData(ctx)
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "attendance", s.page(ctx, "Attendance", v))
}

func (s *Server) exportAttendance(ctx echo.Context) error {
	v, names, grades, err := s.attendanceData(ctx)
	if err != nil {
		return err
	}
	records := make([]attendance.Record, 0, len(v.Rows))
	for _, r := range v.Rows {
		records = append(records, r.Record)
	}
	return spreadsheet(ctx, "attendance-"+v.Date+".xlsx", func(w io.Writer) error {
		return attendance.Export(w, records, names, grades)
	})
}

func attendanceBack(ctx echo.Context) string {
	date := ctx.FormValue("date")
	if date == "" {
		return "/attendance"
	}
	return "/attendance?date=" + url.QueryEscape(date)
}

func (s *Server) markAttendance(ctx echo.Context) error {
	to := attendanceBack(ctx)
	var data attendance.Mark
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, to, "Failed to update attendance", err)
	}
	if _, err := s.deps.Attendance.Mark(reqCtx(ctx), data); err != nil {
		return s.fail(ctx, to, "Failed to update attendance", err)
	}
	return s.done(ctx, to, "Attendance updated")
}

func (s *Server) setAttendanceStatus(ctx echo.Context) error {
	to := attendanceBack(ctx)
	if _, err := s.deps.Attendance.SetStatus(reqCtx(ctx), ctx.Param("id"), ctx.FormValue("status")); err != nil {
		return s.fail(ctx, to, "Failed to update attendance", err)
	}
	return s.done(ctx, to, "Attendance updated")
}

func (s *Server) deleteAttendance(ctx echo.Context) error {
	to := attendanceBack(ctx)
	if err := s.deps.Attendance.Delete(reqCtx(ctx), ctx.Param("id")); err != nil {
		return s.fail(ctx, to, "Failed to update attendance", err)
	}
	return s.done(ctx, to, "Attendance updated")
}
