package web

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhub/core/record"
	"github.com/trezcool/schoolhub/core/report"
	"github.com/trezcool/schoolhub/core/student"
)

type recordsView struct {
	Search   string
	Total    int
	Complete int
	Pending  int
	Records  []record.Entry
	Students []student.Student
	Types    []string
}

func (s *Server) reportsPage(ctx echo.Context) error {
	reports, err := s.deps.Reports.Catalogue(reqCtx(ctx))
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "reports", s.page(ctx, "Reports", reports))
}

func (s *Server) generateReport(ctx echo.Context) error {
	r, err := report.Lookup(ctx.Param("id"))
	if err != nil {
		return echo.ErrNotFound
	}
	return spreadsheet(ctx, r.Filename(), func(w io.Writer) error {
		_, err := s.deps.Reports.Generate(reqCtx(ctx), r.ID, w)
		return err
	})
}

func (s *Server) recordsPage(ctx echo.Context) error {
	c := reqCtx(ctx)
	entries, err := s.deps.Records.Query(c)
	if err != nil {
		return err
	}
	students, err := s.deps.Students.Query(c)
	if err != nil {
		return err
	}
	v := recordsView{
		Search:   ctx.QueryParam("q"),
		Total:    len(entries),
		Students: students,
		Types:    record.Types,
	}
	for _, e := range entries {
		if e.IsComplete() {
			v.Complete++
		} else {
			v.Pending++
		}
	}
	v.Records = record.Filter(entries, v.Search)
	return ctx.Render(http.StatusOK, "records", s.page(ctx, "Records", v))
}

func (s *Server) requestRecord(ctx echo.Context) error {
	var data record.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, "/records", "Failed to request record", err)
	}
	if _, err := s.deps.Records.Request(reqCtx(ctx), data); err != nil {
		return s.fail(ctx, "/records", "Failed to request record", err)
	}
	return s.done(ctx, "/records", "Record requested")
}

func (s *Server) recordDocument(ctx echo.Context) error {
	rec, err := s.deps.Records.Get(reqCtx(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	filename := fmt.Sprintf("%s-%s.xlsx", rec.RecordType, rec.CreatedAt.Format("20060102"))
	return spreadsheet(ctx, filename, func(w io.Writer) error {
		_, err := s.deps.Records.Document(reqCtx(ctx), rec.ID, w)
		return err
	})
}
