package web

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/finance"
	"github.com/trezcool/schoolhub/core/student"
)

type (
	feeRow struct {
		finance.Fee
		StudentName string
	}

	financeView struct {
		Search   string
		Stats    finance.Stats
		Fees     []feeRow
		Students []student.Student
	}
)

func (s *Server) financeData(ctx echo.Context) ([]finance.Fee, map[string]string, []student.Student, error) {
	c := reqCtx(ctx)
	if _, err := s.deps.Finance.RefreshOverdue(c, core.Today()); err != nil {
		return nil, nil, nil, err
	}
	fees, err := s.deps.Finance.Query(c)
	if err != nil {
		return nil, nil, nil, err
	}
	students, err := s.deps.Students.Query(c)
	if err != nil {
		return nil, nil, nil, err
	}
	names := student.Names(students)
	return finance.Filter(fees, names, ctx.QueryParam("q")), names, students, nil
}

func (s *Server) financePage(ctx echo.Context) error {
	fees, names, students, err := s.financeData(ctx)
	if err != nil {
		return err
	}
	v := financeView{Search: ctx.QueryParam("q"), Stats: finance.StatsOf(fees), Students: students}
	for _, f := range fees {
		v.Fees = append(v.Fees, feeRow{Fee: f, StudentName: names[f.StudentID]})
	}
	return ctx.Render(http.StatusOK, "finance", s.page(ctx, "Finance", v))
}

func (s *Server) createFee(ctx echo.Context) error {
	var data finance.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, "/finance", "Failed to add payment record", err)
	}
	if _, err := s.deps.Finance.Create(reqCtx(ctx), data); err != nil {
		return s.fail(ctx, "/finance", "Failed to add payment record", err)
	}
	return s.done(ctx, "/finance", "Payment record added")
}

func (s *Server) markPaid(ctx echo.Context) error {
	if _, err := s.deps.Finance.MarkPaid(reqCtx(ctx), ctx.Param("id")); err != nil {
		return s.fail(ctx, "/finance", "Failed to mark as paid", err)
	}
	return s.done(ctx, "/finance", "Marked as paid")
}

func (s *Server) deleteFee(ctx echo.Context) error {
	if err := s.deps.Finance.Delete(reqCtx(ctx), ctx.Param("id")); err != nil {
		return s.fail(ctx, "/finance", "Failed to delete payment record", err)
	}
	return s.done(ctx, "/finance", "Payment record deleted")
}

func (s *Server) sendReminders(ctx echo.Context) error {
	n, err := s.deps.Finance.SendReminders(reqCtx(ctx))
	if err != nil {
		return s.fail(ctx, "/finance", "Failed to send reminders", err)
	}
	return s.done(ctx, "/finance", "Reminders sent", fmt.Sprintf("%d parents notified of overdue fees.", n))
}

func (s *Server) exportFees(ctx echo.Context) error {
	fees, names, _, err := s.financeData(ctx)
	if err != nil {
		return err
	}
	return spreadsheet(ctx, "fees-"+core.Today()+".xlsx", func(w io.Writer) error {
		return finance.Export(w, fees, names)
	})
}
