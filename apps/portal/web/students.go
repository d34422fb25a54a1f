package web

import (
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/gradelevel"
	"github.com/trezcool/schoolhub/core/student"
)

type (
	studentRow struct {
		student.Student
		GradeName string
	}

	studentsView struct {
		Search   string
		Total    int
		Active   int
		Students []studentRow
		Levels   []gradelevel.GradeLevel
		EditID   string
		Form     student.Form
	}
)

func (s *Server) studentsPage(ctx echo.Context) error {
	c := reqCtx(ctx)
	students, err := s.deps.Students.Query(c)
	if err != nil {
		return err
	}
	levels, err := s.deps.Levels.Query(c)
	if err != nil {
		return err
	}

	v := studentsView{Search: ctx.QueryParam("q"), Total: len(students), Levels: levels}
	for _, st := range students {
		if st.IsActive() {
			v.Active++
		}
	}
	for _, st := range student.Filter(students, v.Search) {
		v.Students = append(v.Students, studentRow{Student: st, GradeName: gradelevel.Name(levels, st.GradeLevelID)})
	}
	for _, st := range students {
		if st.ID == ctx.QueryParam("edit") {
			v.EditID, v.Form = st.ID, student.FormOf(st)
		}
	}
	return ctx.Render(http.StatusOK, "students", s.page(ctx, "Students", v))
}

func (s *Server) createStudent(ctx echo.Context) error {
	var data student.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, "/students", "Failed to enroll student", err)
	}
	if _, err := s.deps.Students.Create(reqCtx(ctx), data); err != nil {
		return s.fail(ctx, "/students", "Failed to enroll student", err)
	}
	return s.done(ctx, "/students", "Student enrolled successfully")
}

func (s *Server) updateStudent(ctx echo.Context) error {
	var data student.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, "/students", "Failed to update student", err)
	}
	if _, err := s.deps.Students.Update(reqCtx(ctx), ctx.Param("id"), data); err != nil {
		return s.fail(ctx, "/students", "Failed to update student", err)
	}
	return s.done(ctx, "/students", "Student updated successfully")
}

func (s *Server) deleteStudent(ctx echo.Context) error {
	if err := s.deps.Students.Delete(reqCtx(ctx), ctx.Param("id")); err != nil {
		return s.fail(ctx, "/students", "Failed to remove student", err)
	}
	return s.done(ctx, "/students", "Student removed")
}

func (s *Server) studentAvatar(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := s.deps.Students.Get(reqCtx(ctx), id); err != nil {
		return s.fail(ctx, "/students", "Failed to update student", err)
	}
	url, err := s.upload(ctx, "avatar", path.Join("avatars", "students", id))
	if err != nil {
		return s.fail(ctx, "/students", "Failed to update student", err)
	}
	if _, err := s.deps.Students.SetAvatar(reqCtx(ctx), id, url); err != nil {
		return s.fail(ctx, "/students", "Failed to update student", err)
	}
	return s.done(ctx, "/students", "Student updated successfully")
}

func (s *Server) importStudents(ctx echo.Context) error {
	f, err := openUpload(ctx, "file")
	if err != nil {
		return s.fail(ctx, "/students", "Failed to import students", err)
	}
	defer f.Close()

	n, err := s.deps.Students.Import(reqCtx(ctx), f)
	if err != nil {
		return s.fail(ctx, "/students", "Failed to import students", err)
	}
	return s.done(ctx, "/students", "Students imported", fmt.Sprintf("%d students enrolled from the spreadsheet.", n))
}

func (s *Server) exportStudents(ctx echo.Context) error {
	c := reqCtx(ctx)
	students, err := s.deps.Students.Query(c)
	if err != nil {
		return err
	}
	levels, err := s.deps.Levels.Query(c)
	if err != nil {
		return err
	}
	students = student.Filter(students, ctx.QueryParam("q"))
	return spreadsheet(ctx, "students-"+core.Today()+".xlsx", func(w io.Writer) error {
		return student.Export(w, students, levels)
	})
}
