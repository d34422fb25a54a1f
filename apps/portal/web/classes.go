package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/class"
	"github.com/trezcool/schoolhub/core/grade"
	"github.com/trezcool/schoolhub/core/gradelevel"
	"github.com/trezcool/schoolhub/core/student"
	"github.com/trezcool/schoolhub/core/teacher"
)

type (
	classesView struct {
		Search   string
		Total    int
		Classes  []class.Summary
		Teachers []teacher.Teacher
		Levels   []gradelevel.GradeLevel
		EditID   string
		Form     class.Form
	}

	classView struct {
		Class       class.Summary
		Roster      []student.Student
		Candidates  []student.Student
		Subjects    []grade.Subject
		Assignments []grade.Assignment
		Submissions []submissionRow
		Quarters    []string
	}

	submissionRow struct {
		grade.Submission
		Assignment string
		Student    string
	}

	gradingForm struct {
		Score    *float64 `form:"score"`
		Feedback string   `form:"feedback"`
	}
)

var errNoScore = core.NewValidationError(nil, core.FieldError{Field: "score", Error: "this field is required"})

func (s *Server) summaries(ctx echo.Context) ([]class.Summary, []teacher.Teacher, []gradelevel.GradeLevel, error) {
	c := reqCtx(ctx)
	classes, err := s.deps.Classes.Query(c)
	if err != nil {
		return nil, nil, nil, err
	}
	teachers, err := s.deps.Teachers.Query(c)
	if err != nil {
		return nil, nil, nil, err
	}
	levels, err := s.deps.Levels.Query(c)
	if err != nil {
		return nil, nil, nil, err
	}
	enrollments, err := s.deps.Classes.Enrollments(c)
	if err != nil {
		return nil, nil, nil, err
	}
	return class.Summarize(classes, teachers, levels, enrollments), teachers, levels, nil
}

func (s *Server) classesPage(ctx echo.Context) error {
	sums, teachers, levels, err := s.summaries(ctx)
	if err != nil {
		return err
	}
	v := classesView{
		Search:   ctx.QueryParam("q"),
		Total:    len(sums),
		Teachers: teachers,
		Levels:   levels,
	}
	v.Classes = class.Filter(sums, v.Search)
	for _, sum := range sums {
		if sum.ID == ctx.QueryParam("edit") {
			v.EditID, v.Form = sum.ID, class.FormOf(sum.Class)
		}
	}
	return ctx.Render(http.StatusOK, "classes", s.page(ctx, "Classes", v))
}

func (s *Server) classPage(ctx echo.Context) error {
	c := reqCtx(ctx)
	id := ctx.Param("id")

	sums, _, _, err := s.summaries(ctx)
	if err != nil {
		return err
	}
	v := classView{Quarters: []string{"Q1", "Q2", "Q3", "Q4"}}
	found := false
	for _, sum := range sums {
		if sum.ID == id {
			v.Class, found = sum, true
		}
	}
	if !found {
		return echo.ErrNotFound
	}

	if v.Roster, err = s.deps.Classes.Roster(c, id); err != nil {
		return err
	}
	all, err := s.deps.Students.Active(c)
	if err != nil {
		return err
	}
	enrolled := make(map[string]bool, len(v.Roster))
	for _, st := range v.Roster {
		enrolled[st.ID] = true
	}
	for _, st := range all {
		if !enrolled[st.ID] {
			v.Candidates = append(v.Candidates, st)
		}
	}

	if v.Subjects, err = s.deps.Grades.Subjects(c); err != nil {
		return err
	}
	assignments, err := s.deps.Grades.Assignments(c)
	if err != nil {
		return err
	}
	titles := make(map[string]string)
	for _, a := range assignments {
		if a.ClassID == id {
			v.Assignments = append(v.Assignments, a)
			titles[a.ID] = a.Title
		}
	}

	subs, err := s.deps.Grades.ClassSubmissions(c, id)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(all)+len(v.Roster))
	for _, st := range append(all, v.Roster...) {
		names[st.ID] = st.FullName()
	}
	for _, sub := range subs {
		v.Submissions = append(v.Submissions, submissionRow{Submission: sub, Assignment: titles[sub.AssignmentID], Student: names[sub.StudentID]})
	}
	return ctx.Render(http.StatusOK, "class", s.page(ctx, v.Class.Name, v))
}

func (s *Server) createClass(ctx echo.Context) error {
	var data class.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, "/classes", "Failed to create class", err)
	}
	if _, err := s.deps.Classes.Create(reqCtx(ctx), data); err != nil {
		return s.fail(ctx, "/classes", "Failed to create class", err)
	}
	return s.done(ctx, "/classes", "Class created successfully")
}

func (s *Server) updateClass(ctx echo.Context) error {
	var data class.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, "/classes", "Failed to update class", err)
	}
	if _, err := s.deps.Classes.Update(reqCtx(ctx), ctx.Param("id"), data); err != nil {
		return s.fail(ctx, "/classes", "Failed to update class", err)
	}
	return s.done(ctx, "/classes", "Class updated successfully")
}

func (s *Server) deleteClass(ctx echo.Context) error {
	if err := s.deps.Classes.Delete(reqCtx(ctx), ctx.Param("id")); err != nil {
		return s.fail(ctx, "/classes", "Failed to delete class", err)
	}
	return s.done(ctx, "/classes", "Class deleted")
}

func (s *Server) enroll(ctx echo.Context) error {
	to := "/classes/" + ctx.Param("id")
	if _, err := s.deps.Classes.Enroll(reqCtx(ctx), ctx.Param("id"), ctx.FormValue("student_id")); err != nil {
		return s.fail(ctx, to, "Failed to enroll student", err)
	}
	return s.done(ctx, to, "Student added to class")
}

func (s *Server) unenroll(ctx echo.Context) error {
	to := "/classes/" + ctx.Param("id")
	if err := s.deps.Classes.Unenroll(reqCtx(ctx), ctx.Param("id"), ctx.FormValue("student_id")); err != nil {
		return s.fail(ctx, to, "Failed to remove student from class", err)
	}
	return s.done(ctx, to, "Student removed from class")
}

func (s *Server) recordGrade(ctx echo.Context) error {
	to := "/classes/" + ctx.Param("id")
	var data grade.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, to, "Failed to record grade", err)
	}
	data.ClassID = ctx.Param("id")
	if _, err := s.deps.Grades.Record(reqCtx(ctx), data); err != nil {
		return s.fail(ctx, to, "Failed to record grade", err)
	}
	return s.done(ctx, to, "Grade recorded")
}

func (s *Server) createAssignment(ctx echo.Context) error {
	to := "/classes/" + ctx.Param("id")
	var data grade.AssignmentForm
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, to, "Failed to create assignment", err)
	}
	data.ClassID = ctx.Param("id")
	if _, err := s.deps.Grades.CreateAssignment(reqCtx(ctx), data); err != nil {
		return s.fail(ctx, to, "Failed to create assignment", err)
	}
	return s.done(ctx, to, "Assignment created")
}

func (s *Server) gradeSubmission(ctx echo.Context) error {
	c := reqCtx(ctx)
	id, sid := ctx.Param("id"), ctx.Param("sid")
	to := "/classes/" + id

	var data gradingForm
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, to, "Failed to grade submission", err)
	}
	if data.Score == nil {
		return s.fail(ctx, to, "Failed to grade submission", errNoScore)
	}

	subs, err := s.deps.Grades.ClassSubmissions(c, id)
	if err != nil {
		return s.fail(ctx, to, "Failed to grade submission", err)
	}
	found := false
	for _, sub := range subs {
		found = found || sub.ID == sid
	}
	if !found {
		return s.fail(ctx, to, "Failed to grade submission", core.ErrNotFound)
	}

	if _, err := s.deps.Grades.Grade(c, sid, *data.Score, data.Feedback); err != nil {
		return s.fail(ctx, to, "Failed to grade submission", err)
	}
	return s.done(ctx, to, "Submission graded")
}
