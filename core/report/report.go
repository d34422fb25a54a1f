// Package report renders the downloadable school reports.
package report

import (
	"context"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/attendance"
	"github.com/trezcool/schoolhub/core/class"
	"github.com/trezcool/schoolhub/core/dashboard"
	"github.com/trezcool/schoolhub/core/finance"
	"github.com/trezcool/schoolhub/core/grade"
	"github.com/trezcool/schoolhub/core/gradelevel"
	"github.com/trezcool/schoolhub/core/sheet"
	"github.com/trezcool/schoolhub/core/student"
	"github.com/trezcool/schoolhub/core/teacher"
)

// RunsTable keeps when each report was last generated.
const RunsTable = "report_runs"

const (
	StudentEnrollment   = "student-enrollment"
	AttendanceSummary   = "attendance-summary"
	AcademicPerformance = "academic-performance"
	Financial           = "financial"
	TeacherWorkload     = "teacher-workload"
	RoomUtilization     = "room-utilization"
)

type Report struct {
	ID            string
	Title         string
	Description   string
	LastGenerated null.String
}

// Filename is the download name of the workbook.
func (r Report) Filename() string {
	return r.ID + "-" + core.Today() + ".xlsx"
}

var catalogue = []Report{
	{ID: StudentEnrollment, Title: "Student Enrollment Report", Description: "Overview of student enrollment by grade level"},
	{ID: AttendanceSummary, Title: "Attendance Summary", Description: "Monthly attendance statistics and trends"},
	{ID: AcademicPerformance, Title: "Academic Performance", Description: "Grade distribution and performance metrics"},
	{ID: Financial, Title: "Financial Report", Description: "Fee collection and payment status overview"},
	{ID: TeacherWorkload, Title: "Teacher Workload", Description: "Class assignments and teaching hours"},
	{ID: RoomUtilization, Title: "Room Utilization", Description: "Classroom usage and availability"},
}

// Run is a row of the report_runs table.
type Run struct {
	ID          string      `db:"id" json:"id"`
	ReportID    string      `db:"report_id" json:"report_id"`
	GeneratedBy null.String `db:"generated_by" json:"generated_by"`
	GeneratedAt time.Time   `db:"generated_at" json:"generated_at"`
}

type Service struct {
	store      core.Store
	students   *student.Service
	levels     *gradelevel.Service
	teachers   *teacher.Service
	classes    *class.Service
	attendance *attendance.Service
	grades     *grade.Service
	finance    *finance.Service
}

func NewService(
	store core.Store,
	students *student.Service,
	levels *gradelevel.Service,
	teachers *teacher.Service,
	classes *class.Service,
	attendanceSvc *attendance.Service,
	grades *grade.Service,
	financeSvc *finance.Service,
) *Service {
	return &Service{
		store:      store,
		students:   students,
		levels:     levels,
		teachers:   teachers,
		classes:    classes,
		attendance: attendanceSvc,
		grades:     grades,
		finance:    financeSvc,
	}
}

// Catalogue lists the reports with the day each one was last generated.
func (svc *Service) Catalogue(ctx context.Context) ([]Report, error) {
	var runs []Run
	if err := svc.store.Select(ctx, RunsTable, core.Query{}.OrderBy(core.Asc("generated_at")), &runs); err != nil {
		return nil, errors.Wrap(err, "selecting report runs")
	}
	last := make(map[string]time.Time, len(runs))
	for _, r := range runs {
		last[r.ReportID] = r.GeneratedAt
	}

	reports := make([]Report, len(catalogue))
	copy(reports, catalogue)
	for i := range reports {
		if t, ok := last[reports[i].ID]; ok {
			reports[i].LastGenerated = null.StringFrom(t.Format(core.DateLayout))
		}
	}
	return reports, nil
}

// Lookup returns the catalogue entry id, or core.ErrNotFound.
func Lookup(id string) (Report, error) {
	for _, r := range catalogue {
		if r.ID == id {
			return r, nil
		}
	}
	return Report{}, errors.Wrapf(core.ErrNotFound, "report %q", id)
}

// Generate writes the XLSX workbook of report id to w and records the run.
func (svc *Service) Generate(ctx context.Context, id string, w io.Writer) (Report, error) {
	r, err := Lookup(id)
	if err != nil {
		return r, err
	}

	var book *sheet.Book
	switch id {
	case StudentEnrollment:
		book, err = svc.enrollment(ctx)
	case AttendanceSummary:
		book, err = svc.attendanceSummary(ctx)
	case AcademicPerformance:
		book, err = svc.performance(ctx)
	case Financial:
		book, err = svc.financial(ctx)
	case TeacherWorkload:
		book, err = svc.workload(ctx)
	case RoomUtilization:
		book, err = svc.rooms(ctx)
	}
	if err != nil {
		return r, errors.Wrapf(err, "building %s", r.Title)
	}
	if err := book.Write(w); err != nil {
		return r, err
	}

	run := Run{
		ID:          uuid.NewString(),
		ReportID:    id,
		GeneratedBy: core.NullString(core.UserID(ctx)),
		GeneratedAt: core.NowFunc().UTC(),
	}
	if err := svc.store.Insert(ctx, RunsTable, run, nil); err != nil {
		return r, errors.Wrap(err, "inserting report run")
	}
	r.LastGenerated = null.StringFrom(run.GeneratedAt.Format(core.DateLayout))
	return r, nil
}

func (svc *Service) enrollment(ctx context.Context) (*sheet.Book, error) {
	students, err := svc.students.Query(ctx)
	if err != nil {
		return nil, err
	}
	levels, err := svc.levels.Query(ctx)
	if err != nil {
		return nil, err
	}

	type row struct{ total, active, male, female int }
	perLevel := make(map[string]*row)
	for _, s := range students {
		name := gradelevel.Name(levels, s.GradeLevelID)
		r, ok := perLevel[name]
		if !ok {
			r = new(row)
			perLevel[name] = r
		}
		r.total++
		if s.IsActive() {
			r.active++
		}
		switch s.Gender.String {
		case "male":
			r.male++
		case "female":
			r.female++
		}
	}

	book := new(sheet.Book)
	t := book.Sheet("Enrollment", "Grade Level", "Students", "Active", "Male", "Female")
	names := make([]string, 0, len(levels)+1)
	for _, gl := range levels {
		names = append(names, gl.Name)
	}
	names = append(names, "Unassigned")
	for _, name := range names {
		if r, ok := perLevel[name]; ok {
			t.Append(name, r.total, r.active, r.male, r.female)
		}
	}
	gr := dashboard.GenderOf(students)
	t.Append("Total", len(students), countActive(students), gr.Male, gr.Female)
	return book, nil
}

func countActive(students []student.Student) int {
	var n int
	for _, s := range students {
		if s.IsActive() {
			n++
		}
	}
	return n
}

func (svc *Service) attendanceSummary(ctx context.Context) (*sheet.Book, error) {
	records, err := svc.attendance.Query(ctx, "", "")
	if err != nil {
		return nil, err
	}
	perMonth := make(map[string][]attendance.Record)
	for _, r := range records {
		if len(r.Date) >= 7 {
			perMonth[r.Date[:7]] = append(perMonth[r.Date[:7]], r)
		}
	}
	months := make([]string, 0, len(perMonth))
	for m := range perMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	book := new(sheet.Book)
	t := book.Sheet("Attendance", "Month", "Present", "Absent", "Late", "Total", "Attendance Rate (%)")
	for _, m := range months {
		s := attendance.StatsOf(perMonth[m])
		t.Append(m, s.Present, s.Absent, s.Late, s.Total, s.PresentPercent())
	}
	return book, nil
}

func (svc *Service) performance(ctx context.Context) (*sheet.Book, error) {
	grades, err := svc.grades.Query(ctx)
	if err != nil {
		return nil, err
	}
	subjects, err := svc.grades.Subjects(ctx)
	if err != nil {
		return nil, err
	}

	perSubject := make(map[string][]grade.Grade)
	for _, g := range grades {
		perSubject[g.SubjectID] = append(perSubject[g.SubjectID], g)
	}
	book := new(sheet.Book)
	t := book.Sheet("Subjects", "Subject", "Grades", "Average Score", "Letter", "GPA")
	for _, r := range grade.Results(grades, subjects) {
		var avg interface{}
		if a, ok := grade.Average(perSubject[r.SubjectID]); ok {
			avg = math.Round(a*10) / 10
		}
		name := r.Subject
		if name == "" {
			name = r.SubjectID
		}
		t.Append(name, len(perSubject[r.SubjectID]), avg, r.Letter, grade.GPA(perSubject[r.SubjectID]))
	}

	letters := make(map[string]int)
	for _, g := range grades {
		if l := g.LetterOf(); l != "" {
			letters[l]++
		}
	}
	dist := book.Sheet("Distribution", "Letter", "Count")
	for _, l := range grade.Letters {
		dist.Append(l, letters[l])
	}

	high, avg, risk := dashboard.Buckets(grades)
	buckets := book.Sheet("Performance", "Bucket", "Students", "Percent")
	for _, seg := range core.Donut(risk, avg, high) {
		buckets.Append(seg.Label, seg.Count, seg.Percent)
	}
	return book, nil
}

func (svc *Service) financial(ctx context.Context) (*sheet.Book, error) {
	if _, err := svc.finance.RefreshOverdue(ctx, core.Today()); err != nil {
		return nil, err
	}
	fees, err := svc.finance.Query(ctx)
	if err != nil {
		return nil, err
	}
	students, err := svc.students.Query(ctx)
	if err != nil {
		return nil, err
	}

	stats := finance.StatsOf(fees)
	book := new(sheet.Book)
	summary := book.Sheet("Summary", "Metric", "Value")
	summary.Append("Total Received", stats.Received)
	summary.Append("Pending", stats.Pending)
	summary.Append("Overdue", stats.Overdue)
	summary.Append("Collection Rate (%)", stats.CollectionRate())
	book.Tables = append(book.Tables, finance.Sheet(fees, student.Names(students)))
	return book, nil
}

func (svc *Service) summaries(ctx context.Context) ([]class.Summary, error) {
	classes, err := svc.classes.Query(ctx)
	if err != nil {
		return nil, err
	}
	teachers, err := svc.teachers.Query(ctx)
	if err != nil {
		return nil, err
	}
	levels, err := svc.levels.Query(ctx)
	if err != nil {
		return nil, err
	}
	enrollments, err := svc.classes.Enrollments(ctx)
	if err != nil {
		return nil, err
	}
	return class.Summarize(classes, teachers, levels, enrollments), nil
}

func (svc *Service) workload(ctx context.Context) (*sheet.Book, error) {
	teachers, err := svc.teachers.Query(ctx)
	if err != nil {
		return nil, err
	}
	summaries, err := svc.summaries(ctx)
	if err != nil {
		return nil, err
	}

	type load struct {
		classes  []string
		students int
	}
	perTeacher := make(map[string]*load)
	for _, s := range summaries {
		if !s.TeacherID.Valid {
			continue
		}
		l, ok := perTeacher[s.TeacherID.String]
		if !ok {
			l = new(load)
			perTeacher[s.TeacherID.String] = l
		}
		l.classes = append(l.classes, s.Name)
		l.students += s.StudentCount
	}

	book := new(sheet.Book)
	t := book.Sheet("Workload", "Teacher", "Subject", "Status", "Classes", "Students", "Class Names")
	for _, tc := range teachers {
		l := perTeacher[tc.ID]
		if l == nil {
			l = new(load)
		}
		sort.Strings(l.classes)
		t.Append(tc.FullName(), tc.Subject.String, tc.Status, len(l.classes), l.students, strings.Join(l.classes, ", "))
	}
	return book, nil
}

func (svc *Service) rooms(ctx context.Context) (*sheet.Book, error) {
	summaries, err := svc.summaries(ctx)
	if err != nil {
		return nil, err
	}

	type usage struct {
		classes, students, capacity int
	}
	perRoom := make(map[string]*usage)
	classes := make([]class.Class, 0, len(summaries))
	for _, s := range summaries {
		classes = append(classes, s.Class)
		if !s.Room.Valid || s.Room.String == "" {
			continue
		}
		u, ok := perRoom[s.Room.String]
		if !ok {
			u = new(usage)
			perRoom[s.Room.String] = u
		}
		u.classes++
		u.students += s.StudentCount
		if s.Capacity.Valid {
			u.capacity += s.Capacity.Int
		}
	}

	book := new(sheet.Book)
	t := book.Sheet("Rooms", "Room", "Classes", "Students", "Capacity", "Utilization (%)")
	for _, room := range class.Rooms(classes) {
		u := perRoom[room]
		t.Append(room, u.classes, u.students, u.capacity, core.Percent(u.students, u.capacity))
	}
	return book, nil
}
