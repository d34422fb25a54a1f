package report_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/attendance"
	"github.com/trezcool/schoolhub/core/class"
	"github.com/trezcool/schoolhub/core/finance"
	"github.com/trezcool/schoolhub/core/grade"
	"github.com/trezcool/schoolhub/core/gradelevel"
	"github.com/trezcool/schoolhub/core/report"
	"github.com/trezcool/schoolhub/core/settings"
	"github.com/trezcool/schoolhub/core/sheet"
	"github.com/trezcool/schoolhub/core/student"
	"github.com/trezcool/schoolhub/core/teacher"
	emailsvc "github.com/trezcool/schoolhub/services/email"
	logsvc "github.com/trezcool/schoolhub/services/logger"
	"github.com/trezcool/schoolhub/storage/inmem"
)

type fixture struct {
	svc        *report.Service
	students   *student.Service
	levels     *gradelevel.Service
	teachers   *teacher.Service
	classes    *class.Service
	attendance *attendance.Service
	grades     *grade.Service
	finance    *finance.Service
}

func setup() fixture {
	conf := core.NewTestConfig()
	logger := logsvc.NewTestLogger(conf)
	db := inmem.Open()
	f := fixture{
		students:   student.NewService(db),
		levels:     gradelevel.NewService(db),
		teachers:   teacher.NewService(db),
		classes:    class.NewService(db),
		attendance: attendance.NewService(db),
		grades:     grade.NewService(db),
		finance:    finance.NewService(db, settings.NewService(db), emailsvc.NewConsoleServiceMock(conf, logger), logger),
	}
	f.svc = report.NewService(db, f.students, f.levels, f.teachers, f.classes, f.attendance, f.grades, f.finance)
	return f
}

func generate(t *testing.T, f fixture, id, sheetName string) [][]string {
	t.Helper()
	var buf bytes.Buffer
	_, err := f.svc.Generate(context.Background(), id, &buf)
	require.NoError(t, err)
	rows, err := sheet.ReadSheet(&buf, sheetName)
	require.NoError(t, err)
	return rows
}

func score(v float64) *float64 { return &v }

func TestService_Catalogue(t *testing.T) {
	f := setup()
	ctx := context.Background()

	reports, err := f.svc.Catalogue(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 6)
	assert.Equal(t, "Student Enrollment Report", reports[0].Title)
	assert.Equal(t, "Room Utilization", reports[5].Title)
	for _, r := range reports {
		assert.False(t, r.LastGenerated.Valid)
	}

	var buf bytes.Buffer
	generated, err := f.svc.Generate(ctx, report.TeacherWorkload, &buf)
	require.NoError(t, err)
	assert.Equal(t, core.Today(), generated.LastGenerated.String)

	reports, err = f.svc.Catalogue(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Today(), reports[4].LastGenerated.String)
	assert.False(t, reports[0].LastGenerated.Valid)

	_, err = f.svc.Generate(ctx, "nope", &buf)
	assert.True(t, core.IsNotFound(err))
}

func TestService_Generate(t *testing.T) {
	f := setup()
	ctx := context.Background()

	g5, err := f.levels.Create(ctx, gradelevel.Form{Name: "Grade 5"})
	require.NoError(t, err)
	alex, err := f.students.Create(ctx, student.Form{FirstName: "Alex", LastName: "Johnson", Gender: "male", GradeLevelID: g5.ID})
	require.NoError(t, err)
	emma, err := f.students.Create(ctx, student.Form{FirstName: "Emma", LastName: "Wilson", Gender: "female"})
	require.NoError(t, err)

	grace, err := f.teachers.Create(ctx, teacher.Form{FirstName: "Grace", LastName: "Hopper", Email: "grace@school.test", Subject: "Mathematics"})
	require.NoError(t, err)
	capacity := 4
	c, err := f.classes.Create(ctx, class.Form{Name: "5A", TeacherID: grace.ID, Room: "101", Capacity: &capacity})
	require.NoError(t, err)
	for _, s := range []student.Student{alex, emma} {
		_, err := f.classes.Enroll(ctx, c.ID, s.ID)
		require.NoError(t, err)
	}

	for _, m := range []attendance.Mark{
		{StudentID: alex.ID, Date: "2026-01-05", Status: "present"},
		{StudentID: emma.ID, Date: "2026-01-05", Status: "absent"},
		{StudentID: alex.ID, Date: "2026-02-02", Status: "late"},
	} {
		_, err := f.attendance.Mark(ctx, m)
		require.NoError(t, err)
	}

	math, err := f.grades.CreateSubject(ctx, grade.SubjectForm{Name: "Mathematics"})
	require.NoError(t, err)
	_, err = f.grades.Record(ctx, grade.Form{StudentID: alex.ID, SubjectID: math.ID, Quarter: "Q1", Score: score(90)})
	require.NoError(t, err)
	_, err = f.grades.Record(ctx, grade.Form{StudentID: emma.ID, SubjectID: math.ID, Quarter: "Q1", Score: score(50)})
	require.NoError(t, err)

	fee, err := f.finance.Create(ctx, finance.Form{StudentID: alex.ID, Description: "Tuition", Amount: 300, DueDate: "2999-01-01"})
	require.NoError(t, err)
	_, err = f.finance.Create(ctx, finance.Form{StudentID: emma.ID, Description: "Tuition", Amount: 100, DueDate: "2999-01-01"})
	require.NoError(t, err)
	_, err = f.finance.MarkPaid(ctx, fee.ID)
	require.NoError(t, err)

	t.Run("enrollment", func(t *testing.T) {
		rows := generate(t, f, report.StudentEnrollment, "Enrollment")
		assert.Equal(t, [][]string{
			{"Grade Level", "Students", "Active", "Male", "Female"},
			{"Grade 5", "1", "1", "1", "0"},
			{"Unassigned", "1", "1", "0", "1"},
			{"Total", "2", "2", "1", "1"},
		}, rows)
	})

	t.Run("attendance", func(t *testing.T) {
		rows := generate(t, f, report.AttendanceSummary, "Attendance")
		assert.Equal(t, [][]string{
			{"Month", "Present", "Absent", "Late", "Total", "Attendance Rate (%)"},
			{"2026-01", "1", "1", "0", "2", "50"},
			{"2026-02", "0", "0", "1", "1", "0"},
		}, rows)
	})

	t.Run("performance", func(t *testing.T) {
		rows := generate(t, f, report.AcademicPerformance, "Subjects")
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"Mathematics", "2", "70", "C-", "1.9"}, rows[1])

		var buf bytes.Buffer
		_, err := f.svc.Generate(ctx, report.AcademicPerformance, &buf)
		require.NoError(t, err)
		perf, err := sheet.ReadSheet(&buf, "Performance")
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{"Bucket", "Students", "Percent"},
			{"At Risk", "1", "50"},
			{"Average", "0", "0"},
			{"High", "1", "50"},
		}, perf)
	})

	t.Run("financial", func(t *testing.T) {
		rows := generate(t, f, report.Financial, "Summary")
		assert.Equal(t, [][]string{
			{"Metric", "Value"},
			{"Total Received", "300"},
			{"Pending", "100"},
			{"Overdue", "0"},
			{"Collection Rate (%)", "75"},
		}, rows)
	})

	t.Run("workload", func(t *testing.T) {
		rows := generate(t, f, report.TeacherWorkload, "Workload")
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"Grace Hopper", "Mathematics", "active", "1", "2", "5A"}, rows[1])
	})

	t.Run("rooms", func(t *testing.T) {
		rows := generate(t, f, report.RoomUtilization, "Rooms")
		assert.Equal(t, [][]string{
			{"Room", "Classes", "Students", "Capacity", "Utilization (%)"},
			{"101", "1", "2", "4", "50"},
		}, rows)
	})
}
