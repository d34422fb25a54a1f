package grade_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/class"
	"github.com/trezcool/schoolhub/core/grade"
	"github.com/trezcool/schoolhub/storage/inmem"
)

func score(f float64) *float64 { return &f }

func TestLetter(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "A+"}, {97, "A+"}, {96.9, "A"}, {93, "A"}, {90, "A-"}, {87, "B+"}, {83, "B"},
		{80, "B-"}, {77, "C+"}, {73, "C"}, {70, "C-"}, {69.5, "D"}, {60, "D"}, {59.9, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, grade.Letter(tt.score), "score %v", tt.score)
	}
}

func TestAverageAndGPA(t *testing.T) {
	grades := []grade.Grade{
		{SubjectID: "math", Score: null.Float64From(92)},
		{SubjectID: "sci", Score: null.Float64From(88)},
		{SubjectID: "art", GradeLetter: null.StringFrom("A+")},
		{SubjectID: "math", Score: null.Float64From(96)},
	}
	avg, ok := grade.Average(grades)
	assert.True(t, ok)
	assert.InDelta(t, 92.0, avg, 1e-9)

	_, ok = grade.Average(grades[2:3])
	assert.False(t, ok)

	// A- (3.7), B+ (3.3), A+ (4.0), A (4.0)
	assert.Equal(t, 3.8, grade.GPA(grades))
	assert.Zero(t, grade.GPA(nil))

	results := grade.Results(grades, []grade.Subject{{ID: "math", Name: "Mathematics"}, {ID: "sci", Name: "Science"}, {ID: "art", Name: "Art"}})
	require.Len(t, results, 3)
	assert.Equal(t, grade.SubjectResult{SubjectID: "art", Subject: "Art", Letter: "A+"}, results[0])
	assert.Equal(t, grade.SubjectResult{SubjectID: "math", Subject: "Mathematics", Percent: 94, Letter: "A"}, results[1])
	assert.Equal(t, grade.SubjectResult{SubjectID: "sci", Subject: "Science", Percent: 88, Letter: "B+"}, results[2])
}

func TestService_Record(t *testing.T) {
	svc := grade.NewService(inmem.Open())
	ctx := core.WithUserID(context.Background(), "teacher-1")

	_, err := svc.Record(ctx, grade.Form{StudentID: "s1", SubjectID: "math", Quarter: "Q1"})
	assert.Equal(t, map[string]string{"score": "enter a score or a grade letter"}, core.FieldErrors(err))

	_, err = svc.Record(ctx, grade.Form{StudentID: "s1", SubjectID: "math", Quarter: "Q5", Score: score(101)})
	assert.Len(t, core.FieldErrors(err), 2)

	_, err = svc.Record(ctx, grade.Form{StudentID: "s1", SubjectID: "math", Quarter: "Q1", GradeLetter: "Z"})
	assert.Equal(t, map[string]string{"grade_letter": "invalid grade letter"}, core.FieldErrors(err))

	g, err := svc.Record(ctx, grade.Form{StudentID: "s1", SubjectID: "math", Quarter: "Q1", Score: score(91)})
	require.NoError(t, err)
	assert.Equal(t, "A-", g.GradeLetter.String)
	assert.Equal(t, "teacher-1", g.RecordedBy.String)

	again, err := svc.Record(ctx, grade.Form{StudentID: "s1", SubjectID: "math", Quarter: "Q1", Score: score(98), Remarks: "retake"})
	require.NoError(t, err)
	assert.Equal(t, g.ID, again.ID)
	assert.Equal(t, "A+", again.GradeLetter.String)

	_, err = svc.Record(ctx, grade.Form{StudentID: "s1", SubjectID: "math", Quarter: "Q2", Score: score(80), GradeLetter: "B"})
	require.NoError(t, err)

	grades, err := svc.ForStudents(ctx, "s1")
	require.NoError(t, err)
	if assert.Len(t, grades, 2) {
		assert.Equal(t, "Q1", grades[0].Quarter)
		assert.Equal(t, "B", grades[1].LetterOf())
	}
	all, err := svc.Query(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_Homework(t *testing.T) {
	db := inmem.Open()
	svc := grade.NewService(db)
	classes := class.NewService(db)
	ctx := context.Background()

	math, err := svc.CreateSubject(ctx, grade.SubjectForm{Name: "Mathematics", Code: "MATH"})
	require.NoError(t, err)
	c, err := classes.Create(ctx, class.Form{Name: "5A"})
	require.NoError(t, err)
	other, err := classes.Create(ctx, class.Form{Name: "6B"})
	require.NoError(t, err)
	_, err = classes.Enroll(ctx, c.ID, "s1")
	require.NoError(t, err)

	_, err = svc.CreateAssignment(ctx, grade.AssignmentForm{ClassID: c.ID, Title: "Late", DueDate: "bad"})
	assert.Equal(t, map[string]string{"due_date": "must be a date (YYYY-MM-DD)"}, core.FieldErrors(err))

	set5, err := svc.CreateAssignment(ctx, grade.AssignmentForm{ClassID: c.ID, SubjectID: math.ID, Title: "Problem Set #5", DueDate: "2026-01-08"})
	require.NoError(t, err)
	lab, err := svc.CreateAssignment(ctx, grade.AssignmentForm{ClassID: c.ID, Title: "Lab Report", DueDate: "2026-01-10"})
	require.NoError(t, err)
	_, err = svc.CreateAssignment(ctx, grade.AssignmentForm{ClassID: other.ID, Title: "Not mine", DueDate: "2026-01-09"})
	require.NoError(t, err)

	sub, err := svc.Submit(ctx, set5.ID, "s1")
	require.NoError(t, err)
	assert.Equal(t, grade.StatusSubmitted, sub.Status)
	assert.True(t, sub.SubmittedAt.Valid)
	_, err = svc.Submit(ctx, "nope", "s1")
	assert.True(t, core.IsNotFound(err))

	graded, err := svc.Grade(ctx, sub.ID, 18, "good")
	require.NoError(t, err)
	assert.Equal(t, grade.StatusGraded, graded.Status)

	_, err = svc.Grade(ctx, sub.ID, -1, "")
	assert.Equal(t, map[string]string{"score": "score must be 0 or greater"}, core.FieldErrors(err))
	_, err = svc.Grade(ctx, "nope", 10, "")
	assert.True(t, core.IsNotFound(err))

	inClass, err := svc.ClassSubmissions(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, inClass, 1)
	assert.Equal(t, sub.ID, inClass[0].ID)
	assert.Equal(t, null.Float64From(18), inClass[0].Score)
	assert.Equal(t, null.StringFrom("good"), inClass[0].Feedback)
	inOther, err := svc.ClassSubmissions(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, inOther)

	homework, err := svc.Homework(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, homework, 2)
	assert.Equal(t, "Problem Set #5", homework[0].Title)
	assert.Equal(t, "Mathematics", homework[0].Subject)
	assert.Equal(t, grade.StatusGraded, homework[0].Status)
	assert.Equal(t, lab.ID, homework[1].ID)
	assert.Equal(t, grade.StatusPending, homework[1].Status)
	assert.True(t, homework[1].IsLate("2026-01-11"))
	assert.False(t, homework[0].IsLate("2026-01-11"))

	none, err := svc.Homework(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, none)

	subs, err := svc.Submissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, grade.CompletionRate(subs))
	assignments, err := svc.Assignments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 67, grade.Progress(assignments, "2026-01-10"))
}
