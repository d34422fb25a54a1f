package student_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/gradelevel"
	"github.com/trezcool/schoolhub/core/sheet"
	"github.com/trezcool/schoolhub/core/student"
	"github.com/trezcool/schoolhub/storage/inmem"
)

func setup(t *testing.T) (*student.Service, *gradelevel.Service) {
	db := inmem.Open()
	return student.NewService(db), gradelevel.NewService(db)
}

func TestService_Create(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	s, err := svc.Create(ctx, student.Form{FirstName: "Ada", LastName: "Lovelace", Email: "ADA@school.test", Gender: "Female"})
	require.NoError(t, err)
	assert.Regexp(t, `^STU-[0-9A-Z]+$`, s.StudentID)
	assert.Equal(t, "ada@school.test", s.Email.String)
	assert.Equal(t, "female", s.Gender.String)
	assert.False(t, s.Phone.Valid, "blank phone must be stored as null")
	assert.False(t, s.GradeLevelID.Valid)
	assert.Equal(t, student.StatusActive, s.Status)
	assert.Equal(t, core.Today(), s.EnrollmentDate)

	_, err = svc.Create(ctx, student.Form{FirstName: "X", Email: "nope", DateOfBirth: "yesterday"})
	assert.Equal(t, map[string]string{
		"last_name":     "this field cannot be blank",
		"email":         "Please enter a valid email address",
		"date_of_birth": "must be a date (YYYY-MM-DD)",
	}, core.FieldErrors(err))
}

func TestService_QueryUpdateDelete(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	now := time.Now()
	core.NowFunc = func() time.Time { return now.Add(-time.Hour) }
	older, err := svc.Create(ctx, student.Form{FirstName: "Old", LastName: "Timer"})
	require.NoError(t, err)
	core.NowFunc = time.Now
	newer, err := svc.Create(ctx, student.Form{FirstName: "New", LastName: "Comer"})
	require.NoError(t, err)

	students, err := svc.Query(ctx)
	require.NoError(t, err)
	if assert.Len(t, students, 2) {
		assert.Equal(t, newer.ID, students[0].ID, "newest first")
		assert.Equal(t, older.ID, students[1].ID)
	}

	form := student.FormOf(older)
	form.Phone = "555-0100"
	form.Status = "graduated"
	updated, err := svc.Update(ctx, older.ID, form)
	require.NoError(t, err)
	assert.Equal(t, "555-0100", updated.Phone.String)
	assert.Equal(t, "graduated", updated.Status)
	assert.Equal(t, older.StudentID, updated.StudentID)

	withAvatar, err := svc.SetAvatar(ctx, older.ID, "/uploads/a.png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a.png", withAvatar.AvatarURL.String)

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, svc.Delete(ctx, older.ID))
	assert.True(t, core.IsNotFound(svc.Delete(ctx, older.ID)))
	_, err = svc.Get(ctx, older.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestFilter(t *testing.T) {
	students := []student.Student{
		{ID: "1", StudentID: "STU-AAA", FirstName: "Jane", LastName: "Doe", Email: core.NullString("jane@x.test")},
		{ID: "2", StudentID: "STU-BBB", FirstName: "John", LastName: "Smith"},
	}
	ids := func(ss []student.Student) []string {
		out := make([]string, 0, len(ss))
		for _, s := range ss {
			out = append(out, s.ID)
		}
		return out
	}
	assert.Equal(t, []string{"1", "2"}, ids(student.Filter(students, "")))
	assert.Equal(t, []string{"1"}, ids(student.Filter(students, "e d")))
	assert.Equal(t, []string{"1"}, ids(student.Filter(students, "X.TEST")))
	assert.Equal(t, []string{"2"}, ids(student.Filter(students, "bbb")))
	assert.Empty(t, student.Filter(students, "zzz"))
}

func TestService_ImportExport(t *testing.T) {
	svc, glSvc := setup(t)
	ctx := context.Background()

	g1, err := glSvc.Create(ctx, gradelevel.Form{Name: "Grade 1"})
	require.NoError(t, err)

	book := &sheet.Table{Name: "Import", Header: student.ImportHeader}
	book.Append("Ada", "Lovelace", "ada@school.test", "female", "grade 1", "Byron", "byron@home.test")
	book.Append("", "Nameless", "", "", "", "", "")
	book.Append("Bad", "Email", "not-an-email", "", "", "", "")
	book.Append("Alan", "Turing", "", "male", "Unknown level", "", "")
	var buf bytes.Buffer
	require.NoError(t, sheet.Write(&buf, book))

	n, err := svc.Import(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	students, err := svc.Query(ctx)
	require.NoError(t, err)
	require.Len(t, students, 2)
	byName := make(map[string]student.Student)
	for _, s := range students {
		byName[s.FirstName] = s
	}
	assert.Equal(t, g1.ID, byName["Ada"].GradeLevelID.String)
	assert.Equal(t, "byron@home.test", byName["Ada"].ParentEmail.String)
	assert.False(t, byName["Alan"].GradeLevelID.Valid)

	_, err = svc.Import(ctx, bytes.NewReader([]byte("garbage")))
	assert.Error(t, err)

	levels, err := glSvc.Query(ctx)
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, student.Export(&out, students, levels))
	rows, err := sheet.ReadFirst(&out)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Student ID", rows[0][0])

	grades := map[string]string{rows[1][1]: rows[1][6], rows[2][1]: rows[2][6]}
	assert.Equal(t, "Grade 1", grades["Ada"])
	assert.Equal(t, "Unassigned", grades["Alan"])
}
