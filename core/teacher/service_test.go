package teacher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/teacher"
	"github.com/trezcool/schoolhub/storage/inmem"
)

func TestService(t *testing.T) {
	svc := teacher.NewService(inmem.Open())
	ctx := context.Background()

	_, err := svc.Create(ctx, teacher.Form{FirstName: "Grace", LastName: "Hopper"})
	assert.Equal(t, map[string]string{"email": "this field is required"}, core.FieldErrors(err))

	tch, err := svc.Create(ctx, teacher.Form{
		FirstName: "Grace", LastName: "Hopper", Email: "Grace@School.test", Subject: "Computer Science",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^TCH-[0-9A-Z]+$`, tch.TeacherID)
	assert.Equal(t, "grace@school.test", tch.Email)
	assert.Equal(t, core.Today(), tch.HireDate)
	assert.Equal(t, teacher.StatusActive, tch.Status)
	assert.False(t, tch.Qualification.Valid)

	form := teacher.FormOf(tch)
	form.Qualification = "PhD"
	form.Status = "on_leave"
	updated, err := svc.Update(ctx, tch.ID, form)
	require.NoError(t, err)
	assert.Equal(t, "PhD", updated.Qualification.String)
	assert.Equal(t, "on_leave", updated.Status)
	assert.False(t, updated.IsActive())

	teachers, err := svc.Query(ctx)
	require.NoError(t, err)
	assert.Len(t, teachers, 1)

	require.NoError(t, svc.Delete(ctx, tch.ID))
	assert.True(t, core.IsNotFound(svc.Delete(ctx, tch.ID)))
}

func TestFilter(t *testing.T) {
	teachers := []teacher.Teacher{
		{ID: "1", FirstName: "Grace", LastName: "Hopper", Email: "grace@x.test", Subject: core.NullString("Computing")},
		{ID: "2", FirstName: "Marie", LastName: "Curie", Email: "marie@x.test", Subject: core.NullString("Chemistry")},
	}
	assert.Len(t, teacher.Filter(teachers, ""), 2)
	assert.Len(t, teacher.Filter(teachers, "x.test"), 2)
	if got := teacher.Filter(teachers, "chem"); assert.Len(t, got, 1) {
		assert.Equal(t, "2", got[0].ID)
	}
	if got := teacher.Filter(teachers, "GRACE HOP"); assert.Len(t, got, 1) {
		assert.Equal(t, "1", got[0].ID)
	}
	assert.Equal(t, "GH", teachers[0].Initials())
}
