package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/settings"
	"github.com/trezcool/schoolhub/storage/inmem"
)

func TestService(t *testing.T) {
	svc := settings.NewService(inmem.Open())
	ctx := context.Background()

	s, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Smart School Hub", s.SchoolName)
	assert.True(t, s.EmailAlerts)

	form := settings.FormOf(s)
	form.SchoolName = " "
	form.Email = "nope"
	_, err = svc.Save(ctx, form)
	assert.Equal(t, map[string]string{
		"school_name": "this field cannot be blank",
		"email":       "Please enter a valid email address",
	}, core.FieldErrors(err))

	form = settings.FormOf(s)
	form.SchoolName = "Hill Valley High"
	form.EmailAlerts = false
	saved, err := svc.Save(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, "Hill Valley High", saved.SchoolName)

	form.AcademicYear = "2026-2027"
	_, err = svc.Save(ctx, form)
	require.NoError(t, err)

	s, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hill Valley High", s.SchoolName)
	assert.Equal(t, "2026-2027", s.AcademicYear.String)
	assert.False(t, s.EmailAlerts)
	assert.True(t, s.Notifications)
}
