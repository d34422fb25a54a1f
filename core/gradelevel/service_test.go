package gradelevel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/gradelevel"
	"github.com/trezcool/schoolhub/storage/inmem"
)

func TestService_CRUD(t *testing.T) {
	svc := gradelevel.NewService(inmem.Open())
	ctx := context.Background()

	g1, err := svc.Create(ctx, gradelevel.Form{Name: " Grade 1 ", Description: "  "})
	require.NoError(t, err)
	assert.Equal(t, "Grade 1", g1.Name)
	assert.False(t, g1.Description.Valid, "blank description must be stored as null")
	assert.Equal(t, 1, g1.OrderIndex)

	g2, err := svc.Create(ctx, gradelevel.Form{Name: "Grade 2", Description: "Second year"})
	require.NoError(t, err)
	assert.Equal(t, 2, g2.OrderIndex)

	_, err = svc.Create(ctx, gradelevel.Form{Name: "   "})
	assert.Equal(t, map[string]string{"name": "this field cannot be blank"}, core.FieldErrors(err))

	levels, err := svc.Query(ctx)
	require.NoError(t, err)
	if assert.Len(t, levels, 2) {
		assert.Equal(t, g1.ID, levels[0].ID)
		assert.Equal(t, g2.ID, levels[1].ID)
	}

	updated, err := svc.Update(ctx, g1.ID, gradelevel.Form{Name: "Kindergarten", Description: "Early years"})
	require.NoError(t, err)
	assert.Equal(t, "Kindergarten", updated.Name)
	assert.Equal(t, "Early years", updated.Description.String)
	assert.Equal(t, 1, updated.OrderIndex)

	_, err = svc.Update(ctx, "unknown", gradelevel.Form{Name: "X"})
	assert.True(t, core.IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, g1.ID))
	assert.True(t, core.IsNotFound(svc.Delete(ctx, g1.ID)))

	levels, err = svc.Query(ctx)
	require.NoError(t, err)
	assert.Len(t, levels, 1)
}

func TestFilter(t *testing.T) {
	levels := []gradelevel.GradeLevel{
		{ID: "1", Name: "Grade 1"},
		{ID: "2", Name: "Grade 2", Description: core.NullString("Primary school")},
		{ID: "3", Name: "Senior"},
	}
	tests := []struct {
		search string
		want   []string
	}{
		{search: "", want: []string{"1", "2", "3"}},
		{search: "GRADE", want: []string{"1", "2"}},
		{search: "primary", want: []string{"2"}},
		{search: "nope", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			ids := make([]string, 0)
			for _, gl := range gradelevel.Filter(levels, tt.search) {
				ids = append(ids, gl.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	assert.Equal(t, "Grade 2", gradelevel.Name(levels, core.NullString("2")))
	assert.Equal(t, "Unassigned", gradelevel.Name(levels, core.NullString("")))
	assert.Equal(t, "Unassigned", gradelevel.Name(levels, core.NullString("42")))
}
