package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhub/core"
)

type row struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Order     int       `json:"order_index"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func seed(t *testing.T) *DB {
	t.Helper()
	db := Open()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, r := range []row{
		{ID: "a", Name: "Grade 1", Order: 1, Active: true, CreatedAt: now},
		{ID: "b", Name: "Grade 3", Order: 3, CreatedAt: now.Add(time.Hour)},
		{ID: "c", Name: "Grade 2", Order: 2, Active: true, CreatedAt: now.Add(-time.Hour)},
	} {
		require.NoError(t, db.Insert(context.Background(), "levels", r, nil), i)
	}
	return db
}

func ids(rows []row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestDB_Select(t *testing.T) {
	db := seed(t)

	tests := []struct {
		name    string
		q       core.Query
		wantIDs []string
	}{
		{name: "all, insertion order", q: core.Query{}, wantIDs: []string{"a", "b", "c"}},
		{name: "eq bool", q: core.Where(core.Eq("active", true)), wantIDs: []string{"a", "c"}},
		{name: "neq", q: core.Where(core.Neq("id", "a")), wantIDs: []string{"b", "c"}},
		{name: "gte number", q: core.Where(core.Gte("order_index", 2)), wantIDs: []string{"b", "c"}},
		{name: "lte number", q: core.Where(core.Lte("order_index", 2)), wantIDs: []string{"a", "c"}},
		{name: "in", q: core.Where(core.In("id", []string{"c", "a", "z"})), wantIDs: []string{"a", "c"}},
		{name: "asc", q: core.Query{}.OrderBy(core.Asc("order_index")), wantIDs: []string{"a", "c", "b"}},
		{name: "desc time", q: core.Query{}.OrderBy(core.Desc("created_at")), wantIDs: []string{"b", "a", "c"}},
		{name: "limit", q: core.Query{Limit: 2}.OrderBy(core.Desc("order_index")), wantIDs: []string{"b", "c"}},
		{name: "no match", q: core.Where(core.Eq("name", "Grade 9")), wantIDs: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []row
			require.NoError(t, db.Select(context.Background(), "levels", tt.q, &got))
			assert.Equal(t, tt.wantIDs, ids(got))
		})
	}
}

func TestDB_Get(t *testing.T) {
	db := seed(t)
	ctx := context.Background()

	var r row
	require.NoError(t, db.Get(ctx, "levels", core.Where(core.Eq("id", "b")), &r))
	assert.Equal(t, "Grade 3", r.Name)
	assert.True(t, r.CreatedAt.Equal(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)))

	assert.Equal(t, core.ErrNotFound, db.Get(ctx, "levels", core.Where(core.Eq("id", "z")), &r))
	assert.Equal(t, core.ErrNotFound, db.Get(ctx, "nope", core.Query{}, &r))
}

func TestDB_Update(t *testing.T) {
	db := seed(t)
	ctx := context.Background()

	var r row
	err := db.Update(ctx, "levels", []core.Filter{core.Eq("id", "b")}, map[string]interface{}{"name": "Grade Three", "active": true}, &r)
	require.NoError(t, err)
	assert.Equal(t, "Grade Three", r.Name)
	assert.True(t, r.Active)

	var active []row
	require.NoError(t, db.Select(ctx, "levels", core.Where(core.Eq("active", true)), &active))
	assert.Len(t, active, 3)

	err = db.Update(ctx, "levels", []core.Filter{core.Eq("id", "z")}, map[string]interface{}{"name": "x"}, nil)
	assert.Equal(t, core.ErrNotFound, err)
}

func TestDB_Delete(t *testing.T) {
	db := seed(t)
	ctx := context.Background()

	n, err := db.Delete(ctx, "levels", []core.Filter{core.Eq("active", true)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var left []row
	require.NoError(t, db.Select(ctx, "levels", core.Query{}, &left))
	assert.Equal(t, []string{"b"}, ids(left))

	db.Reset()
	require.NoError(t, db.Select(ctx, "levels", core.Query{}, &left))
	assert.Empty(t, left)
}
