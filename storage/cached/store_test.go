package cached_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhub/core"
	cachesvc "github.com/trezcool/schoolhub/services/cache"
	logsvc "github.com/trezcool/schoolhub/services/logger"
	"github.com/trezcool/schoolhub/storage/cached"
	"github.com/trezcool/schoolhub/storage/inmem"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// countingStore counts the reads reaching the wrapped store.
type countingStore struct {
	core.Store
	reads int
}

func (s *countingStore) Select(ctx context.Context, table string, q core.Query, dest interface{}) error {
	s.reads++
	return s.Store.Select(ctx, table, q, dest)
}

func (s *countingStore) Get(ctx context.Context, table string, q core.Query, dest interface{}) error {
	s.reads++
	return s.Store.Get(ctx, table, q, dest)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{Store: inmem.Open()}
	store := cached.New(backend, cachesvc.NewMemory(time.Minute), logsvc.NewTestLogger(core.NewTestConfig()))

	require.NoError(t, store.Insert(ctx, "items", item{ID: "1", Name: "chalk"}, nil))

	var items []item
	require.NoError(t, store.Select(ctx, "items", core.Query{}, &items))
	require.NoError(t, store.Select(ctx, "items", core.Query{}, &items))
	assert.Equal(t, 1, backend.reads)
	assert.Equal(t, []item{{ID: "1", Name: "chalk"}}, items)

	// another user does not share the entry
	var other []item
	require.NoError(t, store.Select(core.WithUserID(ctx, "u2"), "items", core.Query{}, &other))
	assert.Equal(t, 2, backend.reads)

	var one item
	require.NoError(t, store.Get(ctx, "items", core.Where(core.Eq("id", "1")), &one))
	require.NoError(t, store.Get(ctx, "items", core.Where(core.Eq("id", "1")), &one))
	assert.Equal(t, 3, backend.reads)
	assert.Equal(t, "chalk", one.Name)

	err := store.Get(ctx, "items", core.Where(core.Eq("id", "2")), &one)
	assert.True(t, core.IsNotFound(err))
	err = store.Get(ctx, "items", core.Where(core.Eq("id", "2")), &one)
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, 5, backend.reads)

	// a mutation invalidates the table
	require.NoError(t, store.Update(ctx, "items", []core.Filter{core.Eq("id", "1")}, map[string]interface{}{"name": "board"}, nil))
	require.NoError(t, store.Select(ctx, "items", core.Query{}, &items))
	assert.Equal(t, 6, backend.reads)
	assert.Equal(t, "board", items[0].Name)

	n, err := store.Delete(ctx, "items", []core.Filter{core.Eq("id", "1")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	items = nil
	require.NoError(t, store.Select(ctx, "items", core.Query{}, &items))
	assert.Empty(t, items)
	assert.Equal(t, 7, backend.reads)
}

// writingStore runs during once, after the next read fetched its rows but before it returns.
type writingStore struct {
	core.Store
	during func()
}

func (s *writingStore) Select(ctx context.Context, table string, q core.Query, dest interface{}) error {
	err := s.Store.Select(ctx, table, q, dest)
	if f := s.during; f != nil {
		s.during = nil
		f()
	}
	return err
}

func TestStore_writeDuringRead(t *testing.T) {
	ctx := context.Background()
	backend := &writingStore{Store: inmem.Open()}
	store := cached.New(backend, cachesvc.NewMemory(time.Minute), logsvc.NewTestLogger(core.NewTestConfig()))
	require.NoError(t, store.Insert(ctx, "items", item{ID: "1", Name: "chalk"}, nil))

	backend.during = func() {
		require.NoError(t, store.Insert(ctx, "items", item{ID: "2", Name: "board"}, nil))
	}
	var stale []item
	require.NoError(t, store.Select(ctx, "items", core.Query{}, &stale))
	assert.Len(t, stale, 1)

	// the stale result was not cached
	var items []item
	require.NoError(t, store.Select(ctx, "items", core.Query{}, &items))
	assert.Len(t, items, 2)

	// other tables are still cached
	require.NoError(t, store.Insert(ctx, "fees", item{ID: "f1"}, nil))
	var fees []item
	require.NoError(t, store.Select(ctx, "fees", core.Query{}, &fees))
	require.NoError(t, backend.Store.Insert(ctx, "fees", item{ID: "f2"}, nil))
	require.NoError(t, store.Select(ctx, "fees", core.Query{}, &fees))
	assert.Len(t, fees, 1, "served from cache")
}
