package cachesvc

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhub/core"
)

type row struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func exercise(t *testing.T, c core.Cache) {
	ctx := context.Background()

	var got []row
	found, err := c.Get(ctx, "students|a", &got)
	require.NoError(t, err)
	assert.False(t, found)

	want := []row{{ID: "1", Name: "Alex"}}
	require.NoError(t, c.Set(ctx, "students", "students|a", want))
	require.NoError(t, c.Set(ctx, "teachers", "teachers|a", []row{{ID: "2", Name: "Grace"}}))

	found, err = c.Get(ctx, "students|a", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	require.NoError(t, c.InvalidateTable(ctx, "students"))
	found, err = c.Get(ctx, "students|a", &got)
	require.NoError(t, err)
	assert.False(t, found)

	var teachers []row
	found, err = c.Get(ctx, "teachers|a", &teachers)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory(time.Minute))
}

func TestMemory_expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(20 * time.Millisecond)
	require.NoError(t, c.Set(ctx, "fees", "fees|a", []row{{ID: "1"}}))

	time.Sleep(50 * time.Millisecond)
	var got []row
	found, err := c.Get(ctx, "fees|a", &got)
	require.NoError(t, err)
	assert.False(t, found)

	// the sweeper drops expired keys from the table index
	assert.Eventually(t, func() bool {
		entries, tables := c.Len()
		return entries == 0 && tables == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemory_index(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)

	for i := 0; i < 50; i++ {
		require.NoError(t, c.Set(ctx, "students", fmt.Sprintf("students|%d", i), []row{{ID: "1"}}))
	}
	require.NoError(t, c.Set(ctx, "fees", "fees|a", []row{{ID: "2"}}))
	entries, tables := c.Len()
	assert.Equal(t, 51, entries)
	assert.Equal(t, 2, tables)

	require.NoError(t, c.InvalidateTable(ctx, "students"))
	entries, tables = c.Len()
	assert.Equal(t, 1, entries)
	assert.Equal(t, 1, tables)

	require.NoError(t, c.InvalidateTable(ctx, "fees"))
	require.NoError(t, c.InvalidateTable(ctx, "nope"))
	entries, tables = c.Len()
	assert.Zero(t, entries)
	assert.Zero(t, tables)
}

// Runs against a live server when TEST_REDIS_ADDR is set.
func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	defer client.Close()
	require.NoError(t, client.FlushDB(context.Background()).Err())
	exercise(t, NewRedisWithClient(client, time.Minute))
}

func TestNew(t *testing.T) {
	conf := core.NewTestConfig()

	c, err := New(conf)
	require.NoError(t, err)
	assert.Equal(t, Nop{}, c)

	conf.Cache.Driver = DriverMemory
	c, err = New(conf)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	conf.Cache.Driver = "memcached"
	_, err = New(conf)
	assert.Error(t, err)
}
