package di_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhub/apps/portal/di"
	"github.com/trezcool/schoolhub/apps/portal/web"
	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/user"
	"github.com/trezcool/schoolhub/storage/cached"
)

func TestNew(t *testing.T) {
	newConfig := func() *core.Config {
		conf := core.NewTestConfig()
		conf.Blob.Dir = t.TempDir()
		return conf
	}
	c := di.New(newConfig)

	err := c.Invoke(func(store core.Store, users *user.Service, server *web.Server) {
		assert.IsType(t, &cached.Store{}, store)

		acc, err := users.SignUp(context.Background(), user.SignUp{
			Email: "admin@school.test", Password: "hunter22", FirstName: "Ada", LastName: "Admin", Role: user.RoleAdmin,
		})
		require.NoError(t, err)
		assert.Equal(t, user.RoleAdmin, acc.Role)

		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		_ = server.Close()
	})
	require.NoError(t, err)
}

func TestNewBackend_unknownDriver(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Backend.Driver = "nope"
	c := di.New(func() *core.Config { return conf })

	err := c.Invoke(func(core.Store) {})
	assert.Error(t, err)
}
