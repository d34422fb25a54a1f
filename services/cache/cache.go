// Package cachesvc provides the query cache drivers.
package cachesvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverNone   = "none"
)

// New returns the cache selected by conf.Cache.Driver.
func New(conf *core.Config) (core.Cache, error) {
	switch conf.Cache.Driver {
	case DriverMemory, "":
		return NewMemory(conf.Cache.TTL), nil
	case DriverRedis:
		return NewRedis(conf)
	case DriverNone:
		return Nop{}, nil
	default:
		return nil, errors.Errorf("unknown cache driver %q", conf.Cache.Driver)
	}
}

// Nop never holds anything.
type Nop struct{}

var _ core.Cache = Nop{}

func (Nop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, string, interface{}) error { return nil }
func (Nop) InvalidateTable(context.Context, string) error { return nil }
