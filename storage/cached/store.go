// Package cached puts a query cache in front of a core.Store.
package cached

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

// Store caches Select and Get results per (table, user, query).
// Any Insert, Update or Delete on a table drops every cached entry of that table.
// A read that raced with such a write is not cached.
type Store struct {
	next   core.Store
	cache  core.Cache
	logger core.Logger

	mutex sync.Mutex
	gens  map[string]uint64 // writes per table
}

var _ core.Store = (*Store)(nil)

func New(next core.Store, cache core.Cache, logger core.Logger) *Store {
	return &Store{next: next, cache: cache, logger: logger, gens: make(map[string]uint64)}
}

func key(ctx context.Context, op, table string, q core.Query) string {
	return table + "|" + op + "|" + core.UserID(ctx) + "|" + q.Key()
}

// lookup failures are logged and treated as misses.
func (s *Store) lookup(ctx context.Context, k string, dest interface{}) bool {
	found, err := s.cache.Get(ctx, k, dest)
	if err != nil {
		s.logger.Warn("reading query cache: "+err.Error(), err)
		return false
	}
	return found
}

func (s *Store) generation(table string) uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.gens[table]
}

// remember caches val unless table was written since generation gen was read.
func (s *Store) remember(ctx context.Context, table, k string, gen uint64, val interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.gens[table] != gen {
		return
	}
	if err := s.cache.Set(ctx, table, k, val); err != nil {
		s.logger.Warn("writing query cache: "+err.Error(), err)
	}
}

func (s *Store) Select(ctx context.Context, table string, q core.Query, dest interface{}) error {
	k := key(ctx, "select", table, q)
	if s.lookup(ctx, k, dest) {
		return nil
	}
	gen := s.generation(table)
	if err := s.next.Select(ctx, table, q, dest); err != nil {
		return err
	}
	s.remember(ctx, table, k, gen, dest)
	return nil
}

func (s *Store) Get(ctx context.Context, table string, q core.Query, dest interface{}) error {
	k := key(ctx, "get", table, q)
	if s.lookup(ctx, k, dest) {
		return nil
	}
	gen := s.generation(table)
	if err := s.next.Get(ctx, table, q, dest); err != nil {
		return err
	}
	s.remember(ctx, table, k, gen, dest)
	return nil
}

func (s *Store) Insert(ctx context.Context, table string, row interface{}, dest interface{}) error {
	if err := s.next.Insert(ctx, table, row, dest); err != nil {
		return err
	}
	return s.invalidate(ctx, table)
}

func (s *Store) Update(ctx context.Context, table string, filters []core.Filter, patch map[string]interface{}, dest interface{}) error {
	if err := s.next.Update(ctx, table, filters, patch, dest); err != nil {
		return err
	}
	return s.invalidate(ctx, table)
}

func (s *Store) Delete(ctx context.Context, table string, filters []core.Filter) (int, error) {
	n, err := s.next.Delete(ctx, table, filters)
	if err != nil {
		return n, err
	}
	return n, s.invalidate(ctx, table)
}

func (s *Store) invalidate(ctx context.Context, table string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.gens[table]++
	return errors.Wrapf(s.cache.InvalidateTable(ctx, table), "invalidating %s queries", table)
}
