package inmem

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

type record map[string]interface{}

// DB is a core.Store keeping rows as JSON documents, keyed by their json tags.
type DB struct {
	tables map[string][]record
	mutex  sync.RWMutex
}

var _ core.Store = (*DB)(nil)

func Open() *DB {
	return &DB{tables: make(map[string][]record)}
}

// Reset drops every table.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.tables = make(map[string][]record)
}

func (db *DB) Select(_ context.Context, table string, q core.Query, dest interface{}) error {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return decode(db.query(table, q), dest)
}

func (db *DB) Get(_ context.Context, table string, q core.Query, dest interface{}) error {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	q.Limit = 1
	recs := db.query(table, q)
	if len(recs) == 0 {
		return core.ErrNotFound
	}
	return decode(recs[0], dest)
}

func (db *DB) Insert(_ context.Context, table string, row interface{}, dest interface{}) error {
	rec, err := toRecord(row)
	if err != nil {
		return errors.Wrap(err, "encoding row")
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.tables[table] = append(db.tables[table], rec)
	if dest == nil {
		return nil
	}
	return decode(rec, dest)
}

func (db *DB) Update(_ context.Context, table string, filters []core.Filter, patch map[string]interface{}, dest interface{}) error {
	changes, err := toRecord(patch)
	if err != nil {
		return errors.Wrap(err, "encoding patch")
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	var first record
	for _, rec := range db.tables[table] {
		if !matches(rec, filters) {
			continue
		}
		for col, val := range changes {
			rec[col] = val
		}
		if first == nil {
			first = rec
		}
	}
	if first == nil {
		return core.ErrNotFound
	}
	if dest == nil {
		return nil
	}
	return decode(first, dest)
}

func (db *DB) Delete(_ context.Context, table string, filters []core.Filter) (int, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	kept := make([]record, 0, len(db.tables[table]))
	for _, rec := range db.tables[table] {
		if !matches(rec, filters) {
			kept = append(kept, rec)
		}
	}
	deleted := len(db.tables[table]) - len(kept)
	db.tables[table] = kept
	return deleted, nil
}

// query must be called with the lock held.
func (db *DB) query(table string, q core.Query) []record {
	recs := make([]record, 0)
	for _, rec := range db.tables[table] {
		if matches(rec, q.Filters) {
			recs = append(recs, rec)
		}
	}
	if len(q.Orderings) > 0 {
		sort.SliceStable(recs, func(i, j int) bool {
			for _, ord := range q.Orderings {
				c := compare(recs[i][ord.Field], recs[j][ord.Field])
				if c == 0 {
					continue
				}
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
			return false
		})
	}
	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[:q.Limit]
	}
	return recs
}

func matches(rec record, filters []core.Filter) bool {
	for _, f := range filters {
		val := rec[f.Column]
		switch f.Op {
		case core.OpIn:
			vals, _ := f.Value.([]string)
			s, ok := val.(string)
			if !ok || !containsString(vals, s) {
				return false
			}
		default:
			want, err := normalize(f.Value)
			if err != nil {
				return false
			}
			c := compare(val, want)
			switch f.Op {
			case core.OpEq:
				if c != 0 {
					return false
				}
			case core.OpNeq:
				if c == 0 {
					return false
				}
			case core.OpGte:
				if val == nil || c < 0 {
					return false
				}
			case core.OpLte:
				if val == nil || c > 0 {
					return false
				}
			}
		}
	}
	return true
}

// compare orders JSON values: nil < bool < number < string. Timestamps compare as times.
func compare(a, b interface{}) int {
	rank := func(v interface{}) int {
		switch v.(type) {
		case nil:
			return 0
		case bool:
			return 1
		case float64:
			return 2
		case string:
			return 3
		default:
			return 4
		}
	}
	if ra, rb := rank(a), rank(b); ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv := b.(string)
		if ta, err := time.Parse(time.RFC3339Nano, av); err == nil {
			if tb, err := time.Parse(time.RFC3339Nano, bv); err == nil {
				switch {
				case ta.Before(tb):
					return -1
				case ta.After(tb):
					return 1
				default:
					return 0
				}
			}
		}
		return strings.Compare(av, bv)
	}
	return 0
}

func containsString(vals []string, s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}
	return false
}

func toRecord(v interface{}) (record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	rec := make(record)
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// normalize converts a Go value to its JSON-decoded form.
func normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	err = json.Unmarshal(data, &out)
	return out, err
}

func decode(v interface{}, dest interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding rows")
	}
	return errors.Wrap(json.Unmarshal(data, dest), "decoding rows")
}
