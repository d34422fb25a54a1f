// Package sqlstore implements core.Store on a SQL database (Postgres or SQLite).
package sqlstore

import (
	"context"
	"database/sql"
	"reflect"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

type Store struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
}

var _ core.Store = (*Store)(nil)

func New(db *sqlx.DB) *Store {
	var format sq.PlaceholderFormat = sq.Dollar
	if strings.HasPrefix(db.DriverName(), "sqlite") {
		format = sq.Question
	}
	return &Store{
		// row structs may not map every column of their table
		db:      db.Unsafe(),
		builder: sq.StatementBuilder.PlaceholderFormat(format),
	}
}

func where(filters []core.Filter) (sq.And, error) {
	conds := make(sq.And, 0, len(filters))
	for _, f := range filters {
		switch f.Op {
		case core.OpEq, core.OpIn:
			conds = append(conds, sq.Eq{f.Column: f.Value})
		case core.OpNeq:
			conds = append(conds, sq.NotEq{f.Column: f.Value})
		case core.OpGte:
			conds = append(conds, sq.GtOrEq{f.Column: f.Value})
		case core.OpLte:
			conds = append(conds, sq.LtOrEq{f.Column: f.Value})
		default:
			return nil, errors.Errorf("unsupported filter operator %q", f.Op)
		}
	}
	return conds, nil
}

func (s *Store) selectQuery(table string, q core.Query) (string, []interface{}, error) {
	conds, err := where(q.Filters)
	if err != nil {
		return "", nil, err
	}
	b := s.builder.Select("*").From(table).Where(conds)
	for _, o := range q.Orderings {
		b = b.OrderBy(o.String())
	}
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	return b.ToSql()
}

func (s *Store) Select(ctx context.Context, table string, q core.Query, dest interface{}) error {
	query, args, err := s.selectQuery(table, q)
	if err != nil {
		return errors.Wrapf(err, "building select on %s", table)
	}
	return errors.Wrapf(sqlx.SelectContext(ctx, s.db, dest, query, args...), "selecting %s", table)
}

func (s *Store) Get(ctx context.Context, table string, q core.Query, dest interface{}) error {
	q.Limit = 1
	query, args, err := s.selectQuery(table, q)
	if err != nil {
		return errors.Wrapf(err, "building select on %s", table)
	}
	err = sqlx.GetContext(ctx, s.db, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return errors.Wrapf(err, "getting %s", table)
}

// columns maps the db tags of a row struct (or the keys of a map) to their values, sorted by column.
func (s *Store) columns(row interface{}) ([]string, []interface{}, error) {
	if m, ok := row.(map[string]interface{}); ok {
		cols := make([]string, 0, len(m))
		for col := range m {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		vals := make([]interface{}, 0, len(cols))
		for _, col := range cols {
			vals = append(vals, m[col])
		}
		return cols, vals, nil
	}

	v := reflect.Indirect(reflect.ValueOf(row))
	if v.Kind() != reflect.Struct {
		return nil, nil, errors.Errorf("cannot insert a %s", v.Kind())
	}
	fields := s.db.Mapper.FieldMap(v)
	cols := make([]string, 0, len(fields))
	for name := range fields {
		// nested fields of null.* and time.Time values
		if !strings.Contains(name, ".") {
			cols = append(cols, name)
		}
	}
	sort.Strings(cols)
	vals := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		vals = append(vals, fields[col].Interface())
	}
	return cols, vals, nil
}

func (s *Store) Insert(ctx context.Context, table string, row interface{}, dest interface{}) error {
	cols, vals, err := s.columns(row)
	if err != nil {
		return err
	}
	b := s.builder.Insert(table).Columns(cols...).Values(vals...)
	if dest == nil {
		query, args, err := b.ToSql()
		if err != nil {
			return errors.Wrapf(err, "building insert into %s", table)
		}
		_, err = s.db.ExecContext(ctx, query, args...)
		return errors.Wrapf(err, "inserting into %s", table)
	}

	query, args, err := b.Suffix("RETURNING *").ToSql()
	if err != nil {
		return errors.Wrapf(err, "building insert into %s", table)
	}
	return errors.Wrapf(s.db.QueryRowxContext(ctx, query, args...).StructScan(dest), "inserting into %s", table)
}

func (s *Store) Update(ctx context.Context, table string, filters []core.Filter, patch map[string]interface{}, dest interface{}) error {
	conds, err := where(filters)
	if err != nil {
		return errors.Wrapf(err, "building update of %s", table)
	}
	b := s.builder.Update(table).SetMap(patch).Where(conds)

	if dest == nil {
		query, args, err := b.ToSql()
		if err != nil {
			return errors.Wrapf(err, "building update of %s", table)
		}
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return errors.Wrapf(err, "updating %s", table)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return core.ErrNotFound
		}
		return nil
	}

	query, args, err := b.Suffix("RETURNING *").ToSql()
	if err != nil {
		return errors.Wrapf(err, "building update of %s", table)
	}
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "updating %s", table)
	}
	defer func() { _ = rows.Close() }()

	var found bool
	for rows.Next() {
		if found {
			continue
		}
		if err := rows.StructScan(dest); err != nil {
			return errors.Wrapf(err, "scanning updated %s", table)
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, "updating %s", table)
	}
	if !found {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, table string, filters []core.Filter) (int, error) {
	conds, err := where(filters)
	if err != nil {
		return 0, errors.Wrapf(err, "building delete from %s", table)
	}
	query, args, err := s.builder.Delete(table).Where(conds).ToSql()
	if err != nil {
		return 0, errors.Wrapf(err, "building delete from %s", table)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "deleting from %s", table)
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrapf(err, "deleting from %s", table)
}
