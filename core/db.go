package core

import (
	"context"
	"fmt"
	"strings"
)

// Filter operators
const (
	OpEq  = "eq"
	OpNeq = "neq"
	OpGte = "gte"
	OpLte = "lte"
	OpIn  = "in"
)

type (
	// Store is the client of the backend: table-scoped CRUD with simple filters.
	// dest arguments are pointers to a row struct (or to a slice of them for Select).
	Store interface {
		Select(ctx context.Context, table string, q Query, dest interface{}) error
		// Get fetches the first row matching q, or ErrNotFound.
		Get(ctx context.Context, table string, q Query, dest interface{}) error
		// Insert stores row and scans the stored representation into dest (if not nil).
		Insert(ctx context.Context, table string, row interface{}, dest interface{}) error
		// Update patches the rows matching filters and scans the first one into dest (if not nil).
		// ErrNotFound is returned when nothing matched.
		Update(ctx context.Context, table string, filters []Filter, patch map[string]interface{}, dest interface{}) error
		Delete(ctx context.Context, table string, filters []Filter) (int, error)
	}

	Filter struct {
		Column string
		Op     string
		Value  interface{} // []string for OpIn
	}

	Query struct {
		Filters   []Filter
		Orderings []DBOrdering
		Limit     int
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

func Eq(col string, val interface{}) Filter  { return Filter{Column: col, Op: OpEq, Value: val} }
func Neq(col string, val interface{}) Filter { return Filter{Column: col, Op: OpNeq, Value: val} }
func Gte(col string, val interface{}) Filter { return Filter{Column: col, Op: OpGte, Value: val} }
func Lte(col string, val interface{}) Filter { return Filter{Column: col, Op: OpLte, Value: val} }
func In(col string, vals []string) Filter    { return Filter{Column: col, Op: OpIn, Value: vals} }

func Asc(field string) DBOrdering  { return DBOrdering{Field: field, Ascending: true} }
func Desc(field string) DBOrdering { return DBOrdering{Field: field} }

// Where returns a Query with the given filters.
func Where(filters ...Filter) Query {
	return Query{Filters: filters}
}

// OrderBy appends orderings to the query.
func (q Query) OrderBy(ords ...DBOrdering) Query {
	q.Orderings = append(q.Orderings, ords...)
	return q
}

// Key is a stable representation of the query, used for caching.
func (q Query) Key() string {
	var b strings.Builder
	for _, f := range q.Filters {
		_, _ = fmt.Fprintf(&b, "%s.%s.%v;", f.Column, f.Op, f.Value)
	}
	b.WriteString("|")
	for _, o := range q.Orderings {
		b.WriteString(o.String())
		b.WriteString(";")
	}
	_, _ = fmt.Fprintf(&b, "|%d", q.Limit)
	return b.String()
}

type ctxKey int

const (
	accessTokenKey ctxKey = iota
	userIDKey
)

// WithAccessToken attaches the backend access token of the signed-in user.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey).(string)
	return token
}

// WithUserID attaches the ID of the acting user.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
