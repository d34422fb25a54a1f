package core

import "context"

// Cache holds Store query results, grouped by table so that a mutation can drop all of a table's entries.
type Cache interface {
	// Get decodes the entry at key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, table, key string, val interface{}) error
	InvalidateTable(ctx context.Context, table string) error
}
