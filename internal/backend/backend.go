// Package backend is the table-level query interface to the managed backend.
// Repositories speak only to Client, so the same code runs against a direct
// database connection (GormClient) or the hosted REST gateway (PostgRESTClient).
package backend

import (
	"context"
	"errors"

	"gorm.io/gorm/schema"
)

var (
	// ErrNotFound is returned by First when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate key")
)

// Operator is a filter predicate supported by every backend
type Operator string

const (
	OpEq  Operator = "eq"
	OpNeq Operator = "neq"
	OpIn  Operator = "in"
	OpLt  Operator = "lt"
)

// Filter restricts a query to rows where Column matches Value under Op.
// For OpIn, Values holds the candidates.
type Filter struct {
	Column string
	Op     Operator
	Value  interface{}
	Values []interface{}
}

// Order sorts the result by Column
type Order struct {
	Column string
	Desc   bool
}

// Query describes a select/update/delete against one table
type Query struct {
	Table   string
	Filters []Filter
	Orders  []Order
	Limit   int
}

// From starts a query on table
func From(table string) *Query {
	return &Query{Table: table}
}

func (q *Query) Eq(column string, value interface{}) *Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: OpEq, Value: value})
	return q
}

func (q *Query) Neq(column string, value interface{}) *Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: OpNeq, Value: value})
	return q
}

func (q *Query) Lt(column string, value interface{}) *Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: OpLt, Value: value})
	return q
}

func (q *Query) In(column string, values ...interface{}) *Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: OpIn, Values: values})
	return q
}

func (q *Query) OrderBy(column string, desc bool) *Query {
	q.Orders = append(q.Orders, Order{Column: column, Desc: desc})
	return q
}

func (q *Query) Take(n int) *Query {
	q.Limit = n
	return q
}

// Client is the generic select/insert/update/delete/upsert interface.
type Client interface {
	// Select loads every matching row into dest (pointer to slice)
	Select(ctx context.Context, q *Query, dest interface{}) error
	// First loads the first matching row into dest (pointer to struct) or returns ErrNotFound
	First(ctx context.Context, q *Query, dest interface{}) error
	// Count returns the number of matching rows
	Count(ctx context.Context, q *Query) (int64, error)
	// Insert creates row and refreshes it with the stored representation
	Insert(ctx context.Context, row schema.Tabler) error
	// Update applies values to matching rows and returns the affected count
	Update(ctx context.Context, q *Query, values map[string]interface{}) (int64, error)
	// Delete removes matching rows and returns the affected count
	Delete(ctx context.Context, q *Query) (int64, error)
	// Upsert inserts values, or on conflict of conflictColumn updates only updateColumns
	Upsert(ctx context.Context, table string, values map[string]interface{}, conflictColumn string, updateColumns []string) error
	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error
}

// IDs converts a list of identifiers into In() arguments
func IDs[T any](ids []T) []interface{} {
	values := make([]interface{}, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return values
}
