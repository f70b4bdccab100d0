package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/patient-records/internal/model"
)

// ErrNoRows is returned when a single-row query matches nothing.
var ErrNoRows = errors.New("no rows in result set")

// Error is a store-reported failure.
type Error struct {
	Code    string
	Message string
	Err     error
}

const (
	CodeConstraint  = "constraint"
	CodeUnavailable = "unavailable"
	CodeQuery       = "query"
)

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Op int

const (
	OpEq Op = iota
	// OpILike matches a case-insensitive substring of the column.
	OpILike
)

// Filter is a single column predicate
type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func ILike(column, substr string) Filter {
	return Filter{Column: column, Op: OpILike, Value: substr}
}

// Query selects rows: every Where filter must hold, and at least one AnyOf
// filter when AnyOf is non-empty.
type Query struct {
	Where      []Filter
	AnyOf      []Filter
	OrderBy    string
	Descending bool
	// Single requires exactly one matching row; none yields ErrNoRows.
	Single bool
}

// ByID targets the single row with the given id.
func ByID(id int64) Query {
	return Query{Where: []Filter{Eq(model.ColumnID, id)}, Single: true}
}

// Newest orders by creation time, newest first.
func Newest() Query {
	return Query{OrderBy: model.ColumnCreatedAt, Descending: true}
}

// All repository interfaces in one file
type (
	// PatientTable is the tabular store holding patient rows. Ids and
	// creation timestamps are assigned by the implementation.
	PatientTable interface {
		Select(ctx context.Context, q Query) ([]model.Patient, error)
		Insert(ctx context.Context, form model.PatientForm) (model.Patient, error)
		Update(ctx context.Context, q Query, columns map[string]any) ([]model.Patient, error)
		Delete(ctx context.Context, q Query) error
		Ping(ctx context.Context) error
	}
)
