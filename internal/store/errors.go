package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Precondition and lookup failures. All of them are recoverable and leave
// the database unchanged.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrDuplicateScan   = errors.New("item already scanned in this inventory")
	ErrCycleClosed     = errors.New("inventory is closed")
	ErrOpenCycleExists = errors.New("an open inventory already exists")
	ErrAlreadyVerified = errors.New("location already verified")
	ErrNotReady        = errors.New("inventory cannot be closed yet")
	ErrNameTaken       = errors.New("name already taken")
)

// NotReadyError is returned when closing a cycle that doesn't meet the
// closing criteria. It matches ErrNotReady with errors.Is.
type NotReadyError struct {
	Reasons []string
}

func (e *NotReadyError) Error() string {
	return ErrNotReady.Error() + ": " + strings.Join(e.Reasons, ", ")
}

// Is reports whether target is ErrNotReady.
func (e *NotReadyError) Is(target error) bool {
	return target == ErrNotReady
}

// InfrastructureError wraps a storage failure. Nothing was committed.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// storageErr wraps err as an InfrastructureError for operation op.
func storageErr(op string, err error) error {
	return &InfrastructureError{Op: op, Err: err}
}

// isUniqueViolation reports whether err was caused by a UNIQUE or PRIMARY KEY
// constraint failing.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
