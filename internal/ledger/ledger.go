package ledger

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTableNotFound means the store has no table with the requested name.
	ErrTableNotFound = errors.New("table not found")
	// ErrConflict means the store is still holding on to a just-deleted table
	// name. Waiting briefly and retrying usually clears it.
	ErrConflict = errors.New("table name conflict")
)

// MergeMode selects how Sync reconciles fresh rows with an existing table.
type MergeMode string

const (
	// MergeAppend keeps existing rows except the ones a fresh row supersedes.
	MergeAppend MergeMode = "append"
	// MergeReplace drops the table and rebuilds it from the fresh rows alone.
	MergeReplace MergeMode = "replace"
)

func ParseMergeMode(s string) (MergeMode, error) {
	switch MergeMode(s) {
	case MergeAppend, MergeReplace:
		return MergeMode(s), nil
	}
	return "", fmt.Errorf("unknown merge mode %q", s)
}

// Client opens named stores, creating them on first use.
type Client interface {
	OpenOrCreate(ctx context.Context, name string) (Store, error)
}

// Store is a named container of tables. Table returns ErrTableNotFound when
// the name is unknown; CreateTable returns ErrConflict when the store has not
// released the name yet.
type Store interface {
	Table(ctx context.Context, name string) (Table, error)
	CreateTable(ctx context.Context, name string, rows, cols int64) (Table, error)
	DeleteTable(ctx context.Context, table Table) error
	URL() string
}

// Table is a named grid of cells.
type Table interface {
	Name() string
	ReadAll(ctx context.Context) ([][]string, error)
	Clear(ctx context.Context) error
	// WriteRows writes a contiguous block starting at the 1-indexed row.
	WriteRows(ctx context.Context, startRow int, rows [][]interface{}) error
}
