/*
store.go - Persistence boundary of the engine

KEY INTERFACES:
  Directory: employee lookup and ledger-field writes
  Records:   one record per (employee_code, date)
  Journal:   append-only ledger entries
  TxStore:   runs a unit of work atomically

IMPLEMENTATIONS:
  - store/sqlite: production
  - store/memory: tests and dev

Reads of a missing employee or record return (nil, nil); callers decide
whether that is an error.
*/
package attendance

import (
	"context"
	"time"
)

type Directory interface {
	GetEmployee(ctx context.Context, code string) (*Employee, error)
	SaveEmployee(ctx context.Context, emp *Employee) error
	ListEmployees(ctx context.Context) ([]Employee, error)
}

type Records interface {
	FindRecord(ctx context.Context, key Key) (*Record, error)
	// UpsertRecord inserts or replaces the record for (EmployeeCode, Date).
	UpsertRecord(ctx context.Context, rec *Record) error
	DeleteRecord(ctx context.Context, key Key) error
	// ListRecords returns records with from <= date <= to, ordered by date.
	ListRecords(ctx context.Context, code string, from, to time.Time) ([]Record, error)
}

type Journal interface {
	AppendEntry(ctx context.Context, entry LedgerEntry) error
	Entries(ctx context.Context, code string) ([]LedgerEntry, error)
}

type Store interface {
	Directory
	Records
	Journal
}

// TxStore wraps Store with transaction support. If fn returns an error,
// every write made through the Store handed to fn is rolled back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
