// Package memory provides an in-memory attendance.TxStore for tests and dev.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu sync.RWMutex
	state
}

type state struct {
	employees map[string]attendance.Employee
	records   map[recordKey]attendance.Record
	entries   map[string][]attendance.LedgerEntry
}

type recordKey struct {
	code string
	day  string
}

func keyOf(k attendance.Key) recordKey {
	return recordKey{code: k.EmployeeCode, day: k.Date.Format("2006-01-02")}
}

func New() *Store {
	return &Store{state: state{
		employees: make(map[string]attendance.Employee),
		records:   make(map[recordKey]attendance.Record),
		entries:   make(map[string][]attendance.LedgerEntry),
	}}
}

var _ attendance.TxStore = (*Store)(nil)

func (m *Store) GetEmployee(ctx context.Context, code string) (*attendance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEmployee(ctx, code)
}

func (m *Store) SaveEmployee(ctx context.Context, emp *attendance.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveEmployee(ctx, emp)
}

func (m *Store) ListEmployees(ctx context.Context) ([]attendance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEmployees(ctx)
}

func (m *Store) FindRecord(ctx context.Context, key attendance.Key) (*attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findRecord(ctx, key)
}

func (m *Store) UpsertRecord(ctx context.Context, rec *attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertRecord(ctx, rec)
}

func (m *Store) DeleteRecord(ctx context.Context, key attendance.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteRecord(ctx, key)
}

func (m *Store) ListRecords(ctx context.Context, code string, from, to time.Time) ([]attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRecords(ctx, code, from, to)
}

func (m *Store) AppendEntry(ctx context.Context, e attendance.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendEntry(ctx, e)
}

func (m *Store) Entries(ctx context.Context, code string) ([]attendance.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEntries(ctx, code)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn while holding the write lock. Writes go straight to the
// maps; on error the snapshot taken before fn is restored.
func (m *Store) WithTx(ctx context.Context, fn func(attendance.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&m.state); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *Store) snapshot() state {
	s := state{
		employees: make(map[string]attendance.Employee, len(m.employees)),
		records:   make(map[recordKey]attendance.Record, len(m.records)),
		entries:   make(map[string][]attendance.LedgerEntry, len(m.entries)),
	}
	for k, v := range m.employees {
		s.employees[k] = v
	}
	for k, v := range m.records {
		s.records[k] = v
	}
	for k, v := range m.entries {
		s.entries[k] = append([]attendance.LedgerEntry(nil), v...)
	}
	return s
}

// =============================================================================
// UNLOCKED OPERATIONS (state implements attendance.Store inside a tx)
// =============================================================================

func (s *state) GetEmployee(ctx context.Context, code string) (*attendance.Employee, error) {
	return s.getEmployee(ctx, code)
}

func (s *state) SaveEmployee(ctx context.Context, emp *attendance.Employee) error {
	return s.saveEmployee(ctx, emp)
}

func (s *state) ListEmployees(ctx context.Context) ([]attendance.Employee, error) {
	return s.listEmployees(ctx)
}

func (s *state) FindRecord(ctx context.Context, key attendance.Key) (*attendance.Record, error) {
	return s.findRecord(ctx, key)
}

func (s *state) UpsertRecord(ctx context.Context, rec *attendance.Record) error {
	return s.upsertRecord(ctx, rec)
}

func (s *state) DeleteRecord(ctx context.Context, key attendance.Key) error {
	return s.deleteRecord(ctx, key)
}

func (s *state) ListRecords(ctx context.Context, code string, from, to time.Time) ([]attendance.Record, error) {
	return s.listRecords(ctx, code, from, to)
}

func (s *state) AppendEntry(ctx context.Context, e attendance.LedgerEntry) error {
	return s.appendEntry(ctx, e)
}

func (s *state) Entries(ctx context.Context, code string) ([]attendance.LedgerEntry, error) {
	return s.listEntries(ctx, code)
}

func (s *state) getEmployee(_ context.Context, code string) (*attendance.Employee, error) {
	emp, ok := s.employees[code]
	if !ok {
		return nil, nil
	}
	return &emp, nil
}

func (s *state) saveEmployee(_ context.Context, emp *attendance.Employee) error {
	s.employees[emp.Code] = *emp
	return nil
}

func (s *state) listEmployees(_ context.Context) ([]attendance.Employee, error) {
	out := make([]attendance.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *state) findRecord(_ context.Context, key attendance.Key) (*attendance.Record, error) {
	rec, ok := s.records[keyOf(key)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *state) upsertRecord(_ context.Context, rec *attendance.Record) error {
	s.records[keyOf(attendance.Key{EmployeeCode: rec.EmployeeCode, Date: rec.Date})] = *rec
	return nil
}

func (s *state) deleteRecord(_ context.Context, key attendance.Key) error {
	delete(s.records, keyOf(key))
	return nil
}

func (s *state) listRecords(_ context.Context, code string, from, to time.Time) ([]attendance.Record, error) {
	var out []attendance.Record
	for k, rec := range s.records {
		if k.code != code || rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *state) appendEntry(_ context.Context, e attendance.LedgerEntry) error {
	s.entries[e.EmployeeCode] = append(s.entries[e.EmployeeCode], e)
	return nil
}

func (s *state) listEntries(_ context.Context, code string) ([]attendance.LedgerEntry, error) {
	return append([]attendance.LedgerEntry(nil), s.entries[code]...), nil
}
