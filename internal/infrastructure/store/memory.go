package store

import (
	"context"
	"sync"
)

// MemoryTable is an in-process table. It backs tests and dry runs.
type MemoryTable struct {
	mu      sync.Mutex
	name    string
	rows    [][]string
	formats map[Cell]Format

	// Optional failure hooks.
	WriteErr  error
	FormatErr func(Cell) error

	writeCalls int
}

// NewMemoryTable copies rows into a new table.
func NewMemoryTable(name string, rows [][]string) *MemoryTable {
	t := &MemoryTable{name: name, formats: make(map[Cell]Format)}
	for _, r := range rows {
		t.rows = append(t.rows, append([]string(nil), r...))
	}
	return t
}

func (t *MemoryTable) Name() string { return t.name }

func (t *MemoryTable) ReadAllRows(_ context.Context) ([][]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (t *MemoryTable) BatchWrite(_ context.Context, writes []Write) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.WriteErr != nil {
		return t.WriteErr
	}
	t.writeCalls++
	for _, w := range writes {
		for len(t.rows) < w.Cell.Row {
			t.rows = append(t.rows, nil)
		}
		row := t.rows[w.Cell.Row-1]
		for len(row) < w.Cell.Col {
			row = append(row, "")
		}
		row[w.Cell.Col-1] = w.Value
		t.rows[w.Cell.Row-1] = row
	}
	return nil
}

func (t *MemoryTable) SetCellFormat(_ context.Context, cell Cell, format Format) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FormatErr != nil {
		if err := t.FormatErr(cell); err != nil {
			return err
		}
	}
	t.formats[cell] = format
	return nil
}

// Get returns the current value at a 1-based cell.
func (t *MemoryTable) Get(cell Cell) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cell.Row < 1 || cell.Row > len(t.rows) {
		return ""
	}
	return Value(t.rows[cell.Row-1], cell.Col-1)
}

// FormatAt returns the last format applied to cell.
func (t *MemoryTable) FormatAt(cell Cell) (Format, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.formats[cell]
	return f, ok
}

// WriteCalls counts successful BatchWrite calls.
func (t *MemoryTable) WriteCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeCalls
}

// MemoryStore holds MemoryTables keyed by spreadsheet id and sheet name.
type MemoryStore struct {
	mu     sync.Mutex
	sheets map[string]map[string]*MemoryTable
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sheets: make(map[string]map[string]*MemoryTable)}
}

// Put registers a table under a spreadsheet id.
func (s *MemoryStore) Put(id string, t *MemoryTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sheets[id] == nil {
		s.sheets[id] = make(map[string]*MemoryTable)
	}
	s.sheets[id][t.Name()] = t
}

func (s *MemoryStore) Open(_ context.Context, id string) (Spreadsheet, error) {
	return memorySpreadsheet{store: s, id: id}, nil
}

type memorySpreadsheet struct {
	store *MemoryStore
	id    string
}

func (m memorySpreadsheet) Sheet(_ context.Context, name string) (Table, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	t, ok := m.store.sheets[m.id][name]
	if !ok {
		return nil, ErrSheetNotFound
	}
	return t, nil
}
