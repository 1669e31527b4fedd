// Package xlsx is a workbook-backed store: each spreadsheet id is a
// "<id>.xlsx" file under the root directory and sheets are worksheets.
package xlsx

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/store"
)

type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Path returns the workbook path for a spreadsheet id.
func (s *Store) Path(id string) string {
	return filepath.Join(s.root, id+".xlsx")
}

func (s *Store) Open(_ context.Context, id string) (store.Spreadsheet, error) {
	f, err := excelize.OpenFile(s.Path(id))
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.Path(id), err)
	}
	return &Workbook{file: f}, nil
}

// Workbook is an opened .xlsx file. Tables from the same workbook share
// its lock; every write saves the file.
type Workbook struct {
	mu   sync.Mutex
	file *excelize.File
}

func (w *Workbook) Sheet(_ context.Context, name string) (store.Table, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx, err := w.file.GetSheetIndex(name)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, store.ErrSheetNotFound
	}
	return &Table{book: w, name: name}, nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.file.Close()
}

type Table struct {
	book *Workbook
	name string
}

func (t *Table) Name() string { return t.name }

func (t *Table) ReadAllRows(_ context.Context) ([][]string, error) {
	t.book.mu.Lock()
	defer t.book.mu.Unlock()
	rows, err := t.book.file.GetRows(t.name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", t.name, err)
	}
	return rows, nil
}

func (t *Table) BatchWrite(_ context.Context, writes []store.Write) error {
	if len(writes) == 0 {
		return nil
	}
	t.book.mu.Lock()
	defer t.book.mu.Unlock()
	for _, w := range writes {
		if err := t.book.file.SetCellStr(t.name, w.Cell.A1(), w.Value); err != nil {
			return fmt.Errorf("write %s!%s: %w", t.name, w.Cell.A1(), err)
		}
	}
	return t.book.file.Save()
}

func (t *Table) SetCellFormat(ctx context.Context, cell store.Cell, format store.Format) error {
	return t.BatchFormat(ctx, []store.FormatRequest{{Cell: cell, Format: format}})
}

// BatchFormat applies every format and saves once.
func (t *Table) BatchFormat(_ context.Context, reqs []store.FormatRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	t.book.mu.Lock()
	defer t.book.mu.Unlock()
	styles := make(map[string]int)
	for _, req := range reqs {
		key := styleKey(req.Format)
		id, ok := styles[key]
		if !ok {
			var err error
			id, err = t.book.file.NewStyle(toStyle(req.Format))
			if err != nil {
				return fmt.Errorf("create style: %w", err)
			}
			styles[key] = id
		}
		ref := req.Cell.A1()
		if err := t.book.file.SetCellStyle(t.name, ref, ref, id); err != nil {
			return fmt.Errorf("format %s!%s: %w", t.name, ref, err)
		}
	}
	return t.book.file.Save()
}

func toStyle(f store.Format) *excelize.Style {
	style := &excelize.Style{}
	if f.Foreground != nil {
		style.Font = &excelize.Font{Color: hexColor(*f.Foreground)}
	}
	if f.Background != nil {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{hexColor(*f.Background)}}
	}
	return style
}

// styleKey identifies a format by its color values rather than its pointers.
func styleKey(f store.Format) string {
	key := "fg:"
	if f.Foreground != nil {
		key += hexColor(*f.Foreground)
	}
	key += "/bg:"
	if f.Background != nil {
		key += hexColor(*f.Background)
	}
	return key
}

func hexColor(c domain.Color) string {
	return fmt.Sprintf("%02X%02X%02X", channel(c.Red), channel(c.Green), channel(c.Blue))
}

func channel(v float64) int {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return int(v*255 + 0.5)
}
