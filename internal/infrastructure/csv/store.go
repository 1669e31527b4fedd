// Package csv is a directory-of-CSV-files backing store. A spreadsheet id
// maps to a subdirectory of the root and each sheet to "<name>.csv" inside
// it. Writes rewrite the whole file; cell formats cannot be represented in
// CSV and are dropped.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/store"
)

type Store struct {
	root   string
	logger logrus.FieldLogger
}

func NewStore(root string, logger logrus.FieldLogger) *Store {
	return &Store{root: root, logger: logger}
}

func (s *Store) Open(_ context.Context, id string) (store.Spreadsheet, error) {
	dir := filepath.Join(s.root, id)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("spreadsheet path %s is not a directory", dir)
	}
	return &spreadsheet{dir: dir, logger: s.logger}, nil
}

type spreadsheet struct {
	dir    string
	logger logrus.FieldLogger
}

func (s *spreadsheet) Sheet(_ context.Context, name string) (store.Table, error) {
	path := filepath.Join(s.dir, name+".csv")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, store.ErrSheetNotFound
		}
		return nil, err
	}
	return &Table{name: name, path: path, logger: s.logger}, nil
}

// Table is one CSV file.
type Table struct {
	mu     sync.Mutex
	name   string
	path   string
	logger logrus.FieldLogger
}

func (t *Table) Name() string { return t.name }

func (t *Table) ReadAllRows(_ context.Context) ([][]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readLocked()
}

func (t *Table) readLocked() ([][]string, error) {
	r, err := NewReader(t.path)
	if err != nil {
		return nil, err
	}
	rows := [][]string{r.Headers()}
	err = r.ReadRows(func(row []string, sheetRow int, err error) error {
		if err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.path, err)
	}
	return rows, nil
}

// BatchWrite applies every write and rewrites the file once.
func (t *Table) BatchWrite(_ context.Context, writes []store.Write) error {
	if len(writes) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, err := t.readLocked()
	if err != nil {
		return err
	}
	for _, w := range writes {
		if w.Cell.Row < 1 || w.Cell.Col < 1 {
			return fmt.Errorf("invalid cell %s", w.Cell)
		}
		for len(rows) < w.Cell.Row {
			rows = append(rows, nil)
		}
		row := rows[w.Cell.Row-1]
		for len(row) < w.Cell.Col {
			row = append(row, "")
		}
		row[w.Cell.Col-1] = w.Value
		rows[w.Cell.Row-1] = row
	}

	tmp := t.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, t.path)
}

func (t *Table) SetCellFormat(_ context.Context, cell store.Cell, _ store.Format) error {
	t.logger.WithFields(logrus.Fields{"sheet": t.name, "cell": cell.A1()}).
		Debug("csv store ignores cell formats")
	return nil
}
