// Package store defines the tabular backing-store abstraction the
// reconciliation engine reads snapshots from and writes decisions to.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/farhaan/fletes-reconcile-system/internal/domain"
)

var ErrSheetNotFound = errors.New("sheet not found")

// Cell is a 1-based (row, column) address.
type Cell struct {
	Row int
	Col int
}

// A1 renders the address in spreadsheet notation ("B7").
func (c Cell) A1() string {
	name, err := excelize.CoordinatesToCellName(c.Col, c.Row)
	if err != nil {
		return fmt.Sprintf("R%dC%d", c.Row, c.Col)
	}
	return name
}

func (c Cell) String() string { return c.A1() }

// Write sets one cell to a value.
type Write struct {
	Cell  Cell
	Value string
}

// Format describes a visual marker for a cell. A nil color leaves that
// attribute untouched.
type Format struct {
	Foreground *domain.Color
	Background *domain.Color
}

// TextColor returns a format that only changes the text color.
func TextColor(c domain.Color) Format { return Format{Foreground: &c} }

// FillColor returns a format that only changes the background color.
func FillColor(c domain.Color) Format { return Format{Background: &c} }

// FormatRequest pairs a cell with the format to apply.
type FormatRequest struct {
	Cell   Cell
	Format Format
}

// Table is one sheet of a spreadsheet.
type Table interface {
	Name() string
	// ReadAllRows returns every row, headers first.
	ReadAllRows(ctx context.Context) ([][]string, error)
	BatchWrite(ctx context.Context, writes []Write) error
	SetCellFormat(ctx context.Context, cell Cell, format Format) error
}

// BatchFormatter is implemented by tables that can format several cells in
// one call.
type BatchFormatter interface {
	BatchFormat(ctx context.Context, reqs []FormatRequest) error
}

// Spreadsheet is an opened document holding named sheets.
type Spreadsheet interface {
	Sheet(ctx context.Context, name string) (Table, error)
}

// Store opens spreadsheets by identifier.
type Store interface {
	Open(ctx context.Context, id string) (Spreadsheet, error)
}

// OpenTable opens a spreadsheet and returns one of its sheets.
func OpenTable(ctx context.Context, s Store, id, sheet string) (Table, error) {
	ss, err := s.Open(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", id, err)
	}
	t, err := ss.Sheet(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("open sheet %q: %w", sheet, err)
	}
	return t, nil
}

// Value returns the cell at col (0-based) or "" when the row is shorter.
func Value(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
