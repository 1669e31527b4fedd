// Package sheets is the Google Sheets backing store.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/store"
)

// valueInputOption keeps written values verbatim.
const valueInputOption = "RAW"

type Store struct {
	srv    *sheetsapi.Service
	logger logrus.FieldLogger
}

// NewStore builds a store authenticated with ts.
func NewStore(ctx context.Context, ts oauth2.TokenSource, logger logrus.FieldLogger) (*Store, error) {
	return newStore(ctx, logger, option.WithTokenSource(ts))
}

// NewServiceAccountStore builds a store from a service-account key file.
func NewServiceAccountStore(ctx context.Context, credentialFile string, logger logrus.FieldLogger) (*Store, error) {
	return newStore(ctx, logger, option.WithCredentialsFile(credentialFile), option.WithScopes(sheetsapi.SpreadsheetsScope))
}

func newStore(ctx context.Context, logger logrus.FieldLogger, opts ...option.ClientOption) (*Store, error) {
	srv, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Store{srv: srv, logger: logger}, nil
}

func (s *Store) Open(ctx context.Context, id string) (store.Spreadsheet, error) {
	doc, err := s.srv.Spreadsheets.Get(id).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet %s: %w", id, err)
	}
	ids := make(map[string]int64, len(doc.Sheets))
	for _, sh := range doc.Sheets {
		if sh.Properties != nil {
			ids[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	return &Spreadsheet{store: s, id: id, sheetIDs: ids}, nil
}

type Spreadsheet struct {
	store    *Store
	id       string
	mu       sync.Mutex
	sheetIDs map[string]int64
}

func (sp *Spreadsheet) Sheet(_ context.Context, name string) (store.Table, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sheetID, ok := sp.sheetIDs[name]
	if !ok {
		return nil, store.ErrSheetNotFound
	}
	return &Table{
		srv:           sp.store.srv,
		spreadsheetID: sp.id,
		sheetID:       sheetID,
		name:          name,
		logger:        sp.store.logger,
	}, nil
}

// Table is one worksheet.
type Table struct {
	srv           *sheetsapi.Service
	spreadsheetID string
	sheetID       int64
	name          string
	logger        logrus.FieldLogger
}

func (t *Table) Name() string { return t.name }

// quotedName returns the sheet name as used in A1 ranges.
func (t *Table) quotedName() string {
	return "'" + strings.ReplaceAll(t.name, "'", "''") + "'"
}

func (t *Table) ReadAllRows(ctx context.Context) ([][]string, error) {
	resp, err := t.srv.Spreadsheets.Values.Get(t.spreadsheetID, t.quotedName()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", t.name, err)
	}
	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		row := make([]string, len(raw))
		for j, v := range raw {
			if v != nil {
				row[j] = fmt.Sprint(v)
			}
		}
		rows[i] = row
	}
	return rows, nil
}

func (t *Table) BatchWrite(ctx context.Context, writes []store.Write) error {
	if len(writes) == 0 {
		return nil
	}
	data := make([]*sheetsapi.ValueRange, 0, len(writes))
	for _, w := range writes {
		data = append(data, &sheetsapi.ValueRange{
			Range:  t.quotedName() + "!" + w.Cell.A1(),
			Values: [][]interface{}{{w.Value}},
		})
	}
	req := &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: valueInputOption,
		Data:             data,
	}
	if _, err := t.srv.Spreadsheets.Values.BatchUpdate(t.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("batch update %q (%d cells): %w", t.name, len(writes), err)
	}
	return nil
}

func (t *Table) SetCellFormat(ctx context.Context, cell store.Cell, format store.Format) error {
	return t.BatchFormat(ctx, []store.FormatRequest{{Cell: cell, Format: format}})
}

// BatchFormat sends one RepeatCell request per cell in a single
// spreadsheet batch update.
func (t *Table) BatchFormat(ctx context.Context, reqs []store.FormatRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	requests := make([]*sheetsapi.Request, 0, len(reqs))
	for _, r := range reqs {
		requests = append(requests, &sheetsapi.Request{RepeatCell: t.repeatCell(r)})
	}
	body := &sheetsapi.BatchUpdateSpreadsheetRequest{Requests: requests}
	if _, err := t.srv.Spreadsheets.BatchUpdate(t.spreadsheetID, body).Context(ctx).Do(); err != nil {
		return fmt.Errorf("format %q (%d cells): %w", t.name, len(reqs), err)
	}
	return nil
}

func (t *Table) repeatCell(r store.FormatRequest) *sheetsapi.RepeatCellRequest {
	format := &sheetsapi.CellFormat{}
	var fields []string
	if r.Format.Foreground != nil {
		format.TextFormat = &sheetsapi.TextFormat{ForegroundColor: apiColor(*r.Format.Foreground)}
		fields = append(fields, "userEnteredFormat.textFormat.foregroundColor")
	}
	if r.Format.Background != nil {
		format.BackgroundColor = apiColor(*r.Format.Background)
		fields = append(fields, "userEnteredFormat.backgroundColor")
	}
	return &sheetsapi.RepeatCellRequest{
		Range: &sheetsapi.GridRange{
			SheetId:          t.sheetID,
			StartRowIndex:    int64(r.Cell.Row - 1),
			EndRowIndex:      int64(r.Cell.Row),
			StartColumnIndex: int64(r.Cell.Col - 1),
			EndColumnIndex:   int64(r.Cell.Col),
			ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
		},
		Cell:   &sheetsapi.CellData{UserEnteredFormat: format},
		Fields: strings.Join(fields, ","),
	}
}

func apiColor(c domain.Color) *sheetsapi.Color {
	return &sheetsapi.Color{
		Red:             c.Red,
		Green:           c.Green,
		Blue:            c.Blue,
		ForceSendFields: []string{"Red", "Green", "Blue"},
	}
}
