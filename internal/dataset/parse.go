// Package dataset turns raw sheet snapshots into records and builds the
// lookup indexes the matchers and the completion engine consult.
package dataset

import (
	"strings"

	"github.com/farhaan/fletes-reconcile-system/internal/config"
	"github.com/farhaan/fletes-reconcile-system/internal/domain/record"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/store"
)

// cell returns the trimmed value at col, or "" when the row is shorter.
func cell(row []string, col int) string {
	return strings.TrimSpace(store.Value(row, col))
}

// dataRows yields every row after the header with its 1-based sheet row.
func dataRows(rows [][]string, fn func(sheetRow int, row []string)) {
	for i := 1; i < len(rows); i++ {
		fn(i+1, rows[i])
	}
}

func ParseShipments(rows [][]string, cols config.ShipmentColumns) []record.Shipment {
	out := make([]record.Shipment, 0, max(len(rows)-1, 0))
	dataRows(rows, func(sheetRow int, row []string) {
		out = append(out, record.Shipment{
			Row:            sheetRow,
			InvoiceNumber:  cell(row, cols.Invoice),
			Date:           cell(row, cols.Date),
			Product:        cell(row, cols.Product),
			Quantity:       cell(row, cols.Quantity),
			CargoCode:      cell(row, cols.CargoCode),
			Waybill:        cell(row, cols.Waybill),
			Origin:         cell(row, cols.Origin),
			Destination:    cell(row, cols.Destination),
			Carrier:        cell(row, cols.Carrier),
			Driver:         cell(row, cols.Driver),
			Total:          cell(row, cols.Total),
			WeighedNet:     cell(row, cols.WeighedNet),
			LinkFlag:       cell(row, cols.LinkFlag),
			UnloadedNet:    cell(row, cols.UnloadedNet),
			Classification: cell(row, cols.Classification),
		})
	})
	return out
}

func ParseWeighTickets(rows [][]string, cols config.WeighColumns) []record.WeighTicket {
	out := make([]record.WeighTicket, 0, max(len(rows)-1, 0))
	dataRows(rows, func(sheetRow int, row []string) {
		out = append(out, record.WeighTicket{
			Row:      sheetRow,
			Date:     cell(row, cols.Date),
			Product:  cell(row, cols.Product),
			Net:      cell(row, cols.Net),
			Origin:   cell(row, cols.Origin),
			Plate:    cell(row, cols.Plate),
			Carrier:  cell(row, cols.Carrier),
			Waybill:  cell(row, cols.Waybill),
			Driver:   cell(row, cols.Driver),
			Verified: cell(row, cols.Verified),
		})
	})
	return out
}

func ParseUnloadTickets(rows [][]string, cols config.UnloadColumns) []record.UnloadTicket {
	out := make([]record.UnloadTicket, 0, max(len(rows)-1, 0))
	dataRows(rows, func(sheetRow int, row []string) {
		out = append(out, record.UnloadTicket{
			Row:       sheetRow,
			Product:   cell(row, cols.Product),
			Origin:    cell(row, cols.Origin),
			Waybill:   cell(row, cols.Waybill),
			CargoCode: cell(row, cols.CargoCode),
			Net:       cell(row, cols.Net),
			Carrier:   cell(row, cols.Carrier),
		})
	})
	return out
}

func ParseWaybills(rows [][]string, cols config.WaybillColumns) []record.Waybill {
	out := make([]record.Waybill, 0, max(len(rows)-1, 0))
	dataRows(rows, func(sheetRow int, row []string) {
		out = append(out, record.Waybill{
			Row:         sheetRow,
			CargoCode:   cell(row, cols.CargoCode),
			Number:      cell(row, cols.Number),
			Date:        cell(row, cols.Date),
			Carrier:     cell(row, cols.Carrier),
			Driver:      cell(row, cols.Driver),
			Product:     cell(row, cols.Product),
			Origin:      cell(row, cols.Origin),
			Destination: cell(row, cols.Destination),
			PlatesRaw:   cell(row, cols.Plates),
		})
	})
	return out
}
