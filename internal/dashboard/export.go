package dashboard

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const alertsSheet = "Alertas"

var alertHeaders = []string{
	"Fila", "Fecha", "Transportista", "Producto", "Origen",
	"Kg pesadas", "Kg descargas", "Merma kg", "Merma %",
	"Cantidad facturada", "Dif. facturación", "Motivos",
}

func cellNumber(d decimal.NullDecimal) any {
	if !d.Valid {
		return ""
	}
	return d.Decimal.InexactFloat64()
}

// ExportAlertsXLSX writes alerts as a single-sheet workbook to w.
func ExportAlertsXLSX(w io.Writer, alerts []Alert) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", alertsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9D9D9"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range alertHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(alertsSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header %q: %w", header, err)
		}
		if err := f.SetCellStyle(alertsSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to style header %q: %w", header, err)
		}
	}

	for i, a := range alerts {
		values := []any{
			a.Row, a.Date, a.Carrier, a.Product, a.Origin,
			cellNumber(a.Weighed), cellNumber(a.Unloaded), cellNumber(a.ShrinkageKg),
			cellNumber(a.ShrinkagePct), cellNumber(a.Quantity), cellNumber(a.BillingDiff),
			strings.Join(a.Reasons, ", "),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(alertsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write alert row %d: %w", a.Row, err)
		}
	}

	for i := range alertHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(alertsSheet, col, col, 16)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
