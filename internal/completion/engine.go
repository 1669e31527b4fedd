package completion

import (
	"strings"

	"github.com/farhaan/fletes-reconcile-system/internal/changeset"
	"github.com/farhaan/fletes-reconcile-system/internal/config"
	"github.com/farhaan/fletes-reconcile-system/internal/dataset"
	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/domain/record"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/store"
	"github.com/farhaan/fletes-reconcile-system/pkg/normalize"
)

// Field binds a field kind to its shipment column and current value.
type Field struct {
	Kind    domain.FieldKind
	Column  int // 0-based
	Current func(*record.Shipment) string
}

// Fields returns the completable fields in processing order.
func Fields(cols config.ShipmentColumns) []Field {
	return []Field{
		{domain.FieldProduct, cols.Product, func(s *record.Shipment) string { return s.Product }},
		{domain.FieldOrigin, cols.Origin, func(s *record.Shipment) string { return s.Origin }},
		{domain.FieldDestination, cols.Destination, func(s *record.Shipment) string { return s.Destination }},
		{domain.FieldCarrier, cols.Carrier, func(s *record.Shipment) string { return s.Carrier }},
		{domain.FieldDriver, cols.Driver, func(s *record.Shipment) string { return s.Driver }},
		{domain.FieldWeighedWeight, cols.WeighedNet, func(s *record.Shipment) string { return s.WeighedNet }},
		{domain.FieldUnloadedWeight, cols.UnloadedNet, func(s *record.Shipment) string { return s.UnloadedNet }},
	}
}

// Result carries the completion counters.
type Result struct {
	FieldsCompleted   int                      `json:"fields_completed"`
	CaseCorrections   int                      `json:"case_corrections"`
	CarriersCorrected int                      `json:"carriers_corrected"`
	OriginsCorrected  int                      `json:"origins_corrected"`
	RowsUpdated       int                      `json:"rows_updated"`
	ByField           map[domain.FieldKind]int `json:"by_field"`
	References        References               `json:"references"`
}

// References are the sizes of the lookup tables consulted.
type References struct {
	WeighTickets    int `json:"weigh_tickets"`
	UnloadsByCargo  int `json:"unloads_by_cargo_code"`
	UnloadsByNumber int `json:"unloads_by_waybill"`
	WaybillsByNum   int `json:"waybills_by_number"`
	WaybillsByCargo int `json:"waybills_by_cargo_code"`
}

type Engine struct {
	fields []Field
}

func NewEngine(cols config.ShipmentColumns) *Engine {
	return &Engine{fields: Fields(cols)}
}

// Run decides every fill and case correction and queues them, gray, on b.
// Shipments without a cargo code and a waybill are skipped.
func (e *Engine) Run(shipments []record.Shipment, idx *dataset.Index, b *changeset.Builder) Result {
	res := Result{
		ByField: make(map[domain.FieldKind]int),
		References: References{
			WeighTickets:    len(idx.WeighByWaybill),
			UnloadsByCargo:  len(idx.UnloadByCargo),
			UnloadsByNumber: len(idx.UnloadByWaybill),
			WaybillsByNum:   len(idx.WaybillByNumber),
			WaybillsByCargo: len(idx.WaybillByCargo),
		},
	}
	gray := store.TextColor(domain.ColorGray)

	for i := range shipments {
		s := &shipments[i]
		if !s.Linkable() {
			continue
		}
		keys := Keys{
			CargoCode: normalize.CargoCode(s.CargoCode),
			Waybill:   normalize.Waybill(s.Waybill),
		}

		updated := false
		for _, f := range e.fields {
			found, _ := Resolve(f.Kind, idx, keys)
			if found == "" {
				continue
			}
			current := strings.TrimSpace(f.Current(s))
			cell := store.Cell{Row: s.Row, Col: f.Column + 1}

			switch {
			case current == "":
				b.SetFormatted(cell, found, gray)
				res.FieldsCompleted++
				res.ByField[f.Kind]++
				updated = true
			case f.Kind.CaseCorrectable() && current != found && strings.EqualFold(current, found):
				b.SetFormatted(cell, found, gray)
				res.CaseCorrections++
				if f.Kind == domain.FieldCarrier {
					res.CarriersCorrected++
				} else {
					res.OriginsCorrected++
				}
				updated = true
			}
		}
		if updated {
			res.RowsUpdated++
		}
	}
	return res
}
