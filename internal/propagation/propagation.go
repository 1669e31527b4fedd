// Package propagation copies weights and waybill numbers into shipments
// that share a cargo code with a weigh ticket, unload ticket or waybill.
// Every pass skips cells that already hold a value.
package propagation

import (
	"github.com/farhaan/fletes-reconcile-system/internal/changeset"
	"github.com/farhaan/fletes-reconcile-system/internal/config"
	"github.com/farhaan/fletes-reconcile-system/internal/dataset"
	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/domain/record"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/store"
	"github.com/farhaan/fletes-reconcile-system/pkg/normalize"
)

type WeighedResult struct {
	WaybillsMapped          int `json:"waybills_mapped"`
	WeighTicketsWithWaybill int `json:"weigh_tickets_with_waybill"`
	TotalShipments          int `json:"total_shipments"`
	AlreadyPopulated        int `json:"already_populated"`
	NewMatches              int `json:"new_matches"`
	NoMatch                 int `json:"no_match"`
}

// Weighed writes the weigh ticket net into shipments, translating the
// ticket's waybill number into the shipment's cargo code. When a cargo
// code carries several waybills, the first one with a weighed net wins.
func Weighed(shipments []record.Shipment, idx *dataset.Index, cols config.ShipmentColumns, b *changeset.Builder) WeighedResult {
	res := WeighedResult{}
	for _, numbers := range idx.WaybillNumbersByCargo {
		res.WaybillsMapped += len(numbers)
	}
	res.WeighTicketsWithWaybill = len(idx.WeighNetByWaybill)
	green := store.FillColor(domain.ColorGreen)

	for i := range shipments {
		s := &shipments[i]
		cargo := normalize.CargoCode(s.CargoCode)
		if cargo == "" {
			continue
		}
		res.TotalShipments++
		if s.WeighedNet != "" {
			res.AlreadyPopulated++
			continue
		}

		net := ""
		for _, number := range idx.WaybillNumbersByCargo[cargo] {
			if n, ok := idx.WeighNetByWaybill[normalize.Waybill(number)]; ok {
				net = n
				break
			}
		}
		if net == "" {
			res.NoMatch++
			continue
		}
		b.SetFormatted(store.Cell{Row: s.Row, Col: cols.WeighedNet + 1}, net, green)
		res.NewMatches++
	}
	return res
}

type UnloadedResult struct {
	UnloadsWithCargoCode int `json:"unloads_with_cargo_code"`
	TotalShipments       int `json:"total_shipments"`
	AlreadyPopulated     int `json:"already_populated"`
	NewMatches           int `json:"new_matches"`
	NoMatch              int `json:"no_match"`
}

// Unloaded writes the unload ticket net into shipments by cargo code.
func Unloaded(shipments []record.Shipment, idx *dataset.Index, cols config.ShipmentColumns, b *changeset.Builder) UnloadedResult {
	res := UnloadedResult{}
	for _, u := range idx.UnloadByCargo {
		if u.Net != "" {
			res.UnloadsWithCargoCode++
		}
	}
	green := store.FillColor(domain.ColorGreen)

	for i := range shipments {
		s := &shipments[i]
		cargo := normalize.CargoCode(s.CargoCode)
		if cargo == "" {
			continue
		}
		res.TotalShipments++
		if s.UnloadedNet != "" {
			res.AlreadyPopulated++
			continue
		}
		u, ok := idx.UnloadByCargo[cargo]
		if !ok || u.Net == "" {
			res.NoMatch++
			continue
		}
		b.SetFormatted(store.Cell{Row: s.Row, Col: cols.UnloadedNet + 1}, u.Net, green)
		res.NewMatches++
	}
	return res
}

type LinkResult struct {
	WaybillsAvailable int `json:"waybills_available"`
	TotalShipments    int `json:"total_shipments"`
	WithWaybill       int `json:"with_waybill"`
	WithoutWaybill    int `json:"without_waybill"`
	Protected         int `json:"protected"`
}

// Link copies the waybill number found for each shipment's cargo code and
// sets the linkage flag to "si" (green) or "no" (red). Rows whose flag
// already holds a manual classification or a yes/no are left alone; the
// builder must protect the flag column with domain.ProtectedLinkValues.
func Link(shipments []record.Shipment, idx *dataset.Index, cols config.ShipmentColumns, b *changeset.Builder) LinkResult {
	res := LinkResult{WaybillsAvailable: len(idx.WaybillByCargo)}
	green := store.FillColor(domain.ColorGreen)
	red := store.FillColor(domain.ColorRed)

	for i := range shipments {
		s := &shipments[i]
		cargo := normalize.CargoCode(s.CargoCode)
		if cargo == "" {
			continue
		}
		res.TotalShipments++

		w, found := idx.WaybillByCargo[cargo]
		flagCell := store.Cell{Row: s.Row, Col: cols.LinkFlag + 1}

		if b.IsProtected(flagCell, s.LinkFlag) {
			res.Protected++
			if found {
				res.WithWaybill++
			} else {
				res.WithoutWaybill++
			}
			continue
		}

		if !found {
			b.SetGuarded(flagCell, s.LinkFlag, domain.LinkNo, &red)
			res.WithoutWaybill++
			continue
		}
		if s.Waybill == "" {
			b.Set(store.Cell{Row: s.Row, Col: cols.Waybill + 1}, w.Number)
		}
		b.SetGuarded(flagCell, s.LinkFlag, domain.LinkYes, &green)
		res.WithWaybill++
	}
	return res
}
