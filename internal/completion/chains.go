// Package completion fills blank shipment fields from the linked weigh
// tickets, unload tickets and waybills.
package completion

import (
	"strings"

	"github.com/farhaan/fletes-reconcile-system/internal/dataset"
	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/domain/record"
)

// Keys are the normalized identifiers of one shipment.
type Keys struct {
	CargoCode string
	Waybill   string
}

// Source looks a value up in one index. It returns "" when the key is
// absent or the field is blank.
type Source struct {
	Name   string
	Lookup func(idx *dataset.Index, k Keys) string
}

func waybillByCargo(get func(*record.Waybill) string) Source {
	return Source{Name: "waybill_by_cargo_code", Lookup: func(idx *dataset.Index, k Keys) string {
		if w, ok := idx.WaybillByCargo[k.CargoCode]; ok && k.CargoCode != "" {
			return get(w)
		}
		return ""
	}}
}

func waybillByNumber(get func(*record.Waybill) string) Source {
	return Source{Name: "waybill_by_number", Lookup: func(idx *dataset.Index, k Keys) string {
		if w, ok := idx.WaybillByNumber[k.Waybill]; ok && k.Waybill != "" {
			return get(w)
		}
		return ""
	}}
}

func unloadByCargo(get func(*record.UnloadTicket) string) Source {
	return Source{Name: "unload_by_cargo_code", Lookup: func(idx *dataset.Index, k Keys) string {
		if u, ok := idx.UnloadByCargo[k.CargoCode]; ok && k.CargoCode != "" {
			return get(u)
		}
		return ""
	}}
}

func unloadByWaybill(get func(*record.UnloadTicket) string) Source {
	return Source{Name: "unload_by_waybill", Lookup: func(idx *dataset.Index, k Keys) string {
		if u, ok := idx.UnloadByWaybill[k.Waybill]; ok && k.Waybill != "" {
			return get(u)
		}
		return ""
	}}
}

func weighByWaybill(get func(*record.WeighTicket) string) Source {
	return Source{Name: "weigh_by_waybill", Lookup: func(idx *dataset.Index, k Keys) string {
		if t, ok := idx.WeighByWaybill[k.Waybill]; ok && k.Waybill != "" {
			return get(t)
		}
		return ""
	}}
}

// Chains lists, per field, the sources consulted in priority order.
var Chains = map[domain.FieldKind][]Source{
	domain.FieldOrigin: {
		waybillByCargo(func(w *record.Waybill) string { return w.Origin }),
		waybillByNumber(func(w *record.Waybill) string { return w.Origin }),
		unloadByCargo(func(u *record.UnloadTicket) string { return u.Origin }),
		weighByWaybill(func(t *record.WeighTicket) string { return t.Origin }),
	},
	domain.FieldDestination: {
		waybillByCargo(func(w *record.Waybill) string { return w.Destination }),
		waybillByNumber(func(w *record.Waybill) string { return w.Destination }),
	},
	domain.FieldProduct: {
		waybillByCargo(func(w *record.Waybill) string { return w.Product }),
		waybillByNumber(func(w *record.Waybill) string { return w.Product }),
		unloadByCargo(func(u *record.UnloadTicket) string { return u.Product }),
		weighByWaybill(func(t *record.WeighTicket) string { return t.Product }),
	},
	domain.FieldDriver: {
		waybillByCargo(func(w *record.Waybill) string { return w.Driver }),
		waybillByNumber(func(w *record.Waybill) string { return w.Driver }),
		weighByWaybill(func(t *record.WeighTicket) string { return t.Driver }),
	},
	domain.FieldCarrier: {
		waybillByCargo(func(w *record.Waybill) string { return w.Carrier }),
		waybillByNumber(func(w *record.Waybill) string { return w.Carrier }),
		weighByWaybill(func(t *record.WeighTicket) string { return t.Carrier }),
		unloadByCargo(func(u *record.UnloadTicket) string { return u.Carrier }),
	},
	domain.FieldWeighedWeight: {
		weighByWaybill(func(t *record.WeighTicket) string { return t.Net }),
	},
	domain.FieldUnloadedWeight: {
		unloadByCargo(func(u *record.UnloadTicket) string { return u.Net }),
		unloadByWaybill(func(u *record.UnloadTicket) string { return u.Net }),
	},
}

// Resolve walks the chain for kind and returns the first non-blank value
// with the name of the source that supplied it.
func Resolve(kind domain.FieldKind, idx *dataset.Index, k Keys) (value, source string) {
	for _, src := range Chains[kind] {
		if v := strings.TrimSpace(src.Lookup(idx, k)); v != "" {
			return v, src.Name
		}
	}
	return "", ""
}
