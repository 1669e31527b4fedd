package dataset

import (
	"github.com/farhaan/fletes-reconcile-system/internal/domain/record"
	"github.com/farhaan/fletes-reconcile-system/pkg/normalize"
)

// Index holds the lookup tables built from one snapshot. Every key is a
// normalized identifier; one-to-one maps keep the last row seen for a key.
type Index struct {
	WeighByWaybill  map[string]*record.WeighTicket
	UnloadByCargo   map[string]*record.UnloadTicket
	UnloadByWaybill map[string]*record.UnloadTicket
	WaybillByNumber map[string]*record.Waybill
	WaybillByCargo  map[string]*record.Waybill
	// WaybillsByPlate lists every waybill naming a plate, at most once per
	// waybill number, in sheet order.
	WaybillsByPlate map[string][]*record.Waybill
	// WaybillNumbersByCargo lists waybill numbers per cargo code in sheet
	// order.
	WaybillNumbersByCargo map[string][]string
	// WeighNetByWaybill holds the last non-empty net per waybill; a later
	// blank ticket never hides an earlier weighed one.
	WeighNetByWaybill map[string]string
}

// Snapshot is the parsed content of the four datasets.
type Snapshot struct {
	Shipments []record.Shipment
	Weighs    []record.WeighTicket
	Unloads   []record.UnloadTicket
	Waybills  []record.Waybill
}

// Build indexes the reference datasets of s. Shipments are not indexed.
func Build(s *Snapshot) *Index {
	idx := &Index{
		WeighByWaybill:    IndexWeighTickets(s.Weighs),
		WeighNetByWaybill: IndexWeighNets(s.Weighs),
	}
	idx.UnloadByCargo, idx.UnloadByWaybill = IndexUnloadTickets(s.Unloads)
	idx.WaybillByNumber, idx.WaybillByCargo = IndexWaybills(s.Waybills)
	idx.WaybillsByPlate = IndexWaybillsByPlate(s.Waybills)
	idx.WaybillNumbersByCargo = IndexWaybillNumbersByCargo(s.Waybills)
	return idx
}

// IndexWeighTickets keys tickets by their waybill reference.
func IndexWeighTickets(tickets []record.WeighTicket) map[string]*record.WeighTicket {
	out := make(map[string]*record.WeighTicket)
	for i := range tickets {
		if key := normalize.Waybill(tickets[i].Waybill); key != "" {
			out[key] = &tickets[i]
		}
	}
	return out
}

// IndexWeighNets maps waybill references to net weights, skipping tickets
// without a net.
func IndexWeighNets(tickets []record.WeighTicket) map[string]string {
	out := make(map[string]string)
	for _, t := range tickets {
		key := normalize.Waybill(t.Waybill)
		if key != "" && t.Net != "" {
			out[key] = t.Net
		}
	}
	return out
}

// IndexUnloadTickets keys tickets by cargo code and by waybill number.
func IndexUnloadTickets(tickets []record.UnloadTicket) (byCargo, byWaybill map[string]*record.UnloadTicket) {
	byCargo = make(map[string]*record.UnloadTicket)
	byWaybill = make(map[string]*record.UnloadTicket)
	for i := range tickets {
		t := &tickets[i]
		if key := normalize.CargoCode(t.CargoCode); key != "" {
			byCargo[key] = t
		}
		if key := normalize.Waybill(t.Waybill); key != "" {
			byWaybill[key] = t
		}
	}
	return byCargo, byWaybill
}

// IndexWaybills keys waybills by number and by cargo code.
func IndexWaybills(waybills []record.Waybill) (byNumber, byCargo map[string]*record.Waybill) {
	byNumber = make(map[string]*record.Waybill)
	byCargo = make(map[string]*record.Waybill)
	for i := range waybills {
		w := &waybills[i]
		if key := w.NormalizedNumber(); key != "" {
			byNumber[key] = w
		}
		if key := w.NormalizedCargoCode(); key != "" {
			byCargo[key] = w
		}
	}
	return byNumber, byCargo
}

// IndexWaybillsByPlate lists waybills per plate. A multi-plate document is
// listed under each of its plates; waybills without a number are skipped.
func IndexWaybillsByPlate(waybills []record.Waybill) map[string][]*record.Waybill {
	out := make(map[string][]*record.Waybill)
	seen := make(map[string]map[string]bool)
	for i := range waybills {
		w := &waybills[i]
		number := w.NormalizedNumber()
		if number == "" {
			continue
		}
		for _, plate := range w.Plates() {
			if seen[plate] == nil {
				seen[plate] = make(map[string]bool)
			}
			if seen[plate][number] {
				continue
			}
			seen[plate][number] = true
			out[plate] = append(out[plate], w)
		}
	}
	return out
}

// IndexWaybillNumbersByCargo maps each cargo code to the raw (trimmed)
// numbers of the waybills carrying it.
func IndexWaybillNumbersByCargo(waybills []record.Waybill) map[string][]string {
	out := make(map[string][]string)
	for i := range waybills {
		w := &waybills[i]
		cargo := w.NormalizedCargoCode()
		if cargo == "" || w.NormalizedNumber() == "" {
			continue
		}
		out[cargo] = append(out[cargo], w.Number)
	}
	return out
}

// PlatesWithMultipleWaybills counts plates listed on more than one waybill.
func (idx *Index) PlatesWithMultipleWaybills() int {
	n := 0
	for _, list := range idx.WaybillsByPlate {
		if len(list) > 1 {
			n++
		}
	}
	return n
}
