package dashboard

import (
	"strings"

	"github.com/farhaan/fletes-reconcile-system/internal/dataset"
	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/domain/record"
	"github.com/farhaan/fletes-reconcile-system/pkg/normalize"
)

// Candidate is a waybill a reviewer can choose for a duplicate-plate case.
type Candidate struct {
	Waybill string `json:"waybill"`
	Date    string `json:"date"`
	Product string `json:"product"`
}

// DuplicateCase is an assigned weigh ticket whose waybill could have been
// any of several same-product waybills for its plate.
type DuplicateCase struct {
	Row             int         `json:"row"`
	Plate           string      `json:"plate"`
	Date            string      `json:"date"`
	Product         string      `json:"product"`
	AssignedWaybill string      `json:"assigned_waybill"`
	Candidates      []Candidate `json:"candidates"`
}

type DuplicateReport struct {
	DuplicatePlates int             `json:"duplicate_plates"`
	Cases           []DuplicateCase `json:"cases"`
}

// Duplicates builds the duplicate-plate review queue. A ticket is listed
// when it has a plate and a waybill, is not verified, its plate carries
// several waybills not already verified on another ticket, none of them is
// dated on the weigh date, and more than one of them has the ticket's
// product.
func Duplicates(weighs []record.WeighTicket, idx *dataset.Index) DuplicateReport {
	rep := DuplicateReport{Cases: []DuplicateCase{}}
	for _, list := range idx.WaybillsByPlate {
		if len(list) > 1 {
			rep.DuplicatePlates++
		}
	}
	if rep.DuplicatePlates == 0 {
		return rep
	}

	verified := make(map[string]struct{})
	for i := range weighs {
		t := &weighs[i]
		if t.IsVerified() && t.HasWaybill() {
			verified[normalize.Waybill(t.Waybill)] = struct{}{}
		}
	}

	for i := range weighs {
		t := &weighs[i]
		if strings.TrimSpace(t.Plate) == "" || !t.HasWaybill() || t.IsVerified() {
			continue
		}
		list := idx.WaybillsByPlate[normalize.Plate(t.Plate)]
		if len(list) <= 1 {
			continue
		}

		open := make([]*record.Waybill, 0, len(list))
		for _, w := range list {
			if _, done := verified[w.NormalizedNumber()]; !done {
				open = append(open, w)
			}
		}
		if len(open) <= 1 {
			continue
		}

		date := normalize.Date(t.Date)
		exact := false
		for _, w := range open {
			if normalize.Date(w.Date) == date {
				exact = true
				break
			}
		}
		if exact {
			continue
		}

		product := normalize.Product(t.Product)
		var same []Candidate
		for _, w := range open {
			if normalize.Product(w.Product) == product {
				same = append(same, Candidate{
					Waybill: strings.TrimSpace(w.Number),
					Date:    normalize.Date(w.Date),
					Product: w.Product,
				})
			}
		}
		if len(same) <= 1 {
			continue
		}
		rep.Cases = append(rep.Cases, DuplicateCase{
			Row:             t.Row,
			Plate:           t.Plate,
			Date:            t.Date,
			Product:         t.Product,
			AssignedWaybill: t.Waybill,
			Candidates:      same,
		})
	}
	return rep
}

// MissingWaybillRow is a shipment still waiting for a waybill or a manual
// classification.
type MissingWaybillRow struct {
	Row       int    `json:"row"`
	Date      string `json:"date"`
	Carrier   string `json:"carrier"`
	Product   string `json:"product"`
	CargoCode string `json:"cargo_code"`
	Quantity  string `json:"quantity"`
	Waybill   string `json:"waybill"`
	LinkFlag  string `json:"link_flag"`
}

type MissingWaybillReport struct {
	Total        int                 `json:"total"`
	MarkedNo     int                 `json:"marked_no"`
	Unclassified int                 `json:"unclassified"`
	Rows         []MissingWaybillRow `json:"rows"`
}

func blank(s *record.Shipment) bool {
	return s.InvoiceNumber == "" && s.Date == "" && s.Product == "" &&
		s.CargoCode == "" && s.Carrier == ""
}

// MissingWaybill lists shipments flagged "no", or with both the flag and
// the waybill empty. At most limit rows are returned; the counters cover
// every listed shipment.
func MissingWaybill(shipments []record.Shipment, limit int) MissingWaybillReport {
	rep := MissingWaybillReport{Rows: []MissingWaybillRow{}}
	for i := range shipments {
		s := &shipments[i]
		if blank(s) {
			continue
		}
		flag := strings.ToLower(strings.TrimSpace(s.LinkFlag))
		markedNo := flag == domain.LinkNo
		unclassified := flag == "" && s.Waybill == ""
		if !markedNo && !unclassified {
			continue
		}
		rep.Total++
		if markedNo {
			rep.MarkedNo++
		} else {
			rep.Unclassified++
		}
		if limit > 0 && len(rep.Rows) >= limit {
			continue
		}
		rep.Rows = append(rep.Rows, MissingWaybillRow{
			Row:       s.Row,
			Date:      s.Date,
			Carrier:   s.Carrier,
			Product:   s.Product,
			CargoCode: s.CargoCode,
			Quantity:  s.Quantity,
			Waybill:   s.Waybill,
			LinkFlag:  s.LinkFlag,
		})
	}
	return rep
}
