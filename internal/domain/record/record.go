// Package record holds the four row types reconciled by the engine. Each
// record keeps its 1-based sheet row so decisions can be written back to
// the exact cell they came from.
package record

import (
	"strings"

	"github.com/farhaan/fletes-reconcile-system/pkg/normalize"
)

// Shipment is an invoiced freight line ("Fletes facturados").
type Shipment struct {
	Row            int
	InvoiceNumber  string
	Date           string
	Product        string
	Quantity       string
	CargoCode      string
	Waybill        string
	Origin         string
	Destination    string
	Carrier        string
	Driver         string
	Total          string
	WeighedNet     string
	LinkFlag       string
	UnloadedNet    string
	Classification string
}

// Linkable reports whether the shipment carries at least one identifier
// that other datasets can be joined on.
func (s *Shipment) Linkable() bool {
	return strings.TrimSpace(s.CargoCode) != "" || strings.TrimSpace(s.Waybill) != ""
}

// WeighTicket is an on-farm weighing record ("Pesadas").
type WeighTicket struct {
	Row      int
	Date     string
	Product  string
	Net      string
	Origin   string
	Plate    string
	Carrier  string
	Waybill  string
	Driver   string
	Verified string
}

// HasWaybill reports whether the ticket already references a waybill.
func (w *WeighTicket) HasWaybill() bool {
	return strings.TrimSpace(w.Waybill) != ""
}

// IsVerified reports whether an operator confirmed the ticket's waybill.
func (w *WeighTicket) IsVerified() bool {
	return strings.EqualFold(strings.TrimSpace(w.Verified), "OK")
}

// UnloadTicket is a destination-site unloading record ("Descargas").
type UnloadTicket struct {
	Row       int
	Product   string
	Origin    string
	Waybill   string
	CargoCode string
	Net       string
	Carrier   string
}

// Waybill is an official transport document ("Carta de Porte").
type Waybill struct {
	Row         int
	CargoCode   string
	Number      string
	Date        string
	Carrier     string
	Driver      string
	Product     string
	Origin      string
	Destination string
	PlatesRaw   string
}

// NormalizedNumber returns the comparable waybill number.
func (w *Waybill) NormalizedNumber() string {
	return normalize.Waybill(w.Number)
}

// NormalizedCargoCode returns the comparable cargo-tracking code.
func (w *Waybill) NormalizedCargoCode() string {
	return normalize.CargoCode(w.CargoCode)
}

// Plates returns every normalized plate listed on the document.
func (w *Waybill) Plates() []string {
	return normalize.Plates(w.PlatesRaw)
}
