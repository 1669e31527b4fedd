// Package dashboard derives the read-only reconciliation picture from a
// snapshot: per-shipment shrinkage and billing differences, headline KPIs,
// per-carrier and per-product aggregates, alerts and the manual review
// queues.
package dashboard

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/domain/record"
	"github.com/farhaan/fletes-reconcile-system/pkg/normalize"
)

var (
	hundred       = decimal.NewFromInt(100)
	suspiciousPct = decimal.NewFromFloat(0.3)
	attentionPct  = decimal.NewFromFloat(1.0)
	billingGapKg  = decimal.NewFromInt(100)
)

// ShipmentView is a shipment with its parsed quantities and the derived
// reconciliation figures. Invalid NullDecimals mean the cell was empty or
// not numeric. ShrinkagePct is relative to the weighed net and BillingDiff
// is the invoiced quantity minus the unloaded net.
type ShipmentView struct {
	Row          int                 `json:"row"`
	Date         time.Time           `json:"date"`
	HasDate      bool                `json:"-"`
	RawDate      string              `json:"raw_date"`
	Carrier      string              `json:"carrier"`
	Product      string              `json:"product"`
	Origin       string              `json:"origin"`
	Waybill      string              `json:"waybill"`
	LinkFlag     string              `json:"link_flag"`
	Quantity     decimal.NullDecimal `json:"quantity"`
	Total        decimal.NullDecimal `json:"total"`
	Weighed      decimal.NullDecimal `json:"weighed"`
	Unloaded     decimal.NullDecimal `json:"unloaded"`
	ShrinkageKg  decimal.NullDecimal `json:"shrinkage_kg"`
	ShrinkagePct decimal.NullDecimal `json:"shrinkage_pct"`
	BillingDiff  decimal.NullDecimal `json:"billing_diff"`
	HasWaybill   bool                `json:"has_waybill"`
	Suspicious   bool                `json:"suspicious"`
}

func amount(raw string) decimal.NullDecimal {
	f, ok := normalize.Amount(raw)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(f))
}

// NewShipmentView computes the derived figures for s.
func NewShipmentView(s record.Shipment) ShipmentView {
	v := ShipmentView{
		Row:        s.Row,
		RawDate:    s.Date,
		Carrier:    s.Carrier,
		Product:    s.Product,
		Origin:     s.Origin,
		Waybill:    s.Waybill,
		LinkFlag:   s.LinkFlag,
		Quantity:   amount(s.Quantity),
		Total:      amount(s.Total),
		Weighed:    amount(s.WeighedNet),
		Unloaded:   amount(s.UnloadedNet),
		HasWaybill: strings.TrimSpace(s.Waybill) != "",
	}
	v.Date, v.HasDate = normalize.ParseDate(s.Date)

	if v.Weighed.Valid && v.Unloaded.Valid {
		kg := v.Weighed.Decimal.Sub(v.Unloaded.Decimal)
		v.ShrinkageKg = decimal.NewNullDecimal(kg)
		if v.Weighed.Decimal.IsPositive() {
			pct := kg.Div(v.Weighed.Decimal).Mul(hundred)
			v.ShrinkagePct = decimal.NewNullDecimal(pct)
			v.Suspicious = pct.GreaterThan(suspiciousPct)
		}
	}
	if v.Quantity.Valid && v.Unloaded.Valid {
		v.BillingDiff = decimal.NewNullDecimal(v.Quantity.Decimal.Sub(v.Unloaded.Decimal))
	}
	return v
}

// Views derives a view for every shipment, in sheet order.
func Views(shipments []record.Shipment) []ShipmentView {
	out := make([]ShipmentView, 0, len(shipments))
	for _, s := range shipments {
		out = append(out, NewShipmentView(s))
	}
	return out
}

// NotApplicable reports whether the waybill cell says the shipment does not
// need a waybill.
func (v *ShipmentView) NotApplicable() bool {
	return strings.Contains(strings.ToLower(v.Waybill), strings.ToLower(domain.NotApplicableWaybill))
}

// NoWaybillRequired reports whether the shipment was classified as freight
// that travels without its own waybill.
func (v *ShipmentView) NoWaybillRequired() bool {
	return domain.NoWaybillRequired.Contains(v.LinkFlag)
}

// RealWaybill reports whether the shipment carries an actual waybill.
func (v *ShipmentView) RealWaybill() bool {
	return v.HasWaybill && !v.NotApplicable() && !v.NoWaybillRequired()
}

// Complete reports whether the shipment has a waybill and both weights.
func (v *ShipmentView) Complete() bool {
	return v.HasWaybill && !v.NotApplicable() && v.Weighed.Valid && v.Unloaded.Valid
}

// HasBillingGap reports an invoiced quantity more than 100 kg away from the
// unloaded net.
func (v *ShipmentView) HasBillingGap() bool {
	return v.BillingDiff.Valid && v.BillingDiff.Decimal.Abs().GreaterThan(billingGapKg)
}

// Problem reports whether the shipment belongs in the alerts table.
func (v *ShipmentView) Problem() bool {
	return v.Suspicious || v.HasBillingGap() || !v.HasWaybill
}

func positive(d decimal.NullDecimal) bool {
	return d.Valid && d.Decimal.IsPositive()
}

func flagIs(flag string, classes ...domain.Classification) bool {
	for _, c := range classes {
		if strings.EqualFold(strings.TrimSpace(flag), string(c)) {
			return true
		}
	}
	return false
}

// KPIs are the headline counters of the dashboard.
type KPIs struct {
	Total             int             `json:"total"`
	Complete          int             `json:"complete"`
	WithWaybill       int             `json:"with_waybill"`
	NoWaybillRequired int             `json:"no_waybill_required"`
	MissingWaybill    int             `json:"missing_waybill"`
	Weighed           int             `json:"weighed"`
	Unloaded          int             `json:"unloaded"`
	MissingWeighed    int             `json:"missing_weighed"`
	MissingUnloaded   int             `json:"missing_unloaded"`
	Suspicious        int             `json:"suspicious"`
	AvgShrinkagePct   decimal.Decimal `json:"avg_shrinkage_pct"`
	TotalWeighedKg    decimal.Decimal `json:"total_weighed_kg"`
	TotalUnloadedKg   decimal.Decimal `json:"total_unloaded_kg"`
}

// ComputeKPIs counts views. The average shrinkage only covers shipments
// with a shrinkage percentage and is rounded to two decimals.
func ComputeKPIs(views []ShipmentView) KPIs {
	k := KPIs{Total: len(views)}
	pctSum := decimal.Zero
	pctCount := 0
	for i := range views {
		v := &views[i]
		if v.Complete() {
			k.Complete++
		}
		if v.NoWaybillRequired() {
			k.NoWaybillRequired++
		}
		if v.RealWaybill() {
			k.WithWaybill++
		}
		if positive(v.Weighed) {
			k.Weighed++
		}
		if positive(v.Unloaded) {
			k.Unloaded++
		}
		if v.Weighed.Valid {
			k.TotalWeighedKg = k.TotalWeighedKg.Add(v.Weighed.Decimal)
		}
		if v.Unloaded.Valid {
			k.TotalUnloadedKg = k.TotalUnloadedKg.Add(v.Unloaded.Decimal)
		}
		if !v.Weighed.Valid && !flagIs(v.LinkFlag, domain.ClassInternalTransfer) {
			k.MissingWeighed++
		}
		if !v.Unloaded.Valid && !flagIs(v.LinkFlag, domain.ClassInternalTransfer, domain.ClassOffBook, domain.ClassThirdPartyWaybill) {
			k.MissingUnloaded++
		}
		if v.Suspicious {
			k.Suspicious++
		}
		if v.ShrinkagePct.Valid {
			pctSum = pctSum.Add(v.ShrinkagePct.Decimal)
			pctCount++
		}
	}
	k.MissingWaybill = k.Total - k.WithWaybill - k.NoWaybillRequired
	if pctCount > 0 {
		k.AvgShrinkagePct = pctSum.Div(decimal.NewFromInt(int64(pctCount))).Round(2)
	}
	return k
}
