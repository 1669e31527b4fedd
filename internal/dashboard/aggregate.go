package dashboard

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farhaan/fletes-reconcile-system/internal/domain"
)

// Filter narrows the views the aggregates are computed over. Zero values
// disable a criterion.
type Filter struct {
	From         time.Time `form:"from" time_format:"2006-01-02"`
	To           time.Time `form:"to" time_format:"2006-01-02"`
	Carriers     []string  `form:"carrier"`
	Products     []string  `form:"product"`
	Origins      []string  `form:"origin"`
	ProblemsOnly bool      `form:"problems_only"`
}

func oneOf(v string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

// Match reports whether v passes every enabled criterion. A shipment
// without a parseable date never passes a date bound.
func (f Filter) Match(v *ShipmentView) bool {
	if !f.From.IsZero() && (!v.HasDate || v.Date.Before(f.From)) {
		return false
	}
	if !f.To.IsZero() && (!v.HasDate || v.Date.After(f.To)) {
		return false
	}
	if !oneOf(v.Carrier, f.Carriers) || !oneOf(v.Product, f.Products) || !oneOf(v.Origin, f.Origins) {
		return false
	}
	return !f.ProblemsOnly || v.Problem()
}

// Apply returns the views matching f.
func (f Filter) Apply(views []ShipmentView) []ShipmentView {
	out := make([]ShipmentView, 0, len(views))
	for i := range views {
		if f.Match(&views[i]) {
			out = append(out, views[i])
		}
	}
	return out
}

// CarrierShrinkage aggregates the shipments of one carrier that have both
// weights.
type CarrierShrinkage struct {
	Carrier         string           `json:"carrier"`
	Trips           int              `json:"trips"`
	AvgShrinkagePct decimal.Decimal  `json:"avg_shrinkage_pct"`
	ShrinkageKg     decimal.Decimal  `json:"shrinkage_kg"`
	WeighedKg       decimal.Decimal  `json:"weighed_kg"`
	UnloadedKg      decimal.Decimal  `json:"unloaded_kg"`
	Risk            domain.RiskClass `json:"risk"`

	pctSum   decimal.Decimal
	pctCount int
}

// Classify grades an average shrinkage percentage.
func Classify(avg decimal.Decimal) domain.RiskClass {
	switch {
	case avg.LessThanOrEqual(suspiciousPct):
		return domain.RiskNormal
	case avg.LessThanOrEqual(attentionPct):
		return domain.RiskAttention
	default:
		return domain.RiskAlert
	}
}

// ByCarrier groups shipments with both weights by carrier, sorted by
// average shrinkage, highest first.
func ByCarrier(views []ShipmentView) []CarrierShrinkage {
	groups := make(map[string]*CarrierShrinkage)
	var order []string
	for i := range views {
		v := &views[i]
		carrier := strings.TrimSpace(v.Carrier)
		if carrier == "" || !v.Weighed.Valid || !v.Unloaded.Valid {
			continue
		}
		g, ok := groups[carrier]
		if !ok {
			g = &CarrierShrinkage{Carrier: carrier}
			groups[carrier] = g
			order = append(order, carrier)
		}
		g.Trips++
		g.ShrinkageKg = g.ShrinkageKg.Add(v.ShrinkageKg.Decimal)
		g.WeighedKg = g.WeighedKg.Add(v.Weighed.Decimal)
		g.UnloadedKg = g.UnloadedKg.Add(v.Unloaded.Decimal)
		if v.ShrinkagePct.Valid {
			g.pctSum = g.pctSum.Add(v.ShrinkagePct.Decimal)
			g.pctCount++
		}
	}

	out := make([]CarrierShrinkage, 0, len(order))
	for _, name := range order {
		g := groups[name]
		if g.pctCount == 0 {
			g.Risk = domain.RiskNoData
		} else {
			g.AvgShrinkagePct = g.pctSum.Div(decimal.NewFromInt(int64(g.pctCount))).Round(2)
			g.Risk = Classify(g.AvgShrinkagePct)
		}
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvgShrinkagePct.GreaterThan(out[j].AvgShrinkagePct)
	})
	return out
}

// ProductTotals is the shipment distribution for one product.
type ProductTotals struct {
	Product    string          `json:"product"`
	Shipments  int             `json:"shipments"`
	WeighedKg  decimal.Decimal `json:"weighed_kg"`
	UnloadedKg decimal.Decimal `json:"unloaded_kg"`
	Invoiced   decimal.Decimal `json:"invoiced"`
}

// ByProduct groups shipments by product, most shipments first.
func ByProduct(views []ShipmentView) []ProductTotals {
	groups := make(map[string]*ProductTotals)
	var order []string
	for i := range views {
		v := &views[i]
		product := strings.TrimSpace(v.Product)
		if product == "" {
			continue
		}
		g, ok := groups[product]
		if !ok {
			g = &ProductTotals{Product: product}
			groups[product] = g
			order = append(order, product)
		}
		g.Shipments++
		if v.Weighed.Valid {
			g.WeighedKg = g.WeighedKg.Add(v.Weighed.Decimal)
		}
		if v.Unloaded.Valid {
			g.UnloadedKg = g.UnloadedKg.Add(v.Unloaded.Decimal)
		}
		if v.Total.Valid {
			g.Invoiced = g.Invoiced.Add(v.Total.Decimal)
		}
	}

	out := make([]ProductTotals, 0, len(order))
	for _, name := range order {
		out = append(out, *groups[name])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Shipments > out[j].Shipments })
	return out
}

// Alert is one row of the alerts table.
type Alert struct {
	Row          int                 `json:"row"`
	Date         string              `json:"date"`
	Carrier      string              `json:"carrier"`
	Product      string              `json:"product"`
	Origin       string              `json:"origin"`
	Weighed      decimal.NullDecimal `json:"weighed"`
	Unloaded     decimal.NullDecimal `json:"unloaded"`
	ShrinkageKg  decimal.NullDecimal `json:"shrinkage_kg"`
	ShrinkagePct decimal.NullDecimal `json:"shrinkage_pct"`
	Quantity     decimal.NullDecimal `json:"quantity"`
	BillingDiff  decimal.NullDecimal `json:"billing_diff"`
	Reasons      []string            `json:"reasons"`
}

// Alert reasons.
const (
	ReasonSuspiciousShrinkage = "suspicious_shrinkage"
	ReasonBillingGap          = "billing_gap"
	ReasonNoWaybill           = "no_waybill"
)

// Alerts lists the problem shipments, at most limit of them, and the total
// number of problem shipments.
func Alerts(views []ShipmentView, limit int) (rows []Alert, total int) {
	for i := range views {
		v := &views[i]
		if !v.Problem() {
			continue
		}
		total++
		if limit > 0 && len(rows) >= limit {
			continue
		}
		a := Alert{
			Row:          v.Row,
			Date:         v.RawDate,
			Carrier:      v.Carrier,
			Product:      v.Product,
			Origin:       v.Origin,
			Weighed:      v.Weighed,
			Unloaded:     v.Unloaded,
			ShrinkageKg:  v.ShrinkageKg,
			ShrinkagePct: v.ShrinkagePct,
			Quantity:     v.Quantity,
			BillingDiff:  v.BillingDiff,
		}
		if v.HasDate {
			a.Date = v.Date.Format(time.DateOnly)
		}
		if v.Suspicious {
			a.Reasons = append(a.Reasons, ReasonSuspiciousShrinkage)
		}
		if v.HasBillingGap() {
			a.Reasons = append(a.Reasons, ReasonBillingGap)
		}
		if !v.HasWaybill {
			a.Reasons = append(a.Reasons, ReasonNoWaybill)
		}
		rows = append(rows, a)
	}
	return rows, total
}

// Summary is everything the dashboard shows for one filter.
type Summary struct {
	KPIs        KPIs               `json:"kpis"`
	Carriers    []CarrierShrinkage `json:"carriers"`
	Products    []ProductTotals    `json:"products"`
	Alerts      []Alert            `json:"alerts"`
	AlertsTotal int                `json:"alerts_total"`
}

// Summarize filters views and computes every aggregate over the result.
func Summarize(views []ShipmentView, f Filter, alertLimit int) Summary {
	filtered := f.Apply(views)
	alerts, total := Alerts(filtered, alertLimit)
	return Summary{
		KPIs:        ComputeKPIs(filtered),
		Carriers:    ByCarrier(filtered),
		Products:    ByProduct(filtered),
		Alerts:      alerts,
		AlertsTotal: total,
	}
}
