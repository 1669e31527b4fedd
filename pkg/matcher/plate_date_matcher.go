package matcher

import (
	"sort"
	"strings"

	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/domain/record"
	"github.com/farhaan/fletes-reconcile-system/pkg/normalize"
)

// PlateDateMatcher assigns waybills to weigh tickets by vehicle plate,
// product and a forward date window.
type PlateDateMatcher struct {
	config MatcherConfig
}

func NewPlateDateMatcher(config MatcherConfig) WaybillMatcher {
	return &PlateDateMatcher{
		config: config,
	}
}

func (m *PlateDateMatcher) SetConfig(config MatcherConfig) {
	m.config = config
}

func (m *PlateDateMatcher) Name() string {
	return "plate_date"
}

// Match walks the tickets in sheet order. Tickets that already carry a
// waybill are counted and left alone; their numbers seed the exclusions,
// and every assignment made during the pass is added as it happens.
// Tickets with neither a date nor a plate are ignored entirely.
func (m *PlateDateMatcher) Match(tickets []record.WeighTicket, byPlate map[string][]*record.Waybill) (*MatchResult, error) {
	result := NewMatchResult(m.Name())
	result.TotalPlatesIndexed = len(byPlate)
	for _, list := range byPlate {
		if len(list) > 1 {
			result.PlatesWithMultipleWaybills++
		}
	}

	used := NewExclusions(tickets)
	for i := range tickets {
		t := &tickets[i]
		if strings.TrimSpace(t.Date) == "" && strings.TrimSpace(t.Plate) == "" {
			continue
		}
		result.TotalWeighTickets++

		if t.HasWaybill() {
			result.AlreadyLinked++
			continue
		}

		d := m.Decide(t, byPlate[normalize.Plate(t.Plate)], used)
		if d.Outcome.Assigns() {
			used = used.Add(d.Waybill)
		}
		result.Record(d)
	}

	result.UsedWaybills = used.Len()
	result.Finalize()
	return result, nil
}

type candidate struct {
	waybill *record.Waybill
	date    string
	days    int
}

// Decide picks a waybill for one ticket from the waybills sharing its
// plate. It does not modify used.
func (m *PlateDateMatcher) Decide(t *record.WeighTicket, plateWaybills []*record.Waybill, used Exclusions) Decision {
	d := Decision{Row: t.Row, Outcome: domain.OutcomeNoMatch}
	if normalize.Plate(t.Plate) == "" || len(plateWaybills) == 0 {
		return d
	}

	available := make([]*record.Waybill, 0, len(plateWaybills))
	for _, w := range plateWaybills {
		if !used.Contains(w.Number) {
			available = append(available, w)
		}
	}
	if len(available) == 0 {
		return d
	}

	candidates := filterByProduct(available, normalize.Product(t.Product))

	ticketDate := normalize.Date(t.Date)
	inRange := make([]candidate, 0, len(candidates))
	for _, w := range candidates {
		wDate := normalize.Date(w.Date)
		days, ok := normalize.DaysBetween(ticketDate, wDate)
		if !ok || days < m.config.WindowMinDays || days > m.config.WindowMaxDays {
			continue
		}
		inRange = append(inRange, candidate{waybill: w, date: wDate, days: days})
	}
	if len(inRange) == 0 {
		d.Outcome = domain.OutcomeOutOfRange
		return d
	}

	sort.SliceStable(inRange, func(i, j int) bool { return inRange[i].days < inRange[j].days })
	best := inRange[0]
	d.Waybill = strings.TrimSpace(best.waybill.Number)
	d.Days = best.days
	d.Outcome = domain.OutcomeUniqueMatch

	tied := 0
	for _, c := range inRange {
		if c.days == best.days {
			tied++
		}
	}
	if tied < 2 {
		return d
	}

	d.Outcome = domain.OutcomeTieNeedsReview
	d.Review = true
	limit := min(len(inRange), m.config.MaxTieOptions)
	options := make([]Option, 0, limit)
	for _, c := range inRange[:limit] {
		options = append(options, Option{
			Waybill: strings.TrimSpace(c.waybill.Number),
			Date:    c.date,
			Days:    c.days,
		})
	}
	d.Tie = &TieCase{
		Row:             t.Row,
		Date:            t.Date,
		Product:         t.Product,
		Plate:           t.Plate,
		Net:             t.Net,
		AssignedWaybill: d.Waybill,
		Candidates:      len(inRange),
		Tied:            tied,
		Options:         options,
	}
	return d
}

// filterByProduct keeps the waybills for product, or all of them when none
// match.
func filterByProduct(waybills []*record.Waybill, product string) []*record.Waybill {
	same := make([]*record.Waybill, 0, len(waybills))
	for _, w := range waybills {
		if normalize.Product(w.Product) == product {
			same = append(same, w)
		}
	}
	if len(same) > 0 {
		return same
	}
	return waybills
}
