package matcher

import (
	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/domain/record"
	"github.com/farhaan/fletes-reconcile-system/pkg/normalize"
)

// Option is one candidate waybill shown to a reviewer.
type Option struct {
	Waybill string `json:"waybill"`
	Date    string `json:"date"`
	Days    int    `json:"days"`
}

// TieCase records a weigh ticket whose closest candidates share the same
// day offset.
type TieCase struct {
	Row             int      `json:"row"`
	Date            string   `json:"date"`
	Product         string   `json:"product"`
	Plate           string   `json:"plate"`
	Net             string   `json:"net"`
	AssignedWaybill string   `json:"assigned_waybill"`
	Candidates      int      `json:"candidates"`
	Tied            int      `json:"tied"`
	Options         []Option `json:"options"`
}

// Decision is the outcome for one weigh ticket without a waybill.
type Decision struct {
	Row     int
	Outcome domain.MatchOutcome
	// Waybill is the number to write, as it appears on the waybill row.
	Waybill string
	Days    int
	// Review is set when the assignment must be confirmed by an operator.
	Review bool
	Tie    *TieCase
}

// MatchResult contains the results of a matching operation
type MatchResult struct {
	Decisions     []Decision `json:"-"`
	Ties          []TieCase  `json:"ties"`
	AlgorithmUsed string     `json:"algorithm"`
	MatchRate     float64    `json:"match_rate"`

	TotalPlatesIndexed         int `json:"total_plates_indexed"`
	PlatesWithMultipleWaybills int `json:"plates_with_multiple_waybills"`
	TotalWeighTickets          int `json:"total_weigh_tickets"`
	AlreadyLinked              int `json:"already_linked"`
	NewMatches                 int `json:"new_matches"`
	UniqueMatches              int `json:"unique_matches"`
	TiedMatches                int `json:"tied_matches"`
	OutOfRange                 int `json:"out_of_range"`
	NoMatch                    int `json:"no_match"`
	UsedWaybills               int `json:"used_waybills"`
}

// MatcherConfig configures the matching behavior
type MatcherConfig struct {
	// A waybill dated WindowMinDays..WindowMaxDays days after the weigh
	// ticket (inclusive) is a candidate.
	WindowMinDays int
	WindowMaxDays int
	// MaxTieOptions caps the options reported per tie.
	MaxTieOptions int
}

// DefaultConfig returns the default matcher configuration
func DefaultConfig() MatcherConfig {
	return MatcherConfig{
		WindowMinDays: 0,
		WindowMaxDays: 7,
		MaxTieOptions: 5,
	}
}

// WaybillMatcher is the interface that all waybill assignment strategies
// must implement.
type WaybillMatcher interface {
	// Match decides a waybill for every weigh ticket that has none, using
	// the waybills listed per normalized plate.
	Match(tickets []record.WeighTicket, byPlate map[string][]*record.Waybill) (*MatchResult, error)

	// Name returns the name of the matching algorithm
	Name() string

	// SetConfig updates the matcher configuration
	SetConfig(config MatcherConfig)
}

// Exclusions is the set of waybill numbers already claimed by a weigh
// ticket. It is threaded through a matching pass so no two tickets receive
// the same waybill.
type Exclusions struct {
	used map[string]struct{}
}

// NewExclusions seeds the set with every waybill reference the tickets
// already carry.
func NewExclusions(tickets []record.WeighTicket) Exclusions {
	e := Exclusions{used: make(map[string]struct{})}
	for i := range tickets {
		e = e.Add(tickets[i].Waybill)
	}
	return e
}

// Contains reports whether number has been claimed.
func (e Exclusions) Contains(number string) bool {
	_, ok := e.used[normalize.Waybill(number)]
	return ok
}

// Add claims number and returns the updated set.
func (e Exclusions) Add(number string) Exclusions {
	if e.used == nil {
		e.used = make(map[string]struct{})
	}
	if key := normalize.Waybill(number); key != "" {
		e.used[key] = struct{}{}
	}
	return e
}

func (e Exclusions) Len() int { return len(e.used) }

// CalculateMatchRate computes the share of pending tickets that received a
// waybill, as a percentage.
func CalculateMatchRate(newMatches, pending int) float64 {
	if pending == 0 {
		return 100.0
	}
	return float64(newMatches) / float64(pending) * 100.0
}

// NewMatchResult creates a new match result
func NewMatchResult(algorithmName string) *MatchResult {
	return &MatchResult{
		Decisions:     make([]Decision, 0),
		Ties:          make([]TieCase, 0),
		AlgorithmUsed: algorithmName,
	}
}

// Record tallies one decision.
func (mr *MatchResult) Record(d Decision) {
	mr.Decisions = append(mr.Decisions, d)
	switch d.Outcome {
	case domain.OutcomeNoMatch:
		mr.NoMatch++
	case domain.OutcomeOutOfRange:
		mr.OutOfRange++
	case domain.OutcomeUniqueMatch:
		mr.UniqueMatches++
		mr.NewMatches++
	case domain.OutcomeTieNeedsReview:
		mr.TiedMatches++
		mr.NewMatches++
		if d.Tie != nil {
			mr.Ties = append(mr.Ties, *d.Tie)
		}
	}
}

// Finalize computes the match rate.
func (mr *MatchResult) Finalize() {
	mr.MatchRate = CalculateMatchRate(mr.NewMatches, mr.TotalWeighTickets-mr.AlreadyLinked)
}

// Assignments returns the decisions that write a waybill.
func (mr *MatchResult) Assignments() []Decision {
	out := make([]Decision, 0, mr.NewMatches)
	for _, d := range mr.Decisions {
		if d.Outcome.Assigns() {
			out = append(out, d)
		}
	}
	return out
}
