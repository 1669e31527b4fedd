package matcher

import (
	"fmt"
	"testing"

	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/domain/record"
)

func TestPlateDateMatcher_Name(t *testing.T) {
	matcher := NewPlateDateMatcher(DefaultConfig())
	if matcher.Name() != "plate_date" {
		t.Errorf("Expected name 'plate_date', got %s", matcher.Name())
	}
}

func TestPlateDateMatcher_Match_UniqueWithinWindow(t *testing.T) {
	matcher := NewPlateDateMatcher(DefaultConfig())

	tickets := []record.WeighTicket{
		createWeighTicket(2, "2024-05-01", "AB 123 CD", "Soja", ""),
	}
	waybills := []record.Waybill{
		createWaybill(2, "0001-00123", "03/05/2024", `["AB123CD","AC456EF"]`, "SOJA"),
	}

	result, err := matcher.Match(tickets, indexByPlate(waybills))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if result.UniqueMatches != 1 || result.NewMatches != 1 {
		t.Errorf("Expected 1 unique match, got unique=%d new=%d", result.UniqueMatches, result.NewMatches)
	}

	assigned := result.Assignments()
	if len(assigned) != 1 {
		t.Fatalf("Expected 1 assignment, got %d", len(assigned))
	}
	if assigned[0].Outcome != domain.OutcomeUniqueMatch {
		t.Errorf("Expected UNIQUE_MATCH, got %s", assigned[0].Outcome)
	}
	if assigned[0].Waybill != "0001-00123" {
		t.Errorf("Expected waybill 0001-00123, got %s", assigned[0].Waybill)
	}
	if assigned[0].Days != 2 {
		t.Errorf("Expected offset 2, got %d", assigned[0].Days)
	}
	if assigned[0].Review {
		t.Error("Unique match must not be flagged for review")
	}
}

func TestPlateDateMatcher_Match_TieOnSameDate(t *testing.T) {
	matcher := NewPlateDateMatcher(DefaultConfig())

	tickets := []record.WeighTicket{
		createWeighTicket(2, "2024-05-01", "AB123CD", "soja", ""),
	}
	waybills := []record.Waybill{
		createWaybill(2, "W-1", "2024-05-03", "AB123CD", "soja"),
		createWaybill(3, "W-2", "2024-05-03", "AB123CD", "soja"),
	}

	result, err := matcher.Match(tickets, indexByPlate(waybills))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	assigned := result.Assignments()
	if len(assigned) != 1 {
		t.Fatalf("Expected exactly one waybill written, got %d", len(assigned))
	}
	if assigned[0].Outcome != domain.OutcomeTieNeedsReview {
		t.Errorf("Expected TIE_NEEDS_REVIEW, got %s", assigned[0].Outcome)
	}
	if !assigned[0].Review {
		t.Error("Tie must be flagged for review")
	}
	if assigned[0].Waybill != "W-1" && assigned[0].Waybill != "W-2" {
		t.Errorf("Expected one of the tied waybills, got %s", assigned[0].Waybill)
	}

	if result.TiedMatches != 1 || len(result.Ties) != 1 {
		t.Fatalf("Expected 1 tie, got counter=%d cases=%d", result.TiedMatches, len(result.Ties))
	}
	tie := result.Ties[0]
	if tie.Tied != 2 || tie.Candidates != 2 {
		t.Errorf("Expected 2 tied of 2 candidates, got %d of %d", tie.Tied, tie.Candidates)
	}
	if len(tie.Options) != 2 {
		t.Errorf("Expected 2 options, got %d", len(tie.Options))
	}
}

func TestPlateDateMatcher_Match_OutOfRange(t *testing.T) {
	matcher := NewPlateDateMatcher(DefaultConfig())

	tickets := []record.WeighTicket{
		createWeighTicket(2, "2024-05-01", "AB123CD", "soja", ""),
	}
	// Offset 9 days, outside the 0..7 window
	waybills := []record.Waybill{
		createWaybill(2, "W-1", "2024-05-10", "AB123CD", "soja"),
	}

	result, err := matcher.Match(tickets, indexByPlate(waybills))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if result.OutOfRange != 1 {
		t.Errorf("Expected 1 out of range, got %d", result.OutOfRange)
	}
	if len(result.Assignments()) != 0 {
		t.Errorf("Expected no writes, got %d", len(result.Assignments()))
	}
	if result.Decisions[0].Outcome != domain.OutcomeOutOfRange {
		t.Errorf("Expected OUT_OF_RANGE, got %s", result.Decisions[0].Outcome)
	}
}

func TestPlateDateMatcher_Match_WaybillBeforeTicketIsOutOfRange(t *testing.T) {
	matcher := NewPlateDateMatcher(DefaultConfig())

	tickets := []record.WeighTicket{
		createWeighTicket(2, "2024-05-05", "AB123CD", "soja", ""),
	}
	waybills := []record.Waybill{
		createWaybill(2, "W-1", "2024-05-04", "AB123CD", "soja"),
	}

	result, err := matcher.Match(tickets, indexByPlate(waybills))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if result.OutOfRange != 1 {
		t.Errorf("Expected 1 out of range, got %d", result.OutOfRange)
	}
}

func TestPlateDateMatcher_Match_ClosestDateWinsWithoutTie(t *testing.T) {
	matcher := NewPlateDateMatcher(DefaultConfig())

	tickets := []record.WeighTicket{
		createWeighTicket(2, "2024-05-01", "AB123CD", "soja", ""),
	}
	waybills := []record.Waybill{
		createWaybill(2, "W-FAR", "2024-05-04", "AB123CD", "soja"),
		createWaybill(3, "W-NEAR", "2024-05-02", "AB123CD", "soja"),
	}

	result, err := matcher.Match(tickets, indexByPlate(waybills))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	assigned := result.Assignments()
	if len(assigned) != 1 || assigned[0].Waybill != "W-NEAR" {
		t.Fatalf("Expected W-NEAR assigned, got %+v", assigned)
	}
	if assigned[0].Outcome != domain.OutcomeUniqueMatch {
		t.Errorf("Expected UNIQUE_MATCH for a clear minimum, got %s", assigned[0].Outcome)
	}
	if len(result.Ties) != 0 {
		t.Errorf("Expected no tie cases, got %d", len(result.Ties))
	}
}

func TestPlateDateMatcher_Match_ProductFallback(t *testing.T) {
	matcher := NewPlateDateMatcher(DefaultConfig())

	tickets := []record.WeighTicket{
		createWeighTicket(2, "2024-05-01", "AB123CD", "Trigo pan", ""),
	}
	waybills := []record.Waybill{
		createWaybill(2, "W-1", "2024-05-01", "AB123CD", "Maíz"),
	}

	result, err := matcher.Match(tickets, indexByPlate(waybills))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if result.UniqueMatches != 1 {
		t.Errorf("Expected fallback to unfiltered candidates, got %d matches", result.UniqueMatches)
	}
}

func TestPlateDateMatcher_Match_ProductFilterPrefersSameCrop(t *testing.T) {
	matcher := NewPlateDateMatcher(DefaultConfig())

	tickets := []record.WeighTicket{
		createWeighTicket(2, "2024-05-01", "AB123CD", "maiz", ""),
	}
	waybills := []record.Waybill{
		createWaybill(2, "W-SOJA", "2024-05-01", "AB123CD", "soja"),
		createWaybill(3, "W-MAIZ", "2024-05-03", "AB123CD", "Maíz amarillo"),
	}

	result, err := matcher.Match(tickets, indexByPlate(waybills))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	assigned := result.Assignments()
	if len(assigned) != 1 || assigned[0].Waybill != "W-MAIZ" {
		t.Errorf("Expected W-MAIZ assigned, got %+v", assigned)
	}
}

func TestPlateDateMatcher_Match_ExistingReferenceUntouched(t *testing.T) {
	matcher := NewPlateDateMatcher(DefaultConfig())

	tickets := []record.WeighTicket{
		createWeighTicket(2, "2024-05-01", "AB123CD", "soja", "W-1"),
		createWeighTicket(3, "2024-05-01", "AB123CD", "soja", ""),
	}
	waybills := []record.Waybill{
		createWaybill(2, "W-1", "2024-05-01", "AB123CD", "soja"),
	}

	result, err := matcher.Match(tickets, indexByPlate(waybills))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if result.AlreadyLinked != 1 {
		t.Errorf("Expected 1 already linked, got %d", result.AlreadyLinked)
	}
	for _, d := range result.Decisions {
		if d.Row == 2 {
			t.Errorf("Linked row 2 must not be decided again, got %+v", d)
		}
	}
	// W-1 is taken by row 2, so row 3 has nothing left.
	if result.NoMatch != 1 {
		t.Errorf("Expected 1 no match, got %d", result.NoMatch)
	}
	if result.UsedWaybills != 1 {
		t.Errorf("Expected 1 used waybill, got %d", result.UsedWaybills)
	}
}

func TestPlateDateMatcher_Match_NoWaybillAssignedTwice(t *testing.T) {
	matcher := NewPlateDateMatcher(DefaultConfig())

	tickets := []record.WeighTicket{
		createWeighTicket(2, "2024-05-01", "AB123CD", "soja", ""),
		createWeighTicket(3, "2024-05-01", "AB123CD", "soja", ""),
		createWeighTicket(4, "2024-05-01", "AB123CD", "soja", ""),
	}
	waybills := []record.Waybill{
		createWaybill(2, "W-1", "2024-05-01", "AB123CD", "soja"),
		createWaybill(3, "W-2", "2024-05-02", "AB123CD", "soja"),
	}

	result, err := matcher.Match(tickets, indexByPlate(waybills))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	seen := make(map[string]int)
	for _, d := range result.Assignments() {
		if prev, ok := seen[d.Waybill]; ok {
			t.Errorf("Waybill %s assigned to rows %d and %d", d.Waybill, prev, d.Row)
		}
		seen[d.Waybill] = d.Row
	}
	if len(seen) != 2 {
		t.Errorf("Expected 2 distinct assignments, got %d", len(seen))
	}
	if result.NoMatch != 1 {
		t.Errorf("Expected the third ticket to find nothing, got %d no match", result.NoMatch)
	}
}

func TestPlateDateMatcher_Match_UnknownPlate(t *testing.T) {
	matcher := NewPlateDateMatcher(DefaultConfig())

	tickets := []record.WeighTicket{
		createWeighTicket(2, "2024-05-01", "ZZ999ZZ", "soja", ""),
		createWeighTicket(3, "2024-05-01", "", "soja", ""),
	}
	waybills := []record.Waybill{
		createWaybill(2, "W-1", "2024-05-01", "AB123CD", "soja"),
	}

	result, err := matcher.Match(tickets, indexByPlate(waybills))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if result.NoMatch != 2 {
		t.Errorf("Expected 2 no match, got %d", result.NoMatch)
	}
}

func TestPlateDateMatcher_Match_SkipsRowsWithoutDateAndPlate(t *testing.T) {
	matcher := NewPlateDateMatcher(DefaultConfig())

	tickets := []record.WeighTicket{
		createWeighTicket(2, "", "", "soja", ""),
		createWeighTicket(3, "2024-05-01", "AB123CD", "soja", ""),
	}
	waybills := []record.Waybill{
		createWaybill(2, "W-1", "2024-05-01", "AB123CD", "soja"),
	}

	result, err := matcher.Match(tickets, indexByPlate(waybills))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if result.TotalWeighTickets != 1 {
		t.Errorf("Expected 1 counted ticket, got %d", result.TotalWeighTickets)
	}
}

func TestPlateDateMatcher_Match_TieOptionsCapped(t *testing.T) {
	matcher := NewPlateDateMatcher(DefaultConfig())

	tickets := []record.WeighTicket{
		createWeighTicket(2, "2024-05-01", "AB123CD", "soja", ""),
	}
	var waybills []record.Waybill
	for i := 0; i < 7; i++ {
		waybills = append(waybills, createWaybill(i+2, fmt.Sprintf("W-%d", i), "2024-05-02", "AB123CD", "soja"))
	}

	result, err := matcher.Match(tickets, indexByPlate(waybills))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if len(result.Ties) != 1 {
		t.Fatalf("Expected 1 tie, got %d", len(result.Ties))
	}
	if got := len(result.Ties[0].Options); got != 5 {
		t.Errorf("Expected 5 options, got %d", got)
	}
	if result.Ties[0].Tied != 7 {
		t.Errorf("Expected 7 tied, got %d", result.Ties[0].Tied)
	}
}

func TestPlateDateMatcher_Decide_DoesNotClaim(t *testing.T) {
	m := &PlateDateMatcher{config: DefaultConfig()}
	ticket := createWeighTicket(2, "2024-05-01", "AB123CD", "soja", "")
	waybills := []record.Waybill{
		createWaybill(2, "W-1", "2024-05-01", "AB123CD", "soja"),
	}
	byPlate := indexByPlate(waybills)
	used := NewExclusions(nil)

	first := m.Decide(&ticket, byPlate["AB123CD"], used)
	second := m.Decide(&ticket, byPlate["AB123CD"], used)
	if first.Waybill != "W-1" || second.Waybill != "W-1" {
		t.Errorf("Decide must be repeatable for the same exclusions, got %s and %s", first.Waybill, second.Waybill)
	}

	used = used.Add(first.Waybill)
	third := m.Decide(&ticket, byPlate["AB123CD"], used)
	if third.Outcome != domain.OutcomeNoMatch {
		t.Errorf("Expected NO_MATCH once W-1 is claimed, got %s", third.Outcome)
	}
}

// Helper functions for creating test records

func TestPlateDateMatcher_SetConfig_NarrowsWindow(t *testing.T) {
	matcher := NewPlateDateMatcher(DefaultConfig())
	cfg := DefaultConfig()
	cfg.WindowMaxDays = 1
	matcher.SetConfig(cfg)

	tickets := []record.WeighTicket{
		createWeighTicket(2, "2024-05-01", "AB123CD", "soja", ""),
	}
	waybills := []record.Waybill{
		createWaybill(2, "CPE-1", "2024-05-03", "AB123CD", "soja"),
	}

	result, err := matcher.Match(tickets, indexByPlate(waybills))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.OutOfRange != 1 {
		t.Errorf("Expected offset 2 to fall outside a 1 day window, got out_of_range=%d", result.OutOfRange)
	}
	if result.MatchRate != 0 {
		t.Errorf("Expected match rate 0, got %.1f", result.MatchRate)
	}
}

func createWeighTicket(row int, date, plate, product, waybill string) record.WeighTicket {
	return record.WeighTicket{
		Row:     row,
		Date:    date,
		Plate:   plate,
		Product: product,
		Net:     "30000",
		Waybill: waybill,
	}
}

func createWaybill(row int, number, date, plates, product string) record.Waybill {
	return record.Waybill{
		Row:       row,
		CargoCode: fmt.Sprintf("CTG%d", row),
		Number:    number,
		Date:      date,
		PlatesRaw: plates,
		Product:   product,
	}
}

func indexByPlate(waybills []record.Waybill) map[string][]*record.Waybill {
	out := make(map[string][]*record.Waybill)
	for i := range waybills {
		for _, p := range waybills[i].Plates() {
			out[p] = append(out[p], &waybills[i])
		}
	}
	return out
}
