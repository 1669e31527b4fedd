package domain

import "strings"

// MatchOutcome is the decision taken for one weigh ticket during waybill
// assignment.
type MatchOutcome string

const (
	OutcomeNoMatch        MatchOutcome = "NO_MATCH"
	OutcomeOutOfRange     MatchOutcome = "OUT_OF_RANGE"
	OutcomeUniqueMatch    MatchOutcome = "UNIQUE_MATCH"
	OutcomeTieNeedsReview MatchOutcome = "TIE_NEEDS_REVIEW"
)

// Assigns reports whether the outcome results in a waybill being written.
func (o MatchOutcome) Assigns() bool {
	return o == OutcomeUniqueMatch || o == OutcomeTieNeedsReview
}

// FieldKind identifies a shipment field the completion engine can fill.
type FieldKind string

const (
	FieldProduct        FieldKind = "product"
	FieldOrigin         FieldKind = "origin"
	FieldDestination    FieldKind = "destination"
	FieldCarrier        FieldKind = "carrier"
	FieldDriver         FieldKind = "driver"
	FieldWeighedWeight  FieldKind = "weighed_weight"
	FieldUnloadedWeight FieldKind = "unloaded_weight"
)

// CaseCorrectable reports whether an existing value of this field may be
// overwritten when it differs from the resolved value only in letter case.
func (f FieldKind) CaseCorrectable() bool {
	return f == FieldCarrier || f == FieldOrigin
}

// Markers written to the weigh ticket verification column.
const (
	MarkerReview   = "REVISAR"
	MarkerVerified = "OK"
)

// Values written to the shipment waybill-linkage flag column.
const (
	LinkYes = "si"
	LinkNo  = "no"
)

// NotApplicableWaybill is written to the shipment waybill column when a
// shipment is classified as not requiring a waybill.
const NotApplicableWaybill = "No corresponde"

// Classification is a manually-entered tag explaining why a shipment has no
// waybill.
type Classification string

const (
	ClassInternalTransfer  Classification = "Traslado interno"
	ClassOffBook           Classification = "Flete en B"
	ClassMissingDocs       Classification = "Sin documentación"
	ClassPendingWaybill    Classification = "Pendiente de CPE"
	ClassLoadError         Classification = "Error de carga"
	ClassThirdPartyWaybill Classification = "CPE Hecha por Terceros"
)

// ManualClassifications lists the tags an operator can pick, in display order.
var ManualClassifications = []Classification{
	ClassInternalTransfer,
	ClassOffBook,
	ClassThirdPartyWaybill,
	ClassMissingDocs,
	ClassPendingWaybill,
	ClassLoadError,
}

// ParseClassification matches raw against the manual classification tags,
// ignoring case and surrounding space.
func ParseClassification(raw string) (Classification, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	for _, c := range ManualClassifications {
		if strings.ToLower(string(c)) == key {
			return c, true
		}
	}
	return "", false
}

// ValueSet is a case-insensitive set of cell values.
type ValueSet map[string]struct{}

// NewValueSet builds a set from values, folding case and trimming space.
func NewValueSet(values ...string) ValueSet {
	s := make(ValueSet, len(values))
	for _, v := range values {
		s[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return s
}

// Contains reports whether v is in the set.
func (s ValueSet) Contains(v string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// ProtectedLinkValues are linkage-flag values that must never be
// overwritten: every manual classification plus an existing yes/no.
var ProtectedLinkValues = func() ValueSet {
	values := []string{LinkYes, LinkNo}
	for _, c := range ManualClassifications {
		values = append(values, string(c))
	}
	return NewValueSet(values...)
}()

// NoWaybillRequired are classifications for freight that legitimately
// travels without its own waybill.
var NoWaybillRequired = NewValueSet(
	string(ClassInternalTransfer),
	string(ClassOffBook),
	string(ClassMissingDocs),
	string(ClassThirdPartyWaybill),
)

// Color is an RGB highlight in the 0..1 range.
type Color struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

var (
	ColorGray  = Color{Red: 0.5, Green: 0.5, Blue: 0.5}
	ColorGreen = Color{Red: 0.71, Green: 0.84, Blue: 0.66}
	ColorRed   = Color{Red: 0.92, Green: 0.6, Blue: 0.6}
)

// RiskClass grades average shrinkage for a carrier.
type RiskClass string

const (
	RiskNoData    RiskClass = "Sin datos"
	RiskNormal    RiskClass = "Normal"
	RiskAttention RiskClass = "Atención"
	RiskAlert     RiskClass = "Alerta"
)
