// Package normalize converts raw spreadsheet cell values into canonical,
// comparable forms. Every function is pure and never fails: empty or
// unparseable input degrades to an empty string or ok=false.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DateLayout is the canonical date representation.
const DateLayout = "2006-01-02"

// dateLayouts are tried in order. Single-digit day/month references accept
// one or two digits, so "1/5/2024" and "01/05/2024" both parse.
var dateLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"2-1-2006",
	"2006/1/2",
	"2/1/06",
}

var quotedRe = regexp.MustCompile(`"([^"]+)"`)

// productKeywords maps substrings to canonical crop names. Order matters:
// the first matching group wins.
var productKeywords = []struct {
	canonical string
	keywords  []string
}{
	{"soja", []string{"soja", "soya", "soy"}},
	{"maiz", []string{"maiz", "corn"}},
	{"trigo", []string{"trigo", "wheat"}},
	{"girasol", []string{"girasol", "sunflower"}},
	{"cebada", []string{"cebada", "barley"}},
	{"sorgo", []string{"sorgo", "sorghum"}},
}

// foldASCII strips diacritics ("maíz" -> "maiz") and drops any rune that is
// still outside ASCII afterwards.
func foldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, folded)
}

func removeSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Plate normalizes a vehicle plate: uppercase ASCII without whitespace,
// hyphens or periods.
func Plate(raw string) string {
	s := strings.ToUpper(foldASCII(strings.TrimSpace(raw)))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '.' {
			return -1
		}
		return r
	}, s)
}

// Waybill normalizes a waybill (CPE) number.
func Waybill(raw string) string {
	return strings.ToUpper(removeSpace(raw))
}

// CargoCode normalizes a cargo-tracking (CTG) code. Leading zeros are not
// significant.
func CargoCode(raw string) string {
	return strings.TrimLeft(Waybill(raw), "0")
}

// Date returns the canonical YYYY-MM-DD form of raw. When no known layout
// matches, the trimmed input is returned unchanged.
func Date(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if t, ok := ParseDate(s); ok {
		return t.Format(DateLayout)
	}
	return s
}

// DateFromTime formats a native date value canonically.
func DateFromTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseDate parses raw with the known layouts.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysBetween returns the whole-day offset to-from for two canonical dates.
// ok is false when either side is not a parseable date.
func DaysBetween(from, to string) (int, bool) {
	f, okFrom := ParseDate(from)
	t, okTo := ParseDate(to)
	if !okFrom || !okTo {
		return 0, false
	}
	return int(t.Sub(f).Hours() / 24), true
}

// Product lowercases a product name and maps known crop variants to their
// canonical name. Unknown products pass through lowercased.
func Product(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	folded := foldASCII(s)
	for _, group := range productKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(folded, kw) {
				return group.canonical
			}
		}
	}
	return s
}

// Amount parses a numeric cell that may use either "." or "," as the
// decimal separator ("30.000,00", "27,140.00", "1234,5"). Currency symbols
// and spaces are ignored.
func Amount(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "$", "")
	s = removeSpace(s)
	if s == "" {
		return 0, false
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		parts := strings.Split(s, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// Plates extracts the normalized plates of a waybill. The raw value is
// either a single plate or a JSON array such as ["AB123CD","AC456EF"]
// (tractor and trailer). A malformed array falls back to pulling quoted
// substrings out of the text.
func Plates(raw string) []string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	var plates []string
	add := func(v string) {
		if p := Plate(v); p != "" {
			plates = append(plates, p)
		}
	}

	if !strings.HasPrefix(s, "[") {
		add(s)
		return plates
	}

	var items []any
	if err := json.Unmarshal([]byte(s), &items); err == nil {
		for _, item := range items {
			if item == nil {
				continue
			}
			add(fmt.Sprint(item))
		}
		return plates
	}
	for _, m := range quotedRe.FindAllStringSubmatch(s, -1) {
		add(m[1])
	}
	return plates
}
