package normalize

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

func TestPlate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"ab-c 123", "ABC123"},
		{" AB 123 CD ", "AB123CD"},
		{"ab.123.cd", "AB123CD"},
		{"ÁB123", "AB123"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Plate(tt.raw); got != tt.want {
			t.Errorf("Plate(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCargoCode(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"000101 234", "101234"},
		{"ctg-9", "CTG-9"},
		{"0000", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CargoCode(tt.raw); got != tt.want {
			t.Errorf("CargoCode(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
	if got := Waybill(" 0001-00123 "); got != "0001-00123" {
		t.Errorf("Waybill kept leading zeros wrong: %q", got)
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2024-05-01", "2024-05-01"},
		{"1/5/2024", "2024-05-01"},
		{"01/05/2024", "2024-05-01"},
		{"01-05-2024", "2024-05-01"},
		{"2024/5/1", "2024-05-01"},
		{"01/05/24", "2024-05-01"},
		{"  mañana ", "mañana"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Date(tt.raw); got != tt.want {
			t.Errorf("Date(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
	if got := DateFromTime(time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)); got != "2024-05-01" {
		t.Errorf("DateFromTime = %q", got)
	}
	if got := DateFromTime(time.Time{}); got != "" {
		t.Errorf("DateFromTime(zero) = %q, want empty", got)
	}
}

func TestDaysBetween(t *testing.T) {
	if d, ok := DaysBetween("2024-05-01", "2024-05-03"); !ok || d != 2 {
		t.Errorf("Expected 2 days, got %d ok=%v", d, ok)
	}
	if d, ok := DaysBetween("2024-05-03", "2024-05-01"); !ok || d != -2 {
		t.Errorf("Expected -2 days, got %d ok=%v", d, ok)
	}
	if _, ok := DaysBetween("2024-05-01", "sin fecha"); ok {
		t.Error("Expected ok=false for an unparseable date")
	}
}

func TestProduct(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"SOJA", "soja"},
		{"Soybean", "soja"},
		{"Maíz Flint", "maiz"},
		{"CORN", "maiz"},
		{"Trigo Pan", "trigo"},
		{"sunflower", "girasol"},
		{"Cebada cervecera", "cebada"},
		{"Sorghum", "sorgo"},
		{"Fertilizante", "fertilizante"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Product(tt.raw); got != tt.want {
			t.Errorf("Product(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"30.000,00", 30000, true},
		{"27,140.00", 27140, true},
		{"1234,5", 1234.5, true},
		{"27,140", 27140, true},
		{"$ 1 500", 1500, true},
		{"30000", 30000, true},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tt := range tests {
		got, ok := Amount(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Amount(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPlates(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{`["ABC123","DEF456"]`, []string{"ABC123", "DEF456"}},
		{"ab-c 123", []string{"ABC123"}},
		{`["ab 123 cd", null, ""]`, []string{"AB123CD"}},
		{`["AB123CD", "AC456EF"`, []string{"AB123CD", "AC456EF"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := Plates(tt.raw); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Plates(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizersAreIdempotent(t *testing.T) {
	gofakeit.Seed(42)
	layouts := []string{"2006-01-02", "02/01/2006", "2/1/2006", "02-01-2006", "2006/01/02", "02/01/06"}
	products := []string{"Soja", "SOYA", "maíz", "Corn", "Trigo", "Girasol", "Cebada", "Sorgo", "Fertilizante"}

	for i := 0; i < 200; i++ {
		plate := gofakeit.Lexify("??") + gofakeit.RandomString([]string{" ", "-", ".", ""}) +
			gofakeit.Numerify("###") + " " + strings.ToUpper(gofakeit.Lexify("??"))
		if once := Plate(plate); Plate(once) != once {
			t.Errorf("Plate not idempotent for %q: %q then %q", plate, once, Plate(once))
		}

		date := gofakeit.Date().Format(gofakeit.RandomString(layouts))
		if once := Date(date); Date(once) != once {
			t.Errorf("Date not idempotent for %q: %q then %q", date, once, Date(once))
		}

		cargo := gofakeit.Numerify("00##########")
		if once := CargoCode(cargo); CargoCode(once) != once {
			t.Errorf("CargoCode not idempotent for %q: %q then %q", cargo, once, CargoCode(once))
		}

		product := gofakeit.RandomString(products) + " " + gofakeit.Word()
		if once := Product(product); Product(once) != once {
			t.Errorf("Product not idempotent for %q: %q then %q", product, once, Product(once))
		}
	}
}
