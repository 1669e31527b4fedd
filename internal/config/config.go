// Package config holds the static mapping of spreadsheets, sheets and
// column positions the reconciliation jobs operate on, plus the tuning
// knobs and environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Backend names accepted in STORE_BACKEND.
const (
	BackendSheets = "sheets"
	BackendXLSX   = "xlsx"
	BackendCSV    = "csv"
)

// ShipmentColumns are 0-based positions in "Fletes facturados todos".
type ShipmentColumns struct {
	Invoice        int `validate:"gte=0"`
	Date           int `validate:"gte=0"`
	Product        int `validate:"gte=0"`
	Quantity       int `validate:"gte=0"`
	CargoCode      int `validate:"gte=0"`
	Waybill        int `validate:"gte=0"`
	Origin         int `validate:"gte=0"`
	Destination    int `validate:"gte=0"`
	Carrier        int `validate:"gte=0"`
	Driver         int `validate:"gte=0"`
	Total          int `validate:"gte=0"`
	Classification int `validate:"gte=0"`
	WeighedNet     int `validate:"gte=0"`
	LinkFlag       int `validate:"gte=0"`
	UnloadedNet    int `validate:"gte=0"`
}

// WeighColumns are 0-based positions in "Pesadas Todos".
type WeighColumns struct {
	Date     int `validate:"gte=0"`
	Product  int `validate:"gte=0"`
	Net      int `validate:"gte=0"`
	Origin   int `validate:"gte=0"`
	Plate    int `validate:"gte=0"`
	Carrier  int `validate:"gte=0"`
	Waybill  int `validate:"gte=0"`
	Driver   int `validate:"gte=0"`
	Verified int `validate:"gte=0"`
}

// UnloadColumns are 0-based positions in "Descargas Todos".
type UnloadColumns struct {
	Product   int `validate:"gte=0"`
	Origin    int `validate:"gte=0"`
	Waybill   int `validate:"gte=0"`
	CargoCode int `validate:"gte=0"`
	Net       int `validate:"gte=0"`
	Carrier   int `validate:"gte=0"`
}

// WaybillColumns are 0-based positions in "Cartas de Porte Afip".
type WaybillColumns struct {
	CargoCode   int `validate:"gte=0"`
	Number      int `validate:"gte=0"`
	Date        int `validate:"gte=0"`
	Carrier     int `validate:"gte=0"`
	Driver      int `validate:"gte=0"`
	Product     int `validate:"gte=0"`
	Origin      int `validate:"gte=0"`
	Destination int `validate:"gte=0"`
	Plates      int `validate:"gte=0"`
}

// Sheet locates one dataset.
type Sheet struct {
	SpreadsheetID string `validate:"required"`
	Name          string `validate:"required"`
}

type Config struct {
	Backend   string `validate:"oneof=sheets xlsx csv"`
	StorePath string `validate:"required_unless=Backend sheets"`

	Shipments Sheet `validate:"required"`
	Weighs    Sheet `validate:"required"`
	Unloads   Sheet `validate:"required"`
	Waybills  Sheet `validate:"required"`

	ShipmentCols ShipmentColumns
	WeighCols    WeighColumns
	UnloadCols   UnloadColumns
	WaybillCols  WaybillColumns

	// Waybill assignment window, in days after the weigh date.
	WindowMinDays  int `validate:"gte=0"`
	WindowMaxDays  int `validate:"gtefield=WindowMinDays"`
	MaxTieOptions  int `validate:"gt=0"`
	AlertRowLimit  int `validate:"gt=0"`
	FormatChunk    int `validate:"gt=0"`
	PhaseDelay     time.Duration
	CacheTTL       time.Duration `validate:"gt=0"`
	LockTTL        time.Duration `validate:"gt=0"`
	DryRun         bool
	TokenJSON      string
	TokenFile      string
	CredentialFile string
	RedisAddress   string
	HTTPAddr       string `validate:"required"`
	CORSOrigins    []string
	LogLevel       string `validate:"oneof=trace debug info warn warning error fatal panic"`
}

// Default returns the production mapping.
func Default() Config {
	const (
		cpeSpreadsheet     = "1aSZalfUpSFHytq9sYEkzDvXqFC_nBF_9a99kg6qZSXc"
		pesadasSpreadsheet = "1gTvXfwOsqbbc5lxpcsh8HMoB5F3Bix0qpdNKdyY5DME"
	)
	return Config{
		Backend:   BackendSheets,
		Shipments: Sheet{SpreadsheetID: cpeSpreadsheet, Name: "Fletes facturados todos"},
		Weighs:    Sheet{SpreadsheetID: pesadasSpreadsheet, Name: "Pesadas Todos"},
		Unloads:   Sheet{SpreadsheetID: cpeSpreadsheet, Name: "Descargas Todos"},
		Waybills:  Sheet{SpreadsheetID: cpeSpreadsheet, Name: "Cartas de Porte Afip"},
		ShipmentCols: ShipmentColumns{
			Invoice:        0,
			Date:           1,
			Product:        2,
			Quantity:       3,
			CargoCode:      4,
			Waybill:        5,
			Origin:         6,
			Destination:    7,
			Carrier:        8,
			Driver:         9,
			Total:          12,
			Classification: 15,
			WeighedNet:     16,
			LinkFlag:       17,
			UnloadedNet:    18,
		},
		WeighCols: WeighColumns{
			Date:     1,
			Product:  4,
			Net:      8,
			Origin:   10,
			Plate:    11,
			Carrier:  12,
			Waybill:  13,
			Driver:   14,
			Verified: 19,
		},
		UnloadCols: UnloadColumns{
			Product:   6,
			Origin:    9,
			Waybill:   11,
			CargoCode: 12,
			Net:       16,
			Carrier:   27,
		},
		WaybillCols: WaybillColumns{
			CargoCode:   0,
			Number:      1,
			Date:        2,
			Carrier:     14,
			Driver:      16,
			Product:     17,
			Origin:      19,
			Destination: 22,
			Plates:      26,
		},
		WindowMinDays: 0,
		WindowMaxDays: 7,
		MaxTieOptions: 5,
		AlertRowLimit: 100,
		FormatChunk:   10,
		PhaseDelay:    15 * time.Second,
		CacheTTL:      5 * time.Minute,
		LockTTL:       10 * time.Minute,
		TokenFile:     "token.json",
		HTTPAddr:      ":5015",
		LogLevel:      "info",
	}
}

// Load returns Default() with environment overrides applied. A .env file in
// the working directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("GOOGLE_TOKEN_JSON"); v != "" {
		cfg.TokenJSON = v
	}
	if v := os.Getenv("GOOGLE_TOKEN_FILE"); v != "" {
		cfg.TokenFile = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		cfg.CredentialFile = v
	}
	if v := os.Getenv("REDIS_ADDRESS"); v != "" {
		cfg.RedisAddress = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("PHASE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PHASE_DELAY %q: %w", v, err)
		}
		cfg.PhaseDelay = d
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DRY_RUN %q: %w", v, err)
		}
		cfg.DryRun = b
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
