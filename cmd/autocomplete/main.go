// Command autocomplete fills empty shipment fields from the linked waybill.
package main

import (
	"github.com/farhaan/fletes-reconcile-system/internal/app"
	"github.com/farhaan/fletes-reconcile-system/internal/cli"
)

func main() {
	cli.Main(app.OpAutocomplete)
}
