// Command link-waybills marks which shipments carry a waybill.
package main

import (
	"github.com/farhaan/fletes-reconcile-system/internal/app"
	"github.com/farhaan/fletes-reconcile-system/internal/cli"
)

func main() {
	cli.Main(app.OpLinkWaybills)
}
