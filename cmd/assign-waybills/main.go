// Command assign-waybills assigns waybills to weigh tickets by plate and date.
package main

import (
	"github.com/farhaan/fletes-reconcile-system/internal/app"
	"github.com/farhaan/fletes-reconcile-system/internal/cli"
)

func main() {
	cli.Main(app.OpAssignWaybills)
}
