// Command propagate-unloaded copies unloaded net weights onto shipments.
package main

import (
	"github.com/farhaan/fletes-reconcile-system/internal/app"
	"github.com/farhaan/fletes-reconcile-system/internal/cli"
)

func main() {
	cli.Main(app.OpPropagateUnloaded)
}
