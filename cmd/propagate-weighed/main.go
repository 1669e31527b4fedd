// Command propagate-weighed copies weighed net weights onto shipments.
package main

import (
	"github.com/farhaan/fletes-reconcile-system/internal/app"
	"github.com/farhaan/fletes-reconcile-system/internal/cli"
)

func main() {
	cli.Main(app.OpPropagateWeighed)
}
