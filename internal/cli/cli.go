// Package cli holds the shared entry point of the batch binaries.
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/farhaan/fletes-reconcile-system/internal/app"
	"github.com/farhaan/fletes-reconcile-system/internal/bootstrap"
	"github.com/farhaan/fletes-reconcile-system/internal/config"
)

// Main runs op once and exits with a non-zero status when it fails.
func Main(op app.Operation) {
	dryRun := flag.Bool("dry-run", false, "Compute changes without writing them")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, op, *dryRun, os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, op app.Operation, dryRun bool, out io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if dryRun {
		cfg.DryRun = true
	}

	svc, err := bootstrap.NewWithConfig(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	defer svc.Close()

	res, err := svc.App.Run(ctx, op)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if err := Print(out, res); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	if !res.Success {
		return 1
	}
	return 0
}

// Print writes res as indented JSON.
func Print(w io.Writer, res app.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
