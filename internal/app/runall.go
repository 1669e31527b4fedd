package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/farhaan/fletes-reconcile-system/internal/config"
)

// RunAllOrder is the sequence run-all executes.
var RunAllOrder = []Operation{
	OpLinkWaybills,
	OpAssignWaybills,
	OpPropagateWeighed,
	OpPropagateUnloaded,
	OpAutocomplete,
}

// RunAll executes every phase in RunAllOrder under a single lock, spacing
// phase starts by the configured delay to stay within the remote quota. A
// failing phase is recorded and the next one still runs.
func (a *App) RunAll(ctx context.Context) Result {
	runID := uuid.NewString()
	log := a.logger.WithFields(logrus.Fields{"run_id": runID, "operation": OpRunAll})
	start := time.Now()

	release, err := a.acquire(ctx, log)
	if err != nil {
		config.LogError(log, "app", string(OpRunAll), "acquire lock", nil, err)
		a.metrics.Runs.WithLabelValues(string(OpRunAll), "locked").Inc()
		return failed(runID, OpRunAll, err)
	}
	defer release()

	res := Result{RunID: runID, Operation: OpRunAll, Phases: make([]Result, 0, len(RunAllOrder))}
	limiter := rate.NewLimiter(rate.Every(a.cfg.PhaseDelay), 1)
	for _, op := range RunAllOrder {
		if err := limiter.Wait(ctx); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", op, err))
			break
		}
		phase := a.execute(ctx, runID, op, log.WithField("phase", op))
		res.Phases = append(res.Phases, phase)
		res.Report.Written += phase.Report.Written
		res.Report.Formatted += phase.Report.Formatted
		res.Report.FormatFailures += phase.Report.FormatFailures
		if !phase.Success {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", op, phase.Error))
		}
	}
	res.Report.DryRun = a.cfg.DryRun
	res.Success = len(res.Errors) == 0
	if !res.Success {
		res.Error = fmt.Sprintf("run-all finished with %d error(s)", len(res.Errors))
		res.err = errors.New(res.Error)
	}
	res.Duration = time.Since(start).Round(time.Millisecond).String()

	status := "success"
	if !res.Success {
		status = "failure"
	}
	a.metrics.Runs.WithLabelValues(string(OpRunAll), status).Inc()
	log.WithFields(logrus.Fields{
		"phases":        len(res.Phases),
		"errors":        res.Errors,
		"cells_written": res.Report.Written,
		"duration":      res.Duration,
	}).Info("run-all finished")
	return res
}
