// Package app runs the reconciliation batch jobs against the backing store.
// Each job reads fresh rows, decides its changes in memory, applies them in
// one batch and reports a Result.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/farhaan/fletes-reconcile-system/internal/changeset"
	"github.com/farhaan/fletes-reconcile-system/internal/config"
	"github.com/farhaan/fletes-reconcile-system/internal/dataset"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/lock"
	"github.com/farhaan/fletes-reconcile-system/internal/metrics"
)

// Operation names a batch job.
type Operation string

const (
	OpLinkWaybills      Operation = "link-waybills"
	OpAssignWaybills    Operation = "assign-waybills"
	OpPropagateWeighed  Operation = "weighed"
	OpPropagateUnloaded Operation = "unloaded"
	OpAutocomplete      Operation = "autocomplete"
	OpRunAll            Operation = "run-all"
)

var ErrUnknownOperation = errors.New("unknown operation")

// Result is the outcome of one operation. Counters hold the
// operation-specific tallies; Phases and Errors are only set by run-all.
type Result struct {
	Success   bool             `json:"success"`
	Error     string           `json:"error,omitempty"`
	RunID     string           `json:"run_id"`
	Operation Operation        `json:"operation"`
	Counters  any              `json:"counters,omitempty"`
	Report    changeset.Report `json:"report"`
	Duration  string           `json:"duration"`
	Phases    []Result         `json:"phases,omitempty"`
	Errors    []string         `json:"errors,omitempty"`

	err error
}

// Err returns the error that failed the operation, if any.
func (r Result) Err() error { return r.err }

type phaseFunc func(ctx context.Context, log logrus.FieldLogger) (any, changeset.Report, error)

type App struct {
	cfg     config.Config
	loader  *dataset.Loader
	locker  lock.Locker
	metrics *metrics.Registry
	logger  logrus.FieldLogger
}

func New(loader *dataset.Loader, locker lock.Locker, m *metrics.Registry, logger logrus.FieldLogger) *App {
	if locker == nil {
		locker = lock.Noop{}
	}
	if m == nil {
		m = metrics.NewRegistry()
	}
	return &App{
		cfg:     loader.Config(),
		loader:  loader,
		locker:  locker,
		metrics: m,
		logger:  logger.WithField("module", "app"),
	}
}

// Run dispatches an operation by name.
func (a *App) Run(ctx context.Context, op Operation) (Result, error) {
	switch op {
	case OpLinkWaybills:
		return a.LinkWaybills(ctx), nil
	case OpAssignWaybills:
		return a.AssignWaybills(ctx), nil
	case OpPropagateWeighed:
		return a.PropagateWeighed(ctx), nil
	case OpPropagateUnloaded:
		return a.PropagateUnloaded(ctx), nil
	case OpAutocomplete:
		return a.Autocomplete(ctx), nil
	case OpRunAll:
		return a.RunAll(ctx), nil
	}
	return Result{}, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
}

func (a *App) phase(op Operation) phaseFunc {
	switch op {
	case OpLinkWaybills:
		return a.linkWaybills
	case OpAssignWaybills:
		return a.assignWaybills
	case OpPropagateWeighed:
		return a.propagateWeighed
	case OpPropagateUnloaded:
		return a.propagateUnloaded
	case OpAutocomplete:
		return a.autocomplete
	}
	return nil
}

func (a *App) LinkWaybills(ctx context.Context) Result { return a.exclusive(ctx, OpLinkWaybills) }

func (a *App) AssignWaybills(ctx context.Context) Result { return a.exclusive(ctx, OpAssignWaybills) }

func (a *App) PropagateWeighed(ctx context.Context) Result {
	return a.exclusive(ctx, OpPropagateWeighed)
}

func (a *App) PropagateUnloaded(ctx context.Context) Result {
	return a.exclusive(ctx, OpPropagateUnloaded)
}

func (a *App) Autocomplete(ctx context.Context) Result { return a.exclusive(ctx, OpAutocomplete) }

func failed(runID string, op Operation, err error) Result {
	return Result{RunID: runID, Operation: op, Error: err.Error(), err: err}
}

// acquire takes the exclusive-run lock. The returned func releases it.
func (a *App) acquire(ctx context.Context, log logrus.FieldLogger) (func(), error) {
	release, err := a.locker.Acquire(ctx, lock.ReconcileKey)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("failed to release run lock")
		}
	}, nil
}

func (a *App) exclusive(ctx context.Context, op Operation) Result {
	runID := uuid.NewString()
	log := a.logger.WithFields(logrus.Fields{"run_id": runID, "operation": op})

	release, err := a.acquire(ctx, log)
	if err != nil {
		config.LogError(log, "app", string(op), "acquire lock", nil, err)
		a.metrics.Runs.WithLabelValues(string(op), "locked").Inc()
		return failed(runID, op, err)
	}
	defer release()

	return a.execute(ctx, runID, op, log)
}

// execute runs one phase and records its outcome. It never takes the lock.
func (a *App) execute(ctx context.Context, runID string, op Operation, log logrus.FieldLogger) Result {
	start := time.Now()
	res := Result{RunID: runID, Operation: op}

	counters, rep, err := a.phase(op)(ctx, log)
	elapsed := time.Since(start)
	res.Counters = counters
	res.Report = rep
	res.Duration = elapsed.Round(time.Millisecond).String()

	status := "success"
	if err != nil {
		status = "failure"
		res.Error = err.Error()
		res.err = err
		config.LogError(log, "app", string(op), "run", counters, err)
	} else {
		res.Success = true
		if !rep.DryRun && rep.Written > 0 {
			if err := a.loader.Invalidate(ctx); err != nil {
				log.WithError(err).Warn("failed to invalidate snapshot cache")
			}
		}
		log.WithFields(logrus.Fields{
			"counters":        counters,
			"cells_written":   rep.Written,
			"cells_formatted": rep.Formatted,
			"format_failures": rep.FormatFailures,
			"dry_run":         rep.DryRun,
			"duration":        res.Duration,
		}).Info("operation finished")
	}

	a.metrics.Runs.WithLabelValues(string(op), status).Inc()
	a.metrics.RunDurationSec.WithLabelValues(string(op)).Observe(elapsed.Seconds())
	a.metrics.CellsWritten.WithLabelValues(string(op)).Add(float64(rep.Written))
	a.metrics.FormatFailures.WithLabelValues(string(op)).Add(float64(rep.FormatFailures))
	return res
}

func (a *App) apply(ctx context.Context, sheet config.Sheet, b *changeset.Builder, log logrus.FieldLogger) (changeset.Report, error) {
	table, err := a.loader.Table(ctx, sheet)
	if err != nil {
		return changeset.Report{DryRun: a.cfg.DryRun}, err
	}
	return b.Apply(ctx, table, changeset.ApplyOptions{
		DryRun:      a.cfg.DryRun,
		FormatChunk: a.cfg.FormatChunk,
		Logger:      log.WithField("sheet", sheet.Name),
	})
}
