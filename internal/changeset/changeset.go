// Package changeset accumulates the cell writes and highlight formats a
// reconciliation pass decides, and applies them to a table afterwards.
package changeset

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/store"
)

const DefaultFormatChunk = 10

// Builder queues writes without touching the store. Setting the same cell
// twice keeps the last value.
type Builder struct {
	writes    []store.Write
	formats   []store.FormatRequest
	byCell    map[store.Cell]int
	protected map[int]domain.ValueSet
	refused   int
}

func New() *Builder {
	return &Builder{
		byCell:    make(map[store.Cell]int),
		protected: make(map[int]domain.ValueSet),
	}
}

// Protect marks a 1-based column whose current values in set must never be
// overwritten.
func (b *Builder) Protect(col int, set domain.ValueSet) *Builder {
	b.protected[col] = set
	return b
}

// IsProtected reports whether current holds a protected value for cell.
func (b *Builder) IsProtected(cell store.Cell, current string) bool {
	set, ok := b.protected[cell.Col]
	return ok && set.Contains(current)
}

// Set queues value for cell.
func (b *Builder) Set(cell store.Cell, value string) {
	if i, ok := b.byCell[cell]; ok {
		b.writes[i].Value = value
		return
	}
	b.byCell[cell] = len(b.writes)
	b.writes = append(b.writes, store.Write{Cell: cell, Value: value})
}

// SetFormatted queues value and a format for the same cell.
func (b *Builder) SetFormatted(cell store.Cell, value string, format store.Format) {
	b.Set(cell, value)
	b.Format(cell, format)
}

// SetGuarded queues value unless the cell's current content is protected.
// It reports whether the write was queued.
func (b *Builder) SetGuarded(cell store.Cell, current, value string, format *store.Format) bool {
	if b.IsProtected(cell, current) {
		b.refused++
		return false
	}
	b.Set(cell, value)
	if format != nil {
		b.Format(cell, *format)
	}
	return true
}

// Format queues a format for cell.
func (b *Builder) Format(cell store.Cell, format store.Format) {
	b.formats = append(b.formats, store.FormatRequest{Cell: cell, Format: format})
}

func (b *Builder) Len() int { return len(b.writes) }

// Refused counts guarded writes rejected because of a protected value.
func (b *Builder) Refused() int { return b.refused }

func (b *Builder) Writes() []store.Write {
	return append([]store.Write(nil), b.writes...)
}

func (b *Builder) Formats() []store.FormatRequest {
	return append([]store.FormatRequest(nil), b.formats...)
}

// ApplyOptions controls Apply.
type ApplyOptions struct {
	DryRun bool
	// FormatChunk is the number of cells formatted per call.
	FormatChunk int
	Logger      logrus.FieldLogger
}

// Report summarizes an Apply.
type Report struct {
	Written        int  `json:"cells_written"`
	Formatted      int  `json:"cells_formatted"`
	FormatFailures int  `json:"format_failures"`
	DryRun         bool `json:"dry_run,omitempty"`
}

// Apply writes every queued value in one batch, then applies the formats.
// A write failure is returned; format failures are logged and counted.
func (b *Builder) Apply(ctx context.Context, table store.Table, opts ApplyOptions) (Report, error) {
	rep := Report{DryRun: opts.DryRun}
	if opts.DryRun || len(b.writes) == 0 && len(b.formats) == 0 {
		return rep, nil
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	chunk := opts.FormatChunk
	if chunk <= 0 {
		chunk = DefaultFormatChunk
	}

	if len(b.writes) > 0 {
		if err := table.BatchWrite(ctx, b.writes); err != nil {
			return rep, fmt.Errorf("batch write to %q: %w", table.Name(), err)
		}
		rep.Written = len(b.writes)
	}

	batcher, canBatch := table.(store.BatchFormatter)
	for start := 0; start < len(b.formats); start += chunk {
		end := min(start+chunk, len(b.formats))
		group := b.formats[start:end]
		if canBatch {
			err := batcher.BatchFormat(ctx, group)
			if err == nil {
				rep.Formatted += len(group)
				continue
			}
			logger.WithError(err).WithFields(logrus.Fields{
				"sheet": table.Name(),
				"cells": len(group),
			}).Warn("batch format failed, formatting cells one by one")
		}
		for _, req := range group {
			if err := table.SetCellFormat(ctx, req.Cell, req.Format); err != nil {
				rep.FormatFailures++
				logger.WithError(err).WithFields(logrus.Fields{
					"sheet": table.Name(),
					"cell":  req.Cell.A1(),
				}).Warn("cell format failed")
				continue
			}
			rep.Formatted++
		}
	}
	return rep, nil
}
