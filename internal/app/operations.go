package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/farhaan/fletes-reconcile-system/internal/changeset"
	"github.com/farhaan/fletes-reconcile-system/internal/completion"
	"github.com/farhaan/fletes-reconcile-system/internal/config"
	"github.com/farhaan/fletes-reconcile-system/internal/dataset"
	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/store"
	"github.com/farhaan/fletes-reconcile-system/internal/propagation"
	"github.com/farhaan/fletes-reconcile-system/pkg/matcher"
)

// datasets selects which sheets an operation reads.
type datasets uint8

const (
	withShipments datasets = 1 << iota
	withWeighs
	withUnloads
	withWaybills
)

// read loads the selected sheets, bypassing the snapshot cache.
func (a *App) read(ctx context.Context, want datasets) (*dataset.Snapshot, error) {
	snap := &dataset.Snapshot{}
	load := func(sheet config.Sheet) ([][]string, error) {
		rows, err := a.loader.Rows(ctx, sheet, false)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", sheet.Name, err)
		}
		return rows, nil
	}
	if want&withShipments != 0 {
		rows, err := load(a.cfg.Shipments)
		if err != nil {
			return nil, err
		}
		snap.Shipments = dataset.ParseShipments(rows, a.cfg.ShipmentCols)
	}
	if want&withWeighs != 0 {
		rows, err := load(a.cfg.Weighs)
		if err != nil {
			return nil, err
		}
		snap.Weighs = dataset.ParseWeighTickets(rows, a.cfg.WeighCols)
	}
	if want&withUnloads != 0 {
		rows, err := load(a.cfg.Unloads)
		if err != nil {
			return nil, err
		}
		snap.Unloads = dataset.ParseUnloadTickets(rows, a.cfg.UnloadCols)
	}
	if want&withWaybills != 0 {
		rows, err := load(a.cfg.Waybills)
		if err != nil {
			return nil, err
		}
		snap.Waybills = dataset.ParseWaybills(rows, a.cfg.WaybillCols)
	}
	return snap, nil
}

// linkWaybills copies waybill numbers into shipments by cargo code and
// sets the linkage flag. Manually classified rows are never touched.
func (a *App) linkWaybills(ctx context.Context, log logrus.FieldLogger) (any, changeset.Report, error) {
	snap, err := a.read(ctx, withShipments|withWaybills)
	if err != nil {
		return nil, changeset.Report{}, err
	}
	cols := a.cfg.ShipmentCols
	b := changeset.New().Protect(cols.LinkFlag+1, domain.ProtectedLinkValues)

	res := propagation.Link(snap.Shipments, dataset.Build(snap), cols, b)
	log.WithField("queued", b.Len()).Debug("link changes decided")

	rep, err := a.apply(ctx, a.cfg.Shipments, b, log)
	return res, rep, err
}

// assignWaybills gives weigh tickets without a waybill the closest
// candidate for their plate and marks ties for review.
func (a *App) assignWaybills(ctx context.Context, log logrus.FieldLogger) (any, changeset.Report, error) {
	snap, err := a.read(ctx, withWeighs|withWaybills)
	if err != nil {
		return nil, changeset.Report{}, err
	}
	idx := dataset.Build(snap)

	m := matcher.NewPlateDateMatcher(matcher.MatcherConfig{
		WindowMinDays: a.cfg.WindowMinDays,
		WindowMaxDays: a.cfg.WindowMaxDays,
		MaxTieOptions: a.cfg.MaxTieOptions,
	})
	res, err := m.Match(snap.Weighs, idx.WaybillsByPlate)
	if err != nil {
		return nil, changeset.Report{}, fmt.Errorf("match waybills: %w", err)
	}
	for _, d := range res.Decisions {
		a.metrics.MatchOutcomes.WithLabelValues(string(d.Outcome)).Inc()
	}

	cols := a.cfg.WeighCols
	b := changeset.New()
	for _, d := range res.Assignments() {
		b.Set(store.Cell{Row: d.Row, Col: cols.Waybill + 1}, d.Waybill)
		if d.Review {
			b.Set(store.Cell{Row: d.Row, Col: cols.Verified + 1}, domain.MarkerReview)
		}
	}
	log.WithFields(logrus.Fields{
		"algorithm": m.Name(),
		"queued":    b.Len(),
		"ties":      len(res.Ties),
	}).Debug("waybill assignments decided")

	rep, err := a.apply(ctx, a.cfg.Weighs, b, log)
	return res, rep, err
}

func (a *App) propagateWeighed(ctx context.Context, log logrus.FieldLogger) (any, changeset.Report, error) {
	snap, err := a.read(ctx, withShipments|withWeighs|withWaybills)
	if err != nil {
		return nil, changeset.Report{}, err
	}
	b := changeset.New()
	res := propagation.Weighed(snap.Shipments, dataset.Build(snap), a.cfg.ShipmentCols, b)

	rep, err := a.apply(ctx, a.cfg.Shipments, b, log)
	return res, rep, err
}

func (a *App) propagateUnloaded(ctx context.Context, log logrus.FieldLogger) (any, changeset.Report, error) {
	snap, err := a.read(ctx, withShipments|withUnloads)
	if err != nil {
		return nil, changeset.Report{}, err
	}
	b := changeset.New()
	res := propagation.Unloaded(snap.Shipments, dataset.Build(snap), a.cfg.ShipmentCols, b)

	rep, err := a.apply(ctx, a.cfg.Shipments, b, log)
	return res, rep, err
}

// autocomplete fills empty shipment fields from the reference datasets.
func (a *App) autocomplete(ctx context.Context, log logrus.FieldLogger) (any, changeset.Report, error) {
	snap, err := a.read(ctx, withShipments|withWeighs|withUnloads|withWaybills)
	if err != nil {
		return nil, changeset.Report{}, err
	}
	b := changeset.New()
	res := completion.NewEngine(a.cfg.ShipmentCols).Run(snap.Shipments, dataset.Build(snap), b)

	rep, err := a.apply(ctx, a.cfg.Shipments, b, log)
	return res, rep, err
}
