package dataset

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/farhaan/fletes-reconcile-system/internal/config"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/cache"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/store"
	"github.com/farhaan/fletes-reconcile-system/internal/metrics"
)

// Loader reads the four datasets from the backing store. Reads made with
// useCache go through the snapshot cache; batch operations always read
// fresh rows.
type Loader struct {
	store   store.Store
	cfg     config.Config
	cache   cache.Cache
	metrics *metrics.Registry
	logger  logrus.FieldLogger
}

func NewLoader(s store.Store, cfg config.Config, c cache.Cache, m *metrics.Registry, logger logrus.FieldLogger) *Loader {
	return &Loader{store: s, cfg: cfg, cache: c, metrics: m, logger: logger}
}

func (l *Loader) Config() config.Config { return l.cfg }

// Table opens the sheet for writing.
func (l *Loader) Table(ctx context.Context, sheet config.Sheet) (store.Table, error) {
	return store.OpenTable(ctx, l.store, sheet.SpreadsheetID, sheet.Name)
}

// Rows returns every row of sheet, headers first.
func (l *Loader) Rows(ctx context.Context, sheet config.Sheet, useCache bool) ([][]string, error) {
	key := cache.Key("rows", sheet.SpreadsheetID, sheet.Name)
	if useCache && l.cache != nil {
		var rows [][]string
		ok, err := l.cache.Get(ctx, key, &rows)
		if err != nil {
			l.logger.WithError(err).WithField("key", key).Warn("cache read failed")
		}
		if ok {
			l.observeCache(true)
			return rows, nil
		}
		l.observeCache(false)
	}

	t, err := l.Table(ctx, sheet)
	if err != nil {
		return nil, err
	}
	rows, err := t.ReadAllRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", sheet.Name, err)
	}

	if useCache && l.cache != nil {
		if err := l.cache.Set(ctx, key, rows); err != nil {
			l.logger.WithError(err).WithField("key", key).Warn("cache write failed")
		}
	}
	return rows, nil
}

func (l *Loader) observeCache(hit bool) {
	if l.metrics == nil {
		return
	}
	if hit {
		l.metrics.CacheHits.Inc()
	} else {
		l.metrics.CacheMisses.Inc()
	}
}

// Snapshot loads and parses all four datasets.
func (l *Loader) Snapshot(ctx context.Context, useCache bool) (*Snapshot, error) {
	shipments, err := l.Rows(ctx, l.cfg.Shipments, useCache)
	if err != nil {
		return nil, err
	}
	weighs, err := l.Rows(ctx, l.cfg.Weighs, useCache)
	if err != nil {
		return nil, err
	}
	unloads, err := l.Rows(ctx, l.cfg.Unloads, useCache)
	if err != nil {
		return nil, err
	}
	waybills, err := l.Rows(ctx, l.cfg.Waybills, useCache)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Shipments: ParseShipments(shipments, l.cfg.ShipmentCols),
		Weighs:    ParseWeighTickets(weighs, l.cfg.WeighCols),
		Unloads:   ParseUnloadTickets(unloads, l.cfg.UnloadCols),
		Waybills:  ParseWaybills(waybills, l.cfg.WaybillCols),
	}, nil
}

// Invalidate drops cached snapshots.
func (l *Loader) Invalidate(ctx context.Context) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Invalidate(ctx)
}
