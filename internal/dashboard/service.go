package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/farhaan/fletes-reconcile-system/internal/changeset"
	"github.com/farhaan/fletes-reconcile-system/internal/config"
	"github.com/farhaan/fletes-reconcile-system/internal/dataset"
	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/store"
)

var (
	ErrInvalidRow            = errors.New("row must be a data row (2 or greater)")
	ErrUnknownClassification = errors.New("unknown classification")
)

// Service serves dashboard data from cached snapshots and performs the
// single-cell manual review actions.
type Service struct {
	loader *dataset.Loader
	logger logrus.FieldLogger
}

func NewService(loader *dataset.Loader, logger logrus.FieldLogger) *Service {
	return &Service{loader: loader, logger: logger.WithField("module", "dashboard")}
}

func (s *Service) snapshot(ctx context.Context) (*dataset.Snapshot, error) {
	snap, err := s.loader.Snapshot(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

// Summary computes KPIs, aggregates and alerts for the shipments passing f.
func (s *Service) Summary(ctx context.Context, f Filter) (Summary, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(Views(snap.Shipments), f, s.loader.Config().AlertRowLimit), nil
}

// Duplicates returns the duplicate-plate review queue.
func (s *Service) Duplicates(ctx context.Context) (DuplicateReport, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return DuplicateReport{}, err
	}
	return Duplicates(snap.Weighs, dataset.Build(snap)), nil
}

// MissingWaybill returns the shipments waiting for a waybill or a manual
// classification.
func (s *Service) MissingWaybill(ctx context.Context) (MissingWaybillReport, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return MissingWaybillReport{}, err
	}
	return MissingWaybill(snap.Shipments, s.loader.Config().AlertRowLimit), nil
}

// MarkVerified writes the verified marker on a weigh ticket row.
func (s *Service) MarkVerified(ctx context.Context, row int) error {
	if row < 2 {
		return ErrInvalidRow
	}
	cfg := s.loader.Config()
	b := changeset.New()
	b.Set(store.Cell{Row: row, Col: cfg.WeighCols.Verified + 1}, domain.MarkerVerified)
	if err := s.apply(ctx, cfg.Weighs, b); err != nil {
		config.LogError(s.logger, "dashboard", "MarkVerified", "apply", row, err)
		return err
	}
	s.logger.WithField("row", row).Info("weigh ticket marked verified")
	return nil
}

// Classify records why a shipment has no waybill: the waybill column gets
// the not-applicable marker and the flag column gets the tag.
func (s *Service) Classify(ctx context.Context, row int, tag string) error {
	if row < 2 {
		return ErrInvalidRow
	}
	class, ok := domain.ParseClassification(tag)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClassification, tag)
	}
	cfg := s.loader.Config()
	b := changeset.New()
	b.Set(store.Cell{Row: row, Col: cfg.ShipmentCols.Waybill + 1}, domain.NotApplicableWaybill)
	b.Set(store.Cell{Row: row, Col: cfg.ShipmentCols.LinkFlag + 1}, string(class))
	if err := s.apply(ctx, cfg.Shipments, b); err != nil {
		config.LogError(s.logger, "dashboard", "Classify", "apply", map[string]any{"row": row, "tag": class}, err)
		return err
	}
	s.logger.WithFields(logrus.Fields{"row": row, "classification": class}).Info("shipment classified")
	return nil
}

func (s *Service) apply(ctx context.Context, sheet config.Sheet, b *changeset.Builder) error {
	table, err := s.loader.Table(ctx, sheet)
	if err != nil {
		return err
	}
	if _, err := b.Apply(ctx, table, changeset.ApplyOptions{Logger: s.logger}); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Refresh drops cached snapshots so the next read is fresh.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.loader.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	return nil
}
