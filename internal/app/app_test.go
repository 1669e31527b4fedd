package app

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhaan/fletes-reconcile-system/internal/config"
	"github.com/farhaan/fletes-reconcile-system/internal/dataset"
	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/lock"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/store"
	"github.com/farhaan/fletes-reconcile-system/internal/metrics"
	"github.com/farhaan/fletes-reconcile-system/internal/propagation"
	"github.com/farhaan/fletes-reconcile-system/pkg/matcher"
)

func row(width int, values map[int]string) []string {
	r := make([]string, width)
	for col, v := range values {
		r[col] = v
	}
	return r
}

type fixture struct {
	cfg       config.Config
	mem       *store.MemoryStore
	shipments *store.MemoryTable
	weighs    *store.MemoryTable
	unloads   *store.MemoryTable
	waybills  *store.MemoryTable
	metrics   *metrics.Registry
}

func newFixture() *fixture {
	cfg := config.Default()
	cfg.PhaseDelay = 0
	sc, wc, uc, bc := cfg.ShipmentCols, cfg.WeighCols, cfg.UnloadCols, cfg.WaybillCols

	f := &fixture{cfg: cfg, mem: store.NewMemoryStore(), metrics: metrics.NewRegistry()}
	f.waybills = store.NewMemoryTable(cfg.Waybills.Name, [][]string{
		row(30, nil),
		row(30, map[int]string{
			bc.CargoCode: "100", bc.Number: "CPE-1", bc.Date: "2024-05-02", bc.Plates: "AB123CD",
			bc.Product: "Soja", bc.Carrier: "Juan Perez SRL", bc.Origin: "Pergamino",
		}),
		row(30, map[int]string{
			bc.CargoCode: "200", bc.Number: "CPE-2", bc.Date: "2024-05-02", bc.Plates: "XY999ZZ", bc.Product: "Soja",
		}),
	})
	f.weighs = store.NewMemoryTable(cfg.Weighs.Name, [][]string{
		row(20, nil),
		row(20, map[int]string{wc.Date: "01/05/2024", wc.Product: "Soja", wc.Net: "30000", wc.Plate: "AB 123 CD"}),
	})
	f.unloads = store.NewMemoryTable(cfg.Unloads.Name, [][]string{
		row(28, nil),
		row(28, map[int]string{uc.CargoCode: "100", uc.Net: "29900"}),
	})
	f.shipments = store.NewMemoryTable(cfg.Shipments.Name, [][]string{
		row(19, nil),
		row(19, map[int]string{sc.CargoCode: "100"}),
		row(19, map[int]string{sc.CargoCode: "300", sc.LinkFlag: "Traslado interno"}),
	})
	f.mem.Put(cfg.Waybills.SpreadsheetID, f.waybills)
	f.mem.Put(cfg.Weighs.SpreadsheetID, f.weighs)
	f.mem.Put(cfg.Unloads.SpreadsheetID, f.unloads)
	f.mem.Put(cfg.Shipments.SpreadsheetID, f.shipments)
	return f
}

func (f *fixture) app(locker lock.Locker) *App {
	logger, _ := test.NewNullLogger()
	return New(dataset.NewLoader(f.mem, f.cfg, nil, f.metrics, logger), locker, f.metrics, logger)
}

func TestRunAll_ChainsEveryPhase(t *testing.T) {
	f := newFixture()
	sc := f.cfg.ShipmentCols

	res := f.app(nil).RunAll(context.Background())

	require.True(t, res.Success, res.Errors)
	require.Len(t, res.Phases, len(RunAllOrder))
	for i, p := range res.Phases {
		assert.Equal(t, RunAllOrder[i], p.Operation)
		assert.Equal(t, res.RunID, p.RunID)
	}

	cell := func(col int) store.Cell { return store.Cell{Row: 2, Col: col + 1} }
	assert.Equal(t, "CPE-1", f.shipments.Get(cell(sc.Waybill)))
	assert.Equal(t, domain.LinkYes, f.shipments.Get(cell(sc.LinkFlag)))
	assert.Equal(t, "CPE-1", f.weighs.Get(store.Cell{Row: 2, Col: f.cfg.WeighCols.Waybill + 1}))
	assert.Equal(t, "30000", f.shipments.Get(cell(sc.WeighedNet)), "weighed net follows the waybill assigned in the same run")
	assert.Equal(t, "29900", f.shipments.Get(cell(sc.UnloadedNet)))
	assert.Equal(t, "Juan Perez SRL", f.shipments.Get(cell(sc.Carrier)))
	assert.Equal(t, "Pergamino", f.shipments.Get(cell(sc.Origin)))

	assert.Equal(t, "Traslado interno", f.shipments.Get(store.Cell{Row: 3, Col: sc.LinkFlag + 1}))

	weighed, ok := res.Phases[2].Counters.(propagation.WeighedResult)
	require.True(t, ok)
	assert.Equal(t, 1, weighed.NewMatches)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Runs.WithLabelValues(string(OpRunAll), "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.MatchOutcomes.WithLabelValues(string(domain.OutcomeUniqueMatch))))
}

func TestRunAll_FailedPhaseDoesNotStopLaterPhases(t *testing.T) {
	f := newFixture()
	f.shipments.WriteErr = errors.New("quota exceeded")

	res := f.app(nil).RunAll(context.Background())

	assert.False(t, res.Success)
	require.Len(t, res.Phases, len(RunAllOrder))
	assert.True(t, res.Phases[1].Success, "assignment writes to the weigh sheet")
	assert.Len(t, res.Errors, 4)
	assert.Equal(t, "CPE-1", f.weighs.Get(store.Cell{Row: 2, Col: f.cfg.WeighCols.Waybill + 1}))
}

func TestRunAll_CancelledContextStops(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.app(nil).RunAll(ctx)

	assert.False(t, res.Success)
	assert.Empty(t, res.Phases)
	assert.Len(t, res.Errors, 1)
}

func TestAssignWaybills_TieMarkedForReview(t *testing.T) {
	f := newFixture()
	bc := f.cfg.WaybillCols
	f.waybills = store.NewMemoryTable(f.cfg.Waybills.Name, [][]string{
		row(30, nil),
		row(30, map[int]string{bc.Number: "CPE-A", bc.Date: "2024-05-03", bc.Plates: "AB123CD", bc.Product: "Soja"}),
		row(30, map[int]string{bc.Number: "CPE-B", bc.Date: "2024-05-03", bc.Plates: "AB123CD", bc.Product: "Soja"}),
	})
	f.mem.Put(f.cfg.Waybills.SpreadsheetID, f.waybills)

	res := f.app(nil).AssignWaybills(context.Background())

	require.True(t, res.Success, res.Error)
	mr, ok := res.Counters.(*matcher.MatchResult)
	require.True(t, ok)
	assert.Equal(t, 1, mr.TiedMatches)
	require.Len(t, mr.Ties, 1)
	assert.Equal(t, "CPE-A", f.weighs.Get(store.Cell{Row: 2, Col: f.cfg.WeighCols.Waybill + 1}))
	assert.Equal(t, domain.MarkerReview, f.weighs.Get(store.Cell{Row: 2, Col: f.cfg.WeighCols.Verified + 1}))
}

func TestDryRun_ReportsWithoutWriting(t *testing.T) {
	f := newFixture()
	f.cfg.DryRun = true

	res := f.app(nil).LinkWaybills(context.Background())

	require.True(t, res.Success)
	assert.True(t, res.Report.DryRun)
	assert.Zero(t, f.shipments.WriteCalls())
	link, ok := res.Counters.(propagation.LinkResult)
	require.True(t, ok)
	assert.Equal(t, 1, link.WithWaybill)
	assert.Equal(t, 1, link.Protected)
}

func TestMissingSheetFails(t *testing.T) {
	f := newFixture()
	f.mem = store.NewMemoryStore()

	res := f.app(nil).PropagateUnloaded(context.Background())

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, f.cfg.Shipments.Name)
	assert.NotEmpty(t, res.RunID)
}

type heldLock struct{}

func (heldLock) Acquire(context.Context, string) (lock.Release, error) { return nil, lock.ErrLocked }

func TestLockedRunIsRefused(t *testing.T) {
	f := newFixture()

	res := f.app(heldLock{}).Autocomplete(context.Background())

	assert.False(t, res.Success)
	assert.Equal(t, lock.ErrLocked.Error(), res.Error)
	assert.Zero(t, f.shipments.WriteCalls())

	res = f.app(heldLock{}).RunAll(context.Background())
	assert.False(t, res.Success)
	assert.Empty(t, res.Phases)
}

func TestRun_UnknownOperation(t *testing.T) {
	_, err := newFixture().app(nil).Run(context.Background(), "reticulate")

	assert.ErrorIs(t, err, ErrUnknownOperation)
}
