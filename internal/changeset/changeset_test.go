package changeset

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhaan/fletes-reconcile-system/internal/domain"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/store"
)

func newTable() *store.MemoryTable {
	return store.NewMemoryTable("Fletes", [][]string{
		{"A", "B", "C"},
		{"1", "", ""},
		{"2", "", "no"},
	})
}

func TestBuilder_SetKeepsLastValue(t *testing.T) {
	b := New()
	b.Set(store.Cell{Row: 2, Col: 2}, "first")
	b.Set(store.Cell{Row: 2, Col: 2}, "second")

	require.Equal(t, 1, b.Len())
	assert.Equal(t, "second", b.Writes()[0].Value)
}

func TestBuilder_SetGuardedRefusesProtectedValues(t *testing.T) {
	b := New().Protect(3, domain.ProtectedLinkValues)
	green := store.FillColor(domain.ColorGreen)

	assert.False(t, b.SetGuarded(store.Cell{Row: 3, Col: 3}, "No", "si", &green))
	assert.False(t, b.SetGuarded(store.Cell{Row: 4, Col: 3}, "traslado interno", "si", &green))
	assert.True(t, b.SetGuarded(store.Cell{Row: 2, Col: 3}, "", "si", &green))
	// Other columns are not guarded.
	assert.True(t, b.SetGuarded(store.Cell{Row: 3, Col: 2}, "no", "x", nil))

	assert.Equal(t, 2, b.Refused())
	assert.Equal(t, 2, b.Len())
	assert.Len(t, b.Formats(), 1)
}

func TestApply_WritesOnceAndFormats(t *testing.T) {
	table := newTable()
	b := New()
	for row := 2; row <= 3; row++ {
		b.SetFormatted(store.Cell{Row: row, Col: 2}, "x", store.TextColor(domain.ColorGray))
	}

	rep, err := b.Apply(context.Background(), table, ApplyOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Written)
	assert.Equal(t, 2, rep.Formatted)
	assert.Equal(t, 1, table.WriteCalls())
	assert.Equal(t, "x", table.Get(store.Cell{Row: 3, Col: 2}))

	f, ok := table.FormatAt(store.Cell{Row: 2, Col: 2})
	require.True(t, ok)
	require.NotNil(t, f.Foreground)
	assert.Equal(t, domain.ColorGray, *f.Foreground)
}

func TestApply_DryRunLeavesTableUntouched(t *testing.T) {
	table := newTable()
	b := New()
	b.Set(store.Cell{Row: 2, Col: 2}, "x")

	rep, err := b.Apply(context.Background(), table, ApplyOptions{DryRun: true})
	require.NoError(t, err)

	assert.True(t, rep.DryRun)
	assert.Zero(t, rep.Written)
	assert.Zero(t, table.WriteCalls())
	assert.Equal(t, "", table.Get(store.Cell{Row: 2, Col: 2}))
}

func TestApply_WriteFailureIsReturned(t *testing.T) {
	table := newTable()
	table.WriteErr = errors.New("quota exceeded")
	b := New()
	b.SetFormatted(store.Cell{Row: 2, Col: 2}, "x", store.TextColor(domain.ColorGray))

	_, err := b.Apply(context.Background(), table, ApplyOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	_, formatted := table.FormatAt(store.Cell{Row: 2, Col: 2})
	assert.False(t, formatted)
}

func TestApply_FormatFailuresAreLoggedNotFatal(t *testing.T) {
	logger, hook := test.NewNullLogger()
	table := newTable()
	bad := store.Cell{Row: 2, Col: 2}
	table.FormatErr = func(c store.Cell) error {
		if c == bad {
			return errors.New("boom")
		}
		return nil
	}
	b := New()
	b.SetFormatted(bad, "x", store.TextColor(domain.ColorGray))
	b.SetFormatted(store.Cell{Row: 3, Col: 2}, "y", store.TextColor(domain.ColorGray))

	rep, err := b.Apply(context.Background(), table, ApplyOptions{Logger: logger})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Written)
	assert.Equal(t, 1, rep.Formatted)
	assert.Equal(t, 1, rep.FormatFailures)
	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "B2", hook.LastEntry().Data["cell"])
}

type batchTable struct {
	*store.MemoryTable
	batches []int
	fail    bool
}

func (b *batchTable) BatchFormat(ctx context.Context, reqs []store.FormatRequest) error {
	if b.fail {
		return errors.New("batch not supported")
	}
	b.batches = append(b.batches, len(reqs))
	for _, r := range reqs {
		if err := b.MemoryTable.SetCellFormat(ctx, r.Cell, r.Format); err != nil {
			return err
		}
	}
	return nil
}

func TestApply_FormatsInChunks(t *testing.T) {
	table := &batchTable{MemoryTable: store.NewMemoryTable("Fletes", nil)}
	b := New()
	for row := 2; row < 27; row++ {
		b.SetFormatted(store.Cell{Row: row, Col: 17}, "1", store.FillColor(domain.ColorGreen))
	}

	rep, err := b.Apply(context.Background(), table, ApplyOptions{FormatChunk: 10})
	require.NoError(t, err)

	assert.Equal(t, []int{10, 10, 5}, table.batches)
	assert.Equal(t, 25, rep.Formatted)
}

func TestApply_BatchFormatFailureFallsBackToCells(t *testing.T) {
	logger, _ := test.NewNullLogger()
	table := &batchTable{MemoryTable: store.NewMemoryTable("Fletes", nil), fail: true}
	b := New()
	b.SetFormatted(store.Cell{Row: 2, Col: 2}, "1", store.FillColor(domain.ColorRed))

	rep, err := b.Apply(context.Background(), table, ApplyOptions{Logger: logger})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Formatted)
	_, ok := table.FormatAt(store.Cell{Row: 2, Col: 2})
	assert.True(t, ok)
}
