package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/discount-reconciler/generic"
	"github.com/warp/discount-reconciler/generic/store"
)

func TestMemory_UpsertReplacesAndListsSorted(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, generic.SummaryRow{Supplier: "S2"}))
	require.NoError(t, m.Upsert(ctx, generic.SummaryRow{Supplier: "S1"}))
	require.NoError(t, m.Upsert(ctx, generic.SummaryRow{Supplier: "S2", HasBase: true}))

	rows, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, generic.SupplierID("S1"), rows[0].Supplier)
	assert.True(t, rows[1].HasBase)

	_, ok, err := m.Get(ctx, "S3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_ListRuns_NewestFirst(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, m.SaveRun(ctx, generic.RunRecord{ID: id}))
	}

	runs, err := m.ListRuns(ctx, 2)
	require.NoError(t, err)

	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r2", runs[1].ID)
}
