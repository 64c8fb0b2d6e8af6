package factory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/discount-reconciler/discount"
	"github.com/warp/discount-reconciler/factory"
	"github.com/warp/discount-reconciler/generic"
	"github.com/warp/discount-reconciler/logging"
	"github.com/warp/discount-reconciler/report"
)

func TestParseOptions_Empty_Defaults(t *testing.T) {
	opts, err := factory.NewOptionsFactory().ParseOptions(`{}`)
	require.NoError(t, err)

	require.Len(t, opts.JoinedGroups, 1)
	assert.Equal(t, generic.SupplierID("248-TECNOQUIMICAS"), opts.JoinedGroups[0].Consolidated)
	assert.Equal(t, []generic.SupplierID{"134-COASPHARMA"}, opts.RotationOnly)
	assert.Equal(t, discount.FallbackFirst, opts.Fallback.Name())
	assert.Equal(t, discount.SelectionOvershootOne, opts.Selection.Name())
	require.NotNil(t, opts.Bonus)
	assert.Equal(t, discount.DefaultBonusRule, *opts.Bonus)
}

func TestParseOptions_AllFields(t *testing.T) {
	// GIVEN: A settings document overriding every field
	// WHEN: Parsing it
	// THEN: Each override lands in report.Options

	opts, err := factory.NewOptionsFactory().ParseOptions(`{
		"joined_groups": [{"consolidated": "G", "members": ["A", "B"]}],
		"rotation_only": [],
		"fallback": "random",
		"fallback_seed": 3,
		"selection": "strict",
		"bonus": {"subgroup": "Free", "code_suffix": "FRE"}
	}`)
	require.NoError(t, err)

	require.Len(t, opts.JoinedGroups, 1)
	assert.Equal(t, []generic.SupplierID{"A", "B"}, opts.JoinedGroups[0].Members)
	assert.Empty(t, opts.RotationOnly)
	assert.Equal(t, discount.FallbackRandom, opts.Fallback.Name())
	assert.Equal(t, discount.SelectionStrict, opts.Selection.Name())
	assert.Equal(t, "FRE", opts.Bonus.CodeSuffix)
}

func TestParseOptions_UnknownPolicy_Error(t *testing.T) {
	f := factory.NewOptionsFactory()

	_, err := f.ParseOptions(`{"fallback": "closest"}`)
	assert.Error(t, err)

	_, err = f.ParseOptions(`{"selection": "greedy"}`)
	assert.Error(t, err)

	_, err = f.ParseOptions(`{not json`)
	assert.Error(t, err)
}

func TestParseOptions_EmptyBonus_DisablesExclusion(t *testing.T) {
	// GIVEN: A settings document with an empty bonus rule
	// WHEN: Reconciling a "Bonificados"/"XBOF" line under a 10% blanket rule
	// THEN: The line is no longer treated as free goods and earns its note

	opts, err := factory.NewOptionsFactory().ParseOptions(`{"bonus": {"subgroup": "", "code_suffix": ""}}`)
	require.NoError(t, err)
	require.NotNil(t, opts.Bonus)
	assert.Equal(t, discount.BonusRule{}, *opts.Bonus)

	one := generic.MustParseDecimal("1")
	ds := discount.NewDataset(
		[]discount.SupplierRecord{{ID: "S1", Mode: discount.TotalCost}},
		[]discount.DiscountRule{{Supplier: "S1", Code: generic.AllProducts, Percent: generic.MustParseDecimal("0.1"), Descriptor: "1_5"}},
		[]discount.TransactionLine{{
			Supplier:  "S1",
			Code:      "XBOF",
			Subgroup:  "Bonificados",
			Date:      generic.NewDay(2023, time.March, 2),
			Quantity:  one,
			NetPrice:  generic.MustParseDecimal("100"),
			TotalCost: generic.MustParseDecimal("100"),
		}},
		2023, time.March,
	)
	opts.Logger = logging.NewDiscardLogger()
	rec, err := report.New(ds, opts)
	require.NoError(t, err)

	result, err := rec.Run(context.Background(), report.RunRequest{})
	require.NoError(t, err)
	require.Len(t, result.Reports, 1)
	res := result.Reports[0].Results[0]
	assert.True(t, res.Computed.Equal(generic.MustParseDecimal("10")), "computed = %s", res.Computed)
}

func TestLoadFile(t *testing.T) {
	f := factory.NewOptionsFactory()

	opts, err := f.LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, discount.SelectionOvershootOne, opts.Selection.Name())

	path := filepath.Join(t.TempDir(), "reconciler.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fallback": "none"}`), 0o644))

	opts, err = f.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, discount.FallbackNone, opts.Fallback.Name())

	_, err = f.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
