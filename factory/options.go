/*
Package factory provides JSON to Go conversion of the reconciler settings.

PURPOSE:
  Converts a JSON settings document into report.Options, so the joined
  supplier groups, rotation-only suppliers and policy choices can change
  without code changes. Missing fields keep the production defaults.

JSON SCHEMA:
  {
    "joined_groups": [
      {"consolidated": "248-TECNOQUIMICAS",
       "members": ["248-TECNOQUIMICAS", "115-BAXTER", "206-MK", "254-WASSER CH"]}
    ],
    "rotation_only": ["134-COASPHARMA"],
    "fallback": "first",          // first | random | none
    "fallback_seed": 42,          // random only
    "selection": "overshoot_one", // overshoot_one | strict
    "bonus": {"subgroup": "Bonificados", "code_suffix": "BOF"}
  }

  An explicit empty "bonus" object disables free-goods exclusion.

USAGE:
  f := factory.NewOptionsFactory()
  opts, err := f.ParseOptions(jsonString)
  opts.Summary = sqliteStore
  rec, err := report.New(dataset, opts)

SEE ALSO:
  - report/reconciler.go: Options
  - discount/fallback.go, discount/selection.go: policy names
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/warp/discount-reconciler/discount"
	"github.com/warp/discount-reconciler/generic"
	"github.com/warp/discount-reconciler/report"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// OptionsJSON is the JSON representation of the reconciler settings.
type OptionsJSON struct {
	JoinedGroups []JoinedGroupJSON `json:"joined_groups,omitempty"`
	RotationOnly []string          `json:"rotation_only,omitempty"`
	Fallback     string            `json:"fallback,omitempty"`
	FallbackSeed int64             `json:"fallback_seed,omitempty"`
	Selection    string            `json:"selection,omitempty"`
	Bonus        *BonusJSON        `json:"bonus,omitempty"`
}

type JoinedGroupJSON struct {
	Consolidated string   `json:"consolidated"`
	Members      []string `json:"members"`
}

type BonusJSON struct {
	Subgroup   string `json:"subgroup"`
	CodeSuffix string `json:"code_suffix"`
}

// =============================================================================
// OPTIONS FACTORY
// =============================================================================

type OptionsFactory struct{}

func NewOptionsFactory() *OptionsFactory {
	return &OptionsFactory{}
}

// ParseOptions parses a JSON string into report.Options.
func (f *OptionsFactory) ParseOptions(jsonStr string) (report.Options, error) {
	var oj OptionsJSON
	if err := json.Unmarshal([]byte(jsonStr), &oj); err != nil {
		return report.Options{}, fmt.Errorf("failed to parse options JSON: %w", err)
	}
	return f.FromJSON(oj)
}

// LoadFile reads the settings file at path. An empty path yields the defaults.
func (f *OptionsFactory) LoadFile(path string) (report.Options, error) {
	if path == "" {
		return report.DefaultOptions(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return report.Options{}, fmt.Errorf("read options file: %w", err)
	}
	return f.ParseOptions(string(data))
}

// FromJSON converts OptionsJSON to report.Options on top of the defaults.
func (f *OptionsFactory) FromJSON(oj OptionsJSON) (report.Options, error) {
	opts := report.DefaultOptions()

	if oj.JoinedGroups != nil {
		opts.JoinedGroups = make([]report.JoinedGroup, 0, len(oj.JoinedGroups))
		for _, g := range oj.JoinedGroups {
			opts.JoinedGroups = append(opts.JoinedGroups, report.JoinedGroup{
				Consolidated: generic.SupplierID(g.Consolidated),
				Members:      supplierIDs(g.Members),
			})
		}
	}
	if oj.RotationOnly != nil {
		opts.RotationOnly = supplierIDs(oj.RotationOnly)
	}

	fallback, err := parseFallback(oj.Fallback, oj.FallbackSeed)
	if err != nil {
		return report.Options{}, err
	}
	opts.Fallback = fallback

	selection, err := parseSelection(oj.Selection)
	if err != nil {
		return report.Options{}, err
	}
	opts.Selection = selection

	if oj.Bonus != nil {
		opts.Bonus = &discount.BonusRule{Subgroup: oj.Bonus.Subgroup, CodeSuffix: oj.Bonus.CodeSuffix}
	}

	return opts, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseFallback(name string, seed int64) (discount.FallbackPolicy, error) {
	switch name {
	case "", discount.FallbackFirst:
		return discount.FirstMatchFallback{}, nil
	case discount.FallbackRandom:
		return discount.NewRandomFallback(seed), nil
	case discount.FallbackNone:
		return discount.NoFallback{}, nil
	default:
		return nil, fmt.Errorf("unknown fallback policy %q", name)
	}
}

func parseSelection(name string) (discount.SelectionPolicy, error) {
	switch name {
	case "", discount.SelectionOvershootOne:
		return discount.OvershootOne{}, nil
	case discount.SelectionStrict:
		return discount.StrictThreshold{}, nil
	default:
		return nil, fmt.Errorf("unknown selection policy %q", name)
	}
}

func supplierIDs(ids []string) []generic.SupplierID {
	out := make([]generic.SupplierID, len(ids))
	for i, id := range ids {
		out[i] = generic.SupplierID(id)
	}
	return out
}
