package ingest

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/discount-reconciler/discount"
)

// Load reads both sources and indexes them for the report month of the
// first sales line.
func Load(workbookPath, linesPath string, logger *logrus.Logger) (*discount.Dataset, error) {
	return LoadPeriod(workbookPath, linesPath, 0, 0, logger)
}

// LoadPeriod is Load with an explicit report month. A zero year or month
// falls back to the first sales line.
func LoadPeriod(workbookPath, linesPath string, year int, month time.Month, logger *logrus.Logger) (*discount.Dataset, error) {
	suppliers, rules, err := LoadWorkbook(workbookPath)
	if err != nil {
		return nil, fmt.Errorf("load suppliers: %w", err)
	}
	lines, err := LoadLines(linesPath)
	if err != nil {
		return nil, fmt.Errorf("load sales lines: %w", err)
	}
	if year == 0 || month == 0 {
		year, month, err = ReportPeriod(lines)
		if err != nil {
			return nil, err
		}
	}

	ds := discount.NewDataset(suppliers, rules, lines, year, month)
	if logger != nil {
		logger.WithFields(logrus.Fields{
			"suppliers": len(suppliers),
			"eligible":  len(ds.EligibleSuppliers()),
			"rules":     len(rules),
			"lines":     len(lines),
			"year":      year,
			"month":     int(month),
		}).Info("dataset loaded")
	}
	return ds, nil
}
