/*
main.go - Batch reconciliation entry point

PURPOSE:
  Runs the monthly reconciliation from the command line: load the supplier
  workbook and the sales CSV, run the base pass, then the allowance pass,
  and write the per-supplier workbooks plus Resumen.xlsx.

COMMAND-LINE FLAGS (override env, see config.Load):
  -suppliers        Supplier workbook (.xlsx)
  -lines            Sales CSV (";"-delimited)
  -out              Report directory
  -db               SQLite database ("" keeps the summary in memory)
  -config           Optional JSON settings
  -only             Comma-separated supplier ids (default: all eligible)
  -allowance        "<supplier>=<amount>", repeatable ("50%" or "300")
  -period           Report month YYYY-MM (default: first sales line)
  -include-reports  Also write <id>_prev.xlsx for the base pass
  -base-only        Stop after the base pass

EXIT CODE:
  1 when loading fails or any supplier failed.

EXAMPLES:
  ./reconcile -suppliers=proveedores.xlsx -lines=260.csv -allowance "248-TECNOQUIMICAS=50%"
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/warp/discount-reconciler/config"
	"github.com/warp/discount-reconciler/export"
	"github.com/warp/discount-reconciler/factory"
	"github.com/warp/discount-reconciler/generic"
	"github.com/warp/discount-reconciler/ingest"
	"github.com/warp/discount-reconciler/logging"
	"github.com/warp/discount-reconciler/report"
	"github.com/warp/discount-reconciler/store/sqlite"
)

func main() {
	cfg := config.Load()

	var allowances allowanceFlag
	flag.StringVar(&cfg.SuppliersPath, "suppliers", cfg.SuppliersPath, "supplier workbook (.xlsx)")
	flag.StringVar(&cfg.LinesPath, "lines", cfg.LinesPath, "sales lines (.csv)")
	flag.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "report output directory")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, `SQLite database path ("" for in-memory summary)`)
	flag.StringVar(&cfg.DomainConfig, "config", cfg.DomainConfig, "JSON settings file")
	only := flag.String("only", "", "comma-separated supplier ids (default: all eligible)")
	period := flag.String("period", "", "report month YYYY-MM (default: first sales line)")
	includeReports := flag.Bool("include-reports", false, "write <id>_prev.xlsx for the base pass")
	baseOnly := flag.Bool("base-only", false, "stop after the base pass")
	flag.Var(&allowances, "allowance", `"<supplier>=<amount>", repeatable`)
	flag.Parse()

	logging.ConfigureLogger(cfg.LogLevel, os.Stderr)
	logger := logging.GetLogger()

	inMemory := cfg.DBPath == ""
	if inMemory {
		// Validate requires a value; the memory store ignores it.
		cfg.DBPath = ":memory:"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	for _, err := range allowances.errs {
		logging.LogError(logger, "main", "main", "parse allowance", nil, err)
	}

	year, month, err := parsePeriod(*period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ds, err := ingest.LoadPeriod(cfg.SuppliersPath, cfg.LinesPath, year, month, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load dataset: %v\n", err)
		os.Exit(1)
	}

	opts, err := factory.NewOptionsFactory().LoadFile(cfg.DomainConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		os.Exit(1)
	}
	if !inMemory {
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		opts.Summary, opts.Runs = store, store
	}
	opts.Sink = export.NewXLSXWriter(cfg.OutputDir, logger)
	opts.Logger = logger

	rec, err := report.New(ds, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build reconciler: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	suppliers := parseSupplierList(*only)
	result, err := rec.Run(ctx, report.RunRequest{
		Suppliers:      suppliers,
		Mode:           generic.RunBase,
		IncludeReports: *includeReports,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "base pass failed: %v\n", err)
		os.Exit(1)
	}
	failures := passFailures{{name: "base", errs: result.Failures}}

	if !*baseOnly {
		result, err = rec.IncludeAllowance(ctx, suppliers, allowances.values)
		if err != nil {
			fmt.Fprintf(os.Stderr, "allowance pass failed: %v\n", err)
			os.Exit(1)
		}
		failures = append(failures, passFailure{name: "allowance", errs: result.Failures})
	}

	printSummary(result.Summary, ds.Eligibility())

	if failures.count() > 0 {
		failures.print(os.Stderr)
		os.Exit(1)
	}
}

func printSummary(rows []generic.SummaryRow, eligible map[generic.SupplierID]bool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Proveedor\tSistema\tFeria\tDif. feria\tReal\tDif. real\tDif. %\t")
	for _, r := range rows {
		if !eligible[r.Supplier] {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Supplier,
			export.FormatCurrency(r.Reported),
			export.FormatCurrency(r.Feria),
			export.FormatCurrency(r.FeriaDiff),
			export.FormatCurrency(r.Real),
			export.FormatCurrency(r.RealDiff),
			export.FormatPercent(r.RealDiffPct),
		)
	}
	w.Flush()
}

// passFailure keeps the supplier failures of one pass.
type passFailure struct {
	name string
	errs []error
}

type passFailures []passFailure

func (p passFailures) count() int {
	n := 0
	for _, f := range p {
		n += len(f.errs)
	}
	return n
}

func (p passFailures) print(w io.Writer) {
	for _, f := range p {
		for _, err := range f.errs {
			fmt.Fprintf(w, "%s pass: %v\n", f.name, err)
		}
	}
}
