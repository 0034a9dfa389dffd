// Command fornitori-export writes a detail or summary workbook to disk using
// the same backend and mirror as the server, so it works offline too.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fornitori/internal/backend"
	"fornitori/internal/cli"
	"fornitori/internal/core"
	applog "fornitori/internal/log"
	"fornitori/internal/mirror"
	"fornitori/internal/report"
	"fornitori/internal/services"
	"fornitori/internal/store"
)

func main() {
	var (
		kind   = flag.String("kind", "detail", "report kind: detail|summary (dettaglio|riepilogo)")
		period = flag.String("period", "annual", "summary period: annual|monthly (annuale|mensile)")
		year   = flag.String("year", "", "restrict to this year")
		month  = flag.String("month", "", "restrict to this month (1-12, needs -year)")
		outDir = flag.String("out", ".", "output directory")
		check  = flag.Bool("check", false, "re-read detail workbooks and report the row count")
	)
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	spec, err := report.ParseSpec(*kind, *period, *year, *month)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	if err := run(logger, spec, *outDir, *check); err != nil {
		if errors.Is(err, report.ErrNoData) {
			fmt.Fprintln(os.Stderr, "Nessun dato per il periodo richiesto")
			os.Exit(3)
		}
		logger.Error("Export failed", applog.FieldOperation, applog.OpExport, "error", err)
		os.Exit(1)
	}
}

func run(logger *applog.Logger, spec report.Spec, outDir string, check bool) error {
	cfg := cli.LoadAndValidateConfig(logger)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}
	m, err := mirror.New(cfg.MirrorDir)
	if err != nil {
		return fmt.Errorf("open mirror: %w", err)
	}
	reports := services.NewReportService(store.NewTiered(res.Store, m, cfg.RemoteTimeout, logger), logger)

	wb, meta, err := reports.Export(ctx, spec)
	if err != nil {
		return err
	}
	defer wb.Close()
	if meta.Stale {
		logger.Warn("Store unreachable, exported from local mirror", "saved_at", meta.SavedAt)
	}

	body, err := wb.Bytes()
	if err != nil {
		return err
	}
	path := filepath.Join(outDir, wb.Filename)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	for _, w := range wb.Warnings {
		fmt.Fprintf(os.Stderr, "avviso: voce %s: %s\n", w.EntryID, w.Message)
	}
	fmt.Println(path)
	fmt.Println(totalsLine(wb.Totals))

	if check && spec.Kind == report.KindDetail {
		rows, err := report.ReadDetail(bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("verify workbook: %w", err)
		}
		fmt.Printf("%d righe\n", len(rows))
	}
	return nil
}

func totalsLine(t core.Totals) string {
	return fmt.Sprintf("Totale %s (contanti %s, bonifici %s)",
		core.FormatEuros(t.Total.Cents), core.FormatEuros(t.Cash.Cents), core.FormatEuros(t.Transfer.Cents))
}
