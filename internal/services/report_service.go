package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"fornitori/internal/core"
	applog "fornitori/internal/log"
	"fornitori/internal/report"
	"fornitori/internal/store"
)

// ReportService feeds the aggregation engine and the exporter from the store.
type ReportService struct {
	store  *store.Tiered
	logger *applog.Logger
}

func NewReportService(s *store.Tiered, logger *applog.Logger) *ReportService {
	return &ReportService{store: s, logger: logger.WithComponent(applog.ComponentReport)}
}

// Aggregate computes totals and groupings for f.
func (s *ReportService) Aggregate(ctx context.Context, f core.Filter) (core.Aggregation, store.ReadMeta, error) {
	entries, suppliers, meta, err := s.fetch(ctx, f.Year)
	if err != nil {
		return core.Aggregation{}, meta, err
	}
	agg := core.Aggregate(entries, suppliers, f)
	s.logWarnings(ctx, agg.Warnings)
	return agg, meta, nil
}

// Export renders the workbook described by spec. report.ErrNoData is
// returned when the period holds no entries.
func (s *ReportService) Export(ctx context.Context, spec report.Spec) (*report.Workbook, store.ReadMeta, error) {
	if err := spec.Validate(); err != nil {
		return nil, store.ReadMeta{}, err
	}
	entries, suppliers, meta, err := s.fetch(ctx, spec.Year)
	if err != nil {
		return nil, meta, err
	}
	wb, err := report.Export(entries, suppliers, spec)
	if err != nil {
		return nil, meta, err
	}
	s.logWarnings(ctx, wb.Warnings)
	s.logger.InfoContext(ctx, "Report exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldReportKind, spec.Kind,
		applog.FieldYear, spec.Year,
		applog.FieldMonth, spec.Month,
		"sheets", len(wb.Sheets))
	return wb, meta, nil
}

// fetch loads entries and suppliers concurrently. The returned meta is
// stale when either read was served from the mirror.
func (s *ReportService) fetch(ctx context.Context, year int) ([]core.Entry, []core.Supplier, store.ReadMeta, error) {
	var (
		entries               []core.Entry
		suppliers             []core.Supplier
		entryMeta, supplyMeta store.ReadMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, entryMeta, err = s.store.Entries(gctx, store.EntryFilter{Year: year})
		return err
	})
	g.Go(func() error {
		var err error
		suppliers, supplyMeta, err = s.store.Suppliers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, store.ReadMeta{}, err
	}
	return entries, suppliers, mergeMeta(entryMeta, supplyMeta), nil
}

func mergeMeta(a, b store.ReadMeta) store.ReadMeta {
	if b.Source == store.SourceMirror && a.Source != store.SourceMirror {
		return b
	}
	return a
}

func (s *ReportService) logWarnings(ctx context.Context, warnings []core.Warning) {
	for _, w := range warnings {
		s.logger.WarnContext(ctx, "Skipped or unresolved entry",
			applog.FieldEntryID, w.EntryID, "kind", w.Kind, "detail", w.Message)
	}
}
