package report

import (
	"bytes"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"fornitori/internal/core"
)

func testData() ([]core.Entry, []core.Supplier) {
	entries := []core.Entry{
		{ID: "e1", Date: "2024-03-01", SupplierID: "S1", Amount: core.Money{Cents: 10000}, PaymentMethod: core.Cash, Description: "Farina"},
		{ID: "e2", Date: "2024-03-15", SupplierID: "S1", Amount: core.Money{Cents: 5050}, PaymentMethod: core.Transfer},
		{ID: "e3", Date: "2024-04-01", SupplierID: "S2", Amount: core.Money{Cents: 2500}, PaymentMethod: core.Cash, Description: "Uova"},
		{ID: "e4", Date: "2023-11-20", SupplierID: "S2", Amount: core.Money{Cents: 999}, PaymentMethod: core.Transfer},
	}
	suppliers := []core.Supplier{
		{ID: "S1", Name: "Acme", DefaultPaymentMethod: core.Cash},
		{ID: "S2", Name: "Beta", DefaultPaymentMethod: core.Transfer},
	}
	return entries, suppliers
}

func reopen(t *testing.T, wb *Workbook) *excelize.File {
	t.Helper()
	b, err := wb.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(b), excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestExportDetailRoundTrip(t *testing.T) {
	entries, suppliers := testData()
	wb, err := Export(entries, suppliers, Spec{Kind: KindDetail, Year: 2024})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer wb.Close()

	if wb.Filename != "Dettaglio_Spese_2024.xlsx" {
		t.Fatalf("unexpected filename %q", wb.Filename)
	}
	if !reflect.DeepEqual(wb.Sheets, []string{SheetDetail}) {
		t.Fatalf("unexpected sheets %v", wb.Sheets)
	}

	var buf bytes.Buffer
	if _, err := wb.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	rows, err := ReadDetail(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	names := map[string]string{"S1": "Acme", "S2": "Beta"}
	var want []DetailRow
	for _, e := range entries {
		if !strings.HasPrefix(e.Date, "2024") {
			continue
		}
		want = append(want, DetailRow{
			Date: e.Date, Supplier: names[e.SupplierID], Amount: e.Amount,
			PaymentMethod: e.PaymentMethod, Description: e.Description,
		})
	}
	byDate := func(r []DetailRow) {
		sort.Slice(r, func(i, j int) bool { return r[i].Date < r[j].Date })
	}
	byDate(rows)
	byDate(want)
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("round trip mismatch\n got %+v\nwant %+v", rows, want)
	}
}

func TestExportDetailUnknownSupplierAndWarnings(t *testing.T) {
	entries, suppliers := testData()
	entries = append(entries,
		core.Entry{ID: "x", Date: "2024-05-01", SupplierID: "S9", Amount: core.Money{Cents: 1000}, PaymentMethod: core.Cash},
		core.Entry{ID: "bad", Date: "non una data", SupplierID: "S1", Amount: core.Money{Cents: 1}, PaymentMethod: core.Cash},
	)
	wb, err := Export(entries, suppliers, Spec{Kind: KindDetail})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer wb.Close()

	if wb.Filename != "Dettaglio_Spese_Completo.xlsx" {
		t.Fatalf("unexpected filename %q", wb.Filename)
	}
	if len(wb.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %+v", wb.Warnings)
	}

	f := reopen(t, wb)
	rows, err := f.GetRows(SheetDetail)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	// header + 5 valid entries
	if len(rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(rows))
	}
	if rows[0][0] != "Data" || rows[0][3] != "Metodo Pagamento" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "20-11-2023" {
		t.Fatalf("rows not ordered by date: %v", rows[1])
	}
	last := rows[len(rows)-1]
	if last[1] != core.UnknownSupplierName {
		t.Fatalf("expected unknown supplier label, got %v", last)
	}
}

func TestExportSummaryAnnual(t *testing.T) {
	entries, suppliers := testData()
	wb, err := Export(entries, suppliers, Spec{Kind: KindSummary, Period: PeriodAnnual, Year: 2024})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer wb.Close()

	if wb.Filename != "Riepilogo_Annuale_2024.xlsx" || !reflect.DeepEqual(wb.Sheets, []string{SheetSummary}) {
		t.Fatalf("unexpected workbook %q %v", wb.Filename, wb.Sheets)
	}
	if wb.Totals.Cash.Cents != 12500 || wb.Totals.Transfer.Cents != 5050 || wb.Totals.Total.Cents != 17550 {
		t.Fatalf("unexpected totals %+v", wb.Totals)
	}
	f := reopen(t, wb)
	cases := map[string]string{
		"A2": "Totale Contanti", "B2": "125",
		"B3": "50.5", "B4": "175.5",
		"A7": "Acme", "B10": "150.5",
		"A12": "Beta", "B15": "25",
	}
	for cell, want := range cases {
		got, err := f.GetCellValue(SheetSummary, cell)
		if err != nil {
			t.Fatalf("%s: %v", cell, err)
		}
		if got != want {
			t.Fatalf("%s = %q, want %q", cell, got, want)
		}
	}
}

func TestExportSummaryMonthly(t *testing.T) {
	entries, suppliers := testData()
	wb, err := Export(entries, suppliers, Spec{Kind: KindSummary, Period: PeriodMonthly, Year: 2024})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer wb.Close()

	want := []string{"Marzo 2024", "Aprile 2024", SheetAnnual}
	if !reflect.DeepEqual(wb.Sheets, want) {
		t.Fatalf("sheets = %v, want %v", wb.Sheets, want)
	}
	f := reopen(t, wb)
	if got := f.GetSheetList(); !reflect.DeepEqual(got, want) {
		t.Fatalf("file sheets = %v", got)
	}
	total, _ := f.GetCellValue("Marzo 2024", "B4")
	if total != "150.5" {
		t.Fatalf("march total = %q", total)
	}
}

func TestExportMonthlySingleMonthHasTwoSheets(t *testing.T) {
	entries, suppliers := testData()
	wb, err := Export(entries, suppliers, Spec{Kind: KindSummary, Period: PeriodMonthly, Year: 2023})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer wb.Close()
	if len(wb.Sheets) != 2 || wb.Sheets[0] != "Novembre 2023" {
		t.Fatalf("unexpected sheets %v", wb.Sheets)
	}
}

func TestExportNoData(t *testing.T) {
	entries, suppliers := testData()
	cases := []Spec{
		{Kind: KindSummary, Period: PeriodMonthly, Year: 2024, Month: 6},
		{Kind: KindDetail, Year: 2019},
	}
	for _, spec := range cases {
		wb, err := Export(entries, suppliers, spec)
		if !errors.Is(err, ErrNoData) || wb != nil {
			t.Fatalf("%+v: expected ErrNoData, got %v", spec, err)
		}
	}
	if _, err := Export(nil, nil, Spec{Kind: KindDetail}); !errors.Is(err, ErrNoData) {
		t.Fatalf("empty input: expected ErrNoData, got %v", err)
	}
}

func TestExportSingleMonthFilename(t *testing.T) {
	entries, suppliers := testData()
	wb, err := Export(entries, suppliers, Spec{Kind: KindSummary, Period: PeriodMonthly, Year: 2024, Month: 3})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer wb.Close()
	if wb.Filename != "Riepilogo_Mensile_2024_03.xlsx" {
		t.Fatalf("unexpected filename %q", wb.Filename)
	}
	if !reflect.DeepEqual(wb.Sheets, []string{"Marzo 2024", SheetAnnual}) {
		t.Fatalf("unexpected sheets %v", wb.Sheets)
	}
}

func TestUniqueSheetName(t *testing.T) {
	cases := []struct {
		name     string
		existing []string
		want     string
	}{
		{"Marzo 2024", nil, "Marzo 2024"},
		{"Marzo 2024", []string{"marzo 2024"}, "Marzo 2024 (2)"},
		{"Marzo 2024", []string{"Marzo 2024", "Marzo 2024 (2)"}, "Marzo 2024 (3)"},
		{"a/b:c", nil, "a-b-c"},
		{strings.Repeat("x", 40), nil, strings.Repeat("x", 31)},
		{strings.Repeat("x", 40), []string{strings.Repeat("x", 31)}, strings.Repeat("x", 27) + " (2)"},
		{"", nil, "Foglio"},
	}
	for _, tc := range cases {
		if got := uniqueSheetName(tc.name, tc.existing); got != tc.want {
			t.Fatalf("uniqueSheetName(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestWriterSheetReturnsExcelizeErrors(t *testing.T) {
	w, err := newWriter()
	if err != nil {
		t.Fatalf("newWriter: %v", err)
	}
	t.Cleanup(func() { _ = w.f.Close() })

	// a leading or trailing apostrophe is not a valid sheet name
	if _, err := w.sheet("'Riepilogo'"); err == nil {
		t.Fatal("expected error renaming the default sheet")
	}
	if name, err := w.sheet(SheetDetail); err != nil || name != SheetDetail {
		t.Fatalf("sheet(%q) = %q, %v", SheetDetail, name, err)
	}
	if _, err := w.sheet("'Annuale'"); err == nil {
		t.Fatal("expected error adding a sheet")
	}
	if !reflect.DeepEqual(w.sheets, []string{SheetDetail}) {
		t.Fatalf("sheets = %v", w.sheets)
	}
}
