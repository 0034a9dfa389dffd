// Package report renders aggregated expenses into xlsx workbooks.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"fornitori/internal/core"
)

const (
	SheetDetail  = "Dettaglio Spese"
	SheetSummary = "Riepilogo"
	SheetAnnual  = "Totale Annuale"

	// ContentType is the media type of an xlsx workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	maxSheetName = 31
	// built-in number format "#,##0.00"
	numFmtAmount = 4
)

var detailHeader = []interface{}{"Data", "Fornitore", "Importo", "Metodo Pagamento", "Descrizione"}

// ErrNoData is returned when the requested period has no valid entries.
// No workbook is produced in that case.
var ErrNoData = errors.New("no data for the requested period")

// Workbook is a rendered export. Callers must Close it.
type Workbook struct {
	Filename string
	Sheets   []string
	Totals   core.Totals
	Warnings []core.Warning

	file *excelize.File
}

func (w *Workbook) WriteTo(dst io.Writer) (int64, error) {
	return w.file.WriteTo(dst)
}

func (w *Workbook) Bytes() ([]byte, error) {
	buf, err := w.file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

type writer struct {
	f         *excelize.File
	amount    int
	bold      int
	sheets    []string
	firstUsed bool
}

// Export builds the workbook described by spec. Malformed entries are left
// out and reported in Workbook.Warnings.
func Export(entries []core.Entry, suppliers []core.Supplier, spec Spec) (*Workbook, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	agg := core.Aggregate(entries, suppliers, core.Filter{Year: spec.Year, Month: spec.Month})
	if agg.IsEmpty() {
		return nil, ErrNoData
	}

	w, err := newWriter()
	if err != nil {
		return nil, err
	}

	switch {
	case spec.Kind == KindDetail:
		err = w.detail(agg, suppliers)
	case spec.Period == PeriodMonthly:
		err = w.monthly(agg, spec)
	default:
		err = w.annual(agg)
	}
	if err != nil {
		_ = w.f.Close()
		return nil, fmt.Errorf("render %s workbook: %w", spec.Kind, err)
	}
	w.f.SetActiveSheet(0)

	return &Workbook{
		Filename: spec.Filename(),
		Sheets:   w.sheets,
		Totals:   agg.Totals,
		Warnings: agg.Warnings,
		file:     w.f,
	}, nil
}

func newWriter() (*writer, error) {
	f := excelize.NewFile()
	amount, err := f.NewStyle(&excelize.Style{NumFmt: numFmtAmount})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &writer{f: f, amount: amount, bold: bold}, nil
}

// sheet adds a sheet named after name, reusing the default sheet for the first
// call.
func (w *writer) sheet(name string) (string, error) {
	name = uniqueSheetName(name, w.sheets)
	if !w.firstUsed {
		if err := w.f.SetSheetName(w.f.GetSheetName(0), name); err != nil {
			return "", fmt.Errorf("sheet %q: %w", name, err)
		}
		w.firstUsed = true
	} else if _, err := w.f.NewSheet(name); err != nil {
		return "", fmt.Errorf("sheet %q: %w", name, err)
	}
	w.sheets = append(w.sheets, name)
	return name, nil
}

func (w *writer) annual(agg core.Aggregation) error {
	sheet, err := w.sheet(SheetSummary)
	if err != nil {
		return err
	}
	return w.summary(sheet, "Riepilogo Totali Annuali", agg.Totals, agg.PerSupplier)
}

func (w *writer) detail(agg core.Aggregation, suppliers []core.Supplier) error {
	names := make(map[string]string, len(suppliers))
	for _, s := range suppliers {
		names[s.ID] = s.Name
	}
	sheet, err := w.sheet(SheetDetail)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(sheet, "A1", &detailHeader); err != nil {
		return err
	}
	if err := w.f.SetCellStyle(sheet, "A1", "E1", w.bold); err != nil {
		return err
	}

	row := 2
	for _, m := range agg.PerMonth {
		for _, e := range m.Entries {
			d, _ := e.ParseDate()
			name, ok := names[e.SupplierID]
			if !ok {
				name = core.UnknownSupplierName
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []interface{}{d.Italian(), name, e.Amount.Euros(), e.PaymentMethod.Label(), e.Description}
			if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
				return err
			}
			row++
		}
	}
	if row > 2 {
		last, _ := excelize.CoordinatesToCellName(3, row-1)
		if err := w.f.SetCellStyle(sheet, "C2", last, w.amount); err != nil {
			return err
		}
	}
	if err := w.f.SetColWidth(sheet, "A", "D", 18); err != nil {
		return err
	}
	return w.f.SetColWidth(sheet, "E", "E", 40)
}

func (w *writer) monthly(agg core.Aggregation, spec Spec) error {
	for _, m := range agg.PerMonth {
		label := fmt.Sprintf("%s %d", m.Name, m.Year)
		sheet, err := w.sheet(label)
		if err != nil {
			return err
		}
		if err := w.summary(sheet, "Riepilogo "+label, m.Totals, m.PerSupplier); err != nil {
			return err
		}
	}
	sheet, err := w.sheet(SheetAnnual)
	if err != nil {
		return err
	}
	return w.summary(sheet, "Riepilogo Annuale "+spec.periodLabel(), agg.Totals, agg.PerSupplier)
}

// summary writes the overall totals followed by one block per supplier.
func (w *writer) summary(sheet, title string, totals core.Totals, perSupplier []core.SupplierTotals) error {
	rows := [][]interface{}{
		{title},
		{"Totale Contanti", totals.Cash.Euros()},
		{"Totale Bonifici", totals.Transfer.Euros()},
		{"Totale Complessivo", totals.Total.Euros()},
		{},
		{"Riepilogo per Fornitore"},
	}
	bold := []int{1, 6}
	for _, s := range perSupplier {
		rows = append(rows,
			[]interface{}{s.Name},
			[]interface{}{"Contanti", s.Totals.Cash.Euros()},
			[]interface{}{"Bonifici", s.Totals.Transfer.Euros()},
			[]interface{}{"Totale", s.Totals.Total.Euros()},
			[]interface{}{},
		)
		bold = append(bold, len(rows)-4)
	}

	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
	}
	if err := w.f.SetCellStyle(sheet, "B1", fmt.Sprintf("B%d", len(rows)), w.amount); err != nil {
		return err
	}
	for _, r := range bold {
		cell := fmt.Sprintf("A%d", r)
		if err := w.f.SetCellStyle(sheet, cell, cell, w.bold); err != nil {
			return err
		}
	}
	return w.f.SetColWidth(sheet, "A", "B", 28)
}

var sheetNameReplacer = strings.NewReplacer(":", "-", `\`, "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

// uniqueSheetName makes name a valid sheet name that does not collide
// (case-insensitively) with existing.
func uniqueSheetName(name string, existing []string) string {
	name = strings.TrimSpace(sheetNameReplacer.Replace(name))
	if name == "" {
		name = "Foglio"
	}
	base := truncateRunes(name, maxSheetName)
	candidate := base
	for n := 2; containsFold(existing, candidate); n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	return candidate
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
