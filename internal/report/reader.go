package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"fornitori/internal/core"
)

var ErrMalformedRow = errors.New("malformed detail row")

// DetailRow is one row of a "Dettaglio Spese" sheet.
type DetailRow struct {
	Date          string // yyyy-mm-dd
	Supplier      string
	Amount        core.Money
	PaymentMethod core.PaymentMethod
	Description   string
}

// ReadDetail parses a detail workbook produced by Export.
func ReadDetail(r io.Reader) ([]DetailRow, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := SheetDetail
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = list[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	out := make([]DetailRow, 0, len(rows))
	for i, row := range rows {
		if i == 0 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "Data") {
			continue
		}
		if isBlank(row) {
			continue
		}
		dr, err := parseDetailRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, dr)
	}
	return out, nil
}

func parseDetailRow(row []string) (DetailRow, error) {
	for len(row) < len(detailHeader) {
		row = append(row, "")
	}
	t, err := time.Parse("02-01-2006", strings.TrimSpace(row[0]))
	if err != nil {
		return DetailRow{}, fmt.Errorf("%w: date %q", ErrMalformedRow, row[0])
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(row[2]))
	if err != nil {
		return DetailRow{}, fmt.Errorf("%w: amount %q", ErrMalformedRow, row[2])
	}
	money, err := core.MoneyFromDecimal(amount)
	if err != nil {
		return DetailRow{}, fmt.Errorf("%w: amount %q", ErrMalformedRow, row[2])
	}
	pm, err := core.ParsePaymentMethod(row[3])
	if err != nil {
		return DetailRow{}, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	return DetailRow{
		Date:          core.Date{Time: t}.String(),
		Supplier:      row[1],
		Amount:        money,
		PaymentMethod: pm,
		Description:   row[4],
	}, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
