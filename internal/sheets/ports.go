// Package sheets defines the spreadsheet replica the worker keeps in step
// with the entries table.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"fornitori/internal/core"
)

// Header is the first row of the replica sheet.
var Header = []string{"ID", "Data", "Fornitore", "Importo", "Metodo", "Descrizione"}

// Row is one entry as it appears in the replica, keyed by entry ID.
type Row struct {
	ID          string
	Date        string // dd-mm-yyyy
	Supplier    string
	Amount      core.Money
	Method      string
	Description string
}

// Replica is an outbound copy of the entries table.
type Replica interface {
	// Upsert writes row in place when its ID is present, appends otherwise.
	Upsert(ctx context.Context, row Row) error
	// Delete removes the row with the given ID; missing IDs are not an error.
	Delete(ctx context.Context, id string) error
	// Rows reads the replica back, in sheet order.
	Rows(ctx context.Context) ([]Row, error)
}

// RowFromEntry renders e for the replica. An empty supplierName is shown as
// the unknown-supplier placeholder.
func RowFromEntry(e core.Entry, supplierName string) Row {
	date := e.Date
	if d, err := e.ParseDate(); err == nil {
		date = d.Italian()
	}
	if strings.TrimSpace(supplierName) == "" {
		supplierName = core.UnknownSupplierName
	}
	return Row{
		ID:          e.ID,
		Date:        date,
		Supplier:    supplierName,
		Amount:      e.Amount,
		Method:      e.PaymentMethod.Label(),
		Description: e.Description,
	}
}

// Values returns the cells in Header order. Amounts are written as numbers.
func (r Row) Values() []any {
	return []any{r.ID, r.Date, r.Supplier, r.Amount.Euros(), r.Method, r.Description}
}

// Equal reports whether r and o render the same cells.
func (r Row) Equal(o Row) bool {
	same := func(a, b string) bool { return strings.TrimSpace(a) == strings.TrimSpace(b) }
	return r.ID == o.ID && r.Amount == o.Amount &&
		same(r.Date, o.Date) && same(r.Supplier, o.Supplier) &&
		same(r.Method, o.Method) && same(r.Description, o.Description)
}

// ParseRow reads the cells of one replica row.
func ParseRow(cells []string) (Row, error) {
	get := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}
	r := Row{
		ID:          get(0),
		Date:        get(1),
		Supplier:    get(2),
		Method:      get(4),
		Description: get(5),
	}
	if r.ID == "" {
		return Row{}, fmt.Errorf("row without ID")
	}
	if amt := get(3); amt != "" {
		cents, err := core.ParseDecimalToCents(amt)
		if err != nil {
			return Row{}, fmt.Errorf("row %s: %w", r.ID, err)
		}
		r.Amount = core.Money{Cents: cents}
	}
	return r, nil
}
