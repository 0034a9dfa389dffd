package core

import (
	"fmt"
	"sort"
	"strings"
)

// WarningKind classifies a record-level problem found while aggregating.
type WarningKind string

const (
	WarnInvalidDate          WarningKind = "invalid_date"
	WarnInvalidAmount        WarningKind = "invalid_amount"
	WarnInvalidPaymentMethod WarningKind = "invalid_payment_method"
	WarnUnknownSupplier      WarningKind = "unknown_supplier"
)

// UnknownSupplierName labels entries whose supplier no longer exists.
const UnknownSupplierName = "Fornitore non trovato"

// Filter restricts the entries taken into account. Zero values disable the
// corresponding restriction.
type Filter struct {
	Year  int    `json:"year,omitempty"`
	Month int    `json:"month,omitempty"`
	Query string `json:"query,omitempty"`
}

// Totals is the cash/transfer split of a set of entries.
type Totals struct {
	Cash     Money `json:"cash"`
	Transfer Money `json:"transfer"`
	Total    Money `json:"total"`
	Count    int   `json:"count"`
}

// SupplierTotals groups the entries of one known supplier.
type SupplierTotals struct {
	SupplierID string  `json:"supplierId"`
	Name       string  `json:"name"`
	Totals     Totals  `json:"totals"`
	Entries    []Entry `json:"entries"`
}

// MonthGroup groups the entries of one calendar month.
type MonthGroup struct {
	Year        int              `json:"year"`
	Month       int              `json:"month"`
	Name        string           `json:"name"`
	Totals      Totals           `json:"totals"`
	Entries     []Entry          `json:"entries"`
	PerSupplier []SupplierTotals `json:"perSupplier"`
}

type Warning struct {
	EntryID string      `json:"entryId"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// Aggregation is the result of Aggregate.
type Aggregation struct {
	Totals      Totals           `json:"totals"`
	PerSupplier []SupplierTotals `json:"perSupplier"`
	PerMonth    []MonthGroup     `json:"perMonth"`
	Warnings    []Warning        `json:"warnings"`
	Skipped     int              `json:"skipped"`
}

func (t *Totals) add(e Entry) {
	switch e.PaymentMethod {
	case Cash:
		t.Cash = t.Cash.Add(e.Amount)
	case Transfer:
		t.Transfer = t.Transfer.Add(e.Amount)
	}
	t.Total = t.Cash.Add(t.Transfer)
	t.Count++
}

type datedEntry struct {
	Entry
	date Date
}

// Aggregate computes totals, per-supplier and per-month groupings of entries.
//
// Records with an unparseable date, a negative amount or an unknown payment
// method are skipped and reported as warnings. Entries referencing a supplier
// that is not in suppliers are counted in the totals and the month groups but
// are left out of every per-supplier grouping. The inputs are never modified.
func Aggregate(entries []Entry, suppliers []Supplier, f Filter) Aggregation {
	names := make(map[string]string, len(suppliers))
	for _, s := range suppliers {
		names[s.ID] = s.Name
	}
	query := strings.ToLower(strings.TrimSpace(f.Query))

	agg := Aggregation{
		PerSupplier: []SupplierTotals{},
		PerMonth:    []MonthGroup{},
		Warnings:    []Warning{},
	}

	valid := make([]datedEntry, 0, len(entries))
	for _, e := range entries {
		d, err := e.ParseDate()
		if err != nil {
			agg.warn(e.ID, WarnInvalidDate, fmt.Sprintf("data non valida: %q", e.Date))
			continue
		}
		if e.Amount.Cents < 0 {
			agg.warn(e.ID, WarnInvalidAmount, fmt.Sprintf("importo non valido: %s", e.Amount))
			continue
		}
		if !e.PaymentMethod.Valid() {
			agg.warn(e.ID, WarnInvalidPaymentMethod, fmt.Sprintf("metodo di pagamento non valido: %q", e.PaymentMethod))
			continue
		}
		if f.Year != 0 && d.Year() != f.Year {
			continue
		}
		if f.Month != 0 && d.Month() != f.Month {
			continue
		}
		name, known := names[e.SupplierID]
		if query != "" && !strings.Contains(strings.ToLower(name), query) &&
			!strings.Contains(strings.ToLower(e.Description), query) {
			continue
		}
		if !known {
			agg.Warnings = append(agg.Warnings, Warning{
				EntryID: e.ID,
				Kind:    WarnUnknownSupplier,
				Message: fmt.Sprintf("fornitore non trovato: %q", e.SupplierID),
			})
		}
		valid = append(valid, datedEntry{Entry: e, date: d})
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].date.Before(valid[j].date.Time)
	})

	type monthKey struct{ year, month int }
	months := make(map[monthKey]*MonthGroup)
	var monthOrder []monthKey
	monthEntries := make(map[monthKey][]Entry)
	supplierEntries := make(map[string][]Entry)

	for _, de := range valid {
		agg.Totals.add(de.Entry)
		if _, ok := names[de.SupplierID]; ok {
			supplierEntries[de.SupplierID] = append(supplierEntries[de.SupplierID], de.Entry)
		}
		k := monthKey{de.date.Year(), de.date.Month()}
		g, ok := months[k]
		if !ok {
			g = &MonthGroup{Year: k.year, Month: k.month, Name: MonthName(k.month)}
			months[k] = g
			monthOrder = append(monthOrder, k)
		}
		g.Totals.add(de.Entry)
		monthEntries[k] = append(monthEntries[k], de.Entry)
	}

	agg.PerSupplier = groupBySupplier(supplierEntries, names)

	sort.Slice(monthOrder, func(i, j int) bool {
		if monthOrder[i].year != monthOrder[j].year {
			return monthOrder[i].year < monthOrder[j].year
		}
		return monthOrder[i].month < monthOrder[j].month
	})
	for _, k := range monthOrder {
		g := months[k]
		g.Entries = monthEntries[k]
		perSupplier := make(map[string][]Entry)
		for _, e := range g.Entries {
			if _, ok := names[e.SupplierID]; ok {
				perSupplier[e.SupplierID] = append(perSupplier[e.SupplierID], e)
			}
		}
		g.PerSupplier = groupBySupplier(perSupplier, names)
		agg.PerMonth = append(agg.PerMonth, *g)
	}

	return agg
}

func groupBySupplier(bySupplier map[string][]Entry, names map[string]string) []SupplierTotals {
	out := make([]SupplierTotals, 0, len(bySupplier))
	for id, entries := range bySupplier {
		st := SupplierTotals{SupplierID: id, Name: names[id], Entries: entries}
		for _, e := range entries {
			st.Totals.add(e)
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].SupplierID < out[j].SupplierID
	})
	return out
}

func (a *Aggregation) warn(entryID string, kind WarningKind, msg string) {
	a.Warnings = append(a.Warnings, Warning{EntryID: entryID, Kind: kind, Message: msg})
	a.Skipped++
}

// Supplier returns the grouping for supplier id, if any entry references it.
func (a Aggregation) Supplier(id string) (SupplierTotals, bool) {
	for _, s := range a.PerSupplier {
		if s.SupplierID == id {
			return s, true
		}
	}
	return SupplierTotals{}, false
}

// Month returns the group for the given month, if it has entries.
func (a Aggregation) Month(year, month int) (MonthGroup, bool) {
	for _, m := range a.PerMonth {
		if m.Year == year && m.Month == month {
			return m, true
		}
	}
	return MonthGroup{}, false
}

// IsEmpty reports whether no valid entry matched.
func (a Aggregation) IsEmpty() bool {
	return a.Totals.Count == 0
}
