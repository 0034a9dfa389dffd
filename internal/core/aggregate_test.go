package core

import (
	"reflect"
	"testing"
)

func euros(e int64) Money { return Money{Cents: e * 100} }

func scenario() ([]Entry, []Supplier) {
	entries := []Entry{
		{ID: "e1", Date: "2024-03-01", SupplierID: "S1", Amount: euros(100), PaymentMethod: Cash},
		{ID: "e2", Date: "2024-03-15", SupplierID: "S1", Amount: euros(50), PaymentMethod: Transfer},
		{ID: "e3", Date: "2024-04-01", SupplierID: "S2", Amount: euros(25), PaymentMethod: Cash},
	}
	suppliers := []Supplier{
		{ID: "S1", Name: "Acme", DefaultPaymentMethod: Cash},
		{ID: "S2", Name: "Beta", DefaultPaymentMethod: Transfer},
	}
	return entries, suppliers
}

func TestAggregateScenario(t *testing.T) {
	entries, suppliers := scenario()
	agg := Aggregate(entries, suppliers, Filter{Year: 2024})

	if agg.Totals.Cash != euros(125) || agg.Totals.Transfer != euros(50) || agg.Totals.Total != euros(175) {
		t.Fatalf("unexpected totals %+v", agg.Totals)
	}
	if agg.Totals.Count != 3 {
		t.Fatalf("expected 3 entries, got %d", agg.Totals.Count)
	}

	cases := []struct {
		id                    string
		cash, transfer, total int64
	}{
		{"S1", 100, 50, 150},
		{"S2", 25, 0, 25},
	}
	for _, tc := range cases {
		s, ok := agg.Supplier(tc.id)
		if !ok {
			t.Fatalf("missing supplier %s", tc.id)
		}
		if s.Totals.Cash != euros(tc.cash) || s.Totals.Transfer != euros(tc.transfer) || s.Totals.Total != euros(tc.total) {
			t.Fatalf("supplier %s: unexpected totals %+v", tc.id, s.Totals)
		}
	}
	if agg.PerSupplier[0].Name != "Acme" || agg.PerSupplier[1].Name != "Beta" {
		t.Fatalf("suppliers not ordered by name: %+v", agg.PerSupplier)
	}

	if len(agg.PerMonth) != 2 {
		t.Fatalf("expected 2 months, got %d", len(agg.PerMonth))
	}
	march, ok := agg.Month(2024, 3)
	if !ok || march.Totals.Total != euros(150) || march.Name != "Marzo" {
		t.Fatalf("unexpected march %+v", march)
	}
	april, ok := agg.Month(2024, 4)
	if !ok || april.Totals.Total != euros(25) {
		t.Fatalf("unexpected april %+v", april)
	}
	if agg.PerMonth[0].Month != 3 || agg.PerMonth[1].Month != 4 {
		t.Fatalf("months not chronological")
	}
	if len(agg.Warnings) != 0 || agg.Skipped != 0 {
		t.Fatalf("unexpected warnings %+v", agg.Warnings)
	}
}

func TestAggregateUnknownSupplier(t *testing.T) {
	entries, suppliers := scenario()
	entries = append(entries, Entry{ID: "e9", Date: "2024-04-10", SupplierID: "S9", Amount: euros(10), PaymentMethod: Cash})

	agg := Aggregate(entries, suppliers, Filter{})
	if agg.Totals.Total != euros(185) {
		t.Fatalf("unknown supplier amount must count in the grand total, got %s", agg.Totals.Total)
	}
	if _, ok := agg.Supplier("S9"); ok {
		t.Fatalf("unknown supplier must not appear in perSupplier")
	}
	if len(agg.Warnings) != 1 || agg.Warnings[0].EntryID != "e9" || agg.Warnings[0].Kind != WarnUnknownSupplier {
		t.Fatalf("expected one unknown_supplier warning for e9, got %+v", agg.Warnings)
	}
	if agg.Skipped != 0 {
		t.Fatalf("unknown supplier entries are not skipped")
	}
	april, _ := agg.Month(2024, 4)
	if april.Totals.Total != euros(35) || len(april.PerSupplier) != 1 {
		t.Fatalf("unexpected april group %+v", april)
	}

	// grand = sum(perSupplier) + unknown amounts
	var sum int64
	for _, s := range agg.PerSupplier {
		sum += s.Totals.Total.Cents
	}
	if sum+1000 != agg.Totals.Total.Cents {
		t.Fatalf("per-supplier sum %d + unknown 1000 != %d", sum, agg.Totals.Total.Cents)
	}
}

func TestAggregateSkipsMalformed(t *testing.T) {
	entries, suppliers := scenario()
	entries = append(entries,
		Entry{ID: "bad-date", Date: "2024-13-40", SupplierID: "S1", Amount: euros(1), PaymentMethod: Cash},
		Entry{ID: "bad-amount", Date: "2024-03-02", SupplierID: "S1", Amount: Money{Cents: -5}, PaymentMethod: Cash},
		Entry{ID: "bad-method", Date: "2024-03-02", SupplierID: "S1", Amount: euros(1), PaymentMethod: "assegno"},
	)
	agg := Aggregate(entries, suppliers, Filter{})

	if agg.Skipped != 3 {
		t.Fatalf("expected 3 skipped, got %d", agg.Skipped)
	}
	kinds := map[string]WarningKind{}
	for _, w := range agg.Warnings {
		kinds[w.EntryID] = w.Kind
	}
	want := map[string]WarningKind{
		"bad-date":   WarnInvalidDate,
		"bad-amount": WarnInvalidAmount,
		"bad-method": WarnInvalidPaymentMethod,
	}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("unexpected warnings %v", kinds)
	}

	var grouped int
	for _, m := range agg.PerMonth {
		grouped += len(m.Entries)
	}
	if grouped+agg.Skipped != len(entries) {
		t.Fatalf("grouped %d + skipped %d != %d", grouped, agg.Skipped, len(entries))
	}
	if agg.Totals.Total != agg.Totals.Cash.Add(agg.Totals.Transfer) {
		t.Fatalf("total must equal cash + transfer")
	}
}

func TestAggregateFilters(t *testing.T) {
	entries, suppliers := scenario()
	entries = append(entries,
		Entry{ID: "e4", Date: "2023-12-31", SupplierID: "S2", Amount: euros(7), PaymentMethod: Transfer, Description: "Consegna urgente"},
	)

	cases := []struct {
		name  string
		f     Filter
		count int
		total int64
	}{
		{"all", Filter{}, 4, 182},
		{"year", Filter{Year: 2023}, 1, 7},
		{"month", Filter{Year: 2024, Month: 3}, 2, 150},
		{"empty month", Filter{Year: 2024, Month: 5}, 0, 0},
		{"query supplier", Filter{Query: "acm"}, 2, 150},
		{"query description", Filter{Query: "URGENTE"}, 1, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			agg := Aggregate(entries, suppliers, tc.f)
			if agg.Totals.Count != tc.count || agg.Totals.Total != euros(tc.total) {
				t.Fatalf("got count=%d total=%s", agg.Totals.Count, agg.Totals.Total)
			}
		})
	}
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil, nil, Filter{})
	if !agg.IsEmpty() || agg.Totals != (Totals{}) {
		t.Fatalf("expected zero totals, got %+v", agg.Totals)
	}
	if len(agg.PerSupplier) != 0 || len(agg.PerMonth) != 0 || len(agg.Warnings) != 0 {
		t.Fatalf("expected empty groupings")
	}
}

func TestAggregateIdempotentAndPure(t *testing.T) {
	entries := []Entry{
		{ID: "b", Date: "2024-05-02", SupplierID: "S1", Amount: euros(2), PaymentMethod: Cash},
		{ID: "a", Date: "2024-05-01", SupplierID: "S1", Amount: euros(1), PaymentMethod: Cash},
		{ID: "c", Date: "2024-05-01", SupplierID: "S2", Amount: euros(3), PaymentMethod: Transfer},
	}
	_, suppliers := scenario()
	before := append([]Entry(nil), entries...)

	first := Aggregate(entries, suppliers, Filter{})
	second := Aggregate(entries, suppliers, Filter{})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregation is not deterministic")
	}
	if !reflect.DeepEqual(entries, before) {
		t.Fatalf("input slice was modified")
	}

	got := first.PerMonth[0].Entries
	if got[0].ID != "a" || got[1].ID != "c" || got[2].ID != "b" {
		t.Fatalf("entries not sorted by date with stable ties: %v %v %v", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestAggregateSupplierNameOrdering(t *testing.T) {
	suppliers := []Supplier{
		{ID: "1", Name: "zeta"},
		{ID: "2", Name: "Alfa"},
		{ID: "3", Name: "beta"},
	}
	var entries []Entry
	for _, s := range suppliers {
		entries = append(entries, Entry{ID: s.ID, Date: "2024-01-01", SupplierID: s.ID, Amount: euros(1), PaymentMethod: Cash})
	}
	agg := Aggregate(entries, suppliers, Filter{})
	var names []string
	for _, s := range agg.PerSupplier {
		names = append(names, s.Name)
	}
	if !reflect.DeepEqual(names, []string{"Alfa", "beta", "zeta"}) {
		t.Fatalf("unexpected order %v", names)
	}
}
