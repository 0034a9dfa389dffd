package sheets

import (
	"testing"

	"fornitori/internal/core"
)

func TestRowFromEntry(t *testing.T) {
	e := core.Entry{
		ID:            "e1",
		Date:          "2024-03-05",
		SupplierID:    "S1",
		Amount:        core.Money{Cents: 123456},
		Description:   "farina",
		PaymentMethod: core.Transfer,
	}

	row := RowFromEntry(e, "Acme")
	if row.Date != "05-03-2024" || row.Supplier != "Acme" || row.Method != "Bonifico" {
		t.Fatalf("unexpected row %+v", row)
	}
	vals := row.Values()
	if len(vals) != len(Header) {
		t.Fatalf("Values() has %d cells, header has %d", len(vals), len(Header))
	}
	if vals[3] != 1234.56 {
		t.Fatalf("amount cell = %v, want 1234.56", vals[3])
	}

	if got := RowFromEntry(e, "").Supplier; got != core.UnknownSupplierName {
		t.Fatalf("unknown supplier rendered as %q", got)
	}
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		name    string
		cells   []string
		want    int64
		wantErr bool
	}{
		{name: "full row", cells: []string{"e1", "05-03-2024", "Acme", "1234.56", "Bonifico", "x"}, want: 123456},
		{name: "comma decimal", cells: []string{"e1", "", "", "12,5"}, want: 1250},
		{name: "short row", cells: []string{"e1"}, want: 0},
		{name: "missing id", cells: []string{"", "05-03-2024"}, wantErr: true},
		{name: "bad amount", cells: []string{"e1", "", "", "abc"}, wantErr: true},
		{name: "non ascii digit", cells: []string{"e1", "", "", "1.٣"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := ParseRow(tt.cells)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && row.Amount.Cents != tt.want {
				t.Fatalf("Amount = %d, want %d", row.Amount.Cents, tt.want)
			}
		})
	}
}

func TestRowEqual(t *testing.T) {
	e := core.Entry{ID: "e1", Date: "2024-03-05", Amount: core.Money{Cents: 500}, PaymentMethod: core.Cash, Description: "pane"}
	want := RowFromEntry(e, "Acme")

	read, err := ParseRow([]string{"e1", "05-03-2024", "Acme", "5", "Contanti", " pane "})
	if err != nil {
		t.Fatalf("ParseRow: %v", err)
	}
	if !read.Equal(want) {
		t.Fatalf("%+v should equal %+v", read, want)
	}
	if RowFromEntry(e, "Acme Srl").Equal(want) {
		t.Fatalf("renamed supplier should not compare equal")
	}
}
