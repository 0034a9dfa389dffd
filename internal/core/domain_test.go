package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseISODate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-05", "2024-03-05", true},
		{" 2024-03-05 ", "2024-03-05", true},
		{"2024-03-05T10:00:00Z", "2024-03-05", true},
		{"2024-03-05 10:00:00", "2024-03-05", true},
		{"2024-02-30", "", false},
		{"05-03-2024", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		d, err := ParseISODate(tc.in)
		if !tc.ok {
			if !errors.Is(err, ErrInvalidDate) {
				t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q unexpected error %v", tc.in, err)
		}
		if d.String() != tc.want {
			t.Fatalf("%q parsed as %s, want %s", tc.in, d, tc.want)
		}
	}
	if got := NewDate(2024, 3, 5).Italian(); got != "05-03-2024" {
		t.Fatalf("Italian() = %q", got)
	}
}

func TestParsePaymentMethod(t *testing.T) {
	for in, want := range map[string]PaymentMethod{
		"contanti": Cash, "CASH": Cash, " bonifico ": Transfer, "transfer": Transfer,
	} {
		got, err := ParsePaymentMethod(in)
		if err != nil || got != want {
			t.Fatalf("%q -> %q, %v", in, got, err)
		}
	}
	if _, err := ParsePaymentMethod("assegno"); !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got %v", err)
	}
	if Transfer.Label() != "Bonifico" || Cash.Label() != "Contanti" {
		t.Fatalf("unexpected labels")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("expected zero to be accepted, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestSupplierValidate(t *testing.T) {
	if err := (Supplier{Name: "Acme", DefaultPaymentMethod: Cash}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Supplier{
		{Name: "  ", DefaultPaymentMethod: Cash},
		{Name: strings.Repeat("x", 101), DefaultPaymentMethod: Cash},
		{Name: "Acme", DefaultPaymentMethod: "assegno"},
	}
	for i, s := range bads {
		if err := s.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestEntryValidate(t *testing.T) {
	good := Entry{
		Date:          "2025-01-01",
		SupplierID:    "S1",
		Amount:        Money{Cents: 100},
		PaymentMethod: Cash,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Entry{
		{Date: "", SupplierID: "S1", Amount: Money{Cents: 1}, PaymentMethod: Cash},
		{Date: "2025-13-01", SupplierID: "S1", Amount: Money{Cents: 1}, PaymentMethod: Cash},
		{Date: "2025-01-01", SupplierID: "", Amount: Money{Cents: 1}, PaymentMethod: Cash},
		{Date: "2025-01-01", SupplierID: "S1", Amount: Money{Cents: -1}, PaymentMethod: Cash},
		{Date: "2025-01-01", SupplierID: "S1", Amount: Money{Cents: 1}, PaymentMethod: ""},
		{Date: "2025-01-01", SupplierID: "S1", Amount: Money{Cents: 1}, PaymentMethod: Cash, Description: strings.Repeat("d", 501)},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMonthName(t *testing.T) {
	if MonthName(3) != "Marzo" || MonthName(12) != "Dicembre" {
		t.Fatalf("unexpected month names")
	}
	if MonthName(0) != "" || MonthName(13) != "" {
		t.Fatalf("out of range months should be empty")
	}
}
