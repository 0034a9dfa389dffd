package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Cash     PaymentMethod = "contanti"
	Transfer PaymentMethod = "bonifico"
)

const isoLayout = "2006-01-02"

type (
	// PaymentMethod is the two-bucket partition every expense falls into.
	PaymentMethod string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Supplier struct {
		ID                   string        `json:"id"`
		Name                 string        `json:"name"`
		DefaultPaymentMethod PaymentMethod `json:"defaultPaymentMethod"`
	}

	// Entry is one recorded expense. Date is kept as the ISO string received
	// from the store so that malformed records can be reported instead of lost.
	Entry struct {
		ID            string        `json:"id"`
		Date          string        `json:"date"`
		SupplierID    string        `json:"supplierId"`
		Amount        Money         `json:"amount"`
		Description   string        `json:"description"`
		PaymentMethod PaymentMethod `json:"paymentMethod"`
	}

	User struct {
		ID           string `json:"id"`
		Username     string `json:"username"`
		PasswordHash string `json:"-"`
		IsAdmin      bool   `json:"isAdmin"`
	}
)

var (
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrEmptySupplierName    = errors.New("empty supplier name")
	ErrMissingSupplier      = errors.New("missing supplier")
	ErrEmptyUsername        = errors.New("empty username")
	ErrTooLong              = errors.New("value too long")
)

var monthNames = [...]string{
	"Gennaio", "Febbraio", "Marzo", "Aprile", "Maggio", "Giugno",
	"Luglio", "Agosto", "Settembre", "Ottobre", "Novembre", "Dicembre",
}

// MonthName returns the Italian name of month m (1-12).
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthNames[m-1]
}

// ParsePaymentMethod accepts the stored Italian values and the English aliases.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "contanti", "cash":
		return Cash, nil
	case "bonifico", "transfer":
		return Transfer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
}

func (p PaymentMethod) Valid() bool {
	return p == Cash || p == Transfer
}

// Label returns the human readable label used in reports.
func (p PaymentMethod) Label() string {
	switch p {
	case Cash:
		return "Contanti"
	case Transfer:
		return "Bonifico"
	}
	return string(p)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseISODate parses a yyyy-mm-dd date. Surrounding whitespace and a trailing
// time part (as returned by some stores) are tolerated.
func ParseISODate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(isoLayout) && (s[len(isoLayout)] == 'T' || s[len(isoLayout)] == ' ') {
		s = s[:len(isoLayout)]
	}
	t, err := time.Parse(isoLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as yyyy-mm-dd.
func (d Date) String() string {
	return d.Format(isoLayout)
}

// Italian formats the date as dd-mm-yyyy.
func (d Date) Italian() string {
	return d.Format("02-01-2006")
}

func (m Money) Validate() error {
	if m.Cents < 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

func (s Supplier) Validate() error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return ErrEmptySupplierName
	}
	if len(name) > 100 {
		return fmt.Errorf("%w: supplier name (max 100 characters)", ErrTooLong)
	}
	if !s.DefaultPaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	return nil
}

// ParseDate returns the parsed entry date.
func (e Entry) ParseDate() (Date, error) {
	return ParseISODate(e.Date)
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.Date) == "" {
		return ErrInvalidDate
	}
	if _, err := e.ParseDate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.SupplierID) == "" {
		return ErrMissingSupplier
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	if len(e.Description) > 500 {
		return fmt.Errorf("%w: description (max 500 characters)", ErrTooLong)
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	return nil
}
