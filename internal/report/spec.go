package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Kind string

type Period string

const (
	KindDetail  Kind = "detail"
	KindSummary Kind = "summary"

	PeriodMonthly Period = "monthly"
	PeriodAnnual  Period = "annual"
)

var ErrInvalidSpec = errors.New("invalid report spec")

// Spec describes one export request. Year and Month are optional filters;
// Month requires Year.
type Spec struct {
	Kind   Kind   `json:"kind"`
	Period Period `json:"period,omitempty"`
	Year   int    `json:"year,omitempty"`
	Month  int    `json:"month,omitempty"`
}

// ParseSpec builds a Spec from loosely typed inputs such as query parameters
// or command line flags. Italian aliases are accepted. Period defaults to
// annual for summaries.
func ParseSpec(kind, period, year, month string) (Spec, error) {
	var s Spec
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "detail", "dettaglio", "":
		s.Kind = KindDetail
	case "summary", "riepilogo":
		s.Kind = KindSummary
	default:
		return Spec{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidSpec, kind)
	}

	switch strings.ToLower(strings.TrimSpace(period)) {
	case "monthly", "mensile":
		s.Period = PeriodMonthly
	case "annual", "annuale", "":
		s.Period = PeriodAnnual
	default:
		return Spec{}, fmt.Errorf("%w: unknown period %q", ErrInvalidSpec, period)
	}

	var err error
	if s.Year, err = parseOptionalInt(year); err != nil {
		return Spec{}, fmt.Errorf("%w: year %q", ErrInvalidSpec, year)
	}
	if s.Month, err = parseOptionalInt(month); err != nil {
		return Spec{}, fmt.Errorf("%w: month %q", ErrInvalidSpec, month)
	}
	return s, s.Validate()
}

func parseOptionalInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func (s Spec) Validate() error {
	var errs []string
	if s.Kind != KindDetail && s.Kind != KindSummary {
		errs = append(errs, fmt.Sprintf("kind must be %q or %q", KindDetail, KindSummary))
	}
	if s.Kind == KindSummary && s.Period != PeriodMonthly && s.Period != PeriodAnnual {
		errs = append(errs, fmt.Sprintf("period must be %q or %q", PeriodMonthly, PeriodAnnual))
	}
	if s.Year != 0 && (s.Year < 1900 || s.Year > 9999) {
		errs = append(errs, "year out of range")
	}
	if s.Month < 0 || s.Month > 12 {
		errs = append(errs, "month must be between 1 and 12")
	}
	if s.Month != 0 && s.Year == 0 {
		errs = append(errs, "month requires year")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSpec, strings.Join(errs, "; "))
	}
	return nil
}

// periodLabel is the filename suffix: the year or "Completo", plus "_MM"
// for single-month exports.
func (s Spec) periodLabel() string {
	label := "Completo"
	if s.Year != 0 {
		label = strconv.Itoa(s.Year)
	}
	if s.Month != 0 {
		label += fmt.Sprintf("_%02d", s.Month)
	}
	return label
}

// Filename returns the download name of the workbook produced for s.
func (s Spec) Filename() string {
	switch {
	case s.Kind == KindDetail:
		return "Dettaglio_Spese_" + s.periodLabel() + ".xlsx"
	case s.Period == PeriodMonthly:
		return "Riepilogo_Mensile_" + s.periodLabel() + ".xlsx"
	default:
		return "Riepilogo_Annuale_" + s.periodLabel() + ".xlsx"
	}
}
