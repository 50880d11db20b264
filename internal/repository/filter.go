package repository

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MonthMatchMode selects how the month query parameter is compared against
// the textual dateOfSale.
type MonthMatchMode string

const (
	// MonthMatchSubstring keeps the legacy behaviour: dateOfSale must contain the
	// month text case-insensitively, so "01" also matches day 01 or year 2001.
	MonthMatchSubstring MonthMatchMode = "substring"
	// MonthMatchCalendar parses the month and matches the YYYY-MM- prefix of dateOfSale.
	MonthMatchCalendar MonthMatchMode = "calendar"
)

// ParseMonthMatchMode validates a configured mode name.
func ParseMonthMatchMode(s string) (MonthMatchMode, error) {
	switch MonthMatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MonthMatchSubstring:
		return MonthMatchSubstring, nil
	case MonthMatchCalendar:
		return MonthMatchCalendar, nil
	default:
		return "", fmt.Errorf("unknown month match mode %q", s)
	}
}

// MonthFilter is the normalised month predicate. The zero value matches every record.
type MonthFilter struct {
	Text  string
	Month time.Month
}

// NewMonthFilter interprets raw under mode. An empty raw value matches everything.
func NewMonthFilter(mode MonthMatchMode, raw string) (MonthFilter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MonthFilter{}, nil
	}
	if mode != MonthMatchCalendar {
		return MonthFilter{Text: raw}, nil
	}
	m, err := parseMonth(raw)
	if err != nil {
		return MonthFilter{}, err
	}
	return MonthFilter{Month: m}, nil
}

func parseMonth(raw string) (time.Month, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidMonth, raw)
		}
		return time.Month(n), nil
	}
	name := strings.ToLower(raw)
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if name == full || (len(name) >= 3 && strings.HasPrefix(full, name)) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMonth, raw)
}

// Pattern returns the regular expression (without case flags) that dateOfSale
// text must match, or "" when the filter matches everything. The syntax is
// shared by Go regexp, MongoDB $regex and PostgreSQL ~*.
func (m MonthFilter) Pattern() string {
	switch {
	case m.Month != 0:
		return fmt.Sprintf(`^[0-9]{4}-%02d-`, int(m.Month))
	case m.Text != "":
		return regexp.QuoteMeta(m.Text)
	default:
		return ""
	}
}

// Key is a stable cache key fragment for the filter.
func (m MonthFilter) Key() string {
	switch {
	case m.Month != 0:
		return fmt.Sprintf("calendar:%02d", int(m.Month))
	case m.Text != "":
		return "substring:" + strings.ToLower(m.Text)
	default:
		return "all"
	}
}

// Filter combines the month predicate with an optional free-text search over
// title, description and the textual price.
type Filter struct {
	Month  MonthFilter
	Search string
}

// SearchPattern returns the literal-match pattern for the search text, or "".
func (f Filter) SearchPattern() string {
	if f.Search == "" {
		return ""
	}
	return regexp.QuoteMeta(f.Search)
}

// FormatPrice renders a price the way the text search sees it.
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
