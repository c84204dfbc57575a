package parser

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order. Day-first layouts come before month-first
// ones, so 03/04/2025 reads as 3 April.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2006/01/02",
	"02.01.2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"20060102",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseDate returns the calendar date (UTC midnight) of a statement date.
func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return truncateDay(t), true
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var amountReplacer = strings.NewReplacer(",", "", "$", "", "£", "", "€", "", " ", "")

// parseAmount strips thousands separators and currency symbols and parses
// what is left as a decimal.
func parseAmount(value string) (decimal.Decimal, bool) {
	cleaned := amountReplacer.Replace(strings.TrimSpace(value))
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
