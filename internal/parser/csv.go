package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ColumnCandidates lists, per logical field, the header names tried in order.
type ColumnCandidates struct {
	Date        []string
	Description []string
	Amount      []string
	Reference   []string
	Debit       string
	Credit      string
}

func DefaultColumnCandidates() ColumnCandidates {
	return ColumnCandidates{
		Date:        []string{"date", "transaction date", "trans date", "value date", "posting date", "booking date"},
		Description: []string{"description", "details", "narrative", "transaction details", "particulars", "memo"},
		Amount:      []string{"amount", "value", "debit", "credit", "transaction amount"},
		Reference:   []string{"reference", "ref", "transaction reference", "cheque no", "reference number"},
		Debit:       "debit",
		Credit:      "credit",
	}
}

type CSVParser struct {
	columns ColumnCandidates
	log     logrus.FieldLogger
}

func NewCSVParser(log logrus.FieldLogger) *CSVParser {
	return &CSVParser{
		columns: DefaultColumnCandidates(),
		log:     log.WithField("component", "csv_parser"),
	}
}

// WithColumns returns a copy of the parser using the given header names.
func (p *CSVParser) WithColumns(columns ColumnCandidates) *CSVParser {
	cp := *p
	cp.columns = columns
	return &cp
}

func (p *CSVParser) Parse(r io.Reader, emit func(ParsedTransaction) error) (Stats, error) {
	var stats Stats

	br := bufio.NewReader(r)
	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("cannot read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rowNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		stats.TotalRows++

		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				p.skip(&stats, rowNum, SkipMalformedRow, err)
				continue
			}
			return stats, fmt.Errorf("error reading CSV row %d: %w", rowNum, err)
		}

		var raw RawRow
		for i, name := range header {
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			raw.Set(name, value)
		}

		tx, reason := p.parseRow(raw)
		if reason != "" {
			p.skip(&stats, rowNum, reason, nil)
			continue
		}

		if err := emit(tx); err != nil {
			return stats, err
		}
		stats.Parsed++
	}

	return stats, nil
}

func (p *CSVParser) parseRow(raw RawRow) (ParsedTransaction, string) {
	dateValue, ok := resolve(raw, p.columns.Date)
	if !ok {
		return ParsedTransaction{}, SkipMissingDate
	}
	description, ok := resolve(raw, p.columns.Description)
	if !ok {
		return ParsedTransaction{}, SkipMissingDescription
	}

	amount, reason := p.resolveAmount(raw)
	if reason != "" {
		return ParsedTransaction{}, reason
	}

	date, ok := parseDate(dateValue)
	if !ok {
		return ParsedTransaction{}, SkipInvalidDate
	}

	reference, _ := resolve(raw, p.columns.Reference)

	return ParsedTransaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Reference:   optionalString(reference),
		Raw:         raw,
	}, ""
}

// resolveAmount uses credit minus debit when the row has both columns,
// otherwise the single resolved amount column. A lone debit column is money
// out and always comes back negative.
func (p *CSVParser) resolveAmount(raw RawRow) (decimal.Decimal, string) {
	if raw.HasFold(p.columns.Debit) && raw.HasFold(p.columns.Credit) {
		debitValue, _ := raw.GetFold(p.columns.Debit)
		creditValue, _ := raw.GetFold(p.columns.Credit)
		if strings.TrimSpace(debitValue) == "" && strings.TrimSpace(creditValue) == "" {
			return decimal.Zero, SkipMissingAmount
		}

		debit, credit := decimal.Zero, decimal.Zero
		var ok bool
		if strings.TrimSpace(debitValue) != "" {
			if debit, ok = parseAmount(debitValue); !ok {
				return decimal.Zero, SkipInvalidAmount
			}
		}
		if strings.TrimSpace(creditValue) != "" {
			if credit, ok = parseAmount(creditValue); !ok {
				return decimal.Zero, SkipInvalidAmount
			}
		}

		amount := credit.Sub(debit.Abs())
		if amount.IsZero() {
			return decimal.Zero, SkipZeroAmount
		}
		return amount, ""
	}

	column, value, ok := resolveColumn(raw, p.columns.Amount)
	if !ok {
		return decimal.Zero, SkipMissingAmount
	}
	amount, ok := parseAmount(value)
	if !ok {
		return decimal.Zero, SkipInvalidAmount
	}
	if amount.IsZero() {
		return decimal.Zero, SkipZeroAmount
	}
	if strings.EqualFold(column, p.columns.Debit) {
		amount = amount.Abs().Neg()
	}
	return amount, ""
}

func (p *CSVParser) skip(stats *Stats, rowNum int, reason string, err error) {
	stats.skip(reason)
	entry := p.log.WithFields(logrus.Fields{"row": rowNum, "reason": reason})
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Debug("skipping statement row")
}

// resolve returns the first non-empty value among the candidate columns,
// trying exact header names before case-insensitive ones.
func resolve(raw RawRow, candidates []string) (string, bool) {
	_, value, ok := resolveColumn(raw, candidates)
	return value, ok
}

// resolveColumn is resolve that also reports which candidate matched.
func resolveColumn(raw RawRow, candidates []string) (string, string, bool) {
	for _, name := range candidates {
		if v, ok := raw.Get(name); ok && strings.TrimSpace(v) != "" {
			return name, strings.TrimSpace(v), true
		}
	}
	for _, name := range candidates {
		if v, ok := raw.GetFold(name); ok && strings.TrimSpace(v) != "" {
			return name, strings.TrimSpace(v), true
		}
	}
	return "", "", false
}

// sniffDelimiter picks the delimiter from the header line.
func sniffDelimiter(br *bufio.Reader) rune {
	sample, _ := br.Peek(4096)
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		sample = sample[:i]
	}

	best, bestCount := ',', bytes.Count(sample, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if c := bytes.Count(sample, []byte(string(d))); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}
