// Package parser turns bank statement files into canonical transactions.
//
// Two formats are supported: delimited text with a header row (CSV) and OFX
// /QFX. Parsing is tolerant: a row that cannot be resolved into a date, a
// description and a non-zero amount is skipped and counted in Stats rather
// than failing the file. Only whole-file problems (unreadable stream, missing
// header) are returned as errors.
//
// Sign convention: credits (money in) are positive and debits negative for
// every format.
package parser

import (
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"statement-reconciliation-backend/internal/errs"
)

type Format string

const (
	FormatCSV Format = "csv"
	FormatOFX Format = "ofx"
)

// Skip reasons reported in Stats.SkipReasons.
const (
	SkipMalformedRow         = "malformed_row"
	SkipMissingDate          = "missing_date"
	SkipInvalidDate          = "invalid_date"
	SkipMissingDescription   = "missing_description"
	SkipMissingAmount        = "missing_amount"
	SkipInvalidAmount        = "invalid_amount"
	SkipZeroAmount           = "zero_amount"
	SkipMissingDateAndAmount = "missing_date_and_amount"
)

// ParsedTransaction is one statement line in canonical form. Tenant, uploader
// and batch id are stamped on by the import coordinator.
type ParsedTransaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Reference   *string
	Raw         RawRow
}

// Stats is the diagnostics side channel of a parse run.
type Stats struct {
	TotalRows   int            `json:"total_rows"`
	Parsed      int            `json:"parsed"`
	Skipped     int            `json:"skipped"`
	SkipReasons map[string]int `json:"skip_reasons,omitempty"`
}

func (s *Stats) skip(reason string) {
	if s.SkipReasons == nil {
		s.SkipReasons = make(map[string]int)
	}
	s.Skipped++
	s.SkipReasons[reason]++
}

// Parser consumes a statement and calls emit for every accepted record, in
// source order. An error returned by emit aborts the parse.
type Parser interface {
	Parse(r io.Reader, emit func(ParsedTransaction) error) (Stats, error)
}

// ParseAll collects every emitted record.
func ParseAll(p Parser, r io.Reader) ([]ParsedTransaction, Stats, error) {
	var out []ParsedTransaction
	stats, err := p.Parse(r, func(tx ParsedTransaction) error {
		out = append(out, tx)
		return nil
	})
	return out, stats, err
}

// New returns the parser for a format.
func New(format Format, log logrus.FieldLogger) (Parser, error) {
	switch format {
	case FormatCSV:
		return NewCSVParser(log), nil
	case FormatOFX:
		return NewOFXParser(log), nil
	default:
		return nil, errs.NewUnsupportedFormatError("", string(format))
	}
}

var mediaTypes = map[string]Format{
	"text/csv":                    FormatCSV,
	"application/csv":             FormatCSV,
	"text/comma-separated-values": FormatCSV,
	"application/vnd.ms-excel":    FormatCSV,
	"application/x-ofx":           FormatOFX,
	"application/ofx":             FormatOFX,
	"application/vnd.intu.qfx":    FormatOFX,
	"application/x-qfx":           FormatOFX,
}

var extensions = map[string]Format{
	".csv": FormatCSV,
	".ofx": FormatOFX,
	".qfx": FormatOFX,
}

// DetectFormat resolves the statement format from the declared content type,
// falling back to the filename extension. Anything else is rejected.
func DetectFormat(filename, contentType string) (Format, error) {
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			if f, ok := mediaTypes[strings.ToLower(mediaType)]; ok {
				return f, nil
			}
		}
	}

	if f, ok := extensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return f, nil
	}

	return "", errs.NewUnsupportedFormatError(filename, contentType)
}

// NewBatchID returns a time-ordered unique id for an import run: a UUIDv7
// carries a millisecond clock followed by random bits.
func NewBatchID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
