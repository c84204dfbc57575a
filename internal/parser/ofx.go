package parser

import (
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	stmtTrnBlock = regexp.MustCompile(`(?is)<STMTTRN>(.*?)</STMTTRN>`)
	// matches both SGML (<NAME>value) and XML (<NAME>value</NAME>) elements
	ofxElement = regexp.MustCompile(`(?i)<([A-Z0-9.]+)>([^<\r\n]*)`)
	ofxDate    = regexp.MustCompile(`^(\d{8})`)
)

// OFXParser extracts STMTTRN blocks with pattern matching. It is not a full
// OFX/SGML parser: each block is isolated and its elements are read
// independently. Amounts are taken as-is; OFX already reports credits as
// positive.
type OFXParser struct {
	log logrus.FieldLogger
}

func NewOFXParser(log logrus.FieldLogger) *OFXParser {
	return &OFXParser{log: log.WithField("component", "ofx_parser")}
}

func (p *OFXParser) Parse(r io.Reader, emit func(ParsedTransaction) error) (Stats, error) {
	var stats Stats

	body, err := io.ReadAll(r)
	if err != nil {
		return stats, fmt.Errorf("cannot read OFX document: %w", err)
	}

	blocks := stmtTrnBlock.FindAllStringSubmatch(string(body), -1)
	for i, block := range blocks {
		stats.TotalRows++

		raw := ofxElements(block[1])
		tx, reason := parseOFXBlock(raw)
		if reason != "" {
			stats.skip(reason)
			p.log.WithFields(logrus.Fields{"block": i + 1, "reason": reason}).Debug("skipping statement transaction")
			continue
		}

		if err := emit(tx); err != nil {
			return stats, err
		}
		stats.Parsed++
	}

	return stats, nil
}

func parseOFXBlock(raw RawRow) (ParsedTransaction, string) {
	dateValue, _ := raw.GetFold("DTPOSTED")
	amountValue, _ := raw.GetFold("TRNAMT")
	dateValue = strings.TrimSpace(dateValue)
	amountValue = strings.TrimSpace(amountValue)

	switch {
	case dateValue == "" && amountValue == "":
		return ParsedTransaction{}, SkipMissingDateAndAmount
	case dateValue == "":
		return ParsedTransaction{}, SkipMissingDate
	case amountValue == "":
		return ParsedTransaction{}, SkipMissingAmount
	}

	m := ofxDate.FindStringSubmatch(dateValue)
	if m == nil {
		return ParsedTransaction{}, SkipInvalidDate
	}
	date, err := time.Parse("20060102", m[1])
	if err != nil {
		return ParsedTransaction{}, SkipInvalidDate
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(amountValue, ",", ""))
	if err != nil {
		return ParsedTransaction{}, SkipInvalidAmount
	}
	if amount.IsZero() {
		return ParsedTransaction{}, SkipZeroAmount
	}

	name, _ := raw.GetFold("NAME")
	memo, _ := raw.GetFold("MEMO")
	var parts []string
	for _, s := range []string{name, memo} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ParsedTransaction{}, SkipMissingDescription
	}

	fitID, _ := raw.GetFold("FITID")

	return ParsedTransaction{
		Date:        date,
		Description: strings.Join(parts, " - "),
		Amount:      amount,
		Reference:   optionalString(fitID),
		Raw:         raw,
	}, ""
}

// ofxElements collects the leaf elements of a block in document order. The
// first occurrence of a tag wins.
func ofxElements(block string) RawRow {
	var raw RawRow
	for _, m := range ofxElement.FindAllStringSubmatch(block, -1) {
		tag := strings.ToUpper(m[1])
		value := strings.TrimSpace(html.UnescapeString(m[2]))
		if value == "" {
			continue
		}
		if _, exists := raw.Get(tag); exists {
			continue
		}
		raw.Set(tag, value)
	}
	return raw
}
