// Package feed loads option chain data into chain.Quote slices, from local
// CSV files or a remote HTTP endpoint.
package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfold/optback/internal/chain"
)

// ColumnMap maps chain fields to zero-based CSV column indices, so files
// from different vendors load without reshaping. Optional fields use -1.
type ColumnMap struct {
	UnderlyingSymbol int
	UnderlyingPrice  int
	OptionType       int
	Expiration       int
	QuoteDate        int
	Strike           int
	Bid              int
	Ask              int

	// Greeks and volume are optional; absent fields stay NaN (or zero for
	// volume) on the loaded quotes.
	Delta  int
	Gamma  int
	Theta  int
	Vega   int
	Volume int
}

// DefaultColumns returns a ColumnMap with every optional field disabled.
// Callers set the required indices for their vendor's layout.
func DefaultColumns() ColumnMap {
	return ColumnMap{Delta: -1, Gamma: -1, Theta: -1, Vega: -1, Volume: -1}
}

// ParseError reports a malformed CSV cell with its position.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("csv line %d: column %s: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "01/02/2006"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	// Timestamps collapse to their date; intraday granularity is not kept.
	if i := strings.IndexByte(s, ' '); i > 0 {
		if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
			return t.Truncate(24 * time.Hour), nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// Read parses CSV option quotes from r using the column map. skipRows
// header lines are discarded before parsing begins.
func Read(r io.Reader, cols ColumnMap, skipRows int) ([]chain.Quote, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var quotes []chain.Quote
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line+1, err)
		}
		line++
		if line <= skipRows {
			continue
		}

		q, err := parseRow(rec, cols, line)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func parseRow(rec []string, cols ColumnMap, line int) (chain.Quote, error) {
	cell := func(idx int, name string) (string, error) {
		if idx < 0 || idx >= len(rec) {
			return "", &ParseError{Line: line, Column: name, Err: fmt.Errorf("index %d out of range", idx)}
		}
		return rec[idx], nil
	}
	var firstErr error
	price := func(idx int, name string) float64 {
		if firstErr != nil {
			return 0
		}
		s, err := cell(idx, name)
		if err != nil {
			firstErr = err
			return 0
		}
		v, err := parsePrice(s)
		if err != nil {
			firstErr = &ParseError{Line: line, Column: name, Err: err}
		}
		return v
	}
	date := func(idx int, name string) time.Time {
		if firstErr != nil {
			return time.Time{}
		}
		s, err := cell(idx, name)
		if err != nil {
			firstErr = err
			return time.Time{}
		}
		t, err := parseDate(s)
		if err != nil {
			firstErr = &ParseError{Line: line, Column: name, Err: err}
		}
		return t
	}
	optional := func(idx int, name string) float64 {
		if idx < 0 {
			return math.NaN()
		}
		return price(idx, name)
	}

	q := chain.Quote{
		UnderlyingPrice: price(cols.UnderlyingPrice, "underlying_price"),
		Expiration:      date(cols.Expiration, "expiration"),
		QuoteDate:       date(cols.QuoteDate, "quote_date"),
		Strike:          price(cols.Strike, "strike"),
		Bid:             price(cols.Bid, "bid"),
		Ask:             price(cols.Ask, "ask"),
		Delta:           optional(cols.Delta, "delta"),
		Gamma:           optional(cols.Gamma, "gamma"),
		Theta:           optional(cols.Theta, "theta"),
		Vega:            optional(cols.Vega, "vega"),
	}
	if s, err := cell(cols.UnderlyingSymbol, "underlying_symbol"); err == nil {
		q.Symbol = strings.ToUpper(strings.TrimSpace(s))
	} else if firstErr == nil {
		firstErr = err
	}
	if s, err := cell(cols.OptionType, "option_type"); err == nil {
		q.OptionType = strings.ToLower(strings.TrimSpace(s))
	} else if firstErr == nil {
		firstErr = err
	}
	if cols.Volume >= 0 {
		q.Volume = int64(price(cols.Volume, "volume"))
	}
	if firstErr != nil {
		return chain.Quote{}, firstErr
	}
	return q, nil
}

// LoadFile reads option quotes from a CSV file on disk.
func LoadFile(path string, cols ColumnMap, skipRows int) ([]chain.Quote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chain file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Read(f, cols, skipRows)
}
