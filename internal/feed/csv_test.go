package feed

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// testColumns matches the fixture layout used throughout this file:
// symbol, underlying, type, expiration, quote date, strike, bid, ask.
func testColumns() ColumnMap {
	cols := DefaultColumns()
	cols.UnderlyingSymbol = 0
	cols.UnderlyingPrice = 1
	cols.OptionType = 2
	cols.Expiration = 3
	cols.QuoteDate = 4
	cols.Strike = 5
	cols.Bid = 6
	cols.Ask = 7
	return cols
}

const fixtureHeader = "symbol,underlying,type,expiration,quote_date,strike,bid,ask\n"

func TestReadBasic(t *testing.T) {
	data := fixtureHeader +
		"spx,3800.50,CALL,2021-02-19,2021-01-04,3900,40.10,42.30\n" +
		"SPX,3800.50,put,2021-02-19,2021-01-04,3700,35.00,36.00\n"

	quotes, err := Read(strings.NewReader(data), testColumns(), 1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}

	q := quotes[0]
	if q.Symbol != "SPX" {
		t.Errorf("symbol = %q, expected upper-cased SPX", q.Symbol)
	}
	if q.OptionType != "call" {
		t.Errorf("option type = %q, expected lower-cased call", q.OptionType)
	}
	if q.UnderlyingPrice != 3800.50 || q.Strike != 3900 || q.Bid != 40.10 || q.Ask != 42.30 {
		t.Errorf("unexpected prices: %+v", q)
	}
	want := time.Date(2021, 2, 19, 0, 0, 0, 0, time.UTC)
	if !q.Expiration.Equal(want) {
		t.Errorf("expiration = %v, expected %v", q.Expiration, want)
	}
	if !math.IsNaN(q.Delta) {
		t.Errorf("delta = %v, expected NaN when unmapped", q.Delta)
	}
}

func TestReadSkipRows(t *testing.T) {
	data := "vendor export v2\n" + fixtureHeader +
		"SPX,3800,call,2021-02-19,2021-01-04,3900,40,42\n"
	quotes, err := Read(strings.NewReader(data), testColumns(), 2)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(quotes) != 1 {
		t.Errorf("expected 1 quote after skipping 2 rows, got %d", len(quotes))
	}
}

func TestReadTimestampDates(t *testing.T) {
	data := "SPX,3800,call,2021-02-19 16:00:00,2021-01-04 16:00:00,3900,40,42\n"
	quotes, err := Read(strings.NewReader(data), testColumns(), 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	if !quotes[0].QuoteDate.Equal(want) {
		t.Errorf("quote date = %v, expected timestamp truncated to %v", quotes[0].QuoteDate, want)
	}
}

func TestReadOptionalColumns(t *testing.T) {
	cols := testColumns()
	cols.Delta = 8
	cols.Volume = 9
	data := "SPX,3800,call,2021-02-19,2021-01-04,3900,40,42,0.45,1250\n"
	quotes, err := Read(strings.NewReader(data), cols, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if quotes[0].Delta != 0.45 {
		t.Errorf("delta = %v, expected 0.45", quotes[0].Delta)
	}
	if quotes[0].Volume != 1250 {
		t.Errorf("volume = %d, expected 1250", quotes[0].Volume)
	}
}

func TestReadParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		row    string
		column string
	}{
		{"bad strike", "SPX,3800,call,2021-02-19,2021-01-04,oops,40,42", "strike"},
		{"bad date", "SPX,3800,call,19-Feb-21,2021-01-04,3900,40,42", "expiration"},
		{"short row", "SPX,3800,call,2021-02-19", "quote_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.row+"\n"), testColumns(), 0)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if parseErr.Column != tt.column {
				t.Errorf("column = %q, expected %q", parseErr.Column, tt.column)
			}
			if parseErr.Line != 1 {
				t.Errorf("line = %d, expected 1", parseErr.Line)
			}
		})
	}
}

func TestReadEmptyInput(t *testing.T) {
	quotes, err := Read(strings.NewReader(""), testColumns(), 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(quotes) != 0 {
		t.Errorf("expected no quotes, got %d", len(quotes))
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SPX.csv")
	data := fixtureHeader + "SPX,3800,call,2021-02-19,2021-01-04,3900,40,42\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	quotes, err := LoadFile(path, testColumns(), 1)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(quotes) != 1 || quotes[0].Symbol != "SPX" {
		t.Errorf("unexpected quotes: %+v", quotes)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.csv"), testColumns(), 1); err == nil {
		t.Error("expected an error for a missing file")
	}
}
