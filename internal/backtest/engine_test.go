package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quantfold/optback/internal/chain"
	"github.com/quantfold/optback/internal/signal"
)

func smallChain(t *testing.T) []chain.Quote {
	t.Helper()
	return []chain.Quote{
		quote(t, "SPX", "call", "2021-01-04", "2021-02-03", 3800, 3790, 40.0),
		quote(t, "SPX", "call", "2021-02-03", "2021-02-03", 3800, 3820, 25.0),
		quote(t, "SPX", "put", "2021-01-04", "2021-02-03", 3800, 3790, 35.0),
		quote(t, "SPX", "put", "2021-02-03", "2021-02-03", 3800, 3820, 10.0),
	}
}

func TestLongCallsEndToEnd(t *testing.T) {
	res, err := LongCalls(smallChain(t), DefaultConfig())
	if err != nil {
		t.Fatalf("LongCalls: %v", err)
	}
	if res.Strategy != "long_calls" || res.Shape != ShapeSingle {
		t.Errorf("result identity = %s/%s", res.Strategy, res.Shape)
	}
	if len(res.Buckets) != 1 {
		t.Fatalf("expected 1 populated bucket, got %d", len(res.Buckets))
	}
	b := res.Buckets[0]
	if b.Stats.Count != 1 {
		t.Errorf("bucket count = %d, expected 1", b.Stats.Count)
	}
	// (25 - 40) / 40
	if !approx(b.Stats.Mean, -0.375) {
		t.Errorf("bucket mean = %v, expected -0.375", b.Stats.Mean)
	}
	if b.DTERanges[0] != (Interval{28, 35}) {
		t.Errorf("dte bucket = %v, expected [28, 35)", b.DTERanges[0])
	}
}

func TestRawModeReturnsTrades(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Raw = true
	res, err := LongCalls(smallChain(t), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) != 1 || len(res.Buckets) != 0 {
		t.Fatalf("raw run: %d trades, %d buckets; expected 1 and 0", len(res.Trades), len(res.Buckets))
	}
	cols := res.Columns()
	recs := res.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if len(cols) != len(recs[0]) {
		t.Errorf("header has %d columns, record has %d", len(cols), len(recs[0]))
	}
}

func TestStraddleEndToEnd(t *testing.T) {
	res, err := LongStraddles(smallChain(t), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(res.Buckets))
	}
	// entry 35+40=75, exit 10+25=35: (35-75)/75
	if !approx(res.Buckets[0].Stats.Mean, -40.0/75.0) {
		t.Errorf("straddle mean = %v, expected %v", res.Buckets[0].Stats.Mean, -40.0/75.0)
	}
}

func TestRunEmptyChainFullGrid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DropNaN = false
	cfg.MaxEntryDTE = 14
	cfg.MaxOTMPct = 0.05

	res, err := LongCalls(nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	// 2 dte bins x 2 otm bins, all empty but present.
	if len(res.Buckets) != 4 {
		t.Fatalf("expected a 4-row empty grid, got %d rows", len(res.Buckets))
	}
	for _, b := range res.Buckets {
		if b.Stats.Count != 0 {
			t.Errorf("bucket %v has count %d", b.DTERanges, b.Stats.Count)
		}
	}
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DTEInterval = 0
	_, err := LongCalls(smallChain(t), cfg)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Key != "dte_interval" {
		t.Errorf("error key = %q, expected dte_interval", cfgErr.Key)
	}
}

func TestRunInvalidChain(t *testing.T) {
	bad := smallChain(t)
	bad[0].Strike = -5
	var schemaErr *chain.SchemaError
	_, err := LongCalls(bad, DefaultConfig())
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestEntrySignalSuppressesEntries(t *testing.T) {
	// 2021-01-04 is a Monday; a Friday-only signal admits nothing.
	cfg := DefaultConfig()
	cfg.EntrySignal = signal.DayOfWeek(time.Friday)
	res, err := LongCalls(smallChain(t), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Buckets) != 0 {
		t.Fatalf("expected no buckets under a Friday-only signal, got %d", len(res.Buckets))
	}

	cfg.EntrySignal = signal.DayOfWeek(time.Monday)
	res, err = LongCalls(smallChain(t), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Buckets) != 1 {
		t.Fatalf("expected 1 bucket under a Monday signal, got %d", len(res.Buckets))
	}
}

func TestCalendarEndToEnd(t *testing.T) {
	quotes := []chain.Quote{
		quote(t, "SPX", "call", "2021-01-04", "2021-02-03", 3800, 3800, 3.0),
		quote(t, "SPX", "call", "2021-01-27", "2021-02-03", 3800, 3805, 1.0),
		quote(t, "SPX", "call", "2021-01-04", "2021-03-05", 3800, 3800, 5.0),
		quote(t, "SPX", "call", "2021-01-27", "2021-03-05", 3800, 3805, 4.5),
	}
	res, err := LongCallCalendar(quotes, CalendarDefaults())
	if err != nil {
		t.Fatal(err)
	}
	if res.Shape != ShapeCalendar {
		t.Errorf("shape = %s, expected calendar", res.Shape)
	}
	if len(res.Buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(res.Buckets))
	}
	b := res.Buckets[0]
	if len(b.DTERanges) != 2 {
		t.Fatalf("calendar bucket has %d dte ranges, expected 2", len(b.DTERanges))
	}
	if !approx(b.Stats.Mean, 0.75) {
		t.Errorf("calendar mean = %v, expected 0.75", b.Stats.Mean)
	}
}

func TestRunAll(t *testing.T) {
	results, err := RunAll(context.Background(), smallChain(t), []string{"long_calls", "short_puts"}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results["long_calls"] == nil || results["short_puts"] == nil {
		t.Fatal("missing strategy results")
	}
}

func TestRunAllUnknownStrategy(t *testing.T) {
	_, err := RunAll(context.Background(), smallChain(t), []string{"long_hopes"}, DefaultConfig())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError for unknown strategy, got %v", err)
	}
}

func TestRunAllCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RunAll(ctx, smallChain(t), []string{"long_calls"}, DefaultConfig()); err == nil {
		t.Fatal("expected error from canceled context")
	}
}
