package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/optback/internal/config"
	"github.com/quantfold/optback/internal/feed"
	"github.com/quantfold/optback/internal/storage"
)

const testChainCSV = `symbol,underlying,type,expiration,quote_date,strike,bid,ask
SPX,3800,call,2021-02-03,2021-01-04,3800,39.95,40.05
SPX,3800,call,2021-02-03,2021-02-03,3800,24.95,25.05
`

func newTestApp(t *testing.T) (*App, *storage.MockStorage, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SPX.csv"), []byte(testChainCSV), 0o644))

	cfg := config.Default()
	cfg.Data.Dir = dir
	cfg.Symbols = []string{"SPX"}
	cfg.Strategies = []string{"long_calls"}
	cfg.Output.Format = "csv"
	cfg.Output.Path = filepath.Join(dir, "results.csv")
	require.NoError(t, cfg.Validate())

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := storage.NewMockStorage()
	app := &App{
		config: cfg,
		provider: &feed.FileProvider{
			Dir:      cfg.Data.Dir,
			Columns:  cfg.Columns(),
			SkipRows: cfg.Data.SkipRows,
		},
		storage: store,
		logger:  logger,
	}
	return app, store, cfg.Output.Path
}

func TestAppRunWritesCSVAndSavesRun(t *testing.T) {
	app, store, outPath := newTestApp(t)

	require.NoError(t, app.Run(context.Background()))

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2, "header plus one bucket row")
	assert.Equal(t, "dte_range", records[0][0])
	assert.Equal(t, "[28, 35)", records[1][0])
	assert.Equal(t, "1", records[1][2], "bucket count")
	assert.Equal(t, "-0.3750", records[1][3], "bucket mean")

	runs := store.ListRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, "long_calls", runs[0].Strategy)
	assert.Equal(t, 1, runs[0].TradeCount)
	assert.Equal(t, []string{"SPX"}, runs[0].Symbols)
}

func TestAppRunTableOutput(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.config.Output.Format = "table"
	app.config.Output.Path = filepath.Join(t.TempDir(), "results.txt")

	require.NoError(t, app.Run(context.Background()))

	data, err := os.ReadFile(app.config.Output.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "long_calls")
	assert.Contains(t, string(data), "dte_range")
}

func TestAppRunReportsMissingChain(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.config.Symbols = []string{"NDX"}

	err := app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NDX")
}

func TestAppRunRejectsUnknownStrategy(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.config.Strategies = []string{"long_hopes"}

	require.Error(t, app.Run(context.Background()))
}

func TestAppServeRequiresStorage(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.storage = nil

	require.Error(t, app.Serve(context.Background()))
}
