package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/quantfold/optback/internal/backtest"
	"github.com/quantfold/optback/internal/chain"
	"github.com/quantfold/optback/internal/config"
	"github.com/quantfold/optback/internal/dashboard"
	"github.com/quantfold/optback/internal/feed"
	"github.com/quantfold/optback/internal/storage"
)

type App struct {
	config   *config.Config
	provider feed.Provider
	storage  storage.Interface
	logger   *logrus.Logger
}

func main() {
	var configPath string
	var serveOnly bool
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.BoolVar(&serveOnly, "serve", false, "Skip backtesting and only serve stored runs")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(cfg.Environment.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	app := &App{config: cfg, logger: logger}

	if cfg.Data.BaseURL != "" {
		remote := feed.NewHTTPProvider(cfg.Data.BaseURL, cfg.Data.APIKey, cfg.Columns())
		remote.SkipRows = cfg.Data.SkipRows
		remote.Logger = logger
		app.provider = feed.NewCircuitBreakerProvider(remote)
	} else {
		app.provider = &feed.FileProvider{
			Dir:      cfg.Data.Dir,
			Columns:  cfg.Columns(),
			SkipRows: cfg.Data.SkipRows,
		}
	}

	if cfg.Storage.Path != "" {
		store, err := storage.NewStorage(cfg.Storage.Path)
		if err != nil {
			logger.Fatalf("Failed to open run storage: %v", err)
		}
		app.storage = store
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping")
		cancel()
	}()

	if !serveOnly {
		if err := app.Run(ctx); err != nil {
			logger.Fatalf("Backtest error: %v", err)
		}
	}

	if cfg.Dashboard.Enabled {
		if err := app.Serve(ctx); err != nil {
			logger.Fatalf("Dashboard error: %v", err)
		}
	}
}

// Run loads the chains, evaluates every configured strategy, writes the
// results, and persists them when storage is configured.
func (a *App) Run(ctx context.Context) error {
	quotes, err := a.loadChains(ctx)
	if err != nil {
		return err
	}
	a.logger.WithFields(logrus.Fields{
		"symbols": a.config.Symbols,
		"rows":    len(quotes),
	}).Info("Chain data loaded")

	btCfg := a.config.Backtest
	btCfg.Commission = a.config.BuildCommission()
	btCfg.EntrySignal, err = a.config.BuildSignal()
	if err != nil {
		return err
	}

	results, err := backtest.RunAll(ctx, quotes, a.config.Strategies, btCfg)
	if err != nil {
		return err
	}

	for _, name := range a.config.Strategies {
		res := results[name]
		if err := a.writeResult(res); err != nil {
			return err
		}
		if a.storage != nil {
			run := &storage.Run{
				Strategy:   res.Strategy,
				Shape:      res.Shape,
				Symbols:    a.config.Symbols,
				Params:     a.config.Backtest,
				TradeCount: len(res.Trades),
				Buckets:    res.Buckets,
			}
			if run.TradeCount == 0 {
				for _, b := range res.Buckets {
					run.TradeCount += b.Stats.Count
				}
			}
			if err := a.storage.SaveRun(run); err != nil {
				return fmt.Errorf("saving run %s: %w", name, err)
			}
			a.logger.WithFields(logrus.Fields{
				"strategy": name,
				"run_id":   run.ID,
			}).Info("Run saved")
		}
	}
	return nil
}

func (a *App) loadChains(ctx context.Context) ([]chain.Quote, error) {
	var quotes []chain.Quote
	for _, symbol := range a.config.Symbols {
		qs, err := a.provider.Chain(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("loading chain for %s: %w", symbol, err)
		}
		quotes = append(quotes, qs...)
	}
	return quotes, nil
}

func (a *App) writeResult(res *backtest.Result) error {
	var out io.Writer = os.Stdout
	if a.config.Output.Path != "" {
		path := a.config.Output.Path
		if len(a.config.Strategies) > 1 {
			path = strings.TrimSuffix(path, ".csv") + "_" + res.Strategy + ".csv"
		}
		f, err := os.Create(path) // #nosec G304 -- path comes from the user's config
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	if a.config.Output.Format == "csv" {
		w := csv.NewWriter(out)
		if err := w.Write(res.Columns()); err != nil {
			return err
		}
		if err := w.WriteAll(res.Records()); err != nil {
			return err
		}
		w.Flush()
		return w.Error()
	}

	fmt.Fprintf(out, "\n%s\n", res.Strategy)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(res.Columns(), "\t"))
	for _, rec := range res.Records() {
		fmt.Fprintln(tw, strings.Join(rec, "\t"))
	}
	return tw.Flush()
}

// Serve blocks on the dashboard server until the context is canceled.
func (a *App) Serve(ctx context.Context) error {
	if a.storage == nil {
		return fmt.Errorf("dashboard requires storage.path to be configured")
	}

	srv := dashboard.NewServer(dashboard.Config{
		Port:      a.config.Dashboard.Port,
		AuthToken: a.config.Dashboard.AuthToken,
	}, a.storage, a.logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
