// Command gridbot replays a candle CSV through the grid/martingale basket
// engine on a paper venue and prints a summary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evdnx/gotsgrid/config"
	"github.com/evdnx/gotsgrid/engine"
	"github.com/evdnx/gotsgrid/executor"
	"github.com/evdnx/gotsgrid/journal"
	"github.com/evdnx/gotsgrid/logger"
	"github.com/evdnx/gotsgrid/strategy"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// ---- Flags ----
	var (
		cfgPath     string
		barsPath    string
		journalPath string
		metricsAddr string
		symbol      string
		equity      float64
		interval    time.Duration
		history     int
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML strategy config (defaults when empty)")
	flag.StringVar(&barsPath, "bars", "", "Path to CSV (time,open,high,low,close,volume)")
	flag.StringVar(&journalPath, "journal", "", "SQLite file to record closed baskets")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics on this address, e.g. :9090")
	flag.StringVar(&symbol, "symbol", "EURUSD", "Instrument symbol")
	flag.Float64Var(&equity, "equity", 10_000, "Starting paper equity")
	flag.DurationVar(&interval, "interval", time.Minute, "Bar duration")
	flag.IntVar(&history, "history", 20, "Closed baskets to list from the journal")
	flag.Parse()

	if barsPath == "" {
		fmt.Fprintln(os.Stderr, "gridbot: -bars is required")
		flag.Usage()
		os.Exit(2)
	}

	// ---- Config & logging ----
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			log.Fatalf("gridbot: %v", err)
		}
	}
	zl, err := logger.NewZapLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("gridbot: logger: %v", err)
	}

	bars, err := loadBars(barsPath, interval)
	if err != nil {
		log.Fatalf("gridbot: load bars: %v", err)
	}

	// ---- Wiring ----
	exec := executor.NewPaperExecutor(equity)
	var opts []engine.Option
	var jr *journal.SQLiteJournal
	if journalPath != "" {
		if jr, err = journal.NewSQLiteJournal(journalPath); err != nil {
			log.Fatalf("gridbot: %v", err)
		}
		defer jr.Close()
		opts = append(opts, engine.WithJournal(jr))
	}
	bot, err := strategy.NewGridMartingale(symbol, cfg, exec, zl, opts...)
	if err != nil {
		log.Fatalf("gridbot: %v", err)
	}

	// ---- HTTP metrics ----
	var srv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok\n"))
		})
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			zl.Info("metrics_listening", logger.String("addr", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Error("metrics_server_failed", logger.Err(err))
			}
		}()
	}

	// ---- Replay ----
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	t := newTally()
	for _, b := range bars {
		if ctx.Err() != nil {
			zl.Warn("replay_interrupted", logger.Int("bars", t.bars))
			break
		}
		t.add(bot.ProcessBar(ctx, b))
	}
	zl.Info("replay_done",
		logger.String("symbol", symbol),
		logger.Int("bars", t.bars),
		logger.Float64("realized", bot.Engine.Realized()),
		logger.Float64("equity", exec.Equity()),
	)

	t.render(os.Stdout, symbol, exec.Equity())
	if jr != nil {
		entries, err := jr.History(ctx, history)
		if err != nil {
			zl.Warn("journal_history_failed", logger.Err(err))
		}
		renderHistory(os.Stdout, entries)
		if st, err := jr.Stats(ctx); err == nil {
			fmt.Printf("journal: %d baskets, %d wins, %d losses, net %.4f\n", st.Baskets, st.Wins, st.Losses, st.NetPnL)
		}
	}

	// ---- Graceful shutdown for HTTP server ----
	if srv != nil {
		shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
		defer c()
		_ = srv.Shutdown(shutdownCtx)
	}
}
